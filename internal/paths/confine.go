package paths

import (
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrSymlink is wrapped in the *fs.PathError returned when a component of a
// confined path is a symbolic link.
var ErrSymlink = stderrors.New("symbolic link in path")

// Lstat returns the FileInfo of rel beneath base without following symbolic
// links. Components are checked from base down, and a symlinked ancestor
// fails with ErrSymlink. A symlink as the final component is reported as
// such, not followed. All access goes through an os.Root on base.
func Lstat(base, rel string) (fs.FileInfo, error) {
	root, err := os.OpenRoot(base)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	return lstat(root, rel)
}

// Open opens rel beneath base for reading. Unlike Lstat, a symlink as the
// final component also fails with ErrSymlink.
func Open(base, rel string) (*os.File, error) {
	root, err := os.OpenRoot(base)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	info, err := lstat(root, rel)
	if err != nil {
		return nil, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return nil, &fs.PathError{Op: "open", Path: rel, Err: ErrSymlink}
	}

	return root.Open(localPath(rel))
}

// ReadFile reads rel beneath base under the rules of Open.
func ReadFile(base, rel string) ([]byte, error) {
	f, err := Open(base, rel)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

func lstat(root *os.Root, rel string) (fs.FileInfo, error) {
	segments := splitSegments(strings.TrimPrefix(rel, Separator))

	current := "."
	info, err := root.Lstat(current)
	for _, segment := range segments {
		if err != nil {
			return nil, err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return nil, &fs.PathError{Op: "lstat", Path: filepath.ToSlash(current), Err: ErrSymlink}
		}

		current = filepath.Join(current, segment)
		info, err = root.Lstat(current)
	}
	if err != nil {
		return nil, err
	}

	return info, nil
}

func localPath(rel string) string {
	local := filepath.FromSlash(strings.Join(splitSegments(rel), Separator))
	if local == "" {
		return "."
	}

	return local
}
