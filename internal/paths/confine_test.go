package paths

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupConfinedTree(t *testing.T) (base, outside string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges")
	}

	outside = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("secret"), 0644))

	base = t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "a", "b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "a", "b", "c.txt"), []byte("c"), 0644))
	require.NoError(t, os.Symlink(outside, filepath.Join(base, "out")))
	require.NoError(t, os.Symlink(filepath.Join(base, "a"), filepath.Join(base, "in")))

	return base, outside
}

func TestLstat(t *testing.T) {
	base, _ := setupConfinedTree(t)

	testCases := []struct {
		name    string
		rel     string
		isDir   bool
		symlink bool
		wantErr error
	}{
		{"root", "", true, false, nil},
		{"rooted slash", "/", true, false, nil},
		{"nested file", "a/b/c.txt", false, false, nil},
		{"leading slash", "/a/b", true, false, nil},
		{"final symlink reported", "out", false, true, nil},
		{"escaping ancestor", "out/secret.txt", false, false, ErrSymlink},
		{"inner ancestor", "in/b/c.txt", false, false, ErrSymlink},
		{"missing", "a/nope", false, false, fs.ErrNotExist},
		{"file as directory", "a/b/c.txt/d", false, false, syscall.ENOTDIR},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			info, err := Lstat(base, tc.rel)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, stderrors.Is(err, tc.wantErr), err.Error())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.isDir, info.IsDir())
			assert.Equal(t, tc.symlink, info.Mode()&fs.ModeSymlink != 0)
		})
	}
}

func TestReadFile(t *testing.T) {
	base, _ := setupConfinedTree(t)

	data, err := ReadFile(base, "/a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "c", string(data))

	for _, rel := range []string{"out/secret.txt", "in/b/c.txt"} {
		_, err := ReadFile(base, rel)
		assert.ErrorIs(t, err, ErrSymlink, rel)
	}

	require.NoError(t, os.Symlink(filepath.Join(base, "a", "b", "c.txt"), filepath.Join(base, "c.txt")))
	_, err = ReadFile(base, "c.txt")
	assert.ErrorIs(t, err, ErrSymlink)
}

func TestOpenDirectory(t *testing.T) {
	base, _ := setupConfinedTree(t)

	dir, err := Open(base, "a")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })

	entries, err := dir.ReadDir(-1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Name())

	_, err = Open(base, "out")
	assert.ErrorIs(t, err, ErrSymlink)
}
