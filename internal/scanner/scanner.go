// Package scanner lists the contents of a single directory for display.
//
// The scanner reads directory entries in batches, classifies each one as a
// file or a subdirectory, and drops everything a visitor should not see:
// hidden entries, the reserved override-template file, and anything that is
// neither a regular file nor a directory. Symbolic links are never followed
// or listed, which keeps a listing from leaking link targets or walking out
// of the served tree. Both result lists are sorted by byte-wise name order.
package scanner

import (
	"context"
	"errors"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	talkyerrors "github.com/conneroisu/talky/internal/errors"
)

// DefaultBatchSize is the number of entries read per ReadDir call. The
// request context is checked between batches.
const DefaultBatchSize = 256

// Entry is one listed file or directory.
type Entry struct {
	// Name is the base name of the entry
	Name string `json:"name" yaml:"name"`
	// Size is the size in bytes as reported by the filesystem
	Size int64 `json:"size" yaml:"size"`
	// ModTime is the last modification time
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// Listing is the sorted content of one directory.
type Listing struct {
	Files       []Entry `json:"files" yaml:"files"`
	Directories []Entry `json:"directories" yaml:"directories"`
}

// DirectoryScanner reads directories on behalf of a request.
type DirectoryScanner struct {
	// reservedName is excluded from file listings (the override template)
	reservedName string
	// batchSize bounds each ReadDir call
	batchSize int
}

// NewDirectoryScanner creates a scanner that hides reservedName from file
// listings.
func NewDirectoryScanner(reservedName string) *DirectoryScanner {
	return &DirectoryScanner{
		reservedName: reservedName,
		batchSize:    DefaultBatchSize,
	}
}

// Hidden reports whether name is a dot-file or dot-directory.
func Hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Scan lists dir. Failing to open or read the directory is an I/O error;
// failing to stat a single entry only drops that entry.
func (s *DirectoryScanner) Scan(ctx context.Context, dir string) (*Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, talkyerrors.Canceled(err).WithPath(dir)
	}

	f, err := os.Open(dir)
	if err != nil {
		return nil, talkyerrors.NewIOError(talkyerrors.ErrCodeReadDir, "could not open directory", err).WithPath(dir)
	}
	defer f.Close()

	return s.ScanFile(ctx, f)
}

// ScanFile lists an already opened directory. The caller closes f.
func (s *DirectoryScanner) ScanFile(ctx context.Context, f *os.File) (*Listing, error) {
	dir := f.Name()

	listing := &Listing{
		Files:       make([]Entry, 0),
		Directories: make([]Entry, 0),
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, talkyerrors.Canceled(err).WithPath(dir)
		}

		batch, err := f.ReadDir(s.batchSize)
		for _, entry := range batch {
			s.add(listing, entry)
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, talkyerrors.NewIOError(talkyerrors.ErrCodeReadDir, "could not read directory", err).WithPath(dir)
		}
	}

	sortEntries(listing.Files)
	sortEntries(listing.Directories)

	return listing, nil
}

func (s *DirectoryScanner) add(listing *Listing, entry os.DirEntry) {
	name := entry.Name()
	if Hidden(name) {
		return
	}

	kind := entry.Type()
	isDir := kind.IsDir()
	if !isDir && !kind.IsRegular() {
		return
	}
	if !isDir && name == s.reservedName {
		return
	}

	info, err := entry.Info()
	if err != nil {
		// Removed or unreadable since the directory was read.
		return
	}

	listed := Entry{Name: name, Size: info.Size(), ModTime: info.ModTime()}
	if isDir {
		listing.Directories = append(listing.Directories, listed)
	} else {
		listing.Files = append(listing.Files, listed)
	}
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Name, b.Name)
	})
}
