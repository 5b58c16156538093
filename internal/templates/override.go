package templates

import (
	"context"

	"github.com/conneroisu/talky/internal/errors"
	"github.com/conneroisu/talky/internal/paths"
)

// DefaultOverrideFilename is the per-directory template file name.
const DefaultOverrideFilename = "_index_talky.html"

// Override is a template found in one of the request's ancestor directories.
type Override struct {
	// Path is the filesystem path the template was read from
	Path string
	// Source is the raw template text
	Source string
}

type candidate struct {
	rel  string
	path string
}

// ResolveOverride returns the override template closest to requestPath, or
// nil if no ancestor (including baseDir itself) has a readable one.
//
// Every candidate is joined before anything is read, so an unsafe request
// path fails the whole lookup instead of silently falling back.
func ResolveOverride(ctx context.Context, baseDir, requestPath, filename string) (*Override, error) {
	ancestors := paths.SegmentTrail(requestPath, true)

	candidates := make([]candidate, 0, len(ancestors))
	for _, ancestor := range ancestors {
		rel := ancestor + paths.Separator + filename
		path, err := paths.Join(baseDir, rel)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate{rel: rel, path: path})
	}

	// Shallow to deep; a readable candidate replaces whatever was found
	// above it, so the deepest one wins. Candidates behind a symlink are
	// unreadable.
	return reduce(candidates, (*Override)(nil), func(best *Override, c candidate) (*Override, error) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Canceled(err)
		}

		source, err := paths.ReadFile(baseDir, c.rel)
		if err != nil {
			return best, nil
		}

		return &Override{Path: c.path, Source: string(source)}, nil
	})
}

// reduce folds items left to right, stopping at the first error.
func reduce[T, A any](items []T, acc A, fn func(A, T) (A, error)) (A, error) {
	for _, item := range items {
		next, err := fn(acc, item)
		if err != nil {
			return next, err
		}
		acc = next
	}

	return acc, nil
}
