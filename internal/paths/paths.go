// Package paths implements the string algebra that turns a request path into
// ancestor trails, display paths and safe filesystem joins.
package paths

import (
	"path/filepath"
	"strings"

	"github.com/conneroisu/talky/internal/errors"
)

// Separator is the URL path separator. Request paths always use it,
// regardless of the host filesystem.
const Separator = "/"

// SegmentTrail expands path into the cumulative paths of its ancestors,
// shallowest first:
//
//	"a/b/c", false -> ["a", "a/b", "a/b/c"]
//	"/a/b",  false -> ["/", "/a", "/a/b"]
//	"a/b",   true  -> ["/", "/a", "/a/b"]
//
// A root prefix applies when path starts with "/" or includeRoot is set; the
// trail then begins with "/" itself. Empty segments are dropped, so no
// element ever contains "//".
func SegmentTrail(path string, includeRoot bool) []string {
	rooted := includeRoot
	if strings.HasPrefix(path, Separator) {
		path = path[1:]
		rooted = true
	}

	segments := splitSegments(path)
	if len(segments) == 0 && !rooted {
		return []string{""}
	}

	trail := make([]string, 0, len(segments)+1)
	for i, segment := range segments {
		if i == 0 {
			trail = append(trail, segment)
			continue
		}
		trail = append(trail, trail[i-1]+Separator+segment)
	}

	if !rooted {
		return trail
	}

	rootedTrail := make([]string, 0, len(trail)+1)
	rootedTrail = append(rootedTrail, Separator)
	for _, ancestor := range trail {
		rootedTrail = append(rootedTrail, Separator+ancestor)
	}

	return rootedTrail
}

// SegmentCount returns the number of non-empty segments in path.
func SegmentCount(path string) int {
	return len(splitSegments(strings.TrimPrefix(path, Separator)))
}

// LastSegment returns the final non-empty segment of path, or "" for the root.
func LastSegment(path string) string {
	segments := splitSegments(path)
	if len(segments) == 0 {
		return ""
	}

	return segments[len(segments)-1]
}

// FormatPrefixPath returns path with exactly one leading and one trailing "/".
// The root (and the empty path) formats as "/".
func FormatPrefixPath(path string) string {
	trimmed := strings.Trim(path, Separator)
	if trimmed == "" {
		return Separator
	}

	return Separator + trimmed + Separator
}

// Join combines base with the request-relative path rel. It refuses inputs
// that could escape base: NUL bytes, ".." segments and anything
// filepath.IsLocal rejects. An empty rel yields base.
func Join(base, rel string) (string, error) {
	if base == "" {
		return "", errors.NewPathJoinError(errors.ErrCodePathJoin, "path join failed: empty base directory")
	}
	if strings.ContainsRune(rel, 0) {
		return "", errors.NewPathJoinError(errors.ErrCodePathJoin, "path join failed: NUL byte in path")
	}

	rel = strings.TrimPrefix(rel, Separator)
	for _, segment := range strings.Split(rel, Separator) {
		if segment == ".." {
			return "", errors.NewPathJoinError(errors.ErrCodePathTraversal, "path join failed: traversal segment").
				WithPath(rel)
		}
	}

	local := filepath.FromSlash(strings.Join(splitSegments(rel), Separator))
	if local == "" {
		return filepath.Clean(base), nil
	}
	if !filepath.IsLocal(local) {
		return "", errors.NewPathJoinError(errors.ErrCodePathTraversal, "path join failed: not local to base directory").
			WithPath(rel)
	}

	return filepath.Join(base, local), nil
}

func splitSegments(path string) []string {
	if path == "" {
		return nil
	}

	raw := strings.Split(path, Separator)
	segments := make([]string, 0, len(raw))
	for _, segment := range raw {
		if segment != "" {
			segments = append(segments, segment)
		}
	}

	return segments
}
