//go:build property

package paths

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genRequestPath produces paths built from short segments, optionally rooted,
// with occasional empty segments.
func genRequestPath() gopter.Gen {
	return gopter.CombineGens(
		gen.Bool(),
		gen.SliceOfN(6, gen.OneGenOf(gen.Const(""), gen.RegexMatch(`^[a-z0-9 _.-]{1,6}$`))),
	).Map(func(values []interface{}) string {
		path := strings.Join(values[1].([]string), "/")
		if values[0].(bool) {
			path = "/" + path
		}
		return path
	})
}

func TestSegmentTrailProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("rooted trail length is segment count plus one", prop.ForAll(
		func(path string) bool {
			return len(SegmentTrail(path, true)) == SegmentCount(path)+1
		},
		genRequestPath(),
	))

	properties.Property("last rooted element is the formatted path without trailing slash", prop.ForAll(
		func(path string) bool {
			trail := SegmentTrail(path, true)
			last := trail[len(trail)-1]
			formatted := FormatPrefixPath(path)
			if formatted == "/" {
				return last == "/"
			}
			return last == strings.TrimSuffix(formatted, "/")
		},
		genRequestPath(),
	))

	properties.Property("each element extends the previous by one segment", prop.ForAll(
		func(path string) bool {
			trail := SegmentTrail(path, true)
			if trail[0] != "/" {
				return false
			}
			for i := 1; i < len(trail); i++ {
				prev := strings.TrimSuffix(trail[i-1], "/")
				rest := strings.TrimPrefix(trail[i], prev+"/")
				if rest == trail[i] || rest == "" || strings.Contains(rest, "/") {
					return false
				}
			}
			return true
		},
		genRequestPath(),
	))

	properties.Property("no element contains a double slash", prop.ForAll(
		func(path string, includeRoot bool) bool {
			for _, element := range SegmentTrail(path, includeRoot) {
				if strings.Contains(element, "//") {
					return false
				}
			}
			return true
		},
		genRequestPath(),
		gen.Bool(),
	))

	properties.Property("FormatPrefixPath is idempotent", prop.ForAll(
		func(path string) bool {
			once := FormatPrefixPath(path)
			return FormatPrefixPath(once) == once &&
				strings.HasPrefix(once, "/") && strings.HasSuffix(once, "/") &&
				!strings.HasPrefix(once, "//") && !strings.HasSuffix(once, "//")
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
