//go:build property

package watcher

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDebouncerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9876)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("a flush holds each path once, sorted, with its last event", prop.ForAll(
		func(indexes []int, kinds []int) bool {
			d := newDebouncer(time.Hour)
			defer d.stop()

			last := map[string]EventType{}
			for i, idx := range indexes {
				path := fmt.Sprintf("dir/file%d.md", idx)
				kind := EventType(kinds[i%len(kinds)] % 4)
				d.addEvent(ChangeEvent{Path: path, Type: kind})
				last[path] = kind
			}
			d.flush()

			if len(indexes) == 0 {
				return len(d.output) == 0
			}

			batch := <-d.output
			if len(batch) != len(last) {
				return false
			}
			for i, event := range batch {
				if i > 0 && batch[i-1].Path >= event.Path {
					return false
				}
				if last[event.Path] != event.Type {
					return false
				}
			}
			return len(d.pending) == 0
		},
		gen.SliceOf(gen.IntRange(0, 9)),
		gen.SliceOfN(5, gen.IntRange(0, 3)),
	))

	properties.Property("hidden segments are always filtered", prop.ForAll(
		func(prefix, name string) bool {
			return !NoHiddenFilter(prefix + "/." + name)
		},
		gen.RegexMatch(`^[a-z]{1,6}(/[a-z]{1,6}){0,3}$`),
		gen.RegexMatch(`^[a-z]{1,6}$`),
	))

	properties.TestingRun(t)
}
