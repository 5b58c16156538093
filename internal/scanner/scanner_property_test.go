//go:build property

package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestScannerProperties validates listing invariants over generated trees.
func TestScannerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 40

	properties := gopter.NewProperties(parameters)

	properties.Property("hidden names never appear in either list", prop.ForAll(
		func(fileNames []string, dirNames []string) bool {
			dir := t.TempDir()
			for _, name := range fileNames {
				if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
					return true
				}
			}
			for _, name := range dirNames {
				if err := os.MkdirAll(filepath.Join(dir, name+"_d"), 0755); err != nil {
					return true
				}
			}

			listing, err := NewDirectoryScanner("_index_talky.html").Scan(context.Background(), dir)
			if err != nil {
				return false
			}

			for _, entry := range append(listing.Files, listing.Directories...) {
				if strings.HasPrefix(entry.Name, ".") {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.RegexMatch(`^\.?[a-z]{1,5}$`)),
		gen.SliceOfN(4, gen.RegexMatch(`^\.?[a-z]{1,5}$`)),
	))

	properties.Property("lists are sorted byte-wise", prop.ForAll(
		func(fileNames []string) bool {
			dir := t.TempDir()
			for _, name := range fileNames {
				if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
					return true
				}
			}

			listing, err := NewDirectoryScanner("").Scan(context.Background(), dir)
			if err != nil {
				return false
			}
			for i := 1; i < len(listing.Files); i++ {
				if listing.Files[i-1].Name >= listing.Files[i].Name {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(10, gen.RegexMatch(`^[A-Za-z0-9]{1,6}$`)),
	))

	properties.TestingRun(t)
}
