package testutils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/conneroisu/talky/internal/config"
	"github.com/conneroisu/talky/internal/resolver"
	"github.com/conneroisu/talky/internal/templates"
	"github.com/stretchr/testify/require"
)

// CreateTempTree creates a temporary base directory holding files, keyed by
// slash-separated relative path. A key ending in "/" creates an empty
// directory.
func CreateTempTree(t *testing.T, files map[string]string) string {
	t.Helper()
	base := t.TempDir()

	for rel, content := range files {
		path := filepath.Join(base, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			require.NoError(t, os.MkdirAll(path, 0755))
			continue
		}
		WriteFile(t, path, content)
	}

	return base
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// CreateTestConfig creates a valid configuration serving baseDir on a
// loopback address.
func CreateTestConfig(baseDir string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 3000,
		},
		Content: config.ContentConfig{
			BaseDir:          baseDir,
			OverrideFilename: templates.DefaultOverrideFilename,
			InlineExtensions: append([]string(nil), resolver.DefaultInlineExtensions...),
		},
		Development: config.DevelopmentConfig{
			LiveReloadPath: "/_talky/livereload",
			Debounce:       20 * time.Millisecond,
		},
		Log: config.LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// PathTraversalCases are request paths that must never resolve outside the
// base directory.
var PathTraversalCases = []string{
	"/../etc/passwd",
	"/..",
	"/a/../../x",
	"/a/b/../../../x",
	"/..%2f..%2fetc",
	"/a\x00b",
}
