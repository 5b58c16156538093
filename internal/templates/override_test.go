package templates

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/conneroisu/talky/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, dir, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, DefaultOverrideFilename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestResolveOverrideDeepestWins(t *testing.T) {
	base := t.TempDir()
	writeTemplate(t, base, "root")
	deeper := writeTemplate(t, filepath.Join(base, "x"), "x")
	require.NoError(t, os.MkdirAll(filepath.Join(base, "x", "y"), 0755))

	override, err := ResolveOverride(context.Background(), base, "/x/y", DefaultOverrideFilename)
	require.NoError(t, err)
	require.NotNil(t, override)

	assert.Equal(t, deeper, override.Path)
	assert.Equal(t, "x", override.Source)
}

func TestResolveOverrideBaseDirectory(t *testing.T) {
	base := t.TempDir()
	rootTemplate := writeTemplate(t, base, "root")

	tests := []string{"/", "", "/a", "/a/b/c"}
	for _, requestPath := range tests {
		t.Run(requestPath, func(t *testing.T) {
			override, err := ResolveOverride(context.Background(), base, requestPath, DefaultOverrideFilename)
			require.NoError(t, err)
			require.NotNil(t, override)
			assert.Equal(t, rootTemplate, override.Path)
		})
	}
}

func TestResolveOverrideSkipsUnreadableCandidates(t *testing.T) {
	base := t.TempDir()
	writeTemplate(t, filepath.Join(base, "a"), "a")
	// A directory with the reserved name is not a template.
	require.NoError(t, os.MkdirAll(filepath.Join(base, "a", "b", DefaultOverrideFilename), 0755))

	override, err := ResolveOverride(context.Background(), base, "/a/b", DefaultOverrideFilename)
	require.NoError(t, err)
	require.NotNil(t, override)
	assert.Equal(t, "a", override.Source)
}

func TestResolveOverrideIgnoresSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges")
	}

	outside := t.TempDir()
	writeTemplate(t, outside, "outside")

	base := t.TempDir()
	writeTemplate(t, base, "root")
	require.NoError(t, os.Symlink(outside, filepath.Join(base, "link")))

	other := t.TempDir()
	writeTemplate(t, other, "linked file")
	require.NoError(t, os.MkdirAll(filepath.Join(base, "docs"), 0755))
	require.NoError(t, os.Symlink(filepath.Join(other, DefaultOverrideFilename),
		filepath.Join(base, "docs", DefaultOverrideFilename)))

	tests := []string{"/link", "/link/deeper", "/docs"}
	for _, requestPath := range tests {
		t.Run(requestPath, func(t *testing.T) {
			override, err := ResolveOverride(context.Background(), base, requestPath, DefaultOverrideFilename)
			require.NoError(t, err)
			require.NotNil(t, override)
			assert.Equal(t, "root", override.Source)
			assert.Equal(t, filepath.Join(base, DefaultOverrideFilename), override.Path)
		})
	}
}

func TestResolveOverrideNoneFound(t *testing.T) {
	override, err := ResolveOverride(context.Background(), t.TempDir(), "/a/b", DefaultOverrideFilename)
	require.NoError(t, err)
	assert.Nil(t, override)
}

func TestResolveOverrideRejectsTraversal(t *testing.T) {
	override, err := ResolveOverride(context.Background(), t.TempDir(), "/a/../../etc", DefaultOverrideFilename)
	require.Error(t, err)
	assert.Nil(t, override)
	assert.True(t, errors.IsPathJoin(err))
}

func TestResolveOverrideCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ResolveOverride(ctx, t.TempDir(), "/a", DefaultOverrideFilename)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
