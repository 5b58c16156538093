package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conneroisu/talky/internal/config"
	"github.com/conneroisu/talky/internal/resolver"
	"github.com/conneroisu/talky/internal/templates"
	"github.com/conneroisu/talky/internal/testutils"
	"github.com/conneroisu/talky/internal/version"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func setupTree(t *testing.T) string {
	t.Helper()
	return testutils.CreateTempTree(t, map[string]string{
		"docs/guides/":  "",
		"docs/intro.md": "# Intro",
		"docs/logo.png": "\x89PNG",
		"docs/" + templates.DefaultOverrideFilename: `<h1>{{.CurrentPath}}</h1>`,
	})
}

func testConfig(base string) *config.Config {
	return testutils.CreateTestConfig(base)
}

func TestBuildListReportDirectory(t *testing.T) {
	base := setupTree(t)

	report, err := buildListReport(context.Background(), testConfig(base), "/docs/guides")
	require.NoError(t, err)

	assert.Equal(t, "/docs/guides/", report.Path)
	assert.Equal(t, "directory", report.Type)
	assert.Equal(t, filepath.Join(base, "docs", templates.DefaultOverrideFilename), report.Template)
	assert.Empty(t, report.TemplateError)
	require.Len(t, report.Breadcrumbs, 2)
	assert.Equal(t, "/docs", report.Breadcrumbs[1].Path)

	report, err = buildListReport(context.Background(), testConfig(base), "/docs")
	require.NoError(t, err)
	require.Len(t, report.Files, 2)
	assert.Equal(t, "intro.md", report.Files[0].Name)
	assert.Equal(t, "guides", report.Directories[0].Name)
}

func TestBuildListReportUsesDefaultTemplateAtRoot(t *testing.T) {
	report, err := buildListReport(context.Background(), testConfig(setupTree(t)), "")
	require.NoError(t, err)
	assert.Equal(t, "/", report.Path)
	assert.Equal(t, resolver.DefaultOrigin, report.Template)
}

func TestBuildListReportTemplateError(t *testing.T) {
	base := setupTree(t)
	testutils.WriteFile(t, filepath.Join(base, "docs", "guides", templates.DefaultOverrideFilename), `{{range}}`)

	report, err := buildListReport(context.Background(), testConfig(base), "/docs/guides")
	require.NoError(t, err)
	assert.Contains(t, report.TemplateError, "template compilation failed")
}

func TestBuildListReportFile(t *testing.T) {
	base := setupTree(t)

	report, err := buildListReport(context.Background(), testConfig(base), "/docs/logo.png")
	require.NoError(t, err)
	assert.Equal(t, "file", report.Type)
	require.NotNil(t, report.File)
	assert.Equal(t, "/docs/logo.png", report.Path)
	assert.False(t, report.File.Inline)
	assert.Equal(t, 4, report.File.Size)
	assert.Equal(t, "application/octet-stream", report.File.ContentType)
}

func TestBuildListReportErrors(t *testing.T) {
	cfg := testConfig(setupTree(t))

	_, err := buildListReport(context.Background(), cfg, "/nope")
	assert.Error(t, err)

	_, err = buildListReport(context.Background(), cfg, "/../etc")
	assert.Error(t, err)
}

func TestWriteListReport(t *testing.T) {
	base := setupTree(t)
	report, err := buildListReport(context.Background(), testConfig(base), "/docs")
	require.NoError(t, err)

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeListReport(&buf, report, "table"))
		out := buf.String()
		assert.Contains(t, out, "Breadcrumbs:")
		assert.Contains(t, out, resolver.RootMarker)
		assert.Contains(t, out, "guides/")
		assert.Contains(t, out, "Total: 1 directories, 2 files")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeListReport(&buf, report, "JSON"))

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "/docs/", decoded["path"])
		assert.Len(t, decoded["files"], 2)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeListReport(&buf, report, "yaml"))

		var decoded map[string]interface{}
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "directory", decoded["type"])
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.Error(t, writeListReport(&bytes.Buffer{}, report, "csv"))
	})
}

func TestValidateFormat(t *testing.T) {
	formats := []string{FormatTable, FormatJSON, FormatYAML}

	assert.NoError(t, ValidateFormat("json", formats))
	assert.NoError(t, ValidateFormat("YAML", formats))

	err := ValidateFormat("jso", formats)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "json"`)

	err = ValidateFormat("csv", formats)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of: table, json, yaml")
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, ValidatePort("3000"))
	assert.Error(t, ValidatePort("0"))
	assert.Error(t, ValidatePort("70000"))
	assert.Error(t, ValidatePort("http"))
}

func TestAddFlagValidation(t *testing.T) {
	var output string
	cmd := &cobra.Command{Use: "test"}
	addOutputFlag(cmd, &output, FormatTable, FormatJSON)

	assert.Equal(t, FormatTable, output)
	require.NoError(t, cmd.Flags().Set("output", "json"))
	assert.Equal(t, FormatJSON, output)

	assert.Error(t, cmd.Flags().Set("output", "xml"))
	assert.Equal(t, FormatJSON, output)
}

func TestWriteVersion(t *testing.T) {
	info := &version.BuildInfo{Version: "v1.0.0", GitCommit: "unknown", GoVersion: "go1.24.4", Platform: "linux/amd64"}

	var buf bytes.Buffer
	require.NoError(t, writeVersion(&buf, info, "text", false))
	assert.True(t, strings.HasPrefix(buf.String(), "talky\nVersion: v1.0.0\n"))

	buf.Reset()
	require.NoError(t, writeVersion(&buf, info, "json", false))
	assert.Contains(t, buf.String(), `"version": "v1.0.0"`)

	buf.Reset()
	require.NoError(t, writeVersion(&buf, info, "yaml", false))
	assert.Contains(t, buf.String(), "version: v1.0.0")

	assert.Error(t, writeVersion(&buf, info, "xml", false))
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(&config.Config{Log: config.LogConfig{Level: "debug", Format: "json"}})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = newLogger(&config.Config{Log: config.LogConfig{Level: "loud"}})
	assert.Error(t, err)
}

func TestListCommand(t *testing.T) {
	base := setupTree(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"list", "--base-dir", base, "--output", "json", "/docs"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	var decoded listReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "/docs/", decoded.Path)
	assert.Equal(t, "directory", decoded.Type)
	assert.Len(t, decoded.Files, 2)
}
