package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/conneroisu/talky/internal/config"
	"github.com/conneroisu/talky/internal/resolver"
	"github.com/conneroisu/talky/internal/scanner"
	"github.com/conneroisu/talky/internal/templates"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listCmd = &cobra.Command{
	Use:     "list [path]",
	Aliases: []string{"l"},
	Short:   "Show how a request path resolves",
	Long: `Resolve a request path the way the server would and print the result.

For a directory this shows the breadcrumbs, the listing and which template
would render it, so override templates can be checked without a browser.
Template syntax errors are reported too.

Examples:
  talky list                     # The base directory
  talky list /docs/guides        # A nested directory
  talky list /docs -o json       # Output as JSON
  talky list /notes.md -o yaml   # A file, as YAML`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

var listOutput string

func init() {
	rootCmd.AddCommand(listCmd)

	addOutputFlag(listCmd, &listOutput, FormatTable, FormatJSON, FormatYAML)
}

// listReport is what list prints for one resolved path.
type listReport struct {
	Path          string                `json:"path" yaml:"path"`
	Type          string                `json:"type" yaml:"type"`
	Template      string                `json:"template,omitempty" yaml:"template,omitempty"`
	TemplateError string                `json:"template_error,omitempty" yaml:"template_error,omitempty"`
	Breadcrumbs   []resolver.Breadcrumb `json:"breadcrumbs,omitempty" yaml:"breadcrumbs,omitempty"`
	Directories   []scanner.Entry       `json:"directories,omitempty" yaml:"directories,omitempty"`
	Files         []scanner.Entry       `json:"files,omitempty" yaml:"files,omitempty"`
	File          *fileReport           `json:"file,omitempty" yaml:"file,omitempty"`
}

type fileReport struct {
	Name        string `json:"name" yaml:"name"`
	Size        int    `json:"size" yaml:"size"`
	Inline      bool   `json:"inline" yaml:"inline"`
	ContentType string `json:"content_type" yaml:"content_type"`
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	requestPath := "/"
	if len(args) == 1 {
		requestPath = args[0]
	}

	report, err := buildListReport(cmd.Context(), cfg, requestPath)
	if err != nil {
		return err
	}

	return writeListReport(cmd.OutOrStdout(), report, listOutput)
}

func buildListReport(ctx context.Context, cfg *config.Config, requestPath string) (*listReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts, err := cfg.ResolverOptions()
	if err != nil {
		return nil, err
	}

	target, err := resolver.New(opts).Resolve(ctx, requestPath)
	if err != nil {
		return nil, err
	}

	switch t := target.(type) {
	case *resolver.FileTarget:
		return &listReport{
			Path: "/" + resolver.NormalizePath(requestPath),
			Type: "file",
			File: &fileReport{
				Name:        t.Name,
				Size:        len(t.Content),
				Inline:      t.Inline,
				ContentType: t.ContentType,
			},
		}, nil

	case *resolver.DirectoryTarget:
		report := &listReport{
			Path:        t.Model.CurrentPath,
			Type:        "directory",
			Template:    t.TemplateOrigin,
			Breadcrumbs: t.Model.Breadcrumbs,
			Directories: t.Model.Directories,
			Files:       t.Model.Files,
		}
		if _, err := templates.NewRenderer().Compile(t.Template); err != nil {
			report.TemplateError = err.Error()
		}
		return report, nil
	}

	return nil, fmt.Errorf("unexpected resolve target %T", target)
}

func writeListReport(w io.Writer, report *listReport, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(report)
	case FormatTable, "":
		return writeListTable(w, report)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeListTable(w io.Writer, report *listReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	if report.File != nil {
		fmt.Fprintf(tw, "Path:\t%s\n", report.Path)
		fmt.Fprintf(tw, "Size:\t%d\n", report.File.Size)
		fmt.Fprintf(tw, "Inline:\t%t\n", report.File.Inline)
		fmt.Fprintf(tw, "Content-Type:\t%s\n", report.File.ContentType)
		return nil
	}

	crumbs := make([]string, len(report.Breadcrumbs))
	for i, crumb := range report.Breadcrumbs {
		crumbs[i] = crumb.Display
	}

	fmt.Fprintf(tw, "Path:\t%s\n", report.Path)
	fmt.Fprintf(tw, "Breadcrumbs:\t%s\n", strings.Join(crumbs, " / "))
	fmt.Fprintf(tw, "Template:\t%s\n", report.Template)
	if report.TemplateError != "" {
		fmt.Fprintf(tw, "Template error:\t%s\n", report.TemplateError)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "TYPE\tNAME\tSIZE\tMODIFIED")
	fmt.Fprintln(tw, "----\t----\t----\t--------")
	for _, dir := range report.Directories {
		fmt.Fprintf(tw, "dir\t%s/\t-\t%s\n", dir.Name, dir.ModTime.Format("2006-01-02 15:04"))
	}
	for _, file := range report.Files {
		fmt.Fprintf(tw, "file\t%s\t%d\t%s\n", file.Name, file.Size, file.ModTime.Format("2006-01-02 15:04"))
	}

	fmt.Fprintf(tw, "\nTotal: %d directories, %d files\n", len(report.Directories), len(report.Files))

	return nil
}
