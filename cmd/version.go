package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/conneroisu/talky/internal/version"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	versionOutput string
	versionShort  bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the version, commit, build time, Go version and platform.

Examples:
  talky version            # Show version information
  talky version --short    # Version only
  talky version -o json    # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	addOutputFlag(versionCmd, &versionOutput, "text", FormatJSON, FormatYAML)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	return writeVersion(cmd.OutOrStdout(), version.GetBuildInfo(), versionOutput, versionShort)
}

func writeVersion(w io.Writer, info *version.BuildInfo, format string, short bool) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(info)
	case "text", "":
		if short {
			_, err := fmt.Fprintln(w, version.GetShortVersion())
			return err
		}
		_, err := fmt.Fprintln(w, "talky\n"+info.String())
		return err
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", format)
	}
}
