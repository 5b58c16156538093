package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/conneroisu/talky/internal/config"
	"github.com/conneroisu/talky/internal/logging"
	"github.com/conneroisu/talky/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "talky",
	Short: "Serve a directory tree as browsable, themeable pages",
	Long: `talky serves a directory over HTTP. Directories render as listing pages
and files are returned inline or as downloads.

Any directory can restyle its listing, and the listings of everything below
it, by containing a _index_talky.html template.

Quick Start:
  talky serve --base-dir ./public   Serve ./public on port 3000
  talky list /docs                  Show how /docs resolves
  talky version                     Show build information`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Version = version.GetShortVersion()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .talky.yml, can also use TALKY_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("base-dir", "d", "", "directory to serve (can also use BASE_DIR env var)")
	rootCmd.PersistentFlags().String("default-template", "", "template file for directories without an override")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	_ = viper.BindPFlag("content.base_dir", rootCmd.PersistentFlags().Lookup("base-dir"))
	_ = viper.BindPFlag("content.default_template", rootCmd.PersistentFlags().Lookup("default-template"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig initializes the configuration system.
//
// Config file priority (highest to lowest):
//  1. --config flag
//  2. TALKY_CONFIG_FILE environment variable
//  3. .talky.yml in the current directory
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(strings.TrimSuffix(config.DefaultConfigFile, ".yml"))
	}

	// TALKY_SERVER_PORT, TALKY_CONTENT_BASE_DIR, TALKY_DEVELOPMENT_LIVE_RELOAD, ...
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := config.BindLegacyEnv(viper.GetViper()); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: could not bind environment:", err)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Warning: could not read config file:", err)
	}
}

// newLogger builds the process logger from the log section of cfg.
func newLogger(cfg *config.Config) (*logging.TalkyLogger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	}), nil
}
