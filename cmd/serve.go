package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/conneroisu/talky/internal/config"
	"github.com/conneroisu/talky/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Serve the base directory over HTTP",
	Long: `Serve the base directory over HTTP until interrupted.

Directories render with the deepest _index_talky.html found between the base
directory and the requested directory, or with the built-in template.

Examples:
  talky serve --base-dir ./public
  talky serve -d ./public -p 8080 --live-reload
  BASE_DIR=./public APP_PORT=8080 talky serve
  talky serve -d ./public --metrics-addr 127.0.0.1:9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 3000, "Port to serve on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Bool("readme", false, "Render README.md below directory listings")
	serveCmd.Flags().Bool("live-reload", false, "Reload open pages when files change")
	serveCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")

	AddFlagValidation(serveCmd, "port", ValidatePort)

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("content.readme", serveCmd.Flags().Lookup("readme"))
	_ = viper.BindPFlag("development.live_reload", serveCmd.Flags().Lookup("live-reload"))
	_ = viper.BindPFlag("metrics.addr", serveCmd.Flags().Lookup("metrics-addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if result := config.ValidateConfigWithDetails(cfg); result.HasWarnings() {
		for _, warning := range result.Warnings {
			logger.Warn(ctx, nil, warning.Message, "field", warning.Field, "suggestions", warning.Suggestions)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := srv.Start(ctx); err != nil {
		return err
	}

	logger.Info(context.Background(), "Server stopped")
	return nil
}
