// Package server serves a directory tree over HTTP.
//
// Every request path goes to one catch-all handler, which resolves the path
// against the base directory and either sends the file back or renders the
// directory with its listing template. Failures become a diagnostic page.
// Live reload and the metrics listener are optional extras.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/conneroisu/talky/internal/config"
	talkyerrors "github.com/conneroisu/talky/internal/errors"
	"github.com/conneroisu/talky/internal/logging"
	"github.com/conneroisu/talky/internal/metrics"
	"github.com/conneroisu/talky/internal/resolver"
	"github.com/conneroisu/talky/internal/templates"
	"github.com/conneroisu/talky/internal/watcher"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server is the talky HTTP server.
type Server struct {
	config       *config.Config
	resolver     *resolver.Resolver
	renderer     *templates.Renderer
	logger       logging.Logger
	errorHandler *talkyerrors.ErrorHandler
	metrics      *metrics.Metrics
	hub          *LiveReloadHub
	watcher      *watcher.FileWatcher

	httpServer    *http.Server
	metricsServer *http.Server
	serverMutex   sync.RWMutex
	shutdownOnce  sync.Once
}

// New creates a server for cfg. Metrics are collected only when a metrics
// address is configured, and live reload only when enabled.
func New(cfg *config.Config, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	opts, err := cfg.ResolverOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to load resolver options: %w", err)
	}

	var m *metrics.Metrics
	var rendererOpts []templates.Option
	if cfg.Metrics.Addr != "" {
		m = metrics.New()
		rendererOpts = append(rendererOpts, templates.WithObserver(m))
	}

	s := &Server{
		config:       cfg,
		resolver:     resolver.New(opts),
		renderer:     templates.NewRenderer(rendererOpts...),
		logger:       logger.WithComponent("server"),
		errorHandler: talkyerrors.NewErrorHandler(logger.WithComponent("server")),
		metrics:      m,
	}

	if cfg.Development.LiveReload {
		s.hub = NewLiveReloadHub(logger, m)
	}

	return s, nil
}

// Metrics returns the server's collectors, or nil when metrics are off.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Handler returns the content handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.hub != nil {
		mux.Handle(s.config.Development.LiveReloadPath, s.hub)
	}
	mux.HandleFunc("/", s.handleRequest)

	return s.recoverMiddleware(s.accessMiddleware(mux))
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.hub != nil {
		go s.hub.Run(ctx)
		if err := s.startWatcher(ctx); err != nil {
			_ = ln.Close()
			return err
		}
	}

	if s.metrics != nil {
		if err := s.startMetrics(); err != nil {
			_ = ln.Close()
			return err
		}
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          s.stdLogger(),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.serverMutex.Lock()
	s.httpServer = server
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "Serving directory",
		"addr", ln.Addr().String(),
		"base_dir", s.config.Content.BaseDir,
		"live_reload", s.hub != nil,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

func (s *Server) startWatcher(ctx context.Context) error {
	fw, err := watcher.NewFileWatcher(s.config.Content.BaseDir, s.config.Development.Debounce, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddFilter(watcher.NoTempFilter)
	fw.AddHandler(s.handleFileChange)

	if err := fw.AddRecursive(s.config.Content.BaseDir); err != nil {
		_ = fw.Stop()
		return fmt.Errorf("failed to watch %s: %w", s.config.Content.BaseDir, err)
	}
	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	s.serverMutex.Lock()
	s.watcher = fw
	s.serverMutex.Unlock()

	return nil
}

func (s *Server) handleFileChange(events []watcher.ChangeEvent) error {
	paths := make([]string, len(events))
	for i, event := range events {
		paths[i] = event.Path
	}

	s.logger.Debug(context.Background(), "Content changed", "paths", paths)
	s.hub.Broadcast(ReloadMessage{Type: "reload", Paths: paths, Timestamp: time.Now()})

	return nil
}

func (s *Server) startMetrics() error {
	ln, err := net.Listen("tcp", s.config.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on metrics address %s: %w", s.config.Metrics.Addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          s.stdLogger(),
	}

	s.serverMutex.Lock()
	s.metricsServer = server
	s.serverMutex.Unlock()

	s.logger.Info(context.Background(), "Serving metrics", "addr", ln.Addr().String())

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), err, "Metrics server failed")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server and cleans up resources. It is
// safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.serverMutex.RLock()
		httpServer, metricsServer, fw := s.httpServer, s.metricsServer, s.watcher
		s.serverMutex.RUnlock()

		if fw != nil {
			if err := fw.Stop(); err != nil {
				s.logger.Warn(ctx, err, "Failed to stop file watcher")
			}
		}
		if s.hub != nil {
			s.hub.Close()
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(ctx); err != nil {
				shutdownErr = err
			}
		}
		if httpServer != nil {
			if err := httpServer.Shutdown(ctx); err != nil {
				shutdownErr = err
			}
		}
	})

	return shutdownErr
}

func (s *Server) stdLogger() *log.Logger {
	if l, ok := s.logger.(interface{ StdLogger() *log.Logger }); ok {
		return l.StdLogger()
	}
	return nil
}
