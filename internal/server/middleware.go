package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"

	talkyerrors "github.com/conneroisu/talky/internal/errors"
	"github.com/conneroisu/talky/internal/logging"
	"github.com/conneroisu/talky/internal/metrics"
)

type requestInfoKey struct{}

// requestInfo lets handlers report what they served back to the middleware.
type requestInfo struct {
	target string
}

func setTarget(ctx context.Context, target string) {
	if info, ok := ctx.Value(requestInfoKey{}).(*requestInfo); ok {
		info.target = target
	}
}

// responseRecorder captures the status and body size for logging.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (r *responseRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack is needed by the websocket upgrade.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("hijacking not supported")
	}
	r.status = http.StatusSwitchingProtocols
	r.wroteHeader = true
	return hj.Hijack()
}

func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// accessMiddleware logs every request and records request metrics.
func (s *Server) accessMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &requestInfo{target: metrics.TargetFile}
		if s.hub != nil && r.URL.Path == s.config.Development.LiveReloadPath {
			info.target = metrics.TargetReload
		}
		ctx := context.WithValue(r.Context(), requestInfoKey{}, info)

		perf := logging.StartOperation(s.logger, r.Method+" "+r.URL.Path)
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(ctx))

		perf.End(ctx,
			"status", rec.status,
			"bytes", rec.bytes,
			"target", info.target,
			"remote_addr", r.RemoteAddr,
		)
		s.metrics.RecordHTTPRequest(r.Method, info.target, rec.status, rec.bytes, perf.Elapsed())
	})
}

// recoverMiddleware turns a handler panic into the diagnostic page.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}
			err := talkyerrors.NewInternalError(talkyerrors.ErrCodePanic, "handler panicked", fmt.Errorf("%v", recovered))
			s.writeError(w, r, err)
		}()

		next.ServeHTTP(w, r)
	})
}
