package server

import (
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	talkyerrors "github.com/conneroisu/talky/internal/errors"
	"github.com/conneroisu/talky/internal/metrics"
	"github.com/conneroisu/talky/internal/resolver"
)

// handleRequest serves every path that is not the live reload endpoint. The
// escaped path is used so that only %20 is decoded, and the query string is
// ignored.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	target, err := s.resolver.Resolve(ctx, r.URL.EscapedPath())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch t := target.(type) {
	case *resolver.FileTarget:
		setTarget(ctx, metrics.TargetFile)
		s.serveFile(w, r, t)
	case *resolver.DirectoryTarget:
		setTarget(ctx, metrics.TargetDirectory)
		s.serveDirectory(w, r, t)
	default:
		s.writeError(w, r, talkyerrors.NewInternalError(talkyerrors.ErrCodeInternal, "unknown resolve target", nil))
	}
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, file *resolver.FileTarget) {
	header := w.Header()
	content := file.Content

	if file.Inline {
		if s.hub != nil && isHTMLFile(file.Name) {
			content = s.injectReloadScript(r, content)
		}
	} else {
		disposition := mime.FormatMediaType("attachment", map[string]string{"filename": file.Name})
		if disposition == "" {
			disposition = "attachment"
		}
		header.Set("Content-Disposition", disposition)
	}

	header.Set("Content-Type", file.ContentType)
	header.Set("Content-Length", strconv.Itoa(len(content)))
	header.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (s *Server) serveDirectory(w http.ResponseWriter, r *http.Request, dir *resolver.DirectoryTarget) {
	page, err := s.renderer.Render(r.Context(), dir.Template, dir.Model)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body := []byte(page)
	if s.hub != nil {
		body = s.injectReloadScript(r, body)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// writeError logs err and renders the diagnostic page. The status stays 200.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	setTarget(ctx, metrics.TargetError)

	s.errorHandler.Handle(ctx, err, "request_path", r.URL.Path)
	s.metrics.RecordResolveError(string(talkyerrors.KindOf(err)))

	templ.Handler(DiagnosticPage(NewDiagnostic(err, r.URL.Path))).ServeHTTP(w, r)
}

func (s *Server) injectReloadScript(r *http.Request, body []byte) []byte {
	injected, err := InjectLiveReload(body, s.config.Development.LiveReloadPath)
	if err != nil {
		s.logger.Warn(r.Context(), err, "Could not inject live reload script", "path", r.URL.Path)
		return body
	}
	return injected
}

func isHTMLFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm":
		return true
	}
	return false
}
