package server

import (
	"errors"

	talkyerrors "github.com/conneroisu/talky/internal/errors"
)

// Diagnostic is what the error page shows about a failed request.
type Diagnostic struct {
	Title       string
	RequestPath string
	Kind        string
	Code        string
	Message     string
	Cause       string
}

// NewDiagnostic describes err for the error page. The error's filesystem
// path is not shown; the request path is.
func NewDiagnostic(err error, requestPath string) Diagnostic {
	d := Diagnostic{
		Title:       "Something went wrong",
		RequestPath: requestPath,
		Kind:        string(talkyerrors.KindInternal),
		Message:     err.Error(),
	}

	var te *talkyerrors.TalkyError
	if !errors.As(err, &te) {
		return d
	}

	d.Kind = string(te.Kind)
	d.Code = te.Code
	d.Message = te.Message
	if te.Cause != nil {
		d.Cause = te.Cause.Error()
	}

	switch te.Kind {
	case talkyerrors.KindNotFound:
		d.Title = "Not found"
	case talkyerrors.KindPathJoin:
		d.Title = "Invalid path"
	case talkyerrors.KindTemplateCompile, talkyerrors.KindTemplateRender:
		d.Title = "Template error"
	case talkyerrors.KindIO:
		d.Title = "Could not read from disk"
	}

	return d
}
