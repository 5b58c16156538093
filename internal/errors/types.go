// Package errors defines the structured error taxonomy used across talky.
//
// Every failure that reaches the HTTP layer is a *TalkyError carrying a Kind,
// a stable Code, a human message, the filesystem path involved (if any) and
// the underlying cause. Human-readable diagnostics are only produced at the
// presentation boundary.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind represents a category of failure.
type Kind string

const (
	KindIO              Kind = "io"
	KindPathJoin        Kind = "path_join"
	KindNotFound        Kind = "not_found"
	KindTemplateCompile Kind = "template_compile"
	KindTemplateRender  Kind = "template_render"
	KindConfig          Kind = "config"
	KindInternal        Kind = "internal"
)

// Common error codes.
const (
	ErrCodePathJoin        = "ERR_PATH_JOIN"
	ErrCodePathTraversal   = "ERR_PATH_TRAVERSAL"
	ErrCodeNotFound        = "ERR_NOT_FOUND"
	ErrCodeSpecialFile     = "ERR_SPECIAL_FILE"
	ErrCodeReadDir         = "ERR_READ_DIR"
	ErrCodeReadFile        = "ERR_READ_FILE"
	ErrCodeStat            = "ERR_STAT"
	ErrCodeInvalidText     = "ERR_INVALID_TEXT"
	ErrCodeTemplateCompile = "ERR_TEMPLATE_COMPILE"
	ErrCodeTemplateRender  = "ERR_TEMPLATE_RENDER"
	ErrCodeConfigInvalid   = "ERR_CONFIG_INVALID"
	ErrCodeCanceled        = "ERR_CANCELED"
	ErrCodeInternal        = "ERR_INTERNAL"
	ErrCodePanic           = "ERR_PANIC"
)

// TalkyError is a structured error type with context.
type TalkyError struct {
	Kind    Kind
	Code    string
	Message string
	Path    string
	Cause   error
}

// Error implements the error interface.
func (e *TalkyError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	parts = append(parts, e.Message)
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("(%s)", e.Path))
	}

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *TalkyError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *TalkyError of the same kind and code.
// A target with an empty code matches any code of that kind.
func (e *TalkyError) Is(target error) bool {
	var t *TalkyError
	if !errors.As(target, &t) {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}

	return t.Code == "" || e.Code == t.Code
}

// WithPath attaches the filesystem path the error concerns.
func (e *TalkyError) WithPath(path string) *TalkyError {
	e.Path = path

	return e
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *TalkyError {
	return &TalkyError{Kind: KindIO, Code: code, Message: message, Cause: cause}
}

// NewPathJoinError creates an error for an unsafe or unjoinable path.
func NewPathJoinError(code, message string) *TalkyError {
	return &TalkyError{Kind: KindPathJoin, Code: code, Message: message}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(code, message string) *TalkyError {
	return &TalkyError{Kind: KindNotFound, Code: code, Message: message}
}

// NewTemplateCompileError creates a template compilation error.
func NewTemplateCompileError(cause error) *TalkyError {
	return &TalkyError{
		Kind:    KindTemplateCompile,
		Code:    ErrCodeTemplateCompile,
		Message: "template compilation failed",
		Cause:   cause,
	}
}

// NewTemplateRenderError creates a template execution error.
func NewTemplateRenderError(cause error) *TalkyError {
	return &TalkyError{
		Kind:    KindTemplateRender,
		Code:    ErrCodeTemplateRender,
		Message: "template rendering failed",
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *TalkyError {
	return &TalkyError{Kind: KindConfig, Code: code, Message: message}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *TalkyError {
	return &TalkyError{Kind: KindInternal, Code: code, Message: message, Cause: cause}
}

// Canceled wraps a context error so callers can tell an aborted request from
// a filesystem failure.
func Canceled(err error) *TalkyError {
	return NewIOError(ErrCodeCanceled, "request canceled", err)
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var te *TalkyError
	if errors.As(err, &te) {
		return te.Kind
	}

	return KindInternal
}

// IsNotFound checks if an error means the requested path does not exist.
func IsNotFound(err error) bool {
	return hasKind(err, KindNotFound)
}

// IsIO checks if an error is an I/O failure.
func IsIO(err error) bool {
	return hasKind(err, KindIO)
}

// IsPathJoin checks if an error is an unsafe path combination.
func IsPathJoin(err error) bool {
	return hasKind(err, KindPathJoin)
}

// IsTemplateError checks if an error came from compiling or rendering a template.
func IsTemplateError(err error) bool {
	return hasKind(err, KindTemplateCompile) || hasKind(err, KindTemplateRender)
}

func hasKind(err error, kind Kind) bool {
	var te *TalkyError
	if errors.As(err, &te) {
		return te.Kind == kind
	}

	return false
}

// ErrorHandler provides centralized error logging.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err at a level matching its kind. Missing paths are expected
// traffic and logged as warnings; everything else is an error.
func (h *ErrorHandler) Handle(ctx context.Context, err error, fields ...interface{}) {
	if err == nil || h.logger == nil {
		return
	}

	var te *TalkyError
	if !errors.As(err, &te) {
		h.logger.Error(ctx, err, "Unhandled error occurred", fields...)
		return
	}

	fields = append(fields, "kind", string(te.Kind), "code", te.Code)
	if te.Path != "" {
		fields = append(fields, "path", te.Path)
	}

	switch te.Kind {
	case KindNotFound:
		h.logger.Warn(ctx, err, "Path not found", fields...)
	case KindTemplateCompile, KindTemplateRender:
		h.logger.Error(ctx, err, "Template error occurred", fields...)
	case KindPathJoin:
		h.logger.Error(ctx, err, "Rejected path", fields...)
	default:
		h.logger.Error(ctx, err, "Error occurred", fields...)
	}
}
