// Package resolver turns a request path into something the HTTP layer can
// serve: a file to send back or a directory listing to render.
package resolver

import (
	"bytes"
	"context"
	stderrors "errors"
	"html/template"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/conneroisu/talky/internal/errors"
	"github.com/conneroisu/talky/internal/paths"
	"github.com/conneroisu/talky/internal/scanner"
	"github.com/conneroisu/talky/internal/templates"
	"github.com/russross/blackfriday/v2"
)

// RootMarker is the breadcrumb label for the site root.
const RootMarker = "🏠"

// ReadmeFilename is rendered below a listing when README rendering is on.
const ReadmeFilename = "README.md"

// DefaultOrigin is the TemplateOrigin reported for the built-in template.
const DefaultOrigin = "default"

// DefaultInlineExtensions are served as text instead of as attachments.
var DefaultInlineExtensions = []string{"html", "md", "json", "xml", "log", "conf", "css"}

// Options configures a Resolver. It is read-only once passed to New.
type Options struct {
	// BaseDir is the root of the served tree
	BaseDir string
	// DefaultTemplate is template source used when no override exists
	DefaultTemplate string
	// OverrideFilename is the per-directory template file name
	OverrideFilename string
	// InlineExtensions lists extensions (without the dot) served inline
	InlineExtensions []string
	// Readme renders README.md below directory listings
	Readme bool
}

// Breadcrumb is one navigation link above a listing.
type Breadcrumb struct {
	Path    string `json:"path" yaml:"path"`
	Display string `json:"display" yaml:"display"`
}

// RenderModel is the data a listing template is executed against.
type RenderModel struct {
	CurrentPath string          `json:"current_path" yaml:"current_path"`
	Directories []scanner.Entry `json:"directories" yaml:"directories"`
	Files       []scanner.Entry `json:"files" yaml:"files"`
	Breadcrumbs []Breadcrumb    `json:"breadcrumbs" yaml:"breadcrumbs"`
	Readme      template.HTML   `json:"readme,omitempty" yaml:"readme,omitempty"`
}

// Target is the outcome of a successful resolution, either *FileTarget or
// *DirectoryTarget.
type Target interface {
	// FSPath is the filesystem path the target was resolved to.
	FSPath() string
}

// FileTarget is a regular file.
type FileTarget struct {
	Path        string
	Name        string
	Content     []byte
	Inline      bool
	ContentType string
}

// FSPath implements Target.
func (f *FileTarget) FSPath() string { return f.Path }

// DirectoryTarget is a directory ready to render.
type DirectoryTarget struct {
	Path  string
	Model RenderModel
	// Template is the template source to render Model with
	Template string
	// TemplateOrigin is the override file path or DefaultOrigin
	TemplateOrigin string
}

// FSPath implements Target.
func (d *DirectoryTarget) FSPath() string { return d.Path }

// Resolver maps request paths onto the served tree.
type Resolver struct {
	opts    Options
	scanner *scanner.DirectoryScanner
}

// New creates a resolver, filling in defaults for unset options.
func New(opts Options) *Resolver {
	if opts.DefaultTemplate == "" {
		opts.DefaultTemplate = templates.Default()
	}
	if opts.OverrideFilename == "" {
		opts.OverrideFilename = templates.DefaultOverrideFilename
	}
	if opts.InlineExtensions == nil {
		opts.InlineExtensions = DefaultInlineExtensions
	}

	return &Resolver{
		opts:    opts,
		scanner: scanner.NewDirectoryScanner(opts.OverrideFilename),
	}
}

// NormalizePath decodes %20 to a space and strips one leading "/". No other
// percent-decoding is done.
func NormalizePath(requestPath string) string {
	return strings.TrimPrefix(strings.ReplaceAll(requestPath, "%20", " "), paths.Separator)
}

// Resolve resolves a raw (still escaped) request path.
func (r *Resolver) Resolve(ctx context.Context, requestPath string) (Target, error) {
	normalized := NormalizePath(requestPath)

	fsPath, err := paths.Join(r.opts.BaseDir, normalized)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Canceled(err)
	}

	info, err := paths.Lstat(r.opts.BaseDir, normalized)
	switch {
	case stderrors.Is(err, paths.ErrSymlink):
		return nil, specialFile(normalized, fsPath)
	case missing(err):
		return nil, errors.NewNotFoundError(errors.ErrCodeNotFound, "Path not found: /"+normalized).WithPath(fsPath)
	case err != nil:
		return nil, errors.NewIOError(errors.ErrCodeStat, "could not stat path", err).WithPath(fsPath)
	}

	switch {
	case info.IsDir():
		return r.resolveDirectory(ctx, fsPath, normalized)
	case info.Mode().IsRegular():
		return r.resolveFile(ctx, fsPath, normalized)
	default:
		return nil, specialFile(normalized, fsPath)
	}
}

// missing also covers a regular file used as a directory ("/notes.md/child").
func missing(err error) bool {
	return stderrors.Is(err, fs.ErrNotExist) || stderrors.Is(err, syscall.ENOTDIR)
}

func specialFile(normalized, fsPath string) *errors.TalkyError {
	return errors.NewNotFoundError(errors.ErrCodeSpecialFile,
		"Path /"+normalized+" is neither a regular file nor a directory").WithPath(fsPath)
}

func (r *Resolver) resolveDirectory(ctx context.Context, fsPath, normalized string) (*DirectoryTarget, error) {
	dir, err := paths.Open(r.opts.BaseDir, normalized)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeReadDir, "could not open directory", err).WithPath(fsPath)
	}
	defer dir.Close()

	listing, err := r.scanner.ScanFile(ctx, dir)
	if err != nil {
		return nil, err
	}

	override, err := templates.ResolveOverride(ctx, r.opts.BaseDir, normalized, r.opts.OverrideFilename)
	if err != nil {
		return nil, err
	}

	target := &DirectoryTarget{
		Path: fsPath,
		Model: RenderModel{
			CurrentPath: paths.FormatPrefixPath(normalized),
			Directories: listing.Directories,
			Files:       listing.Files,
			Breadcrumbs: Breadcrumbs(normalized),
		},
		Template:       r.opts.DefaultTemplate,
		TemplateOrigin: DefaultOrigin,
	}
	if override != nil {
		target.Template = override.Source
		target.TemplateOrigin = override.Path
	}

	if r.opts.Readme && slices.ContainsFunc(listing.Files, func(e scanner.Entry) bool {
		return e.Name == ReadmeFilename
	}) {
		target.Model.Readme = renderReadme(ctx, r.opts.BaseDir, normalized+paths.Separator+ReadmeFilename)
	}

	return target, nil
}

func (r *Resolver) resolveFile(ctx context.Context, fsPath, normalized string) (*FileTarget, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Canceled(err)
	}

	content, err := paths.ReadFile(r.opts.BaseDir, normalized)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeReadFile, "could not read file", err).WithPath(fsPath)
	}

	name := filepath.Base(fsPath)
	if !r.inline(name) {
		return &FileTarget{
			Path:        fsPath,
			Name:        name,
			Content:     content,
			ContentType: "application/octet-stream",
		}, nil
	}

	if !utf8.Valid(content) {
		return nil, errors.NewIOError(errors.ErrCodeInvalidText, "file is not valid UTF-8 text", nil).WithPath(fsPath)
	}

	return &FileTarget{
		Path:        fsPath,
		Name:        name,
		Content:     content,
		Inline:      true,
		ContentType: "text/html; charset=utf-8",
	}, nil
}

// inline matches the extension case-sensitively.
func (r *Resolver) inline(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return false
	}
	return slices.Contains(r.opts.InlineExtensions, ext)
}

// Breadcrumbs returns the links to every ancestor of a normalized path,
// starting at the root and excluding the path itself.
func Breadcrumbs(normalized string) []Breadcrumb {
	trail := paths.SegmentTrail(normalized, true)
	trail = trail[:len(trail)-1]

	crumbs := make([]Breadcrumb, 0, len(trail))
	for _, p := range trail {
		display := paths.LastSegment(p)
		if display == "" {
			display = RootMarker
		}
		crumbs = append(crumbs, Breadcrumb{Path: p, Display: display})
	}

	return crumbs
}

// renderReadme returns "" when the file cannot be read.
func renderReadme(ctx context.Context, base, rel string) template.HTML {
	if ctx.Err() != nil {
		return ""
	}

	source, err := paths.ReadFile(base, rel)
	if err != nil {
		return ""
	}

	// CRLF trips up blackfriday's block parser.
	source = bytes.ReplaceAll(source, []byte("\r\n"), []byte("\n"))

	return template.HTML(blackfriday.Run(source))
}
