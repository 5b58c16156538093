// Package templates selects and renders the HTML template for a directory
// listing.
//
// Template selection walks the request's ancestor directories looking for an
// override file and keeps the deepest one found. Rendering compiles
// html/template source and caches the result by content hash, so a template
// is compiled once no matter how many requests share it.
package templates

import (
	"bytes"
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"html/template"
	"sync"
	"sync/atomic"

	"github.com/conneroisu/talky/internal/errors"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxEntries bounds the compiled template cache.
const DefaultMaxEntries = 128

//go:embed default.html
var defaultTemplate string

// Default returns the built-in directory listing template.
func Default() string {
	return defaultTemplate
}

// CacheObserver is notified about cache activity.
type CacheObserver interface {
	TemplateCacheHit()
	TemplateCompiled(err error)
}

// Renderer compiles and executes templates, caching compiled templates by
// the SHA-256 of their source.
type Renderer struct {
	cache      sync.Map // key -> *template.Template
	entries    atomic.Int64
	group      singleflight.Group
	maxEntries int
	observer   CacheObserver
	funcs      template.FuncMap
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMaxEntries sets how many compiled templates are kept before the cache
// is cleared.
func WithMaxEntries(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.maxEntries = n
		}
	}
}

// WithObserver registers an observer for cache hits and compiles.
func WithObserver(observer CacheObserver) Option {
	return func(r *Renderer) {
		r.observer = observer
	}
}

// NewRenderer creates a renderer with an empty cache.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		maxEntries: DefaultMaxEntries,
		funcs:      FuncMap(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Compile returns the compiled form of source. Concurrent callers asking for
// the same source share a single compilation. Compile failures are not
// cached.
func (r *Renderer) Compile(source string) (*template.Template, error) {
	key := cacheKey(source)

	if cached, ok := r.cache.Load(key); ok {
		r.hit()
		return cached.(*template.Template), nil
	}

	compiled, err, _ := r.group.Do(key, func() (interface{}, error) {
		if cached, ok := r.cache.Load(key); ok {
			r.hit()
			return cached, nil
		}

		tmpl, err := template.New("talky").Funcs(r.funcs).Parse(source)
		if r.observer != nil {
			r.observer.TemplateCompiled(err)
		}
		if err != nil {
			return nil, errors.NewTemplateCompileError(err)
		}

		if r.entries.Load() >= int64(r.maxEntries) {
			r.Reset()
		}
		r.cache.Store(key, tmpl)
		r.entries.Add(1)

		return tmpl, nil
	})
	if err != nil {
		return nil, err
	}

	return compiled.(*template.Template), nil
}

// Render compiles source (or reuses the cached compilation) and executes it
// against data.
func (r *Renderer) Render(ctx context.Context, source string, data interface{}) (string, error) {
	tmpl, err := r.Compile(source)
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", errors.Canceled(err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.NewTemplateRenderError(err)
	}

	return buf.String(), nil
}

// Len returns the number of cached templates.
func (r *Renderer) Len() int {
	return int(r.entries.Load())
}

// Reset drops every cached template.
func (r *Renderer) Reset() {
	r.cache.Clear()
	r.entries.Store(0)
}

func (r *Renderer) hit() {
	if r.observer != nil {
		r.observer.TemplateCacheHit()
	}
}

func cacheKey(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
