// Package watcher reports changes under the served directory tree. Bursts of
// filesystem events are debounced into a single batch per quiet period, which
// live reload turns into one browser refresh.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/talky/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches a directory tree for changes with debouncing
type FileWatcher struct {
	root      string
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	filters   []FileFilter
	handlers  []ChangeHandler
	logger    logging.Logger
	mutex     sync.RWMutex
	stopOnce  sync.Once
}

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Type EventType
	// Path is relative to the watched root, slash-separated
	Path    string
	ModTime time.Time
	Size    int64
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileFilter reports whether a change to the root-relative path matters.
type FileFilter func(path string) bool

// ChangeHandler handles file change events
type ChangeHandler func(events []ChangeEvent) error

// Debouncer groups rapid file changes together
type Debouncer struct {
	delay   time.Duration
	events  chan ChangeEvent
	output  chan []ChangeEvent
	timer   *time.Timer
	pending []ChangeEvent
	mutex   sync.Mutex
}

func newDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		events:  make(chan ChangeEvent, 100),
		output:  make(chan []ChangeEvent, 10),
		pending: make([]ChangeEvent, 0),
	}
}

// NewFileWatcher creates a watcher for the tree under root. Nothing is
// watched until AddRecursive is called.
func NewFileWatcher(root string, debounceDelay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving watch root: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &FileWatcher{
		root:      absRoot,
		watcher:   watcher,
		debouncer: newDebouncer(debounceDelay),
		filters:   make([]FileFilter, 0),
		handlers:  make([]ChangeHandler, 0),
		logger:    logger.WithComponent("watcher"),
	}, nil
}

// AddFilter adds a file filter
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler adds a change handler
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddPath watches a single directory inside the root.
func (fw *FileWatcher) AddPath(path string) error {
	cleanPath, err := fw.validatePath(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	return fw.watcher.Add(cleanPath)
}

// AddRecursive watches dir and every non-hidden directory below it.
func (fw *FileWatcher) AddRecursive(dir string) error {
	cleanRoot, err := fw.validatePath(dir)
	if err != nil {
		return fmt.Errorf("invalid root path: %w", err)
	}

	return filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != cleanRoot && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fw.watcher.Add(path)
	})
}

// WatchList returns the directories currently watched.
func (fw *FileWatcher) WatchList() []string {
	return fw.watcher.WatchList()
}

// validatePath cleans path and makes sure it stays inside the root.
func (fw *FileWatcher) validatePath(path string) (string, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}

	rel, err := filepath.Rel(fw.root, absPath)
	if err != nil || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("path %s is outside the watched root", path)
	}

	return absPath, nil
}

// Start starts the file watcher
func (fw *FileWatcher) Start(ctx context.Context) error {
	go fw.debouncer.start(ctx)
	go fw.processEvents(ctx)
	go fw.watchLoop(ctx)

	return nil
}

// Stop stops the file watcher and cleans up resources. It is safe to call
// more than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		fw.debouncer.stop()
		err = fw.watcher.Close()
	})
	return err
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(ctx, event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(ctx context.Context, event fsnotify.Event) {
	rel, err := filepath.Rel(fw.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	fw.mutex.RLock()
	filters := fw.filters
	fw.mutex.RUnlock()

	for _, filter := range filters {
		if !filter(rel) {
			return
		}
	}

	var modTime time.Time
	var size int64
	info, statErr := os.Lstat(event.Name)
	if statErr == nil {
		modTime = info.ModTime()
		size = info.Size()
	}

	var eventType EventType
	switch {
	case event.Has(fsnotify.Create):
		eventType = EventTypeCreated
		// New directories have to be watched explicitly.
		if statErr == nil && info.IsDir() {
			if err := fw.AddRecursive(event.Name); err != nil {
				fw.logger.Warn(ctx, err, "Could not watch new directory", "path", rel)
			}
		}
	case event.Has(fsnotify.Write):
		eventType = EventTypeModified
	case event.Has(fsnotify.Remove):
		eventType = EventTypeDeleted
	case event.Has(fsnotify.Rename):
		eventType = EventTypeRenamed
	default:
		eventType = EventTypeModified
	}

	changeEvent := ChangeEvent{
		Type:    eventType,
		Path:    rel,
		ModTime: modTime,
		Size:    size,
	}

	select {
	case fw.debouncer.events <- changeEvent:
	default:
		fw.logger.Debug(ctx, "Dropping change event, debouncer is full", "path", rel)
	}
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.debouncer.output:
			fw.mutex.RLock()
			handlers := fw.handlers
			fw.mutex.RUnlock()

			for _, handler := range handlers {
				if err := handler(events); err != nil {
					fw.logger.Error(ctx, err, "File watcher handler error", "events", len(events))
				}
			}
		}
	}
}

func (d *Debouncer) start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.stop()
			return
		case event := <-d.events:
			d.addEvent(event)
		}
	}
}

func (d *Debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) addEvent(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending = append(d.pending, event)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	// Last event per path wins.
	eventMap := make(map[string]ChangeEvent, len(d.pending))
	for _, event := range d.pending {
		eventMap[event.Path] = event
	}

	events := make([]ChangeEvent, 0, len(eventMap))
	for _, event := range eventMap {
		events = append(events, event)
	}
	slices.SortFunc(events, func(a, b ChangeEvent) int {
		return strings.Compare(a.Path, b.Path)
	})

	select {
	case d.output <- events:
	default:
	}

	d.pending = d.pending[:0]
}

// NoHiddenFilter drops changes inside hidden files or directories, which
// never appear in listings.
func NoHiddenFilter(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if strings.HasPrefix(segment, ".") && segment != "." {
			return false
		}
	}
	return true
}

// NoTempFilter drops editor backup and temporary files.
func NoTempFilter(path string) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, "~") {
		return false
	}
	switch filepath.Ext(base) {
	case ".swp", ".swx", ".tmp":
		return false
	}
	return true
}
