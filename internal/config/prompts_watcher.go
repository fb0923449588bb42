package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceDelay is the default delay for debouncing file system events.
const DebounceDelay = 100 * time.Millisecond

// PromptsWatcher monitors the prompts directory and reloads the template
// set when an override file changes. The reloaded set is delivered to the
// OnChange callback.
//
// Thread-safety: all public methods are safe for concurrent use.
type PromptsWatcher struct {
	watcher *fsnotify.Watcher
	dir     string

	// OnChange receives the freshly loaded template set after each
	// debounced change. Called from the watcher goroutine.
	onChange func(*Prompts)

	debounceDelay time.Duration
	debounceTimer *time.Timer
	debounceMu    sync.Mutex

	logger *slog.Logger

	done    chan struct{}
	stopped chan struct{}
}

// NewPromptsWatcher creates a watcher over dir. If dir does not exist,
// its parent is watched so creation is detected. Call Start() to begin
// watching and Close() when done.
func NewPromptsWatcher(dir string, onChange func(*Prompts), logger *slog.Logger) (*PromptsWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		watcher.Close()
		return nil, err
	}

	pw := &PromptsWatcher{
		watcher:       watcher,
		dir:           absDir,
		onChange:      onChange,
		debounceDelay: DebounceDelay,
		logger:        logger,
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	if err := pw.addWatch(); err != nil && logger != nil {
		logger.Warn("Failed to watch prompts dir", "dir", absDir, "error", err)
	}

	return pw, nil
}

// SetDebounceDelay sets the debounce delay for batching rapid changes.
// Must be called before Start().
func (pw *PromptsWatcher) SetDebounceDelay(d time.Duration) {
	pw.debounceMu.Lock()
	defer pw.debounceMu.Unlock()
	pw.debounceDelay = d
}

// Start begins the event processing loop.
// This should be called once after creating the watcher.
func (pw *PromptsWatcher) Start() {
	go pw.eventLoop()
}

// Close stops the watcher and releases resources.
// After Close returns, the callback will not be invoked again.
func (pw *PromptsWatcher) Close() error {
	close(pw.done)
	err := pw.watcher.Close()
	<-pw.stopped // Wait for event loop to exit
	return err
}

// Dir returns the watched prompts directory.
func (pw *PromptsWatcher) Dir() string {
	return pw.dir
}

// addWatch watches the prompts directory, or its parent when the
// directory does not exist yet.
func (pw *PromptsWatcher) addWatch() error {
	info, err := os.Stat(pw.dir)
	if err == nil && info.IsDir() {
		return pw.watcher.Add(pw.dir)
	}

	parent := filepath.Dir(pw.dir)
	if parent == pw.dir {
		return err
	}
	if _, err := os.Stat(parent); err != nil {
		return err
	}
	if pw.logger != nil {
		pw.logger.Debug("Watching parent directory for creation",
			"target", pw.dir, "parent", parent)
	}
	return pw.watcher.Add(parent)
}

// eventLoop processes fsnotify events and debounces reloads.
func (pw *PromptsWatcher) eventLoop() {
	defer close(pw.stopped)

	for {
		select {
		case <-pw.done:
			return

		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			pw.handleEvent(event)

		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			if pw.logger != nil {
				pw.logger.Warn("Prompts watcher error", "error", err)
			}
		}
	}
}

// handleEvent processes a single fsnotify event.
func (pw *PromptsWatcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	ext := strings.ToLower(filepath.Ext(path))

	isRelevant := false

	// Template override files
	if ext == ".md" {
		isRelevant = event.Has(fsnotify.Create) ||
			event.Has(fsnotify.Write) ||
			event.Has(fsnotify.Remove) ||
			event.Has(fsnotify.Rename)
	}

	// The watched directory itself being created under the parent watch
	if !isRelevant && event.Has(fsnotify.Create) && path == pw.dir {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := pw.watcher.Add(path); err == nil {
				isRelevant = true
				if pw.logger != nil {
					pw.logger.Debug("Started watching newly created prompts directory",
						"dir", path)
				}
			}
		}
	}

	if !isRelevant {
		return
	}

	if pw.logger != nil {
		pw.logger.Debug("Prompts directory changed",
			"path", path, "op", event.Op.String())
	}

	pw.debounceMu.Lock()
	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.debounceTimer = time.AfterFunc(pw.debounceDelay, pw.reload)
	pw.debounceMu.Unlock()
}

// reload loads the template set and delivers it to the callback.
func (pw *PromptsWatcher) reload() {
	pw.debounceMu.Lock()
	pw.debounceTimer = nil
	pw.debounceMu.Unlock()

	prompts, err := LoadPrompts(pw.dir)
	if err != nil {
		if pw.logger != nil {
			pw.logger.Warn("Failed to reload prompts", "dir", pw.dir, "error", err)
		}
		return
	}

	if pw.logger != nil {
		pw.logger.Info("Prompts reloaded", "dir", pw.dir, "overridden", prompts.Overridden)
	}
	if pw.onChange != nil {
		pw.onChange(prompts)
	}
}
