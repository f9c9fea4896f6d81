// Package watcher reports documents that appear or change in a directory.
package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultPattern matches the documents the parser registry understands
const DefaultPattern = "*.{pdf,txt,md,markdown,html,htm}"

// DefaultSettle is how long a file must stay quiet before it is reported
const DefaultSettle = 500 * time.Millisecond

// Watcher emits a path once a matching file has been created or written and
// then left alone for the settle period.
type Watcher struct {
	watcher *fsnotify.Watcher
	dir     string
	pattern string
	settle  time.Duration
}

// New creates a watcher for dir. pattern is a doublestar glob relative to dir.
func New(dir, pattern string, settle time.Duration) (*Watcher, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	if settle <= 0 {
		settle = DefaultSettle
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(abs); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", abs, err)
	}

	return &Watcher{
		watcher: w,
		dir:     abs,
		pattern: pattern,
		settle:  settle,
	}, nil
}

// Watch starts monitoring and returns a channel of settled document paths.
// The channel closes when ctx is done or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) <-chan string {
	out := make(chan string, 16)

	go func() {
		defer close(out)

		deadlines := make(map[string]time.Time)
		timer := time.NewTimer(time.Hour)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				if !w.Matches(event.Name) {
					continue
				}
				deadlines[event.Name] = time.Now().Add(w.settle)
				timer.Reset(w.settle)
			case <-timer.C:
				now := time.Now()
				var next time.Duration
				for path, due := range deadlines {
					if wait := due.Sub(now); wait > 0 {
						if next == 0 || wait < next {
							next = wait
						}
						continue
					}
					delete(deadlines, path)
					select {
					case out <- path:
					case <-ctx.Done():
						return
					}
				}
				if next > 0 {
					timer.Reset(next)
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[watcher] %v", err)
			}
		}
	}()

	return out
}

// Matches reports whether path is inside the watched directory and matches the pattern.
func (w *Watcher) Matches(path string) bool {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return false
	}
	ok, err := doublestar.PathMatch(w.pattern, rel)
	return err == nil && ok
}

// Existing lists files already in the directory that match the pattern.
func (w *Watcher) Existing() ([]string, error) {
	matches, err := doublestar.FilepathGlob(filepath.Join(w.dir, w.pattern))
	if err != nil {
		return nil, fmt.Errorf("glob matching failed: %w", err)
	}
	return matches, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
