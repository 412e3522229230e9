// Package watcher organizes files as they arrive in a directory. Events
// from fsnotify are debounced per path; once a file has been quiet for the
// settle delay it is handed to the organizer. All work happens on the
// goroutine that calls Run.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/jamesainslie/tidy/pkg/tidy/logging"
	"github.com/jamesainslie/tidy/pkg/tidy/scanner"
	"github.com/jamesainslie/tidy/pkg/tidy/types"
)

// DefaultSettle is the default quiet period before a file is organized.
const DefaultSettle = 2 * time.Second

// PartialSuffixes mark in-progress downloads, which are never organized.
var PartialSuffixes = []string{".part", ".partial", ".crdownload", ".download"}

// FileOrganizer organizes an explicit list of files.
type FileOrganizer interface {
	OrganizeFiles(ctx context.Context, files []string, target string, dryRun bool) (*types.Report, error)
}

// Options configures a Watcher.
type Options struct {
	// Source is the directory to watch.
	Source string

	// Target receives the category directories. Empty means Source.
	Target string

	// Recursive also watches subdirectories, including ones created later.
	Recursive bool

	// IncludeHidden organizes dotfiles too.
	IncludeHidden bool

	// IncludeSystem organizes the scanner's system files and watches its
	// system directories.
	IncludeSystem bool

	// Exclude holds glob patterns matched against file and directory names.
	Exclude []string

	// Settle is the quiet period after the last event for a file.
	Settle time.Duration

	// DryRun reports without moving.
	DryRun bool

	// OnReport is called with the report of every organized batch.
	OnReport func(*types.Report)
}

// Watcher watches a source directory and organizes new files.
type Watcher struct {
	org      FileOrganizer
	opts     Options
	excludes []glob.Glob
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	paths   map[string]bool
	pending map[string]time.Time
	closed  bool
}

// New creates a Watcher. The source must be an existing directory.
func New(org FileOrganizer, opts Options) (*Watcher, error) {
	src, err := filepath.Abs(opts.Source)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(src)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("watch source is not a directory")
	}
	opts.Source = src

	if opts.Target == "" {
		opts.Target = src
	}
	if opts.Target, err = filepath.Abs(opts.Target); err != nil {
		return nil, err
	}
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	excludes, err := scanner.CompileExcludes(opts.Exclude)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		org:      org,
		opts:     opts,
		excludes: excludes,
		watcher:  fsw,
		paths:    make(map[string]bool),
		pending:  make(map[string]time.Time),
	}, nil
}

// Run watches until ctx is cancelled, organizing settled files in batches.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.watchTree(w.opts.Source); err != nil {
		return err
	}
	logging.Get("watcher").Info("watching", "source", w.opts.Source, "target", w.opts.Target, "settle", w.opts.Settle)

	timer := time.NewTimer(w.opts.Settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(event) {
				timer.Reset(w.opts.Settle)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.Get("watcher").Error("watcher error", "error", err)

		case <-timer.C:
			if next := w.flush(ctx); next > 0 {
				timer.Reset(next)
			}
		}
	}
}

// watchTree adds root, and its subdirectories when recursive.
func (w *Watcher) watchTree(root string) error {
	if !w.opts.Recursive {
		return w.addWatch(root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skipName(d.Name(), true) {
			return filepath.SkipDir
		}
		return w.addWatch(path)
	})
}

func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}
	if err := w.watcher.Add(path); err != nil {
		logging.Get("watcher").Warn("failed to add watch", "path", path, "error", err)
		return err
	}
	w.paths[path] = true
	return nil
}

// handleEvent records a pending file and reports whether one was added.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			w.forget(event.Name)
		}
		return false
	}

	info, err := os.Lstat(event.Name)
	if err != nil {
		return false
	}

	if info.IsDir() {
		if w.opts.Recursive && event.Has(fsnotify.Create) && !w.skipName(info.Name(), true) {
			_ = w.watchTree(event.Name)
		}
		return false
	}

	if !info.Mode().IsRegular() || w.skipName(info.Name(), false) {
		return false
	}

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
	return true
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.pending, path)
	if w.paths[path] {
		_ = w.watcher.Remove(path)
		delete(w.paths, path)
	}
}

// skipName applies the scanner's hidden, system, and exclude filters plus
// the partial-download suffixes.
func (w *Watcher) skipName(name string, isDir bool) bool {
	if !w.opts.IncludeSystem {
		if isDir && scanner.SystemDirs[name] {
			return true
		}
		if !isDir && scanner.SystemFiles[name] {
			return true
		}
	}
	for _, g := range w.excludes {
		if g.Match(name) {
			return true
		}
	}
	if !isDir {
		lower := strings.ToLower(name)
		for _, suffix := range PartialSuffixes {
			if strings.HasSuffix(lower, suffix) {
				return true
			}
		}
	}
	return !w.opts.IncludeHidden && strings.HasPrefix(name, ".")
}

// flush organizes every file that has been quiet for the settle delay and
// returns the wait until the next pending file settles, or 0 if none remain.
func (w *Watcher) flush(ctx context.Context) time.Duration {
	now := time.Now()
	var ready []string
	var next time.Duration

	w.mu.Lock()
	for path, last := range w.pending {
		wait := w.opts.Settle - now.Sub(last)
		if wait <= 0 {
			ready = append(ready, path)
			delete(w.pending, path)
			continue
		}
		if next == 0 || wait < next {
			next = wait
		}
	}
	w.mu.Unlock()

	if len(ready) == 0 {
		return next
	}
	sort.Strings(ready)

	logger := logging.Get("watcher")
	report, err := w.org.OrganizeFiles(ctx, ready, w.opts.Target, w.opts.DryRun)
	if err != nil && report == nil {
		logger.Error("failed to organize batch", "files", len(ready), "error", err)
		return next
	}

	logger.Info("organized batch",
		"files", len(ready),
		"moved", report.Stats.FilesMoved,
		"errors", report.Stats.Errors,
	)
	if w.opts.OnReport != nil {
		w.opts.OnReport(report)
	}

	return next
}

// Close releases the fsnotify watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}
