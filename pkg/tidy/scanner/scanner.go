package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/gobwas/glob"
	"github.com/jamesainslie/tidy/pkg/tidy/logging"
	"github.com/jamesainslie/tidy/pkg/tidy/types"
)

// Scanner walks a directory tree with fastwalk using a single worker.
// Results are in traversal order; callers should only rely on set equality.
type Scanner struct {
	opts     Options
	excludes []glob.Glob

	mu          sync.Mutex
	files       []string
	errors      []types.ScanError
	dirsScanned int64

	root string
}

// New creates a Scanner. Options are normalized; an invalid exclude
// pattern is logged and the exclude list is ignored.
func New(opts Options) *Scanner {
	if err := opts.Validate(); err != nil {
		logging.Get("scanner").Warn("ignoring exclude patterns", "error", err)
		opts.Exclude = nil
	}
	excludes, _ := CompileExcludes(opts.Exclude)
	return &Scanner{opts: opts, excludes: excludes}
}

// Scan enumerates files under the root. A missing or non-directory root
// yields an empty result and a logged warning. The only error returned is
// the context error when ctx is cancelled during the walk.
func (s *Scanner) Scan(ctx context.Context) (*types.ScanResult, error) {
	start := time.Now()
	logger := logging.Get("scanner")

	s.files = make([]string, 0)
	s.errors = nil
	s.dirsScanned = 0

	root, err := s.validateRoot()
	if err != nil {
		logger.Warn("skipping scan", "root", s.opts.Root, "error", err)
		return s.result(start), nil
	}
	s.root = root

	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: 1,
	}

	walkErr := fastwalk.Walk(&conf, root, s.walkCallback(ctx))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return s.result(start), ctxErr
	}
	if walkErr != nil && !errors.Is(walkErr, fastwalk.ErrSkipFiles) {
		s.addError(root, walkErr)
	}

	logger.Debug("scan complete",
		"root", root,
		"files", len(s.files),
		"dirs", s.dirsScanned,
		"errors", len(s.errors),
	)

	return s.result(start), nil
}

func (s *Scanner) result(start time.Time) *types.ScanResult {
	return &types.ScanResult{
		Files:       s.files,
		DirsScanned: s.dirsScanned,
		Elapsed:     time.Since(start),
		Errors:      s.errors,
	}
}

// validateRoot resolves the root to an absolute path and checks that it is a directory.
func (s *Scanner) validateRoot() (string, error) {
	root, err := filepath.Abs(s.opts.Root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: not a directory", root)
	}

	return root, nil
}

func (s *Scanner) walkCallback(ctx context.Context) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			s.addError(path, err)
			if d != nil && d.IsDir() && path != s.root {
				return fastwalk.SkipDir
			}
			return nil
		}

		if path == s.root {
			s.countDir()
			return nil
		}

		if d.IsDir() {
			if s.excluded(d.Name(), true) || s.matchesExclude(path) || !s.descend(path) {
				return fastwalk.SkipDir
			}
			s.countDir()
			return nil
		}

		if !d.Type().IsRegular() || s.excluded(d.Name(), false) || s.matchesExclude(path) {
			return nil
		}

		s.mu.Lock()
		s.files = append(s.files, path)
		s.mu.Unlock()
		return nil
	}
}

// descend reports whether the directory at path should be entered.
func (s *Scanner) descend(path string) bool {
	if !s.opts.Recursive {
		return false
	}
	if s.opts.MaxDepth == Unbounded {
		return true
	}
	return depth(s.root, path) <= s.opts.MaxDepth
}

// excluded applies the hidden and system filters to one entry name.
func (s *Scanner) excluded(name string, isDir bool) bool {
	if !s.opts.IncludeSystem {
		if isDir && SystemDirs[name] {
			return true
		}
		if !isDir && SystemFiles[name] {
			return true
		}
	}
	return !s.opts.IncludeHidden && strings.HasPrefix(name, ".")
}

// matchesExclude reports whether a user exclude pattern matches the entry.
func (s *Scanner) matchesExclude(path string) bool {
	if len(s.excludes) == 0 {
		return false
	}
	name := filepath.Base(path)
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = name
	}
	rel = filepath.ToSlash(rel)
	for _, g := range s.excludes {
		if g.Match(name) || g.Match(rel) {
			return true
		}
	}
	return false
}

func (s *Scanner) countDir() {
	s.mu.Lock()
	s.dirsScanned++
	s.mu.Unlock()
}

func (s *Scanner) addError(path string, err error) {
	logging.Get("scanner").Warn("scan error", "path", path, "error", err)

	s.mu.Lock()
	s.errors = append(s.errors, types.ScanError{Path: path, Error: err.Error()})
	s.mu.Unlock()
}

// depth returns the number of path elements between root and path.
func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// ScanDirectory scans root and returns the discovered file paths. It never
// fails: problems are logged and yield fewer (or no) paths.
func ScanDirectory(ctx context.Context, root string, recursive bool, maxDepth int) []string {
	res, _ := New(Options{
		Root:      root,
		Recursive: recursive,
		MaxDepth:  maxDepth,
	}).Scan(ctx)
	if res == nil {
		return nil
	}
	return res.Files
}
