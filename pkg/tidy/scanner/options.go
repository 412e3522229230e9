// Package scanner enumerates the regular files under a root directory for
// tidy, skipping hidden and system entries and honouring an optional depth
// bound. Traversal is sequential; see Scanner for the ordering guarantees.
package scanner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// ErrInvalidPattern is returned for an exclude pattern that does not compile.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

// Unbounded disables the depth limit.
const Unbounded = -1

// Options configures the scanner behavior.
type Options struct {
	// Root is the starting directory for the scan.
	Root string

	// Recursive descends into subdirectories. When false only the
	// immediate children of Root are collected.
	Recursive bool

	// MaxDepth bounds recursion. Root is depth 0 and its subdirectories
	// are depth 1; a directory at depth d is descended only if d <= MaxDepth.
	// Unbounded (-1) disables the limit. Ignored when Recursive is false.
	MaxDepth int

	// IncludeHidden keeps entries whose name starts with a dot.
	IncludeHidden bool

	// IncludeSystem keeps the entries listed in SystemDirs and SystemFiles.
	IncludeSystem bool

	// Exclude holds glob patterns. An entry is skipped when a pattern
	// matches its name or its slash-separated path relative to Root.
	// Excluded directories are not descended.
	Exclude []string
}

// DefaultOptions returns a recursive, unbounded scan of the current directory.
func DefaultOptions() Options {
	return Options{
		Root:      ".",
		Recursive: true,
		MaxDepth:  Unbounded,
	}
}

// Validate normalizes the options.
func (o *Options) Validate() error {
	if o.Root == "" {
		o.Root = "."
	}
	if o.MaxDepth < Unbounded {
		o.MaxDepth = Unbounded
	}
	_, err := CompileExcludes(o.Exclude)
	return err
}

// CompileExcludes compiles exclude patterns with '/' as the separator.
// Blank patterns are ignored.
func CompileExcludes(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// SystemDirs are directory names skipped unless IncludeSystem is set.
var SystemDirs = map[string]bool{
	".git":          true,
	".svn":          true,
	".hg":           true,
	"__pycache__":   true,
	".pytest_cache": true,
	"node_modules":  true,
	".venv":         true,
	"venv":          true,
	".env":          true,
}

// SystemFiles are file names skipped unless IncludeSystem is set.
var SystemFiles = map[string]bool{
	".DS_Store":      true,
	"Thumbs.db":      true,
	".gitignore":     true,
	".gitattributes": true,
	"desktop.ini":    true,
	".localized":     true,
}
