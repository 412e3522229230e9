// Package types provides the core data types shared by the tidy packages:
// per-file snapshots, strategy and combined classifications, organize
// results, run statistics, and the run report handed to formatters.
package types

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Uncategorized is the category assigned when no strategy produces a usable signal.
const Uncategorized = "uncategorized"

// Method identifies which strategy produced a result.
type Method string

// Classification methods.
const (
	MethodExtension Method = "extension"
	MethodContent   Method = "content"
	MethodPattern   Method = "pattern"
	MethodCombined  Method = "combined"
)

// FileInfo is a read-only snapshot of one filesystem entry, built fresh
// for each classification call.
type FileInfo struct {
	// Path is the path as given to the classifier.
	Path string `json:"path"`

	// Name is the base name including extension.
	Name string `json:"name"`

	// Stem is the base name without its final extension.
	Stem string `json:"stem"`

	// Extension is the lowercase extension without the leading dot.
	Extension string `json:"extension"`

	// Size is the file size in bytes. Nil when the stat call failed.
	Size *int64 `json:"size,omitempty"`

	// ModTime is the modification time. Zero when the stat call failed.
	ModTime time.Time `json:"mod_time,omitempty"`

	// MIMEType is the guessed MIME type. Empty when none could be derived.
	MIMEType string `json:"mime_type,omitempty"`

	// Hidden reports whether the name starts with a dot.
	Hidden bool `json:"hidden"`
}

// HasSize reports whether size information is available.
func (f *FileInfo) HasSize() bool {
	return f.Size != nil
}

// StrategyResult is the output of a single classification strategy.
type StrategyResult struct {
	Category   string  `json:"category" yaml:"category"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Method     Method  `json:"method" yaml:"method"`
}

// IsUncategorized reports whether the result carries no category.
func (r StrategyResult) IsUncategorized() bool {
	return r.Category == Uncategorized
}

// Classification is the arbitrated result for one file.
type Classification struct {
	Category   string  `json:"category" yaml:"category"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Method     Method  `json:"method" yaml:"method"`

	// PrimaryMethod is the strategy that won arbitration.
	// Empty when every strategy was suppressed.
	PrimaryMethod Method `json:"primary_method,omitempty" yaml:"primary_method,omitempty"`

	// Details holds the raw strategy results in extension, content, pattern order.
	Details []StrategyResult `json:"details" yaml:"details"`
}

// FileResult describes the outcome for one successfully processed file.
type FileResult struct {
	Source        string  `json:"source" yaml:"source"`
	Target        string  `json:"target" yaml:"target"`
	Category      string  `json:"category" yaml:"category"`
	Confidence    float64 `json:"confidence" yaml:"confidence"`
	PrimaryMethod Method  `json:"primary_method,omitempty" yaml:"primary_method,omitempty"`
	Size          int64   `json:"size" yaml:"size"`
	Moved         bool    `json:"moved" yaml:"moved"`
	DryRun        bool    `json:"dry_run" yaml:"dry_run"`

	// Skipped is true when the file already sits at its destination.
	Skipped bool `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// FileError records a file whose processing failed.
type FileError struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// Statistics are the counters for a single organize run.
type Statistics struct {
	FilesDiscovered int       `json:"files_discovered" yaml:"files_discovered"`
	FilesProcessed  int       `json:"files_processed" yaml:"files_processed"`
	FilesMoved      int       `json:"files_moved" yaml:"files_moved"`
	Errors          int       `json:"errors" yaml:"errors"`
	StartTime       time.Time `json:"start_time" yaml:"start_time"`
	EndTime         time.Time `json:"end_time" yaml:"end_time"`
}

// Duration returns the wall time of the run.
func (s Statistics) Duration() time.Duration {
	if s.EndTime.IsZero() || s.StartTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// DurationSeconds returns Duration in seconds.
func (s Statistics) DurationSeconds() float64 {
	return s.Duration().Seconds()
}

// SuccessRate returns (processed - errors) / max(processed, 1) * 100.
func (s Statistics) SuccessRate() float64 {
	denom := s.FilesProcessed
	if denom < 1 {
		denom = 1
	}
	return float64(s.FilesProcessed-s.Errors) / float64(denom) * 100
}

// Report is the complete result of one organize run.
type Report struct {
	Source      string       `json:"source" yaml:"source"`
	Target      string       `json:"target" yaml:"target"`
	DryRun      bool         `json:"dry_run" yaml:"dry_run"`
	Files       []FileResult `json:"files" yaml:"files"`
	Errors      []FileError  `json:"errors,omitempty" yaml:"errors,omitempty"`
	Stats       Statistics   `json:"statistics" yaml:"statistics"`
	Interrupted bool         `json:"interrupted" yaml:"interrupted"`

	// ManifestID is the journal entry written for this run, if any.
	ManifestID string `json:"manifest_id,omitempty" yaml:"manifest_id,omitempty"`
}

// Categories returns the distinct categories in the report in first-seen order.
func (r *Report) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range r.Files {
		if !seen[f.Category] {
			seen[f.Category] = true
			out = append(out, f.Category)
		}
	}
	return out
}

// TotalSize returns the sum of file sizes in the report.
func (r *Report) TotalSize() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Size
	}
	return total
}

// ScanError represents an error encountered during scanning.
type ScanError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ScanResult contains the files discovered by a scan.
type ScanResult struct {
	// Files holds discovered file paths in traversal order.
	Files []string `json:"files"`

	// DirsScanned is the number of directories listed.
	DirsScanned int64 `json:"dirs_scanned"`

	// Elapsed is the wall time of the scan.
	Elapsed time.Duration `json:"elapsed"`

	// Errors contains per-item errors that were skipped.
	Errors []ScanError `json:"errors,omitempty"`
}

// FormatSize converts a size in bytes to a human-readable string
// using binary (IEC) units.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
