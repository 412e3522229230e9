// Package manifest journals organize runs to the filesystem. Each run that
// moves files is written as one JSON entry listing every source and
// destination, so past runs can be listed and inspected.
package manifest

import "time"

// OperationType represents the type of operation.
type OperationType string

const (
	// OpOrganize records an organize run.
	OpOrganize OperationType = "organize"
	// OpWatch records a batch organized by watch mode.
	OpWatch OperationType = "watch"
)

// Entry represents a single manifest entry.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Operation OperationType `json:"operation"`
	Source    string        `json:"source"`
	Target    string        `json:"target"`
	Files     []FileRecord  `json:"files"`
	Summary   Summary       `json:"summary"`
}

// FileRecord is one moved file.
type FileRecord struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Size       int64   `json:"size"`
}

// Summary contains the run totals.
type Summary struct {
	TotalFiles  int64 `json:"total_files"`
	TotalBytes  int64 `json:"total_bytes"`
	Errors      int   `json:"errors"`
	Interrupted bool  `json:"interrupted,omitempty"`
}
