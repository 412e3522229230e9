package output

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/jamesainslie/tidy/pkg/tidy/types"
)

// jsonOutput is the full JSON document.
type jsonOutput struct {
	Source      string             `json:"source"`
	Target      string             `json:"target"`
	DryRun      bool               `json:"dry_run"`
	Interrupted bool               `json:"interrupted"`
	ManifestID  string             `json:"manifest_id,omitempty"`
	Files       []types.FileResult `json:"files"`
	Errors      []types.FileError  `json:"errors"`
	Statistics  jsonStats          `json:"statistics"`
}

// jsonStats holds the counters plus derived values.
type jsonStats struct {
	FilesDiscovered int       `json:"files_discovered"`
	FilesProcessed  int       `json:"files_processed"`
	FilesMoved      int       `json:"files_moved"`
	Errors          int       `json:"errors"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`
	SuccessRate     float64   `json:"success_rate"`
	TotalSize       int64     `json:"total_size"`
}

func buildStats(r *types.Report) jsonStats {
	return jsonStats{
		FilesDiscovered: r.Stats.FilesDiscovered,
		FilesProcessed:  r.Stats.FilesProcessed,
		FilesMoved:      r.Stats.FilesMoved,
		Errors:          r.Stats.Errors,
		StartTime:       r.Stats.StartTime,
		EndTime:         r.Stats.EndTime,
		DurationSeconds: r.Stats.DurationSeconds(),
		SuccessRate:     r.Stats.SuccessRate(),
		TotalSize:       r.TotalSize(),
	}
}

// JSONFormatter formats the report as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *types.Report) error {
	out := jsonOutput{
		Source:      r.Source,
		Target:      r.Target,
		DryRun:      r.DryRun,
		Interrupted: r.Interrupted,
		ManifestID:  r.ManifestID,
		Files:       r.Files,
		Errors:      r.Errors,
		Statistics:  buildStats(r),
	}
	if out.Files == nil {
		out.Files = []types.FileResult{}
	}
	if out.Errors == nil {
		out.Errors = []types.FileError{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// jsonlRecord is one line of JSONL output.
type jsonlRecord struct {
	Type string `json:"type"`
	*types.FileResult
	*types.FileError
	*jsonStats
}

// JSONLFormatter writes one compact JSON object per line: a "file" record
// per result, an "error" record per failure, and a final "summary".
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *types.Report) error {
	encoder := json.NewEncoder(w)

	for i := range r.Files {
		if err := encoder.Encode(jsonlRecord{Type: "file", FileResult: &r.Files[i]}); err != nil {
			return err
		}
	}
	for i := range r.Errors {
		if err := encoder.Encode(jsonlRecord{Type: "error", FileError: &r.Errors[i]}); err != nil {
			return err
		}
	}

	stats := buildStats(r)
	return encoder.Encode(jsonlRecord{Type: "summary", jsonStats: &stats})
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
