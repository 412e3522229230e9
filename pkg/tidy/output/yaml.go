package output

import (
	"bytes"

	"github.com/jamesainslie/tidy/pkg/tidy/types"
	"gopkg.in/yaml.v3"
)

// yamlOutput mirrors the JSON document with a human duration added.
type yamlOutput struct {
	Source      string             `yaml:"source"`
	Target      string             `yaml:"target"`
	DryRun      bool               `yaml:"dry_run"`
	Interrupted bool               `yaml:"interrupted"`
	ManifestID  string             `yaml:"manifest_id,omitempty"`
	Files       []types.FileResult `yaml:"files"`
	Errors      []types.FileError  `yaml:"errors,omitempty"`
	Statistics  yamlStats          `yaml:"statistics"`
}

type yamlStats struct {
	FilesDiscovered int     `yaml:"files_discovered"`
	FilesProcessed  int     `yaml:"files_processed"`
	FilesMoved      int     `yaml:"files_moved"`
	Errors          int     `yaml:"errors"`
	Duration        string  `yaml:"duration"`
	SuccessRate     float64 `yaml:"success_rate"`
	TotalSize       string  `yaml:"total_size"`
}

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *types.Report) error {
	out := yamlOutput{
		Source:      r.Source,
		Target:      r.Target,
		DryRun:      r.DryRun,
		Interrupted: r.Interrupted,
		ManifestID:  r.ManifestID,
		Files:       r.Files,
		Errors:      r.Errors,
		Statistics: yamlStats{
			FilesDiscovered: r.Stats.FilesDiscovered,
			FilesProcessed:  r.Stats.FilesProcessed,
			FilesMoved:      r.Stats.FilesMoved,
			Errors:          r.Stats.Errors,
			Duration:        formatDuration(r.Stats.Duration()),
			SuccessRate:     r.Stats.SuccessRate(),
			TotalSize:       types.FormatSize(r.TotalSize()),
		},
	}
	if out.Files == nil {
		out.Files = []types.FileResult{}
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(out); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
