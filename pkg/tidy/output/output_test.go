package output

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesainslie/tidy/pkg/tidy/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleReport returns a report with two moved files, one skipped file and
// one error.
func sampleReport() *types.Report {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	root := filepath.FromSlash("/home/user/Downloads")
	return &types.Report{
		Source: root,
		Target: root,
		Files: []types.FileResult{
			{
				Source:        filepath.Join(root, "report.pdf"),
				Target:        filepath.Join(root, "documents", "report.pdf"),
				Category:      "documents",
				Confidence:    0.9,
				PrimaryMethod: types.MethodContent,
				Size:          2048,
				Moved:         true,
			},
			{
				Source:        filepath.Join(root, "photo.jpg"),
				Target:        filepath.Join(root, "images", "photo_1.jpg"),
				Category:      "images",
				Confidence:    0.9,
				PrimaryMethod: types.MethodContent,
				Size:          1024,
				Moved:         true,
			},
			{
				Source:        filepath.Join(root, "documents", "notes.pdf"),
				Target:        filepath.Join(root, "documents", "notes.pdf"),
				Category:      "documents",
				Confidence:    0.8,
				PrimaryMethod: types.MethodExtension,
				Size:          512,
				Skipped:       true,
			},
		},
		Errors: []types.FileError{
			{Path: filepath.Join(root, "locked.bin"), Error: "permission denied"},
		},
		Stats: types.Statistics{
			FilesDiscovered: 4,
			FilesProcessed:  4,
			FilesMoved:      2,
			Errors:          1,
			StartTime:       start,
			EndTime:         start.Add(1500 * time.Millisecond),
		},
		ManifestID: "organize-20240301T120000-abcd1234",
	}
}

type stubFormatter struct{}

func (stubFormatter) Format(w *bytes.Buffer, _ *types.Report) error {
	w.WriteString("stub")
	return nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	reg.Register("stub", func() Formatter { return stubFormatter{} })

	f, err := reg.Get("stub")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, &types.Report{}))
	assert.Equal(t, "stub", buf.String())
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg := NewRegistry()
	reg.Register("a", func() Formatter { return stubFormatter{} })

	_, err := reg.Get("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown formatter: nope")
	assert.Contains(t, err.Error(), "available: a")
}

func TestRegistry_Available_Sorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register("zeta", func() Formatter { return stubFormatter{} })
	reg.Register("alpha", func() Formatter { return stubFormatter{} })
	reg.Register("mid", func() Formatter { return stubFormatter{} })

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, reg.Available())
}

func TestGlobalRegistry(t *testing.T) {
	for _, name := range []string{"pretty", "table", "plain", "json", "jsonl", "yaml", "template", "paths"} {
		t.Run(name, func(t *testing.T) {
			f, err := Get(name)
			require.NoError(t, err)
			assert.NotNil(t, f)
			assert.Contains(t, Available(), name)
		})
	}
}

func TestDisplayPath(t *testing.T) {
	base := filepath.FromSlash("/a/b")
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{"inside", base, filepath.FromSlash("/a/b/c/d.txt"), filepath.FromSlash("c/d.txt")},
		{"outside", base, filepath.FromSlash("/a/x.txt"), filepath.FromSlash("/a/x.txt")},
		{"no base", "", filepath.FromSlash("/a/x.txt"), filepath.FromSlash("/a/x.txt")},
		{"sibling prefix", base, filepath.FromSlash("/a/bb/x.txt"), filepath.FromSlash("/a/bb/x.txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, displayPath(tt.base, tt.path))
		})
	}
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "moved", status(types.FileResult{Moved: true}))
	assert.Equal(t, "skipped", status(types.FileResult{Skipped: true}))
	assert.Equal(t, "would move", status(types.FileResult{DryRun: true}))
	assert.Equal(t, "pending", status(types.FileResult{}))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 5*time.Minute, "2h 5m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}

func TestCategoryCounts(t *testing.T) {
	order, counts := categoryCounts(sampleReport())
	assert.Equal(t, []string{"documents", "images"}, order)
	assert.Equal(t, 2, counts["documents"])
	assert.Equal(t, 1, counts["images"])
}
