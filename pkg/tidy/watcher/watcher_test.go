package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jamesainslie/tidy/pkg/tidy/classifier"
	"github.com/jamesainslie/tidy/pkg/tidy/organizer"
	"github.com/jamesainslie/tidy/pkg/tidy/rules"
	"github.com/jamesainslie/tidy/pkg/tidy/scanner"
	"github.com/jamesainslie/tidy/pkg/tidy/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures OrganizeFiles calls.
type recorder struct {
	mu    sync.Mutex
	files []string
}

func (r *recorder) OrganizeFiles(_ context.Context, files []string, target string, dryRun bool) (*types.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, files...)
	return &types.Report{Target: target, DryRun: dryRun, Stats: types.Statistics{FilesProcessed: len(files)}}, nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.files...)
}

// startWatcher runs w until the test ends.
func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
		_ = w.Close()
	})

	// Give Run time to register its watches.
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return len(w.paths) > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNew_Validation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := New(&recorder{}, Options{Source: filepath.Join(dir, "missing")})
	assert.Error(t, err)

	_, err = New(&recorder{}, Options{Source: file})
	assert.Error(t, err)

	_, err = New(&recorder{}, Options{Source: dir, Exclude: []string{"[bad"}})
	assert.ErrorIs(t, err, scanner.ErrInvalidPattern)

	w, err := New(&recorder{}, Options{Source: dir})
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, dir, w.opts.Target)
	assert.Equal(t, DefaultSettle, w.opts.Settle)
}

func TestWatcher_BatchesSettledFiles(t *testing.T) {
	src := t.TempDir()
	rec := &recorder{}

	var reports int
	var mu sync.Mutex
	w, err := New(rec, Options{
		Source: src,
		Settle: 50 * time.Millisecond,
		OnReport: func(*types.Report) {
			mu.Lock()
			reports++
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	startWatcher(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(src, "a.pdf"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "movie.mp4.part"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Thumbs.db"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		return len(rec.seen()) >= 1
	}, 3*time.Second, 20*time.Millisecond)

	// Leave time for any stray events to flush.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{filepath.Join(src, "a.pdf")}, rec.seen())

	mu.Lock()
	assert.GreaterOrEqual(t, reports, 1)
	mu.Unlock()
}

func TestWatcher_RecursiveWatchesNewDirectories(t *testing.T) {
	src := t.TempDir()
	rec := &recorder{}

	w, err := New(rec, Options{Source: src, Recursive: true, Settle: 50 * time.Millisecond})
	require.NoError(t, err)
	startWatcher(t, w)

	sub := filepath.Join(src, "incoming")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.paths[sub]
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.png"), []byte("x"), 0o644))
	require.Eventually(t, func() bool {
		for _, f := range rec.seen() {
			if f == filepath.Join(sub, "b.png") {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_OrganizesArrivals(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	org := organizer.New(classifier.New(rules.Default()), organizer.DefaultOptions())
	w, err := New(org, Options{Source: src, Target: dst, Settle: 50 * time.Millisecond})
	require.NoError(t, err)
	startWatcher(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(src, "report.pdf"), []byte("%PDF-1.4"), 0o644))

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dst, rules.CategoryDocuments, "report.pdf"))
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)

	_, err = os.Stat(filepath.Join(src, "report.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestSkipName(t *testing.T) {
	w := &Watcher{}
	assert.True(t, w.skipName(".env", true))
	assert.True(t, w.skipName("node_modules", true))
	assert.True(t, w.skipName("desktop.ini", false))
	assert.True(t, w.skipName("x.CRDOWNLOAD", false))
	assert.True(t, w.skipName(".secret", false))
	assert.False(t, w.skipName("report.pdf", false))

	w.opts.IncludeHidden = true
	assert.False(t, w.skipName(".secret", false))

	w.opts.IncludeSystem = true
	assert.False(t, w.skipName("node_modules", true))
	assert.False(t, w.skipName("desktop.ini", false))
	assert.False(t, w.skipName(".env", true), "hidden and system entries allowed")
	assert.True(t, w.skipName("x.crdownload", false), "partial downloads stay skipped")

	excludes, err := scanner.CompileExcludes([]string{"*.tmp", "build"})
	require.NoError(t, err)
	w.excludes = excludes
	assert.True(t, w.skipName("notes.tmp", false))
	assert.True(t, w.skipName("build", true))
	assert.False(t, w.skipName("notes.txt", false))
}
