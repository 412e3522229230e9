package scanner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTree creates files (relative paths) under a fresh temp dir.
func createTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	return root
}

// relNames returns sorted slash-separated paths relative to root.
func relNames(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, ".", opts.Root)
	assert.True(t, opts.Recursive)
	assert.Equal(t, Unbounded, opts.MaxDepth)
	assert.False(t, opts.IncludeHidden)
	assert.False(t, opts.IncludeSystem)
}

func TestOptionsValidate(t *testing.T) {
	opts := Options{MaxDepth: -7}
	require.NoError(t, opts.Validate())
	assert.Equal(t, ".", opts.Root)
	assert.Equal(t, Unbounded, opts.MaxDepth)
}

func TestScan_Recursive(t *testing.T) {
	root := createTree(t, "a.txt", "sub/b.txt", "sub/deeper/c.txt")

	files := ScanDirectory(context.Background(), root, true, Unbounded)
	assert.Equal(t, []string{"a.txt", "sub/b.txt", "sub/deeper/c.txt"}, relNames(t, root, files))
}

func TestScan_MaxDepth(t *testing.T) {
	root := createTree(t, "a.txt", "sub/b.txt", "sub/deeper/c.txt")

	tests := []struct {
		name     string
		maxDepth int
		want     []string
	}{
		{name: "depth 0", maxDepth: 0, want: []string{"a.txt"}},
		{name: "depth 1", maxDepth: 1, want: []string{"a.txt", "sub/b.txt"}},
		{name: "depth 2", maxDepth: 2, want: []string{"a.txt", "sub/b.txt", "sub/deeper/c.txt"}},
		{name: "unbounded", maxDepth: Unbounded, want: []string{"a.txt", "sub/b.txt", "sub/deeper/c.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := ScanDirectory(context.Background(), root, true, tt.maxDepth)
			assert.Equal(t, tt.want, relNames(t, root, files))
		})
	}
}

func TestScan_NonRecursive(t *testing.T) {
	root := createTree(t, "a.txt", "b.pdf", "sub/c.txt")

	files := ScanDirectory(context.Background(), root, false, Unbounded)
	assert.Equal(t, []string{"a.txt", "b.pdf"}, relNames(t, root, files))
}

func TestScan_HiddenAndSystemExcluded(t *testing.T) {
	root := createTree(t,
		"keep.txt",
		".hidden.txt",
		".DS_Store",
		"Thumbs.db",
		"desktop.ini",
		".git/config",
		"node_modules/pkg/index.js",
		"venv/lib/site.py",
		".cache/data.bin",
		"sub/keep2.txt",
		"sub/.gitignore",
	)

	files := ScanDirectory(context.Background(), root, true, Unbounded)
	assert.Equal(t, []string{"keep.txt", "sub/keep2.txt"}, relNames(t, root, files))
}

func TestScan_FlatModeAppliesSameFilters(t *testing.T) {
	root := createTree(t, "keep.txt", ".hidden", "Thumbs.db", "desktop.ini")

	files := ScanDirectory(context.Background(), root, false, Unbounded)
	assert.Equal(t, []string{"keep.txt"}, relNames(t, root, files))
}

func TestScan_IncludeHidden(t *testing.T) {
	root := createTree(t, "keep.txt", ".hidden.txt", ".cache/data.bin", ".git/config", ".DS_Store")

	res, err := New(Options{
		Root:          root,
		Recursive:     true,
		MaxDepth:      Unbounded,
		IncludeHidden: true,
	}).Scan(context.Background())
	require.NoError(t, err)

	// System entries stay excluded even when hidden ones are included.
	assert.Equal(t, []string{".cache/data.bin", ".hidden.txt", "keep.txt"}, relNames(t, root, res.Files))
}

func TestScan_IncludeSystem(t *testing.T) {
	root := createTree(t, "keep.txt", "node_modules/x.js", "Thumbs.db", ".git/config")

	res, err := New(Options{
		Root:          root,
		Recursive:     true,
		MaxDepth:      Unbounded,
		IncludeSystem: true,
	}).Scan(context.Background())
	require.NoError(t, err)

	// .git is still hidden.
	assert.Equal(t, []string{"Thumbs.db", "keep.txt", "node_modules/x.js"}, relNames(t, root, res.Files))
}

func TestScan_HiddenRootIsScanned(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, ".stash")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))

	files := ScanDirectory(context.Background(), root, true, Unbounded)
	assert.Equal(t, []string{"a.txt"}, relNames(t, root, files))
}

func TestScan_MissingRoot(t *testing.T) {
	res, err := New(Options{Root: filepath.Join(t.TempDir(), "missing"), Recursive: true}).Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Files)

	assert.Empty(t, ScanDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"), true, Unbounded))
}

func TestScan_RootIsFile(t *testing.T) {
	root := createTree(t, "a.txt")
	files := ScanDirectory(context.Background(), filepath.Join(root, "a.txt"), true, Unbounded)
	assert.Empty(t, files)
}

func TestScan_SkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	root := createTree(t, "real.txt", "dir/inner.txt")
	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")))
	require.NoError(t, os.Symlink(filepath.Join(root, "dir"), filepath.Join(root, "linkdir")))

	files := ScanDirectory(context.Background(), root, true, Unbounded)
	assert.Equal(t, []string{"dir/inner.txt", "real.txt"}, relNames(t, root, files))
}

func TestScan_PermissionErrorRecorded(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := createTree(t, "a.txt", "locked/b.txt")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	res, err := New(Options{Root: root, Recursive: true, MaxDepth: Unbounded}).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, relNames(t, root, res.Files))
	assert.NotEmpty(t, res.Errors)
}

func TestScan_Cancelled(t *testing.T) {
	root := createTree(t, "a.txt", "b.txt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{Root: root, Recursive: true, MaxDepth: Unbounded}).Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_Reusable(t *testing.T) {
	root := createTree(t, "a.txt")
	s := New(Options{Root: root, Recursive: true, MaxDepth: Unbounded})

	first, err := s.Scan(context.Background())
	require.NoError(t, err)
	second, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.Len(t, first.Files, 1)
	assert.Len(t, second.Files, 1)
	assert.GreaterOrEqual(t, second.DirsScanned, int64(1))
}

func TestDepth(t *testing.T) {
	root := filepath.FromSlash("/r")
	assert.Equal(t, 0, depth(root, root))
	assert.Equal(t, 1, depth(root, filepath.Join(root, "a")))
	assert.Equal(t, 2, depth(root, filepath.Join(root, "a", "b")))
}

func TestScan_Exclude(t *testing.T) {
	root := createTree(t, "a.txt", "b.tmp", "build/out.bin", "sub/c.txt", "sub/cache/d.txt")

	tests := []struct {
		name    string
		exclude []string
		want    []string
	}{
		{"none", nil, []string{"a.txt", "b.tmp", "build/out.bin", "sub/c.txt", "sub/cache/d.txt"}},
		{"by name", []string{"*.tmp"}, []string{"a.txt", "build/out.bin", "sub/c.txt", "sub/cache/d.txt"}},
		{"directory", []string{"build"}, []string{"a.txt", "b.tmp", "sub/c.txt", "sub/cache/d.txt"}},
		{"relative path", []string{"sub/cache"}, []string{"a.txt", "b.tmp", "build/out.bin", "sub/c.txt"}},
		{"blank ignored", []string{"  "}, []string{"a.txt", "b.tmp", "build/out.bin", "sub/c.txt", "sub/cache/d.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(Options{
				Root:      root,
				Recursive: true,
				MaxDepth:  Unbounded,
				Exclude:   tt.exclude,
			}).Scan(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, relNames(t, root, res.Files))
		})
	}
}

func TestCompileExcludes_Invalid(t *testing.T) {
	_, err := CompileExcludes([]string{"[unclosed"})
	assert.ErrorIs(t, err, ErrInvalidPattern)

	opts := Options{Exclude: []string{"[unclosed"}}
	assert.ErrorIs(t, opts.Validate(), ErrInvalidPattern)
}

func TestNew_InvalidExcludeIgnored(t *testing.T) {
	root := createTree(t, "a.txt")

	res, err := New(Options{Root: root, Recursive: true, MaxDepth: Unbounded, Exclude: []string{"[bad"}}).
		Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Files, 1)
}
