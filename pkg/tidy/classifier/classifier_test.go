package classifier

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/tidy/pkg/tidy/cache"
	"github.com/jamesainslie/tidy/pkg/tidy/rules"
	"github.com/jamesainslie/tidy/pkg/tidy/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name, stem, ext string
	}{
		{name: "report.pdf", stem: "report", ext: "pdf"},
		{name: "archive.tar.gz", stem: "archive.tar", ext: "gz"},
		{name: ".bashrc", stem: ".bashrc", ext: ""},
		{name: "README", stem: "README", ext: ""},
		{name: "trailing.", stem: "trailing.", ext: ""},
		{name: "..foo", stem: ".", ext: "foo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stem, ext := splitName(tt.name)
			assert.Equal(t, tt.stem, stem)
			assert.Equal(t, tt.ext, ext)
		})
	}
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Photo.JPG", []byte("abc"))

	info := New(rules.Default()).Inspect(path)
	assert.Equal(t, path, info.Path)
	assert.Equal(t, "Photo.JPG", info.Name)
	assert.Equal(t, "Photo", info.Stem)
	assert.Equal(t, "jpg", info.Extension)
	require.True(t, info.HasSize())
	assert.Equal(t, int64(3), *info.Size)
	assert.Equal(t, "image/jpeg", info.MIMEType)
	assert.False(t, info.Hidden)

	missing := New(rules.Default()).Inspect(filepath.Join(dir, ".ghost.png"))
	assert.False(t, missing.HasSize())
	assert.True(t, missing.Hidden)
	assert.Equal(t, "image/png", missing.MIMEType)
}

func TestClassify_ExtensionOnly(t *testing.T) {
	r := rules.Rules{Extensions: []rules.CategoryRule{{Category: "notes", Values: []string{"qqq"}}}}
	c := New(r).Classify(filepath.Join(t.TempDir(), "thing.QQQ"))

	assert.Equal(t, "notes", c.Category)
	assert.InDelta(t, rules.DefaultExtension, c.Confidence, 1e-9)
	assert.Equal(t, types.MethodCombined, c.Method)
	assert.Equal(t, types.MethodExtension, c.PrimaryMethod)
	require.Len(t, c.Details, 3)
	assert.Equal(t, types.MethodExtension, c.Details[0].Method)
	assert.Equal(t, types.MethodContent, c.Details[1].Method)
	assert.Equal(t, types.MethodPattern, c.Details[2].Method)
}

func TestClassify_DefaultRules(t *testing.T) {
	dir := t.TempDir()
	cl := New(rules.Default())

	tests := []struct {
		name     string
		category string
		primary  types.Method
	}{
		{name: "report.pdf", category: rules.CategoryDocuments, primary: types.MethodContent},
		{name: "photo.JPG", category: rules.CategoryImages, primary: types.MethodContent},
		{name: "screenshot_1.png", category: rules.CategoryImages, primary: types.MethodContent},
		{name: "archive.zip", category: rules.CategoryArchives, primary: types.MethodContent},
		{name: "song.mp3", category: rules.CategoryAudio, primary: types.MethodContent},
		{name: "my_backup_notes", category: rules.CategoryBackups, primary: types.MethodPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cl.Classify(writeFile(t, dir, tt.name, []byte("x")))
			assert.Equal(t, tt.category, c.Category)
			assert.Equal(t, tt.primary, c.PrimaryMethod)
		})
	}
}

func TestClassify_Unknown(t *testing.T) {
	c := New(rules.Default()).Classify(filepath.Join(t.TempDir(), "mystery.zzqx"))

	assert.Equal(t, types.Uncategorized, c.Category)
	assert.InDelta(t, rules.DefaultFallback, c.Confidence, 1e-9)
	assert.Empty(t, c.PrimaryMethod)
	assert.Len(t, c.Details, 3)
}

func TestClassify_EmptyRules(t *testing.T) {
	// Content still works without any configured lists.
	c := New(rules.Rules{}).Classify(filepath.Join(t.TempDir(), "a.png"))
	assert.Equal(t, rules.CategoryImages, c.Category)
	assert.Equal(t, types.MethodContent, c.PrimaryMethod)

	c = New(rules.Rules{}).Classify(filepath.Join(t.TempDir(), "screenshot.zzqx"))
	assert.Equal(t, types.Uncategorized, c.Category)
}

func TestClassify_PatternUnicodeFolding(t *testing.T) {
	r := rules.Rules{Patterns: []rules.CategoryRule{{Category: "cafe", Values: []string{"café"}}}}
	c := New(r).Classify(filepath.Join(t.TempDir(), "CAFÉ_menu"))

	assert.Equal(t, "cafe", c.Category)
	assert.Equal(t, types.MethodPattern, c.PrimaryMethod)
}

func TestClassify_ConfidencesInRange(t *testing.T) {
	dir := t.TempDir()
	cl := New(rules.Default())

	for _, name := range []string{"a.pdf", "b.xyz", "screenshot.qq", "c", ".hidden", "d.json"} {
		c := cl.Classify(filepath.Join(dir, name))
		maxSurviving := -1.0
		for _, d := range c.Details {
			assert.GreaterOrEqual(t, d.Confidence, 0.0)
			assert.LessOrEqual(t, d.Confidence, 1.0)
			if d.IsUncategorized() && d.Confidence <= rules.DefaultSuppressThreshold {
				continue
			}
			if d.Confidence > maxSurviving {
				maxSurviving = d.Confidence
			}
		}
		if maxSurviving < 0 {
			assert.InDelta(t, rules.DefaultFallback, c.Confidence, 1e-9, name)
		} else {
			assert.InDelta(t, maxSurviving, c.Confidence, 1e-9, name)
		}
	}
}

func TestClassify_ContentSniff(t *testing.T) {
	dir := t.TempDir()
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
	path := writeFile(t, dir, "no_extension", png)

	off := New(rules.Default()).Classify(path)
	assert.Equal(t, types.Uncategorized, off.Category)

	on := New(rules.Default(), WithContentSniff(true)).Classify(path)
	assert.Equal(t, rules.CategoryImages, on.Category)
	assert.Equal(t, types.MethodContent, on.PrimaryMethod)
}

func TestClassify_CustomConfidence(t *testing.T) {
	conf := rules.DefaultConfidence()
	conf.Pattern = 0.75
	r := rules.Rules{
		Extensions: []rules.CategoryRule{{Category: "notes", Values: []string{"qqq"}}},
		Patterns:   []rules.CategoryRule{{Category: "drafts", Values: []string{"draft"}}},
	}

	c := New(r, WithConfidence(conf)).Classify(filepath.Join(t.TempDir(), "draft.qqq"))
	assert.Equal(t, "notes", c.Category)
	assert.InDelta(t, 0.8, c.Confidence, 1e-9)
	assert.InDelta(t, 0.75, c.Details[2].Confidence, 1e-9)
}

func TestCombine(t *testing.T) {
	conf := rules.DefaultConfidence()
	ext := func(cat string, conf float64) types.StrategyResult {
		return types.StrategyResult{Category: cat, Confidence: conf, Method: types.MethodExtension}
	}
	content := func(cat string, conf float64) types.StrategyResult {
		return types.StrategyResult{Category: cat, Confidence: conf, Method: types.MethodContent}
	}
	pattern := func(cat string, conf float64) types.StrategyResult {
		return types.StrategyResult{Category: cat, Confidence: conf, Method: types.MethodPattern}
	}

	tests := []struct {
		name        string
		in          []types.StrategyResult
		wantCat     string
		wantConf    float64
		wantPrimary types.Method
	}{
		{
			name:     "all suppressed",
			in:       []types.StrategyResult{ext(types.Uncategorized, 0.3), content(types.Uncategorized, 0.1), pattern(types.Uncategorized, 0.1)},
			wantCat:  types.Uncategorized,
			wantConf: 0.1,
		},
		{
			name:        "content beats extension",
			in:          []types.StrategyResult{ext("images", 0.8), content("images", 0.9), pattern("screenshots", 0.7)},
			wantCat:     "images",
			wantConf:    0.9,
			wantPrimary: types.MethodContent,
		},
		{
			name:        "extension beats pattern",
			in:          []types.StrategyResult{ext("images", 0.8), content(types.Uncategorized, 0.1), pattern("screenshots", 0.7)},
			wantCat:     "images",
			wantConf:    0.8,
			wantPrimary: types.MethodExtension,
		},
		{
			name:        "tie keeps first",
			in:          []types.StrategyResult{ext("a", 0.7), content(types.Uncategorized, 0.2), pattern("b", 0.7)},
			wantCat:     "a",
			wantConf:    0.7,
			wantPrimary: types.MethodExtension,
		},
		{
			name:        "strong uncategorized survives",
			in:          []types.StrategyResult{ext(types.Uncategorized, 0.6), content(types.Uncategorized, 0.1), pattern("b", 0.55)},
			wantCat:     types.Uncategorized,
			wantConf:    0.6,
			wantPrimary: types.MethodExtension,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Combine(conf, tt.in...)
			assert.Equal(t, tt.wantCat, got.Category)
			assert.InDelta(t, tt.wantConf, got.Confidence, 1e-9)
			assert.Equal(t, tt.wantPrimary, got.PrimaryMethod)
			assert.Equal(t, types.MethodCombined, got.Method)
			assert.Equal(t, tt.in, got.Details)
		})
	}
}

type memCache struct {
	entries map[string]types.Classification
	gets    int
	puts    int
}

func (m *memCache) Get(key []byte) (types.Classification, error) {
	m.gets++
	c, ok := m.entries[string(key)]
	if !ok {
		return types.Classification{}, errors.New("miss")
	}
	return c, nil
}

func (m *memCache) Put(key []byte, c types.Classification) error {
	m.puts++
	m.entries[string(key)] = c
	return nil
}

func TestClassify_Cache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "report.pdf", []byte("x"))
	mc := &memCache{entries: make(map[string]types.Classification)}
	cl := New(rules.Default(), WithCache(mc))

	first := cl.Classify(path)
	assert.Equal(t, 1, mc.puts)

	// Poison the stored value to prove the second call is served from cache.
	for k, v := range mc.entries {
		v.Category = "cached"
		mc.entries[k] = v
	}
	second := cl.Classify(path)
	assert.Equal(t, "cached", second.Category)
	assert.Equal(t, rules.CategoryDocuments, first.Category)
	assert.Equal(t, 1, mc.puts)

	// Files without stat info bypass the cache.
	_ = cl.Classify(filepath.Join(dir, "missing.pdf"))
	assert.Equal(t, 2, mc.gets)
}

func TestFingerprint_ChangesWithConfidence(t *testing.T) {
	a := New(rules.Default())
	conf := rules.DefaultConfidence()
	conf.Pattern = 0.6
	b := New(rules.Default(), WithConfidence(conf))
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprint_ChangesWithContentSniff(t *testing.T) {
	off := New(rules.Default())
	on := New(rules.Default(), WithContentSniff(true))
	assert.NotEqual(t, off.Fingerprint(), on.Fingerprint())
	assert.Equal(t, on.Fingerprint(), New(rules.Default(), WithContentSniff(true)).Fingerprint())
}

func TestClassify_CacheSeparatesSniffModes(t *testing.T) {
	dir := t.TempDir()
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
	path := writeFile(t, dir, "noext", png)
	mc := &memCache{entries: make(map[string]types.Classification)}

	off := New(rules.Default(), WithCache(mc)).Classify(path)
	assert.Equal(t, types.Uncategorized, off.Category)

	on := New(rules.Default(), WithCache(mc), WithContentSniff(true)).Classify(path)
	assert.Equal(t, rules.CategoryImages, on.Category)
	assert.Equal(t, 2, mc.puts)
	assert.Len(t, mc.entries, 2)
}

// forgettingCache also supports dropping a path's entries.
type forgettingCache struct {
	memCache
	forgot []string
}

func (f *forgettingCache) Forget(fingerprint uint64, path string) (int, error) {
	f.forgot = append(f.forgot, path)
	prefix := string(cache.MakePathPrefix(fingerprint, path))
	n := 0
	for k := range f.entries {
		if strings.HasPrefix(k, prefix) {
			delete(f.entries, k)
			n++
		}
	}
	return n, nil
}

func TestClassifier_Forget(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "report.pdf", []byte("x"))

	fc := &forgettingCache{memCache: memCache{entries: make(map[string]types.Classification)}}
	cl := New(rules.Default(), WithCache(fc))
	cl.Classify(path)
	require.Len(t, fc.entries, 1)

	cl.Forget(path)
	assert.Equal(t, []string{path}, fc.forgot)
	assert.Empty(t, fc.entries)

	// Caches without Forget and classifiers without a cache are no-ops.
	New(rules.Default(), WithCache(&memCache{entries: map[string]types.Classification{}})).Forget(path)
	New(rules.Default()).Forget(path)
}
