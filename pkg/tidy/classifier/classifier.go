// Package classifier assigns a category to a file by running three
// independent strategies (extension, MIME type, filename pattern) and
// arbitrating their results by confidence.
package classifier

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/jamesainslie/tidy/pkg/tidy/cache"
	"github.com/jamesainslie/tidy/pkg/tidy/logging"
	"github.com/jamesainslie/tidy/pkg/tidy/rules"
	"github.com/jamesainslie/tidy/pkg/tidy/types"
)

// Cache stores classifications by key. *cache.Store satisfies it.
type Cache interface {
	Get(key []byte) (types.Classification, error)
	Put(key []byte, c types.Classification) error
}

// Classifier classifies files against a fixed ruleset. It holds no
// per-file state and may be reused across runs.
type Classifier struct {
	rules       rules.Rules
	confidence  rules.Confidence
	sniff       bool
	cache       Cache
	fingerprint uint64
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithConfidence replaces the default confidence table. The table is
// expected to have passed Confidence.Validate.
func WithConfidence(c rules.Confidence) Option {
	return func(cl *Classifier) {
		cl.confidence = c
	}
}

// WithContentSniff enables reading file signatures when the name yields no MIME type.
func WithContentSniff(enabled bool) Option {
	return func(cl *Classifier) {
		cl.sniff = enabled
	}
}

// WithCache enables the classification cache.
func WithCache(c Cache) Option {
	return func(cl *Classifier) {
		cl.cache = c
	}
}

// New creates a Classifier for r. The rules are normalized; empty rules
// classify everything as uncategorized.
func New(r rules.Rules, opts ...Option) *Classifier {
	c := &Classifier{
		rules:      r.Normalize(),
		confidence: rules.DefaultConfidence(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.fingerprint = rules.Fingerprint(c.rules, c.confidence)
	if c.sniff {
		// Sniffing can change the content result, so it keys a separate cache space.
		c.fingerprint = xxhash.Sum64String(strconv.FormatUint(c.fingerprint, 16) + ":sniff")
	}
	return c
}

// Rules returns the normalized ruleset.
func (c *Classifier) Rules() rules.Rules {
	return c.rules
}

// Fingerprint identifies the ruleset, confidence table, and content
// sniffing mode in use.
func (c *Classifier) Fingerprint() uint64 {
	return c.fingerprint
}

// pathForgetter is implemented by caches that can drop a file's entries.
type pathForgetter interface {
	Forget(fingerprint uint64, path string) (int, error)
}

// Forget drops cached classifications for path, typically after the file
// has been moved. It is a no-op without a cache that supports it.
func (c *Classifier) Forget(path string) {
	f, ok := c.cache.(pathForgetter)
	if !ok {
		return
	}
	if _, err := f.Forget(c.fingerprint, path); err != nil {
		logging.Get("classifier").Debug("cache forget failed", "path", path, "error", err)
	}
}

// Classify classifies the file at path. It never fails: a file that cannot
// be stat'ed is still classified from its name.
func (c *Classifier) Classify(path string) types.Classification {
	info := c.Inspect(path)
	return c.ClassifyInfo(&info)
}

// ClassifyInfo classifies a previously inspected file.
func (c *Classifier) ClassifyInfo(info *types.FileInfo) types.Classification {
	logger := logging.Get("classifier")

	var key []byte
	if c.cache != nil && info.HasSize() {
		key = cache.MakeKey(c.fingerprint, info.Path, *info.Size, info.ModTime.UnixNano())
		if hit, err := c.cache.Get(key); err == nil {
			logger.Debug("cache hit", "path", info.Path, "category", hit.Category)
			return hit
		}
	}

	result := Combine(c.confidence,
		c.byExtension(info),
		c.byContent(info),
		c.byPattern(info),
	)

	if key != nil {
		if err := c.cache.Put(key, result); err != nil {
			logger.Debug("cache write failed", "path", info.Path, "error", err)
		}
	}

	logger.Debug("classified",
		"path", info.Path,
		"category", result.Category,
		"confidence", result.Confidence,
		"primary", result.PrimaryMethod,
	)
	return result
}

// Inspect builds a FileInfo for path. Stat failures leave Size nil.
func (c *Classifier) Inspect(path string) types.FileInfo {
	name := filepath.Base(path)
	stem, ext := splitName(name)

	info := types.FileInfo{
		Path:      path,
		Name:      name,
		Stem:      stem,
		Extension: rules.NormalizeExtension(ext),
		Hidden:    strings.HasPrefix(name, "."),
	}

	if st, err := os.Stat(path); err == nil {
		size := st.Size()
		info.Size = &size
		info.ModTime = st.ModTime()
	}

	info.MIMEType = guessMIME(info.Extension)
	if info.MIMEType == "" && c.sniff && info.HasSize() {
		info.MIMEType = sniffMIME(path)
	}

	return info
}

// splitName splits a base name into stem and extension (without dot).
// A leading dot does not start an extension and neither does a trailing one.
func splitName(name string) (stem, ext string) {
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

func (c *Classifier) byExtension(info *types.FileInfo) types.StrategyResult {
	if category, ok := c.rules.ExtensionCategory(info.Extension); ok {
		return types.StrategyResult{Category: category, Confidence: c.confidence.Extension, Method: types.MethodExtension}
	}
	return types.StrategyResult{Category: types.Uncategorized, Confidence: c.confidence.ExtensionMiss, Method: types.MethodExtension}
}

func (c *Classifier) byContent(info *types.FileInfo) types.StrategyResult {
	if info.MIMEType == "" {
		return types.StrategyResult{Category: types.Uncategorized, Confidence: c.confidence.ContentUnknown, Method: types.MethodContent}
	}
	if category, ok := rules.MIMECategory(info.MIMEType); ok {
		return types.StrategyResult{Category: category, Confidence: c.confidence.Content, Method: types.MethodContent}
	}
	return types.StrategyResult{Category: types.Uncategorized, Confidence: c.confidence.ContentMiss, Method: types.MethodContent}
}

func (c *Classifier) byPattern(info *types.FileInfo) types.StrategyResult {
	if category, ok := c.rules.PatternCategory(rules.Fold(info.Name)); ok {
		return types.StrategyResult{Category: category, Confidence: c.confidence.Pattern, Method: types.MethodPattern}
	}
	return types.StrategyResult{Category: types.Uncategorized, Confidence: c.confidence.PatternMiss, Method: types.MethodPattern}
}

// Combine arbitrates strategy results given in extension, content, pattern
// order. Uncategorized results at or below the suppression threshold are
// dropped; the first remaining result with the strictly highest confidence
// wins. If nothing remains the file is uncategorized at the fallback
// confidence with no primary method. Details always carry every input.
func Combine(conf rules.Confidence, results ...types.StrategyResult) types.Classification {
	details := make([]types.StrategyResult, len(results))
	copy(details, results)

	var best *types.StrategyResult
	for i := range details {
		r := &details[i]
		if r.IsUncategorized() && r.Confidence <= conf.SuppressThreshold {
			continue
		}
		if best == nil || r.Confidence > best.Confidence {
			best = r
		}
	}

	if best == nil {
		return types.Classification{
			Category:   types.Uncategorized,
			Confidence: conf.Fallback,
			Method:     types.MethodCombined,
			Details:    details,
		}
	}

	return types.Classification{
		Category:      best.Category,
		Confidence:    best.Confidence,
		Method:        types.MethodCombined,
		PrimaryMethod: best.Method,
		Details:       details,
	}
}
