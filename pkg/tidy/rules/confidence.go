package rules

import (
	"errors"
	"fmt"

	"github.com/jamesainslie/tidy/pkg/tidy/types"
)

// ErrInvalidConfidence is returned when a confidence table is out of range
// or breaks the strategy ranking.
var ErrInvalidConfidence = errors.New("invalid confidence table")

// Confidence holds the per-strategy confidence constants and the
// suppression threshold used during arbitration.
type Confidence struct {
	// Extension is assigned when the extension matches a category.
	Extension float64 `mapstructure:"extension" json:"extension" yaml:"extension"`
	// ExtensionMiss is assigned when no category lists the extension.
	ExtensionMiss float64 `mapstructure:"extension_miss" json:"extension_miss" yaml:"extension_miss"`
	// Content is assigned when the MIME type matches a prefix.
	Content float64 `mapstructure:"content" json:"content" yaml:"content"`
	// ContentMiss is assigned when a MIME type exists but matches no prefix.
	ContentMiss float64 `mapstructure:"content_miss" json:"content_miss" yaml:"content_miss"`
	// ContentUnknown is assigned when no MIME type could be derived.
	ContentUnknown float64 `mapstructure:"content_unknown" json:"content_unknown" yaml:"content_unknown"`
	// Pattern is assigned when a filename substring matches.
	Pattern float64 `mapstructure:"pattern" json:"pattern" yaml:"pattern"`
	// PatternMiss is assigned when no substring matches.
	PatternMiss float64 `mapstructure:"pattern_miss" json:"pattern_miss" yaml:"pattern_miss"`
	// Fallback is the combined confidence when every result is suppressed.
	Fallback float64 `mapstructure:"fallback" json:"fallback" yaml:"fallback"`
	// SuppressThreshold drops uncategorized results at or below this value.
	SuppressThreshold float64 `mapstructure:"suppress_threshold" json:"suppress_threshold" yaml:"suppress_threshold"`
}

// Default confidence values.
const (
	DefaultExtension         = 0.8
	DefaultExtensionMiss     = 0.3
	DefaultContent           = 0.9
	DefaultContentMiss       = 0.2
	DefaultContentUnknown    = 0.1
	DefaultPattern           = 0.7
	DefaultPatternMiss       = 0.1
	DefaultFallback          = 0.1
	DefaultSuppressThreshold = 0.5
)

// DefaultConfidence returns the built-in confidence table.
func DefaultConfidence() Confidence {
	return Confidence{
		Extension:         DefaultExtension,
		ExtensionMiss:     DefaultExtensionMiss,
		Content:           DefaultContent,
		ContentMiss:       DefaultContentMiss,
		ContentUnknown:    DefaultContentUnknown,
		Pattern:           DefaultPattern,
		PatternMiss:       DefaultPatternMiss,
		Fallback:          DefaultFallback,
		SuppressThreshold: DefaultSuppressThreshold,
	}
}

// Ranking is the required strength order of matching strategies, strongest
// first. When several strategies match with a category, the strongest one
// decides the outcome. Confidence.Validate enforces that the match
// constants follow this order strictly.
var Ranking = []types.Method{
	types.MethodContent,
	types.MethodExtension,
	types.MethodPattern,
}

// Match returns the match confidence configured for a strategy.
func (c Confidence) Match(m types.Method) float64 {
	switch m {
	case types.MethodExtension:
		return c.Extension
	case types.MethodContent:
		return c.Content
	case types.MethodPattern:
		return c.Pattern
	default:
		return 0
	}
}

// Validate checks that all values lie in [0,1] and that match confidences
// are strictly ordered according to Ranking.
func (c Confidence) Validate() error {
	names := []string{
		"extension", "extension_miss", "content", "content_miss", "content_unknown",
		"pattern", "pattern_miss", "fallback", "suppress_threshold",
	}
	for i, v := range c.values() {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s=%v outside [0,1]", ErrInvalidConfidence, names[i], v)
		}
	}

	for i := 1; i < len(Ranking); i++ {
		stronger, weaker := Ranking[i-1], Ranking[i]
		if c.Match(stronger) <= c.Match(weaker) {
			return fmt.Errorf("%w: %s (%v) must outrank %s (%v)",
				ErrInvalidConfidence, stronger, c.Match(stronger), weaker, c.Match(weaker))
		}
	}

	return nil
}

// values returns the table in a fixed order.
func (c Confidence) values() []float64 {
	return []float64{
		c.Extension, c.ExtensionMiss, c.Content, c.ContentMiss, c.ContentUnknown,
		c.Pattern, c.PatternMiss, c.Fallback, c.SuppressThreshold,
	}
}
