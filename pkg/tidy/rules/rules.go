// Package rules defines the classification ruleset consumed by the
// classifier: ordered extension and filename-pattern rules per category,
// the MIME prefix table, and the confidence table.
//
// Category order is significant. When more than one category lists the
// same extension or matching substring, the first category wins.
package rules

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// CategoryRule maps one category to a list of values (extensions or
// filename substrings).
type CategoryRule struct {
	Category string   `mapstructure:"category" json:"category" yaml:"category"`
	Values   []string `mapstructure:"values" json:"values" yaml:"values"`
}

// Rules is the classification ruleset. A nil or empty list means no rules
// of that kind.
type Rules struct {
	Extensions []CategoryRule `mapstructure:"extensions" json:"extensions" yaml:"extensions"`
	Patterns   []CategoryRule `mapstructure:"patterns" json:"patterns" yaml:"patterns"`
}

// Fold returns the form used for all name comparisons: NFC-normalized and
// lowercased.
func Fold(s string) string {
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}

// NormalizeExtension folds an extension and strips any leading dots.
func NormalizeExtension(ext string) string {
	return strings.TrimLeft(Fold(strings.TrimSpace(ext)), ".")
}

// Normalize returns a copy of r with extensions and patterns folded,
// empty values and unnamed categories dropped, and repeated categories
// merged into their first occurrence.
func (r Rules) Normalize() Rules {
	return Rules{
		Extensions: normalizeList(r.Extensions, NormalizeExtension),
		Patterns: normalizeList(r.Patterns, func(s string) string {
			return Fold(s)
		}),
	}
}

func normalizeList(in []CategoryRule, fold func(string) string) []CategoryRule {
	if len(in) == 0 {
		return nil
	}

	out := make([]CategoryRule, 0, len(in))
	index := make(map[string]int, len(in))

	for _, rule := range in {
		name := strings.TrimSpace(rule.Category)
		if name == "" {
			continue
		}

		values := make([]string, 0, len(rule.Values))
		for _, v := range rule.Values {
			if f := fold(v); f != "" {
				values = append(values, f)
			}
		}

		if i, ok := index[name]; ok {
			out[i].Values = append(out[i].Values, values...)
			continue
		}
		index[name] = len(out)
		out = append(out, CategoryRule{Category: name, Values: values})
	}

	return out
}

// ExtensionCategory returns the first category whose extension list
// contains ext. ext must already be normalized.
func (r Rules) ExtensionCategory(ext string) (string, bool) {
	if ext == "" {
		return "", false
	}
	for _, rule := range r.Extensions {
		for _, v := range rule.Values {
			if v == ext {
				return rule.Category, true
			}
		}
	}
	return "", false
}

// PatternCategory returns the first category with a substring contained
// in name. name must already be folded.
func (r Rules) PatternCategory(name string) (string, bool) {
	for _, rule := range r.Patterns {
		for _, p := range rule.Values {
			if p != "" && strings.Contains(name, p) {
				return rule.Category, true
			}
		}
	}
	return "", false
}

// Categories returns every category named by the rules, extensions first,
// in configuration order and without duplicates.
func (r Rules) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]CategoryRule{r.Extensions, r.Patterns} {
		for _, rule := range list {
			if !seen[rule.Category] {
				seen[rule.Category] = true
				out = append(out, rule.Category)
			}
		}
	}
	return out
}

// IsEmpty reports whether the ruleset has no rules at all.
func (r Rules) IsEmpty() bool {
	return len(r.Extensions) == 0 && len(r.Patterns) == 0
}

// Fingerprint returns a stable hash of the rules and confidence table.
// Any change to either produces a different value.
func Fingerprint(r Rules, c Confidence) uint64 {
	d := xxhash.New()

	writeList := func(tag string, list []CategoryRule) {
		_, _ = d.WriteString(tag)
		for _, rule := range list {
			_, _ = d.WriteString(rule.Category)
			_, _ = d.Write([]byte{0})
			for _, v := range rule.Values {
				_, _ = d.WriteString(v)
				_, _ = d.Write([]byte{1})
			}
			_, _ = d.Write([]byte{2})
		}
	}
	writeList("ext", r.Extensions)
	writeList("pat", r.Patterns)

	var buf [8]byte
	for _, f := range c.values() {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = d.Write(buf[:])
	}

	return d.Sum64()
}
