package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/jamesainslie/tidy/pkg/tidy/types"
)

// CacheVersion is incremented when the entry format changes.
const CacheVersion = 1

// KeySeparator separates the fields of a cache key.
const KeySeparator = '\x00'

// CachedEntry is a stored classification.
type CachedEntry struct {
	Version       int
	Category      string
	Confidence    float64
	PrimaryMethod string
	Details       []CachedDetail
}

// CachedDetail is one stored strategy result.
type CachedDetail struct {
	Category   string
	Confidence float64
	Method     string
}

// NewEntry converts a classification for storage.
func NewEntry(c types.Classification) *CachedEntry {
	e := &CachedEntry{
		Version:       CacheVersion,
		Category:      c.Category,
		Confidence:    c.Confidence,
		PrimaryMethod: string(c.PrimaryMethod),
		Details:       make([]CachedDetail, 0, len(c.Details)),
	}
	for _, d := range c.Details {
		e.Details = append(e.Details, CachedDetail{
			Category:   d.Category,
			Confidence: d.Confidence,
			Method:     string(d.Method),
		})
	}
	return e
}

// Classification converts the entry back.
func (e *CachedEntry) Classification() types.Classification {
	c := types.Classification{
		Category:      e.Category,
		Confidence:    e.Confidence,
		Method:        types.MethodCombined,
		PrimaryMethod: types.Method(e.PrimaryMethod),
		Details:       make([]types.StrategyResult, 0, len(e.Details)),
	}
	for _, d := range e.Details {
		c.Details = append(c.Details, types.StrategyResult{
			Category:   d.Category,
			Confidence: d.Confidence,
			Method:     types.Method(d.Method),
		})
	}
	return c
}

// Encode serializes the entry using gob.
func (e *CachedEntry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes the entry using gob.
func (e *CachedEntry) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

// MakeKey builds a key from the rules fingerprint and the file identity.
// Format: <fingerprint hex>\x00<path>\x00<size>\x00<mtime ns>
func MakeKey(fingerprint uint64, path string, size, mtime int64) []byte {
	return fmt.Appendf(MakeKeyPrefix(fingerprint), "%s%c%d%c%d", path, KeySeparator, size, KeySeparator, mtime)
}

// MakePathPrefix returns the prefix shared by all keys of one file path
// under fingerprint.
func MakePathPrefix(fingerprint uint64, path string) []byte {
	return fmt.Appendf(MakeKeyPrefix(fingerprint), "%s%c", path, KeySeparator)
}

// MakeKeyPrefix returns the prefix shared by all keys of one fingerprint.
func MakeKeyPrefix(fingerprint uint64) []byte {
	return fmt.Appendf(nil, "%016x%c", fingerprint, KeySeparator)
}
