// Package cache persists classifications in a badger database so that
// unchanged files are not re-classified on repeat runs. Keys embed the
// rules fingerprint, so any change to the ruleset or confidence table
// misses the old entries; Prune removes them. Entries expire after the
// store TTL, and Forget drops the entries of a file that was moved away.
package cache

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/dgraph-io/badger/v4"
	"github.com/jamesainslie/tidy/pkg/tidy/types"
)

// ErrNotFound is returned when a cache entry doesn't exist.
var ErrNotFound = errors.New("cache entry not found")

// DefaultTTL is how long an entry lives without being rewritten.
const DefaultTTL = 30 * 24 * time.Hour

// Store wraps Badger for cache operations.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// DefaultPath returns $XDG_CACHE_HOME/tidy/classifications.
func DefaultPath() string {
	return filepath.Join(xdg.CacheHome, "tidy", "classifications")
}

// Open opens or creates a cache store at path with DefaultTTL.
func Open(path string) (*Store, error) {
	return OpenWithTTL(path, DefaultTTL)
}

// OpenWithTTL opens or creates a cache store whose entries expire after
// ttl. A ttl of zero keeps entries until they are pruned.
func OpenWithTTL(path string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	return &Store{db: db, ttl: ttl}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the classification stored under key.
func (s *Store) Get(key []byte) (types.Classification, error) {
	var entry CachedEntry

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(entry.Decode)
	})
	if err != nil {
		return types.Classification{}, err
	}
	if entry.Version != CacheVersion {
		return types.Classification{}, ErrNotFound
	}

	return entry.Classification(), nil
}

// Put stores a classification under key.
func (s *Store) Put(key []byte, c types.Classification) error {
	value, err := NewEntry(c).Encode()
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	e := badger.NewEntry(key, value)
	if s.ttl > 0 {
		e = e.WithTTL(s.ttl)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(e)
	})
}

// Prune deletes every entry not written under fingerprint and returns the
// number of deleted entries.
func (s *Store) Prune(fingerprint uint64) (int, error) {
	keep := MakeKeyPrefix(fingerprint)
	return s.deleteMatching(func(key []byte) bool {
		return !bytes.HasPrefix(key, keep)
	})
}

// Forget deletes the entries stored for path under fingerprint, whatever
// size and mtime they were recorded with.
func (s *Store) Forget(fingerprint uint64, path string) (int, error) {
	prefix := MakePathPrefix(fingerprint, path)
	return s.deleteMatching(func(key []byte) bool {
		return bytes.HasPrefix(key, prefix)
	})
}

func (s *Store) deleteMatching(match func(key []byte) bool) (int, error) {
	var doomed [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if match(it.Item().Key()) {
				doomed = append(doomed, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range doomed {
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}

	return len(doomed), nil
}

// Count returns the number of stored entries.
func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// ClearAll removes every entry.
func (s *Store) ClearAll() error {
	return s.db.DropAll()
}
