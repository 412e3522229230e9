package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
)

// ErrEntryNotFound is returned by Get for an unknown ID.
var ErrEntryNotFound = errors.New("manifest entry not found")

// Manifest manages entries in one directory.
type Manifest struct {
	dir string
	mu  sync.Mutex
}

// DefaultDir returns $XDG_DATA_HOME/tidy/manifests.
func DefaultDir() string {
	return filepath.Join(xdg.DataHome, "tidy", "manifests")
}

// New creates a Manifest for dir. The directory is created on first write.
func New(dir string) (*Manifest, error) {
	if dir == "" {
		return nil, errors.New("manifest directory cannot be empty")
	}
	return &Manifest{dir: dir}, nil
}

// Dir returns the manifest directory.
func (m *Manifest) Dir() string {
	return m.dir
}

// Run describes one organize run to be journaled.
type Run struct {
	Operation   OperationType
	Source      string
	Target      string
	Files       []FileRecord
	Errors      int
	Interrupted bool
}

// Log persists an entry for run and returns it.
func (m *Manifest) Log(run Run) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	op := run.Operation
	if op == "" {
		op = OpOrganize
	}

	files := run.Files
	if files == nil {
		files = []FileRecord{}
	}

	var totalBytes int64
	for _, f := range files {
		totalBytes += f.Size
	}

	entry := &Entry{
		ID:        generateID(op),
		Timestamp: time.Now().UTC(),
		Operation: op,
		Source:    run.Source,
		Target:    run.Target,
		Files:     files,
		Summary: Summary{
			TotalFiles:  int64(len(files)),
			TotalBytes:  totalBytes,
			Errors:      run.Errors,
			Interrupted: run.Interrupted,
		},
	}

	if err := m.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("writing manifest entry: %w", err)
	}

	return entry, nil
}

// writeEntry writes entry atomically through a temp file and rename.
func (m *Manifest) writeEntry(entry *Entry) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}

	filePath := filepath.Join(m.dir, entry.ID+".json")

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// List returns entries newest first. A limit of 0 or less returns all.
// Unreadable entries are skipped.
func (m *Manifest) List(limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("reading manifest directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		entry, err := m.readEntryFile(f.Name())
		if err != nil {
			continue
		}
		entries = append(entries, *entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// Get returns the entry with the given ID.
func (m *Manifest) Get(id string) (*Entry, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id != filepath.Base(id) {
		return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.readEntryFile(id + ".json")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		return nil, err
	}
	return entry, nil
}

func (m *Manifest) readEntryFile(filename string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("reading entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshaling entry: %w", err)
	}

	return &entry, nil
}

// Cleanup removes entries whose files are older than retentionDays and
// returns how many were removed. A retention of 0 or less removes nothing.
func (m *Manifest) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading manifest directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		info, err := f.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, f.Name())); err == nil {
			removed++
		}
	}

	return removed, nil
}

// generateID creates an ID like "organize-2026-06-15T10-30-00-1b4e28ba".
func generateID(op OperationType) string {
	ts := time.Now().UTC().Format("2006-01-02T15-04-05")
	return fmt.Sprintf("%s-%s-%s", op, ts, strings.SplitN(uuid.NewString(), "-", 2)[0])
}
