// Package organizer moves files into category subdirectories. One run
// scans the source once, classifies each file, picks a collision-free
// destination under target/category/, and moves or simulates the move.
// Files are processed one at a time; a failing file is recorded and the
// run continues.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/tidy/pkg/tidy/logging"
	"github.com/jamesainslie/tidy/pkg/tidy/manifest"
	"github.com/jamesainslie/tidy/pkg/tidy/scanner"
	"github.com/jamesainslie/tidy/pkg/tidy/types"
)

var (
	// ErrInvalidSource is returned when the source is missing or not a directory.
	ErrInvalidSource = errors.New("invalid source directory")

	// ErrLocked is returned when another run holds the target lock.
	ErrLocked = errors.New("target is locked by another run")
)

// Classifier classifies one file.
type Classifier interface {
	Classify(path string) types.Classification
}

// forgetter is implemented by classifiers that cache by path.
type forgetter interface {
	Forget(path string)
}

// Options configures an Organizer.
type Options struct {
	// Scan controls file discovery. Root is ignored; the source is used.
	Scan scanner.Options

	// LockDir enables the advisory per-target run lock when non-empty.
	LockDir string

	// Manifest journals non-dry runs that moved files. Nil disables it.
	Manifest *manifest.Manifest

	// OnFile is called after each successfully processed file.
	OnFile func(types.FileResult)
}

// DefaultOptions returns options with a recursive unbounded scan and no
// lock or journal.
func DefaultOptions() Options {
	return Options{Scan: scanner.DefaultOptions()}
}

// Organizer runs organize passes. Each call owns its own counters, so an
// Organizer may be reused, but calls must not overlap.
type Organizer struct {
	classifier Classifier
	opts       Options
}

// New creates an Organizer.
func New(c Classifier, opts Options) *Organizer {
	return &Organizer{classifier: c, opts: opts}
}

// Organize moves every file found under source into target/<category>/.
// An empty target organizes in place. A dry run touches nothing but
// reports the same destinations.
//
// ErrInvalidSource and ErrLocked are returned before any file is touched.
// When ctx is cancelled the partial report is returned together with
// ctx.Err().
func (o *Organizer) Organize(ctx context.Context, source, target string, dryRun bool) (*types.Report, error) {
	logger := logging.Get("organizer")

	src, err := validateSource(source)
	if err != nil {
		return nil, err
	}

	dst := src
	if target != "" {
		if dst, err = filepath.Abs(target); err != nil {
			return nil, fmt.Errorf("resolving target %s: %w", target, err)
		}
	}

	unlock, err := o.lock(dst, dryRun)
	if err != nil {
		return nil, err
	}
	defer unlock()

	report := newReport(src, dst, dryRun)
	logger.Info("organize started", "source", src, "target", dst, "dry_run", dryRun)

	scanOpts := o.opts.Scan
	scanOpts.Root = src
	scan, err := scanner.New(scanOpts).Scan(ctx)
	if err != nil {
		report.Interrupted = true
		report.Stats.EndTime = time.Now()
		return report, err
	}

	err = o.run(ctx, report, scan.Files, manifest.OpOrganize)
	return report, err
}

// OrganizeFiles runs the per-file pipeline over an explicit list of files,
// moving each into target/<category>/. target must be non-empty.
func (o *Organizer) OrganizeFiles(ctx context.Context, files []string, target string, dryRun bool) (*types.Report, error) {
	if target == "" {
		return nil, errors.New("organize files: empty target")
	}
	dst, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("resolving target %s: %w", target, err)
	}

	unlock, err := o.lock(dst, dryRun)
	if err != nil {
		return nil, err
	}
	defer unlock()

	report := newReport("", dst, dryRun)
	err = o.run(ctx, report, files, manifest.OpWatch)
	return report, err
}

func newReport(source, target string, dryRun bool) *types.Report {
	return &types.Report{
		Source: source,
		Target: target,
		DryRun: dryRun,
		Files:  []types.FileResult{},
		Stats:  types.Statistics{StartTime: time.Now()},
	}
}

// validateSource resolves source and checks that it is a directory.
func validateSource(source string) (string, error) {
	if source == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidSource)
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidSource, source, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidSource, abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s: not a directory", ErrInvalidSource, abs)
	}
	return abs, nil
}

func (o *Organizer) lock(target string, dryRun bool) (func(), error) {
	if o.opts.LockDir == "" || dryRun {
		return func() {}, nil
	}
	return acquireLock(o.opts.LockDir, target)
}

// run processes files in order and fills report. It stops between files
// when ctx is cancelled.
func (o *Organizer) run(ctx context.Context, report *types.Report, files []string, op manifest.OperationType) error {
	logger := logging.Get("organizer")
	report.Stats.FilesDiscovered = len(files)

	claimed := make(map[string]bool)
	var runErr error

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			report.Interrupted = true
			runErr = err
			logger.Warn("organize interrupted", "processed", report.Stats.FilesProcessed, "errors", report.Stats.Errors)
			break
		}

		result, err := o.processFile(path, report.Target, report.DryRun, claimed)
		if err != nil {
			report.Stats.Errors++
			report.Errors = append(report.Errors, types.FileError{Path: path, Error: err.Error()})
			logger.Error("failed to organize file", "path", path, "error", err)
			continue
		}

		report.Stats.FilesProcessed++
		if result.Moved {
			report.Stats.FilesMoved++
		}
		report.Files = append(report.Files, result)

		if o.opts.OnFile != nil {
			o.opts.OnFile(result)
		}
	}

	report.Stats.EndTime = time.Now()
	o.journal(report, op)

	logger.Info("organize finished",
		"processed", report.Stats.FilesProcessed,
		"moved", report.Stats.FilesMoved,
		"errors", report.Stats.Errors,
		"duration", report.Stats.Duration(),
	)

	return runErr
}

// processFile classifies one file, resolves its destination, and moves it
// unless this is a dry run.
func (o *Organizer) processFile(path, target string, dryRun bool, claimed map[string]bool) (types.FileResult, error) {
	cls := o.classifier.Classify(path)

	if err := checkCategory(cls.Category); err != nil {
		return types.FileResult{}, err
	}

	result := types.FileResult{
		Source:        path,
		Category:      cls.Category,
		Confidence:    cls.Confidence,
		PrimaryMethod: cls.PrimaryMethod,
		DryRun:        dryRun,
	}
	if info, err := os.Stat(path); err == nil {
		result.Size = info.Size()
	} else if !dryRun {
		return types.FileResult{}, fmt.Errorf("stat %s: %w", path, err)
	}

	dir := filepath.Join(target, cls.Category)
	name := filepath.Base(path)

	if filepath.Join(dir, name) == filepath.Clean(path) {
		result.Target = path
		result.Skipped = true
		return result, nil
	}

	dest := resolveConflict(dir, name, claimed)
	result.Target = dest

	if dryRun {
		claimed[dest] = true
		logging.Get("organizer").Debug("would move", "from", path, "to", dest)
		return result, nil
	}

	if err := moveFile(path, dest); err != nil {
		return types.FileResult{}, fmt.Errorf("moving %s to %s: %w", path, dest, err)
	}
	claimed[dest] = true
	result.Moved = true
	if f, ok := o.classifier.(forgetter); ok {
		f.Forget(path)
	}

	logging.Get("organizer").Debug("moved", "from", path, "to", dest, "category", cls.Category)
	return result, nil
}

// checkCategory rejects category names that would leave the target directory.
func checkCategory(category string) error {
	if category == "" || category == "." || category == ".." ||
		strings.ContainsAny(category, `/\`) || filepath.IsAbs(category) {
		return fmt.Errorf("invalid category name %q", category)
	}
	return nil
}

// journal writes a manifest entry for a real run that moved files.
func (o *Organizer) journal(report *types.Report, op manifest.OperationType) {
	if o.opts.Manifest == nil || report.DryRun || report.Stats.FilesMoved == 0 {
		return
	}

	records := make([]manifest.FileRecord, 0, report.Stats.FilesMoved)
	for _, f := range report.Files {
		if !f.Moved {
			continue
		}
		records = append(records, manifest.FileRecord{
			Source:     f.Source,
			Target:     f.Target,
			Category:   f.Category,
			Confidence: f.Confidence,
			Size:       f.Size,
		})
	}

	entry, err := o.opts.Manifest.Log(manifest.Run{
		Operation:   op,
		Source:      report.Source,
		Target:      report.Target,
		Files:       records,
		Errors:      report.Stats.Errors,
		Interrupted: report.Interrupted,
	})
	if err != nil {
		logging.Get("organizer").Warn("failed to write manifest", "error", err)
		return
	}
	report.ManifestID = entry.ID
}
