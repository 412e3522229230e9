package organizer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/tidy/pkg/tidy/logging"
)

// rename is replaced in tests.
var rename = os.Rename

// moveFile renames src to dst, creating dst's parent directories. A
// cross-device rename falls back to copyThenDelete.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	err := rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return err
	}

	logging.Get("organizer").Debug("cross-device move, copying", "from", src, "to", dst)
	return copyThenDelete(src, dst)
}

// copyThenDelete copies src to a newly created dst, preserving mode and
// modification time, then removes src. dst is removed again if the copy
// fails or src cannot be removed, so exactly one of the two survives.
func copyThenDelete(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("copy %s: not a regular file", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}

	// From here on dst is ours and must not outlive a failure.
	defer func() {
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copying: %w", err)
	}
	if err = out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("syncing destination: %w", err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("closing destination: %w", err)
	}

	if err = os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting mode: %w", err)
	}
	if err = os.Chtimes(dst, time.Now(), info.ModTime()); err != nil {
		return fmt.Errorf("setting times: %w", err)
	}

	_ = in.Close()
	if err = os.Remove(src); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing source after copy: %w", err)
	}

	return nil
}
