//go:build unix

package organizer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// simulateCrossDevice makes every rename fail with EXDEV.
func simulateCrossDevice(t *testing.T) {
	t.Helper()
	orig := rename
	rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: unix.EXDEV}
	}
	t.Cleanup(func() { rename = orig })
}

func TestMoveFile_CrossDeviceFallback(t *testing.T) {
	simulateCrossDevice(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o640))
	mtime := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	dst := filepath.Join(dir, "out", "a.txt")
	require.NoError(t, moveFile(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	assert.True(t, info.ModTime().Equal(mtime))
}

func TestCopyThenDelete_ExistingDestinationUntouched(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	require.Error(t, copyThenDelete(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestCopyThenDelete_SourceRemovalFailure(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	srcDir := filepath.Join(t.TempDir(), "ro")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	src := filepath.Join(srcDir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))
	require.NoError(t, os.Chmod(srcDir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(srcDir, 0o755) })

	dst := filepath.Join(t.TempDir(), "a.txt")
	require.Error(t, copyThenDelete(src, dst))

	// Exactly one copy survives: the source.
	_, err := os.Stat(dst)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestIsCrossDevice(t *testing.T) {
	assert.True(t, isCrossDevice(&os.LinkError{Op: "rename", Err: unix.EXDEV}))
	assert.False(t, isCrossDevice(&os.LinkError{Op: "rename", Err: unix.EACCES}))
	assert.False(t, isCrossDevice(nil))
}
