package organizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolveConflict returns dir/name, or dir/stem_N.ext with the smallest
// N >= 1 that neither exists on disk nor was claimed earlier in the run.
//
// The existence check and the later move are not atomic. A concurrent
// writer can take the chosen name in between; runs are single-process.
func resolveConflict(dir, name string, claimed map[string]bool) string {
	candidate := filepath.Join(dir, name)
	if isFree(candidate, claimed) {
		return candidate
	}

	stem, ext := splitExt(name)
	for i := 1; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if isFree(candidate, claimed) {
			return candidate
		}
	}
}

func isFree(path string, claimed map[string]bool) bool {
	if claimed[path] {
		return false
	}
	_, err := os.Lstat(path)
	return os.IsNotExist(err)
}

// splitExt splits name into stem and ".ext". Dotfiles have no extension.
func splitExt(name string) (stem, ext string) {
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return name, ""
	}
	return name[:i], name[i:]
}
