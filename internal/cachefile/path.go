package cachefile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

const (
	cacheDirectoryName = "dirstat"
	cacheFileFormat    = "%016x.cache" + GzipSuffix
)

// DefaultPath returns the per-root cache location under the user cache
// directory, named by a hash of the absolute root path.
func DefaultPath(root string) (string, error) {
	absoluteRoot, absErr := filepath.Abs(root)
	if absErr != nil {
		return "", absErr
	}
	userCacheDirectory, cacheDirErr := os.UserCacheDir()
	if cacheDirErr != nil {
		return "", cacheDirErr
	}
	fileName := fmt.Sprintf(cacheFileFormat, xxhash.Sum64String(filepath.Clean(absoluteRoot)))
	return filepath.Join(userCacheDirectory, cacheDirectoryName, fileName), nil
}

// EnsureDirectory creates the parent directory of a cache path.
func EnsureDirectory(path string) error {
	directory := filepath.Dir(path)
	if mkdirErr := os.MkdirAll(directory, 0o755); mkdirErr != nil {
		return &IoError{Op: operationOpen, Path: directory, Err: mkdirErr}
	}
	return nil
}
