package dirtree

import (
	"io/fs"
	"os"
	"sort"
	"time"
)

// FileInfo is the subset of lstat(2) data the tree keeps per entry.
type FileInfo struct {
	Mode   fs.FileMode
	Size   int64
	MTime  time.Time
	Links  uint64
	Device uint64
}

// FileSystem is the read-only view of the filesystem used by read jobs.
// Lstat must not follow symbolic links. ReadDir returns the names read so
// far together with an error when the listing fails part way.
type FileSystem interface {
	Lstat(path string) (FileInfo, error)
	ReadDir(path string) ([]string, error)
}

// LocalFileSystem reads the host filesystem.
type LocalFileSystem struct{}

// ReadDir lists a directory with a single open/readdir pass and returns the
// names sorted so that overflow grouping is deterministic.
func (LocalFileSystem) ReadDir(path string) ([]string, error) {
	handle, openErr := os.Open(path)
	if openErr != nil {
		return nil, openErr
	}
	defer handle.Close()
	names, readErr := handle.Readdirnames(-1)
	sort.Strings(names)
	return names, readErr
}

var _ FileSystem = LocalFileSystem{}
