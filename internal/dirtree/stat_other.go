//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package dirtree

import (
	"os"
	"time"
)

// Lstat falls back to os.Lstat where device ids and link counts are not exposed.
func (LocalFileSystem) Lstat(path string) (FileInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Mode:  info.Mode(),
		Size:  info.Size(),
		MTime: time.Unix(info.ModTime().Unix(), 0),
		Links: 1,
	}, nil
}
