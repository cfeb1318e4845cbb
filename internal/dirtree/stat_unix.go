//go:build linux || darwin || freebsd || netbsd || openbsd

package dirtree

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// Lstat returns size, modification time, device and link count in one syscall.
func (LocalFileSystem) Lstat(path string) (FileInfo, error) {
	var stat unix.Stat_t
	if err := unix.Lstat(path, &stat); err != nil {
		return FileInfo{}, &fs.PathError{Op: "lstat", Path: path, Err: err}
	}
	seconds, _ := stat.Mtim.Unix()
	return FileInfo{
		Mode:   fileModeOf(uint32(stat.Mode)),
		Size:   int64(stat.Size),
		MTime:  time.Unix(seconds, 0),
		Links:  uint64(stat.Nlink),
		Device: uint64(stat.Dev),
	}, nil
}

func fileModeOf(raw uint32) fs.FileMode {
	mode := fs.FileMode(raw & 0o777)
	switch raw & unix.S_IFMT {
	case unix.S_IFDIR:
		mode |= fs.ModeDir
	case unix.S_IFLNK:
		mode |= fs.ModeSymlink
	case unix.S_IFIFO:
		mode |= fs.ModeNamedPipe
	case unix.S_IFSOCK:
		mode |= fs.ModeSocket
	case unix.S_IFCHR:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case unix.S_IFBLK:
		mode |= fs.ModeDevice
	}
	return mode
}
