package dirtree_test

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/temirov/dirstat/internal/dirtree"
)

const fakeRoot = "/dirstat-fake-root/scan"

var baseTime = time.Unix(1_700_000_000, 0)

type fakeFileSystem struct {
	infos      map[string]dirtree.FileInfo
	statErrors map[string]error
	listErrors map[string]error
	listCalls  map[string]int
}

func newFakeFileSystem() *fakeFileSystem {
	fileSystem := &fakeFileSystem{
		infos:      make(map[string]dirtree.FileInfo),
		statErrors: make(map[string]error),
		listErrors: make(map[string]error),
		listCalls:  make(map[string]int),
	}
	fileSystem.addDirectory(fakeRoot, 0)
	return fileSystem
}

func (fileSystem *fakeFileSystem) addDirectory(directoryPath string, minutes int) {
	fileSystem.infos[directoryPath] = dirtree.FileInfo{
		Mode:  fs.ModeDir | 0o755,
		Size:  4096,
		MTime: baseTime.Add(time.Duration(minutes) * time.Minute),
		Links: 2,
	}
}

func (fileSystem *fakeFileSystem) addFile(filePath string, size int64, minutes int) {
	fileSystem.infos[filePath] = dirtree.FileInfo{
		Mode:  0o644,
		Size:  size,
		MTime: baseTime.Add(time.Duration(minutes) * time.Minute),
		Links: 1,
	}
}

func (fileSystem *fakeFileSystem) addSymlink(linkPath string) {
	fileSystem.infos[linkPath] = dirtree.FileInfo{
		Mode:  fs.ModeSymlink | 0o777,
		Size:  12,
		MTime: baseTime,
		Links: 1,
	}
}

func (fileSystem *fakeFileSystem) remove(target string) {
	for candidate := range fileSystem.infos {
		if candidate == target || strings.HasPrefix(candidate, target+"/") {
			delete(fileSystem.infos, candidate)
		}
	}
}

func (fileSystem *fakeFileSystem) Lstat(target string) (dirtree.FileInfo, error) {
	if statErr, failing := fileSystem.statErrors[target]; failing {
		return dirtree.FileInfo{}, statErr
	}
	info, exists := fileSystem.infos[target]
	if !exists {
		return dirtree.FileInfo{}, &fs.PathError{Op: "lstat", Path: target, Err: fs.ErrNotExist}
	}
	return info, nil
}

func (fileSystem *fakeFileSystem) ReadDir(directoryPath string) ([]string, error) {
	fileSystem.listCalls[directoryPath]++
	var names []string
	for candidate := range fileSystem.infos {
		if candidate != directoryPath && path.Dir(candidate) == directoryPath {
			names = append(names, path.Base(candidate))
		}
	}
	for candidate := range fileSystem.statErrors {
		if path.Dir(candidate) == directoryPath {
			if _, listed := fileSystem.infos[candidate]; !listed {
				names = append(names, path.Base(candidate))
			}
		}
	}
	sort.Strings(names)
	if listErr, failing := fileSystem.listErrors[directoryPath]; failing {
		if len(names) > 1 {
			names = names[:1]
		}
		return names, listErr
	}
	return names, nil
}

type notificationRecorder struct {
	notifications []dirtree.Notification
}

func (recorder *notificationRecorder) Notify(notification dirtree.Notification) {
	recorder.notifications = append(recorder.notifications, notification)
}

func (recorder *notificationRecorder) kinds() []dirtree.NotificationKind {
	kinds := make([]dirtree.NotificationKind, 0, len(recorder.notifications))
	for _, notification := range recorder.notifications {
		kinds = append(kinds, notification.Kind)
	}
	return kinds
}

func (recorder *notificationRecorder) count(kind dirtree.NotificationKind) int {
	total := 0
	for _, notification := range recorder.notifications {
		if notification.Kind == kind {
			total++
		}
	}
	return total
}

func (recorder *notificationRecorder) reset() {
	recorder.notifications = nil
}

func newTestTree(fileSystem dirtree.FileSystem) (*dirtree.Tree, *notificationRecorder) {
	tree := dirtree.New(dirtree.Options{FileSystem: fileSystem})
	recorder := &notificationRecorder{}
	tree.Subscribe(recorder)
	return tree, recorder
}
