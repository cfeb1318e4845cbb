package dirtree

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	progressReadingFormat      = "reading %s"
	progressOtherDeviceFormat  = "not crossing into other filesystem at %s"
	logMessageChildStatFailed  = "cannot stat directory entry"
	logMessageListingFailed    = "cannot read directory"
	logMessageChildInsertError = "cannot insert directory entry"
	logMessageOtherDevice      = "skipping directory on another filesystem"
)

// localReadJob lists one directory on the local filesystem.
type localReadJob struct {
	dir EntryID
}

func (job *localReadJob) dirID() EntryID { return job.dir }

func (job *localReadJob) discard(tree *Tree) {
	if directory, ok := tree.entries[job.dir]; ok {
		directory.dir.readState = ReadAborted
	}
}

func (job *localReadJob) read(tree *Tree) {
	directory, ok := tree.entries[job.dir]
	if !ok {
		return
	}
	startedAt := time.Now()
	directory.dir.readState = ReadReading
	directoryPath := tree.Path(job.dir)
	tree.notify(NotifyProgressInfo, job.dir, fmt.Sprintf(progressReadingFormat, directoryPath))

	names, listErr := tree.fs.ReadDir(directoryPath)
	var readErr error
	if listErr != nil {
		readErr = &PermissionError{Path: directoryPath, Err: listErr}
		tree.logger.Warn(logMessageListingFailed, zap.String(logFieldPath, directoryPath), zap.Error(listErr))
		tree.notify(NotifyProgressInfo, job.dir, readErr.Error())
	}

	for _, name := range names {
		if _, alive := tree.entries[job.dir]; !alive {
			return
		}
		tree.readChild(directory, directoryPath, name)
	}
	if _, alive := tree.entries[job.dir]; !alive {
		return
	}

	finalState := ReadFinished
	if readErr != nil {
		finalState = ReadError
	}
	tree.finalizeLocal(job.dir, finalState)
	tree.metrics.RecordDirectoryRead(time.Since(startedAt), readErr)
	tree.notify(NotifyReadJobFinished, job.dir, "")
}

func (tree *Tree) readChild(directory *Entry, directoryPath string, name string) {
	childPath := filepath.Join(directoryPath, name)
	info, statErr := tree.fs.Lstat(childPath)
	if statErr != nil {
		tree.logger.Debug(logMessageChildStatFailed, zap.String(logFieldPath, childPath), zap.Error(statErr))
		tree.metrics.RecordChildError()
		tree.insertLogged(directory.id, newEntry(KindExcluded, name))
		return
	}
	if info.Mode.IsDir() && !tree.config.CrossFileSystems && info.Device != directory.device {
		tree.logger.Debug(logMessageOtherDevice, zap.String(logFieldPath, childPath))
		tree.notify(NotifyProgressInfo, directory.id, fmt.Sprintf(progressOtherDeviceFormat, childPath))
		return
	}
	if tree.isExcludedPath(childPath, info.Mode.IsDir()) {
		tree.insertLogged(directory.id, newEntryFromInfo(KindExcluded, name, info))
		return
	}
	child := entryForInfo(name, info)
	childID, inserted := tree.insertLogged(directory.id, child)
	if inserted && child.dir != nil {
		tree.enqueue(&localReadJob{dir: childID})
	}
}

func (tree *Tree) insertLogged(parentID EntryID, child *Entry) (EntryID, bool) {
	childID, insertErr := tree.insertChild(parentID, child)
	if insertErr != nil {
		tree.logger.Warn(logMessageChildInsertError, zap.String(logFieldName, child.name), zap.Error(insertErr))
		return NoEntry, false
	}
	return childID, true
}

// finalizeLocal closes the listing of a directory: its state and its dot
// entry's state become final, and an emptied dot entry is dropped.
func (tree *Tree) finalizeLocal(dirID EntryID, state ReadState) {
	directory := tree.entries[dirID]
	directory.dir.readState = state
	if dotEntry, ok := tree.entries[directory.dir.dotEntry]; ok {
		dotEntry.dir.readState = ReadFinished
		if dotEntry.dir.children.Len() == 0 {
			tree.removeSubtree(dotEntry.id)
		}
	}
	tree.notify(NotifyFinalizeLocal, dirID, "")
}
