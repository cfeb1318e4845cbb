package dirtree

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/dirstat/internal/cachefile"
)

// cacheReadBatchSize bounds the records decoded by one run of a cache job so
// that Step stays short and Abort can interrupt a large cache.
const cacheReadBatchSize = 1000

const (
	errorRelativeDirectoryFormat = "directory record %q is not absolute"
	errorOrphanRecordFormat      = "record %q has no enclosing directory"
	errorNestedNameFormat        = "record name %q contains a path separator"

	logMessageCacheRecordSkipped = "skipping cache record"
	logMessageCacheReadFailed    = "cannot read cache file"
	logFieldLine                 = "line"
)

// ReadCache replaces the tree with the contents of a cache file. Records are
// decoded by a queued job, so the tree fills in through Step or Run exactly as
// for a disk scan. Directories read from a cache end in ReadCached.
func (tree *Tree) ReadCache(path string, config ScanConfig) error {
	reader, openErr := cachefile.Open(path)
	if openErr != nil {
		return openErr
	}
	tree.config = config.normalized()
	if tree.entries[tree.root].dir.children.Len() > 0 {
		tree.Clear()
	}
	tree.beginReading()
	tree.logger.Debug("reading cache", zap.String(logFieldPath, path))
	tree.enqueue(&cacheReadJob{
		path:        path,
		reader:      reader,
		root:        tree.root,
		directories: make(map[string]EntryID),
	})
	return nil
}

// cacheReadJob decodes a cache file. Leaf and grouping records attach to
// context, the most recent directory or dot entry; contextDirectory is the
// most recent directory record.
type cacheReadJob struct {
	path             string
	reader           *cachefile.Reader
	root             EntryID
	directories      map[string]EntryID
	created          []EntryID
	context          EntryID
	contextDirectory EntryID
	topLevelSeen     bool
}

func (job *cacheReadJob) dirID() EntryID { return job.root }

func (job *cacheReadJob) discard(tree *Tree) {
	job.close(tree)
}

func (job *cacheReadJob) close(tree *Tree) {
	if job.reader == nil {
		return
	}
	if closeErr := job.reader.Close(); closeErr != nil {
		tree.logger.Debug(logMessageCacheReadFailed, zap.Error(closeErr))
	}
	job.reader = nil
}

func (job *cacheReadJob) read(tree *Tree) {
	if job.reader == nil {
		return
	}
	for processed := 0; processed < cacheReadBatchSize; processed++ {
		record, nextErr := job.reader.Next()
		if errors.Is(nextErr, io.EOF) {
			job.finish(tree)
			return
		}
		var parseErr *cachefile.ParseError
		if errors.As(nextErr, &parseErr) {
			tree.logger.Warn(logMessageCacheRecordSkipped, zap.Int(logFieldLine, parseErr.Line), zap.Error(parseErr.Err))
			tree.metrics.RecordCacheRecord(parseErr)
			if parseErr.StartsDirectory() {
				job.dropContext()
			}
			continue
		}
		if nextErr != nil {
			tree.logger.Warn(logMessageCacheReadFailed, zap.String(logFieldPath, job.path), zap.Error(nextErr))
			tree.notify(NotifyProgressInfo, NoEntry, nextErr.Error())
			job.finish(tree)
			return
		}
		if addErr := job.add(tree, record); addErr != nil {
			tree.logger.Warn(logMessageCacheRecordSkipped, zap.Int(logFieldLine, job.reader.Line()), zap.Error(addErr))
			tree.metrics.RecordCacheRecord(addErr)
			if record.Type == cachefile.TypeDirectory {
				job.dropContext()
			}
			continue
		}
		tree.metrics.RecordCacheRecord(nil)
	}
	tree.enqueue(job)
}

// dropContext detaches relative records from the last good directory until
// the next directory record is decoded.
func (job *cacheReadJob) dropContext() {
	job.context = NoEntry
	job.contextDirectory = NoEntry
}

func (job *cacheReadJob) add(tree *Tree, record cachefile.Record) error {
	switch {
	case record.Type == cachefile.TypeDirectory:
		return job.addDirectory(tree, record)
	case record.Type == cachefile.TypeGroup:
		if _, ok := tree.entries[job.contextDirectory]; !ok {
			return fmt.Errorf(errorOrphanRecordFormat, record.Path)
		}
		job.context = tree.ensureDotEntry(job.contextDirectory)
		return nil
	default:
		return job.addLeaf(tree, record)
	}
}

func (job *cacheReadJob) addDirectory(tree *Tree, record cachefile.Record) error {
	if !filepath.IsAbs(record.Path) {
		return fmt.Errorf(errorRelativeDirectoryFormat, record.Path)
	}
	directoryPath := filepath.Clean(record.Path)
	parentID := tree.root
	if job.topLevelSeen {
		var known bool
		parentID, known = job.directories[filepath.Dir(directoryPath)]
		if !known {
			return fmt.Errorf(errorOrphanRecordFormat, record.Path)
		}
	}
	directory := newEntry(KindDirectory, filepath.Base(directoryPath))
	applyRecord(directory, record)
	directory.dir.readState = ReadReading
	if parentID == tree.root {
		directory.url = directoryPath
	}
	directoryID, insertErr := tree.insertChild(parentID, directory)
	if insertErr != nil {
		return insertErr
	}
	job.topLevelSeen = true
	job.directories[directoryPath] = directoryID
	job.created = append(job.created, directoryID)
	job.context = directoryID
	job.contextDirectory = directoryID
	return nil
}

func (job *cacheReadJob) addLeaf(tree *Tree, record cachefile.Record) error {
	if !job.topLevelSeen && filepath.IsAbs(record.Path) {
		leaf := leafForRecord(filepath.Base(record.Path), record)
		leaf.url = filepath.Clean(record.Path)
		if _, insertErr := tree.insertChild(tree.root, leaf); insertErr != nil {
			return insertErr
		}
		job.topLevelSeen = true
		return nil
	}
	if _, ok := tree.entries[job.context]; !ok {
		return fmt.Errorf(errorOrphanRecordFormat, record.Path)
	}
	if strings.ContainsRune(record.Path, '/') {
		return fmt.Errorf(errorNestedNameFormat, record.Path)
	}
	_, insertErr := tree.insertChild(job.context, leafForRecord(record.Path, record))
	return insertErr
}

func leafForRecord(name string, record cachefile.Record) *Entry {
	kind := KindFile
	if record.Type == cachefile.TypeExcluded {
		kind = KindExcluded
	}
	leaf := newEntry(kind, name)
	applyRecord(leaf, record)
	switch record.Type {
	case cachefile.TypeSymlink:
		leaf.mode = fs.ModeSymlink
	case cachefile.TypeSpecial:
		leaf.mode = fs.ModeDevice
	}
	return leaf
}

func applyRecord(entry *Entry, record cachefile.Record) {
	entry.size = record.Size
	entry.mtime = record.MTime
	entry.links = record.Links
	if entry.dir != nil {
		entry.mode = fs.ModeDir
	}
}

// finish marks every directory decoded by the job as cached.
func (job *cacheReadJob) finish(tree *Tree) {
	job.close(tree)
	for _, directoryID := range job.created {
		directory, ok := tree.entries[directoryID]
		if !ok {
			continue
		}
		directory.dir.readState = ReadCached
		if dotEntry, ok := tree.entries[directory.dir.dotEntry]; ok {
			dotEntry.dir.readState = ReadCached
		}
		tree.notify(NotifyFinalizeLocal, directoryID, "")
		tree.notify(NotifyReadJobFinished, directoryID, "")
	}
	tree.logger.Debug("cache read finished", zap.String(logFieldPath, job.path), zap.Int("directories", len(job.created)))
}

// WriteCache writes the subtree rooted at subtree, or the whole tree for
// NoEntry, to path. A dot entry is written as part of its directory.
// Failures are returned as *cachefile.IoError; the partial file is kept.
func (tree *Tree) WriteCache(path string, subtree EntryID) error {
	if subtree == NoEntry || subtree == tree.root {
		subtree = tree.FirstToplevel()
	}
	entry, ok := tree.entries[subtree]
	if !ok {
		if subtree == NoEntry {
			return ErrEmptyTree
		}
		return ErrUnknownEntry
	}
	if entry.kind == KindDotEntry {
		entry = tree.entries[entry.parent]
	}
	writer, createErr := cachefile.Create(path)
	if createErr != nil {
		return createErr
	}
	var writeErr error
	if entry.dir != nil {
		writeErr = tree.writeDirectory(writer, entry)
	} else {
		record := leafRecord(entry)
		record.Path = tree.Path(entry.id)
		writeErr = writer.Write(record)
	}
	closeErr := writer.Close()
	if writeErr != nil {
		return writeErr
	}
	return closeErr
}

// writeDirectory emits a directory record, its direct leaves, its grouping
// and the grouped leaves, then recurses into subdirectories.
func (tree *Tree) writeDirectory(writer *cachefile.Writer, directory *Entry) error {
	directoryRecord := cachefile.Record{
		Type:  cachefile.TypeDirectory,
		Path:  tree.Path(directory.id),
		Size:  directory.size,
		MTime: directory.mtime,
		Links: directory.links,
	}
	if writeErr := writer.Write(directoryRecord); writeErr != nil {
		return writeErr
	}
	var subdirectories []*Entry
	for _, childID := range tree.Children(directory.id) {
		child := tree.entries[childID]
		if child.dir != nil {
			subdirectories = append(subdirectories, child)
			continue
		}
		if writeErr := writer.Write(leafRecord(child)); writeErr != nil {
			return writeErr
		}
	}
	if dotEntry, ok := tree.entries[directory.dir.dotEntry]; ok {
		if writeErr := writer.Write(cachefile.Record{Type: cachefile.TypeGroup, Path: cachefile.GroupName}); writeErr != nil {
			return writeErr
		}
		for _, childID := range tree.Children(dotEntry.id) {
			if writeErr := writer.Write(leafRecord(tree.entries[childID])); writeErr != nil {
				return writeErr
			}
		}
	}
	for _, subdirectory := range subdirectories {
		if writeErr := tree.writeDirectory(writer, subdirectory); writeErr != nil {
			return writeErr
		}
	}
	return nil
}

func leafRecord(leaf *Entry) cachefile.Record {
	recordType := cachefile.TypeFile
	switch {
	case leaf.kind == KindExcluded:
		recordType = cachefile.TypeExcluded
	case leaf.IsSymlink():
		recordType = cachefile.TypeSymlink
	case leaf.IsSpecialFile():
		recordType = cachefile.TypeSpecial
	}
	return cachefile.Record{
		Type:  recordType,
		Path:  leaf.name,
		Size:  leaf.size,
		MTime: leaf.mtime,
		Links: leaf.links,
	}
}
