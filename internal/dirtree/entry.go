// Package dirtree builds and maintains an in-memory tree of a scanned
// directory hierarchy with incrementally maintained size and count aggregates.
package dirtree

import (
	"io/fs"
	"time"

	"github.com/tidwall/btree"
)

// EntryID is a stable handle of an Entry inside the arena of one Tree.
type EntryID uint64

// NoEntry is the zero handle. It never refers to an entry.
const NoEntry EntryID = 0

// DotEntryName is the display name of an overflow grouping.
const DotEntryName = "<Files>"

// Kind identifies the variant of an Entry.
type Kind uint8

const (
	KindFile Kind = iota
	KindDirectory
	KindDotEntry
	KindRoot
	KindExcluded
)

func (kind Kind) String() string {
	switch kind {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindDotEntry:
		return "dot-entry"
	case KindRoot:
		return "root"
	case KindExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// IsDirLike reports whether entries of this kind own children and carry aggregates.
func (kind Kind) IsDirLike() bool {
	return kind == KindDirectory || kind == KindDotEntry || kind == KindRoot
}

// ReadState tracks how far the listing of one directory has progressed.
type ReadState uint8

const (
	ReadQueued ReadState = iota
	ReadReading
	ReadFinished
	ReadAborted
	ReadError
	ReadCached
)

func (state ReadState) String() string {
	switch state {
	case ReadQueued:
		return "queued"
	case ReadReading:
		return "reading"
	case ReadFinished:
		return "finished"
	case ReadAborted:
		return "aborted"
	case ReadError:
		return "error"
	case ReadCached:
		return "cached"
	default:
		return "unknown"
	}
}

// done reports whether the directory's own listing is complete, successfully or not.
func (state ReadState) done() bool {
	return state == ReadFinished || state == ReadError || state == ReadCached
}

// Entry is one node of the tree. Entries are owned by their Tree and must only
// be read from the goroutine that owns the Tree.
type Entry struct {
	id       EntryID
	parent   EntryID
	kind     Kind
	name     string
	url      string
	size     int64
	mtime    time.Time
	links    uint64
	mode     fs.FileMode
	device   uint64
	excluded bool
	dir      *dirInfo
}

// dirInfo is the aggregate block carried only by directory-like entries.
type dirInfo struct {
	children     *btree.Map[string, EntryID]
	dotEntry     EntryID
	readState    ReadState
	pending      int
	directLeaves int
	totalSize    int64
	totalItems   int
	totalSubDirs int
	latestMTime  time.Time
}

func newEntry(kind Kind, name string) *Entry {
	entry := &Entry{kind: kind, name: name, links: 1}
	if kind.IsDirLike() {
		entry.dir = &dirInfo{children: btree.NewMap[string, EntryID](0)}
	}
	if kind == KindExcluded {
		entry.excluded = true
	}
	return entry
}

func (entry *Entry) ID() EntryID         { return entry.id }
func (entry *Entry) Parent() EntryID     { return entry.parent }
func (entry *Entry) Kind() Kind          { return entry.kind }
func (entry *Entry) Name() string        { return entry.name }
func (entry *Entry) Size() int64         { return entry.size }
func (entry *Entry) MTime() time.Time    { return entry.mtime }
func (entry *Entry) Links() uint64       { return entry.links }
func (entry *Entry) Mode() fs.FileMode   { return entry.mode }
func (entry *Entry) IsExcluded() bool    { return entry.excluded }
func (entry *Entry) IsDirLike() bool     { return entry.dir != nil }
func (entry *Entry) IsSymlink() bool     { return entry.mode&fs.ModeSymlink != 0 }
func (entry *Entry) IsDotEntry() bool    { return entry.kind == KindDotEntry }
func (entry *Entry) IsSpecialFile() bool { return entry.mode&(fs.ModeDevice|fs.ModeNamedPipe|fs.ModeSocket) != 0 }

// URL returns the absolute path of a top-level entry and "" for every other entry.
func (entry *Entry) URL() string { return entry.url }

// ReadState returns the listing state of a directory-like entry. Leaves report ReadFinished.
func (entry *Entry) ReadState() ReadState {
	if entry.dir == nil {
		return ReadFinished
	}
	return entry.dir.readState
}

// IsFinished reports whether the entry and its whole subtree have been enumerated.
func (entry *Entry) IsFinished() bool {
	if entry.dir == nil {
		return true
	}
	return entry.dir.readState.done() && entry.dir.pending == 0
}

// TotalSize is the summed size of all non-excluded descendants.
func (entry *Entry) TotalSize() int64 {
	if entry.dir == nil {
		if entry.excluded {
			return 0
		}
		return entry.size
	}
	return entry.dir.totalSize
}

// TotalItems counts all non-excluded descendant files and directories.
func (entry *Entry) TotalItems() int {
	if entry.dir == nil {
		return 0
	}
	return entry.dir.totalItems
}

// TotalSubDirs counts all descendant directories.
func (entry *Entry) TotalSubDirs() int {
	if entry.dir == nil {
		return 0
	}
	return entry.dir.totalSubDirs
}

// LatestMTime is the newest modification time of the entry and its descendants.
func (entry *Entry) LatestMTime() time.Time {
	if entry.dir == nil {
		return entry.mtime
	}
	if entry.dir.latestMTime.After(entry.mtime) {
		return entry.dir.latestMTime
	}
	return entry.mtime
}

// HasDotEntry reports whether the directory groups overflow children.
func (entry *Entry) HasDotEntry() bool {
	return entry.dir != nil && entry.dir.dotEntry != NoEntry
}

// ChildCount is the number of first-class children, not counting the dot entry.
func (entry *Entry) ChildCount() int {
	if entry.dir == nil {
		return 0
	}
	return entry.dir.children.Len()
}

// contribution is what one child adds to every ancestor's aggregates.
type contribution struct {
	size    int64
	items   int
	subDirs int
	latest  time.Time
}

func (entry *Entry) contribution() contribution {
	if entry.excluded {
		return contribution{}
	}
	switch entry.kind {
	case KindFile:
		return contribution{size: entry.size, items: 1, latest: entry.mtime}
	case KindDirectory:
		return contribution{
			size:    entry.dir.totalSize,
			items:   entry.dir.totalItems + 1,
			subDirs: entry.dir.totalSubDirs + 1,
			latest:  entry.LatestMTime(),
		}
	case KindDotEntry:
		return contribution{
			size:    entry.dir.totalSize,
			items:   entry.dir.totalItems,
			subDirs: entry.dir.totalSubDirs,
			latest:  entry.dir.latestMTime,
		}
	default:
		return contribution{}
	}
}

func (entry *Entry) add(delta contribution) {
	entry.dir.totalSize += delta.size
	entry.dir.totalItems += delta.items
	entry.dir.totalSubDirs += delta.subDirs
	if delta.latest.After(entry.dir.latestMTime) {
		entry.dir.latestMTime = delta.latest
	}
}

func (entry *Entry) subtract(delta contribution) {
	entry.dir.totalSize -= delta.size
	entry.dir.totalItems -= delta.items
	entry.dir.totalSubDirs -= delta.subDirs
}

func (entry *Entry) isLeaf() bool {
	return entry.dir == nil
}
