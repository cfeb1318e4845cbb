package stream

import (
	"time"

	"github.com/temirov/dirstat/internal/types"
)

const SchemaVersion = 1

type EventKind string

const (
	EventKindStart     EventKind = "start"
	EventKindEntry     EventKind = "entry"
	EventKindDeleted   EventKind = "deleted"
	EventKindDirectory EventKind = "directory"
	EventKindProgress  EventKind = "progress"
	EventKindWarning   EventKind = "warning"
	EventKindAborted   EventKind = "aborted"
	EventKindSummary   EventKind = "summary"
	EventKindError     EventKind = "error"
	EventKindTree      EventKind = "tree"
	EventKindDone      EventKind = "done"
)

type Event struct {
	Version   int       `json:"version"`
	Kind      EventKind `json:"kind"`
	Command   string    `json:"command,omitempty"`
	ScanID    string    `json:"scanId,omitempty"`
	Path      string    `json:"path,omitempty"`
	EmittedAt time.Time `json:"emittedAt,omitempty"`

	Entry     *EntryEvent           `json:"entry,omitempty"`
	Directory *DirectoryEvent       `json:"directory,omitempty"`
	Summary   *types.OutputSummary  `json:"summary,omitempty"`
	Message   *LogEvent             `json:"message,omitempty"`
	Err       *ErrorEvent           `json:"error,omitempty"`
	Tree      *types.TreeOutputNode `json:"tree,omitempty"`
}

// EntryEvent describes one entry inserted into the tree.
type EntryEvent struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	SizeBytes    int64  `json:"sizeBytes,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
}

// DirectoryEvent reports a directory whose own listing completed.
type DirectoryEvent struct {
	Path           string `json:"path"`
	ReadState      string `json:"readState"`
	TotalItems     int    `json:"totalItems"`
	TotalSizeBytes int64  `json:"totalSizeBytes"`
}

type LogEvent struct {
	Level   string `json:"level,omitempty"`
	Message string `json:"message"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}
