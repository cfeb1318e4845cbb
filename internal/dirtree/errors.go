package dirtree

import (
	"errors"
	"fmt"
)

var (
	// ErrRootDeletion is returned when a caller tries to delete the synthetic root.
	ErrRootDeletion = errors.New("dirtree: the root entry cannot be deleted")
	// ErrUnknownEntry is returned for handles that do not resolve to a live entry.
	ErrUnknownEntry = errors.New("dirtree: unknown entry")
	// ErrEmptyTree is returned when an operation needs a top-level entry and there is none.
	ErrEmptyTree = errors.New("dirtree: tree has no top-level entry")
)

// NotFoundError reports that a scan or refresh target could not be stat'ed.
type NotFoundError struct {
	Path string
	Err  error
}

func (err *NotFoundError) Error() string {
	return fmt.Sprintf("stat %s: %v", err.Path, err.Err)
}

func (err *NotFoundError) Unwrap() error { return err.Err }

// PermissionError reports that a directory could not be listed mid-scan.
// The affected job stops; children collected before the failure are kept.
type PermissionError struct {
	Path string
	Err  error
}

func (err *PermissionError) Error() string {
	return fmt.Sprintf("reading directory %s: %v", err.Path, err.Err)
}

func (err *PermissionError) Unwrap() error { return err.Err }
