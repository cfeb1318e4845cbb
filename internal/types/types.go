// Package types defines every cross-package data structure used by the dirstat CLI.
package types

const (
	NodeTypeFile      = "file"
	NodeTypeDirectory = "directory"
	NodeTypeGroup     = "group"
	NodeTypeExcluded  = "excluded"
	NodeTypeSymlink   = "symlink"
	NodeTypeSpecial   = "special"

	CommandScan = "scan"
	CommandLoad = "load"

	FormatRaw    = "raw"
	FormatJSON   = "json"
	FormatNDJSON = "ndjson"
)

// TreeOutputNode is one entry of a rendered directory tree. Aggregate fields
// are only set for directories and grouped-file nodes.
type TreeOutputNode struct {
	Path           string            `json:"path"`
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	Size           string            `json:"size,omitempty"`
	SizeBytes      int64             `json:"sizeBytes"`
	LastModified   string            `json:"lastModified,omitempty"`
	ReadState      string            `json:"readState,omitempty"`
	TotalSize      string            `json:"totalSize,omitempty"`
	TotalSizeBytes int64             `json:"totalSizeBytes,omitempty"`
	TotalItems     int               `json:"totalItems,omitempty"`
	TotalSubDirs   int               `json:"totalSubDirs,omitempty"`
	LatestModified string            `json:"latestModified,omitempty"`
	Truncated      bool              `json:"truncated,omitempty"`
	Children       []*TreeOutputNode `json:"children,omitempty"`
}

// OutputSummary captures aggregate information about a finished or aborted scan.
type OutputSummary struct {
	Root           string `json:"root"`
	TotalItems     int    `json:"totalItems"`
	TotalSubDirs   int    `json:"totalSubDirs"`
	TotalSize      string `json:"totalSize"`
	TotalSizeBytes int64  `json:"totalSizeBytes"`
	Aborted        bool   `json:"aborted"`
	Finished       bool   `json:"finished"`
}
