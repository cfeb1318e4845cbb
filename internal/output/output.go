package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/temirov/dirstat/internal/dirtree"
	"github.com/temirov/dirstat/internal/types"
	"github.com/temirov/dirstat/internal/utils"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "

	directorySuffix   = "/"
	truncatedMarker   = ", …"
	abortedSuffix     = " (aborted)"
	incompleteSuffix  = " (incomplete)"
	summaryLineFormat = "Summary: %d %s, %d %s, %s%s"
)

var leafLabels = map[string]string{
	types.NodeTypeFile:     "[File]",
	types.NodeTypeSymlink:  "[Symlink]",
	types.NodeTypeSpecial:  "[Special]",
	types.NodeTypeExcluded: "[Excluded]",
}

func pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// directoryDetails renders the aggregate block of a directory or group line.
func directoryDetails(node *types.TreeOutputNode) string {
	details := node.TotalSize + ", " + utils.FormatItemCount(node.TotalItems)
	switch node.ReadState {
	case "", dirtree.ReadFinished.String(), dirtree.ReadCached.String():
	default:
		details += ", " + node.ReadState
	}
	if node.Truncated {
		details += truncatedMarker
	}
	return details
}

func treeNodeLinePrefix(prefix string, isRoot bool, isLast bool) (string, string) {
	if isRoot {
		return "", ""
	}
	connector := treeBranchConnector
	childPrefix := prefix + treeBranchPadding
	if isLast {
		connector = treeLastConnector
		childPrefix = prefix + treeLastPadding
	}
	return prefix + connector, childPrefix
}

func renderTreeNode(writer io.Writer, node *types.TreeOutputNode, prefix string, isRoot bool, isLast bool) {
	if node == nil {
		return
	}
	linePrefix, childPrefix := treeNodeLinePrefix(prefix, isRoot, isLast)
	label := node.Name
	if isRoot {
		label = node.Path
	}
	switch node.Type {
	case types.NodeTypeDirectory:
		fmt.Fprintf(writer, "%s%s%s (%s)\n", linePrefix, strings.TrimSuffix(label, directorySuffix), directorySuffix, directoryDetails(node))
	case types.NodeTypeGroup:
		fmt.Fprintf(writer, "%s%s (%s)\n", linePrefix, node.Name, directoryDetails(node))
	default:
		leafLabel, known := leafLabels[node.Type]
		if !known {
			leafLabel = leafLabels[types.NodeTypeFile]
		}
		fmt.Fprintf(writer, "%s%s %s (%s)\n", linePrefix, leafLabel, label, node.Size)
		return
	}
	for index, child := range node.Children {
		if child == nil {
			continue
		}
		renderTreeNode(writer, child, childPrefix, false, index == len(node.Children)-1)
	}
}

// WriteTreeRaw renders a directory tree to the provided writer.
func WriteTreeRaw(writer io.Writer, node *types.TreeOutputNode) {
	if node == nil {
		return
	}
	renderTreeNode(writer, node, "", true, true)
}

// FormatSummaryLine renders the one-line scan summary.
func FormatSummaryLine(summary *types.OutputSummary) string {
	if summary == nil {
		summary = &types.OutputSummary{TotalSize: "0b"}
	}
	suffix := ""
	if summary.Aborted {
		suffix = abortedSuffix
	} else if !summary.Finished {
		suffix = incompleteSuffix
	}
	return fmt.Sprintf(summaryLineFormat,
		summary.TotalItems, pluralize(summary.TotalItems, "item", "items"),
		summary.TotalSubDirs, pluralize(summary.TotalSubDirs, "directory", "directories"),
		summary.TotalSize, suffix)
}
