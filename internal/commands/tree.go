// Package commands turns the in-memory directory tree into report data.
package commands

import (
	"fmt"
	"sort"

	"github.com/temirov/dirstat/internal/dirtree"
	"github.com/temirov/dirstat/internal/types"
	"github.com/temirov/dirstat/internal/utils"
)

const (
	// errorUnknownEntryFormat is used when the requested start entry is missing.
	errorUnknownEntryFormat = "building tree for entry %d: %w"
)

// GetTreeData builds the report node for start and its descendants. NoEntry
// or the synthetic root start at the top-level entry; an empty tree yields nil.
func (treeBuilder *TreeBuilder) GetTreeData(tree *dirtree.Tree, start dirtree.EntryID) (*types.TreeOutputNode, error) {
	if start == dirtree.NoEntry || start == tree.Root() {
		start = tree.FirstToplevel()
		if start == dirtree.NoEntry {
			return nil, nil
		}
	}
	entry, exists := tree.Entry(start)
	if !exists {
		return nil, fmt.Errorf(errorUnknownEntryFormat, start, dirtree.ErrUnknownEntry)
	}
	return treeBuilder.buildTreeNode(tree, entry, 0), nil
}

// buildTreeNode recursively builds the node for entry. Children are ordered
// by total size, largest first.
func (treeBuilder *TreeBuilder) buildTreeNode(tree *dirtree.Tree, entry *dirtree.Entry, depth int) *types.TreeOutputNode {
	node := &types.TreeOutputNode{
		Path: tree.Path(entry.ID()),
		Name: entry.Name(),
		Type: NodeType(entry),
	}
	if !entry.IsDotEntry() {
		node.SizeBytes = entry.Size()
		node.Size = utils.FormatFileSize(entry.Size())
		node.LastModified = utils.FormatTimestamp(entry.MTime())
	}
	if !entry.IsDirLike() {
		return node
	}

	applySummary(node, entry)
	if treeBuilder.Depth >= 0 && depth >= treeBuilder.Depth {
		node.Truncated = entry.ChildCount() > 0 || entry.HasDotEntry()
		return node
	}

	childIDs := tree.Children(entry.ID())
	if dotEntryID := tree.DotEntry(entry.ID()); dotEntryID != dirtree.NoEntry {
		childIDs = append(childIDs, dotEntryID)
	}
	for _, childID := range childIDs {
		child, exists := tree.Entry(childID)
		if !exists {
			continue
		}
		node.Children = append(node.Children, treeBuilder.buildTreeNode(tree, child, depth+1))
	}
	sortTreeChildren(node)
	return node
}

// Summarize reports the aggregates of the top-level entry.
func Summarize(tree *dirtree.Tree, aborted bool) types.OutputSummary {
	summary := types.OutputSummary{
		Root:      tree.URL(),
		Aborted:   aborted,
		TotalSize: utils.FormatFileSize(0),
	}
	topLevel, exists := tree.Entry(tree.FirstToplevel())
	if !exists {
		return summary
	}
	summary.TotalItems = topLevel.TotalItems()
	summary.TotalSubDirs = topLevel.TotalSubDirs()
	summary.TotalSizeBytes = topLevel.TotalSize()
	summary.TotalSize = utils.FormatFileSize(topLevel.TotalSize())
	summary.Finished = topLevel.IsFinished()
	return summary
}

// NodeType classifies an entry for reports and events.
func NodeType(entry *dirtree.Entry) string {
	switch {
	case entry.IsDotEntry():
		return types.NodeTypeGroup
	case entry.IsExcluded():
		return types.NodeTypeExcluded
	case entry.IsDirLike():
		return types.NodeTypeDirectory
	case entry.IsSymlink():
		return types.NodeTypeSymlink
	case entry.IsSpecialFile():
		return types.NodeTypeSpecial
	default:
		return types.NodeTypeFile
	}
}

// applySummary stores the entry's aggregates on the node.
func applySummary(node *types.TreeOutputNode, entry *dirtree.Entry) {
	node.TotalSizeBytes = entry.TotalSize()
	node.TotalSize = utils.FormatFileSize(entry.TotalSize())
	node.TotalItems = entry.TotalItems()
	node.TotalSubDirs = entry.TotalSubDirs()
	node.LatestModified = utils.FormatTimestamp(entry.LatestMTime())
	node.ReadState = entry.ReadState().String()
}

func sortTreeChildren(node *types.TreeOutputNode) {
	sort.SliceStable(node.Children, func(i, j int) bool {
		left, right := node.Children[i], node.Children[j]
		leftSize, rightSize := reportedSize(left), reportedSize(right)
		if leftSize != rightSize {
			return leftSize > rightSize
		}
		return left.Name < right.Name
	})
}

func reportedSize(node *types.TreeOutputNode) int64 {
	if node.Type == types.NodeTypeDirectory || node.Type == types.NodeTypeGroup {
		return node.TotalSizeBytes
	}
	return node.SizeBytes
}
