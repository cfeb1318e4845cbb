package dirtree_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/dirstat/internal/dirtree"
)

func buildBasicLayout() *fakeFileSystem {
	fileSystem := newFakeFileSystem()
	fileSystem.addFile(fakeRoot+"/a.txt", 10, 5)
	fileSystem.addDirectory(fakeRoot+"/sub", 1)
	fileSystem.addFile(fakeRoot+"/sub/c.txt", 5, 20)
	fileSystem.addFile(fakeRoot+"/sub/d.txt", 7, 3)
	return fileSystem
}

func scanToCompletion(t *testing.T, tree *dirtree.Tree, config dirtree.ScanConfig) {
	t.Helper()
	require.NoError(t, tree.StartScan(fakeRoot, config))
	require.NoError(t, tree.Run(context.Background()))
	require.False(t, tree.IsBusy())
}

func mustEntry(t *testing.T, tree *dirtree.Tree, id dirtree.EntryID) *dirtree.Entry {
	t.Helper()
	entry, ok := tree.Entry(id)
	require.True(t, ok, "entry %d not found", id)
	return entry
}

func mustLocate(t *testing.T, tree *dirtree.Tree, path string) *dirtree.Entry {
	t.Helper()
	id := tree.Locate(path)
	require.NotEqual(t, dirtree.NoEntry, id, "path %s not found", path)
	return mustEntry(t, tree, id)
}

func TestScanBuildsAggregates(t *testing.T) {
	tree, recorder := newTestTree(buildBasicLayout())
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())

	topLevel := mustEntry(t, tree, tree.FirstToplevel())
	require.True(t, tree.IsTopLevel(topLevel.ID()))
	require.Equal(t, fakeRoot, topLevel.URL())
	require.Equal(t, fakeRoot, tree.URL())
	require.Equal(t, "scan", topLevel.Name())
	require.Equal(t, int64(22), topLevel.TotalSize())
	require.Equal(t, 4, topLevel.TotalItems())
	require.Equal(t, 1, topLevel.TotalSubDirs())
	require.Equal(t, baseTime.Add(20*time.Minute), topLevel.LatestMTime())
	require.True(t, topLevel.IsFinished())
	require.Equal(t, dirtree.ReadFinished, topLevel.ReadState())

	subdirectory := mustLocate(t, tree, fakeRoot+"/sub")
	require.Equal(t, int64(12), subdirectory.TotalSize())
	require.Equal(t, 2, subdirectory.TotalItems())
	require.Equal(t, topLevel.ID(), subdirectory.Parent())

	rootEntry := mustEntry(t, tree, tree.Root())
	require.Equal(t, int64(22), rootEntry.TotalSize())
	require.Equal(t, 5, rootEntry.TotalItems())

	kinds := recorder.kinds()
	require.Equal(t, dirtree.NotifyStartingReading, kinds[0])
	require.Equal(t, dirtree.NotifyFinished, kinds[len(kinds)-1])
	require.Equal(t, 1, recorder.count(dirtree.NotifyFinished))
	require.Equal(t, 5, recorder.count(dirtree.NotifyChildAdded))
	require.Equal(t, 2, recorder.count(dirtree.NotifyReadJobFinished))
	require.Equal(t, 0, recorder.count(dirtree.NotifyAborted))
}

func TestFinalizeLocalPrecedesReadJobFinished(t *testing.T) {
	tree, recorder := newTestTree(buildBasicLayout())
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())

	subdirectoryID := tree.Locate(fakeRoot + "/sub")
	finalizeIndex, finishedIndex := -1, -1
	for index, notification := range recorder.notifications {
		if notification.Entry != subdirectoryID {
			continue
		}
		switch notification.Kind {
		case dirtree.NotifyFinalizeLocal:
			finalizeIndex = index
		case dirtree.NotifyReadJobFinished:
			finishedIndex = index
		}
	}
	require.NotEqual(t, -1, finalizeIndex)
	require.Equal(t, finalizeIndex+1, finishedIndex)
}

func TestOverflowGroupingRoutesLeavesIntoDotEntry(t *testing.T) {
	fileSystem := newFakeFileSystem()
	for _, name := range []string{"f1", "f2", "f3", "f4", "f5"} {
		fileSystem.addFile(fakeRoot+"/"+name, 1, 0)
	}
	fileSystem.addDirectory(fakeRoot+"/z", 0)

	tree, recorder := newTestTree(fileSystem)
	config := dirtree.DefaultScanConfig()
	config.OverflowThreshold = 2
	scanToCompletion(t, tree, config)

	topLevelID := tree.FirstToplevel()
	dotEntryID := tree.DotEntry(topLevelID)
	require.NotEqual(t, dirtree.NoEntry, dotEntryID)

	var directNames []string
	for _, childID := range tree.Children(topLevelID) {
		directNames = append(directNames, mustEntry(t, tree, childID).Name())
	}
	require.Equal(t, []string{"f1", "f2", "z"}, directNames)

	var groupedNames []string
	for _, childID := range tree.Children(dotEntryID) {
		groupedNames = append(groupedNames, mustEntry(t, tree, childID).Name())
	}
	require.Equal(t, []string{"f3", "f4", "f5"}, groupedNames)

	dotEntry := mustEntry(t, tree, dotEntryID)
	require.True(t, dotEntry.IsDotEntry())
	require.Equal(t, dirtree.DotEntryName, dotEntry.Name())
	require.Equal(t, 3, dotEntry.TotalItems())
	require.True(t, dotEntry.IsFinished())
	require.Equal(t, fakeRoot, tree.Path(dotEntryID))

	topLevel := mustEntry(t, tree, topLevelID)
	require.Equal(t, 6, topLevel.TotalItems())
	require.Equal(t, int64(5), topLevel.TotalSize())
	require.Equal(t, 3, topLevel.ChildCount())

	groupedID := tree.Locate(fakeRoot + "/f3")
	require.Equal(t, dotEntryID, tree.Parent(groupedID))
	require.Equal(t, fakeRoot+"/f3", tree.Path(groupedID))

	dotIndex, groupedIndex := -1, -1
	for index, notification := range recorder.notifications {
		if notification.Kind != dirtree.NotifyChildAdded {
			continue
		}
		switch notification.Entry {
		case dotEntryID:
			dotIndex = index
		case groupedID:
			groupedIndex = index
		}
	}
	require.NotEqual(t, -1, dotIndex)
	require.Equal(t, dotIndex+1, groupedIndex)
}

func TestScanOfSmallDirectoryTotals(t *testing.T) {
	fileSystem := newFakeFileSystem()
	fileSystem.addFile(fakeRoot+"/ten", 10, 0)
	fileSystem.addFile(fakeRoot+"/twenty", 20, 0)
	fileSystem.addFile(fakeRoot+"/thirty", 30, 0)
	fileSystem.addDirectory(fakeRoot+"/empty", 0)
	tree, _ := newTestTree(fileSystem)
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())

	topLevel := mustEntry(t, tree, tree.FirstToplevel())
	require.Equal(t, int64(60), topLevel.TotalSize())
	require.Equal(t, 4, topLevel.TotalItems())
	require.Equal(t, 1, topLevel.TotalSubDirs())
	require.Zero(t, mustLocate(t, tree, fakeRoot+"/empty").TotalSize())
}

func TestOverflowGroupingOfLargeDirectory(t *testing.T) {
	const fileCount = 10000
	const threshold = 1000
	fileSystem := newFakeFileSystem()
	var groupedSize int64
	for index := 0; index < fileCount; index++ {
		size := int64(index + 1)
		fileSystem.addFile(fmt.Sprintf("%s/file-%05d", fakeRoot, index), size, 0)
		if index >= threshold {
			groupedSize += size
		}
	}
	tree, _ := newTestTree(fileSystem)
	config := dirtree.DefaultScanConfig()
	config.OverflowThreshold = threshold
	scanToCompletion(t, tree, config)

	topLevelID := tree.FirstToplevel()
	require.Len(t, tree.Children(topLevelID), threshold)
	dotEntry := mustEntry(t, tree, tree.DotEntry(topLevelID))
	require.Equal(t, fileCount-threshold, dotEntry.TotalItems())
	require.Equal(t, groupedSize, dotEntry.TotalSize())
	require.Equal(t, int64(fileCount*(fileCount+1)/2), mustEntry(t, tree, topLevelID).TotalSize())
}

func TestOverflowGroupingCanBeDisabled(t *testing.T) {
	fileSystem := newFakeFileSystem()
	for _, name := range []string{"f1", "f2", "f3"} {
		fileSystem.addFile(fakeRoot+"/"+name, 1, 0)
	}
	tree, _ := newTestTree(fileSystem)
	config := dirtree.DefaultScanConfig()
	config.EnableOverflowGrouping = false
	config.OverflowThreshold = 1
	scanToCompletion(t, tree, config)

	require.Equal(t, dirtree.NoEntry, tree.DotEntry(tree.FirstToplevel()))
	require.Len(t, tree.Children(tree.FirstToplevel()), 3)
}

func TestExcludePatternsProduceExcludedLeaves(t *testing.T) {
	fileSystem := newFakeFileSystem()
	fileSystem.addFile(fakeRoot+"/keep.txt", 3, 0)
	fileSystem.addFile(fakeRoot+"/skip.log", 100, 0)
	fileSystem.addDirectory(fakeRoot+"/cache", 0)
	fileSystem.addFile(fakeRoot+"/cache/blob", 1000, 0)

	tree, _ := newTestTree(fileSystem)
	config := dirtree.DefaultScanConfig()
	config.ExcludePatterns = []string{"*.log", "cache/"}
	scanToCompletion(t, tree, config)

	skipped := mustLocate(t, tree, fakeRoot+"/skip.log")
	require.True(t, skipped.IsExcluded())
	require.Equal(t, dirtree.KindExcluded, skipped.Kind())

	cache := mustLocate(t, tree, fakeRoot+"/cache")
	require.True(t, cache.IsExcluded())
	require.False(t, cache.IsDirLike())
	require.Zero(t, fileSystem.listCalls[fakeRoot+"/cache"])

	topLevel := mustEntry(t, tree, tree.FirstToplevel())
	require.Equal(t, int64(3), topLevel.TotalSize())
	require.Equal(t, 1, topLevel.TotalItems())
	require.Zero(t, topLevel.TotalSubDirs())
}

func TestChildStatFailureYieldsExcludedLeaf(t *testing.T) {
	fileSystem := newFakeFileSystem()
	fileSystem.addFile(fakeRoot+"/fine", 4, 0)
	fileSystem.statErrors[fakeRoot+"/broken"] = errors.New("input/output error")

	tree, _ := newTestTree(fileSystem)
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())

	broken := mustLocate(t, tree, fakeRoot+"/broken")
	require.True(t, broken.IsExcluded())
	require.Zero(t, broken.Size())

	topLevel := mustEntry(t, tree, tree.FirstToplevel())
	require.Equal(t, int64(4), topLevel.TotalSize())
	require.Equal(t, 1, topLevel.TotalItems())
}

func TestListingFailureKeepsPartialChildren(t *testing.T) {
	fileSystem := newFakeFileSystem()
	fileSystem.addDirectory(fakeRoot+"/locked", 0)
	fileSystem.addFile(fakeRoot+"/locked/x", 1, 0)
	fileSystem.addFile(fakeRoot+"/locked/y", 2, 0)
	fileSystem.listErrors[fakeRoot+"/locked"] = fs.ErrPermission

	tree, recorder := newTestTree(fileSystem)
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())

	locked := mustLocate(t, tree, fakeRoot+"/locked")
	require.Equal(t, dirtree.ReadError, locked.ReadState())
	require.Equal(t, 1, locked.ChildCount())
	require.True(t, locked.IsFinished())
	require.True(t, mustEntry(t, tree, tree.FirstToplevel()).IsFinished())

	var sawPermission bool
	for _, notification := range recorder.notifications {
		if notification.Kind == dirtree.NotifyProgressInfo && notification.Entry == locked.ID() &&
			strings.Contains(notification.Text, "permission denied") {
			sawPermission = true
		}
	}
	require.True(t, sawPermission)
}

func TestCrossFilesystemDirectoriesAreSkippedByDefault(t *testing.T) {
	fileSystem := buildBasicLayout()
	mounted := fileSystem.infos[fakeRoot+"/sub"]
	mounted.Device = 7
	fileSystem.infos[fakeRoot+"/sub"] = mounted

	tree, _ := newTestTree(fileSystem)
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())
	require.Equal(t, dirtree.NoEntry, tree.Locate(fakeRoot+"/sub"))
	require.Equal(t, int64(10), mustEntry(t, tree, tree.FirstToplevel()).TotalSize())

	config := dirtree.DefaultScanConfig()
	config.CrossFileSystems = true
	scanToCompletion(t, tree, config)
	require.NotEqual(t, dirtree.NoEntry, tree.Locate(fakeRoot+"/sub"))
	require.Equal(t, int64(22), mustEntry(t, tree, tree.FirstToplevel()).TotalSize())
}

func TestStartScanMissingPath(t *testing.T) {
	tree, recorder := newTestTree(newFakeFileSystem())

	scanErr := tree.StartScan("/dirstat-fake-root/missing", dirtree.DefaultScanConfig())
	var notFound *dirtree.NotFoundError
	require.ErrorAs(t, scanErr, &notFound)
	require.ErrorIs(t, scanErr, fs.ErrNotExist)

	require.Equal(t, []dirtree.NotificationKind{
		dirtree.NotifyStartingReading,
		dirtree.NotifyFinished,
		dirtree.NotifyFinalizeLocal,
	}, recorder.kinds())
	require.Equal(t, dirtree.NoEntry, recorder.notifications[2].Entry)
	require.False(t, tree.IsBusy())
	require.Equal(t, dirtree.NoEntry, tree.FirstToplevel())
}

func TestStartScanOfSingleFile(t *testing.T) {
	fileSystem := newFakeFileSystem()
	fileSystem.addFile(fakeRoot+"/only.txt", 42, 0)
	tree, recorder := newTestTree(fileSystem)

	require.NoError(t, tree.StartScan(fakeRoot+"/only.txt", dirtree.DefaultScanConfig()))
	require.False(t, tree.IsBusy())
	require.False(t, tree.Step())
	require.Equal(t, []dirtree.NotificationKind{
		dirtree.NotifyStartingReading,
		dirtree.NotifyChildAdded,
		dirtree.NotifyFinished,
	}, recorder.kinds())

	topLevel := mustEntry(t, tree, tree.FirstToplevel())
	require.Equal(t, dirtree.KindFile, topLevel.Kind())
	require.Equal(t, fakeRoot+"/only.txt", tree.Path(topLevel.ID()))
}

func TestDeleteSubtreeUpdatesAggregates(t *testing.T) {
	tree, recorder := newTestTree(buildBasicLayout())
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())
	subdirectoryID := tree.Locate(fakeRoot + "/sub")
	recorder.reset()

	require.NoError(t, tree.DeleteSubtree(subdirectoryID))
	require.Equal(t, []dirtree.NotificationKind{dirtree.NotifyDeletingChild, dirtree.NotifyChildDeleted}, recorder.kinds())
	require.Equal(t, subdirectoryID, recorder.notifications[0].Entry)

	_, exists := tree.Entry(subdirectoryID)
	require.False(t, exists)
	require.Equal(t, dirtree.NoEntry, tree.Locate(fakeRoot+"/sub/c.txt"))

	topLevel := mustEntry(t, tree, tree.FirstToplevel())
	require.Equal(t, int64(10), topLevel.TotalSize())
	require.Equal(t, 1, topLevel.TotalItems())
	require.Zero(t, topLevel.TotalSubDirs())
	require.Equal(t, baseTime.Add(5*time.Minute), topLevel.LatestMTime())

	require.ErrorIs(t, tree.DeleteSubtree(tree.Root()), dirtree.ErrRootDeletion)
	require.ErrorIs(t, tree.DeleteSubtree(dirtree.EntryID(9999)), dirtree.ErrUnknownEntry)
}

func TestDeleteAndReinsertRestoresTotals(t *testing.T) {
	fileSystem := buildBasicLayout()
	fileSystem.addDirectory(fakeRoot+"/sub/deeper", 2)
	fileSystem.addFile(fakeRoot+"/sub/deeper/e.txt", 40, 9)
	tree, _ := newTestTree(fileSystem)
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())

	topLevel := mustEntry(t, tree, tree.FirstToplevel())
	originalSize, originalItems, originalSubDirs := topLevel.TotalSize(), topLevel.TotalItems(), topLevel.TotalSubDirs()
	originalMTime := topLevel.LatestMTime()
	subdirectory := mustLocate(t, tree, fakeRoot+"/sub")
	subtreeSize, subtreeItems, subtreeSubDirs := subdirectory.TotalSize(), subdirectory.TotalItems(), subdirectory.TotalSubDirs()

	require.NoError(t, tree.DeleteSubtree(subdirectory.ID()))
	require.Equal(t, originalSize-subtreeSize, topLevel.TotalSize())
	require.Equal(t, originalItems-subtreeItems-1, topLevel.TotalItems())
	require.Equal(t, originalSubDirs-subtreeSubDirs-1, topLevel.TotalSubDirs())

	reinserted, _ := newTestTree(fileSystem)
	scanToCompletion(t, reinserted, dirtree.DefaultScanConfig())
	require.NoError(t, reinserted.Refresh(reinserted.Locate(fakeRoot+"/sub")))
	require.NoError(t, reinserted.Run(context.Background()))

	restored := mustEntry(t, reinserted, reinserted.FirstToplevel())
	require.Equal(t, originalSize, restored.TotalSize())
	require.Equal(t, originalItems, restored.TotalItems())
	require.Equal(t, originalSubDirs, restored.TotalSubDirs())
	require.Equal(t, originalMTime, restored.LatestMTime())
}

func TestDeleteLastGroupedLeafRemovesDotEntry(t *testing.T) {
	fileSystem := newFakeFileSystem()
	for _, name := range []string{"a", "b", "c"} {
		fileSystem.addFile(fakeRoot+"/"+name, 1, 0)
	}
	tree, recorder := newTestTree(fileSystem)
	config := dirtree.DefaultScanConfig()
	config.OverflowThreshold = 1
	scanToCompletion(t, tree, config)

	topLevelID := tree.FirstToplevel()
	dotEntryID := tree.DotEntry(topLevelID)
	require.NotEqual(t, dirtree.NoEntry, dotEntryID)

	require.NoError(t, tree.DeleteSubtree(tree.Locate(fakeRoot+"/b")))
	require.Equal(t, dotEntryID, tree.DotEntry(topLevelID))

	recorder.reset()
	lastID := tree.Locate(fakeRoot + "/c")
	require.NoError(t, tree.DeleteSubtree(lastID))
	require.Equal(t, []dirtree.NotificationKind{
		dirtree.NotifyDeletingChild,
		dirtree.NotifyChildDeleted,
		dirtree.NotifyDeletingChild,
		dirtree.NotifyChildDeleted,
	}, recorder.kinds())
	require.Equal(t, lastID, recorder.notifications[0].Entry)
	require.Equal(t, dotEntryID, recorder.notifications[2].Entry)
	require.Equal(t, dirtree.NoEntry, tree.DotEntry(topLevelID))
	require.Equal(t, 1, mustEntry(t, tree, topLevelID).TotalItems())
}

func buildWideLayout() *fakeFileSystem {
	fileSystem := newFakeFileSystem()
	for _, name := range []string{"s1", "s2", "s3"} {
		fileSystem.addDirectory(fakeRoot+"/"+name, 0)
		fileSystem.addFile(fakeRoot+"/"+name+"/file", 1, 0)
	}
	fileSystem.addDirectory(fakeRoot+"/s1/deep", 0)
	return fileSystem
}

func TestAbortDropsQueuedJobs(t *testing.T) {
	tree, recorder := newTestTree(buildWideLayout())
	require.NoError(t, tree.StartScan(fakeRoot, dirtree.DefaultScanConfig()))
	require.True(t, tree.Step())

	tree.Abort()
	require.Equal(t, 1, recorder.count(dirtree.NotifyAborted))
	require.False(t, tree.IsBusy())

	topLevel := mustEntry(t, tree, tree.FirstToplevel())
	require.Equal(t, dirtree.ReadFinished, topLevel.ReadState())
	require.False(t, topLevel.IsFinished())
	for _, name := range []string{"s1", "s2", "s3"} {
		require.Equal(t, dirtree.ReadAborted, mustLocate(t, tree, fakeRoot+"/"+name).ReadState())
	}

	tree.Abort()
	require.Equal(t, 1, recorder.count(dirtree.NotifyAborted))
	require.False(t, tree.Step())
	require.Equal(t, 0, recorder.count(dirtree.NotifyFinished))
}

func TestAbortDuringJobDropsJobsItEnqueues(t *testing.T) {
	tree, recorder := newTestTree(buildWideLayout())
	require.NoError(t, tree.StartScan(fakeRoot, dirtree.DefaultScanConfig()))
	require.True(t, tree.Step())

	firstID := tree.Locate(fakeRoot + "/s1")
	unsubscribe := tree.Subscribe(dirtree.ObserverFunc(func(notification dirtree.Notification) {
		if notification.Kind == dirtree.NotifyProgressInfo && notification.Entry == firstID {
			tree.Abort()
		}
	}))
	defer unsubscribe()

	require.True(t, tree.Step())
	require.False(t, tree.Step())
	require.Equal(t, 1, recorder.count(dirtree.NotifyAborted))
	require.Equal(t, 0, recorder.count(dirtree.NotifyFinished))

	first := mustEntry(t, tree, firstID)
	require.Equal(t, dirtree.ReadFinished, first.ReadState())
	require.False(t, first.IsFinished())
	require.Equal(t, dirtree.ReadAborted, mustLocate(t, tree, fakeRoot+"/s1/deep").ReadState())
	require.Equal(t, dirtree.ReadAborted, mustLocate(t, tree, fakeRoot+"/s2").ReadState())
}

func TestRunStopsOnCancellation(t *testing.T) {
	tree, recorder := newTestTree(buildWideLayout())
	require.NoError(t, tree.StartScan(fakeRoot, dirtree.DefaultScanConfig()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, tree.Run(ctx), context.Canceled)
	require.Equal(t, 1, recorder.count(dirtree.NotifyAborted))
	require.False(t, tree.IsBusy())
	require.Equal(t, dirtree.ReadAborted, mustEntry(t, tree, tree.FirstToplevel()).ReadState())
}

func TestRefreshRereadsSubtree(t *testing.T) {
	fileSystem := buildBasicLayout()
	tree, recorder := newTestTree(fileSystem)
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())
	oldID := tree.Locate(fakeRoot + "/sub")

	fileSystem.addFile(fakeRoot+"/sub/e.txt", 100, 30)
	recorder.reset()
	require.NoError(t, tree.Refresh(oldID))
	require.True(t, tree.IsBusy())
	require.NoError(t, tree.Run(context.Background()))

	kinds := recorder.kinds()
	require.Equal(t, []dirtree.NotificationKind{
		dirtree.NotifyDeletingChild,
		dirtree.NotifyChildDeleted,
		dirtree.NotifyStartingReading,
		dirtree.NotifyChildAdded,
	}, kinds[:4])
	require.Equal(t, dirtree.NotifyFinished, kinds[len(kinds)-1])

	newID := tree.Locate(fakeRoot + "/sub")
	require.NotEqual(t, oldID, newID)
	topLevel := mustEntry(t, tree, tree.FirstToplevel())
	require.Equal(t, int64(122), topLevel.TotalSize())
	require.Equal(t, 5, topLevel.TotalItems())
	require.Equal(t, baseTime.Add(30*time.Minute), topLevel.LatestMTime())
	require.True(t, topLevel.IsFinished())
}

func TestRefreshOfDotEntryRefreshesDirectory(t *testing.T) {
	fileSystem := newFakeFileSystem()
	fileSystem.addDirectory(fakeRoot+"/sub", 0)
	fileSystem.addFile(fakeRoot+"/sub/a", 1, 0)
	fileSystem.addFile(fakeRoot+"/sub/b", 1, 0)
	tree, _ := newTestTree(fileSystem)
	config := dirtree.DefaultScanConfig()
	config.OverflowThreshold = 1
	scanToCompletion(t, tree, config)

	dotEntryID := tree.DotEntry(tree.Locate(fakeRoot + "/sub"))
	require.NotEqual(t, dirtree.NoEntry, dotEntryID)
	require.NoError(t, tree.Refresh(dotEntryID))
	require.NoError(t, tree.Run(context.Background()))

	require.Equal(t, 2, fileSystem.listCalls[fakeRoot+"/sub"])
	require.Equal(t, 2, mustLocate(t, tree, fakeRoot+"/sub").TotalItems())
}

func TestRefreshOfVanishedPath(t *testing.T) {
	fileSystem := buildBasicLayout()
	tree, recorder := newTestTree(fileSystem)
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())

	fileSystem.remove(fakeRoot + "/sub")
	recorder.reset()
	refreshErr := tree.Refresh(tree.Locate(fakeRoot + "/sub"))
	var notFound *dirtree.NotFoundError
	require.ErrorAs(t, refreshErr, &notFound)
	require.False(t, tree.IsBusy())
	require.Equal(t, dirtree.NotifyFinished, recorder.kinds()[len(recorder.kinds())-1])
	require.Equal(t, dirtree.NoEntry, tree.Locate(fakeRoot+"/sub"))
	require.Equal(t, int64(10), mustEntry(t, tree, tree.FirstToplevel()).TotalSize())
}

func TestRefreshIgnoresExcludeRulesForTarget(t *testing.T) {
	tree, _ := newTestTree(buildBasicLayout())
	config := dirtree.DefaultScanConfig()
	config.ExcludePatterns = []string{"sub/"}
	scanToCompletion(t, tree, config)

	excluded := mustLocate(t, tree, fakeRoot+"/sub")
	require.True(t, excluded.IsExcluded())

	require.NoError(t, tree.Refresh(excluded.ID()))
	require.NoError(t, tree.Run(context.Background()))

	refreshed := mustLocate(t, tree, fakeRoot+"/sub")
	require.False(t, refreshed.IsExcluded())
	require.Equal(t, dirtree.KindDirectory, refreshed.Kind())
	require.Equal(t, int64(12), refreshed.TotalSize())
}

func TestRefreshOfRootRescans(t *testing.T) {
	fileSystem := buildBasicLayout()
	tree, recorder := newTestTree(fileSystem)
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())

	recorder.reset()
	require.NoError(t, tree.Refresh(dirtree.NoEntry))
	require.NoError(t, tree.Run(context.Background()))
	require.Equal(t, dirtree.NotifyClearing, recorder.kinds()[0])
	require.Equal(t, int64(22), mustEntry(t, tree, tree.FirstToplevel()).TotalSize())

	empty, _ := newTestTree(fileSystem)
	require.ErrorIs(t, empty.Refresh(dirtree.NoEntry), dirtree.ErrEmptyTree)
}

func TestRefreshOfTopLevelRescans(t *testing.T) {
	fileSystem := buildBasicLayout()
	tree, recorder := newTestTree(fileSystem)
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())

	fileSystem.addFile(fakeRoot+"/new.txt", 8, 0)
	recorder.reset()
	require.NoError(t, tree.Refresh(tree.FirstToplevel()))
	require.NoError(t, tree.Run(context.Background()))

	kinds := recorder.kinds()
	require.Equal(t, dirtree.NotifyClearing, kinds[0])
	require.Equal(t, dirtree.NotifyStartingReading, kinds[1])
	require.Equal(t, dirtree.NotifyFinished, kinds[len(kinds)-1])
	require.Equal(t, fakeRoot, tree.URL())
	require.Equal(t, int64(30), mustEntry(t, tree, tree.FirstToplevel()).TotalSize())
}

func TestClearEmptiesTree(t *testing.T) {
	tree, recorder := newTestTree(buildBasicLayout())
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())
	subdirectoryID := tree.Locate(fakeRoot + "/sub")

	recorder.reset()
	tree.Clear()
	require.Equal(t, []dirtree.NotificationKind{dirtree.NotifyClearing}, recorder.kinds())
	require.Equal(t, dirtree.NoEntry, tree.FirstToplevel())
	require.Equal(t, "", tree.URL())
	_, exists := tree.Entry(subdirectoryID)
	require.False(t, exists)

	rootEntry := mustEntry(t, tree, tree.Root())
	require.Zero(t, rootEntry.TotalSize())
	require.Zero(t, rootEntry.TotalItems())
}

func TestLocateAndPath(t *testing.T) {
	tree, _ := newTestTree(buildBasicLayout())
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())

	require.Equal(t, tree.FirstToplevel(), tree.Locate(fakeRoot))
	require.Equal(t, dirtree.NoEntry, tree.Locate("/dirstat-fake-root"))
	require.Equal(t, dirtree.NoEntry, tree.Locate("/elsewhere/sub"))
	require.Equal(t, dirtree.NoEntry, tree.Locate(fakeRoot+"/nope"))

	fileID := tree.Locate(fakeRoot + "/sub/d.txt")
	require.Equal(t, fakeRoot+"/sub/d.txt", tree.Path(fileID))
	require.Equal(t, "", tree.Path(tree.Root()))
}

func TestWalkVisitsEntriesInOrder(t *testing.T) {
	tree, _ := newTestTree(buildBasicLayout())
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())

	var visited []string
	require.NoError(t, tree.Walk(tree.FirstToplevel(), func(entry *dirtree.Entry) error {
		visited = append(visited, entry.Name())
		return nil
	}))
	require.Equal(t, []string{"scan", "a.txt", "sub", "c.txt", "d.txt"}, visited)

	stop := errors.New("stop")
	require.ErrorIs(t, tree.Walk(tree.FirstToplevel(), func(*dirtree.Entry) error { return stop }), stop)
	require.ErrorIs(t, tree.Walk(dirtree.EntryID(9999), func(*dirtree.Entry) error { return nil }), dirtree.ErrUnknownEntry)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	tree := dirtree.New(dirtree.Options{FileSystem: buildBasicLayout()})
	delivered := 0
	unsubscribe := tree.Subscribe(dirtree.ObserverFunc(func(dirtree.Notification) { delivered++ }))
	unsubscribe()
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())
	require.Zero(t, delivered)
}

func TestSymlinksAreLeaves(t *testing.T) {
	fileSystem := newFakeFileSystem()
	fileSystem.addSymlink(fakeRoot + "/link")
	tree, _ := newTestTree(fileSystem)
	scanToCompletion(t, tree, dirtree.DefaultScanConfig())

	link := mustLocate(t, tree, fakeRoot+"/link")
	require.True(t, link.IsSymlink())
	require.False(t, link.IsDirLike())
	require.Equal(t, int64(12), mustEntry(t, tree, tree.FirstToplevel()).TotalSize())
}
