package dirtree

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/dirstat/internal/utils"
)

// DefaultOverflowThreshold is the number of direct leaves a directory may hold
// before further leaves are routed into its dot entry.
const DefaultOverflowThreshold = 1000

const (
	errorDuplicateChildFormat = "dirtree: %s already has a child named %q"
	errorNotDirectoryFormat   = "dirtree: entry %d cannot own children"

	logFieldPath = "path"
	logFieldName = "name"
)

// ScanConfig holds the per-scan options. The zero value disables grouping;
// use DefaultScanConfig for the usual settings.
type ScanConfig struct {
	CrossFileSystems       bool
	EnableOverflowGrouping bool
	OverflowThreshold      int
	// ExcludePatterns are matched against paths relative to the top-level
	// entry using the same rules as the .dirstatignore file.
	ExcludePatterns []string
}

// DefaultScanConfig returns grouping enabled at DefaultOverflowThreshold,
// same-filesystem traversal and no exclude patterns.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		EnableOverflowGrouping: true,
		OverflowThreshold:      DefaultOverflowThreshold,
	}
}

func (config ScanConfig) normalized() ScanConfig {
	if config.OverflowThreshold <= 0 {
		config.OverflowThreshold = DefaultOverflowThreshold
	}
	config.ExcludePatterns = utils.DeduplicatePatterns(config.ExcludePatterns)
	return config
}

// Options configures a Tree. Every field is optional.
type Options struct {
	Logger     *zap.Logger
	Metrics    ScanMetrics
	FileSystem FileSystem
}

// Tree owns every entry of one scan, the job queue that fills it and the
// observers watching it. A Tree is not safe for concurrent use: all calls,
// including the observers it invokes, happen on one goroutine.
type Tree struct {
	logger  *zap.Logger
	metrics ScanMetrics
	fs      FileSystem

	entries map[EntryID]*Entry
	nextID  EntryID
	root    EntryID

	queue   jobQueue
	config  ScanConfig
	busy    bool
	aborted bool

	observers         []observerSlot
	nextObserverToken int
}

// New creates an empty tree holding only its synthetic root.
func New(options Options) *Tree {
	tree := &Tree{
		logger:  options.Logger,
		metrics: options.Metrics,
		fs:      options.FileSystem,
		entries: make(map[EntryID]*Entry),
		config:  DefaultScanConfig(),
	}
	if tree.logger == nil {
		tree.logger = zap.NewNop()
	}
	if tree.metrics == nil {
		tree.metrics = noopScanMetrics{}
	}
	if tree.fs == nil {
		tree.fs = LocalFileSystem{}
	}
	rootEntry := newEntry(KindRoot, "")
	rootEntry.dir.readState = ReadFinished
	tree.root = tree.allocate(rootEntry)
	return tree
}

func (tree *Tree) allocate(entry *Entry) EntryID {
	tree.nextID++
	entry.id = tree.nextID
	tree.entries[entry.id] = entry
	return entry.id
}

// Root returns the synthetic root. It has no name and at most one child.
func (tree *Tree) Root() EntryID { return tree.root }

// Config returns the configuration of the last scan, refresh or cache read.
func (tree *Tree) Config() ScanConfig { return tree.config }

// IsBusy reports whether read jobs are queued or running.
func (tree *Tree) IsBusy() bool { return tree.busy }

// Entry resolves a handle. The returned pointer is valid until the entry is
// deleted and must not be retained across mutations by other goroutines.
func (tree *Tree) Entry(id EntryID) (*Entry, bool) {
	entry, ok := tree.entries[id]
	return entry, ok
}

// Parent returns the parent handle of id, or NoEntry.
func (tree *Tree) Parent(id EntryID) EntryID {
	if entry, ok := tree.entries[id]; ok {
		return entry.parent
	}
	return NoEntry
}

// FirstToplevel returns the single child of the root, or NoEntry.
func (tree *Tree) FirstToplevel() EntryID {
	rootEntry := tree.entries[tree.root]
	_, firstID, ok := rootEntry.dir.children.Min()
	if !ok {
		return NoEntry
	}
	return firstID
}

// IsTopLevel reports whether id is a direct child of the root.
func (tree *Tree) IsTopLevel(id EntryID) bool {
	entry, ok := tree.entries[id]
	return ok && entry.parent == tree.root && id != tree.root
}

// URL returns the absolute path of the top-level entry, or "" for an empty tree.
func (tree *Tree) URL() string {
	if topLevel, ok := tree.entries[tree.FirstToplevel()]; ok {
		return topLevel.url
	}
	return ""
}

// Children returns the first-class children of id in name order. The dot
// entry is not included; see DotEntry.
func (tree *Tree) Children(id EntryID) []EntryID {
	entry, ok := tree.entries[id]
	if !ok || entry.dir == nil {
		return nil
	}
	childIDs := make([]EntryID, 0, entry.dir.children.Len())
	entry.dir.children.Scan(func(_ string, childID EntryID) bool {
		childIDs = append(childIDs, childID)
		return true
	})
	return childIDs
}

// DotEntry returns the overflow grouping of a directory, or NoEntry.
func (tree *Tree) DotEntry(id EntryID) EntryID {
	entry, ok := tree.entries[id]
	if !ok || entry.dir == nil {
		return NoEntry
	}
	return entry.dir.dotEntry
}

// Path reconstructs the absolute path of an entry by joining names up to the
// top level. Dot entries do not add a component, so a dot entry resolves to
// the path of its directory.
func (tree *Tree) Path(id EntryID) string {
	var segments []string
	for current := id; current != NoEntry; {
		entry, ok := tree.entries[current]
		if !ok || entry.kind == KindRoot {
			break
		}
		if entry.url != "" {
			segments = append(segments, entry.url)
			break
		}
		if entry.kind != KindDotEntry {
			segments = append(segments, entry.name)
		}
		current = entry.parent
	}
	for left, right := 0, len(segments)-1; left < right; left, right = left+1, right-1 {
		segments[left], segments[right] = segments[right], segments[left]
	}
	return filepath.Join(segments...)
}

// Locate finds the entry for an absolute path, looking through dot entries.
// It returns NoEntry when the path is outside the tree or unknown.
func (tree *Tree) Locate(path string) EntryID {
	topLevelID := tree.FirstToplevel()
	topLevel, ok := tree.entries[topLevelID]
	if !ok {
		return NoEntry
	}
	relativePath := utils.RelativePathOrSelf(path, topLevel.url)
	if relativePath == "." {
		return topLevelID
	}
	if filepath.IsAbs(relativePath) || relativePath == ".." || strings.HasPrefix(relativePath, "../") {
		return NoEntry
	}
	current := topLevel
	for _, segment := range strings.Split(relativePath, "/") {
		childID, found := tree.lookupChild(current, segment)
		if !found {
			return NoEntry
		}
		current = tree.entries[childID]
	}
	return current.id
}

func (tree *Tree) lookupChild(parent *Entry, name string) (EntryID, bool) {
	if parent.dir == nil {
		return NoEntry, false
	}
	if childID, found := parent.dir.children.Get(name); found {
		return childID, true
	}
	if dotEntry, ok := tree.entries[parent.dir.dotEntry]; ok {
		return dotEntry.dir.children.Get(name)
	}
	return NoEntry, false
}

// Walk visits the subtree of start in pre-order: an entry, its children in
// name order, then its dot entry subtree. A non-nil error from visit stops
// the walk and is returned.
func (tree *Tree) Walk(start EntryID, visit func(entry *Entry) error) error {
	entry, ok := tree.entries[start]
	if !ok {
		return ErrUnknownEntry
	}
	return tree.walk(entry, visit)
}

func (tree *Tree) walk(entry *Entry, visit func(entry *Entry) error) error {
	if visitErr := visit(entry); visitErr != nil {
		return visitErr
	}
	if entry.dir == nil {
		return nil
	}
	for _, childID := range tree.Children(entry.id) {
		if walkErr := tree.walk(tree.entries[childID], visit); walkErr != nil {
			return walkErr
		}
	}
	if dotEntry, ok := tree.entries[entry.dir.dotEntry]; ok {
		return tree.walk(dotEntry, visit)
	}
	return nil
}

// insertChild links entry below parentID. Leaves arriving at a directory
// whose direct leaf count has reached the threshold go to its dot entry,
// which is created on demand. Subdirectories always stay direct children.
func (tree *Tree) insertChild(parentID EntryID, entry *Entry) (EntryID, error) {
	parent, ok := tree.entries[parentID]
	if !ok {
		return NoEntry, ErrUnknownEntry
	}
	if parent.dir == nil {
		return NoEntry, fmt.Errorf(errorNotDirectoryFormat, parentID)
	}
	targetID := parentID
	if entry.isLeaf() && parent.kind == KindDirectory && tree.config.EnableOverflowGrouping &&
		parent.dir.directLeaves >= tree.config.OverflowThreshold {
		targetID = tree.ensureDotEntry(parentID)
	}
	if attachErr := tree.attach(targetID, entry); attachErr != nil {
		return NoEntry, attachErr
	}
	return entry.id, nil
}

func (tree *Tree) attach(parentID EntryID, entry *Entry) error {
	parent := tree.entries[parentID]
	if _, exists := parent.dir.children.Get(entry.name); exists {
		return fmt.Errorf(errorDuplicateChildFormat, tree.Path(parentID), entry.name)
	}
	tree.allocate(entry)
	entry.parent = parentID
	parent.dir.children.Set(entry.name, entry.id)
	if entry.isLeaf() && parent.kind == KindDirectory {
		parent.dir.directLeaves++
	}
	tree.propagate(parentID, entry.contribution())
	tree.metrics.RecordEntryAdded(entry.kind)
	tree.notify(NotifyChildAdded, entry.id, "")
	return nil
}

// ensureDotEntry returns the dot entry of a directory, creating it first if needed.
func (tree *Tree) ensureDotEntry(dirID EntryID) EntryID {
	directory := tree.entries[dirID]
	if directory.dir.dotEntry != NoEntry {
		return directory.dir.dotEntry
	}
	dotEntry := newEntry(KindDotEntry, DotEntryName)
	dotEntry.dir.readState = ReadReading
	if directory.dir.readState.done() {
		dotEntry.dir.readState = ReadFinished
	}
	dotEntry.mtime = directory.mtime
	dotEntry.parent = dirID
	directory.dir.dotEntry = tree.allocate(dotEntry)
	tree.notify(NotifyChildAdded, dotEntry.id, "")
	return dotEntry.id
}

func (tree *Tree) propagate(fromID EntryID, delta contribution) {
	for current := fromID; current != NoEntry; {
		entry := tree.entries[current]
		entry.add(delta)
		current = entry.parent
	}
}

// retract removes a contribution from fromID and every ancestor. LatestMTime
// cannot be subtracted, so it is recomputed from the remaining children on
// the way up.
func (tree *Tree) retract(fromID EntryID, delta contribution) {
	for current := fromID; current != NoEntry; {
		entry := tree.entries[current]
		entry.subtract(delta)
		tree.recomputeLatestMTime(entry)
		current = entry.parent
	}
}

func (tree *Tree) recomputeLatestMTime(entry *Entry) {
	var latest time.Time
	entry.dir.children.Scan(func(_ string, childID EntryID) bool {
		if childLatest := tree.entries[childID].contribution().latest; childLatest.After(latest) {
			latest = childLatest
		}
		return true
	})
	if dotEntry, ok := tree.entries[entry.dir.dotEntry]; ok && dotEntry.dir.latestMTime.After(latest) {
		latest = dotEntry.dir.latestMTime
	}
	entry.dir.latestMTime = latest
}

func (tree *Tree) addPending(fromID EntryID, delta int) {
	for current := fromID; current != NoEntry; {
		entry, ok := tree.entries[current]
		if !ok {
			return
		}
		entry.dir.pending += delta
		current = entry.parent
	}
}

// detach unlinks an entry from its parent and removes its contribution and
// pending jobs from every ancestor. The subtree itself stays in the arena.
func (tree *Tree) detach(id EntryID) {
	entry := tree.entries[id]
	parent, ok := tree.entries[entry.parent]
	if !ok {
		return
	}
	if entry.kind == KindDotEntry {
		parent.dir.dotEntry = NoEntry
	} else {
		parent.dir.children.Delete(entry.name)
		if entry.isLeaf() && parent.kind == KindDirectory {
			parent.dir.directLeaves--
		}
	}
	if entry.dir != nil && entry.dir.pending != 0 {
		tree.addPending(parent.id, -entry.dir.pending)
	}
	tree.retract(parent.id, entry.contribution())
	entry.parent = NoEntry
}

// destroy drops an entry and all of its descendants from the arena.
func (tree *Tree) destroy(id EntryID) {
	entry, ok := tree.entries[id]
	if !ok {
		return
	}
	if entry.dir != nil {
		entry.dir.children.Scan(func(_ string, childID EntryID) bool {
			tree.destroy(childID)
			return true
		})
		tree.destroy(entry.dir.dotEntry)
	}
	delete(tree.entries, id)
}

// removeSubtree is the notification-bracketed removal shared by deletion and refresh.
func (tree *Tree) removeSubtree(id EntryID) {
	tree.notify(NotifyDeletingChild, id, "")
	tree.queue.killAll(tree, id)
	tree.detach(id)
	tree.destroy(id)
	tree.notify(NotifyChildDeleted, NoEntry, "")
}

// isWithin reports whether id is subtreeID or one of its descendants.
func (tree *Tree) isWithin(id, subtreeID EntryID) bool {
	for current := id; current != NoEntry; {
		if current == subtreeID {
			return true
		}
		entry, ok := tree.entries[current]
		if !ok {
			return false
		}
		current = entry.parent
	}
	return false
}

func newEntryFromInfo(kind Kind, name string, info FileInfo) *Entry {
	entry := newEntry(kind, name)
	entry.size = info.Size
	entry.mtime = time.Unix(info.MTime.Unix(), 0)
	entry.links = info.Links
	entry.mode = info.Mode
	entry.device = info.Device
	return entry
}

func entryForInfo(name string, info FileInfo) *Entry {
	if info.Mode.IsDir() {
		entry := newEntryFromInfo(KindDirectory, name, info)
		entry.dir.readState = ReadQueued
		return entry
	}
	return newEntryFromInfo(KindFile, name, info)
}

func (tree *Tree) beginReading() {
	tree.busy = true
	tree.aborted = false
	tree.queue.aborted = false
	tree.notify(NotifyStartingReading, NoEntry, "")
}

// StartScan discards the current contents and starts reading path. The top
// level entry is inserted before StartScan returns; its contents are filled
// in by Step or Run. A missing path yields a *NotFoundError and an empty tree.
func (tree *Tree) StartScan(path string, config ScanConfig) error {
	absolutePath, absErr := filepath.Abs(path)
	if absErr != nil {
		return &NotFoundError{Path: path, Err: absErr}
	}
	if resolvedPath, evalErr := filepath.EvalSymlinks(absolutePath); evalErr == nil {
		absolutePath = resolvedPath
	}
	tree.config = config.normalized()
	if tree.entries[tree.root].dir.children.Len() > 0 {
		tree.Clear()
	}
	tree.beginReading()

	info, statErr := tree.fs.Lstat(absolutePath)
	if statErr != nil {
		tree.logger.Warn("cannot stat scan root", zap.String(logFieldPath, absolutePath), zap.Error(statErr))
		tree.busy = false
		tree.notify(NotifyFinished, NoEntry, "")
		tree.notify(NotifyFinalizeLocal, NoEntry, "")
		return &NotFoundError{Path: absolutePath, Err: statErr}
	}

	topLevel := entryForInfo(filepath.Base(absolutePath), info)
	topLevel.url = absolutePath
	topLevelID, insertErr := tree.insertChild(tree.root, topLevel)
	if insertErr != nil {
		tree.busy = false
		return insertErr
	}
	tree.logger.Debug("scan started", zap.String(logFieldPath, absolutePath))
	if topLevel.dir != nil {
		tree.enqueue(&localReadJob{dir: topLevelID})
		return nil
	}
	tree.finishIfIdle()
	return nil
}

// Refresh re-reads the subtree at id from disk. Refreshing NoEntry, the root
// or the top-level entry rescans the current top-level path; refreshing a dot
// entry refreshes its directory. The refreshed path ignores exclude rules for
// itself.
func (tree *Tree) Refresh(id EntryID) error {
	if id == NoEntry || id == tree.root || id == tree.FirstToplevel() {
		topLevelPath := tree.URL()
		if topLevelPath == "" {
			return ErrEmptyTree
		}
		return tree.StartScan(topLevelPath, tree.config)
	}
	entry, ok := tree.entries[id]
	if !ok {
		return ErrUnknownEntry
	}
	if entry.kind == KindDotEntry {
		return tree.Refresh(entry.parent)
	}

	path := tree.Path(id)
	parentID := entry.parent
	entry.excluded = false
	tree.removeSubtree(id)
	tree.beginReading()

	info, statErr := tree.fs.Lstat(path)
	if statErr != nil {
		tree.logger.Warn("cannot stat refreshed path", zap.String(logFieldPath, path), zap.Error(statErr))
		tree.finishIfIdle()
		return &NotFoundError{Path: path, Err: statErr}
	}
	refreshed := entryForInfo(filepath.Base(path), info)
	if parentID == tree.root {
		refreshed.url = path
	}
	refreshedID, insertErr := tree.insertChild(parentID, refreshed)
	if insertErr != nil {
		tree.finishIfIdle()
		return insertErr
	}
	if refreshed.dir != nil {
		tree.enqueue(&localReadJob{dir: refreshedID})
		return nil
	}
	tree.finishIfIdle()
	return nil
}

// finishIfIdle ends a reading bracket that queued no work.
func (tree *Tree) finishIfIdle() {
	if len(tree.queue.jobs) > 0 {
		return
	}
	tree.busy = false
	tree.notify(NotifyFinished, NoEntry, "")
}

// DeleteSubtree removes an entry and its descendants from the tree only; the
// filesystem is not touched. A dot entry left empty by the deletion is
// removed as well once its directory has finished reading.
func (tree *Tree) DeleteSubtree(id EntryID) error {
	if id == tree.root {
		return ErrRootDeletion
	}
	entry, ok := tree.entries[id]
	if !ok {
		return ErrUnknownEntry
	}
	parentID := entry.parent
	tree.removeSubtree(id)
	tree.metrics.RecordSubtreeDeleted()

	parent, ok := tree.entries[parentID]
	if !ok || parent.kind != KindDotEntry || parent.dir.children.Len() > 0 {
		return nil
	}
	directory, ok := tree.entries[parent.parent]
	if !ok {
		tree.logger.Error("dot entry has no parent directory", zap.Uint64("entry", uint64(parentID)))
		return nil
	}
	if directory.IsFinished() {
		tree.removeSubtree(parentID)
	}
	return nil
}

// Abort drops every queued job and marks their directories aborted. Jobs
// queued by a job that is running right now are dropped as well. Ancestors of
// aborted directories keep their pending counts and so never report finished.
func (tree *Tree) Abort() {
	if len(tree.queue.jobs) == 0 {
		return
	}
	tree.queue.abort(tree)
	tree.busy = false
	tree.aborted = true
	tree.logger.Info("scan aborted", zap.String(logFieldPath, tree.URL()))
	tree.notify(NotifyAborted, NoEntry, "")
}

// Clear aborts pending jobs without notification and empties the root.
func (tree *Tree) Clear() {
	tree.queue.abort(tree)
	tree.notify(NotifyClearing, NoEntry, "")
	rootEntry := tree.entries[tree.root]
	tree.entries = map[EntryID]*Entry{tree.root: rootEntry}
	rootEntry.dir = newEntry(KindRoot, "").dir
	rootEntry.dir.readState = ReadFinished
	tree.busy = false
}

func (tree *Tree) isExcludedPath(path string, isDirectory bool) bool {
	if len(tree.config.ExcludePatterns) == 0 {
		return false
	}
	relativePath := utils.RelativePathOrSelf(path, tree.URL())
	return utils.MatchesExcludePattern(relativePath, isDirectory, tree.config.ExcludePatterns)
}
