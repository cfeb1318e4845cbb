package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/dirstat/internal/commands"
	"github.com/temirov/dirstat/internal/dirtree"
	"github.com/temirov/dirstat/internal/types"
	"github.com/temirov/dirstat/internal/utils"
)

const (
	levelInfo    = "info"
	levelWarning = "warning"

	warningUnreadableFormat = "cannot read directory %s"
	logMessageStreamDone    = "stream finished"
)

var errNilChannel = errors.New("stream: event channel is nil")

// ScanOptions configures StreamScan.
type ScanOptions struct {
	Root        string
	Config      dirtree.ScanConfig
	Depth       int
	EmitEntries bool
	CacheFile   string
	Logger      *zap.Logger
	Metrics     dirtree.ScanMetrics
	FileSystem  dirtree.FileSystem
}

// LoadOptions configures StreamCache.
type LoadOptions struct {
	CacheFile   string
	Depth       int
	EmitEntries bool
	Logger      *zap.Logger
	Metrics     dirtree.ScanMetrics
}

// session owns one Tree for the duration of a stream and translates its
// notifications into events. It runs entirely on the producer goroutine.
type session struct {
	out         chan<- Event
	command     string
	scanID      string
	origin      string
	emitEntries bool
	logger      *zap.Logger
	tree        *dirtree.Tree
	aborted     bool
	err         error
}

func newSession(out chan<- Event, command, origin string, emitEntries bool, logger *zap.Logger) *session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &session{
		out:         out,
		command:     command,
		scanID:      uuid.NewString(),
		origin:      origin,
		emitEntries: emitEntries,
		logger:      logger,
	}
}

// send delivers an event, blocking until the consumer receives it. The
// consumer drains the channel until it is closed, so a cancelled scan can
// still deliver its partial tree.
func (s *session) send(event Event) error {
	if s.err != nil {
		return s.err
	}
	if s.out == nil {
		s.err = errNilChannel
		return s.err
	}
	event.Version = SchemaVersion
	event.ScanID = s.scanID
	if event.Command == "" {
		event.Command = s.command
	}
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now().UTC()
	}
	s.out <- event
	return nil
}

func (s *session) warn(path, message string) {
	_ = s.send(Event{
		Kind:    EventKindWarning,
		Path:    path,
		Message: &LogEvent{Level: levelWarning, Message: message},
	})
}

// Notify implements dirtree.Observer.
func (s *session) Notify(notification dirtree.Notification) {
	switch notification.Kind {
	case dirtree.NotifyStartingReading:
		s.aborted = false
		_ = s.send(Event{Kind: EventKindStart, Path: s.origin})
	case dirtree.NotifyChildAdded:
		if s.emitEntries {
			s.sendEntry(notification.Entry)
		}
	case dirtree.NotifyDeletingChild:
		_ = s.send(Event{Kind: EventKindDeleted, Path: s.tree.Path(notification.Entry)})
	case dirtree.NotifyReadJobFinished:
		s.sendDirectory(notification.Entry)
	case dirtree.NotifyProgressInfo:
		_ = s.send(Event{
			Kind:    EventKindProgress,
			Path:    s.tree.Path(notification.Entry),
			Message: &LogEvent{Level: levelInfo, Message: notification.Text},
		})
	case dirtree.NotifyAborted:
		s.aborted = true
		_ = s.send(Event{Kind: EventKindAborted, Path: s.tree.URL()})
	}
}

func (s *session) sendEntry(entryID dirtree.EntryID) {
	entry, exists := s.tree.Entry(entryID)
	if !exists {
		return
	}
	entryPath := s.tree.Path(entryID)
	event := &EntryEvent{
		Path: entryPath,
		Name: entry.Name(),
		Type: commands.NodeType(entry),
	}
	if !entry.IsDotEntry() {
		event.SizeBytes = entry.Size()
		event.LastModified = utils.FormatEventTimestamp(entry.MTime())
	}
	_ = s.send(Event{Kind: EventKindEntry, Path: entryPath, Entry: event})
}

func (s *session) sendDirectory(entryID dirtree.EntryID) {
	entry, exists := s.tree.Entry(entryID)
	if !exists {
		return
	}
	directoryPath := s.tree.Path(entryID)
	if entry.ReadState() == dirtree.ReadError {
		s.warn(directoryPath, fmt.Sprintf(warningUnreadableFormat, directoryPath))
	}
	_ = s.send(Event{
		Kind: EventKindDirectory,
		Path: directoryPath,
		Directory: &DirectoryEvent{
			Path:           directoryPath,
			ReadState:      entry.ReadState().String(),
			TotalItems:     entry.TotalItems(),
			TotalSizeBytes: entry.TotalSize(),
		},
	})
}

func (s *session) fail(path string, err error) error {
	_ = s.send(Event{Kind: EventKindError, Path: path, Err: &ErrorEvent{Message: err.Error()}})
	return err
}

// run drives the tree to completion or cancellation, then emits the tree,
// the summary and, unless the scan was aborted, writes the cache file.
func (s *session) run(ctx context.Context, tree *dirtree.Tree, depth int, cacheFile string, begin func() error) error {
	s.tree = tree
	unsubscribe := tree.Subscribe(s)
	defer unsubscribe()

	if beginErr := begin(); beginErr != nil {
		return s.fail(s.origin, beginErr)
	}
	runErr := tree.Run(ctx)

	builder := commands.TreeBuilder{Depth: depth}
	node, buildErr := builder.GetTreeData(tree, dirtree.NoEntry)
	if buildErr != nil {
		return s.fail(s.origin, buildErr)
	}
	if node != nil {
		if err := s.send(Event{Kind: EventKindTree, Path: node.Path, Tree: node}); err != nil {
			return err
		}
	}
	summary := commands.Summarize(tree, s.aborted)
	if err := s.send(Event{Kind: EventKindSummary, Path: summary.Root, Summary: &summary}); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	if cacheFile != "" && !s.aborted {
		if cacheErr := tree.WriteCache(cacheFile, dirtree.NoEntry); cacheErr != nil {
			return s.fail(cacheFile, cacheErr)
		}
	}
	s.logger.Debug(logMessageStreamDone,
		zap.String("command", s.command),
		zap.String("scan_id", s.scanID),
		zap.Int("items", summary.TotalItems),
		zap.Int64("bytes", summary.TotalSizeBytes))
	if err := s.send(Event{Kind: EventKindDone, Path: summary.Root}); err != nil {
		return err
	}
	return s.err
}

// StreamScan scans opts.Root and streams the scan lifecycle to out. The
// caller owns out and must keep receiving until StreamScan returns.
func StreamScan(ctx context.Context, opts ScanOptions, out chan<- Event) error {
	if opts.Root == "" {
		return fmt.Errorf("stream: scan root path is empty")
	}
	tree := dirtree.New(dirtree.Options{
		Logger:     opts.Logger,
		Metrics:    opts.Metrics,
		FileSystem: opts.FileSystem,
	})
	s := newSession(out, types.CommandScan, opts.Root, opts.EmitEntries, opts.Logger)
	return s.run(ctx, tree, opts.Depth, opts.CacheFile, func() error {
		return tree.StartScan(opts.Root, opts.Config)
	})
}

// StreamCache loads a cache file and streams it like a scan.
func StreamCache(ctx context.Context, opts LoadOptions, out chan<- Event) error {
	if opts.CacheFile == "" {
		return fmt.Errorf("stream: cache file path is empty")
	}
	tree := dirtree.New(dirtree.Options{
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	s := newSession(out, types.CommandLoad, opts.CacheFile, opts.EmitEntries, opts.Logger)
	return s.run(ctx, tree, opts.Depth, "", func() error {
		return tree.ReadCache(opts.CacheFile, dirtree.DefaultScanConfig())
	})
}
