package dirtree

import "time"

// ScanMetrics receives counters about tree construction. It is optional;
// a nil ScanMetrics in Options disables collection.
type ScanMetrics interface {
	// RecordDirectoryRead records one finished read job and its outcome.
	RecordDirectoryRead(duration time.Duration, err error)
	// RecordEntryAdded records an entry inserted into the tree.
	RecordEntryAdded(kind Kind)
	// RecordSubtreeDeleted records an explicit subtree deletion.
	RecordSubtreeDeleted()
	// RecordChildError records a child that could not be stat'ed.
	RecordChildError()
	// RecordCacheRecord records one decoded cache line and whether it was rejected.
	RecordCacheRecord(err error)
	// SetQueueLength reports the number of queued jobs.
	SetQueueLength(length int)
}

type noopScanMetrics struct{}

func (noopScanMetrics) RecordDirectoryRead(time.Duration, error) {}
func (noopScanMetrics) RecordEntryAdded(Kind)                    {}
func (noopScanMetrics) RecordSubtreeDeleted()                    {}
func (noopScanMetrics) RecordChildError()                        {}
func (noopScanMetrics) RecordCacheRecord(error)                  {}
func (noopScanMetrics) SetQueueLength(int)                       {}
