package dirtree

import (
	"context"
)

// readJob fills in one directory-like entry. read may insert children and
// enqueue further jobs; discard is called instead of read when the job is
// dropped by Abort, Clear or a subtree removal.
type readJob interface {
	dirID() EntryID
	read(tree *Tree)
	discard(tree *Tree)
}

// jobQueue is a FIFO of pending read jobs. aborted makes enqueue drop jobs
// created by a job that was running while the queue was aborted.
type jobQueue struct {
	jobs    []readJob
	aborted bool
}

func (queue *jobQueue) pop() (readJob, bool) {
	if len(queue.jobs) == 0 {
		return nil, false
	}
	next := queue.jobs[0]
	queue.jobs[0] = nil
	queue.jobs = queue.jobs[1:]
	return next, true
}

// abort discards every queued job. Pending counters are left untouched.
func (queue *jobQueue) abort(tree *Tree) {
	dropped := queue.jobs
	queue.jobs = nil
	queue.aborted = true
	for _, job := range dropped {
		job.discard(tree)
	}
	tree.metrics.SetQueueLength(0)
}

// killAll drops queued jobs whose directory lies inside subtreeID. Their
// pending counts leave the ancestors together with the subtree itself.
func (queue *jobQueue) killAll(tree *Tree, subtreeID EntryID) {
	kept := queue.jobs[:0]
	for _, job := range queue.jobs {
		if tree.isWithin(job.dirID(), subtreeID) {
			job.discard(tree)
			continue
		}
		kept = append(kept, job)
	}
	for index := len(kept); index < len(queue.jobs); index++ {
		queue.jobs[index] = nil
	}
	queue.jobs = kept
	tree.metrics.SetQueueLength(len(queue.jobs))
}

// enqueue adds a job and counts it as pending on its directory and every
// ancestor. While the queue is aborted the job is discarded but still counted,
// so the unread directory keeps its ancestors unfinished.
func (tree *Tree) enqueue(job readJob) {
	tree.addPending(job.dirID(), 1)
	if tree.queue.aborted {
		job.discard(tree)
		return
	}
	tree.queue.jobs = append(tree.queue.jobs, job)
	tree.metrics.SetQueueLength(len(tree.queue.jobs))
}

// Step runs the next queued job and reports whether one was run. When the
// last job completes without an abort the tree emits Finished and stops
// being busy.
func (tree *Tree) Step() bool {
	job, ok := tree.queue.pop()
	if !ok {
		return false
	}
	tree.metrics.SetQueueLength(len(tree.queue.jobs))
	job.read(tree)
	tree.addPending(job.dirID(), -1)
	if len(tree.queue.jobs) == 0 && tree.busy && !tree.aborted {
		tree.busy = false
		tree.notify(NotifyFinished, NoEntry, "")
	}
	return true
}

// Run steps until the queue is empty or ctx is done. Cancellation aborts the
// scan and returns ctx.Err(); the partially built tree stays usable.
func (tree *Tree) Run(ctx context.Context) error {
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			tree.Abort()
			return ctxErr
		}
		if !tree.Step() {
			return nil
		}
	}
}
