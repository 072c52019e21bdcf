/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package concurrent

import (
	"sync"
	"sync/atomic"
)

// DefaultBasicQueueThreshold is the worker count at or below which the
// single-lock queue is selected; above it, the dual-lock queue is used.
const DefaultBasicQueueThreshold = 4

// taskQueue is a bounded FIFO store of Task, with two operations performed
// under caller-held locks (offerLastLocked, pollFirstLocked) plus a
// concurrently readable len. The locking discipline is deliberately exposed
// rather than hidden: the executor's submission and worker-loop paths need
// to interleave queue operations with re-checking the lifecycle state under
// the very same lock, to close the races described by the package design
// (see Executor.enqueueIfPossible and Executor.waitForTaskOrDeath).
type taskQueue interface {
	// putLock returns the mutex that must be held around offerLastLocked, and
	// that the submission path also uses to re-check acceptance state.
	putLock() *sync.Mutex

	// takeCond returns the Condilock that workers wait on for availability,
	// and that must be held around pollFirstLocked.
	takeCond() Condilock

	// offerLastLocked enqueues task. Caller must hold putLock. ok is false
	// iff the queue was at capacity. wasEmpty reports whether the queue was
	// empty immediately before this call, i.e. whether a take-waiter should
	// be signalled.
	offerLastLocked(task Task) (wasEmpty bool, ok bool)

	// pollFirstLocked dequeues the head task, if any. Caller must hold
	// takeCond's lock. ok is false iff the queue was empty. wasNonEmptyAfter
	// reports whether the queue still held at least one task immediately
	// after removal, i.e. whether another take-waiter should be signalled.
	pollFirstLocked() (task Task, wasNonEmptyAfter bool, ok bool)

	// len returns the current size. Safe to call without holding any lock.
	len() int

	// capacity returns the queue's fixed capacity.
	capacity() int
}

// newTaskQueue selects the single-lock or dual-lock implementation per the
// worker_count/basic_queue_threshold rule: worker_count <= threshold uses the
// single-lock queue, whose simpler cache behaviour wins at small scale;
// above it the dual-lock queue's separated producer/consumer paths win.
func newTaskQueue(capacity, workerCount, threshold int) taskQueue {
	if workerCount <= threshold {
		return newSingleLockQueue(capacity)
	}
	return newDualLockQueue(capacity)
}

type taskNode struct {
	task Task
	next *taskNode
}

//===----------------------------------------------------------------------------------------====//
// single-lock queue
//===----------------------------------------------------------------------------------------====//

// singleLockQueue is a linked FIFO guarded by one mutex shared by both the
// producer and consumer side; it also backs the put/take condilock, so
// putLock and takeCond's lock are the very same *sync.Mutex.
type singleLockQueue struct {
	mu       sync.Mutex
	cond     *lockCondilock
	head     *taskNode
	tail     *taskNode
	size     atomic.Int64 // written under mu; len reads it without locking
	cap_     int
}

var _ taskQueue = (*singleLockQueue)(nil)

func newSingleLockQueue(capacity int) *singleLockQueue {
	q := &singleLockQueue{cap_: capacity}
	q.cond = newLockCondilock(&q.mu)
	return q
}

func (q *singleLockQueue) putLock() *sync.Mutex { return &q.mu }
func (q *singleLockQueue) takeCond() Condilock  { return q.cond }
func (q *singleLockQueue) capacity() int        { return q.cap_ }

func (q *singleLockQueue) len() int {
	return int(q.size.Load())
}

func (q *singleLockQueue) offerLastLocked(task Task) (wasEmpty bool, ok bool) {
	if q.size.Load() >= int64(q.cap_) {
		return false, false
	}
	wasEmpty = q.size.Load() == 0
	node := &taskNode{task: task}
	if q.tail == nil {
		q.head = node
	} else {
		q.tail.next = node
	}
	q.tail = node
	q.size.Add(1)
	return wasEmpty, true
}

func (q *singleLockQueue) pollFirstLocked() (task Task, wasNonEmptyAfter bool, ok bool) {
	if q.head == nil {
		return nil, false, false
	}
	node := q.head
	q.head = node.next
	if q.head == nil {
		q.tail = nil
	}
	node.next = nil
	n := q.size.Add(-1)
	return node.task, n > 0, true
}

//===----------------------------------------------------------------------------------------====//
// dual-lock queue
//===----------------------------------------------------------------------------------------====//

// paddedSize holds the queue's length as an int64, padded to a full cache
// line so that producer and consumer goroutines hammering it don't false-
// share the line with the head/tail pointers they also touch. Mirrors the
// "padded atomics" guidance: pad around the hot atomic rather than the
// pointers it's padding against.
type paddedSize struct {
	_    [56]byte // pad up to the cache line before the field
	n    int64    // atomic
	_pad [56]byte // pad the rest of the line after it
}

// dualLockQueue is a Michael/Scott-style linked queue with a dummy head
// node: offerLastLocked only ever touches the tail, under putMu; only
// pollFirstLocked touches head, under takeMu. The size is a separate atomic
// counter so len() never has to acquire either lock, at the cost of letting
// size transiently disagree with the list's true contents between the
// pointer mutation and the counter update (both happen before any other
// goroutine can observe the node, so this is benign).
type dualLockQueue struct {
	putMu sync.Mutex
	tail  *taskNode

	takeMu   sync.Mutex
	takeCnd  *lockCondilock
	head     *taskNode

	size paddedSize
	cap_ int
}

var _ taskQueue = (*dualLockQueue)(nil)

func newDualLockQueue(capacity int) *dualLockQueue {
	dummy := &taskNode{}
	q := &dualLockQueue{head: dummy, tail: dummy, cap_: capacity}
	q.takeCnd = newLockCondilock(&q.takeMu)
	return q
}

func (q *dualLockQueue) putLock() *sync.Mutex { return &q.putMu }
func (q *dualLockQueue) takeCond() Condilock  { return q.takeCnd }
func (q *dualLockQueue) capacity() int        { return q.cap_ }

func (q *dualLockQueue) len() int {
	return int(atomic.LoadInt64(&q.size.n))
}

func (q *dualLockQueue) offerLastLocked(task Task) (wasEmpty bool, ok bool) {
	if atomic.LoadInt64(&q.size.n) >= int64(q.cap_) {
		return false, false
	}
	node := &taskNode{task: task}
	q.tail.next = node
	q.tail = node
	// release-store: publishes node to any goroutine that acquire-loads size
	// to see a positive count in pollFirstLocked.
	n := atomic.AddInt64(&q.size.n, 1)
	return n == 1, true
}

func (q *dualLockQueue) pollFirstLocked() (task Task, wasNonEmptyAfter bool, ok bool) {
	// acquire-load: a positive count guarantees the producer's write of
	// head.next is visible here.
	if atomic.LoadInt64(&q.size.n) == 0 {
		return nil, false, false
	}
	first := q.head.next
	if first == nil {
		return nil, false, false
	}
	t := first.task
	first.task = nil
	q.head = first
	n := atomic.AddInt64(&q.size.n, -1)
	return t, n > 0, true
}
