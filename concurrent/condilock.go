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
	"context"
	"sync"
	"time"
)

// Condilock fuses a mutex, a condition variable and a predicate waiter into a
// single capability set. It is the primitive the executor uses to coordinate
// "workers waiting for work or death" (Executor.taskQueue's take side) and
// "callers waiting for no running workers" (Executor.noRunningWorkers).
//
// Three variants are provided: lockCondilock wraps a *sync.Mutex that may be
// shared with other critical sections (used by both queues' take side, where
// the lock also guards the queue's pointers); newMonitorCondilock builds a
// lockCondilock over a private mutex of its own, mirroring an
// intrinsic/"synchronized" monitor that exists purely to back the condition
// (used by the executor's no-running-workers signal); passiveCondilock,
// returned by NewPassiveCondilock, is a no-op stand-in for hosts that are
// entirely single-threaded. The executor itself never uses passiveCondilock,
// not even in threadless mode.
type Condilock interface {
	// Lock acquires the underlying mutex.
	Lock()

	// Unlock releases the underlying mutex. It must be called while holding
	// the lock.
	Unlock()

	// AwaitWhileFalse blocks the caller, with the lock held, until predicate
	// returns true or timeout elapses, whichever comes first. timeout is
	// measured against a monotonic clock, never a wall clock that the caller
	// may have derived from an external timestamp; use AwaitUntilDeadline for
	// that case. It returns true iff predicate became true before the
	// timeout; it returns (false, ErrCancelled) if ctx is done before either.
	//
	// As a fast path, if predicate() is already true on entry, AwaitWhileFalse
	// returns true without acquiring the lock and without consulting ctx.
	// Callers that need to observe cancellation even when the predicate holds
	// must check ctx themselves before calling.
	AwaitWhileFalse(ctx context.Context, predicate func() bool, timeout time.Duration) (bool, error)

	// AwaitUntilDeadline is like AwaitWhileFalse but the endpoint is an
	// absolute wall-clock deadline the caller computed externally (e.g. from
	// a request deadline), rather than a duration relative to now. Implementations
	// must not mix this with the monotonic clock used by AwaitWhileFalse.
	AwaitUntilDeadline(ctx context.Context, predicate func() bool, deadline time.Time) (bool, error)

	// SignalAllInLock acquires the lock, wakes every waiter blocked in
	// AwaitWhileFalse/AwaitUntilDeadline, and releases the lock.
	SignalAllInLock()

	// signalOneLocked wakes at most one waiter. The caller must already hold
	// the lock (e.g. via Lock, or by virtue of holding a shared putLock).
	signalOneLocked()

	// signalAllLocked wakes every waiter. The caller must already hold the
	// lock.
	signalAllLocked()

	// lockPtr exposes the underlying *sync.Mutex, or nil if none (the
	// passive variant). It lets the executor detect whether a queue's
	// putLock and takeLock happen to be the same mutex, to decide whether a
	// post-enqueue signal can be folded into the lock it already holds.
	lockPtr() *sync.Mutex
}

// waitChunkPolicy decomposes a wait into bounded sub-waits ("chunks"), with
// the predicate re-evaluated after each chunk. This preserves liveness when
// the wall clock jumps backwards past a deadline, when a producer's signal
// could in principle be missed, or when a deadline is expressed against a
// clock that can drift relative to this process's monotonic clock. Without
// chunking, a single long timer could sleep well past the moment it should
// have woken up to recheck.
type waitChunkPolicy struct {
	// chunk bounds a single relative wait.
	chunk time.Duration

	// firstDeadlineChunk bounds the first wait when the endpoint came from
	// AwaitUntilDeadline, capping how stale the wall-clock observation that
	// produced the deadline may be.
	firstDeadlineChunk time.Duration
}

// defaultWaitChunkPolicy mirrors the default used by the executor's condition
// locks: bound every sub-wait to one second so that a worker re-checks its
// predicate at least that often even if a signal is somehow lost.
var defaultWaitChunkPolicy = waitChunkPolicy{
	chunk:              time.Second,
	firstDeadlineChunk: time.Second,
}

func (p waitChunkPolicy) mustWaitInChunks() bool {
	return p.chunk > 0
}

// maxWaitChunk returns the largest sub-wait allowed once elapsed time has
// passed since the wait began.
func (p waitChunkPolicy) maxWaitChunk(elapsed time.Duration) time.Duration {
	if p.chunk <= 0 {
		return time.Duration(1<<63 - 1) // effectively unbounded
	}
	return p.chunk
}

//===----------------------------------------------------------------------------------------====//
// lockCondilock / monitorCondilock
//===----------------------------------------------------------------------------------------====//

// lockCondilock implements Condilock over an explicit, possibly-shared
// *sync.Mutex. Go's sync.Cond has no notion of a timed wait, so a timeout is
// synthesized by scheduling a one-shot timer that broadcasts the condition;
// the predicate loop then re-evaluates on every wakeup (spurious, signalled or
// timer-driven) and decides whether to keep waiting.
type lockCondilock struct {
	mu     *sync.Mutex
	cond   *sync.Cond
	policy waitChunkPolicy
}

var _ Condilock = (*lockCondilock)(nil)

// newLockCondilock creates a Condilock bound to mu, an externally owned lock
// (e.g. also used to guard a queue's head/tail pointers).
func newLockCondilock(mu *sync.Mutex) *lockCondilock {
	c := &lockCondilock{mu: mu, policy: defaultWaitChunkPolicy}
	c.cond = sync.NewCond(mu)
	return c
}

// newMonitorCondilock creates a Condilock that owns its lock privately,
// mirroring an intrinsic "synchronized" monitor that exists only to guard the
// condition itself (no other state is protected by it).
func newMonitorCondilock() *lockCondilock {
	return newLockCondilock(&sync.Mutex{})
}

// Lock implements Condilock.
func (c *lockCondilock) Lock() { c.mu.Lock() }

// Unlock implements Condilock.
func (c *lockCondilock) Unlock() { c.mu.Unlock() }

// SignalAllInLock implements Condilock.
func (c *lockCondilock) SignalAllInLock() {
	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()
}

// signalOneLocked implements Condilock.
func (c *lockCondilock) signalOneLocked() { c.cond.Signal() }

// signalAllLocked implements Condilock.
func (c *lockCondilock) signalAllLocked() { c.cond.Broadcast() }

// lockPtr implements Condilock.
func (c *lockCondilock) lockPtr() *sync.Mutex { return c.mu }

// AwaitWhileFalse implements Condilock.
func (c *lockCondilock) AwaitWhileFalse(ctx context.Context, predicate func() bool, timeout time.Duration) (bool, error) {
	if predicate() {
		return true, nil
	}

	// end is computed against the monotonic reading carried by time.Time
	// values produced by time.Now(); subtracting from it below therefore uses
	// the monotonic clock, not the wall clock.
	end := time.Now().Add(timeout)
	return c.await(ctx, predicate, end, c.policy.chunk)
}

// AwaitUntilDeadline implements Condilock.
func (c *lockCondilock) AwaitUntilDeadline(ctx context.Context, predicate func() bool, deadline time.Time) (bool, error) {
	if predicate() {
		return true, nil
	}

	// Strip the monotonic reading (if any) so comparisons against this
	// endpoint use the wall clock the caller presumably used to compute it.
	end := deadline.Round(0)
	return c.await(ctx, predicate, end, c.policy.firstDeadlineChunk)
}

// await implements the common predicate -> time -> cancellation -> wait loop
// described by the package's design: it is optimistic, so a predicate that
// turns true during the final chunk still yields a true result even if the
// deadline has technically passed by the time it's observed.
func (c *lockCondilock) await(ctx context.Context, predicate func() bool, end time.Time, firstChunk time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	chunkBound := firstChunk

	for {
		if predicate() {
			return true, nil
		}

		remaining := end.Sub(time.Now())
		if remaining <= 0 {
			return false, nil
		}

		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return false, ErrCancelled
			}
		}

		chunk := remaining
		if c.policy.mustWaitInChunks() {
			if bound := c.policy.maxWaitChunk(time.Since(start)); bound < chunk {
				chunk = bound
			}
			if chunkBound > 0 && chunkBound < chunk {
				chunk = chunkBound
			}
		}

		timer := time.AfterFunc(chunk, c.cond.Broadcast)
		c.cond.Wait()
		timer.Stop()
	}
}

//===----------------------------------------------------------------------------------------====//
// passiveCondilock
//===----------------------------------------------------------------------------------------====//

// passiveCondilock is for a host application that is itself single-threaded;
// the executor does not use it, threadless mode included. lock/unlock
// and signalling are no-ops because there is no second goroutine to
// coordinate with; a wait whose predicate is not already satisfied indicates
// programmer error, since nothing else will ever make it true.
type passiveCondilock struct{}

var _ Condilock = passiveCondilock{}

func (passiveCondilock) Lock()   {}
func (passiveCondilock) Unlock() {}

func (passiveCondilock) SignalAllInLock()    {}
func (passiveCondilock) signalOneLocked()    {}
func (passiveCondilock) signalAllLocked()    {}
func (passiveCondilock) lockPtr() *sync.Mutex { return nil }

// NewPassiveCondilock returns the no-op Condilock variant intended for hosts
// that are themselves entirely single-threaded. AwaitWhileFalse/AwaitUntilDeadline
// on it never block: they succeed immediately if the predicate already holds,
// and otherwise fail with ErrInvalidState, since there is no second thread of
// control that could ever make the predicate become true. The active variants
// differ here: with a false predicate they block until signalled, timed out
// or cancelled.
func NewPassiveCondilock() Condilock {
	return passiveCondilock{}
}

func (passiveCondilock) AwaitWhileFalse(ctx context.Context, predicate func() bool, timeout time.Duration) (bool, error) {
	if predicate() {
		return true, nil
	}
	return false, ErrInvalidState
}

func (passiveCondilock) AwaitUntilDeadline(ctx context.Context, predicate func() bool, deadline time.Time) (bool, error) {
	if predicate() {
		return true, nil
	}
	return false, ErrInvalidState
}
