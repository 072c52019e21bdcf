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
	"runtime"
	"sync"
	"sync/atomic"
)

// getGoroutineID parses the calling goroutine's id out of its own stack
// trace header ("goroutine NNN [running]: ..."). There is no supported API
// for this in the standard library; this is the same technique used
// elsewhere in the wider ecosystem to let a component recognize "am I
// running on the thread I think I am" without plumbing an explicit token
// through every call.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		c := buf[i]
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}

// workerSet is the executor's record of its pool: which goroutine ids belong
// to it (for IsWorkerThread), and the running/started counters from the
// worker loop. It is immutable in membership once lazily started, except in
// the degenerate replacement case where a host-supplied factory re-spawns a
// worker goroutine after a panic; registerSelf tolerates that by simply
// adding the new id.
type workerSet struct {
	mu  sync.Mutex
	ids map[uint64]struct{}

	running int32 // atomic; balanced around each worker loop invocation
	started int32 // atomic; monotonic, incremented once per worker slot
	idle    int32 // atomic; balanced around each blocking wait for work

	// interrupted holds one cancellation token per worker slot; InterruptWorkers
	// sets every entry, and a worker clears its own when it observes the token
	// set during an idle wait, per the "interrupt as cancellation token" design.
	interrupted []int32
}

func newWorkerSet(slots int) *workerSet {
	if slots < 1 {
		slots = 1
	}
	return &workerSet{ids: make(map[uint64]struct{}), interrupted: make([]int32, slots)}
}

// interruptAll sets the cancellation token for every worker slot.
func (ws *workerSet) interruptAll() {
	for i := range ws.interrupted {
		atomic.StoreInt32(&ws.interrupted[i], 1)
	}
}

// consumeInterrupt reports and clears whether slot idx's token was set.
func (ws *workerSet) consumeInterrupt(idx int) bool {
	return atomic.CompareAndSwapInt32(&ws.interrupted[idx], 1, 0)
}

// registerSelf records the calling goroutine as a worker thread.
func (ws *workerSet) registerSelf() {
	id := getGoroutineID()
	ws.mu.Lock()
	ws.ids[id] = struct{}{}
	ws.mu.Unlock()
}

// isWorkerThread reports whether the calling goroutine is a registered
// worker (or, in threadless mode, the caller that entered the worker loop).
func (ws *workerSet) isWorkerThread() bool {
	id := getGoroutineID()
	ws.mu.Lock()
	_, ok := ws.ids[id]
	ws.mu.Unlock()
	return ok
}

func (ws *workerSet) nbrRunning() int { return int(atomic.LoadInt32(&ws.running)) }
func (ws *workerSet) nbrStarted() int { return int(atomic.LoadInt32(&ws.started)) }
func (ws *workerSet) nbrIdle() int    { return int(atomic.LoadInt32(&ws.idle)) }

// worker is a single slot in the pool. Its runLoop method is idempotent to
// re-entry as long as it has not completed normally (done == false): a
// host-supplied thread factory may recover from a panicking task by spawning
// a fresh goroutine that calls runLoop again, and the nbrStarted counter
// will not be double-incremented because everStarted latches after the
// first invocation. Once runLoop returns after observing shutdown, done
// latches true and a further invocation is refused.
type worker struct {
	mu          sync.Mutex
	everStarted bool
	done        bool
}

// runLoop implements the worker loop from the package design: register,
// count, repeatedly wait-for-and-run a task until told to die, then
// unregister the running count and signal quiescence if this was the last
// worker standing. It returns ErrInvalidState if invoked again after a
// previous invocation completed normally. idx identifies this worker's slot,
// used to address its interrupt token.
func (w *worker) runLoop(e *Executor, idx int) error {
	w.mu.Lock()
	if w.done {
		w.mu.Unlock()
		return ErrInvalidState
	}
	first := !w.everStarted
	w.everStarted = true
	w.mu.Unlock()

	e.workers.registerSelf()
	atomic.AddInt32(&e.workers.running, 1)
	if first {
		atomic.AddInt32(&e.workers.started, 1)
	}

	// completedNormally stays false if a task panics and unwinds out of this
	// loop; the deferred accounting below still runs (a panicking task must
	// not leave nbrRunning stuck nonzero), but done is only latched on a
	// normal return, so a thread factory that recovers and re-invokes run
	// finds this slot still eligible to restart.
	completedNormally := false
	defer func() {
		if left := atomic.AddInt32(&e.workers.running, -1); left == 0 {
			e.noRunningWorkers.SignalAllInLock()
		}
		if completedNormally {
			w.mu.Lock()
			w.done = true
			w.mu.Unlock()
		}
	}()

	for {
		task, ok := e.waitForTaskOrDeath(idx)
		if !ok {
			break
		}
		task.Run()
	}
	completedNormally = true
	return nil
}
