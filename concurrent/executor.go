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
	"fmt"
	"sync/atomic"
	"time"
)

// Config controls the shape of an Executor. The zero value is valid but
// selects the always-reject, always-dual-lock edge of the configuration
// space (QueueCapacity 0, BasicQueueThreshold 0, SignalAllOnSubmit false);
// most callers want NewConfig instead.
type Config struct {
	// WorkerCount is the fixed number of worker goroutines. Zero selects
	// threadless mode: no goroutines are spawned by the executor itself, and
	// the first caller of StartAndWorkInCurrentThread becomes the sole
	// worker. There is no dynamic resizing once constructed.
	WorkerCount int

	// QueueCapacity bounds the number of pending tasks. Zero means every
	// submission is rejected: tasks only ever reach a worker through the
	// queue.
	QueueCapacity int

	// BasicQueueThreshold is the worker count at or below which the
	// single-lock queue is used; above it, the dual-lock queue is used.
	BasicQueueThreshold int

	// SignalAllOnSubmit, when true, wakes every idle worker on each
	// successful enqueue into a previously empty queue, rather than just
	// one. True trades a few redundant wakeups for better burst throughput.
	SignalAllOnSubmit bool

	// ThreadNamePrefix and Daemon are observability knobs only; this
	// implementation does not name goroutines or otherwise special-case
	// daemon-ness, since Go has no equivalent primitive, but both are
	// retained in Config so a ThreadNamePrefix can be surfaced in stats/logs
	// and Daemon can inform a caller's own process-exit bookkeeping.
	ThreadNamePrefix string
	Daemon           bool

	// ThreadFactory spawns the goroutine behind each pooled worker slot. Nil
	// selects DefaultThreadFactory. A host may supply its own to customize
	// how worker goroutines are launched and recovered; see ThreadFactory's
	// doc comment for the panic-recovery contract it is responsible for.
	ThreadFactory ThreadFactory
}

// ThreadFactory spawns the goroutine that will invoke run, a worker's run
// loop entry point. run does not itself catch panics from the tasks it
// executes; a panicking task unwinds out of run and terminates whatever
// goroutine is running it. DefaultThreadFactory recovers at that boundary so
// a panicking task costs the pool a single worker, not the process. A
// host-supplied factory may instead recover and invoke run again to keep the
// slot itself alive: run is safe to re-invoke as long as the worker has not
// yet completed normally (see worker.go's done/everStarted latch).
type ThreadFactory func(run func())

// DefaultThreadFactory runs run on a new goroutine, recovering any panic
// that escapes it so the process survives; the worker slot that panicked
// simply does not run again.
func DefaultThreadFactory(run func()) {
	go func() {
		defer func() { recover() }()
		run()
	}()
}

// NewConfig returns a Config with the package's recommended defaults
// (BasicQueueThreshold = DefaultBasicQueueThreshold, SignalAllOnSubmit =
// true) for the given worker count and queue capacity.
func NewConfig(workerCount, queueCapacity int) Config {
	return Config{
		WorkerCount:         workerCount,
		QueueCapacity:       queueCapacity,
		BasicQueueThreshold: DefaultBasicQueueThreshold,
		SignalAllOnSubmit:   true,
	}
}

// Validate reports ErrInvalidArgument if any field is out of range.
func (c Config) Validate() error {
	if c.WorkerCount < 0 {
		return fmt.Errorf("%w: WorkerCount must be >= 0, got %d", ErrInvalidArgument, c.WorkerCount)
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("%w: QueueCapacity must be >= 0, got %d", ErrInvalidArgument, c.QueueCapacity)
	}
	if c.BasicQueueThreshold < 0 {
		return fmt.Errorf("%w: BasicQueueThreshold must be >= 0, got %d", ErrInvalidArgument, c.BasicQueueThreshold)
	}
	return nil
}

// Executor is a fixed-worker-count task executor: tasks are queued and
// drained by a pre-allocated, lazily-started set of worker goroutines (or,
// in threadless mode, by the caller of StartAndWorkInCurrentThread).
//
// The zero value is not usable; construct with NewExecutor or
// NewThreadlessExecutor.
type Executor struct {
	config     Config
	threadless bool

	state   *lifecycleState
	queue   taskQueue
	workers *workerSet

	// noRunningWorkers is signalled whenever the running-worker count drops
	// to zero; AwaitTermination waits on it. It owns a private mutex (the
	// "monitor-based" Condilock variant) since nothing else needs to be
	// guarded alongside the predicate it backs.
	noRunningWorkers Condilock

	slots          []*worker // len == config.WorkerCount; empty in threadless mode
	threadlessSlot *worker   // used only in threadless mode
}

// NewExecutor constructs a pooled executor with cfg.WorkerCount background
// worker goroutines, lazily started on first use.
func NewExecutor(cfg Config) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.WorkerCount == 0 {
		return nil, fmt.Errorf("%w: NewExecutor requires WorkerCount >= 1; use NewThreadlessExecutor for WorkerCount == 0", ErrInvalidArgument)
	}

	e := &Executor{
		config:           cfg,
		state:            newLifecycleState(),
		queue:            newTaskQueue(cfg.QueueCapacity, cfg.WorkerCount, cfg.BasicQueueThreshold),
		workers:          newWorkerSet(cfg.WorkerCount),
		noRunningWorkers: newMonitorCondilock(),
		slots:            make([]*worker, cfg.WorkerCount),
	}
	for i := range e.slots {
		e.slots[i] = &worker{}
	}
	return e, nil
}

// NewThreadlessExecutor constructs an executor with zero background
// goroutines; the first caller of StartAndWorkInCurrentThread becomes its
// sole worker. cfg.WorkerCount is ignored and treated as zero.
func NewThreadlessExecutor(cfg Config) (*Executor, error) {
	cfg.WorkerCount = 0
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Executor{
		config:           cfg,
		threadless:       true,
		state:            newLifecycleState(),
		queue:            newTaskQueue(cfg.QueueCapacity, 0, cfg.BasicQueueThreshold),
		workers:          newWorkerSet(1),
		noRunningWorkers: newMonitorCondilock(),
		threadlessSlot:   &worker{},
	}
	return e, nil
}

//===----------------------------------------------------------------------------------------====//
// submission
//===----------------------------------------------------------------------------------------====//

type enqueueStatus int

const (
	enqueueAccepted enqueueStatus = iota
	enqueueRejected
	enqueueNeedsWorkerStart
)

// Submit enqueues task for execution. If the queue is full, or acceptance is
// stopped, the task is rejected: if it implements Cancellable, its OnCancel
// hook runs (outside any lock) and Submit returns nil; otherwise Submit
// returns ErrRejected. Submit never silently drops a task.
func (e *Executor) Submit(task Task) error {
	status := e.enqueueIfPossible(task)
	if status == enqueueNeedsWorkerStart {
		e.ensureWorkersStarted()
		status = e.enqueueIfPossible(task)
	}

	switch status {
	case enqueueAccepted:
		return nil
	case enqueueNeedsWorkerStart:
		// Can only happen if ensureWorkersStarted failed to flip the state,
		// which should not occur outside of a programming error; treat like
		// a normal rejection rather than looping forever.
		fallthrough
	default:
		if c, ok := task.(Cancellable); ok {
			c.OnCancel()
			return nil
		}
		return newRejectedTaskError(task)
	}
}

// enqueueIfPossible is the core of the submission path (4.5 in the package
// design): it re-reads acceptance state inside putLock to close the race
// against a concurrent shutdown, which mutates acceptance under the state
// mutex and then also touches putLock to fence in-flight enqueues.
func (e *Executor) enqueueIfPossible(task Task) enqueueStatus {
	put := e.queue.putLock()
	take := e.queue.takeCond()
	sameLock := take.lockPtr() == put

	put.Lock()

	acc := e.state.Acceptance()
	switch {
	case acc == AcceptYes:
		// fall through to enqueue attempt
	case acc == AcceptYesNeedsStart:
		if !e.threadless {
			put.Unlock()
			return enqueueNeedsWorkerStart
		}
		// threadless: enqueue now, the caller will run it once it enters
		// the worker loop via StartAndWorkInCurrentThread.
	default: // AcceptNo, AcceptNoNeedsStart
		put.Unlock()
		return enqueueRejected
	}

	wasEmpty, ok := e.queue.offerLastLocked(task)
	if !ok {
		put.Unlock()
		return enqueueRejected
	}

	if wasEmpty {
		if sameLock {
			e.signalAfterEnqueueLocked(take)
			put.Unlock()
		} else {
			put.Unlock()
			take.Lock()
			e.signalAfterEnqueueLocked(take)
			take.Unlock()
		}
	} else {
		put.Unlock()
	}
	return enqueueAccepted
}

func (e *Executor) signalAfterEnqueueLocked(take Condilock) {
	if e.config.SignalAllOnSubmit {
		take.signalAllLocked()
	} else {
		take.signalOneLocked()
	}
}

// ensureWorkersStarted performs the lazy worker-start protocol: the first
// event that needs workers running (a submission that found
// AcceptYesNeedsStart, or an explicit Start) clears the NeedsStart flag and,
// for a pooled (non-threadless) executor, spawns the worker goroutines. The
// underlying state transition is guarded by lifecycleState's own mutex, so
// concurrent callers race harmlessly: only one observes the clear and
// performs the spawn.
func (e *Executor) ensureWorkersStarted() {
	if e.threadless {
		return
	}
	if !e.state.ClearAcceptanceNeedsStart() {
		return
	}
	factory := e.config.ThreadFactory
	if factory == nil {
		factory = DefaultThreadFactory
	}
	for i, w := range e.slots {
		w, idx := w, i
		factory(func() {
			_ = w.runLoop(e, idx)
		})
	}
}

//===----------------------------------------------------------------------------------------====//
// worker-side wait loop
//===----------------------------------------------------------------------------------------====//

// waitForTaskOrDeath implements wait_for_task_or_death from the package
// design: poll for a task while processing is enabled, die if shutdown has
// been requested and the queue is empty, otherwise wait and retry. Any
// interrupt token set for this worker slot is cleared here silently: an
// idle worker observing a cancellation must never let it leak into the
// handling of the next task.
func (e *Executor) waitForTaskOrDeath(idx int) (Task, bool) {
	take := e.queue.takeCond()

	for {
		e.workers.consumeInterrupt(idx)

		take.Lock()
		proc := e.state.Processing()
		if proc.MustProcess() {
			task, wasNonEmptyAfter, ok := e.queue.pollFirstLocked()
			if ok {
				if wasNonEmptyAfter {
					take.signalOneLocked()
				}
				take.Unlock()
				return task, true
			}
		}
		dying := proc.MustDie() && e.queue.len() == 0
		take.Unlock()
		if dying {
			return nil, false
		}

		atomic.AddInt32(&e.workers.idle, 1)
		_, _ = take.AwaitWhileFalse(nil, func() bool {
			e.workers.consumeInterrupt(idx)
			p := e.state.Processing()
			if p.MustProcess() && e.queue.len() > 0 {
				return true
			}
			return p.MustDie() && e.queue.len() == 0
		}, time.Second)
		atomic.AddInt32(&e.workers.idle, -1)
	}
}

//===----------------------------------------------------------------------------------------====//
// threadless mode
//===----------------------------------------------------------------------------------------====//

// StartAndWorkInCurrentThread designates the calling goroutine as this
// executor's sole worker and runs the worker loop until shutdown and an
// empty queue, then returns. It is only valid on an executor constructed by
// NewThreadlessExecutor. A call made after an earlier call has returned
// normally returns ErrInvalidState immediately. A call made while an earlier
// one is still inside the worker loop, or after an earlier one ended in a
// panic, is not refused: it runs the worker loop as well.
func (e *Executor) StartAndWorkInCurrentThread() error {
	if !e.threadless {
		return fmt.Errorf("%w: StartAndWorkInCurrentThread requires a threadless executor", ErrInvalidState)
	}
	e.state.ClearAcceptanceNeedsStart()
	return e.threadlessSlot.runLoop(e, 0)
}

//===----------------------------------------------------------------------------------------====//
// lifecycle
//===----------------------------------------------------------------------------------------====//

// StartAccepting resumes admitting new submissions (start_accepting).
func (e *Executor) StartAccepting() { e.state.StartAccepting() }

// StopAccepting stops admitting new submissions (stop_accepting); pending
// and already-running tasks are unaffected.
func (e *Executor) StopAccepting() { e.state.StopAccepting() }

// StartProcessing resumes workers draining the queue (start_processing).
func (e *Executor) StartProcessing() {
	e.state.StartProcessing()
	e.queue.takeCond().SignalAllInLock()
}

// StopProcessing pauses workers draining the queue (stop_processing); they
// remain alive, idling until processing resumes or shutdown is requested.
func (e *Executor) StopProcessing() { e.state.StopProcessing() }

// Start resumes both processing and accepting, and eagerly performs the
// lazy worker-start if it hasn't happened yet.
func (e *Executor) Start() {
	e.state.StartProcessing()
	e.state.StartAccepting()
	e.ensureWorkersStarted()
	e.queue.takeCond().SignalAllInLock()
}

// Stop pauses both accepting and processing.
func (e *Executor) Stop() {
	e.state.StopAccepting()
	e.state.StopProcessing()
}

// Shutdown initiates an orderly shutdown: no new submissions are accepted,
// workers finish tasks already running and drain whatever remains queued,
// then exit. It is idempotent.
func (e *Executor) Shutdown() {
	put := e.queue.putLock()
	put.Lock()
	e.state.Shutdown()
	put.Unlock()

	e.queue.takeCond().SignalAllInLock()
}

// ShutdownNow initiates an immediate shutdown: like Shutdown, but processing
// is also paused immediately (a worker that is between tasks will not start
// another), optionally every worker's interrupt token is set, and every
// task still in the queue is drained into the returned slice rather than
// left for a worker to run. Tasks already running are not interrupted
// unless interruptWorkers is true and the task itself consults that signal.
func (e *Executor) ShutdownNow(interruptWorkers bool) []Task {
	e.Shutdown()
	e.state.StopProcessing()
	if interruptWorkers {
		e.InterruptWorkers()
	}
	return e.DrainPending()
}

// CancelPending removes every task currently queued, invoking its OnCancel
// hook (outside of any lock) if it implements Cancellable; tasks without
// that capability are simply dropped. If an OnCancel hook panics, the panic
// propagates to the caller and remaining queued tasks are left in place so
// the caller may retry.
func (e *Executor) CancelPending() {
	take := e.queue.takeCond()
	for {
		take.Lock()
		task, _, ok := e.queue.pollFirstLocked()
		take.Unlock()
		if !ok {
			return
		}
		if c, ok := task.(Cancellable); ok {
			c.OnCancel()
		}
	}
}

// DrainPending removes every task currently queued and returns them in FIFO
// order, without invoking OnCancel (the caller owns their disposition).
func (e *Executor) DrainPending() []Task {
	var drained []Task
	_ = e.DrainInto(func(task Task) error {
		drained = append(drained, task)
		return nil
	})
	return drained
}

// DrainInto removes every task currently queued, under the queue's take
// lock, and passes each to collect in FIFO order. If collect returns an
// error, DrainInto stops immediately, still signals any take-waiters (so a
// worker blocked on the now-shorter queue isn't left stranded), and
// propagates the error; any tasks not yet reached by collect remain queued.
func (e *Executor) DrainInto(collect func(task Task) error) error {
	take := e.queue.takeCond()
	take.Lock()
	defer func() {
		take.signalAllLocked()
		take.Unlock()
	}()

	for {
		task, _, ok := e.queue.pollFirstLocked()
		if !ok {
			return nil
		}
		if err := collect(task); err != nil {
			return err
		}
	}
}

// InterruptWorkers sets every worker's cancellation token. A worker clears
// its own token silently the next time it observes it during an idle wait;
// this does not otherwise affect a task that is already running unless that
// task itself consults IsWorkerThread-adjacent state. Before the sole
// worker of a threadless executor has entered the loop via
// StartAndWorkInCurrentThread, this is a no-op.
func (e *Executor) InterruptWorkers() {
	e.workers.interruptAll()
	e.queue.takeCond().SignalAllInLock()
}

// AwaitTermination blocks until no worker is running, or until timeout
// elapses, or until ctx is done, whichever comes first. It returns true iff
// termination was observed before the timeout. Pass a nil ctx to wait
// without regard to external cancellation.
func (e *Executor) AwaitTermination(ctx context.Context, timeout time.Duration) (bool, error) {
	return e.noRunningWorkers.AwaitWhileFalse(ctx, func() bool {
		return e.workers.nbrRunning() == 0
	}, timeout)
}

//===----------------------------------------------------------------------------------------====//
// introspection
//===----------------------------------------------------------------------------------------====//

// IsShutdown reports whether shutdown has been requested.
func (e *Executor) IsShutdown() bool { return e.state.IsShutdown() }

// IsTerminated reports whether shutdown has been requested and no worker is
// currently running.
func (e *Executor) IsTerminated() bool {
	return e.state.IsShutdown() && e.workers.nbrRunning() == 0
}

// NbrRunning is the number of workers currently alive (idle or working).
func (e *Executor) NbrRunning() int { return e.workers.nbrRunning() }

// NbrWorking is the number of workers currently executing a task: running
// minus idle, both sampled independently without a single consistent
// snapshot lock, matching the executor's lock-free read policy for counters.
func (e *Executor) NbrWorking() int {
	n := e.workers.nbrRunning() - e.workers.nbrIdle()
	if n < 0 {
		return 0
	}
	return n
}

// NbrIdle is the number of workers currently parked waiting for work.
func (e *Executor) NbrIdle() int { return e.workers.nbrIdle() }

// NbrPending is the number of tasks currently queued and not yet handed to
// a worker.
func (e *Executor) NbrPending() int { return e.queue.len() }

// IsWorkerThread reports whether the calling goroutine is one of this
// executor's workers (including, in threadless mode, the goroutine that
// called StartAndWorkInCurrentThread).
func (e *Executor) IsWorkerThread() bool { return e.workers.isWorkerThread() }

// QueueCapacity returns the configured queue capacity.
func (e *Executor) QueueCapacity() int { return e.queue.capacity() }

// WorkerCount returns the configured worker count (zero for a threadless
// executor).
func (e *Executor) WorkerCount() int { return e.config.WorkerCount }
