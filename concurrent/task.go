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

// Task represents an opaque, nullary unit of work that can be executed by an
// Executor. Run must not panic to signal expected failure; a panic escaping
// Run terminates the worker goroutine that was running it (see ThreadFactory
// for the resulting pool behavior).
type Task interface {
	// Run performs the task's action. The executor makes no assumption about
	// its duration: Run may block for as long as it wants.
	Run()
}

// The TaskFunc type is an adapter to allow the use of ordinary functions as a
// Task.
type TaskFunc func()

var _ Task = TaskFunc(nil)

// Run implements Task. It calls f.
func (f TaskFunc) Run() {
	f()
}

// Cancellable is an optional capability a Task may implement. When a task
// implementing Cancellable is rejected by Executor.Submit, or is removed by
// Executor.CancelPending, its OnCancel hook is invoked instead of silently
// discarding the task. Executor.DrainInto does not invoke OnCancel: the
// caller receives the task directly and owns its disposition.
//
// OnCancel is always invoked outside of any executor-held lock, so it may
// block or re-enter the executor (e.g. to resubmit itself).
type Cancellable interface {
	Task

	// OnCancel is invoked when the executor will not run the task.
	OnCancel()
}

// CancellableFunc adapts a pair of plain functions into a Cancellable task.
type CancellableFunc struct {
	// RunFunc is invoked when the task is executed. Required.
	RunFunc func()

	// CancelFunc is invoked when the task is rejected by Submit or removed by
	// CancelPending instead of executed. Required.
	CancelFunc func()
}

var _ Cancellable = CancellableFunc{}

// Run implements Task.
func (f CancellableFunc) Run() {
	f.RunFunc()
}

// OnCancel implements Cancellable.
func (f CancellableFunc) OnCancel() {
	f.CancelFunc()
}
