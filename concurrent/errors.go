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

import "errors"

// Sentinel errors returned by this package. They're grouped by the taxonomy
// of kinds the executor distinguishes: configuration errors surface
// synchronously from construction, state errors indicate a method was called
// when the executor's lifecycle made it meaningless, rejection indicates a
// submitted task could not be accepted, and cancellation indicates a wait was
// interrupted by its caller's context.
var (
	// ErrInvalidArgument is returned from NewExecutor when a configuration
	// value is out of range.
	ErrInvalidArgument = errors.New("concurrent: invalid argument")

	// ErrInvalidState is returned when an operation is incompatible with the
	// executor's current lifecycle, e.g. calling StartAndWorkInCurrentThread on
	// an executor that wasn't constructed in threadless mode, or re-invoking a
	// worker runnable after it already completed normally.
	ErrInvalidState = errors.New("concurrent: invalid state")

	// ErrRejected is returned by Submit when the task queue is full, or
	// acceptance is stopped, and the task does not implement Cancellable.
	ErrRejected = errors.New("concurrent: task rejected")

	// ErrCancelled is returned by waits (AwaitTermination and the condition
	// locks that back it) when the calling goroutine's context is done before
	// the awaited predicate becomes true.
	ErrCancelled = errors.New("concurrent: wait cancelled")
)
