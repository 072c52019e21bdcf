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

// Package concurrent implements a fixed-worker-count task executor: a pool of
// goroutines, allocated lazily at first use and never grown or shrunk, that
// drains a bounded FIFO of submitted tasks.
//
// The design is heavily influenced by Doug Lea's util.concurrent package
// (java.util.concurrent.ThreadPoolExecutor and its ancestor, the public-domain
// PooledExecutor [0]), adapted to goroutines: a concurrent queue flanked by two
// independent state machines (acceptance of new submissions, processing of the
// queue by workers), a condition-lock abstraction used to coordinate workers
// waiting for work and callers waiting for quiescence, and a dual-lock queue
// variant selected once the worker count passes a configurable threshold.
//
// Growing or shrinking the worker count, work stealing, priority scheduling and
// cross-process coordination are explicitly not goals of this package; callers
// that need those should compose Executor with something else.
//
// [0]: http://gee.cs.oswego.edu/dl/classes/EDU/oswego/cs/dl/util/concurrent/intro.html
package concurrent
