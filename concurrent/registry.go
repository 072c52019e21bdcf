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
	"fmt"

	"github.com/modern-go/concurrent"
)

// registry is a process-wide lookup of executors by name, for hosts that
// construct several long-lived executors (one per tenant, one per queue
// kind, ...) and want to locate them later, e.g. from an admin endpoint
// or a signal handler, without threading a reference through every layer.
// It's backed by modern-go/concurrent.Map, a drop-in sync.Map substitute
// that stays allocation-free on Go versions predating the generic sync.Map
// improvements; registry has no locking of its own.
var registry = concurrent.NewMap()

// ErrAlreadyRegistered is returned by Register when name is already in use.
var ErrAlreadyRegistered = fmt.Errorf("%w: name already registered", ErrInvalidArgument)

// Register makes e discoverable under name via Lookup. It fails with
// ErrAlreadyRegistered if name is already taken.
func Register(name string, e *Executor) error {
	if _, loaded := registry.LoadOrStore(name, e); loaded {
		return ErrAlreadyRegistered
	}
	return nil
}

// Lookup returns the executor registered under name, if any.
func Lookup(name string) (*Executor, bool) {
	v, ok := registry.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*Executor), true
}

// Unregister removes name from the registry, if present. It does not shut
// down the associated executor.
func Unregister(name string) {
	registry.Delete(name)
}

// Range calls f for every currently registered (name, executor) pair, in
// unspecified order. It stops early if f returns false.
func Range(f func(name string, e *Executor) bool) {
	registry.Range(func(key, value interface{}) bool {
		return f(key.(string), value.(*Executor))
	})
}
