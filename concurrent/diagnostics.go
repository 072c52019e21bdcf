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

	"github.com/modern-go/reflect2"
)

// taskTypeName returns task's concrete type name, used to annotate
// rejection/cancellation diagnostics without forcing every caller to supply
// its own label. reflect2 gives us this without the extra allocation
// reflect.TypeOf(task).String() incurs for an interface value on some Go
// versions, and keeps the dependency doing real work here rather than only
// inside the jsoniter codec cache.
func taskTypeName(task Task) string {
	if task == nil {
		return "<nil>"
	}
	return reflect2.TypeOf(task).String()
}

// RejectedTaskError wraps ErrRejected with the concrete type of the task
// that was refused, to make executor logs actionable without requiring the
// caller to have kept a separate reference to what it submitted.
type RejectedTaskError struct {
	TaskType string
}

func (e *RejectedTaskError) Error() string {
	return fmt.Sprintf("%s: task of type %s", ErrRejected, e.TaskType)
}

func (e *RejectedTaskError) Unwrap() error { return ErrRejected }

// newRejectedTaskError builds a RejectedTaskError describing task.
func newRejectedTaskError(task Task) error {
	return &RejectedTaskError{TaskType: taskTypeName(task)}
}
