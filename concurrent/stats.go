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
	"io"

	"github.com/nimblepool/taskexec/jsonwriter"
)

// Stats is a point-in-time snapshot of an Executor's counters and lifecycle
// state, suitable for a health endpoint or periodic metrics emission. Every
// field is sampled independently (matching the package's lock-free read
// policy), so the snapshot is not a single atomic view of the executor.
type Stats struct {
	WorkerCount      int
	QueueCapacity    int
	NbrRunning       int
	NbrWorking       int
	NbrIdle          int
	NbrPending       int
	NbrStarted       int
	Acceptance       AcceptanceState
	Processing       ProcessingState
	IsShutdown       bool
	IsTerminated     bool
	ThreadNamePrefix string
}

// Snapshot samples the executor's current counters and lifecycle state.
func (e *Executor) Snapshot() Stats {
	return Stats{
		WorkerCount:      e.config.WorkerCount,
		QueueCapacity:    e.queue.capacity(),
		NbrRunning:       e.workers.nbrRunning(),
		NbrWorking:       e.NbrWorking(),
		NbrIdle:          e.workers.nbrIdle(),
		NbrPending:       e.queue.len(),
		NbrStarted:       e.workers.nbrStarted(),
		Acceptance:       e.state.Acceptance(),
		Processing:       e.state.Processing(),
		IsShutdown:       e.state.IsShutdown(),
		IsTerminated:     e.IsTerminated(),
		ThreadNamePrefix: e.config.ThreadNamePrefix,
	}
}

// WriteJSON streams the snapshot to w using the package's own jsonwriter,
// rather than encoding/json, to avoid a reflect-based marshal on every
// metrics tick.
func (st Stats) WriteJSON(w io.Writer) error {
	stream := jsonwriter.NewStream(w)
	stream.WriteObjectStart()

	stream.WriteObjectField("worker_count")
	stream.WriteInt(st.WorkerCount)
	stream.WriteMore()

	stream.WriteObjectField("queue_capacity")
	stream.WriteInt(st.QueueCapacity)
	stream.WriteMore()

	stream.WriteObjectField("nbr_running")
	stream.WriteInt(st.NbrRunning)
	stream.WriteMore()

	stream.WriteObjectField("nbr_working")
	stream.WriteInt(st.NbrWorking)
	stream.WriteMore()

	stream.WriteObjectField("nbr_idle")
	stream.WriteInt(st.NbrIdle)
	stream.WriteMore()

	stream.WriteObjectField("nbr_pending")
	stream.WriteInt(st.NbrPending)
	stream.WriteMore()

	stream.WriteObjectField("nbr_started")
	stream.WriteInt(st.NbrStarted)
	stream.WriteMore()

	stream.WriteObjectField("acceptance")
	stream.WriteString(st.Acceptance.String())
	stream.WriteMore()

	stream.WriteObjectField("processing")
	stream.WriteString(st.Processing.String())
	stream.WriteMore()

	stream.WriteObjectField("is_shutdown")
	stream.WriteBool(st.IsShutdown)
	stream.WriteMore()

	stream.WriteObjectField("is_terminated")
	stream.WriteBool(st.IsTerminated)
	stream.WriteMore()

	stream.WriteObjectField("thread_name_prefix")
	stream.WriteString(st.ThreadNamePrefix)

	stream.WriteObjectEnd()
	return stream.Flush()
}
