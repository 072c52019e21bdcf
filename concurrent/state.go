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

// AcceptanceState describes whether the executor admits new submissions, and
// whether worker threads have been launched yet. The NeedsStart variants
// exist so that the very first event that would make workers necessary
// (a submission, an explicit Start, or the caller entering threadless mode)
// can detect that it is responsible for lazily launching them, without a
// second atomic read.
type AcceptanceState int32

const (
	// AcceptYes: accepting submissions; workers already launched.
	AcceptYes AcceptanceState = iota
	// AcceptYesNeedsStart: accepting submissions; workers not launched yet.
	AcceptYesNeedsStart
	// AcceptNo: refusing submissions; workers already launched (or never needed).
	AcceptNo
	// AcceptNoNeedsStart: refusing submissions; workers not launched yet.
	AcceptNoNeedsStart
)

func (s AcceptanceState) String() string {
	switch s {
	case AcceptYes:
		return "AcceptYes"
	case AcceptYesNeedsStart:
		return "AcceptYesNeedsStart"
	case AcceptNo:
		return "AcceptNo"
	case AcceptNoNeedsStart:
		return "AcceptNoNeedsStart"
	default:
		return "AcceptanceState(?)"
	}
}

// NeedsStart reports whether workers have not yet been launched in this state.
func (s AcceptanceState) NeedsStart() bool {
	return s == AcceptYesNeedsStart || s == AcceptNoNeedsStart
}

// Accepting reports whether submissions are currently admitted.
func (s AcceptanceState) Accepting() bool {
	return s == AcceptYes || s == AcceptYesNeedsStart
}

// ProcessingState describes whether workers drain the queue, and whether
// they must exit once it is empty (the AndDie variants, set permanently by
// shutdown).
type ProcessingState int32

const (
	// ProcessYes: workers drain the queue.
	ProcessYes ProcessingState = iota
	// ProcessYesAndDie: workers drain the queue, then exit once it is empty.
	ProcessYesAndDie
	// ProcessNo: workers do not drain the queue (paused).
	ProcessNo
	// ProcessNoAndDie: workers do not drain, and must exit once the queue is empty.
	ProcessNoAndDie
)

func (s ProcessingState) String() string {
	switch s {
	case ProcessYes:
		return "ProcessYes"
	case ProcessYesAndDie:
		return "ProcessYesAndDie"
	case ProcessNo:
		return "ProcessNo"
	case ProcessNoAndDie:
		return "ProcessNoAndDie"
	default:
		return "ProcessingState(?)"
	}
}

// MustDie reports whether this state requires workers to exit once the queue
// drains empty.
func (s ProcessingState) MustDie() bool {
	return s == ProcessYesAndDie || s == ProcessNoAndDie
}

// MustProcess reports whether workers should keep polling the queue in this
// state (either draining normally, or draining on the way to exiting).
func (s ProcessingState) MustProcess() bool {
	return s == ProcessYes || s == ProcessYesAndDie
}

// lifecycleState holds the executor's two orthogonal state machines.
// Transitions are serialized by mu (the package's "state mutex"); reads use
// atomic loads so the submission fast path never blocks on mu. Acceptance
// and processing are split into two independent words rather than packed
// into a single run-state enum, because the two axes are genuinely
// independent: either can change while the other holds steady.
type lifecycleState struct {
	mu         sync.Mutex
	acceptance int32 // atomic; AcceptanceState
	processing int32 // atomic; ProcessingState
}

// newLifecycleState returns a lifecycleState in its initial configuration:
// accepting submissions, workers not yet launched, processing enabled.
func newLifecycleState() *lifecycleState {
	return &lifecycleState{
		acceptance: int32(AcceptYesNeedsStart),
		processing: int32(ProcessYes),
	}
}

// Acceptance performs the lock-free fast-path read used by Submit.
func (s *lifecycleState) Acceptance() AcceptanceState {
	return AcceptanceState(atomic.LoadInt32(&s.acceptance))
}

// Processing performs the lock-free fast-path read used by the worker loop.
func (s *lifecycleState) Processing() ProcessingState {
	return ProcessingState(atomic.LoadInt32(&s.processing))
}

// IsShutdown reports whether shutdown has been requested. Per the invariant
// in the state machine design, once true this never becomes false again.
func (s *lifecycleState) IsShutdown() bool {
	return s.Processing().MustDie()
}

// ClearAcceptanceNeedsStart transitions AcceptYesNeedsStart to AcceptYes. It
// is the only transition fired by a submission, an explicit Start, or the
// caller entering threadless mode; per the transition table this event only
// fires from AcceptYesNeedsStart, so any other current state is left
// unchanged. Returns true iff it actually cleared the flag (i.e. the caller
// is responsible for lazily launching workers).
func (s *lifecycleState) ClearAcceptanceNeedsStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if AcceptanceState(s.acceptance) == AcceptYesNeedsStart {
		atomic.StoreInt32(&s.acceptance, int32(AcceptYes))
		return true
	}
	return false
}

// StartAccepting fires the start_accepting event. A no-op once shutdown.
func (s *lifecycleState) StartAccepting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Processing().MustDie() {
		return
	}
	switch AcceptanceState(s.acceptance) {
	case AcceptNo:
		atomic.StoreInt32(&s.acceptance, int32(AcceptYes))
	case AcceptNoNeedsStart:
		atomic.StoreInt32(&s.acceptance, int32(AcceptYesNeedsStart))
	}
}

// StopAccepting fires the stop_accepting event.
func (s *lifecycleState) StopAccepting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch AcceptanceState(s.acceptance) {
	case AcceptYes:
		atomic.StoreInt32(&s.acceptance, int32(AcceptNo))
	case AcceptYesNeedsStart:
		atomic.StoreInt32(&s.acceptance, int32(AcceptNoNeedsStart))
	}
}

// StartProcessing fires the start_processing event.
func (s *lifecycleState) StartProcessing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ProcessingState(s.processing) {
	case ProcessNo:
		atomic.StoreInt32(&s.processing, int32(ProcessYes))
	case ProcessNoAndDie:
		atomic.StoreInt32(&s.processing, int32(ProcessYesAndDie))
	}
}

// StopProcessing fires the stop_processing event.
func (s *lifecycleState) StopProcessing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ProcessingState(s.processing) {
	case ProcessYes:
		atomic.StoreInt32(&s.processing, int32(ProcessNo))
	case ProcessYesAndDie:
		atomic.StoreInt32(&s.processing, int32(ProcessNoAndDie))
	}
}

// Shutdown fires the shutdown event against both state machines: acceptance
// moves unconditionally to AcceptNo (final), and processing moves to its
// AndDie counterpart. The caller (Executor.Shutdown) is responsible for
// performing this while holding putLock, to fence against in-flight
// enqueues; lifecycleState itself only orders the two atomic stores under
// its own mutex.
func (s *lifecycleState) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	atomic.StoreInt32(&s.acceptance, int32(AcceptNo))
	switch ProcessingState(s.processing) {
	case ProcessYes:
		atomic.StoreInt32(&s.processing, int32(ProcessYesAndDie))
	case ProcessNo:
		atomic.StoreInt32(&s.processing, int32(ProcessNoAndDie))
	}
}
