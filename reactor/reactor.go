/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package reactor

import (
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cloudwego/uring-reactor/internal/iouring"
)

// Reactor multiplexes a single io_uring instance across any number of
// in-flight operations, using a generational arena to give each one a
// stable identity and an insertion-ordered staging buffer to defer kernel
// submission until the next call to WaitForProgress.
//
// None of Reactor's methods are safe for concurrent use. This is
// deliberate: io_uring's IORING_SETUP_SINGLE_ISSUER and
// IORING_SETUP_COOP_TASKRUN flags assume a single submitting task, and a
// Reactor is meant to be driven from the same cooperative executor loop
// that polls the futures built on top of it.
type Reactor struct {
	ring    *iouring.Ring
	tracked *arena
	staged  *staging

	// Logger, if non-nil, receives debug-level tracing of the submit/drain
	// cycle. Left nil by New; callers opt in explicitly.
	Logger *logrus.Logger

	// Metrics, if non-nil, receives prometheus instrumentation for queued,
	// submitted, completed, and ignored operations. Left nil by New;
	// callers construct one with NewMetrics and assign it explicitly,
	// since registering metrics twice in a process panics.
	Metrics *Metrics
}

// New creates a Reactor backed by a fresh io_uring instance sized per cfg.
// If cfg is nil, DefaultConfig is used.
func New(cfg *Config) (*Reactor, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	ring, err := iouring.New(cfg.QueueSize, iouring.IORING_SETUP_COOP_TASKRUN|iouring.IORING_SETUP_SINGLE_ISSUER)
	if err != nil {
		return nil, err
	}

	capacity := int(cfg.QueueSize)
	return &Reactor{
		ring:    ring,
		tracked: newArena(capacity),
		staged:  newStaging(capacity),
	}, nil
}

// Close tears down the underlying ring. The Reactor must not be used
// afterwards.
func (r *Reactor) Close() error {
	return r.ring.Close()
}

// QueueSubmission stages entry for submission on the next WaitForProgress
// call and returns a handle identifying it. ctx may be nil, meaning nobody
// is yet waiting on the operation's completion — PollCompletion will still
// install a waiter the first time it is called for this id.
//
// The caller must ensure any memory entry references remains valid until
// either a terminal completion is observed through PollCompletion, or the
// operation is cancelled via IgnoreOperation.
func (r *Reactor) QueueSubmission(entry iouring.SQE, ctx *PollContext) OperationID {
	var initial operationState
	if ctx != nil && ctx.Notifier != nil {
		initial = waitingState(ctx.Notifier)
	} else {
		initial = ignoredState(NoAllocations())
	}

	id := r.tracked.insert(initial)
	r.staged.push(id, entry)

	r.Metrics.queued(entry.Opcode)
	r.Metrics.setStaged(r.staged.len())
	r.Metrics.setTracked(r.tracked.len())
	trace(r.Logger, id, "queued submission", logrus.Fields{"opcode": opcodeLabel(entry.Opcode)})

	return id
}

// PollCompletion reports whether id's operation has produced a completion
// entry since it was last observed. On Pending, ctx's notifier replaces any
// previously registered one. On Ready, callers of a Oneshot operation should
// not poll again; callers of a multishot operation may, and will either see
// further buffered completions immediately or again become Pending.
func (r *Reactor) PollCompletion(id OperationID, ctx PollContext) (entry iouring.CQE, ready bool) {
	state, ok := r.tracked.get(id)
	if !ok {
		programmingError("poll of unknown or already-removed operation id")
	}

	switch state.kind {
	case stateWaiting:
		state.notifier = ctx.Notifier
		return iouring.CQE{}, false

	case stateCompleted:
		completed := state.completed
		if completed.More() {
			*state = waitingState(ctx.Notifier)
		} else {
			r.tracked.remove(id)
			r.Metrics.setTracked(r.tracked.len())
		}
		return completed, true

	case stateBuffering:
		if len(state.buffering) == 0 {
			programmingError("buffering state with no buffered entries")
		}
		next := state.buffering[0]
		state.buffering = state.buffering[1:]

		if len(state.buffering) > 0 {
			if ctx.Notifier != nil {
				ctx.Notifier.Wake()
			}
			return next, true
		}

		if !next.More() {
			r.tracked.remove(id)
			r.Metrics.setTracked(r.tracked.len())
			return next, true
		}

		*state = waitingState(ctx.Notifier)
		return next, true

	case stateIgnored:
		if state.retained.Present() {
			programmingError("an explicitly forgotten operation shouldn't be polled again")
		}
		*state = waitingState(ctx.Notifier)
		return iouring.CQE{}, false

	default:
		programmingError("unreachable operation state kind %d", state.kind)
		return iouring.CQE{}, false
	}
}

// IgnoreOperation detaches id from any waiting task. If the operation has
// not yet been submitted to the kernel, its staged entry is dropped and the
// slot freed immediately. Otherwise the reactor keeps tracking it until its
// terminal completion arrives, at which point retained is simply released;
// retained should hold anything the kernel still references (for example a
// read buffer) so it isn't collected out from under an in-flight request.
func (r *Reactor) IgnoreOperation(id OperationID, retained Allocations) {
	if r.staged.remove(id) {
		r.tracked.remove(id)
		r.Metrics.setTracked(r.tracked.len())
		r.Metrics.setStaged(r.staged.len())
		r.Metrics.ignored()
		return
	}

	state, ok := r.tracked.get(id)
	if !ok {
		programmingError("ignore of unknown or already-removed operation id")
	}

	switch state.kind {
	case stateWaiting, stateIgnored:
		*state = ignoredState(retained)
	case stateCompleted:
		if state.completed.More() {
			*state = ignoredState(retained)
			r.Metrics.ignored()
			return
		}
		r.tracked.remove(id)
		r.Metrics.setTracked(r.tracked.len())
	case stateBuffering:
		var last iouring.CQE
		if n := len(state.buffering); n > 0 {
			last = state.buffering[n-1]
		}
		if last.More() {
			*state = ignoredState(retained)
			r.Metrics.ignored()
			return
		}
		r.tracked.remove(id)
		r.Metrics.setTracked(r.tracked.len())
	}

	r.Metrics.ignored()
}

// WaitForProgress submits every staged entry to the kernel and blocks until
// at least one tracked operation has progressed, or timeout elapses.
// A nil timeout blocks indefinitely. If nothing was submitted and no
// completions are already waiting, this always blocks for at least one
// completion; otherwise it only drains what is immediately available.
func (r *Reactor) WaitForProgress(timeout *time.Duration) error {
	pushed, err := r.staged.drainInto(r.ring, func() error {
		_, errno := r.ring.Submit()
		if errno != 0 && errno != syscall.EAGAIN && errno != syscall.EINTR {
			return &SubmissionError{Errno: errno}
		}
		return nil
	})
	r.Metrics.setStaged(r.staged.len())
	if err != nil {
		return err
	}
	r.Metrics.submitted(pushed)

	var minComplete uint32
	if pushed == 0 && r.ring.CQReady() == 0 {
		minComplete = 1
	}

	var ts *iouring.TimeSpec
	if timeout != nil {
		spec := iouring.NewTimeSpec(timeout.Nanoseconds())
		ts = &spec
	}

	_, errno := r.ring.SubmitAndWait(minComplete, ts)
	if errno != 0 {
		if errno == syscall.ETIME {
			if timeout == nil {
				programmingError("got ETIME without a timeout")
			}
			r.Metrics.waitOutcome("timeout")
		} else if errno != syscall.EINTR && errno != syscall.EAGAIN {
			return &SubmissionError{Errno: errno}
		}
	} else {
		r.Metrics.waitOutcome("progress")
	}

	for r.ring.CQReady() > 0 {
		cqe := r.ring.PeekCQE()
		entry := *cqe
		r.ring.AdvanceCQ()

		r.Metrics.completed(entry.More())
		r.dispatch(entry)
	}

	return nil
}

// dispatch routes one completion entry to the tracked operation it belongs
// to, transitioning that operation's state and waking its waiter if any.
func (r *Reactor) dispatch(entry iouring.CQE) {
	id := OperationID(entry.UserData)
	state, ok := r.tracked.get(id)
	if !ok {
		programmingError("completion for operation id not present in the state arena")
	}
	trace(r.Logger, id, "completion dispatched", logrus.Fields{"res": entry.Res, "more": entry.More()})

	switch state.kind {
	case stateWaiting:
		notifier := state.notifier
		*state = completedState(entry)
		if notifier != nil {
			notifier.Wake()
		}

	case stateCompleted:
		previous := state.completed
		*state = operationState{
			kind:      stateBuffering,
			buffering: append(make([]iouring.CQE, 0, 2), previous, entry),
		}

	case stateBuffering:
		state.buffering = append(state.buffering, entry)

	case stateIgnored:
		if !entry.More() {
			r.tracked.remove(id)
			r.Metrics.setTracked(r.tracked.len())
		}

	default:
		programmingError("unreachable operation state kind %d", state.kind)
	}
}

func moreLabel(more bool) string {
	if more {
		return "more"
	}
	return "final"
}

func opcodeLabel(opcode uint8) string {
	if name, ok := opcodeNames[opcode]; ok {
		return name
	}
	return "unknown"
}

var opcodeNames = map[uint8]string{
	iouring.IORING_OP_NOP:          "nop",
	iouring.IORING_OP_READ:         "read",
	iouring.IORING_OP_WRITE:        "write",
	iouring.IORING_OP_LINK_TIMEOUT: "link_timeout",
	iouring.IORING_OP_TIMEOUT:      "timeout",
	iouring.IORING_OP_FUTEX_WAIT:   "futex_wait",
	iouring.IORING_OP_FUTEX_WAKE:   "futex_wake",
}
