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

import "github.com/cloudwego/uring-reactor/internal/iouring"

// Notifier is the handle a cooperative executor passes when polling a
// task, used by the reactor to reawaken that task once progress is
// available. Wake may be called from the same goroutine that is polling
// (the reactor is single-threaded by design); implementations should be
// cheap and idempotent.
type Notifier interface {
	Wake()
}

// PollContext carries the notifier for a single poll call, mirroring the
// executor-supplied context a cooperative scheduler passes to a future's
// poll method.
type PollContext struct {
	Notifier Notifier
}

// ChanNotifier is a channel-backed Notifier: Wake performs a non-blocking
// send, so a slow or absent consumer never stalls the reactor's drain
// loop. Given for convenience to callers wiring this package into a
// channel-driven executor loop.
type ChanNotifier chan struct{}

// NewChanNotifier returns a ChanNotifier with a capacity-1 buffer, enough
// to hold a single pending wake-up.
func NewChanNotifier() ChanNotifier {
	return make(ChanNotifier, 1)
}

// Wake performs a non-blocking send on the channel.
func (c ChanNotifier) Wake() {
	select {
	case c <- struct{}{}:
	default:
	}
}

// FuncNotifier adapts a plain function to the Notifier interface.
type FuncNotifier func()

// Wake invokes the wrapped function.
func (f FuncNotifier) Wake() {
	f()
}

// stateKind distinguishes the four cases of operationState.
type stateKind uint8

const (
	stateWaiting stateKind = iota
	stateCompleted
	stateBuffering
	stateIgnored
)

// operationState is the reactor's per-operation tracking record: exactly
// one of Waiting, Completed, Buffering, or Ignored holds at any time,
// discriminated by kind.
type operationState struct {
	kind      stateKind
	notifier  Notifier        // stateWaiting
	completed iouring.CQE     // stateCompleted
	buffering []iouring.CQE   // stateBuffering
	retained  Allocations     // stateIgnored
}

func waitingState(notifier Notifier) operationState {
	return operationState{kind: stateWaiting, notifier: notifier}
}

func completedState(entry iouring.CQE) operationState {
	return operationState{kind: stateCompleted, completed: entry}
}

func ignoredState(retained Allocations) operationState {
	return operationState{kind: stateIgnored, retained: retained}
}
