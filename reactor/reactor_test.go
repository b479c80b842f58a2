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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/uring-reactor/internal/iouring"
)

func newBareReactor(capacity int) *Reactor {
	return &Reactor{tracked: newArena(capacity), staged: newStaging(capacity)}
}

func TestQueueSubmissionThenDispatchCompletesATrivialOperation(t *testing.T) {
	r := newBareReactor(4)
	notifier := NewChanNotifier()

	id := r.QueueSubmission(iouring.SQE{Opcode: iouring.IORING_OP_NOP}, &PollContext{Notifier: notifier})
	require.Equal(t, 1, r.staged.len())

	r.staged.remove(id)
	r.dispatch(iouring.CQE{UserData: uint64(id), Res: 0})

	select {
	case <-notifier:
	default:
		t.Fatal("dispatch should have woken the registered notifier")
	}

	entry, ready := r.PollCompletion(id, PollContext{Notifier: notifier})
	require.True(t, ready)
	assert.EqualValues(t, 0, entry.Res)

	_, ok := r.tracked.get(id)
	assert.False(t, ok, "a oneshot completion without IORING_CQE_F_MORE frees the tracking slot")
}

func TestDispatchBuffersCompletionsArrivingBeforeThePollerCatchesUp(t *testing.T) {
	r := newBareReactor(4)
	id := r.tracked.insert(waitingState(nil))

	r.dispatch(iouring.CQE{UserData: uint64(id), Res: 1, Flags: iouring.IORING_CQE_F_MORE})
	r.dispatch(iouring.CQE{UserData: uint64(id), Res: 2, Flags: iouring.IORING_CQE_F_MORE})
	r.dispatch(iouring.CQE{UserData: uint64(id), Res: 3})

	first, ready := r.PollCompletion(id, PollContext{})
	require.True(t, ready)
	assert.EqualValues(t, 1, first.Res)

	second, ready := r.PollCompletion(id, PollContext{})
	require.True(t, ready)
	assert.EqualValues(t, 2, second.Res)
	_, ok := r.tracked.get(id)
	require.True(t, ok, "the final buffered entry hasn't been delivered yet")

	third, ready := r.PollCompletion(id, PollContext{})
	require.True(t, ready)
	assert.EqualValues(t, 3, third.Res)

	_, ok = r.tracked.get(id)
	assert.False(t, ok, "the terminal entry (no F_MORE) frees the slot")
}

func TestIgnoreOperationBeforeSubmissionFreesTheSlotImmediately(t *testing.T) {
	r := newBareReactor(4)
	id := r.QueueSubmission(iouring.SQE{Opcode: iouring.IORING_OP_READ}, nil)
	require.Equal(t, 1, r.staged.len())

	r.IgnoreOperation(id, NoAllocations())

	assert.Equal(t, 0, r.staged.len())
	_, ok := r.tracked.get(id)
	assert.False(t, ok)
}

func TestIgnoreOperationAfterSubmissionRetainsAllocationsUntilTerminalCompletion(t *testing.T) {
	r := newBareReactor(4)
	buf := make([]byte, 4)
	id := r.tracked.insert(waitingState(nil))

	r.IgnoreOperation(id, SomeAllocations(buf))

	state, ok := r.tracked.get(id)
	require.True(t, ok, "an ignored but not-yet-complete operation stays tracked")
	assert.Equal(t, stateIgnored, state.kind)
	assert.True(t, state.retained.Present())

	r.dispatch(iouring.CQE{UserData: uint64(id), Res: 4})

	_, ok = r.tracked.get(id)
	assert.False(t, ok, "the terminal completion releases an ignored operation's slot")
}

func TestIgnoreOperationOnAMultishotStillProducingCompletionsStaysTracked(t *testing.T) {
	r := newBareReactor(4)
	id := r.tracked.insert(completedState(iouring.CQE{Res: 1, Flags: iouring.IORING_CQE_F_MORE}))

	r.IgnoreOperation(id, NoAllocations())

	state, ok := r.tracked.get(id)
	require.True(t, ok)
	assert.Equal(t, stateIgnored, state.kind)

	r.dispatch(iouring.CQE{UserData: uint64(id), Res: 2})

	_, ok = r.tracked.get(id)
	assert.False(t, ok)
}

func TestPollCompletionOfUnknownOperationIDPanics(t *testing.T) {
	r := newBareReactor(4)
	assert.Panics(t, func() { r.PollCompletion(OperationID(123), PollContext{}) })
}

func TestDispatchOfUnknownOperationIDPanics(t *testing.T) {
	r := newBareReactor(4)
	assert.Panics(t, func() { r.dispatch(iouring.CQE{UserData: 999}) })
}
