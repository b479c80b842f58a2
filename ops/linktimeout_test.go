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

package ops

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/uring-reactor/internal/iouring"
	"github.com/cloudwego/uring-reactor/reactor"
)

func TestRelativeLinkTimeoutCarriesNoAbsoluteFlags(t *testing.T) {
	l := Relative(250 * time.Millisecond)

	sqe := l.BuildSubmission()

	assert.EqualValues(t, iouring.IORING_OP_LINK_TIMEOUT, sqe.Opcode)
	assert.Zero(t, sqe.OpcodeFlags)
}

func TestAbsoluteLinkTimeoutSetsRealtimeAbsoluteFlags(t *testing.T) {
	l := Absolute(time.Now().Add(time.Hour))

	sqe := l.BuildSubmission()

	assert.EqualValues(t, timeoutAbs|timeoutRealtime, sqe.OpcodeFlags)
}

func TestLinkTimeoutHandleCompletionOnItsOwnExpiryReportsTimerExpired(t *testing.T) {
	l := Relative(time.Millisecond)

	result := l.HandleCompletion(iouring.CQE{Res: -int32(syscall.ETIME)})

	_, ok := result.Unwrap()
	assert.False(t, ok)
	assert.ErrorIs(t, result.Err, reactor.ErrTimerExpired)
}

func TestLinkTimeoutHandleCompletionOnSuccessIsOk(t *testing.T) {
	l := Relative(time.Millisecond)

	result := l.HandleCompletion(iouring.CQE{Res: 0})

	_, ok := result.Unwrap()
	assert.True(t, ok)
}

func TestLinkTimeoutRetainsItsOwnTimespecUntilCompletion(t *testing.T) {
	l := Relative(time.Second)

	allocations := l.TakeRequiredAllocations()

	require.True(t, allocations.Present())
	spec, ok := allocations.Value().(*iouring.TimeSpec)
	require.True(t, ok)
	assert.Same(t, &l.spec, spec)
}
