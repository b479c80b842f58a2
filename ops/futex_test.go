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
	"sync/atomic"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/uring-reactor/internal/iouring"
)

func TestFutexWaitBuildSubmissionEncodesTheComparisonValueInOff(t *testing.T) {
	var word atomic.Uint32
	w := NewFutexWait(&word, 42)

	sqe := w.BuildSubmission()

	assert.EqualValues(t, iouring.IORING_OP_FUTEX_WAIT, sqe.Opcode)
	assert.EqualValues(t, 42, sqe.Off)
	assert.NotZero(t, sqe.Addr)
}

func TestFutexWaitHandleCompletionOnSuccessIsOk(t *testing.T) {
	var word atomic.Uint32
	w := NewFutexWait(&word, 0)

	result := w.HandleCompletion(iouring.CQE{Res: 0})

	_, ok := result.Unwrap()
	assert.True(t, ok)
}

func TestFutexWaitHandleCompletionOnErrorReportsIt(t *testing.T) {
	var word atomic.Uint32
	w := NewFutexWait(&word, 0)

	result := w.HandleCompletion(iouring.CQE{Res: -int32(syscall.EAGAIN)})

	_, ok := result.Unwrap()
	assert.False(t, ok)
	assert.ErrorIs(t, result.Err, syscall.EAGAIN)
}

func TestFutexWakeBuildSubmissionEncodesTheWakeCountInOff(t *testing.T) {
	var word atomic.Uint32
	w := NewFutexWake(&word, 1)

	sqe := w.BuildSubmission()

	assert.EqualValues(t, iouring.IORING_OP_FUTEX_WAKE, sqe.Opcode)
	assert.EqualValues(t, 1, sqe.Off)
}

func TestFutexWakeHandleCompletionReturnsWokenCount(t *testing.T) {
	var word atomic.Uint32
	w := NewFutexWake(&word, 4)

	result := w.HandleCompletion(iouring.CQE{Res: 2})

	value, ok := result.Unwrap()
	require.True(t, ok)
	assert.EqualValues(t, 2, value)
}

func TestFutexOperationsRequireNoRetainedAllocations(t *testing.T) {
	var word atomic.Uint32
	assert.False(t, NewFutexWait(&word, 0).TakeRequiredAllocations().Present())
	assert.False(t, NewFutexWake(&word, 1).TakeRequiredAllocations().Present())
}
