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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/uring-reactor/internal/iouring"
	"github.com/cloudwego/uring-reactor/reactor"
)

func TestReadBuildSubmissionPointsAtTheBufferItWasGiven(t *testing.T) {
	buf := make([]byte, 16)
	r := NewRead(3, buf)

	sqe := r.BuildSubmission()

	assert.EqualValues(t, iouring.IORING_OP_READ, sqe.Opcode)
	assert.EqualValues(t, 3, sqe.Fd)
	assert.EqualValues(t, 16, sqe.Len)
	assert.EqualValues(t, uintptr(ptrOf(buf)), uintptr(sqe.Addr))
}

func TestReadHandleCompletionTruncatesToTheReportedByteCount(t *testing.T) {
	buf := make([]byte, 16)
	copy(buf, "hello, world!!!!")
	r := NewRead(3, buf)
	r.BuildSubmission()

	result := r.HandleCompletion(iouring.CQE{Res: 5})

	value, ok := result.Unwrap()
	require.True(t, ok)
	assert.Equal(t, "hello", string(value))
}

func TestReadHandleCompletionOnNegativeResultReportsTheErrno(t *testing.T) {
	r := NewRead(3, make([]byte, 4))

	result := r.HandleCompletion(iouring.CQE{Res: -int32(syscall.EBADF)})

	_, ok := result.Unwrap()
	assert.False(t, ok)
	assert.ErrorIs(t, result.Err, syscall.EBADF)
}

func TestReadTakeRequiredAllocationsBeforeCompletionPreservesTheBuffer(t *testing.T) {
	buf := make([]byte, 4)
	r := NewRead(3, buf)

	allocations := r.TakeRequiredAllocations()

	require.True(t, allocations.Present())
	got, ok := allocations.Value().([]byte)
	require.True(t, ok)
	require.Len(t, got, len(buf))
	assert.Same(t, &buf[0], &got[0], "the retained allocation must be the exact backing array the kernel was told about")
}

func TestReadTakeRequiredAllocationsAfterCompletionIsEmpty(t *testing.T) {
	r := NewRead(3, make([]byte, 4))
	r.HandleCompletion(iouring.CQE{Res: 0})

	assert.False(t, r.TakeRequiredAllocations().Present())
}

func TestNewReadSizeAllocatesABufferOfTheRequestedLength(t *testing.T) {
	r := NewReadSize(3, 32)

	sqe := r.BuildSubmission()

	assert.EqualValues(t, 32, sqe.Len)
	assert.EqualValues(t, 32, len(r.buffer))
}

func TestWriteHandleCompletionReturnsBytesWritten(t *testing.T) {
	w := NewWrite(3, []byte("payload"))

	result := w.HandleCompletion(iouring.CQE{Res: 7})

	value, ok := result.Unwrap()
	require.True(t, ok)
	assert.Equal(t, 7, value)
}

func TestWriteHandleCompletionOnCancelledChainLegReportsOperationCancelled(t *testing.T) {
	w := NewWrite(3, []byte("payload"))

	result := w.HandleCompletion(iouring.CQE{Res: -int32(syscall.ECANCELED)})

	_, ok := result.Unwrap()
	assert.False(t, ok)
	assert.ErrorIs(t, result.Err, reactor.ErrOperationCancelled)
}
