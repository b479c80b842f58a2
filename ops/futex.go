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
	"unsafe"

	"github.com/cloudwego/uring-reactor/internal/iouring"
	"github.com/cloudwego/uring-reactor/reactor"
)

// FutexWait blocks until the futex word's value no longer equals compare,
// or until woken by a matching FutexWake.
//
// Corresponds to io_uring_prep_futex_wait(3).
type FutexWait struct {
	reactor.MarkOneshot
	futex   *atomic.Uint32
	compare uint32
}

// NewFutexWait builds a FutexWait on futex, waking once its value diverges
// from compare.
func NewFutexWait(futex *atomic.Uint32, compare uint32) *FutexWait {
	return &FutexWait{futex: futex, compare: compare}
}

func (f *FutexWait) BuildSubmission() iouring.SQE {
	var sqe iouring.SQE
	sqe.Opcode = iouring.IORING_OP_FUTEX_WAIT
	sqe.Addr = uint64(uintptr(unsafe.Pointer(f.futex)))
	sqe.Off = uint64(f.compare)
	return sqe
}

func (f *FutexWait) HandleCompletion(entry iouring.CQE) Result[struct{}] {
	if err := reactor.ResultError("futex_wait", entry.Res); err != nil {
		return ErrResult[struct{}](err)
	}
	return Ok(struct{}{})
}

func (f *FutexWait) TakeRequiredAllocations() reactor.Allocations {
	return reactor.NoAllocations()
}

// FutexWake wakes up to count waiters blocked on futex via FutexWait.
//
// Corresponds to io_uring_prep_futex_wake(3).
type FutexWake struct {
	reactor.MarkOneshot
	futex *atomic.Uint32
	count uint32
}

// NewFutexWake builds a FutexWake on futex, waking up to count waiters.
func NewFutexWake(futex *atomic.Uint32, count uint32) *FutexWake {
	return &FutexWake{futex: futex, count: count}
}

func (f *FutexWake) BuildSubmission() iouring.SQE {
	var sqe iouring.SQE
	sqe.Opcode = iouring.IORING_OP_FUTEX_WAKE
	sqe.Addr = uint64(uintptr(unsafe.Pointer(f.futex)))
	sqe.Off = uint64(f.count)
	return sqe
}

func (f *FutexWake) HandleCompletion(entry iouring.CQE) Result[uint32] {
	if err := reactor.ResultError("futex_wake", entry.Res); err != nil {
		return ErrResult[uint32](err)
	}
	return Ok(uint32(entry.Res))
}

func (f *FutexWake) TakeRequiredAllocations() reactor.Allocations {
	return reactor.NoAllocations()
}
