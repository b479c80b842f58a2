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
	"time"
	"unsafe"

	"github.com/cloudwego/uring-reactor/internal/iouring"
	"github.com/cloudwego/uring-reactor/reactor"
)

const (
	timeoutAbs      = 1 << 0
	timeoutRealtime = 1 << 3
)

// LinkTimeout bounds how long the kernel will wait on the operation it is
// linked before (via IOSQE_IO_LINK) before cancelling it. It produces no
// useful result of its own: a kernel ETIME is reported as ErrTimerExpired
// and means the timeout fired first and the linked operation was
// cancelled; ErrOperationCancelled means the timeout itself was cancelled,
// which is how the kernel reports that the linked operation completed
// before the deadline.
type LinkTimeout struct {
	reactor.MarkOneshot
	spec  iouring.TimeSpec
	flags uint32
}

// Relative builds a LinkTimeout measured from when the kernel starts
// processing the chain.
func Relative(d time.Duration) *LinkTimeout {
	return &LinkTimeout{spec: iouring.NewTimeSpec(d.Nanoseconds())}
}

// Absolute builds a LinkTimeout that fires at a fixed wall-clock instant.
func Absolute(t time.Time) *LinkTimeout {
	d := t.Sub(time.Unix(0, 0))
	return &LinkTimeout{
		spec:  iouring.NewTimeSpec(d.Nanoseconds()),
		flags: timeoutAbs | timeoutRealtime,
	}
}

func (l *LinkTimeout) BuildSubmission() iouring.SQE {
	var sqe iouring.SQE
	sqe.Opcode = iouring.IORING_OP_LINK_TIMEOUT
	sqe.Addr = uint64(uintptr(unsafe.Pointer(&l.spec)))
	sqe.Len = 1
	sqe.OpcodeFlags = l.flags
	return sqe
}

func (l *LinkTimeout) HandleCompletion(entry iouring.CQE) Result[struct{}] {
	if entry.Res < 0 && syscall.Errno(-entry.Res) == syscall.ETIME {
		return ErrResult[struct{}](reactor.ErrTimerExpired)
	}
	if err := reactor.ResultError("link_timeout", entry.Res); err != nil {
		return ErrResult[struct{}](err)
	}
	return Ok(struct{}{})
}

func (l *LinkTimeout) TakeRequiredAllocations() reactor.Allocations {
	return reactor.SomeAllocations(&l.spec)
}
