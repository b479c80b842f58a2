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
	"github.com/bytedance/gopkg/lang/dirtmake"

	"github.com/cloudwego/uring-reactor/internal/iouring"
	"github.com/cloudwego/uring-reactor/reactor"
)

// Read reads from fd into buffer, starting at the kernel's current file
// offset (or the socket's next inbound data). The full length of buffer
// (not its capacity) is offered to the kernel; on completion the slice is truncated to
// exactly the bytes the kernel reported writing.
//
// buffer must remain valid and must not be touched by the caller between
// BuildSubmission and either HandleCompletion or the allocation being
// surrendered via TakeRequiredAllocations — the kernel may write into it
// at any point up to the completion.
type Read struct {
	reactor.MarkOneshot
	fd     int
	buffer []byte
	taken  bool
}

// NewRead builds a Read of fd into buffer.
func NewRead(fd int, buffer []byte) *Read {
	return &Read{fd: fd, buffer: buffer}
}

// NewReadSize builds a Read of fd into a freshly allocated buffer of n
// bytes. The buffer is allocated with dirtmake, skipping the zero-fill a
// plain make would do, since every byte of it is about to be overwritten
// by the kernel (or truncated away on a short read) before anything in
// this program observes it.
func NewReadSize(fd int, n int) *Read {
	return NewRead(fd, dirtmake.Bytes(n, n))
}

func (r *Read) BuildSubmission() iouring.SQE {
	var sqe iouring.SQE
	sqe.Opcode = iouring.IORING_OP_READ
	sqe.Fd = int32(r.fd)
	sqe.Len = uint32(len(r.buffer))
	if len(r.buffer) > 0 {
		sqe.Addr = uint64(uintptr(ptrOf(r.buffer)))
	}
	return sqe
}

func (r *Read) HandleCompletion(entry iouring.CQE) Result[[]byte] {
	r.taken = true
	if err := reactor.ResultError("read", entry.Res); err != nil {
		return ErrResult[[]byte](err)
	}
	n := int(entry.Res)
	if n > len(r.buffer) {
		n = len(r.buffer)
	}
	return Ok(r.buffer[:n])
}

func (r *Read) TakeRequiredAllocations() reactor.Allocations {
	if r.taken {
		return reactor.NoAllocations()
	}
	buf := r.buffer
	r.buffer = nil
	return reactor.SomeAllocations(buf)
}

// Write writes buffer to fd, starting at the kernel's current file offset.
//
// Unlike Read, Write does not take ownership of its buffer: the caller
// supplied it and the caller keeps it alive, the same as passing a byte
// slice to any other stdlib I/O call. TakeRequiredAllocations therefore
// never has anything to surrender.
type Write struct {
	reactor.MarkOneshot
	fd     int
	buffer []byte
}

// NewWrite builds a Write of buffer to fd.
func NewWrite(fd int, buffer []byte) *Write {
	return &Write{fd: fd, buffer: buffer}
}

func (w *Write) BuildSubmission() iouring.SQE {
	var sqe iouring.SQE
	sqe.Opcode = iouring.IORING_OP_WRITE
	sqe.Fd = int32(w.fd)
	sqe.Len = uint32(len(w.buffer))
	if len(w.buffer) > 0 {
		sqe.Addr = uint64(uintptr(ptrOf(w.buffer)))
	}
	return sqe
}

func (w *Write) HandleCompletion(entry iouring.CQE) Result[int] {
	if err := reactor.ResultError("write", entry.Res); err != nil {
		return ErrResult[int](err)
	}
	return Ok(int(entry.Res))
}

func (w *Write) TakeRequiredAllocations() reactor.Allocations {
	return reactor.NoAllocations()
}
