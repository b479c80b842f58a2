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

// Package iouring provides a low-level interface to Linux io_uring for
// high-performance asynchronous I/O. io_uring enables efficient submission
// and completion of I/O operations through shared memory ring buffers,
// avoiding syscall overhead for each operation.
//
// This package implements the ring transport only: mmap'd submission and
// completion queues, and the raw io_uring_setup/io_uring_enter/
// io_uring_register syscalls. It does not interpret submissions or
// completions — that is the job of the reactor package built on top of it.
//
// Requires Linux kernel 5.6+ (IORING_OP_READ/WRITE, IORING_FEAT_SINGLE_MMAP).
package iouring

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"syscall"
	"unsafe"
)

// io_uring opcodes - these define the type of I/O operation.
// Each operation is submitted via the submission queue.
const (
	IORING_OP_NOP          = 0  // No operation (useful for testing)
	IORING_OP_READV        = 1  // Vectored read (readv)
	IORING_OP_WRITEV       = 2  // Vectored write (writev)
	IORING_OP_FSYNC        = 3  // File synchronization
	IORING_OP_READ_FIXED   = 4  // Read using pre-registered buffers
	IORING_OP_WRITE_FIXED  = 5  // Write using pre-registered buffers
	IORING_OP_POLL_ADD     = 6  // Add a poll request
	IORING_OP_POLL_REMOVE  = 7  // Remove a poll request
	IORING_OP_TIMEOUT      = 11 // Timeout operation
	IORING_OP_ACCEPT       = 13 // Accept incoming connection (Linux 5.5+)
	IORING_OP_ASYNC_CANCEL = 14 // Cancel async operation (Linux 5.5+)
	IORING_OP_LINK_TIMEOUT = 15 // Linked timeout (Linux 5.5+)
	IORING_OP_CONNECT      = 16 // Connect to socket (Linux 5.5+)
	IORING_OP_CLOSE        = 19 // Close file descriptor (Linux 5.6+)
	IORING_OP_READ         = 22 // Read from file descriptor (Linux 5.6+)
	IORING_OP_WRITE        = 23 // Write to file descriptor (Linux 5.6+)
	IORING_OP_SEND         = 26 // Send data on socket (Linux 5.6+)
	IORING_OP_RECV         = 27 // Receive data from socket (Linux 5.6+)
	IORING_OP_FUTEX_WAIT   = 51 // Wait on a futex word (Linux 6.7+)
	IORING_OP_FUTEX_WAKE   = 52 // Wake waiters on a futex word (Linux 6.7+)
)

// io_uring setup flags - control behavior of the io_uring instance.
const (
	IORING_SETUP_IOPOLL        = 1 << 0  // Perform busy-waiting for I/O completion
	IORING_SETUP_SQPOLL        = 1 << 1  // Use kernel thread for submission queue polling
	IORING_SETUP_SQ_AFF        = 1 << 2  // Set CPU affinity for SQPOLL thread
	IORING_SETUP_CQSIZE        = 1 << 3  // App specifies CQ size (must be power of 2)
	IORING_SETUP_CLAMP         = 1 << 4  // Clamp SQ/CQ ring sizes to kernel limits
	IORING_SETUP_ATTACH_WQ     = 1 << 5  // Attach to existing workqueue
	IORING_SETUP_R_DISABLED    = 1 << 6  // Start with ring disabled (Linux 5.10+)
	IORING_SETUP_COOP_TASKRUN  = 1 << 8  // Don't interrupt the submitting task to run completions (Linux 5.19+)
	IORING_SETUP_SINGLE_ISSUER = 1 << 12 // Hint that only one task submits to this ring (Linux 6.0+)
)

// io_uring feature flags - returned in params.Features after setup.
const (
	IORING_FEAT_SINGLE_MMAP    = 1 << 0 // SQ and CQ rings can be mapped with a single mmap (kernel 5.4+)
	IORING_FEAT_SUBMIT_STABLE  = 1 << 2 // Submitted SQE parameters are stable; safe to reuse/drop non-buffer memory after submit
	IORING_FEAT_NATIVE_WORKERS = 1 << 9
)

// io_uring enter flags - control behavior of io_uring_enter syscall.
const (
	IORING_ENTER_GETEVENTS = 1 << 0 // Wait for completion events
	IORING_ENTER_SQ_WAKEUP = 1 << 1 // Wake SQPOLL thread if sleeping
	IORING_ENTER_SQ_WAIT   = 1 << 2 // Wait for SQPOLL thread to finish
	IORING_ENTER_EXT_ARG   = 1 << 3 // Pass extended argument (Linux 5.11+)
)

// SQE flags - control behavior of individual operations.
const (
	IOSQE_FIXED_FILE = 1 << 0 // Use fixed (registered) file descriptor
	IOSQE_IO_LINK    = 1 << 2 // Link next SQE in chain: on failure, cancel the rest of the chain
)

// io_uring_register opcodes - for SYS_IO_URING_REGISTER.
const (
	IORING_REGISTER_BUFFERS      = 0 // Register buffers for fixed buffer I/O
	IORING_UNREGISTER_BUFFERS    = 1 // Unregister buffers
	IORING_REGISTER_FILES        = 2 // Register file descriptors
	IORING_UNREGISTER_FILES      = 3 // Unregister file descriptors
	IORING_REGISTER_EVENTFD      = 4 // Register eventfd for completion notifications
	IORING_UNREGISTER_EVENTFD    = 5 // Unregister eventfd
	IORING_REGISTER_FILES_UPDATE = 6 // Update registered files (Linux 5.5+)
)

// CQE flags - bits set on CQE.Flags.
const (
	IORING_CQE_F_BUFFER = 1 << 0 // The low bits of flags carry the buffer ID
	IORING_CQE_F_MORE   = 1 << 1 // Further completions are expected for this request
)

// Params is the io_uring_params struct used by the setup syscall.
// Used both as input (flags, sq_thread_*) and output (features, offsets).
type Params struct {
	SqEntries    uint32        // Number of submission queue entries (power of 2)
	CqEntries    uint32        // Number of completion queue entries
	Flags        uint32        // Setup flags (IORING_SETUP_*)
	SqThreadCpu  uint32        // CPU for SQPOLL thread
	SqThreadIdle uint32        // Milliseconds before SQPOLL thread sleeps
	Features     uint32        // Kernel-supported features (output)
	WqFd         uint32        // Existing workqueue fd to attach to
	Resv         [3]uint32     // Reserved for future use
	SqOff        SQRingOffsets // Submission queue ring offsets (output)
	CqOff        CQRingOffsets // Completion queue ring offsets (output)
}

// SQRingOffsets holds byte offsets into the mmap'd SQ ring for locating fields.
type SQRingOffsets struct {
	Head        uint32 // Head pointer (consumer, kernel updates)
	Tail        uint32 // Tail pointer (producer, app updates)
	RingMask    uint32 // Ring mask (entries - 1)
	RingEntries uint32 // Ring size
	Flags       uint32
	Dropped     uint32
	Array       uint32 // SQE index indirection array
	Resv1       uint32
	Resv2       uint64
}

// CQRingOffsets holds byte offsets into the mmap'd CQ ring for locating fields.
type CQRingOffsets struct {
	Head        uint32 // Head pointer (consumer, app updates)
	Tail        uint32 // Tail pointer (producer, kernel updates)
	RingMask    uint32 // Ring mask (entries - 1)
	RingEntries uint32 // Ring size
	Overflow    uint32 // Overflow counter
	Cqes        uint32 // CQE array start
	Flags       uint64
	Resv1       uint32
	Resv2       uint64
}

// Ring is an io_uring instance: the file descriptor plus its memory-mapped
// submission and completion queues.
type Ring struct {
	fd      int             // io_uring file descriptor
	params  Params          // Parameters from setup
	sq      SubmissionQueue // Submission queue state
	cq      CompletionQueue // Completion queue state
	sqeMem  []byte          // Memory-mapped SQE array
	ringMem []byte          // Memory-mapped SQ/CQ ring (single mmap, IORING_FEAT_SINGLE_MMAP)
}

// SubmissionQueue represents the submission queue state.
// The application acts as producer (updates tail), the kernel as consumer
// (updates head).
type SubmissionQueue struct {
	head        *uint32 // Consumer index (kernel) - shared, modified at runtime
	tail        *uint32 // Producer index (app) - shared, modified at runtime
	ringMask    uint32  // Mask for ring wrap - constant after init
	ringEntries uint32  // Number of entries - constant after init
	flags       *uint32 // Flags - shared, modified at runtime
	dropped     *uint32 // Dropped submissions - shared, modified at runtime
	array       *uint32 // SQE index array - pointer for indexing
	sqes        []SQE   // Submission queue entries array
}

// CompletionQueue represents the completion queue state.
// The kernel acts as producer (updates tail), the application as consumer
// (updates head).
type CompletionQueue struct {
	head        *uint32 // Consumer index (app) - shared, modified at runtime
	tail        *uint32 // Producer index (kernel) - shared, modified at runtime
	ringMask    uint32  // Mask for ring wrap - constant after init
	ringEntries uint32  // Number of entries - constant after init
	overflow    *uint32 // Overflow counter - shared, modified at runtime
	cqes        []CQE   // Completion queue entries array
}

// SetupFlags bundles the flags New passes to io_uring_setup.
type SetupFlags uint32

// New creates a new io_uring instance.
// entries is the size of the submission queue (rounded up to a power of two
// by the kernel). flags are additional IORING_SETUP_* bits; callers
// typically pass IORING_SETUP_COOP_TASKRUN|IORING_SETUP_SINGLE_ISSUER to
// reflect a single-threaded, cooperative-scheduler design.
func New(entries uint32, flags SetupFlags) (*Ring, error) {
	params := Params{Flags: uint32(flags)}
	fd, err := Setup(entries, &params)
	if err != nil {
		return nil, fmt.Errorf("io_uring_setup failed: %w", err)
	}

	if params.Features&IORING_FEAT_SINGLE_MMAP == 0 {
		syscall.Close(fd)
		return nil, fmt.Errorf("kernel does not support IORING_FEAT_SINGLE_MMAP (requires Linux 5.4+)")
	}

	ring := &Ring{
		fd:     fd,
		params: params,
	}

	pageSize := uint32(syscall.Getpagesize())

	// Use single mmap for both SQ and CQ rings (IORING_FEAT_SINGLE_MMAP).
	sqRingSize := params.SqOff.Array + params.SqEntries*uint32(unsafe.Sizeof(uint32(0)))
	cqRingSize := params.CqOff.Cqes + params.CqEntries*uint32(unsafe.Sizeof(CQE{}))

	ringSize := sqRingSize
	if cqRingSize > ringSize {
		ringSize = cqRingSize
	}
	ringSize = (ringSize + pageSize - 1) &^ (pageSize - 1)

	ringPtr, err := syscall.Mmap(fd, 0, int(ringSize),
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_SHARED|syscall.MAP_POPULATE)
	if err != nil {
		ring.Close()
		return nil, fmt.Errorf("mmap ring (single) failed: %w", err)
	}
	ring.ringMem = ringPtr

	sqeSize := params.SqEntries * uint32(unsafe.Sizeof(SQE{}))
	sqePtr, err := syscall.Mmap(fd, int64(0x10000000), int(sqeSize),
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_SHARED|syscall.MAP_POPULATE)
	if err != nil {
		ring.Close()
		return nil, fmt.Errorf("mmap sqe failed: %w", err)
	}
	ring.sqeMem = sqePtr

	ring.sq.head = (*uint32)(unsafe.Pointer(&ring.ringMem[params.SqOff.Head]))
	ring.sq.tail = (*uint32)(unsafe.Pointer(&ring.ringMem[params.SqOff.Tail]))
	ring.sq.ringMask = *(*uint32)(unsafe.Pointer(&ring.ringMem[params.SqOff.RingMask]))
	ring.sq.ringEntries = *(*uint32)(unsafe.Pointer(&ring.ringMem[params.SqOff.RingEntries]))
	ring.sq.flags = (*uint32)(unsafe.Pointer(&ring.ringMem[params.SqOff.Flags]))
	ring.sq.dropped = (*uint32)(unsafe.Pointer(&ring.ringMem[params.SqOff.Dropped]))
	ring.sq.array = (*uint32)(unsafe.Pointer(&ring.ringMem[params.SqOff.Array]))
	ring.sq.sqes = (*[0x10000]SQE)(unsafe.Pointer(&ring.sqeMem[0]))[:params.SqEntries:params.SqEntries]

	ring.cq.head = (*uint32)(unsafe.Pointer(&ring.ringMem[params.CqOff.Head]))
	ring.cq.tail = (*uint32)(unsafe.Pointer(&ring.ringMem[params.CqOff.Tail]))
	ring.cq.ringMask = *(*uint32)(unsafe.Pointer(&ring.ringMem[params.CqOff.RingMask]))
	ring.cq.ringEntries = *(*uint32)(unsafe.Pointer(&ring.ringMem[params.CqOff.RingEntries]))
	ring.cq.overflow = (*uint32)(unsafe.Pointer(&ring.ringMem[params.CqOff.Overflow]))
	cqesPtr := unsafe.Pointer(&ring.ringMem[params.CqOff.Cqes])
	ring.cq.cqes = (*[0x10000]CQE)(cqesPtr)[:params.CqEntries:params.CqEntries]

	runtime.SetFinalizer(ring, func(r *Ring) {
		r.Close()
	})

	return ring, nil
}

// PeekSQE gets a submission queue entry for the caller to fill. It does NOT
// make the entry visible to the kernel. Returns nil if the submission queue
// is full. After filling the SQE, the caller must call AdvanceSQ() to make
// it visible. The returned SQE is zeroed before it is handed out, so no
// data from a previous operation carries over.
func (ring *Ring) PeekSQE() *SQE {
	q := &ring.sq

	tail := atomic.LoadUint32(q.tail)
	head := atomic.LoadUint32(q.head)

	if tail-head >= q.ringEntries {
		return nil
	}

	sqe := &q.sqes[tail&q.ringMask]
	*sqe = SQE{}

	arrayIdx := tail & q.ringMask
	arrayPtr := (*uint32)(unsafe.Pointer(uintptr(unsafe.Pointer(q.array)) + uintptr(arrayIdx)*4))
	*arrayPtr = arrayIdx

	return sqe
}

// AdvanceSQ makes one submission queue entry visible to the kernel. This
// should be called after the SQE from PeekSQE has been populated. This
// acts as a memory barrier.
func (ring *Ring) AdvanceSQ() {
	atomic.AddUint32(ring.sq.tail, 1)
}

// PendingSQEs returns the number of submission queue entries that have been
// queued but not yet submitted to the kernel.
func (ring *Ring) PendingSQEs() uint32 {
	return atomic.LoadUint32(ring.sq.tail) - atomic.LoadUint32(ring.sq.head)
}

// AvailableSQEs returns the number of additional entries that can be
// PeekSQE'd before the submission queue is full.
func (ring *Ring) AvailableSQEs() uint32 {
	return ring.sq.ringEntries - ring.PendingSQEs()
}

// Submit calls io_uring_enter to notify the kernel of pending submissions.
// Returns the number of submissions accepted by the kernel.
func (ring *Ring) Submit() (int, syscall.Errno) {
	toSubmit := ring.PendingSQEs()
	if toSubmit == 0 {
		return 0, 0
	}
	return ring.enter(toSubmit, 0, 0)
}

// SubmitAndWait calls io_uring_enter, submitting pending entries and
// blocking until at least minComplete completions are available or the
// given timeout (may be nil) elapses.
func (ring *Ring) SubmitAndWait(minComplete uint32, timeout *TimeSpec) (int, syscall.Errno) {
	toSubmit := ring.PendingSQEs()
	var flags uint32
	if minComplete > 0 {
		flags |= IORING_ENTER_GETEVENTS
	}
	if timeout != nil {
		flags |= IORING_ENTER_EXT_ARG
		return ring.enterTimeout(toSubmit, minComplete, flags, timeout)
	}
	return ring.enter(toSubmit, minComplete, flags)
}

func (ring *Ring) enter(toSubmit, minComplete, flags uint32) (int, syscall.Errno) {
	for {
		submitted, errno := Enter(ring.fd, toSubmit, minComplete, flags, nil)
		if errno == syscall.EINTR {
			continue
		}
		return submitted, errno
	}
}

func (ring *Ring) enterTimeout(toSubmit, minComplete, flags uint32, timeout *TimeSpec) (int, syscall.Errno) {
	arg := getEventsArg{ts: uintptr(unsafe.Pointer(timeout))}
	for {
		submitted, errno := Enter(ring.fd, toSubmit, minComplete, flags, unsafe.Pointer(&arg))
		if errno == syscall.EINTR {
			continue
		}
		return submitted, errno
	}
}

// getEventsArg mirrors io_uring_getevents_arg: only the timespec pointer is
// populated since sigmasks are unused by this package.
type getEventsArg struct {
	sigmask   uintptr
	sigmaskSz uint32
	pad       uint32
	ts        uintptr
}

// PeekCQE checks for a completion queue entry without blocking. Returns nil
// if no completion is available. Does NOT advance the head — call
// AdvanceCQ after processing.
func (ring *Ring) PeekCQE() *CQE {
	q := &ring.cq
	head := atomic.LoadUint32(q.head)
	tail := atomic.LoadUint32(q.tail)

	if head == tail {
		return nil
	}

	return &q.cqes[head&q.ringMask]
}

// WaitCQE blocks until at least one completion is available. Does NOT
// advance the head — call AdvanceCQ after processing.
func (ring *Ring) WaitCQE() (*CQE, error) {
	q := &ring.cq
	head := atomic.LoadUint32(q.head)
	tail := atomic.LoadUint32(q.tail)

	for head == tail {
		_, errno := Enter(ring.fd, 0, 1, IORING_ENTER_GETEVENTS, nil)
		if errno == syscall.EINTR || errno == syscall.EAGAIN {
			runtime.Gosched()
			tail = atomic.LoadUint32(q.tail)
			continue
		}
		if errno != 0 {
			return nil, errno
		}
		tail = atomic.LoadUint32(q.tail)
	}

	return &q.cqes[head&q.ringMask], nil
}

// AdvanceCQ advances the completion queue head by one, freeing the oldest
// CQE slot.
func (ring *Ring) AdvanceCQ() {
	atomic.AddUint32(ring.cq.head, 1)
}

// CQReady returns the number of completions waiting to be drained.
func (ring *Ring) CQReady() uint32 {
	return atomic.LoadUint32(ring.cq.tail) - atomic.LoadUint32(ring.cq.head)
}

// Close closes the io_uring instance and releases all associated resources:
// unmapping memory regions and closing the file descriptor. Returns the
// first error encountered during cleanup, if any.
func (ring *Ring) Close() error {
	if ring == nil {
		return nil
	}
	runtime.SetFinalizer(ring, nil)

	var firstErr error

	if ring.ringMem != nil {
		if err := syscall.Munmap(ring.ringMem); err != nil && firstErr == nil {
			firstErr = err
		}
		ring.ringMem = nil
	}

	if ring.sqeMem != nil {
		if err := syscall.Munmap(ring.sqeMem); err != nil && firstErr == nil {
			firstErr = err
		}
		ring.sqeMem = nil
	}
	if ring.fd >= 0 {
		if err := syscall.Close(ring.fd); err != nil && firstErr == nil {
			firstErr = err
		}
		ring.fd = -1
	}
	return firstErr
}
