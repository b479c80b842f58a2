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

//go:build linux && (amd64 || arm64 || riscv64)

package iouring

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux syscall numbers for io_uring on the architectures this file covers.
// These are stable across amd64/arm64/riscv64 — io_uring was added to all
// three with the same numbers relative to their respective syscall tables.
const (
	sysIoUringSetup    = 425
	sysIoUringEnter    = 426
	sysIoUringRegister = 427
)

// Setup initializes io_uring, creating an instance with the requested
// number of submission queue entries. Returns the ring file descriptor.
func Setup(entries uint32, params *Params) (int, error) {
	fd, _, errno := unix.Syscall(
		sysIoUringSetup,
		uintptr(entries),
		uintptr(unsafe.Pointer(params)),
		0,
	)
	if errno != 0 {
		return -1, errno
	}
	return int(fd), nil
}

// Enter submits queued entries and optionally waits for completions.
// sig points at an io_uring_getevents_arg when IORING_ENTER_EXT_ARG is set
// in flags, else it is nil.
func Enter(fd int, toSubmit, minComplete, flags uint32, sig unsafe.Pointer) (int, syscall.Errno) {
	var argSize uintptr
	if flags&IORING_ENTER_EXT_ARG != 0 {
		argSize = unsafe.Sizeof(getEventsArg{})
	}
	r, _, errno := unix.Syscall6(
		sysIoUringEnter,
		uintptr(fd),
		uintptr(toSubmit),
		uintptr(minComplete),
		uintptr(flags),
		uintptr(sig),
		argSize,
	)
	return int(r), errno
}

// Register registers resources (buffers, files, eventfds, ...) with an
// io_uring instance.
func Register(fd int, opcode uint32, arg unsafe.Pointer, nrArgs uint32) syscall.Errno {
	_, _, errno := unix.Syscall6(
		sysIoUringRegister,
		uintptr(fd),
		uintptr(opcode),
		uintptr(arg),
		uintptr(nrArgs),
		0,
		0,
	)
	return errno
}
