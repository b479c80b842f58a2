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

// Package reactor implements a single-threaded, cooperative-scheduler
// friendly asynchronous I/O reactor on top of Linux io_uring. It tracks
// in-flight kernel operations by a stable generational identity, mediates
// between staged-but-unsubmitted entries and the kernel rings, and exposes
// a small batching protocol for kernel-ordered (linked) chains of
// operations.
package reactor

import (
	"github.com/cloudwego/uring-reactor/internal/iouring"
)

// Allocations is the type-erased, optionally-empty blob an Operation
// surrenders to the reactor when it is cancelled after the kernel has
// already seen its submission. The reactor keeps the blob alive — without
// inspecting it — until the operation's terminal completion is observed,
// at which point the blob's references are dropped by the garbage
// collector in the ordinary way.
//
// Allocations is the Go expression of Option<Box<dyn Any>>: Present
// reports whether there is anything to retain at all.
type Allocations struct {
	present bool
	value   any
}

// NoAllocations reports that an operation owns no kernel-visible
// parameters that must outlive the operation value itself.
func NoAllocations() Allocations {
	return Allocations{}
}

// SomeAllocations wraps a value (typically the backing storage of a
// buffer) that the kernel still owns and which must not be collected
// before the operation's terminal completion arrives.
func SomeAllocations(value any) Allocations {
	return Allocations{present: true, value: value}
}

// Present reports whether there is a retained value.
func (a Allocations) Present() bool {
	return a.present
}

// Value returns the retained value, or nil if Present is false.
func (a Allocations) Value() any {
	return a.value
}

// Operation is a value with an associated output type that can build a
// kernel submission entry, consume exactly the completion entry that
// submission produces, and (on cancellation) surrender any parameters the
// kernel still owns.
//
// Implementations must ensure that any memory referenced by the submission
// entry — buffers, timespecs, futex words — remains valid until either
// HandleCompletion is called or TakeRequiredAllocations has surrendered the
// backing storage to the reactor. Violating this is a use-after-free.
type Operation[O any] interface {
	// BuildSubmission produces a kernel submission entry. The reactor
	// overwrites the entry's UserData field with the operation's
	// identifier before pushing it to the kernel; any other field the
	// implementation sets is left untouched.
	BuildSubmission() iouring.SQE

	// HandleCompletion consumes exactly one kernel completion entry,
	// paired with the submission this same value produced, and produces
	// the operation's output.
	HandleCompletion(entry iouring.CQE) O

	// TakeRequiredAllocations surrenders any heap-owned parameters the
	// kernel still owns. Called during cancellation once the kernel has
	// already seen the submission. Returns NoAllocations() when there is
	// nothing that must outlive the call.
	TakeRequiredAllocations() Allocations
}

// Oneshot is an Operation guaranteed to produce exactly one completion.
// Only Oneshot operations may participate in linked batching; operations
// that can produce more than one completion (multishot reads, for example)
// are valid Operations but are not composable via the batch protocol.
//
// Oneshot is sealed via oneshotMarker: embed Oneshot[O] (or compose with
// MarkOneshot) to opt in, an explicit marker rather than a structural
// check, since satisfying Operation[O] alone says nothing about how many
// completions an implementation produces.
type Oneshot[O any] interface {
	Operation[O]
	oneshotMarker()
}

// MarkOneshot is embedded by concrete operation types to assert they
// produce exactly one completion entry, satisfying the Oneshot interface.
type MarkOneshot struct{}

func (MarkOneshot) oneshotMarker() {}
