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

import "github.com/cloudwego/uring-reactor/internal/iouring"

// Batch is one or more Oneshot operations submitted together as a unit.
// H is the handle type used to track the submission (a single OperationID
// for one operation, a struct of them for a linked chain); O is the
// batch's combined output.
type Batch[H any, O any] interface {
	// SubmitEntries stages this batch's entries on reactor and returns a
	// handle identifying them. ctx may be nil.
	SubmitEntries(reactor *Reactor, ctx *PollContext) H

	// PollProgress polls for the batch's combined completion. handle must
	// have come from SubmitEntries on the same Batch value.
	PollProgress(handle H, reactor *Reactor, ctx PollContext) (O, bool)

	// DropOperations cancels a batch that is being abandoned before it
	// completed: callers that stop polling a Future before it resolves
	// must call this (via Future.Cancel) or risk the kernel writing into
	// memory nothing still references.
	DropOperations(handle H, reactor *Reactor)
}

// Single adapts one Oneshot operation into a Batch.
type Single[O any] struct {
	inner Oneshot[O]
}

// NewSingle wraps operation as a single-entry Batch.
func NewSingle[O any](operation Oneshot[O]) *Single[O] {
	return &Single[O]{inner: operation}
}

func (s *Single[O]) SubmitEntries(reactor *Reactor, ctx *PollContext) OperationID {
	return reactor.QueueSubmission(s.inner.BuildSubmission(), ctx)
}

func (s *Single[O]) PollProgress(handle OperationID, reactor *Reactor, ctx PollContext) (O, bool) {
	entry, ready := reactor.PollCompletion(handle, ctx)
	if !ready {
		var zero O
		return zero, false
	}
	return s.inner.HandleCompletion(entry), true
}

func (s *Single[O]) DropOperations(handle OperationID, reactor *Reactor) {
	reactor.IgnoreOperation(handle, s.inner.TakeRequiredAllocations())
}

// Pair2 is the combined output of a Link2 batch.
type Pair2[A, B any] struct {
	First  A
	Second B
}

// handle2 tracks the two legs of a Link2 submission.
type handle2 struct {
	first, second OperationID
}

// Link2 chains two Oneshot operations with IOSQE_IO_LINK: the second is
// only attempted by the kernel if the first succeeds, and both are staged
// and submitted as one atomic unit.
type Link2[A, B any] struct {
	first  *Cached[A]
	second *Cached[B]
}

// NewLink2 chains first and second.
func NewLink2[A, B any](first Oneshot[A], second Oneshot[B]) *Link2[A, B] {
	return &Link2[A, B]{first: NewCached(first), second: NewCached(second)}
}

func (l *Link2[A, B]) SubmitEntries(reactor *Reactor, ctx *PollContext) handle2 {
	first := l.first.BuildSubmission()
	first.Flags |= iouring.IOSQE_IO_LINK
	second := l.second.BuildSubmission()

	return handle2{
		first:  reactor.QueueSubmission(first, ctx),
		second: reactor.QueueSubmission(second, ctx),
	}
}

func (l *Link2[A, B]) PollProgress(handle handle2, reactor *Reactor, ctx PollContext) (Pair2[A, B], bool) {
	if !l.first.Finished() {
		entry, ready := reactor.PollCompletion(handle.first, ctx)
		if !ready {
			var zero Pair2[A, B]
			return zero, false
		}
		l.first.HandleCompletion(entry)
	}
	if !l.second.Finished() {
		entry, ready := reactor.PollCompletion(handle.second, ctx)
		if !ready {
			var zero Pair2[A, B]
			return zero, false
		}
		l.second.HandleCompletion(entry)
	}

	first, _ := l.first.TakeOutput()
	second, _ := l.second.TakeOutput()
	return Pair2[A, B]{First: first, Second: second}, true
}

func (l *Link2[A, B]) DropOperations(handle handle2, reactor *Reactor) {
	reactor.IgnoreOperation(handle.first, l.first.TakeRequiredAllocations())
	reactor.IgnoreOperation(handle.second, l.second.TakeRequiredAllocations())
}

// Triple3 is the combined output of a Link3 batch.
type Triple3[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

type handle3 struct {
	first, second, third OperationID
}

// Link3 chains three Oneshot operations with IOSQE_IO_LINK.
type Link3[A, B, C any] struct {
	first  *Cached[A]
	second *Cached[B]
	third  *Cached[C]
}

// NewLink3 chains first, second and third.
func NewLink3[A, B, C any](first Oneshot[A], second Oneshot[B], third Oneshot[C]) *Link3[A, B, C] {
	return &Link3[A, B, C]{first: NewCached(first), second: NewCached(second), third: NewCached(third)}
}

func (l *Link3[A, B, C]) SubmitEntries(reactor *Reactor, ctx *PollContext) handle3 {
	first := l.first.BuildSubmission()
	first.Flags |= iouring.IOSQE_IO_LINK
	second := l.second.BuildSubmission()
	second.Flags |= iouring.IOSQE_IO_LINK
	third := l.third.BuildSubmission()

	return handle3{
		first:  reactor.QueueSubmission(first, ctx),
		second: reactor.QueueSubmission(second, ctx),
		third:  reactor.QueueSubmission(third, ctx),
	}
}

func (l *Link3[A, B, C]) PollProgress(handle handle3, reactor *Reactor, ctx PollContext) (Triple3[A, B, C], bool) {
	var zero Triple3[A, B, C]
	if !l.first.Finished() {
		entry, ready := reactor.PollCompletion(handle.first, ctx)
		if !ready {
			return zero, false
		}
		l.first.HandleCompletion(entry)
	}
	if !l.second.Finished() {
		entry, ready := reactor.PollCompletion(handle.second, ctx)
		if !ready {
			return zero, false
		}
		l.second.HandleCompletion(entry)
	}
	if !l.third.Finished() {
		entry, ready := reactor.PollCompletion(handle.third, ctx)
		if !ready {
			return zero, false
		}
		l.third.HandleCompletion(entry)
	}

	first, _ := l.first.TakeOutput()
	second, _ := l.second.TakeOutput()
	third, _ := l.third.TakeOutput()
	return Triple3[A, B, C]{First: first, Second: second, Third: third}, true
}

func (l *Link3[A, B, C]) DropOperations(handle handle3, reactor *Reactor) {
	reactor.IgnoreOperation(handle.first, l.first.TakeRequiredAllocations())
	reactor.IgnoreOperation(handle.second, l.second.TakeRequiredAllocations())
	reactor.IgnoreOperation(handle.third, l.third.TakeRequiredAllocations())
}

// Quad4 is the combined output of a Link4 batch.
type Quad4[A, B, C, D any] struct {
	First  A
	Second B
	Third  C
	Fourth D
}

type handle4 struct {
	first, second, third, fourth OperationID
}

// Link4 chains four Oneshot operations with IOSQE_IO_LINK.
type Link4[A, B, C, D any] struct {
	first  *Cached[A]
	second *Cached[B]
	third  *Cached[C]
	fourth *Cached[D]
}

// NewLink4 chains first through fourth.
func NewLink4[A, B, C, D any](first Oneshot[A], second Oneshot[B], third Oneshot[C], fourth Oneshot[D]) *Link4[A, B, C, D] {
	return &Link4[A, B, C, D]{
		first:  NewCached(first),
		second: NewCached(second),
		third:  NewCached(third),
		fourth: NewCached(fourth),
	}
}

func (l *Link4[A, B, C, D]) SubmitEntries(reactor *Reactor, ctx *PollContext) handle4 {
	first := l.first.BuildSubmission()
	first.Flags |= iouring.IOSQE_IO_LINK
	second := l.second.BuildSubmission()
	second.Flags |= iouring.IOSQE_IO_LINK
	third := l.third.BuildSubmission()
	third.Flags |= iouring.IOSQE_IO_LINK
	fourth := l.fourth.BuildSubmission()

	return handle4{
		first:  reactor.QueueSubmission(first, ctx),
		second: reactor.QueueSubmission(second, ctx),
		third:  reactor.QueueSubmission(third, ctx),
		fourth: reactor.QueueSubmission(fourth, ctx),
	}
}

func (l *Link4[A, B, C, D]) PollProgress(handle handle4, reactor *Reactor, ctx PollContext) (Quad4[A, B, C, D], bool) {
	var zero Quad4[A, B, C, D]
	if !l.first.Finished() {
		entry, ready := reactor.PollCompletion(handle.first, ctx)
		if !ready {
			return zero, false
		}
		l.first.HandleCompletion(entry)
	}
	if !l.second.Finished() {
		entry, ready := reactor.PollCompletion(handle.second, ctx)
		if !ready {
			return zero, false
		}
		l.second.HandleCompletion(entry)
	}
	if !l.third.Finished() {
		entry, ready := reactor.PollCompletion(handle.third, ctx)
		if !ready {
			return zero, false
		}
		l.third.HandleCompletion(entry)
	}
	if !l.fourth.Finished() {
		entry, ready := reactor.PollCompletion(handle.fourth, ctx)
		if !ready {
			return zero, false
		}
		l.fourth.HandleCompletion(entry)
	}

	first, _ := l.first.TakeOutput()
	second, _ := l.second.TakeOutput()
	third, _ := l.third.TakeOutput()
	fourth, _ := l.fourth.TakeOutput()
	return Quad4[A, B, C, D]{First: first, Second: second, Third: third, Fourth: fourth}, true
}

func (l *Link4[A, B, C, D]) DropOperations(handle handle4, reactor *Reactor) {
	reactor.IgnoreOperation(handle.first, l.first.TakeRequiredAllocations())
	reactor.IgnoreOperation(handle.second, l.second.TakeRequiredAllocations())
	reactor.IgnoreOperation(handle.third, l.third.TakeRequiredAllocations())
	reactor.IgnoreOperation(handle.fourth, l.fourth.TakeRequiredAllocations())
}

// Quint5 is the combined output of a Link5 batch.
type Quint5[A, B, C, D, E any] struct {
	First  A
	Second B
	Third  C
	Fourth D
	Fifth  E
}

type handle5 struct {
	first, second, third, fourth, fifth OperationID
}

// Link5 chains five Oneshot operations with IOSQE_IO_LINK.
type Link5[A, B, C, D, E any] struct {
	first  *Cached[A]
	second *Cached[B]
	third  *Cached[C]
	fourth *Cached[D]
	fifth  *Cached[E]
}

// NewLink5 chains first through fifth.
func NewLink5[A, B, C, D, E any](first Oneshot[A], second Oneshot[B], third Oneshot[C], fourth Oneshot[D], fifth Oneshot[E]) *Link5[A, B, C, D, E] {
	return &Link5[A, B, C, D, E]{
		first:  NewCached(first),
		second: NewCached(second),
		third:  NewCached(third),
		fourth: NewCached(fourth),
		fifth:  NewCached(fifth),
	}
}

func (l *Link5[A, B, C, D, E]) SubmitEntries(reactor *Reactor, ctx *PollContext) handle5 {
	first := l.first.BuildSubmission()
	first.Flags |= iouring.IOSQE_IO_LINK
	second := l.second.BuildSubmission()
	second.Flags |= iouring.IOSQE_IO_LINK
	third := l.third.BuildSubmission()
	third.Flags |= iouring.IOSQE_IO_LINK
	fourth := l.fourth.BuildSubmission()
	fourth.Flags |= iouring.IOSQE_IO_LINK
	fifth := l.fifth.BuildSubmission()

	return handle5{
		first:  reactor.QueueSubmission(first, ctx),
		second: reactor.QueueSubmission(second, ctx),
		third:  reactor.QueueSubmission(third, ctx),
		fourth: reactor.QueueSubmission(fourth, ctx),
		fifth:  reactor.QueueSubmission(fifth, ctx),
	}
}

func (l *Link5[A, B, C, D, E]) PollProgress(handle handle5, reactor *Reactor, ctx PollContext) (Quint5[A, B, C, D, E], bool) {
	var zero Quint5[A, B, C, D, E]
	if !l.first.Finished() {
		entry, ready := reactor.PollCompletion(handle.first, ctx)
		if !ready {
			return zero, false
		}
		l.first.HandleCompletion(entry)
	}
	if !l.second.Finished() {
		entry, ready := reactor.PollCompletion(handle.second, ctx)
		if !ready {
			return zero, false
		}
		l.second.HandleCompletion(entry)
	}
	if !l.third.Finished() {
		entry, ready := reactor.PollCompletion(handle.third, ctx)
		if !ready {
			return zero, false
		}
		l.third.HandleCompletion(entry)
	}
	if !l.fourth.Finished() {
		entry, ready := reactor.PollCompletion(handle.fourth, ctx)
		if !ready {
			return zero, false
		}
		l.fourth.HandleCompletion(entry)
	}
	if !l.fifth.Finished() {
		entry, ready := reactor.PollCompletion(handle.fifth, ctx)
		if !ready {
			return zero, false
		}
		l.fifth.HandleCompletion(entry)
	}

	first, _ := l.first.TakeOutput()
	second, _ := l.second.TakeOutput()
	third, _ := l.third.TakeOutput()
	fourth, _ := l.fourth.TakeOutput()
	fifth, _ := l.fifth.TakeOutput()
	return Quint5[A, B, C, D, E]{First: first, Second: second, Third: third, Fourth: fourth, Fifth: fifth}, true
}

func (l *Link5[A, B, C, D, E]) DropOperations(handle handle5, reactor *Reactor) {
	reactor.IgnoreOperation(handle.first, l.first.TakeRequiredAllocations())
	reactor.IgnoreOperation(handle.second, l.second.TakeRequiredAllocations())
	reactor.IgnoreOperation(handle.third, l.third.TakeRequiredAllocations())
	reactor.IgnoreOperation(handle.fourth, l.fourth.TakeRequiredAllocations())
	reactor.IgnoreOperation(handle.fifth, l.fifth.TakeRequiredAllocations())
}
