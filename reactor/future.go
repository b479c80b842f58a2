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

// Future submits a Batch to a Reactor the first time it is polled, and
// polls for its combined completion on every subsequent call. Go has no
// destructor to run automatically when a caller stops polling early, so
// callers that abandon a Future before it resolves must call Cancel
// themselves, or the kernel may later write into memory nothing in the
// program still references.
type Future[H any, O any] struct {
	reactor *Reactor
	batch   Batch[H, O]
	handle  *H
	done    bool
}

// NewFuture builds a Future that will submit batch to reactor on first
// poll.
func NewFuture[H any, O any](reactor *Reactor, batch Batch[H, O]) *Future[H, O] {
	return &Future[H, O]{reactor: reactor, batch: batch}
}

// Poll drives the future: submitting on the first call, polling for
// completion thereafter. ctx.Notifier is installed as the waiter to wake
// when the batch next makes progress; it is ignored once ready is true.
func (f *Future[H, O]) Poll(ctx PollContext) (output O, ready bool) {
	if f.done {
		programmingError("poll of a Future after it already completed")
	}

	if f.handle == nil {
		handle := f.batch.SubmitEntries(f.reactor, &ctx)
		f.handle = &handle
	}

	output, ready = f.batch.PollProgress(*f.handle, f.reactor, ctx)
	if ready {
		f.done = true
	}
	return output, ready
}

// Cancel abandons the future. If it was never polled, this is a no-op. If
// it was submitted but has not yet completed, the underlying operations
// are marked ignored: the reactor keeps tracking them until the kernel's
// terminal completion arrives, retaining whatever TakeRequiredAllocations
// reports so it is not collected while the kernel may still reference it.
// Calling Cancel after the future has already resolved is a no-op.
func (f *Future[H, O]) Cancel() {
	if f.done || f.handle == nil {
		return
	}
	f.batch.DropOperations(*f.handle, f.reactor)
	f.handle = nil
	f.done = true
}
