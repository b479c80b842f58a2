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

// Cached wraps a Oneshot operation and remembers its output the first time
// HandleCompletion runs, so a batch of several linked operations can poll
// each leg independently without losing results already observed while
// waiting on the others.
type Cached[O any] struct {
	operation Oneshot[O]
	output    *O
}

// NewCached wraps operation for use inside a Batch.
func NewCached[O any](operation Oneshot[O]) *Cached[O] {
	return &Cached[O]{operation: operation}
}

// Finished reports whether this leg has already produced its output.
func (c *Cached[O]) Finished() bool {
	return c.output != nil
}

// TakeOutput returns the cached output and clears it, or false if
// HandleCompletion has not run yet.
func (c *Cached[O]) TakeOutput() (O, bool) {
	if c.output == nil {
		var zero O
		return zero, false
	}
	out := *c.output
	c.output = nil
	return out, true
}

// BuildSubmission delegates to the wrapped operation.
func (c *Cached[O]) BuildSubmission() iouring.SQE {
	return c.operation.BuildSubmission()
}

// HandleCompletion delegates to the wrapped operation and stashes the
// result. Panics if called twice without an intervening TakeOutput, which
// would indicate the reactor dispatched two terminal completions to a
// Oneshot operation.
func (c *Cached[O]) HandleCompletion(entry iouring.CQE) {
	if c.output != nil {
		programmingError("oneshot operation produced more than one completion")
	}
	out := c.operation.HandleCompletion(entry)
	c.output = &out
}

// TakeRequiredAllocations delegates to the wrapped operation, unless the
// output has already been produced, in which case there is nothing left
// that the kernel still references.
func (c *Cached[O]) TakeRequiredAllocations() Allocations {
	if c.output != nil {
		return NoAllocations()
	}
	return c.operation.TakeRequiredAllocations()
}
