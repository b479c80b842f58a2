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
	"github.com/cloudwego/uring-reactor/internal/iouring"
	"github.com/cloudwego/uring-reactor/reactor"
)

// NoOp is an operation that does nothing but round-trip through the
// kernel, useful for exercising the reactor and its batching without
// touching real file descriptors.
type NoOp struct {
	reactor.MarkOneshot
}

// NewNoOp returns a NoOp ready to submit.
func NewNoOp() NoOp {
	return NoOp{}
}

func (NoOp) BuildSubmission() iouring.SQE {
	return iouring.SQE{Opcode: iouring.IORING_OP_NOP}
}

func (NoOp) HandleCompletion(entry iouring.CQE) error {
	return reactor.ResultError("nop", entry.Res)
}

func (NoOp) TakeRequiredAllocations() reactor.Allocations {
	return reactor.NoAllocations()
}
