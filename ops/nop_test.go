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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloudwego/uring-reactor/internal/iouring"
)

func TestNoOpBuildSubmissionIsJustTheOpcode(t *testing.T) {
	n := NewNoOp()
	sqe := n.BuildSubmission()

	assert.EqualValues(t, iouring.IORING_OP_NOP, sqe.Opcode)
	assert.Zero(t, sqe.Fd)
	assert.Zero(t, sqe.Addr)
}

func TestNoOpRequiresNoRetainedAllocations(t *testing.T) {
	n := NewNoOp()
	assert.False(t, n.TakeRequiredAllocations().Present())
}

func TestNoOpHandleCompletionReportsKernelErrors(t *testing.T) {
	n := NewNoOp()

	assert.NoError(t, n.HandleCompletion(iouring.CQE{Res: 0}))
	assert.Error(t, n.HandleCompletion(iouring.CQE{Res: -22}))
}
