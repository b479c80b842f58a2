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

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloudwego/uring-reactor/internal/iouring"
)

func TestStagingPreservesInsertionOrder(t *testing.T) {
	s := newStaging(4)
	a, b, c := OperationID(1), OperationID(2), OperationID(3)
	s.push(a, iouring.SQE{})
	s.push(b, iouring.SQE{})
	s.push(c, iouring.SQE{})

	assert.Equal(t, []OperationID{a, b, c}, s.order)
}

func TestStagingRemovePreservesOrderOfSurvivors(t *testing.T) {
	s := newStaging(4)
	a, b, c := OperationID(1), OperationID(2), OperationID(3)
	s.push(a, iouring.SQE{})
	s.push(b, iouring.SQE{})
	s.push(c, iouring.SQE{})

	removed := s.remove(b)

	assert.True(t, removed)
	assert.Equal(t, []OperationID{a, c}, s.order)
	assert.Equal(t, 2, s.len())
}

func TestStagingRemoveOfAbsentIDIsNoop(t *testing.T) {
	s := newStaging(4)
	assert.False(t, s.remove(OperationID(99)))
}

func TestChainRunEndStopsAtNonLinkedEntry(t *testing.T) {
	s := newStaging(4)
	linked := iouring.SQE{Flags: iouring.IOSQE_IO_LINK}
	tail := iouring.SQE{}

	s.push(OperationID(1), linked)
	s.push(OperationID(2), linked)
	s.push(OperationID(3), tail)
	s.push(OperationID(4), tail)

	assert.Equal(t, 3, s.chainRunEnd(0), "the linked run plus its terminating entry")
	assert.Equal(t, 4, s.chainRunEnd(3), "a lone unlinked entry is its own run")
}
