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
	"github.com/stretchr/testify/require"
)

func TestArenaInsertAndGet(t *testing.T) {
	a := newArena(4)
	id := a.insert(ignoredState(NoAllocations()))

	state, ok := a.get(id)
	require.True(t, ok)
	assert.Equal(t, stateIgnored, state.kind)
	assert.Equal(t, 1, a.len())
}

func TestArenaRemoveBumpsGenerationAndRejectsStaleHandle(t *testing.T) {
	a := newArena(4)
	id := a.insert(ignoredState(NoAllocations()))

	a.remove(id)
	assert.Equal(t, 0, a.len())

	_, ok := a.get(id)
	assert.False(t, ok, "a stale handle from a freed slot must not resolve")
}

func TestArenaReusesFreedSlotsWithNewGeneration(t *testing.T) {
	a := newArena(4)
	first := a.insert(ignoredState(NoAllocations()))
	a.remove(first)

	second := a.insert(ignoredState(NoAllocations()))

	assert.Equal(t, first.index(), second.index(), "freed slot should be reused")
	assert.NotEqual(t, first.generation(), second.generation())
	assert.NotEqual(t, first, second)

	_, ok := a.get(first)
	assert.False(t, ok)
	_, ok = a.get(second)
	assert.True(t, ok)
}

func TestArenaDoubleRemovePanics(t *testing.T) {
	a := newArena(4)
	id := a.insert(ignoredState(NoAllocations()))
	a.remove(id)

	assert.Panics(t, func() { a.remove(id) })
}

func TestArenaRemoveOfNeverAllocatedIDPanics(t *testing.T) {
	a := newArena(4)
	assert.Panics(t, func() { a.remove(newOperationID(0, 0)) })
}
