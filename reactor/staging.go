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

// staging holds submission entries that have been queued by the caller but
// not yet pushed to the kernel's submission queue. Keeping them here instead
// of pushing immediately lets a cancelled operation's entry be dropped for
// free, which is the whole reason IORING_FEAT_SUBMIT_STABLE is worth relying
// on: once an entry crosses into the real ring the kernel may already be
// acting on it and cannot be recalled.
//
// Order matters: a run of IOSQE_IO_LINK entries must reach the kernel in the
// sequence it was built in, and entirely or not at all. staging preserves
// insertion order and supports removal of an arbitrary entry (a cancelled
// operation that was never linked to anything) without disturbing the order
// of the rest; removal scans the order slice, so it is linear in the number
// of staged entries.
type staging struct {
	order   []OperationID
	entries map[OperationID]iouring.SQE
}

func newStaging(capacity int) *staging {
	return &staging{
		order:   make([]OperationID, 0, capacity),
		entries: make(map[OperationID]iouring.SQE, capacity),
	}
}

// push appends entry to the end of the staging buffer.
func (s *staging) push(id OperationID, entry iouring.SQE) {
	s.order = append(s.order, id)
	s.entries[id] = entry
}

// remove drops id from the staging buffer if present, preserving the
// relative order of everything else. Reports whether id was found.
func (s *staging) remove(id OperationID) bool {
	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	for i, staged := range s.order {
		if staged == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// len reports how many entries are currently staged.
func (s *staging) len() int {
	return len(s.order)
}

// drainInto pushes every staged entry to ring in insertion order, stamping
// each with its OperationID as user data, and clears the staging buffer.
// Pushing blocks (via the supplied submit callback) rather than ever
// submitting a partial linked chain: a contiguous run of entries carrying
// IOSQE_IO_LINK on all but the last must land in the ring together or the
// kernel will see a chain broken mid-link, which silently cancels its tail.
//
// submit is invoked when the ring has no room for the next entry (or the
// remainder of the current chain); it should call the ring's Submit and
// ideally block until the kernel has consumed some entries.
func (s *staging) drainInto(ring *iouring.Ring, submit func() error) (int, error) {
	pushed := 0
	i := 0
	for i < len(s.order) {
		runEnd := s.chainRunEnd(i)
		runLen := uint32(runEnd - i)

		for ring.AvailableSQEs() < runLen {
			if err := submit(); err != nil {
				return pushed, err
			}
		}

		for j := i; j < runEnd; j++ {
			id := s.order[j]
			entry := s.entries[id]
			entry.UserData = uint64(id)

			sqe := ring.PeekSQE()
			if sqe == nil {
				// AvailableSQEs said there was room; a concurrent peek
				// elsewhere would be a programming error in a reactor that
				// is single-issuer by construction.
				panic("reactor: submission queue unexpectedly full mid-chain")
			}
			*sqe = entry
			ring.AdvanceSQ()

			delete(s.entries, id)
			pushed++
		}

		i = runEnd
	}

	s.order = s.order[:0]
	return pushed, nil
}

// chainRunEnd returns the index one past the contiguous run of linked
// entries starting at i: every entry in [i, end) except the last carries
// IOSQE_IO_LINK, and the entry at end-1 does not (or end is len(s.order)).
func (s *staging) chainRunEnd(i int) int {
	for {
		entry := s.entries[s.order[i]]
		if entry.Flags&iouring.IOSQE_IO_LINK == 0 {
			return i + 1
		}
		i++
		if i >= len(s.order) {
			return i
		}
	}
}
