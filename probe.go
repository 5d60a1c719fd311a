// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package multiset

import "fmt"

// probeSeq maintains the state for a linear probe sequence. The sequence
// starts at the home index hash%capacity and visits every index of the table
// exactly once, wrapping from capacity-1 back to 0:
//
//	p(i) := (hash + i) mod capacity
//
// The capacity is not required to be a power of two (it is a power of two
// multiple of the initial capacity) so the reduction is a modulo rather than
// a mask.
type probeSeq struct {
	capacity uintptr
	offset   uintptr
	index    uintptr
}

func makeProbeSeq(hash, capacity uintptr) probeSeq {
	return probeSeq{
		capacity: capacity,
		offset:   hash % capacity,
		index:    0,
	}
}

func (s probeSeq) next() probeSeq {
	s.index++
	s.offset++
	if s.offset == s.capacity {
		s.offset = 0
	}
	return s
}

// wrapped returns true once every index has been visited.
func (s probeSeq) wrapped() bool {
	return s.index >= s.capacity
}

func (s probeSeq) String() string {
	return fmt.Sprintf("capacity=%d offset=%d index=%d", s.capacity, s.offset, s.index)
}

// between returns true if x lies in the cyclic half-open range (lo, hi].
// Backward-shift deletion uses it to decide whether an entry whose home is x
// may move down into a hole at lo from its current position hi.
func between(lo, x, hi uintptr) bool {
	if lo <= hi {
		return lo < x && x <= hi
	}
	return lo < x || x <= hi
}
