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

// nilIndex terminates the order chain in both directions.
const nilIndex = ^uintptr(0)

// orderChain is a doubly-linked list threaded through the occupied slots of a
// table in first-insertion order. The links are slot indices stored in the
// slots themselves (Slot.prev and Slot.next), so the chain owns nothing and
// a slot moving to a new index only requires its neighbors to be relabeled.
type orderChain[T comparable] struct {
	head uintptr
	tail uintptr
}

func makeOrderChain[T comparable]() orderChain[T] {
	return orderChain[T]{head: nilIndex, tail: nilIndex}
}

func (c *orderChain[T]) empty() bool {
	return c.head == nilIndex
}

// pushBack links slot i as the new tail.
func (c *orderChain[T]) pushBack(slots []Slot[T], i uintptr) {
	s := &slots[i]
	s.prev = c.tail
	s.next = nilIndex
	if c.tail == nilIndex {
		c.head = i
	} else {
		slots[c.tail].next = i
	}
	c.tail = i
}

// unlink removes slot i from wherever it sits in the chain and joins its
// former neighbors.
func (c *orderChain[T]) unlink(slots []Slot[T], i uintptr) {
	s := &slots[i]
	if s.prev == nilIndex {
		c.head = s.next
	} else {
		slots[s.prev].next = s.next
	}
	if s.next == nilIndex {
		c.tail = s.prev
	} else {
		slots[s.next].prev = s.prev
	}
	s.prev, s.next = nilIndex, nilIndex
}

// relink points the neighbors of the node now stored at index to at its new
// location. The node's own links are already correct because they were
// copied along with it from its old index.
func (c *orderChain[T]) relink(slots []Slot[T], to uintptr) {
	s := &slots[to]
	if s.prev == nilIndex {
		c.head = to
	} else {
		slots[s.prev].next = to
	}
	if s.next == nilIndex {
		c.tail = to
	} else {
		slots[s.next].prev = to
	}
}

// all calls yield for each index in the chain from head to tail. If yield
// returns false, iteration stops.
func (c *orderChain[T]) all(slots []Slot[T], yield func(i uintptr) bool) {
	for i := c.head; i != nilIndex; i = slots[i].next {
		if !yield(i) {
			return
		}
	}
}
