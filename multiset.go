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

// Package multiset is a Go implementation of an insertion-ordered multiset
// (a bag) stored in an open-addressed hash table.
//
// # Layout
//
// A Multiset holds a single array of slots. Each occupied slot stores one
// distinct element together with the number of copies of that element
// currently held. Duplicates never occupy more than one slot. Collisions are
// resolved with linear probing: an element is stored at the first free slot
// at or after its home index hash(elem)%capacity, wrapping at the end of the
// array. See https://en.wikipedia.org/wiki/Linear_probing.
//
// Deletion does not use tombstones. When the last copy of an element is
// removed its slot is vacated and the run of occupied slots that follows it
// is compacted using backward-shift deletion: any later entry whose probe
// sequence passes through the hole is moved down into it, and the process
// repeats at the entry's old position until an empty slot is reached. After
// compaction a lookup never stops early at a hole that some other element's
// probe needs to see through.
//
// # Ordering
//
// The occupied slots are additionally threaded by a doubly-linked order
// chain which records the order in which each distinct element was first
// inserted. The links are slot indices, not pointers. Iteration walks the
// chain and yields each element as many times as its count, so all of the
// copies of an element are adjacent and elements appear in first-insertion
// order. Incrementing an element does not move it. Removing every copy of an
// element unlinks it, and adding it again appends it at the tail.
//
// # Growth
//
// The capacity of the table bounds the total number of copies, including
// duplicates, not the number of distinct elements. Before an insertion of n
// copies, the capacity is doubled until size+n <= capacity and the table is
// rebuilt at the new capacity. The rebuild walks the order chain so the
// chain keeps its order while every link is relabeled to the slot's new
// index. The capacity never shrinks.
package multiset

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
)

const debug = false

// Slot holds an element, its multiplicity and its links in the order chain.
// A slot is occupied iff count > 0.
type Slot[T comparable] struct {
	elem  T
	count uint64
	// prev and next are the indices of the neighboring slots in the order
	// chain, or nilIndex at the ends. They are meaningless when the slot is
	// not occupied.
	prev uintptr
	next uintptr
}

// Multiset is a collection of elements with multiplicities that iterates in
// the order each distinct element was first added. By default a Multiset[T]
// hashes elements with the same hash function as Go's builtin map[T]V and
// compares them with ==. Both can be replaced using the WithHash and WithEqual
// options.
//
// A Multiset is NOT goroutine-safe. Mutating a Multiset while an All or
// Entries iteration is in progress panics.
type Multiset[T comparable] struct {
	// The hash function applied to each element of type T.
	hash hashFn[T]
	seed uintptr
	// An optional equality replacing ==.
	equal func(a, b *T) bool
	// The allocator to use for the slots slice.
	allocator Allocator[T]
	// Receives resize events at debug level.
	logger logrus.FieldLogger
	// slots is capacity in length.
	slots []Slot[T]
	// order threads the occupied slots in first-insertion order.
	order orderChain[T]
	// The total number of copies held, including duplicates.
	size int
	// The number of occupied slots.
	distinct int
	// The number of All and Entries iterations in progress.
	iterators int
}

// New constructs a new Multiset with the specified initial capacity, which
// must be at least 1. The capacity counts copies, so a Multiset can hold
// initialCapacity elements (duplicates included) before it first grows.
func New[T comparable](initialCapacity int, options ...Option[T]) (*Multiset[T], error) {
	m := &Multiset[T]{}
	if err := m.Init(initialCapacity, options...); err != nil {
		return nil, err
	}
	return m, nil
}

// Init initializes a Multiset with the specified initial capacity. Init can
// be invoked on a zero-value Multiset or to reuse an existing one, in which
// case its table is first released to its allocator.
func (m *Multiset[T]) Init(initialCapacity int, options ...Option[T]) error {
	m.checkMutable()
	if initialCapacity < 1 {
		return newError(InvalidArgument, "initial capacity %d must be positive", initialCapacity)
	}
	if m.allocator != nil && m.slots != nil {
		m.allocator.FreeSlots(m.slots)
	}

	*m = Multiset[T]{
		hash:      runtimeHash[T],
		seed:      newSeed(),
		allocator: defaultAllocator[T]{},
		logger:    logrus.StandardLogger(),
		order:     makeOrderChain[T](),
	}

	for _, op := range options {
		op.apply(m)
	}

	m.slots = m.allocator.AllocSlots(initialCapacity)
	m.checkInvariants()
	return nil
}

// Close closes the multiset, releasing its table back to the configured
// allocator. It is unnecessary to close a multiset using the default
// allocator. It is invalid to use a Multiset after it has been closed, though
// Close itself is idempotent.
func (m *Multiset[T]) Close() {
	m.checkMutable()
	if m.allocator != nil && m.slots != nil {
		m.allocator.FreeSlots(m.slots)
	}
	m.slots = nil
	m.order = makeOrderChain[T]()
	m.size = 0
	m.distinct = 0
	m.allocator = nil
}

// Add adds a single copy of elem.
func (m *Multiset[T]) Add(elem T) {
	m.AddN(elem, 1)
}

// AddN adds n copies of elem. If elem is not yet present it is placed at the
// end of the iteration order. Adding zero copies is a no-op.
func (m *Multiset[T]) AddN(elem T, n uint64) {
	m.checkMutable()
	if n == 0 {
		return
	}
	if n > math.MaxInt {
		panic(fmt.Sprintf("multiset: count %d overflows capacity", n))
	}
	m.growFor(int(n))

	h := m.hash(&elem, m.seed)
	if i, ok := m.locate(h, &elem); ok {
		m.slots[i].count += n
		if debug {
			fmt.Printf("add(%v): index=%d count=%d\n", elem, i, m.slots[i].count)
		}
	} else {
		i := m.findInsertionPoint(m.slots, h)
		s := &m.slots[i]
		s.elem = elem
		s.count = n
		m.order.pushBack(m.slots, i)
		m.distinct++
		if debug {
			fmt.Printf("add(%v): inserting index=%d count=%d\n", elem, i, n)
		}
	}
	m.size += int(n)
	m.checkInvariants()
}

// AddAll adds every copy of every element in other. Elements new to m are
// appended in other's iteration order.
func (m *Multiset[T]) AddAll(other *Multiset[T]) {
	m.checkMutable()
	if other.size == 0 {
		return
	}
	m.growFor(other.size)

	if other == m {
		m.order.all(m.slots, func(i uintptr) bool {
			m.slots[i].count *= 2
			return true
		})
		m.size *= 2
		m.checkInvariants()
		return
	}

	other.Entries(func(elem T, count uint64) bool {
		m.AddN(elem, count)
		return true
	})
}

// Remove removes a single copy of elem. It returns an error matching
// ErrNotFound if elem is not present.
func (m *Multiset[T]) Remove(elem T) error {
	return m.RemoveN(elem, 1)
}

// RemoveN removes n copies of elem. It returns an error matching ErrNotFound
// if elem is not present and ErrInsufficientCount if fewer than n copies are
// present, in which case nothing is removed. Removing zero copies is a no-op.
func (m *Multiset[T]) RemoveN(elem T, n uint64) error {
	m.checkMutable()
	if n == 0 {
		return nil
	}

	h := m.hash(&elem, m.seed)
	i, ok := m.locate(h, &elem)
	if !ok {
		return newError(NotFound, "%v", elem)
	}
	s := &m.slots[i]
	if n > s.count {
		return newError(InsufficientCount, "removing %d of %v, have %d", n, elem, s.count)
	}

	s.count -= n
	m.size -= int(n)
	if s.count == 0 {
		m.vacate(i)
		m.distinct--
	}
	if debug {
		fmt.Printf("remove(%v): index=%d size=%d distinct=%d\n", elem, i, m.size, m.distinct)
	}
	m.checkInvariants()
	return nil
}

// Contains returns true if at least one copy of elem is present.
func (m *Multiset[T]) Contains(elem T) bool {
	_, ok := m.locate(m.hash(&elem, m.seed), &elem)
	return ok
}

// Count returns the number of copies of elem, or 0 if it is not present.
func (m *Multiset[T]) Count(elem T) uint64 {
	if i, ok := m.locate(m.hash(&elem, m.seed), &elem); ok {
		return m.slots[i].count
	}
	return 0
}

// Len returns the total number of copies in the multiset, including
// duplicates.
func (m *Multiset[T]) Len() int {
	return m.size
}

// DistinctLen returns the number of distinct elements in the multiset.
func (m *Multiset[T]) DistinctLen() int {
	return m.distinct
}

// Capacity returns the number of copies the multiset can hold before its
// table is next resized.
func (m *Multiset[T]) Capacity() int {
	return len(m.slots)
}

// Clear removes every element. The capacity is retained.
func (m *Multiset[T]) Clear() {
	m.checkMutable()
	clear(m.slots)
	m.order = makeOrderChain[T]()
	m.size = 0
	m.distinct = 0
	m.checkInvariants()
}

// All calls yield sequentially for every copy of every element in the
// multiset. Distinct elements are visited in the order they were first added
// and the copies of an element are yielded consecutively. If yield returns
// false, iteration stops. The multiset must not be mutated during iteration;
// doing so panics.
//
// All conforms to iter.Seq[T]:
//
//	for elem := range m.All {
//	  fmt.Println(elem)
//	}
func (m *Multiset[T]) All(yield func(elem T) bool) {
	m.Entries(func(elem T, count uint64) bool {
		for ; count > 0; count-- {
			if !yield(elem) {
				return false
			}
		}
		return true
	})
}

// Entries calls yield once for each distinct element with its count, in the
// order the elements were first added. If yield returns false, iteration
// stops. The multiset must not be mutated during iteration.
func (m *Multiset[T]) Entries(yield func(elem T, count uint64) bool) {
	m.iterators++
	defer func() { m.iterators-- }()

	m.order.all(m.slots, func(i uintptr) bool {
		s := &m.slots[i]
		return yield(s.elem, s.count)
	})
}

func (m *Multiset[T]) checkMutable() {
	if m.iterators > 0 {
		panic("multiset: mutated during iteration")
	}
}

func (m *Multiset[T]) equalElems(a, b *T) bool {
	if m.equal != nil {
		return m.equal(a, b)
	}
	return *a == *b
}

// locate returns the index of the slot holding elem, whose hash is h. Probing
// stops at the first empty slot or after visiting every slot.
func (m *Multiset[T]) locate(h uintptr, elem *T) (uintptr, bool) {
	if len(m.slots) == 0 {
		return 0, false
	}

	seq := makeProbeSeq(h, uintptr(len(m.slots)))
	if debug {
		fmt.Printf("locate(%v): %s\n", *elem, seq)
	}

	for ; !seq.wrapped(); seq = seq.next() {
		s := &m.slots[seq.offset]
		if s.count == 0 {
			if debug {
				fmt.Printf("locate(not-found): offset=%d empty\n", seq.offset)
			}
			return 0, false
		}
		if m.equalElems(&s.elem, elem) {
			return seq.offset, true
		}
		if debug {
			fmt.Printf("locate(skipping): offset=%d elem=%v\n", seq.offset, s.elem)
		}
	}
	return 0, false
}

// findInsertionPoint returns the first empty slot in the probe sequence for
// hash h. Callers grow the table first so that an empty slot always exists;
// a full table is a corrupted invariant.
func (m *Multiset[T]) findInsertionPoint(slots []Slot[T], h uintptr) uintptr {
	for seq := makeProbeSeq(h, uintptr(len(slots))); !seq.wrapped(); seq = seq.next() {
		if slots[seq.offset].count == 0 {
			return seq.offset
		}
	}
	panic(fmt.Sprintf("multiset: no empty slot for hash %#x in table of capacity %d\n%s",
		h, len(slots), m.debugString()))
}

// vacate frees the slot at index hole, unlinking it from the order chain, and
// then compacts the probe run that follows it. Each subsequent occupied slot
// whose home index does not lie in the cyclic range (hole, j] would be
// unreachable past the hole, so it moves down into the hole and the slot it
// left becomes the new hole.
func (m *Multiset[T]) vacate(hole uintptr) {
	m.order.unlink(m.slots, hole)
	m.slots[hole] = Slot[T]{}

	capacity := uintptr(len(m.slots))
	for j := (hole + 1) % capacity; m.slots[j].count != 0; j = (j + 1) % capacity {
		s := &m.slots[j]
		home := m.hash(&s.elem, m.seed) % capacity
		if between(hole, home, j) {
			continue
		}
		if debug {
			fmt.Printf("vacate(shifting): %d -> %d elem=%v\n", j, hole, s.elem)
		}
		m.slots[hole] = *s
		*s = Slot[T]{}
		m.order.relink(m.slots, hole)
		hole = j
	}
}

// growFor doubles the capacity until it can hold additional more copies,
// then rebuilds the table once at the final capacity.
func (m *Multiset[T]) growFor(additional int) {
	if additional > math.MaxInt-m.size {
		panic(fmt.Sprintf("multiset: size %d + %d overflows capacity", m.size, additional))
	}
	needed := m.size + additional
	newCapacity := len(m.slots)
	if needed <= newCapacity {
		return
	}
	if newCapacity == 0 {
		panic("multiset: use of uninitialized or closed Multiset")
	}
	for needed > newCapacity {
		if newCapacity > math.MaxInt/2 {
			panic(fmt.Sprintf("multiset: capacity %d overflows", newCapacity))
		}
		newCapacity *= 2
	}
	m.resize(newCapacity)
}

// resize allocates a table of newCapacity slots and re-places every occupied
// slot into it by walking the order chain from head to tail. Each element is
// appended to the new chain as it is placed, so the chain keeps its order and
// only the indices change. The old table is discarded.
func (m *Multiset[T]) resize(newCapacity int) {
	oldSlots, oldOrder := m.slots, m.order
	newSlots := m.allocator.AllocSlots(newCapacity)
	newOrder := makeOrderChain[T]()

	oldOrder.all(oldSlots, func(i uintptr) bool {
		s := &oldSlots[i]
		h := m.hash(&s.elem, m.seed)
		j := m.findInsertionPoint(newSlots, h)
		newSlots[j].elem = s.elem
		newSlots[j].count = s.count
		newOrder.pushBack(newSlots, j)
		return true
	})

	m.slots, m.order = newSlots, newOrder
	if oldSlots != nil {
		m.allocator.FreeSlots(oldSlots)
	}

	if m.logger != nil {
		m.logger.WithFields(logrus.Fields{
			"old-capacity": len(oldSlots),
			"new-capacity": newCapacity,
			"size":         m.size,
			"distinct":     m.distinct,
		}).Debug("multiset: resized")
	}

	m.checkInvariants()
}

func (m *Multiset[T]) checkInvariants() {
	if invariants {
		if m.size > len(m.slots) {
			panic(fmt.Sprintf("invariant failed: size %d exceeds capacity %d\n%s",
				m.size, len(m.slots), m.debugString()))
		}

		// Walk the order chain verifying back links, occupancy and counts.
		var chainLen int
		var total uint64
		prev := nilIndex
		for i := m.order.head; i != nilIndex; i = m.slots[i].next {
			s := &m.slots[i]
			if s.count == 0 {
				panic(fmt.Sprintf("invariant failed: chain index %d is empty\n%s", i, m.debugString()))
			}
			if s.prev != prev {
				panic(fmt.Sprintf("invariant failed: slot(%d).prev=%d, expected %d\n%s",
					i, s.prev, prev, m.debugString()))
			}
			prev = i
			chainLen++
			total += s.count
			if chainLen > len(m.slots) {
				panic(fmt.Sprintf("invariant failed: order chain cycle\n%s", m.debugString()))
			}
		}
		if prev != m.order.tail {
			panic(fmt.Sprintf("invariant failed: tail=%d, expected %d\n%s", m.order.tail, prev, m.debugString()))
		}
		if chainLen != m.distinct {
			panic(fmt.Sprintf("invariant failed: chain length %d, but distinct count is %d\n%s",
				chainLen, m.distinct, m.debugString()))
		}
		if total != uint64(m.size) {
			panic(fmt.Sprintf("invariant failed: chain holds %d copies, but size is %d\n%s",
				total, m.size, m.debugString()))
		}

		// For every occupied slot, verify a probe from its home finds it.
		var used int
		for i := range m.slots {
			s := &m.slots[i]
			if s.count == 0 {
				continue
			}
			used++
			h := m.hash(&s.elem, m.seed)
			if j, ok := m.locate(h, &s.elem); !ok || j != uintptr(i) {
				panic(fmt.Sprintf("invariant failed: slot(%d): %v not found [home=%d]\n%s",
					i, s.elem, h%uintptr(len(m.slots)), m.debugString()))
			}
		}
		if used != m.distinct {
			panic(fmt.Sprintf("invariant failed: found %d used slots, but distinct count is %d\n%s",
				used, m.distinct, m.debugString()))
		}
	}
}

func (m *Multiset[T]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  size=%d  distinct=%d  head=%d  tail=%d\n",
		len(m.slots), m.size, m.distinct, int(m.order.head), int(m.order.tail))
	for i := range m.slots {
		s := &m.slots[i]
		if s.count == 0 {
			fmt.Fprintf(&buf, "  %4d: empty\n", i)
			continue
		}
		h := m.hash(&s.elem, m.seed)
		fmt.Fprintf(&buf, "  %4d: %v x%d [home=%d prev=%d next=%d]\n",
			i, s.elem, s.count, h%uintptr(len(m.slots)), int(s.prev), int(s.next))
	}
	return buf.String()
}
