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

import "github.com/sirupsen/logrus"

// Option configures a Multiset while it is being initialized.
type Option[T comparable] interface {
	apply(m *Multiset[T])
}

type hashOption[T comparable] struct {
	hash hashFn[T]
}

func (op hashOption[T]) apply(m *Multiset[T]) {
	m.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a
// Multiset[T]. The hash must be consistent with the equality in use: equal
// elements must hash to the same value. Violations are not detected and cause
// lookups to miss.
func WithHash[T comparable](hash func(elem *T, seed uintptr) uintptr) Option[T] {
	return hashOption[T]{hash}
}

type equalOption[T comparable] struct {
	equal func(a, b *T) bool
}

func (op equalOption[T]) apply(m *Multiset[T]) {
	m.equal = op.equal
}

// WithEqual is an option to replace the builtin == comparison of elements.
// It must be combined with WithHash so that elements which compare equal
// also hash equally.
func WithEqual[T comparable](equal func(a, b *T) bool) Option[T] {
	return equalOption[T]{equal}
}

// Allocator specifies an interface for allocating and releasing the slot
// arrays used by a Multiset. The default allocator utilizes Go's builtin
// make() and allows the GC to reclaim memory.
//
// If the allocator is manually managing memory then Multiset.Close must be
// called in order to ensure FreeSlots is called for the final table.
type Allocator[T comparable] interface {
	// AllocSlots should return a slice equivalent to make([]Slot[T], n).
	AllocSlots(n int) []Slot[T]

	// FreeSlots can optionally release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by AllocSlots.
	FreeSlots(v []Slot[T])
}

type defaultAllocator[T comparable] struct{}

func (defaultAllocator[T]) AllocSlots(n int) []Slot[T] {
	return make([]Slot[T], n)
}

func (defaultAllocator[T]) FreeSlots(v []Slot[T]) {
}

type allocatorOption[T comparable] struct {
	allocator Allocator[T]
}

func (op allocatorOption[T]) apply(m *Multiset[T]) {
	m.allocator = op.allocator
}

// WithAllocator is an option to specify the Allocator to use for a
// Multiset[T].
func WithAllocator[T comparable](allocator Allocator[T]) Option[T] {
	return allocatorOption[T]{allocator}
}

type loggerOption[T comparable] struct {
	logger logrus.FieldLogger
}

func (op loggerOption[T]) apply(m *Multiset[T]) {
	m.logger = op.logger
}

// WithLogger is an option to specify where table resizes are reported. Resizes
// are logged at debug level. The default is logrus.StandardLogger().
func WithLogger[T comparable](logger logrus.FieldLogger) Option[T] {
	return loggerOption[T]{logger}
}
