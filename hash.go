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

import (
	"hash/maphash"
	"math/rand/v2"
)

// hashFn maps an element to a hash value. The seed is per-Multiset and lets
// two tables holding the same elements lay them out differently.
type hashFn[T comparable] func(elem *T, seed uintptr) uintptr

// runtimeSeed is shared by every Multiset using the default hash. The
// per-table seed is mixed in on top of it.
var runtimeSeed = maphash.MakeSeed()

// runtimeHash is the default hash function. It uses the same hash the Go
// runtime uses for map keys of type T.
func runtimeHash[T comparable](elem *T, seed uintptr) uintptr {
	return uintptr(maphash.Comparable(runtimeSeed, *elem) ^ uint64(seed))
}

func newSeed() uintptr {
	return uintptr(rand.Uint64())
}
