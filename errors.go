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
	"fmt"

	"github.com/go-errors/errors"
)

// ErrorKind classifies the recoverable failures reported by a Multiset.
type ErrorKind int

const (
	// NotFound is reported when removing an element with a zero count.
	NotFound ErrorKind = iota + 1
	// InsufficientCount is reported when removing more copies of an element
	// than the multiset holds.
	InsufficientCount
	// InvalidArgument is reported for a non-positive initial capacity.
	InvalidArgument
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case InsufficientCount:
		return "insufficient count"
	case InvalidArgument:
		return "invalid argument"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the error type returned by Multiset operations. Two Errors match
// under errors.Is when their kinds are equal, so callers compare against the
// Err* sentinels regardless of the detail message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "multiset: " + e.Kind.String()
	}
	return "multiset: " + e.Kind.String() + ": " + e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrNotFound          = &Error{Kind: NotFound}
	ErrInsufficientCount = &Error{Kind: InsufficientCount}
	ErrInvalidArgument   = &Error{Kind: InvalidArgument}
)

// newError returns an *Error of the given kind wrapped with the caller's
// stack. The skip of 1 drops newError itself from the trace.
func newError(kind ErrorKind, format string, args ...interface{}) error {
	return errors.Wrap(&Error{Kind: kind, Message: fmt.Sprintf(format, args...)}, 1)
}
