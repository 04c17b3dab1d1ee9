// Copyright 2026 The nutsdb Author. All rights reserved.
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

// Package errs holds the errors a running plan can surface to its caller.
//
// Two families live here. Recoverable errors are sentinels that callers match
// with errors.Is; they describe expected outcomes of concurrent mutation.
// Assertion failures describe a bug in the layer that built the plan and are
// created with AssertionFailedf.
package errs

import (
	"errors"

	crdberrors "github.com/cockroachdb/errors"
)

var (
	// ErrQueryPlanKilled is returned when a collection or index a plan depends on
	// was dropped, renamed or invalidated while the plan was yielded.
	ErrQueryPlanKilled = errors.New("query plan killed")

	// ErrKeyNotFound is returned when a scan is resumed from a record that no
	// longer exists.
	ErrKeyNotFound = errors.New("key not found")

	// ErrOplogQueryMinTsMissing is returned when the oldest retained oplog entry
	// is newer than the minimum timestamp the reader requires.
	ErrOplogQueryMinTsMissing = errors.New("oplog query min ts missing")

	// ErrInterrupted is returned when the operation was killed or its context is done.
	ErrInterrupted = errors.New("operation interrupted")

	// ErrNamespaceNotFound is returned when a plan is prepared against a collection
	// that does not exist.
	ErrNamespaceNotFound = errors.New("namespace not found")

	// ErrTypeMismatch is returned when an expression receives an operand of an unexpected type.
	ErrTypeMismatch = errors.New("type mismatch")
)

// Code is a stable numeric identity for a recoverable error, used by the debug
// printer and by metrics labels.
type Code int

const (
	CodeUnknown                Code = 0
	CodeNamespaceNotFound      Code = 26
	CodeQueryPlanKilled        Code = 175
	CodeKeyNotFound            Code = 211
	CodeOplogQueryMinTsMissing Code = 326
	CodeTypeMismatch           Code = 14
	CodeInterrupted            Code = 11601
)

var codeToSentinel = map[Code]error{
	CodeNamespaceNotFound:      ErrNamespaceNotFound,
	CodeQueryPlanKilled:        ErrQueryPlanKilled,
	CodeKeyNotFound:            ErrKeyNotFound,
	CodeOplogQueryMinTsMissing: ErrOplogQueryMinTsMissing,
	CodeTypeMismatch:           ErrTypeMismatch,
	CodeInterrupted:            ErrInterrupted,
}

// Sentinel returns the sentinel error registered for code, or nil.
func Sentinel(code Code) error {
	return codeToSentinel[code]
}

// CodeOf returns the code of the first recoverable sentinel err matches.
func CodeOf(err error) Code {
	for code, sentinel := range codeToSentinel {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeUnknown
}

// String returns the code as its sentinel's message.
func (c Code) String() string {
	if err := Sentinel(c); err != nil {
		return err.Error()
	}
	return "unknown"
}

// AssertionFailedf creates an error describing a broken internal invariant.
func AssertionFailedf(format string, args ...interface{}) error {
	return crdberrors.AssertionFailedWithDepthf(1, format, args...)
}

// IsAssertionFailure reports whether err is, or wraps, an assertion failure.
func IsAssertionFailure(err error) bool {
	return crdberrors.IsAssertionFailure(err)
}

// Invariant panics with an assertion failure when cond does not hold.
func Invariant(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(crdberrors.AssertionFailedWithDepthf(1, format, args...))
	}
}
