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

package scanexec

import "errors"

var (
	// ErrDBClosed is returned when db is closed.
	ErrDBClosed = errors.New("db is closed")

	// ErrFn is returned when fn is nil.
	ErrFn = errors.New("err fn")

	// ErrCollectionExists is returned when creating a collection whose name is taken.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrCollectionNotFound is returned when looking for a collection that does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrIndexExists is returned when creating an index whose name is taken.
	ErrIndexExists = errors.New("index already exists")

	// ErrIndexNotFound is returned when looking for an index that does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrRecordNotFound is returned when deleting a record that does not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrOplogOutOfOrder is returned when an oplog entry has no ts or its ts
	// does not exceed every ts inserted before it.
	ErrOplogOutOfOrder = errors.New("oplog entry out of order")

	// ErrUnsupportedIndexKey is returned when a document holds a value that an
	// index cannot encode.
	ErrUnsupportedIndexKey = errors.New("unsupported index key")

	// ErrInvalidDocument is returned when a record is not a well-formed BSON document.
	ErrInvalidDocument = errors.New("invalid document")
)
