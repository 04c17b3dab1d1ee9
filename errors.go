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

import (
	"errors"

	"github.com/nutsdb/scanexec/errs"
)

var (
	// ErrTxClosed is returned when committing or rolling back a transaction
	// that has already been committed or rolled back.
	ErrTxClosed = errors.New("tx is closed")

	// ErrTxNotWritable is returned when performing a write operation on
	// a read-only transaction.
	ErrTxNotWritable = errors.New("tx not writable")

	// ErrCannotCommitAClosedTx is returned when the tx committing a closed tx
	ErrCannotCommitAClosedTx = errors.New("can not commit a closed tx")

	// ErrCannotRollbackACommittingTx is returned when the tx rollback a committing tx
	ErrCannotRollbackACommittingTx = errors.New("can not rollback a committing tx")

	// ErrCannotRollbackAClosedTx is returned when the tx rollback a closed tx
	ErrCannotRollbackAClosedTx = errors.New("can not rollback a closed tx")
)

// IsDBClosed is true if the error indicates the db was closed.
func IsDBClosed(err error) bool {
	return errors.Is(err, ErrDBClosed)
}

// IsCollectionNotFound is true if the error indicates the collection does not exist.
func IsCollectionNotFound(err error) bool {
	return errors.Is(err, ErrCollectionNotFound)
}

// IsIndexNotFound is true if the error indicates the index does not exist.
func IsIndexNotFound(err error) bool {
	return errors.Is(err, ErrIndexNotFound)
}

// IsRecordNotFound is true if the error indicates the record does not exist.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// IsOplogOutOfOrder is true if an oplog insert was rejected for its ts.
func IsOplogOutOfOrder(err error) bool {
	return errors.Is(err, ErrOplogOutOfOrder)
}

// IsQueryPlanKilled is true if a plan failed re-validation after a yield.
func IsQueryPlanKilled(err error) bool {
	return errors.Is(err, errs.ErrQueryPlanKilled)
}

// IsKeyNotFound is true if a scan could not resume from its record id.
func IsKeyNotFound(err error) bool {
	return errors.Is(err, errs.ErrKeyNotFound)
}

// IsOplogQueryMinTsMissing is true if the oplog no longer holds the requested
// minimum timestamp.
func IsOplogQueryMinTsMissing(err error) bool {
	return errors.Is(err, errs.ErrOplogQueryMinTsMissing)
}

func IsInterrupted(err error) bool {
	return errors.Is(err, errs.ErrInterrupted)
}
