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
	"sync/atomic"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/nutsdb/scanexec/keystring"
	"github.com/nutsdb/scanexec/value"
)

const (
	// txStatusRunning means the tx is running
	txStatusRunning = 1
	// txStatusCommitting means the tx is committing
	txStatusCommitting = 2
	// txStatusClosed means the tx is closed, ether committed or rollback
	txStatusClosed = 3
)

// Tx represents a transaction.
//
// Writes are buffered until Commit, which applies them atomically under the
// DB write lock. Any number of write transactions may be open at once.
type Tx struct {
	id            int64
	db            *DB
	writable      bool
	status        atomic.Value
	pendingWrites []*pendingWrite
	reservations  []*pendingWrite
}

type pendingWrite struct {
	coll   *Collection
	id     RecordID
	doc    bson.Raw
	delete bool
}

// Begin opens a new transaction. All transactions must be closed by calling
// Commit() or Rollback() when done.
func (db *DB) Begin(writable bool) (tx *Tx, err error) {
	tx = &Tx{
		id:       db.node.Generate().Int64(),
		db:       db,
		writable: writable,
	}
	tx.setStatusRunning()

	if db.isClosed() {
		tx.setStatusClosed()
		return nil, ErrDBClosed
	}

	return tx, nil
}

func (tx *Tx) ID() int64 {
	return tx.id
}

func (tx *Tx) checkTxIsClosed() error {
	if tx.db == nil || !tx.isRunning() {
		return ErrTxClosed
	}
	return nil
}

func (tx *Tx) checkWritable() error {
	if err := tx.checkTxIsClosed(); err != nil {
		return err
	}
	if !tx.writable {
		return ErrTxNotWritable
	}
	return nil
}

func (tx *Tx) collection(name string) (*Collection, error) {
	c, ok := tx.db.LookupCollectionByName(name)
	if !ok {
		return nil, errors.Wrapf(ErrCollectionNotFound, "collection %q", name)
	}
	return c, nil
}

// Insert adds doc to the collection and returns its record id. Documents
// inserted into an oplog must carry a "ts" timestamp greater than that of
// every entry inserted before; the timestamp becomes the record id.
func (tx *Tx) Insert(collName string, doc bson.Raw) (RecordID, error) {
	if err := tx.checkWritable(); err != nil {
		return 0, err
	}
	if err := doc.Validate(); err != nil {
		return 0, errors.Wrapf(ErrInvalidDocument, "%v", err)
	}
	c, err := tx.collection(collName)
	if err != nil {
		return 0, err
	}

	w := &pendingWrite{coll: c, doc: append(bson.Raw(nil), doc...)}
	if c.oplog {
		t, i, ok := doc.Lookup("ts").TimestampOK()
		if !ok {
			return 0, errors.Wrapf(ErrOplogOutOfOrder, "oplog entry without ts timestamp")
		}
		w.id = RecordID(value.NewTimestamp(t, i))
		if !c.reserveOplogID(w.id) {
			return 0, errors.Wrapf(ErrOplogOutOfOrder, "ts %s", value.NewTimestamp(t, i))
		}
		tx.reservations = append(tx.reservations, w)
	} else {
		w.id = RecordID(c.nextID.Add(1))
	}

	tx.pendingWrites = append(tx.pendingWrites, w)
	return w.id, nil
}

// Delete removes the record id from the collection.
func (tx *Tx) Delete(collName string, id RecordID) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	c, err := tx.collection(collName)
	if err != nil {
		return err
	}
	if _, ok := tx.get(c, id); !ok {
		return errors.Wrapf(ErrRecordNotFound, "record %d in %s", id, collName)
	}
	tx.pendingWrites = append(tx.pendingWrites, &pendingWrite{coll: c, id: id, delete: true})
	return nil
}

// Get returns the committed document stored under id.
func (tx *Tx) Get(collName string, id RecordID) (bson.Raw, error) {
	if err := tx.checkTxIsClosed(); err != nil {
		return nil, err
	}
	c, err := tx.collection(collName)
	if err != nil {
		return nil, err
	}
	doc, ok := tx.get(c, id)
	if !ok {
		return nil, errors.Wrapf(ErrRecordNotFound, "record %d in %s", id, collName)
	}
	return doc, nil
}

func (tx *Tx) get(c *Collection, id RecordID) (bson.Raw, bool) {
	tx.db.mu.RLock()
	defer tx.db.mu.RUnlock()
	item, ok := c.records.Find(recordKey(id))
	if !ok {
		return nil, false
	}
	return bson.Raw(item.Value), true
}

type indexWrite struct {
	entry *IndexCatalogEntry
	key   keystring.Value
}

// Commit applies the pending writes. Either all of them become visible or,
// on error, none do.
func (tx *Tx) Commit() (err error) {
	if tx.isClosed() {
		return ErrCannotCommitAClosedTx
	}
	if tx.db == nil {
		tx.setStatusClosed()
		return ErrDBClosed
	}

	defer func() {
		tx.releaseReservations()
		tx.setStatusClosed()
		tx.db = nil
		tx.pendingWrites = nil
	}()

	if !tx.writable || len(tx.pendingWrites) == 0 {
		return nil
	}

	tx.setStatusCommitting()
	tx.lock()
	defer tx.unlock()

	if tx.db.closed {
		return ErrDBClosed
	}

	keys, err := tx.prepareIndexWrites()
	if err != nil {
		return err
	}

	for _, w := range tx.pendingWrites {
		if w.delete {
			w.coll.records.Delete(recordKey(w.id))
			continue
		}
		w.coll.records.Insert(recordKey(w.id), w.doc)
	}
	for _, k := range keys.inserts {
		k.entry.tree.Insert(k.key, nil)
	}
	for _, k := range keys.deletes {
		k.entry.tree.Delete(k.key)
	}

	return nil
}

type indexWrites struct {
	inserts []indexWrite
	deletes []indexWrite
}

// prepareIndexWrites validates the pending writes against the current catalog
// and computes their index keys. It runs with DB.mu held.
func (tx *Tx) prepareIndexWrites() (indexWrites, error) {
	var out indexWrites
	for _, w := range tx.pendingWrites {
		if w.coll.IsDropped() {
			return out, errors.Wrapf(ErrCollectionNotFound, "collection %s dropped before commit", w.coll.name)
		}

		doc := w.doc
		if w.delete {
			item, ok := w.coll.records.Find(recordKey(w.id))
			if !ok {
				continue
			}
			doc = bson.Raw(item.Value)
		}

		for _, e := range w.coll.indexes {
			key, err := e.keyFor(doc, w.id)
			if err != nil {
				return out, err
			}
			if w.delete {
				out.deletes = append(out.deletes, indexWrite{entry: e, key: key})
			} else {
				out.inserts = append(out.inserts, indexWrite{entry: e, key: key})
			}
		}
	}
	return out, nil
}

// Rollback closes the transaction.
func (tx *Tx) Rollback() error {
	if tx.isClosed() {
		return ErrCannotRollbackAClosedTx
	}
	if tx.isCommitting() {
		return ErrCannotRollbackACommittingTx
	}
	if tx.db == nil {
		tx.setStatusClosed()
		return ErrDBClosed
	}

	tx.releaseReservations()
	tx.setStatusClosed()

	tx.db = nil
	tx.pendingWrites = nil

	return nil
}

func (tx *Tx) releaseReservations() {
	for _, w := range tx.reservations {
		w.coll.visibility.release(w.id)
	}
	tx.reservations = nil
}

// lock takes the DB write lock for the duration of a commit.
func (tx *Tx) lock() {
	tx.db.mu.Lock()
}

func (tx *Tx) unlock() {
	tx.db.mu.Unlock()
}

// setStatusCommitting will change the tx status to txStatusCommitting
func (tx *Tx) setStatusCommitting() {
	status := txStatusCommitting
	tx.status.Store(status)
}

// setStatusClosed will change the tx status to txStatusClosed
func (tx *Tx) setStatusClosed() {
	status := txStatusClosed
	tx.status.Store(status)
}

// setStatusRunning will change the tx status to txStatusRunning
func (tx *Tx) setStatusRunning() {
	status := txStatusRunning
	tx.status.Store(status)
}

// isRunning will check if the tx status is txStatusRunning
func (tx *Tx) isRunning() bool {
	status := tx.status.Load().(int)
	return status == txStatusRunning
}

// isCommitting will check if the tx status is txStatusCommitting
func (tx *Tx) isCommitting() bool {
	status := tx.status.Load().(int)
	return status == txStatusCommitting
}

// isClosed will check if the tx status is txStatusClosed
func (tx *Tx) isClosed() bool {
	status := tx.status.Load().(int)
	return status == txStatusClosed
}
