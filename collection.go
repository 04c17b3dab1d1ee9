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
	"encoding/binary"
	"sync"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/nutsdb/scanexec/internal/data"
)

type (
	// CollectionUUID identifies a collection for its whole life, across renames.
	CollectionUUID int64

	// RecordID orders the records of a collection. Oplog record ids are the
	// entry's ts timestamp.
	RecordID int64
)

// CollectionOptions records params for creating a collection.
type CollectionOptions struct {
	// Oplog marks a timestamp-ordered, append-only collection.
	Oplog bool
}

// Record is a document and the id it is stored under.
type Record struct {
	ID   RecordID
	Data bson.Raw
}

// Collection is a handle on a catalog entry. The handle stays valid after the
// collection is dropped; IsDropped reports it.
type Collection struct {
	db    *DB
	uuid  CollectionUUID
	oplog bool

	// name and indexes are guarded by db.mu.
	name    string
	indexes map[string]*IndexCatalogEntry

	records *data.BTree
	dropped atomic.Bool

	// lock is held shared by readers until they yield and exclusively by DDL.
	lock sync.RWMutex

	nextID atomic.Int64

	oplogMu     sync.Mutex
	lastOplogID RecordID
	hasOplogID  bool
	visibility  *oplogVisibility
}

func newCollection(db *DB, uuid CollectionUUID, name string, opts CollectionOptions) *Collection {
	c := &Collection{
		db:      db,
		uuid:    uuid,
		oplog:   opts.Oplog,
		name:    name,
		indexes: make(map[string]*IndexCatalogEntry),
		records: data.NewBTree(),
	}
	if opts.Oplog {
		c.visibility = newOplogVisibility()
	}
	return c
}

func (c *Collection) UUID() CollectionUUID {
	return c.uuid
}

// Name returns the current name of the collection.
func (c *Collection) Name() string {
	c.db.mu.RLock()
	defer c.db.mu.RUnlock()
	return c.name
}

func (c *Collection) IsOplog() bool {
	return c.oplog
}

func (c *Collection) IsDropped() bool {
	return c.dropped.Load()
}

// RecordStore returns the store holding the collection's documents.
func (c *Collection) RecordStore() *RecordStore {
	return &RecordStore{coll: c}
}

// IndexCatalog returns the collection's indexes.
func (c *Collection) IndexCatalog() *IndexCatalog {
	return &IndexCatalog{coll: c}
}

// reserveOplogID checks that id extends the oplog and makes it invisible to
// forward readers until release.
func (c *Collection) reserveOplogID(id RecordID) bool {
	c.oplogMu.Lock()
	defer c.oplogMu.Unlock()
	if c.hasOplogID && id <= c.lastOplogID {
		return false
	}
	c.lastOplogID, c.hasOplogID = id, true
	c.visibility.reserve(id)
	return true
}

// RecordStore reads the records of a collection.
type RecordStore struct {
	coll *Collection
}

// GetCursor returns a cursor over the records visible to opCtx. Forward
// cursors on an oplog stop before the oldest uncommitted entry.
func (rs *RecordStore) GetCursor(opCtx *OperationContext, forward bool) *RecordCursor {
	return newRecordCursor(rs.coll, opCtx, forward)
}

// FindRecord returns the record stored under id in opCtx's snapshot.
func (rs *RecordStore) FindRecord(opCtx *OperationContext, id RecordID) (Record, bool) {
	item, ok := opCtx.snapshot(rs.coll.records, rs.coll.visibility).tree.Find(recordKey(id))
	if !ok {
		return Record{}, false
	}
	return Record{ID: id, Data: bson.Raw(item.Value)}, true
}

// NumRecords returns the number of records in opCtx's snapshot.
func (rs *RecordStore) NumRecords(opCtx *OperationContext) int {
	return opCtx.snapshot(rs.coll.records, rs.coll.visibility).tree.Count()
}

// WaitForAllEarlierOplogWritesToBeVisible blocks until every oplog entry
// reserved before the call has committed or rolled back. It is a no-op on
// other collections.
func (rs *RecordStore) WaitForAllEarlierOplogWritesToBeVisible(opCtx *OperationContext) error {
	if !rs.coll.oplog {
		return nil
	}
	return rs.coll.visibility.waitForAllEarlier(opCtx)
}

// recordKey encodes id so that keys sort like signed ids.
func recordKey(id RecordID) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id)^(1<<63))
	return b[:]
}

func recordIDFromKey(key []byte) RecordID {
	return RecordID(binary.BigEndian.Uint64(key) ^ (1 << 63))
}
