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
	"go.mongodb.org/mongo-driver/bson"

	"github.com/nutsdb/scanexec/internal/data"
	"github.com/nutsdb/scanexec/keystring"
)

// RecordCursor walks the records of a collection in record id order.
//
// A cursor must be saved before its operation abandons its snapshot and
// restored afterwards. After Restore, Next continues strictly after the last
// record returned, even if that record was deleted in the meantime.
type RecordCursor struct {
	coll    *Collection
	opCtx   *OperationContext
	forward bool
	cur     *data.Cursor

	// forward oplog cursors never return ids >= hideFrom
	hideFrom RecordID
	hides    bool
	atHidden bool

	last    RecordID
	hasLast bool
}

func newRecordCursor(coll *Collection, opCtx *OperationContext, forward bool) *RecordCursor {
	c := &RecordCursor{
		coll:    coll,
		opCtx:   opCtx,
		forward: forward,
	}
	c.cur = c.attach().NewCursor(data.DirectionOf(forward))
	return c
}

// attach takes the operation's snapshot of the records along with its hide
// point.
func (c *RecordCursor) attach() *data.BTree {
	view := c.opCtx.snapshot(c.coll.records, c.coll.visibility)
	c.hideFrom = view.hideFrom
	c.hides = view.hides && c.coll.oplog && c.forward
	return view.tree
}

func (c *RecordCursor) record(item *data.Item, ok bool) (Record, bool) {
	if !ok {
		return Record{}, false
	}
	id := recordIDFromKey(item.Key)
	if c.hides && id >= c.hideFrom {
		c.atHidden = true
		return Record{}, false
	}
	c.atHidden = false
	c.last, c.hasLast = id, true
	return Record{ID: id, Data: bson.Raw(item.Value)}, true
}

// Next returns the next record in cursor direction.
func (c *RecordCursor) Next() (Record, bool) {
	if c.atHidden {
		return Record{}, false
	}
	return c.record(c.cur.Next())
}

// SeekExact positions the cursor on id. When id is absent the cursor is
// exhausted.
func (c *RecordCursor) SeekExact(id RecordID) (Record, bool) {
	c.atHidden = false
	return c.record(c.cur.SeekExact(recordKey(id)))
}

// SeekNear positions the cursor on the largest id <= id, or on the smallest
// id when all are larger.
func (c *RecordCursor) SeekNear(id RecordID) (Record, bool) {
	c.atHidden = false
	return c.record(c.cur.SeekNear(recordKey(id)))
}

// Save releases the cursor's hold on its snapshot.
func (c *RecordCursor) Save() {
	c.cur.Save()
}

// Restore attaches the cursor to the operation's current snapshot.
func (c *RecordCursor) Restore() {
	c.cur.Restore(c.attach())
	if c.atHidden {
		// the hidden record was consumed by the underlying cursor; step back
		// so it is returned once visible
		c.atHidden = false
		if c.hasLast {
			c.cur.Rewind(recordKey(c.last))
		} else {
			c.cur.Rewind(nil)
		}
	}
}

func (c *RecordCursor) DetachFromOperationContext() {
	c.opCtx = nil
}

func (c *RecordCursor) ReattachToOperationContext(opCtx *OperationContext) {
	c.opCtx = opCtx
}

func (c *RecordCursor) Close() {
	c.cur.Close()
}

// IndexEntry is one key of an index together with the record it points at.
type IndexEntry struct {
	KeyString keystring.Value
	RecordID  RecordID
}

// IndexCursor walks the keys of an index in key order. It follows the same
// save and restore rules as RecordCursor.
type IndexCursor struct {
	entry   *IndexCatalogEntry
	opCtx   *OperationContext
	forward bool
	cur     *data.Cursor
}

func newIndexCursor(entry *IndexCatalogEntry, opCtx *OperationContext, forward bool) *IndexCursor {
	return &IndexCursor{
		entry:   entry,
		opCtx:   opCtx,
		forward: forward,
		cur:     opCtx.snapshot(entry.tree, nil).tree.NewCursor(data.DirectionOf(forward)),
	}
}

func (c *IndexCursor) entryOf(item *data.Item, ok bool) (IndexEntry, bool) {
	if !ok {
		return IndexEntry{}, false
	}
	ks := keystring.Value(item.Key)
	id, _ := ks.RecordID()
	return IndexEntry{KeyString: ks, RecordID: RecordID(id)}, true
}

// SeekForKeyString positions a forward cursor on the first key >= ks and a
// reverse cursor on the last key <= ks.
func (c *IndexCursor) SeekForKeyString(ks keystring.Value) (IndexEntry, bool) {
	return c.entryOf(c.cur.Seek(ks))
}

// NextKeyString returns the next key in cursor direction.
func (c *IndexCursor) NextKeyString() (IndexEntry, bool) {
	return c.entryOf(c.cur.Next())
}

func (c *IndexCursor) Save() {
	c.cur.Save()
}

func (c *IndexCursor) Restore() {
	c.cur.Restore(c.opCtx.snapshot(c.entry.tree, nil).tree)
}

func (c *IndexCursor) DetachFromOperationContext() {
	c.opCtx = nil
}

func (c *IndexCursor) ReattachToOperationContext(opCtx *OperationContext) {
	c.opCtx = opCtx
}

func (c *IndexCursor) Close() {
	c.cur.Close()
}
