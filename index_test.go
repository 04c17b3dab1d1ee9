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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/nutsdb/scanexec/internal/testutils"
	"github.com/nutsdb/scanexec/keystring"
	"github.com/nutsdb/scanexec/value"
)

func xKey(t *testing.T, ord keystring.Ordering, x int64, d keystring.Discriminator) keystring.Value {
	b := keystring.NewBuilder(keystring.V1, ord)
	require.NoError(t, b.AppendValue(value.MakeInt64(x)))
	b.AppendDiscriminator(d)
	return b.Value()
}

func collectIndex(c *IndexCursor, first IndexEntry, ok bool) []RecordID {
	var ids []RecordID
	for ok {
		ids = append(ids, first.RecordID)
		first, ok = c.NextKeyString()
	}
	return ids
}

func TestCatalog_CreateDropRename(t *testing.T) {
	runDBTest(t, func(t *testing.T, db *DB) {
		c, err := db.CreateCollection("c", CollectionOptions{})
		require.NoError(t, err)
		_, err = db.CreateCollection("c", CollectionOptions{})
		assert.ErrorIs(t, err, ErrCollectionExists)

		require.NoError(t, db.RenameCollection("c", "d"))
		assert.Equal(t, "d", c.Name())
		_, ok := db.LookupCollectionByName("c")
		assert.False(t, ok)
		got, ok := db.LookupCollectionByUUID(c.UUID())
		require.True(t, ok)
		assert.Same(t, c, got)
		assert.Equal(t, []string{"d"}, db.CollectionNames())

		epoch := db.CatalogEpoch()
		db.ReloadCatalog()
		assert.Equal(t, epoch+1, db.CatalogEpoch())

		require.NoError(t, db.DropCollection("d"))
		assert.True(t, c.IsDropped())
		assert.True(t, IsCollectionNotFound(db.DropCollection("d")))
		_, ok = db.LookupCollectionByUUID(c.UUID())
		assert.False(t, ok)
	})
}

func TestIndex_BuildAndMaintain(t *testing.T) {
	runDBTest(t, func(t *testing.T, db *DB) {
		_, err := db.CreateCollection("c", CollectionOptions{})
		require.NoError(t, err)
		insertX(t, db, "c", 30, 10, 20)

		e, err := db.CreateIndex("c", IndexSpec{Name: "x_1", Key: []IndexKeyField{{Field: "x"}}})
		require.NoError(t, err)
		_, err = db.CreateIndex("c", IndexSpec{Name: "x_1", Key: []IndexKeyField{{Field: "x"}}})
		assert.ErrorIs(t, err, ErrIndexExists)

		insertX(t, db, "c", 15)

		opCtx := db.NewOperationContext(context.Background())
		defer opCtx.Done()

		sdi := e.SortedDataInterface()
		require.Equal(t, 4, sdi.NumEntries(opCtx))

		fwd := sdi.NewCursor(opCtx, true)
		first, ok := fwd.NextKeyString()
		assert.Equal(t, []RecordID{2, 4, 3, 1}, collectIndex(fwd, first, ok))

		rev := sdi.NewCursor(opCtx, false)
		first, ok = rev.NextKeyString()
		assert.Equal(t, []RecordID{1, 3, 4, 2}, collectIndex(rev, first, ok))

		first, ok = fwd.SeekForKeyString(xKey(t, e.Ordering(), 15, keystring.ExclusiveBefore))
		assert.Equal(t, []RecordID{4, 3, 1}, collectIndex(fwd, first, ok))

		first, ok = rev.SeekForKeyString(xKey(t, e.Ordering(), 20, keystring.ExclusiveAfter))
		assert.Equal(t, []RecordID{3, 4, 2}, collectIndex(rev, first, ok))
	})
}

func TestIndex_Descending(t *testing.T) {
	runDBTest(t, func(t *testing.T, db *DB) {
		_, err := db.CreateCollection("c", CollectionOptions{})
		require.NoError(t, err)
		e, err := db.CreateIndex("c", IndexSpec{Name: "x_-1", Key: []IndexKeyField{{Field: "x", Descending: true}}})
		require.NoError(t, err)
		insertX(t, db, "c", 1, 3, 2)

		opCtx := db.NewOperationContext(context.Background())
		defer opCtx.Done()

		cur := e.SortedDataInterface().NewCursor(opCtx, true)
		first, ok := cur.NextKeyString()
		assert.Equal(t, []RecordID{2, 3, 1}, collectIndex(cur, first, ok))
	})
}

func TestIndex_UnsupportedKeyRollsBackCommit(t *testing.T) {
	runDBTest(t, func(t *testing.T, db *DB) {
		c, err := db.CreateCollection("c", CollectionOptions{})
		require.NoError(t, err)
		_, err = db.CreateIndex("c", IndexSpec{Name: "x_1", Key: []IndexKeyField{{Field: "x"}}})
		require.NoError(t, err)

		err = db.Update(func(tx *Tx) error {
			if _, err := tx.Insert("c", testutils.XDoc(t, 0, 1)); err != nil {
				return err
			}
			_, err := tx.Insert("c", testutils.Doc(t, bson.D{{Key: "x", Value: bson.A{1, 2}}}))
			return err
		})
		assert.ErrorIs(t, err, ErrUnsupportedIndexKey)

		opCtx := db.NewOperationContext(context.Background())
		defer opCtx.Done()
		assert.Equal(t, 0, c.RecordStore().NumRecords(opCtx))
	})
}

func TestIndex_Drop(t *testing.T) {
	runDBTest(t, func(t *testing.T, db *DB) {
		c, err := db.CreateCollection("c", CollectionOptions{})
		require.NoError(t, err)
		spec := IndexSpec{Name: "x_1", Key: []IndexKeyField{{Field: "x"}}}
		e, err := db.CreateIndex("c", spec)
		require.NoError(t, err)
		require.Same(t, e, c.IndexCatalog().FindIndexByName("x_1"))

		require.NoError(t, db.DropIndex("c", "x_1"))
		assert.True(t, e.IsDropped())
		assert.Nil(t, c.IndexCatalog().FindIndexByName("x_1"))
		assert.True(t, IsIndexNotFound(db.DropIndex("c", "x_1")))

		again, err := db.CreateIndex("c", spec)
		require.NoError(t, err)
		assert.NotEqual(t, e.Ident(), again.Ident())
		assert.Len(t, c.IndexCatalog().Entries(), 1)
	})
}
