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
	"sort"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/nutsdb/scanexec/internal/data"
	"github.com/nutsdb/scanexec/keystring"
	"github.com/nutsdb/scanexec/value"
)

type (
	// IndexKeyField is one component of an index key pattern. Field may be a
	// dotted path into embedded documents.
	IndexKeyField struct {
		Field      string
		Descending bool
	}

	// IndexSpec describes an index.
	IndexSpec struct {
		Name string
		Key  []IndexKeyField
	}
)

// IndexCatalogEntry is an index of a collection. Entries are never reused: an
// index dropped and created again under the same name gets a new ident.
type IndexCatalogEntry struct {
	coll     *Collection
	ident    int64
	spec     IndexSpec
	ordering keystring.Ordering
	tree     *data.BTree
	dropped  atomic.Bool
}

func (e *IndexCatalogEntry) Ident() int64 { return e.ident }

func (e *IndexCatalogEntry) Name() string { return e.spec.Name }

func (e *IndexCatalogEntry) Spec() IndexSpec { return e.spec }

func (e *IndexCatalogEntry) Ordering() keystring.Ordering { return e.ordering }

func (e *IndexCatalogEntry) IsDropped() bool { return e.dropped.Load() }

// SortedDataInterface returns the sorted key store of the index.
func (e *IndexCatalogEntry) SortedDataInterface() *SortedDataInterface {
	return &SortedDataInterface{entry: e}
}

// keyFor encodes the entry doc contributes to the index. Missing fields index
// as null.
func (e *IndexCatalogEntry) keyFor(doc bson.Raw, id RecordID) (keystring.Value, error) {
	b := keystring.NewBuilder(keystring.V1, e.ordering)
	for _, f := range e.spec.Key {
		v := value.GetPath(doc, f.Field)
		if err := b.AppendValue(v); err != nil {
			return nil, errors.Wrapf(ErrUnsupportedIndexKey, "index %s field %s: %v", e.spec.Name, f.Field, err)
		}
	}
	b.AppendRecordID(int64(id))
	return b.Value(), nil
}

// IndexCatalog lists the indexes of a collection.
type IndexCatalog struct {
	coll *Collection
}

// FindIndexByName returns the live index called name, or nil.
func (ic *IndexCatalog) FindIndexByName(name string) *IndexCatalogEntry {
	db := ic.coll.db
	db.mu.RLock()
	defer db.mu.RUnlock()
	return ic.coll.indexes[name]
}

// Entries returns the live indexes sorted by name.
func (ic *IndexCatalog) Entries() []*IndexCatalogEntry {
	db := ic.coll.db
	db.mu.RLock()
	defer db.mu.RUnlock()
	entries := make([]*IndexCatalogEntry, 0, len(ic.coll.indexes))
	for _, e := range ic.coll.indexes {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].spec.Name < entries[j].spec.Name })
	return entries
}

// SortedDataInterface reads the keys of one index.
type SortedDataInterface struct {
	entry *IndexCatalogEntry
}

func (s *SortedDataInterface) KeyStringVersion() keystring.Version {
	return keystring.V1
}

func (s *SortedDataInterface) Ordering() keystring.Ordering {
	return s.entry.ordering
}

// NewCursor returns a cursor over the keys visible to opCtx.
func (s *SortedDataInterface) NewCursor(opCtx *OperationContext, forward bool) *IndexCursor {
	return newIndexCursor(s.entry, opCtx, forward)
}

// NumEntries returns the number of keys in opCtx's snapshot.
func (s *SortedDataInterface) NumEntries(opCtx *OperationContext) int {
	return opCtx.snapshot(s.entry.tree, nil).tree.Count()
}

// CreateIndex builds an index over the existing records of a collection.
func (db *DB) CreateIndex(collName string, spec IndexSpec) (*IndexCatalogEntry, error) {
	if spec.Name == "" || len(spec.Key) == 0 {
		return nil, errors.Errorf("index spec needs a name and at least one key field")
	}
	if len(spec.Key) > 32 {
		return nil, errors.Errorf("index %s: at most 32 key fields", spec.Name)
	}

	var entry *IndexCatalogEntry
	err := db.ddl(collName, func(c *Collection) error {
		if _, ok := c.indexes[spec.Name]; ok {
			return errors.Wrapf(ErrIndexExists, "index %q on %s", spec.Name, collName)
		}

		descending := make([]bool, len(spec.Key))
		for i, f := range spec.Key {
			descending[i] = f.Descending
		}
		e := &IndexCatalogEntry{
			coll:     c,
			ident:    db.node.Generate().Int64(),
			spec:     spec,
			ordering: keystring.MakeOrdering(descending...),
			tree:     data.NewBTree(),
		}

		var buildErr error
		c.records.Ascend(nil, func(item *data.Item) bool {
			key, err := e.keyFor(bson.Raw(item.Value), recordIDFromKey(item.Key))
			if err != nil {
				buildErr = err
				return false
			}
			e.tree.Insert(key, nil)
			return true
		})
		if buildErr != nil {
			return buildErr
		}

		c.indexes[spec.Name] = e
		entry = e
		db.Logger().Printf("built index %s on %s with %d keys", spec.Name, collName, e.tree.Count())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// DropIndex removes an index. Plans scanning it fail when they next restore.
func (db *DB) DropIndex(collName, indexName string) error {
	return db.ddl(collName, func(c *Collection) error {
		e, ok := c.indexes[indexName]
		if !ok {
			return errors.Wrapf(ErrIndexNotFound, "index %q on %s", indexName, collName)
		}
		delete(c.indexes, indexName)
		e.dropped.Store(true)
		db.Logger().Printf("dropped index %s on %s", indexName, collName)
		return nil
	})
}
