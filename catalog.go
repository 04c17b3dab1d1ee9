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

	"github.com/pkg/errors"
)

// catalog maps names to collections. It is guarded by DB.mu.
type catalog struct {
	// byUUID CollectionUUID => Collection itself
	byUUID map[CollectionUUID]*Collection
	byName map[string]CollectionUUID

	// epoch changes whenever the catalog is reloaded; handles taken in an
	// older epoch must be re-resolved.
	epoch uint64
}

func newCatalog() *catalog {
	return &catalog{
		byUUID: make(map[CollectionUUID]*Collection),
		byName: make(map[string]CollectionUUID),
		epoch:  1,
	}
}

func (cat *catalog) lookupByName(name string) (*Collection, bool) {
	uuid, ok := cat.byName[name]
	if !ok {
		return nil, false
	}
	c, ok := cat.byUUID[uuid]
	return c, ok
}

// CreateCollection creates an empty collection.
func (db *DB) CreateCollection(name string, opts CollectionOptions) (*Collection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrDBClosed
	}
	if _, ok := db.catalog.byName[name]; ok {
		return nil, errors.Wrapf(ErrCollectionExists, "collection %q", name)
	}

	uuid := CollectionUUID(db.node.Generate().Int64())
	c := newCollection(db, uuid, name, opts)
	db.catalog.byUUID[uuid] = c
	db.catalog.byName[name] = uuid

	db.Logger().Printf("created collection %s uuid=%d oplog=%t", name, uuid, opts.Oplog)
	return c, nil
}

// ddl runs fn with the named collection locked exclusively and DB.mu held.
func (db *DB) ddl(name string, fn func(c *Collection) error) error {
	db.mu.RLock()
	if db.closed {
		db.mu.RUnlock()
		return ErrDBClosed
	}
	c, ok := db.catalog.lookupByName(name)
	db.mu.RUnlock()
	if !ok {
		return errors.Wrapf(ErrCollectionNotFound, "collection %q", name)
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrDBClosed
	}
	if c.IsDropped() || c.name != name {
		return errors.Wrapf(ErrCollectionNotFound, "collection %q", name)
	}
	return fn(c)
}

// DropCollection removes a collection and all its indexes. Plans that hold
// the collection fail when they next restore.
func (db *DB) DropCollection(name string) error {
	return db.ddl(name, func(c *Collection) error {
		delete(db.catalog.byName, name)
		delete(db.catalog.byUUID, c.uuid)
		for _, idx := range c.indexes {
			idx.dropped.Store(true)
		}
		c.dropped.Store(true)
		db.Logger().Printf("dropped collection %s uuid=%d", name, c.uuid)
		return nil
	})
}

// RenameCollection changes a collection's name. Its uuid is unchanged.
func (db *DB) RenameCollection(from, to string) error {
	return db.ddl(from, func(c *Collection) error {
		if _, ok := db.catalog.byName[to]; ok {
			return errors.Wrapf(ErrCollectionExists, "collection %q", to)
		}
		delete(db.catalog.byName, from)
		db.catalog.byName[to] = c.uuid
		c.name = to
		db.Logger().Printf("renamed collection %s to %s", from, to)
		return nil
	})
}

// ReloadCatalog starts a new catalog epoch. Collection handles survive, but
// every plan that captured the previous epoch is killed on restore.
func (db *DB) ReloadCatalog() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.catalog.epoch++
}

// CatalogEpoch returns the current catalog epoch.
func (db *DB) CatalogEpoch() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.catalog.epoch
}

// LookupCollectionByUUID returns the live collection with uuid.
func (db *DB) LookupCollectionByUUID(uuid CollectionUUID) (*Collection, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	c, ok := db.catalog.byUUID[uuid]
	return c, ok
}

// LookupCollectionByName returns the live collection called name.
func (db *DB) LookupCollectionByName(name string) (*Collection, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.catalog.lookupByName(name)
}

// CollectionNames returns the names of all collections in sorted order.
func (db *DB) CollectionNames() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names := make([]string, 0, len(db.catalog.byName))
	for name := range db.catalog.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
