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
	"sync"

	"github.com/pkg/errors"

	"github.com/nutsdb/scanexec/errs"
	"github.com/nutsdb/scanexec/internal/data"
)

var errKilled = errors.New("operation was killed")

// LockAcquisitionCallback is invoked by scan stages whenever they acquire or
// re-acquire a collection. It takes whatever locks the caller's concurrency
// model requires; locks are held by opCtx until ReleaseLocks.
type LockAcquisitionCallback func(opCtx *OperationContext, uuid CollectionUUID) error

// OperationContext carries the state of one running operation: its
// cancellation, its storage snapshots and the locks it holds.
//
// An OperationContext is used by one goroutine at a time.
type OperationContext struct {
	db     *DB
	ctx    context.Context
	cancel context.CancelCauseFunc

	mu        sync.Mutex
	snapshots map[*data.BTree]snapshotView
	locks     map[CollectionUUID]*Collection
}

func newOperationContext(db *DB, parent context.Context) *OperationContext {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	return &OperationContext{
		db:        db,
		ctx:       ctx,
		cancel:    cancel,
		snapshots: make(map[*data.BTree]snapshotView),
		locks:     make(map[CollectionUUID]*Collection),
	}
}

func (o *OperationContext) DB() *DB {
	return o.db
}

func (o *OperationContext) Context() context.Context {
	return o.ctx
}

// CheckForInterrupt returns an error wrapping errs.ErrInterrupted once the
// operation was killed or its context is done.
func (o *OperationContext) CheckForInterrupt() error {
	if o.ctx.Err() == nil {
		return nil
	}
	return errors.Wrap(errs.ErrInterrupted, context.Cause(o.ctx).Error())
}

// Kill interrupts the operation. It may be called from any goroutine.
func (o *OperationContext) Kill() {
	o.cancel(errKilled)
}

// AbandonSnapshot drops every snapshot; the next read sees the latest
// committed state.
func (o *OperationContext) AbandonSnapshot() {
	o.mu.Lock()
	defer o.mu.Unlock()
	clear(o.snapshots)
}

// ReleaseLocks releases every collection lock the operation holds.
func (o *OperationContext) ReleaseLocks() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for uuid, c := range o.locks {
		c.lock.RUnlock()
		delete(o.locks, uuid)
	}
}

// Done releases the operation's locks and snapshots.
func (o *OperationContext) Done() {
	o.ReleaseLocks()
	o.AbandonSnapshot()
	o.cancel(context.Canceled)
}

// snapshotView is a point-in-time copy of a tree. For oplog record trees it
// also carries the oldest uncommitted id at the time of the copy.
type snapshotView struct {
	tree     *data.BTree
	hideFrom RecordID
	hides    bool
}

// snapshot returns opCtx's point-in-time copy of live, taking one on first
// use. vis is read under the same lock as the copy, so the hide point matches
// the copied contents.
func (o *OperationContext) snapshot(live *data.BTree, vis *oplogVisibility) snapshotView {
	o.mu.Lock()
	defer o.mu.Unlock()
	if view, ok := o.snapshots[live]; ok {
		return view
	}
	o.db.mu.RLock()
	view := snapshotView{tree: live.Copy()}
	if vis != nil {
		view.hideFrom, view.hides = vis.oldestPending()
	}
	o.db.mu.RUnlock()
	o.snapshots[live] = view
	return view
}

// lockCollectionShared takes c's lock in shared mode unless already held.
func (o *OperationContext) lockCollectionShared(c *Collection) {
	o.mu.Lock()
	_, held := o.locks[c.uuid]
	o.mu.Unlock()
	if held {
		return
	}
	c.lock.RLock()
	o.mu.Lock()
	o.locks[c.uuid] = c
	o.mu.Unlock()
}

// HoldsLock reports whether the operation holds uuid's collection lock.
func (o *OperationContext) HoldsLock(uuid CollectionUUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, held := o.locks[uuid]
	return held
}

// CollectionLockCallback returns a LockAcquisitionCallback that takes the
// collection lock in shared mode. DDL on the collection waits until the
// operation yields or finishes.
func (db *DB) CollectionLockCallback() LockAcquisitionCallback {
	return func(opCtx *OperationContext, uuid CollectionUUID) error {
		if err := opCtx.CheckForInterrupt(); err != nil {
			return err
		}
		c, ok := db.LookupCollectionByUUID(uuid)
		if !ok {
			return nil
		}
		opCtx.lockCollectionShared(c)
		return nil
	}
}
