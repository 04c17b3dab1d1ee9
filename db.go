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

	"github.com/antlabs/timer"
	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"

	"github.com/nutsdb/scanexec/metrics"
)

// DB is an in-memory document store. Collections, their records and their
// indexes live in copy-on-write B-trees; readers work on snapshots and never
// block writers except during the brief window in which a commit is applied.
type DB struct {
	opt Options

	// mu guards the catalog and serialises commits. Snapshots are taken under
	// the read lock so that a reader never sees half of a commit.
	mu      sync.RWMutex
	catalog *catalog
	closed  bool

	node   *snowflake.Node
	yields *yieldTimer
}

// Open returns a newly initialized DB object with Option.
func Open(options Options, ops ...Option) (*DB, error) {
	opts := &options
	for _, do := range ops {
		do(opts)
	}
	return open(*opts)
}

func open(opt Options) (*DB, error) {
	node, err := snowflake.NewNode(opt.NodeNum)
	if err != nil {
		return nil, errors.Wrapf(err, "node num %d", opt.NodeNum)
	}
	if opt.MetricsSink == nil {
		opt.MetricsSink = metrics.Noop
	}

	db := &DB{
		opt:     opt,
		catalog: newCatalog(),
		node:    node,
		yields:  newYieldTimer(timer.NewTimer()),
	}
	db.yields.run()
	return db, nil
}

// Options returns the options the DB was opened with.
func (db *DB) Options() Options {
	return db.opt
}

// Logger returns the DB's logger.
func (db *DB) Logger() ILogger {
	if db.opt.Logger != nil {
		return db.opt.Logger
	}
	return GetLogger()
}

// MetricsSink returns the sink stages built against this DB report to.
func (db *DB) MetricsSink() metrics.Sink {
	return db.opt.MetricsSink
}

// Update executes a function within a managed read/write transaction.
func (db *DB) Update(fn func(tx *Tx) error) error {
	if fn == nil {
		return ErrFn
	}

	return db.managed(true, fn)
}

// View executes a function within a managed read-only transaction.
func (db *DB) View(fn func(tx *Tx) error) error {
	if fn == nil {
		return ErrFn
	}

	return db.managed(false, fn)
}

func (db *DB) managed(writable bool, fn func(tx *Tx) error) (err error) {
	var tx *Tx

	tx, err = db.Begin(writable)
	if err != nil {
		return err
	}
	defer func() {
		var panicked bool
		if r := recover(); r != nil {
			// resume normal execution
			panicked = true
		}
		if (panicked || err != nil) && !tx.isClosed() {
			if errRollback := tx.Rollback(); errRollback != nil {
				err = errRollback
			}
		}
	}()

	if err = fn(tx); err == nil {
		err = tx.Commit()
	}
	return err
}

// NewOperationContext creates the context a plan runs under. The returned
// context must be finished with Done.
func (db *DB) NewOperationContext(ctx context.Context) *OperationContext {
	return newOperationContext(db, ctx)
}

// Close releases the DB. Operations on a closed DB return ErrDBClosed.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrDBClosed
	}

	db.closed = true
	db.yields.close()

	return nil
}

func (db *DB) isClosed() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.closed
}
