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

package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nutsdb/scanexec"
	"github.com/nutsdb/scanexec/internal/testutils"
	"github.com/nutsdb/scanexec/keystring"
	"github.com/nutsdb/scanexec/metrics"
	"github.com/nutsdb/scanexec/value"
)

type planFixture struct {
	db       *scanexec.DB
	opCtx    *scanexec.OperationContext
	slots    *value.SlotIDGenerator
	env      *RuntimeEnvironment
	counters *metrics.Counters
}

func runPlanTest(t *testing.T, test func(t *testing.T, f *planFixture)) {
	counters := metrics.NewCounters()
	db, err := scanexec.Open(scanexec.DefaultOptions,
		scanexec.WithLogger(scanexec.NewZapLogger(zap.NewNop())),
		scanexec.WithMetricsSink(counters),
		scanexec.WithYieldIterations(0),
		scanexec.WithYieldPeriod(0),
	)
	require.NoError(t, err)

	opCtx := db.NewOperationContext(context.Background())
	defer func() {
		opCtx.Done()
		require.NoError(t, db.Close())
	}()

	slots := value.NewSlotIDGenerator()
	test(t, &planFixture{
		db:       db,
		opCtx:    opCtx,
		slots:    slots,
		env:      NewRuntimeEnvironment(slots),
		counters: counters,
	})
}

// createXCollection creates name holding {_id: i, x: xs[i]}, with record ids
// 1..len(xs), and an ascending index "x_1" on x.
func (f *planFixture) createXCollection(t *testing.T, name string, xs ...int64) *scanexec.Collection {
	coll, err := f.db.CreateCollection(name, scanexec.CollectionOptions{})
	require.NoError(t, err)
	f.insertX(t, name, xs...)
	_, err = f.db.CreateIndex(name, scanexec.IndexSpec{
		Name: "x_1",
		Key:  []scanexec.IndexKeyField{{Field: "x"}},
	})
	require.NoError(t, err)
	return coll
}

// insertX appends {x: x} documents to name.
func (f *planFixture) insertX(t *testing.T, name string, xs ...int64) {
	require.NoError(t, f.db.Update(func(tx *scanexec.Tx) error {
		for i, x := range xs {
			if _, err := tx.Insert(name, testutils.XDoc(t, i, x)); err != nil {
				return err
			}
		}
		return nil
	}))
}

func seq(from, to int64) []int64 {
	var xs []int64
	for x := from; x <= to; x++ {
		xs = append(xs, x)
	}
	return xs
}

// boundSlot registers a seek key over an ascending single-field index.
func (f *planFixture) boundSlot(t *testing.T, name string, d keystring.Discriminator, vals ...value.Value) value.SlotID {
	kb := keystring.NewBuilder(keystring.V1, 0)
	for _, v := range vals {
		require.NoError(t, kb.AppendValue(v))
	}
	kb.AppendDiscriminator(d)
	return f.env.RegisterSlot(name, value.MakeKeyStringView(kb.Value()))
}

func (f *planFixture) prepare(t *testing.T, root PlanStage, slots ...value.SlotID) []value.SlotAccessor {
	ctx, err := Prepare(root, f.opCtx, f.env)
	require.NoError(t, err)
	accs := make([]value.SlotAccessor, len(slots))
	for i, slot := range slots {
		accs[i], err = root.GetAccessor(ctx, slot)
		require.NoError(t, err)
	}
	return accs
}

// drain prepares and opens root and returns the values of slots for every
// row it produces.
func (f *planFixture) drain(t *testing.T, root PlanStage, slots ...value.SlotID) [][]value.Value {
	accs := f.prepare(t, root, slots...)
	require.NoError(t, root.Open(false))
	defer root.Close()
	return readAll(t, root, accs)
}

func readAll(t *testing.T, root PlanStage, accs []value.SlotAccessor) [][]value.Value {
	var rows [][]value.Value
	for {
		state, err := root.GetNext()
		require.NoError(t, err)
		if state == IsEOF {
			return rows
		}
		row := make([]value.Value, len(accs))
		for i, acc := range accs {
			row[i] = acc.CopyOrMoveValue()
		}
		rows = append(rows, row)
	}
}

// ints returns column i of rows as integers.
func ints(rows [][]value.Value, i int) []int64 {
	out := make([]int64, 0, len(rows))
	for _, row := range rows {
		v := row[i]
		switch v.Tag() {
		case value.TagRecordID:
			out = append(out, v.RecordID())
		case value.TagTimestamp:
			out = append(out, int64(v.Timestamp().Secs()))
		default:
			out = append(out, v.Int64())
		}
	}
	return out
}

// yield saves root, drops the operation's locks and snapshots and restores
// root.
func (f *planFixture) yield(root PlanStage) error {
	root.SaveState()
	f.opCtx.ReleaseLocks()
	f.opCtx.AbandonSnapshot()
	return root.RestoreState()
}
