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

package stagebuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/nutsdb/scanexec"
	"github.com/nutsdb/scanexec/internal/testutils"
	"github.com/nutsdb/scanexec/stage"
	"github.com/nutsdb/scanexec/value"
)

type builderFixture struct {
	db    *scanexec.DB
	opCtx *scanexec.OperationContext
	state *State
}

func runBuilderTest(t *testing.T, test func(t *testing.T, f *builderFixture), opts ...scanexec.Option) {
	opts = append([]scanexec.Option{
		scanexec.WithLogger(scanexec.NewZapLogger(zap.NewNop())),
		scanexec.WithYieldIterations(0),
		scanexec.WithYieldPeriod(0),
	}, opts...)
	db, err := scanexec.Open(scanexec.DefaultOptions, opts...)
	require.NoError(t, err)

	opCtx := db.NewOperationContext(context.Background())
	defer func() {
		opCtx.Done()
		require.NoError(t, db.Close())
	}()

	test(t, &builderFixture{db: db, opCtx: opCtx, state: NewState(nil)})
}

// createOplog creates an oplog holding a no-op entry at every secs.
func (f *builderFixture) createOplog(t *testing.T, secs ...uint32) *scanexec.Collection {
	coll, err := f.db.CreateCollection("oplog", scanexec.CollectionOptions{Oplog: true})
	require.NoError(t, err)
	f.appendOplog(t, secs...)
	return coll
}

func (f *builderFixture) appendOplog(t *testing.T, secs ...uint32) {
	require.NoError(t, f.db.Update(func(tx *scanexec.Tx) error {
		for _, s := range secs {
			if _, err := tx.Insert("oplog", testutils.OplogEntry(t, s)); err != nil {
				return err
			}
		}
		return nil
	}))
}

// createColl creates name holding the given documents under record ids
// 1..len(docs).
func (f *builderFixture) createColl(t *testing.T, name string, docs ...bson.Raw) *scanexec.Collection {
	coll, err := f.db.CreateCollection(name, scanexec.CollectionOptions{})
	require.NoError(t, err)
	require.NoError(t, f.db.Update(func(tx *scanexec.Tx) error {
		for _, d := range docs {
			if _, err := tx.Insert(name, d); err != nil {
				return err
			}
		}
		return nil
	}))
	return coll
}

// createXColl creates name holding {_id: i, x: i} for i in 1..n.
func (f *builderFixture) createXColl(t *testing.T, name string, n int) *scanexec.Collection {
	docs := make([]bson.Raw, n)
	for i := range docs {
		docs[i] = testutils.XDoc(t, i+1, int64(i+1))
	}
	return f.createColl(t, name, docs...)
}

func (f *builderFixture) build(coll *scanexec.Collection, csn *CollectionScanNode) (stage.PlanStage, PlanStageSlots) {
	return GenerateCollScan(f.opCtx, coll, csn, f.state, f.db.CollectionLockCallback())
}

func (f *builderFixture) prepare(t *testing.T, root stage.PlanStage, slots ...value.SlotID) []value.SlotAccessor {
	ctx, err := stage.Prepare(root, f.opCtx, f.state.Env)
	require.NoError(t, err)
	accs := make([]value.SlotAccessor, len(slots))
	for i, slot := range slots {
		accs[i], err = root.GetAccessor(ctx, slot)
		require.NoError(t, err)
	}
	return accs
}

// exec prepares, opens and drains root. Rows read before a failure are
// returned with the error.
func (f *builderFixture) exec(t *testing.T, root stage.PlanStage, slots ...value.SlotID) ([][]value.Value, error) {
	accs := f.prepare(t, root, slots...)
	defer root.Close()
	if err := root.Open(false); err != nil {
		return nil, err
	}
	return drain(root, accs)
}

func drain(root stage.PlanStage, accs []value.SlotAccessor) ([][]value.Value, error) {
	var rows [][]value.Value
	for {
		state, err := root.GetNext()
		if err != nil {
			return rows, err
		}
		if state == stage.IsEOF {
			return rows, nil
		}
		row := make([]value.Value, len(accs))
		for i, acc := range accs {
			row[i] = acc.CopyOrMoveValue()
		}
		rows = append(rows, row)
	}
}

func (f *builderFixture) mustExec(t *testing.T, root stage.PlanStage, slots ...value.SlotID) [][]value.Value {
	rows, err := f.exec(t, root, slots...)
	require.NoError(t, err)
	return rows
}

// recordIDs returns column i of rows, which holds record ids.
func recordIDs(rows [][]value.Value, i int) []int64 {
	out := make([]int64, 0, len(rows))
	for _, row := range rows {
		out = append(out, row[i].RecordID())
	}
	return out
}

// oplogSecs returns the seconds of the oplog record ids or timestamps in
// column i of rows.
func oplogSecs(rows [][]value.Value, i int) []uint32 {
	out := make([]uint32, 0, len(rows))
	for _, row := range rows {
		v := row[i]
		if v.Tag() == value.TagTimestamp {
			out = append(out, v.Timestamp().Secs())
			continue
		}
		out = append(out, value.Timestamp(v.RecordID()).Secs())
	}
	return out
}

func ts(secs uint32) *value.Timestamp {
	t := value.NewTimestamp(secs, 0)
	return &t
}

func rid(id int64) *scanexec.RecordID {
	r := scanexec.RecordID(id)
	return &r
}

// stageStats returns the stats of every stage of root named stageType.
func stageStats(root stage.PlanStage, stageType string) []*stage.PlanStageStats {
	var out []*stage.PlanStageStats
	root.Stats(false).Walk(func(_ int, s *stage.PlanStageStats) {
		if s.Common.StageType == stageType {
			out = append(out, s)
		}
	})
	return out
}
