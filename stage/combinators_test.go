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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutsdb/scanexec/errs"
	"github.com/nutsdb/scanexec/value"
)

func constInt(i int64) Expression {
	return MakeConstant(value.MakeInt64(i))
}

func TestLimitSkip(t *testing.T) {
	for _, tc := range []struct {
		name        string
		limit, skip int64
		want        []int64
		stageType   string
	}{
		{"limit", 3, NoLimit, []int64{1, 2, 3}, "limit"},
		{"skip", NoLimit, 7, []int64{8, 9, 10}, "skip"},
		{"limit and skip", 2, 3, []int64{4, 5}, "limitskip"},
		{"zero limit", 0, NoLimit, nil, "limit"},
		{"skip everything", NoLimit, 20, nil, "skip"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			runPlanTest(t, func(t *testing.T, f *planFixture) {
				coll := f.createXCollection(t, "c", seq(1, 10)...)
				scan, _, ridSlot, _ := f.collScan(coll, true, value.NoSlot)
				ls := NewLimitSkipStage(scan, tc.limit, tc.skip, 1)
				rows := f.drain(t, ls, ridSlot)
				if tc.want == nil {
					assert.Empty(t, rows)
				} else {
					assert.Equal(t, tc.want, ints(rows, 0))
				}
				assert.Equal(t, tc.stageType, ls.Stats(false).Common.StageType)
			})
		})
	}
}

func TestLimitSkip_StopsPullingAtLimit(t *testing.T) {
	runPlanTest(t, func(t *testing.T, f *planFixture) {
		coll := f.createXCollection(t, "c", seq(1, 10)...)
		scan, _, ridSlot, _ := f.collScan(coll, true, value.NoSlot)
		f.drain(t, NewLimitSkipStage(scan, 2, NoLimit, 1), ridSlot)
		assert.Equal(t, int64(2), scan.Stats(false).Specific.(*ScanStats).NumReads)
	})
}

func TestCoScan(t *testing.T) {
	runPlanTest(t, func(t *testing.T, f *planFixture) {
		out := f.slots.Generate()
		root := MakeProjectStage(NewLimitSkipStage(NewCoScanStage(2), 3, NoLimit, 1), 0, out, constInt(7))
		rows := f.drain(t, root, out)
		assert.Equal(t, []int64{7, 7, 7}, ints(rows, 0))
	})
}

func TestProject(t *testing.T) {
	runPlanTest(t, func(t *testing.T, f *planFixture) {
		coll := f.createXCollection(t, "c", seq(1, 4)...)
		scan, _, _, xSlot := f.collScan(coll, true, value.NoSlot)
		big, same := f.slots.Generate(), f.slots.Generate()
		root := NewProjectStage(scan, 1,
			Projection{Slot: big, Expr: MakeBinaryOp(OpGreater, MakeVariable(xSlot), constInt(2))},
			Projection{Slot: same, Expr: MakeVariable(xSlot)},
		)
		rows := f.drain(t, root, big, same, xSlot)
		require.Len(t, rows, 4)
		for i, row := range rows {
			assert.Equal(t, i >= 2, row[0].Bool())
			assert.Equal(t, int64(i+1), row[1].Int64())
			assert.Equal(t, int64(i+1), row[2].Int64())
		}
	})
}

func TestFilter(t *testing.T) {
	runPlanTest(t, func(t *testing.T, f *planFixture) {
		coll := f.createXCollection(t, "c", 5, 1, 7, 3, 9)
		scan, _, _, xSlot := f.collScan(coll, true, value.NoSlot)
		filter := NewFilterStage(scan, MakeBinaryOp(OpGreaterEq, MakeVariable(xSlot), constInt(5)), 1)
		assert.Equal(t, []int64{5, 7, 9}, ints(f.drain(t, filter, xSlot), 0))
		assert.Equal(t, int64(5), filter.Stats(false).Specific.(*FilterStats).NumTested)
	})
}

func TestFilter_NonBooleanIsFalse(t *testing.T) {
	runPlanTest(t, func(t *testing.T, f *planFixture) {
		coll := f.createXCollection(t, "c", seq(1, 3)...)
		scan, _, _, xSlot := f.collScan(coll, true, value.NoSlot)
		filter := NewFilterStage(scan, MakeBinaryOp(OpEq, MakeVariable(xSlot), MakeConstant(value.MakeString("1"))), 1)
		assert.Empty(t, f.drain(t, filter, xSlot))
	})
}

func TestEOFFilter(t *testing.T) {
	runPlanTest(t, func(t *testing.T, f *planFixture) {
		coll := f.createXCollection(t, "c", 1, 2, 3, 10, 4)
		scan, _, _, xSlot := f.collScan(coll, true, value.NoSlot)
		filter := NewEOFFilterStage(scan, MakeBinaryOp(OpLessEq, MakeVariable(xSlot), constInt(3)), 1)
		accs := f.prepare(t, filter, xSlot)

		require.NoError(t, filter.Open(false))
		assert.Equal(t, []int64{1, 2, 3}, ints(readAll(t, filter, accs), 0))

		state, err := filter.GetNext()
		require.NoError(t, err)
		assert.Equal(t, IsEOF, state)
		assert.Equal(t, int64(4), filter.Stats(false).Specific.(*FilterStats).NumTested)
		assert.Equal(t, int64(4), scan.Stats(false).Specific.(*ScanStats).NumReads)

		require.NoError(t, filter.Open(true))
		assert.Equal(t, []int64{1, 2, 3}, ints(readAll(t, filter, accs), 0))
		filter.Close()
		assert.Equal(t, "efilter", filter.Stats(false).Common.StageType)
	})
}

func TestLoopJoin(t *testing.T) {
	t.Run("single outer row feeds the inner seek", func(t *testing.T) {
		runPlanTest(t, func(t *testing.T, f *planFixture) {
			coll := f.createXCollection(t, "c", seq(1, 6)...)
			seekSlot := f.slots.Generate()
			outer := MakeProjectStage(NewLimitSkipStage(NewCoScanStage(1), 1, NoLimit, 1), 1,
				seekSlot, MakeConstant(value.MakeRecordID(3)))
			inner, _, ridSlot, _ := f.collScan(coll, true, seekSlot)
			nlj := NewLoopJoinStage(outer, inner, nil, value.MakeSV(seekSlot), nil, 1)

			assert.Equal(t, []int64{3, 4, 5, 6}, ints(f.drain(t, nlj, ridSlot), 0))
			stats := nlj.Stats(false).Specific.(*LoopJoinStats)
			assert.Equal(t, int64(1), stats.InnerOpens)
			assert.Equal(t, int64(1), stats.InnerCloses)
		})
	})

	t.Run("inner is reopened per outer row", func(t *testing.T) {
		runPlanTest(t, func(t *testing.T, f *planFixture) {
			outerKeys := f.createXCollection(t, "outer", 5, 2, 4)
			target := f.createXCollection(t, "target", seq(1, 6)...)

			outerScan, _, _, outerSlot := f.collScan(outerKeys, true, value.NoSlot)
			seekSlot := f.slots.Generate()
			outer := MakeProjectStage(outerScan, 1, seekSlot, recordIDOf(outerSlot))

			innerScan, _, ridSlot, _ := f.collScan(target, true, seekSlot)
			inner := NewLimitSkipStage(innerScan, 1, NoLimit, 1)
			nlj := NewLoopJoinStage(outer, inner, value.MakeSV(outerSlot), value.MakeSV(seekSlot), nil, 1)

			rows := f.drain(t, nlj, outerSlot, ridSlot)
			assert.Equal(t, []int64{5, 2, 4}, ints(rows, 0))
			assert.Equal(t, []int64{5, 2, 4}, ints(rows, 1))
			assert.Equal(t, int64(3), nlj.Stats(false).Specific.(*LoopJoinStats).InnerOpens)
		})
	})

	t.Run("predicate", func(t *testing.T) {
		runPlanTest(t, func(t *testing.T, f *planFixture) {
			coll := f.createXCollection(t, "c", seq(1, 6)...)
			inner, _, _, xSlot := f.collScan(coll, true, value.NoSlot)
			outer := NewLimitSkipStage(NewCoScanStage(1), 2, NoLimit, 1)
			nlj := NewLoopJoinStage(outer, inner, nil, nil,
				MakeBinaryOp(OpLess, MakeVariable(xSlot), constInt(3)), 1)
			assert.Equal(t, []int64{1, 2, 1, 2}, ints(f.drain(t, nlj, xSlot), 0))
		})
	})
}

// recordIDOf turns an integer slot into a record id.
type recordIDExpr struct {
	slot value.SlotID
	acc  value.SlotAccessor
}

func recordIDOf(slot value.SlotID) Expression { return &recordIDExpr{slot: slot} }

func (e *recordIDExpr) Prepare(ctx *CompileCtx) (err error) {
	e.acc, err = ctx.accessorOf(e.slot)
	return err
}

func (e *recordIDExpr) Eval() (value.Value, error) {
	return value.MakeRecordID(e.acc.GetViewOfValue().Int64()), nil
}

func (e *recordIDExpr) Clone() Expression { return &recordIDExpr{slot: e.slot} }
func (e *recordIDExpr) String() string    { return "recordId(" + e.slot.String() + ")" }

func TestUnion(t *testing.T) {
	t.Run("branches in order", func(t *testing.T) {
		runPlanTest(t, func(t *testing.T, f *planFixture) {
			a, b, out := f.slots.Generate(), f.slots.Generate(), f.slots.Generate()
			first := MakeProjectStage(NewLimitSkipStage(NewCoScanStage(1), 2, NoLimit, 1), 1, a, constInt(1))
			second := MakeProjectStage(NewLimitSkipStage(NewCoScanStage(1), 1, NoLimit, 1), 1, b, constInt(2))
			union := NewUnionStage([]PlanStage{first, second}, []value.SlotVector{{a}, {b}}, value.MakeSV(out), 1)

			assert.Equal(t, []int64{1, 1, 2}, ints(f.drain(t, union, out), 0))
			assert.Equal(t, int64(1), first.Stats(false).Common.Closes)
			assert.Equal(t, int64(1), second.Stats(false).Common.Closes)
		})
	})

	t.Run("fail branch runs only when the first is empty", func(t *testing.T) {
		runPlanTest(t, func(t *testing.T, f *planFixture) {
			coll := f.createXCollection(t, "c", seq(1, 3)...)
			seek := f.env.RegisterSlot(ResumeRecordIDSlotName, value.MakeRecordID(2))
			scan, _, ridSlot, _ := f.collScan(coll, true, seek)
			unused, out := f.slots.Generate(), f.slots.Generate()
			fail := MakeProjectStage(NewCoScanStage(1), 1, unused, MakeFail(errs.CodeKeyNotFound, "gone"))
			union := NewUnionStage([]PlanStage{NewLimitSkipStage(scan, 1, NoLimit, 1), fail},
				[]value.SlotVector{{ridSlot}, {unused}}, value.MakeSV(out), 1)
			root := NewLimitSkipStage(union, 1, NoLimit, 1)
			assert.Equal(t, []int64{2}, ints(f.drain(t, root, out), 0))
			assert.Equal(t, int64(0), fail.Stats(false).Common.Opens)
		})
	})

	t.Run("arity mismatch", func(t *testing.T) {
		assert.Panics(t, func() {
			NewUnionStage([]PlanStage{NewCoScanStage(1)}, []value.SlotVector{{1, 2}}, value.MakeSV(3), 1)
		})
	})
}

func TestUnion_FailBranch(t *testing.T) {
	runPlanTest(t, func(t *testing.T, f *planFixture) {
		coll := f.createXCollection(t, "c", seq(1, 3)...)
		seek := f.env.RegisterSlot(ResumeRecordIDSlotName, value.MakeRecordID(20))
		scan, _, ridSlot, _ := f.collScan(coll, true, seek)
		unused, out := f.slots.Generate(), f.slots.Generate()
		fail := MakeProjectStage(NewCoScanStage(1), 1, unused, MakeFail(errs.CodeKeyNotFound, "gone"))
		union := NewUnionStage([]PlanStage{scan, fail}, []value.SlotVector{{ridSlot}, {unused}}, value.MakeSV(out), 1)

		f.prepare(t, union, out)
		require.NoError(t, union.Open(false))
		_, err := union.GetNext()
		require.ErrorIs(t, err, errs.ErrKeyNotFound)
		union.Close()
	})
}
