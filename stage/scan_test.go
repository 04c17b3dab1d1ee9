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

	"github.com/nutsdb/scanexec"
	"github.com/nutsdb/scanexec/errs"
	"github.com/nutsdb/scanexec/value"
)

// collScan builds a scan over coll projecting the record, its id and x.
func (f *planFixture) collScan(coll *scanexec.Collection, forward bool, seek value.SlotID) (*ScanStage, value.SlotID, value.SlotID, value.SlotID) {
	resultSlot, ridSlot, xSlot := f.slots.Generate(), f.slots.Generate(), f.slots.Generate()
	return NewScanStage(ScanParams{
		CollUUID:         coll.UUID(),
		RecordSlot:       resultSlot,
		RecordIDSlot:     ridSlot,
		Fields:           []string{"x"},
		Vars:             value.MakeSV(xSlot),
		SeekRecordIDSlot: seek,
		Forward:          forward,
	}), resultSlot, ridSlot, xSlot
}

func TestScan_Directions(t *testing.T) {
	runPlanTest(t, func(t *testing.T, f *planFixture) {
		coll := f.createXCollection(t, "c", 50, 40, 30)

		fwd, resultSlot, ridSlot, xSlot := f.collScan(coll, true, value.NoSlot)
		rows := f.drain(t, fwd, ridSlot, xSlot, resultSlot)
		assert.Equal(t, []int64{1, 2, 3}, ints(rows, 0))
		assert.Equal(t, []int64{50, 40, 30}, ints(rows, 1))
		for _, row := range rows {
			assert.Equal(t, value.TagObject, row[2].Tag())
			assert.Equal(t, row[1].Int64(), row[2].Object().Lookup("x").Int64())
		}

		rev, _, ridSlot, _ := f.collScan(coll, false, value.NoSlot)
		assert.Equal(t, []int64{3, 2, 1}, ints(f.drain(t, rev, ridSlot), 0))

		assert.Equal(t, int64(3), fwd.Stats(false).Specific.(*ScanStats).NumReads)
		assert.Equal(t, int64(6), f.counters.Reads("scan"))
	})
}

func TestScan_MissingFieldIsNothing(t *testing.T) {
	runPlanTest(t, func(t *testing.T, f *planFixture) {
		coll := f.createXCollection(t, "c", 1)
		ySlot := f.slots.Generate()
		scan := NewScanStage(ScanParams{
			CollUUID: coll.UUID(),
			Fields:   []string{"y"},
			Vars:     value.MakeSV(ySlot),
			Forward:  true,
		})
		rows := f.drain(t, scan, ySlot)
		require.Len(t, rows, 1)
		assert.True(t, rows[0][0].IsNothing())
	})
}

func TestScan_Seek(t *testing.T) {
	t.Run("starts at the seek record", func(t *testing.T) {
		runPlanTest(t, func(t *testing.T, f *planFixture) {
			coll := f.createXCollection(t, "c", seq(1, 6)...)
			seek := f.env.RegisterSlot(ResumeRecordIDSlotName, value.MakeRecordID(4))
			scan, _, ridSlot, _ := f.collScan(coll, true, seek)
			assert.Equal(t, []int64{4, 5, 6}, ints(f.drain(t, scan, ridSlot), 0))
			assert.Equal(t, int64(1), f.counters.Seeks("seek"))
		})
	})

	t.Run("missing seek record is EOF", func(t *testing.T) {
		runPlanTest(t, func(t *testing.T, f *planFixture) {
			coll := f.createXCollection(t, "c", seq(1, 6)...)
			seek := f.env.RegisterSlot(ResumeRecordIDSlotName, value.MakeRecordID(40))
			scan, _, ridSlot, _ := f.collScan(coll, true, seek)
			assert.Empty(t, f.drain(t, scan, ridSlot))
		})
	})

	t.Run("every reopen seeks again", func(t *testing.T) {
		runPlanTest(t, func(t *testing.T, f *planFixture) {
			coll := f.createXCollection(t, "c", seq(1, 6)...)
			seek := f.env.RegisterSlot(ResumeRecordIDSlotName, value.MakeRecordID(2))
			scan, _, ridSlot, _ := f.collScan(coll, true, seek)
			accs := f.prepare(t, scan, ridSlot)

			require.NoError(t, scan.Open(false))
			assert.Equal(t, []int64{2, 3, 4, 5, 6}, ints(readAll(t, scan, accs), 0))

			f.env.ResetSlot(seek, value.MakeRecordID(5))
			require.NoError(t, scan.Open(true))
			assert.Equal(t, []int64{5, 6}, ints(readAll(t, scan, accs), 0))
			scan.Close()
		})
	})

	t.Run("seek key of the wrong type", func(t *testing.T) {
		runPlanTest(t, func(t *testing.T, f *planFixture) {
			coll := f.createXCollection(t, "c", 1)
			seek := f.env.RegisterSlot(ResumeRecordIDSlotName, value.MakeString("1"))
			scan, _, ridSlot, _ := f.collScan(coll, true, seek)
			f.prepare(t, scan, ridSlot)
			require.ErrorIs(t, scan.Open(false), errs.ErrTypeMismatch)
		})
	})
}

func TestScan_ReopenStartsOver(t *testing.T) {
	runPlanTest(t, func(t *testing.T, f *planFixture) {
		coll := f.createXCollection(t, "c", seq(1, 3)...)
		scan, _, ridSlot, _ := f.collScan(coll, true, value.NoSlot)
		accs := f.prepare(t, scan, ridSlot)

		require.NoError(t, scan.Open(false))
		_, err := scan.GetNext()
		require.NoError(t, err)
		require.NoError(t, scan.Open(true))
		assert.Equal(t, []int64{1, 2, 3}, ints(readAll(t, scan, accs), 0))
		scan.Close()
	})
}

func TestScan_OpenCallback(t *testing.T) {
	runPlanTest(t, func(t *testing.T, f *planFixture) {
		coll := f.createXCollection(t, "c", 1)
		var calls []bool
		scan := NewScanStage(ScanParams{
			CollUUID: coll.UUID(),
			Forward:  true,
			OpenCallback: func(opCtx *scanexec.OperationContext, c *scanexec.Collection, reOpen bool) error {
				assert.Equal(t, coll.UUID(), c.UUID())
				calls = append(calls, reOpen)
				return nil
			},
		})
		f.prepare(t, scan)
		require.NoError(t, scan.Open(false))
		require.NoError(t, scan.Open(true))
		scan.Close()
		require.NoError(t, scan.Open(false))
		scan.Close()

		assert.Equal(t, []bool{false, true, false}, calls)
	})
}

func TestScan_YieldTransparency(t *testing.T) {
	runPlanTest(t, func(t *testing.T, f *planFixture) {
		coll := f.createXCollection(t, "c", seq(1, 8)...)
		scan, _, ridSlot, _ := f.collScan(coll, true, value.NoSlot)
		scan.params.Lock = f.db.CollectionLockCallback()
		accs := f.prepare(t, scan, ridSlot)
		require.NoError(t, scan.Open(false))

		var got []int64
		for {
			require.NoError(t, f.yield(scan))
			state, err := scan.GetNext()
			require.NoError(t, err)
			if state == IsEOF {
				break
			}
			got = append(got, accs[0].GetViewOfValue().RecordID())
		}
		scan.Close()
		assert.Equal(t, seq(1, 8), got)
	})
}

func TestScan_DeleteDuringYield(t *testing.T) {
	runPlanTest(t, func(t *testing.T, f *planFixture) {
		coll := f.createXCollection(t, "c", seq(1, 5)...)
		scan, _, ridSlot, _ := f.collScan(coll, true, value.NoSlot)
		accs := f.prepare(t, scan, ridSlot)
		require.NoError(t, scan.Open(false))
		for i := 0; i < 2; i++ {
			_, err := scan.GetNext()
			require.NoError(t, err)
		}

		scan.SaveState()
		f.opCtx.AbandonSnapshot()
		require.NoError(t, f.db.Update(func(tx *scanexec.Tx) error {
			if err := tx.Delete("c", 2); err != nil {
				return err
			}
			return tx.Delete("c", 3)
		}))
		require.NoError(t, scan.RestoreState())

		assert.Equal(t, []int64{4, 5}, ints(readAll(t, scan, accs), 0))
		scan.Close()
	})
}

func TestScan_PlanKilled(t *testing.T) {
	for _, tc := range []struct {
		name   string
		change func(t *testing.T, db *scanexec.DB)
	}{
		{"dropped", func(t *testing.T, db *scanexec.DB) { require.NoError(t, db.DropCollection("c")) }},
		{"renamed", func(t *testing.T, db *scanexec.DB) { require.NoError(t, db.RenameCollection("c", "d")) }},
		{"catalog reloaded", func(t *testing.T, db *scanexec.DB) { db.ReloadCatalog() }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			runPlanTest(t, func(t *testing.T, f *planFixture) {
				coll := f.createXCollection(t, "c", seq(1, 3)...)
				scan, _, ridSlot, _ := f.collScan(coll, true, value.NoSlot)
				f.prepare(t, scan, ridSlot)
				require.NoError(t, scan.Open(false))

				scan.SaveState()
				tc.change(t, f.db)
				require.ErrorIs(t, scan.RestoreState(), errs.ErrQueryPlanKilled)
				assert.Equal(t, int64(1), f.counters.PlansKilled())
			})
		})
	}
}

func TestScan_UnknownCollection(t *testing.T) {
	runPlanTest(t, func(t *testing.T, f *planFixture) {
		scan := NewScanStage(ScanParams{CollUUID: 42, Forward: true})
		_, err := Prepare(scan, f.opCtx, f.env)
		require.ErrorIs(t, err, errs.ErrNamespaceNotFound)
	})
}

func TestScan_Preconditions(t *testing.T) {
	assert.Panics(t, func() {
		NewScanStage(ScanParams{Fields: []string{"x"}})
	})

	runPlanTest(t, func(t *testing.T, f *planFixture) {
		coll := f.createXCollection(t, "c", 1)
		scan := NewScanStage(ScanParams{
			CollUUID: coll.UUID(),
			Fields:   []string{"x", "x"},
			Vars:     value.MakeSV(f.slots.Generate(), f.slots.Generate()),
		})
		_, err := Prepare(scan, f.opCtx, f.env)
		assert.True(t, errs.IsAssertionFailure(err))
	})
}
