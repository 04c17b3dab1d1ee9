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
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/nutsdb/scanexec"
	"github.com/nutsdb/scanexec/errs"
	"github.com/nutsdb/scanexec/value"
)

// ScanOpenCallback runs every time a ScanStage is opened, after the
// collection is acquired and before the cursor is created.
type ScanOpenCallback func(opCtx *scanexec.OperationContext, coll *scanexec.Collection, reOpen bool) error

// ScanParams configures a ScanStage. Optional slots are value.NoSlot when
// absent.
type ScanParams struct {
	CollUUID scanexec.CollectionUUID

	RecordSlot   value.SlotID
	RecordIDSlot value.SlotID

	// Fields are top-level field names projected into the matching Vars.
	Fields []string
	Vars   value.SlotVector

	// SeekRecordIDSlot, when set, holds the record id the scan starts at. The
	// first GetNext positions on exactly that record, or reports EOF if it
	// does not exist.
	SeekRecordIDSlot value.SlotID

	Forward      bool
	YieldPolicy  *PlanYieldPolicy
	NodeID       PlanNodeID
	Lock         scanexec.LockAcquisitionCallback
	OpenCallback ScanOpenCallback
}

// ScanStage walks the records of a collection in record id order.
type ScanStage struct {
	stageBase
	params ScanParams

	recordAccessor   *value.ViewOfValueAccessor
	recordIDAccessor *value.ViewOfValueAccessor
	fieldAccessors   []*value.ViewOfValueAccessor
	accessorMap      map[value.SlotID]*value.ViewOfValueAccessor
	guard            value.ViewGuard

	seekAccessor value.SlotAccessor
	seekID       scanexec.RecordID

	collRef collectionRef
	coll    *scanexec.Collection

	cursor       *scanexec.RecordCursor
	open         bool
	firstGetNext bool

	tracker       *TrialRunTracker
	specificStats ScanStats
}

// NewScanStage builds a collection scan. It panics when Fields and Vars
// differ in length.
func NewScanStage(p ScanParams) *ScanStage {
	errs.Invariant(len(p.Fields) == len(p.Vars), "scan projects %d fields into %d slots", len(p.Fields), len(p.Vars))

	name := "scan"
	if p.SeekRecordIDSlot.Valid() {
		name = "seek"
	}
	return &ScanStage{
		stageBase: newStageBase(name, p.YieldPolicy, p.NodeID),
		params:    p,
	}
}

func (s *ScanStage) Clone() PlanStage {
	p := s.params
	p.Fields = append([]string(nil), s.params.Fields...)
	p.Vars = append(value.SlotVector(nil), s.params.Vars...)
	return NewScanStage(p)
}

func (s *ScanStage) Prepare(ctx *CompileCtx) error {
	if s.params.RecordSlot.Valid() {
		s.recordAccessor = value.NewViewOfValueAccessor(&s.guard)
	}
	if s.params.RecordIDSlot.Valid() {
		s.recordIDAccessor = value.NewViewOfValueAccessor(&s.guard)
	}

	s.fieldAccessors = make([]*value.ViewOfValueAccessor, len(s.params.Fields))
	s.accessorMap = make(map[value.SlotID]*value.ViewOfValueAccessor, len(s.params.Fields))
	seen := make(map[string]struct{}, len(s.params.Fields))
	for i, slot := range s.params.Vars {
		if _, dup := seen[s.params.Fields[i]]; dup {
			return errs.AssertionFailedf("duplicate field: %s", s.params.Fields[i])
		}
		seen[s.params.Fields[i]] = struct{}{}
		if _, dup := s.accessorMap[slot]; dup {
			return errs.AssertionFailedf("duplicate slot: %s", slot)
		}
		s.fieldAccessors[i] = value.NewViewOfValueAccessor(&s.guard)
		s.accessorMap[slot] = s.fieldAccessors[i]
	}

	if s.params.SeekRecordIDSlot.Valid() {
		acc, err := ctx.GetAccessor(s.params.SeekRecordIDSlot)
		if err != nil {
			return err
		}
		s.seekAccessor = acc
	}

	var err error
	s.coll, s.collRef, err = acquireCollection(s.opCtx, s.params.CollUUID, s.params.Lock)
	return err
}

func (s *ScanStage) GetAccessor(ctx *CompileCtx, slot value.SlotID) (value.SlotAccessor, error) {
	if s.recordAccessor != nil && slot == s.params.RecordSlot {
		return s.recordAccessor, nil
	}
	if s.recordIDAccessor != nil && slot == s.params.RecordIDSlot {
		return s.recordIDAccessor, nil
	}
	if acc, ok := s.accessorMap[slot]; ok {
		return acc, nil
	}
	return ctx.GetAccessor(slot)
}

func (s *ScanStage) SaveState() {
	s.commonStats.Yields++
	if s.cursor != nil {
		s.cursor.Save()
	}
	s.coll = nil
}

func (s *ScanStage) RestoreState() error {
	s.commonStats.Unyields++
	errs.Invariant(s.opCtx != nil, "restore of a detached scan")
	errs.Invariant(s.coll == nil, "restore of a scan that was not saved")

	if !s.open {
		return nil
	}
	coll, err := restoreCollection(s.opCtx, s.collRef, s.params.Lock)
	if err != nil {
		return err
	}
	s.coll = coll
	if s.cursor != nil {
		s.cursor.Restore()
	}
	return nil
}

func (s *ScanStage) AttachToOperationContext(opCtx *scanexec.OperationContext) {
	s.opCtx = opCtx
	if s.cursor != nil {
		s.cursor.ReattachToOperationContext(opCtx)
	}
}

func (s *ScanStage) DetachFromOperationContext() {
	s.opCtx = nil
	if s.cursor != nil {
		s.cursor.DetachFromOperationContext()
	}
}

func (s *ScanStage) AttachToTrialRunTracker(tracker *TrialRunTracker) {
	s.tracker = tracker
}

func (s *ScanStage) DetachFromTrialRunTracker() {
	s.tracker = nil
}

func (s *ScanStage) Open(reOpen bool) error {
	s.commonStats.Opens++
	if s.opCtx == nil {
		return errs.AssertionFailedf("scan opened without an operation context")
	}

	if s.open {
		if !reOpen {
			return errs.AssertionFailedf("reopened ScanStage but reOpen=false")
		}
		if s.coll == nil {
			return errs.AssertionFailedf("ScanStage is open but the collection is not held")
		}
	} else {
		if reOpen {
			return errs.AssertionFailedf("first open to ScanStage but reOpen=true")
		}
		if s.coll == nil {
			coll, err := restoreCollection(s.opCtx, s.collRef, s.params.Lock)
			if err != nil {
				return err
			}
			s.coll = coll
		}
	}

	if s.params.OpenCallback != nil {
		if err := s.params.OpenCallback(s.opCtx, s.coll, reOpen); err != nil {
			return err
		}
	}

	if s.seekAccessor != nil {
		v := s.seekAccessor.GetViewOfValue()
		if v.Tag() != value.TagRecordID {
			return errors.Wrapf(errs.ErrTypeMismatch, "seek key is wrong type: %s", v.Tag())
		}
		s.seekID = scanexec.RecordID(v.RecordID())
	}

	// a seeking scan repositions its cursor on the first GetNext; a plain
	// scan starts over
	if s.cursor == nil || s.seekAccessor == nil {
		if s.cursor != nil {
			s.cursor.Close()
		}
		s.cursor = s.coll.RecordStore().GetCursor(s.opCtx, s.params.Forward)
	}

	s.open = true
	s.firstGetNext = true
	return nil
}

func (s *ScanStage) GetNext() (PlanState, error) {
	if s.cursor == nil {
		return s.trackPlanState(IsEOF), nil
	}

	if err := s.checkForInterrupt(); err != nil {
		return IsEOF, err
	}

	var (
		rec scanexec.Record
		ok  bool
	)
	if s.firstGetNext && s.seekAccessor != nil {
		rec, ok = s.cursor.SeekExact(s.seekID)
		s.sink().ObserveSeek(s.name)
	} else {
		rec, ok = s.cursor.Next()
	}
	s.firstGetNext = false
	s.guard.Invalidate()

	if !ok {
		return s.trackPlanState(IsEOF), nil
	}

	if s.recordAccessor != nil {
		s.recordAccessor.Reset(value.MakeObjectView(rec.Data))
	}
	if s.recordIDAccessor != nil {
		s.recordIDAccessor.Reset(value.MakeRecordID(int64(rec.ID)))
	}
	for i, name := range s.params.Fields {
		s.fieldAccessors[i].Reset(value.GetField(rec.Data, name))
	}

	if s.tracker != nil && s.tracker.TrackProgress(1) {
		s.tracker = nil
	}
	s.specificStats.NumReads++
	s.sink().ObserveReads(s.name, 1)
	return s.trackPlanState(Advanced), nil
}

func (s *ScanStage) Close() {
	s.commonStats.Closes++
	if s.cursor != nil {
		s.cursor.Close()
	}
	s.cursor = nil
	s.coll = nil
	s.open = false
	s.guard.Invalidate()
}

func (s *ScanStage) Stats(includeDebugInfo bool) *PlanStageStats {
	specific := s.specificStats
	ret := &PlanStageStats{Common: s.commonStats, Specific: &specific}
	if includeDebugInfo {
		d := bson.D{{Key: "numReads", Value: s.specificStats.NumReads}}
		for _, e := range []struct {
			key  string
			slot value.SlotID
		}{
			{"recordSlot", s.params.RecordSlot},
			{"recordIdSlot", s.params.RecordIDSlot},
			{"seekRecordIdSlot", s.params.SeekRecordIDSlot},
		} {
			if e.slot.Valid() {
				d = append(d, bson.E{Key: e.key, Value: int64(e.slot)})
			}
		}
		fields := make(bson.A, len(s.params.Fields))
		for i, f := range s.params.Fields {
			fields[i] = f
		}
		d = append(d, bson.E{Key: "fields", Value: fields})
		ret.DebugInfo = d
	}
	return ret
}

func (s *ScanStage) DebugPrint() []Block {
	ret := s.debugPrintHead()
	ret = addSlot(ret, s.params.SeekRecordIDSlot)
	ret = addSlot(ret, s.params.RecordSlot)
	ret = addSlot(ret, s.params.RecordIDSlot)

	fields := make([]string, len(s.params.Fields))
	for i, f := range s.params.Fields {
		fields[i] = fmt.Sprintf("%s = %s", s.params.Vars[i], f)
	}
	ret = append(ret,
		textBlock("["+strings.Join(fields, ", ")+"]"),
		textBlock(fmt.Sprintf("@\"%d\"", s.params.CollUUID)),
		textBlock(strconv.FormatBool(s.params.Forward)),
	)
	return ret
}
