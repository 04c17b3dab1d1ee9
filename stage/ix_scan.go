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

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/nutsdb/scanexec"
	"github.com/nutsdb/scanexec/errs"
	"github.com/nutsdb/scanexec/keystring"
	"github.com/nutsdb/scanexec/value"
)

// IndexScanParams configures an IndexScanStage. Optional slots are
// value.NoSlot when absent.
type IndexScanParams struct {
	CollUUID  scanexec.CollectionUUID
	IndexName string
	Forward   bool

	// RecordSlot receives the whole key, RecordIDSlot the record id.
	RecordSlot   value.SlotID
	RecordIDSlot value.SlotID

	// IndexKeysToInclude selects key components; bit i projects component i
	// into the next slot of Vars.
	IndexKeysToInclude uint64
	Vars               value.SlotVector

	// SeekKeySlotLow and SeekKeySlotHigh hold keystring bounds. A high bound
	// requires a low bound.
	SeekKeySlotLow  value.SlotID
	SeekKeySlotHigh value.SlotID

	YieldPolicy *PlanYieldPolicy
	NodeID      PlanNodeID
	Lock        scanexec.LockAcquisitionCallback
}

// IndexScanStage walks one index in key order, optionally between a low and
// a high keystring bound, and publishes the key, the record id and selected
// key components of every entry.
//
// Values published by the stage are views valid until its next GetNext or
// Close.
type IndexScanStage struct {
	stageBase
	params IndexScanParams

	recordAccessor   *value.ViewOfValueAccessor
	recordIDAccessor *value.ViewOfValueAccessor
	accessors        []*value.ViewOfValueAccessor
	accessorMap      map[value.SlotID]*value.ViewOfValueAccessor
	guard            value.ViewGuard

	seekKeyLowAccessor value.SlotAccessor
	seekKeyHiAccessor  value.SlotAccessor

	collRef  collectionRef
	coll     *scanexec.Collection
	entry    *scanexec.IndexCatalogEntry
	ident    int64
	ordering keystring.Ordering

	cursor       *scanexec.IndexCursor
	open         bool
	firstGetNext bool
	seekKeyLow   keystring.Value
	seekKeyHi    keystring.Value
	startPoint   keystring.Value

	nextRecord scanexec.IndexEntry
	values     []value.Value
	valuesBuf  keystring.Buffer

	tracker       *TrialRunTracker
	specificStats IndexScanStats
}

// NewIndexScanStage builds an index scan. It panics when a high bound is
// given without a low bound, or when the number of selected key components
// differs from the number of output slots.
func NewIndexScanStage(p IndexScanParams) *IndexScanStage {
	errs.Invariant(p.SeekKeySlotLow.Valid() || !p.SeekKeySlotHigh.Valid(),
		"index scan with a high seek key but no low seek key")
	errs.Invariant(keystring.MaskCount(p.IndexKeysToInclude) == len(p.Vars),
		"index scan selects %d key components into %d slots", keystring.MaskCount(p.IndexKeysToInclude), len(p.Vars))

	name := "ixscan"
	if p.SeekKeySlotLow.Valid() {
		name = "ixseek"
	}
	return &IndexScanStage{
		stageBase: newStageBase(name, p.YieldPolicy, p.NodeID),
		params:    p,
	}
}

func (s *IndexScanStage) Clone() PlanStage {
	p := s.params
	p.Vars = append(value.SlotVector(nil), s.params.Vars...)
	return NewIndexScanStage(p)
}

func (s *IndexScanStage) Prepare(ctx *CompileCtx) error {
	if s.params.RecordSlot.Valid() {
		s.recordAccessor = value.NewViewOfValueAccessor(&s.guard)
	}
	if s.params.RecordIDSlot.Valid() {
		s.recordIDAccessor = value.NewViewOfValueAccessor(&s.guard)
	}

	s.accessors = make([]*value.ViewOfValueAccessor, len(s.params.Vars))
	s.accessorMap = make(map[value.SlotID]*value.ViewOfValueAccessor, len(s.params.Vars))
	for i, slot := range s.params.Vars {
		if _, dup := s.accessorMap[slot]; dup {
			return errs.AssertionFailedf("duplicate slot: %s", slot)
		}
		s.accessors[i] = value.NewViewOfValueAccessor(&s.guard)
		s.accessorMap[slot] = s.accessors[i]
	}
	s.values = make([]value.Value, len(s.params.Vars))

	var err error
	if s.params.SeekKeySlotLow.Valid() {
		if s.seekKeyLowAccessor, err = ctx.GetAccessor(s.params.SeekKeySlotLow); err != nil {
			return err
		}
	}
	if s.params.SeekKeySlotHigh.Valid() {
		if s.seekKeyHiAccessor, err = ctx.GetAccessor(s.params.SeekKeySlotHigh); err != nil {
			return err
		}
	}

	s.coll, s.collRef, err = acquireCollection(s.opCtx, s.params.CollUUID, s.params.Lock)
	if err != nil {
		return err
	}
	entry := s.coll.IndexCatalog().FindIndexByName(s.params.IndexName)
	if entry == nil {
		return errs.AssertionFailedf("could not find index named '%s' in collection '%s'",
			s.params.IndexName, s.collRef.name)
	}
	s.entry = entry
	s.ident = entry.Ident()
	s.ordering = entry.Ordering()
	return nil
}

func (s *IndexScanStage) GetAccessor(ctx *CompileCtx, slot value.SlotID) (value.SlotAccessor, error) {
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

func (s *IndexScanStage) SaveState() {
	s.commonStats.Yields++
	if s.cursor != nil {
		s.cursor.Save()
	}
	s.coll = nil
}

// restoreCollectionAndIndex re-resolves the collection and checks that the
// index the stage was prepared against still exists.
func (s *IndexScanStage) restoreCollectionAndIndex() error {
	coll, err := restoreCollection(s.opCtx, s.collRef, s.params.Lock)
	if err != nil {
		return err
	}
	entry := coll.IndexCatalog().FindIndexByName(s.params.IndexName)
	if entry == nil || entry.IsDropped() || entry.Ident() != s.ident {
		return planKilled(s.opCtx, "index dropped", "query plan killed :: index '%s' dropped", s.params.IndexName)
	}
	s.coll = coll
	s.entry = entry
	return nil
}

func (s *IndexScanStage) RestoreState() error {
	s.commonStats.Unyields++
	errs.Invariant(s.opCtx != nil, "restore of a detached index scan")
	errs.Invariant(s.coll == nil, "restore of an index scan that was not saved")

	if !s.open {
		return nil
	}
	if err := s.restoreCollectionAndIndex(); err != nil {
		return err
	}
	if s.cursor != nil {
		s.cursor.Restore()
	}
	return nil
}

func (s *IndexScanStage) AttachToOperationContext(opCtx *scanexec.OperationContext) {
	s.opCtx = opCtx
	if s.cursor != nil {
		s.cursor.ReattachToOperationContext(opCtx)
	}
}

func (s *IndexScanStage) DetachFromOperationContext() {
	s.opCtx = nil
	if s.cursor != nil {
		s.cursor.DetachFromOperationContext()
	}
}

func (s *IndexScanStage) AttachToTrialRunTracker(tracker *TrialRunTracker) {
	s.tracker = tracker
}

func (s *IndexScanStage) DetachFromTrialRunTracker() {
	s.tracker = nil
}

func (s *IndexScanStage) Open(reOpen bool) error {
	s.commonStats.Opens++
	if s.opCtx == nil {
		return errs.AssertionFailedf("index scan opened without an operation context")
	}

	if s.open {
		if !reOpen {
			return errs.AssertionFailedf("reopened IndexScanStage but reOpen=false")
		}
		if s.coll == nil {
			return errs.AssertionFailedf("IndexScanStage is open but the collection is not held")
		}
		if s.cursor == nil {
			return errs.AssertionFailedf("IndexScanStage is open but has no cursor")
		}
	} else {
		if reOpen {
			return errs.AssertionFailedf("first open to IndexScanStage but reOpen=true")
		}
		if s.coll == nil {
			// opened after Close: the catalog may have changed since Prepare
			if s.cursor != nil {
				return errs.AssertionFailedf("IndexScanStage is not open but has a cursor")
			}
			if err := s.restoreCollectionAndIndex(); err != nil {
				return err
			}
		}
	}

	s.open = true
	s.firstGetNext = true

	if s.entry == nil {
		return errs.AssertionFailedf("expected IndexCatalogEntry for index named: %s", s.params.IndexName)
	}
	sdi := s.entry.SortedDataInterface()
	if s.cursor == nil {
		s.cursor = sdi.NewCursor(s.opCtx, s.params.Forward)
	}

	switch {
	case s.seekKeyLowAccessor != nil && s.seekKeyHiAccessor != nil:
		low, err := seekKeyOf(s.seekKeyLowAccessor)
		if err != nil {
			return err
		}
		hi, err := seekKeyOf(s.seekKeyHiAccessor)
		if err != nil {
			return err
		}
		s.seekKeyLow, s.seekKeyHi = low, hi
	case s.seekKeyLowAccessor != nil:
		low, err := seekKeyOf(s.seekKeyLowAccessor)
		if err != nil {
			return err
		}
		s.seekKeyLow, s.seekKeyHi = low, nil
	default:
		// an empty key sorts before every entry when it ends in
		// ExclusiveBefore and after every entry when it ends in ExclusiveAfter
		d := keystring.ExclusiveBefore
		if !s.params.Forward {
			d = keystring.ExclusiveAfter
		}
		kb := keystring.NewBuilder(sdi.KeyStringVersion(), sdi.Ordering())
		kb.AppendDiscriminator(d)
		s.startPoint = kb.Value()
		s.seekKeyLow, s.seekKeyHi = s.startPoint, nil
	}
	s.specificStats.Seeks++
	s.sink().ObserveSeek(s.name)
	return nil
}

func seekKeyOf(acc value.SlotAccessor) (keystring.Value, error) {
	v := acc.GetViewOfValue()
	if v.Tag() != value.TagKeyString {
		return nil, errors.Wrapf(errs.ErrTypeMismatch, "seek key is wrong type: %s", v.Tag())
	}
	return keystring.Value(v.Bytes()), nil
}

func (s *IndexScanStage) GetNext() (PlanState, error) {
	if s.cursor == nil {
		return s.trackPlanState(IsEOF), nil
	}

	if err := s.checkForInterrupt(); err != nil {
		return IsEOF, err
	}

	var ok bool
	if s.firstGetNext {
		s.firstGetNext = false
		s.nextRecord, ok = s.cursor.SeekForKeyString(s.seekKeyLow)
	} else {
		s.nextRecord, ok = s.cursor.NextKeyString()
	}
	s.guard.Invalidate()

	if !ok {
		return s.trackPlanState(IsEOF), nil
	}

	if s.seekKeyHi != nil {
		cmp := s.nextRecord.KeyString.Compare(s.seekKeyHi)
		if s.params.Forward {
			if cmp > 0 {
				return s.trackPlanState(IsEOF), nil
			}
		} else if cmp < 0 {
			return s.trackPlanState(IsEOF), nil
		}
	}

	if s.recordAccessor != nil {
		s.recordAccessor.Reset(value.MakeKeyStringView(s.nextRecord.KeyString))
	}
	if s.recordIDAccessor != nil {
		s.recordIDAccessor.Reset(value.MakeRecordID(int64(s.nextRecord.RecordID)))
	}
	if len(s.accessors) > 0 {
		if err := keystring.ReadValues(s.nextRecord.KeyString, s.ordering, s.params.IndexKeysToInclude,
			&s.valuesBuf, s.values); err != nil {
			return IsEOF, errs.AssertionFailedf("index %s: %v", s.params.IndexName, err)
		}
		for i, v := range s.values {
			s.accessors[i].Reset(v)
		}
	}

	if s.tracker != nil && s.tracker.TrackProgress(1) {
		// the trial period covers a prefix of the execution only
		s.tracker = nil
	}
	s.specificStats.NumReads++
	s.sink().ObserveReads(s.name, 1)
	return s.trackPlanState(Advanced), nil
}

func (s *IndexScanStage) Close() {
	s.commonStats.Closes++
	if s.cursor != nil {
		s.cursor.Close()
	}
	s.cursor = nil
	s.coll = nil
	s.open = false
	s.guard.Invalidate()
}

func (s *IndexScanStage) Stats(includeDebugInfo bool) *PlanStageStats {
	specific := s.specificStats
	ret := &PlanStageStats{Common: s.commonStats, Specific: &specific}
	if includeDebugInfo {
		d := bson.D{
			{Key: "numReads", Value: s.specificStats.NumReads},
			{Key: "seeks", Value: s.specificStats.Seeks},
		}
		for _, e := range []struct {
			key  string
			slot value.SlotID
		}{
			{"recordSlot", s.params.RecordSlot},
			{"recordIdSlot", s.params.RecordIDSlot},
			{"seekKeySlotLow", s.params.SeekKeySlotLow},
			{"seekKeySlotHigh", s.params.SeekKeySlotHigh},
		} {
			if e.slot.Valid() {
				d = append(d, bson.E{Key: e.key, Value: int64(e.slot)})
			}
		}
		outputSlots := make(bson.A, len(s.params.Vars))
		for i, slot := range s.params.Vars {
			outputSlots[i] = int64(slot)
		}
		d = append(d,
			bson.E{Key: "outputSlots", Value: outputSlots},
			bson.E{Key: "indexKeysToInclude", Value: strconv.FormatUint(s.params.IndexKeysToInclude, 2)},
		)
		ret.DebugInfo = d
	}
	return ret
}

func (s *IndexScanStage) DebugPrint() []Block {
	ret := s.debugPrintHead()
	if s.params.SeekKeySlotLow.Valid() {
		ret = addSlot(ret, s.params.SeekKeySlotLow)
		ret = addSlot(ret, s.params.SeekKeySlotHigh)
	}
	ret = addSlot(ret, s.params.RecordSlot)
	ret = addSlot(ret, s.params.RecordIDSlot)

	vars := "["
	varIndex := 0
	for keyIndex := 0; keyIndex < 64 && varIndex < len(s.params.Vars); keyIndex++ {
		if s.params.IndexKeysToInclude&(1<<uint(keyIndex)) == 0 {
			continue
		}
		if varIndex > 0 {
			vars += ", "
		}
		vars += fmt.Sprintf("%s = %d", s.params.Vars[varIndex], keyIndex)
		varIndex++
	}
	ret = append(ret, textBlock(vars+"]"))

	ret = append(ret,
		textBlock(fmt.Sprintf("@\"%d\"", s.params.CollUUID)),
		textBlock(fmt.Sprintf("@\"%s\"", s.params.IndexName)),
		textBlock(strconv.FormatBool(s.params.Forward)),
	)
	return ret
}
