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
	"fmt"

	"github.com/nutsdb/scanexec"
	"github.com/nutsdb/scanexec/errs"
	"github.com/nutsdb/scanexec/internal/utils"
	"github.com/nutsdb/scanexec/stage"
	"github.com/nutsdb/scanexec/value"
)

// initiatingSetMsg is the o.msg of the entry written when a replica set is
// initiated.
const initiatingSetMsg = "initiating set"

// GenerateCollScan builds the sub-tree scanning coll as csn describes. Scans
// with a MinRecord or MaxRecord bound are built by the oplog scan builder.
//
// Inconsistent descriptors are bugs in the caller and panic.
func GenerateCollScan(opCtx *scanexec.OperationContext, coll *scanexec.Collection, csn *CollectionScanNode,
	state *State, lock scanexec.LockAcquisitionCallback) (stage.PlanStage, PlanStageSlots) {
	if csn.MinRecord != nil || csn.MaxRecord != nil {
		return generateOptimizedOplogScan(opCtx, coll, csn, state, lock)
	}
	return generateGenericCollScan(coll, csn, state, lock)
}

// makeOpenCallbackIfNeeded returns the callback a forward, non-tailable
// oplog scan runs on its first open: it waits until every oplog write that
// started before the read is visible, on a fresh snapshot.
func makeOpenCallbackIfNeeded(coll *scanexec.Collection, csn *CollectionScanNode) stage.ScanOpenCallback {
	if csn.Direction != Forward || !csn.ShouldWaitForOplogVisibility {
		return nil
	}
	errs.Invariant(!csn.Tailable, "tailable scans do not wait for oplog visibility")
	errs.Invariant(coll.IsOplog(), "waiting for oplog visibility on %s", coll.Name())

	return func(opCtx *scanexec.OperationContext, coll *scanexec.Collection, reOpen bool) error {
		if reOpen {
			return nil
		}
		opCtx.AbandonSnapshot()
		return coll.RecordStore().WaitForAllEarlierOplogWritesToBeVisible(opCtx)
	}
}

// makeOplogTimestampSlotsIfNeeded allocates a slot for the ts field of an
// oplog entry when track is set.
func makeOplogTimestampSlotsIfNeeded(coll *scanexec.Collection, state *State,
	track bool) ([]string, value.SlotVector, value.SlotID) {
	if !track {
		return nil, nil, value.NoSlot
	}
	errs.Invariant(coll.IsOplog(), "tracking the oplog timestamp of %s", coll.Name())
	tsSlot := state.SlotIDGenerator.Generate()
	return []string{oplogTsField}, value.MakeSV(tsSlot), tsSlot
}

// makeSeekProjection returns a single row holding id in slot.
func makeSeekProjection(slot value.SlotID, id scanexec.RecordID, nodeID stage.PlanNodeID) stage.PlanStage {
	return stage.MakeProjectStage(
		stage.NewLimitSkipStage(stage.NewCoScanStage(nodeID), 1, stage.NoLimit, nodeID),
		nodeID,
		slot,
		stage.MakeConstant(value.MakeRecordID(int64(id))))
}

// generateOptimizedOplogScan builds a forward oplog scan bounded by ts.
//
// A MinRecord bound seeks straight to the entry nearest below it. When the
// filter is only a lower bound on ts, StopApplyingFilterAfterFirstMatch
// stops evaluating it after the first match: every later entry matches too.
// A MaxRecord bound ends the scan at the first entry past it.
func generateOptimizedOplogScan(opCtx *scanexec.OperationContext, coll *scanexec.Collection,
	csn *CollectionScanNode, state *State, lock scanexec.LockAcquisitionCallback) (stage.PlanStage, PlanStageSlots) {
	errs.Invariant(coll.IsOplog(), "optimized oplog scan over %s", coll.Name())
	errs.Invariant(csn.ResumeAfterRecordID == nil, "optimized oplog scan cannot resume")
	errs.Invariant(csn.Direction == Forward, "optimized oplog scan must be forward")

	nodeID := csn.NodeID
	resultSlot := state.SlotIDGenerator.Generate()
	recordIDSlot := state.SlotIDGenerator.Generate()

	var (
		seekRecordID    scanexec.RecordID
		hasSeekRecordID bool
		seekSlot        = value.NoSlot
	)
	switch {
	case state.IsTailableCollScanResumeBranch:
		seekSlot = resumeRecordIDSlot(state)
	case csn.MinRecord != nil:
		cursor := coll.RecordStore().GetCursor(opCtx, true)
		start, ok := cursor.SeekNear(scanexec.RecordID(*csn.MinRecord))
		cursor.Close()
		if ok {
			utils.Debugf(opCtx.DB().Logger(), "using direct oplog seek to %s for %s",
				value.Timestamp(start.ID), coll.Name())
			seekRecordID, hasSeekRecordID = start.ID, true
			seekSlot = state.SlotIDGenerator.Generate()
		}
	}

	trackTs := !csn.StopApplyingFilterAfterFirstMatch && (csn.MaxRecord != nil || csn.ShouldTrackLatestOplogTimestamp)
	fields, vars, tsSlot := makeOplogTimestampSlotsIfNeeded(coll, state, trackTs)

	var root stage.PlanStage = stage.NewScanStage(stage.ScanParams{
		CollUUID:         coll.UUID(),
		RecordSlot:       resultSlot,
		RecordIDSlot:     recordIDSlot,
		Fields:           fields,
		Vars:             vars,
		SeekRecordIDSlot: seekSlot,
		Forward:          true,
		YieldPolicy:      state.YieldPolicy,
		NodeID:           nodeID,
		Lock:             lock,
		OpenCallback:     makeOpenCallbackIfNeeded(coll, csn),
	})

	if hasSeekRecordID {
		root = stage.NewLoopJoinStage(
			makeSeekProjection(seekSlot, seekRecordID, nodeID),
			root,
			nil,
			value.MakeSV(seekSlot),
			nil,
			nodeID)
	}

	// union [s9, s10, s11] [
	//     [s6, s7, s8] efilter {if (ts <= minTs || op == "n" && isObject (o) &&
	//                      getField (o, "msg") == "initiating set", false, fail (326))}
	//     scan [s6 = ts, s7 = op, s8 = o] @oplog,
	//     <root>]
	//
	// The first branch only looks at the first entry and either fails or
	// reaches EOF.
	if csn.AssertTsHasNotFallenOffOplog != nil && !state.IsTailableCollScanResumeBranch {
		errs.Invariant(csn.ShouldTrackLatestOplogTimestamp, "minTs assertion without timestamp tracking")

		minTsFields, minTsSlots, minTsSlot := makeOplogTimestampSlotsIfNeeded(coll, state, true)
		errs.Invariant(tsSlot.Valid(), "minTs assertion without a timestamp slot")

		opTypeSlot := state.SlotIDGenerator.Generate()
		oObjSlot := state.SlotIDGenerator.Generate()
		minTsSlots = append(minTsSlots, opTypeSlot, oObjSlot)
		minTsFields = append(minTsFields, "op", "o")

		isInitiatingSet := stage.MakeBinaryOp(stage.OpLogicAnd,
			stage.MakeBinaryOp(stage.OpEq, stage.MakeVariable(opTypeSlot), stage.MakeConstant(value.MakeString("n"))),
			stage.MakeBinaryOp(stage.OpLogicAnd,
				stage.MakeFunction("isObject", stage.MakeVariable(oObjSlot)),
				stage.MakeBinaryOp(stage.OpEq,
					stage.MakeFunction("getField", stage.MakeVariable(oObjSlot), stage.MakeConstant(value.MakeString("msg"))),
					stage.MakeConstant(value.MakeString(initiatingSetMsg)))))

		minTsBranch := stage.NewEOFFilterStage(
			stage.NewScanStage(stage.ScanParams{
				CollUUID:    coll.UUID(),
				Fields:      minTsFields,
				Vars:        minTsSlots,
				Forward:     true,
				YieldPolicy: state.YieldPolicy,
				NodeID:      nodeID,
				Lock:        lock,
			}),
			stage.MakeIf(
				stage.MakeBinaryOp(stage.OpLogicOr,
					stage.MakeBinaryOp(stage.OpLessEq,
						stage.MakeVariable(minTsSlot),
						stage.MakeConstant(value.MakeTimestamp(*csn.AssertTsHasNotFallenOffOplog))),
					isInitiatingSet),
				stage.MakeConstant(value.MakeBool(false)),
				stage.MakeFail(errs.CodeOplogQueryMinTsMissing, "Specified minTs has already fallen off the oplog")),
			nodeID)

		realSlots := value.MakeSV(resultSlot, recordIDSlot, tsSlot)
		resultSlot = state.SlotIDGenerator.Generate()
		recordIDSlot = state.SlotIDGenerator.Generate()
		tsSlot = state.SlotIDGenerator.Generate()

		root = stage.NewUnionStage(
			[]stage.PlanStage{minTsBranch, root},
			[]value.SlotVector{minTsSlots, realSlots},
			value.MakeSV(resultSlot, recordIDSlot, tsSlot),
			nodeID)
	}

	if csn.MaxRecord != nil {
		errs.Invariant(!csn.StopApplyingFilterAfterFirstMatch, "maxRecord with stopApplyingFilterAfterFirstMatch")
		errs.Invariant(tsSlot.Valid(), "maxRecord without a timestamp slot")

		root = stage.NewEOFFilterStage(root,
			stage.MakeBinaryOp(stage.OpLessEq,
				stage.MakeVariable(tsSlot),
				stage.MakeConstant(value.MakeTimestamp(*csn.MaxRecord))),
			nodeID)
	}

	errs.Invariant(!csn.StopApplyingFilterAfterFirstMatch || csn.Filter != nil,
		"stopApplyingFilterAfterFirstMatch without a filter")

	if csn.Filter != nil {
		root = GenerateFilter(state, csn.Filter, root,
			PlanStageSlots{Result: resultSlot, RecordID: recordIDSlot, OplogTs: tsSlot}, nodeID)

		// nlj [] [s2]
		//     left
		//         limit 1
		//         filter {<filter>}
		//         <root>
		//     right
		//         seek s2 s4 s5 @oplog
		if csn.StopApplyingFilterAfterFirstMatch {
			errs.Invariant(csn.MinRecord != nil, "stopApplyingFilterAfterFirstMatch without minRecord")
			errs.Invariant(csn.Direction == Forward, "stopApplyingFilterAfterFirstMatch on a backward scan")

			fields, vars, tsSlot = makeOplogTimestampSlotsIfNeeded(coll, state, csn.ShouldTrackLatestOplogTimestamp)

			firstMatchSlot := recordIDSlot
			resultSlot = state.SlotIDGenerator.Generate()
			recordIDSlot = state.SlotIDGenerator.Generate()

			root = stage.NewLoopJoinStage(
				stage.NewLimitSkipStage(root, 1, stage.NoLimit, nodeID),
				stage.NewScanStage(stage.ScanParams{
					CollUUID:         coll.UUID(),
					RecordSlot:       resultSlot,
					RecordIDSlot:     recordIDSlot,
					Fields:           fields,
					Vars:             vars,
					SeekRecordIDSlot: firstMatchSlot,
					Forward:          true,
					YieldPolicy:      state.YieldPolicy,
					NodeID:           nodeID,
					Lock:             lock,
				}),
				nil,
				value.MakeSV(firstMatchSlot),
				nil,
				nodeID)
		}
	}

	errs.Invariant(!csn.ShouldTrackLatestOplogTimestamp || tsSlot.Valid(), "oplog timestamp tracked without a slot")

	outputs := PlanStageSlots{Result: resultSlot, RecordID: recordIDSlot}
	if csn.ShouldTrackLatestOplogTimestamp {
		outputs.OplogTs = tsSlot
	}
	return root, outputs
}

// generateGenericCollScan builds a scan over any collection, optionally
// resuming after a record id.
func generateGenericCollScan(coll *scanexec.Collection, csn *CollectionScanNode, state *State,
	lock scanexec.LockAcquisitionCallback) (stage.PlanStage, PlanStageSlots) {
	forward := csn.Direction == Forward

	errs.Invariant(!csn.ShouldTrackLatestOplogTimestamp || coll.IsOplog(),
		"tracking the oplog timestamp of %s", coll.Name())
	errs.Invariant(csn.ResumeAfterRecordID == nil || forward, "resume on a backward scan")
	errs.Invariant(csn.ResumeAfterRecordID == nil || !csn.Tailable, "resume on a tailable scan")

	nodeID := csn.NodeID
	resultSlot := state.SlotIDGenerator.Generate()
	recordIDSlot := state.SlotIDGenerator.Generate()

	seekRecordIDSlot := value.NoSlot
	switch {
	case csn.ResumeAfterRecordID != nil:
		seekRecordIDSlot = state.SlotIDGenerator.Generate()
	case state.IsTailableCollScanResumeBranch:
		seekRecordIDSlot = resumeRecordIDSlot(state)
	}

	fields, vars, tsSlot := makeOplogTimestampSlotsIfNeeded(coll, state, csn.ShouldTrackLatestOplogTimestamp)

	var root stage.PlanStage = stage.NewScanStage(stage.ScanParams{
		CollUUID:         coll.UUID(),
		RecordSlot:       resultSlot,
		RecordIDSlot:     recordIDSlot,
		Fields:           fields,
		Vars:             vars,
		SeekRecordIDSlot: seekRecordIDSlot,
		Forward:          forward,
		YieldPolicy:      state.YieldPolicy,
		NodeID:           nodeID,
		Lock:             lock,
		OpenCallback:     makeOpenCallbackIfNeeded(coll, csn),
	})

	// nlj [] [s3]
	//     left
	//         limit 1
	//         union [s3] [
	//             [s6] nlj [s6] [s6] project [s6 = <resume id>] limit 1 coscan
	//                                seek s6 @coll,
	//             [s7] project [s7 = fail (211)] coscan]
	//     right
	//         skip 1
	//         seek s3 s1 s2 @coll
	//
	// The union's second branch runs only when the resume record is gone.
	if seekRecordIDSlot.Valid() && !state.IsTailableCollScanResumeBranch {
		resumeID := *csn.ResumeAfterRecordID
		seekSlot := state.SlotIDGenerator.Generate()

		seekBranch := stage.NewLoopJoinStage(
			makeSeekProjection(seekSlot, resumeID, nodeID),
			stage.NewScanStage(stage.ScanParams{
				CollUUID:         coll.UUID(),
				SeekRecordIDSlot: seekSlot,
				Forward:          forward,
				YieldPolicy:      state.YieldPolicy,
				NodeID:           nodeID,
				Lock:             lock,
			}),
			value.MakeSV(seekSlot),
			value.MakeSV(seekSlot),
			nil,
			nodeID)

		unusedSlot := state.SlotIDGenerator.Generate()
		failBranch := stage.MakeProjectStage(
			stage.NewCoScanStage(nodeID),
			nodeID,
			unusedSlot,
			stage.MakeFail(errs.CodeKeyNotFound, fmt.Sprintf(
				"Failed to resume collection scan: the recordId from which we are attempting to resume "+
					"no longer exists in the collection: %d", resumeID)))

		union := stage.NewUnionStage(
			[]stage.PlanStage{seekBranch, failBranch},
			[]value.SlotVector{value.MakeSV(seekSlot), value.MakeSV(unusedSlot)},
			value.MakeSV(seekRecordIDSlot),
			nodeID)

		root = stage.NewLoopJoinStage(
			stage.NewLimitSkipStage(union, 1, stage.NoLimit, nodeID),
			stage.NewLimitSkipStage(root, stage.NoLimit, 1, nodeID),
			nil,
			value.MakeSV(seekRecordIDSlot),
			nil,
			nodeID)
	}

	if csn.Filter != nil {
		errs.Invariant(!csn.StopApplyingFilterAfterFirstMatch,
			"stopApplyingFilterAfterFirstMatch applies to bounded oplog scans only")
		root = GenerateFilter(state, csn.Filter, root,
			PlanStageSlots{Result: resultSlot, RecordID: recordIDSlot, OplogTs: tsSlot}, nodeID)
	}

	return root, PlanStageSlots{Result: resultSlot, RecordID: recordIDSlot, OplogTs: tsSlot}
}

func resumeRecordIDSlot(state *State) value.SlotID {
	slot, ok := state.Env.GetSlot(stage.ResumeRecordIDSlotName)
	errs.Invariant(ok, "resume branch without a %s slot", stage.ResumeRecordIDSlotName)
	return slot
}
