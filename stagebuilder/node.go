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

// Package stagebuilder turns collection scan descriptors into trees of plan
// stages.
package stagebuilder

import (
	"github.com/nutsdb/scanexec"
	"github.com/nutsdb/scanexec/stage"
	"github.com/nutsdb/scanexec/value"
)

// Direction is the order a collection scan visits record ids in.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// CollectionScanNode describes a collection scan.
type CollectionScanNode struct {
	NodeID    stage.PlanNodeID
	Direction Direction

	// ResumeAfterRecordID restarts a forward scan strictly after the given
	// record, which must still exist.
	ResumeAfterRecordID *scanexec.RecordID

	// MinRecord and MaxRecord bound an oplog scan by timestamp. A scan with
	// either set is built by the oplog scan builder.
	MinRecord *value.Timestamp
	MaxRecord *value.Timestamp

	Filter MatchExpression

	// StopApplyingFilterAfterFirstMatch stops evaluating Filter once a row
	// passes. The filter must be a lower bound on ts.
	StopApplyingFilterAfterFirstMatch bool

	ShouldTrackLatestOplogTimestamp bool

	// AssertTsHasNotFallenOffOplog fails the scan with
	// errs.ErrOplogQueryMinTsMissing unless the first oplog entry is at or
	// before this timestamp or is the replica set initiation entry.
	AssertTsHasNotFallenOffOplog *value.Timestamp

	ShouldWaitForOplogVisibility bool
	Tailable                     bool
}

// State is shared by every builder call that contributes to one plan.
type State struct {
	SlotIDGenerator  *value.SlotIDGenerator
	FrameIDGenerator *value.FrameIDGenerator
	Env              *stage.RuntimeEnvironment
	YieldPolicy      *stage.PlanYieldPolicy

	// IsTailableCollScanResumeBranch is set while building the branch of a
	// tailable scan that resumes from the record id held in the environment
	// slot stage.ResumeRecordIDSlotName.
	IsTailableCollScanResumeBranch bool

	seekBounds int
}

// NewState returns a State whose environment allocates from the same slot
// generator as the builders.
func NewState(yieldPolicy *stage.PlanYieldPolicy) *State {
	slots := value.NewSlotIDGenerator()
	return &State{
		SlotIDGenerator:  slots,
		FrameIDGenerator: value.NewFrameIDGenerator(),
		Env:              stage.NewRuntimeEnvironment(slots),
		YieldPolicy:      yieldPolicy,
	}
}

// PlanStageSlots names the slots a built sub-tree publishes. OplogTs is
// value.NoSlot unless the scan tracks the latest oplog timestamp.
type PlanStageSlots struct {
	Result   value.SlotID
	RecordID value.SlotID
	OplogTs  value.SlotID
}

// Relevant returns the valid slots in Result, RecordID, OplogTs order.
func (s PlanStageSlots) Relevant() value.SlotVector {
	sv := value.MakeSV(s.Result, s.RecordID)
	if s.OplogTs.Valid() {
		sv = append(sv, s.OplogTs)
	}
	return sv
}
