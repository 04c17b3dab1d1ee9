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
	"github.com/nutsdb/scanexec/value"
)

// CoScanStage produces an endless stream of empty rows. It is the leaf of
// sub-trees that compute constants.
type CoScanStage struct {
	stageBase
}

func NewCoScanStage(nodeID PlanNodeID) *CoScanStage {
	return &CoScanStage{stageBase: newStageBase("coscan", nil, nodeID)}
}

func (s *CoScanStage) Clone() PlanStage {
	return NewCoScanStage(s.nodeID)
}

func (s *CoScanStage) Prepare(*CompileCtx) error { return nil }

func (s *CoScanStage) GetAccessor(ctx *CompileCtx, slot value.SlotID) (value.SlotAccessor, error) {
	return ctx.GetAccessor(slot)
}

func (s *CoScanStage) Open(bool) error {
	s.commonStats.Opens++
	return nil
}

func (s *CoScanStage) GetNext() (PlanState, error) {
	return s.trackPlanState(Advanced), nil
}

func (s *CoScanStage) Close() {
	s.commonStats.Closes++
}

func (s *CoScanStage) Stats(bool) *PlanStageStats {
	return &PlanStageStats{Common: s.commonStats}
}

func (s *CoScanStage) DebugPrint() []Block {
	return s.debugPrintHead()
}
