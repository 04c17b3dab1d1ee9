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

// FilterStage passes on the rows of its child for which the predicate is
// true.
//
// An EOF filter instead ends the stream at the first row that fails the
// predicate; it stays at EOF until reopened.
type FilterStage struct {
	stageBase
	child     PlanStage
	predicate Expression
	isEOF     bool

	done          bool
	specificStats FilterStats
}

func NewFilterStage(child PlanStage, predicate Expression, nodeID PlanNodeID) *FilterStage {
	return &FilterStage{
		stageBase: newStageBase("filter", nil, nodeID, child),
		child:     child,
		predicate: predicate,
	}
}

// NewEOFFilterStage builds a filter that turns the first failing row into
// EOF.
func NewEOFFilterStage(child PlanStage, predicate Expression, nodeID PlanNodeID) *FilterStage {
	return &FilterStage{
		stageBase: newStageBase("efilter", nil, nodeID, child),
		child:     child,
		predicate: predicate,
		isEOF:     true,
	}
}

func (s *FilterStage) Clone() PlanStage {
	if s.isEOF {
		return NewEOFFilterStage(s.child.Clone(), s.predicate.Clone(), s.nodeID)
	}
	return NewFilterStage(s.child.Clone(), s.predicate.Clone(), s.nodeID)
}

func (s *FilterStage) Prepare(ctx *CompileCtx) error {
	if err := s.child.Prepare(ctx); err != nil {
		return err
	}
	root := ctx.Root
	ctx.Root = s
	defer func() { ctx.Root = root }()
	return s.predicate.Prepare(ctx)
}

func (s *FilterStage) GetAccessor(ctx *CompileCtx, slot value.SlotID) (value.SlotAccessor, error) {
	return s.child.GetAccessor(ctx, slot)
}

func (s *FilterStage) Open(reOpen bool) error {
	s.commonStats.Opens++
	s.done = false
	return s.child.Open(reOpen)
}

func (s *FilterStage) GetNext() (PlanState, error) {
	if s.done {
		return s.trackPlanState(IsEOF), nil
	}
	for {
		state, err := s.child.GetNext()
		if err != nil || state != Advanced {
			return s.trackPlanState(state), err
		}

		s.specificStats.NumTested++
		v, err := s.predicate.Eval()
		if err != nil {
			return IsEOF, err
		}
		if isTrue(v) {
			return s.trackPlanState(Advanced), nil
		}
		if s.isEOF {
			s.done = true
			return s.trackPlanState(IsEOF), nil
		}
	}
}

func (s *FilterStage) Close() {
	s.commonStats.Closes++
	s.child.Close()
}

func (s *FilterStage) Stats(includeDebugInfo bool) *PlanStageStats {
	specific := s.specificStats
	ret := &PlanStageStats{Common: s.commonStats, Specific: &specific, Children: s.childStats(includeDebugInfo)}
	if includeDebugInfo {
		ret.DebugInfo = specific.Fields()
	}
	return ret
}

func (s *FilterStage) DebugPrint() []Block {
	ret := s.debugPrintHead()
	ret = append(ret, textBlock("{"+s.predicate.String()+"}"))
	return addChild(ret, s.child)
}
