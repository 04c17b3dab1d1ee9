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
	"github.com/nutsdb/scanexec/errs"
	"github.com/nutsdb/scanexec/value"
)

// LoopJoinStage is a nested loop join. For every row of the outer side the
// inner side is reopened and drained. Slots in outerCorrelated are visible to
// the inner side; slots in outerProjects are visible to the parent.
type LoopJoinStage struct {
	stageBase
	outer PlanStage
	inner PlanStage

	outerProjects   value.SlotVector
	outerCorrelated value.SlotVector
	predicate       Expression

	outerGetNext bool
	reOpenInner  bool

	specificStats LoopJoinStats
}

// NewLoopJoinStage builds a join; predicate may be nil.
func NewLoopJoinStage(outer, inner PlanStage, outerProjects, outerCorrelated value.SlotVector,
	predicate Expression, nodeID PlanNodeID) *LoopJoinStage {
	return &LoopJoinStage{
		stageBase:       newStageBase("nlj", nil, nodeID, outer, inner),
		outer:           outer,
		inner:           inner,
		outerProjects:   outerProjects,
		outerCorrelated: outerCorrelated,
		predicate:       predicate,
	}
}

func (s *LoopJoinStage) Clone() PlanStage {
	var predicate Expression
	if s.predicate != nil {
		predicate = s.predicate.Clone()
	}
	return NewLoopJoinStage(s.outer.Clone(), s.inner.Clone(),
		append(value.SlotVector(nil), s.outerProjects...),
		append(value.SlotVector(nil), s.outerCorrelated...),
		predicate, s.nodeID)
}

func (s *LoopJoinStage) Prepare(ctx *CompileCtx) error {
	if err := s.outer.Prepare(ctx); err != nil {
		return err
	}

	seen := make(map[value.SlotID]struct{}, len(s.outerCorrelated))
	for _, slot := range s.outerCorrelated {
		if _, dup := seen[slot]; dup {
			return errs.AssertionFailedf("duplicate correlated slot: %s", slot)
		}
		seen[slot] = struct{}{}
		acc, err := s.outer.GetAccessor(ctx, slot)
		if err != nil {
			return err
		}
		ctx.PushCorrelated(slot, acc)
	}
	err := s.inner.Prepare(ctx)
	for range s.outerCorrelated {
		ctx.PopCorrelated()
	}
	if err != nil {
		return err
	}

	if s.predicate != nil {
		root := ctx.Root
		ctx.Root = s
		defer func() { ctx.Root = root }()
		return s.predicate.Prepare(ctx)
	}
	return nil
}

func (s *LoopJoinStage) GetAccessor(ctx *CompileCtx, slot value.SlotID) (value.SlotAccessor, error) {
	for _, p := range s.outerProjects {
		if p == slot {
			return s.outer.GetAccessor(ctx, slot)
		}
	}
	return s.inner.GetAccessor(ctx, slot)
}

func (s *LoopJoinStage) Open(reOpen bool) error {
	s.commonStats.Opens++
	if err := s.outer.Open(reOpen); err != nil {
		return err
	}
	s.outerGetNext = true
	return nil
}

func (s *LoopJoinStage) openInner() error {
	s.specificStats.InnerOpens++
	err := s.inner.Open(s.reOpenInner)
	s.reOpenInner = true
	return err
}

func (s *LoopJoinStage) GetNext() (PlanState, error) {
	if s.outerGetNext {
		state, err := s.outer.GetNext()
		if err != nil || state != Advanced {
			return s.trackPlanState(IsEOF), err
		}
		if err := s.openInner(); err != nil {
			return IsEOF, err
		}
		s.outerGetNext = false
	}

	for {
		state, err := s.inner.GetNext()
		if err != nil {
			return IsEOF, err
		}
		if state == Advanced {
			if s.predicate == nil {
				return s.trackPlanState(Advanced), nil
			}
			v, err := s.predicate.Eval()
			if err != nil {
				return IsEOF, err
			}
			if isTrue(v) {
				return s.trackPlanState(Advanced), nil
			}
			continue
		}

		state, err = s.outer.GetNext()
		if err != nil || state != Advanced {
			return s.trackPlanState(IsEOF), err
		}
		if err := s.openInner(); err != nil {
			return IsEOF, err
		}
	}
}

func (s *LoopJoinStage) Close() {
	s.commonStats.Closes++
	if s.reOpenInner {
		s.specificStats.InnerCloses++
		s.inner.Close()
		s.reOpenInner = false
	}
	s.outer.Close()
}

func (s *LoopJoinStage) Stats(includeDebugInfo bool) *PlanStageStats {
	specific := s.specificStats
	ret := &PlanStageStats{Common: s.commonStats, Specific: &specific, Children: s.childStats(includeDebugInfo)}
	if includeDebugInfo {
		ret.DebugInfo = specific.Fields()
	}
	return ret
}

func (s *LoopJoinStage) DebugPrint() []Block {
	ret := s.debugPrintHead()
	ret = addSlots(ret, s.outerProjects)
	ret = addSlots(ret, s.outerCorrelated)
	if s.predicate != nil {
		ret = append(ret, textBlock("{"+s.predicate.String()+"}"))
	}
	ret = addLabeledChild(ret, "left", s.outer)
	return addLabeledChild(ret, "right", s.inner)
}
