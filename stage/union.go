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

// switchAccessor forwards reads to the accessor of the active branch.
type switchAccessor struct {
	accs   []value.SlotAccessor
	active int
}

func (a *switchAccessor) GetViewOfValue() value.Value {
	return a.accs[a.active].GetViewOfValue()
}

func (a *switchAccessor) CopyOrMoveValue() value.Value {
	return a.accs[a.active].CopyOrMoveValue()
}

// UnionStage returns the rows of its branches one branch after another. The
// i-th branch's inputVals[i] are renamed to outputVals.
type UnionStage struct {
	stageBase
	inputVals  []value.SlotVector
	outputVals value.SlotVector

	outAccessors []*switchAccessor
	outputMap    map[value.SlotID]*switchAccessor

	current    int
	branchOpen bool
}

// NewUnionStage panics when the branches and slot vectors do not line up.
func NewUnionStage(children []PlanStage, inputVals []value.SlotVector, outputVals value.SlotVector,
	nodeID PlanNodeID) *UnionStage {
	errs.Invariant(len(children) > 0, "union without branches")
	errs.Invariant(len(children) == len(inputVals), "union has %d branches but %d input vectors",
		len(children), len(inputVals))
	for _, in := range inputVals {
		errs.Invariant(len(in) == len(outputVals), "union branch projects %d slots into %d",
			len(in), len(outputVals))
	}
	return &UnionStage{
		stageBase:  newStageBase("union", nil, nodeID, children...),
		inputVals:  inputVals,
		outputVals: outputVals,
	}
}

func (s *UnionStage) Clone() PlanStage {
	children := make([]PlanStage, len(s.children))
	inputVals := make([]value.SlotVector, len(s.inputVals))
	for i, child := range s.children {
		children[i] = child.Clone()
		inputVals[i] = append(value.SlotVector(nil), s.inputVals[i]...)
	}
	return NewUnionStage(children, inputVals, append(value.SlotVector(nil), s.outputVals...), s.nodeID)
}

func (s *UnionStage) Prepare(ctx *CompileCtx) error {
	s.outAccessors = make([]*switchAccessor, len(s.outputVals))
	s.outputMap = make(map[value.SlotID]*switchAccessor, len(s.outputVals))
	for i, slot := range s.outputVals {
		if _, dup := s.outputMap[slot]; dup {
			return errs.AssertionFailedf("duplicate slot: %s", slot)
		}
		s.outAccessors[i] = &switchAccessor{accs: make([]value.SlotAccessor, len(s.children))}
		s.outputMap[slot] = s.outAccessors[i]
	}

	for b, child := range s.children {
		if err := child.Prepare(ctx); err != nil {
			return err
		}
		for i, slot := range s.inputVals[b] {
			acc, err := child.GetAccessor(ctx, slot)
			if err != nil {
				return err
			}
			s.outAccessors[i].accs[b] = acc
		}
	}
	return nil
}

func (s *UnionStage) GetAccessor(ctx *CompileCtx, slot value.SlotID) (value.SlotAccessor, error) {
	if acc, ok := s.outputMap[slot]; ok {
		return acc, nil
	}
	return ctx.GetAccessor(slot)
}

func (s *UnionStage) switchTo(branch int) error {
	s.current = branch
	for _, acc := range s.outAccessors {
		acc.active = branch
	}
	if err := s.children[branch].Open(false); err != nil {
		return err
	}
	s.branchOpen = true
	return nil
}

func (s *UnionStage) closeBranch() {
	if s.branchOpen {
		s.children[s.current].Close()
		s.branchOpen = false
	}
}

func (s *UnionStage) Open(reOpen bool) error {
	s.commonStats.Opens++
	s.closeBranch()
	return s.switchTo(0)
}

func (s *UnionStage) GetNext() (PlanState, error) {
	for s.branchOpen {
		state, err := s.children[s.current].GetNext()
		if err != nil {
			return IsEOF, err
		}
		if state == Advanced {
			return s.trackPlanState(Advanced), nil
		}

		s.closeBranch()
		if s.current+1 < len(s.children) {
			if err := s.switchTo(s.current + 1); err != nil {
				return IsEOF, err
			}
		}
	}
	return s.trackPlanState(IsEOF), nil
}

func (s *UnionStage) Close() {
	s.commonStats.Closes++
	s.closeBranch()
}

func (s *UnionStage) Stats(includeDebugInfo bool) *PlanStageStats {
	return &PlanStageStats{Common: s.commonStats, Children: s.childStats(includeDebugInfo)}
}

func (s *UnionStage) DebugPrint() []Block {
	ret := s.debugPrintHead()
	ret = addSlots(ret, s.outputVals)
	ret = append(ret, textBlock("{"))
	for i, child := range s.children {
		if i > 0 {
			ret = append(ret, textBlock(","))
		}
		ret = append(ret, incIndent)
		ret = addSlots(ret, s.inputVals[i])
		ret = append(ret, newLine)
		ret = append(ret, child.DebugPrint()...)
		ret = append(ret, decIndent)
	}
	return append(ret, textBlock("}"))
}
