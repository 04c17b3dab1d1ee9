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

// Projection binds the result of an expression to a slot.
type Projection struct {
	Slot value.SlotID
	Expr Expression
}

// ProjectStage evaluates its projections for every row of its child.
type ProjectStage struct {
	stageBase
	child       PlanStage
	projections []Projection

	accessors map[value.SlotID]*value.OwnedValueAccessor
}

func NewProjectStage(child PlanStage, nodeID PlanNodeID, projections ...Projection) *ProjectStage {
	return &ProjectStage{
		stageBase:   newStageBase("project", nil, nodeID, child),
		child:       child,
		projections: projections,
	}
}

// MakeProjectStage projects a single expression.
func MakeProjectStage(child PlanStage, nodeID PlanNodeID, slot value.SlotID, expr Expression) *ProjectStage {
	return NewProjectStage(child, nodeID, Projection{Slot: slot, Expr: expr})
}

func (s *ProjectStage) Clone() PlanStage {
	projections := make([]Projection, len(s.projections))
	for i, p := range s.projections {
		projections[i] = Projection{Slot: p.Slot, Expr: p.Expr.Clone()}
	}
	return NewProjectStage(s.child.Clone(), s.nodeID, projections...)
}

func (s *ProjectStage) Prepare(ctx *CompileCtx) error {
	if err := s.child.Prepare(ctx); err != nil {
		return err
	}

	s.accessors = make(map[value.SlotID]*value.OwnedValueAccessor, len(s.projections))
	root := ctx.Root
	ctx.Root = s
	defer func() { ctx.Root = root }()
	for _, p := range s.projections {
		if _, dup := s.accessors[p.Slot]; dup {
			return errs.AssertionFailedf("duplicate slot: %s", p.Slot)
		}
		if err := p.Expr.Prepare(ctx); err != nil {
			return err
		}
		s.accessors[p.Slot] = &value.OwnedValueAccessor{}
	}
	return nil
}

func (s *ProjectStage) GetAccessor(ctx *CompileCtx, slot value.SlotID) (value.SlotAccessor, error) {
	if acc, ok := s.accessors[slot]; ok {
		return acc, nil
	}
	return s.child.GetAccessor(ctx, slot)
}

func (s *ProjectStage) Open(reOpen bool) error {
	s.commonStats.Opens++
	return s.child.Open(reOpen)
}

func (s *ProjectStage) GetNext() (PlanState, error) {
	state, err := s.child.GetNext()
	if err != nil || state != Advanced {
		return s.trackPlanState(state), err
	}
	for _, p := range s.projections {
		v, err := p.Expr.Eval()
		if err != nil {
			return IsEOF, err
		}
		s.accessors[p.Slot].Reset(v.Copy())
	}
	return s.trackPlanState(Advanced), nil
}

func (s *ProjectStage) Close() {
	s.commonStats.Closes++
	s.child.Close()
}

func (s *ProjectStage) Stats(includeDebugInfo bool) *PlanStageStats {
	return &PlanStageStats{Common: s.commonStats, Children: s.childStats(includeDebugInfo)}
}

func (s *ProjectStage) DebugPrint() []Block {
	ret := s.debugPrintHead()
	parts := "["
	for i, p := range s.projections {
		if i > 0 {
			parts += ", "
		}
		parts += p.Slot.String() + " = " + p.Expr.String()
	}
	ret = append(ret, textBlock(parts+"]"))
	return addChild(ret, s.child)
}
