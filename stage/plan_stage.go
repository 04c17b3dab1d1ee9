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

// Package stage implements the physical operators of a query plan.
//
// A plan is a tree of PlanStage values driven through a fixed protocol:
// Prepare once, Open, GetNext until it reports IsEOF, Close. Between two
// GetNext calls the tree may be saved and restored around a yield, during
// which it holds no storage snapshot and no collection lock. Stages exchange
// values through slots: a producer publishes a value through a SlotAccessor
// and consumers resolve that accessor during Prepare.
package stage

import (
	"github.com/nutsdb/scanexec"
	"github.com/nutsdb/scanexec/metrics"
	"github.com/nutsdb/scanexec/value"
)

// PlanState is the outcome of GetNext.
type PlanState int

const (
	// Advanced means the stage produced a row; its output slots hold it.
	Advanced PlanState = iota
	// IsEOF means the stage has no more rows until it is reopened.
	IsEOF
)

func (s PlanState) String() string {
	if s == Advanced {
		return "ADVANCED"
	}
	return "IS_EOF"
}

// PlanNodeID ties a stage to the logical plan node it was built from.
type PlanNodeID int64

// PlanStage is implemented by every physical operator.
type PlanStage interface {
	// Prepare resolves the accessors the stage reads and acquires the
	// catalog entries it scans. It is called once, after the tree is attached
	// to an operation context.
	Prepare(ctx *CompileCtx) error
	// GetAccessor returns the accessor of slot as seen by this stage's
	// parent. Slots the stage does not produce are looked up in its children
	// and then in ctx.
	GetAccessor(ctx *CompileCtx, slot value.SlotID) (value.SlotAccessor, error)
	Open(reOpen bool) error
	GetNext() (PlanState, error)
	Close()

	// SaveState releases the stage's storage resources ahead of a yield.
	SaveState()
	// RestoreState re-acquires them and re-validates the catalog entries the
	// stage depends on.
	RestoreState() error

	AttachToOperationContext(opCtx *scanexec.OperationContext)
	DetachFromOperationContext()
	AttachToTrialRunTracker(tracker *TrialRunTracker)
	DetachFromTrialRunTracker()

	// Clone returns an unprepared copy of the stage and its children.
	Clone() PlanStage
	Children() []PlanStage
	Stats(includeDebugInfo bool) *PlanStageStats
	DebugPrint() []Block
}

// stageBase carries what every stage shares: its name, the operation it runs
// under and its common stats.
type stageBase struct {
	name        string
	nodeID      PlanNodeID
	opCtx       *scanexec.OperationContext
	yieldPolicy *PlanYieldPolicy
	commonStats CommonStats
	children    []PlanStage
}

func newStageBase(name string, yieldPolicy *PlanYieldPolicy, nodeID PlanNodeID, children ...PlanStage) stageBase {
	return stageBase{
		name:        name,
		nodeID:      nodeID,
		yieldPolicy: yieldPolicy,
		commonStats: CommonStats{StageType: name, NodeID: nodeID},
		children:    children,
	}
}

func (b *stageBase) Children() []PlanStage {
	return b.children
}

func (b *stageBase) AttachToOperationContext(opCtx *scanexec.OperationContext) {
	b.opCtx = opCtx
	for _, child := range b.children {
		child.AttachToOperationContext(opCtx)
	}
}

func (b *stageBase) DetachFromOperationContext() {
	b.opCtx = nil
	for _, child := range b.children {
		child.DetachFromOperationContext()
	}
}

func (b *stageBase) AttachToTrialRunTracker(tracker *TrialRunTracker) {
	for _, child := range b.children {
		child.AttachToTrialRunTracker(tracker)
	}
}

func (b *stageBase) DetachFromTrialRunTracker() {
	for _, child := range b.children {
		child.DetachFromTrialRunTracker()
	}
}

func (b *stageBase) SaveState() {
	b.commonStats.Yields++
	for _, child := range b.children {
		child.SaveState()
	}
}

func (b *stageBase) RestoreState() error {
	b.commonStats.Unyields++
	for _, child := range b.children {
		if err := child.RestoreState(); err != nil {
			return err
		}
	}
	return nil
}

func (b *stageBase) trackPlanState(state PlanState) PlanState {
	if state == Advanced {
		b.commonStats.Advances++
	} else {
		b.commonStats.IsEOF = true
	}
	return state
}

// checkForInterrupt gives the yield policy a chance to yield the whole plan
// and fails once the operation is interrupted.
func (b *stageBase) checkForInterrupt() error {
	if b.yieldPolicy != nil && b.yieldPolicy.ShouldYieldOrInterrupt() {
		return b.yieldPolicy.YieldOrInterrupt()
	}
	return b.opCtx.CheckForInterrupt()
}

func (b *stageBase) sink() metrics.Sink {
	if b.opCtx == nil {
		return metrics.Noop
	}
	return b.opCtx.DB().MetricsSink()
}

// childStats collects the stats of the stage's children.
func (b *stageBase) childStats(includeDebugInfo bool) []*PlanStageStats {
	stats := make([]*PlanStageStats, 0, len(b.children))
	for _, child := range b.children {
		stats = append(stats, child.Stats(includeDebugInfo))
	}
	return stats
}

// Prepare attaches root to opCtx and prepares it against env.
func Prepare(root PlanStage, opCtx *scanexec.OperationContext, env *RuntimeEnvironment) (*CompileCtx, error) {
	root.AttachToOperationContext(opCtx)
	ctx := NewCompileCtx(env)
	if err := root.Prepare(ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}
