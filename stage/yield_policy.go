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
	"time"

	"github.com/nutsdb/scanexec"
	"github.com/nutsdb/scanexec/errs"
)

// PlanYieldPolicy decides when a running plan yields and performs the yield.
// A yield saves the registered plan, releases the operation's locks and
// snapshots and restores the plan against fresh ones.
type PlanYieldPolicy struct {
	opCtx *scanexec.OperationContext
	root  PlanStage

	maxIterations int
	iterations    int
	deadline      *scanexec.YieldDeadline

	whileYielding func()
	numYields     int64
}

// NewPlanYieldPolicy yields every iterations calls to ShouldYieldOrInterrupt
// or once period elapsed since the last yield, whichever comes first. A zero
// value disables either trigger.
func NewPlanYieldPolicy(opCtx *scanexec.OperationContext, iterations int, period time.Duration) *PlanYieldPolicy {
	p := &PlanYieldPolicy{
		opCtx:         opCtx,
		maxIterations: iterations,
		deadline:      opCtx.DB().NewYieldDeadline(period),
	}
	if p.deadline != nil {
		p.deadline.Arm()
	}
	return p
}

// NewDefaultPlanYieldPolicy uses the yield settings of the operation's DB.
func NewDefaultPlanYieldPolicy(opCtx *scanexec.OperationContext) *PlanYieldPolicy {
	opts := opCtx.DB().Options()
	return NewPlanYieldPolicy(opCtx, opts.YieldIterations, opts.YieldPeriod)
}

// RegisterPlan sets the plan saved and restored on yield.
func (p *PlanYieldPolicy) RegisterPlan(root PlanStage) {
	p.root = root
}

// SetWhileYieldingFn installs fn to run while the plan is yielded and holds
// no locks.
func (p *PlanYieldPolicy) SetWhileYieldingFn(fn func()) {
	p.whileYielding = fn
}

func (p *PlanYieldPolicy) NumYields() int64 {
	return p.numYields
}

// ShouldYieldOrInterrupt reports whether the caller should call
// YieldOrInterrupt now.
func (p *PlanYieldPolicy) ShouldYieldOrInterrupt() bool {
	if p.opCtx.Context().Err() != nil {
		return true
	}
	p.iterations++
	if p.maxIterations > 0 && p.iterations >= p.maxIterations {
		return true
	}
	return p.deadline != nil && p.deadline.Due()
}

// YieldOrInterrupt fails when the operation is interrupted and yields the
// registered plan otherwise.
func (p *PlanYieldPolicy) YieldOrInterrupt() error {
	if err := p.opCtx.CheckForInterrupt(); err != nil {
		return err
	}
	if p.root == nil {
		return errs.AssertionFailedf("yield requested before a plan was registered")
	}

	start := time.Now()
	p.root.SaveState()
	p.opCtx.ReleaseLocks()
	p.opCtx.AbandonSnapshot()
	if p.whileYielding != nil {
		p.whileYielding()
	}
	err := p.root.RestoreState()

	p.iterations = 0
	if p.deadline != nil {
		p.deadline.Arm()
	}
	p.numYields++
	p.opCtx.DB().MetricsSink().ObserveYield(time.Since(start))
	return err
}

// Dispose stops the policy's timer.
func (p *PlanYieldPolicy) Dispose() {
	if p.deadline != nil {
		p.deadline.Stop()
	}
}
