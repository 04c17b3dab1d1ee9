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
	"github.com/xujiajun/utils/strconv2"

	"github.com/nutsdb/scanexec/value"
)

// NoLimit disables the limit or the skip of a LimitSkipStage.
const NoLimit int64 = -1

// LimitSkipStage drops the first skip rows of its child and then returns at
// most limit rows.
type LimitSkipStage struct {
	stageBase
	child PlanStage
	limit int64
	skip  int64

	current int64
	isEOF   bool
}

// NewLimitSkipStage builds a limit/skip. Either of limit and skip may be
// NoLimit, not both.
func NewLimitSkipStage(child PlanStage, limit, skip int64, nodeID PlanNodeID) *LimitSkipStage {
	name := "limit"
	if skip != NoLimit {
		name = "limitskip"
		if limit == NoLimit {
			name = "skip"
		}
	}
	return &LimitSkipStage{
		stageBase: newStageBase(name, nil, nodeID, child),
		child:     child,
		limit:     limit,
		skip:      skip,
	}
}

func (s *LimitSkipStage) Clone() PlanStage {
	return NewLimitSkipStage(s.child.Clone(), s.limit, s.skip, s.nodeID)
}

func (s *LimitSkipStage) Prepare(ctx *CompileCtx) error {
	return s.child.Prepare(ctx)
}

func (s *LimitSkipStage) GetAccessor(ctx *CompileCtx, slot value.SlotID) (value.SlotAccessor, error) {
	return s.child.GetAccessor(ctx, slot)
}

func (s *LimitSkipStage) Open(reOpen bool) error {
	s.commonStats.Opens++
	s.isEOF = s.limit == 0
	s.current = 0
	if s.isEOF {
		return nil
	}
	return s.child.Open(reOpen)
}

func (s *LimitSkipStage) GetNext() (PlanState, error) {
	if s.isEOF {
		return s.trackPlanState(IsEOF), nil
	}

	for s.skip > 0 && s.current < s.skip {
		state, err := s.child.GetNext()
		if err != nil || state != Advanced {
			return s.trackPlanState(state), err
		}
		s.current++
	}

	if s.limit != NoLimit && s.current-max(s.skip, 0) >= s.limit {
		s.isEOF = true
		return s.trackPlanState(IsEOF), nil
	}

	state, err := s.child.GetNext()
	if err != nil {
		return state, err
	}
	if state == Advanced {
		s.current++
	}
	return s.trackPlanState(state), nil
}

func (s *LimitSkipStage) Close() {
	s.commonStats.Closes++
	s.child.Close()
}

func (s *LimitSkipStage) Stats(includeDebugInfo bool) *PlanStageStats {
	ret := &PlanStageStats{
		Common:   s.commonStats,
		Specific: &LimitSkipStats{Limit: s.limit, Skip: s.skip},
		Children: s.childStats(includeDebugInfo),
	}
	if includeDebugInfo {
		ret.DebugInfo = ret.Specific.Fields()
	}
	return ret
}

func (s *LimitSkipStage) DebugPrint() []Block {
	ret := s.debugPrintHead()
	if s.limit != NoLimit {
		ret = append(ret, textBlock(strconv2.Int64ToStr(s.limit)))
	}
	if s.skip != NoLimit {
		ret = append(ret, textBlock(strconv2.Int64ToStr(s.skip)))
	}
	return addChild(ret, s.child)
}

