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
	"go.mongodb.org/mongo-driver/bson"
)

// CommonStats are kept by every stage.
type CommonStats struct {
	StageType string
	NodeID    PlanNodeID
	Opens     int64
	Closes    int64
	Advances  int64
	Yields    int64
	Unyields  int64
	IsEOF     bool
}

// SpecificStats are the stats only one kind of stage keeps.
type SpecificStats interface {
	// Fields returns the stats as name/value pairs for display.
	Fields() bson.D
}

type IndexScanStats struct {
	NumReads int64
	Seeks    int64
}

func (s *IndexScanStats) Fields() bson.D {
	return bson.D{{Key: "numReads", Value: s.NumReads}, {Key: "seeks", Value: s.Seeks}}
}

type ScanStats struct {
	NumReads int64
}

func (s *ScanStats) Fields() bson.D {
	return bson.D{{Key: "numReads", Value: s.NumReads}}
}

type FilterStats struct {
	NumTested int64
}

func (s *FilterStats) Fields() bson.D {
	return bson.D{{Key: "numTested", Value: s.NumTested}}
}

type LimitSkipStats struct {
	Limit int64
	Skip  int64
}

func (s *LimitSkipStats) Fields() bson.D {
	var d bson.D
	if s.Limit >= 0 {
		d = append(d, bson.E{Key: "limit", Value: s.Limit})
	}
	if s.Skip >= 0 {
		d = append(d, bson.E{Key: "skip", Value: s.Skip})
	}
	return d
}

type LoopJoinStats struct {
	InnerOpens  int64
	InnerCloses int64
}

func (s *LoopJoinStats) Fields() bson.D {
	return bson.D{{Key: "innerOpens", Value: s.InnerOpens}, {Key: "innerCloses", Value: s.InnerCloses}}
}

// PlanStageStats is a snapshot of the stats of a stage and its children.
type PlanStageStats struct {
	Common   CommonStats
	Specific SpecificStats
	// DebugInfo describes the stage's configuration. It is only filled when
	// requested.
	DebugInfo bson.D
	Children  []*PlanStageStats
}

// Walk calls fn for s and every stats node below it, parents first.
func (s *PlanStageStats) Walk(fn func(depth int, stats *PlanStageStats)) {
	s.walk(0, fn)
}

func (s *PlanStageStats) walk(depth int, fn func(int, *PlanStageStats)) {
	fn(depth, s)
	for _, child := range s.Children {
		child.walk(depth+1, fn)
	}
}
