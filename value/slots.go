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

package value

import (
	"strings"

	"github.com/xujiajun/utils/strconv2"
)

// SlotID names an output cell written by exactly one stage.
type SlotID int64

// NoSlot marks an absent optional slot. Generated ids start at 1.
const NoSlot SlotID = 0

// FrameID names a local binding frame inside an expression.
type FrameID int64

// SlotVector is an ordered list of slots.
type SlotVector []SlotID

// MakeSV builds a SlotVector from ids.
func MakeSV(ids ...SlotID) SlotVector {
	sv := make(SlotVector, 0, len(ids))
	return append(sv, ids...)
}

// Valid reports whether s names a slot.
func (s SlotID) Valid() bool {
	return s != NoSlot
}

func (s SlotID) String() string {
	return "s" + strconv2.Int64ToStr(int64(s))
}

func (f FrameID) String() string {
	return "l" + strconv2.Int64ToStr(int64(f))
}

func (sv SlotVector) String() string {
	parts := make([]string, len(sv))
	for i, s := range sv {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// IDGenerator hands out strictly increasing ids starting at 1. Ids are never
// reused, so two sub-trees built from the same generator never share a slot.
type IDGenerator[T ~int64] struct {
	current T
}

func (g *IDGenerator[T]) Generate() T {
	g.current++
	return g.current
}

func (g *IDGenerator[T]) GenerateMultiple(n int) []T {
	ids := make([]T, n)
	for i := range ids {
		ids[i] = g.Generate()
	}
	return ids
}

// SlotIDGenerator allocates slots at plan-compilation time.
type SlotIDGenerator = IDGenerator[SlotID]

// FrameIDGenerator allocates frames for local bindings.
type FrameIDGenerator = IDGenerator[FrameID]

// NewSlotIDGenerator returns a generator whose first id is 1.
func NewSlotIDGenerator() *SlotIDGenerator {
	return &SlotIDGenerator{}
}

// NewFrameIDGenerator returns a generator whose first id is 1.
func NewFrameIDGenerator() *FrameIDGenerator {
	return &FrameIDGenerator{}
}
