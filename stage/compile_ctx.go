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

// ResumeRecordIDSlotName is the environment slot a tailable scan's resume
// branch reads its starting record id from.
const ResumeRecordIDSlotName = "resumeRecordId"

// RuntimeEnvironment holds named slots whose values are supplied by the
// caller rather than produced by a stage.
type RuntimeEnvironment struct {
	slots     *value.SlotIDGenerator
	names     map[string]value.SlotID
	accessors map[value.SlotID]*value.OwnedValueAccessor
}

// NewRuntimeEnvironment returns an empty environment allocating its slots
// from slots.
func NewRuntimeEnvironment(slots *value.SlotIDGenerator) *RuntimeEnvironment {
	return &RuntimeEnvironment{
		slots:     slots,
		names:     make(map[string]value.SlotID),
		accessors: make(map[value.SlotID]*value.OwnedValueAccessor),
	}
}

// RegisterSlot allocates a slot called name holding v. Registering the same
// name twice is a bug in the caller.
func (env *RuntimeEnvironment) RegisterSlot(name string, v value.Value) value.SlotID {
	_, exists := env.names[name]
	errs.Invariant(!exists, "environment slot %q already registered", name)

	slot := env.slots.Generate()
	acc := &value.OwnedValueAccessor{}
	acc.Reset(v.Copy())
	env.names[name] = slot
	env.accessors[slot] = acc
	return slot
}

// GetSlot returns the slot registered under name.
func (env *RuntimeEnvironment) GetSlot(name string) (value.SlotID, bool) {
	slot, ok := env.names[name]
	return slot, ok
}

// ResetSlot replaces the value held by slot.
func (env *RuntimeEnvironment) ResetSlot(slot value.SlotID, v value.Value) {
	acc, ok := env.accessors[slot]
	errs.Invariant(ok, "undefined environment slot %s", slot)
	acc.Reset(v.Copy())
}

func (env *RuntimeEnvironment) GetAccessor(slot value.SlotID) (value.SlotAccessor, bool) {
	acc, ok := env.accessors[slot]
	if !ok {
		return nil, false
	}
	return acc, true
}

type correlatedAccessor struct {
	slot value.SlotID
	acc  value.SlotAccessor
}

type localFrame struct {
	id   value.FrameID
	accs []*value.OwnedValueAccessor
}

// CompileCtx is threaded through Prepare. It resolves slots that are not
// produced below the stage being prepared: slots correlated by an enclosing
// loop join, then environment slots.
type CompileCtx struct {
	Env *RuntimeEnvironment

	// Root is the stage whose accessors expressions are compiled against.
	Root PlanStage

	correlated []correlatedAccessor
	frames     []localFrame
}

func NewCompileCtx(env *RuntimeEnvironment) *CompileCtx {
	return &CompileCtx{Env: env}
}

// GetAccessor resolves slot among the correlated slots and the environment.
func (ctx *CompileCtx) GetAccessor(slot value.SlotID) (value.SlotAccessor, error) {
	for i := len(ctx.correlated) - 1; i >= 0; i-- {
		if ctx.correlated[i].slot == slot {
			return ctx.correlated[i].acc, nil
		}
	}
	if ctx.Env != nil {
		if acc, ok := ctx.Env.GetAccessor(slot); ok {
			return acc, nil
		}
	}
	return nil, errs.AssertionFailedf("undefined slot accessor: %s", slot)
}

// PushCorrelated makes acc visible as slot to stages prepared until the
// matching PopCorrelated.
func (ctx *CompileCtx) PushCorrelated(slot value.SlotID, acc value.SlotAccessor) {
	ctx.correlated = append(ctx.correlated, correlatedAccessor{slot: slot, acc: acc})
}

func (ctx *CompileCtx) PopCorrelated() {
	ctx.correlated = ctx.correlated[:len(ctx.correlated)-1]
}

func (ctx *CompileCtx) pushFrame(id value.FrameID, accs []*value.OwnedValueAccessor) {
	ctx.frames = append(ctx.frames, localFrame{id: id, accs: accs})
}

func (ctx *CompileCtx) popFrame() {
	ctx.frames = ctx.frames[:len(ctx.frames)-1]
}

func (ctx *CompileCtx) localAccessor(id value.FrameID, index int) (value.SlotAccessor, error) {
	for i := len(ctx.frames) - 1; i >= 0; i-- {
		f := ctx.frames[i]
		if f.id != id {
			continue
		}
		if index < 0 || index >= len(f.accs) {
			return nil, errs.AssertionFailedf("local variable %s.%d out of range", id, index)
		}
		return f.accs[index], nil
	}
	return nil, errs.AssertionFailedf("undefined frame %s", id)
}

// accessorOf resolves slot through Root when set, else through the context.
func (ctx *CompileCtx) accessorOf(slot value.SlotID) (value.SlotAccessor, error) {
	if ctx.Root != nil {
		return ctx.Root.GetAccessor(ctx, slot)
	}
	return ctx.GetAccessor(slot)
}
