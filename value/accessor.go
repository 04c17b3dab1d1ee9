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
	"github.com/nutsdb/scanexec/errs"
	"github.com/nutsdb/scanexec/internal/invariants"
)

// SlotAccessor reads the current value of a slot.
type SlotAccessor interface {
	// GetViewOfValue returns the current value without transferring
	// ownership. The result is only valid until the producing stage advances
	// or closes.
	GetViewOfValue() Value
	// CopyOrMoveValue returns a value the caller owns.
	CopyOrMoveValue() Value
}

// OwnedValueAccessor holds a value it owns.
type OwnedValueAccessor struct {
	val Value
}

func (a *OwnedValueAccessor) Reset(v Value) {
	a.val = v
}

func (a *OwnedValueAccessor) GetViewOfValue() Value {
	return a.val
}

func (a *OwnedValueAccessor) CopyOrMoveValue() Value {
	return a.val.Copy()
}

// ViewGuard tracks the lifetime of views published by one producer. Every
// Invalidate ends the lifetime of all views published before it.
type ViewGuard struct {
	gen uint64
}

// Invalidate is called by the producer before it moves or releases the
// memory its views point into.
func (g *ViewGuard) Invalidate() {
	g.gen++
}

// ViewOfValueAccessor publishes a view into memory owned by its producer,
// typically a storage cursor. The view is valid until the producer's guard is
// invalidated. Builds with the invariants tag panic on a stale read.
type ViewOfValueAccessor struct {
	val   Value
	guard *ViewGuard
	gen   uint64
}

// NewViewOfValueAccessor returns an accessor whose views are bounded by guard.
// A nil guard disables lifetime tracking.
func NewViewOfValueAccessor(guard *ViewGuard) *ViewOfValueAccessor {
	return &ViewOfValueAccessor{guard: guard}
}

func (a *ViewOfValueAccessor) Reset(v Value) {
	a.val = v
	if a.guard != nil {
		a.gen = a.guard.gen
	}
}

func (a *ViewOfValueAccessor) GetViewOfValue() Value {
	a.checkValid()
	return a.val
}

func (a *ViewOfValueAccessor) CopyOrMoveValue() Value {
	a.checkValid()
	return a.val.Copy()
}

func (a *ViewOfValueAccessor) checkValid() {
	if !invariants.Enabled || a.guard == nil || a.val.IsNothing() {
		return
	}
	if a.gen != a.guard.gen {
		panic(errs.AssertionFailedf("read of a %s view after its producer advanced", a.val.Tag()))
	}
}
