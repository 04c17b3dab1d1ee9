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
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/nutsdb/scanexec/errs"
	"github.com/nutsdb/scanexec/value"
)

// Expression computes a value from the slots visible to the stage it is
// compiled in. Comparisons between values of incomparable types, and lookups
// that find nothing, evaluate to Nothing rather than failing.
type Expression interface {
	Prepare(ctx *CompileCtx) error
	Eval() (value.Value, error)
	Clone() Expression
	String() string
}

func cloneExprs(exprs []Expression) []Expression {
	out := make([]Expression, len(exprs))
	for i, e := range exprs {
		out[i] = e.Clone()
	}
	return out
}

// EConstant is a literal.
type EConstant struct {
	val value.Value
}

func MakeConstant(v value.Value) *EConstant {
	return &EConstant{val: v.Copy()}
}

func (e *EConstant) Prepare(*CompileCtx) error  { return nil }
func (e *EConstant) Eval() (value.Value, error) { return e.val, nil }
func (e *EConstant) Clone() Expression          { return &EConstant{val: e.val} }
func (e *EConstant) String() string             { return e.val.String() }

// EVariable reads a slot, or a variable bound by an enclosing ELocalBind.
type EVariable struct {
	slot  value.SlotID
	frame value.FrameID
	index int
	local bool

	acc value.SlotAccessor
}

// MakeVariable reads slot.
func MakeVariable(slot value.SlotID) *EVariable {
	return &EVariable{slot: slot}
}

// MakeLocalVariable reads the index-th variable bound in frame.
func MakeLocalVariable(frame value.FrameID, index int) *EVariable {
	return &EVariable{frame: frame, index: index, local: true}
}

func (e *EVariable) Prepare(ctx *CompileCtx) (err error) {
	if e.local {
		e.acc, err = ctx.localAccessor(e.frame, e.index)
	} else {
		e.acc, err = ctx.accessorOf(e.slot)
	}
	return err
}

func (e *EVariable) Eval() (value.Value, error) {
	return e.acc.GetViewOfValue(), nil
}

func (e *EVariable) Clone() Expression {
	return &EVariable{slot: e.slot, frame: e.frame, index: e.index, local: e.local}
}

func (e *EVariable) String() string {
	if e.local {
		return fmt.Sprintf("%s.%d", e.frame, e.index)
	}
	return e.slot.String()
}

// ELocalBind evaluates binds once and makes them visible to in as the
// variables of frame.
type ELocalBind struct {
	frame value.FrameID
	binds []Expression
	in    Expression

	accs []*value.OwnedValueAccessor
}

func MakeLocalBind(frame value.FrameID, in Expression, binds ...Expression) *ELocalBind {
	return &ELocalBind{frame: frame, binds: binds, in: in}
}

func (e *ELocalBind) Prepare(ctx *CompileCtx) error {
	e.accs = make([]*value.OwnedValueAccessor, len(e.binds))
	for i, b := range e.binds {
		if err := b.Prepare(ctx); err != nil {
			return err
		}
		e.accs[i] = &value.OwnedValueAccessor{}
	}
	ctx.pushFrame(e.frame, e.accs)
	defer ctx.popFrame()
	return e.in.Prepare(ctx)
}

func (e *ELocalBind) Eval() (value.Value, error) {
	for i, b := range e.binds {
		v, err := b.Eval()
		if err != nil {
			return value.MakeNothing(), err
		}
		e.accs[i].Reset(v)
	}
	return e.in.Eval()
}

func (e *ELocalBind) Clone() Expression {
	return &ELocalBind{frame: e.frame, binds: cloneExprs(e.binds), in: e.in.Clone()}
}

func (e *ELocalBind) String() string {
	parts := make([]string, len(e.binds))
	for i, b := range e.binds {
		parts[i] = fmt.Sprintf("%s.%d = %s", e.frame, i, b)
	}
	return fmt.Sprintf("let [%s] %s", strings.Join(parts, "; "), e.in)
}

// BinaryOp is the operator of an EPrimBinary.
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpNeq
	OpLess
	OpLessEq
	OpGreater
	OpGreaterEq
	OpLogicAnd
	OpLogicOr
)

var binaryOpNames = [...]string{
	OpEq:        "==",
	OpNeq:       "!=",
	OpLess:      "<",
	OpLessEq:    "<=",
	OpGreater:   ">",
	OpGreaterEq: ">=",
	OpLogicAnd:  "&&",
	OpLogicOr:   "||",
}

func (op BinaryOp) String() string {
	return binaryOpNames[op]
}

// EPrimBinary is a comparison or a short-circuiting logical operator.
type EPrimBinary struct {
	op       BinaryOp
	lhs, rhs Expression
}

func MakeBinaryOp(op BinaryOp, lhs, rhs Expression) *EPrimBinary {
	return &EPrimBinary{op: op, lhs: lhs, rhs: rhs}
}

func (e *EPrimBinary) Prepare(ctx *CompileCtx) error {
	if err := e.lhs.Prepare(ctx); err != nil {
		return err
	}
	return e.rhs.Prepare(ctx)
}

func isTrue(v value.Value) bool {
	return v.Tag() == value.TagBoolean && v.Bool()
}

func (e *EPrimBinary) Eval() (value.Value, error) {
	lhs, err := e.lhs.Eval()
	if err != nil {
		return value.MakeNothing(), err
	}

	switch e.op {
	case OpLogicAnd:
		if !isTrue(lhs) {
			return value.MakeBool(false), nil
		}
		rhs, err := e.rhs.Eval()
		if err != nil {
			return value.MakeNothing(), err
		}
		return value.MakeBool(isTrue(rhs)), nil
	case OpLogicOr:
		if isTrue(lhs) {
			return value.MakeBool(true), nil
		}
		rhs, err := e.rhs.Eval()
		if err != nil {
			return value.MakeNothing(), err
		}
		return value.MakeBool(isTrue(rhs)), nil
	}

	rhs, err := e.rhs.Eval()
	if err != nil {
		return value.MakeNothing(), err
	}
	cmp, ok := value.Compare(lhs, rhs)
	if !ok {
		return value.MakeNothing(), nil
	}
	switch e.op {
	case OpEq:
		return value.MakeBool(cmp == 0), nil
	case OpNeq:
		return value.MakeBool(cmp != 0), nil
	case OpLess:
		return value.MakeBool(cmp < 0), nil
	case OpLessEq:
		return value.MakeBool(cmp <= 0), nil
	case OpGreater:
		return value.MakeBool(cmp > 0), nil
	case OpGreaterEq:
		return value.MakeBool(cmp >= 0), nil
	}
	return value.MakeNothing(), errs.AssertionFailedf("unknown binary op %d", e.op)
}

func (e *EPrimBinary) Clone() Expression {
	return &EPrimBinary{op: e.op, lhs: e.lhs.Clone(), rhs: e.rhs.Clone()}
}

func (e *EPrimBinary) String() string {
	return fmt.Sprintf("(%s %s %s)", e.lhs, e.op, e.rhs)
}

// EPrimUnary is logical negation. Nothing negates to Nothing.
type EPrimUnary struct {
	operand Expression
}

func MakeNot(operand Expression) *EPrimUnary {
	return &EPrimUnary{operand: operand}
}

func (e *EPrimUnary) Prepare(ctx *CompileCtx) error {
	return e.operand.Prepare(ctx)
}

func (e *EPrimUnary) Eval() (value.Value, error) {
	v, err := e.operand.Eval()
	if err != nil || v.Tag() != value.TagBoolean {
		return value.MakeNothing(), err
	}
	return value.MakeBool(!v.Bool()), nil
}

func (e *EPrimUnary) Clone() Expression {
	return &EPrimUnary{operand: e.operand.Clone()}
}

func (e *EPrimUnary) String() string {
	return fmt.Sprintf("!%s", e.operand)
}

// EIf evaluates then when cond is true and els otherwise.
type EIf struct {
	cond, then, els Expression
}

func MakeIf(cond, then, els Expression) *EIf {
	return &EIf{cond: cond, then: then, els: els}
}

func (e *EIf) Prepare(ctx *CompileCtx) error {
	for _, sub := range []Expression{e.cond, e.then, e.els} {
		if err := sub.Prepare(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *EIf) Eval() (value.Value, error) {
	cond, err := e.cond.Eval()
	if err != nil {
		return value.MakeNothing(), err
	}
	if isTrue(cond) {
		return e.then.Eval()
	}
	return e.els.Eval()
}

func (e *EIf) Clone() Expression {
	return &EIf{cond: e.cond.Clone(), then: e.then.Clone(), els: e.els.Clone()}
}

func (e *EIf) String() string {
	return fmt.Sprintf("if (%s, %s, %s)", e.cond, e.then, e.els)
}

// EFail fails evaluation with the recoverable error registered for code.
type EFail struct {
	code errs.Code
	msg  string
}

func MakeFail(code errs.Code, msg string) *EFail {
	errs.Invariant(errs.Sentinel(code) != nil, "fail with unregistered code %d", code)
	return &EFail{code: code, msg: msg}
}

func (e *EFail) Prepare(*CompileCtx) error { return nil }

func (e *EFail) Eval() (value.Value, error) {
	return value.MakeNothing(), errors.Wrap(errs.Sentinel(e.code), e.msg)
}

func (e *EFail) Clone() Expression { return &EFail{code: e.code, msg: e.msg} }

func (e *EFail) String() string {
	return fmt.Sprintf("fail (%d, %q)", e.code, e.msg)
}

type builtin struct {
	arity int
	fn    func(args []value.Value) value.Value
}

var builtins = map[string]builtin{
	// isObject (v)
	"isObject": {arity: 1, fn: func(args []value.Value) value.Value {
		return value.MakeBool(args[0].Tag() == value.TagObject)
	}},
	// getField (obj, name)
	"getField": {arity: 2, fn: func(args []value.Value) value.Value {
		if args[0].Tag() != value.TagObject || args[1].Tag() != value.TagString {
			return value.MakeNothing()
		}
		return value.GetField(args[0].Object(), args[1].Str())
	}},
	// exists (v)
	"exists": {arity: 1, fn: func(args []value.Value) value.Value {
		return value.MakeBool(!args[0].IsNothing())
	}},
}

// EFunction calls a builtin.
type EFunction struct {
	name string
	args []Expression

	fn   builtin
	vals []value.Value
}

// MakeFunction builds a call to the builtin name. An unknown name or a wrong
// number of arguments is a bug in the caller.
func MakeFunction(name string, args ...Expression) *EFunction {
	fn, ok := builtins[name]
	errs.Invariant(ok, "unknown function %q", name)
	errs.Invariant(fn.arity == len(args), "function %q takes %d arguments, got %d", name, fn.arity, len(args))
	return &EFunction{name: name, args: args, fn: fn}
}

func (e *EFunction) Prepare(ctx *CompileCtx) error {
	for _, a := range e.args {
		if err := a.Prepare(ctx); err != nil {
			return err
		}
	}
	e.vals = make([]value.Value, len(e.args))
	return nil
}

func (e *EFunction) Eval() (value.Value, error) {
	for i, a := range e.args {
		v, err := a.Eval()
		if err != nil {
			return value.MakeNothing(), err
		}
		e.vals[i] = v
	}
	return e.fn.fn(e.vals), nil
}

func (e *EFunction) Clone() Expression {
	return &EFunction{name: e.name, args: cloneExprs(e.args), fn: e.fn}
}

func (e *EFunction) String() string {
	parts := make([]string, len(e.args))
	for i, a := range e.args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s (%s)", e.name, strings.Join(parts, ", "))
}
