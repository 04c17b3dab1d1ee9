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

package stagebuilder

import (
	"fmt"
	"strings"

	"github.com/nutsdb/scanexec/errs"
	"github.com/nutsdb/scanexec/stage"
	"github.com/nutsdb/scanexec/value"
)

// oplogTsField is the field of an oplog entry holding its timestamp.
const oplogTsField = "ts"

// MatchExpression is a predicate over the documents of a collection scan.
type MatchExpression interface {
	fmt.Stringer
	generate(state *State, slots PlanStageSlots) stage.Expression
}

// CompareOp is the operator of a Comparison.
type CompareOp int

const (
	CompareEq CompareOp = iota
	CompareLt
	CompareLte
	CompareGt
	CompareGte
)

var compareOps = [...]struct {
	name string
	op   stage.BinaryOp
}{
	CompareEq:  {"$eq", stage.OpEq},
	CompareLt:  {"$lt", stage.OpLess},
	CompareLte: {"$lte", stage.OpLessEq},
	CompareGt:  {"$gt", stage.OpGreater},
	CompareGte: {"$gte", stage.OpGreaterEq},
}

// Comparison matches documents whose field at Path compares to Value as Op
// says. A missing field or one of an incomparable type never matches.
type Comparison struct {
	Path  string
	Op    CompareOp
	Value value.Value
}

func Eq(path string, v value.Value) *Comparison {
	return &Comparison{Path: path, Op: CompareEq, Value: v}
}

func Lt(path string, v value.Value) *Comparison {
	return &Comparison{Path: path, Op: CompareLt, Value: v}
}

func Lte(path string, v value.Value) *Comparison {
	return &Comparison{Path: path, Op: CompareLte, Value: v}
}

func Gt(path string, v value.Value) *Comparison {
	return &Comparison{Path: path, Op: CompareGt, Value: v}
}

func Gte(path string, v value.Value) *Comparison {
	return &Comparison{Path: path, Op: CompareGte, Value: v}
}

func (c *Comparison) String() string {
	return fmt.Sprintf("{%s: {%s: %s}}", c.Path, compareOps[c.Op].name, c.Value)
}

func (c *Comparison) generate(state *State, slots PlanStageSlots) stage.Expression {
	rhs := stage.MakeConstant(c.Value)
	return fieldPredicate(state, slots, c.Path, func(field stage.Expression) stage.Expression {
		return stage.MakeBinaryOp(compareOps[c.Op].op, field, rhs)
	})
}

// Exists matches documents that have a field at Path.
type Exists struct {
	Path string
}

func (e *Exists) String() string {
	return fmt.Sprintf("{%s: {$exists: true}}", e.Path)
}

func (e *Exists) generate(state *State, slots PlanStageSlots) stage.Expression {
	return fieldPredicate(state, slots, e.Path, func(field stage.Expression) stage.Expression {
		return stage.MakeFunction("exists", field)
	})
}

// And matches when every child matches. An empty And matches everything.
type And struct {
	Children []MatchExpression
}

func (a *And) String() string {
	return "{$and: [" + joinExprs(a.Children) + "]}"
}

func (a *And) generate(state *State, slots PlanStageSlots) stage.Expression {
	return foldLogic(state, slots, stage.OpLogicAnd, true, a.Children)
}

// Or matches when any child matches. An empty Or matches nothing.
type Or struct {
	Children []MatchExpression
}

func (o *Or) String() string {
	return "{$or: [" + joinExprs(o.Children) + "]}"
}

func (o *Or) generate(state *State, slots PlanStageSlots) stage.Expression {
	return foldLogic(state, slots, stage.OpLogicOr, false, o.Children)
}

// Not matches when Child does not.
type Not struct {
	Child MatchExpression
}

func (n *Not) String() string {
	return "{$nor: [" + n.Child.String() + "]}"
}

func (n *Not) generate(state *State, slots PlanStageSlots) stage.Expression {
	return stage.MakeIf(n.Child.generate(state, slots),
		stage.MakeConstant(value.MakeBool(false)),
		stage.MakeConstant(value.MakeBool(true)))
}

func joinExprs(exprs []MatchExpression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func foldLogic(state *State, slots PlanStageSlots, op stage.BinaryOp, empty bool,
	children []MatchExpression) stage.Expression {
	if len(children) == 0 {
		return stage.MakeConstant(value.MakeBool(empty))
	}
	expr := children[0].generate(state, slots)
	for _, c := range children[1:] {
		expr = stage.MakeBinaryOp(op, expr, c.generate(state, slots))
	}
	return expr
}

// fieldPredicate applies leaf to the field at path. The ts field of an oplog
// entry is read from the timestamp slot when the scan publishes one; other
// paths walk the result document one component at a time, binding every
// intermediate object to a fresh frame.
func fieldPredicate(state *State, slots PlanStageSlots, path string,
	leaf func(stage.Expression) stage.Expression) stage.Expression {
	if path == oplogTsField && slots.OplogTs.Valid() {
		return leaf(stage.MakeVariable(slots.OplogTs))
	}
	errs.Invariant(path != "", "empty field path")
	return walkPath(state, stage.MakeVariable(slots.Result), strings.Split(path, "."), leaf)
}

func walkPath(state *State, input stage.Expression, parts []string,
	leaf func(stage.Expression) stage.Expression) stage.Expression {
	field := stage.MakeFunction("getField", input, stage.MakeConstant(value.MakeString(parts[0])))
	if len(parts) == 1 {
		return leaf(field)
	}
	frame := state.FrameIDGenerator.Generate()
	return stage.MakeLocalBind(frame, walkPath(state, stage.MakeLocalVariable(frame, 0), parts[1:], leaf), field)
}

// GenerateFilter wraps child in a filter stage evaluating filter against the
// slots child publishes.
func GenerateFilter(state *State, filter MatchExpression, child stage.PlanStage, slots PlanStageSlots,
	nodeID stage.PlanNodeID) stage.PlanStage {
	errs.Invariant(filter != nil, "GenerateFilter without a filter")
	return stage.NewFilterStage(child, filter.generate(state, slots), nodeID)
}
