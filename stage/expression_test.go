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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/nutsdb/scanexec/errs"
	"github.com/nutsdb/scanexec/internal/testutils"
	"github.com/nutsdb/scanexec/value"
)

func eval(t *testing.T, ctx *CompileCtx, e Expression) value.Value {
	t.Helper()
	require.NoError(t, e.Prepare(ctx))
	v, err := e.Eval()
	require.NoError(t, err)
	return v
}

func TestExpression_Comparisons(t *testing.T) {
	ctx := NewCompileCtx(nil)
	for _, tc := range []struct {
		op       BinaryOp
		lhs, rhs value.Value
		want     value.Value
	}{
		{OpEq, value.MakeInt64(2), value.MakeDouble(2), value.MakeBool(true)},
		{OpNeq, value.MakeInt64(2), value.MakeInt64(3), value.MakeBool(true)},
		{OpLess, value.MakeString("a"), value.MakeString("b"), value.MakeBool(true)},
		{OpLessEq, value.MakeTimestamp(value.NewTimestamp(5, 1)), value.MakeTimestamp(value.NewTimestamp(5, 0)), value.MakeBool(false)},
		{OpGreater, value.MakeInt64(3), value.MakeInt64(2), value.MakeBool(true)},
		{OpGreaterEq, value.MakeRecordID(2), value.MakeRecordID(2), value.MakeBool(true)},
		{OpEq, value.MakeInt64(1), value.MakeString("1"), value.MakeNothing()},
		{OpLess, value.MakeNothing(), value.MakeInt64(1), value.MakeNothing()},
	} {
		e := MakeBinaryOp(tc.op, MakeConstant(tc.lhs), MakeConstant(tc.rhs))
		got := eval(t, ctx, e)
		assert.Equal(t, tc.want.Tag(), got.Tag(), e.String())
		assert.True(t, tc.want.IsNothing() || value.Equal(tc.want, got), e.String())
	}
}

func TestExpression_Logic(t *testing.T) {
	ctx := NewCompileCtx(nil)
	tru, fls, nothing := MakeConstant(value.MakeBool(true)), MakeConstant(value.MakeBool(false)), MakeConstant(value.MakeNothing())
	boom := MakeFail(errs.CodeKeyNotFound, "evaluated")

	assert.True(t, eval(t, ctx, MakeBinaryOp(OpLogicAnd, tru, tru)).Bool())
	assert.False(t, eval(t, ctx, MakeBinaryOp(OpLogicAnd, nothing, tru)).Bool())
	assert.False(t, eval(t, ctx, MakeBinaryOp(OpLogicAnd, fls, boom)).Bool())
	assert.True(t, eval(t, ctx, MakeBinaryOp(OpLogicOr, tru, boom)).Bool())
	assert.False(t, eval(t, ctx, MakeBinaryOp(OpLogicOr, fls, nothing)).Bool())

	assert.False(t, eval(t, ctx, MakeNot(tru)).Bool())
	assert.True(t, eval(t, ctx, MakeNot(nothing)).IsNothing())

	assert.Equal(t, int64(1), eval(t, ctx, MakeIf(tru, constInt(1), boom)).Int64())
	assert.Equal(t, int64(2), eval(t, ctx, MakeIf(nothing, boom, constInt(2))).Int64())
}

func TestExpression_Fail(t *testing.T) {
	e := MakeFail(errs.CodeOplogQueryMinTsMissing, "Specified minTs has already fallen off the oplog")
	require.NoError(t, e.Prepare(NewCompileCtx(nil)))
	_, err := e.Eval()
	require.ErrorIs(t, err, errs.ErrOplogQueryMinTsMissing)
	assert.Equal(t, errs.CodeOplogQueryMinTsMissing, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "fallen off the oplog")

	assert.Panics(t, func() { MakeFail(errs.CodeUnknown, "no sentinel") })
}

func TestExpression_Functions(t *testing.T) {
	slots := value.NewSlotIDGenerator()
	env := NewRuntimeEnvironment(slots)
	doc := testutils.Doc(t, bson.D{
		{Key: "op", Value: "n"},
		{Key: "o", Value: bson.D{{Key: "msg", Value: "initiating set"}}},
	})
	docSlot := env.RegisterSlot("doc", value.MakeObjectView(doc))
	ctx := NewCompileCtx(env)

	o := MakeFunction("getField", MakeVariable(docSlot), MakeConstant(value.MakeString("o")))
	assert.True(t, eval(t, ctx, MakeFunction("isObject", o)).Bool())
	assert.False(t, eval(t, ctx, MakeFunction("isObject", constInt(1))).Bool())

	msg := MakeFunction("getField", o.Clone(), MakeConstant(value.MakeString("msg")))
	assert.Equal(t, "initiating set", eval(t, ctx, msg).Str())

	missing := MakeFunction("getField", MakeVariable(docSlot), MakeConstant(value.MakeString("ts")))
	assert.False(t, eval(t, ctx, MakeFunction("exists", missing)).Bool())
	assert.True(t, eval(t, ctx, MakeFunction("getField", constInt(1), MakeConstant(value.MakeString("o")))).IsNothing())

	assert.Panics(t, func() { MakeFunction("nope") })
	assert.Panics(t, func() { MakeFunction("exists") })
}

func TestExpression_LocalBind(t *testing.T) {
	slots := value.NewSlotIDGenerator()
	frames := value.NewFrameIDGenerator()
	env := NewRuntimeEnvironment(slots)
	doc := testutils.Doc(t, bson.D{{Key: "a", Value: bson.D{{Key: "b", Value: int64(4)}}}})
	docSlot := env.RegisterSlot("doc", value.MakeObjectView(doc))

	frame := frames.Generate()
	a := MakeFunction("getField", MakeVariable(docSlot), MakeConstant(value.MakeString("a")))
	b := MakeFunction("getField", MakeLocalVariable(frame, 0), MakeConstant(value.MakeString("b")))
	e := MakeLocalBind(frame, MakeBinaryOp(OpEq, b, constInt(4)), a)

	ctx := NewCompileCtx(env)
	assert.True(t, eval(t, ctx, e).Bool())
	assert.Contains(t, e.String(), "let [")

	bad := MakeLocalVariable(frames.Generate(), 0)
	assert.True(t, errs.IsAssertionFailure(bad.Prepare(ctx)))
	assert.True(t, errs.IsAssertionFailure(MakeVariable(slots.Generate()).Prepare(ctx)))
}

func TestRuntimeEnvironment(t *testing.T) {
	slots := value.NewSlotIDGenerator()
	env := NewRuntimeEnvironment(slots)
	slot := env.RegisterSlot(ResumeRecordIDSlotName, value.MakeRecordID(7))

	got, ok := env.GetSlot(ResumeRecordIDSlotName)
	require.True(t, ok)
	assert.Equal(t, slot, got)

	acc, ok := env.GetAccessor(slot)
	require.True(t, ok)
	assert.Equal(t, int64(7), acc.GetViewOfValue().RecordID())

	env.ResetSlot(slot, value.MakeRecordID(9))
	assert.Equal(t, int64(9), acc.GetViewOfValue().RecordID())

	assert.Panics(t, func() { env.RegisterSlot(ResumeRecordIDSlotName, value.MakeNull()) })
	assert.Panics(t, func() { env.ResetSlot(slots.Generate(), value.MakeNull()) })
}
