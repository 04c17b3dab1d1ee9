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

// Package value defines the typed values that flow between plan stages, the
// slots that carry them and the accessors through which stages read them.
package value

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson"
)

// TypeTags identifies the type of a Value.
type TypeTags uint8

const (
	TagNothing TypeTags = iota
	TagNull
	TagMinKey
	TagMaxKey
	TagBoolean
	TagNumberInt64
	TagNumberDouble
	TagString
	TagTimestamp
	TagRecordID
	TagKeyString
	TagObject
	TagArray
)

var tagNames = [...]string{
	TagNothing:      "Nothing",
	TagNull:         "Null",
	TagMinKey:       "MinKey",
	TagMaxKey:       "MaxKey",
	TagBoolean:      "Boolean",
	TagNumberInt64:  "NumberInt64",
	TagNumberDouble: "NumberDouble",
	TagString:       "String",
	TagTimestamp:    "Timestamp",
	TagRecordID:     "RecordId",
	TagKeyString:    "ksValue",
	TagObject:       "Object",
	TagArray:        "Array",
}

func (t TypeTags) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("TypeTags(%d)", uint8(t))
}

// Value is a tagged scalar or a reference to encoded bytes. Values built by
// the Make*View constructors alias memory owned by somebody else; Copy
// returns a Value that owns its bytes.
type Value struct {
	tag  TypeTags
	num  uint64
	data []byte
}

func MakeNothing() Value { return Value{tag: TagNothing} }
func MakeNull() Value    { return Value{tag: TagNull} }
func MakeMinKey() Value  { return Value{tag: TagMinKey} }
func MakeMaxKey() Value  { return Value{tag: TagMaxKey} }

func MakeBool(b bool) Value {
	v := Value{tag: TagBoolean}
	if b {
		v.num = 1
	}
	return v
}

func MakeInt64(i int64) Value {
	return Value{tag: TagNumberInt64, num: uint64(i)}
}

func MakeDouble(f float64) Value {
	return Value{tag: TagNumberDouble, num: math.Float64bits(f)}
}

func MakeTimestamp(ts Timestamp) Value {
	return Value{tag: TagTimestamp, num: uint64(ts)}
}

func MakeRecordID(id int64) Value {
	return Value{tag: TagRecordID, num: uint64(id)}
}

// MakeString returns an owned string value.
func MakeString(s string) Value {
	return Value{tag: TagString, data: []byte(s)}
}

// MakeStringView returns a string value aliasing b.
func MakeStringView(b []byte) Value {
	return Value{tag: TagString, data: b}
}

// MakeKeyStringView returns an encoded-key value aliasing ks.
func MakeKeyStringView(ks []byte) Value {
	return Value{tag: TagKeyString, data: ks}
}

// MakeObjectView returns a document value aliasing doc.
func MakeObjectView(doc bson.Raw) Value {
	return Value{tag: TagObject, data: doc}
}

// MakeArrayView returns an array value aliasing arr.
func MakeArrayView(arr bson.Raw) Value {
	return Value{tag: TagArray, data: arr}
}

func (v Value) Tag() TypeTags { return v.tag }

func (v Value) IsNothing() bool { return v.tag == TagNothing }

func (v Value) Bool() bool { return v.num != 0 }

func (v Value) Int64() int64 { return int64(v.num) }

func (v Value) Double() float64 { return math.Float64frombits(v.num) }

func (v Value) Timestamp() Timestamp { return Timestamp(v.num) }

func (v Value) RecordID() int64 { return int64(v.num) }

// Bytes returns the encoded payload of a string, key, object or array value.
func (v Value) Bytes() []byte { return v.data }

func (v Value) Str() string { return string(v.data) }

func (v Value) Object() bson.Raw { return bson.Raw(v.data) }

// IsNumber reports whether v holds an int64 or a double.
func (v Value) IsNumber() bool {
	return v.tag == TagNumberInt64 || v.tag == TagNumberDouble
}

// Copy returns a value that owns its bytes.
func (v Value) Copy() Value {
	if v.data == nil {
		return v
	}
	owned := make([]byte, len(v.data))
	copy(owned, v.data)
	v.data = owned
	return v
}

// Compare orders two values of comparable types. The second result is false
// when the values cannot be compared, e.g. a string against a number.
func Compare(a, b Value) (int, bool) {
	if a.IsNumber() && b.IsNumber() {
		return compareNumbers(a, b), true
	}
	if a.tag != b.tag {
		return 0, false
	}
	switch a.tag {
	case TagNull, TagMinKey, TagMaxKey:
		return 0, true
	case TagBoolean, TagTimestamp:
		return compareUint64(a.num, b.num), true
	case TagRecordID:
		return compareInt64(a.Int64(), b.Int64()), true
	case TagString, TagKeyString, TagObject, TagArray:
		return bytes.Compare(a.data, b.data), true
	default:
		return 0, false
	}
}

// Equal reports whether a and b are comparable and compare equal.
func Equal(a, b Value) bool {
	c, ok := Compare(a, b)
	return ok && c == 0
}

func compareNumbers(a, b Value) int {
	if a.tag == TagNumberInt64 && b.tag == TagNumberInt64 {
		return compareInt64(a.Int64(), b.Int64())
	}
	af, bf := toFloat(a), toFloat(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func toFloat(v Value) float64 {
	if v.tag == TagNumberInt64 {
		return float64(v.Int64())
	}
	return v.Double()
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (v Value) String() string {
	switch v.tag {
	case TagNothing:
		return "Nothing"
	case TagNull:
		return "null"
	case TagMinKey:
		return "minKey"
	case TagMaxKey:
		return "maxKey"
	case TagBoolean:
		if v.Bool() {
			return "true"
		}
		return "false"
	case TagNumberInt64:
		return fmt.Sprintf("%d", v.Int64())
	case TagNumberDouble:
		return fmt.Sprintf("%g", v.Double())
	case TagString:
		return fmt.Sprintf("%q", v.data)
	case TagTimestamp:
		return v.Timestamp().String()
	case TagRecordID:
		return fmt.Sprintf("RecordId(%d)", v.Int64())
	case TagKeyString:
		return "KS(" + hex.EncodeToString(v.data) + ")"
	case TagObject, TagArray:
		return bson.Raw(v.data).String()
	default:
		return v.tag.String()
	}
}
