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

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// FromBSON returns a view of rv. String, document and array payloads alias
// the bytes of rv; every other type is copied into the Value. Types without a
// Value representation map to Nothing.
func FromBSON(rv bson.RawValue) Value {
	switch rv.Type {
	case bsontype.Null, bsontype.Undefined:
		return MakeNull()
	case bsontype.MinKey:
		return MakeMinKey()
	case bsontype.MaxKey:
		return MakeMaxKey()
	case bsontype.Boolean:
		if b, ok := rv.BooleanOK(); ok {
			return MakeBool(b)
		}
	case bsontype.Int32:
		if i, ok := rv.Int32OK(); ok {
			return MakeInt64(int64(i))
		}
	case bsontype.Int64:
		if i, ok := rv.Int64OK(); ok {
			return MakeInt64(i)
		}
	case bsontype.Double:
		if f, ok := rv.DoubleOK(); ok {
			return MakeDouble(f)
		}
	case bsontype.String:
		// int32 length, bytes, trailing NUL
		if len(rv.Value) >= 5 {
			return MakeStringView(rv.Value[4 : len(rv.Value)-1])
		}
	case bsontype.Timestamp:
		if t, i, ok := rv.TimestampOK(); ok {
			return MakeTimestamp(NewTimestamp(t, i))
		}
	case bsontype.EmbeddedDocument:
		if doc, ok := rv.DocumentOK(); ok {
			return MakeObjectView(doc)
		}
	case bsontype.Array:
		if arr, ok := rv.ArrayOK(); ok {
			return MakeArrayView(arr)
		}
	}
	return MakeNothing()
}

// GetField returns a view of the top-level field name of doc, or Nothing when
// the field is absent or doc is malformed.
func GetField(doc bson.Raw, name string) Value {
	rv, err := doc.LookupErr(name)
	if err != nil {
		return MakeNothing()
	}
	return FromBSON(rv)
}

// GetPath resolves a dotted path through embedded documents.
func GetPath(doc bson.Raw, path string) Value {
	rv, err := doc.LookupErr(strings.Split(path, ".")...)
	if err != nil {
		return MakeNothing()
	}
	return FromBSON(rv)
}
