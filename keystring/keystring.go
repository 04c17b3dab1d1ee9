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

// Package keystring encodes index keys as byte strings whose bytes.Compare
// order matches the order of the values they encode.
//
// An encoded key is a sequence of components followed by an optional
// boundary. A stored index entry ends with the Inclusive marker and the
// record id it points at; a seek bound ends with ExclusiveBefore or
// ExclusiveAfter, which sort before or after every entry sharing its prefix.
package keystring

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"math"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/nutsdb/scanexec/value"
)

// Version identifies the encoding format.
type Version uint8

const V1 Version = 1

// Discriminator is the boundary marker that terminates a key.
type Discriminator byte

const (
	ExclusiveBefore Discriminator = 0x01
	Inclusive       Discriminator = 0x04
	ExclusiveAfter  Discriminator = 0xFE
)

// type bytes, ascending
const (
	typeMinKey    byte = 10
	typeNull      byte = 20
	typeNumber    byte = 30
	typeString    byte = 60
	typeFalse     byte = 110
	typeTrue      byte = 111
	typeTimestamp byte = 130
	typeMaxKey    byte = 240
)

const (
	stringEnd    byte = 0x00
	stringEscape byte = 0xFF

	recordIDSize = 8
)

// ErrUnsupportedType is returned for values that have no key encoding.
var ErrUnsupportedType = errors.New("value type cannot be encoded in a key")

// Ordering records which key components sort descending. Bit i is set when
// component i is descending.
type Ordering uint32

// MakeOrdering builds an Ordering from per-component directions.
func MakeOrdering(descending ...bool) Ordering {
	var o Ordering
	for i, d := range descending {
		if d {
			o |= 1 << uint(i)
		}
	}
	return o
}

func (o Ordering) Descending(i int) bool {
	return o&(1<<uint(i)) != 0
}

// Value is an encoded key.
type Value []byte

func (v Value) Compare(other Value) int {
	return bytes.Compare(v, other)
}

func (v Value) Clone() Value {
	return append(Value(nil), v...)
}

func (v Value) String() string {
	return hex.EncodeToString(v)
}

// RecordID returns the record id suffix of a stored index entry.
func (v Value) RecordID() (int64, bool) {
	if len(v) < recordIDSize+1 || Discriminator(v[len(v)-recordIDSize-1]) != Inclusive {
		return 0, false
	}
	return decodeInt64(v[len(v)-recordIDSize:]), true
}

// Builder appends components to a key.
type Builder struct {
	version Version
	ord     Ordering
	buf     []byte
	n       int
}

func NewBuilder(version Version, ord Ordering) *Builder {
	return &Builder{version: version, ord: ord}
}

// AppendValue appends v as the next component.
func (b *Builder) AppendValue(v value.Value) error {
	start := len(b.buf)
	switch v.Tag() {
	case value.TagMinKey:
		b.buf = append(b.buf, typeMinKey)
	case value.TagNull, value.TagNothing:
		b.buf = append(b.buf, typeNull)
	case value.TagMaxKey:
		b.buf = append(b.buf, typeMaxKey)
	case value.TagBoolean:
		if v.Bool() {
			b.buf = append(b.buf, typeTrue)
		} else {
			b.buf = append(b.buf, typeFalse)
		}
	case value.TagNumberInt64:
		b.buf = appendInt64(append(b.buf, typeNumber), v.Int64())
	case value.TagNumberDouble:
		f := v.Double()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return errors.Wrapf(ErrUnsupportedType, "non-integral double %v", f)
		}
		b.buf = appendInt64(append(b.buf, typeNumber), int64(f))
	case value.TagString:
		b.buf = append(b.buf, typeString)
		for _, c := range v.Bytes() {
			b.buf = append(b.buf, c)
			if c == stringEnd {
				b.buf = append(b.buf, stringEscape)
			}
		}
		b.buf = append(b.buf, stringEnd)
	case value.TagTimestamp:
		b.buf = binary.BigEndian.AppendUint64(append(b.buf, typeTimestamp), uint64(v.Timestamp()))
	default:
		return errors.Wrapf(ErrUnsupportedType, "%s", v.Tag())
	}
	if b.ord.Descending(b.n) {
		for i := start; i < len(b.buf); i++ {
			b.buf[i] ^= 0xFF
		}
	}
	b.n++
	return nil
}

// AppendRecordID terminates a stored entry with the record it points at.
func (b *Builder) AppendRecordID(id int64) {
	b.buf = appendInt64(append(b.buf, byte(Inclusive)), id)
}

// AppendDiscriminator terminates a seek bound.
func (b *Builder) AppendDiscriminator(d Discriminator) {
	b.buf = append(b.buf, byte(d))
}

// Value returns a copy of the key built so far.
func (b *Builder) Value() Value {
	return Value(b.buf).Clone()
}

func (b *Builder) Reset() {
	b.buf = b.buf[:0]
	b.n = 0
}

func (b *Builder) Version() Version { return b.version }

// Components returns the number of components appended.
func (b *Builder) Components() int { return b.n }

func appendInt64(dst []byte, i int64) []byte {
	return binary.BigEndian.AppendUint64(dst, uint64(i)^(1<<63))
}

func decodeInt64(src []byte) int64 {
	return int64(binary.BigEndian.Uint64(src) ^ (1 << 63))
}

// MaskCount returns the number of components selected by mask.
func MaskCount(mask uint64) int {
	return bits.OnesCount64(mask)
}
