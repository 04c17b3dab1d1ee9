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

package keystring

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/nutsdb/scanexec/value"
)

// ErrCorrupt is returned when a key cannot be decoded.
var ErrCorrupt = errors.New("corrupt key")

// Buffer holds decoded string payloads. Views returned by ReadValues alias
// the buffer and stay valid until the next call that reuses it.
type Buffer struct {
	data []byte
}

func (b *Buffer) reset(capacity int) {
	if cap(b.data) < capacity {
		b.data = make([]byte, 0, capacity)
	}
	b.data = b.data[:0]
}

func isBoundary(c byte) bool {
	switch Discriminator(c) {
	case ExclusiveBefore, Inclusive, ExclusiveAfter:
		return true
	}
	return false
}

// ReadValues decodes the components of ks selected by mask into dst, in
// component order. len(dst) must equal MaskCount(mask). Integer, boolean and
// timestamp components are copied; strings are views into buf.
func ReadValues(ks Value, ord Ordering, mask uint64, buf *Buffer, dst []value.Value) error {
	if want := MaskCount(mask); len(dst) != want {
		return errors.Errorf("keystring: %d destinations for %d selected components", len(dst), want)
	}
	buf.reset(len(ks))

	pos, out := 0, 0
	for i := 0; out < len(dst); i++ {
		if pos >= len(ks) || isBoundary(ks[pos]) {
			return errors.Wrapf(ErrCorrupt, "component %d selected but key has %d", i, i)
		}
		var flip byte
		if ord.Descending(i) {
			flip = 0xFF
		}
		v, n, err := readComponent(ks[pos:], flip, buf)
		if err != nil {
			return errors.Wrapf(err, "component %d", i)
		}
		pos += n
		if i < 64 && mask&(1<<uint(i)) != 0 {
			dst[out] = v
			out++
		}
	}
	return nil
}

func readComponent(src []byte, flip byte, buf *Buffer) (value.Value, int, error) {
	switch src[0] ^ flip {
	case typeMinKey:
		return value.MakeMinKey(), 1, nil
	case typeNull:
		return value.MakeNull(), 1, nil
	case typeMaxKey:
		return value.MakeMaxKey(), 1, nil
	case typeFalse:
		return value.MakeBool(false), 1, nil
	case typeTrue:
		return value.MakeBool(true), 1, nil
	case typeNumber:
		u, err := readUint64(src[1:], flip)
		if err != nil {
			return value.Value{}, 0, err
		}
		return value.MakeInt64(int64(u ^ (1 << 63))), 1 + recordIDSize, nil
	case typeTimestamp:
		u, err := readUint64(src[1:], flip)
		if err != nil {
			return value.Value{}, 0, err
		}
		return value.MakeTimestamp(value.Timestamp(u)), 1 + recordIDSize, nil
	case typeString:
		start := len(buf.data)
		for i := 1; i < len(src); i++ {
			c := src[i] ^ flip
			if c != stringEnd {
				buf.data = append(buf.data, c)
				continue
			}
			if i+1 < len(src) && src[i+1]^flip == stringEscape {
				buf.data = append(buf.data, stringEnd)
				i++
				continue
			}
			return value.MakeStringView(buf.data[start:len(buf.data):len(buf.data)]), i + 1, nil
		}
		return value.Value{}, 0, errors.Wrap(ErrCorrupt, "unterminated string")
	default:
		return value.Value{}, 0, errors.Wrapf(ErrCorrupt, "unknown type byte %#x", src[0])
	}
}

func readUint64(src []byte, flip byte) (uint64, error) {
	if len(src) < recordIDSize {
		return 0, errors.Wrap(ErrCorrupt, "short number")
	}
	var b [recordIDSize]byte
	for i := range b {
		b[i] = src[i] ^ flip
	}
	return binary.BigEndian.Uint64(b[:]), nil
}
