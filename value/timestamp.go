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
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Timestamp packs seconds in the high 32 bits and an increment in the low 32
// bits, so that timestamps order as unsigned integers.
type Timestamp uint64

func NewTimestamp(secs, inc uint32) Timestamp {
	return Timestamp(uint64(secs)<<32 | uint64(inc))
}

// TimestampFromPrimitive converts a driver timestamp.
func TimestampFromPrimitive(ts primitive.Timestamp) Timestamp {
	return NewTimestamp(ts.T, ts.I)
}

func (ts Timestamp) Secs() uint32 { return uint32(ts >> 32) }

func (ts Timestamp) Inc() uint32 { return uint32(ts) }

func (ts Timestamp) Primitive() primitive.Timestamp {
	return primitive.Timestamp{T: ts.Secs(), I: ts.Inc()}
}

func (ts Timestamp) String() string {
	return fmt.Sprintf("Timestamp(%d, %d)", ts.Secs(), ts.Inc())
}
