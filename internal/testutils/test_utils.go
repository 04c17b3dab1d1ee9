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

package testutils

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Doc marshals d and fails the test on error.
func Doc(t testing.TB, d bson.D) bson.Raw {
	t.Helper()
	raw, err := bson.Marshal(d)
	require.NoError(t, err)
	return raw
}

// XDoc returns {_id: id, x: x}.
func XDoc(t testing.TB, id int, x int64) bson.Raw {
	return Doc(t, bson.D{{Key: "_id", Value: int64(id)}, {Key: "x", Value: x}})
}

// OplogEntry returns a no-op oplog entry at Timestamp(secs, 0).
func OplogEntry(t testing.TB, secs uint32) bson.Raw {
	return Doc(t, bson.D{
		{Key: "ts", Value: primitive.Timestamp{T: secs}},
		{Key: "op", Value: "i"},
		{Key: "o", Value: bson.D{{Key: "secs", Value: int64(secs)}}},
	})
}

// InitiatingSetEntry returns the entry written when a replica set is
// initiated.
func InitiatingSetEntry(t testing.TB, secs uint32) bson.Raw {
	return Doc(t, bson.D{
		{Key: "ts", Value: primitive.Timestamp{T: secs}},
		{Key: "op", Value: "n"},
		{Key: "o", Value: bson.D{{Key: "msg", Value: "initiating set"}}},
	})
}

func AssertErr(t *testing.T, err error, expectErr error) {
	if expectErr != nil {
		require.ErrorIs(t, err, expectErr)
	} else {
		require.NoError(t, err)
	}
}
