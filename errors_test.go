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

package scanexec

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsCollectionNotFound(t *testing.T) {
	ts := []struct {
		err  error
		want bool
	}{
		{
			ErrCollectionNotFound,
			true,
		},
		{
			errors.Wrap(ErrCollectionNotFound, "foobar"),
			true,
		},
		{
			errors.New("foo bar"),
			false,
		},
	}

	for _, tc := range ts {
		got := IsCollectionNotFound(tc.err)

		assert.Equal(t, tc.want, got)
	}
}

func TestIsDBClosed(t *testing.T) {
	ts := []struct {
		err  error
		want bool
	}{
		{
			ErrDBClosed,
			true,
		},
		{
			errors.Wrap(ErrDBClosed, "test"),
			true,
		},
		{
			errors.New("test"),
			false,
		},
	}

	for _, tc := range ts {
		got := IsDBClosed(tc.err)
		assert.Equal(t, tc.want, got)
	}
}

func TestIsOplogOutOfOrder(t *testing.T) {
	assert.True(t, IsOplogOutOfOrder(errors.Wrapf(ErrOplogOutOfOrder, "ts %d", 3)))
	assert.False(t, IsOplogOutOfOrder(ErrRecordNotFound))
	assert.True(t, IsRecordNotFound(errors.WithStack(ErrRecordNotFound)))
	assert.True(t, IsIndexNotFound(errors.Wrap(ErrIndexNotFound, "idx")))
}
