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

package errs

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	for code, sentinel := range codeToSentinel {
		wrapped := errors.Wrapf(sentinel, "scan of %s", "c")
		assert.Equal(t, code, CodeOf(wrapped), "%v", code)
		assert.Equal(t, sentinel, Sentinel(code))
		assert.Equal(t, sentinel.Error(), code.String())
	}

	assert.Equal(t, CodeUnknown, CodeOf(errors.New("other")))
	assert.Equal(t, CodeUnknown, CodeOf(nil))
	assert.Nil(t, Sentinel(CodeUnknown))
	assert.Equal(t, "unknown", CodeUnknown.String())
}

func TestAssertionFailure(t *testing.T) {
	err := AssertionFailedf("slot %d registered twice", 3)
	require.Error(t, err)
	assert.True(t, IsAssertionFailure(err))
	assert.True(t, IsAssertionFailure(errors.Wrap(err, "prepare")))
	assert.Contains(t, err.Error(), "slot 3 registered twice")
	assert.Equal(t, CodeUnknown, CodeOf(err))

	assert.False(t, IsAssertionFailure(ErrKeyNotFound))
}

func TestInvariant(t *testing.T) {
	assert.NotPanics(t, func() { Invariant(true, "unused") })

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, IsAssertionFailure(err))
		assert.Contains(t, err.Error(), "high bound without low bound")
	}()
	Invariant(false, "high bound without %s", "low bound")
}
