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

package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type printLogger struct {
	lines []string
}

func (l *printLogger) Printf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestDebugf(t *testing.T) {
	t.Run("debug level when supported", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		Debugf(NewZapLogger(zap.New(core)), "seek to %d", 7)

		entries := logs.All()
		if assert.Len(t, entries, 1) {
			assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
			assert.Equal(t, "seek to 7", entries[0].Message)
		}
	})

	t.Run("prefixed otherwise", func(t *testing.T) {
		l := &printLogger{}
		Debugf(l, "seek to %d", 7)
		assert.Equal(t, []string{"[debug] seek to 7"}, l.lines)
	})

	t.Run("nil logger", func(t *testing.T) {
		assert.NotPanics(t, func() { Debugf(nil, "dropped") })
	})
}

func TestZapLogger_Printf(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewZapLogger(zap.New(core))
	l.Printf("built index %s", "x_1")
	Debugf(l, "not recorded")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		assert.Equal(t, "built index x_1", entries[0].Message)
	}
}
