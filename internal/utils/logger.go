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

	"go.uber.org/zap"
)

var (
	printLoggerInstance ILogger = defaultLogger()
)

type ILogger interface {
	// Printf formats according to a format specifier and writes to the logger.
	// Arguments are handled in the manner of fmt.Printf.
	Printf(string, ...any)
}

// DebugLogger is implemented by loggers that distinguish debug output.
type DebugLogger interface {
	Debugf(string, ...any)
}

type zapLogger struct {
	l *zap.SugaredLogger
}

func (zl *zapLogger) Printf(format string, args ...any) {
	zl.l.Infof(format, args...)
}

func (zl *zapLogger) Debugf(format string, args ...any) {
	zl.l.Debugf(format, args...)
}

// NewZapLogger adapts l to ILogger. Printf logs at info level.
func NewZapLogger(l *zap.Logger) ILogger {
	return &zapLogger{l: l.Sugar()}
}

func defaultLogger() ILogger {
	l, err := zap.NewProduction()
	if err != nil {
		return NewZapLogger(zap.NewNop())
	}
	return NewZapLogger(l)
}

func SetLogger(logger ILogger) {
	printLoggerInstance = logger
}

func GetLogger() ILogger {
	return printLoggerInstance
}

// Debugf logs through l's debug level when it has one. Loggers without a
// debug level receive the message with a prefix.
func Debugf(l ILogger, format string, args ...any) {
	if l == nil {
		return
	}
	if dl, ok := l.(DebugLogger); ok {
		dl.Debugf(format, args...)
		return
	}
	l.Printf("[debug] %s", fmt.Sprintf(format, args...))
}
