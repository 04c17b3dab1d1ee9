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
	"time"

	"github.com/nutsdb/scanexec/metrics"
)

// Options records params for creating DB object.
type Options struct {
	// NodeNum seeds the snowflake node that mints collection uuids and index
	// idents. It must be in [0, 1023].
	NodeNum int64

	// Logger receives the DB's log output. Nil means the process logger.
	Logger ILogger

	// MetricsSink observes scan activity. Nil means metrics.Noop.
	MetricsSink metrics.Sink

	// YieldIterations is the number of plan iterations between yields of
	// plans built with this DB's default yield policy. Zero disables
	// iteration-driven yields.
	YieldIterations int

	// YieldPeriod is the wall-clock interval after which a running plan is
	// asked to yield. Zero disables time-driven yields.
	YieldPeriod time.Duration
}

// DefaultOptions represents the default options.
var DefaultOptions = Options{
	NodeNum:         1,
	YieldIterations: 1000,
	YieldPeriod:     10 * time.Millisecond,
}

type Option func(*Options)

func WithNodeNum(num int64) Option {
	return func(opt *Options) {
		opt.NodeNum = num
	}
}

func WithLogger(logger ILogger) Option {
	return func(opt *Options) {
		opt.Logger = logger
	}
}

func WithMetricsSink(sink metrics.Sink) Option {
	return func(opt *Options) {
		opt.MetricsSink = sink
	}
}

func WithYieldIterations(n int) Option {
	return func(opt *Options) {
		opt.YieldIterations = n
	}
}

func WithYieldPeriod(d time.Duration) Option {
	return func(opt *Options) {
		opt.YieldPeriod = d
	}
}
