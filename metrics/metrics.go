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

// Package metrics defines the observer interface scan stages report to.
// Every DB carries its own Sink; there is no process-wide state.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type (
	// Sink observes scan activity. Implementations must be safe for
	// concurrent use by independent plans.
	Sink interface {
		// ObserveSeek is called each time a stage positions a cursor.
		ObserveSeek(stage string)
		// ObserveReads is called with the number of entries a stage read.
		ObserveReads(stage string, n int)
		// ObserveYield is called after a plan yielded and restored.
		ObserveYield(d time.Duration)
		// ObservePlanKilled is called when a plan fails re-validation.
		ObservePlanKilled(reason string)
	}

	noop struct{}
)

// Noop discards all observations.
var Noop Sink = noop{}

func (noop) ObserveSeek(string)         {}
func (noop) ObserveReads(string, int)   {}
func (noop) ObserveYield(time.Duration) {}
func (noop) ObservePlanKilled(string)   {}

// OrNoop returns s, or Noop when s is nil.
func OrNoop(s Sink) Sink {
	if s == nil {
		return Noop
	}
	return s
}

// Counters accumulates observations in memory.
type Counters struct {
	yields int64
	killed int64

	mu    sync.Mutex
	seeks map[string]int64
	reads map[string]int64
}

func NewCounters() *Counters {
	return &Counters{
		seeks: make(map[string]int64),
		reads: make(map[string]int64),
	}
}

func (c *Counters) ObserveSeek(stage string) {
	c.mu.Lock()
	c.seeks[stage]++
	c.mu.Unlock()
}

func (c *Counters) ObserveReads(stage string, n int) {
	c.mu.Lock()
	c.reads[stage] += int64(n)
	c.mu.Unlock()
}

func (c *Counters) ObserveYield(time.Duration) {
	atomic.AddInt64(&c.yields, 1)
}

func (c *Counters) ObservePlanKilled(string) {
	atomic.AddInt64(&c.killed, 1)
}

func (c *Counters) Seeks(stage string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seeks[stage]
}

func (c *Counters) Reads(stage string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads[stage]
}

func (c *Counters) Yields() int64 { return atomic.LoadInt64(&c.yields) }

func (c *Counters) PlansKilled() int64 { return atomic.LoadInt64(&c.killed) }
