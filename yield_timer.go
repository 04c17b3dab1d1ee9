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
	"sync"
	"sync/atomic"
	"time"

	"github.com/antlabs/timer"
)

// yieldTimer raises per-plan yield flags from a single shared timer.
type yieldTimer struct {
	t timer.Timer

	mu     sync.Mutex
	nodes  map[uint64]timer.TimeNoder
	nextID uint64
	closed bool
}

func newYieldTimer(t timer.Timer) *yieldTimer {
	return &yieldTimer{
		t:     t,
		nodes: make(map[uint64]timer.TimeNoder),
	}
}

func (yt *yieldTimer) run() {
	go yt.t.Run()
}

// YieldDeadline is a flag that becomes set once its period elapses. Arm
// starts a new period; Stop cancels the pending one.
type YieldDeadline struct {
	yt     *yieldTimer
	id     uint64
	period time.Duration
	due    atomic.Bool
}

// NewYieldDeadline returns an unarmed deadline that fires period after each
// Arm. It returns nil when period is not positive.
func (db *DB) NewYieldDeadline(period time.Duration) *YieldDeadline {
	if period <= 0 {
		return nil
	}
	yt := db.yields
	yt.mu.Lock()
	defer yt.mu.Unlock()
	yt.nextID++
	return &YieldDeadline{yt: yt, id: yt.nextID, period: period}
}

// Due reports whether the period elapsed since the last Arm.
func (d *YieldDeadline) Due() bool {
	return d.due.Load()
}

// Arm clears the flag and starts a new period.
func (d *YieldDeadline) Arm() {
	d.due.Store(false)
	d.yt.add(d.id, d.period, func() { d.due.Store(true) })
}

// Stop cancels the pending period.
func (d *YieldDeadline) Stop() {
	d.yt.del(d.id)
}

func (yt *yieldTimer) add(id uint64, period time.Duration, callback func()) {
	yt.mu.Lock()
	defer yt.mu.Unlock()
	if yt.closed {
		return
	}
	if node, ok := yt.nodes[id]; ok {
		node.Stop()
	}
	var node timer.TimeNoder
	node = yt.t.AfterFunc(period, func() {
		yt.mu.Lock()
		// a later add may have replaced this node
		if cur, ok := yt.nodes[id]; ok && cur == node {
			delete(yt.nodes, id)
		}
		yt.mu.Unlock()
		callback()
	})
	yt.nodes[id] = node
}

func (yt *yieldTimer) pending() int {
	yt.mu.Lock()
	defer yt.mu.Unlock()
	return len(yt.nodes)
}

func (yt *yieldTimer) del(id uint64) {
	yt.mu.Lock()
	defer yt.mu.Unlock()
	if node, ok := yt.nodes[id]; ok {
		node.Stop()
		delete(yt.nodes, id)
	}
}

func (yt *yieldTimer) close() {
	yt.mu.Lock()
	defer yt.mu.Unlock()
	for _, node := range yt.nodes {
		node.Stop()
	}
	yt.nodes = nil
	yt.closed = true
	yt.t.Stop()
}
