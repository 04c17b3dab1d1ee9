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
	"context"
	"sync"
)

// oplogVisibility tracks oplog entries that were assigned a timestamp but
// have not committed yet. Forward readers must not see past the oldest of
// them, or they could miss it when it commits after they moved on.
type oplogVisibility struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending map[RecordID]struct{}
}

func newOplogVisibility() *oplogVisibility {
	v := &oplogVisibility{pending: make(map[RecordID]struct{})}
	v.cond = sync.NewCond(&v.mu)
	return v
}

func (v *oplogVisibility) reserve(id RecordID) {
	v.mu.Lock()
	v.pending[id] = struct{}{}
	v.mu.Unlock()
}

func (v *oplogVisibility) release(id RecordID) {
	v.mu.Lock()
	delete(v.pending, id)
	v.cond.Broadcast()
	v.mu.Unlock()
}

// oldestPending returns the smallest uncommitted id.
func (v *oplogVisibility) oldestPending() (RecordID, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.oldestPendingLocked()
}

func (v *oplogVisibility) oldestPendingLocked() (RecordID, bool) {
	var (
		oldest RecordID
		found  bool
	)
	for id := range v.pending {
		if !found || id < oldest {
			oldest, found = id, true
		}
	}
	return oldest, found
}

func (v *oplogVisibility) newestPendingLocked() (RecordID, bool) {
	var (
		newest RecordID
		found  bool
	)
	for id := range v.pending {
		if !found || id > newest {
			newest, found = id, true
		}
	}
	return newest, found
}

// waitForAllEarlier blocks until every id pending at the time of the call is
// resolved.
func (v *oplogVisibility) waitForAllEarlier(opCtx *OperationContext) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	target, ok := v.newestPendingLocked()
	if !ok {
		return nil
	}

	stop := context.AfterFunc(opCtx.Context(), func() {
		v.mu.Lock()
		v.cond.Broadcast()
		v.mu.Unlock()
	})
	defer stop()

	for {
		oldest, ok := v.oldestPendingLocked()
		if !ok || oldest > target {
			return nil
		}
		if err := opCtx.CheckForInterrupt(); err != nil {
			return err
		}
		v.cond.Wait()
	}
}
