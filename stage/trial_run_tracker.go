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

package stage

// TrialRunTracker counts the reads of a plan during a trial period. Once
// the quota is reached, stages stop reporting to it.
type TrialRunTracker struct {
	maxNumReads int64
	numReads    int64
	done        bool
}

func NewTrialRunTracker(maxNumReads int64) *TrialRunTracker {
	return &TrialRunTracker{maxNumReads: maxNumReads}
}

// TrackProgress adds n reads and reports whether the trial period is over.
func (t *TrialRunTracker) TrackProgress(n int64) bool {
	if t.done {
		return true
	}
	t.numReads += n
	t.done = t.numReads >= t.maxNumReads
	return t.done
}

func (t *TrialRunTracker) NumReads() int64 {
	return t.numReads
}

func (t *TrialRunTracker) IsDone() bool {
	return t.done
}
