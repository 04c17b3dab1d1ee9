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

package data

// ScanDirection defines the iteration direction.
type ScanDirection int

const (
	Forward ScanDirection = iota
	Reverse
)

// DirectionOf maps a forward flag to a ScanDirection.
func DirectionOf(forward bool) ScanDirection {
	if forward {
		return Forward
	}
	return Reverse
}

func (d ScanDirection) String() string {
	if d == Forward {
		return "forward"
	}
	return "reverse"
}
