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

package stagebuilder

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/nutsdb/scanexec"
	"github.com/nutsdb/scanexec/keystring"
	"github.com/nutsdb/scanexec/value"
)

// IndexBounds is a range of index keys in scan order: a forward scan runs
// from Start up to End and a backward scan from Start down to End. A nil
// Start or End leaves that side open.
type IndexBounds struct {
	Start, End                   []value.Value
	StartInclusive, EndInclusive bool
}

// MakeIndexSeekBounds encodes b for entry and registers the keys in the
// runtime environment. The returned slots feed the SeekKeySlotLow and
// SeekKeySlotHigh of an index scan; high is value.NoSlot when End is open,
// and both are value.NoSlot for an unbounded scan.
func MakeIndexSeekBounds(state *State, entry *scanexec.IndexCatalogEntry, forward bool,
	b IndexBounds) (low, high value.SlotID, err error) {
	if b.Start == nil && b.End == nil {
		return value.NoSlot, value.NoSlot, nil
	}

	sdi := entry.SortedDataInterface()
	startKey, err := seekKey(sdi, b.Start, startDiscriminator(forward, b.StartInclusive || b.Start == nil))
	if err != nil {
		return value.NoSlot, value.NoSlot, errors.Wrapf(err, "start bound of %s", entry.Name())
	}
	var endKey keystring.Value
	if b.End != nil {
		endKey, err = seekKey(sdi, b.End, endDiscriminator(forward, b.EndInclusive))
		if err != nil {
			return value.NoSlot, value.NoSlot, errors.Wrapf(err, "end bound of %s", entry.Name())
		}
	}

	id := state.seekBounds
	state.seekBounds++
	low = state.Env.RegisterSlot(fmt.Sprintf("seekKeyLow%d", id), value.MakeKeyStringView(startKey))
	high = value.NoSlot
	if endKey != nil {
		high = state.Env.RegisterSlot(fmt.Sprintf("seekKeyHigh%d", id), value.MakeKeyStringView(endKey))
	}
	return low, high, nil
}

func seekKey(sdi *scanexec.SortedDataInterface, vals []value.Value, d keystring.Discriminator) (keystring.Value, error) {
	kb := keystring.NewBuilder(sdi.KeyStringVersion(), sdi.Ordering())
	for _, v := range vals {
		if err := kb.AppendValue(v); err != nil {
			return nil, err
		}
	}
	kb.AppendDiscriminator(d)
	return kb.Value(), nil
}

// startDiscriminator places a start key before every entry sharing its
// prefix when that prefix is included and after them otherwise, in scan
// order.
func startDiscriminator(forward, inclusive bool) keystring.Discriminator {
	if forward == inclusive {
		return keystring.ExclusiveBefore
	}
	return keystring.ExclusiveAfter
}

func endDiscriminator(forward, inclusive bool) keystring.Discriminator {
	if forward == inclusive {
		return keystring.ExclusiveAfter
	}
	return keystring.ExclusiveBefore
}
