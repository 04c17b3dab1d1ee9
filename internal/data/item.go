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

import "bytes"

// Item is one entry of a BTree. Items are immutable once inserted: an update
// replaces the item, so slices handed out by a cursor stay intact for the
// lifetime of the snapshot that produced them.
// Item is a key and its value as stored in a BTree.
type Item struct {
	Key   []byte
	Value []byte
}

func NewItem(key, value []byte) *Item {
	return &Item{
		Key:   key,
		Value: value,
	}
}

func lessItem(a, b *Item) bool {
	return bytes.Compare(a.Key, b.Key) < 0
}
