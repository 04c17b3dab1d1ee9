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

import (
	"github.com/tidwall/btree"
)

// BTree is an ordered map from byte keys to byte values. Keys compare with
// bytes.Compare, so callers encode whatever ordering they need into the key.
//
// Copy returns a copy-on-write snapshot in constant time; writers keep
// mutating the original while readers walk the copy.
type BTree struct {
	btree *btree.BTreeG[*Item]
}

// NewBTree creates an empty BTree.
func NewBTree() *BTree {
	return &BTree{
		btree: btree.NewBTreeG(lessItem),
	}
}

// Find retrieves the item stored under key.
func (bt *BTree) Find(key []byte) (*Item, bool) {
	return bt.btree.Get(&Item{Key: key})
}

// Insert stores value under key and reports whether an item was replaced.
func (bt *BTree) Insert(key, value []byte) bool {
	_, replaced := bt.btree.Set(NewItem(key, value))
	return replaced
}

// Delete removes key and reports whether it was present.
func (bt *BTree) Delete(key []byte) bool {
	_, deleted := bt.btree.Delete(&Item{Key: key})
	return deleted
}

func (bt *BTree) Count() int {
	return bt.btree.Len()
}

func (bt *BTree) Min() (*Item, bool) {
	return bt.btree.Min()
}

func (bt *BTree) Max() (*Item, bool) {
	return bt.btree.Max()
}

// Copy returns a point-in-time snapshot of the tree.
func (bt *BTree) Copy() *BTree {
	return &BTree{btree: bt.btree.Copy()}
}

// Ascend calls fn for every item with key >= pivot, in key order, until fn
// returns false. A nil pivot starts at the smallest key.
func (bt *BTree) Ascend(pivot []byte, fn func(item *Item) bool) {
	if pivot == nil {
		bt.btree.Scan(fn)
		return
	}
	bt.btree.Ascend(&Item{Key: pivot}, fn)
}

// NewCursor returns an unpositioned cursor walking the tree in direction d.
func (bt *BTree) NewCursor(d ScanDirection) *Cursor {
	return &Cursor{
		tree:      bt,
		direction: d,
	}
}

func (bt *BTree) iter() btree.IterG[*Item] {
	return bt.btree.Iter()
}
