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
	"bytes"

	"github.com/tidwall/btree"
)

// Cursor walks a BTree in one direction. A cursor can be detached from its
// tree with Save and attached to a newer snapshot with Restore; the next call
// to Next then continues strictly after the last key it returned, whether or
// not that key still exists.
type Cursor struct {
	tree      *BTree
	direction ScanDirection

	iter    btree.IterG[*Item]
	hasIter bool

	positioned bool
	eof        bool

	// last is the key of the most recently returned item.
	last       []byte
	needReseek bool
}

func (c *Cursor) Direction() ScanDirection {
	return c.direction
}

func (c *Cursor) forward() bool {
	return c.direction == Forward
}

func (c *Cursor) iterator() *btree.IterG[*Item] {
	if !c.hasIter {
		c.iter = c.tree.iter()
		c.hasIter = true
	}
	return &c.iter
}

func (c *Cursor) release() {
	if c.hasIter {
		c.iter.Release()
		c.hasIter = false
	}
}

func (c *Cursor) emit(ok bool) (*Item, bool) {
	c.positioned = true
	if !ok {
		c.eof = true
		return nil, false
	}
	c.eof = false
	item := c.iterator().Item()
	c.last = item.Key
	return item, true
}

// Next advances the cursor. An unpositioned cursor starts at the first key in
// its direction.
func (c *Cursor) Next() (*Item, bool) {
	if c.tree == nil {
		return nil, false
	}
	if c.needReseek {
		return c.reseek()
	}
	if c.eof {
		return nil, false
	}
	it := c.iterator()
	if !c.positioned {
		if c.forward() {
			return c.emit(it.First())
		}
		return c.emit(it.Last())
	}
	if c.forward() {
		return c.emit(it.Next())
	}
	return c.emit(it.Prev())
}

// Seek positions a forward cursor on the first key >= key and a reverse
// cursor on the last key <= key.
func (c *Cursor) Seek(key []byte) (*Item, bool) {
	if c.tree == nil {
		return nil, false
	}
	c.needReseek = false
	it := c.iterator()
	ok := it.Seek(&Item{Key: key})
	if c.forward() {
		return c.emit(ok)
	}
	if !ok {
		return c.emit(it.Last())
	}
	if bytes.Compare(it.Item().Key, key) > 0 {
		return c.emit(it.Prev())
	}
	return c.emit(true)
}

// SeekExact positions the cursor on key. When key is absent the cursor is
// left exhausted.
func (c *Cursor) SeekExact(key []byte) (*Item, bool) {
	if c.tree == nil {
		return nil, false
	}
	c.needReseek = false
	it := c.iterator()
	if it.Seek(&Item{Key: key}) && bytes.Equal(it.Item().Key, key) {
		return c.emit(true)
	}
	c.positioned = true
	c.eof = true
	return nil, false
}

// SeekNear positions the cursor on the largest key <= key, or on the
// smallest key when every key is greater. It fails only on an empty tree.
func (c *Cursor) SeekNear(key []byte) (*Item, bool) {
	if c.tree == nil {
		return nil, false
	}
	c.needReseek = false
	it := c.iterator()
	found := it.Seek(&Item{Key: key})
	switch {
	case found && bytes.Equal(it.Item().Key, key):
		return c.emit(true)
	case found:
		if it.Prev() {
			return c.emit(true)
		}
		return c.emit(it.First())
	default:
		return c.emit(it.Last())
	}
}

// Save detaches the cursor from its tree, remembering its position.
func (c *Cursor) Save() {
	c.release()
	c.tree = nil
	if c.positioned {
		c.needReseek = true
	}
}

// Restore attaches a saved cursor to tree.
func (c *Cursor) Restore(tree *BTree) {
	c.release()
	c.tree = tree
}

// Rewind makes the next call to Next continue strictly after key, or start
// over when key is nil.
func (c *Cursor) Rewind(key []byte) {
	c.release()
	c.last = key
	c.positioned = key != nil
	c.eof = false
	c.needReseek = true
}

// Close releases the cursor. A closed cursor returns no more items.
func (c *Cursor) Close() {
	c.release()
	c.tree = nil
	c.needReseek = false
	c.eof = true
}

func (c *Cursor) reseek() (*Item, bool) {
	c.needReseek = false
	if c.last == nil {
		c.positioned = false
		c.eof = false
		return c.Next()
	}
	it := c.iterator()
	ok := it.Seek(&Item{Key: c.last})
	if c.forward() {
		if ok && bytes.Equal(it.Item().Key, c.last) {
			ok = it.Next()
		}
		return c.emit(ok)
	}
	if ok {
		return c.emit(it.Prev())
	}
	return c.emit(it.Last())
}
