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

import (
	"strings"

	"github.com/xujiajun/utils/strconv2"

	"github.com/nutsdb/scanexec/value"
)

type blockCommand int

const (
	cmdNone blockCommand = iota
	cmdIncIndent
	cmdDecIndent
	cmdNewLine
)

// Block is one token of a stage's debug output.
type Block struct {
	cmd  blockCommand
	text string
}

func textBlock(s string) Block {
	return Block{text: s}
}

var (
	incIndent = Block{cmd: cmdIncIndent}
	decIndent = Block{cmd: cmdDecIndent}
	newLine   = Block{cmd: cmdNewLine}
)

// debugPrintHead starts a stage's debug output: "[node] name".
func (b *stageBase) debugPrintHead() []Block {
	return []Block{textBlock("[" + strconv2.Int64ToStr(int64(b.nodeID)) + "] " + b.name)}
}

func addSlot(ret []Block, slot value.SlotID) []Block {
	if !slot.Valid() {
		return ret
	}
	return append(ret, textBlock(slot.String()))
}

func addSlots(ret []Block, slots value.SlotVector) []Block {
	return append(ret, textBlock(slots.String()))
}

// addChild indents child's output under ret.
func addChild(ret []Block, child PlanStage) []Block {
	ret = append(ret, incIndent)
	ret = append(ret, child.DebugPrint()...)
	return append(ret, decIndent)
}

// addLabeledChild indents child's output under a label line such as "left".
func addLabeledChild(ret []Block, label string, child PlanStage) []Block {
	ret = append(ret, incIndent, textBlock(label))
	ret = addChild(ret, child)
	return append(ret, decIndent)
}

// PrintBlocks renders blocks: tokens on a line are separated by one space
// and every indentation level is four spaces.
func PrintBlocks(blocks []Block) string {
	var (
		sb          strings.Builder
		indent      int
		startOfLine = true
	)
	breakLine := func() {
		if !startOfLine {
			sb.WriteByte('\n')
			startOfLine = true
		}
	}
	for _, b := range blocks {
		switch b.cmd {
		case cmdIncIndent:
			indent++
			breakLine()
		case cmdDecIndent:
			indent--
			breakLine()
		case cmdNewLine:
			breakLine()
		default:
			if startOfLine {
				sb.WriteString(strings.Repeat("    ", indent))
				startOfLine = false
			} else {
				sb.WriteByte(' ')
			}
			sb.WriteString(b.text)
		}
	}
	return sb.String()
}

// Explain renders the plan rooted at root.
func Explain(root PlanStage) string {
	return PrintBlocks(root.DebugPrint())
}
