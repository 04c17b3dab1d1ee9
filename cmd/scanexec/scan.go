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

package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nutsdb/scanexec"
	"github.com/nutsdb/scanexec/stage"
	"github.com/nutsdb/scanexec/stagebuilder"
	"github.com/nutsdb/scanexec/value"
)

func newCollScanCmd(g *globalFlags) *cobra.Command {
	var (
		docs        int
		reverse     bool
		resumeAfter int64
		gt          int64
	)
	cmd := &cobra.Command{
		Use:   "collscan",
		Short: "scan the demo collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(g)
			if err != nil {
				return err
			}
			defer s.close()

			coll, err := s.createDemo(docs)
			if err != nil {
				return err
			}

			csn := &stagebuilder.CollectionScanNode{NodeID: 1, Direction: stagebuilder.Forward}
			if reverse {
				csn.Direction = stagebuilder.Backward
			}
			if cmd.Flags().Changed("resume-after") {
				id := scanexec.RecordID(resumeAfter)
				csn.ResumeAfterRecordID = &id
			}
			if cmd.Flags().Changed("gt") {
				csn.Filter = stagebuilder.Gt("x", value.MakeInt64(gt))
			}

			root, slots := stagebuilder.GenerateCollScan(s.opCtx, coll, csn, s.state, s.db.CollectionLockCallback())
			return s.run(cmd.OutOrStdout(), root, []column{
				{name: "recordId", slot: slots.RecordID, format: formatValue},
				{name: "document", slot: slots.Result, format: formatValue},
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&docs, "docs", 10, "number of demo documents")
	flags.BoolVar(&reverse, "reverse", false, "scan in descending record id order")
	flags.Int64Var(&resumeAfter, "resume-after", 0, "resume after this record id")
	flags.Int64Var(&gt, "gt", 0, "only return documents with x greater than this")
	return cmd
}

func newOplogCmd(g *globalFlags) *cobra.Command {
	var (
		entries uint32
		step    uint32
		minSecs uint32
		maxSecs uint32
		minTs   uint32
		track   bool
		stop    bool
		wait    bool
		reverse bool
	)
	cmd := &cobra.Command{
		Use:   "oplog",
		Short: "scan a demo oplog",
		Long: `
Scans an oplog whose entries are step seconds apart. --min and --max bound
the scan by timestamp seconds and make the builder seek directly to the
first entry it needs.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			bounded := flags.Changed("min") || flags.Changed("max")
			switch {
			case stop && !flags.Changed("min"):
				return errors.New("--stop-after-first-match needs --min")
			case stop && flags.Changed("max"):
				return errors.New("--stop-after-first-match cannot be combined with --max")
			case stop && flags.Changed("min-ts"):
				return errors.New("--stop-after-first-match cannot be combined with --min-ts")
			case flags.Changed("min-ts") && !(track && bounded):
				return errors.New("--min-ts needs --track and one of --min or --max")
			case reverse && bounded:
				return errors.New("--min and --max scan forward only")
			}

			s, err := openSession(g)
			if err != nil {
				return err
			}
			defer s.close()

			coll, err := s.createOplog(int(entries), step)
			if err != nil {
				return err
			}

			csn := &stagebuilder.CollectionScanNode{
				NodeID:                          1,
				Direction:                       stagebuilder.Forward,
				ShouldTrackLatestOplogTimestamp: track,
				ShouldWaitForOplogVisibility:    wait,
			}
			if reverse {
				csn.Direction = stagebuilder.Backward
			}
			if flags.Changed("min") {
				ts := value.NewTimestamp(minSecs, 0)
				csn.MinRecord = &ts
			}
			if flags.Changed("max") {
				ts := value.NewTimestamp(maxSecs, 0)
				csn.MaxRecord = &ts
			}
			if flags.Changed("min-ts") {
				ts := value.NewTimestamp(minTs, 0)
				csn.AssertTsHasNotFallenOffOplog = &ts
			}
			if stop {
				csn.Filter = stagebuilder.Gte("ts", value.MakeTimestamp(*csn.MinRecord))
				csn.StopApplyingFilterAfterFirstMatch = true
			}

			root, slots := stagebuilder.GenerateCollScan(s.opCtx, coll, csn, s.state, s.db.CollectionLockCallback())
			cols := []column{
				{name: "ts", slot: slots.RecordID, format: formatOplogValue},
				{name: "entry", slot: slots.Result, format: formatValue},
			}
			if slots.OplogTs.Valid() {
				cols = append(cols, column{name: "latestTs", slot: slots.OplogTs, format: formatValue})
			}
			return s.run(cmd.OutOrStdout(), root, cols)
		},
	}

	flags := cmd.Flags()
	flags.Uint32Var(&entries, "entries", 10, "number of oplog entries")
	flags.Uint32Var(&step, "step", 10, "seconds between entries")
	flags.Uint32Var(&minSecs, "min", 0, "lowest timestamp seconds to return")
	flags.Uint32Var(&maxSecs, "max", 0, "highest timestamp seconds to return")
	flags.Uint32Var(&minTs, "min-ts", 0, "fail unless the oplog still holds this timestamp")
	flags.BoolVar(&track, "track", false, "report the latest oplog timestamp read")
	flags.BoolVar(&stop, "stop-after-first-match", false, "filter on ts >= --min only until the first match")
	flags.BoolVar(&wait, "wait", false, "wait for earlier oplog writes to become visible")
	flags.BoolVar(&reverse, "reverse", false, "scan newest first")
	return cmd
}

func newIxScanCmd(g *globalFlags) *cobra.Command {
	var (
		docs       int
		low        int64
		high       int64
		exclusive  bool
		reverse    bool
		descending bool
	)
	cmd := &cobra.Command{
		Use:   "ixscan",
		Short: "scan an index on x of the demo collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(g)
			if err != nil {
				return err
			}
			defer s.close()

			coll, err := s.createDemo(docs)
			if err != nil {
				return err
			}
			entry, err := s.db.CreateIndex(demoColl, scanexec.IndexSpec{
				Name: "x_1",
				Key:  []scanexec.IndexKeyField{{Field: "x", Descending: descending}},
			})
			if err != nil {
				return err
			}

			// Bounds are given in scan order.
			var lowKey, highKey []value.Value
			if cmd.Flags().Changed("low") {
				lowKey = []value.Value{value.MakeInt64(low)}
			}
			if cmd.Flags().Changed("high") {
				highKey = []value.Value{value.MakeInt64(high)}
			}
			forward := !reverse
			bounds := stagebuilder.IndexBounds{Start: lowKey, End: highKey}
			if reverse != descending {
				bounds = stagebuilder.IndexBounds{Start: highKey, End: lowKey}
			}
			bounds.StartInclusive = !exclusive
			bounds.EndInclusive = !exclusive

			lowSlot, highSlot, err := stagebuilder.MakeIndexSeekBounds(s.state, entry, forward, bounds)
			if err != nil {
				return err
			}

			ridSlot := s.state.SlotIDGenerator.Generate()
			xSlot := s.state.SlotIDGenerator.Generate()
			root := stage.NewIndexScanStage(stage.IndexScanParams{
				CollUUID:           coll.UUID(),
				IndexName:          entry.Name(),
				Forward:            forward,
				RecordIDSlot:       ridSlot,
				IndexKeysToInclude: 1,
				Vars:               value.MakeSV(xSlot),
				SeekKeySlotLow:     lowSlot,
				SeekKeySlotHigh:    highSlot,
				YieldPolicy:        s.state.YieldPolicy,
				NodeID:             1,
				Lock:               s.db.CollectionLockCallback(),
			})
			return s.run(cmd.OutOrStdout(), root, []column{
				{name: "recordId", slot: ridSlot, format: formatValue},
				{name: "x", slot: xSlot, format: formatValue},
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&docs, "docs", 10, "number of demo documents")
	flags.Int64Var(&low, "low", 0, "smallest x to return")
	flags.Int64Var(&high, "high", 0, "largest x to return")
	flags.BoolVar(&exclusive, "exclusive", false, "exclude the bounds themselves")
	flags.BoolVar(&reverse, "reverse", false, "scan the index backwards")
	flags.BoolVar(&descending, "descending", false, "build the index descending on x")
	return cmd
}
