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
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xujiajun/utils/strconv2"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/nutsdb/scanexec"
	"github.com/nutsdb/scanexec/metrics"
	"github.com/nutsdb/scanexec/stage"
	"github.com/nutsdb/scanexec/stagebuilder"
	"github.com/nutsdb/scanexec/value"
)

const demoColl = "demo"

// session is one DB and the operation a command's plan runs under.
type session struct {
	g      *globalFlags
	logger *zap.Logger
	reg    *prometheus.Registry
	db     *scanexec.DB
	opCtx  *scanexec.OperationContext
	state  *stagebuilder.State
}

func openSession(g *globalFlags) (*session, error) {
	opts := scanexec.DefaultOptions
	if g.config != "" {
		var err error
		if opts, err = scanexec.LoadOptions(g.config); err != nil {
			return nil, err
		}
	}

	s := &session{g: g, logger: zap.NewNop()}
	if g.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		s.logger = l
	}

	ops := []scanexec.Option{scanexec.WithLogger(scanexec.NewZapLogger(s.logger))}
	if g.prom {
		s.reg = prometheus.NewRegistry()
		sink, err := metrics.NewPrometheusSink(s.reg)
		if err != nil {
			return nil, err
		}
		ops = append(ops, scanexec.WithMetricsSink(sink))
	}

	db, err := scanexec.Open(opts, ops...)
	if err != nil {
		return nil, err
	}
	s.db = db
	s.opCtx = db.NewOperationContext(context.Background())
	s.state = stagebuilder.NewState(stage.NewDefaultPlanYieldPolicy(s.opCtx))
	return s, nil
}

func (s *session) close() {
	s.opCtx.Done()
	_ = s.db.Close()
	_ = s.logger.Sync()
}

// createDemo fills the demo collection with {_id: i, x: (7i) mod n} for i in
// 1..n.
func (s *session) createDemo(n int) (*scanexec.Collection, error) {
	coll, err := s.db.CreateCollection(demoColl, scanexec.CollectionOptions{})
	if err != nil {
		return nil, err
	}
	err = s.db.Update(func(tx *scanexec.Tx) error {
		for i := 1; i <= n; i++ {
			doc, err := bson.Marshal(bson.D{
				{Key: "_id", Value: int64(i)},
				{Key: "x", Value: int64((7 * i) % n)},
			})
			if err != nil {
				return err
			}
			if _, err := tx.Insert(demoColl, doc); err != nil {
				return err
			}
		}
		return nil
	})
	return coll, err
}

// createOplog fills an oplog with n insert entries spaced step seconds apart,
// the first at step.
func (s *session) createOplog(n int, step uint32) (*scanexec.Collection, error) {
	coll, err := s.db.CreateCollection("oplog", scanexec.CollectionOptions{Oplog: true})
	if err != nil {
		return nil, err
	}
	err = s.db.Update(func(tx *scanexec.Tx) error {
		for i := 1; i <= n; i++ {
			ts := value.NewTimestamp(uint32(i)*step, 0)
			doc, err := bson.Marshal(bson.D{
				{Key: "ts", Value: ts.Primitive()},
				{Key: "op", Value: "i"},
				{Key: "ns", Value: "test." + demoColl},
				{Key: "o", Value: bson.D{{Key: "_id", Value: int64(i)}}},
			})
			if err != nil {
				return err
			}
			if _, err := tx.Insert("oplog", doc); err != nil {
				return err
			}
		}
		return nil
	})
	return coll, err
}

type column struct {
	name   string
	slot   value.SlotID
	format func(value.Value) string
}

func formatValue(v value.Value) string {
	return v.String()
}

// formatOplogValue prints oplog record ids as the timestamps they encode.
func formatOplogValue(v value.Value) string {
	if v.Tag() == value.TagRecordID {
		return value.Timestamp(v.RecordID()).String()
	}
	return v.String()
}

// run executes root and writes the rows read from cols to w, followed by
// whatever reports the global flags ask for.
func (s *session) run(w io.Writer, root stage.PlanStage, cols []column) error {
	s.state.YieldPolicy.RegisterPlan(root)

	ctx, err := stage.Prepare(root, s.opCtx, s.state.Env)
	if err != nil {
		return err
	}
	header := make([]string, len(cols))
	accs := make([]value.SlotAccessor, len(cols))
	for i, c := range cols {
		header[i] = c.name
		if accs[i], err = root.GetAccessor(ctx, c.slot); err != nil {
			return errors.Wrapf(err, "column %s", c.name)
		}
	}

	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader(header)
	n, runErr := execute(root, func() {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = c.format(accs[i].GetViewOfValue())
		}
		tbl.Append(row)
	})
	tbl.Render()
	fmt.Fprintf(w, "%d rows\n", n)

	if s.g.explain {
		fmt.Fprintln(w)
		fmt.Fprint(w, stage.Explain(root))
	}
	if s.g.stats {
		fmt.Fprintln(w)
		writeStats(w, root.Stats(false))
	}
	if s.reg != nil {
		fmt.Fprintln(w)
		if err := writeMetrics(w, s.reg); err != nil {
			return err
		}
	}
	return runErr
}

func execute(root stage.PlanStage, emit func()) (int, error) {
	defer root.Close()
	if err := root.Open(false); err != nil {
		return 0, err
	}
	n := 0
	for {
		state, err := root.GetNext()
		if err != nil {
			return n, err
		}
		if state == stage.IsEOF {
			return n, nil
		}
		emit()
		n++
	}
}

func writeStats(w io.Writer, stats *stage.PlanStageStats) {
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"stage", "node", "opens", "advances", "yields", "details"})
	stats.Walk(func(depth int, st *stage.PlanStageStats) {
		c := st.Common
		var details []string
		if st.Specific != nil {
			for _, e := range st.Specific.Fields() {
				details = append(details, fmt.Sprintf("%s=%v", e.Key, e.Value))
			}
		}
		tbl.Append([]string{
			strings.Repeat("  ", depth) + c.StageType,
			strconv2.Int64ToStr(int64(c.NodeID)),
			strconv2.Int64ToStr(c.Opens),
			strconv2.Int64ToStr(c.Advances),
			strconv2.Int64ToStr(c.Yields),
			strings.Join(details, " "),
		})
	})
	tbl.Render()
}

func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"metric", "labels", "value"})
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			var v string
			switch {
			case m.GetCounter() != nil:
				v = fmt.Sprintf("%g", m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				v = fmt.Sprintf("count=%d sum=%g", h.GetSampleCount(), h.GetSampleSum())
			}
			tbl.Append([]string{mf.GetName(), strings.Join(labels, ","), v})
		}
	}
	tbl.Render()
	return nil
}
