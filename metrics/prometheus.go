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

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink exports observations as Prometheus collectors.
type PrometheusSink struct {
	Seeks        *prometheus.CounterVec
	Reads        *prometheus.CounterVec
	PlansKilled  *prometheus.CounterVec
	YieldLatency prometheus.Histogram
}

// NewPrometheusSink creates the collectors and registers them with reg when
// reg is not nil.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	s := &PrometheusSink{
		Seeks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scanexec",
			Name:      "seeks_total",
			Help:      "Cursor seeks performed by scan stages.",
		}, []string{"stage"}),
		Reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scanexec",
			Name:      "reads_total",
			Help:      "Entries read by scan stages.",
		}, []string{"stage"}),
		PlansKilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scanexec",
			Name:      "plans_killed_total",
			Help:      "Plans that failed re-validation after a yield.",
		}, []string{"reason"}),
		YieldLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scanexec",
			Name:      "yield_duration_seconds",
			Help:      "Time plans spent yielded.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 7),
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{s.Seeks, s.Reads, s.PlansKilled, s.YieldLatency} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *PrometheusSink) ObserveSeek(stage string) {
	s.Seeks.WithLabelValues(stage).Inc()
}

func (s *PrometheusSink) ObserveReads(stage string, n int) {
	s.Reads.WithLabelValues(stage).Add(float64(n))
}

func (s *PrometheusSink) ObserveYield(d time.Duration) {
	s.YieldLatency.Observe(d.Seconds())
}

func (s *PrometheusSink) ObservePlanKilled(reason string) {
	s.PlansKilled.WithLabelValues(reason).Inc()
}
