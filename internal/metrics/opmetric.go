// Package metrics tracks counts and latencies of store operations with
// Prometheus collectors.
package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Result label values.
const (
	ResultAll       = "all"
	ResultFailed    = "failed"
	ResultNeedsAuth = "needs_auth"
)

// OpMetric is a wrapper around metric objects that tracks counts and
// latencies of operations.
//
// OpMetric creates three metric sets on its registerer:
//   - A CounterVec with the given name, label "result", and any additional
//     labels. Start increments it with "result"="all"; Failed and Result
//     increment it with their own result.
//   - A SummaryVec with the given name + "_latency". End observes the
//     latency only if no result other than "all" was recorded.
//   - A GaugeVec with the given name + "_pending" holding the number of
//     operations between Start and End.
//
// Suggested usage:
//
//	op := m.Start("create")
//	defer op.End()
//	if err != nil {
//		op.Failed()
//	}
type OpMetric struct {
	name      string
	counters  *prometheus.CounterVec
	latencies *prometheus.SummaryVec
	pending   *prometheus.GaugeVec
}

// NewOpMetric registers a new op metric on reg. A nil reg registers on a
// fresh private registry, so the same name may be created more than once.
func NewOpMetric(reg prometheus.Registerer, name string, labels ...string) *OpMetric {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	labelsWithResult := append([]string{"result"}, labels...)
	return &OpMetric{
		name:      name,
		counters:  factory.NewCounterVec(prometheus.CounterOpts{Name: name}, labelsWithResult),
		latencies: factory.NewSummaryVec(prometheus.SummaryOpts{Name: name + "_latency"}, labels),
		pending:   factory.NewGaugeVec(prometheus.GaugeOpts{Name: name + "_pending"}, labels),
	}
}

// Start marks that a new operation has started and begins measuring the
// latency.
func (m *OpMetric) Start(values ...string) *Measurer {
	lm := &Measurer{opm: m, values: values}
	lm.Result(ResultAll) // this resets start, so set it below
	lm.start = time.Now().UnixNano()
	lm.opm.pending.WithLabelValues(values...).Inc()
	return lm
}

// Count returns the counter value for result and the label values.
func (m *OpMetric) Count(result string, values ...string) uint64 {
	valuesWithResult := append([]string{result}, values...)
	var value dto.Metric
	if m.counters.WithLabelValues(valuesWithResult...).Write(&value) != nil {
		return 0
	}
	return uint64(value.GetCounter().GetValue())
}

// Pending returns the number of started but not ended operations.
func (m *OpMetric) Pending(values ...string) int64 {
	var value dto.Metric
	if m.pending.WithLabelValues(values...).Write(&value) != nil {
		return 0
	}
	return int64(value.GetGauge().GetValue())
}

// String returns a summary of latency and failure counts.
func (m *OpMetric) String(values ...string) string {
	out := SummaryString(m.latencies.WithLabelValues(values...))
	out += fmt.Sprintf(" / %d failed / %d needs auth / %d pending",
		m.Count(ResultFailed, values...), m.Count(ResultNeedsAuth, values...), m.Pending(values...))
	return out
}

// Strings returns String for each single label value in keys.
func (m *OpMetric) Strings(keys ...string) map[string]string {
	out := make(map[string]string)
	for _, key := range keys {
		out[key] = m.String(key)
	}
	return out
}

// Measurer tracks one started operation.
type Measurer struct {
	start  int64
	opm    *OpMetric
	values []string
}

// Failed records that the operation failed.
func (lm *Measurer) Failed() {
	lm.Result(ResultFailed)
}

// Result records an arbitrary result.
func (lm *Measurer) Result(result string) {
	lm.start = 0 // zero this so that End won't try to record latency
	valuesWithResult := append([]string{result}, lm.values...)
	lm.opm.counters.WithLabelValues(valuesWithResult...).Inc()
}

// End records the elapsed time since Start.
func (lm *Measurer) End() {
	if lm.start != 0 {
		d := time.Duration(time.Now().UnixNano() - lm.start)
		lm.opm.latencies.WithLabelValues(lm.values...).Observe(d.Seconds())
	}
	lm.opm.pending.WithLabelValues(lm.values...).Dec()
}

// EndWithError calls Failed when err is non-nil, then End.
func (lm *Measurer) EndWithError(err error) {
	if err != nil {
		lm.Failed()
	}
	lm.End()
}

// SummaryString formats the sample count and quantiles of a summary.
func SummaryString(obs prometheus.Observer) string {
	sum, ok := obs.(prometheus.Summary)
	if !ok {
		return ""
	}
	var value dto.Metric
	if sum.Write(&value) != nil || value.Summary == nil {
		return ""
	}
	out := fmt.Sprintf("Total count=%d;", value.GetSummary().GetSampleCount())
	for _, q := range value.GetSummary().GetQuantile() {
		out += fmt.Sprintf(" %gth=%.3f;", q.GetQuantile()*100, q.GetValue())
	}
	return strings.TrimSuffix(out, ";")
}
