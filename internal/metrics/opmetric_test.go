package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpMetricCounts(t *testing.T) {
	m := NewOpMetric(nil, "habit_ops", "op")

	op := m.Start("create")
	assert.Equal(t, int64(1), m.Pending("create"))
	op.End()

	op = m.Start("create")
	op.EndWithError(errors.New("boom"))

	op = m.Start("delete")
	op.Result(ResultNeedsAuth)
	op.End()

	assert.Equal(t, uint64(2), m.Count(ResultAll, "create"))
	assert.Equal(t, uint64(1), m.Count(ResultFailed, "create"))
	assert.Equal(t, uint64(0), m.Count(ResultFailed, "delete"))
	assert.Equal(t, uint64(1), m.Count(ResultNeedsAuth, "delete"))
	assert.Equal(t, int64(0), m.Pending("create"))
	assert.Equal(t, int64(0), m.Pending("delete"))
}

func TestOpMetricLatencyOnlyForSuccess(t *testing.T) {
	m := NewOpMetric(nil, "habit_ops", "op")

	m.Start("update").End()
	m.Start("update").EndWithError(errors.New("boom"))

	s := m.String("update")
	assert.Contains(t, s, "Total count=1")
	assert.Contains(t, s, "1 failed")
	assert.Contains(t, s, "0 pending")

	assert.Len(t, m.Strings("update", "create"), 2)
}

func TestNewOpMetricRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOpMetric(reg, "habit_ops", "op")
	m.Start("create").End()

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "habit_ops")
	assert.Contains(t, names, "habit_ops_latency")
	assert.Contains(t, names, "habit_ops_pending")

	assert.Panics(t, func() { NewOpMetric(reg, "habit_ops", "op") }, "duplicate registration")
}
