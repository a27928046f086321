package metrics_test

import (
	"asyncfs/internal/metrics"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Metrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveSubmit("read")
	m.ObserveSubmit("read")
	m.ObserveComplete("read", metrics.OutcomeOK, time.Millisecond)
	m.AddBytes("storage", "in", 100)
	m.AddBytes("storage", "in", 0)
	m.SetQueueDepth("codec", 3)

	count, err := testutil.GatherAndCount(reg, "asyncfs_work_submitted_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	byName := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				byName[mf.GetName()] += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				byName[mf.GetName()] += metric.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, byName["asyncfs_work_submitted_total"])
	assert.Equal(t, 1.0, byName["asyncfs_work_completed_total"])
	assert.Equal(t, 100.0, byName["asyncfs_bytes_total"])
	assert.Equal(t, 3.0, byName["asyncfs_queue_depth"])
}

func Test_Metrics_Nil_Is_Noop(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveSubmit("write")
	m.ObserveComplete("write", metrics.OutcomeError, time.Second)
	m.AddBytes("codec", "out", 10)
	m.SetQueueDepth("storage", 1)
}
