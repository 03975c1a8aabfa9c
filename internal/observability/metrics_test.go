package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_Registry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.AlarmsRaised.WithLabelValues("scan_dealer").Inc()
	m.AlarmsRaised.WithLabelValues("scan_dealer").Inc()
	m.AlarmsDropped.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AlarmsRaised.WithLabelValues("scan_dealer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlarmsDropped))

	count, err := testutil.GatherAndCount(reg, "test_detector_alarms_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.BucketsSwept)
	RecordSweep("m1", 3, 2)
	assert.Equal(t, before+3, testutil.ToFloat64(DefaultMetrics.BucketsSwept))
	assert.Equal(t, 2.0, testutil.ToFloat64(DefaultMetrics.WindowBuckets.WithLabelValues("m1")))

	SetCurrentTip(0.0123)
	assert.Equal(t, 0.0123, testutil.ToFloat64(DefaultMetrics.CurrentTipSOL))
}
