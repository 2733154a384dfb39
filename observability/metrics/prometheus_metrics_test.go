package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()

	metrics := New("test_service", reg)

	assert.NotNil(t, metrics)
	assert.Equal(t, "test_service", metrics.serviceName)
}

func TestPrometheusMetrics_RecordSuccess(t *testing.T) {
	metrics := New("test", prometheus.NewRegistry())

	metrics.RecordSuccess("relay")
	metrics.RecordSuccess("relay")
	metrics.RecordSuccess("transfer")

	relayCount := testutil.ToFloat64(metrics.processedTotal.WithLabelValues("success", "relay"))
	transferCount := testutil.ToFloat64(metrics.processedTotal.WithLabelValues("success", "transfer"))

	assert.Equal(t, 2.0, relayCount)
	assert.Equal(t, 1.0, transferCount)
}

func TestPrometheusMetrics_RecordError(t *testing.T) {
	metrics := New("test", prometheus.NewRegistry())

	metrics.RecordError("relay", "dispatch_failed")
	metrics.RecordError("relay", "dispatch_failed")
	metrics.RecordError("transfer", "upload_failed")

	relayErrors := testutil.ToFloat64(metrics.processedTotal.WithLabelValues("error", "relay"))
	transferErrors := testutil.ToFloat64(metrics.processedTotal.WithLabelValues("error", "transfer"))

	assert.Equal(t, 2.0, relayErrors)
	assert.Equal(t, 1.0, transferErrors)

	dispatchErrors := testutil.ToFloat64(metrics.errorsTotal.WithLabelValues("dispatch_failed", "relay"))
	uploadErrors := testutil.ToFloat64(metrics.errorsTotal.WithLabelValues("upload_failed", "transfer"))

	assert.Equal(t, 2.0, dispatchErrors)
	assert.Equal(t, 1.0, uploadErrors)
}

func TestPrometheusMetrics_RecordFileSize(t *testing.T) {
	metrics := New("test", prometheus.NewRegistry())

	metrics.RecordFileSize("download", 1048576)
	metrics.RecordFileSize("download", 2097152)

	count := testutil.CollectAndCount(metrics.fileSizeBytes)
	assert.Equal(t, 1, count)
}

func TestPrometheusMetrics_Operations(t *testing.T) {
	metrics := New("test", prometheus.NewRegistry())

	metrics.StartOperation("download")
	metrics.StartOperation("download")
	metrics.StartOperation("upload")

	downloadGauge := testutil.ToFloat64(metrics.inProgress.WithLabelValues("download"))
	uploadGauge := testutil.ToFloat64(metrics.inProgress.WithLabelValues("upload"))

	assert.Equal(t, 2.0, downloadGauge)
	assert.Equal(t, 1.0, uploadGauge)

	metrics.EndOperation("download")
	metrics.EndOperation("upload")

	downloadGauge = testutil.ToFloat64(metrics.inProgress.WithLabelValues("download"))
	uploadGauge = testutil.ToFloat64(metrics.inProgress.WithLabelValues("upload"))

	assert.Equal(t, 1.0, downloadGauge)
	assert.Equal(t, 0.0, uploadGauge)
}

func TestPrometheusMetrics_NilRegistererUsesDefault(t *testing.T) {
	// Swap the default registerer so the test doesn't pollute it
	original := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	defer func() { prometheus.DefaultRegisterer = original }()

	metrics := New("nil_reg_test", nil)

	assert.NotNil(t, metrics)
	metrics.RecordSuccess("relay")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.processedTotal.WithLabelValues("success", "relay")))
}
