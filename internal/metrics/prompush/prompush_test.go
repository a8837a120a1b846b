package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcingest/internal/metrics"
)

// readCounterValue reads the current value of a Counter for assertions in tests.
func readCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	require.NotNil(t, m.GetCounter())
	return m.GetCounter().GetValue()
}

// readSummaryCountSum reads sample count and sum from a SummaryVec.
func readSummaryCountSum(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	require.True(t, ok, "summary does not implement prometheus.Metric")
	m := &dto.Metric{}
	require.NoError(t, metric.Write(m))
	require.NotNil(t, m.GetSummary())
	return m.GetSummary().GetSampleCount(), m.GetSummary().GetSampleSum()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		jobName     string
		gatewayURL  string
		wantErr     bool
		wantJobName string
	}{
		{name: "missing gateway URL", jobName: "qc", wantErr: true},
		{name: "empty job name uses default", gatewayURL: "http://pushgateway:9091", wantJobName: "qcingest"},
		{name: "explicit job name is preserved", jobName: "nightly", gatewayURL: "http://pushgateway:9091", wantJobName: "nightly"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := NewBackend(tt.jobName, tt.gatewayURL)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, b)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantJobName, b.jobName)
			assert.Equal(t, tt.gatewayURL, b.gatewayURL)
			assert.NotNil(t, b.stepCounter)
			assert.NotNil(t, b.stepDuration)
			assert.NotNil(t, b.recordCounter)
			assert.NotNil(t, b.fileCounter)
		})
	}
}

func TestIncCounter(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("qc", "http://example.com")
	require.NoError(t, err)

	b.IncCounter(metrics.StepTotal, 3, metrics.Labels{"job": "qc", "step": "build", "status": "success"})
	b.IncCounter(metrics.RecordsTotal, 5, metrics.Labels{"platform": "WGS", "kind": "inserted"})
	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"platform": "WGS", "kind": "inserted"})
	b.IncCounter(metrics.FilesTotal, 1, metrics.Labels{"platform": "LRS", "status": "failure"})
	b.IncCounter("unknown_metric", 10, metrics.Labels{"foo": "bar"})

	assert.Equal(t, 3.0, readCounterValue(t, b.stepCounter.WithLabelValues("build", "success")))
	assert.Equal(t, 6.0, readCounterValue(t, b.recordCounter.WithLabelValues("WGS", "inserted")))
	assert.Equal(t, 1.0, readCounterValue(t, b.fileCounter.WithLabelValues("LRS", "failure")))
	assert.Equal(t, 0.0, readCounterValue(t, b.recordCounter.WithLabelValues("WES", "inserted")))
}

func TestIncCounterNilCollectors(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	assert.NotPanics(t, func() {
		b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "s", "status": "success"})
		b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": "built"})
		b.IncCounter(metrics.FilesTotal, 1, metrics.Labels{})
		b.ObserveHistogram(metrics.StepDurationSeconds, 1, metrics.Labels{})
	})
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("qc", "http://example.com")
	require.NoError(t, err)

	b.ObserveHistogram(metrics.StepDurationSeconds, 1.5, metrics.Labels{"step": "store", "status": "success"})
	b.ObserveHistogram("other_metric", 2.0, metrics.Labels{"step": "store", "status": "success"})

	count, sum := readSummaryCountSum(t, b.stepDuration, "store", "success")
	assert.Equal(t, uint64(1), count)
	assert.Equal(t, 1.5, sum)
}

// TestFlush verifies that Flush pushes the registry to the configured
// Pushgateway URL.
func TestFlush(t *testing.T) {
	t.Parallel()

	type pushRequest struct {
		method  string
		path    string
		bodyLen int
	}
	reqCh := make(chan pushRequest, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushRequest{method: r.Method, path: r.URL.Path, bodyLen: len(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	b, err := NewBackend("qc-job", server.URL)
	require.NoError(t, err)
	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"platform": "WES", "kind": "built"})

	require.NoError(t, b.Flush())

	select {
	case got := <-reqCh:
		assert.Equal(t, http.MethodPut, got.method)
		assert.Equal(t, "/metrics/job/qc-job", got.path)
		assert.Positive(t, got.bodyLen)
	default:
		t.Fatal("Flush did not send a request to the Pushgateway")
	}
}

func TestFlush_GatewayError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	b, err := NewBackend("qc-job", server.URL)
	require.NoError(t, err)
	assert.Error(t, b.Flush())
}
