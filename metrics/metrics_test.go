package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/shelver/metrics"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.Observe("s3", "get", time.Now(), metrics.ResultOK)
	m.Observe("s3", "get", time.Now(), metrics.ResultOK)
	m.Observe("s3", "set", time.Now(), metrics.ResultError)

	count, err := testutil.GatherAndCount(reg, "shelver_document_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(reg, "shelver_document_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHandler(t *testing.T) {
	m := metrics.New(nil)
	m.Observe("local", "delete", time.Now(), metrics.ResultNotFound)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `shelver_document_operations_total{op="delete",provider="local",result="not_found"} 1`)
}
