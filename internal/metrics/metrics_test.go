package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.ObserveRequest(http.MethodGet, http.StatusOK, 10*time.Millisecond)
	r.ObserveRequest(http.MethodGet, http.StatusOK, 20*time.Millisecond)
	r.ObserveRequest(http.MethodPost, http.StatusBadRequest, time.Millisecond)
	r.ObserveAnalysis("success", 1.5)
	r.ObserveCacheHit()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("POST", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.analyses.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheHits))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ObserveCacheHit()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "calculator_cache_hits_total 1")
	assert.Contains(t, body, "go_goroutines")
}
