package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/", "200", time.Millisecond, 0, 0)
		m.RecordConversion("USD")
		m.RecordSkip("no_rate")
		m.RecordScan("full", time.Millisecond)
		m.SetMarksActive(3)
		m.AddReverts(1)
		m.RecordRateRefresh("kraken", "success", time.Second)
		m.SetSessionsActive(1)
		m.IncSessionsTotal()
		NewTimer(m, "coingecko").Stop("error")
	})
	assert.Equal(t, Snapshot{}, m.Snapshot())
	assert.Nil(t, m.Registry())

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordConversionMetrics(t *testing.T) {
	m := NewMetrics()

	m.RecordConversion("USD")
	m.RecordConversion("USD")
	m.RecordConversion("EUR")
	m.RecordSkip("no_rate")
	m.RecordScan("full", 5*time.Millisecond)
	m.SetMarksActive(4)
	m.AddReverts(2)
	m.AddReverts(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Conversions.WithLabelValues("USD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Conversions.WithLabelValues("EUR")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Skipped.WithLabelValues("no_rate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Scans.WithLabelValues("full")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.MarksActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Reverts))
	assert.Equal(t, int64(3), m.Snapshot().Conversions)
}

func TestSnapshotCountsErrors(t *testing.T) {
	m := NewMetrics()

	m.RecordHTTPRequest("GET", "/", "200", 100*time.Millisecond, 0, 10)
	m.RecordHTTPRequest("POST", "/v1/convert", "400", 100*time.Millisecond, 20, 10)
	m.RecordHTTPRequest("GET", "/v1/sessions/:id", "404", 100*time.Millisecond, 0, 10)
	m.SetSessionsActive(2)

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(2), snap.TotalErrors)
	assert.Equal(t, int64(2), snap.ActiveSessions)
	assert.InDelta(t, 0.3, snap.TotalDuration, 1e-9)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}

func TestNewMetricsWithSharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)
	m.RecordRateRefresh("kraken", "success", time.Second)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["zentat_rate_refreshes_total"])
	assert.True(t, names["zentat_uptime_seconds"])
	assert.Same(t, reg, m.Registry())
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()
	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/v1/sessions/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/v1/sessions/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/nowhere", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/v1/sessions/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestHandlerServesPrometheusText(t *testing.T) {
	m := NewMetrics()
	m.RecordConversion("GBP")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `zentat_conversions_total{currency="GBP"} 1`)
}

func TestTimer(t *testing.T) {
	m := NewMetrics()
	timer := NewTimer(m, "coingecko")
	timer.Stop("open")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateRefreshes.WithLabelValues("coingecko", "open")))
}
