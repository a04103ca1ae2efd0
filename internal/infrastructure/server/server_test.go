package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/zentat/internal/infrastructure/config"
	"github.com/GriffinCanCode/zentat/internal/rates"
	"github.com/GriffinCanCode/zentat/internal/settings"
)

type stubSource struct {
	table rates.Table
}

func (s stubSource) Name() string { return "stub" }

func (s stubSource) Fetch(context.Context) (rates.Table, error) {
	return s.table, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Logging.Development = true
	cfg.Logging.Level = "error"
	cfg.Rates.Sources = nil
	cfg.Rates.File = filepath.Join(dir, "rates.json")
	cfg.Settings.File = filepath.Join(dir, "settings.yaml")

	require.NoError(t, rates.SaveFile(cfg.Rates.File, rates.Table{
		Rates:     map[string]float64{"USD": 0.5},
		UpdatedAt: time.Now(),
		Source:    "file",
	}))
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func request(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewServerRoutes(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	h := s.Handler()

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/v1/rates", "", http.StatusOK},
		{http.MethodGet, "/v1/settings", "", http.StatusOK},
		{http.MethodGet, "/v1/sessions", "", http.StatusOK},
		{http.MethodGet, "/v1/sites/allowed?hostname=example.com", "", http.StatusOK},
		{http.MethodPost, "/v1/parse", `{"text":"$5"}`, http.StatusOK},
		{http.MethodPost, "/v1/rates/refresh", "", http.StatusServiceUnavailable},
		{http.MethodGet, "/v1/sessions/unknown", "", http.StatusNotFound},
		{http.MethodGet, "/metrics/json", "", http.StatusOK},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := request(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestConvertUsesRatesFile(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	w := request(t, s.Handler(), http.MethodPost, "/v1/convert", `{"html":"<p>$100</p>"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["converted"])
	assert.Contains(t, body["html"], "50.00 ZEC")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	request(t, s.Handler(), http.MethodPost, "/v1/convert", `{"text":"$4"}`)

	w := request(t, s.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `zentat_conversions_total{currency="USD"} 1`)
	assert.Contains(t, w.Body.String(), `zentat_http_requests_total`)
}

func TestSettingsArePersisted(t *testing.T) {
	cfg := testConfig(t)
	s := newTestServer(t, cfg)

	w := request(t, s.Handler(), http.MethodPut, "/v1/settings", `{"blockedSites":["bank.example"],"precision":2}`)
	require.Equal(t, http.StatusOK, w.Code)

	saved, err := settings.LoadFile(cfg.Settings.File)
	require.NoError(t, err)
	assert.Equal(t, []string{"bank.example"}, saved.BlockedSites)
	assert.Equal(t, "2", saved.Precision.String())

	// A new server picks the saved settings up
	again := newTestServer(t, cfg)
	w = request(t, again.Handler(), http.MethodGet, "/v1/sites/allowed?hostname=bank.example", "")
	assert.Contains(t, w.Body.String(), `"allowed":false`)
}

func TestMissingFilesUseDefaults(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rates.File = filepath.Join(t.TempDir(), "absent.json")
	s := newTestServer(t, cfg)

	assert.True(t, s.rates.Get().Empty())
	assert.Equal(t, settings.Defaults().Currencies, s.settings.Get().Currencies)

	w := request(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

func TestNewServerRejectsUnknownSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rates.Sources = []string{"bitstamp"}
	_, err := NewServer(cfg)
	assert.Error(t, err)
}

func TestRefreshSavesRates(t *testing.T) {
	cfg := testConfig(t)
	s := newTestServer(t, cfg)
	s.sources = []rates.Source{stubSource{table: rates.Table{
		Rates:     map[string]float64{"USD": 0.25, "EUR": 0.2},
		UpdatedAt: time.Now(),
		Source:    "stub",
	}}}

	s.refresh(context.Background())
	assert.Equal(t, "stub", s.rates.Get().Source)

	saved, err := rates.LoadFile(cfg.Rates.File)
	require.NoError(t, err)
	assert.Equal(t, "stub", saved.Source)
	assert.Equal(t, 0.2, saved.Rates["EUR"])
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRateLimitDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Enabled = false
	s := newTestServer(t, cfg)

	var last int
	for i := 0; i < 5; i++ {
		last = request(t, s.Handler(), http.MethodGet, "/", "").Code
	}
	assert.Equal(t, http.StatusOK, last)
}
