package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rocket_go/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Redis.Enabled = false
	cfg.MQTT.Enabled = false
	cfg.PLC.Enabled = false
	cfg.Discovery.Enabled = false
	cfg.Telemetry.LogDir = t.TempDir()
	cfg.Sequencer.TickPeriod = 5 * time.Millisecond

	s, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.flightService.Stop()
		s.closeComponents()
	})
	return s
}

func getJSON(t *testing.T, h http.Handler, path string) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthBeforeStart(t *testing.T) {
	s := newTestServer(t)

	code, body := getJSON(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", body["status"])

	services := body["services"].(map[string]interface{})
	assert.Equal(t, "offline", services["flight"])
	assert.Equal(t, "disabled", services["redis"])
	assert.Equal(t, "disabled", services["plc"])
	assert.Equal(t, "disabled", services["mqtt"])
	assert.Equal(t, "disabled", services["discovery"])
}

func TestHealthWhileFlying(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.flightService.Start())

	code, body := getJSON(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["services"].(map[string]interface{})["flight"])
}

func TestInfoAndDiscover(t *testing.T) {
	s := newTestServer(t)

	_, info := getJSON(t, s.Handler(), "/info")
	assert.Equal(t, "rocket-flight-computer", info["name"])
	assert.Equal(t, Version, info["version"])
	assert.Equal(t, s.serverInfo.SessionID, info["sessionId"])

	_, disc := getJSON(t, s.Handler(), "/api/discover")
	assert.Equal(t, "/ws", disc["wsEndpoint"])
	assert.Equal(t, "/api", disc["apiEndpoint"])

	_, full := getJSON(t, s.Handler(), "/api/server-info")
	services := full["services"].(map[string]interface{})
	assert.Equal(t, "sim", services["flight"].(map[string]interface{})["sensorMode"])
}

func TestAPIMounted(t *testing.T) {
	s := newTestServer(t)

	code, body := getJSON(t, s.Handler(), "/api/status")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, s.serverInfo.SessionID, body["sessionId"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	raw, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "rocket_flight_ticks_total"))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
