package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rocket_go/internal/models"
)

type fakeFlight struct {
	snap        models.Snapshot
	status      models.FlightStatus
	sample      *models.FlightSample
	transitions []models.Transition
	burst       *models.TelemetryBurst
	aborts      []string
}

func (f *fakeFlight) Snapshot() models.Snapshot { return f.snap }
func (f *fakeFlight) GetStatus() models.FlightStatus { return f.status }

func (f *fakeFlight) LastSample() (models.FlightSample, models.DerivedSignals, bool) {
	if f.sample == nil {
		return models.FlightSample{}, models.DerivedSignals{}, false
	}
	return *f.sample, models.DerivedSignals{VerticalVelocity: 12}, true
}

func (f *fakeFlight) Transitions(limit int) []models.Transition {
	if limit <= 0 || limit > len(f.transitions) {
		return f.transitions
	}
	return f.transitions[:limit]
}

func (f *fakeFlight) LastBurst() (models.TelemetryBurst, bool) {
	if f.burst == nil {
		return models.TelemetryBurst{}, false
	}
	return *f.burst, true
}

func (f *fakeFlight) RequestAbort(source string) {
	f.aborts = append(f.aborts, source)
}

type fakeStore struct {
	connected   bool
	history     map[string][]models.HistoryPoint
	transitions []models.Transition
}

func (s *fakeStore) IsConnected() bool { return s.connected }

func (s *fakeStore) GetHistory(field string) ([]models.HistoryPoint, error) {
	h, ok := s.history[field]
	if !ok {
		return nil, errors.New("campo de histórico inválido: " + field)
	}
	return h, nil
}

func (s *fakeStore) GetTransitions(limit int64) ([]models.Transition, error) {
	return s.transitions, nil
}

func newTestRouter(f *fakeFlight, s HistoryStore) *Router {
	r := NewRouter(f, s, "api/")
	r.Setup()
	return r
}

func do(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestStatusIncludesSnapshotAndReadinessFailures(t *testing.T) {
	f := &fakeFlight{
		snap: models.Snapshot{
			StateName:      "SBIT-5: RBSAFE Check",
			SequenceActive: true,
			Readiness:      models.Readiness{BatteryOK: true, SensorsOK: true},
		},
		status: models.FlightStatus{Status: "ok", SessionID: "s-1", Timestamp: time.Now()},
	}
	r := newTestRouter(f, nil)

	rec, body := do(t, r, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "s-1", body["sessionId"])
	assert.Equal(t, "T-", body["elapsed"])
	assert.ElementsMatch(t, []interface{}{"payload", "gps (consultivo)"}, body["readinessFailures"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, _ = do(t, r, http.MethodPost, "/api/status")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCurrentData(t *testing.T) {
	f := &fakeFlight{snap: models.Snapshot{StateName: "LBIT-8: Post Launch"}}
	r := newTestRouter(f, nil)

	rec, _ := do(t, r, http.MethodGet, "/api/current")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.sample = &models.FlightSample{Altitude: 180, Timestamp: time.Now()}
	rec, body := do(t, r, http.MethodGet, "/api/current")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "LBIT-8: Post Launch", body["state"])
	assert.Equal(t, 180.0, body["sample"].(map[string]interface{})["altitude"])
	assert.Equal(t, 12.0, body["derived"].(map[string]interface{})["verticalVelocity"])
}

func TestTransitionsPreferStoreAndFallBackToMemory(t *testing.T) {
	f := &fakeFlight{transitions: []models.Transition{{To: models.StateStartupBattery}, {To: models.StateInitSeqIMU}}}
	store := &fakeStore{connected: true, transitions: []models.Transition{{To: models.StateKillAll}}}
	r := newTestRouter(f, store)

	var list []models.Transition
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transitions?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, models.StateKillAll, list[0].To)

	store.connected = false
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transitions?limit=1", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, models.StateStartupBattery, list[0].To)

	rec, _ = do(t, r, http.MethodGet, "/api/transitions?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory(t *testing.T) {
	store := &fakeStore{connected: true, history: map[string][]models.HistoryPoint{
		"altitude": {{Value: 10}, {Value: 20}},
	}}
	r := newTestRouter(&fakeFlight{}, store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history/altitude", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var points []models.HistoryPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	assert.Len(t, points, 2)

	rec, body := do(t, r, http.MethodGet, "/api/history/pressao")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "pressao")

	rec, _ = do(t, r, http.MethodGet, "/api/history/")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// sem Redis, lista vazia
	store.connected = false
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history/altitude", nil))
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestAbortEndpoint(t *testing.T) {
	f := &fakeFlight{snap: models.Snapshot{StateName: "LBIT-6: Ignit Booster", SequenceActive: true}}
	r := newTestRouter(f, nil)

	rec, _ := do(t, r, http.MethodGet, "/api/abort")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, f.aborts)

	rec, body := do(t, r, http.MethodPost, "/api/abort")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, body["accepted"])
	require.Len(t, f.aborts, 1)
	assert.Contains(t, f.aborts[0], "api:")

	f.snap.SequenceActive = false
	rec, _ = do(t, r, http.MethodPost, "/api/abort")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, f.aborts, 1)
}

func TestLastBurst(t *testing.T) {
	f := &fakeFlight{}
	r := newTestRouter(f, nil)

	rec, _ := do(t, r, http.MethodGet, "/api/burst")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.burst = &models.TelemetryBurst{Reason: "aborto: critical_battery"}
	rec, body := do(t, r, http.MethodGet, "/api/burst")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "aborto: critical_battery", body["reason"])
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("falha")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
