package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/odor-dispersion-service/internal/adapter/http"
	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
	"github.com/couchcryptid/odor-dispersion-service/internal/observability"
	"github.com/couchcryptid/odor-dispersion-service/internal/session"
	"github.com/couchcryptid/odor-dispersion-service/internal/weather"
	"github.com/couchcryptid/odor-dispersion-service/internal/worker"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type testEnv struct {
	srv     *httpadapter.Server
	board   *weather.Board
	manager *session.Manager
	clock   *clockwork.FakeClock
}

func newTestEnv(t *testing.T, readyErr error) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := clockwork.NewFakeClock()
	board := weather.NewBoard()
	manager := session.NewManager(board, worker.NewFactory(worker.Options{Logger: logger}), nil, session.Config{
		FrameInterval: 16 * time.Millisecond,
		Clock:         clock,
		Logger:        logger,
	})
	t.Cleanup(manager.CloseAll)

	srv := httpadapter.NewServer(":0", httpadapter.Options{
		Ready:    &mockReadiness{err: readyErr},
		Sessions: manager,
		Board:    board,
		Metrics:  observability.NewMetricsForTesting(),
		Logger:   logger,
	})
	return &testEnv{srv: srv, board: board, manager: manager, clock: clock}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		r = bytes.NewReader(data)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func ptr[T any](v T) *T { return &v }

func farms() []domain.FarmRecord {
	return []domain.FarmRecord{
		{ID: 1, LivestockType: "돼지", LivestockCount: 1000, Lat: ptr(36.79), Lng: ptr(127.0)},
		{ID: 2, LivestockType: "한우", LivestockCount: 100, Lat: ptr(36.80), Lng: ptr(127.1)},
		{ID: 3, LivestockType: "돼지", LivestockCount: 500},
	}
}

func TestHealthzReturns200(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	env := newTestEnv(t, fmt.Errorf("not ready yet"))
	rec := env.do(http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestComputePlumes(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodPost, "/v1/plumes", map[string]any{
		"farms":   farms(),
		"weather": domain.WeatherSnapshot{WindDirectionDeg: 90, WindSpeedMps: 0.3, HumidityPct: 80, Stability: "stable"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[struct {
		Weather  domain.Weather `json:"weather"`
		Guidance string         `json:"guidance"`
		Plumes   []domain.Plume `json:"plumes"`
	}](t, rec)

	require.Len(t, body.Plumes, 2, "farm without coordinates is skipped")
	assert.Equal(t, 1, body.Plumes[0].FarmID)
	assert.Equal(t, 39060.0, body.Plumes[0].Radius)
	assert.Equal(t, 60.0, body.Plumes[0].StartAngle)
	assert.Equal(t, 120.0, body.Plumes[0].EndAngle)
	assert.Equal(t, domain.StabilityStable, body.Weather.Stability)
	assert.Equal(t, "Light wind: odor may spread widely.", body.Guidance)
}

func TestComputePlumes_WorstScenarioUsesBoardDirection(t *testing.T) {
	env := newTestEnv(t, nil)
	env.board.UpdateLive(domain.Weather{WindDirectionDeg: 270, WindSpeedMps: 3, HumidityPct: 20}, time.Now())

	rec := env.do(http.MethodPost, "/v1/plumes", map[string]any{"farms": farms(), "scenario": "worst"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Weather domain.Weather `json:"weather"`
	}](t, rec)
	assert.Equal(t, domain.Weather{WindDirectionDeg: 270, WindSpeedMps: 1, HumidityPct: 98, Stability: domain.StabilityStable}, body.Weather)
}

func TestComputePlumes_GeoJSON(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodPost, "/v1/plumes?format=geojson", map[string]any{"farms": farms()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	body := decode[struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string        `json:"type"`
				Coordinates [][][]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}](t, rec)

	assert.Equal(t, "FeatureCollection", body.Type)
	require.Len(t, body.Features, 2)
	f := body.Features[0]
	assert.Equal(t, "Polygon", f.Geometry.Type)
	ring := f.Geometry.Coordinates[0]
	assert.Equal(t, []float64{127.0, 36.79}, ring[0], "ring starts at the farm, [lng, lat]")
	assert.Equal(t, ring[0], ring[len(ring)-1], "ring is closed")
	assert.InDelta(t, 1.0, f.Properties["farmId"], 1e-9)
}

func TestComputePlumes_BadBody(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/plumes", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClusters(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodPost, "/v1/clusters", map[string]any{
		"complaints": []domain.ComplaintPoint{
			{ID: 1, Lat: ptr(36.7800), Lng: ptr(127.1), Region: "배방읍"},
			{ID: 2, Lat: ptr(36.7801), Lng: ptr(127.1)},
			{ID: 3, Lat: ptr(36.7900), Lng: ptr(127.1)},
			{ID: 4},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Clusters []struct {
			Count       int    `json:"count"`
			Region      string `json:"region"`
			MarkerScale int    `json:"markerScale"`
		} `json:"clusters"`
	}](t, rec)
	require.Len(t, body.Clusters, 2)
	assert.Equal(t, 2, body.Clusters[0].Count)
	assert.Equal(t, "배방읍", body.Clusters[0].Region)
	assert.Equal(t, domain.MarkerScale(2), body.Clusters[0].MarkerScale)
}

func TestClusters_NegativeThreshold(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodPost, "/v1/clusters", map[string]any{"complaints": []any{}, "thresholdMeters": -5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComplaintStats(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodPost, "/v1/complaints/stats", map[string]any{
		"complaints": []domain.ComplaintPoint{
			{ID: 1, Region: "배방읍", Date: "2024-06-03"},
			{ID: 2, Region: "배방읍", Date: "2024-07-01"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[domain.ComplaintStats](t, rec)
	assert.Equal(t, 2, body.Total)
	require.NotEmpty(t, body.ByRegion)
	assert.Equal(t, domain.BucketCount{Label: "배방읍", Count: 2}, body.ByRegion[0])
}

func TestWeather(t *testing.T) {
	env := newTestEnv(t, nil)
	at := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	env.board.UpdateLive(domain.Weather{WindDirectionDeg: 45, WindSpeedMps: 2.5, HumidityPct: 60}, at)
	env.board.SetForecast([]domain.Weather{{WindSpeedMps: 1}})

	rec := env.do(http.MethodGet, "/v1/weather", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Live      domain.Weather   `json:"live"`
		Forecast  []domain.Weather `json:"forecast"`
		UpdatedAt time.Time        `json:"updatedAt"`
		Guidance  string           `json:"guidance"`
	}](t, rec)
	assert.Equal(t, 45.0, body.Live.WindDirectionDeg)
	assert.Len(t, body.Forecast, 1)
	assert.True(t, at.Equal(body.UpdatedAt))
	assert.Equal(t, "Strong wind: odor disperses quickly.", body.Guidance)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/v1/sessions", domain.SessionUpdate{Farms: farms()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	id, _ := created["id"].(string)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, "dispatched", created["decision"])
	assert.Equal(t, true, created["available"])
	assert.Equal(t, "/v1/sessions/"+id, rec.Header().Get("Location"))

	require.Eventually(t, func() bool {
		env.clock.Advance(16 * time.Millisecond)
		rec := env.do(http.MethodGet, "/v1/sessions/"+id+"/plumes", nil)
		return rec.Code == http.StatusOK && decode[map[string]any](t, rec)["ready"] == true
	}, time.Second, time.Millisecond)

	rec = env.do(http.MethodGet, "/v1/sessions/"+id+"/plumes", nil)
	body := decode[struct {
		SessionID string         `json:"session_id"`
		Plumes    []domain.Plume `json:"plumes"`
	}](t, rec)
	assert.Equal(t, id, body.SessionID)
	assert.Len(t, body.Plumes, 2)

	rec = env.do(http.MethodPut, "/v1/sessions/"+id, domain.SessionUpdate{Farms: farms()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unchanged", decode[map[string]any](t, rec)["decision"])

	rec = env.do(http.MethodDelete, "/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodDelete, "/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(http.MethodGet, "/v1/sessions/"+id+"/plumes", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionClusters(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPut, "/v1/sessions/view-1", domain.SessionUpdate{
		Complaints: []domain.ComplaintPoint{{ID: 1, Lat: ptr(36.78), Lng: ptr(127.1)}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/v1/sessions/view-1/clusters?format=geojson", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}](t, rec)
	require.Len(t, body.Features, 1)
	assert.Equal(t, "Point", body.Features[0].Geometry.Type)
	assert.Equal(t, []float64{127.1, 36.78}, body.Features[0].Geometry.Coordinates)
}
