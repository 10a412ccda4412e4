package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lintang-b-s/roadmatch/pkg/matcher"
	"github.com/lintang-b-s/roadmatch/pkg/roadnetwork"
	"github.com/lintang-b-s/roadmatch/pkg/router"
	"github.com/lintang-b-s/roadmatch/pkg/spatial"
	"github.com/lintang-b-s/roadmatch/pkg/spatialindex"
)

func buildFixtureRouter(t *testing.T) http.Handler {
	t.Helper()
	m := roadnetwork.NewRoadMap()
	require.NoError(t, m.AddRoad(&roadnetwork.BaseRoad{
		ID: 1, Name: "Long St", RoadClass: "residential",
		Direction: roadnetwork.DirectionForward, MaxSpeedForwardKM: 50, MaxSpeedBackwardKM: 50, Priority: 1,
		Geometry: []spatial.Point{
			spatial.NewPoint(0, 0),
			spatial.NewPoint(0, 0.01),
		},
	}))

	idx, err := spatialindex.New(m)
	require.NoError(t, err)

	svc := NewMatchService(m, idx, router.New(m), matcher.NewConfig())
	return NewRouter(svc, RouterConfig{})
}

func TestUpdateEndpointReturnsCandidatesNearRoad(t *testing.T) {
	h := buildFixtureRouter(t)

	body, err := json.Marshal(updateRequest{Lat: 0.0001, Lon: 0.001, TimeUTC: time.Unix(1000, 0).Unix()})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/traces/trace-1/samples", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp candidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Candidates)
}

func TestUpdateEndpointRejectsMissingTime(t *testing.T) {
	h := buildFixtureRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/traces/trace-1/samples", bytes.NewReader([]byte(`{"lat":0.0001,"lon":0.001}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrajectoryEndpointAfterUpdates(t *testing.T) {
	h := buildFixtureRouter(t)

	for i := 0; i < 3; i++ {
		body, _ := json.Marshal(updateRequest{
			Lat:     0.0001,
			Lon:     0.001 * float64(i+1),
			TimeUTC: time.Unix(int64(1000+i*10), 0).Unix(),
		})
		req := httptest.NewRequest(http.MethodPost, "/api/traces/trace-2/samples", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/traces/trace-2/trajectory", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp trajectoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Points)
}

func TestResetEndpointClearsTrace(t *testing.T) {
	h := buildFixtureRouter(t)

	body, _ := json.Marshal(updateRequest{Lat: 0.0001, Lon: 0.001, TimeUTC: time.Unix(1000, 0).Unix()})
	req := httptest.NewRequest(http.MethodPost, "/api/traces/trace-3/samples", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/traces/trace-3/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestNearestRoadEndpoint(t *testing.T) {
	h := buildFixtureRouter(t)

	body, _ := json.Marshal(nearestRoadRequest{Lat: 0.0001, Lon: 0.005, Radius: 50, K: 1})
	req := httptest.NewRequest(http.MethodPost, "/api/nearest-road", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp nearestRoadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Roads, 1)
	assert.Equal(t, int64(2), resp.Roads[0].EdgeID)
}

func TestHealthEndpoint(t *testing.T) {
	h := buildFixtureRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

