package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlock-systems/junction.report/internal/journal"
	"github.com/gridlock-systems/junction.report/internal/signal"
)

// stubStatus is a canned StatusSource.
type stubStatus struct {
	last    signal.TickResult
	summary signal.Summary
	id      string
}

func (s *stubStatus) Last() signal.TickResult { return s.last }
func (s *stubStatus) Summary() signal.Summary { return s.summary }
func (s *stubStatus) SignalID() string { return s.id }

func newStubStatus() *stubStatus {
	return &stubStatus{
		id: "center",
		last: signal.TickResult{
			ID:            "tick-1",
			Time:          120,
			Phase:         signal.PhaseEastWestGreen,
			LightState:    "rrrrrGGGggrrrrrGGGgg",
			TimeInPhase:   8,
			PhaseDuration: 45,
			Recommendation: signal.Recommendation{
				Densities:  map[signal.Approach]float64{signal.East: 0.35},
				Trends:     map[signal.Approach]float64{signal.East: 0.02},
				Priorities: map[signal.Approach]float64{signal.East: 36},
				Congestion: map[signal.Approach]signal.CongestionLevel{signal.East: signal.CongestionHigh},
				TypeCounts: map[signal.Approach]map[signal.VehicleType]int{
					signal.East: {signal.VehicleCar: 30, signal.VehicleBus: 5},
				},
				RecommendedApproach:  signal.East,
				RecommendedGreenTime: 55,
				TotalVehicles:        35,
				AverageWaiting:       6,
				EfficiencyScore:      88,
			},
		},
		summary: signal.Summary{Ticks: 120, Transitions: 7, Preemptions: 1},
	}
}

func serve(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	handler := NewServer(newStubStatus(), nil).Routes(http.NewServeMux())
	w := serve(t, handler, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok\n", w.Body.String())
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	status := newStubStatus()
	status.last.Emergency = &signal.EmergencyEvent{
		ID:          "ev-1",
		Approach:    signal.West,
		TargetPhase: signal.PhaseEastWestGreen,
		ActionTaken: true,
		Granted:     true,
	}
	handler := NewServer(status, nil).Routes(http.NewServeMux())

	w := serve(t, handler, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "center", resp["signal_id"])
	assert.Equal(t, float64(120), resp["sim_time"])
	assert.Equal(t, float64(2), resp["phase"])
	assert.Equal(t, "east", resp["recommended_approach"])
	assert.Equal(t, float64(35), resp["total_vehicles"])

	em, ok := resp["emergency"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "west", em["approach"])
	assert.Equal(t, true, em["granted"])

	sum, ok := resp["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(120), sum["Ticks"])
}

func TestApproachesEndpoint(t *testing.T) {
	t.Parallel()

	handler := NewServer(newStubStatus(), nil).Routes(http.NewServeMux())
	w := serve(t, handler, "/api/approaches")
	require.Equal(t, http.StatusOK, w.Code)

	var out []approachResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 4)
	assert.Equal(t, "north", out[0].Approach)

	var east approachResponse
	for _, a := range out {
		if a.Approach == "east" {
			east = a
		}
	}
	assert.InDelta(t, 0.35, east.Density, 1e-12)
	assert.Equal(t, 35, east.Vehicles)
	assert.Equal(t, "High", east.Congestion)
}

func TestHistoryEndpointsWithoutJournal(t *testing.T) {
	t.Parallel()

	handler := NewServer(newStubStatus(), nil).Routes(http.NewServeMux())
	for _, path := range []string{"/api/ticks", "/api/events", "/api/yields"} {
		w := serve(t, handler, path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp["error"], "journal")
	}
}

func TestHistoryEndpoints(t *testing.T) {
	t.Parallel()

	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	for i := 0; i < 3; i++ {
		result := newStubStatus().last
		result.ID = string(rune('a' + i))
		result.Time = float64(i)
		require.NoError(t, j.RecordTick(result))
	}

	handler := NewServer(newStubStatus(), j).Routes(http.NewServeMux())

	w := serve(t, handler, "/api/ticks?limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	var ticks []journal.TickRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticks))
	require.Len(t, ticks, 2)
	assert.Equal(t, "c", ticks[0].TickID)

	w = serve(t, handler, "/api/events")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(t, handler, "/api/yields")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestChartEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("no journal", func(t *testing.T) {
		t.Parallel()
		handler := NewServer(newStubStatus(), nil).Routes(http.NewServeMux())
		w := serve(t, handler, "/debug/charts/density")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("empty journal has no samples", func(t *testing.T) {
		t.Parallel()
		j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
		require.NoError(t, err)
		defer j.Close()

		handler := NewServer(newStubStatus(), j).Routes(http.NewServeMux())
		w := serve(t, handler, "/debug/charts/density")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("renders html from journaled samples", func(t *testing.T) {
		t.Parallel()
		j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
		require.NoError(t, err)
		defer j.Close()
		require.NoError(t, j.RecordTick(newStubStatus().last))

		handler := NewServer(newStubStatus(), j).Routes(http.NewServeMux())
		for _, path := range []string{"/debug/charts/density", "/debug/charts/priority"} {
			w := serve(t, handler, path)
			assert.Equal(t, http.StatusOK, w.Code, path)
			assert.Contains(t, w.Body.String(), "echarts", path)
		}
	})
}

func TestLimitParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  int
	}{
		{"", 100},
		{"?limit=5", 5},
		{"?limit=0", 100},
		{"?limit=-3", 100},
		{"?limit=nope", 100},
		{"?limit=20000", 100},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/ticks"+tt.query, nil)
		assert.Equal(t, tt.want, limitParam(req, 100), tt.query)
	}
}
