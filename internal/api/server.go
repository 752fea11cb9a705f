package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gridlock-systems/junction.report/internal/journal"
	"github.com/gridlock-systems/junction.report/internal/monitoring"
	"github.com/gridlock-systems/junction.report/internal/signal"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// StatusSource exposes the controller's live state to the API without the
// API holding the controller itself.
type StatusSource interface {
	Last() signal.TickResult
	Summary() signal.Summary
	SignalID() string
}

// Server serves the passive monitoring API: current signal status, journal
// history, and debug charts. It never writes to the engine.
type Server struct {
	status  StatusSource
	journal *journal.Journal
}

// NewServer creates a monitoring server. journal may be nil, in which case
// history endpoints return 404.
func NewServer(status StatusSource, j *journal.Journal) *Server {
	return &Server{status: status, journal: j}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	}
}

// logRequests wraps a handler with request logging through the package
// logger.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf("%s%s%s %s %s (%s)",
			colorCyan, r.Method, colorReset, r.URL.Path,
			statusCodeColor(lrw.statusCode), time.Since(start))
	})
}

// Routes registers all API handlers on mux and returns it wrapped with
// request logging.
func (s *Server) Routes(mux *http.ServeMux) http.Handler {
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/approaches", s.handleApproaches)
	mux.HandleFunc("/api/ticks", s.handleTicks)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/yields", s.handleYields)
	mux.HandleFunc("/debug/charts/density", s.handleDensityChart)
	mux.HandleFunc("/debug/charts/priority", s.handlePriorityChart)
	return logRequests(mux)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("api: encode response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// statusResponse flattens the live tick result for consumers.
type statusResponse struct {
	SignalID             string             `json:"signal_id"`
	SimTime              float64            `json:"sim_time"`
	Phase                int                `json:"phase"`
	LightState           string             `json:"light_state"`
	TimeInPhase          float64            `json:"time_in_phase"`
	PhaseDuration        float64            `json:"phase_duration"`
	RecommendedApproach  string             `json:"recommended_approach"`
	RecommendedGreenTime float64            `json:"recommended_green"`
	TotalVehicles        int                `json:"total_vehicles"`
	EmergencyVehicles    int                `json:"emergency_vehicles"`
	AverageWaiting       float64            `json:"average_waiting"`
	EfficiencyScore      float64            `json:"efficiency_score"`
	Warnings             []string           `json:"warnings,omitempty"`
	DoubleFaults         int                `json:"double_faults"`
	Summary              signal.Summary     `json:"summary"`
	Emergency            *emergencyResponse `json:"emergency,omitempty"`
}

type emergencyResponse struct {
	ID          string `json:"id"`
	Approach    string `json:"approach"`
	TargetPhase int    `json:"target_phase"`
	ActionTaken bool   `json:"action_taken"`
	Granted     bool   `json:"granted"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	last := s.status.Last()
	resp := statusResponse{
		SignalID:             s.status.SignalID(),
		SimTime:              last.Time,
		Phase:                int(last.Phase),
		LightState:           last.LightState,
		TimeInPhase:          last.TimeInPhase,
		PhaseDuration:        last.PhaseDuration,
		RecommendedApproach:  string(last.Recommendation.RecommendedApproach),
		RecommendedGreenTime: last.Recommendation.RecommendedGreenTime,
		TotalVehicles:        last.Recommendation.TotalVehicles,
		EmergencyVehicles:    last.Recommendation.EmergencyVehicles,
		AverageWaiting:       last.Recommendation.AverageWaiting,
		EfficiencyScore:      last.Recommendation.EfficiencyScore,
		Warnings:             last.Warnings,
		DoubleFaults:         last.ConsecutiveDoubleFaults,
		Summary:              s.status.Summary(),
	}
	if ev := last.Emergency; ev != nil {
		resp.Emergency = &emergencyResponse{
			ID:          ev.ID,
			Approach:    string(ev.Approach),
			TargetPhase: int(ev.TargetPhase),
			ActionTaken: ev.ActionTaken,
			Granted:     ev.Granted,
		}
	}
	s.writeJSON(w, resp)
}

// approachResponse is one approach's live metrics.
type approachResponse struct {
	Approach   string  `json:"approach"`
	Density    float64 `json:"density"`
	Trend      float64 `json:"trend"`
	Priority   float64 `json:"priority"`
	Congestion string  `json:"congestion"`
	Vehicles   int     `json:"vehicles"`
	Emergency  int     `json:"emergency"`
}

func (s *Server) handleApproaches(w http.ResponseWriter, r *http.Request) {
	last := s.status.Last()
	rec := last.Recommendation
	out := make([]approachResponse, 0, len(signal.ApproachOrder))
	for _, a := range signal.ApproachOrder {
		counts := rec.TypeCounts[a]
		vehicles := 0
		for _, n := range counts {
			vehicles += n
		}
		out = append(out, approachResponse{
			Approach:   string(a),
			Density:    rec.Densities[a],
			Trend:      rec.Trends[a],
			Priority:   rec.Priorities[a],
			Congestion: string(rec.Congestion[a]),
			Vehicles:   vehicles,
			Emergency:  counts[signal.VehicleEmergency],
		})
	}
	s.writeJSON(w, out)
}

// limitParam parses the optional ?limit= query parameter.
func limitParam(r *http.Request, def int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 10000 {
			return v
		}
	}
	return def
}

func (s *Server) handleTicks(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeJSONError(w, http.StatusNotFound, "journal not configured")
		return
	}
	ticks, err := s.journal.RecentTicks(limitParam(r, 100))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, ticks)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeJSONError(w, http.StatusNotFound, "journal not configured")
		return
	}
	events, err := s.journal.RecentEmergencies(limitParam(r, 100))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, events)
}

func (s *Server) handleYields(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeJSONError(w, http.StatusNotFound, "journal not configured")
		return
	}
	yields, err := s.journal.RecentYields(limitParam(r, 100))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, yields)
}
