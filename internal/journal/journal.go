// Package journal persists the controller's tick decisions to sqlite so
// operators and offline tools can inspect how the signal behaved.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/gridlock-systems/junction.report/internal/signal"
)

type Journal struct {
	*sql.DB
}

// Open opens (creating if needed) the journal database at path and ensures
// the base schema exists.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS ticks (
			tick_id               TEXT PRIMARY KEY,
			sim_time              DOUBLE,
			phase                 BIGINT,
			light_state           TEXT,
			time_in_phase         DOUBLE,
			phase_duration        DOUBLE,
			recommended_approach  TEXT,
			recommended_green     DOUBLE,
			total_vehicles        BIGINT,
			emergency_vehicles    BIGINT,
			average_waiting       DOUBLE,
			efficiency_score      DOUBLE,
			double_faults         BIGINT,
			warnings              TEXT,
			timestamp             TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS approach_samples (
			tick_id               TEXT,
			sim_time              DOUBLE,
			approach              TEXT,
			density               DOUBLE,
			trend                 DOUBLE,
			priority              DOUBLE,
			congestion            TEXT,
			FOREIGN KEY(tick_id) REFERENCES ticks(tick_id)
		);
		CREATE TABLE IF NOT EXISTS emergency_events (
			event_id              TEXT PRIMARY KEY,
			tick_id               TEXT,
			approach              TEXT,
			detected_at           DOUBLE,
			target_phase          BIGINT,
			action_taken          BOOLEAN,
			granted               BOOLEAN,
			FOREIGN KEY(tick_id) REFERENCES ticks(tick_id)
		);
		CREATE TABLE IF NOT EXISTS yield_decisions (
			tick_id               TEXT,
			sim_time              DOUBLE,
			vehicle_id            TEXT,
			blocking_vehicle_id   TEXT,
			FOREIGN KEY(tick_id) REFERENCES ticks(tick_id)
		);
		CREATE INDEX IF NOT EXISTS idx_approach_samples_time ON approach_samples(sim_time);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}

	return &Journal{db}, nil
}

// RecordTick stores a full tick result in one transaction. It implements
// signal.Recorder.
func (j *Journal) RecordTick(result signal.TickResult) error {
	warnings, err := json.Marshal(result.Warnings)
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	tx, err := j.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rec := result.Recommendation
	_, err = tx.Exec(`
		INSERT INTO ticks (
			tick_id, sim_time, phase, light_state, time_in_phase,
			phase_duration, recommended_approach, recommended_green,
			total_vehicles, emergency_vehicles, average_waiting,
			efficiency_score, double_faults, warnings
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.Time, int(result.Phase), result.LightState,
		result.TimeInPhase, result.PhaseDuration,
		string(rec.RecommendedApproach), rec.RecommendedGreenTime,
		rec.TotalVehicles, rec.EmergencyVehicles, rec.AverageWaiting,
		rec.EfficiencyScore, result.ConsecutiveDoubleFaults, string(warnings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert tick: %w", err)
	}

	for _, a := range signal.ApproachOrder {
		_, err = tx.Exec(`
			INSERT INTO approach_samples (tick_id, sim_time, approach, density, trend, priority, congestion)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			result.ID, result.Time, string(a),
			rec.Densities[a], rec.Trends[a], rec.Priorities[a], string(rec.Congestion[a]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert approach sample: %w", err)
		}
	}

	if ev := result.Emergency; ev != nil {
		_, err = tx.Exec(`
			INSERT INTO emergency_events (event_id, tick_id, approach, detected_at, target_phase, action_taken, granted)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, result.ID, string(ev.Approach), ev.DetectedAt,
			int(ev.TargetPhase), ev.ActionTaken, ev.Granted,
		)
		if err != nil {
			return fmt.Errorf("failed to insert emergency event: %w", err)
		}
	}

	for _, y := range result.Yields {
		_, err = tx.Exec(`
			INSERT INTO yield_decisions (tick_id, sim_time, vehicle_id, blocking_vehicle_id)
			VALUES (?, ?, ?, ?)`,
			result.ID, result.Time, y.VehicleID, y.BlockingVehicleID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert yield decision: %w", err)
		}
	}

	return tx.Commit()
}

// TickRecord is one journaled tick, as returned by queries.
type TickRecord struct {
	TickID               string   `json:"tick_id"`
	SimTime              float64  `json:"sim_time"`
	Phase                int      `json:"phase"`
	LightState           string   `json:"light_state"`
	TimeInPhase          float64  `json:"time_in_phase"`
	PhaseDuration        float64  `json:"phase_duration"`
	RecommendedApproach  string   `json:"recommended_approach"`
	RecommendedGreenTime float64  `json:"recommended_green"`
	TotalVehicles        int      `json:"total_vehicles"`
	EmergencyVehicles    int      `json:"emergency_vehicles"`
	AverageWaiting       float64  `json:"average_waiting"`
	EfficiencyScore      float64  `json:"efficiency_score"`
	DoubleFaults         int      `json:"double_faults"`
	Warnings             []string `json:"warnings"`
}

// ApproachSample is one approach's journaled state at one tick.
type ApproachSample struct {
	TickID     string  `json:"tick_id"`
	SimTime    float64 `json:"sim_time"`
	Approach   string  `json:"approach"`
	Density    float64 `json:"density"`
	Trend      float64 `json:"trend"`
	Priority   float64 `json:"priority"`
	Congestion string  `json:"congestion"`
}

// EmergencyRecord is one journaled emergency event.
type EmergencyRecord struct {
	EventID     string  `json:"event_id"`
	TickID      string  `json:"tick_id"`
	Approach    string  `json:"approach"`
	DetectedAt  float64 `json:"detected_at"`
	TargetPhase int     `json:"target_phase"`
	ActionTaken bool    `json:"action_taken"`
	Granted     bool    `json:"granted"`
}

// YieldRecord is one journaled yield decision.
type YieldRecord struct {
	TickID            string  `json:"tick_id"`
	SimTime           float64 `json:"sim_time"`
	VehicleID         string  `json:"vehicle_id"`
	BlockingVehicleID string  `json:"blocking_vehicle_id"`
}

// RecentTicks returns up to limit ticks, newest first.
func (j *Journal) RecentTicks(limit int) ([]TickRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.Query(`
		SELECT tick_id, sim_time, phase, light_state, time_in_phase,
		       phase_duration, recommended_approach, recommended_green,
		       total_vehicles, emergency_vehicles, average_waiting,
		       efficiency_score, double_faults, warnings
		FROM ticks ORDER BY sim_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticks: %w", err)
	}
	defer rows.Close()

	var out []TickRecord
	for rows.Next() {
		var t TickRecord
		var warnings string
		if err := rows.Scan(
			&t.TickID, &t.SimTime, &t.Phase, &t.LightState, &t.TimeInPhase,
			&t.PhaseDuration, &t.RecommendedApproach, &t.RecommendedGreenTime,
			&t.TotalVehicles, &t.EmergencyVehicles, &t.AverageWaiting,
			&t.EfficiencyScore, &t.DoubleFaults, &warnings,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tick: %w", err)
		}
		if warnings != "" {
			if err := json.Unmarshal([]byte(warnings), &t.Warnings); err != nil {
				return nil, fmt.Errorf("failed to decode warnings: %w", err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ApproachSeries returns up to limit samples for one approach, oldest
// first, suitable for plotting.
func (j *Journal) ApproachSeries(approach string, limit int) ([]ApproachSample, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := j.Query(`
		SELECT tick_id, sim_time, approach, density, trend, priority, congestion
		FROM (
			SELECT * FROM approach_samples WHERE approach = ?
			ORDER BY sim_time DESC LIMIT ?
		) ORDER BY sim_time ASC`, approach, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query approach samples: %w", err)
	}
	defer rows.Close()

	var out []ApproachSample
	for rows.Next() {
		var s ApproachSample
		if err := rows.Scan(&s.TickID, &s.SimTime, &s.Approach, &s.Density, &s.Trend, &s.Priority, &s.Congestion); err != nil {
			return nil, fmt.Errorf("failed to scan approach sample: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecentEmergencies returns up to limit emergency events, newest first.
func (j *Journal) RecentEmergencies(limit int) ([]EmergencyRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.Query(`
		SELECT event_id, tick_id, approach, detected_at, target_phase, action_taken, granted
		FROM emergency_events ORDER BY detected_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query emergency events: %w", err)
	}
	defer rows.Close()

	var out []EmergencyRecord
	for rows.Next() {
		var e EmergencyRecord
		if err := rows.Scan(&e.EventID, &e.TickID, &e.Approach, &e.DetectedAt, &e.TargetPhase, &e.ActionTaken, &e.Granted); err != nil {
			return nil, fmt.Errorf("failed to scan emergency event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecentYields returns up to limit yield decisions, newest first.
func (j *Journal) RecentYields(limit int) ([]YieldRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.Query(`
		SELECT tick_id, sim_time, vehicle_id, blocking_vehicle_id
		FROM yield_decisions ORDER BY sim_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query yield decisions: %w", err)
	}
	defer rows.Close()

	var out []YieldRecord
	for rows.Next() {
		var y YieldRecord
		if err := rows.Scan(&y.TickID, &y.SimTime, &y.VehicleID, &y.BlockingVehicleID); err != nil {
			return nil, fmt.Errorf("failed to scan yield decision: %w", err)
		}
		out = append(out, y)
	}
	return out, rows.Err()
}
