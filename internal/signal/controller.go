package signal

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gridlock-systems/junction.report/internal/config"
	"github.com/gridlock-systems/junction.report/internal/monitoring"
)

// ControllerConfig wires all component parameters together.
type ControllerConfig struct {
	SignalID         string
	Tracker          DensityTrackerConfig
	Machine          PhaseMachineConfig
	Preemptor        PreemptorConfig
	ConflictDistance float64
}

// DefaultControllerConfig returns production-default parameters for every
// component.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		SignalID:         "center",
		Tracker:          DefaultDensityTrackerConfig(),
		Machine:          DefaultPhaseMachineConfig(),
		Preemptor:        DefaultPreemptorConfig(),
		ConflictDistance: DefaultConflictDistance,
	}
}

// ControllerConfigFromTuning derives a ControllerConfig from a TuningConfig.
func ControllerConfigFromTuning(t *config.TuningConfig) ControllerConfig {
	return ControllerConfig{
		SignalID: t.GetSignalID(),
		Tracker: DensityTrackerConfig{
			ApproachLength:  t.GetApproachLength(),
			HistoryCapacity: t.GetHistoryCapacity(),
			TrendWindow:     t.GetTrendWindow(),
		},
		Machine: PhaseMachineConfig{
			MinGreen:     t.GetMinGreen(),
			MaxGreen:     t.GetMaxGreen(),
			Yellow:       t.GetYellowDuration(),
			PreemptRatio: t.GetPreemptRatio(),
		},
		Preemptor: PreemptorConfig{
			OverrideDuration: t.GetOverrideDuration(),
			DirectOverride:   t.GetDirectOverride(),
		},
		ConflictDistance: t.GetConflictDistance(),
	}
}

// TickResult is the structured record produced for every controller tick.
// Rendering and metrics collectors consume it passively.
type TickResult struct {
	ID            string
	Time          float64
	Phase         PhaseIndex
	LightState    string
	TimeInPhase   float64
	PhaseDuration float64

	Recommendation Recommendation
	Transition     *Transition
	Emergency      *EmergencyEvent
	Yields         []YieldDecision

	Warnings                []string
	ConsecutiveDoubleFaults int
}

// Recorder receives each tick's result for persistence. Recording failures
// are logged, never fatal to the control loop.
type Recorder interface {
	RecordTick(result TickResult) error
}

// Summary aggregates counters over a controller's lifetime, reported on
// shutdown in headless runs.
type Summary struct {
	Ticks           int
	Transitions     int
	Preemptions     int
	EmergencyEvents int
	YieldsIssued    int
}

// Controller orchestrates the engine once per external simulation tick:
// snapshot, density update, aggregation, emergency first refusal, phase
// evaluation, actuation, conflict pass. It owns all cross-tick state.
type Controller struct {
	config    ControllerConfig
	feed      Feed
	actuator  Actuator
	tracker   *DensityTracker
	machine   *PhaseMachine
	preemptor *Preemptor
	resolver  *ConflictResolver
	recorder  Recorder

	lastTime     float64
	doubleFaults int
	summary      Summary

	// mu guards last for concurrent reads from the HTTP API. Tick itself
	// is single-threaded by contract.
	mu   sync.RWMutex
	last TickResult
}

// NewController wires up a controller. recorder may be nil.
func NewController(cfg ControllerConfig, feed Feed, actuator Actuator, recorder Recorder) *Controller {
	if cfg.SignalID == "" {
		cfg.SignalID = "center"
	}
	return &Controller{
		config:    cfg,
		feed:      feed,
		actuator:  actuator,
		tracker:   NewDensityTracker(cfg.Tracker),
		machine:   NewPhaseMachine(cfg.Machine),
		preemptor: NewPreemptor(cfg.Preemptor),
		resolver:  NewConflictResolver(cfg.ConflictDistance),
		recorder:  recorder,
	}
}

// Tick runs one full decision cycle and returns its structured result.
// External failures degrade to defaults and surface as warnings; the loop
// itself never aborts.
func (c *Controller) Tick() TickResult {
	snap := TakeSnapshot(c.feed)

	feedFault := !snap.TimeValid
	if feedFault {
		// Clock is the one feed value with no safe zero: estimate it so
		// phase timing keeps moving.
		snap.Time = c.lastTime + 1
	}
	c.lastTime = snap.Time

	result := TickResult{
		ID:       uuid.NewString(),
		Time:     snap.Time,
		Warnings: snap.Warnings,
	}

	actFault := c.reconcilePhase(&result)

	for _, a := range ApproachOrder {
		c.tracker.Record(a, snap.Approaches[a].VehicleCount)
	}
	result.Recommendation = Aggregate(c.tracker, snap)

	ev, forced := c.preemptor.Check(snap.Time, snap, c.machine)
	result.Emergency = ev

	transition := forced
	if forced == nil {
		if tr, ok := c.machine.Evaluate(snap.Time, result.Recommendation.Priorities); ok {
			transition = &tr
		}
	}
	result.Transition = transition

	if transition != nil {
		if !c.actuate(&result, c.machine.Current(), c.machine.CurrentPhase().Duration) {
			actFault = true
		}
	}

	result.Yields = c.resolver.Resolve(snap.Vehicles)
	for _, y := range result.Yields {
		if err := c.actuator.SetVehicleSpeed(y.VehicleID, y.Speed); err != nil {
			c.warn(&result, fmt.Sprintf("yield command for %s: %v", y.VehicleID, err))
		}
	}

	if feedFault && actFault {
		c.doubleFaults++
	} else {
		c.doubleFaults = 0
	}
	result.ConsecutiveDoubleFaults = c.doubleFaults

	result.Phase = c.machine.Current()
	result.LightState = c.machine.CurrentPhase().LightState
	result.TimeInPhase = c.machine.TimeInPhase(snap.Time)
	result.PhaseDuration = c.machine.CurrentPhase().Duration

	if c.recorder != nil {
		if err := c.recorder.RecordTick(result); err != nil {
			monitoring.Logf("journal: record tick %s: %v", result.ID, err)
		}
	}

	c.mu.Lock()
	c.summary.Ticks++
	if transition != nil {
		c.summary.Transitions++
		if transition.Preemptive {
			c.summary.Preemptions++
		}
	}
	if ev != nil {
		c.summary.EmergencyEvents++
	}
	c.summary.YieldsIssued += len(result.Yields)
	c.last = result
	c.mu.Unlock()

	return result
}

// reconcilePhase adopts the engine's authoritative phase read-back. Errors
// and out-of-range indices leave the last-known phase in place and surface
// as warnings. Returns true when the actuation side failed outright.
func (c *Controller) reconcilePhase(result *TickResult) bool {
	readBack, err := c.actuator.Phase(c.config.SignalID)
	if err != nil {
		c.warn(result, fmt.Sprintf("phase read-back: %v", err))
		return true
	}
	if !readBack.Valid() {
		c.warn(result, fmt.Sprintf("phase read-back out of range: %d, keeping phase %d", readBack, c.machine.Current()))
		return false
	}
	if c.machine.Reconcile(readBack) {
		c.warn(result, fmt.Sprintf("phase reconciled to engine read-back %d", readBack))
	}
	return false
}

// actuate pushes a decided phase and duration. Returns false on failure.
func (c *Controller) actuate(result *TickResult, phase PhaseIndex, duration float64) bool {
	ok := true
	if err := c.actuator.SetPhase(c.config.SignalID, phase); err != nil {
		c.warn(result, fmt.Sprintf("set phase %d: %v", phase, err))
		ok = false
	}
	if err := c.actuator.SetPhaseDuration(c.config.SignalID, duration); err != nil {
		c.warn(result, fmt.Sprintf("set phase duration %.1f: %v", duration, err))
		ok = false
	}
	return ok
}

func (c *Controller) warn(result *TickResult, msg string) {
	monitoring.Logf("controller: %s", msg)
	result.Warnings = append(result.Warnings, msg)
}

// Last returns the most recent tick result. Safe for concurrent readers.
func (c *Controller) Last() TickResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Summary returns lifetime counters.
func (c *Controller) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.summary
}

// SignalID returns the controlled signal's identifier.
func (c *Controller) SignalID() string { return c.config.SignalID }

// Reset returns the engine to its initial program: phase 0, empty
// histories, no pending override. The base program is re-actuated;
// actuation failures are logged and ignored.
func (c *Controller) Reset() {
	c.tracker.Reset()
	c.machine.Reset()
	c.preemptor.Reset()
	c.lastTime = 0
	c.doubleFaults = 0

	if err := c.actuator.SetPhase(c.config.SignalID, PhaseNorthSouthGreen); err != nil {
		monitoring.Logf("controller: reset phase: %v", err)
	}
	if err := c.actuator.SetPhaseDuration(c.config.SignalID, c.machine.CurrentPhase().Duration); err != nil {
		monitoring.Logf("controller: reset duration: %v", err)
	}
}
