// Package sim provides a deterministic in-process stand-in for the external
// traffic engine. It implements both ends of the engine boundary
// (signal.Feed and signal.Actuator) so the controller can run in dev mode
// and in integration tests without a live simulation attached.
//
// Vehicle movement is deliberately crude: vehicles roll toward the stop
// line at a constant speed, stop on red or on a yield command, and leave
// the junction on green. Physics and routing stay out of scope.
package sim

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/gridlock-systems/junction.report/internal/signal"
)

// Config holds the generator's parameters.
type Config struct {
	Seed                 int64
	ArrivalRates         map[signal.Approach]float64 // vehicles per second per approach
	EmergencyProbability float64                     // chance a spawned vehicle is an emergency
	LeftTurnProbability  float64                     // chance a spawned vehicle turns left
	ApproachLength       float64                     // metres from spawn point to stop line
	CruiseSpeed          float64                     // metres per second
}

// DefaultConfig returns a light, asymmetric traffic pattern that exercises
// preemptive switching within a few simulated minutes.
func DefaultConfig() Config {
	return Config{
		Seed: 1,
		ArrivalRates: map[signal.Approach]float64{
			signal.North: 0.10,
			signal.South: 0.08,
			signal.East:  0.04,
			signal.West:  0.03,
		},
		EmergencyProbability: 0.002,
		LeftTurnProbability:  0.25,
		ApproachLength:       100,
		CruiseSpeed:          10,
	}
}

type vehicle struct {
	id       string
	kind     signal.VehicleType
	approach signal.Approach
	next     signal.Approach
	distance float64 // to stop line
	waiting  float64
	yielded  bool // commanded to stop this tick
}

// Junction is the simulated intersection state. All methods are safe for
// concurrent use; the controller and the HTTP layer may touch it from
// different goroutines.
type Junction struct {
	mu     sync.Mutex
	config Config
	rng    *rand.Rand

	now           float64
	phase         signal.PhaseIndex
	phaseDuration float64
	lightStates   map[signal.PhaseIndex]string

	vehicles map[string]*vehicle
	order    map[signal.Approach][]string // stable per-approach id order
	nextID   int
}

// New creates a junction with the given config; zero fields fall back to
// defaults.
func New(config Config) *Junction {
	def := DefaultConfig()
	if config.ArrivalRates == nil {
		config.ArrivalRates = def.ArrivalRates
	}
	if config.ApproachLength <= 0 {
		config.ApproachLength = def.ApproachLength
	}
	if config.CruiseSpeed <= 0 {
		config.CruiseSpeed = def.CruiseSpeed
	}
	if config.LeftTurnProbability <= 0 {
		config.LeftTurnProbability = def.LeftTurnProbability
	}

	return &Junction{
		config:        config,
		rng:           rand.New(rand.NewSource(config.Seed)),
		phaseDuration: 30,
		lightStates: map[signal.PhaseIndex]string{
			signal.PhaseNorthSouthGreen:  "GGGggrrrrrGGGggrrrrr",
			signal.PhaseNorthSouthYellow: "yyyyyrrrrryyyyyrrrrr",
			signal.PhaseEastWestGreen:    "rrrrrGGGggrrrrrGGGgg",
			signal.PhaseEastWestYellow:   "rrrrryyyyyrrrrryyyyy",
		},
		vehicles: make(map[string]*vehicle),
		order:    make(map[signal.Approach][]string),
	}
}

// Step advances the simulation by dt seconds: spawn arrivals, move or hold
// vehicles, retire vehicles that crossed on green.
func (j *Junction) Step(dt float64) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.now += dt

	for _, a := range signal.ApproachOrder {
		if j.rng.Float64() < j.config.ArrivalRates[a]*dt {
			j.spawnLocked(a)
		}
	}

	for _, a := range signal.ApproachOrder {
		green := j.phase == signal.GreenPhaseFor(a)
		kept := j.order[a][:0]
		for _, id := range j.order[a] {
			v := j.vehicles[id]
			switch {
			case v.yielded:
				v.waiting += dt
				v.yielded = false // yields are re-issued every tick
			case v.distance <= 0 && green:
				// Crossed the junction; out of scope from here.
				delete(j.vehicles, id)
				continue
			case v.distance <= 0:
				v.waiting += dt
			default:
				v.distance -= j.config.CruiseSpeed * dt
				if v.distance < 0 {
					v.distance = 0
				}
			}
			kept = append(kept, id)
		}
		j.order[a] = kept
	}
}

func (j *Junction) spawnLocked(a signal.Approach) {
	j.nextID++
	id := fmt.Sprintf("veh-%d", j.nextID)

	kind := signal.VehicleCar
	switch {
	case j.rng.Float64() < j.config.EmergencyProbability:
		kind = signal.VehicleEmergency
	case j.rng.Float64() < 0.1:
		kind = signal.VehicleBus
	case j.rng.Float64() < 0.1:
		kind = signal.VehicleBike
	}

	next := signal.ThroughTarget(a)
	if j.rng.Float64() < j.config.LeftTurnProbability {
		next = signal.LeftTurnTarget(a)
	}

	j.vehicles[id] = &vehicle{
		id:       id,
		kind:     kind,
		approach: a,
		next:     next,
		distance: j.config.ApproachLength,
	}
	j.order[a] = append(j.order[a], id)
}

// InjectEmergency spawns an emergency vehicle near the stop line of the
// given approach. Used by tests and the dev harness.
func (j *Junction) InjectEmergency(a signal.Approach) string {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.nextID++
	id := fmt.Sprintf("veh-%d", j.nextID)
	j.vehicles[id] = &vehicle{
		id:       id,
		kind:     signal.VehicleEmergency,
		approach: a,
		next:     signal.ThroughTarget(a),
		distance: j.config.ApproachLength / 2,
	}
	j.order[a] = append(j.order[a], id)
	return id
}

// Now returns the current simulation time.
func (j *Junction) Now() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.now
}

// Feed interface.

func (j *Junction) VehicleCount(a signal.Approach) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !a.Valid() {
		return 0, fmt.Errorf("%w: approach %q", signal.ErrUnknownEntity, a)
	}
	return len(j.order[a]), nil
}

func (j *Junction) VehicleIDs(a signal.Approach) ([]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !a.Valid() {
		return nil, fmt.Errorf("%w: approach %q", signal.ErrUnknownEntity, a)
	}
	out := make([]string, len(j.order[a]))
	copy(out, j.order[a])
	return out, nil
}

func (j *Junction) VehicleType(vehicleID string) (signal.VehicleType, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, ok := j.vehicles[vehicleID]
	if !ok {
		return "", fmt.Errorf("%w: vehicle %q", signal.ErrUnknownEntity, vehicleID)
	}
	return v.kind, nil
}

func (j *Junction) VehicleWaitingTime(vehicleID string) (float64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, ok := j.vehicles[vehicleID]
	if !ok {
		return 0, fmt.Errorf("%w: vehicle %q", signal.ErrUnknownEntity, vehicleID)
	}
	return v.waiting, nil
}

func (j *Junction) VehiclePosition(vehicleID string) (signal.VehiclePosition, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, ok := j.vehicles[vehicleID]
	if !ok {
		return signal.VehiclePosition{}, fmt.Errorf("%w: vehicle %q", signal.ErrUnknownEntity, vehicleID)
	}
	return signal.VehiclePosition{
		CurrentApproach:    v.approach,
		NextApproach:       v.next,
		DistanceToStopLine: v.distance,
	}, nil
}

func (j *Junction) SimulationTime() (float64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.now, nil
}

// Actuator interface.

func (j *Junction) SetPhase(signalID string, phase signal.PhaseIndex) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !phase.Valid() {
		return fmt.Errorf("%w: %d", signal.ErrInvalidPhaseIndex, phase)
	}
	j.phase = phase
	return nil
}

func (j *Junction) SetPhaseDuration(signalID string, seconds float64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if seconds <= 0 {
		return fmt.Errorf("%w: duration %.2f", signal.ErrActuationFailure, seconds)
	}
	j.phaseDuration = seconds
	return nil
}

func (j *Junction) SetVehicleSpeed(vehicleID string, speed float64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, ok := j.vehicles[vehicleID]
	if !ok {
		return fmt.Errorf("%w: vehicle %q", signal.ErrUnknownEntity, vehicleID)
	}
	if speed == 0 {
		v.yielded = true
	}
	return nil
}

func (j *Junction) Phase(signalID string) (signal.PhaseIndex, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.phase, nil
}

func (j *Junction) PhaseDuration(signalID string) (float64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.phaseDuration, nil
}

func (j *Junction) LightState(signalID string) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lightStates[j.phase], nil
}
