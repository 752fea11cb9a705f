package signal

import (
	"errors"
	"fmt"

	"github.com/gridlock-systems/junction.report/internal/monitoring"
)

// Error taxonomy for the external boundaries. All four kinds are recovered
// at the component boundary with safe defaults; none may halt the tick.
var (
	// ErrFeedUnavailable marks a failed or timed-out feed query.
	ErrFeedUnavailable = errors.New("feed unavailable")
	// ErrUnknownEntity marks a reference to an approach or vehicle that no
	// longer exists (e.g. the vehicle left the simulation mid-tick).
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrInvalidPhaseIndex marks a read-back phase outside the fixed table.
	ErrInvalidPhaseIndex = errors.New("invalid phase index")
	// ErrActuationFailure marks a rejected actuation command.
	ErrActuationFailure = errors.New("actuation failure")
)

// VehicleType classifies vehicles reported by the feed.
type VehicleType string

const (
	VehicleCar       VehicleType = "car"
	VehicleBus       VehicleType = "bus"
	VehicleBike      VehicleType = "bike"
	VehicleEmergency VehicleType = "emergency"
)

// VehiclePosition locates a vehicle relative to the junction: the approach
// it is on, the leg its route exits on, and the distance left to the stop
// line in simulation distance units.
type VehiclePosition struct {
	CurrentApproach    Approach
	NextApproach       Approach
	DistanceToStopLine float64
}

// Feed is the pull interface to the external traffic engine, queried once
// per tick. Implementations must return an error rather than panic; callers
// substitute defaults per the taxonomy above.
type Feed interface {
	VehicleCount(a Approach) (int, error)
	VehicleIDs(a Approach) ([]string, error)
	VehicleType(vehicleID string) (VehicleType, error)
	VehicleWaitingTime(vehicleID string) (float64, error)
	VehiclePosition(vehicleID string) (VehiclePosition, error)
	SimulationTime() (float64, error)
}

// Actuator is the push interface to the external signal and vehicles.
type Actuator interface {
	SetPhase(signalID string, phase PhaseIndex) error
	SetPhaseDuration(signalID string, seconds float64) error
	SetVehicleSpeed(vehicleID string, speed float64) error

	// Read-back, used to reconcile the state machine with the
	// authoritative engine phase.
	Phase(signalID string) (PhaseIndex, error)
	PhaseDuration(signalID string) (float64, error)
	LightState(signalID string) (string, error)
}

// VehicleObservation is one vehicle's state as observed this tick.
// HasPosition is false when the position query failed; such vehicles still
// count toward totals but are invisible to the conflict resolver.
type VehicleObservation struct {
	ID          string
	Approach    Approach
	Type        VehicleType
	WaitingTime float64
	Position    VehiclePosition
	HasPosition bool
}

// ApproachObservation aggregates one approach's feed data for a tick.
type ApproachObservation struct {
	Approach       Approach
	VehicleCount   int
	EmergencyCount int
	TypeCounts     map[VehicleType]int
	WaitingTotal   float64
	WaitingSamples int
}

// Snapshot is everything the engine reads from the feed in one tick.
// TimeValid is false when the simulation clock query failed; the caller
// substitutes its own estimate of the tick time.
type Snapshot struct {
	Time       float64
	TimeValid  bool
	Approaches map[Approach]ApproachObservation
	Vehicles   []VehicleObservation
	Warnings   []string
}

// TakeSnapshot queries the feed for all four approaches. Any failed query
// degrades to "no data" for the entity concerned: zero count, no emergency,
// no vehicles. Each degradation is logged and recorded as a warning; the
// snapshot itself is always usable.
func TakeSnapshot(feed Feed) Snapshot {
	snap := Snapshot{Approaches: make(map[Approach]ApproachObservation, len(ApproachOrder))}

	now, err := feed.SimulationTime()
	if err != nil {
		snap.warnf("simulation time: %v", err)
		now = 0
	} else {
		snap.TimeValid = true
	}
	snap.Time = now

	for _, a := range ApproachOrder {
		obs := ApproachObservation{
			Approach:   a,
			TypeCounts: map[VehicleType]int{VehicleCar: 0, VehicleBus: 0, VehicleBike: 0, VehicleEmergency: 0},
		}

		count, err := feed.VehicleCount(a)
		if err != nil {
			snap.warnf("vehicle count for %s: %v", a, err)
			count = 0
		}
		if count < 0 {
			count = 0
		}
		obs.VehicleCount = count

		ids, err := feed.VehicleIDs(a)
		if err != nil {
			snap.warnf("vehicle ids for %s: %v", a, err)
			ids = nil
		}

		for _, id := range ids {
			v := VehicleObservation{ID: id, Approach: a, Type: VehicleCar}

			vt, err := feed.VehicleType(id)
			if err != nil {
				snap.warnf("vehicle type for %s: %v", id, err)
			} else {
				v.Type = vt
			}
			if _, known := obs.TypeCounts[v.Type]; known {
				obs.TypeCounts[v.Type]++
			}
			if v.Type == VehicleEmergency {
				obs.EmergencyCount++
			}

			wait, err := feed.VehicleWaitingTime(id)
			if err != nil {
				snap.warnf("waiting time for %s: %v", id, err)
			} else {
				v.WaitingTime = wait
				obs.WaitingTotal += wait
				obs.WaitingSamples++
			}

			pos, err := feed.VehiclePosition(id)
			if err != nil {
				snap.warnf("position for %s: %v", id, err)
			} else {
				v.Position = pos
				v.HasPosition = true
			}

			snap.Vehicles = append(snap.Vehicles, v)
		}

		snap.Approaches[a] = obs
	}

	return snap
}

func (s *Snapshot) warnf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	monitoring.Logf("feed: %s", msg)
	s.Warnings = append(s.Warnings, msg)
}
