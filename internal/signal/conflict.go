package signal

// DefaultConflictDistance is how close to the stop line (in simulation
// distance units) a vehicle must be before it enters the yielding pass.
const DefaultConflictDistance = 25.0

// TurningIntent is a vehicle about to turn left at the stop line.
type TurningIntent struct {
	VehicleID          string
	Current            Approach
	Next               Approach
	DistanceToStopLine float64
}

// YieldDecision commands a turning vehicle to stop for conflicting through
// traffic. Speed is the commanded speed, always zero.
type YieldDecision struct {
	VehicleID         string
	BlockingVehicleID string
	Speed             float64
}

// ConflictResolver models right-of-way at a junction without protected turn
// phases: an unprotected left turn yields to oncoming through traffic. The
// pass runs every tick, independent of the signal phase, and never alters
// it.
type ConflictResolver struct {
	distance float64
}

// NewConflictResolver creates a resolver; a non-positive distance falls
// back to the default threshold.
func NewConflictResolver(distance float64) *ConflictResolver {
	if distance <= 0 {
		distance = DefaultConflictDistance
	}
	return &ConflictResolver{distance: distance}
}

// Resolve classifies every vehicle near its stop line as a left turn or a
// through movement and issues one yield decision per left-turner that faces
// an oncoming through vehicle on the opposite approach.
func (r *ConflictResolver) Resolve(vehicles []VehicleObservation) []YieldDecision {
	var turners []TurningIntent
	through := make(map[Approach][]string)

	for _, v := range vehicles {
		if !v.HasPosition || v.Position.DistanceToStopLine >= r.distance {
			continue
		}
		current, next := v.Position.CurrentApproach, v.Position.NextApproach
		switch {
		case IsLeftTurn(current, next):
			turners = append(turners, TurningIntent{
				VehicleID:          v.ID,
				Current:            current,
				Next:               next,
				DistanceToStopLine: v.Position.DistanceToStopLine,
			})
		case IsThrough(current, next):
			through[current] = append(through[current], v.ID)
		}
	}

	var decisions []YieldDecision
	for _, t := range turners {
		oncoming := through[t.Current.Opposite()]
		if len(oncoming) == 0 {
			continue
		}
		decisions = append(decisions, YieldDecision{
			VehicleID:         t.VehicleID,
			BlockingVehicleID: oncoming[0],
		})
	}
	return decisions
}
