package signal

import "fmt"

// Shared test fixtures for the engine package.

// fakeVehicle is one scripted vehicle in a fakeFeed.
type fakeVehicle struct {
	approach Approach
	vtype    VehicleType
	waiting  float64
	position VehiclePosition
	noPos    bool
}

// fakeFeed is a scripted Feed with per-query error injection.
type fakeFeed struct {
	now    float64
	nowErr error

	vehicles map[string]fakeVehicle
	order    map[Approach][]string

	countErr map[Approach]error
	idsErr   map[Approach]error
	typeErr  map[string]error
	waitErr  map[string]error
	posErr   map[string]error
}

func newFakeFeed(now float64) *fakeFeed {
	return &fakeFeed{
		now:      now,
		vehicles: make(map[string]fakeVehicle),
		order:    make(map[Approach][]string),
		countErr: make(map[Approach]error),
		idsErr:   make(map[Approach]error),
		typeErr:  make(map[string]error),
		waitErr:  make(map[string]error),
		posErr:   make(map[string]error),
	}
}

func (f *fakeFeed) add(id string, v fakeVehicle) {
	f.vehicles[id] = v
	f.order[v.approach] = append(f.order[v.approach], id)
}

func (f *fakeFeed) addCars(a Approach, n int) {
	for i := 0; i < n; i++ {
		f.add(fmt.Sprintf("%s-car-%d", a, len(f.order[a])), fakeVehicle{
			approach: a,
			vtype:    VehicleCar,
			position: VehiclePosition{CurrentApproach: a, NextApproach: a.Opposite(), DistanceToStopLine: 50},
		})
	}
}

func (f *fakeFeed) VehicleCount(a Approach) (int, error) {
	if err := f.countErr[a]; err != nil {
		return 0, err
	}
	return len(f.order[a]), nil
}

func (f *fakeFeed) VehicleIDs(a Approach) ([]string, error) {
	if err := f.idsErr[a]; err != nil {
		return nil, err
	}
	return f.order[a], nil
}

func (f *fakeFeed) VehicleType(id string) (VehicleType, error) {
	if err := f.typeErr[id]; err != nil {
		return "", err
	}
	v, ok := f.vehicles[id]
	if !ok {
		return "", fmt.Errorf("vehicle %s: %w", id, ErrUnknownEntity)
	}
	return v.vtype, nil
}

func (f *fakeFeed) VehicleWaitingTime(id string) (float64, error) {
	if err := f.waitErr[id]; err != nil {
		return 0, err
	}
	v, ok := f.vehicles[id]
	if !ok {
		return 0, fmt.Errorf("vehicle %s: %w", id, ErrUnknownEntity)
	}
	return v.waiting, nil
}

func (f *fakeFeed) VehiclePosition(id string) (VehiclePosition, error) {
	if err := f.posErr[id]; err != nil {
		return VehiclePosition{}, err
	}
	v, ok := f.vehicles[id]
	if !ok || v.noPos {
		return VehiclePosition{}, fmt.Errorf("vehicle %s: %w", id, ErrUnknownEntity)
	}
	return v.position, nil
}

func (f *fakeFeed) SimulationTime() (float64, error) {
	if f.nowErr != nil {
		return 0, f.nowErr
	}
	return f.now, nil
}

// fakeActuator records actuation commands and supports error injection.
type fakeActuator struct {
	phase    PhaseIndex
	duration float64
	light    string
	speeds   map[string]float64

	setPhaseErr error
	speedErr    error
	readErr     error

	setPhaseCalls int
}

func newFakeActuator() *fakeActuator {
	return &fakeActuator{speeds: make(map[string]float64)}
}

func (f *fakeActuator) SetPhase(signalID string, phase PhaseIndex) error {
	if f.setPhaseErr != nil {
		return f.setPhaseErr
	}
	f.phase = phase
	f.setPhaseCalls++
	return nil
}

func (f *fakeActuator) SetPhaseDuration(signalID string, seconds float64) error {
	f.duration = seconds
	return nil
}

func (f *fakeActuator) SetVehicleSpeed(vehicleID string, speed float64) error {
	if f.speedErr != nil {
		return f.speedErr
	}
	f.speeds[vehicleID] = speed
	return nil
}

func (f *fakeActuator) Phase(signalID string) (PhaseIndex, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.phase, nil
}

func (f *fakeActuator) PhaseDuration(signalID string) (float64, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.duration, nil
}

func (f *fakeActuator) LightState(signalID string) (string, error) {
	if f.readErr != nil {
		return "", f.readErr
	}
	return f.light, nil
}

func emptySnapshot(now float64) Snapshot {
	snap := Snapshot{
		Time:       now,
		TimeValid:  true,
		Approaches: make(map[Approach]ApproachObservation, len(ApproachOrder)),
	}
	for _, a := range ApproachOrder {
		snap.Approaches[a] = ApproachObservation{
			Approach:   a,
			TypeCounts: map[VehicleType]int{VehicleCar: 0, VehicleBus: 0, VehicleBike: 0, VehicleEmergency: 0},
		}
	}
	return snap
}

func withVehicles(snap Snapshot, a Approach, count int) Snapshot {
	obs := snap.Approaches[a]
	obs.VehicleCount = count
	obs.TypeCounts[VehicleCar] += count
	snap.Approaches[a] = obs
	return snap
}

func withEmergency(snap Snapshot, a Approach, count int) Snapshot {
	obs := snap.Approaches[a]
	obs.EmergencyCount = count
	obs.VehicleCount += count
	obs.TypeCounts[VehicleEmergency] += count
	snap.Approaches[a] = obs
	return snap
}

func withWaiting(snap Snapshot, a Approach, total float64, samples int) Snapshot {
	obs := snap.Approaches[a]
	obs.WaitingTotal = total
	obs.WaitingSamples = samples
	snap.Approaches[a] = obs
	return snap
}

// vehicleAt builds a positioned vehicle observation for conflict tests.
func vehicleAt(id string, current, next Approach, distance float64) VehicleObservation {
	return VehicleObservation{
		ID:       id,
		Approach: current,
		Type:     VehicleCar,
		Position: VehiclePosition{
			CurrentApproach:    current,
			NextApproach:       next,
			DistanceToStopLine: distance,
		},
		HasPosition: true,
	}
}
