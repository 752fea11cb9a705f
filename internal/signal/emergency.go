package signal

import (
	"github.com/google/uuid"
	"github.com/gridlock-systems/junction.report/internal/monitoring"
)

// DefaultOverrideDuration is the green time granted to an approach carrying
// an emergency vehicle, in seconds.
const DefaultOverrideDuration = 60.0

// PreemptorConfig holds the emergency preemptor's tunable parameters.
type PreemptorConfig struct {
	OverrideDuration float64
	// DirectOverride restores the legacy behaviour of jumping straight to
	// the target green. The default routes the override through the
	// serving axis's yellow so the junction never flips green to green.
	DirectOverride bool
}

// DefaultPreemptorConfig returns production-default preemption parameters.
func DefaultPreemptorConfig() PreemptorConfig {
	return PreemptorConfig{OverrideDuration: DefaultOverrideDuration}
}

// EmergencyEvent records a detected emergency vehicle and what, if
// anything, the preemptor did about it this tick.
type EmergencyEvent struct {
	ID          string
	Approach    Approach
	DetectedAt  float64 // simulation time of detection
	TargetPhase PhaseIndex
	ActionTaken bool // the preemptor changed or scheduled a phase change
	Granted     bool // the target green is active as of this tick
}

// Preemptor inspects each tick's snapshot for emergency vehicles and can
// force the phase machine into the green phase serving them. At most one
// override is applied per tick; the first approach in canonical order wins
// and remaining emergencies wait for the next tick.
type Preemptor struct {
	config PreemptorConfig

	// pending is set while an override waits out a yellow clearance.
	pending         bool
	pendingTarget   PhaseIndex
	pendingApproach Approach
}

// NewPreemptor creates a preemptor with defaults for unset config fields.
func NewPreemptor(config PreemptorConfig) *Preemptor {
	if config.OverrideDuration <= 0 {
		config.OverrideDuration = DefaultOverrideDuration
	}
	return &Preemptor{config: config}
}

// Check gives the preemptor first refusal on this tick's phase decision.
// It returns the emergency event observed (if any) and the forced
// transition (if one was applied). When a transition is returned the
// normal state machine evaluation must be skipped for the tick.
func (p *Preemptor) Check(now float64, snap Snapshot, m *PhaseMachine) (*EmergencyEvent, *Transition) {
	if p.pending {
		if ev, tr := p.servicePending(now, snap, m); ev != nil || tr != nil {
			return ev, tr
		}
		if p.pending {
			// Still clearing; suppress duplicate detections meanwhile.
			return nil, nil
		}
	}

	for _, a := range ApproachOrder {
		if snap.Approaches[a].EmergencyCount == 0 {
			continue
		}

		ev := &EmergencyEvent{
			ID:          uuid.NewString(),
			Approach:    a,
			DetectedAt:  now,
			TargetPhase: GreenPhaseFor(a),
		}

		current := m.Current()
		if current == ev.TargetPhase {
			// Already serving the axis; nothing to force.
			return ev, nil
		}

		if p.config.DirectOverride {
			tr := m.Force(now, ev.TargetPhase, p.config.OverrideDuration)
			ev.ActionTaken = true
			ev.Granted = true
			monitoring.Logf("emergency: direct override to phase %d for %s", ev.TargetPhase, a)
			return ev, &tr
		}

		// Clearance path: never flip green to green. A conflicting green
		// is cut to its own yellow first; a yellow is simply waited out.
		// Either way the grant happens once the yellow has run its course.
		p.pending = true
		p.pendingTarget = ev.TargetPhase
		p.pendingApproach = a
		ev.ActionTaken = true

		if current.IsGreen() {
			tr := m.Force(now, current.Next(), m.config.Yellow)
			monitoring.Logf("emergency: clearing phase %d via yellow for %s", current, a)
			return ev, &tr
		}
		monitoring.Logf("emergency: override for %s pending behind yellow phase %d", a, current)
		return ev, nil
	}

	return nil, nil
}

// servicePending grants a scheduled override once the clearance yellow has
// elapsed, or drops it if the emergency has left the junction.
func (p *Preemptor) servicePending(now float64, snap Snapshot, m *PhaseMachine) (*EmergencyEvent, *Transition) {
	served := p.pendingTarget.ServedAxis().Served()
	if snap.Approaches[served[0]].EmergencyCount == 0 && snap.Approaches[served[1]].EmergencyCount == 0 {
		monitoring.Logf("emergency: pending override for %s dropped, vehicle gone", p.pendingApproach)
		p.clearPending()
		return nil, nil
	}

	if m.Current().IsGreen() || m.TimeInPhase(now) < m.CurrentPhase().Duration {
		// Still clearing; hold the normal machine off the wrong green by
		// granting exactly when the yellow expires.
		if m.Current().IsGreen() && m.Current() != p.pendingTarget {
			// A competing transition put us back on a conflicting green;
			// restart the clearance on the next detection.
			p.clearPending()
		}
		return nil, nil
	}

	ev := &EmergencyEvent{
		ID:          uuid.NewString(),
		Approach:    p.pendingApproach,
		DetectedAt:  now,
		TargetPhase: p.pendingTarget,
		ActionTaken: true,
		Granted:     true,
	}
	tr := m.Force(now, p.pendingTarget, p.config.OverrideDuration)
	monitoring.Logf("emergency: override granted, phase %d for %s", p.pendingTarget, p.pendingApproach)
	p.clearPending()
	return ev, &tr
}

func (p *Preemptor) clearPending() {
	p.pending = false
	p.pendingTarget = 0
	p.pendingApproach = ""
}

// Reset drops any pending override.
func (p *Preemptor) Reset() {
	p.clearPending()
}
