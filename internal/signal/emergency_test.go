package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreemptorClearanceFlow(t *testing.T) {
	t.Parallel()

	m := NewPhaseMachine(PhaseMachineConfig{})
	_, _ = m.Evaluate(0, nil)
	p := NewPreemptor(PreemptorConfig{})

	// Emergency on east while north-south holds green: the conflicting
	// green is cut to its own yellow, the grant is scheduled.
	snap := withEmergency(emptySnapshot(5), East, 1)
	ev, tr := p.Check(5, snap, m)
	require.NotNil(t, ev)
	require.NotNil(t, tr)
	assert.Equal(t, East, ev.Approach)
	assert.Equal(t, PhaseEastWestGreen, ev.TargetPhase)
	assert.True(t, ev.ActionTaken)
	assert.False(t, ev.Granted)
	assert.Equal(t, PhaseNorthSouthYellow, tr.To)
	assert.True(t, tr.Forced)
	assert.Equal(t, PhaseNorthSouthYellow, m.Current())

	// Mid-yellow nothing moves.
	snap = withEmergency(emptySnapshot(6), East, 1)
	ev, tr = p.Check(6, snap, m)
	assert.Nil(t, ev)
	assert.Nil(t, tr)

	// Yellow elapsed: the override is granted with the full duration.
	snap = withEmergency(emptySnapshot(8), East, 1)
	ev, tr = p.Check(8, snap, m)
	require.NotNil(t, ev)
	require.NotNil(t, tr)
	assert.True(t, ev.Granted)
	assert.Equal(t, PhaseEastWestGreen, tr.To)
	assert.InDelta(t, DefaultOverrideDuration, tr.Duration, 1e-12)
	assert.Equal(t, PhaseEastWestGreen, m.Current())
}

func TestPreemptorDirectOverride(t *testing.T) {
	t.Parallel()

	m := NewPhaseMachine(PhaseMachineConfig{})
	_, _ = m.Evaluate(0, nil)
	p := NewPreemptor(PreemptorConfig{DirectOverride: true, OverrideDuration: 45})

	snap := withEmergency(emptySnapshot(5), West, 1)
	ev, tr := p.Check(5, snap, m)
	require.NotNil(t, ev)
	require.NotNil(t, tr)
	assert.True(t, ev.Granted, "direct mode grants in the same tick")
	assert.Equal(t, PhaseEastWestGreen, tr.To)
	assert.InDelta(t, 45.0, tr.Duration, 1e-12)
	assert.Equal(t, PhaseEastWestGreen, m.Current())
}

func TestPreemptorAlreadyServing(t *testing.T) {
	t.Parallel()

	m := NewPhaseMachine(PhaseMachineConfig{})
	_, _ = m.Evaluate(0, nil)
	p := NewPreemptor(PreemptorConfig{})

	// North is already green; the event is recorded but no phase change
	// happens and the machine keeps its clock.
	snap := withEmergency(emptySnapshot(10), North, 1)
	ev, tr := p.Check(10, snap, m)
	require.NotNil(t, ev)
	assert.Nil(t, tr)
	assert.False(t, ev.ActionTaken)
	assert.Equal(t, PhaseNorthSouthGreen, m.Current())
	assert.InDelta(t, 10.0, m.TimeInPhase(10), 1e-12)
}

func TestPreemptorFirstApproachWins(t *testing.T) {
	t.Parallel()

	m := NewPhaseMachine(PhaseMachineConfig{})
	_, _ = m.Evaluate(0, nil)
	p := NewPreemptor(PreemptorConfig{DirectOverride: true})

	// Emergencies on both south and east in the same tick. South comes
	// first in canonical order but its axis is already served, so the
	// event reports south and east waits for a later tick.
	snap := withEmergency(emptySnapshot(5), East, 1)
	snap = withEmergency(snap, South, 1)
	ev, tr := p.Check(5, snap, m)
	require.NotNil(t, ev)
	assert.Equal(t, South, ev.Approach)
	assert.Nil(t, tr)
	assert.Equal(t, PhaseNorthSouthGreen, m.Current())
}

func TestPreemptorPendingDroppedWhenGone(t *testing.T) {
	t.Parallel()

	m := NewPhaseMachine(PhaseMachineConfig{})
	_, _ = m.Evaluate(0, nil)
	p := NewPreemptor(PreemptorConfig{})

	snap := withEmergency(emptySnapshot(5), East, 1)
	_, tr := p.Check(5, snap, m)
	require.NotNil(t, tr)

	// The vehicle clears the junction before the yellow runs out; the
	// scheduled override evaporates and later ticks see nothing.
	ev, tr := p.Check(8, emptySnapshot(8), m)
	assert.Nil(t, ev)
	assert.Nil(t, tr)

	snap = withEmergency(emptySnapshot(9), East, 1)
	ev, _ = p.Check(9, snap, m)
	require.NotNil(t, ev)
	assert.False(t, ev.Granted, "a fresh detection restarts the clearance")
}

func TestPreemptorReset(t *testing.T) {
	t.Parallel()

	m := NewPhaseMachine(PhaseMachineConfig{})
	_, _ = m.Evaluate(0, nil)
	p := NewPreemptor(PreemptorConfig{})

	snap := withEmergency(emptySnapshot(5), East, 1)
	_, tr := p.Check(5, snap, m)
	require.NotNil(t, tr)

	p.Reset()

	// After reset the pending override is gone; the same emergency is
	// treated as a new detection from the current (yellow) phase.
	snap = withEmergency(emptySnapshot(8), East, 1)
	ev, tr := p.Check(8, snap, m)
	require.NotNil(t, ev)
	assert.True(t, ev.ActionTaken)
	assert.False(t, ev.Granted)
	assert.Nil(t, tr, "yellow phases are waited out, not forced")
}
