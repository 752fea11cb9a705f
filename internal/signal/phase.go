package signal

// PhaseIndex addresses the fixed four-entry phase table.
type PhaseIndex int

const (
	PhaseNorthSouthGreen PhaseIndex = iota
	PhaseNorthSouthYellow
	PhaseEastWestGreen
	PhaseEastWestYellow

	phaseCount = 4
)

// Valid reports whether p addresses the fixed phase table.
func (p PhaseIndex) Valid() bool {
	return p >= 0 && p < phaseCount
}

// Next returns the phase following p in the strict cycle.
func (p PhaseIndex) Next() PhaseIndex {
	return (p + 1) % phaseCount
}

// IsGreen reports whether p is one of the two green phases.
func (p PhaseIndex) IsGreen() bool {
	return p == PhaseNorthSouthGreen || p == PhaseEastWestGreen
}

// ServedAxis returns the axis a phase serves (the yellow phases belong to
// the axis they are clearing).
func (p PhaseIndex) ServedAxis() Axis {
	if p == PhaseNorthSouthGreen || p == PhaseNorthSouthYellow {
		return AxisNorthSouth
	}
	return AxisEastWest
}

// GreenPhaseFor returns the green phase serving an approach's axis.
func GreenPhaseFor(a Approach) PhaseIndex {
	if AxisOf(a) == AxisNorthSouth {
		return PhaseNorthSouthGreen
	}
	return PhaseEastWestGreen
}

// Phase is one entry of the signal program. LightState is the per-link
// red/yellow/green encoding the downstream engine expects; green durations
// are adaptive, yellow durations constant.
type Phase struct {
	Index      PhaseIndex
	LightState string
	Duration   float64
}

// Timing constants in seconds.
const (
	// MinGreen and MaxGreen bound every recomputed green duration.
	MinGreen = 15.0
	MaxGreen = 90.0
	// YellowDuration is fixed; yellow phases are never adapted.
	YellowDuration = 3.0
	// DefaultPreemptRatio: a waiting axis must beat the served axis by
	// this factor before its green is cut short.
	DefaultPreemptRatio = 1.5
)

// PhaseMachineConfig holds the state machine's tunable parameters.
type PhaseMachineConfig struct {
	MinGreen     float64
	MaxGreen     float64
	Yellow       float64
	PreemptRatio float64
}

// DefaultPhaseMachineConfig returns production-default timing parameters.
func DefaultPhaseMachineConfig() PhaseMachineConfig {
	return PhaseMachineConfig{
		MinGreen:     MinGreen,
		MaxGreen:     MaxGreen,
		Yellow:       YellowDuration,
		PreemptRatio: DefaultPreemptRatio,
	}
}

// defaultPhaseTable builds the four-entry program. Greens start at the base
// recommendation and adapt on every entry; yellows are fixed.
func defaultPhaseTable(yellow float64) [phaseCount]Phase {
	return [phaseCount]Phase{
		{Index: PhaseNorthSouthGreen, LightState: "GGGggrrrrrGGGggrrrrr", Duration: baseGreenTime},
		{Index: PhaseNorthSouthYellow, LightState: "yyyyyrrrrryyyyyrrrrr", Duration: yellow},
		{Index: PhaseEastWestGreen, LightState: "rrrrrGGGggrrrrrGGGgg", Duration: baseGreenTime},
		{Index: PhaseEastWestYellow, LightState: "rrrrryyyyyrrrrryyyyy", Duration: yellow},
	}
}

// Transition describes one phase change decided by the machine.
type Transition struct {
	From       PhaseIndex
	To         PhaseIndex
	Duration   float64 // duration granted to the new phase
	Preemptive bool    // cut short by a waiting axis
	Forced     bool    // imposed by the emergency preemptor
}

// PhaseMachine owns the signal's current phase and timing. It is the only
// writer of the phase index and phase clock besides the Preemptor, and the
// single-threaded tick model means the two never race.
type PhaseMachine struct {
	config PhaseMachineConfig
	phases [phaseCount]Phase

	current    PhaseIndex
	startTime  float64 // simulation time the current phase began
	hasStarted bool
}

// NewPhaseMachine creates a machine at phase 0 with default timings for
// any unset config field.
func NewPhaseMachine(config PhaseMachineConfig) *PhaseMachine {
	def := DefaultPhaseMachineConfig()
	if config.MinGreen <= 0 {
		config.MinGreen = def.MinGreen
	}
	if config.MaxGreen <= config.MinGreen {
		config.MaxGreen = def.MaxGreen
	}
	if config.Yellow <= 0 {
		config.Yellow = def.Yellow
	}
	if config.PreemptRatio <= 0 {
		config.PreemptRatio = def.PreemptRatio
	}
	return &PhaseMachine{
		config: config,
		phases: defaultPhaseTable(config.Yellow),
	}
}

// Current returns the active phase index.
func (m *PhaseMachine) Current() PhaseIndex { return m.current }

// CurrentPhase returns a copy of the active phase entry.
func (m *PhaseMachine) CurrentPhase() Phase { return m.phases[m.current] }

// PhaseAt returns a copy of the table entry for p. Out-of-range indices
// return the phase-0 entry.
func (m *PhaseMachine) PhaseAt(p PhaseIndex) Phase {
	if !p.Valid() {
		p = PhaseNorthSouthGreen
	}
	return m.phases[p]
}

// TimeInPhase returns how long the current phase has been held at the given
// simulation time. The clock is anchored on the first tick observed.
func (m *PhaseMachine) TimeInPhase(now float64) float64 {
	if !m.hasStarted {
		return 0
	}
	d := now - m.startTime
	if d < 0 {
		return 0
	}
	return d
}

// Evaluate applies the normal and preemptive transition rules for one tick.
// It returns the transition taken, if any.
//
// Normal rule: the phase advances once it has been held for its duration.
// Preemptive rule: while a green phase has been held at least MinGreen, the
// waiting axis may force an early advance when its best priority exceeds
// the served axis's best priority by the configured ratio. The advance
// still passes through the intermediate yellow.
func (m *PhaseMachine) Evaluate(now float64, priorities map[Approach]float64) (Transition, bool) {
	if !m.hasStarted {
		m.startTime = now
		m.hasStarted = true
	}

	held := m.TimeInPhase(now)

	if m.current.IsGreen() && held >= m.config.MinGreen {
		current := maxAxisPriority(priorities, m.current.ServedAxis())
		waiting := maxAxisPriority(priorities, otherAxis(m.current.ServedAxis()))
		if waiting > current*m.config.PreemptRatio {
			return m.advance(now, priorities, true), true
		}
	}

	if held >= m.phases[m.current].Duration {
		return m.advance(now, priorities, false), true
	}

	return Transition{}, false
}

// advance moves to the next phase in the cycle, recomputing the duration
// when entering a green.
func (m *PhaseMachine) advance(now float64, priorities map[Approach]float64, preemptive bool) Transition {
	from := m.current
	m.current = m.current.Next()
	m.startTime = now

	if m.current.IsGreen() {
		priority := maxAxisPriority(priorities, m.current.ServedAxis())
		m.phases[m.current].Duration = m.greenDuration(priority)
	}

	return Transition{
		From:       from,
		To:         m.current,
		Duration:   m.phases[m.current].Duration,
		Preemptive: preemptive,
	}
}

// Force moves the machine directly to the given phase with an explicit
// duration, resetting the phase clock. Used by the emergency preemptor;
// invalid targets are ignored.
func (m *PhaseMachine) Force(now float64, target PhaseIndex, duration float64) Transition {
	if !target.Valid() {
		target = m.current
	}
	from := m.current
	m.current = target
	m.startTime = now
	m.hasStarted = true
	if duration > 0 {
		m.phases[target].Duration = duration
	}
	return Transition{From: from, To: target, Duration: m.phases[target].Duration, Forced: true}
}

// Reconcile adopts the authoritative engine's read-back phase when it
// disagrees with the machine's own index. The phase clock is kept: elapsed
// time since our last transition remains the best available estimate.
// Invalid read-back indices are ignored (last-known phase wins).
func (m *PhaseMachine) Reconcile(readBack PhaseIndex) bool {
	if !readBack.Valid() || readBack == m.current {
		return false
	}
	m.current = readBack
	return true
}

// Reset returns the machine to phase 0 with the base program.
func (m *PhaseMachine) Reset() {
	m.phases = defaultPhaseTable(m.config.Yellow)
	m.current = PhaseNorthSouthGreen
	m.startTime = 0
	m.hasStarted = false
}

// greenDuration scales a green phase's duration with the serving axis's
// priority, bounded to [MinGreen, MaxGreen] regardless of magnitude.
func (m *PhaseMachine) greenDuration(priority float64) float64 {
	d := m.config.MinGreen + (priority/100)*(m.config.MaxGreen-m.config.MinGreen)
	return clamp(m.config.MinGreen, m.config.MaxGreen, d)
}

func maxAxisPriority(priorities map[Approach]float64, axis Axis) float64 {
	served := axis.Served()
	a, b := priorities[served[0]], priorities[served[1]]
	if a > b {
		return a
	}
	return b
}

func otherAxis(x Axis) Axis {
	if x == AxisNorthSouth {
		return AxisEastWest
	}
	return AxisNorthSouth
}
