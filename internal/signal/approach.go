package signal

// Approach identifies one of the four directional legs feeding the
// intersection. The set is fixed; all per-approach maps in this package are
// keyed by these values and iterated in ApproachOrder.
type Approach string

const (
	North Approach = "north"
	South Approach = "south"
	East  Approach = "east"
	West  Approach = "west"
)

// ApproachOrder is the canonical iteration order. Ranking ties and
// emergency scan order both resolve first-seen against this slice.
var ApproachOrder = []Approach{North, South, East, West}

// opposites maps each approach to the leg facing it across the junction.
var opposites = map[Approach]Approach{
	North: South,
	South: North,
	East:  West,
	West:  East,
}

// leftTurns maps an entry approach to the exit leg a left turn ends on,
// for right-hand traffic on a standard 4-leg junction.
var leftTurns = map[Approach]Approach{
	North: East,
	South: West,
	East:  South,
	West:  North,
}

// throughMoves maps an entry approach to the exit leg of the straight-ahead
// movement.
var throughMoves = map[Approach]Approach{
	North: South,
	South: North,
	East:  West,
	West:  East,
}

// Valid reports whether a is one of the four fixed approaches.
func (a Approach) Valid() bool {
	_, ok := opposites[a]
	return ok
}

// Opposite returns the approach geometrically opposite a.
func (a Approach) Opposite() Approach {
	return opposites[a]
}

// Axis groups the two approaches served together by a green phase.
type Axis int

const (
	AxisNorthSouth Axis = iota
	AxisEastWest
)

// AxisOf returns the signal axis an approach belongs to.
func AxisOf(a Approach) Axis {
	if a == North || a == South {
		return AxisNorthSouth
	}
	return AxisEastWest
}

// Served returns the two approaches a green phase on the axis serves.
func (x Axis) Served() [2]Approach {
	if x == AxisNorthSouth {
		return [2]Approach{North, South}
	}
	return [2]Approach{East, West}
}

// LeftTurnTarget returns the exit leg of a left turn from a.
func LeftTurnTarget(a Approach) Approach {
	return leftTurns[a]
}

// ThroughTarget returns the exit leg of the through movement from a.
func ThroughTarget(a Approach) Approach {
	return throughMoves[a]
}

// IsLeftTurn reports whether moving from current to next is one of the four
// canonical left-turn movements.
func IsLeftTurn(current, next Approach) bool {
	return leftTurns[current] == next && current.Valid()
}

// IsThrough reports whether moving from current to next is a straight-ahead
// movement.
func IsThrough(current, next Approach) bool {
	return throughMoves[current] == next && current.Valid()
}
