package signal

// Priority weighting constants. Density dominates under steady load, the
// trend term rewards approaches that are filling up, and a single emergency
// vehicle outweighs any realistic density.
const (
	densityWeight   = 100.0
	trendWeight     = 50.0
	emergencyWeight = 200.0
)

// CongestionLevel is a coarse classification of an approach's density.
type CongestionLevel string

const (
	CongestionLow      CongestionLevel = "Low"
	CongestionMedium   CongestionLevel = "Medium"
	CongestionHigh     CongestionLevel = "High"
	CongestionCritical CongestionLevel = "Critical"
)

// Congestion thresholds in vehicles per metre. Each bound is exclusive for
// the level below it.
const (
	congestionMediumThreshold   = 0.1
	congestionHighThreshold     = 0.3
	congestionCriticalThreshold = 0.5
)

// PriorityScore combines density, trend and emergency presence into the
// scalar used to rank approaches. A negative trend can reduce the score but
// never below zero.
func PriorityScore(density, trend float64, emergencyCount int) float64 {
	score := density*densityWeight + trend*trendWeight + float64(emergencyCount)*emergencyWeight
	if score < 0 {
		return 0
	}
	return score
}

// ClassifyCongestion maps a density to its congestion level.
func ClassifyCongestion(density float64) CongestionLevel {
	switch {
	case density < congestionMediumThreshold:
		return CongestionLow
	case density < congestionHighThreshold:
		return CongestionMedium
	case density < congestionCriticalThreshold:
		return CongestionHigh
	default:
		return CongestionCritical
	}
}
