package signal

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Green-time recommendation constants, in seconds.
const (
	baseGreenTime       = 30.0
	minRecommendedGreen = 15.0
	maxRecommendedGreen = 60.0
)

// Recommendation is the system-wide view derived from one tick's snapshot.
// It is recomputed fresh each tick and never persisted by the engine itself
// (the journal stores a copy for operators).
type Recommendation struct {
	Densities  map[Approach]float64
	Trends     map[Approach]float64
	Priorities map[Approach]float64
	Congestion map[Approach]CongestionLevel
	TypeCounts map[Approach]map[VehicleType]int

	RecommendedApproach  Approach
	RecommendedGreenTime float64

	TotalVehicles     int
	EmergencyVehicles int
	AverageWaiting    float64
	AverageDensity    float64
	MaxDensity        float64
	EfficiencyScore   float64
}

// Aggregate ranks all approaches and derives health metrics from the
// current tracker state and snapshot. It does not mutate either input, so
// calling it twice in the same tick yields identical output.
func Aggregate(tracker *DensityTracker, snap Snapshot) Recommendation {
	rec := Recommendation{
		Densities:  make(map[Approach]float64, len(ApproachOrder)),
		Trends:     make(map[Approach]float64, len(ApproachOrder)),
		Priorities: make(map[Approach]float64, len(ApproachOrder)),
		Congestion: make(map[Approach]CongestionLevel, len(ApproachOrder)),
		TypeCounts: make(map[Approach]map[VehicleType]int, len(ApproachOrder)),
	}

	var (
		totalDensity float64
		densities    []float64
		best         Approach
		bestPriority = math.Inf(-1)
	)

	for _, a := range ApproachOrder {
		obs := snap.Approaches[a]
		density := tracker.Latest(a)
		trend := tracker.Trend(a)

		rec.Densities[a] = density
		rec.Trends[a] = trend
		rec.Priorities[a] = PriorityScore(density, trend, obs.EmergencyCount)
		rec.Congestion[a] = ClassifyCongestion(density)

		counts := make(map[VehicleType]int, len(obs.TypeCounts))
		for vt, n := range obs.TypeCounts {
			counts[vt] = n
		}
		rec.TypeCounts[a] = counts

		rec.TotalVehicles += obs.VehicleCount
		rec.EmergencyVehicles += obs.EmergencyCount

		totalDensity += density
		densities = append(densities, density)
		if density > rec.MaxDensity {
			rec.MaxDensity = density
		}

		// Strict comparison: the first approach in canonical order wins
		// ties.
		if rec.Priorities[a] > bestPriority {
			bestPriority = rec.Priorities[a]
			best = a
		}
	}

	rec.RecommendedApproach = best
	rec.RecommendedGreenTime = recommendGreenTime(rec.Densities[best], totalDensity)
	rec.AverageDensity = stat.Mean(densities, nil)
	rec.AverageWaiting = averageWaiting(snap)
	rec.EfficiencyScore = efficiencyScore(rec.AverageWaiting)

	return rec
}

// recommendGreenTime scales the base green time by how much of the total
// density sits on the recommended approach. An empty junction keeps the
// base timing.
func recommendGreenTime(recommendedDensity, totalDensity float64) float64 {
	if totalDensity <= 0 {
		return baseGreenTime
	}
	ratio := recommendedDensity / totalDensity
	green := math.Round(baseGreenTime * (1 + 2*ratio))
	return clamp(minRecommendedGreen, maxRecommendedGreen, green)
}

func averageWaiting(snap Snapshot) float64 {
	var total float64
	var n int
	for _, a := range ApproachOrder {
		obs := snap.Approaches[a]
		total += obs.WaitingTotal
		n += obs.WaitingSamples
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// efficiencyScore compresses average waiting time into a 0..100 operator
// metric: every second of average wait costs two points.
func efficiencyScore(avgWaiting float64) float64 {
	score := 100 - avgWaiting*2
	if score < 0 {
		return 0
	}
	return score
}

func clamp(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
