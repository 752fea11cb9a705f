package signal

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Constants for density tracking.
const (
	// DefaultHistoryCapacity bounds the per-approach sample history.
	// Oldest samples are evicted first once the bound is reached.
	DefaultHistoryCapacity = 50
	// DefaultTrendWindow is the number of recent samples the trend fit uses.
	DefaultTrendWindow = 10
	// DefaultApproachLength is the physical approach length in metres.
	DefaultApproachLength = 100.0
)

// DensityTrackerConfig holds construction parameters for a DensityTracker.
type DensityTrackerConfig struct {
	ApproachLength  float64 // metres of roadway per approach
	HistoryCapacity int     // max samples retained per approach
	TrendWindow     int     // samples used for the least-squares trend
}

// DefaultDensityTrackerConfig returns production-default tracker parameters.
func DefaultDensityTrackerConfig() DensityTrackerConfig {
	return DensityTrackerConfig{
		ApproachLength:  DefaultApproachLength,
		HistoryCapacity: DefaultHistoryCapacity,
		TrendWindow:     DefaultTrendWindow,
	}
}

// DensityTracker maintains a bounded FIFO history of density samples per
// approach and fits a short-term trend over the most recent window.
// It is mutated only by the controller's tick; reads between ticks are safe
// because the tick model is single-threaded.
type DensityTracker struct {
	config  DensityTrackerConfig
	history map[Approach][]float64
}

// NewDensityTracker creates a tracker for the four fixed approaches.
// Zero or negative config fields fall back to defaults.
func NewDensityTracker(config DensityTrackerConfig) *DensityTracker {
	def := DefaultDensityTrackerConfig()
	if config.ApproachLength <= 0 {
		config.ApproachLength = def.ApproachLength
	}
	if config.HistoryCapacity <= 0 {
		config.HistoryCapacity = def.HistoryCapacity
	}
	if config.TrendWindow <= 0 {
		config.TrendWindow = def.TrendWindow
	}

	h := make(map[Approach][]float64, len(ApproachOrder))
	for _, a := range ApproachOrder {
		h[a] = make([]float64, 0, config.HistoryCapacity)
	}
	return &DensityTracker{config: config, history: h}
}

// Record converts a vehicle count into a density (vehicles per metre),
// appends it to the approach's history and returns it. At capacity the
// oldest sample is evicted first.
func (t *DensityTracker) Record(a Approach, vehicleCount int) float64 {
	if vehicleCount < 0 {
		vehicleCount = 0
	}
	density := float64(vehicleCount) / t.config.ApproachLength

	h := t.history[a]
	if len(h) >= t.config.HistoryCapacity {
		h = h[1:]
	}
	t.history[a] = append(h, density)
	return density
}

// Latest returns the most recent density sample for the approach, or 0 if
// none has been recorded.
func (t *DensityTracker) Latest(a Approach) float64 {
	h := t.history[a]
	if len(h) == 0 {
		return 0
	}
	return h[len(h)-1]
}

// History returns a copy of the approach's retained samples, oldest first.
func (t *DensityTracker) History(a Approach) []float64 {
	h := t.history[a]
	out := make([]float64, len(h))
	copy(out, h)
	return out
}

// Trend fits a least-squares line through the most recent window of samples
// (x = sample index, y = density) and returns its slope. Fewer than a full
// window of samples, or an ill-conditioned fit, yields 0.
func (t *DensityTracker) Trend(a Approach) float64 {
	h := t.history[a]
	window := t.config.TrendWindow
	if len(h) < window || window < 2 {
		return 0
	}

	recent := h[len(h)-window:]
	xs := make([]float64, len(recent))
	for i := range xs {
		xs[i] = float64(i)
	}

	_, slope := stat.LinearRegression(xs, recent, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return 0
	}
	return slope
}

// Reset discards all retained samples.
func (t *DensityTracker) Reset() {
	for _, a := range ApproachOrder {
		t.history[a] = t.history[a][:0]
	}
}
