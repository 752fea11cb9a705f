package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDensityRecord(t *testing.T) {
	t.Parallel()

	t.Run("density is count over length", func(t *testing.T) {
		t.Parallel()
		tracker := NewDensityTracker(DensityTrackerConfig{ApproachLength: 100})

		assert.InDelta(t, 0.4, tracker.Record(North, 40), 1e-12)
		assert.InDelta(t, 0.4, tracker.Latest(North), 1e-12)
	})

	t.Run("negative counts clamp to zero", func(t *testing.T) {
		t.Parallel()
		tracker := NewDensityTracker(DefaultDensityTrackerConfig())

		assert.Zero(t, tracker.Record(North, -3))
	})

	t.Run("histories are independent per approach", func(t *testing.T) {
		t.Parallel()
		tracker := NewDensityTracker(DensityTrackerConfig{ApproachLength: 100})

		tracker.Record(North, 10)
		tracker.Record(East, 20)

		assert.Len(t, tracker.History(North), 1)
		assert.Len(t, tracker.History(East), 1)
		assert.Empty(t, tracker.History(South))
	})
}

func TestDensityHistoryBound(t *testing.T) {
	t.Parallel()

	tracker := NewDensityTracker(DensityTrackerConfig{ApproachLength: 1})

	// Append well past capacity; retained samples must be exactly the
	// last 50, oldest evicted first.
	for i := 0; i < 120; i++ {
		tracker.Record(North, i)
	}

	h := tracker.History(North)
	require.Len(t, h, DefaultHistoryCapacity)
	for i, d := range h {
		assert.InDelta(t, float64(70+i), d, 1e-12)
	}
}

func TestDensityTrend(t *testing.T) {
	t.Parallel()

	t.Run("returns zero below the window", func(t *testing.T) {
		t.Parallel()
		tracker := NewDensityTracker(DefaultDensityTrackerConfig())

		for i := 0; i < DefaultTrendWindow-1; i++ {
			tracker.Record(North, 10)
		}
		assert.Zero(t, tracker.Trend(North))
	})

	t.Run("positive slope for growing density", func(t *testing.T) {
		t.Parallel()
		tracker := NewDensityTracker(DensityTrackerConfig{ApproachLength: 100})

		// Densities 0.00, 0.01, ... 0.09: exact slope 0.01 per sample.
		for i := 0; i < DefaultTrendWindow; i++ {
			tracker.Record(North, i)
		}
		assert.InDelta(t, 0.01, tracker.Trend(North), 1e-9)
	})

	t.Run("negative slope for draining density", func(t *testing.T) {
		t.Parallel()
		tracker := NewDensityTracker(DensityTrackerConfig{ApproachLength: 100})

		for i := DefaultTrendWindow; i > 0; i-- {
			tracker.Record(North, i)
		}
		assert.InDelta(t, -0.01, tracker.Trend(North), 1e-9)
	})

	t.Run("flat history has zero slope", func(t *testing.T) {
		t.Parallel()
		tracker := NewDensityTracker(DefaultDensityTrackerConfig())

		for i := 0; i < DefaultTrendWindow; i++ {
			tracker.Record(North, 25)
		}
		assert.InDelta(t, 0, tracker.Trend(North), 1e-9)
	})

	t.Run("uses only the most recent window", func(t *testing.T) {
		t.Parallel()
		tracker := NewDensityTracker(DensityTrackerConfig{ApproachLength: 100})

		// Old spike followed by a flat window: the spike must not leak
		// into the fit.
		tracker.Record(North, 90)
		for i := 0; i < DefaultTrendWindow; i++ {
			tracker.Record(North, 10)
		}
		assert.InDelta(t, 0, tracker.Trend(North), 1e-9)
	})
}

func TestDensityReset(t *testing.T) {
	t.Parallel()

	tracker := NewDensityTracker(DefaultDensityTrackerConfig())
	for i := 0; i < 20; i++ {
		tracker.Record(North, i)
		tracker.Record(West, i)
	}

	tracker.Reset()

	for _, a := range ApproachOrder {
		assert.Empty(t, tracker.History(a))
		assert.Zero(t, tracker.Latest(a))
		assert.Zero(t, tracker.Trend(a))
	}
}
