package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityScore(t *testing.T) {
	t.Parallel()

	t.Run("density only", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 40.0, PriorityScore(0.4, 0, 0), 1e-12)
	})

	t.Run("emergency dominates", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 240.0, PriorityScore(0.4, 0, 1), 1e-12)
	})

	t.Run("trend contributes", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 40.0+0.02*50, PriorityScore(0.4, 0.02, 0), 1e-12)
	})

	t.Run("never negative", func(t *testing.T) {
		t.Parallel()
		cases := []struct {
			density   float64
			trend     float64
			emergency int
		}{
			{0, -1, 0},
			{0.01, -100, 0},
			{0, -0.001, 0},
			{0, 0, 0},
		}
		for _, c := range cases {
			assert.GreaterOrEqual(t, PriorityScore(c.density, c.trend, c.emergency), 0.0,
				"density=%v trend=%v emergency=%d", c.density, c.trend, c.emergency)
		}
	})
}

func TestClassifyCongestion(t *testing.T) {
	t.Parallel()

	cases := []struct {
		density float64
		want    CongestionLevel
	}{
		{0, CongestionLow},
		{0.099, CongestionLow},
		{0.1, CongestionMedium},
		{0.299, CongestionMedium},
		{0.3, CongestionHigh},
		{0.499, CongestionHigh},
		{0.5, CongestionCritical},
		{2.5, CongestionCritical},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, ClassifyCongestion(c.density), "density=%v", c.density)
	}
}
