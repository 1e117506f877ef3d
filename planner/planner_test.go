package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxmap/voxmap/faults"
)

func TestByDuration_ResidualKept(t *testing.T) {
	// 100s into 40s windows: residual 20 > 40/5, kept as its own window.
	plan, err := ByDuration(100, 40, 5)
	require.NoError(t, err)
	assert.Equal(t, Plan{40, 40, 20}, plan)
	assert.InDelta(t, 100, plan.Total(), 1e-9)
}

func TestByDuration_ResidualFolded(t *testing.T) {
	// Same split with divisor 2: residual 20 is not > 40/2, folded into the
	// last full window.
	plan, err := ByDuration(100, 40, 2)
	require.NoError(t, err)
	assert.Equal(t, Plan{40, 60}, plan)
	assert.InDelta(t, 100, plan.Total(), 1e-9)
}

func TestByDuration_TotalShorterThanWindow(t *testing.T) {
	plan, err := ByDuration(25, 60, DefaultResidualDivisor)
	require.NoError(t, err)
	assert.Equal(t, Plan{25}, plan)
}

func TestByDuration_ExactMultiple(t *testing.T) {
	plan, err := ByDuration(120, 40, DefaultResidualDivisor)
	require.NoError(t, err)
	assert.Equal(t, Plan{40, 40, 40}, plan)
}

func TestByDuration_SumsToTotal(t *testing.T) {
	for _, total := range []float64{61.5, 1800, 3601.25, 5400.7} {
		for _, window := range []float64{60, 300, 1800} {
			plan, err := ByDuration(total, window, DefaultResidualDivisor)
			require.NoError(t, err)
			assert.InDelta(t, total, plan.Total(), 1e-6,
				"total %.2f window %.2f", total, window)
		}
	}
}

func TestByDuration_InvalidInputs(t *testing.T) {
	cases := []struct {
		name    string
		total   float64
		window  float64
		divisor int
	}{
		{"zero total", 0, 40, 5},
		{"negative total", -1, 40, 5},
		{"zero window", 100, 0, 5},
		{"zero divisor", 100, 40, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ByDuration(tc.total, tc.window, tc.divisor)
			require.Error(t, err)
			assert.IsType(t, &faults.ConfigError{}, err)
		})
	}
}

func TestByCount_EqualWindows(t *testing.T) {
	plan, err := ByCount(90, 3)
	require.NoError(t, err)
	assert.Equal(t, Plan{30, 30, 30}, plan)
}

func TestByCount_RemainderFoldedIntoLast(t *testing.T) {
	plan, err := ByCount(100, 3)
	require.NoError(t, err)
	require.Len(t, plan, 3)
	assert.InDelta(t, 100, plan.Total(), 1e-9)
}

func TestByCount_InvalidCount(t *testing.T) {
	_, err := ByCount(100, 0)
	assert.IsType(t, &faults.ConfigError{}, err)
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1800", 1800},
		{"1800s", 1800},
		{"30m", 1800},
		{" 45M ", 2700},
		{"0.5m", 30},
	}
	for _, tc := range cases {
		got, err := ParseDuration(tc.in)
		require.NoError(t, err, tc.in)
		assert.InDelta(t, tc.want, got, 1e-9, tc.in)
	}
}

func TestParseDuration_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "10h", "m"} {
		_, err := ParseDuration(in)
		assert.Error(t, err, in)
	}
}
