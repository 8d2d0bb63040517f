//go:build linux

package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEMA_SequenceAlphaPointFive(t *testing.T) {
	e := NewEMA(0.5)
	got := make([]float64, 0, 4)
	got = append(got, e.Next(10)) // 10
	got = append(got, e.Next(20)) // 15
	got = append(got, e.Next(20)) // 17.5
	got = append(got, e.Next(40)) // 28.75

	want := []float64{10, 15, 17.5, 28.75}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "i=%d", i)
	}
}

func TestEMA_AlphaOne_NoSmoothing(t *testing.T) {
	e := NewEMA(1.0)
	assert.Equal(t, 10.0, e.Next(10))
	assert.Equal(t, 20.0, e.Next(20))
	assert.Equal(t, 5.0, e.Next(5))
}

func TestEMA_AlphaOutOfRangeIsClamped(t *testing.T) {
	e := NewEMA(7)
	e.Next(1)
	assert.Equal(t, 3.0, e.Next(3), "alpha > 1 behaves as 1")

	e = NewEMA(-1)
	e.Next(1)
	assert.Equal(t, 1.0, e.Next(3), "alpha < 0 behaves as 0")
}

func TestEMA_Reset(t *testing.T) {
	e := NewEMA(0.5)
	e.Next(100)
	e.Reset()
	assert.Equal(t, 4.0, e.Next(4), "first sample after reset seeds state")
}

func TestEMA_ClosedFormMatch(t *testing.T) {
	alpha, target, steps := 0.3, 100.0, 50

	e := NewEMA(alpha)
	_ = e.Next(0.0)

	var out float64
	for i := 0; i < steps; i++ {
		out = e.Next(target)
	}
	want := target * (1 - math.Pow(1-alpha, float64(steps)))
	assert.InDelta(t, want, out, 1e-6)
}

func TestDeltaU64(t *testing.T) {
	assert.Equal(t, uint64(10), DeltaU64(110, 100))
	assert.Equal(t, uint64(0), DeltaU64(100, 100))
	assert.Equal(t, uint64(0), DeltaU64(99, 100), "wrap or unset prev yields zero")
}

func TestPercentAndClamp(t *testing.T) {
	assert.InDelta(t, 25.0, Percent(1, 4), 1e-12)
	assert.Equal(t, 0.0, Percent(1, 0), "zero denominator")
	assert.Equal(t, 100.0, Percent(5, 4), "clamped high")
	assert.Equal(t, 0.0, Percent(-1, 4), "clamped low")

	assert.Equal(t, 0.0, Clamp(math.NaN(), 0, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}
