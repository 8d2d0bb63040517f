//go:build linux

// Package util holds small numeric helpers shared by the samplers.
package util

import "math"

// EMA is an exponential moving average. The first sample seeds the state.
type EMA struct {
	alpha, prev float64
	ok          bool
}

// NewEMA returns an EMA with the given smoothing factor, clamped to [0,1].
// Alpha 1 disables smoothing.
func NewEMA(alpha float64) *EMA { return &EMA{alpha: Clamp(alpha, 0, 1)} }

func (e *EMA) Next(v float64) float64 {
	if !e.ok {
		e.prev, e.ok = v, true
		return v
	}
	e.prev = e.alpha*v + (1-e.alpha)*e.prev
	return e.prev
}

// Reset forgets the seeded value.
func (e *EMA) Reset() { e.prev, e.ok = 0, false }

func DeltaU64(now, prev uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	// counter wrapped or prev unset
	return 0
}

func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

// Percent returns 100*n/d clamped to [0,100].
func Percent(n, d float64) float64 {
	return Clamp(100*SafeDiv(n, d), 0, 100)
}

// Clamp bounds x to [lo,hi]. NaN maps to lo.
func Clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
