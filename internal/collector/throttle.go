package collector

import (
	"math"

	"stats-exporter/internal/config"
)

// RefreshCycles converts a feature refresh period into a number of sampling
// cycles. A period of 0 selects the long default.
func RefreshCycles(intervalSecs, featureSecs int) uint64 {
	if featureSecs <= 0 {
		return config.DefaultFeatureRefreshCycles
	}
	if intervalSecs <= 0 {
		return 1
	}
	n := math.Round((60 / float64(intervalSecs)) * (float64(featureSecs) / 60))
	if n < 1 {
		return 1
	}
	return uint64(n)
}

// Throttle recomputes a value on every Nth cycle and carries the previous
// value forward in between.
type Throttle[T any] struct {
	every uint64
	value T
	clone func(T) T
}

func NewThrottle[T any](every uint64, clone func(T) T) *Throttle[T] {
	if every == 0 {
		every = 1
	}
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Throttle[T]{every: every, clone: clone}
}

func (t *Throttle[T]) Every() uint64 {
	return t.every
}

func (t *Throttle[T]) Due(cycle uint64) bool {
	return cycle%t.every == 0
}

// Next returns a fresh value on due cycles and the carried one otherwise.
// A failed compute also carries the previous value.
func (t *Throttle[T]) Next(cycle uint64, compute func() (T, bool)) T {
	if t.Due(cycle) {
		if v, ok := compute(); ok {
			t.value = v
		}
	}
	return t.clone(t.value)
}
