// Package history holds the bounded, in-memory window of samples shared by
// the sampler (single writer) and the HTTP readers.
package history

import (
	"sync"

	"stats-exporter/internal/model"
)

// Buffer is a fixed-capacity sliding window ordered oldest first. When full,
// every Append evicts the oldest sample before adding the new one. Samples
// are copied in and out, so callers never share memory with the window.
type Buffer struct {
	mu       sync.RWMutex
	capacity int
	samples  []model.Sample
}

// New creates an empty buffer; capacity below 1 is raised to 1.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		capacity: capacity,
		samples:  make([]model.Sample, 0, capacity),
	}
}

func (b *Buffer) Append(s model.Sample) {
	s = s.Clone()

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.samples) == b.capacity {
		// Shift in place so the backing array never grows.
		copy(b.samples, b.samples[1:])
		b.samples[len(b.samples)-1] = s
		return
	}
	b.samples = append(b.samples, s)
}

// Snapshot returns a deep copy of the window in chronological order.
func (b *Buffer) Snapshot() []model.Sample {
	b.mu.RLock()
	out := make([]model.Sample, len(b.samples))
	copy(out, b.samples)
	b.mu.RUnlock()

	// Samples in the window are never mutated, so the deep copy can happen
	// outside the lock.
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}

// Latest returns the newest sample, if any.
func (b *Buffer) Latest() (model.Sample, bool) {
	b.mu.RLock()
	if len(b.samples) == 0 {
		b.mu.RUnlock()
		return model.Sample{}, false
	}
	s := b.samples[len(b.samples)-1]
	b.mu.RUnlock()
	return s.Clone(), true
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

func (b *Buffer) Cap() int {
	return b.capacity
}
