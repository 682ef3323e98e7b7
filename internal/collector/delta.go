package collector

import "sync"

// deltaEngine remembers the previous value of cumulative counters keyed by
// name. Keys not observed during a round are dropped by prune.
type deltaEngine struct {
	mu      sync.Mutex
	samples map[string]uint64
	seen    map[string]struct{}
}

func newDeltaEngine() *deltaEngine {
	return &deltaEngine{
		samples: make(map[string]uint64),
		seen:    make(map[string]struct{}),
	}
}

// ObserveCounter stores cur and returns the increase since the previous
// observation. The first observation and any decrease (counter reset or
// wrap) only set a new baseline and report ok=false.
func (e *deltaEngine) ObserveCounter(key string, cur uint64) (delta uint64, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seen[key] = struct{}{}
	prev, exists := e.samples[key]
	e.samples[key] = cur
	if !exists {
		return 0, false
	}
	if cur < prev {
		return 0, false
	}
	return cur - prev, true
}

// prune forgets counters that were not observed since the last prune, so a
// vanished interface starts from a fresh baseline if it comes back.
func (e *deltaEngine) prune() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key := range e.samples {
		if _, ok := e.seen[key]; !ok {
			delete(e.samples, key)
		}
	}
	e.seen = make(map[string]struct{}, len(e.samples))
}
