package agent

import (
	"sync/atomic"
	"time"
)

type HealthStatus struct {
	samplerRunning   atomic.Bool
	forwardEnabled   bool
	forwardConnected atomic.Bool
	lastSampleAt     atomic.Int64
	samples          atomic.Uint64
	lastProbeAt      atomic.Int64
	probes           atomic.Uint64
}

func NewHealthStatus(forwardEnabled bool) *HealthStatus {
	return &HealthStatus{forwardEnabled: forwardEnabled}
}

func (h *HealthStatus) SetSamplerRunning(ok bool) {
	h.samplerRunning.Store(ok)
}

func (h *HealthStatus) SetForwardConnected(ok bool) {
	h.forwardConnected.Store(ok)
}

func (h *HealthStatus) MarkSample(ts time.Time) {
	h.lastSampleAt.Store(ts.UnixNano())
	h.samples.Add(1)
}

// MarkProbe records one answered TCP probe connection.
func (h *HealthStatus) MarkProbe(ts time.Time) {
	h.lastProbeAt.Store(ts.UnixNano())
	h.probes.Add(1)
}

// Ready reports whether at least one sample has been recorded.
func (h *HealthStatus) Ready() bool {
	return h.lastSampleAt.Load() > 0
}

// Stale reports whether the newest sample is older than maxAge.
func (h *HealthStatus) Stale(now time.Time, maxAge time.Duration) bool {
	v := h.lastSampleAt.Load()
	if v == 0 {
		return false
	}
	return now.Sub(time.Unix(0, v)) > maxAge
}

func (h *HealthStatus) Snapshot() map[string]any {
	out := map[string]any{
		"ready":           h.Ready(),
		"sampler_running": h.samplerRunning.Load(),
		"samples_total":   h.samples.Load(),
	}
	if h.forwardEnabled {
		out["forward_connected"] = h.forwardConnected.Load()
	}
	if v := h.lastSampleAt.Load(); v > 0 {
		out["last_sample_at"] = time.Unix(0, v).UTC()
	}
	if v := h.lastProbeAt.Load(); v > 0 {
		out["tcp_probes_total"] = h.probes.Load()
		out["last_tcp_probe_at"] = time.Unix(0, v).UTC()
	}
	return out
}
