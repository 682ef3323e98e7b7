package system

import (
	"context"
	"sort"
)

// InterfaceCounters are lifetime cumulative byte counters for one interface.
type InterfaceCounters struct {
	Name    string
	RxBytes uint64
	TxBytes uint64
}

func (s *Source) RefreshNetwork(ctx context.Context) {
	stats, err := s.probes.IOCounters(ctx, true)
	if err != nil {
		s.logger.Warn("read network counters failed, keeping previous values", "error", err)
		return
	}
	out := make([]InterfaceCounters, 0, len(stats))
	for _, st := range stats {
		out = append(out, InterfaceCounters{Name: st.Name, RxBytes: st.BytesRecv, TxBytes: st.BytesSent})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	s.interfaces = out
}

func (s *Source) Interfaces() []InterfaceCounters {
	return append([]InterfaceCounters(nil), s.interfaces...)
}

// ListNetworkInterfaces is a live probe independent of the sampling loop.
func (s *Source) ListNetworkInterfaces(ctx context.Context) ([]string, error) {
	stats, err := s.probes.IOCounters(ctx, true)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(stats))
	for _, st := range stats {
		names = append(names, st.Name)
	}
	sort.Strings(names)
	return names, nil
}
