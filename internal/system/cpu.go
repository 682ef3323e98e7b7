package system

import "context"

func (s *Source) refreshCPU(ctx context.Context) {
	// interval 0 compares against the previous call, so the first read after
	// start reports usage since boot.
	cores, err := s.probes.CPUPercent(ctx, 0, true)
	if err != nil {
		s.logger.Warn("read cpu usage failed, keeping previous values", "error", err)
		return
	}
	s.cores = append(s.cores[:0], cores...)
}

// Cores returns per-core usage percentages from the last refresh.
func (s *Source) Cores() []float64 {
	return append([]float64(nil), s.cores...)
}
