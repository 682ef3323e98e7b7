package system

import "context"

type MemoryUsage struct {
	UsedBytes  uint64
	TotalBytes uint64
}

func (s *Source) refreshMemory(ctx context.Context) {
	if vm, err := s.probes.VirtualMemory(ctx); err != nil {
		s.logger.Warn("read virtual memory failed, keeping previous values", "error", err)
	} else if vm != nil {
		s.memory = MemoryUsage{UsedBytes: vm.Used, TotalBytes: vm.Total}
	}

	if sw, err := s.probes.SwapMemory(ctx); err != nil {
		s.logger.Warn("read swap failed, keeping previous values", "error", err)
	} else if sw != nil {
		s.swap = MemoryUsage{UsedBytes: sw.Used, TotalBytes: sw.Total}
	}
}

func (s *Source) Memory() MemoryUsage {
	return s.memory
}

func (s *Source) Swap() MemoryUsage {
	return s.swap
}
