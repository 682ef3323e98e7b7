// Package system holds the stateful host probes the sampler refreshes once
// per cycle. Every refresh keeps the last good value when a probe fails.
package system

import (
	"context"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"
)

// Probes are the raw OS reads. Tests swap them for fakes.
type Probes struct {
	CPUPercent    func(ctx context.Context, interval time.Duration, perCPU bool) ([]float64, error)
	VirtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	SwapMemory    func(ctx context.Context) (*mem.SwapMemoryStat, error)
	Partitions    func(ctx context.Context, all bool) ([]disk.PartitionStat, error)
	Usage         func(ctx context.Context, path string) (*disk.UsageStat, error)
	IOCounters    func(ctx context.Context, perNIC bool) ([]net.IOCountersStat, error)
	Temperatures  func(ctx context.Context) ([]sensors.TemperatureStat, error)
}

func DefaultProbes() Probes {
	return Probes{
		CPUPercent:    cpu.PercentWithContext,
		VirtualMemory: mem.VirtualMemoryWithContext,
		SwapMemory:    mem.SwapMemoryWithContext,
		Partitions:    disk.PartitionsWithContext,
		Usage:         disk.UsageWithContext,
		IOCounters:    net.IOCountersWithContext,
		Temperatures:  sensors.TemperaturesWithContext,
	}
}

// Source caches the most recent successful reading of every probe.
// Refresh methods are not safe for concurrent use; the sampler goroutine is
// the only caller. The List* methods do not touch cached state.
type Source struct {
	probes Probes
	logger *slog.Logger

	cores  []float64
	memory MemoryUsage
	swap   MemoryUsage

	mounts       map[string]struct{}
	absent       map[string]time.Time
	mountsLoaded bool
	disks        map[string]DiskUsage

	interfaces []InterfaceCounters
	readings   []SensorReading

	now func() time.Time
}

func NewSource(probes Probes, logger *slog.Logger) *Source {
	return &Source{
		probes: probes,
		logger: logger,
		mounts: make(map[string]struct{}),
		absent: make(map[string]time.Time),
		now:    time.Now,
		disks:  make(map[string]DiskUsage),
	}
}

// RefreshAll re-reads CPU, memory and swap.
func (s *Source) RefreshAll(ctx context.Context) {
	s.refreshCPU(ctx)
	s.refreshMemory(ctx)
}
