package collector

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"stats-exporter/internal/config"
	"stats-exporter/internal/model"
	"stats-exporter/internal/system"
)

// MetricSource is the probe surface the sampler refreshes every cycle.
type MetricSource interface {
	RefreshAll(ctx context.Context)
	RefreshDisks(ctx context.Context, mounts ...string)
	RefreshNetwork(ctx context.Context)
	RefreshSensors(ctx context.Context)
	Cores() []float64
	Memory() system.MemoryUsage
	Swap() system.MemoryUsage
	Disk(mount string) (system.DiskUsage, bool)
	Interfaces() []system.InterfaceCounters
	Readings() []system.SensorReading
}

type ClusterPoller interface {
	Poll(ctx context.Context) ([]model.ClusterNodeUsage, error)
}

type Appender interface {
	Append(s model.Sample)
}

// SampleObserver is called after every append. It runs on the sampler
// goroutine and must not block.
type SampleObserver func(ctx context.Context, s model.Sample)

const rootMount = "/"

// Sampler is the single writer of the history. Each cycle refreshes the
// sources, builds one Sample, appends it and then sleeps for the interval.
// Cycles never overlap and missed ticks are not caught up.
type Sampler struct {
	logger  *slog.Logger
	cfg     config.Sampling
	source  MetricSource
	history Appender
	cluster ClusterPoller

	interval time.Duration
	net      *NetworkRate
	fs       *Throttle[[]model.FilesystemUsage]
	nodes    *Throttle[[]model.ClusterNodeUsage]

	obsMu     sync.Mutex
	observers []SampleObserver

	cycle   atomic.Uint64
	running atomic.Bool
	now     func() time.Time
}

// NewSampler builds a sampler; cluster may be nil when cluster polling is
// disabled.
func NewSampler(logger *slog.Logger, cfg config.Sampling, source MetricSource, history Appender, cluster ClusterPoller) *Sampler {
	interval := time.Duration(cfg.IntervalSecs) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	if !cfg.Cluster.Enabled {
		cluster = nil
	}
	return &Sampler{
		logger:   logger,
		cfg:      cfg,
		source:   source,
		history:  history,
		cluster:  cluster,
		interval: interval,
		net:      NewNetworkRate(cfg.NetRateMode, cfg.NetworkInterface, cfg.IntervalSecs),
		fs:       NewThrottle(RefreshCycles(cfg.IntervalSecs, cfg.Filesystems.RefreshSecs), model.CloneFilesystems),
		nodes:    NewThrottle(RefreshCycles(cfg.IntervalSecs, cfg.Cluster.RefreshSecs), model.CloneClusterNodes),
		now:      time.Now,
	}
}

func (s *Sampler) OnSample(fn SampleObserver) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, fn)
}

// Cycles returns how many samples have been appended so far.
func (s *Sampler) Cycles() uint64 {
	return s.cycle.Load()
}

func (s *Sampler) Running() bool {
	return s.running.Load()
}

func (s *Sampler) Interval() time.Duration {
	return s.interval
}

// FilesystemRefreshCycles and ClusterRefreshCycles report the throttle
// periods in cycles.
func (s *Sampler) FilesystemRefreshCycles() uint64 {
	return s.fs.Every()
}

func (s *Sampler) ClusterRefreshCycles() uint64 {
	return s.nodes.Every()
}

// Run samples until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)

	s.logger.Info("sampler started",
		"interval", s.interval,
		"history_depth", s.cfg.HistoryDepth,
		"fs_refresh_cycles", s.fs.Every(),
		"cluster_refresh_cycles", s.nodes.Every(),
	)
	for {
		if ctx.Err() != nil {
			return nil
		}
		s.Step(ctx)
		if !sleepWithContext(ctx, s.interval) {
			s.logger.Info("sampler stopped", "cycles", s.Cycles())
			return nil
		}
	}
}

// Step runs one full cycle: refresh, compute, append, notify.
func (s *Sampler) Step(ctx context.Context) model.Sample {
	cycle := s.cycle.Load()
	sample := s.collect(ctx, cycle)
	s.history.Append(sample)
	s.cycle.Add(1)

	s.obsMu.Lock()
	observers := append([]SampleObserver(nil), s.observers...)
	s.obsMu.Unlock()
	for _, fn := range observers {
		fn(ctx, sample.Clone())
	}

	s.logger.Debug("sample appended", "cycle", cycle, "cpu", sample.Basic.CPUPercent, "ram", sample.Basic.RAMPercent)
	return sample
}

func (s *Sampler) collect(ctx context.Context, cycle uint64) model.Sample {
	m := s.cfg.Metrics
	fsDue := s.cfg.Filesystems.Enabled && s.fs.Due(cycle)

	if m.CPU || m.Memory || m.Swap {
		s.source.RefreshAll(ctx)
	}
	mounts := make([]string, 0, 1+len(s.cfg.Filesystems.Targets))
	if m.RootFS {
		mounts = append(mounts, rootMount)
	}
	if fsDue {
		for _, t := range s.cfg.Filesystems.Targets {
			mounts = append(mounts, t.MountPoint)
		}
	}
	s.source.RefreshDisks(ctx, mounts...)
	if m.Network {
		s.source.RefreshNetwork(ctx)
	}
	if m.Temperature {
		s.source.RefreshSensors(ctx)
	}

	var basic model.BasicStats
	if m.CPU {
		basic.CPUPercent = round1(CPUAveragePercent(s.source.Cores()))
	}
	if m.Memory {
		mem := s.source.Memory()
		basic.RAMPercent = round1(PercentOf(mem.UsedBytes, mem.TotalBytes))
	}
	if m.Swap {
		swap := s.source.Swap()
		basic.SwapPercent = round1(PercentOf(swap.UsedBytes, swap.TotalBytes))
	}
	if m.RootFS {
		basic.RootFSPercent = round1(FilesystemUsedPercent(s.source.Disk(rootMount)))
	}
	if m.Network {
		tp := s.net.Observe(s.source.Interfaces())
		basic.NetDownKbps = tp.DownKbps
		basic.NetUpKbps = tp.UpKbps
	}
	if m.Temperature {
		basic.TemperatureC = round1(TemperatureFor(s.source.Readings(), s.cfg.TemperatureSensor))
	}

	filesystems := []model.FilesystemUsage{}
	if s.cfg.Filesystems.Enabled {
		filesystems = s.fs.Next(cycle, s.filesystemUsage)
	}

	nodes := []model.ClusterNodeUsage{}
	if s.cluster != nil {
		nodes = s.nodes.Next(cycle, func() ([]model.ClusterNodeUsage, bool) {
			return s.pollCluster(ctx)
		})
	}

	return model.Sample{
		Timestamp:   s.now().UTC(),
		Basic:       basic,
		Filesystems: filesystems,
		Cluster:     nodes,
	}
}

func (s *Sampler) filesystemUsage() ([]model.FilesystemUsage, bool) {
	out := make([]model.FilesystemUsage, 0, len(s.cfg.Filesystems.Targets))
	for _, t := range s.cfg.Filesystems.Targets {
		out = append(out, model.FilesystemUsage{
			Label:       t.Label,
			MountPoint:  t.MountPoint,
			UsedPercent: round1(FilesystemUsedPercent(s.source.Disk(t.MountPoint))),
		})
	}
	return out, true
}

func (s *Sampler) pollCluster(ctx context.Context) ([]model.ClusterNodeUsage, bool) {
	nodes, err := s.cluster.Poll(ctx)
	if err != nil {
		s.logger.Warn("cluster poll failed, carrying previous values", "error", err)
		return nil, false
	}
	return nodes, true
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
