package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stats-exporter/internal/agent/version"
	"stats-exporter/internal/api"
	"stats-exporter/internal/cluster"
	"stats-exporter/internal/collector"
	"stats-exporter/internal/config"
	"stats-exporter/internal/history"
	"stats-exporter/internal/model"
	"stats-exporter/internal/stream"
	"stats-exporter/internal/system"
	"stats-exporter/internal/telemetry"
)

type Agent struct {
	cfg        config.Config
	sampling   config.Sampling
	logger     *slog.Logger
	instanceID string

	history   *history.Buffer
	sampler   *collector.Sampler
	server    *api.Server
	forwarder *stream.Forwarder
	health    *HealthStatus
}

const (
	shutdownTimeout = 10 * time.Second
	healthInterval  = 10 * time.Second
)

// New wires the sampling engine and its outer surfaces. Nothing is started
// until Run.
func New(cfg config.Config, logger *slog.Logger) (*Agent, error) {
	sampling := cfg.Sampling()
	instanceID := uuid.NewString()

	var poller collector.ClusterPoller
	if sampling.Cluster.Enabled {
		client, err := cluster.NewClient(sampling.Cluster.Kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("kubernetes client: %w", err)
		}
		poller = cluster.NewPoller(client, sampling.Cluster, logger)
	}

	var forwarder *stream.Forwarder
	if cfg.Forward.Enabled {
		tlsCfg, err := cfg.TLSConfig()
		if err != nil {
			return nil, fmt.Errorf("tls config: %w", err)
		}
		sink, err := stream.NewSinkFromConfig(cfg.Forward, tlsCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("stream sink: %w", err)
		}
		nodeID := cfg.Forward.NodeID
		if nodeID == "" {
			nodeID, _ = os.Hostname()
		}
		forwarder = stream.NewForwarder(sink, nodeID, instanceID, logger)
	}

	source := system.NewSource(system.DefaultProbes(), logger)
	buf := history.New(sampling.HistoryDepth)
	sampler := collector.NewSampler(logger, sampling, source, buf, poller)
	health := NewHealthStatus(forwarder != nil)

	sampler.OnSample(func(_ context.Context, s model.Sample) {
		health.MarkSample(s.Timestamp)
	})
	if forwarder != nil {
		sampler.OnSample(forwarder.Enqueue)
		forwarder.OnStateChange(health.SetForwardConnected)
	}

	registry := telemetry.NewRegistry(telemetry.NewCollector(buf, sampler))
	server := api.NewServer(cfg.ListenAddr(), api.Deps{
		History:    buf,
		Items:      source,
		Health:     health,
		Metrics:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Version:    version.New(cfg, instanceID, time.Now()),
		InstanceID: instanceID,
		Help:       api.HelpText(sampling),
	}, logger)

	return &Agent{
		cfg:        cfg,
		sampling:   sampling,
		logger:     logger,
		instanceID: instanceID,
		history:    buf,
		sampler:    sampler,
		server:     server,
		forwarder:  forwarder,
		health:     health,
	}, nil
}

func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("starting stats-exporter", "version", config.Version, "instance_id", a.instanceID, "listen", a.cfg.ListenAddr())
	a.logConfig()
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- a.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
		// Stopped by itself: listen error or parent ctx canceled.
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received, starting graceful shutdown", "signal", sig.String(), "timeout", shutdownTimeout)
		cancelRun()

		graceTimer := time.NewTimer(shutdownTimeout)
		defer graceTimer.Stop()

		select {
		case runErr = <-runErrCh:
		case sig2 := <-sigCh:
			a.logger.Warn("second signal received, forcing immediate shutdown", "signal", sig2.String())
			runErr = context.Canceled
		case <-graceTimer.C:
			a.logger.Warn("graceful shutdown timeout reached, forcing shutdown", "timeout", shutdownTimeout)
			runErr = context.DeadlineExceeded
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	a.logger.Info("stats-exporter stopped", "samples", a.sampler.Cycles())
	return nil
}

func (a *Agent) logConfig() {
	s := a.sampling
	a.logger.Info("sampling configuration",
		"config", a.cfg.Path,
		"history_depth", s.HistoryDepth,
		"polling_secs", s.IntervalSecs,
		"cpu", s.Metrics.CPU,
		"memory", s.Metrics.Memory,
		"root_fs", s.Metrics.RootFS,
		"swap", s.Metrics.Swap,
		"network", s.Metrics.Network,
		"iface", s.NetworkInterface,
		"net_rate_mode", s.NetRateMode,
		"temperature", s.Metrics.Temperature,
		"temperature_item", s.TemperatureSensor,
	)
	if s.Filesystems.Enabled {
		for _, fs := range s.Filesystems.Targets {
			a.logger.Info("filesystem target", "label", fs.Label, "mount_point", fs.MountPoint)
		}
		a.logger.Info("filesystem polling", "every_cycles", a.sampler.FilesystemRefreshCycles())
	} else {
		a.logger.Info("no filesystem is configured to gather usage stats")
	}
	if s.Cluster.Enabled {
		for _, n := range s.Cluster.Nodes {
			a.logger.Info("kubernetes node", "role", n.Role, "name", n.Name, "ip", n.IP)
		}
		a.logger.Info("kubernetes polling", "every_cycles", a.sampler.ClusterRefreshCycles(), "exclude_namespaces", s.Cluster.ExcludeNamespaces)
	} else {
		a.logger.Info("no kubernetes section is configured to gather usage stats")
	}
}

func BuildLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	hOpts := &slog.HandlerOptions{Level: level}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, hOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, hOpts))
}
