package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

func (a *Agent) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.health.SetSamplerRunning(true)
		defer a.health.SetSamplerRunning(false)
		return a.sampler.Run(gctx)
	})
	g.Go(func() error {
		return a.server.Run(gctx)
	})
	g.Go(func() error {
		return a.runHealthLoop(gctx)
	})
	if strings.TrimSpace(a.cfg.API.ProbeAddr) != "" {
		g.Go(func() error {
			return a.runProbeListener(gctx)
		})
	}
	if a.forwarder != nil {
		g.Go(func() error {
			return a.forwarder.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// staleAfter is how long the newest sample may age before the health loop
// warns. Cluster polls run inline, so their timeout is added.
func (a *Agent) staleAfter() time.Duration {
	d := 5*a.sampler.Interval() + healthInterval
	if a.sampling.Cluster.Enabled {
		d += a.sampling.Cluster.RequestTimeout
	}
	return d
}

func (a *Agent) runHealthLoop(ctx context.Context) error {
	t := time.NewTicker(healthInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			a.checkHealth(now)
		}
	}
}

func (a *Agent) checkHealth(now time.Time) {
	a.health.SetSamplerRunning(a.sampler.Running())
	if a.health.Stale(now, a.staleAfter()) {
		a.logger.Warn("sampler is behind", "stale_after", a.staleAfter(), "snapshot", a.health.Snapshot())
		return
	}
	a.logger.Log(context.Background(), slog.LevelDebug, "agent health", "snapshot", a.health.Snapshot(), "history", a.history.Len())
}
