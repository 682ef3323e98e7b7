package stream

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"stats-exporter/internal/model"
)

type Sink interface {
	SendSample(ctx context.Context, e model.Envelope) error
	Close(ctx context.Context) error
}

const (
	defaultQueueSize   = 64
	defaultSendTimeout = 5 * time.Second
)

// Forwarder decouples the sampler from the sink. Enqueue never blocks; when
// the queue is full the incoming sample is dropped and counted.
type Forwarder struct {
	sink       Sink
	logger     *slog.Logger
	nodeID     string
	instanceID string

	queue       chan model.Sample
	sendTimeout time.Duration

	connected atomic.Bool
	sent      atomic.Uint64
	dropped   atomic.Uint64
	onState   func(bool)
}

func NewForwarder(sink Sink, nodeID, instanceID string, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		sink:        sink,
		logger:      logger,
		nodeID:      nodeID,
		instanceID:  instanceID,
		queue:       make(chan model.Sample, defaultQueueSize),
		sendTimeout: defaultSendTimeout,
	}
}

// OnStateChange registers fn to be called whenever the sink flips between
// reachable and unreachable. Must be called before Run.
func (f *Forwarder) OnStateChange(fn func(connected bool)) {
	f.onState = fn
}

func (f *Forwarder) Enqueue(_ context.Context, s model.Sample) {
	select {
	case f.queue <- s:
	default:
		if n := f.dropped.Add(1); n == 1 || n%100 == 0 {
			f.logger.Warn("forward queue full, dropping samples", "dropped_total", n)
		}
	}
}

func (f *Forwarder) Run(ctx context.Context) error {
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), f.sendTimeout)
		defer cancel()
		if err := f.sink.Close(closeCtx); err != nil {
			f.logger.Warn("forward sink close failed", "error", err)
		}
		f.setConnected(false)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-f.queue:
			f.send(ctx, s)
		}
	}
}

func (f *Forwarder) send(ctx context.Context, s model.Sample) {
	sendCtx, cancel := context.WithTimeout(ctx, f.sendTimeout)
	defer cancel()

	if err := f.sink.SendSample(sendCtx, model.NewSampleEnvelope(f.nodeID, f.instanceID, s)); err != nil {
		if ctx.Err() == nil {
			f.logger.Warn("forward sample failed", "error", err)
		}
		f.setConnected(false)
		return
	}
	f.sent.Add(1)
	f.setConnected(true)
}

func (f *Forwarder) setConnected(ok bool) {
	if f.connected.Swap(ok) != ok && f.onState != nil {
		f.onState(ok)
	}
}

func (f *Forwarder) Connected() bool { return f.connected.Load() }
func (f *Forwarder) Sent() uint64     { return f.sent.Load() }
func (f *Forwarder) Dropped() uint64  { return f.dropped.Load() }
