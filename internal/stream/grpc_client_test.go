package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"

	"stats-exporter/internal/config"
	"stats-exporter/internal/model"
)

const testMethod = "/stats.v1.StatsService/StreamSamples"

type received struct {
	method string
	auth   []string
	frame  model.Envelope
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startCollector runs an in-memory gRPC server that accepts any client
// stream and reports every JSON frame it reads.
func startCollector(t *testing.T) (*bufconn.Listener, <-chan received) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	frames := make(chan received, 16)

	srv := grpc.NewServer(
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.UnknownServiceHandler(func(_ any, ss grpc.ServerStream) error {
			method, _ := grpc.MethodFromServerStream(ss)
			md, _ := metadata.FromIncomingContext(ss.Context())
			for {
				var e model.Envelope
				if err := ss.RecvMsg(&e); err != nil {
					if errors.Is(err, io.EOF) {
						return ss.SendMsg(&struct{}{})
					}
					return err
				}
				frames <- received{method: method, auth: md.Get("authorization"), frame: e}
			}
		}),
	)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis, frames
}

func newBufClient(lis *bufconn.Listener, token string) *GRPCClient {
	c := NewGRPCClient("passthrough:///bufnet", nil, token, testMethod, discardLogger())
	c.dialOpts = []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	return c
}

func waitFrame(t *testing.T, frames <-chan received) received {
	t.Helper()
	select {
	case r := <-frames:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no frame received")
		return received{}
	}
}

func TestGRPCClientSendsJSONFrames(t *testing.T) {
	lis, frames := startCollector(t)
	c := newBufClient(lis, "secret")
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	ts := time.Unix(1700000000, 0).UTC()
	for i := 1; i <= 2; i++ {
		s := model.Sample{Timestamp: ts, Basic: model.BasicStats{CPUPercent: float64(i)}}
		require.NoError(t, c.SendSample(context.Background(), model.NewSampleEnvelope("node-a", "inst-1", s)))
	}

	first := waitFrame(t, frames)
	assert.Equal(t, testMethod, first.method)
	assert.Equal(t, []string{"Bearer secret"}, first.auth)
	assert.Equal(t, model.MetricTypeSample, first.frame.Type)
	assert.Equal(t, "node-a", first.frame.NodeID)
	assert.Equal(t, "inst-1", first.frame.InstanceID)
	assert.Equal(t, ts.Unix(), first.frame.TimestampUnix)

	second := waitFrame(t, frames)
	payload, ok := second.frame.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2.0, payload["basic_stats"].(map[string]any)["cpu"])
}

func TestGRPCClientCloseIsIdempotent(t *testing.T) {
	c := NewGRPCClient("127.0.0.1:1", nil, "", testMethod, discardLogger())
	assert.NoError(t, c.Close(context.Background()))
	assert.NoError(t, c.Close(context.Background()))
}

func TestNewSinkFromConfig(t *testing.T) {
	_, err := NewSinkFromConfig(config.ForwardConfig{GRPCAddr: "  "}, nil, discardLogger())
	assert.Error(t, err)

	sink, err := NewSinkFromConfig(config.ForwardConfig{GRPCAddr: "collector:9000", Method: testMethod}, nil, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &GRPCClient{}, sink)
}

type recordingSink struct {
	mu     sync.Mutex
	frames []model.Envelope
	fail   bool
	closed bool
}

func (r *recordingSink) SendSample(_ context.Context, e model.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("collector down")
	}
	r.frames = append(r.frames, e)
	return nil
}

func (r *recordingSink) Close(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func TestForwarderDeliversAndReportsState(t *testing.T) {
	sink := &recordingSink{}
	f := NewForwarder(sink, "node-a", "inst-1", discardLogger())
	var states []bool
	var mu sync.Mutex
	f.OnStateChange(func(ok bool) {
		mu.Lock()
		states = append(states, ok)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	f.Enqueue(ctx, model.Sample{})
	f.Enqueue(ctx, model.Sample{})
	require.Eventually(t, func() bool { return sink.count() == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.True(t, f.Connected())
	assert.Equal(t, uint64(2), f.Sent())

	cancel()
	require.NoError(t, <-done)
	assert.True(t, sink.closed)
	assert.False(t, f.Connected())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, states)
}

func TestForwarderSendFailureMarksDisconnected(t *testing.T) {
	sink := &recordingSink{fail: true}
	f := NewForwarder(sink, "node-a", "inst-1", discardLogger())
	f.connected.Store(true)

	f.send(context.Background(), model.Sample{})
	assert.False(t, f.Connected())
	assert.Equal(t, uint64(0), f.Sent())
}

func TestForwarderEnqueueDropsWhenFull(t *testing.T) {
	f := NewForwarder(&recordingSink{}, "node-a", "inst-1", discardLogger())

	for i := 0; i < defaultQueueSize+3; i++ {
		f.Enqueue(context.Background(), model.Sample{})
	}
	assert.Equal(t, uint64(3), f.Dropped())
	assert.Len(t, f.queue, defaultQueueSize)
}
