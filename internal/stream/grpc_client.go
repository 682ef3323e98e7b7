// Package stream forwards samples to a collector over a gRPC client stream
// carrying JSON frames.
package stream

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"

	"stats-exporter/internal/model"
)

type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type GRPCClient struct {
	mu sync.Mutex

	logger    *slog.Logger
	addr      string
	tlsConfig *tls.Config
	token     string
	method    string
	dialOpts  []grpc.DialOption

	conn   *grpc.ClientConn
	stream grpc.ClientStream
	// streamCancel ends the current stream; streams outlive single sends.
	streamCancel context.CancelFunc
}

func NewGRPCClient(addr string, tlsCfg *tls.Config, token, method string, logger *slog.Logger) *GRPCClient {
	return &GRPCClient{
		logger:    logger,
		addr:      addr,
		tlsConfig: tlsCfg,
		token:     token,
		method:    method,
	}
}

// SendSample writes one frame. A failed write reopens the stream once and
// retries before giving up.
func (c *GRPCClient) SendSample(ctx context.Context, e model.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnLocked(); err != nil {
		return err
	}
	if c.stream == nil {
		if err := c.openStreamLocked(ctx); err != nil {
			return err
		}
	}
	if err := c.stream.SendMsg(e); err != nil {
		c.logger.Warn("grpc send failed, reopening stream", "error", err)
		c.resetStreamLocked()
		if err2 := c.openStreamLocked(ctx); err2 != nil {
			return fmt.Errorf("reopen stream: %w", err2)
		}
		if err2 := c.stream.SendMsg(e); err2 != nil {
			c.resetStreamLocked()
			return fmt.Errorf("send frame: %w", err2)
		}
	}
	return nil
}

func (c *GRPCClient) Close(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		_ = c.stream.CloseSend()
	}
	c.resetStreamLocked()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *GRPCClient) ensureConnLocked() error {
	if c.conn != nil {
		return nil
	}

	var creds credentials.TransportCredentials
	if c.tlsConfig != nil {
		creds = credentials.NewTLS(c.tlsConfig)
	} else {
		creds = insecure.NewCredentials()
	}

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{}), grpc.CallContentSubtype("json")),
	}, c.dialOpts...)
	conn, err := grpc.NewClient(c.addr, opts...)
	if err != nil {
		return fmt.Errorf("grpc client %s: %w", c.addr, err)
	}
	c.conn = conn
	c.logger.Info("grpc forwarder configured", "addr", c.addr, "method", c.method)
	return nil
}

func (c *GRPCClient) openStreamLocked(ctx context.Context) error {
	if c.conn == nil {
		return errors.New("grpc conn is nil")
	}
	streamCtx, cancel := context.WithCancel(context.Background())
	if c.token != "" {
		streamCtx = metadata.AppendToOutgoingContext(streamCtx, "authorization", "Bearer "+c.token)
	}

	type result struct {
		s   grpc.ClientStream
		err error
	}
	done := make(chan result, 1)
	go func() {
		s, err := c.conn.NewStream(streamCtx, &grpc.StreamDesc{ClientStreams: true}, c.method)
		done <- result{s, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			cancel()
			return fmt.Errorf("open stream %s: %w", c.method, r.err)
		}
		c.stream = r.s
		c.streamCancel = cancel
		return nil
	case <-ctx.Done():
		cancel()
		return fmt.Errorf("open stream %s: %w", c.method, ctx.Err())
	}
}

func (c *GRPCClient) resetStreamLocked() {
	if c.streamCancel != nil {
		c.streamCancel()
	}
	c.stream = nil
	c.streamCancel = nil
}
