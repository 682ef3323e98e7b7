package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

const (
	probeReadyReply    = "stats-exporter:ok\n"
	probeStartingReply = "stats-exporter:starting\n"

	probeWriteTimeout  = 2 * time.Second
	probeAcceptBackoff = 100 * time.Millisecond
)

// runProbeListener answers every TCP connection on api.probe_addr with a
// single status line and closes it. The line says "ok" once the first
// sample is in history.
func (a *Agent) runProbeListener(ctx context.Context) error {
	addr := strings.TrimSpace(a.cfg.API.ProbeAddr)
	if addr == "" {
		return errors.New("empty probe listen address")
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen probe endpoint %s: %w", addr, err)
	}
	return a.serveProbe(ctx, ln)
}

func (a *Agent) serveProbe(ctx context.Context, ln net.Listener) error {
	a.logger.Info("probe endpoint listening", "addr", ln.Addr().String())
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer func() { _ = ln.Close() }()

	for {
		conn, err := ln.Accept()
		switch {
		case err == nil:
			a.answerProbe(conn)
		case ctx.Err() != nil, errors.Is(err, net.ErrClosed):
			return nil
		case isTimeout(err):
			time.Sleep(probeAcceptBackoff)
		default:
			return fmt.Errorf("accept probe endpoint %s: %w", ln.Addr(), err)
		}
	}
}

func (a *Agent) answerProbe(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	reply := probeStartingReply
	if a.health.Ready() {
		reply = probeReadyReply
	}
	a.health.MarkProbe(time.Now())
	_ = conn.SetWriteDeadline(time.Now().Add(probeWriteTimeout))
	if _, err := conn.Write([]byte(reply)); err != nil {
		a.logger.Debug("probe reply failed", "remote", conn.RemoteAddr().String(), "error", err)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
