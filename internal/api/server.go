// Package api serves the sample history and live probe listings over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"stats-exporter/internal/model"
)

const (
	InstanceHeader = "X-Stats-Instance"

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

type HistoryReader interface {
	Snapshot() []model.Sample
}

// ItemLister runs one-shot host probes. Calls are not cached.
type ItemLister interface {
	ListTemperatureSensors(ctx context.Context) ([]string, error)
	ListNetworkInterfaces(ctx context.Context) ([]string, error)
}

type HealthReporter interface {
	Ready() bool
	Snapshot() map[string]any
}

type Deps struct {
	History    HistoryReader
	Items      ItemLister
	Health     HealthReporter
	Metrics    http.Handler
	Version    any
	InstanceID string
	Help       string
}

type Server struct {
	addr   string
	logger *slog.Logger
	deps   Deps
	srv    *http.Server
}

func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	s := &Server{addr: addr, logger: logger, deps: deps}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHelp)
	mux.HandleFunc("GET /get-stats", s.handleStats)
	mux.HandleFunc("GET /get-temp-items", s.handleTempItems)
	mux.HandleFunc("GET /get-ntwk-items", s.handleNetworkItems)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics)
	}
	return s.logRequests(mux)
}

// Run listens until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen http %s: %w", s.addr, err)
	}
	s.logger.Info("api listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("api shutdown failed", "error", err)
	}
	<-errCh
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("api request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr, "took", time.Since(start))
	})
}
