package stream

import (
	"crypto/tls"
	"errors"
	"log/slog"
	"strings"

	"stats-exporter/internal/config"
)

func NewSinkFromConfig(cfg config.ForwardConfig, tlsCfg *tls.Config, logger *slog.Logger) (Sink, error) {
	addr := strings.TrimSpace(cfg.GRPCAddr)
	if addr == "" {
		return nil, errors.New("forward grpc address is empty")
	}
	return NewGRPCClient(addr, tlsCfg, cfg.Token, cfg.Method, logger), nil
}
