package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	Version = "1.0.20240315"

	// NetworkTotal selects the sum of all interfaces.
	NetworkTotal = "total"

	DefaultFeatureRefreshCycles = 900
)

type RateMode string

const (
	RateModeDelta      RateMode = "delta"
	RateModeCumulative RateMode = "cumulative"
)

type Config struct {
	API         APIConfig         `mapstructure:"api_config"`
	Basic       BasicConfig       `mapstructure:"cmdn_config"`
	FileSystems FileSystemsConfig `mapstructure:"file_systems_config"`
	Kubernetes  KubernetesConfig  `mapstructure:"kubernetes_config"`
	Forward     ForwardConfig     `mapstructure:"forward"`
	Log         LogConfig         `mapstructure:"log"`

	// Path is the file the config was read from, empty when running on defaults.
	Path string `mapstructure:"-"`
}

type APIConfig struct {
	ListenIPAddr string `mapstructure:"listen_ip_addr"`
	ListenPort   string `mapstructure:"listen_port"`
	HistoryDepth int    `mapstructure:"history_depth"`
	ProbeAddr    string `mapstructure:"probe_addr"`
}

type BasicConfig struct {
	GetCPU          bool   `mapstructure:"get_cpu"`
	GetMem          bool   `mapstructure:"get_mem"`
	GetRootFS       bool   `mapstructure:"get_root_fs"`
	GetSwapFS       bool   `mapstructure:"get_swap_fs"`
	GetNet          bool   `mapstructure:"get_net"`
	Iface           string `mapstructure:"iface"`
	NetRateMode     string `mapstructure:"net_rate_mode"`
	GetTemperature  bool   `mapstructure:"get_temperature"`
	TemperatureItem string `mapstructure:"temperature_item"`
	PollingSecs     int    `mapstructure:"polling_secs"`
}

type FileSystemsConfig struct {
	FileSystems [][]string `mapstructure:"file_systems"`
	PollingSecs int        `mapstructure:"polling_secs"`
}

type KubernetesConfig struct {
	MasterNodesIP     [][]string    `mapstructure:"master_nodes_ip"`
	WorkerNodesIP     [][]string    `mapstructure:"worker_nodes_ip"`
	ExcludeNamespaces []string      `mapstructure:"exclude_namespaces"`
	PollingSecs       int           `mapstructure:"polling_secs"`
	Kubeconfig        string        `mapstructure:"kubeconfig"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

type ForwardConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	GRPCAddr      string `mapstructure:"grpc_addr"`
	Method        string `mapstructure:"method"`
	Token         string `mapstructure:"token"`
	NodeID        string `mapstructure:"node_id"`
	TLSEnabled    bool   `mapstructure:"tls_enabled"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify"`
	TLSCAPath     string `mapstructure:"tls_ca_path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ListenAddr joins the configured ip and port.
func (c Config) ListenAddr() string {
	return c.API.ListenIPAddr + ":" + c.API.ListenPort
}

func (c Config) Validate() error {
	if c.Basic.PollingSecs <= 0 {
		return errors.New("cmdn_config.polling_secs must be > 0")
	}
	if c.API.HistoryDepth <= 0 {
		return errors.New("api_config.history_depth must be > 0")
	}
	if strings.TrimSpace(c.API.ListenPort) == "" {
		return errors.New("api_config.listen_port is required")
	}
	if c.FileSystems.PollingSecs < 0 {
		return errors.New("file_systems_config.polling_secs must be >= 0")
	}
	if c.Kubernetes.PollingSecs < 0 {
		return errors.New("kubernetes_config.polling_secs must be >= 0")
	}
	switch RateMode(c.Basic.NetRateMode) {
	case RateModeDelta, RateModeCumulative:
	default:
		return fmt.Errorf("unsupported cmdn_config.net_rate_mode %q", c.Basic.NetRateMode)
	}
	if strings.TrimSpace(c.Basic.Iface) == "" {
		return errors.New("cmdn_config.iface must not be empty (use \"total\" for all interfaces)")
	}
	if _, err := pairs("file_systems_config.file_systems", c.FileSystems.FileSystems); err != nil {
		return err
	}
	if _, err := pairs("kubernetes_config.master_nodes_ip", c.Kubernetes.MasterNodesIP); err != nil {
		return err
	}
	if _, err := pairs("kubernetes_config.worker_nodes_ip", c.Kubernetes.WorkerNodesIP); err != nil {
		return err
	}
	if c.Forward.Enabled {
		if strings.TrimSpace(c.Forward.GRPCAddr) == "" {
			return errors.New("forward.grpc_addr is required when forwarding is enabled")
		}
		if strings.TrimSpace(c.Forward.Method) == "" {
			return errors.New("forward.method is required when forwarding is enabled")
		}
	}
	return nil
}

func (c Config) TLSConfig() (*tls.Config, error) {
	if !c.Forward.TLSEnabled {
		return nil, nil
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: c.Forward.TLSSkipVerify}
	if c.Forward.TLSCAPath != "" {
		caBytes, err := os.ReadFile(c.Forward.TLSCAPath)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, errors.New("append CA cert failed")
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}

type pair struct {
	first  string
	second string
}

func pairs(key string, raw [][]string) ([]pair, error) {
	out := make([]pair, 0, len(raw))
	for i, p := range raw {
		if len(p) != 2 {
			return nil, fmt.Errorf("%s[%d]: expected [name, value], got %d items", key, i, len(p))
		}
		first, second := strings.TrimSpace(p[0]), strings.TrimSpace(p[1])
		if first == "" || second == "" {
			return nil, fmt.Errorf("%s[%d]: name and value must not be empty", key, i)
		}
		out = append(out, pair{first: first, second: second})
	}
	return out, nil
}
