package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigFile is resolved relative to the executable's directory.
	DefaultConfigFile = "config/stats-exporter.conf"
	EnvPrefix         = "STATS_EXPORTER"
)

// DefaultPath returns <executable dir>/config/stats-exporter.conf.
func DefaultPath() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultConfigFile
	}
	return filepath.Join(filepath.Dir(exe), DefaultConfigFile)
}

// Load reads the TOML config at path and applies STATS_EXPORTER_* env
// overrides. An empty path means DefaultPath; a missing default file falls
// back to built-in defaults, a missing explicit file is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	readFrom := path
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case !explicit && (errors.Is(err, os.ErrNotExist) || errors.As(err, &notFound)):
			readFrom = ""
		case errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("config file %s not found: %w", path, err)
		default:
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.Path = readFrom
	cfg.Basic.NetRateMode = strings.ToLower(strings.TrimSpace(cfg.Basic.NetRateMode))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers every scalar key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api_config.listen_ip_addr", "0.0.0.0")
	v.SetDefault("api_config.listen_port", "8080")
	v.SetDefault("api_config.history_depth", 60)
	v.SetDefault("api_config.probe_addr", "")

	v.SetDefault("cmdn_config.get_cpu", true)
	v.SetDefault("cmdn_config.get_mem", true)
	v.SetDefault("cmdn_config.get_root_fs", true)
	v.SetDefault("cmdn_config.get_swap_fs", true)
	v.SetDefault("cmdn_config.get_net", true)
	v.SetDefault("cmdn_config.iface", NetworkTotal)
	v.SetDefault("cmdn_config.net_rate_mode", string(RateModeDelta))
	v.SetDefault("cmdn_config.get_temperature", true)
	v.SetDefault("cmdn_config.temperature_item", "")
	v.SetDefault("cmdn_config.polling_secs", 1)

	v.SetDefault("file_systems_config.polling_secs", 0)

	v.SetDefault("kubernetes_config.polling_secs", 0)
	v.SetDefault("kubernetes_config.kubeconfig", "")
	v.SetDefault("kubernetes_config.request_timeout", "10s")

	v.SetDefault("forward.enabled", false)
	v.SetDefault("forward.grpc_addr", "")
	v.SetDefault("forward.method", "/stats.v1.StatsService/StreamSamples")
	v.SetDefault("forward.token", "")
	v.SetDefault("forward.node_id", "")
	v.SetDefault("forward.tls_enabled", false)
	v.SetDefault("forward.tls_skip_verify", false)
	v.SetDefault("forward.tls_ca_path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}
