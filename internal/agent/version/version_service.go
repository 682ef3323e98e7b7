// Package version describes the running exporter instance.
package version

import (
	"encoding/json"
	"time"

	"stats-exporter/internal/config"
)

type Info struct {
	cfg        config.Config
	instanceID string
	startedAt  time.Time
}

func New(cfg config.Config, instanceID string, startedAt time.Time) Info {
	return Info{cfg: cfg, instanceID: instanceID, startedAt: startedAt}
}

func (i Info) Get() *GetVersionResponse {
	return &GetVersionResponse{
		Version:         config.Version,
		NodeID:          i.cfg.Forward.NodeID,
		InstanceID:      i.instanceID,
		ProbeListenAddr: i.cfg.API.ProbeAddr,
		StartedAtUnix:   i.startedAt.Unix(),
		CheckedAtUnix:   time.Now().UTC().Unix(),
	}
}

// MarshalJSON renders the response as of the call time.
func (i Info) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.Get())
}
