package version

type GetVersionResponse struct {
	Version         string `json:"version"`
	NodeID          string `json:"node_id,omitempty"`
	InstanceID      string `json:"instance_id"`
	ProbeListenAddr string `json:"probe_listen_addr,omitempty"`
	StartedAtUnix   int64  `json:"started_at_unix"`
	CheckedAtUnix   int64  `json:"checked_at_unix"`
}
