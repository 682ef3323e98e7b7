package config

import (
	"strings"
	"time"
)

// Sampling is the immutable record the sampling engine is built from. It is
// derived once from a validated Config.
type Sampling struct {
	IntervalSecs      int
	HistoryDepth      int
	NetworkInterface  string
	NetRateMode       RateMode
	TemperatureSensor string
	Metrics           MetricToggles
	Filesystems       FilesystemFeature
	Cluster           ClusterFeature
}

type MetricToggles struct {
	CPU         bool
	Memory      bool
	RootFS      bool
	Swap        bool
	Network     bool
	Temperature bool
}

// Feature is an optional, throttled sub-metric. RefreshSecs 0 selects the
// long default refresh.
type Feature struct {
	Enabled     bool
	RefreshSecs int
}

type FilesystemTarget struct {
	Label      string
	MountPoint string
}

type FilesystemFeature struct {
	Feature
	Targets []FilesystemTarget
}

type NodeRole string

const (
	NodeRoleMaster NodeRole = "master"
	NodeRoleWorker NodeRole = "worker"
)

type NodeTarget struct {
	Role NodeRole
	Name string
	IP   string
}

type ClusterFeature struct {
	Feature
	Nodes             []NodeTarget
	ExcludeNamespaces []string
	Kubeconfig        string
	RequestTimeout    time.Duration
}

// Sampling assumes c has passed Validate.
func (c Config) Sampling() Sampling {
	s := Sampling{
		IntervalSecs:      c.Basic.PollingSecs,
		HistoryDepth:      c.API.HistoryDepth,
		NetworkInterface:  strings.TrimSpace(c.Basic.Iface),
		NetRateMode:       RateMode(c.Basic.NetRateMode),
		TemperatureSensor: strings.TrimSpace(c.Basic.TemperatureItem),
		Metrics: MetricToggles{
			CPU:     c.Basic.GetCPU,
			Memory:  c.Basic.GetMem,
			RootFS:  c.Basic.GetRootFS,
			Swap:    c.Basic.GetSwapFS,
			Network: c.Basic.GetNet,
		},
	}
	s.Metrics.Temperature = c.Basic.GetTemperature && s.TemperatureSensor != ""
	if !s.Metrics.Temperature {
		s.TemperatureSensor = ""
	}

	fsPairs, _ := pairs("file_systems_config.file_systems", c.FileSystems.FileSystems)
	for _, p := range fsPairs {
		s.Filesystems.Targets = append(s.Filesystems.Targets, FilesystemTarget{Label: p.first, MountPoint: p.second})
	}
	s.Filesystems.Enabled = len(s.Filesystems.Targets) > 0
	s.Filesystems.RefreshSecs = c.FileSystems.PollingSecs

	masters, _ := pairs("kubernetes_config.master_nodes_ip", c.Kubernetes.MasterNodesIP)
	workers, _ := pairs("kubernetes_config.worker_nodes_ip", c.Kubernetes.WorkerNodesIP)
	for _, p := range masters {
		s.Cluster.Nodes = append(s.Cluster.Nodes, NodeTarget{Role: NodeRoleMaster, Name: p.first, IP: p.second})
	}
	for _, p := range workers {
		s.Cluster.Nodes = append(s.Cluster.Nodes, NodeTarget{Role: NodeRoleWorker, Name: p.first, IP: p.second})
	}
	s.Cluster.Enabled = len(masters) > 0
	s.Cluster.RefreshSecs = c.Kubernetes.PollingSecs
	s.Cluster.ExcludeNamespaces = append([]string(nil), c.Kubernetes.ExcludeNamespaces...)
	s.Cluster.Kubeconfig = c.Kubernetes.Kubeconfig
	s.Cluster.RequestTimeout = c.Kubernetes.RequestTimeout
	if s.Cluster.RequestTimeout <= 0 {
		s.Cluster.RequestTimeout = 10 * time.Second
	}
	return s
}
