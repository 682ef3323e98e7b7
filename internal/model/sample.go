package model

import "time"

// BasicStats is the per-cycle host usage block. Percentages and rates are
// rounded to one decimal when the sample is built.
type BasicStats struct {
	CPUPercent    float64 `json:"cpu"`
	RAMPercent    float64 `json:"ram"`
	RootFSPercent float64 `json:"root_fs"`
	SwapPercent   float64 `json:"swap_fs"`
	NetDownKbps   float64 `json:"net_down_kbps"`
	NetUpKbps     float64 `json:"net_up_kbps"`
	TemperatureC  float64 `json:"temperature"`
}

type FilesystemUsage struct {
	Label       string  `json:"fs_name"`
	MountPoint  string  `json:"fs_mount_point"`
	UsedPercent float64 `json:"fs_used_percentage"`
}

// ClusterNodeUsage describes one Kubernetes node. Basic only carries CPU and
// RAM, computed as pod requests over node allocatable.
type ClusterNodeUsage struct {
	Role        string     `json:"node_role"`
	Name        string     `json:"node_name"`
	IP          string     `json:"node_ip"`
	Basic       BasicStats `json:"node_basic_stats"`
	Pods        []string   `json:"node_pods"`
	PodCapacity int64      `json:"node_pods_max"`
}

// Sample is one point of history. It is never mutated after being appended.
type Sample struct {
	Timestamp   time.Time          `json:"timestamp"`
	Basic       BasicStats         `json:"basic_stats"`
	Filesystems []FilesystemUsage  `json:"file_systems_stats"`
	Cluster     []ClusterNodeUsage `json:"kubernetes_stats"`
}

// Clone returns a deep copy. Nil groups become empty slices so JSON output
// always carries arrays.
func (s Sample) Clone() Sample {
	out := s
	out.Filesystems = CloneFilesystems(s.Filesystems)
	out.Cluster = CloneClusterNodes(s.Cluster)
	return out
}

func CloneFilesystems(in []FilesystemUsage) []FilesystemUsage {
	out := make([]FilesystemUsage, len(in))
	copy(out, in)
	return out
}

func CloneClusterNodes(in []ClusterNodeUsage) []ClusterNodeUsage {
	out := make([]ClusterNodeUsage, len(in))
	for i, n := range in {
		out[i] = n
		out[i].Pods = append([]string{}, n.Pods...)
	}
	return out
}
