// Package telemetry exposes the newest sample in Prometheus format. It reads
// the history on scrape and never writes to it.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"stats-exporter/internal/model"
)

const namespace = "stats_exporter"

type LatestReader interface {
	Latest() (model.Sample, bool)
	Len() int
}

type CycleCounter interface {
	Cycles() uint64
}

type Collector struct {
	history LatestReader
	sampler CycleCounter

	cpu, ram, swap, rootFS      *prometheus.Desc
	netDown, netUp, temperature *prometheus.Desc
	fsUsed                      *prometheus.Desc
	nodeCPU, nodeRAM, nodePods  *prometheus.Desc
	historyLen, cycles          *prometheus.Desc
}

func NewCollector(history LatestReader, sampler CycleCounter) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		history:     history,
		sampler:     sampler,
		cpu:         desc("cpu_percent", "Average CPU usage across cores."),
		ram:         desc("memory_percent", "Used memory percentage."),
		swap:        desc("swap_percent", "Used swap percentage."),
		rootFS:      desc("root_fs_percent", "Used space on the root filesystem."),
		netDown:     desc("net_down_kbps", "Download throughput in kbit/s."),
		netUp:       desc("net_up_kbps", "Upload throughput in kbit/s."),
		temperature: desc("temperature_celsius", "Configured temperature sensor reading."),
		fsUsed:      desc("filesystem_used_percent", "Used space on configured filesystems.", "fs_name", "mount_point"),
		nodeCPU:     desc("cluster_node_cpu_requests_percent", "Pod CPU requests over node allocatable.", "node", "role"),
		nodeRAM:     desc("cluster_node_memory_requests_percent", "Pod memory requests over node allocatable.", "node", "role"),
		nodePods:    desc("cluster_node_pods", "Running pods on the node.", "node", "role"),
		historyLen:  desc("history_samples", "Samples currently retained in history."),
		cycles:      desc("sampling_cycles_total", "Sampling cycles completed since start."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.cpu, c.ram, c.swap, c.rootFS, c.netDown, c.netUp, c.temperature,
		c.fsUsed, c.nodeCPU, c.nodeRAM, c.nodePods, c.historyLen, c.cycles,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.historyLen, prometheus.GaugeValue, float64(c.history.Len()))
	if c.sampler != nil {
		ch <- prometheus.MustNewConstMetric(c.cycles, prometheus.CounterValue, float64(c.sampler.Cycles()))
	}

	s, ok := c.history.Latest()
	if !ok {
		return
	}
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}
	gauge(c.cpu, s.Basic.CPUPercent)
	gauge(c.ram, s.Basic.RAMPercent)
	gauge(c.swap, s.Basic.SwapPercent)
	gauge(c.rootFS, s.Basic.RootFSPercent)
	gauge(c.netDown, s.Basic.NetDownKbps)
	gauge(c.netUp, s.Basic.NetUpKbps)
	gauge(c.temperature, s.Basic.TemperatureC)
	for _, fs := range s.Filesystems {
		gauge(c.fsUsed, fs.UsedPercent, fs.Label, fs.MountPoint)
	}
	for _, n := range s.Cluster {
		gauge(c.nodeCPU, n.Basic.CPUPercent, n.Name, n.Role)
		gauge(c.nodeRAM, n.Basic.RAMPercent, n.Name, n.Role)
		gauge(c.nodePods, float64(len(n.Pods)), n.Name, n.Role)
	}
}

// NewRegistry returns a registry holding the sample collector plus the Go
// runtime and process collectors.
func NewRegistry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}
