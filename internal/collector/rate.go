package collector

import (
	"math"

	"stats-exporter/internal/config"
	"stats-exporter/internal/system"
)

// TemperatureNotFound is reported when the configured sensor label is not
// among the current readings.
const TemperatureNotFound = -1

func CPUAveragePercent(cores []float64) float64 {
	if len(cores) == 0 {
		return 0
	}
	var sum float64
	for _, c := range cores {
		sum += c
	}
	return sum / float64(len(cores))
}

// PercentOf returns used/total*100, or 0 when total is 0.
func PercentOf(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return clampPercent((float64(used) / float64(total)) * 100)
}

// FilesystemUsedPercent is (total-available)/total*100 for a matched disk,
// 0 when nothing matched.
func FilesystemUsedPercent(d system.DiskUsage, ok bool) float64 {
	if !ok || d.TotalBytes == 0 {
		return 0
	}
	used := uint64(0)
	if d.TotalBytes > d.AvailableBytes {
		used = d.TotalBytes - d.AvailableBytes
	}
	return PercentOf(used, d.TotalBytes)
}

// KbpsFromBytes converts a byte count over intervalSecs into kbit/s. The
// integer division order (x8, /interval, /1024) matches the historical
// output and must not be reordered.
func KbpsFromBytes(bytes uint64, intervalSecs int) float64 {
	if intervalSecs <= 0 {
		return 0
	}
	return float64(((bytes * 8) / uint64(intervalSecs)) / 1024)
}

// TemperatureFor returns the reading with an exactly matching label. When
// several sensors share a label the last one wins.
func TemperatureFor(readings []system.SensorReading, label string) float64 {
	temp := float64(TemperatureNotFound)
	for _, r := range readings {
		if r.Label == label {
			temp = r.Celsius
		}
	}
	return temp
}

type Throughput struct {
	DownKbps float64
	UpKbps   float64
}

// NetworkRate turns cumulative interface counters into throughput over the
// configured sampling interval.
type NetworkRate struct {
	mode         config.RateMode
	selector     string
	intervalSecs int
	delta        *deltaEngine
}

func NewNetworkRate(mode config.RateMode, selector string, intervalSecs int) *NetworkRate {
	if mode == "" {
		mode = config.RateModeDelta
	}
	return &NetworkRate{
		mode:         mode,
		selector:     selector,
		intervalSecs: intervalSecs,
		delta:        newDeltaEngine(),
	}
}

func (r *NetworkRate) selects(name string) bool {
	return r.selector == config.NetworkTotal || r.selector == name
}

// Observe consumes one round of counters. In delta mode it updates the
// per-interface baselines.
func (r *NetworkRate) Observe(ifaces []system.InterfaceCounters) Throughput {
	var rx, tx uint64
	for _, iface := range ifaces {
		if !r.selects(iface.Name) {
			continue
		}
		if r.mode == config.RateModeCumulative {
			rx += iface.RxBytes
			tx += iface.TxBytes
			continue
		}
		if d, ok := r.delta.ObserveCounter("net:"+iface.Name+":rx_bytes", iface.RxBytes); ok {
			rx += d
		}
		if d, ok := r.delta.ObserveCounter("net:"+iface.Name+":tx_bytes", iface.TxBytes); ok {
			tx += d
		}
	}
	if r.mode != config.RateModeCumulative {
		r.delta.prune()
	}
	return Throughput{
		DownKbps: KbpsFromBytes(rx, r.intervalSecs),
		UpKbps:   KbpsFromBytes(tx, r.intervalSecs),
	}
}

func clampPercent(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

func round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10) / 10
}
