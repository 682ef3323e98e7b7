package system

import (
	"context"
	"sort"
)

type SensorReading struct {
	Label   string
	Celsius float64
}

// RefreshSensors reads all thermal sensors. Partial results are kept: some
// platforms report a warning error alongside usable readings.
func (s *Source) RefreshSensors(ctx context.Context) {
	temps, err := s.probes.Temperatures(ctx)
	if err != nil && len(temps) == 0 {
		s.logger.Warn("read temperature sensors failed, keeping previous values", "error", err)
		return
	}
	out := make([]SensorReading, 0, len(temps))
	for _, t := range temps {
		out = append(out, SensorReading{Label: t.SensorKey, Celsius: t.Temperature})
	}
	s.readings = out
}

func (s *Source) Readings() []SensorReading {
	return append([]SensorReading(nil), s.readings...)
}

// ListTemperatureSensors is a live probe independent of the sampling loop.
func (s *Source) ListTemperatureSensors(ctx context.Context) ([]string, error) {
	temps, err := s.probes.Temperatures(ctx)
	if err != nil && len(temps) == 0 {
		return nil, err
	}
	labels := make([]string, 0, len(temps))
	for _, t := range temps {
		labels = append(labels, t.SensorKey)
	}
	sort.Strings(labels)
	return labels, nil
}
