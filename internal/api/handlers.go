package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"stats-exporter/internal/config"
)

func (s *Server) handleHelp(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, s.deps.Help)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.deps.InstanceID != "" {
		w.Header().Set(InstanceHeader, s.deps.InstanceID)
	}
	s.writeJSON(w, http.StatusOK, s.deps.History.Snapshot())
}

func (s *Server) handleTempItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Items.ListTemperatureSensors(r.Context())
	s.writeItems(w, "temperature sensors", items, err)
}

func (s *Server) handleNetworkItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Items.ListNetworkInterfaces(r.Context())
	s.writeItems(w, "network interfaces", items, err)
}

func (s *Server) writeItems(w http.ResponseWriter, what string, items []string, err error) {
	if err != nil {
		s.logger.Warn("list probe failed", "items", what, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("list %s: %v", what, err)})
		return
	}
	if items == nil {
		items = []string{}
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := http.StatusOK
	if !s.deps.Health.Ready() {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, s.deps.Health.Snapshot())
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Version)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response failed", "error", err)
	}
}

// HelpText renders the plain-text landing page for the configured sampling.
func HelpText(s config.Sampling) string {
	var b strings.Builder
	b.WriteString("Hello from stats-exporter!\n\n")
	b.WriteString("Currently building usage statistics for\n")
	for _, m := range []struct {
		on   bool
		name string
	}{
		{s.Metrics.CPU, "cpu"},
		{s.Metrics.Memory, "memory"},
		{s.Metrics.RootFS, "root filesystem"},
		{s.Metrics.Swap, "swap"},
	} {
		if m.on {
			fmt.Fprintf(&b, "    .- %s\n", m.name)
		}
	}
	if s.Metrics.Temperature {
		fmt.Fprintf(&b, "    .- temperature sensor %s\n", s.TemperatureSensor)
	}
	if s.Metrics.Network {
		if s.NetworkInterface == config.NetworkTotal {
			b.WriteString("    .- total bandwidth (all interfaces)\n")
		} else {
			fmt.Fprintf(&b, "    .- bandwidth on interface %s\n", s.NetworkInterface)
		}
	}
	for _, fs := range s.Filesystems.Targets {
		fmt.Fprintf(&b, "    .- filesystem %s (%s)\n", fs.Label, fs.MountPoint)
	}
	if s.Cluster.Enabled {
		fmt.Fprintf(&b, "    .- kubernetes requests on %d nodes\n", len(s.Cluster.Nodes))
	}
	fmt.Fprintf(&b, "\nevery %d seconds with a history depth of %d\n\n", s.IntervalSecs, s.HistoryDepth)
	b.WriteString("Use:\n")
	b.WriteString("    /get-stats to access usage statistics\n")
	b.WriteString("    /get-ntwk-items to get the names of the available network interfaces\n")
	b.WriteString("    /get-temp-items to get the list of available temperature sensors\n")
	b.WriteString("    /healthz, /version and /metrics for operations\n")
	return b.String()
}
