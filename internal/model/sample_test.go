package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleCloneDoesNotAlias(t *testing.T) {
	orig := Sample{
		Timestamp:   time.Unix(100, 0),
		Filesystems: []FilesystemUsage{{Label: "data", MountPoint: "/data", UsedPercent: 10}},
		Cluster:     []ClusterNodeUsage{{Name: "n1", Pods: []string{"a", "b"}}},
	}

	c := orig.Clone()
	c.Filesystems[0].UsedPercent = 99
	c.Cluster[0].Pods[0] = "z"

	assert.Equal(t, 10.0, orig.Filesystems[0].UsedPercent)
	assert.Equal(t, "a", orig.Cluster[0].Pods[0])
}

func TestSampleJSONUsesArraysForEmptyGroups(t *testing.T) {
	raw, err := json.Marshal(Sample{}.Clone())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []any{}, decoded["file_systems_stats"])
	assert.Equal(t, []any{}, decoded["kubernetes_stats"])

	basic, ok := decoded["basic_stats"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"cpu", "ram", "root_fs", "swap_fs", "net_down_kbps", "net_up_kbps", "temperature"} {
		assert.Contains(t, basic, key)
	}
}

func TestNewSampleEnvelope(t *testing.T) {
	s := Sample{Timestamp: time.Unix(1700000000, 0)}
	env := NewSampleEnvelope("host-a", "inst-1", s)

	assert.Equal(t, MetricTypeSample, env.Type)
	assert.Equal(t, "host-a", env.NodeID)
	assert.Equal(t, "inst-1", env.InstanceID)
	assert.Equal(t, int64(1700000000), env.TimestampUnix)
}
