package model

type MetricType string

const (
	MetricTypeSample MetricType = "host_sample"
)

// Envelope is transport-agnostic framing for forwarded samples.
type Envelope struct {
	Type          MetricType `json:"type"`
	NodeID        string     `json:"node_id"`
	InstanceID    string     `json:"instance_id"`
	TimestampUnix int64      `json:"timestamp_unix"`
	Payload       any        `json:"payload"`
}

func NewSampleEnvelope(nodeID, instanceID string, s Sample) Envelope {
	return Envelope{
		Type:          MetricTypeSample,
		NodeID:        nodeID,
		InstanceID:    instanceID,
		TimestampUnix: s.Timestamp.Unix(),
		Payload:       s,
	}
}
