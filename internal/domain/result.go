package domain

import (
	"encoding/json"
	"time"
)

// AgentResult is one processor's outcome for one event.
type AgentResult struct {
	Agent       AgentID        `json:"agent"`
	Status      Status         `json:"status"`
	CorrelationID string       `json:"-"`
	StartedAt   time.Time      `json:"started_at"`
	Duration    time.Duration  `json:"-"`
	Payload     map[string]any `json:"payload"`
	ErrorKind   string         `json:"error_kind,omitempty"`
}

// DurationMS renders Duration the way the Aggregate Result JSON schema
// wants it (milliseconds, as a number).
func (r AgentResult) DurationMS() float64 {
	return float64(r.Duration.Microseconds()) / 1000.0
}

// AggregateResult is the per-event summary written to
// outputs/<hint>/<yyyy>/<mm>/<dd>/<name>_response.json. It is always
// written exactly once per triggering transcript, even when every
// processor fails.
type AggregateResult struct {
	CorrelationID string          `json:"correlation_id"`
	TranscriptKey string          `json:"transcript_key"`
	Timestamp     time.Time       `json:"timestamp"`
	Routing       RoutingDecision `json:"routing"`
	Results       []AgentResult   `json:"results"`
}

// aggregateResultWire mirrors the persisted JSON schema exactly (routing
// and results use their own nested shapes; timestamps are ISO-8601 UTC
// strings, not Go's default RFC3339Nano-with-offset encoding).
type aggregateResultWire struct {
	CorrelationID string                 `json:"correlation_id"`
	TranscriptKey string                 `json:"transcript_key"`
	Timestamp     string                 `json:"timestamp"`
	Routing       routingWire            `json:"routing"`
	Results       []agentResultWire      `json:"results"`
}

type routingWire struct {
	Primary    string   `json:"primary"`
	Secondary  []string `json:"secondary"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale"`
	Mode       string   `json:"mode"`
}

type agentResultWire struct {
	Agent     string         `json:"agent"`
	Status    string         `json:"status"`
	StartedAt string         `json:"started_at"`
	DurationMS float64       `json:"duration_ms"`
	Payload   map[string]any `json:"payload"`
	ErrorKind *string        `json:"error_kind"`
}

// MarshalJSON renders the Aggregate Result per the persisted schema in
// spec §6, including the null-not-omitted error_kind field.
func (r AggregateResult) MarshalJSON() ([]byte, error) {
	secondary := make([]string, len(r.Routing.Secondary))
	for i, s := range r.Routing.Secondary {
		secondary[i] = s.String()
	}
	results := make([]agentResultWire, len(r.Results))
	for i, res := range r.Results {
		var errKind *string
		if res.ErrorKind != "" {
			errKind = &res.ErrorKind
		}
		results[i] = agentResultWire{
			Agent:      res.Agent.String(),
			Status:     string(res.Status),
			StartedAt:  res.StartedAt.UTC().Format(time.RFC3339Nano),
			DurationMS: res.DurationMS(),
			Payload:    res.Payload,
			ErrorKind:  errKind,
		}
	}
	wire := aggregateResultWire{
		CorrelationID: r.CorrelationID,
		TranscriptKey: r.TranscriptKey,
		Timestamp:     r.Timestamp.UTC().Format(time.RFC3339Nano),
		Routing: routingWire{
			Primary:    r.Routing.Primary.String(),
			Secondary:  secondary,
			Confidence: r.Routing.Confidence,
			Rationale:  r.Routing.Rationale,
			Mode:       string(r.Routing.Mode),
		},
		Results: results,
	}
	return json.Marshal(wire)
}
