// Package agents defines the common processor contract shared by the
// journal, memory, and repository processors, per spec.md §9's
// recommended replacement for the source's dynamic-registry dispatch:
// a small dispatch table keyed by agent variant, each entry
// implementing one operation.
package agents

import (
	"context"
	"time"

	"github.com/fieldnote/transcript-router/internal/domain"
)

// ProcessInput is everything a Processor needs to act on one event.
// It carries the triggering transcript's key and body but no output keys
// or agent metadata — each processor derives its own object keys.
type ProcessInput struct {
	CorrelationID string
	EventTime     time.Time
	TranscriptKey string
	Body          string
}

// Processor performs one agent's side effects for a single event and
// always returns a domain.AgentResult — failures are reported in the
// result, never as a Go error, so the Orchestrator can contain them
// without aborting sibling processors.
type Processor interface {
	Agent() domain.AgentID
	Process(ctx context.Context, in ProcessInput) domain.AgentResult
}

// NewResult seeds the fields every processor must set regardless of
// outcome, for subpackages (journal, memory, repository) to build on.
func NewResult(agent domain.AgentID, correlationID string, startedAt time.Time) domain.AgentResult {
	return domain.AgentResult{
		Agent:         agent,
		CorrelationID: correlationID,
		StartedAt:     startedAt,
	}
}

// Finish stamps duration and status onto a result built from NewResult.
func Finish(result domain.AgentResult, status domain.Status, payload map[string]any, errKind string) domain.AgentResult {
	result.Status = status
	result.Payload = payload
	result.ErrorKind = errKind
	result.Duration = time.Since(result.StartedAt)
	return result
}
