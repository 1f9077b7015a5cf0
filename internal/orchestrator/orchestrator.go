// Package orchestrator implements the per-event entry point: read the
// triggering transcript, classify it, fan out to the chosen
// processors, aggregate their results, and write the Aggregate
// Result — the state machine from spec.md §4.8
// (READY → READING → CLASSIFYING → DISPATCHING → AGGREGATING →
// WRITING → DONE, with a FAILED short-circuit to WRITING).
//
// Fan-out is grounded on the teacher's goroutine-per-task style seen
// in internal/agent/providers (each Complete call spawning an
// independent streaming goroutine): here, one goroutine per selected
// processor, joined with sync.WaitGroup under a shared parent
// deadline.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldnote/transcript-router/internal/agents"
	"github.com/fieldnote/transcript-router/internal/blobstore"
	"github.com/fieldnote/transcript-router/internal/classifier"
	"github.com/fieldnote/transcript-router/internal/domain"
	"github.com/fieldnote/transcript-router/internal/observability"
	"github.com/fieldnote/transcript-router/internal/routererr"
)

// maxTranscriptBytes is the 1 MiB size policy from spec.md §5.
const maxTranscriptBytes = 1 << 20

// Orchestrator wires the Classifier and the three Agent Processors
// together. It is safe for concurrent use across multiple events; each
// HandleEvent call owns its own state.
type Orchestrator struct {
	Blob       blobstore.Store
	Classifier classifier.Classifier
	Processors map[domain.AgentID]agents.Processor

	EventDeadline     time.Duration
	ProcessorDeadline time.Duration

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// New builds an Orchestrator with the three stock processors keyed by
// agent identity.
func New(blob blobstore.Store, cls classifier.Classifier, processors []agents.Processor, eventDeadline, processorDeadline time.Duration, logger *observability.Logger, metrics *observability.Metrics) *Orchestrator {
	byAgent := make(map[domain.AgentID]agents.Processor, len(processors))
	for _, p := range processors {
		byAgent[p.Agent()] = p
	}
	return &Orchestrator{
		Blob:              blob,
		Classifier:        cls,
		Processors:        byAgent,
		EventDeadline:     eventDeadline,
		ProcessorDeadline: processorDeadline,
		Logger:            logger,
		Metrics:           metrics,
	}
}

// HandleEvent processes one object-created notification record. Per
// spec.md §6, keys that don't start with "transcripts/" or don't end
// with ".txt" are acknowledged and ignored (HandleEvent returns nil).
func (o *Orchestrator) HandleEvent(ctx context.Context, transcriptKey string) error {
	if !strings.HasPrefix(transcriptKey, "transcripts/") || !strings.HasSuffix(transcriptKey, ".txt") {
		return nil
	}

	correlationID := uuid.NewString()
	ctx = observability.WithCorrelationID(ctx, correlationID)
	ctx, cancel := context.WithTimeout(ctx, o.EventDeadline)
	defer cancel()

	o.Logger.Info(ctx, "event received", "transcript_key", transcriptKey)
	o.Logger.Info(ctx, "correlation id generated", "correlation_id_source", "generated")

	eventTime := time.Now().UTC()

	// READING
	body, err := o.Blob.Get(ctx, transcriptKey)
	if err != nil {
		if err == blobstore.ErrNotFound {
			o.Logger.Warn(ctx, "transcript missing at read time", "transcript_key", transcriptKey)
			return o.writeAggregate(ctx, correlationID, transcriptKey, eventTime, minimalDecision(), nil, routererr.Kind(routererr.ErrSourceMissing))
		}
		o.Logger.Error(ctx, "transcript read failed", "transcript_key", transcriptKey, "error", err)
		return o.failEvent(ctx, correlationID, transcriptKey, eventTime, err)
	}

	if len(body) > maxTranscriptBytes {
		o.Logger.Warn(ctx, "transcript exceeds size limit", "transcript_key", transcriptKey, "size", len(body))
		return o.writeAggregate(ctx, correlationID, transcriptKey, eventTime, minimalDecision(), nil, routererr.Kind(routererr.ErrOversize))
	}

	// CLASSIFYING
	decision, err := o.Classifier.Classify(ctx, transcriptKey, string(body))
	if err != nil || decision.Validate() != nil {
		o.Logger.Warn(ctx, "classifier produced no valid decision, defaulting", "error", err)
		decision = minimalDecision()
	}

	// DISPATCHING + AGGREGATING
	results := o.dispatch(ctx, decision, agents.ProcessInput{
		CorrelationID: correlationID,
		EventTime:     eventTime,
		TranscriptKey: transcriptKey,
		Body:          string(body),
	})

	// WRITING
	return o.writeAggregate(ctx, correlationID, transcriptKey, eventTime, decision, results, "")
}

// dispatch invokes the primary processor and each secondary
// concurrently, each under its own per-processor deadline. A
// processor that is not wired (should not happen; the processor map
// always has all three agents) produces a skipped result rather than
// panicking.
func (o *Orchestrator) dispatch(ctx context.Context, decision domain.RoutingDecision, in agents.ProcessInput) []domain.AgentResult {
	order := decision.AllAgents()
	results := make([]domain.AgentResult, len(order))

	var wg sync.WaitGroup
	for i, agent := range order {
		wg.Add(1)
		go func(i int, agent domain.AgentID) {
			defer wg.Done()
			results[i] = o.invokeOne(ctx, agent, in)
		}(i, agent)
	}
	wg.Wait()

	return results
}

func (o *Orchestrator) invokeOne(ctx context.Context, agent domain.AgentID, in agents.ProcessInput) domain.AgentResult {
	processor, ok := o.Processors[agent]
	if !ok {
		return domain.AgentResult{
			Agent:         agent,
			Status:        domain.StatusSkipped,
			CorrelationID: in.CorrelationID,
			StartedAt:     time.Now().UTC(),
			Payload:       map[string]any{"reason": "no processor wired for agent"},
		}
	}

	procCtx, cancel := context.WithTimeout(ctx, o.ProcessorDeadline)
	defer cancel()

	started := time.Now()
	result := processor.Process(procCtx, in)

	if o.Metrics != nil {
		status := string(result.Status)
		o.Metrics.ProcessorOutcomes.WithLabelValues(string(agent), status).Inc()
		o.Metrics.ProcessorDuration.WithLabelValues(string(agent)).Observe(time.Since(started).Seconds())
	}
	return result
}

// minimalDecision is the defensive fallback used when the classifier
// itself fails (should be impossible given the keyword fallback always
// terminates the chain) and when READING short-circuits before a
// transcript body is available to classify.
func minimalDecision() domain.RoutingDecision {
	return domain.RoutingDecision{
		Primary:    domain.AgentJournal,
		Confidence: 0.2,
		Rationale:  "classifier unavailable",
		Mode:       domain.ModeKeywordFallback,
	}
}

// writeAggregate persists the Aggregate Result. orchestratorErrorKind,
// when non-empty, replaces the results with an empty list and is
// recorded in the routing rationale (used for the source-missing and
// oversize short-circuits, which never reach DISPATCHING).
func (o *Orchestrator) writeAggregate(ctx context.Context, correlationID, transcriptKey string, eventTime time.Time, decision domain.RoutingDecision, results []domain.AgentResult, orchestratorErrorKind string) error {
	if orchestratorErrorKind != "" {
		// Per spec.md §8 scenario S5, a source-missing event writes an
		// aggregate with an empty results list and no synthetic
		// per-agent result; the oversize short-circuit likewise never
		// reaches a processor, so it gets the same empty-results
		// treatment. The aggregate schema has no dedicated error field,
		// so the orchestrator-level failure is recorded in the routing
		// rationale and in the structured log line above.
		results = []domain.AgentResult{}
		decision.Rationale = "orchestrator error: " + orchestratorErrorKind
	}

	aggregate := domain.AggregateResult{
		CorrelationID: correlationID,
		TranscriptKey: transcriptKey,
		Timestamp:     time.Now().UTC(),
		Routing:       decision,
		Results:       results,
	}

	data, err := json.Marshal(aggregate)
	if err != nil {
		return o.failEvent(ctx, correlationID, transcriptKey, eventTime, err)
	}

	outputKey, err := outputKeyFor(transcriptKey)
	if err != nil {
		return o.failEvent(ctx, correlationID, transcriptKey, eventTime, err)
	}

	if err := o.Blob.Put(ctx, outputKey, data); err != nil {
		o.Logger.Error(ctx, "aggregate write failed", "output_key", outputKey, "error", err)
		return o.failEvent(ctx, correlationID, transcriptKey, eventTime, err)
	}

	o.Logger.Info(ctx, "event processed", "output_key", outputKey, "primary", decision.Primary.String())
	if o.Metrics != nil {
		o.Metrics.EventsProcessed.WithLabelValues("done").Inc()
	}
	return nil
}

// failEvent is the orchestrator-level failure path: it attempts one
// best-effort write to errors/<yyyy>/<mm>/<dd>/<correlation_id>.json
// and returns an error so the event source may redeliver.
func (o *Orchestrator) failEvent(ctx context.Context, correlationID, transcriptKey string, eventTime time.Time, cause error) error {
	errKey := fmt.Sprintf("errors/%s/%s.json", eventTime.UTC().Format("2006/01/02"), correlationID)
	payload, marshalErr := json.Marshal(map[string]any{
		"correlation_id": correlationID,
		"transcript_key": transcriptKey,
		"timestamp":      eventTime.UTC().Format(time.RFC3339Nano),
		"error":          cause.Error(),
	})
	if marshalErr == nil {
		if putErr := o.Blob.Put(ctx, errKey, payload); putErr != nil {
			o.Logger.Error(ctx, "best-effort error record write failed", "error_key", errKey, "error", putErr)
		}
	}
	if o.Metrics != nil {
		o.Metrics.EventsProcessed.WithLabelValues("failed").Inc()
	}
	return fmt.Errorf("orchestrator: event %s failed: %w", correlationID, cause)
}

// outputKeyFor derives outputs/<hint>/<yyyy>/<mm>/<dd>/<name>_response.json
// from transcripts/<hint>/<yyyy>/<mm>/<dd>/<name>.txt.
func outputKeyFor(transcriptKey string) (string, error) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(transcriptKey, "transcripts/"), ".txt")
	segments := strings.Split(trimmed, "/")
	if len(segments) != 5 {
		return "", fmt.Errorf("orchestrator: malformed transcript key %q", transcriptKey)
	}
	hint, year, month, day, name := segments[0], segments[1], segments[2], segments[3], segments[4]
	return fmt.Sprintf("outputs/%s/%s/%s/%s/%s_response.json", hint, year, month, day, name), nil
}
