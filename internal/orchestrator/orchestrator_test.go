package orchestrator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fieldnote/transcript-router/internal/agents"
	"github.com/fieldnote/transcript-router/internal/blobstore"
	"github.com/fieldnote/transcript-router/internal/blobstore/fake"
	"github.com/fieldnote/transcript-router/internal/classifier"
	"github.com/fieldnote/transcript-router/internal/domain"
	"github.com/fieldnote/transcript-router/internal/observability"
)

type stubProcessor struct {
	agent  domain.AgentID
	delay  time.Duration
	status domain.Status
}

func (s stubProcessor) Agent() domain.AgentID { return s.agent }

func (s stubProcessor) Process(ctx context.Context, in agents.ProcessInput) domain.AgentResult {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return domain.AgentResult{Agent: s.agent, Status: domain.StatusFailure, CorrelationID: in.CorrelationID, StartedAt: time.Now().UTC(), ErrorKind: "timeout"}
		}
	}
	return domain.AgentResult{
		Agent:         s.agent,
		Status:        s.status,
		CorrelationID: in.CorrelationID,
		StartedAt:     time.Now().UTC(),
		Payload:       map[string]any{"ok": true},
	}
}

func newTestOrchestrator(store blobstore.Store, cls classifier.Classifier, procs ...agents.Processor) *Orchestrator {
	logger := observability.MustNewLogger(observability.LogConfig{Level: "error", Format: "json"})
	return New(store, cls, procs, 5*time.Second, 2*time.Second, logger, observability.NewMetrics())
}

func TestHandleEventIgnoresNonTranscriptKeys(t *testing.T) {
	store := fake.New()
	o := newTestOrchestrator(store, classifier.New("path_hint", 0.5, nil, observability.NewMetrics()),
		stubProcessor{agent: domain.AgentJournal, status: domain.StatusSuccess})

	err := o.HandleEvent(context.Background(), "outputs/work/2024/01/15/mon_response.json")
	require.NoError(t, err)
	require.Empty(t, store.Objects())
}

func TestHandleEventWritesAggregateOnSuccess(t *testing.T) {
	store := fake.New()
	require.NoError(t, store.Put(context.Background(), "transcripts/work/2024/01/15/mon.txt", []byte("Finished the authentication module; meeting with Priya tomorrow.")))

	o := newTestOrchestrator(store, classifier.New("path_hint", 0.5, nil, observability.NewMetrics()),
		stubProcessor{agent: domain.AgentJournal, status: domain.StatusSuccess},
		stubProcessor{agent: domain.AgentMemory, status: domain.StatusSuccess},
		stubProcessor{agent: domain.AgentRepository, status: domain.StatusSuccess},
	)

	err := o.HandleEvent(context.Background(), "transcripts/work/2024/01/15/mon.txt")
	require.NoError(t, err)

	raw, ok := store.Objects()["outputs/work/2024/01/15/mon_response.json"]
	require.True(t, ok)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "journal", decoded["routing"].(map[string]any)["primary"])
	results := decoded["results"].([]any)
	require.Len(t, results, 1)
}

func TestHandleEventSourceMissingWritesEmptyAggregate(t *testing.T) {
	store := fake.New()
	o := newTestOrchestrator(store, classifier.New("path_hint", 0.5, nil, observability.NewMetrics()),
		stubProcessor{agent: domain.AgentJournal, status: domain.StatusSuccess})

	err := o.HandleEvent(context.Background(), "transcripts/work/2024/01/15/missing.txt")
	require.NoError(t, err)

	raw, ok := store.Objects()["outputs/work/2024/01/15/missing_response.json"]
	require.True(t, ok)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Empty(t, decoded["results"])
}

func TestHandleEventDispatchesSecondariesConcurrently(t *testing.T) {
	store := fake.New()
	require.NoError(t, store.Put(context.Background(), "transcripts/unclassified/2024/03/03/mixed.txt", []byte("Had an idea for an app while remembering my first project at work.")))

	// path_hint on an "unclassified" hint falls through to keyword,
	// which (per spec S4) picks repository as primary with no
	// secondaries — so dispatch here only concurrency-tests a single
	// processor; the two delayed stubs below exercise the
	// doesn't-block-on-each-other property directly.
	slow := stubProcessor{agent: domain.AgentJournal, delay: 50 * time.Millisecond, status: domain.StatusSuccess}
	fast := stubProcessor{agent: domain.AgentMemory, status: domain.StatusSuccess}

	o := newTestOrchestrator(store, classifier.New("path_hint", 0.5, nil, observability.NewMetrics()), slow, fast)

	start := time.Now()
	results := o.dispatch(context.Background(), domain.RoutingDecision{
		Primary:   domain.AgentJournal,
		Secondary: []domain.AgentID{domain.AgentMemory},
		Mode:      domain.ModePathHint,
	}, agents.ProcessInput{CorrelationID: "c1", EventTime: time.Now().UTC()})
	elapsed := time.Since(start)

	require.Len(t, results, 2)
	require.Less(t, elapsed, 100*time.Millisecond)
}

func TestOutputKeyForDerivesFromTranscriptKey(t *testing.T) {
	key, err := outputKeyFor("transcripts/github_ideas/2024/02/02/tracker.txt")
	require.NoError(t, err)
	require.Equal(t, "outputs/github_ideas/2024/02/02/tracker_response.json", key)
}

func TestOutputKeyForRejectsMalformedKey(t *testing.T) {
	_, err := outputKeyFor("transcripts/work/tracker.txt")
	require.Error(t, err)
}
