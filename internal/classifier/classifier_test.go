package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldnote/transcript-router/internal/domain"
	"github.com/fieldnote/transcript-router/internal/modeladapter/fake"
)

func TestPathHintClassifierRoundTrip(t *testing.T) {
	c := New("path_hint", 0.5, nil, nil)

	cases := []struct {
		key   string
		agent domain.AgentID
	}{
		{"transcripts/work/2026/07/30/standup.txt", domain.AgentJournal},
		{"transcripts/memories/2026/07/30/birthday.txt", domain.AgentMemory},
		{"transcripts/github_ideas/2026/07/30/idea.txt", domain.AgentRepository},
	}

	for _, tc := range cases {
		decision, err := c.Classify(context.Background(), tc.key, "irrelevant body")
		require.NoError(t, err)
		require.Equal(t, tc.agent, decision.Primary)
		require.Equal(t, 1.0, decision.Confidence)
		require.Equal(t, domain.ModePathHint, decision.Mode)
	}
}

func TestPathHintClassifierFallsThroughOnUnknownHint(t *testing.T) {
	c := New("path_hint", 0.5, nil, nil)

	decision, err := c.Classify(context.Background(), "transcripts/unclassified/x.txt", "")
	require.NoError(t, err)
	require.Equal(t, domain.AgentJournal, decision.Primary)
	require.Equal(t, domain.ModeKeywordFallback, decision.Mode)
}

func TestKeywordClassifierDefaultsToJournalOnEmptyBody(t *testing.T) {
	decision := classifyKeywords("")
	require.Equal(t, domain.AgentJournal, decision.Primary)
	require.Equal(t, 0.2, decision.Confidence)
	require.Equal(t, domain.ModeKeywordFallback, decision.Mode)
}

func TestKeywordClassifierScenarioS4(t *testing.T) {
	decision := classifyKeywords("Had an idea for an app while remembering my first project at work.")
	require.Equal(t, domain.AgentRepository, decision.Primary)
}

func TestContentClassifierUsesValidModelResponse(t *testing.T) {
	model := &fake.Adapter{Responses: []string{
		`{"primary": "memory", "confidence": 0.9, "rationale": "mentions childhood"}`,
	}}
	c := New("content", 0.5, model, nil)

	decision, err := c.Classify(context.Background(), "transcripts/unclassified/x.txt", "I remember my childhood home.")
	require.NoError(t, err)
	require.Equal(t, domain.AgentMemory, decision.Primary)
	require.Equal(t, domain.ModeContent, decision.Mode)
	require.Equal(t, 1, model.Calls())
}

func TestContentClassifierFallsBackOnMalformedJSON(t *testing.T) {
	model := &fake.Adapter{Responses: []string{"not json at all"}}
	c := New("content", 0.5, model, nil)

	decision, err := c.Classify(context.Background(), "transcripts/work/x.txt", "met with the team")
	require.NoError(t, err)
	require.Equal(t, domain.AgentJournal, decision.Primary)
	require.Equal(t, domain.ModePathHint, decision.Mode)
}

func TestContentClassifierFallsBackOnLowConfidence(t *testing.T) {
	model := &fake.Adapter{Responses: []string{
		`{"primary": "repository", "confidence": 0.1, "rationale": "uncertain"}`,
	}}
	c := New("content", 0.5, model, nil)

	decision, err := c.Classify(context.Background(), "transcripts/memories/x.txt", "just a note")
	require.NoError(t, err)
	require.Equal(t, domain.AgentMemory, decision.Primary)
	require.Equal(t, domain.ModePathHint, decision.Mode)
}

func TestContentClassifierFallsBackOnModelError(t *testing.T) {
	model := &fake.Adapter{Err: context.DeadlineExceeded}
	c := New("content", 0.5, model, nil)

	decision, err := c.Classify(context.Background(), "transcripts/github_ideas/x.txt", "a prototype")
	require.NoError(t, err)
	require.Equal(t, domain.AgentRepository, decision.Primary)
	require.Equal(t, domain.ModePathHint, decision.Mode)
}

func TestContentClassifierPreservesHighConfidenceSecondaries(t *testing.T) {
	model := &fake.Adapter{Responses: []string{
		`{"primary": "journal", "secondary": [{"agent": "memory", "confidence": 0.7}, {"agent": "repository", "confidence": 0.3}], "confidence": 0.8, "rationale": "mixed"}`,
	}}
	c := New("content", 0.5, model, nil)

	decision, err := c.Classify(context.Background(), "transcripts/work/x.txt", "body")
	require.NoError(t, err)
	require.Equal(t, domain.AgentJournal, decision.Primary)
	require.Equal(t, []domain.AgentID{domain.AgentMemory}, decision.Secondary)
}

func TestContentClassifierStripsSurroundingProse(t *testing.T) {
	model := &fake.Adapter{Responses: []string{
		"Sure, here is the classification:\n```json\n{\"primary\": \"journal\", \"confidence\": 0.95, \"rationale\": \"standup notes\"}\n```",
	}}
	c := New("content", 0.5, model, nil)

	decision, err := c.Classify(context.Background(), "transcripts/work/x.txt", "standup notes")
	require.NoError(t, err)
	require.Equal(t, domain.AgentJournal, decision.Primary)
	require.Equal(t, domain.ModeContent, decision.Mode)
}
