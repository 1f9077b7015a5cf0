package classifier

import (
	"context"
	"strings"

	"github.com/fieldnote/transcript-router/internal/domain"
)

// journalKeywords, memoryKeywords, and repositoryKeywords are the three
// closed, small, case-insensitive substring-match sets from spec §4.4.
var (
	journalKeywords = []string{
		"meeting", "deadline", "client", "team", "completed", "finished",
		"worked on", "sprint", "deploy",
	}
	memoryKeywords = []string{
		"remember", "felt", "grateful", "childhood", "mom", "dad", "family",
	}
	repositoryKeywords = []string{
		"idea for", "build an app", "project that", "prototype", "what if we",
	}
)

// KeywordClassifier is the classifier of last resort: deterministic,
// no model call, no path parsing. Every other classifier's fallback
// chain terminates here.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, _ string, body string) (domain.RoutingDecision, error) {
	return classifyKeywords(body), nil
}

func classifyKeywords(body string) domain.RoutingDecision {
	lower := strings.ToLower(body)

	journalCount := countMatches(lower, journalKeywords)
	memoryCount := countMatches(lower, memoryKeywords)
	repositoryCount := countMatches(lower, repositoryKeywords)

	// Ties broken in the order (repository, journal, memory) — this bias
	// matches the source system's observed intent, per spec §4.4.
	type candidate struct {
		agent domain.AgentID
		count int
	}
	candidates := []candidate{
		{domain.AgentRepository, repositoryCount},
		{domain.AgentJournal, journalCount},
		{domain.AgentMemory, memoryCount},
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.count > best.count {
			best = c
		}
	}

	if best.count == 0 {
		return domain.RoutingDecision{
			Primary:    domain.AgentJournal,
			Confidence: 0.2,
			Rationale:  "keyword fallback: no keyword matches, defaulting to journal",
			Mode:       domain.ModeKeywordFallback,
		}
	}

	confidence := 0.4 + 0.15*float64(best.count)
	if confidence > 1.0 {
		confidence = 1.0
	}

	return domain.RoutingDecision{
		Primary:    best.agent,
		Confidence: confidence,
		Rationale:  "keyword fallback: matched " + best.agent.String() + " keywords",
		Mode:       domain.ModeKeywordFallback,
	}
}

func countMatches(lower string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			count++
		}
	}
	return count
}
