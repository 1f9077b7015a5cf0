package classifier

import (
	"context"
	"strings"

	"github.com/fieldnote/transcript-router/internal/domain"
)

// PathHintClassifier derives the primary agent from the second path
// segment of the transcript's object key, per spec §4.4. Keys whose hint
// doesn't map to a known agent (including the explicit "unclassified"
// hint) fall through to Fallback.
type PathHintClassifier struct {
	Fallback Classifier
}

func (c PathHintClassifier) Classify(ctx context.Context, key string, body string) (domain.RoutingDecision, error) {
	hint := pathHint(key)

	var primary domain.AgentID
	switch hint {
	case "work":
		primary = domain.AgentJournal
	case "memories":
		primary = domain.AgentMemory
	case "github_ideas":
		primary = domain.AgentRepository
	default:
		if c.Fallback != nil {
			return c.Fallback.Classify(ctx, key, body)
		}
		return classifyKeywords(body), nil
	}

	return domain.RoutingDecision{
		Primary:    primary,
		Confidence: 1.0,
		Rationale:  "path hint: " + hint,
		Mode:       domain.ModePathHint,
	}, nil
}

// pathHint extracts the second path segment of an object key
// (transcripts/<hint>/...). Returns "" if the key is too short to have
// one.
func pathHint(key string) string {
	segments := strings.Split(key, "/")
	if len(segments) < 2 {
		return ""
	}
	return segments[1]
}
