// Package classifier maps a transcript to a domain.RoutingDecision. Three
// implementations share one interface — PathHintClassifier,
// ContentClassifier, and KeywordClassifier — mirroring the teacher's
// routing.Router/routing.Classifier split (internal/agent/routing), with
// the teacher's rule-matching generalized into hint-matching and its
// HeuristicClassifier generalized into the three-bucket keyword scorer
// below.
package classifier

import (
	"context"

	"github.com/fieldnote/transcript-router/internal/domain"
	"github.com/fieldnote/transcript-router/internal/observability"
)

// Classifier maps a transcript's object key and body to a routing
// decision.
type Classifier interface {
	Classify(ctx context.Context, key string, body string) (domain.RoutingDecision, error)
}

// New builds the classifier selected by mode, wired per spec §4.4:
// content mode falls back to path-hint, which falls back to keyword.
// path_hint mode never calls the model adapter at all. metrics may be
// nil (tests commonly pass none); when set, every decision is counted
// by the mode that ultimately produced it.
func New(mode string, minConfidence float64, model ModelInvoker, metrics *observability.Metrics) Classifier {
	keyword := KeywordClassifier{}
	pathHint := PathHintClassifier{Fallback: keyword}

	var base Classifier
	if mode == "path_hint" {
		base = pathHint
	} else {
		base = ContentClassifier{
			Model:         model,
			MinConfidence: minConfidence,
			Fallback:      pathHint,
		}
	}

	if metrics == nil {
		return base
	}
	return metricsClassifier{base: base, metrics: metrics}
}

// metricsClassifier decorates a Classifier to count decisions by mode,
// without every implementation (and their Fallback chains) needing to
// know about observability.
type metricsClassifier struct {
	base    Classifier
	metrics *observability.Metrics
}

func (c metricsClassifier) Classify(ctx context.Context, key string, body string) (domain.RoutingDecision, error) {
	decision, err := c.base.Classify(ctx, key, body)
	if err == nil {
		c.metrics.ClassifierDecisions.WithLabelValues(string(decision.Mode)).Inc()
	}
	return decision, err
}
