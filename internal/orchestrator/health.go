package orchestrator

import (
	"context"

	"github.com/fieldnote/transcript-router/internal/blobstore"
	"github.com/fieldnote/transcript-router/internal/observability"
	"github.com/fieldnote/transcript-router/internal/secrets"
)

const healthSentinelKey = "health/sentinel"

// HealthChecker implements the side-channel health() operation from
// spec.md §6: blob store reachability, secret resolution of every
// required secret name, and (unless classifier.mode is path_hint or no
// PingModel is wired) model reachability via a short no-op prompt.
type HealthChecker struct {
	Blob                 blobstore.Store
	Secrets              secrets.Adapter
	RequiredSecrets      []string
	PingModel            func(ctx context.Context) error
	ClassifierIsPathHint bool
	// Metrics, when non-nil, has its router_health_* gauges updated
	// with each Check.
	Metrics *observability.Metrics
}

// Result is the {ok, checks} shape the health probe returns.
type Result struct {
	OK     bool            `json:"ok"`
	Checks map[string]bool `json:"checks"`
}

func (h HealthChecker) Check(ctx context.Context) Result {
	checks := make(map[string]bool)
	ok := true

	if _, err := h.Blob.Get(ctx, healthSentinelKey); err != nil && err != blobstore.ErrNotFound {
		checks["blob_store"] = false
		ok = false
	} else {
		checks["blob_store"] = true
	}

	secretsOK := true
	for _, name := range h.RequiredSecrets {
		if _, err := h.Secrets.Get(ctx, name); err != nil {
			secretsOK = false
			break
		}
	}
	checks["secrets"] = secretsOK
	if !secretsOK {
		ok = false
	}

	if h.ClassifierIsPathHint || h.PingModel == nil {
		checks["model"] = true
	} else if err := h.PingModel(ctx); err != nil {
		checks["model"] = false
		ok = false
	} else {
		checks["model"] = true
	}

	if h.Metrics != nil {
		h.Metrics.SetHealth(checks["blob_store"], checks["secrets"], checks["model"])
	}

	return Result{OK: ok, Checks: checks}
}
