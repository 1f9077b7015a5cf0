package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldnote/transcript-router/internal/blobstore/fake"
)

type fakeSecretsAdapter struct {
	missing map[string]bool
}

func (f fakeSecretsAdapter) Get(_ context.Context, name string) (string, error) {
	if f.missing[name] {
		return "", errors.New("unresolvable")
	}
	return "value", nil
}
func (f fakeSecretsAdapter) Invalidate(_ string) {}

func TestHealthCheckAllOK(t *testing.T) {
	h := HealthChecker{
		Blob:                 fake.New(),
		Secrets:              fakeSecretsAdapter{},
		RequiredSecrets:      []string{"github_token", "model_key"},
		ClassifierIsPathHint: true,
	}
	result := h.Check(context.Background())
	require.True(t, result.OK)
	require.True(t, result.Checks["secrets"])
	require.True(t, result.Checks["model"])
}

func TestHealthCheckFailsOnMissingSecret(t *testing.T) {
	h := HealthChecker{
		Blob:                 fake.New(),
		Secrets:              fakeSecretsAdapter{missing: map[string]bool{"github_token": true}},
		RequiredSecrets:      []string{"github_token"},
		ClassifierIsPathHint: true,
	}
	result := h.Check(context.Background())
	require.False(t, result.OK)
	require.False(t, result.Checks["secrets"])
}

func TestHealthCheckPingsModelWhenNotPathHint(t *testing.T) {
	called := false
	h := HealthChecker{
		Blob:            fake.New(),
		Secrets:         fakeSecretsAdapter{},
		RequiredSecrets: nil,
		PingModel: func(ctx context.Context) error {
			called = true
			return nil
		},
	}
	result := h.Check(context.Background())
	require.True(t, result.OK)
	require.True(t, called)
}
