package modeladapter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAnthropicAdapterRequiresAPIKey(t *testing.T) {
	_, err := NewAnthropicAdapter(Config{})
	require.Error(t, err)
}

func TestNewAnthropicAdapterDefaultsModel(t *testing.T) {
	adapter, err := NewAnthropicAdapter(Config{APIKey: "sk-ant-test"})
	require.NoError(t, err)
	require.Equal(t, defaultModel, adapter.model)
}

func TestIsRetryableClassifiesTransientErrors(t *testing.T) {
	require.True(t, isRetryable(errors.New("connection reset by peer")))
	require.True(t, isRetryable(errors.New("request timeout")))
	require.False(t, isRetryable(errors.New("invalid request: missing field")))
}
