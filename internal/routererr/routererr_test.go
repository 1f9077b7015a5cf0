package routererr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindMapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("append failed after retries: %w", ErrConflict)
	require.Equal(t, "conflict", Kind(wrapped))
}

func TestKindNilIsEmpty(t *testing.T) {
	require.Equal(t, "", Kind(nil))
}

func TestKindUnknownError(t *testing.T) {
	require.Equal(t, "unknown", Kind(fmt.Errorf("something else")))
}
