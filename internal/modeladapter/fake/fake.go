// Package fake provides an in-memory modeladapter.Adapter for tests in
// other packages.
package fake

import (
	"context"
	"sync/atomic"
	"time"
)

// Adapter returns canned responses in order (repeating the last one once
// they run out), or fails every call with Err when Err is set — used to
// exercise the classifier's
// fallback chain and the memory/repository processors' degrade-to-minimal
// behavior without a real model call.
type Adapter struct {
	Responses []string
	Err       error

	calls atomic.Int32
}

func (a *Adapter) Invoke(_ context.Context, _ string, _ int, _ time.Duration) (string, error) {
	n := int(a.calls.Add(1)) - 1
	if a.Err != nil {
		return "", a.Err
	}
	if n < len(a.Responses) {
		return a.Responses[n], nil
	}
	if len(a.Responses) == 0 {
		return "", nil
	}
	return a.Responses[len(a.Responses)-1], nil
}

// Calls returns the number of times Invoke has been called.
func (a *Adapter) Calls() int {
	return int(a.calls.Load())
}
