// Package blobstore abstracts object GET/PUT/append access over the
// durable object store every other component reads from or writes to.
// The hard part is AppendLine: the assumed object store has no native
// atomic append, so it is implemented as read-modify-write gated by a
// conditional precondition on the object's ETag, retried with bounded
// exponential backoff.
package blobstore

import (
	"context"
	"errors"

	"github.com/fieldnote/transcript-router/internal/routererr"
)

// ErrNotFound is returned by Get when the object does not exist. It is a
// distinct sentinel from routererr.ErrStorage because callers (the
// Orchestrator's READING state, the Repository Processor's ledger scan)
// treat a missing object as a normal, expected outcome rather than a
// failure.
var ErrNotFound = errors.New("blobstore: object not found")

// Store is the uniform interface every component uses to reach the
// object store. S3Store and LocalStore both implement it.
type Store interface {
	// Get reads an object in full. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes an object, overwriting any existing content at key.
	// Puts are idempotent overwrites — used for aggregate results and
	// error records, never for the shared append-only objects.
	Put(ctx context.Context, key string, data []byte) error

	// AppendLine appends a single line (the caller supplies it without
	// a trailing newline; AppendLine adds exactly one) to the object at
	// key, creating it if absent. It retries internally on precondition
	// failures and returns routererr.ErrConflict if retries are
	// exhausted.
	AppendLine(ctx context.Context, key string, line string) error

	// List returns every object key with the given prefix. Used only by
	// maintenance utilities (the repository ledger scan uses Get, not
	// List, since it reads one well-known key).
	List(ctx context.Context, prefix string) ([]string, error)
}

// AppendConfig controls S3Store's conditional-write retry loop in
// AppendLine. LocalStore has no such loop and takes no AppendConfig.
type AppendConfig struct {
	MaxRetries int // N in spec terms; default 8
}

// DefaultAppendConfig matches spec §4.1: N=8, 50ms base, x2, jitter ±25%.
func DefaultAppendConfig() AppendConfig {
	return AppendConfig{MaxRetries: 8}
}

func wrapStorageErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &storageError{op: op, key: key, err: err}
}

type storageError struct {
	op  string
	key string
	err error
}

func (e *storageError) Error() string {
	return "blobstore: " + e.op + " " + e.key + ": " + e.err.Error()
}

func (e *storageError) Unwrap() error {
	return routererr.ErrStorage
}
