// Package routererr defines the router's closed error taxonomy. Every
// error that crosses a component boundary is one of these sentinels,
// wrapped with additional context via fmt.Errorf's %w verb and matched
// with errors.Is/errors.As — the same idiom the teacher uses for its
// retry.PermanentError and providers.ProviderError wrapping.
package routererr

import "errors"

var (
	// ErrSourceMissing is returned when the transcript object is absent
	// at READ time.
	ErrSourceMissing = errors.New("transcript object not found")

	// ErrClassify is returned when the classifier produced no valid
	// decision even after all fallbacks. Defensive only — the keyword
	// fallback always produces a decision, so this should never surface
	// in practice.
	ErrClassify = errors.New("classifier produced no valid routing decision")

	// ErrModel is returned when the model adapter call failed or
	// returned invalid output after retries.
	ErrModel = errors.New("model adapter call failed")

	// ErrStorage is returned for non-retryable blob store failures
	// (auth, quota, 5xx after retries).
	ErrStorage = errors.New("blob store operation failed")

	// ErrConflict is returned when a conditional append exhausted its
	// retries, or a repository name collision exhausted its retries.
	ErrConflict = errors.New("conditional write exhausted retries")

	// ErrExternal is returned for non-retryable external API errors
	// (the Repository Processor's code-hosting API calls).
	ErrExternal = errors.New("external API call failed")

	// ErrAuth is returned when a credential is missing or rejected.
	ErrAuth = errors.New("credential missing or rejected")

	// ErrTimeout is returned when a deadline (event, processor, or
	// model) is exceeded.
	ErrTimeout = errors.New("deadline exceeded")

	// ErrConfig is returned when required configuration is missing.
	// At startup this is fatal.
	ErrConfig = errors.New("required configuration missing")

	// ErrOversize is returned when a transcript exceeds the 1 MiB size
	// policy.
	ErrOversize = errors.New("transcript exceeds size limit")
)

// Kind maps a router error to the short string persisted in an Agent
// Result's error_kind field. nil maps to "" and unrecognized errors map to
// "unknown", so callers can tell the difference between "no error" and "an
// error routererr doesn't know about" (which should not happen given the closed taxonomy, but
// Kind degrades gracefully rather than panicking).
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceMissing):
		return "source_missing"
	case errors.Is(err, ErrClassify):
		return "classify"
	case errors.Is(err, ErrModel):
		return "model"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrExternal):
		return "external"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrOversize):
		return "oversize"
	default:
		return "unknown"
	}
}
