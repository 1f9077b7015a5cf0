// Package modeladapter wraps a single non-streaming LLM call:
// invoke(prompt, max_tokens, timeout) -> string. It is deliberately a
// much smaller surface than the teacher's agent.LLMProvider (which adds
// streaming, tool-calling, and multi-provider failover) because this
// router's only model consumers — the content classifier and the memory
// and repository processors' generation steps — make one blocking call
// and want the finished text back, never a token stream.
package modeladapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fieldnote/transcript-router/internal/observability"
	"github.com/fieldnote/transcript-router/internal/retry"
	"github.com/fieldnote/transcript-router/internal/routererr"
)

// Adapter invokes an LLM with a prompt and returns its raw text response.
// It does not parse JSON; parsing and schema validation are the caller's
// responsibility (the classifier and the memory/repository processors
// each validate the shape they expect).
type Adapter interface {
	Invoke(ctx context.Context, prompt string, maxTokens int, timeout time.Duration) (string, error)
}

// Config configures an AnthropicAdapter.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// Metrics, when non-nil, records Invoke outcomes on
	// Metrics.ModelInvocations.
	Metrics *observability.Metrics
}

const defaultModel = "claude-sonnet-4-20250514"

// AnthropicAdapter is the production Adapter, backed by
// github.com/anthropics/anthropic-sdk-go.
type AnthropicAdapter struct {
	client  anthropic.Client
	model   string
	metrics *observability.Metrics
}

// NewAnthropicAdapter constructs an AnthropicAdapter.
func NewAnthropicAdapter(cfg Config) (*AnthropicAdapter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("modeladapter: api key is required: %w", routererr.ErrConfig)
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicAdapter{client: anthropic.NewClient(options...), model: model, metrics: cfg.Metrics}, nil
}

// retryConfig implements spec §4.3: 250ms base, x2, up to 3 attempts,
// jitter ±20%. This layers on top of (not in place of) the SDK's own
// transport-level retries — it covers throttle/timeout signals the SDK
// surfaces as an error rather than retrying itself.
func retryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:    3,
		InitialDelay:   250 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		Factor:         2.0,
		JitterFraction: 0.20,
	}
}

// Invoke calls the model with prompt, enforcing a hard per-call deadline.
// Exceeding the deadline yields routererr.ErrTimeout. Transport errors and
// explicit throttle signals are retried; 4xx semantic errors are not.
func (a *AnthropicAdapter) Invoke(ctx context.Context, prompt string, maxTokens int, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if maxTokens <= 0 {
		maxTokens = 1024
	}

	text, result := retry.DoWithValue(callCtx, retryConfig(), func() (string, error) {
		return a.complete(callCtx, prompt, maxTokens)
	})

	outcome := "success"
	if result.Err == nil && result.Attempts > 1 {
		outcome = "retry"
	}
	defer func() {
		if a.metrics != nil {
			a.metrics.ModelInvocations.WithLabelValues(outcome).Inc()
		}
	}()

	if result.Err == nil {
		return text, nil
	}
	if errors.Is(result.Err, context.DeadlineExceeded) {
		outcome = "timeout"
		return "", fmt.Errorf("modeladapter: call exceeded %s: %w", timeout, routererr.ErrTimeout)
	}
	if retry.IsPermanent(result.Err) {
		outcome = "error"
		return "", fmt.Errorf("modeladapter: %w: %w", result.Err, routererr.ErrModel)
	}
	outcome = "error"
	return "", fmt.Errorf("modeladapter: exhausted %d attempts: %w: %w", result.Attempts, result.Err, routererr.ErrModel)
}

func (a *AnthropicAdapter) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		if isRetryable(err) {
			return "", err
		}
		return "", retry.Permanent(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// isRetryable classifies a raw Anthropic API error as transient, mirroring
// the teacher's providers.isRetryableError: rate limits, 5xx, and
// timeouts are retried; anything else (4xx semantic errors) is not.
func isRetryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "connection") || strings.Contains(msg, "rate limit")
}
