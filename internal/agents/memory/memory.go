// Package memory implements the Memory Processor: it derives
// structured fields from a transcript (enriched via the model adapter,
// or minimal without a model call) and appends a Memory Record, per
// spec.md §4.6. Grounded on the classifier's ContentClassifier
// prompt-and-validate pattern, reused here for extraction instead of
// routing.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/fieldnote/transcript-router/internal/agents"
	"github.com/fieldnote/transcript-router/internal/blobstore"
	"github.com/fieldnote/transcript-router/internal/domain"
	"github.com/fieldnote/transcript-router/internal/observability"
	"github.com/fieldnote/transcript-router/internal/routererr"
)

// Model is the narrow model-adapter slice this processor needs.
type Model interface {
	Invoke(ctx context.Context, prompt string, maxTokens int, timeout time.Duration) (string, error)
}

// sentiments is the closed set from spec.md §3/§4.6.
var sentiments = map[string]bool{
	"joy": true, "sadness": true, "anger": true, "fear": true,
	"gratitude": true, "nostalgia": true, "neutral": true,
	"mixed": true, "unknown": true,
}

const (
	maxThemes = 6
	maxPeople = 8

	extractionMaxTokens = 512
	extractionTimeout   = 6 * time.Second
)

const extractionResponseSchema = `{
	"type": "object",
	"required": ["sentiment"],
	"additionalProperties": false,
	"properties": {
		"sentiment": {"type": "string"},
		"themes": {"type": "array", "items": {"type": "string"}},
		"people": {"type": "array", "items": {"type": "string"}},
		"significance": {"type": "number", "minimum": 0, "maximum": 1},
		"summary": {"type": "string"}
	}
}`

var compiledExtractionSchema = mustCompileSchema("memory_extraction_response", extractionResponseSchema)

func mustCompileSchema(name, schema string) *jsonschema.Schema {
	compiled, err := jsonschema.CompileString(name, schema)
	if err != nil {
		panic(fmt.Sprintf("memory: invalid schema %s: %v", name, err))
	}
	return compiled
}

type extractionResponse struct {
	Sentiment    string   `json:"sentiment"`
	Themes       []string `json:"themes"`
	People       []string `json:"people"`
	Significance float64  `json:"significance"`
	Summary      string   `json:"summary"`
}

// record is the wire shape of a Memory Record (spec.md §3).
type record struct {
	Timestamp    string   `json:"timestamp"`
	Content      string   `json:"content"`
	Sentiment    string   `json:"sentiment"`
	Themes       []string `json:"themes"`
	People       []string `json:"people"`
	Significance float64  `json:"significance"`
	Summary      string   `json:"summary,omitempty"`
}

// Enrichment selects whether the processor calls the model adapter.
type Enrichment string

const (
	EnrichmentOn  Enrichment = "on"
	EnrichmentOff Enrichment = "off"
)

// Processor appends Memory Records to memories/<YYYY-MM-DD>.jsonl.
type Processor struct {
	Blob       blobstore.Store
	Model      Model
	Enrichment Enrichment
	Logger     *observability.Logger
}

func (p Processor) Agent() domain.AgentID { return domain.AgentMemory }

func (p Processor) Process(ctx context.Context, in agents.ProcessInput) domain.AgentResult {
	result := agents.NewResult(domain.AgentMemory, in.CorrelationID, time.Now().UTC())

	key := memoryKey(in.EventTime)
	rec := record{
		Timestamp: in.EventTime.UTC().Format(time.RFC3339),
		Content:   in.Body,
	}

	if p.Enrichment == EnrichmentOn && p.Model != nil {
		extracted, ok := p.extract(ctx, in.Body)
		if ok {
			rec.Sentiment = extracted.Sentiment
			rec.Themes = extracted.Themes
			rec.People = extracted.People
			rec.Significance = extracted.Significance
			rec.Summary = extracted.Summary
		} else {
			p.Logger.Warn(ctx, "memory enrichment degraded to minimal", "correlation_id", in.CorrelationID)
			minimalFill(&rec)
		}
	} else {
		minimalFill(&rec)
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return agents.Finish(result, domain.StatusFailure, nil, routererr.Kind(fmt.Errorf("%w", routererr.ErrStorage)))
	}

	if err := p.Blob.AppendLine(ctx, key, string(line)); err != nil {
		p.Logger.Warn(ctx, "memory append failed", "memory_key", key, "error", err)
		return agents.Finish(result, domain.StatusFailure, nil, routererr.Kind(err))
	}

	payload := map[string]any{
		"memory_key":   key,
		"timestamp":    rec.Timestamp,
		"content":      rec.Content,
		"sentiment":    rec.Sentiment,
		"themes":       rec.Themes,
		"people":       rec.People,
		"significance": rec.Significance,
	}
	if rec.Summary != "" {
		payload["summary"] = rec.Summary
	}
	return agents.Finish(result, domain.StatusSuccess, payload, "")
}

// extract calls the model adapter with a fixed extraction prompt and
// validates the response. ok is false for any call failure, parse
// failure, or schema failure — the caller degrades to minimal mode.
func (p Processor) extract(ctx context.Context, body string) (extractionResponse, bool) {
	raw, err := p.Model.Invoke(ctx, extractionPrompt(body), extractionMaxTokens, extractionTimeout)
	if err != nil {
		return extractionResponse{}, false
	}

	raw = extractJSONObject(raw)

	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return extractionResponse{}, false
	}
	if err := compiledExtractionSchema.Validate(payload); err != nil {
		return extractionResponse{}, false
	}

	var resp extractionResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return extractionResponse{}, false
	}

	if !sentiments[resp.Sentiment] {
		resp.Sentiment = "unknown"
	}
	if len(resp.Themes) > maxThemes {
		resp.Themes = resp.Themes[:maxThemes]
	}
	if len(resp.People) > maxPeople {
		resp.People = resp.People[:maxPeople]
	}
	if resp.Significance < 0 || resp.Significance > 1 {
		resp.Significance = 0.5
	}
	return resp, true
}

func minimalFill(rec *record) {
	rec.Sentiment = "unknown"
	rec.Themes = []string{}
	rec.People = []string{}
	rec.Significance = 0.5
}

func memoryKey(t time.Time) string {
	return fmt.Sprintf("memories/%s.jsonl", t.UTC().Format("2006-01-02"))
}

func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

func extractionPrompt(body string) string {
	return fmt.Sprintf(`Extract structured fields from this personal transcript.
Sentiment must be exactly one of: joy, sadness, anger, fear, gratitude,
nostalgia, neutral, mixed, unknown. Themes and people are short strings.
Significance is a number from 0 to 1.

Respond with ONLY a JSON object, no prose:
{"sentiment": "<...>", "themes": ["..."], "people": ["..."], "significance": <0..1>, "summary": "<short summary>"}

Transcript:
%s`, body)
}
