package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/fieldnote/transcript-router/internal/domain"
)

// ModelInvoker is the narrow slice of modeladapter.Adapter this package
// needs. Defined locally so classifier doesn't import modeladapter just
// to name a method signature.
type ModelInvoker interface {
	Invoke(ctx context.Context, prompt string, maxTokens int, timeout time.Duration) (string, error)
}

const classificationResponseSchema = `{
	"type": "object",
	"required": ["primary", "confidence"],
	"additionalProperties": false,
	"properties": {
		"primary": {"type": "string", "enum": ["journal", "memory", "repository"]},
		"secondary": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["agent"],
				"additionalProperties": false,
				"properties": {
					"agent": {"type": "string", "enum": ["journal", "memory", "repository"]},
					"confidence": {"type": "number", "minimum": 0, "maximum": 1}
				}
			}
		},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"rationale": {"type": "string"}
	}
}`

var compiledClassificationSchema = mustCompileSchema("classification_response", classificationResponseSchema)

func mustCompileSchema(name, schema string) *jsonschema.Schema {
	compiled, err := jsonschema.CompileString(name, schema)
	if err != nil {
		panic(fmt.Sprintf("classifier: invalid schema %s: %v", name, err))
	}
	return compiled
}

// classificationResponse is the shape the model is asked to return.
type classificationResponse struct {
	Primary   string `json:"primary"`
	Secondary []struct {
		Agent      string  `json:"agent"`
		Confidence float64 `json:"confidence"`
	} `json:"secondary"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

const classificationMaxTokens = 512
const classificationTimeout = 6 * time.Second

// secondaryConfidenceFloor is the threshold below which a secondary
// agent suggestion from the model is dropped rather than preserved, per
// spec §4.4 ("entries whose individual confidence, when supplied, is >=
// 0.6, they are preserved").
const secondaryConfidenceFloor = 0.6

// ContentClassifier asks the model adapter to classify the transcript
// and validates the response against a fixed schema plus the semantic
// rules from spec §4.4. Any parse failure, schema failure, or
// confidence below MinConfidence falls through to Fallback without
// surfacing an error — classification always produces a decision.
type ContentClassifier struct {
	Model         ModelInvoker
	MinConfidence float64
	Fallback      Classifier
}

func (c ContentClassifier) Classify(ctx context.Context, key string, body string) (domain.RoutingDecision, error) {
	raw, err := c.Model.Invoke(ctx, classificationPrompt(body), classificationMaxTokens, classificationTimeout)
	if err != nil {
		return c.fallback(ctx, key, body)
	}

	decision, ok := parseAndValidate(raw)
	if !ok || decision.Confidence < c.MinConfidence {
		return c.fallback(ctx, key, body)
	}

	return decision, nil
}

func (c ContentClassifier) fallback(ctx context.Context, key, body string) (domain.RoutingDecision, error) {
	if c.Fallback != nil {
		return c.Fallback.Classify(ctx, key, body)
	}
	return classifyKeywords(body), nil
}

// parseAndValidate decodes raw as JSON, validates it against the
// compiled schema, and maps it onto a domain.RoutingDecision. It
// returns ok=false for any malformed or semantically invalid response
// rather than an error — callers treat that as "fall through".
func parseAndValidate(raw string) (domain.RoutingDecision, bool) {
	raw = extractJSONObject(raw)

	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return domain.RoutingDecision{}, false
	}
	if err := compiledClassificationSchema.Validate(payload); err != nil {
		return domain.RoutingDecision{}, false
	}

	var resp classificationResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return domain.RoutingDecision{}, false
	}

	primary, err := domain.ParseAgentID(resp.Primary)
	if err != nil {
		return domain.RoutingDecision{}, false
	}

	var secondary []domain.AgentID
	for _, s := range resp.Secondary {
		agent, err := domain.ParseAgentID(s.Agent)
		if err != nil || agent == primary {
			continue
		}
		if s.Confidence != 0 && s.Confidence < secondaryConfidenceFloor {
			continue
		}
		secondary = append(secondary, agent)
	}

	decision := domain.RoutingDecision{
		Primary:    primary,
		Secondary:  secondary,
		Confidence: resp.Confidence,
		Rationale:  resp.Rationale,
		Mode:       domain.ModeContent,
	}
	if decision.Validate() != nil {
		return domain.RoutingDecision{}, false
	}
	return decision, true
}

// extractJSONObject trims any leading/trailing prose the model added
// around the JSON object, taking the span between the first "{" and
// the last "}". Models asked for JSON-only output occasionally wrap it
// in a sentence or code fence anyway.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

func classificationPrompt(body string) string {
	return fmt.Sprintf(`Classify this transcript into exactly one primary agent and,
optionally, secondary agents. Agents are: "journal" (work updates, meetings,
tasks), "memory" (personal reflections, family, feelings), "repository"
(project or app ideas worth prototyping).

Respond with ONLY a JSON object matching this shape, no prose:
{"primary": "<journal|memory|repository>", "secondary": [{"agent": "<...>", "confidence": <0..1>}], "confidence": <0..1>, "rationale": "<short reason>"}

Transcript:
%s`, body)
}
