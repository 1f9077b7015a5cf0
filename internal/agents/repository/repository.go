// Package repository implements the Repository Processor: it creates
// an external code-hosting repository from a generated name and
// README, guarded by a content-hash idempotency ledger, per spec.md
// §4.7. Grounded on the classifier's prompt-and-validate pattern for
// generation, and on the nickmisasi-mattermost-plugin-cursor pack
// repo's ghclient for the external API surface.
package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/fieldnote/transcript-router/internal/agents"
	"github.com/fieldnote/transcript-router/internal/agents/repository/ghclient"
	"github.com/fieldnote/transcript-router/internal/blobstore"
	"github.com/fieldnote/transcript-router/internal/domain"
	"github.com/fieldnote/transcript-router/internal/observability"
	"github.com/fieldnote/transcript-router/internal/routererr"
	"github.com/fieldnote/transcript-router/internal/secrets"
)

// Model is the narrow model-adapter slice this processor needs.
type Model interface {
	Invoke(ctx context.Context, prompt string, maxTokens int, timeout time.Duration) (string, error)
}

const (
	ledgerKey = "github/history.jsonl"

	generationMaxTokens = 1024
	generationTimeout   = 8 * time.Second

	maxIssues           = 10
	minContentLength    = 16
	nameCollisionRetries = 3
)

var repoNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}[a-z0-9]$`)

const generationResponseSchema = `{
	"type": "object",
	"required": ["repo_name", "description", "readme_markdown"],
	"additionalProperties": false,
	"properties": {
		"repo_name": {"type": "string"},
		"description": {"type": "string"},
		"readme_markdown": {"type": "string"},
		"initial_issues": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title"],
				"additionalProperties": false,
				"properties": {
					"title": {"type": "string"},
					"body": {"type": "string"}
				}
			}
		}
	}
}`

var compiledGenerationSchema = mustCompileSchema("repository_generation_response", generationResponseSchema)

func mustCompileSchema(name, schema string) *jsonschema.Schema {
	compiled, err := jsonschema.CompileString(name, schema)
	if err != nil {
		panic(fmt.Sprintf("repository: invalid schema %s: %v", name, err))
	}
	return compiled
}

type generationResponse struct {
	RepoName       string `json:"repo_name"`
	Description    string `json:"description"`
	ReadmeMarkdown string `json:"readme_markdown"`
	InitialIssues  []struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"initial_issues"`
}

// historyRecord is the wire shape of a Repository History Record
// (spec.md §3), and the sole idempotency ledger entry.
type historyRecord struct {
	Timestamp      string `json:"timestamp"`
	TranscriptHash string `json:"transcript_hash"`
	RepoName       string `json:"repo_name"`
	RepoURL        string `json:"repo_url"`
	Created        bool   `json:"created"`
	// Reconciled marks a record written after step 5 found the target
	// repo name already existing (the create succeeded on a prior,
	// redelivered attempt but that attempt's ledger append did not),
	// per spec.md §4.7's idempotency contract.
	Reconciled bool `json:"reconciled,omitempty"`
}

// Processor creates repositories via an external code-hosting API and
// records them in the idempotency ledger.
type Processor struct {
	Blob              blobstore.Store
	Model             Model
	Secrets           secrets.Adapter
	TokenSecretName   string
	GitHubClientFor   func(token string) ghclient.Client
	DefaultVisibility string // "public" or "private"
	Enabled           bool
	Logger            *observability.Logger
}

func (p Processor) Agent() domain.AgentID { return domain.AgentRepository }

func (p Processor) Process(ctx context.Context, in agents.ProcessInput) domain.AgentResult {
	result := agents.NewResult(domain.AgentRepository, in.CorrelationID, time.Now().UTC())

	if !p.Enabled {
		return agents.Finish(result, domain.StatusSkipped, map[string]any{"reason": "repository_disabled"}, "")
	}

	trimmed := strings.TrimSpace(in.Body)
	if len(trimmed) < minContentLength {
		return agents.Finish(result, domain.StatusSkipped, map[string]any{"reason": "insufficient_content"}, "")
	}

	hash := sha256.Sum256([]byte(in.Body))
	hashHex := hex.EncodeToString(hash[:])

	if existing, found := p.findLedgerEntry(ctx, hashHex); found {
		payload := map[string]any{
			"repo_name":  existing.RepoName,
			"repo_url":   existing.RepoURL,
			"created":    false,
			"dedup_of":   existing.TranscriptHash,
		}
		return agents.Finish(result, domain.StatusSkipped, payload, "")
	}

	gen, err := p.generate(ctx, in.Body)
	if err != nil {
		p.Logger.Warn(ctx, "repository generation failed", "error", err)
		return agents.Finish(result, domain.StatusFailure, nil, routererr.Kind(fmt.Errorf("%w: %v", routererr.ErrModel, err)))
	}

	token, err := p.Secrets.Get(ctx, p.TokenSecretName)
	if err != nil {
		return agents.Finish(result, domain.StatusFailure, nil, routererr.Kind(fmt.Errorf("%w: %v", routererr.ErrAuth, err)))
	}
	client := p.GitHubClientFor(token)

	repo, reconciled, err := p.resolveRepository(ctx, client, gen.RepoName, gen.Description)
	if err != nil {
		return agents.Finish(result, domain.StatusFailure, nil, routererr.Kind(err))
	}

	if err := client.CreateReadme(ctx, "", repo.Name, gen.ReadmeMarkdown); err != nil {
		p.Logger.Warn(ctx, "repository readme creation failed", "repo", repo.Name, "error", err)
	}

	issueCount := 0
	if !reconciled {
		// A reconciled repo was already created on a prior, redelivered
		// attempt; its initial issues (if any) were already filed then,
		// so filing them again here would duplicate them.
		for _, issue := range gen.InitialIssues {
			if err := client.CreateIssue(ctx, "", repo.Name, issue.Title, issue.Body); err != nil {
				p.Logger.Warn(ctx, "repository issue creation failed", "repo", repo.Name, "title", issue.Title, "error", err)
				continue
			}
			issueCount++
		}
	}

	ledgerWriteFailed := false
	record := historyRecord{
		Timestamp:      in.EventTime.UTC().Format(time.RFC3339),
		TranscriptHash: hashHex,
		RepoName:       repo.Name,
		RepoURL:        repo.HTMLURL,
		Created:        !reconciled,
		Reconciled:     reconciled,
	}
	line, err := json.Marshal(record)
	if err != nil || p.Blob.AppendLine(ctx, ledgerKey, string(line)) != nil {
		ledgerWriteFailed = true
		p.Logger.Warn(ctx, "repository ledger append failed", "repo", repo.Name)
	}

	payload := map[string]any{
		"repo_name":   repo.Name,
		"repo_url":    repo.HTMLURL,
		"created":     !reconciled,
		"issue_count": issueCount,
	}
	if reconciled {
		payload["reconciled"] = true
	}
	if ledgerWriteFailed {
		payload["ledger_write_failed"] = true
	}
	return agents.Finish(result, domain.StatusSuccess, payload, "")
}

// findLedgerEntry scans github/history.jsonl for a record whose
// transcript_hash matches hashHex. A missing ledger is treated as
// empty, per spec.md §4.7 step 2.
func (p Processor) findLedgerEntry(ctx context.Context, hashHex string) (historyRecord, bool) {
	data, err := p.Blob.Get(ctx, ledgerKey)
	if err != nil {
		return historyRecord{}, false
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec historyRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if rec.TranscriptHash == hashHex {
			return rec, true
		}
	}
	return historyRecord{}, false
}

// generate calls the model adapter and validates the response against
// the fixed schema plus the semantic rules from spec.md §4.7 step 3.
func (p Processor) generate(ctx context.Context, body string) (generationResponse, error) {
	raw, err := p.Model.Invoke(ctx, generationPrompt(body), generationMaxTokens, generationTimeout)
	if err != nil {
		return generationResponse{}, err
	}

	raw = extractJSONObject(raw)

	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return generationResponse{}, fmt.Errorf("malformed generation response: %w", err)
	}
	if err := compiledGenerationSchema.Validate(payload); err != nil {
		return generationResponse{}, fmt.Errorf("generation response failed schema validation: %w", err)
	}

	var resp generationResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return generationResponse{}, fmt.Errorf("malformed generation response: %w", err)
	}

	resp.RepoName = strings.ToLower(resp.RepoName)
	if !repoNamePattern.MatchString(resp.RepoName) {
		return generationResponse{}, fmt.Errorf("generated repo_name %q fails naming pattern", resp.RepoName)
	}
	if len(resp.InitialIssues) > maxIssues {
		resp.InitialIssues = resp.InitialIssues[:maxIssues]
	}
	return resp, nil
}

// resolveRepository implements spec.md §4.7 step 5: it checks by name
// before creating, so a redelivery of an event whose repo was created
// on a prior attempt but whose ledger append then failed reconciles
// against that existing repo instead of creating a duplicate. Only
// when no repo exists at the generated name does it fall through to
// createWithRetry's collision-retry loop.
func (p Processor) resolveRepository(ctx context.Context, client ghclient.Client, name, description string) (repo *ghclient.Repository, reconciled bool, err error) {
	if existing, getErr := client.GetRepository(ctx, "", name); getErr == nil && existing != nil {
		return existing, true, nil
	}
	repo, err = p.createWithRetry(ctx, client, name, description)
	return repo, false, err
}

// createWithRetry calls CreateRepository, appending a short random
// suffix and retrying on name collision up to nameCollisionRetries
// times, per spec.md §4.7 step 5.
func (p Processor) createWithRetry(ctx context.Context, client ghclient.Client, name, description string) (*ghclient.Repository, error) {
	private := p.DefaultVisibility == "private"
	candidate := name

	var lastErr error
	for attempt := 0; attempt <= nameCollisionRetries; attempt++ {
		repo, err := client.CreateRepository(ctx, "", candidate, description, private)
		if err == nil {
			return repo, nil
		}
		lastErr = err
		candidate = fmt.Sprintf("%s-%s", name, randomSuffix(4))
	}
	return nil, fmt.Errorf("%w: repository name collision after %d attempts: %v", routererr.ErrConflict, nameCollisionRetries+1, lastErr)
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))] // #nosec G404 -- collision-avoidance suffix, not a security token
	}
	return string(b)
}

func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

func generationPrompt(body string) string {
	return fmt.Sprintf(`Generate a new code repository proposal from this project idea transcript.
repo_name must match ^[a-z0-9][a-z0-9-]{0,62}[a-z0-9]$ (lowercase, hyphenated).
initial_issues is optional, 0 to 10 entries.

Respond with ONLY a JSON object, no prose:
{"repo_name": "<...>", "description": "<...>", "readme_markdown": "<...>", "initial_issues": [{"title": "<...>", "body": "<...>"}]}

Transcript:
%s`, body)
}
