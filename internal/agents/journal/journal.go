// Package journal implements the Journal Processor: it appends a
// timestamped entry to a weekly journal object, per spec.md §4.5.
// Grounded on the teacher's internal/artifacts append patterns,
// generalized from artifact-ID indirection to the spec's
// week-keyed object layout.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldnote/transcript-router/internal/agents"
	"github.com/fieldnote/transcript-router/internal/blobstore"
	"github.com/fieldnote/transcript-router/internal/domain"
	"github.com/fieldnote/transcript-router/internal/observability"
	"github.com/fieldnote/transcript-router/internal/routererr"
)

// Processor appends Journal Entries (spec.md §3) to
// work/weekly_logs/<ISOyear>-W<ISOweek>.md.
type Processor struct {
	Blob   blobstore.Store
	Logger *observability.Logger
}

func (p Processor) Agent() domain.AgentID { return domain.AgentJournal }

func (p Processor) Process(ctx context.Context, in agents.ProcessInput) domain.AgentResult {
	result := agents.NewResult(domain.AgentJournal, in.CorrelationID, time.Now().UTC())

	key, week := weekKey(in.EventTime)
	// entry embeds newlines deliberately: AppendLine's trailing "\n" then
	// produces the header/body/blank-separator shape of a Journal Entry
	// (spec.md §3), not a violation of its single-line contract.
	entry := fmt.Sprintf("## %s\n%s\n", in.EventTime.UTC().Format(time.RFC3339), in.Body)

	if err := p.Blob.AppendLine(ctx, key, entry); err != nil {
		p.Logger.Warn(ctx, "journal append failed", "journal_key", key, "error", err)
		return agents.Finish(result, domain.StatusFailure, nil, routererr.Kind(err))
	}

	payload := map[string]any{
		"journal_key":       key,
		"week":              week,
		"entry_length_bytes": len(entry),
	}
	return agents.Finish(result, domain.StatusSuccess, payload, "")
}

// weekKey computes the ISO week journal object key and its "<year>-W<week>"
// label for time t.
func weekKey(t time.Time) (key string, week string) {
	year, w := t.UTC().ISOWeek()
	week = fmt.Sprintf("%d-W%02d", year, w)
	key = fmt.Sprintf("work/weekly_logs/%s.md", week)
	return key, week
}
