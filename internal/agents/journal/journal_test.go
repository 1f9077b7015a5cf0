package journal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fieldnote/transcript-router/internal/agents"
	"github.com/fieldnote/transcript-router/internal/blobstore/fake"
	"github.com/fieldnote/transcript-router/internal/domain"
	"github.com/fieldnote/transcript-router/internal/observability"
)

func newTestProcessor(store *fake.Store) Processor {
	return Processor{Blob: store, Logger: observability.MustNewLogger(observability.LogConfig{Level: "error", Format: "json"})}
}

func TestProcessAppendsEntry(t *testing.T) {
	store := fake.New()
	p := newTestProcessor(store)

	eventTime := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	result := p.Process(context.Background(), agents.ProcessInput{
		CorrelationID: "corr-1",
		EventTime:     eventTime,
		TranscriptKey: "transcripts/work/2024/01/15/mon.txt",
		Body:          "Finished the authentication module; meeting with Priya tomorrow.",
	})

	require.Equal(t, domain.StatusSuccess, result.Status)
	require.Equal(t, domain.AgentJournal, result.Agent)
	require.Equal(t, "", result.ErrorKind)

	key := result.Payload["journal_key"].(string)
	require.Equal(t, "work/weekly_logs/2024-W03.md", key)

	objects := store.Objects()
	content := string(objects[key])
	require.True(t, strings.Contains(content, "## 2024-01-15T09:00:00Z"))
	require.True(t, strings.Contains(content, "Finished the authentication module"))
}

func TestWeekKeyFormatsWithLeadingZero(t *testing.T) {
	key, week := weekKey(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.Equal(t, "2024-W03", week)
	require.Equal(t, "work/weekly_logs/2024-W03.md", key)
}

func TestProcessReturnsFailureOnStoreError(t *testing.T) {
	store := fake.New()
	store.FailAppendTimes = 1000000
	p := newTestProcessor(store)

	result := p.Process(context.Background(), agents.ProcessInput{
		CorrelationID: "corr-2",
		EventTime:     time.Now().UTC(),
		Body:          "anything",
	})

	require.Equal(t, domain.StatusFailure, result.Status)
	require.NotEmpty(t, result.ErrorKind)
}

func TestConcurrentAppendsSameWeek(t *testing.T) {
	store := fake.New()
	p := newTestProcessor(store)
	eventTime := time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)

	done := make(chan domain.AgentResult, 2)
	for i := 0; i < 2; i++ {
		go func(n int) {
			done <- p.Process(context.Background(), agents.ProcessInput{
				CorrelationID: "corr-concurrent",
				EventTime:     eventTime,
				Body:          "entry",
			})
		}(i)
	}
	r1 := <-done
	r2 := <-done

	require.Equal(t, domain.StatusSuccess, r1.Status)
	require.Equal(t, domain.StatusSuccess, r2.Status)

	key, _ := weekKey(eventTime)
	content := string(store.Objects()[key])
	require.Equal(t, 2, strings.Count(content, "## 2024-01-16"))
}
