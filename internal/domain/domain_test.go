package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAgentID(t *testing.T) {
	for _, s := range []string{"journal", "memory", "repository"} {
		id, err := ParseAgentID(s)
		require.NoError(t, err)
		require.True(t, id.Valid())
	}

	_, err := ParseAgentID("github_ideas")
	require.Error(t, err)
}

func TestRoutingDecisionValidate(t *testing.T) {
	cases := []struct {
		name    string
		decision RoutingDecision
		wantErr bool
	}{
		{"valid", RoutingDecision{Primary: AgentJournal, Secondary: []AgentID{AgentMemory}, Confidence: 0.8}, false},
		{"primary in secondary", RoutingDecision{Primary: AgentJournal, Secondary: []AgentID{AgentJournal}}, true},
		{"duplicate secondary", RoutingDecision{Primary: AgentJournal, Secondary: []AgentID{AgentMemory, AgentMemory}}, true},
		{"bad confidence", RoutingDecision{Primary: AgentJournal, Confidence: 1.5}, true},
		{"invalid primary", RoutingDecision{Primary: "bogus"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.decision.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllAgentsOrder(t *testing.T) {
	d := RoutingDecision{Primary: AgentRepository, Secondary: []AgentID{AgentJournal, AgentMemory}}
	require.Equal(t, []AgentID{AgentRepository, AgentJournal, AgentMemory}, d.AllAgents())
}

func TestAggregateResultMarshalJSON(t *testing.T) {
	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	agg := AggregateResult{
		CorrelationID: "corr-1",
		TranscriptKey: "transcripts/work/2024/01/15/mon.txt",
		Timestamp:     ts,
		Routing: RoutingDecision{
			Primary:    AgentJournal,
			Secondary:  nil,
			Confidence: 1.0,
			Rationale:  "path hint: work",
			Mode:       ModePathHint,
		},
		Results: []AgentResult{
			{
				Agent:     AgentJournal,
				Status:    StatusSuccess,
				StartedAt: ts,
				Duration:  250 * time.Millisecond,
				Payload:   map[string]any{"journal_key": "work/weekly_logs/2024-W03.md"},
			},
		},
	}

	data, err := json.Marshal(agg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "corr-1", decoded["correlation_id"])

	routing := decoded["routing"].(map[string]any)
	require.Equal(t, "journal", routing["primary"])
	require.Equal(t, "path_hint", routing["mode"])

	results := decoded["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	require.Equal(t, "success", first["status"])
	require.Nil(t, first["error_kind"])
}
