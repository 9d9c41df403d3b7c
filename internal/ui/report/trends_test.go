package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"greensense/internal/data/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRuns() []history.Run {
	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	return []history.Run{
		{ID: "r1", Timestamp: base, Mode: "project", Files: 5, Issues: 4, SmellLines: 60, Duration: 2 * time.Second,
			RuleCounts: map[string]int{"GodClass": 1, "DeadCode": 3}},
		{ID: "r2", Timestamp: base.Add(time.Hour), Mode: "project", Files: 5, Issues: 2, SmellLines: 20,
			RuleCounts: map[string]int{"LongMethod": 2}},
	}
}

func TestRenderHistoryTSV(t *testing.T) {
	out := string(RenderHistoryTSV(sampleRuns()))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID\tTimestamp\tMode\tFiles\tIssues\tSmellLines\tDurationMS\tDeadCode\tGodClass\tLongMethod", lines[0])
	assert.Equal(t, "r1\t2026-02-13T10:00:00Z\tproject\t5\t4\t60\t2000\t3\t1\t0", lines[1])
	assert.Equal(t, "r2\t2026-02-13T11:00:00Z\tproject\t5\t2\t20\t0\t0\t0\t2", lines[2])
}

func TestRenderHistoryJSON(t *testing.T) {
	data, err := RenderHistoryJSON(sampleRuns())
	require.NoError(t, err)

	var decoded struct {
		Runs  []history.Run `json:"runs"`
		Trend struct {
			Direction string `json:"direction"`
			Delta     int    `json:"delta"`
		} `json:"trend"`
		Summary string `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Runs, 2)
	assert.Equal(t, "reduced", decoded.Trend.Direction)
	assert.Equal(t, 40, decoded.Trend.Delta)
	assert.Equal(t, "Code smells reduced by 40 LOC", decoded.Summary)

	empty, err := RenderHistoryJSON(nil)
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"runs": []`)
}

func TestRenderHistoryConsole(t *testing.T) {
	out := RenderHistoryConsole(sampleRuns())
	assert.Contains(t, out, "Run history (2 run(s))")
	assert.Contains(t, out, "smell LOC=60")
	assert.Contains(t, out, "Code smells reduced by 40 LOC")
}
