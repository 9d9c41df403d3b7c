package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"greensense/internal/data/history"
	"greensense/internal/shared/util"
)

// RenderHistoryTSV renders one row per run, oldest first, followed by one
// column per rule seen in any run.
func RenderHistoryTSV(runs []history.Run) []byte {
	ruleNames := historyRules(runs)

	var buf strings.Builder
	buf.WriteString("ID\tTimestamp\tMode\tFiles\tIssues\tSmellLines\tDurationMS")
	for _, name := range ruleNames {
		buf.WriteString("\t" + name)
	}
	buf.WriteString("\n")
	for _, run := range runs {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%d\t%d\t%d\t%d",
			run.ID,
			run.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			run.Mode,
			run.Files,
			run.Issues,
			run.SmellLines,
			run.Duration.Milliseconds(),
		))
		for _, name := range ruleNames {
			buf.WriteString(fmt.Sprintf("\t%d", run.RuleCounts[name]))
		}
		buf.WriteString("\n")
	}
	return []byte(buf.String())
}

type historyJSON struct {
	Runs  []history.Run `json:"runs"`
	Trend history.Trend `json:"trend"`
	Text  string        `json:"summary"`
}

func RenderHistoryJSON(runs []history.Run) ([]byte, error) {
	if runs == nil {
		runs = []history.Run{}
	}
	trend := history.BuildTrend(runs)
	return json.MarshalIndent(historyJSON{Runs: runs, Trend: trend, Text: trend.String()}, "", "  ")
}

// RenderHistoryConsole lists runs oldest first and ends with the trend of
// the last two.
func RenderHistoryConsole(runs []history.Run) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Run history (%d run(s))", len(runs))))
	b.WriteString("\n")
	for _, run := range runs {
		fmt.Fprintf(&b, "  %s  %-11s files=%-4d issues=%-4d smell LOC=%d\n",
			run.Timestamp.Local().Format("2006-01-02 15:04:05"), run.Mode, run.Files, run.Issues, run.SmellLines)
	}
	b.WriteString(history.BuildTrend(runs).String() + "\n")
	return b.String()
}

func historyRules(runs []history.Run) []string {
	seen := make(map[string]bool)
	for _, run := range runs {
		for name := range run.RuleCounts {
			seen[name] = true
		}
	}
	return util.SortedStringKeys(seen)
}
