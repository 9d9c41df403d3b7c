package history

import (
	"fmt"
	"time"
)

// Run is the summary of one analysis, as stored in the history database.
type Run struct {
	ID         string         `json:"id"`
	ProjectKey string         `json:"project_key"`
	Timestamp  time.Time      `json:"timestamp"`
	Mode       string         `json:"mode"`
	Files      int            `json:"files"`
	Issues     int            `json:"issues"`
	SmellLines int            `json:"smell_lines"`
	Duration   time.Duration  `json:"duration"`
	RuleCounts map[string]int `json:"rule_counts,omitempty"`
}

type Direction string

const (
	DirectionInitial   Direction = "initial"
	DirectionReduced   Direction = "reduced"
	DirectionIncreased Direction = "increased"
	DirectionUnchanged Direction = "unchanged"
)

// Trend compares the smell lines of the two most recent runs.
type Trend struct {
	Previous  *Run      `json:"previous,omitempty"`
	Current   *Run      `json:"current,omitempty"`
	Direction Direction `json:"direction"`
	// Delta is previous minus current smell lines; positive means fewer smells.
	Delta int `json:"delta"`
}

// BuildTrend compares the last two runs, oldest first. With fewer than two
// runs the trend is initial.
func BuildTrend(runs []Run) Trend {
	switch len(runs) {
	case 0:
		return Trend{Direction: DirectionInitial}
	case 1:
		current := runs[0]
		return Trend{Current: &current, Direction: DirectionInitial}
	}
	prev, cur := runs[len(runs)-2], runs[len(runs)-1]
	t := Trend{Previous: &prev, Current: &cur, Delta: prev.SmellLines - cur.SmellLines}
	switch {
	case t.Delta > 0:
		t.Direction = DirectionReduced
	case t.Delta < 0:
		t.Direction = DirectionIncreased
	default:
		t.Direction = DirectionUnchanged
	}
	return t
}

func (t Trend) String() string {
	switch t.Direction {
	case DirectionReduced:
		return fmt.Sprintf("Code smells reduced by %d LOC", t.Delta)
	case DirectionIncreased:
		return fmt.Sprintf("Code smells increased by %d LOC", -t.Delta)
	case DirectionUnchanged:
		return fmt.Sprintf("Code smell LOC unchanged (%d LOC)", t.Current.SmellLines)
	}
	if t.Current != nil {
		return fmt.Sprintf("Initial run: %d LOC of code smells, no previous run to compare", t.Current.SmellLines)
	}
	return "No runs recorded"
}
