package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"greensense/internal/engine/rules"

	"github.com/charmbracelet/lipgloss"
)

const ruleWidth = 80

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	fileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	highStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// RenderConsole formats r for a terminal: issues grouped by file, a summary
// by rule, the smell line total and the trend when present.
func RenderConsole(r Report) string {
	var b strings.Builder
	heavy := strings.Repeat("=", ruleWidth)
	light := strings.Repeat("-", ruleWidth)

	if len(r.Issues) == 0 {
		b.WriteString(successStyle.Render(fmt.Sprintf("No issues found in %d file(s)!", r.Files)))
		b.WriteString("\n")
		writeFooter(&b, r)
		return b.String()
	}

	groups := groupByFile(r.Issues)
	b.WriteString(heavy + "\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("Found %d issue(s) in %d file(s):", len(r.Issues), len(groups))))
	b.WriteString("\n" + heavy + "\n")

	for _, g := range groups {
		b.WriteString("\n")
		b.WriteString(fileStyle.Render(fmt.Sprintf("%s (%d issue(s))", displayPath(r.Root, g.file), len(g.issues))))
		b.WriteString("\n" + light + "\n")

		for start := 0; start < len(g.issues); {
			rule := g.issues[start].Rule
			end := start
			for end < len(g.issues) && g.issues[end].Rule == rule {
				end++
			}
			header := fmt.Sprintf("  %s (%d issue(s)):", rule, end-start)
			if g.issues[start].Severity == rules.SeverityHigh {
				header = highStyle.Render(header)
			}
			b.WriteString("\n" + header + "\n")
			for _, issue := range g.issues[start:end] {
				fmt.Fprintf(&b, "    Line %d: %s\n", issue.Line, issue.Message)
			}
			start = end
		}
	}

	b.WriteString("\n" + heavy + "\n")
	b.WriteString(titleStyle.Render("Summary by Rule:"))
	b.WriteString("\n" + light + "\n")
	for _, rc := range sortedCounts(CountByRule(r.Issues)) {
		fmt.Fprintf(&b, "  %s: %d issue(s)\n", rc.rule, rc.count)
	}
	b.WriteString(heavy + "\n")
	writeFooter(&b, r)
	return b.String()
}

func writeFooter(b *strings.Builder, r Report) {
	fmt.Fprintf(b, "Code smell LOC: %d\n", SmellLines(r.Issues))
	if r.Trend != "" {
		b.WriteString(r.Trend + "\n")
	}
	if r.Duration > 0 {
		b.WriteString(statusStyle.Render(fmt.Sprintf("Analysed %d file(s) in %s (%s mode)", r.Files, r.Duration.Round(time.Millisecond), r.Mode)))
		b.WriteString("\n")
	}
}

// displayPath shortens path relative to root when it lies inside it.
func displayPath(root, path string) string {
	if path == "" {
		return "<unknown>"
	}
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			if rel == "." {
				return filepath.Base(path)
			}
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}
