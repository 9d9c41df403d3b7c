package formats

import (
	"fmt"
	"strings"

	"greensense/internal/engine/rules"
)

// GenerateTSV renders one issue per row. Tabs and newlines inside messages
// are replaced by spaces.
func GenerateTSV(projectRoot string, issues []rules.Issue) string {
	var buf strings.Builder

	buf.WriteString("RuleID\tRule\tSeverity\tFile\tLine\tEndLine\tMessage\n")
	for _, issue := range issues {
		file := ""
		if issue.File != "" {
			file = relativeURI(projectRoot, issue.File)
		}
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			issue.RuleID,
			issue.Rule,
			issue.Severity,
			tsvField(file),
			issue.Line,
			issue.EndLine,
			tsvField(issue.Message),
		))
	}
	return buf.String()
}

func tsvField(s string) string {
	return strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(s)
}
