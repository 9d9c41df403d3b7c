package formats

import (
	"encoding/json"
	"path/filepath"
	"sort"

	"greensense/internal/engine/rules"
	"greensense/internal/shared/version"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"
	toolName     = "greensense"
)

// RuleInfo describes a rule in the SARIF tool section.
type RuleInfo struct {
	ID          string
	Name        string
	Description string
	Severity    rules.Severity
}

// sarifReport is the top-level SARIF document.
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	RuleIndex int             `json:"ruleIndex"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
	EndLine   int `json:"endLine,omitempty"`
}

// GenerateSARIF builds a SARIF v2.1.0 document from issues. Only rules with
// at least one result are listed. File URIs are made relative to projectRoot
// so that reports are safe to share.
func GenerateSARIF(projectRoot string, infos []RuleInfo, issues []rules.Issue) ([]byte, error) {
	byName := make(map[string]RuleInfo, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}

	used := make(map[string]bool)
	for _, issue := range issues {
		used[issue.Rule] = true
	}
	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	sort.Strings(names)

	sRules := make([]sarifRule, 0, len(names))
	index := make(map[string]int, len(names))
	for _, name := range names {
		info, ok := byName[name]
		if !ok {
			info = RuleInfo{Name: name}
		}
		id := info.ID
		if id == "" {
			id = ruleIDOf(issues, name)
		}
		index[name] = len(sRules)
		sRules = append(sRules, sarifRule{
			ID:               id,
			Name:             name,
			ShortDescription: sarifMessage{Text: info.Description},
			DefaultConfig:    sarifRuleDefaultConfig{Level: severityToLevel(info.Severity)},
		})
	}

	results := make([]sarifResult, 0, len(issues))
	for _, issue := range issues {
		result := sarifResult{
			RuleID:    sRules[index[issue.Rule]].ID,
			RuleIndex: index[issue.Rule],
			Level:     severityToLevel(issue.Severity),
			Message:   sarifMessage{Text: issue.Message},
		}
		if issue.File != "" {
			loc := sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{
						URI:       relativeURI(projectRoot, issue.File),
						URIBaseID: "%SRCROOT%",
					},
				},
			}
			if issue.Line > 0 {
				loc.PhysicalLocation.Region = &sarifRegion{StartLine: issue.Line, EndLine: issue.EndLine}
			}
			result.Locations = []sarifLocation{loc}
		}
		results = append(results, result)
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    toolName,
						Version: version.Version,
						Rules:   sRules,
					},
				},
				Results: results,
			},
		},
	}
	return json.MarshalIndent(report, "", "  ")
}

func ruleIDOf(issues []rules.Issue, name string) string {
	for _, issue := range issues {
		if issue.Rule == name && issue.RuleID != "" {
			return issue.RuleID
		}
	}
	return name
}

// relativeURI converts an absolute file path to a forward-slash relative URI
// anchored at projectRoot. If the path is already relative or projectRoot is
// empty, the original path (with forward slashes) is returned.
func relativeURI(projectRoot, filePath string) string {
	if projectRoot != "" && filepath.IsAbs(filePath) {
		rel, err := filepath.Rel(projectRoot, filePath)
		if err == nil {
			filePath = rel
		}
	}
	return filepath.ToSlash(filePath)
}

func severityToLevel(severity rules.Severity) string {
	switch severity {
	case rules.SeverityHigh:
		return "error"
	case rules.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
