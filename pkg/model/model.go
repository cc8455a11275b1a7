package model

import "fmt"

// Category is the artifact kind a detector family understands.
type Category string

const (
	CategoryKubernetes  Category = "kubernetes"
	CategoryInfraAsCode Category = "infra-as-code"
	CategoryCIWorkflow  Category = "ci-workflow"
	CategoryLog         Category = "log"
)

// Categories lists every category in scan order.
var Categories = []Category{
	CategoryKubernetes,
	CategoryInfraAsCode,
	CategoryCIWorkflow,
	CategoryLog,
}

// ParseCategory validates a category name. An empty string or "unspecified"
// returns "" so the caller can fall back to inference.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "", "unspecified":
		return "", nil
	}
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", NewScanError(ErrCodeUnsupportedCategory, fmt.Sprintf("unsupported category %q (supported: kubernetes, infra-as-code, ci-workflow, log)", s))
}

// Order returns the position of the category in the scan order.
func (c Category) Order() int {
	for i, known := range Categories {
		if known == c {
			return i
		}
	}
	return len(Categories)
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Severities lists severities from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityWarning, SeverityInfo}

func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return Severity(s), nil
	case "":
		return "", nil
	}
	return "", fmt.Errorf("unsupported severity %q (supported: critical, warning, info)", s)
}

// Rank orders severities, lower is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	}
	return 99
}

type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// Issue is one detected problem in one artifact.
type Issue struct {
	Category    Category          `json:"category" yaml:"category"`
	RuleID      string            `json:"rule_id" yaml:"rule_id"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description" yaml:"description"`
	ResourceRef string            `json:"resource_ref,omitempty" yaml:"resource_ref,omitempty"`
	Severity    Severity          `json:"severity" yaml:"severity"`
	Artifact    string            `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	Facts       map[string]string `json:"facts,omitempty" yaml:"facts,omitempty"`
}

// Fact returns an extracted value or "" when the detector did not record it.
func (i Issue) Fact(key string) string {
	return i.Facts[key]
}

// Step is one ordered remediation action.
type Step struct {
	Order   int    `json:"order" yaml:"order"`
	Title   string `json:"title" yaml:"title"`
	Detail  string `json:"detail" yaml:"detail"`
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
}

// Plan is a fix template resolved against a single issue.
type Plan struct {
	Issue            Issue    `json:"issue" yaml:"issue"`
	RuleID           string   `json:"rule_id" yaml:"rule_id"`
	RiskTier         RiskTier `json:"risk_tier" yaml:"risk_tier"`
	EstimatedTime    string   `json:"estimated_time" yaml:"estimated_time"`
	RequiresApproval bool     `json:"requires_approval" yaml:"requires_approval"`
	RootCause        string   `json:"root_cause" yaml:"root_cause"`
	SuggestedFix     string   `json:"suggested_fix" yaml:"suggested_fix"`
	ConfigSnippet    string   `json:"config_snippet,omitempty" yaml:"config_snippet,omitempty"`
	Steps            []Step   `json:"steps" yaml:"steps"`
}

// Counts aggregates issues by severity and category.
type Counts struct {
	Total      int              `json:"total" yaml:"total"`
	BySeverity map[Severity]int `json:"by_severity" yaml:"by_severity"`
	ByCategory map[Category]int `json:"by_category" yaml:"by_category"`
}

// CountIssues derives severity and category totals.
func CountIssues(issues []Issue) Counts {
	c := Counts{
		Total:      len(issues),
		BySeverity: make(map[Severity]int),
		ByCategory: make(map[Category]int),
	}
	for _, issue := range issues {
		c.BySeverity[issue.Severity]++
		c.ByCategory[issue.Category]++
	}
	return c
}

// Filter is the reporting filter applied after detection.
type Filter struct {
	Severity   Severity   `json:"severity,omitempty" yaml:"severity,omitempty"`
	Categories []Category `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// Match reports whether an issue passes the filter.
func (f Filter) Match(issue Issue) bool {
	if f.Severity != "" && issue.Severity != f.Severity {
		return false
	}
	if len(f.Categories) == 0 {
		return true
	}
	for _, c := range f.Categories {
		if c == issue.Category {
			return true
		}
	}
	return false
}

// ScanResult is the aggregate output of one orchestrated run.
type ScanResult struct {
	Artifacts []string `json:"artifacts" yaml:"artifacts"`
	Issues    []Issue  `json:"issues" yaml:"issues"`
	Plans     []Plan   `json:"plans,omitempty" yaml:"plans,omitempty"`
	Detected  Counts   `json:"detected" yaml:"detected"`
	Filter    Filter   `json:"filter" yaml:"filter"`
}

// Counts returns totals for the reported (filtered) issues.
func (r *ScanResult) Counts() Counts {
	return CountIssues(r.Issues)
}
