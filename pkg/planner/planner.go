// Package planner turns an issue and its fix template into a remediation
// plan.
package planner

import (
	"fmt"
	"maps"
	"strings"

	"github.com/helmcode/healctl/pkg/catalog"
	"github.com/helmcode/healctl/pkg/model"
)

var estimatedTime = map[model.RiskTier]string{
	model.RiskLow:    "5-15 min",
	model.RiskMedium: "15-30 min",
	model.RiskHigh:   "30-60+ min",
}

// EstimatedTime returns the fixed time range for a risk tier.
func EstimatedTime(tier model.RiskTier) string {
	return estimatedTime[tier]
}

// RequiresApproval is true for every critical issue, and otherwise follows
// the rule.
func RequiresApproval(issue model.Issue, rule catalog.Rule) bool {
	return issue.Severity == model.SeverityCritical || rule.RequiresApproval
}

// Plan resolves tmpl against the issue's facts. The issue's resource_ref and
// artifact are available to templates as .resource and .artifact unless the
// detector recorded facts with those names.
func Plan(issue model.Issue, rule catalog.Rule, tmpl catalog.FixTemplate) (model.Plan, error) {
	if issue.RuleID != rule.ID {
		return model.Plan{}, fmt.Errorf("issue rule %q does not match rule %q", issue.RuleID, rule.ID)
	}

	facts := map[string]string{
		"resource": issue.ResourceRef,
		"artifact": issue.Artifact,
		"category": string(issue.Category),
	}
	maps.Copy(facts, issue.Facts)

	r := renderer{name: tmpl.ID, facts: facts}
	plan := model.Plan{
		Issue:            issue,
		RuleID:           rule.ID,
		RiskTier:         rule.RiskTier,
		EstimatedTime:    EstimatedTime(rule.RiskTier),
		RequiresApproval: RequiresApproval(issue, rule),
		RootCause:        r.render(tmpl.RootCause),
		SuggestedFix:     r.render(tmpl.SuggestedFix),
		ConfigSnippet:    r.render(tmpl.ConfigSnippet),
		Steps:            make([]model.Step, 0, len(tmpl.Steps)),
	}
	for i, s := range tmpl.Steps {
		plan.Steps = append(plan.Steps, model.Step{
			Order:   i + 1,
			Title:   r.render(s.Title),
			Detail:  r.render(s.Detail),
			Command: r.render(s.Command),
		})
	}
	if r.err != nil {
		return model.Plan{}, fmt.Errorf("rendering fix for %s: %w", rule.ID, r.err)
	}
	return plan, nil
}

// renderer keeps the first error so Plan can render every field in one pass.
type renderer struct {
	name  string
	facts map[string]string
	err   error
}

func (r *renderer) render(text string) string {
	if r.err != nil || text == "" {
		return ""
	}
	out, err := catalog.Render(r.name, text, r.facts)
	if err != nil {
		r.err = err
		return ""
	}
	return strings.TrimSpace(out)
}
