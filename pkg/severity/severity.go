// Package severity assigns catalog severities to detected issues.
package severity

import (
	"fmt"

	"github.com/helmcode/healctl/pkg/catalog"
	"github.com/helmcode/healctl/pkg/model"
)

// Classify sets each issue's severity to its rule's default and fills in the
// rule title when the detector left it empty. The input slice is not
// modified. An issue whose rule is not in the catalog is an error.
func Classify(cat *catalog.Catalog, issues []model.Issue) ([]model.Issue, error) {
	out := make([]model.Issue, 0, len(issues))
	for _, issue := range issues {
		rule, ok := cat.Lookup(issue.RuleID)
		if !ok {
			return nil, fmt.Errorf("issue from unknown rule %q", issue.RuleID)
		}
		if rule.Category != issue.Category {
			return nil, fmt.Errorf("rule %q belongs to %s, not %s", rule.ID, rule.Category, issue.Category)
		}
		issue.Severity = rule.DefaultSeverity
		if issue.Title == "" {
			issue.Title = rule.Title
		}
		out = append(out, issue)
	}
	return out, nil
}

// AtLeast reports whether s is as severe as floor or more.
func AtLeast(s, floor model.Severity) bool {
	return s.Rank() <= floor.Rank()
}
