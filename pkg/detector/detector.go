// Package detector runs ordered, independent rule checks against one parsed
// artifact.
package detector

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/helmcode/healctl/pkg/model"
)

// Detector scans the content of one artifact of a single category.
type Detector interface {
	Category() model.Category
	RuleIDs() []string
	Detect(ctx context.Context, content string) ([]model.Issue, error)
}

// Check is one rule predicate over a parsed artifact. Eval must not depend on
// the output of any other check.
type Check[T any] struct {
	RuleID string
	Eval   func(T) []model.Issue
}

// Family owns a parser and an ordered list of checks for one category.
type Family[T any] struct {
	category model.Category
	parse    func(string) (T, error)
	checks   []Check[T]
}

// NewFamily builds a detector family. Checks run in the given order.
func NewFamily[T any](category model.Category, parse func(string) (T, error), checks ...Check[T]) *Family[T] {
	return &Family[T]{category: category, parse: parse, checks: checks}
}

func (f *Family[T]) Category() model.Category { return f.category }

// RuleIDs returns the rule ids of the family's checks in evaluation order.
func (f *Family[T]) RuleIDs() []string {
	ids := make([]string, 0, len(f.checks))
	for _, c := range f.checks {
		ids = append(ids, c.RuleID)
	}
	return ids
}

// Only returns a copy of the family restricted to the given rules.
func (f *Family[T]) Only(ruleIDs ...string) *Family[T] {
	out := &Family[T]{category: f.category, parse: f.parse}
	for _, c := range f.checks {
		if slices.Contains(ruleIDs, c.RuleID) {
			out.checks = append(out.checks, c)
		}
	}
	return out
}

// Detect parses the content and runs every check. A parse failure aborts with
// MALFORMED_ARTIFACT; a panicking check contributes no issues.
func (f *Family[T]) Detect(ctx context.Context, content string) ([]model.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parsed, err := f.parse(content)
	if err != nil {
		var scanErr *model.ScanError
		if errors.As(err, &scanErr) {
			return nil, scanErr
		}
		return nil, model.Malformed(err, "cannot parse %s artifact: %v", f.category, err)
	}

	var issues []model.Issue
	for _, c := range f.checks {
		for _, issue := range f.run(ctx, c, parsed) {
			issue.Category = f.category
			issue.RuleID = c.RuleID
			issues = append(issues, issue)
		}
	}
	return issues, nil
}

func (f *Family[T]) run(ctx context.Context, c Check[T], parsed T) (issues []model.Issue) {
	defer func() {
		if r := recover(); r != nil {
			slog.DebugContext(ctx, "rule check failed, skipping", "category", f.category, "rule", c.RuleID, "error", r)
			issues = nil
		}
	}()
	return c.Eval(parsed)
}
