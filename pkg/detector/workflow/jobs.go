package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/helmcode/healctl/pkg/model"
)

// checkJobTimeouts skips reusable workflow calls, which cannot set
// timeout-minutes.
func checkJobTimeouts(w *Workflow) []model.Issue {
	var issues []model.Issue
	for _, j := range w.Jobs() {
		if j.Body == nil || j.Body.Kind != yaml.MappingNode {
			continue
		}
		if has(j.Body, "uses") || has(j.Body, "timeout-minutes") {
			continue
		}
		issues = append(issues, model.Issue{
			Title:       fmt.Sprintf("Job %s has no timeout", j.ID),
			Description: fmt.Sprintf("Job %s on line %d does not set timeout-minutes.", j.ID, j.Key.Line),
			ResourceRef: "jobs." + j.ID,
			Facts: map[string]string{
				"job":  j.ID,
				"line": lineOf(j.Key),
			},
		})
	}
	return issues
}

// restrictableTriggers fire on every branch unless filtered.
var restrictableTriggers = []string{"push", "pull_request", "pull_request_target"}

var triggerFilters = []string{"branches", "branches-ignore", "tags", "tags-ignore", "paths", "paths-ignore"}

func checkUnrestrictedTriggers(w *Workflow) []model.Issue {
	_, on := lookup(w.Root, "on")
	if on == nil {
		// YAML 1.1 converters rewrite a bare `on` key as `true`.
		_, on = lookup(w.Root, "true")
	}
	if on == nil {
		return nil
	}

	unrestricted := make(map[string]*yaml.Node)
	switch on.Kind {
	case yaml.ScalarNode:
		unrestricted[on.Value] = on
	case yaml.SequenceNode:
		for _, n := range on.Content {
			unrestricted[n.Value] = n
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(on.Content); i += 2 {
			name, cfg := on.Content[i], on.Content[i+1]
			if !filtered(cfg) {
				unrestricted[name.Value] = name
			}
		}
	}

	var issues []model.Issue
	for _, trigger := range restrictableTriggers {
		n, ok := unrestricted[trigger]
		if !ok {
			continue
		}
		issues = append(issues, model.Issue{
			Title:       fmt.Sprintf("Trigger %s is unrestricted", trigger),
			Description: fmt.Sprintf("The %s trigger on line %d has no branch, tag or path filter.", trigger, n.Line),
			ResourceRef: "on." + trigger,
			Facts: map[string]string{
				"trigger": trigger,
				"line":    lineOf(n),
			},
		})
	}
	return issues
}

func filtered(cfg *yaml.Node) bool {
	for _, f := range triggerFilters {
		if has(cfg, f) {
			return true
		}
	}
	return false
}
