package workflow

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/helmcode/healctl/pkg/model"
)

// checkMissingPermissions fires when the workflow has no top-level
// permissions and at least one job has none of its own.
func checkMissingPermissions(w *Workflow) []model.Issue {
	if w.Root == nil || has(w.Root, "permissions") {
		return nil
	}
	jobs := w.Jobs()
	if len(jobs) == 0 {
		return nil
	}
	var missing []string
	for _, j := range jobs {
		if !has(j.Body, "permissions") {
			missing = append(missing, j.ID)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []model.Issue{{
		Title:       "Workflow declares no permissions",
		Description: fmt.Sprintf("No top-level permissions block; job(s) %s run with the repository default token scopes.", strings.Join(missing, ", ")),
		ResourceRef: "permissions",
		Facts:       map[string]string{"job": missing[0]},
	}}
}

func checkBroadPermissions(w *Workflow) []model.Issue {
	var issues []model.Issue
	report := func(path string, perms *yaml.Node) {
		if perms == nil || perms.Kind != yaml.ScalarNode || perms.Value != "write-all" {
			return
		}
		issues = append(issues, model.Issue{
			Title:       fmt.Sprintf("%s is write-all", path),
			Description: fmt.Sprintf("%s on line %d grants every token scope with write access.", path, perms.Line),
			ResourceRef: path,
			Facts:       map[string]string{"line": lineOf(perms)},
		})
	}
	_, top := lookup(w.Root, "permissions")
	report("permissions", top)
	for _, j := range w.Jobs() {
		_, perms := lookup(j.Body, "permissions")
		report(fmt.Sprintf("jobs.%s.permissions", j.ID), perms)
	}
	return issues
}
