package workflow

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/helmcode/healctl/pkg/model"
)

var (
	commitSHA  = regexp.MustCompile(`^[0-9a-f]{40}$`)
	fullSemver = regexp.MustCompile(`^v?\d+\.\d+\.\d+$`)
)

// ActionRef is a parsed `uses:` value.
type ActionRef struct {
	Raw  string
	Name string // owner/repo[/path] or docker image
	Ref  string // text after @, empty when absent
}

// Repo returns owner/repo without a subdirectory.
func (a ActionRef) Repo() string {
	parts := strings.SplitN(a.Name, "/", 3)
	if len(parts) < 2 {
		return a.Name
	}
	return parts[0] + "/" + parts[1]
}

func parseActionRef(uses string) ActionRef {
	name, ref, _ := strings.Cut(uses, "@")
	return ActionRef{Raw: uses, Name: name, Ref: ref}
}

// Pinned reports whether the ref is immutable enough: a full commit SHA or a
// full semantic version. Local actions are always pinned; docker references
// need a digest.
func (a ActionRef) Pinned() bool {
	switch {
	case strings.HasPrefix(a.Raw, "./"):
		return true
	case strings.HasPrefix(a.Raw, "docker://"):
		return strings.Contains(a.Raw, "@sha256:")
	}
	return commitSHA.MatchString(a.Ref) || fullSemver.MatchString(a.Ref)
}

func checkUnpinnedActions(w *Workflow) []model.Issue {
	var issues []model.Issue
	for _, j := range w.Jobs() {
		if _, uses := lookup(j.Body, "uses"); uses != nil {
			issues = append(issues, unpinned(fmt.Sprintf("jobs.%s", j.ID), j.ID, uses)...)
		}
		for i, step := range j.Steps() {
			_, uses := lookup(step, "uses")
			issues = append(issues, unpinned(stepPath(j.ID, i), j.ID, uses)...)
		}
	}
	return issues
}

func unpinned(path, job string, uses *yaml.Node) []model.Issue {
	if uses == nil || uses.Kind != yaml.ScalarNode || uses.Value == "" {
		return nil
	}
	action := parseActionRef(strings.TrimSpace(uses.Value))
	if action.Pinned() {
		return nil
	}
	desc := fmt.Sprintf("%s uses %s by the mutable ref %q.", path, action.Name, action.Ref)
	if action.Ref == "" {
		desc = fmt.Sprintf("%s uses %s without any ref.", path, action.Name)
	}
	return []model.Issue{{
		Title:       fmt.Sprintf("Action %s is not pinned", action.Name),
		Description: desc,
		ResourceRef: path,
		Facts: map[string]string{
			"action":      action.Raw,
			"action_name": action.Name,
			"action_ref":  action.Ref,
			"action_repo": action.Repo(),
			"job":         job,
			"line":        lineOf(uses),
		},
	}}
}
