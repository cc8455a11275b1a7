package workflow

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/helmcode/healctl/pkg/model"
)

var (
	credentialKey = regexp.MustCompile(`(?i)token|secret|passw(or)?d|api[_-]?key|private[_-]?key|access[_-]?key`)
	// runAssignment matches NAME=value in shell scripts where NAME looks like
	// a credential and value is not an expansion.
	runAssignment = regexp.MustCompile(`(?i)\b([A-Z0-9_]*(?:TOKEN|SECRET|PASSWORD|API_KEY)[A-Z0-9_]*)\s*=\s*["']?([^\s"'$]{8,})`)
)

const minSecretLength = 8

// checkHardcodedSecrets inspects env blocks at every level, step inputs and
// inline run scripts.
func checkHardcodedSecrets(w *Workflow) []model.Issue {
	if w.Root == nil {
		return nil
	}
	var issues []model.Issue
	_, env := lookup(w.Root, "env")
	issues = append(issues, literalCredentials("env", "", env)...)

	for _, j := range w.Jobs() {
		_, jobEnv := lookup(j.Body, "env")
		issues = append(issues, literalCredentials(fmt.Sprintf("jobs.%s.env", j.ID), j.ID, jobEnv)...)
		_, jobWith := lookup(j.Body, "with")
		issues = append(issues, literalCredentials(fmt.Sprintf("jobs.%s.with", j.ID), j.ID, jobWith)...)

		for i, step := range j.Steps() {
			path := stepPath(j.ID, i)
			_, stepEnv := lookup(step, "env")
			issues = append(issues, literalCredentials(path+".env", j.ID, stepEnv)...)
			_, with := lookup(step, "with")
			issues = append(issues, literalCredentials(path+".with", j.ID, with)...)
			_, run := lookup(step, "run")
			issues = append(issues, runCredentials(path+".run", j.ID, run)...)
		}
	}
	return issues
}

func literalCredentials(path, job string, m *yaml.Node) []model.Issue {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	var issues []model.Issue
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]
		if !credentialKey.MatchString(key.Value) || !literal(val) {
			continue
		}
		issues = append(issues, secretIssue(path+"."+key.Value, key.Value, job, val))
	}
	return issues
}

func runCredentials(path, job string, run *yaml.Node) []model.Issue {
	if run == nil || run.Kind != yaml.ScalarNode {
		return nil
	}
	var issues []model.Issue
	for _, m := range runAssignment.FindAllStringSubmatch(run.Value, -1) {
		issues = append(issues, secretIssue(path, m[1], job, run))
	}
	return issues
}

// literal is true for string scalars long enough to be a credential that do
// not use an expression.
func literal(n *yaml.Node) bool {
	if n.Kind != yaml.ScalarNode || n.Tag != "!!str" {
		return false
	}
	v := strings.TrimSpace(n.Value)
	return len(v) >= minSecretLength && !strings.Contains(v, "${{")
}

func secretIssue(path, key, job string, n *yaml.Node) model.Issue {
	facts := map[string]string{
		"key":  key,
		"line": lineOf(n),
	}
	if job != "" {
		facts["job"] = job
	}
	return model.Issue{
		Title:       fmt.Sprintf("Hardcoded secret %s", key),
		Description: fmt.Sprintf("%s on line %d holds a literal value for %s instead of a secrets reference.", path, n.Line, key),
		ResourceRef: path,
		Facts:       facts,
	}
}
