// Package workflow holds the rule checks for CI workflow files.
package workflow

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/helmcode/healctl/pkg/catalog"
	"github.com/helmcode/healctl/pkg/detector"
	"github.com/helmcode/healctl/pkg/model"
)

// Workflow is a parsed workflow document. Nodes keep line numbers.
type Workflow struct {
	Root *yaml.Node
}

// Job is one entry under jobs.
type Job struct {
	ID   string
	Key  *yaml.Node
	Body *yaml.Node
}

// Parse decodes the first YAML document. An empty document yields a workflow
// with a nil root.
func Parse(content string) (*Workflow, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, model.Malformed(err, "invalid workflow YAML: %v", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return &Workflow{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, model.Malformed(nil, "workflow root must be a mapping, got %s", kindName(root.Kind))
	}
	return &Workflow{Root: root}, nil
}

// Jobs returns the jobs in declaration order.
func (w *Workflow) Jobs() []Job {
	_, jobs := lookup(w.Root, "jobs")
	if jobs == nil || jobs.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]Job, 0, len(jobs.Content)/2)
	for i := 0; i+1 < len(jobs.Content); i += 2 {
		out = append(out, Job{ID: jobs.Content[i].Value, Key: jobs.Content[i], Body: jobs.Content[i+1]})
	}
	return out
}

// Steps returns the step mappings of a job.
func (j Job) Steps() []*yaml.Node {
	_, steps := lookup(j.Body, "steps")
	if steps == nil || steps.Kind != yaml.SequenceNode {
		return nil
	}
	return steps.Content
}

// Checks returns the CI workflow rule checks in evaluation order.
func Checks() []detector.Check[*Workflow] {
	return []detector.Check[*Workflow]{
		{RuleID: catalog.CIMissingPermissions, Eval: checkMissingPermissions},
		{RuleID: catalog.CIBroadPermissions, Eval: checkBroadPermissions},
		{RuleID: catalog.CIHardcodedSecret, Eval: checkHardcodedSecrets},
		{RuleID: catalog.CIUnpinnedAction, Eval: checkUnpinnedActions},
		{RuleID: catalog.CIMissingJobTimeout, Eval: checkJobTimeouts},
		{RuleID: catalog.CIUnrestrictedTrigger, Eval: checkUnrestrictedTriggers},
	}
}

// New returns the CI workflow detector family.
func New() *detector.Family[*Workflow] {
	return detector.NewFamily(model.CategoryCIWorkflow, Parse, Checks()...)
}

// lookup returns the key and value nodes for key in a mapping node.
func lookup(node *yaml.Node, key string) (*yaml.Node, *yaml.Node) {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil, nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i], node.Content[i+1]
		}
	}
	return nil, nil
}

func has(node *yaml.Node, key string) bool {
	k, _ := lookup(node, key)
	return k != nil
}

func stepPath(job string, index int) string {
	return fmt.Sprintf("jobs.%s.steps[%d]", job, index)
}

func lineOf(n *yaml.Node) string {
	return strconv.Itoa(n.Line)
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
