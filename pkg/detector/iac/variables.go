package iac

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/helmcode/healctl/pkg/model"
)

// checkUndeclaredVariables reports each var.X reference without a matching
// variable block, once per name, in order of first use.
func checkUndeclaredVariables(cfg *Config) []model.Issue {
	var issues []model.Issue
	seen := make(map[string]bool)
	walkAttributes(cfg.Body, "", func(path string, attr *hclsyntax.Attribute) {
		for _, traversal := range attr.Expr.Variables() {
			if traversal.RootName() != "var" || len(traversal) < 2 {
				continue
			}
			step, ok := traversal[1].(hcl.TraverseAttr)
			if !ok {
				continue
			}
			name := step.Name
			if cfg.Variables[name] || seen[name] {
				continue
			}
			seen[name] = true
			where := join(path, attr.Name)
			issues = append(issues, model.Issue{
				Title:       fmt.Sprintf("Variable %s is not declared", name),
				Description: fmt.Sprintf("%s references var.%s on line %d, but no variable %q block declares it.", where, name, traversal.SourceRange().Start.Line, name),
				ResourceRef: "var." + name,
				Facts: map[string]string{
					"variable":  name,
					"attribute": where,
					"line":      line(traversal.SourceRange()),
				},
			})
		}
	})
	return issues
}
