package iac

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/helmcode/healctl/pkg/model"
)

var secretKey = regexp.MustCompile(`(?i)password|secret|token`)

// checkHardcodedSecrets reports credential-named attributes assigned a
// literal string. Anything that references a variable, local or function is
// not a literal.
func checkHardcodedSecrets(cfg *Config) []model.Issue {
	var issues []model.Issue
	walkAttributes(cfg.Body, "", func(path string, attr *hclsyntax.Attribute) {
		if !secretKey.MatchString(attr.Name) {
			return
		}
		value, ok := literalString(attr.Expr)
		if !ok || value == "" {
			return
		}
		ref := join(path, attr.Name)
		issues = append(issues, model.Issue{
			Title:       fmt.Sprintf("Hardcoded secret in %s", ref),
			Description: fmt.Sprintf("%s is assigned a literal string on line %d instead of a variable reference.", ref, attr.SrcRange.Start.Line),
			ResourceRef: ref,
			Facts: map[string]string{
				"attribute": attr.Name,
				"variable":  suggestVariable(path, attr.Name),
				"line":      line(attr.SrcRange),
			},
		})
	})
	return issues
}

// literalString returns the value of expr when it is a constant string.
func literalString(expr hclsyntax.Expression) (string, bool) {
	if len(expr.Variables()) > 0 {
		return "", false
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() || !v.IsKnown() || v.IsNull() || !v.Type().Equals(cty.String) {
		return "", false
	}
	return v.AsString(), true
}

func suggestVariable(path, attr string) string {
	if path == "" {
		return attr
	}
	parts := strings.Split(path, ".")
	return strings.ToLower(parts[len(parts)-1] + "_" + attr)
}
