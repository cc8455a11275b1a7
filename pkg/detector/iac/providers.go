package iac

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/helmcode/healctl/pkg/model"
)

func providerRef(p *hclsyntax.Block) string {
	ref := "provider." + p.Labels[0]
	if attr, ok := p.Body.Attributes["alias"]; ok {
		if alias, ok := literalString(attr.Expr); ok && alias != "" {
			ref += "." + alias
		}
	}
	return ref
}

// checkProviderRegion covers the aws provider, which has no default region.
func checkProviderRegion(cfg *Config) []model.Issue {
	var issues []model.Issue
	for _, p := range cfg.Providers {
		if p.Labels[0] != "aws" {
			continue
		}
		if _, ok := p.Body.Attributes["region"]; ok {
			continue
		}
		ref := providerRef(p)
		issues = append(issues, model.Issue{
			Title:       fmt.Sprintf("%s has no region", ref),
			Description: fmt.Sprintf("%s on line %d does not set region and falls back to the caller's environment.", ref, p.TypeRange.Start.Line),
			ResourceRef: ref,
			Facts: map[string]string{
				"provider": p.Labels[0],
				"line":     line(p.TypeRange),
			},
		})
	}
	return issues
}

// checkUnpinnedProviders reports providers declared in required_providers or
// configured with a provider block that carry no version constraint.
func checkUnpinnedProviders(cfg *Config) []model.Issue {
	var (
		order  []string
		pinned = make(map[string]bool)
		lines  = make(map[string]hcl.Range)
	)
	declare := func(name string, rng hcl.Range) {
		if _, ok := lines[name]; ok {
			return
		}
		lines[name] = rng
		order = append(order, name)
	}

	for _, tf := range cfg.Terraform {
		for _, b := range tf.Body.Blocks {
			if b.Type != "required_providers" {
				continue
			}
			for _, attr := range sortedAttributes(b.Body) {
				declare(attr.Name, attr.SrcRange)
				if hasVersionConstraint(attr.Expr) {
					pinned[attr.Name] = true
				}
			}
		}
	}
	for _, p := range cfg.Providers {
		name := p.Labels[0]
		declare(name, p.TypeRange)
		if _, ok := p.Body.Attributes["version"]; ok {
			pinned[name] = true
		}
	}

	var issues []model.Issue
	for _, name := range order {
		if pinned[name] {
			continue
		}
		issues = append(issues, model.Issue{
			Title:       fmt.Sprintf("Provider %s is not pinned", name),
			Description: fmt.Sprintf("Provider %s (line %d) has no version constraint.", name, lines[name].Start.Line),
			ResourceRef: "provider." + name,
			Facts: map[string]string{
				"provider": name,
				"line":     line(lines[name]),
			},
		})
	}
	return issues
}

// hasVersionConstraint accepts both `{ source = ..., version = ... }` and the
// legacy `name = "~> 1.0"` form.
func hasVersionConstraint(expr hclsyntax.Expression) bool {
	if obj, ok := expr.(*hclsyntax.ObjectConsExpr); ok {
		for _, item := range obj.Items {
			if keyName(item.KeyExpr) == "version" {
				return true
			}
		}
		return false
	}
	v, ok := literalString(expr)
	return ok && v != ""
}

func keyName(expr hclsyntax.Expression) string {
	if kw := hcl.ExprAsKeyword(expr); kw != "" {
		return kw
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() || !v.IsKnown() || v.IsNull() || !v.Type().Equals(cty.String) {
		return ""
	}
	return v.AsString()
}
