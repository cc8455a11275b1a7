package iac

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/helmcode/healctl/pkg/model"
)

// lockingBackends lock state without extra configuration.
var lockingBackends = map[string]bool{
	"azurerm":    true,
	"consul":     true,
	"cos":        true,
	"gcs":        true,
	"kubernetes": true,
	"oss":        true,
	"pg":         true,
	"remote":     true,
}

// checkStateLocking only evaluates files that contain a terraform block.
func checkStateLocking(cfg *Config) []model.Issue {
	if len(cfg.Terraform) == 0 {
		return nil
	}
	var backend *hclsyntax.Block
	for _, tf := range cfg.Terraform {
		for _, b := range tf.Body.Blocks {
			switch b.Type {
			case "cloud":
				return nil
			case "backend":
				if backend == nil {
					backend = b
				}
			}
		}
	}

	if backend == nil {
		return []model.Issue{{
			Title:       "No remote state backend",
			Description: fmt.Sprintf("The terraform block on line %d configures no backend, so state is local and unlocked.", cfg.Terraform[0].TypeRange.Start.Line),
			ResourceRef: "terraform",
			Facts:       map[string]string{"line": line(cfg.Terraform[0].TypeRange)},
		}}
	}

	name := ""
	if len(backend.Labels) > 0 {
		name = backend.Labels[0]
	}
	if backendLocks(name, backend.Body) {
		return nil
	}
	ref := "terraform.backend." + name
	return []model.Issue{{
		Title:       fmt.Sprintf("The %s backend has no state locking", name),
		Description: fmt.Sprintf("%s on line %d does not lock state during operations.", ref, backend.TypeRange.Start.Line),
		ResourceRef: ref,
		Facts: map[string]string{
			"backend": name,
			"line":    line(backend.TypeRange),
		},
	}}
}

func backendLocks(name string, body *hclsyntax.Body) bool {
	if lockingBackends[name] {
		return true
	}
	switch name {
	case "s3":
		if _, ok := body.Attributes["dynamodb_table"]; ok {
			return true
		}
		return attributeEnabled(body, "use_lockfile")
	case "http":
		_, ok := body.Attributes["lock_address"]
		return ok
	}
	return false
}

// attributeEnabled is true when the attribute is present and not the literal
// false. Non-literal values are given the benefit of the doubt.
func attributeEnabled(body *hclsyntax.Body, name string) bool {
	attr, ok := body.Attributes[name]
	if !ok {
		return false
	}
	if len(attr.Expr.Variables()) > 0 {
		return true
	}
	v, diags := attr.Expr.Value(nil)
	if diags.HasErrors() || !v.IsKnown() || v.IsNull() || !v.Type().Equals(cty.Bool) {
		return true
	}
	return v.True()
}
