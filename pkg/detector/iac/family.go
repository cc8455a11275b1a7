// Package iac holds the rule checks for Terraform/HCL configuration.
package iac

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/helmcode/healctl/pkg/catalog"
	"github.com/helmcode/healctl/pkg/detector"
	"github.com/helmcode/healctl/pkg/model"
)

// Config is one parsed HCL file with its top-level blocks grouped by type.
type Config struct {
	Body      *hclsyntax.Body
	Resources []*hclsyntax.Block
	Providers []*hclsyntax.Block
	Terraform []*hclsyntax.Block
	Variables map[string]bool
}

// Parse parses HCL native syntax. Diagnostics with errors make the artifact
// malformed.
func Parse(content string) (*Config, error) {
	file, diags := hclparse.NewParser().ParseHCL([]byte(content), "main.tf")
	if diags.HasErrors() {
		return nil, model.Malformed(diags, "invalid HCL: %s", diags.Error())
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, model.Malformed(nil, "unexpected HCL body type %T", file.Body)
	}

	cfg := &Config{Body: body, Variables: make(map[string]bool)}
	for _, block := range body.Blocks {
		switch block.Type {
		case "resource":
			if len(block.Labels) == 2 {
				cfg.Resources = append(cfg.Resources, block)
			}
		case "provider":
			if len(block.Labels) == 1 {
				cfg.Providers = append(cfg.Providers, block)
			}
		case "terraform":
			cfg.Terraform = append(cfg.Terraform, block)
		case "variable":
			if len(block.Labels) == 1 {
				cfg.Variables[block.Labels[0]] = true
			}
		}
	}
	return cfg, nil
}

// Checks returns the infra-as-code rule checks in evaluation order.
func Checks() []detector.Check[*Config] {
	return []detector.Check[*Config]{
		{RuleID: catalog.IaCUndeclaredVariable, Eval: checkUndeclaredVariables},
		{RuleID: catalog.IaCHardcodedSecret, Eval: checkHardcodedSecrets},
		{RuleID: catalog.IaCMissingStateLocking, Eval: checkStateLocking},
		{RuleID: catalog.IaCMissingProviderRegion, Eval: checkProviderRegion},
		{RuleID: catalog.IaCUnpinnedProvider, Eval: checkUnpinnedProviders},
		{RuleID: catalog.IaCMissingTags, Eval: checkMissingTags},
		{RuleID: catalog.IaCEmptyResource, Eval: checkEmptyResources},
	}
}

// New returns the infra-as-code detector family.
func New() *detector.Family[*Config] {
	return detector.NewFamily(model.CategoryInfraAsCode, Parse, Checks()...)
}

// sortedAttributes returns the attributes of a body in source order.
func sortedAttributes(body *hclsyntax.Body) []*hclsyntax.Attribute {
	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, a := range body.Attributes {
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})
	return attrs
}

// walkAttributes visits every attribute under body in source order, passing
// the dotted path of enclosing blocks.
func walkAttributes(body *hclsyntax.Body, path string, fn func(path string, attr *hclsyntax.Attribute)) {
	type item struct {
		pos   int
		attr  *hclsyntax.Attribute
		block *hclsyntax.Block
	}
	var items []item
	for _, a := range sortedAttributes(body) {
		items = append(items, item{pos: a.SrcRange.Start.Byte, attr: a})
	}
	for _, b := range body.Blocks {
		items = append(items, item{pos: b.TypeRange.Start.Byte, block: b})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].pos < items[j].pos })

	for _, it := range items {
		if it.attr != nil {
			fn(path, it.attr)
			continue
		}
		walkAttributes(it.block.Body, join(path, blockPath(it.block)), fn)
	}
}

// blockPath names a block the way terraform addresses it.
func blockPath(b *hclsyntax.Block) string {
	switch {
	case b.Type == "resource" && len(b.Labels) == 2:
		return strings.Join(b.Labels, ".")
	case len(b.Labels) > 0:
		return b.Type + "." + strings.Join(b.Labels, ".")
	}
	return b.Type
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func line(r hcl.Range) string {
	return strconv.Itoa(r.Start.Line)
}
