package iac

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/helmcode/healctl/pkg/model"
)

// untaggable resource types accept no tags or labels argument.
var untaggable = map[string]bool{
	"aws_iam_policy_attachment":                          true,
	"aws_iam_role_policy":                                true,
	"aws_iam_role_policy_attachment":                     true,
	"aws_iam_user_policy_attachment":                     true,
	"aws_main_route_table_association":                   true,
	"aws_route":                                          true,
	"aws_route_table_association":                        true,
	"aws_s3_bucket_acl":                                  true,
	"aws_s3_bucket_policy":                               true,
	"aws_s3_bucket_public_access_block":                  true,
	"aws_s3_bucket_server_side_encryption_configuration": true,
	"aws_s3_bucket_versioning":                           true,
	"aws_security_group_rule":                            true,
	"aws_volume_attachment":                              true,
	"azurerm_role_assignment":                            true,
	"azurerm_subnet":                                     true,
	"azurerm_subnet_network_security_group_association":  true,
	"google_project_iam_binding":                         true,
	"google_project_iam_member":                          true,
	"google_project_service":                             true,
}

// tagAttribute returns the argument a resource type uses for tags, or "" when
// the provider is not covered.
func tagAttribute(resourceType string) string {
	switch {
	case untaggable[resourceType]:
		return ""
	case strings.HasPrefix(resourceType, "aws_"), strings.HasPrefix(resourceType, "azurerm_"):
		return "tags"
	case strings.HasPrefix(resourceType, "google_"):
		return "labels"
	}
	return ""
}

func resourceFacts(b *hclsyntax.Block) map[string]string {
	return map[string]string{
		"resource_type": b.Labels[0],
		"resource_name": b.Labels[1],
		"line":          line(b.TypeRange),
	}
}

func emptyBlock(b *hclsyntax.Block) bool {
	return len(b.Body.Attributes) == 0 && len(b.Body.Blocks) == 0
}

// checkMissingTags skips empty blocks, which are reported on their own.
func checkMissingTags(cfg *Config) []model.Issue {
	var issues []model.Issue
	for _, b := range cfg.Resources {
		attr := tagAttribute(b.Labels[0])
		if attr == "" || emptyBlock(b) {
			continue
		}
		if _, ok := b.Body.Attributes[attr]; ok {
			continue
		}
		ref := blockPath(b)
		facts := resourceFacts(b)
		facts["attribute"] = attr
		issues = append(issues, model.Issue{
			Title:       fmt.Sprintf("%s has no %s", ref, attr),
			Description: fmt.Sprintf("Resource %s on line %d sets no %s.", ref, b.TypeRange.Start.Line, attr),
			ResourceRef: ref,
			Facts:       facts,
		})
	}
	return issues
}

func checkEmptyResources(cfg *Config) []model.Issue {
	var issues []model.Issue
	for _, b := range cfg.Resources {
		if !emptyBlock(b) {
			continue
		}
		ref := blockPath(b)
		issues = append(issues, model.Issue{
			Title:       fmt.Sprintf("%s is empty", ref),
			Description: fmt.Sprintf("Resource %s on line %d has no arguments or nested blocks.", ref, b.TypeRange.Start.Line),
			ResourceRef: ref,
			Facts:       resourceFacts(b),
		})
	}
	return issues
}
