package formatter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/helmcode/healctl/pkg/catalog"
	"github.com/helmcode/healctl/pkg/model"
)

func init() {
	color.NoColor = true
}

func sampleResult() *model.ScanResult {
	issue := model.Issue{
		Category:    model.CategoryKubernetes,
		RuleID:      catalog.K8sMissingResourceLimits,
		Title:       "Container app has no resource limits",
		Description: "Deployment/web container app sets no CPU or memory limits.",
		ResourceRef: "Deployment/web/app",
		Severity:    model.SeverityCritical,
		Artifact:    "deploy.yaml",
		Facts:       map[string]string{"container": "app"},
	}
	info := model.Issue{
		Category: model.CategoryKubernetes,
		RuleID:   catalog.K8sDefaultNamespace,
		Title:    "Workload in default namespace",
		Severity: model.SeverityInfo,
	}
	return &model.ScanResult{
		Artifacts: []string{"deploy.yaml"},
		Issues:    []model.Issue{issue},
		Plans: []model.Plan{{
			Issue:            issue,
			RuleID:           issue.RuleID,
			RiskTier:         model.RiskMedium,
			EstimatedTime:    "15-30 min",
			RequiresApproval: true,
			RootCause:        "No limits.",
			SuggestedFix:     "Set limits.",
			ConfigSnippet:    "resources:\n  limits:\n    memory: 256Mi",
			Steps: []model.Step{
				{Order: 1, Title: "Understand the issue", Detail: "Check usage."},
				{Order: 2, Title: "Apply", Command: "kubectl apply -f deploy.yaml"},
			},
		}},
		Detected: model.CountIssues([]model.Issue{issue, info}),
		Filter:   model.Filter{Severity: model.SeverityCritical},
	}
}

func TestDisplayResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DisplayResults(&buf, sampleResult(), "json"))

	var decoded model.ScanResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *sampleResult(), decoded)
	assert.Contains(t, buf.String(), `"rule_id": "k8s.missing-resource-limits"`)
	assert.Contains(t, buf.String(), `"requires_approval": true`)
}

func TestDisplayResults_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DisplayResults(&buf, sampleResult(), "yaml"))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "issues")
	assert.Contains(t, decoded, "plans")
	assert.Contains(t, buf.String(), "risk_tier: medium")
}

func TestDisplayResults_Human(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DisplayResults(&buf, sampleResult(), "human"))
	out := buf.String()

	assert.Contains(t, out, "ISSUES FOUND")
	assert.Contains(t, out, "CRITICAL Container app has no resource limits")
	assert.Contains(t, out, "At: deploy.yaml: Deployment/web/app")
	assert.Contains(t, out, "REMEDIATION PLANS")
	assert.Contains(t, out, "requires approval")
	assert.Contains(t, out, "2) Apply")
	assert.Contains(t, out, "$ kubectl apply -f deploy.yaml")
	assert.Contains(t, out, "memory: 256Mi")
	assert.Contains(t, out, "1 issue(s) in 1 artifact(s): 1 critical (1 hidden by filters)")
}

func TestDisplayResults_HumanClean(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DisplayResults(&buf, &model.ScanResult{Artifacts: []string{"a"}}, ""))
	assert.Contains(t, buf.String(), "NO ISSUES FOUND")
	assert.NotContains(t, buf.String(), "REMEDIATION PLANS")
}

func TestDisplayResults_UnknownFormat(t *testing.T) {
	err := DisplayResults(&bytes.Buffer{}, sampleResult(), "table")
	assert.ErrorContains(t, err, "table")
}

func TestDisplayRules(t *testing.T) {
	rules := catalog.MustDefault().Rules()

	var buf bytes.Buffer
	require.NoError(t, DisplayRules(&buf, rules, "human"))
	out := buf.String()
	assert.Contains(t, out, "KUBERNETES")
	assert.Contains(t, out, "LOG")
	assert.Contains(t, out, catalog.LogHighErrorRate)
	assert.Contains(t, out, "detection only")

	buf.Reset()
	require.NoError(t, DisplayRules(&buf, rules, "json"))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded, len(rules))
	assert.Equal(t, catalog.K8sMissingResourceLimits, decoded[0]["rule_id"])
}

func TestWrapText(t *testing.T) {
	out := wrapText("one two three four five six", 12, "  ")
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len(line), 12)
		assert.True(t, strings.HasPrefix(line, "  "))
	}
	assert.Equal(t, "  averyveryverylongword", wrapText("averyveryverylongword", 10, "  "))
}
