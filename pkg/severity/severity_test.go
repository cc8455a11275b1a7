package severity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmcode/healctl/pkg/catalog"
	"github.com/helmcode/healctl/pkg/model"
)

func TestClassify(t *testing.T) {
	cat := catalog.MustDefault()
	in := []model.Issue{
		{Category: model.CategoryKubernetes, RuleID: catalog.K8sMissingResourceLimits, Title: "custom"},
		{Category: model.CategoryKubernetes, RuleID: catalog.K8sMissingLivenessProbe},
		{Category: model.CategoryLog, RuleID: catalog.LogNotFound, Severity: model.SeverityCritical},
	}

	out, err := Classify(cat, in)
	require.NoError(t, err)
	require.Len(t, out, 3)

	for _, issue := range out {
		rule, ok := cat.Lookup(issue.RuleID)
		require.True(t, ok)
		assert.Equal(t, rule.DefaultSeverity, issue.Severity, issue.RuleID)
	}
	assert.Equal(t, "custom", out[0].Title)
	liveness, _ := cat.Lookup(catalog.K8sMissingLivenessProbe)
	assert.Equal(t, liveness.Title, out[1].Title)

	// The input is left untouched.
	assert.Empty(t, in[0].Severity)
	assert.Equal(t, model.SeverityCritical, in[2].Severity)
}

func TestClassify_UnknownRule(t *testing.T) {
	_, err := Classify(catalog.MustDefault(), []model.Issue{{Category: model.CategoryLog, RuleID: "log.unknown"}})
	assert.ErrorContains(t, err, "log.unknown")
}

func TestClassify_CategoryMismatch(t *testing.T) {
	_, err := Classify(catalog.MustDefault(), []model.Issue{{Category: model.CategoryLog, RuleID: catalog.K8sRunAsRoot}})
	assert.Error(t, err)
}

func TestClassify_Empty(t *testing.T) {
	out, err := Classify(catalog.MustDefault(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAtLeast(t *testing.T) {
	assert.True(t, AtLeast(model.SeverityCritical, model.SeverityWarning))
	assert.True(t, AtLeast(model.SeverityWarning, model.SeverityWarning))
	assert.False(t, AtLeast(model.SeverityInfo, model.SeverityWarning))
}
