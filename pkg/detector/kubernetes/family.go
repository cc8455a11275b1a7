// Package kubernetes holds the rule checks for Kubernetes manifests.
package kubernetes

import (
	"fmt"
	"strconv"

	corev1 "k8s.io/api/core/v1"

	"github.com/helmcode/healctl/pkg/catalog"
	"github.com/helmcode/healctl/pkg/detector"
	"github.com/helmcode/healctl/pkg/k8s"
	"github.com/helmcode/healctl/pkg/model"
)

// Checks returns the Kubernetes rule checks in evaluation order.
func Checks() []detector.Check[*k8s.Manifest] {
	return []detector.Check[*k8s.Manifest]{
		{RuleID: catalog.K8sMissingResourceLimits, Eval: checkResourceLimits},
		{RuleID: catalog.K8sMissingResourceRequests, Eval: checkResourceRequests},
		{RuleID: catalog.K8sMissingLivenessProbe, Eval: checkLivenessProbe},
		{RuleID: catalog.K8sMissingReadinessProbe, Eval: checkReadinessProbe},
		{RuleID: catalog.K8sMissingAutoscaling, Eval: checkAutoscaling},
		{RuleID: catalog.K8sMissingNetworkPolicy, Eval: checkNetworkPolicy},
		{RuleID: catalog.K8sOverlyBroadRBAC, Eval: checkOverlyBroadRBAC},
		{RuleID: catalog.K8sMissingRBACBinding, Eval: checkRBACBinding},
		{RuleID: catalog.K8sPrivilegedContainer, Eval: checkPrivileged},
		{RuleID: catalog.K8sRunAsRoot, Eval: checkRunAsRoot},
		{RuleID: catalog.K8sPrivilegeEscalation, Eval: checkPrivilegeEscalation},
		{RuleID: catalog.K8sDangerousCapabilities, Eval: checkCapabilities},
		{RuleID: catalog.K8sDefaultNamespace, Eval: checkDefaultNamespace},
	}
}

// New returns the Kubernetes detector family.
func New() *detector.Family[*k8s.Manifest] {
	return detector.NewFamily(model.CategoryKubernetes, k8s.Decode, Checks()...)
}

func workloadFacts(w k8s.Workload) map[string]string {
	facts := map[string]string{
		"kind":     w.Kind,
		"name":     w.Name,
		"workload": w.Ref(),
	}
	if w.Namespace != "" {
		facts["namespace"] = w.Namespace
	}
	if w.Replicas != nil {
		facts["replicas"] = strconv.Itoa(int(*w.Replicas))
	}
	if w.ServiceAccount != "" {
		facts["service_account"] = w.ServiceAccount
	}
	return facts
}

func workloadIssue(w k8s.Workload, title, description string) model.Issue {
	return model.Issue{
		Title:       title,
		Description: description,
		ResourceRef: w.Ref(),
		Facts:       workloadFacts(w),
	}
}

func containerIssue(w k8s.Workload, c corev1.Container, title, description string) model.Issue {
	facts := workloadFacts(w)
	facts["container"] = c.Name
	return model.Issue{
		Title:       title,
		Description: description,
		ResourceRef: fmt.Sprintf("%s/%s", w.Ref(), c.Name),
		Facts:       facts,
	}
}

// eachContainer calls fn for every regular container of every workload.
func eachContainer(m *k8s.Manifest, fn func(k8s.Workload, corev1.Container) []model.Issue) []model.Issue {
	var issues []model.Issue
	for _, w := range m.Workloads {
		for _, c := range w.Spec.Containers {
			issues = append(issues, fn(w, c)...)
		}
	}
	return issues
}
