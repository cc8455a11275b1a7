package kubernetes

import (
	"fmt"

	"github.com/helmcode/healctl/pkg/k8s"
	"github.com/helmcode/healctl/pkg/model"
)

// checkNetworkPolicy reports each namespace that holds workloads but no
// NetworkPolicy, once, against the first workload found there.
func checkNetworkPolicy(m *k8s.Manifest) []model.Issue {
	var issues []model.Issue
	seen := make(map[string]bool)
	for _, w := range m.Workloads {
		ns := w.EffectiveNamespace()
		if seen[ns] || m.HasNetworkPolicy(ns) {
			continue
		}
		seen[ns] = true
		issue := workloadIssue(w,
			fmt.Sprintf("No NetworkPolicy in namespace %s", ns),
			fmt.Sprintf("No NetworkPolicy selects pods in namespace %s, so %s accepts traffic from any pod in the cluster.", ns, w.Ref()),
		)
		issue.ResourceRef = "Namespace/" + ns
		issues = append(issues, issue)
	}
	return issues
}

// checkDefaultNamespace reports workloads explicitly placed in "default".
// Workloads without a namespace are left to the deploy tooling.
func checkDefaultNamespace(m *k8s.Manifest) []model.Issue {
	var issues []model.Issue
	for _, w := range m.Workloads {
		if w.Namespace != k8s.DefaultNamespace {
			continue
		}
		issues = append(issues, workloadIssue(w,
			fmt.Sprintf("%s is in the default namespace", w.Ref()),
			fmt.Sprintf("%s is deployed to the default namespace and shares it with unrelated workloads.", w.Ref()),
		))
	}
	return issues
}
