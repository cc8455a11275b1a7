package kubernetes

import (
	"fmt"
	"slices"

	rbacv1 "k8s.io/api/rbac/v1"

	"github.com/helmcode/healctl/pkg/k8s"
	"github.com/helmcode/healctl/pkg/model"
)

const clusterAdmin = "cluster-admin"

func checkOverlyBroadRBAC(m *k8s.Manifest) []model.Issue {
	var issues []model.Issue
	for _, b := range m.Bindings {
		if b.RoleRef.Kind != "ClusterRole" || b.RoleRef.Name != clusterAdmin {
			continue
		}
		ref := b.Kind + "/" + b.Name
		issues = append(issues, model.Issue{
			Title:       fmt.Sprintf("%s binds cluster-admin", ref),
			Description: fmt.Sprintf("%s grants the cluster-admin ClusterRole to %d subject(s).", ref, len(b.Subjects)),
			ResourceRef: ref,
			Facts:       rbacFacts(b.Name, b.Namespace, "the cluster-admin ClusterRole", firstServiceAccount(b.Subjects)),
		})
	}
	for _, r := range m.Roles {
		if !slices.ContainsFunc(r.Rules, wildcardRule) {
			continue
		}
		ref := r.Kind + "/" + r.Name
		issues = append(issues, model.Issue{
			Title:       fmt.Sprintf("%s grants every verb on every resource", ref),
			Description: fmt.Sprintf("%s has a rule with verbs [*] on resources [*].", ref),
			ResourceRef: ref,
			Facts:       rbacFacts(r.Name, r.Namespace, "all verbs on all resources", ""),
		})
	}
	return issues
}

func wildcardRule(rule rbacv1.PolicyRule) bool {
	return slices.Contains(rule.Verbs, rbacv1.VerbAll) && slices.Contains(rule.Resources, rbacv1.ResourceAll)
}

// checkRBACBinding reports workloads that run as a named service account that
// no binding in the manifest grants anything to.
func checkRBACBinding(m *k8s.Manifest) []model.Issue {
	var issues []model.Issue
	seen := make(map[string]bool)
	for _, w := range m.Workloads {
		sa := w.ServiceAccount
		if sa == "" || sa == "default" {
			continue
		}
		key := w.EffectiveNamespace() + "/" + sa
		if seen[key] || m.BoundServiceAccount(w.Namespace, sa) {
			continue
		}
		seen[key] = true
		issue := workloadIssue(w,
			fmt.Sprintf("Service account %s has no role binding", sa),
			fmt.Sprintf("%s runs as service account %s, which no RoleBinding or ClusterRoleBinding in the manifest references.", w.Ref(), sa),
		)
		issue.ResourceRef = "ServiceAccount/" + sa
		issues = append(issues, issue)
	}
	return issues
}

func rbacFacts(name, namespace, grant, subject string) map[string]string {
	facts := map[string]string{"name": name, "grant": grant}
	if namespace != "" {
		facts["namespace"] = namespace
	}
	if subject != "" {
		facts["subject"] = subject
	}
	return facts
}

func firstServiceAccount(subjects []rbacv1.Subject) string {
	for _, s := range subjects {
		if s.Kind == rbacv1.ServiceAccountKind {
			return s.Name
		}
	}
	return ""
}
