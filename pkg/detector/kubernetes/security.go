package kubernetes

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"

	"github.com/helmcode/healctl/pkg/k8s"
	"github.com/helmcode/healctl/pkg/model"
)

var dangerousCapabilities = map[corev1.Capability]bool{
	"ALL":        true,
	"SYS_ADMIN":  true,
	"NET_ADMIN":  true,
	"NET_RAW":    true,
	"SYS_PTRACE": true,
	"SYS_MODULE": true,
}

func checkPrivileged(m *k8s.Manifest) []model.Issue {
	return eachContainer(m, func(w k8s.Workload, c corev1.Container) []model.Issue {
		sc := c.SecurityContext
		if sc == nil || sc.Privileged == nil || !*sc.Privileged {
			return nil
		}
		return []model.Issue{containerIssue(w, c,
			fmt.Sprintf("Container %s runs privileged", c.Name),
			fmt.Sprintf("Container %s in %s sets securityContext.privileged: true.", c.Name, w.Ref()),
		)}
	})
}

// checkRunAsRoot reports containers explicitly configured for UID 0. The
// container security context overrides the pod one.
func checkRunAsRoot(m *k8s.Manifest) []model.Issue {
	return eachContainer(m, func(w k8s.Workload, c corev1.Container) []model.Issue {
		var (
			user    *int64
			nonRoot *bool
		)
		if psc := w.Spec.SecurityContext; psc != nil {
			user, nonRoot = psc.RunAsUser, psc.RunAsNonRoot
		}
		if sc := c.SecurityContext; sc != nil {
			if sc.RunAsUser != nil {
				user = sc.RunAsUser
			}
			if sc.RunAsNonRoot != nil {
				nonRoot = sc.RunAsNonRoot
			}
		}
		var reason string
		switch {
		case user != nil && *user == 0:
			reason = "runAsUser: 0"
		case user == nil && nonRoot != nil && !*nonRoot:
			reason = "runAsNonRoot: false"
		default:
			return nil
		}
		return []model.Issue{containerIssue(w, c,
			fmt.Sprintf("Container %s runs as root", c.Name),
			fmt.Sprintf("Container %s in %s is configured with %s.", c.Name, w.Ref(), reason),
		)}
	})
}

func checkPrivilegeEscalation(m *k8s.Manifest) []model.Issue {
	return eachContainer(m, func(w k8s.Workload, c corev1.Container) []model.Issue {
		sc := c.SecurityContext
		if sc == nil || sc.AllowPrivilegeEscalation == nil || !*sc.AllowPrivilegeEscalation {
			return nil
		}
		return []model.Issue{containerIssue(w, c,
			fmt.Sprintf("Container %s allows privilege escalation", c.Name),
			fmt.Sprintf("Container %s in %s sets allowPrivilegeEscalation: true.", c.Name, w.Ref()),
		)}
	})
}

// checkCapabilities reports one issue per dangerous capability added.
func checkCapabilities(m *k8s.Manifest) []model.Issue {
	return eachContainer(m, func(w k8s.Workload, c corev1.Container) []model.Issue {
		sc := c.SecurityContext
		if sc == nil || sc.Capabilities == nil {
			return nil
		}
		var issues []model.Issue
		for _, capability := range sc.Capabilities.Add {
			if !dangerousCapabilities[capability] {
				continue
			}
			issue := containerIssue(w, c,
				fmt.Sprintf("Container %s adds %s", c.Name, capability),
				fmt.Sprintf("Container %s in %s adds the %s capability.", c.Name, w.Ref(), capability),
			)
			issue.Facts["capability"] = string(capability)
			issues = append(issues, issue)
		}
		return issues
	})
}
