package kubernetes

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"

	"github.com/helmcode/healctl/pkg/k8s"
	"github.com/helmcode/healctl/pkg/model"
)

func checkResourceLimits(m *k8s.Manifest) []model.Issue {
	return eachContainer(m, func(w k8s.Workload, c corev1.Container) []model.Issue {
		if len(c.Resources.Limits) > 0 {
			return nil
		}
		return []model.Issue{containerIssue(w, c,
			fmt.Sprintf("Container %s has no resource limits", c.Name),
			fmt.Sprintf("Container %s in %s sets no CPU or memory limits and can consume all node resources.", c.Name, w.Ref()),
		)}
	})
}

func checkResourceRequests(m *k8s.Manifest) []model.Issue {
	return eachContainer(m, func(w k8s.Workload, c corev1.Container) []model.Issue {
		if len(c.Resources.Requests) > 0 {
			return nil
		}
		return []model.Issue{containerIssue(w, c,
			fmt.Sprintf("Container %s has no resource requests", c.Name),
			fmt.Sprintf("Container %s in %s sets no CPU or memory requests, so scheduling and autoscaling have nothing to work with.", c.Name, w.Ref()),
		)}
	})
}

// checkAutoscaling only considers workloads with an explicit replica count
// above one.
func checkAutoscaling(m *k8s.Manifest) []model.Issue {
	var issues []model.Issue
	for _, w := range m.Workloads {
		if w.Replicas == nil || *w.Replicas <= 1 {
			continue
		}
		if m.Scaled(w) {
			continue
		}
		issues = append(issues, workloadIssue(w,
			fmt.Sprintf("%s has no autoscaler", w.Ref()),
			fmt.Sprintf("%s runs a fixed %d replicas and no HorizontalPodAutoscaler or ScaledObject targets it.", w.Ref(), *w.Replicas),
		))
	}
	return issues
}
