package kubernetes

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"

	"github.com/helmcode/healctl/pkg/k8s"
	"github.com/helmcode/healctl/pkg/model"
)

// Probes are only expected on long-running workloads; Jobs and CronJobs are
// skipped.

func checkLivenessProbe(m *k8s.Manifest) []model.Issue {
	return eachContainer(m, func(w k8s.Workload, c corev1.Container) []model.Issue {
		if !w.LongRunning || c.LivenessProbe != nil {
			return nil
		}
		return []model.Issue{containerIssue(w, c,
			fmt.Sprintf("Container %s has no liveness probe", c.Name),
			fmt.Sprintf("Container %s in %s has no livenessProbe, so a deadlocked process keeps running.", c.Name, w.Ref()),
		)}
	})
}

func checkReadinessProbe(m *k8s.Manifest) []model.Issue {
	return eachContainer(m, func(w k8s.Workload, c corev1.Container) []model.Issue {
		if !w.LongRunning || c.ReadinessProbe != nil {
			return nil
		}
		return []model.Issue{containerIssue(w, c,
			fmt.Sprintf("Container %s has no readiness probe", c.Name),
			fmt.Sprintf("Container %s in %s has no readinessProbe, so it receives traffic before it is ready.", c.Name, w.Ref()),
		)}
	})
}
