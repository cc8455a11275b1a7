// Package k8s decodes Kubernetes manifests offline into typed objects. It
// never contacts an API server.
package k8s

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	autoscalingv1 "k8s.io/api/autoscaling/v1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/yaml"
)

// DefaultNamespace is assumed for objects that do not set metadata.namespace.
const DefaultNamespace = "default"

// Workload is any object that runs pods.
type Workload struct {
	Kind      string
	Name      string
	Namespace string // as written; empty when omitted
	// Replicas is nil when the field is absent or the kind has none.
	Replicas       *int32
	ServiceAccount string
	Spec           *corev1.PodSpec
	// LongRunning is false for run-to-completion kinds (Job, CronJob).
	LongRunning bool
}

// Ref returns "Kind/name".
func (w Workload) Ref() string {
	return w.Kind + "/" + w.Name
}

// EffectiveNamespace returns the namespace the workload lands in when applied
// without an explicit -n flag.
func (w Workload) EffectiveNamespace() string {
	return namespaceOrDefault(w.Namespace)
}

// Role is a Role or ClusterRole.
type Role struct {
	Kind      string
	Name      string
	Namespace string
	Rules     []rbacv1.PolicyRule
}

// Binding is a RoleBinding or ClusterRoleBinding.
type Binding struct {
	Kind      string
	Name      string
	Namespace string
	RoleRef   rbacv1.RoleRef
	Subjects  []rbacv1.Subject
}

// Manifest is the decoded content of one multi-document manifest.
type Manifest struct {
	Workloads []Workload
	Roles     []Role
	Bindings  []Binding
	// Objects counts every decoded document, including skipped kinds.
	Objects int

	scaleTargets    map[string]bool
	networkPolicies map[string]int
}

// Scaled reports whether an HPA or KEDA ScaledObject in the manifest targets
// the workload.
func (m *Manifest) Scaled(w Workload) bool {
	return m.scaleTargets[targetKey(w.EffectiveNamespace(), w.Kind, w.Name)]
}

// HasNetworkPolicy reports whether any NetworkPolicy exists in the namespace.
func (m *Manifest) HasNetworkPolicy(namespace string) bool {
	return m.networkPolicies[namespaceOrDefault(namespace)] > 0
}

// BoundServiceAccount reports whether any binding names the service account
// as a subject.
func (m *Manifest) BoundServiceAccount(namespace, name string) bool {
	ns := namespaceOrDefault(namespace)
	for _, b := range m.Bindings {
		for _, s := range b.Subjects {
			if s.Kind != rbacv1.ServiceAccountKind || s.Name != name {
				continue
			}
			subjectNS := s.Namespace
			if subjectNS == "" {
				subjectNS = b.Namespace
			}
			if namespaceOrDefault(subjectNS) == ns {
				return true
			}
		}
	}
	return false
}

var decoder = scheme.Codecs.UniversalDeserializer()

// Decode splits content into YAML documents and decodes each one. Documents
// without apiVersion or kind are skipped; kinds the built-in scheme does not
// know are decoded as unstructured objects.
func Decode(content string) (*Manifest, error) {
	m := &Manifest{
		scaleTargets:    make(map[string]bool),
		networkPolicies: make(map[string]int),
	}
	reader := utilyaml.NewYAMLReader(bufio.NewReader(strings.NewReader(content)))
	for i := 1; ; i++ {
		doc, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read document %d: %w", i, err)
		}
		if len(bytes.TrimSpace(doc)) == 0 {
			continue
		}
		if err := m.decodeDocument(doc); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
	}
	return m, nil
}

func (m *Manifest) decodeDocument(doc []byte) error {
	obj, _, err := decoder.Decode(doc, nil, nil)
	switch {
	case err == nil:
		return m.add(obj)
	case runtime.IsMissingKind(err), runtime.IsMissingVersion(err):
		return nil
	case runtime.IsNotRegisteredError(err):
		u, err := toUnstructured(doc)
		if err != nil {
			return err
		}
		return m.addUnstructured(u)
	default:
		return err
	}
}

func toUnstructured(doc []byte) (*unstructured.Unstructured, error) {
	js, err := yaml.YAMLToJSON(doc)
	if err != nil {
		return nil, err
	}
	u := &unstructured.Unstructured{}
	if err := u.UnmarshalJSON(js); err != nil {
		return nil, err
	}
	return u, nil
}

func (m *Manifest) add(obj runtime.Object) error {
	m.Objects++
	switch o := obj.(type) {
	case *appsv1.Deployment:
		m.addWorkload("Deployment", o.Name, o.Namespace, o.Spec.Replicas, &o.Spec.Template.Spec, true)
	case *appsv1.StatefulSet:
		m.addWorkload("StatefulSet", o.Name, o.Namespace, o.Spec.Replicas, &o.Spec.Template.Spec, true)
	case *appsv1.ReplicaSet:
		m.addWorkload("ReplicaSet", o.Name, o.Namespace, o.Spec.Replicas, &o.Spec.Template.Spec, true)
	case *appsv1.DaemonSet:
		m.addWorkload("DaemonSet", o.Name, o.Namespace, nil, &o.Spec.Template.Spec, true)
	case *batchv1.Job:
		m.addWorkload("Job", o.Name, o.Namespace, nil, &o.Spec.Template.Spec, false)
	case *batchv1.CronJob:
		m.addWorkload("CronJob", o.Name, o.Namespace, nil, &o.Spec.JobTemplate.Spec.Template.Spec, false)
	case *corev1.Pod:
		m.addWorkload("Pod", o.Name, o.Namespace, nil, &o.Spec, true)
	case *autoscalingv2.HorizontalPodAutoscaler:
		ref := o.Spec.ScaleTargetRef
		m.scaleTargets[targetKey(namespaceOrDefault(o.Namespace), ref.Kind, ref.Name)] = true
	case *autoscalingv1.HorizontalPodAutoscaler:
		ref := o.Spec.ScaleTargetRef
		m.scaleTargets[targetKey(namespaceOrDefault(o.Namespace), ref.Kind, ref.Name)] = true
	case *networkingv1.NetworkPolicy:
		m.networkPolicies[namespaceOrDefault(o.Namespace)]++
	case *rbacv1.Role:
		m.Roles = append(m.Roles, Role{Kind: "Role", Name: o.Name, Namespace: o.Namespace, Rules: o.Rules})
	case *rbacv1.ClusterRole:
		m.Roles = append(m.Roles, Role{Kind: "ClusterRole", Name: o.Name, Rules: o.Rules})
	case *rbacv1.RoleBinding:
		m.Bindings = append(m.Bindings, Binding{Kind: "RoleBinding", Name: o.Name, Namespace: o.Namespace, RoleRef: o.RoleRef, Subjects: o.Subjects})
	case *rbacv1.ClusterRoleBinding:
		m.Bindings = append(m.Bindings, Binding{Kind: "ClusterRoleBinding", Name: o.Name, RoleRef: o.RoleRef, Subjects: o.Subjects})
	case *corev1.List:
		m.Objects--
		for _, item := range o.Items {
			if err := m.decodeDocument(item.Raw); err != nil {
				return err
			}
		}
	}
	return nil
}

// typedKinds maps workload kinds that may arrive under an unregistered
// apiVersion to their typed form.
var typedKinds = map[string]func() runtime.Object{
	"Deployment":  func() runtime.Object { return &appsv1.Deployment{} },
	"StatefulSet": func() runtime.Object { return &appsv1.StatefulSet{} },
	"DaemonSet":   func() runtime.Object { return &appsv1.DaemonSet{} },
	"ReplicaSet":  func() runtime.Object { return &appsv1.ReplicaSet{} },
}

func (m *Manifest) addUnstructured(u *unstructured.Unstructured) error {
	kind := u.GetKind()
	switch {
	case kind == "ScaledObject":
		m.Objects++
		name, _, _ := unstructured.NestedString(u.Object, "spec", "scaleTargetRef", "name")
		targetKind, _, _ := unstructured.NestedString(u.Object, "spec", "scaleTargetRef", "kind")
		if targetKind == "" {
			targetKind = "Deployment"
		}
		if name != "" {
			m.scaleTargets[targetKey(namespaceOrDefault(u.GetNamespace()), targetKind, name)] = true
		}
		return nil
	case typedKinds[kind] != nil:
		obj := typedKinds[kind]()
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, obj); err != nil {
			return fmt.Errorf("failed to convert %s %s: %w", kind, u.GetName(), err)
		}
		return m.add(obj)
	}
	m.Objects++
	return nil
}

func (m *Manifest) addWorkload(kind, name, namespace string, replicas *int32, spec *corev1.PodSpec, longRunning bool) {
	sa := spec.ServiceAccountName
	if sa == "" {
		sa = spec.DeprecatedServiceAccount
	}
	m.Workloads = append(m.Workloads, Workload{
		Kind:           kind,
		Name:           name,
		Namespace:      namespace,
		Replicas:       replicas,
		ServiceAccount: sa,
		Spec:           spec,
		LongRunning:    longRunning,
	})
}

func namespaceOrDefault(ns string) string {
	if ns == "" {
		return DefaultNamespace
	}
	return ns
}

func targetKey(namespace, kind, name string) string {
	return namespace + "/" + kind + "/" + name
}
