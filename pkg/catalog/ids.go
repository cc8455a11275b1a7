package catalog

// Kubernetes rules.
const (
	K8sMissingResourceLimits   = "k8s.missing-resource-limits"
	K8sMissingResourceRequests = "k8s.missing-resource-requests"
	K8sMissingLivenessProbe    = "k8s.missing-liveness-probe"
	K8sMissingReadinessProbe   = "k8s.missing-readiness-probe"
	K8sMissingAutoscaling      = "k8s.missing-autoscaling"
	K8sMissingNetworkPolicy    = "k8s.missing-network-policy"
	K8sOverlyBroadRBAC         = "k8s.overly-broad-rbac"
	K8sMissingRBACBinding      = "k8s.missing-rbac-binding"
	K8sPrivilegedContainer     = "k8s.privileged-container"
	K8sRunAsRoot               = "k8s.run-as-root"
	K8sPrivilegeEscalation     = "k8s.privilege-escalation"
	K8sDangerousCapabilities   = "k8s.dangerous-capabilities"
	K8sDefaultNamespace        = "k8s.default-namespace"
)

// Infra-as-code rules.
const (
	IaCUndeclaredVariable    = "iac.undeclared-variable"
	IaCHardcodedSecret       = "iac.hardcoded-secret"
	IaCMissingStateLocking   = "iac.missing-state-locking"
	IaCMissingProviderRegion = "iac.missing-provider-region"
	IaCUnpinnedProvider      = "iac.unpinned-provider"
	IaCMissingTags           = "iac.missing-tags"
	IaCEmptyResource         = "iac.empty-resource"
)

// CI workflow rules.
const (
	CIMissingPermissions  = "ci.missing-permissions"
	CIBroadPermissions    = "ci.broad-permissions"
	CIHardcodedSecret     = "ci.hardcoded-secret"
	CIUnpinnedAction      = "ci.unpinned-action"
	CIMissingJobTimeout   = "ci.missing-job-timeout"
	CIUnrestrictedTrigger = "ci.unrestricted-trigger"
)

// Log rules.
const (
	LogOutOfMemory       = "log.out-of-memory"
	LogConnectionRefused = "log.connection-refused"
	LogTimeout           = "log.timeout"
	LogPermissionDenied  = "log.permission-denied"
	LogNotFound          = "log.not-found"
	LogCrashLoop         = "log.crash-loop"
	LogImagePullFailure  = "log.image-pull-failure"
	LogDiskFull          = "log.disk-full"
	LogDatabaseError     = "log.database-error"
	LogDependencyError   = "log.dependency-error"
	LogDeploymentFailed  = "log.deployment-failed"
	LogHighErrorRate     = "log.high-error-rate"
)
