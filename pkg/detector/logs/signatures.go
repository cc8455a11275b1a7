package logs

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/helmcode/healctl/pkg/catalog"
	"github.com/helmcode/healctl/pkg/model"
)

const highErrorRateRule = catalog.LogHighErrorRate

// Signature is a known failure pattern. A line counts once per signature.
type Signature struct {
	RuleID  string
	Name    string
	Title   string
	Pattern *regexp.Regexp
}

// Signatures in evaluation order.
var Signatures = []Signature{
	{
		RuleID:  catalog.LogOutOfMemory,
		Name:    "out-of-memory",
		Title:   "Memory exhaustion",
		Pattern: regexp.MustCompile(`(?i)out of memory|\boomkilled\b|\boom\b|memory limit exceeded|cannot allocate memory`),
	},
	{
		RuleID:  catalog.LogConnectionRefused,
		Name:    "connection-refused",
		Title:   "Connection refused",
		Pattern: regexp.MustCompile(`(?i)connection refused|\beconnrefused\b`),
	},
	{
		RuleID:  catalog.LogTimeout,
		Name:    "timeout",
		Title:   "Operation timeout",
		Pattern: regexp.MustCompile(`(?i)\btimeout\b|\btimed out\b|\betimedout\b|deadline exceeded`),
	},
	{
		RuleID:  catalog.LogPermissionDenied,
		Name:    "permission-denied",
		Title:   "Permission denied",
		Pattern: regexp.MustCompile(`(?i)permission denied|\beacces\b|\bforbidden\b`),
	},
	{
		RuleID:  catalog.LogNotFound,
		Name:    "not-found",
		Title:   "Resource not found",
		Pattern: regexp.MustCompile(`(?i)not found|no such file or directory|\benoent\b`),
	},
	{
		RuleID:  catalog.LogCrashLoop,
		Name:    "crash-loop",
		Title:   "Container crash loop",
		Pattern: regexp.MustCompile(`(?i)crashloopbackoff|back-off restarting failed container|pod crash`),
	},
	{
		RuleID:  catalog.LogImagePullFailure,
		Name:    "image-pull-failure",
		Title:   "Image pull failure",
		Pattern: regexp.MustCompile(`(?i)imagepullbackoff|errimagepull|failed to pull image|image pull`),
	},
	{
		RuleID:  catalog.LogDiskFull,
		Name:    "disk-full",
		Title:   "Storage exhausted",
		Pattern: regexp.MustCompile(`(?i)no space left on device|disk full|\benospc\b`),
	},
	{
		RuleID:  catalog.LogDatabaseError,
		Name:    "database-error",
		Title:   "Database error",
		Pattern: regexp.MustCompile(`(?i)connection pool (is )?exhausted|too many (database )?connections|deadlock detected|\bsqlstate\b|database is locked|could not connect to (the )?database`),
	},
	{
		RuleID:  catalog.LogDependencyError,
		Name:    "dependency-error",
		Title:   "Missing dependency",
		Pattern: regexp.MustCompile(`(?i)\bimporterror\b|\bmodulenotfounderror\b|no module named|cannot find module|cannot import|unresolved dependenc(y|ies)`),
	},
	{
		RuleID:  catalog.LogDeploymentFailed,
		Name:    "deployment-failed",
		Title:   "Deployment failed",
		Pattern: regexp.MustCompile(`(?i)deployment failed|failed to deploy|release failed|upgrade failed|progressdeadlineexceeded|rolling back (to )?revision`),
	},
}

// Match counts the lines matching the signature and returns the first one.
func (s Signature) Match(log *Log) (count int, first Line) {
	for _, l := range log.Lines {
		if !s.Pattern.MatchString(l.Text) {
			continue
		}
		if count == 0 {
			first = l
		}
		count++
	}
	return count, first
}

func (s Signature) check(log *Log) []model.Issue {
	count, first := s.Match(log)
	if count == 0 {
		return nil
	}
	return []model.Issue{{
		Title:       s.Title,
		Description: fmt.Sprintf("Found %d line(s) matching %s; first on line %d: %s", count, s.Name, first.Number, excerpt(first.Text)),
		ResourceRef: lineRef(first.Number),
		Facts: map[string]string{
			"signature":  s.Name,
			"count":      strconv.Itoa(count),
			"first_line": strconv.Itoa(first.Number),
			"excerpt":    excerpt(first.Text),
		},
	}}
}

// highErrorRate raises one issue per signature whose count exceeds the
// threshold. It does not depend on the per-signature checks having run.
func highErrorRate(threshold int) func(*Log) []model.Issue {
	return func(log *Log) []model.Issue {
		var issues []model.Issue
		for _, s := range Signatures {
			count, first := s.Match(log)
			if count <= threshold {
				continue
			}
			issues = append(issues, model.Issue{
				Title:       fmt.Sprintf("High error rate: %s", s.Name),
				Description: fmt.Sprintf("%s matched %d lines, above the threshold of %d.", s.Name, count, threshold),
				ResourceRef: lineRef(first.Number),
				Facts: map[string]string{
					"signature":  s.Name,
					"count":      strconv.Itoa(count),
					"first_line": strconv.Itoa(first.Number),
					"threshold":  strconv.Itoa(threshold),
				},
			})
		}
		return issues
	}
}
