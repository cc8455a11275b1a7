// Package classifier decides which detector family an artifact belongs to.
package classifier

import (
	"regexp"
	"strings"

	"github.com/helmcode/healctl/pkg/model"
)

var (
	kubernetesKind = regexp.MustCompile(`(?m)^kind:[ \t]*["']?[A-Za-z]`)
	hclBlock       = regexp.MustCompile(`(?m)^[ \t]*(resource|data)[ \t]+"[^"\n]+"[ \t]+"[^"\n]+"[ \t]*\{`)
	workflowJobs   = regexp.MustCompile(`(?m)^jobs:[ \t]*(#.*)?$`)

	logTimestamp = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}|^(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec) +\d{1,2} \d{2}:\d{2}:\d{2}|^[IWEF]\d{4} \d{2}:\d{2}:\d{2}`)
	logLevel     = regexp.MustCompile(`\b(ERROR|WARN|WARNING|INFO|DEBUG|FATAL|CRITICAL|TRACE|PANIC)\b|(?i:\[(error|warn|warning|info|debug|fatal)\]|level[=:]\s*"?(error|warn|warning|info|debug|fatal))`)
)

// Signal names the evidence that decided an inferred category.
type Signal string

const (
	SignalHint           Signal = "hint"
	SignalKubernetesKind Signal = "top-level kind key"
	SignalResourceBlock  Signal = "resource block"
	SignalWorkflowJobs   Signal = "top-level jobs key"
	SignalLogLines       Signal = "timestamped or leveled lines"
)

// Classify returns the category to scan content as. A non-empty hint is used
// verbatim; otherwise the category is inferred from structure.
func Classify(content, hint string) (model.Category, error) {
	cat, _, err := Explain(content, hint)
	return cat, err
}

// Explain is Classify that also reports which signal matched.
func Explain(content, hint string) (model.Category, Signal, error) {
	cat, err := model.ParseCategory(hint)
	if err != nil {
		return "", "", err
	}
	if cat != "" {
		return cat, SignalHint, nil
	}

	switch {
	case kubernetesKind.MatchString(content):
		return model.CategoryKubernetes, SignalKubernetesKind, nil
	case hclBlock.MatchString(content):
		return model.CategoryInfraAsCode, SignalResourceBlock, nil
	case workflowJobs.MatchString(content):
		return model.CategoryCIWorkflow, SignalWorkflowJobs, nil
	case looksLikeLog(content):
		return model.CategoryLog, SignalLogLines, nil
	}
	return "", "", model.NewScanError(model.ErrCodeUnclassifiableArtifact,
		"no kubernetes, infra-as-code, ci-workflow or log signal found; pass a category explicitly")
}

// looksLikeLog requires at least half of the non-blank lines to carry a
// timestamp or a level token.
func looksLikeLog(content string) bool {
	var total, matched int
	for line := range strings.Lines(content) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		total++
		if logTimestamp.MatchString(line) || logLevel.MatchString(line) {
			matched++
		}
	}
	return total > 0 && matched*2 >= total
}
