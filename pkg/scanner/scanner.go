// Package scanner orchestrates classification, detection, severity
// assignment, planning and aggregation over one or more artifacts.
package scanner

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/helmcode/healctl/pkg/catalog"
	"github.com/helmcode/healctl/pkg/classifier"
	"github.com/helmcode/healctl/pkg/detector"
	"github.com/helmcode/healctl/pkg/detector/iac"
	"github.com/helmcode/healctl/pkg/detector/kubernetes"
	"github.com/helmcode/healctl/pkg/detector/logs"
	"github.com/helmcode/healctl/pkg/detector/workflow"
	"github.com/helmcode/healctl/pkg/metrics"
	"github.com/helmcode/healctl/pkg/model"
	"github.com/helmcode/healctl/pkg/planner"
	"github.com/helmcode/healctl/pkg/severity"
)

// Artifact is one input unit. Hint may be empty or "unspecified" to infer
// the category.
type Artifact struct {
	Name    string
	Content string
	Hint    string
}

// Options control what a scan reports. Filters never stop a rule from
// running.
type Options struct {
	Severity   model.Severity
	Categories []model.Category
	AutoFix    bool
}

// Scanner runs scans against a read-only catalog. It holds no per-scan state
// and is safe for concurrent use.
type Scanner struct {
	catalog   *catalog.Catalog
	detectors map[model.Category]detector.Detector
	logConfig logs.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger used for phase tracing.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// WithMetrics records every scan on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithLogConfig tunes the built-in log family.
func WithLogConfig(cfg logs.Config) Option {
	return func(s *Scanner) { s.logConfig = cfg }
}

// WithDetectors replaces the built-in detector for each given category.
func WithDetectors(ds ...detector.Detector) Option {
	return func(s *Scanner) {
		for _, d := range ds {
			s.detectors[d.Category()] = d
		}
	}
}

// New creates a Scanner over cat. Categories without a detector from
// WithDetectors get the built-in family.
func New(cat *catalog.Catalog, opts ...Option) *Scanner {
	s := &Scanner{
		catalog:   cat,
		detectors: make(map[model.Category]detector.Detector, len(model.Categories)),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	builtin := []detector.Detector{
		kubernetes.New(),
		iac.New(),
		workflow.New(),
		logs.New(s.logConfig),
	}
	for _, d := range builtin {
		if _, ok := s.detectors[d.Category()]; !ok {
			s.detectors[d.Category()] = d
		}
	}
	return s
}

// Scan scans a single artifact.
func (s *Scanner) Scan(ctx context.Context, a Artifact, opts Options) (*model.ScanResult, error) {
	return s.ScanAll(ctx, []Artifact{a}, opts)
}

type classified struct {
	Artifact
	category model.Category
}

// ScanAll classifies every artifact, then scans them in category order,
// keeping input order within a category. Any error aborts the whole run and
// no partial result is returned.
func (s *Scanner) ScanAll(ctx context.Context, artifacts []Artifact, opts Options) (*model.ScanResult, error) {
	start := time.Now()
	result, err := s.scanAll(ctx, artifacts, opts)
	if err != nil {
		s.metrics.RecordError(ctx, errorCode(err))
		return nil, err
	}
	s.metrics.RecordScan(ctx, result.detectedIssues, result.plans, time.Since(start))
	return result.ScanResult, nil
}

// run carries the unfiltered output alongside the reported result.
type run struct {
	*model.ScanResult
	detectedIssues []model.Issue
	plans          []model.Plan
}

func (s *Scanner) scanAll(ctx context.Context, artifacts []Artifact, opts Options) (*run, error) {
	filter, err := opts.filter()
	if err != nil {
		return nil, err
	}

	s.trace(ctx, PhaseClassifying, "", "artifacts", len(artifacts))
	items := make([]classified, 0, len(artifacts))
	for _, a := range artifacts {
		cat, signal, err := classifier.Explain(a.Content, a.Hint)
		if err != nil {
			return nil, tag(err, a.Name)
		}
		s.trace(ctx, PhaseClassifying, a.Name, "category", cat, "signal", signal)
		items = append(items, classified{Artifact: a, category: cat})
	}
	slices.SortStableFunc(items, func(a, b classified) int {
		return cmp.Compare(a.category.Order(), b.category.Order())
	})

	var (
		names  = make([]string, 0, len(items))
		issues []model.Issue
	)
	for _, item := range items {
		found, err := s.detect(ctx, item)
		if err != nil {
			return nil, tag(err, item.Name)
		}
		names = append(names, item.Name)
		issues = append(issues, found...)
	}

	var plans []model.Plan
	if opts.AutoFix {
		s.trace(ctx, PhasePlanning, "", "issues", len(issues))
		if plans, err = s.plan(issues); err != nil {
			return nil, err
		}
	}

	s.trace(ctx, PhaseAggregating, "", "issues", len(issues), "plans", len(plans))
	result := &model.ScanResult{
		Artifacts: names,
		Issues:    []model.Issue{},
		Detected:  model.CountIssues(issues),
		Filter:    filter,
	}
	for _, issue := range issues {
		if filter.Match(issue) {
			result.Issues = append(result.Issues, issue)
		}
	}
	for _, p := range plans {
		if filter.Match(p.Issue) {
			result.Plans = append(result.Plans, p)
		}
	}
	if opts.AutoFix && result.Plans == nil {
		result.Plans = []model.Plan{}
	}
	s.trace(ctx, PhaseDone, "", "reported", len(result.Issues))
	return &run{ScanResult: result, detectedIssues: issues, plans: plans}, nil
}

func (s *Scanner) detect(ctx context.Context, item classified) ([]model.Issue, error) {
	d, ok := s.detectors[item.category]
	if !ok {
		return nil, model.NewScanError(model.ErrCodeUnsupportedCategory,
			fmt.Sprintf("no detector registered for category %q", item.category))
	}

	s.trace(ctx, PhaseDetecting, item.Name, "category", item.category)
	found, err := d.Detect(ctx, item.Content)
	if err != nil {
		return nil, err
	}
	for i := range found {
		found[i].Artifact = item.Name
	}

	s.trace(ctx, PhaseClassifyingSeverity, item.Name, "issues", len(found))
	return severity.Classify(s.catalog, found)
}

// plan yields exactly one plan per issue whose rule has a fix template.
func (s *Scanner) plan(issues []model.Issue) ([]model.Plan, error) {
	plans := []model.Plan{}
	for _, issue := range issues {
		tmpl, ok := s.catalog.FixTemplate(issue.RuleID)
		if !ok {
			continue
		}
		rule, _ := s.catalog.Lookup(issue.RuleID)
		p, err := planner.Plan(issue, rule, tmpl)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", issue.Artifact, err)
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (s *Scanner) trace(ctx context.Context, phase Phase, artifact string, args ...any) {
	if artifact != "" {
		args = append([]any{"artifact", artifact}, args...)
	}
	s.logger.DebugContext(ctx, "scan phase "+phase.String(), args...)
}

func (o Options) filter() (model.Filter, error) {
	if o.Severity != "" && o.Severity.Rank() > model.SeverityInfo.Rank() {
		return model.Filter{}, fmt.Errorf("unsupported severity filter %q", o.Severity)
	}
	for _, c := range o.Categories {
		if _, err := model.ParseCategory(string(c)); err != nil || c == "" {
			return model.Filter{}, model.NewScanError(model.ErrCodeUnsupportedCategory,
				fmt.Sprintf("unsupported category filter %q", c))
		}
	}
	return model.Filter{Severity: o.Severity, Categories: o.Categories}, nil
}

func tag(err error, artifact string) error {
	var scanErr *model.ScanError
	if errors.As(err, &scanErr) {
		if artifact == "" {
			return scanErr
		}
		return scanErr.WithArtifact(artifact)
	}
	if artifact == "" {
		return err
	}
	return fmt.Errorf("%s: %w", artifact, err)
}

func errorCode(err error) string {
	var scanErr *model.ScanError
	if errors.As(err, &scanErr) {
		return scanErr.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "CANCELED"
	}
	return "INTERNAL"
}
