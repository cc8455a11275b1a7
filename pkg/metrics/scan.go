// Package metrics records scan activity as OpenTelemetry instruments.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/helmcode/healctl/pkg/model"
)

const meterName = "github.com/helmcode/healctl"

// Metrics holds the scan instruments. A nil *Metrics records nothing.
type Metrics struct {
	Scans    metric.Int64Counter     // healctl.scans
	Issues   metric.Int64Counter     // healctl.issues
	Plans    metric.Int64Counter     // healctl.plans
	Errors   metric.Int64Counter     // healctl.scan.errors
	Duration metric.Float64Histogram // healctl.scan.duration
}

// New creates the instruments from provider, or from the global provider
// when provider is nil. Instrument creation failures are logged and leave a
// no-op instrument in place.
func New(provider metric.MeterProvider) *Metrics {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)
	m := &Metrics{}

	var err error
	m.Scans, err = meter.Int64Counter("healctl.scans",
		metric.WithDescription("Completed scan runs"),
	)
	if err != nil {
		slog.Error("failed to create healctl.scans metric", "error", err)
	}

	m.Issues, err = meter.Int64Counter("healctl.issues",
		metric.WithDescription("Detected issues by category and severity"),
	)
	if err != nil {
		slog.Error("failed to create healctl.issues metric", "error", err)
	}

	m.Plans, err = meter.Int64Counter("healctl.plans",
		metric.WithDescription("Remediation plans by risk tier"),
	)
	if err != nil {
		slog.Error("failed to create healctl.plans metric", "error", err)
	}

	m.Errors, err = meter.Int64Counter("healctl.scan.errors",
		metric.WithDescription("Scans aborted by an error, by error code"),
	)
	if err != nil {
		slog.Error("failed to create healctl.scan.errors metric", "error", err)
	}

	m.Duration, err = meter.Float64Histogram("healctl.scan.duration",
		metric.WithDescription("Duration of a scan run in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		slog.Error("failed to create healctl.scan.duration metric", "error", err)
	}

	return m
}

// RecordScan counts a successful scan and everything it detected. Issues are
// counted before filtering.
func (m *Metrics) RecordScan(ctx context.Context, issues []model.Issue, plans []model.Plan, elapsed time.Duration) {
	if m == nil {
		return
	}
	if m.Scans != nil {
		m.Scans.Add(ctx, 1)
	}
	if m.Duration != nil {
		m.Duration.Record(ctx, elapsed.Seconds())
	}
	if m.Issues != nil {
		for _, issue := range issues {
			m.Issues.Add(ctx, 1, metric.WithAttributes(
				attribute.String("category", string(issue.Category)),
				attribute.String("severity", string(issue.Severity)),
			))
		}
	}
	if m.Plans != nil {
		for _, plan := range plans {
			m.Plans.Add(ctx, 1, metric.WithAttributes(
				attribute.String("risk_tier", string(plan.RiskTier)),
			))
		}
	}
}

// RecordError counts an aborted scan under the given error code.
func (m *Metrics) RecordError(ctx context.Context, code string) {
	if m == nil || m.Errors == nil {
		return
	}
	m.Errors.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}
