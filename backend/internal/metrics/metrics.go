package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	marksSubmitted   metric.Int64Counter
	submitConflicts  metric.Int64Counter
	submitRejected   metric.Int64Counter
	forbiddenWrites  metric.Int64Counter
	analysisReads    metric.Int64Counter
	analysisDuration metric.Float64Histogram
	logins           metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.marksSubmitted, err = meter.Int64Counter(
		"marksboard.marks.submitted",
		metric.WithDescription("Total number of mark submissions stored"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}

	m.submitConflicts, err = meter.Int64Counter(
		"marksboard.marks.conflicts",
		metric.WithDescription("Submissions that lost a first-insert race"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}

	m.submitRejected, err = meter.Int64Counter(
		"marksboard.marks.rejected",
		metric.WithDescription("Submissions rejected by validation"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}

	m.forbiddenWrites, err = meter.Int64Counter(
		"marksboard.marks.forbidden",
		metric.WithDescription("Requests naming a roll number other than the session's"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.analysisReads, err = meter.Int64Counter(
		"marksboard.analysis.reads",
		metric.WithDescription("Total number of analysis snapshots computed"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, err
	}

	m.analysisDuration, err = meter.Float64Histogram(
		"marksboard.analysis.duration",
		metric.WithDescription("Time spent computing an analysis snapshot"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.logins, err = meter.Int64Counter(
		"marksboard.auth.logins",
		metric.WithDescription("Single-sign-on ticket exchanges by outcome"),
		metric.WithUnit("{login}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordSubmission(ctx context.Context, subject string) {
	if m != nil && m.marksSubmitted != nil {
		m.marksSubmitted.Add(ctx, 1, metric.WithAttributes(attribute.String("subject", subject)))
	}
}

func (m *Metrics) RecordConflict(ctx context.Context) {
	if m != nil && m.submitConflicts != nil {
		m.submitConflicts.Add(ctx, 1)
	}
}

func (m *Metrics) RecordRejected(ctx context.Context) {
	if m != nil && m.submitRejected != nil {
		m.submitRejected.Add(ctx, 1)
	}
}

func (m *Metrics) RecordForbidden(ctx context.Context) {
	if m != nil && m.forbiddenWrites != nil {
		m.forbiddenWrites.Add(ctx, 1)
	}
}

func (m *Metrics) RecordAnalysis(ctx context.Context, seconds float64, ok bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("success", ok))
	if m.analysisReads != nil {
		m.analysisReads.Add(ctx, 1, attrs)
	}
	if m.analysisDuration != nil {
		m.analysisDuration.Record(ctx, seconds, attrs)
	}
}

func (m *Metrics) RecordLogin(ctx context.Context, ok bool) {
	if m != nil && m.logins != nil {
		m.logins.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", ok)))
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{}
}
