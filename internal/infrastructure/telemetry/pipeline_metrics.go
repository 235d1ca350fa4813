package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/parcelreview/backend/internal/domain/review"
)

// PipelineMetrics records the outcomes of review invitation runs.
type PipelineMetrics struct {
	processedTotal *Counter
	commitErrors   *Counter
	batchDuration  *Histogram
}

// NewPipelineMetrics registers the pipeline instruments on meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	processed, err := NewCounter(meter,
		"review_invitations_processed_total",
		"Review invitations moved to a terminal or failed status",
		"{invitation}",
	)
	if err != nil {
		return nil, err
	}

	commitErrors, err := NewCounter(meter,
		"review_invitations_commit_errors_total",
		"Status updates that could not be persisted",
		"{error}",
	)
	if err != nil {
		return nil, err
	}

	batchDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "review_invitation_batch_duration_seconds",
		Description: "Time to compose, evaluate, send and commit one batch",
		Unit:        "s",
		Boundaries:  BatchDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		processedTotal: processed,
		commitErrors:   commitErrors,
		batchDuration:  batchDuration,
	}, nil
}

// RecordOutcome counts committed transitions. reason is empty for DONE.
func (m *PipelineMetrics) RecordOutcome(ctx context.Context, outcome string, reason review.Reason, count int) {
	attrs := []attribute.KeyValue{AttrOutcome.String(outcome)}
	if reason != "" {
		attrs = append(attrs, AttrReason.String(string(reason)))
	}
	m.processedTotal.Add(ctx, int64(count), attrs...)
}

// RecordCommitError counts a failed status update.
func (m *PipelineMetrics) RecordCommitError(ctx context.Context, outcome string) {
	m.commitErrors.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordBatchDuration records how long one batch took.
func (m *PipelineMetrics) RecordBatchDuration(ctx context.Context, d time.Duration, size int) {
	m.batchDuration.RecordDuration(ctx, d, AttrBatchSize.Int(size))
}
