package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parcelreview/backend/internal/domain/review"
	"github.com/parcelreview/backend/internal/infrastructure/logger"
	"github.com/parcelreview/backend/internal/infrastructure/telemetry"
)

// Pipeline outcome labels
const (
	OutcomeDone      = "done"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// PipelineMetrics receives pipeline measurements
type PipelineMetrics interface {
	RecordOutcome(ctx context.Context, outcome string, reason review.Reason, count int)
	RecordCommitError(ctx context.Context, outcome string)
	RecordBatchDuration(ctx context.Context, d time.Duration, size int)
}

type noopMetrics struct{}

func (noopMetrics) RecordOutcome(context.Context, string, review.Reason, int) {}
func (noopMetrics) RecordCommitError(context.Context, string)                 {}
func (noopMetrics) RecordBatchDuration(context.Context, time.Duration, int)   {}

// statusCoder is implemented by delivery errors carrying an HTTP response
type statusCoder interface {
	HTTPStatusCode() int
	ResponseBody() string
}

// OrchestratorConfig holds the pipeline settings
type OrchestratorConfig struct {
	Policy    review.CandidatePolicy
	BatchSize int
}

// PipelineOrchestrator runs compose, evaluate, send and commit over each batch
type PipelineOrchestrator struct {
	repo      review.InvitationRepository
	composer  *ContextComposer
	evaluator *CancellationEvaluator
	sender    *SendEngine
	config    OrchestratorConfig
	metrics   PipelineMetrics
	now       func() time.Time
	logger    *zap.Logger
}

// OrchestratorOption configures a PipelineOrchestrator
type OrchestratorOption func(*PipelineOrchestrator)

// WithMetrics sets the metrics sink
func WithMetrics(m PipelineMetrics) OrchestratorOption {
	return func(o *PipelineOrchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *PipelineOrchestrator) {
		o.now = now
	}
}

// NewPipelineOrchestrator creates a new PipelineOrchestrator
func NewPipelineOrchestrator(
	repo review.InvitationRepository,
	composer *ContextComposer,
	evaluator *CancellationEvaluator,
	sender *SendEngine,
	config OrchestratorConfig,
	log *zap.Logger,
	opts ...OrchestratorOption,
) *PipelineOrchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	o := &PipelineOrchestrator{
		repo:      repo,
		composer:  composer,
		evaluator: evaluator,
		sender:    sender,
		config:    config,
		metrics:   noopMetrics{},
		now:       time.Now,
		logger:    log.Named("review.pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process runs the pipeline over at most limit candidates (0 means all).
// Batches run strictly one after the other. A failed candidate or batch
// query stops the run and is returned together with the partial report.
// Cancelling ctx stops the run between batches only: a started batch is
// always sent and committed in full.
func (o *PipelineOrchestrator) Process(ctx context.Context, limit int) (*ProcessReport, error) {
	if limit < 0 {
		return nil, review.ErrInvalidProcessLimit
	}

	runID := uuid.NewString()
	ctx, _ = logger.WithRunID(ctx, o.logger, runID)
	ctx, span := telemetry.StartServiceSpan(ctx, "review_pipeline", "process",
		telemetry.WithAttribute(telemetry.SpanAttrRunID, runID),
		telemetry.WithAttribute(telemetry.SpanAttrLimit, limit),
	)
	defer span.End()

	report := newProcessReport(runID, limit, o.now())
	iterator := NewBulkIterator(o.repo, o.config.Policy, o.config.BatchSize, limit, o.now)

	var runErr error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(telemetry.OperationProcessInvitations, nil), func(ctx context.Context) {
		for {
			if err := ctx.Err(); err != nil {
				runErr = fmt.Errorf("run interrupted after %d batches: %w", report.Batches, err)
				return
			}
			batch, ok, err := iterator.Next(ctx)
			if err != nil {
				runErr = err
				return
			}
			if !ok {
				return
			}
			report.Selected = iterator.Total()
			report.Batches++
			// an accepted invitation must reach its DONE commit
			o.processBatch(context.WithoutCancel(ctx), report.Batches, batch, report)
		}
	})

	report.finish(o.now())
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDone, report.Done,
		telemetry.SpanAttrCancelled, report.Cancelled,
		telemetry.SpanAttrFailed, report.Failed,
	)

	if runErr != nil {
		telemetry.RecordError(span, runErr)
		logger.L(ctx).Error("Review invitation run aborted",
			zap.Int("batches", report.Batches),
			zap.Error(runErr),
		)
		return report, runErr
	}

	logger.L(ctx).Info("Review invitation run completed",
		zap.Int("selected", report.Selected),
		zap.Int("batches", report.Batches),
		zap.Int("done", report.Done),
		zap.Int("cancelled", report.Cancelled),
		zap.Int("failed", report.Failed),
		zap.Int("commit_errors", report.CommitErrors),
		zap.Int64("duration_ms", report.DurationMs),
	)
	return report, nil
}

// processBatch is a strict barrier sequence: no transition is committed
// before every item of the batch has been decided.
func (o *PipelineOrchestrator) processBatch(ctx context.Context, number int, batch []*review.Invitation, report *ProcessReport) {
	start := o.now()
	ctx, span := telemetry.StartServiceSpan(ctx, "review_pipeline", "batch",
		telemetry.WithAttribute(telemetry.SpanAttrBatchNumber, number),
		telemetry.WithAttribute(telemetry.SpanAttrBatchSize, len(batch)),
	)
	defer span.End()

	composed := o.composer.ComposeMany(ctx, batch)
	evaluation := o.evaluator.ComputeMany(composed.Succeeded)
	sent := o.sender.SendMany(ctx, evaluation.Confirmed)

	o.commit(ctx, composed, evaluation, sent, report)

	elapsed := o.now().Sub(start)
	o.metrics.RecordBatchDuration(ctx, elapsed, len(batch))
	logger.L(ctx).Debug("Review invitation batch processed",
		zap.Int("batch", number),
		zap.Int("size", len(batch)),
		zap.Int("composition_failures", len(composed.Failed)),
		zap.Int("cancelled", len(evaluation.Cancelled)),
		zap.Int("sent", len(sent.Succeeded)),
		zap.Int("send_failures", len(sent.Failed)),
		zap.Duration("elapsed", elapsed),
	)
}

// commit applies the decided transitions. Every call is independent so one
// failing write never blocks the others.
func (o *PipelineOrchestrator) commit(ctx context.Context, composed ComposeOutcome, evaluation Evaluation, sent SendOutcome, report *ProcessReport) {
	if len(sent.Succeeded) > 0 {
		ids := make([]uuid.UUID, 0, len(sent.Succeeded))
		for _, r := range sent.Succeeded {
			ids = append(ids, r.Context.Invitation.ID)
		}
		if err := o.repo.MarkDone(ctx, ids); err != nil {
			o.commitFailed(ctx, report, OutcomeDone, err, zap.Int("count", len(ids)))
		} else {
			report.Done += len(ids)
			o.metrics.RecordOutcome(ctx, OutcomeDone, "", len(ids))
		}
	}

	for _, r := range evaluation.Cancelled {
		id := r.Context.Invitation.ID
		if err := o.repo.MarkCancelled(ctx, id, r.Reason); err != nil {
			o.commitFailed(ctx, report, OutcomeCancelled, err, zap.String("invitation_id", id.String()))
			continue
		}
		report.Cancelled++
		report.CancelledByReason[r.Reason]++
		o.metrics.RecordOutcome(ctx, OutcomeCancelled, r.Reason, 1)
	}

	for _, f := range composed.Failed {
		o.markFailed(ctx, report, f.Invitation.ID, review.ReasonContextComputationError, f.Err)
	}
	for _, r := range sent.Failed {
		o.markFailed(ctx, report, r.Context.Invitation.ID, review.ReasonSendError, r.Err)
	}
}

func (o *PipelineOrchestrator) markFailed(ctx context.Context, report *ProcessReport, id uuid.UUID, reason review.Reason, cause error) {
	if err := o.repo.MarkFailed(ctx, id, reason, buildFailurePayload(cause)); err != nil {
		o.commitFailed(ctx, report, OutcomeFailed, err, zap.String("invitation_id", id.String()))
		return
	}
	report.Failed++
	report.FailedByReason[reason]++
	o.metrics.RecordOutcome(ctx, OutcomeFailed, reason, 1)
}

func (o *PipelineOrchestrator) commitFailed(ctx context.Context, report *ProcessReport, outcome string, err error, fields ...zap.Field) {
	report.CommitErrors++
	o.metrics.RecordCommitError(ctx, outcome)
	fields = append(fields, zap.String("outcome", outcome), zap.Error(err))
	logger.L(ctx).Error("Failed to commit invitation transition", fields...)
}

func buildFailurePayload(cause error) json.RawMessage {
	payload := failurePayload{Message: "unknown error"}
	if cause != nil {
		payload.Message = cause.Error()
	}
	var sc statusCoder
	if errors.As(cause, &sc) {
		payload.StatusCode = sc.HTTPStatusCode()
		payload.Body = sc.ResponseBody()
	}
	// a struct of strings and ints always marshals
	raw, _ := json.Marshal(payload)
	return raw
}
