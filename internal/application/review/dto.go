package review

import (
	"time"

	"github.com/parcelreview/backend/internal/domain/review"
)

// ProcessReport summarizes one pipeline run. Outcome counts only include
// transitions that were committed.
type ProcessReport struct {
	RunID             string                `json:"run_id"`
	Limit             int                   `json:"limit"`
	Selected          int                   `json:"selected"`
	Batches           int                   `json:"batches"`
	Done              int                   `json:"done"`
	Cancelled         int                   `json:"cancelled"`
	CancelledByReason map[review.Reason]int `json:"cancelled_by_reason"`
	Failed            int                   `json:"failed"`
	FailedByReason    map[review.Reason]int `json:"failed_by_reason"`
	CommitErrors      int                   `json:"commit_errors"`
	StartedAt         time.Time             `json:"started_at"`
	FinishedAt        time.Time             `json:"finished_at"`
	DurationMs        int64                 `json:"duration_ms"`
}

func newProcessReport(runID string, limit int, startedAt time.Time) *ProcessReport {
	return &ProcessReport{
		RunID:             runID,
		Limit:             limit,
		CancelledByReason: make(map[review.Reason]int),
		FailedByReason:    make(map[review.Reason]int),
		StartedAt:         startedAt,
	}
}

func (r *ProcessReport) finish(at time.Time) {
	r.FinishedAt = at
	r.DurationMs = at.Sub(r.StartedAt).Milliseconds()
}

// Processed returns the number of committed transitions
func (r *ProcessReport) Processed() int {
	return r.Done + r.Cancelled + r.Failed
}

// failurePayload is the diagnostic stored on FAILED invitations
type failurePayload struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
}
