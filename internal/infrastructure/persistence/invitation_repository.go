package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/parcelreview/backend/internal/domain/review"
	"github.com/parcelreview/backend/internal/infrastructure/persistence/models"
)

// GormInvitationRepository implements review.InvitationRepository using GORM
type GormInvitationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormInvitationRepository creates a new GormInvitationRepository
func NewGormInvitationRepository(db *gorm.DB) *GormInvitationRepository {
	return &GormInvitationRepository{db: db, now: time.Now}
}

var _ review.InvitationRepository = (*GormInvitationRepository)(nil)

// pendingStatuses are the statuses a pipeline commit may move out of
var pendingStatuses = []review.InvitationStatus{
	review.InvitationStatusToDo,
	review.InvitationStatusFailed,
}

// FindCandidateIDs selects TO_DO rows older than the cutoff and FAILED rows
// below the retry ceiling, oldest first.
func (r *GormInvitationRepository) FindCandidateIDs(ctx context.Context, query review.CandidateQuery) ([]uuid.UUID, error) {
	q := r.db.WithContext(ctx).
		Model(&models.ReviewInvitationModel{}).
		Where("(status = ? AND created_at <= ?) OR (status = ? AND retries_count < ?)",
			review.InvitationStatusToDo, query.TodoCreatedBefore,
			review.InvitationStatusFailed, query.MaxRetries).
		Order("created_at ASC, id ASC")
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}

	var ids []uuid.UUID
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("select candidate invitations: %w", err)
	}
	return ids, nil
}

// FindByIDs loads invitations by id. Missing ids are skipped. Rows with an
// invalid entity reference are returned as stored and rejected later.
func (r *GormInvitationRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*review.Invitation, error) {
	if len(ids) == 0 {
		return []*review.Invitation{}, nil
	}

	var rows []models.ReviewInvitationModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load invitations: %w", err)
	}

	invitations := make([]*review.Invitation, 0, len(rows))
	for i := range rows {
		invitations = append(invitations, rows[i].ToDomain())
	}
	return invitations, nil
}

// FindByID loads one invitation
func (r *GormInvitationRepository) FindByID(ctx context.Context, id uuid.UUID) (*review.Invitation, error) {
	invitations, err := r.FindByIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(invitations) == 0 {
		return nil, review.ErrInvitationNotFound
	}
	return invitations[0], nil
}

// Create inserts a new invitation
func (r *GormInvitationRepository) Create(ctx context.Context, inv *review.Invitation) error {
	return r.db.WithContext(ctx).Create(models.InvitationModelFromDomain(inv)).Error
}

// MarkDone moves every still-pending id to DONE in one statement
func (r *GormInvitationRepository) MarkDone(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.ReviewInvitationModel{}).
		Where("id IN ? AND status IN ?", ids, pendingStatuses).
		Updates(map[string]any{
			"status":        review.InvitationStatusDone,
			"reason":        nil,
			"error_payload": nil,
			"updated_at":    r.now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("mark %d invitations done: %w", len(ids), err)
	}
	return nil
}

// MarkCancelled moves one pending invitation to CANCELLED
func (r *GormInvitationRepository) MarkCancelled(ctx context.Context, id uuid.UUID, reason review.Reason) error {
	if !reason.IsCancellation() {
		return review.ErrInvalidReason
	}
	return r.updatePending(ctx, id, map[string]any{
		"status":     review.InvitationStatusCancelled,
		"reason":     string(reason),
		"updated_at": r.now().UTC(),
	})
}

// MarkFailed moves one pending invitation to FAILED and consumes a retry
func (r *GormInvitationRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason review.Reason, payload json.RawMessage) error {
	if !reason.IsFailure() {
		return review.ErrInvalidReason
	}
	var stored any
	if len(payload) > 0 {
		stored = string(payload)
	}
	return r.updatePending(ctx, id, map[string]any{
		"status":        review.InvitationStatusFailed,
		"reason":        string(reason),
		"error_payload": stored,
		"retries_count": gorm.Expr("retries_count + 1"),
		"updated_at":    r.now().UTC(),
	})
}

// updatePending returns ErrInvitationNotFound when the row is absent or already terminal
func (r *GormInvitationRepository) updatePending(ctx context.Context, id uuid.UUID, values map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.ReviewInvitationModel{}).
		Where("id = ? AND status IN ?", id, pendingStatuses).
		Updates(values)
	if result.Error != nil {
		return fmt.Errorf("update invitation %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return review.ErrInvitationNotFound
	}
	return nil
}
