package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/parcelreview/backend/internal/domain/review"
)

// DefaultBatchSize is used when no positive batch size is configured
const DefaultBatchSize = 50

// BulkIterator walks the candidate invitations in fixed-size batches.
// The candidate id list is selected once, on the first call to Next, and
// capped at the global limit. The iterator is forward-only.
type BulkIterator struct {
	repo      review.InvitationRepository
	policy    review.CandidatePolicy
	batchSize int
	limit     int
	now       func() time.Time

	ids     []uuid.UUID
	offset  int
	fetched bool
}

// NewBulkIterator creates an iterator. limit <= 0 selects every candidate.
func NewBulkIterator(repo review.InvitationRepository, policy review.CandidatePolicy, batchSize, limit int, now func() time.Time) *BulkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if limit < 0 {
		limit = 0
	}
	if now == nil {
		now = time.Now
	}
	return &BulkIterator{
		repo:      repo,
		policy:    policy,
		batchSize: batchSize,
		limit:     limit,
		now:       now,
	}
}

// Next returns the next hydrated batch. ok is false once the id list is exhausted.
func (it *BulkIterator) Next(ctx context.Context) ([]*review.Invitation, bool, error) {
	if !it.fetched {
		ids, err := it.repo.FindCandidateIDs(ctx, it.policy.Query(it.now(), it.limit))
		if err != nil {
			return nil, false, fmt.Errorf("failed to select candidate invitations: %w", err)
		}
		if it.limit > 0 && len(ids) > it.limit {
			ids = ids[:it.limit]
		}
		it.ids = ids
		it.fetched = true
	}

	if it.offset >= len(it.ids) {
		return nil, false, nil
	}

	end := min(it.offset+it.batchSize, len(it.ids))
	window := it.ids[it.offset:end]
	it.offset = end

	invitations, err := it.repo.FindByIDs(ctx, window)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load invitation batch: %w", err)
	}

	return orderByIDs(invitations, window), true, nil
}

// Total returns the number of selected candidates, 0 before the first Next
func (it *BulkIterator) Total() int {
	return len(it.ids)
}

// orderByIDs restores the id order of the window. Rows that disappeared
// between selection and hydration are skipped.
func orderByIDs(invitations []*review.Invitation, ids []uuid.UUID) []*review.Invitation {
	byID := make(map[uuid.UUID]*review.Invitation, len(invitations))
	for _, inv := range invitations {
		byID[inv.ID] = inv
	}
	ordered := make([]*review.Invitation, 0, len(ids))
	for _, id := range ids {
		if inv, ok := byID[id]; ok {
			ordered = append(ordered, inv)
		}
	}
	return ordered
}
