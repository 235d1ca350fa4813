package review

import (
	"time"

	"github.com/google/uuid"
)

// CandidatePolicy decides which invitations are due for processing
type CandidatePolicy struct {
	// TodoDelay is the minimum age of a TO_DO invitation before it is eligible
	TodoDelay time.Duration
	// MaxRetries is the ceiling on FAILED invitations re-entering the pool
	MaxRetries int
}

// TodoCutoff returns the latest creation time a TO_DO invitation may have
func (p CandidatePolicy) TodoCutoff(now time.Time) time.Time {
	return now.Add(-p.TodoDelay)
}

// Qualifies reports whether the invitation matches the selection predicate
func (p CandidatePolicy) Qualifies(inv *Invitation, now time.Time) bool {
	if inv == nil {
		return false
	}
	switch inv.Status {
	case InvitationStatusToDo:
		return !inv.CreatedAt.After(p.TodoCutoff(now))
	case InvitationStatusFailed:
		return inv.RetriesCount < p.MaxRetries
	default:
		return false
	}
}

// CandidateQuery is the repository form of the selection predicate
type CandidateQuery struct {
	TodoCreatedBefore time.Time
	MaxRetries        int
	// Limit caps the number of ids returned, 0 means unbounded
	Limit int
}

// Query builds the repository query for the given instant
func (p CandidatePolicy) Query(now time.Time, limit int) CandidateQuery {
	return CandidateQuery{
		TodoCreatedBefore: p.TodoCutoff(now),
		MaxRetries:        p.MaxRetries,
		Limit:             limit,
	}
}

// InvitationIDs extracts the ids of the given invitations
func InvitationIDs(invitations []*Invitation) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(invitations))
	for _, inv := range invitations {
		ids = append(ids, inv.ID)
	}
	return ids
}
