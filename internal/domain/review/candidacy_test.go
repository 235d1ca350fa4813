package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCandidatePolicy_Qualifies(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	policy := CandidatePolicy{TodoDelay: 24 * time.Hour, MaxRetries: 3}

	tests := []struct {
		name      string
		status    InvitationStatus
		createdAt time.Time
		retries   int
		want      bool
	}{
		{"old TO_DO qualifies", InvitationStatusToDo, now.Add(-48 * time.Hour), 0, true},
		{"TO_DO exactly at cutoff qualifies", InvitationStatusToDo, now.Add(-24 * time.Hour), 0, true},
		{"recent TO_DO is too early", InvitationStatusToDo, now.Add(-time.Hour), 0, false},
		{"FAILED under ceiling qualifies", InvitationStatusFailed, now, 2, true},
		{"FAILED at ceiling is excluded", InvitationStatusFailed, now.Add(-48 * time.Hour), 3, false},
		{"FAILED above ceiling is excluded", InvitationStatusFailed, now, 7, false},
		{"DONE never qualifies", InvitationStatusDone, now.Add(-48 * time.Hour), 0, false},
		{"CANCELLED never qualifies", InvitationStatusCancelled, now.Add(-48 * time.Hour), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invitation{Status: tt.status, RetriesCount: tt.retries}
			inv.CreatedAt = tt.createdAt
			assert.Equal(t, tt.want, policy.Qualifies(inv, now))
		})
	}

	assert.False(t, policy.Qualifies(nil, now))
}

func TestCandidatePolicy_Query(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	policy := CandidatePolicy{TodoDelay: 2 * time.Hour, MaxRetries: 5}

	q := policy.Query(now, 10)

	assert.Equal(t, now.Add(-2*time.Hour), q.TodoCreatedBefore)
	assert.Equal(t, 5, q.MaxRetries)
	assert.Equal(t, 10, q.Limit)
}
