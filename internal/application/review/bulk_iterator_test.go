package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/parcelreview/backend/internal/domain/review"
)

var testPolicy = review.CandidatePolicy{TodoDelay: time.Hour, MaxRetries: 3}

func fixedNow() time.Time {
	return time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
}

func invitationsWithIDs(ids ...uuid.UUID) []*review.Invitation {
	out := make([]*review.Invitation, 0, len(ids))
	for _, id := range ids {
		inv := &review.Invitation{Status: review.InvitationStatusToDo}
		inv.ID = id
		out = append(out, inv)
	}
	return out
}

func TestBulkIterator_BatchSizing(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	tests := []struct {
		name      string
		batchSize int
		want      [][]uuid.UUID
	}{
		{"windows of two", 2, [][]uuid.UUID{{ids[0], ids[1]}, {ids[2]}}},
		{"single window", 3, [][]uuid.UUID{{ids[0], ids[1], ids[2]}}},
		{"oversized window", 10, [][]uuid.UUID{{ids[0], ids[1], ids[2]}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockInvitationRepository)
			repo.On("FindCandidateIDs", mock.Anything, testPolicy.Query(fixedNow(), 0)).Return(ids, nil).Once()
			for _, window := range tt.want {
				repo.On("FindByIDs", mock.Anything, window).Return(invitationsWithIDs(window...), nil).Once()
			}

			it := NewBulkIterator(repo, testPolicy, tt.batchSize, 0, fixedNow)

			var got [][]uuid.UUID
			for {
				batch, ok, err := it.Next(context.Background())
				require.NoError(t, err)
				if !ok {
					break
				}
				got = append(got, review.InvitationIDs(batch))
			}

			assert.Equal(t, tt.want, got)
			assert.Equal(t, 3, it.Total())
			repo.AssertExpectations(t)
		})
	}
}

func TestBulkIterator_NoCandidates(t *testing.T) {
	repo := new(MockInvitationRepository)
	repo.On("FindCandidateIDs", mock.Anything, mock.Anything).Return([]uuid.UUID{}, nil).Once()

	it := NewBulkIterator(repo, testPolicy, 5, 0, fixedNow)

	batch, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, batch)

	// exhausted iterators never query again
	_, ok, err = it.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	repo.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything)
	repo.AssertNumberOfCalls(t, "FindCandidateIDs", 1)
}

func TestBulkIterator_GlobalLimit(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	repo := new(MockInvitationRepository)
	repo.On("FindCandidateIDs", mock.Anything, mock.MatchedBy(func(q review.CandidateQuery) bool {
		return q.Limit == 2
	})).Return(ids, nil).Once()
	repo.On("FindByIDs", mock.Anything, ids[:2]).Return(invitationsWithIDs(ids[1], ids[0]), nil).Once()

	it := NewBulkIterator(repo, testPolicy, 10, 2, fixedNow)

	batch, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	// hydration order is restored to selection order
	assert.Equal(t, ids[:2], review.InvitationIDs(batch))

	_, ok, err = it.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBulkIterator_SkipsRowsGoneBeforeHydration(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	repo := new(MockInvitationRepository)
	repo.On("FindCandidateIDs", mock.Anything, mock.Anything).Return(ids, nil)
	repo.On("FindByIDs", mock.Anything, ids).Return(invitationsWithIDs(ids[1]), nil)

	it := NewBulkIterator(repo, testPolicy, 2, 0, fixedNow)

	batch, ok, err := it.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []uuid.UUID{ids[1]}, review.InvitationIDs(batch))
}

func TestBulkIterator_Errors(t *testing.T) {
	t.Run("selection failure", func(t *testing.T) {
		repo := new(MockInvitationRepository)
		repo.On("FindCandidateIDs", mock.Anything, mock.Anything).Return(nil, errBoom)

		_, ok, err := NewBulkIterator(repo, testPolicy, 2, 0, fixedNow).Next(context.Background())
		assert.False(t, ok)
		assert.True(t, errors.Is(err, errBoom))
	})

	t.Run("hydration failure", func(t *testing.T) {
		repo := new(MockInvitationRepository)
		repo.On("FindCandidateIDs", mock.Anything, mock.Anything).Return([]uuid.UUID{uuid.New()}, nil)
		repo.On("FindByIDs", mock.Anything, mock.Anything).Return(nil, errBoom)

		_, ok, err := NewBulkIterator(repo, testPolicy, 2, 0, fixedNow).Next(context.Background())
		assert.False(t, ok)
		assert.ErrorIs(t, err, errBoom)
	})
}
