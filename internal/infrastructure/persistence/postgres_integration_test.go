package persistence_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelreview/backend/internal/domain/review"
	"github.com/parcelreview/backend/internal/infrastructure/auth"
	"github.com/parcelreview/backend/internal/infrastructure/persistence"
	"github.com/parcelreview/backend/internal/infrastructure/persistence/persistencetest"
)

// Runs the repositories against the real migrated schema so the partial
// index, JSONB payload and CHECK constraints are exercised.
func TestPostgres_RepositoriesAgainstMigratedSchema(t *testing.T) {
	db := persistencetest.OpenPostgres(t)
	ctx := context.Background()
	fx := persistencetest.NewFixtures(t, db)
	repo := persistence.NewGormInvitationRepository(db)

	now := time.Now().UTC().Truncate(time.Microsecond)
	parcel := fx.EligibleParcel("GB")

	old := fx.Invitation(persistencetest.InvitationSpec{ParcelID: parcel, CreatedAt: now.Add(-48 * time.Hour)})
	fresh := fx.Invitation(persistencetest.InvitationSpec{ParcelID: parcel, CreatedAt: now})
	retry := fx.Invitation(persistencetest.InvitationSpec{ParcelID: parcel, Status: review.InvitationStatusFailed, RetriesCount: 1, CreatedAt: now.Add(-time.Hour)})
	exhausted := fx.Invitation(persistencetest.InvitationSpec{ParcelID: parcel, Status: review.InvitationStatusFailed, RetriesCount: 3, CreatedAt: now.Add(-72 * time.Hour)})

	t.Run("candidate selection", func(t *testing.T) {
		ids, err := repo.FindCandidateIDs(ctx, review.CandidateQuery{
			TodoCreatedBefore: now.Add(-24 * time.Hour),
			MaxRetries:        3,
		})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{old, retry}, ids)
		assert.NotContains(t, ids, fresh)
		assert.NotContains(t, ids, exhausted)
	})

	t.Run("mark failed stores json payload", func(t *testing.T) {
		payload := json.RawMessage(`{"status":503,"body":"unavailable"}`)
		require.NoError(t, repo.MarkFailed(ctx, retry, review.ReasonSendError, payload))

		row := fx.InvitationRow(retry)
		assert.Equal(t, 2, row.RetriesCount)
		require.NotNil(t, row.ErrorPayload)
		assert.JSONEq(t, string(payload), *row.ErrorPayload)
	})

	t.Run("mark done clears reason", func(t *testing.T) {
		require.NoError(t, repo.MarkDone(ctx, []uuid.UUID{old, retry}))

		row := fx.InvitationRow(retry)
		assert.Equal(t, review.InvitationStatusDone, row.Status)
		assert.Nil(t, row.Reason)
		assert.Nil(t, row.ErrorPayload)
	})

	t.Run("done rows are no longer pending", func(t *testing.T) {
		err := repo.MarkCancelled(ctx, old, review.ReasonConflictExists)
		assert.ErrorIs(t, err, review.ErrInvitationNotFound)
	})
}

func TestPostgres_TokenStoreUpsert(t *testing.T) {
	db := persistencetest.OpenPostgres(t)
	ctx := context.Background()
	store := persistence.NewGormTokenStore(db)

	issued := time.Now().UTC().Truncate(time.Second)
	pair := &auth.TokenPair{
		HostID:           "reputation",
		AccessToken:      "a1",
		AccessIssuedAt:   &issued,
		AccessExpiresIn:  3600,
		RefreshToken:     "r1",
		RefreshIssuedAt:  &issued,
		RefreshExpiresIn: 86400,
	}
	require.NoError(t, store.Save(ctx, pair))

	pair.AccessToken = "a2"
	require.NoError(t, store.Save(ctx, pair))

	got, err := store.Get(ctx, "reputation")
	require.NoError(t, err)
	assert.Equal(t, "a2", got.AccessToken)
	assert.Equal(t, "r1", got.RefreshToken)

	require.NoError(t, store.ClearAccess(ctx, "reputation"))
	got, err = store.Get(ctx, "reputation")
	require.NoError(t, err)
	assert.Empty(t, got.AccessToken)
	assert.Nil(t, got.AccessIssuedAt)
	assert.Equal(t, "r1", got.RefreshToken)
}
