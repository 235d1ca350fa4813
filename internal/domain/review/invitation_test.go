package review

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvitation(t *testing.T) *Invitation {
	t.Helper()
	inv, err := NewInvitation("Ada", "Lovelace", "ada@example.com", ParcelReference(uuid.New()), nil, time.Now())
	require.NoError(t, err)
	return inv
}

func TestNewInvitation(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	appID := uuid.New()
	ref := ParcelReference(uuid.New())

	inv, err := NewInvitation(" Ada ", "Lovelace", "ada@example.com", ref, &appID, now)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, inv.ID)
	assert.Equal(t, "Ada", inv.FirstName)
	assert.Equal(t, InvitationStatusToDo, inv.Status)
	assert.Equal(t, ref, inv.Entity)
	assert.Equal(t, &appID, inv.ApplicationID)
	assert.Equal(t, now, inv.CreatedAt)
	assert.Zero(t, inv.RetriesCount)
	assert.Empty(t, inv.Reason)
}

func TestNewInvitation_Validation(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		ref     EntityReference
		wantErr error
	}{
		{"unknown kind", "a@b.c", EntityReference{Kind: "PALLET", ID: uuid.New()}, ErrUnknownEntityKind},
		{"missing entity id", "a@b.c", EntityReference{Kind: EntityKindParcel}, ErrInvalidEntityID},
		{"missing email", "  ", ParcelReference(uuid.New()), ErrInvalidRecipient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInvitation("A", "B", tt.email, tt.ref, nil, time.Now())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInvitation_MarkDone(t *testing.T) {
	inv := newTestInvitation(t)
	inv.Status = InvitationStatusFailed
	inv.Reason = ReasonSendError
	inv.ErrorPayload = json.RawMessage(`{"message":"boom"}`)

	require.NoError(t, inv.MarkDone(time.Now()))

	assert.Equal(t, InvitationStatusDone, inv.Status)
	assert.Empty(t, inv.Reason)
	assert.Nil(t, inv.ErrorPayload)
	assert.ErrorIs(t, inv.MarkDone(time.Now()), ErrInvalidTransition)
}

func TestInvitation_Cancel(t *testing.T) {
	t.Run("records reason without consuming a retry", func(t *testing.T) {
		inv := newTestInvitation(t)
		inv.RetriesCount = 2

		require.NoError(t, inv.Cancel(ReasonConflictExists, time.Now()))

		assert.Equal(t, InvitationStatusCancelled, inv.Status)
		assert.Equal(t, ReasonConflictExists, inv.Reason)
		assert.Equal(t, 2, inv.RetriesCount)
	})

	t.Run("rejects failure reasons", func(t *testing.T) {
		inv := newTestInvitation(t)
		assert.ErrorIs(t, inv.Cancel(ReasonSendError, time.Now()), ErrInvalidReason)
		assert.Equal(t, InvitationStatusToDo, inv.Status)
	})

	t.Run("terminal invitations cannot be cancelled", func(t *testing.T) {
		inv := newTestInvitation(t)
		inv.Status = InvitationStatusDone
		assert.ErrorIs(t, inv.Cancel(ReasonConflictExists, time.Now()), ErrInvalidTransition)
	})
}

func TestInvitation_MarkFailed(t *testing.T) {
	inv := newTestInvitation(t)
	payload := json.RawMessage(`{"message":"timeout"}`)

	require.NoError(t, inv.MarkFailed(ReasonSendError, payload, time.Now()))
	assert.Equal(t, InvitationStatusFailed, inv.Status)
	assert.Equal(t, 1, inv.RetriesCount)
	assert.JSONEq(t, `{"message":"timeout"}`, string(inv.ErrorPayload))

	// FAILED is soft terminal: it can fail again
	require.NoError(t, inv.MarkFailed(ReasonContextComputationError, nil, time.Now()))
	assert.Equal(t, 2, inv.RetriesCount)
	assert.Equal(t, ReasonContextComputationError, inv.Reason)

	assert.ErrorIs(t, inv.MarkFailed(ReasonConflictExists, nil, time.Now()), ErrInvalidReason)
}

func TestReason_Sets(t *testing.T) {
	for _, r := range []Reason{ReasonShipperNotEligible, ReasonDestinationNotTrusted, ReasonConflictExists} {
		assert.True(t, r.IsCancellation(), r)
		assert.False(t, r.IsFailure(), r)
	}
	for _, r := range []Reason{ReasonContextComputationError, ReasonSendError} {
		assert.True(t, r.IsFailure(), r)
		assert.False(t, r.IsCancellation(), r)
	}
}
