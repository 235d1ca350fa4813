package review

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelreview/backend/internal/domain/review"
)

func newTestComposer(w *fakeWorld) *ContextComposer {
	return NewContextComposer(w, w, w, w, 0, nil)
}

func TestContextComposer_Compose(t *testing.T) {
	w := newFakeWorld()
	parcel, shipper := w.addEligible("FR")
	inv := newInvitationFor(parcel)

	cc, err := newTestComposer(w).Compose(context.Background(), inv)
	require.NoError(t, err)

	assert.Same(t, inv, cc.Invitation)
	assert.Equal(t, parcel, cc.Parcel)
	assert.Equal(t, shipper, cc.Shipper)
	assert.Nil(t, cc.Claim)
	assert.Nil(t, cc.Requester)
}

func TestContextComposer_ResolutionErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(w *fakeWorld) *review.Invitation
		wantErr error
	}{
		{
			name: "parcel missing",
			setup: func(w *fakeWorld) *review.Invitation {
				return newInvitationFor(&review.Parcel{ID: uuid.New()})
			},
			wantErr: review.ErrParcelNotFound,
		},
		{
			name: "parcel without shipper",
			setup: func(w *fakeWorld) *review.Invitation {
				parcel, _ := w.addEligible("FR")
				parcel.ShipperID = nil
				return newInvitationFor(parcel)
			},
			wantErr: review.ErrParcelNotFound,
		},
		{
			name: "shipper missing",
			setup: func(w *fakeWorld) *review.Invitation {
				parcel, shipper := w.addEligible("FR")
				delete(w.shippers, shipper.ID)
				return newInvitationFor(parcel)
			},
			wantErr: review.ErrShipperNotFound,
		},
		{
			name: "recipient claim without requester",
			setup: func(w *fakeWorld) *review.Invitation {
				parcel, _ := w.addEligible("FR")
				requesterID := uuid.New()
				w.claims[parcel.ID] = &review.ConflictingClaim{ID: uuid.New(), EntityID: parcel.ID, RaisedBy: review.ClaimRaisedByRecipient, RequesterID: &requesterID}
				return newInvitationFor(parcel)
			},
			wantErr: review.ErrRequesterNotFound,
		},
		{
			name: "resolver failure",
			setup: func(w *fakeWorld) *review.Invitation {
				parcel, _ := w.addEligible("FR")
				w.parcelErr[parcel.ID] = errBoom
				return newInvitationFor(parcel)
			},
			wantErr: errBoom,
		},
		{
			name: "unknown entity kind",
			setup: func(w *fakeWorld) *review.Invitation {
				parcel, _ := w.addEligible("FR")
				inv := newInvitationFor(parcel)
				inv.Entity.Kind = "PALLET"
				return inv
			},
			wantErr: review.ErrUnknownEntityKind,
		},
		{
			name: "nil entity id",
			setup: func(w *fakeWorld) *review.Invitation {
				inv := newInvitationFor(&review.Parcel{ID: uuid.New()})
				inv.Entity.ID = uuid.Nil
				return inv
			},
			wantErr: review.ErrInvalidEntityID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newFakeWorld()
			inv := tt.setup(w)

			cc, err := newTestComposer(w).Compose(context.Background(), inv)
			assert.Nil(t, cc)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestContextComposer_RequesterOnlyForRecipientClaims(t *testing.T) {
	t.Run("shipper claim skips requester lookup", func(t *testing.T) {
		w := newFakeWorld()
		parcel, _ := w.addEligible("DE")
		requesterID := uuid.New()
		w.claims[parcel.ID] = &review.ConflictingClaim{ID: uuid.New(), EntityID: parcel.ID, RaisedBy: review.ClaimRaisedByShipper, RequesterID: &requesterID}

		cc, err := newTestComposer(w).Compose(context.Background(), newInvitationFor(parcel))
		require.NoError(t, err)
		assert.NotNil(t, cc.Claim)
		assert.Nil(t, cc.Requester)
		assert.Zero(t, w.requesterCalls)
	})

	t.Run("recipient claim resolves requester", func(t *testing.T) {
		w := newFakeWorld()
		parcel, _ := w.addEligible("DE")
		requester := &review.Requester{ID: uuid.New(), Email: "r@example.com"}
		w.requesters[requester.ID] = requester
		w.claims[parcel.ID] = &review.ConflictingClaim{ID: uuid.New(), EntityID: parcel.ID, RaisedBy: review.ClaimRaisedByRecipient, RequesterID: &requester.ID}

		cc, err := newTestComposer(w).Compose(context.Background(), newInvitationFor(parcel))
		require.NoError(t, err)
		assert.Equal(t, requester, cc.Requester)
		assert.Equal(t, 1, w.requesterCalls)
	})
}

func TestContextComposer_ComposeManyIsolatesFailures(t *testing.T) {
	w := newFakeWorld()
	p1, _ := w.addEligible("FR")
	p2, _ := w.addEligible("FR")
	p3, _ := w.addEligible("FR")
	w.parcelErr[p2.ID] = errBoom

	inv1, inv2, inv3 := newInvitationFor(p1), newInvitationFor(p2), newInvitationFor(p3)

	outcome := newTestComposer(w).ComposeMany(context.Background(), []*review.Invitation{inv1, inv2, inv3})

	require.Len(t, outcome.Succeeded, 2)
	assert.ElementsMatch(t,
		[]uuid.UUID{inv1.ID, inv3.ID},
		[]uuid.UUID{outcome.Succeeded[0].Invitation.ID, outcome.Succeeded[1].Invitation.ID},
	)
	require.Len(t, outcome.Failed, 1)
	assert.Equal(t, inv2.ID, outcome.Failed[0].Invitation.ID)
	assert.ErrorIs(t, outcome.Failed[0].Err, errBoom)
}
