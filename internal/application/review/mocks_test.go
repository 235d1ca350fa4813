package review

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/parcelreview/backend/internal/domain/review"
)

// =============================================================================
// Mock Repository
// =============================================================================

// MockInvitationRepository is a mock implementation of review.InvitationRepository
type MockInvitationRepository struct {
	mock.Mock
}

func (m *MockInvitationRepository) FindCandidateIDs(ctx context.Context, query review.CandidateQuery) ([]uuid.UUID, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockInvitationRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*review.Invitation, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*review.Invitation), args.Error(1)
}

func (m *MockInvitationRepository) MarkDone(ctx context.Context, ids []uuid.UUID) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockInvitationRepository) MarkCancelled(ctx context.Context, id uuid.UUID, reason review.Reason) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockInvitationRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason review.Reason, payload json.RawMessage) error {
	args := m.Called(ctx, id, reason, payload)
	return args.Error(0)
}

// =============================================================================
// In-memory resolvers
// =============================================================================

type fakeWorld struct {
	mu         sync.Mutex
	parcels    map[uuid.UUID]*review.Parcel
	shippers   map[uuid.UUID]*review.Shipper
	claims     map[uuid.UUID]*review.ConflictingClaim
	requesters map[uuid.UUID]*review.Requester
	merchants  map[uuid.UUID]*review.Merchant

	parcelErr      map[uuid.UUID]error
	merchantErr    error
	requesterCalls int
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		parcels:    make(map[uuid.UUID]*review.Parcel),
		shippers:   make(map[uuid.UUID]*review.Shipper),
		claims:     make(map[uuid.UUID]*review.ConflictingClaim),
		requesters: make(map[uuid.UUID]*review.Requester),
		merchants:  make(map[uuid.UUID]*review.Merchant),
		parcelErr:  make(map[uuid.UUID]error),
	}
}

func (w *fakeWorld) FindParcel(_ context.Context, ref review.EntityReference) (*review.Parcel, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.parcelErr[ref.ID]; err != nil {
		return nil, err
	}
	return w.parcels[ref.ID], nil
}

func (w *fakeWorld) FindShipperByID(_ context.Context, id uuid.UUID) (*review.Shipper, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shippers[id], nil
}

func (w *fakeWorld) FindByReferencedEntity(_ context.Context, entityID uuid.UUID) (*review.ConflictingClaim, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.claims[entityID], nil
}

func (w *fakeWorld) FindRequesterByID(_ context.Context, id uuid.UUID) (*review.Requester, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.requesterCalls++
	return w.requesters[id], nil
}

func (w *fakeWorld) FindByApplicationID(_ context.Context, id uuid.UUID) (*review.Merchant, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.merchantErr != nil {
		return nil, w.merchantErr
	}
	return w.merchants[id], nil
}

// addEligible registers a parcel with a trusted destination and an in-network shipper
func (w *fakeWorld) addEligible(country string) (*review.Parcel, *review.Shipper) {
	shipper := &review.Shipper{ID: uuid.New(), FirstName: "Sam", LastName: "Shipper", InReviewNetwork: true}
	parcel := &review.Parcel{
		ID:             uuid.New(),
		TrackingNumber: "TRK-" + shipper.ID.String()[:8],
		ShipperID:      &shipper.ID,
		Destination:    &review.Address{CountryCode: country, Trusted: true},
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shippers[shipper.ID] = shipper
	w.parcels[parcel.ID] = parcel
	return parcel, shipper
}

func newInvitationFor(parcel *review.Parcel) *review.Invitation {
	inv := &review.Invitation{
		FirstName: "Rita",
		LastName:  "Recipient",
		Email:     "rita@example.com",
		Entity:    review.ParcelReference(parcel.ID),
		Status:    review.InvitationStatusToDo,
	}
	inv.ID = uuid.New()
	return inv
}

// =============================================================================
// Fake sender
// =============================================================================

type fakeSender struct {
	mu       sync.Mutex
	requests []review.InvitationRequest
	failFor  map[string]error
	// afterSend runs once the platform has accepted a request
	afterSend func()
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: make(map[string]error)}
}

func (s *fakeSender) SendInvitation(_ context.Context, req review.InvitationRequest) (*review.InvitationReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if err := s.failFor[req.Email]; err != nil {
		return nil, err
	}
	if s.afterSend != nil {
		s.afterSend()
	}
	return &review.InvitationReceipt{ExternalID: "ext-" + req.ReferenceNumber, Status: "SENT"}, nil
}

func (s *fakeSender) sent() []review.InvitationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]review.InvitationRequest(nil), s.requests...)
}

// httpError mimics a delivery error carrying a response
type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string        { return "platform rejected invitation" }
func (e *httpError) HTTPStatusCode() int  { return e.status }
func (e *httpError) ResponseBody() string { return e.body }

var errBoom = errors.New("boom")
