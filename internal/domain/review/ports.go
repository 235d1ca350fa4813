package review

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// InvitationRepository is the source and sink of invitations for the pipeline
type InvitationRepository interface {
	// FindCandidateIDs returns ids matching the selection predicate, oldest first
	FindCandidateIDs(ctx context.Context, query CandidateQuery) ([]uuid.UUID, error)
	// FindByIDs hydrates invitations by id
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Invitation, error)
	// MarkDone moves all given invitations to DONE
	MarkDone(ctx context.Context, ids []uuid.UUID) error
	// MarkCancelled moves one invitation to CANCELLED with its reason
	MarkCancelled(ctx context.Context, id uuid.UUID, reason Reason) error
	// MarkFailed moves one invitation to FAILED and increments its retries count
	MarkFailed(ctx context.Context, id uuid.UUID, reason Reason, payload json.RawMessage) error
}

// The resolvers below return (nil, nil) when the entity does not exist.

// ParcelResolver resolves the parcel an invitation refers to
type ParcelResolver interface {
	FindParcel(ctx context.Context, ref EntityReference) (*Parcel, error)
}

// ShipperResolver resolves the user owning a parcel
type ShipperResolver interface {
	FindShipperByID(ctx context.Context, id uuid.UUID) (*Shipper, error)
}

// ConflictResolver looks up an existing claim against the referenced entity
type ConflictResolver interface {
	FindByReferencedEntity(ctx context.Context, entityID uuid.UUID) (*ConflictingClaim, error)
}

// RequesterResolver resolves the requester of a recipient claim
type RequesterResolver interface {
	FindRequesterByID(ctx context.Context, id uuid.UUID) (*Requester, error)
}

// MerchantNameResolver resolves the display name of an originating application
type MerchantNameResolver interface {
	FindByApplicationID(ctx context.Context, applicationID uuid.UUID) (*Merchant, error)
}

// InvitationRequest is the payload delivered to the reputation platform
type InvitationRequest struct {
	FirstName       string
	LastName        string
	Email           string
	ReferenceNumber string
	Locale          string
	TemplateID      string
	SenderName      string
	Tags            []string
}

// InvitationReceipt is what the reputation platform returns for an accepted invitation
type InvitationReceipt struct {
	ExternalID string
	Status     string
}

// InvitationSender delivers invitations to the reputation platform
type InvitationSender interface {
	SendInvitation(ctx context.Context, req InvitationRequest) (*InvitationReceipt, error)
}
