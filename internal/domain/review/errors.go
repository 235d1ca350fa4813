package review

import "github.com/parcelreview/backend/internal/domain/shared"

// Review invitation errors
var (
	ErrUnknownEntityKind   = shared.NewDomainError("UNKNOWN_ENTITY_KIND", "Unknown invitation entity kind")
	ErrInvalidEntityID     = shared.NewDomainError("INVALID_ENTITY_ID", "Invitation entity ID is required")
	ErrInvalidRecipient    = shared.NewDomainError("INVALID_RECIPIENT", "Invitation recipient email is required")
	ErrInvalidTransition   = shared.NewDomainError("INVALID_TRANSITION", "Invitation is already in a terminal status")
	ErrInvalidReason       = shared.NewDomainError("INVALID_REASON", "Invitation reason is not valid for this transition")
	ErrParcelNotFound      = shared.NewDomainError("PARCEL_NOT_FOUND", "Parcel not found or has no owning shipper")
	ErrShipperNotFound     = shared.NewDomainError("SHIPPER_NOT_FOUND", "Shipper not found")
	ErrRequesterNotFound   = shared.NewDomainError("REQUESTER_NOT_FOUND", "Claim requester not found")
	ErrInvitationNotFound  = shared.NewDomainError("INVITATION_NOT_FOUND", "Review invitation not found")
	ErrInvalidProcessLimit = shared.NewDomainError("INVALID_PROCESS_LIMIT", "Process limit cannot be negative")
)
