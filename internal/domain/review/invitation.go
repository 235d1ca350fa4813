package review

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parcelreview/backend/internal/domain/shared"
)

// InvitationStatus represents the processing status of a review invitation
type InvitationStatus string

const (
	InvitationStatusToDo      InvitationStatus = "TO_DO"
	InvitationStatusCancelled InvitationStatus = "CANCELLED"
	InvitationStatusDone      InvitationStatus = "DONE"
	InvitationStatusFailed    InvitationStatus = "FAILED"
)

// IsTerminal reports whether no further processing can happen from this status
func (s InvitationStatus) IsTerminal() bool {
	return s == InvitationStatusDone || s == InvitationStatusCancelled
}

// Reason explains why an invitation was cancelled or failed
type Reason string

// Cancellation reasons
const (
	ReasonShipperNotEligible    Reason = "SHIPPER_NOT_ELIGIBLE"
	ReasonDestinationNotTrusted Reason = "DESTINATION_NOT_TRUSTED"
	ReasonConflictExists        Reason = "CONFLICT_EXISTS"
)

// Failure reasons
const (
	ReasonContextComputationError Reason = "CONTEXT_COMPUTATION_ERROR"
	ReasonSendError               Reason = "SEND_ERROR"
)

// IsCancellation reports whether the reason belongs to the cancellation set
func (r Reason) IsCancellation() bool {
	switch r {
	case ReasonShipperNotEligible, ReasonDestinationNotTrusted, ReasonConflictExists:
		return true
	}
	return false
}

// IsFailure reports whether the reason belongs to the failure set
func (r Reason) IsFailure() bool {
	return r == ReasonContextComputationError || r == ReasonSendError
}

// Invitation is a pending request to solicit a review for a delivered shipment
type Invitation struct {
	shared.BaseEntity
	FirstName     string
	LastName      string
	Email         string
	Entity        EntityReference
	ApplicationID *uuid.UUID
	Status        InvitationStatus
	Reason        Reason
	ErrorPayload  json.RawMessage
	RetriesCount  int
}

// NewInvitation creates a TO_DO invitation for the referenced entity
func NewInvitation(firstName, lastName, email string, entity EntityReference, applicationID *uuid.UUID, now time.Time) (*Invitation, error) {
	if err := entity.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(email) == "" {
		return nil, ErrInvalidRecipient
	}
	return &Invitation{
		BaseEntity:    shared.NewBaseEntity(now),
		FirstName:     strings.TrimSpace(firstName),
		LastName:      strings.TrimSpace(lastName),
		Email:         strings.TrimSpace(email),
		Entity:        entity,
		ApplicationID: applicationID,
		Status:        InvitationStatusToDo,
	}, nil
}

// MarkDone records a successful delivery
func (i *Invitation) MarkDone(now time.Time) error {
	if i.Status.IsTerminal() {
		return ErrInvalidTransition
	}
	i.Status = InvitationStatusDone
	i.Reason = ""
	i.ErrorPayload = nil
	i.Touch(now)
	return nil
}

// Cancel withdraws the invitation. Cancellation is terminal and is not counted as a retry.
func (i *Invitation) Cancel(reason Reason, now time.Time) error {
	if i.Status.IsTerminal() {
		return ErrInvalidTransition
	}
	if !reason.IsCancellation() {
		return ErrInvalidReason
	}
	i.Status = InvitationStatusCancelled
	i.Reason = reason
	i.Touch(now)
	return nil
}

// MarkFailed records a failed attempt and consumes one retry
func (i *Invitation) MarkFailed(reason Reason, payload json.RawMessage, now time.Time) error {
	if i.Status.IsTerminal() {
		return ErrInvalidTransition
	}
	if !reason.IsFailure() {
		return ErrInvalidReason
	}
	i.Status = InvitationStatusFailed
	i.Reason = reason
	i.ErrorPayload = payload
	i.RetriesCount++
	i.Touch(now)
	return nil
}
