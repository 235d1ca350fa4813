package review

import (
	"strings"

	"github.com/google/uuid"
)

// Address is the destination of a parcel as seen by the review context
type Address struct {
	CountryCode string
	// Trusted is set when the destination is known to be a genuine recipient address
	Trusted bool
}

// Parcel is the shipment an invitation refers to
type Parcel struct {
	ID             uuid.UUID
	TrackingNumber string
	ShipperID      *uuid.UUID
	Destination    *Address
}

// HasShipper reports whether the parcel has an owning shipper
func (p *Parcel) HasShipper() bool {
	return p != nil && p.ShipperID != nil && *p.ShipperID != uuid.Nil
}

// DestinationCountry returns the upper-cased destination country, or "" when unknown
func (p *Parcel) DestinationCountry() string {
	if p == nil || p.Destination == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(p.Destination.CountryCode))
}

// IsDestinationTrusted reports whether the destination is flagged as trusted
func (p *Parcel) IsDestinationTrusted() bool {
	return p != nil && p.Destination != nil && p.Destination.Trusted
}

// Shipper is the user owning the parcel
type Shipper struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	// InReviewNetwork flags shippers belonging to the delivery network eligible for reviews
	InReviewNetwork bool
}

// ClaimRaiser identifies who opened a claim
type ClaimRaiser string

const (
	ClaimRaisedByShipper   ClaimRaiser = "SHIPPER"
	ClaimRaisedByRecipient ClaimRaiser = "RECIPIENT"
)

// ConflictingClaim is an incident already open against the referenced entity
type ConflictingClaim struct {
	ID          uuid.UUID
	EntityID    uuid.UUID
	RaisedBy    ClaimRaiser
	RequesterID *uuid.UUID
}

// RaisedByRecipient reports whether the claim was raised by the parcel recipient
func (c *ConflictingClaim) RaisedByRecipient() bool {
	return c != nil && c.RaisedBy == ClaimRaisedByRecipient
}

// Requester is the person who raised a recipient claim
type Requester struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
}

// Merchant is the display identity of the application that created the shipment
type Merchant struct {
	ApplicationID uuid.UUID
	Name          string
}
