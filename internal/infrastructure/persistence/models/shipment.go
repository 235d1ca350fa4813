package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/parcelreview/backend/internal/domain/review"
)

// The models below are read-only projections of tables owned by the
// shipment and claims services.

type ParcelModel struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primary_key"`
	TrackingNumber     string     `gorm:"type:varchar(64)"`
	ShipperID          *uuid.UUID `gorm:"type:uuid"`
	DestinationCountry *string    `gorm:"type:varchar(2)"`
	DestinationTrusted bool       `gorm:"not null;default:false"`
}

func (ParcelModel) TableName() string { return "parcels" }

func (m *ParcelModel) ToDomain() *review.Parcel {
	parcel := &review.Parcel{
		ID:             m.ID,
		TrackingNumber: m.TrackingNumber,
		ShipperID:      m.ShipperID,
	}
	if m.DestinationCountry != nil {
		parcel.Destination = &review.Address{
			CountryCode: *m.DestinationCountry,
			Trusted:     m.DestinationTrusted,
		}
	}
	return parcel
}

type ShipperModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	FirstName       string    `gorm:"type:varchar(100)"`
	LastName        string    `gorm:"type:varchar(100)"`
	InReviewNetwork bool      `gorm:"not null;default:false"`
}

func (ShipperModel) TableName() string { return "shippers" }

func (m *ShipperModel) ToDomain() *review.Shipper {
	return &review.Shipper{
		ID:              m.ID,
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		InReviewNetwork: m.InReviewNetwork,
	}
}

type ClaimModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key"`
	EntityID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	RaisedBy    string     `gorm:"type:varchar(20);not null"`
	RequesterID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time  `gorm:"not null"`
}

func (ClaimModel) TableName() string { return "claims" }

func (m *ClaimModel) ToDomain() *review.ConflictingClaim {
	return &review.ConflictingClaim{
		ID:          m.ID,
		EntityID:    m.EntityID,
		RaisedBy:    review.ClaimRaiser(m.RaisedBy),
		RequesterID: m.RequesterID,
	}
}

type RequesterModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	FirstName string    `gorm:"type:varchar(100)"`
	LastName  string    `gorm:"type:varchar(100)"`
	Email     string    `gorm:"type:varchar(255)"`
}

func (RequesterModel) TableName() string { return "requesters" }

func (m *RequesterModel) ToDomain() *review.Requester {
	return &review.Requester{
		ID:        m.ID,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Email:     m.Email,
	}
}

type MerchantApplicationModel struct {
	ApplicationID uuid.UUID `gorm:"type:uuid;primary_key"`
	Name          string    `gorm:"type:varchar(200);not null"`
}

func (MerchantApplicationModel) TableName() string { return "merchant_applications" }

func (m *MerchantApplicationModel) ToDomain() *review.Merchant {
	return &review.Merchant{ApplicationID: m.ApplicationID, Name: m.Name}
}
