package models

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/parcelreview/backend/internal/domain/review"
)

// ReviewInvitationModel is the row of a review invitation
type ReviewInvitationModel struct {
	BaseModel
	FirstName     string                  `gorm:"type:varchar(100)"`
	LastName      string                  `gorm:"type:varchar(100)"`
	Email         string                  `gorm:"type:varchar(255);not null"`
	EntityType    string                  `gorm:"type:varchar(32);not null"`
	EntityID      uuid.UUID               `gorm:"type:uuid;not null;index"`
	ApplicationID *uuid.UUID              `gorm:"type:uuid"`
	Status        review.InvitationStatus `gorm:"type:varchar(20);not null;index"`
	Reason        *string                 `gorm:"type:varchar(64)"`
	ErrorPayload  *string                 `gorm:"type:jsonb"`
	RetriesCount  int                     `gorm:"not null;default:0"`
}

func (ReviewInvitationModel) TableName() string {
	return "review_invitations"
}

// ToDomain keeps the stored reference even when it does not validate, so a
// malformed row surfaces as a failed invitation instead of a failed batch.
func (m *ReviewInvitationModel) ToDomain() *review.Invitation {
	entity := review.EntityReference{Kind: review.EntityKind(m.EntityType), ID: m.EntityID}
	if kind, err := review.ParseEntityKind(m.EntityType); err == nil {
		entity.Kind = kind
	}

	inv := &review.Invitation{
		BaseEntity:    m.BaseModel.ToDomain(),
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		Email:         m.Email,
		Entity:        entity,
		ApplicationID: m.ApplicationID,
		Status:        m.Status,
		RetriesCount:  m.RetriesCount,
	}
	if m.Reason != nil {
		inv.Reason = review.Reason(*m.Reason)
	}
	if m.ErrorPayload != nil {
		inv.ErrorPayload = json.RawMessage(*m.ErrorPayload)
	}
	return inv
}

func (m *ReviewInvitationModel) FromDomain(inv *review.Invitation) {
	m.FromDomainBaseEntity(inv.BaseEntity)
	m.FirstName = inv.FirstName
	m.LastName = inv.LastName
	m.Email = inv.Email
	m.EntityType = string(inv.Entity.Kind)
	m.EntityID = inv.Entity.ID
	m.ApplicationID = inv.ApplicationID
	m.Status = inv.Status
	m.RetriesCount = inv.RetriesCount
	m.Reason = nil
	if inv.Reason != "" {
		reason := string(inv.Reason)
		m.Reason = &reason
	}
	m.ErrorPayload = nil
	if len(inv.ErrorPayload) > 0 {
		payload := string(inv.ErrorPayload)
		m.ErrorPayload = &payload
	}
}

func InvitationModelFromDomain(inv *review.Invitation) *ReviewInvitationModel {
	m := &ReviewInvitationModel{}
	m.FromDomain(inv)
	return m
}
