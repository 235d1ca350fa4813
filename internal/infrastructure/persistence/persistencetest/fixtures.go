package persistencetest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/parcelreview/backend/internal/domain/review"
	"github.com/parcelreview/backend/internal/infrastructure/persistence/models"
)

// Fixtures seeds rows for tests
type Fixtures struct {
	t  *testing.T
	db *gorm.DB
}

func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) create(row any) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(row).Error)
}

func (f *Fixtures) Shipper(inReviewNetwork bool) uuid.UUID {
	id := uuid.New()
	f.create(&models.ShipperModel{ID: id, FirstName: "Ship", LastName: "Per", InReviewNetwork: inReviewNetwork})
	return id
}

// Parcel inserts a parcel. An empty country leaves the destination unknown.
func (f *Fixtures) Parcel(shipperID *uuid.UUID, country string, trusted bool) uuid.UUID {
	id := uuid.New()
	row := &models.ParcelModel{
		ID:                 id,
		TrackingNumber:     "TRK-" + id.String()[:8],
		ShipperID:          shipperID,
		DestinationTrusted: trusted,
	}
	if country != "" {
		row.DestinationCountry = &country
	}
	f.create(row)
	return id
}

// EligibleParcel inserts an in-network shipper and a trusted parcel to country
func (f *Fixtures) EligibleParcel(country string) uuid.UUID {
	shipperID := f.Shipper(true)
	return f.Parcel(&shipperID, country, true)
}

func (f *Fixtures) Requester(email string) uuid.UUID {
	id := uuid.New()
	f.create(&models.RequesterModel{ID: id, FirstName: "Req", LastName: "Uester", Email: email})
	return id
}

func (f *Fixtures) Claim(entityID uuid.UUID, raisedBy review.ClaimRaiser, requesterID *uuid.UUID, createdAt time.Time) uuid.UUID {
	id := uuid.New()
	f.create(&models.ClaimModel{ID: id, EntityID: entityID, RaisedBy: string(raisedBy), RequesterID: requesterID, CreatedAt: createdAt.UTC()})
	return id
}

func (f *Fixtures) Merchant(name string) uuid.UUID {
	id := uuid.New()
	f.create(&models.MerchantApplicationModel{ApplicationID: id, Name: name})
	return id
}

// InvitationSpec describes a seeded invitation
type InvitationSpec struct {
	ParcelID      uuid.UUID
	Email         string
	Status        review.InvitationStatus
	RetriesCount  int
	CreatedAt     time.Time
	ApplicationID *uuid.UUID
}

func (f *Fixtures) Invitation(spec InvitationSpec) uuid.UUID {
	f.t.Helper()
	if spec.Email == "" {
		spec.Email = "recipient-" + uuid.NewString()[:8] + "@example.com"
	}
	inv, err := review.NewInvitation("Jane", "Doe", spec.Email, review.ParcelReference(spec.ParcelID), spec.ApplicationID, spec.CreatedAt.UTC())
	require.NoError(f.t, err)
	if spec.Status != "" {
		inv.Status = spec.Status
	}
	inv.RetriesCount = spec.RetriesCount
	if inv.Status == review.InvitationStatusFailed {
		inv.Reason = review.ReasonSendError
	}
	f.create(models.InvitationModelFromDomain(inv))
	return inv.ID
}

// MalformedInvitation writes a TO_DO row whose entity reference does not
// validate, bypassing the domain constructor
func (f *Fixtures) MalformedInvitation(entityType string, entityID uuid.UUID, createdAt time.Time) uuid.UUID {
	f.t.Helper()
	id := uuid.New()
	f.create(&models.ReviewInvitationModel{
		BaseModel:  models.BaseModel{ID: id, CreatedAt: createdAt.UTC(), UpdatedAt: createdAt.UTC()},
		FirstName:  "Broken",
		Email:      "broken-" + id.String()[:8] + "@example.com",
		EntityType: entityType,
		EntityID:   entityID,
		Status:     review.InvitationStatusToDo,
	})
	return id
}

// InvitationRow reloads the stored row of an invitation
func (f *Fixtures) InvitationRow(id uuid.UUID) models.ReviewInvitationModel {
	f.t.Helper()
	var row models.ReviewInvitationModel
	require.NoError(f.t, f.db.Where("id = ?", id).Take(&row).Error)
	return row
}
