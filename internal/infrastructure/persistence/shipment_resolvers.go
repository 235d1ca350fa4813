package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/parcelreview/backend/internal/domain/review"
	"github.com/parcelreview/backend/internal/infrastructure/persistence/models"
)

// GormShipmentResolver reads the shipment, claim and merchant projections the
// pipeline needs. Every lookup returns (nil, nil) when the row is absent.
type GormShipmentResolver struct {
	db *gorm.DB
}

// NewGormShipmentResolver creates a new GormShipmentResolver
func NewGormShipmentResolver(db *gorm.DB) *GormShipmentResolver {
	return &GormShipmentResolver{db: db}
}

var (
	_ review.ParcelResolver       = (*GormShipmentResolver)(nil)
	_ review.ShipperResolver      = (*GormShipmentResolver)(nil)
	_ review.ConflictResolver     = (*GormShipmentResolver)(nil)
	_ review.RequesterResolver    = (*GormShipmentResolver)(nil)
	_ review.MerchantNameResolver = (*GormShipmentResolver)(nil)
)

// FindParcel resolves the referenced entity to a parcel
func (r *GormShipmentResolver) FindParcel(ctx context.Context, ref review.EntityReference) (*review.Parcel, error) {
	switch ref.Kind {
	case review.EntityKindParcel:
		var row models.ParcelModel
		found, err := r.first(ctx, &row, "id = ?", ref.ID)
		if err != nil || !found {
			return nil, err
		}
		return row.ToDomain(), nil
	default:
		return nil, fmt.Errorf("%w: %q", review.ErrUnknownEntityKind, ref.Kind)
	}
}

// FindShipperByID loads the user owning a parcel
func (r *GormShipmentResolver) FindShipperByID(ctx context.Context, id uuid.UUID) (*review.Shipper, error) {
	var row models.ShipperModel
	found, err := r.first(ctx, &row, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return row.ToDomain(), nil
}

// FindByReferencedEntity returns the most recent claim against the entity
func (r *GormShipmentResolver) FindByReferencedEntity(ctx context.Context, entityID uuid.UUID) (*review.ConflictingClaim, error) {
	var row models.ClaimModel
	err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("created_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find claim for %s: %w", entityID, err)
	}
	return row.ToDomain(), nil
}

// FindRequesterByID loads the requester of a recipient claim
func (r *GormShipmentResolver) FindRequesterByID(ctx context.Context, id uuid.UUID) (*review.Requester, error) {
	var row models.RequesterModel
	found, err := r.first(ctx, &row, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return row.ToDomain(), nil
}

// FindByApplicationID loads the merchant behind an originating application
func (r *GormShipmentResolver) FindByApplicationID(ctx context.Context, applicationID uuid.UUID) (*review.Merchant, error) {
	var row models.MerchantApplicationModel
	found, err := r.first(ctx, &row, "application_id = ?", applicationID)
	if err != nil || !found {
		return nil, err
	}
	return row.ToDomain(), nil
}

func (r *GormShipmentResolver) first(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	err := r.db.WithContext(ctx).Where(query, args...).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
