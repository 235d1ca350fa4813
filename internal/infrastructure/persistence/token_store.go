package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/parcelreview/backend/internal/infrastructure/auth"
	"github.com/parcelreview/backend/internal/infrastructure/persistence/models"
)

// GormTokenStore implements auth.TokenStore on the external_service_tokens table
type GormTokenStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormTokenStore creates a new GormTokenStore
func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db, now: time.Now}
}

var _ auth.TokenStore = (*GormTokenStore)(nil)

// Get loads the token pair of a host, or auth.ErrHostNotFound
func (s *GormTokenStore) Get(ctx context.Context, hostID string) (*auth.TokenPair, error) {
	var row models.ExternalServiceTokenModel
	err := s.db.WithContext(ctx).Where("host_id = ?", hostID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.ErrHostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load tokens for %s: %w", hostID, err)
	}
	return row.ToTokenPair(), nil
}

// Save upserts the whole pair in one statement
func (s *GormTokenStore) Save(ctx context.Context, pair *auth.TokenPair) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "host_id"}},
			UpdateAll: true,
		}).
		Create(models.TokenModelFromPair(pair, s.now().UTC())).Error
	if err != nil {
		return fmt.Errorf("save tokens for %s: %w", pair.HostID, err)
	}
	return nil
}

// ClearAccess nulls the access token columns of a host
func (s *GormTokenStore) ClearAccess(ctx context.Context, hostID string) error {
	return s.clear(ctx, hostID, map[string]any{
		"access_token":      "",
		"access_issued_at":  nil,
		"access_expires_in": 0,
	})
}

// ClearRefresh nulls the refresh token columns of a host
func (s *GormTokenStore) ClearRefresh(ctx context.Context, hostID string) error {
	return s.clear(ctx, hostID, map[string]any{
		"refresh_token":      "",
		"refresh_issued_at":  nil,
		"refresh_expires_in": 0,
	})
}

func (s *GormTokenStore) clear(ctx context.Context, hostID string, values map[string]any) error {
	values["updated_at"] = s.now().UTC()
	result := s.db.WithContext(ctx).
		Model(&models.ExternalServiceTokenModel{}).
		Where("host_id = ?", hostID).
		Updates(values)
	if result.Error != nil {
		return fmt.Errorf("clear tokens for %s: %w", hostID, result.Error)
	}
	if result.RowsAffected == 0 {
		return auth.ErrHostNotFound
	}
	return nil
}
