package models

import (
	"time"

	"github.com/parcelreview/backend/internal/infrastructure/auth"
)

// ExternalServiceTokenModel stores the token pair of one external host
type ExternalServiceTokenModel struct {
	HostID           string     `gorm:"type:varchar(100);primary_key"`
	AccessToken      string     `gorm:"type:text"`
	AccessIssuedAt   *time.Time `gorm:"column:access_issued_at"`
	AccessExpiresIn  int64      `gorm:"not null;default:0"`
	RefreshToken     string     `gorm:"type:text"`
	RefreshIssuedAt  *time.Time `gorm:"column:refresh_issued_at"`
	RefreshExpiresIn int64      `gorm:"not null;default:0"`
	UpdatedAt        time.Time  `gorm:"not null"`
}

func (ExternalServiceTokenModel) TableName() string {
	return "external_service_tokens"
}

func (m *ExternalServiceTokenModel) ToTokenPair() *auth.TokenPair {
	return &auth.TokenPair{
		HostID:           m.HostID,
		AccessToken:      m.AccessToken,
		AccessIssuedAt:   m.AccessIssuedAt,
		AccessExpiresIn:  m.AccessExpiresIn,
		RefreshToken:     m.RefreshToken,
		RefreshIssuedAt:  m.RefreshIssuedAt,
		RefreshExpiresIn: m.RefreshExpiresIn,
	}
}

func TokenModelFromPair(pair *auth.TokenPair, now time.Time) *ExternalServiceTokenModel {
	return &ExternalServiceTokenModel{
		HostID:           pair.HostID,
		AccessToken:      pair.AccessToken,
		AccessIssuedAt:   pair.AccessIssuedAt,
		AccessExpiresIn:  pair.AccessExpiresIn,
		RefreshToken:     pair.RefreshToken,
		RefreshIssuedAt:  pair.RefreshIssuedAt,
		RefreshExpiresIn: pair.RefreshExpiresIn,
		UpdatedAt:        now,
	}
}
