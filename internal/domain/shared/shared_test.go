package shared

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	sentinel := NewDomainError("PARCEL_NOT_FOUND", "Parcel not found")

	assert.ErrorIs(t, fmt.Errorf("compose: %w", sentinel), sentinel)
	assert.ErrorIs(t, NewDomainError("PARCEL_NOT_FOUND", "parcel 42 not found"), sentinel)
	assert.NotErrorIs(t, NewDomainError("SHIPPER_NOT_FOUND", "Shipper not found"), sentinel)
	assert.NotErrorIs(t, errors.New("Parcel not found"), sentinel)
}

func TestBaseEntity(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	e := NewBaseEntity(now)

	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, now, e.CreatedAt)

	e.Touch(now.Add(time.Hour))
	assert.Equal(t, now, e.CreatedAt)
	assert.Equal(t, now.Add(time.Hour), e.UpdatedAt)
}
