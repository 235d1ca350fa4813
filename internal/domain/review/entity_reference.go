package review

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// EntityKind discriminates which shipment entity an invitation refers to
type EntityKind string

const (
	EntityKindParcel EntityKind = "PARCEL"
)

// AllEntityKinds returns every supported entity kind
func AllEntityKinds() []EntityKind {
	return []EntityKind{EntityKindParcel}
}

// ParseEntityKind converts a stored tag into an EntityKind, rejecting unknown tags
func ParseEntityKind(raw string) (EntityKind, error) {
	switch EntityKind(strings.ToUpper(strings.TrimSpace(raw))) {
	case EntityKindParcel:
		return EntityKindParcel, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEntityKind, raw)
	}
}

// EntityReference is the tagged reference from an invitation to a shipment entity
type EntityReference struct {
	Kind EntityKind
	ID   uuid.UUID
}

// NewEntityReference validates the kind tag and builds a reference
func NewEntityReference(kind string, id uuid.UUID) (EntityReference, error) {
	parsed, err := ParseEntityKind(kind)
	if err != nil {
		return EntityReference{}, err
	}
	if id == uuid.Nil {
		return EntityReference{}, ErrInvalidEntityID
	}
	return EntityReference{Kind: parsed, ID: id}, nil
}

// ParcelReference is a shorthand for a parcel reference
func ParcelReference(id uuid.UUID) EntityReference {
	return EntityReference{Kind: EntityKindParcel, ID: id}
}

// Validate checks the reference is one of the known variants
func (r EntityReference) Validate() error {
	switch r.Kind {
	case EntityKindParcel:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEntityKind, r.Kind)
	}
	if r.ID == uuid.Nil {
		return ErrInvalidEntityID
	}
	return nil
}

// String renders the reference as KIND:id
func (r EntityReference) String() string {
	return string(r.Kind) + ":" + r.ID.String()
}
