package domain

import (
	"time"

	"github.com/google/uuid"
)

// Deed is a uniquely identified, non-fungible asset. It carries identity
// metadata only, never funds. The holder field is the single source of
// truth for custody; it changes only through registry-authorized transfers.
type Deed struct {
	ID           int64
	Holder       uuid.UUID
	URI          string
	RegisteredAt time.Time
}

// NewDeed creates a registered deed held by its registrant.
func NewDeed(id int64, holder uuid.UUID, uri string, registeredAt time.Time) *Deed {
	return &Deed{
		ID:           id,
		Holder:       holder,
		URI:          uri,
		RegisteredAt: registeredAt,
	}
}
