package domain

import (
	"context"

	"github.com/google/uuid"
)

// DeedRepository persists deeds and custodian approvals.
type DeedRepository interface {
	GetByID(ctx context.Context, id int64) (*Deed, error)
	Save(ctx context.Context, deed *Deed) error
	GetByHolder(ctx context.Context, holder uuid.UUID) ([]*Deed, error)
	SaveApproval(ctx context.Context, holder, operator uuid.UUID) error
	IsApproved(ctx context.Context, holder, operator uuid.UUID) (bool, error)
}
