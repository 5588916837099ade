package pet

import "context"

type Repository interface {
	// GetByID retrieves a pet together with its owner. Returns ErrPetNotFound if not found.
	GetByID(ctx context.Context, id int64) (*Pet, error)

	Create(ctx context.Context, p *Pet) error
}
