package catalog

import "context"

type Repository interface {
	// FindExisting reports which of ids exist. Ids absent from the result do not.
	FindExisting(ctx context.Context, ids []int64) (map[int64]bool, error)

	// ListByIDs returns the services with the given ids in id order.
	ListByIDs(ctx context.Context, ids []int64) ([]*Service, error)

	Create(ctx context.Context, s *Service) error
}
