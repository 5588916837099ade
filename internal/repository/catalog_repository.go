package repository

import (
	"context"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/catalog"
	"gorm.io/gorm"
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) FindExisting(ctx context.Context, ids []int64) (map[int64]bool, error) {
	found := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var existing []int64
	if err := r.db.WithContext(ctx).Model(&catalog.Service{}).
		Where("id IN ?", ids).
		Pluck("id", &existing).Error; err != nil {
		return nil, fmt.Errorf("looking up services: %w", err)
	}
	for _, id := range existing {
		found[id] = true
	}
	return found, nil
}

func (r *CatalogRepository) ListByIDs(ctx context.Context, ids []int64) ([]*catalog.Service, error) {
	var out []*catalog.Service
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) Create(ctx context.Context, s *catalog.Service) error {
	return r.db.WithContext(ctx).Create(s).Error
}
