package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/pet"
	"gorm.io/gorm"
)

type PetRepository struct {
	db *gorm.DB
}

func NewPetRepository(db *gorm.DB) *PetRepository {
	return &PetRepository{db: db}
}

func (r *PetRepository) GetByID(ctx context.Context, id int64) (*pet.Pet, error) {
	var p pet.Pet
	err := r.db.WithContext(ctx).Preload("Owner").
		Where("deleted_at IS NULL").
		First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pet.ErrPetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting pet %d: %w", id, err)
	}
	return &p, nil
}

func (r *PetRepository) Create(ctx context.Context, p *pet.Pet) error {
	return r.db.WithContext(ctx).Omit("Owner").Create(p).Error
}
