package repository

import (
	"context"

	"gorm.io/gorm"

	"propagentic/inviteservice/internal/model"
)

type pgPropertyRepository struct {
	db *gorm.DB
}

func NewPGPropertyRepository(db *gorm.DB) PropertyRepository {
	return &pgPropertyRepository{db: db}
}

func (r *pgPropertyRepository) Create(ctx context.Context, property *model.Property) error {
	return r.db.WithContext(ctx).Create(property).Error
}

func (r *pgPropertyRepository) GetByID(ctx context.Context, id string) (*model.Property, error) {
	var property model.Property
	if err := r.db.WithContext(ctx).First(&property, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *pgPropertyRepository) ListByLandlord(ctx context.Context, landlordID string) ([]model.Property, error) {
	var properties []model.Property
	if err := r.db.WithContext(ctx).
		Where("landlord_id = ?", landlordID).
		Order("created_at DESC").
		Find(&properties).Error; err != nil {
		return nil, err
	}
	return properties, nil
}
