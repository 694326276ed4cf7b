package repository

import (
	"context"

	"supplychain/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PartnerRepository interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Partner, error)
}

type partnerRepository struct {
	db *gorm.DB
}

func NewPartnerRepository(db *gorm.DB) PartnerRepository {
	return &partnerRepository{db: db}
}

func (r *partnerRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Partner, error) {
	var partner model.Partner
	if err := GetDB(ctx, r.db).First(&partner, "id = ? AND organization_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &partner, nil
}
