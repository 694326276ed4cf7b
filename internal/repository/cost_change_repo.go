package repository

import (
	"context"

	"supplychain/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CostChangeRepository interface {
	Create(ctx context.Context, change *model.ProductCostChange) error
	ListByHeader(ctx context.Context, headerID uuid.UUID) ([]model.ProductCostChange, error)
}

type costChangeRepository struct {
	db *gorm.DB
}

func NewCostChangeRepository(db *gorm.DB) CostChangeRepository {
	return &costChangeRepository{db: db}
}

func (r *costChangeRepository) Create(ctx context.Context, change *model.ProductCostChange) error {
	return GetDB(ctx, r.db).Create(change).Error
}

func (r *costChangeRepository) ListByHeader(ctx context.Context, headerID uuid.UUID) ([]model.ProductCostChange, error) {
	var changes []model.ProductCostChange
	err := GetDB(ctx, r.db).Where("landed_cost_header_id = ?", headerID).Order("created_at").Find(&changes).Error
	return changes, err
}
