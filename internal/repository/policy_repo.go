package repository

import (
	"context"

	"supplychain/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PolicyFilter narrows ListPolicies. Zero values match everything.
type PolicyFilter struct {
	ProductID  *uuid.UUID
	ActiveOnly bool
}

type PolicyRepository interface {
	Create(ctx context.Context, policy *model.ReorderPolicy) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.ReorderPolicy, error)
	FindActiveByProduct(ctx context.Context, orgID, productID uuid.UUID) (*model.ReorderPolicy, error)
	ListActive(ctx context.Context, orgID uuid.UUID) ([]model.ReorderPolicy, error)
	List(ctx context.Context, orgID uuid.UUID, filter PolicyFilter, page, limit int) ([]model.ReorderPolicy, int64, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type policyRepository struct {
	db *gorm.DB
}

func NewPolicyRepository(db *gorm.DB) PolicyRepository {
	return &policyRepository{db: db}
}

func (r *policyRepository) Create(ctx context.Context, policy *model.ReorderPolicy) error {
	return GetDB(ctx, r.db).Create(policy).Error
}

func (r *policyRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.ReorderPolicy, error) {
	var policy model.ReorderPolicy
	if err := GetDB(ctx, r.db).Preload("PreferredSupplier").
		First(&policy, "id = ? AND organization_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *policyRepository) FindActiveByProduct(ctx context.Context, orgID, productID uuid.UUID) (*model.ReorderPolicy, error) {
	var policy model.ReorderPolicy
	if err := GetDB(ctx, r.db).
		Where("organization_id = ? AND product_id = ? AND is_active = ?", orgID, productID, true).
		Order("created_at DESC").
		First(&policy).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *policyRepository) ListActive(ctx context.Context, orgID uuid.UUID) ([]model.ReorderPolicy, error) {
	var policies []model.ReorderPolicy
	err := GetDB(ctx, r.db).
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Order("created_at ASC").
		Find(&policies).Error
	return policies, err
}

func (r *policyRepository) List(ctx context.Context, orgID uuid.UUID, filter PolicyFilter, page, limit int) ([]model.ReorderPolicy, int64, error) {
	var policies []model.ReorderPolicy
	var total int64

	query := GetDB(ctx, r.db).Model(&model.ReorderPolicy{}).Where("organization_id = ?", orgID)
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&policies).Error; err != nil {
		return nil, 0, err
	}

	return policies, total, nil
}

func (r *policyRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.ReorderPolicy{}).Where("id = ?", id).Update("is_active", false).Error
}
