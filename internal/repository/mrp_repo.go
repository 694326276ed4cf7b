package repository

import (
	"context"

	"supplychain/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequirementFilter narrows ListRequirements. Zero values match everything.
type RequirementFilter struct {
	ProductID *uuid.UUID
	Action    model.SuggestedAction
	Source    model.RequirementSource
}

type MRPRepository interface {
	CreateRun(ctx context.Context, run *model.MRPRun) error
	UpdateRun(ctx context.Context, run *model.MRPRun) error
	FindRunByID(ctx context.Context, orgID, id uuid.UUID) (*model.MRPRun, error)
	ListRuns(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.MRPRun, int64, error)
	CreateRequirements(ctx context.Context, reqs []model.MRPRequirement) error
	ListRequirements(ctx context.Context, runID uuid.UUID, filter RequirementFilter, page, limit int) ([]model.MRPRequirement, int64, error)
	AllRequirements(ctx context.Context, runID uuid.UUID) ([]model.MRPRequirement, error)
}

type mrpRepository struct {
	db *gorm.DB
}

func NewMRPRepository(db *gorm.DB) MRPRepository {
	return &mrpRepository{db: db}
}

func (r *mrpRepository) CreateRun(ctx context.Context, run *model.MRPRun) error {
	return GetDB(ctx, r.db).Create(run).Error
}

func (r *mrpRepository) UpdateRun(ctx context.Context, run *model.MRPRun) error {
	return GetDB(ctx, r.db).Omit("Requirements").Save(run).Error
}

func (r *mrpRepository) FindRunByID(ctx context.Context, orgID, id uuid.UUID) (*model.MRPRun, error) {
	var run model.MRPRun
	if err := GetDB(ctx, r.db).First(&run, "id = ? AND organization_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *mrpRepository) ListRuns(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.MRPRun, int64, error) {
	var runs []model.MRPRun
	var total int64

	query := GetDB(ctx, r.db).Model(&model.MRPRun{}).Where("organization_id = ?", orgID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("run_at DESC").Offset(offset).Limit(limit).Find(&runs).Error; err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}

func (r *mrpRepository) CreateRequirements(ctx context.Context, reqs []model.MRPRequirement) error {
	if len(reqs) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).CreateInBatches(&reqs, 200).Error
}

func (r *mrpRepository) ListRequirements(ctx context.Context, runID uuid.UUID, filter RequirementFilter, page, limit int) ([]model.MRPRequirement, int64, error) {
	var reqs []model.MRPRequirement
	var total int64

	query := GetDB(ctx, r.db).Model(&model.MRPRequirement{}).Where("run_id = ?", runID)
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Action != "" {
		query = query.Where("suggested_action = ?", filter.Action)
	}
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("required_date ASC, product_code ASC").Offset(offset).Limit(limit).Find(&reqs).Error; err != nil {
		return nil, 0, err
	}

	return reqs, total, nil
}

func (r *mrpRepository) AllRequirements(ctx context.Context, runID uuid.UUID) ([]model.MRPRequirement, error) {
	var reqs []model.MRPRequirement
	err := GetDB(ctx, r.db).Where("run_id = ?", runID).Order("required_date ASC, product_code ASC").Find(&reqs).Error
	return reqs, err
}
