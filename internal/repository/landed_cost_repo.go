package repository

import (
	"context"

	"supplychain/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LandedCostRepository interface {
	CreateHeader(ctx context.Context, header *model.LandedCostHeader) error
	UpdateHeader(ctx context.Context, header *model.LandedCostHeader) error
	FindHeaderByID(ctx context.Context, orgID, id uuid.UUID) (*model.LandedCostHeader, error)
	FindHeaderForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.LandedCostHeader, error)
	ListHeaders(ctx context.Context, orgID uuid.UUID, status model.LandedCostStatus, page, limit int) ([]model.LandedCostHeader, int64, error)

	CreateLine(ctx context.Context, line *model.LandedCostLine) error
	DeleteLine(ctx context.Context, headerID, lineID uuid.UUID) (int64, error)
	ListLines(ctx context.Context, headerID uuid.UUID) ([]model.LandedCostLine, error)

	DeleteAllocations(ctx context.Context, headerID uuid.UUID) error
	CreateAllocations(ctx context.Context, allocations []model.LandedCostAllocation) error
	ListAllocations(ctx context.Context, headerID uuid.UUID) ([]model.LandedCostAllocation, error)
}

type landedCostRepository struct {
	db *gorm.DB
}

func NewLandedCostRepository(db *gorm.DB) LandedCostRepository {
	return &landedCostRepository{db: db}
}

func (r *landedCostRepository) CreateHeader(ctx context.Context, header *model.LandedCostHeader) error {
	return GetDB(ctx, r.db).Create(header).Error
}

func (r *landedCostRepository) UpdateHeader(ctx context.Context, header *model.LandedCostHeader) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(header).Error
}

func (r *landedCostRepository) FindHeaderByID(ctx context.Context, orgID, id uuid.UUID) (*model.LandedCostHeader, error) {
	var header model.LandedCostHeader
	if err := GetDB(ctx, r.db).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		First(&header, "id = ? AND organization_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &header, nil
}

func (r *landedCostRepository) FindHeaderForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.LandedCostHeader, error) {
	var header model.LandedCostHeader
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND organization_id = ?", id, orgID).First(&header).Error; err != nil {
		return nil, err
	}
	return &header, nil
}

func (r *landedCostRepository) ListHeaders(ctx context.Context, orgID uuid.UUID, status model.LandedCostStatus, page, limit int) ([]model.LandedCostHeader, int64, error) {
	var headers []model.LandedCostHeader
	var total int64

	query := GetDB(ctx, r.db).Model(&model.LandedCostHeader{}).Where("organization_id = ?", orgID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&headers).Error; err != nil {
		return nil, 0, err
	}

	return headers, total, nil
}

func (r *landedCostRepository) CreateLine(ctx context.Context, line *model.LandedCostLine) error {
	return GetDB(ctx, r.db).Create(line).Error
}

// DeleteLine reports the number of rows removed so callers can tell a missing
// line from a successful delete.
func (r *landedCostRepository) DeleteLine(ctx context.Context, headerID, lineID uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Where("id = ? AND header_id = ?", lineID, headerID).Delete(&model.LandedCostLine{})
	return res.RowsAffected, res.Error
}

func (r *landedCostRepository) ListLines(ctx context.Context, headerID uuid.UUID) ([]model.LandedCostLine, error) {
	var lines []model.LandedCostLine
	err := GetDB(ctx, r.db).Where("header_id = ?", headerID).Order("created_at ASC, id ASC").Find(&lines).Error
	return lines, err
}

func (r *landedCostRepository) DeleteAllocations(ctx context.Context, headerID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("header_id = ?", headerID).Delete(&model.LandedCostAllocation{}).Error
}

func (r *landedCostRepository) CreateAllocations(ctx context.Context, allocations []model.LandedCostAllocation) error {
	if len(allocations) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).CreateInBatches(&allocations, 200).Error
}

func (r *landedCostRepository) ListAllocations(ctx context.Context, headerID uuid.UUID) ([]model.LandedCostAllocation, error) {
	var allocations []model.LandedCostAllocation
	err := GetDB(ctx, r.db).Where("header_id = ?", headerID).Order("created_at ASC, id ASC").Find(&allocations).Error
	return allocations, err
}
