package repository

import (
	"context"
	"errors"
	"fmt"

	"supplychain/internal/apperr"
	"supplychain/internal/inventory"
	"supplychain/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Product, error)
	FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.Product, error)
	UpdatePurchaseCost(ctx context.Context, id uuid.UUID, cost decimal.Decimal) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ? AND organization_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND organization_id = ?", id, orgID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) UpdatePurchaseCost(ctx context.Context, id uuid.UUID, cost decimal.Decimal) error {
	return GetDB(ctx, r.db).Model(&model.Product{}).Where("id = ?", id).Update("purchase_cost", cost).Error
}

type inventoryReader struct {
	products ProductRepository
}

// NewInventoryReader serves inventory snapshots from the product master. Reads
// join the transaction carried by ctx, if any.
func NewInventoryReader(products ProductRepository) inventory.Reader {
	return &inventoryReader{products: products}
}

func (r *inventoryReader) Snapshot(ctx context.Context, orgID, productID uuid.UUID) (inventory.Snapshot, error) {
	p, err := r.products.FindByID(ctx, orgID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inventory.Snapshot{}, apperr.Wrap(apperr.ErrNotFound, "product %s not found", productID)
		}
		return inventory.Snapshot{}, fmt.Errorf("failed to read product %s: %w", productID, err)
	}
	return inventory.Snapshot{
		ProductID:    p.ID,
		Code:         p.Code,
		Name:         p.Name,
		OnHand:       p.CurrentStock,
		Allocated:    p.AllocatedStock,
		PurchaseCost: p.PurchaseCost,
	}, nil
}
