package repository

import (
	"context"
	"time"

	"supplychain/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderRepository interface {
	FindOpenSalesLines(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]model.OrderLine, error)
	FindPurchaseOrder(ctx context.Context, orgID, id uuid.UUID) (*model.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// FindOpenSalesLines returns lines of open sales orders whose required date
// falls in [from, to], earliest first.
func (r *orderRepository) FindOpenSalesLines(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]model.OrderLine, error) {
	var lines []model.OrderLine
	err := GetDB(ctx, r.db).
		Joins("JOIN orders ON orders.id = order_lines.order_id").
		Where("orders.organization_id = ? AND orders.type = ? AND orders.status = ?",
			orgID, model.OrderTypeSales, model.OrderStatusOpen).
		Where("order_lines.required_date >= ? AND order_lines.required_date <= ?", from, to).
		Order("order_lines.required_date ASC, order_lines.id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *orderRepository) FindPurchaseOrder(ctx context.Context, orgID, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Partner").
		First(&order, "id = ? AND organization_id = ? AND type = ?", id, orgID, model.OrderTypePurchase).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
