package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the product master record: stock levels and purchase cost.
type Product struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_products_org_code" json:"organization_id"`
	Code           string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_products_org_code" json:"code"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	CurrentStock   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"current_stock"`
	AllocatedStock decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"allocated_stock"`
	PurchaseCost   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"purchase_cost"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// OrderType constants
const (
	OrderTypeSales    = "SALES"
	OrderTypePurchase = "PURCHASE"
)

// OrderStatus constants
const (
	OrderStatusOpen      = "OPEN"
	OrderStatusClosed    = "CLOSED"
	OrderStatusCancelled = "CANCELLED"
)

// Order is a sales or purchase order header.
type Order struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID   `gorm:"type:uuid;not null;index" json:"organization_id"`
	OrderCode      string      `gorm:"type:varchar(100);not null;index" json:"order_code"`
	Type           string      `gorm:"type:varchar(20);not null;index" json:"type"` // SALES, PURCHASE
	Status         string      `gorm:"type:varchar(20);not null;index" json:"status"`
	PartnerID      *uuid.UUID  `gorm:"type:uuid;index" json:"partner_id"`
	Partner        *Partner    `gorm:"foreignKey:PartnerID" json:"partner,omitempty"`
	Lines          []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// OrderLine is a line item of an Order. For sales lines RequiredDate is the
// promised delivery date; for purchase lines UnitCost is the invoiced price.
type OrderLine struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Order             *Order          `gorm:"foreignKey:OrderID" json:"-"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product           *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	DeliveredQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"delivered_quantity"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"unit_cost"`
	RequiredDate      *time.Time      `gorm:"index" json:"required_date"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (l *OrderLine) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}

// OpenQuantity is what is still to be delivered on the line.
func (l OrderLine) OpenQuantity() decimal.Decimal {
	return l.Quantity.Sub(l.DeliveredQuantity)
}

// Value is quantity times unit cost.
func (l OrderLine) Value() decimal.Decimal {
	return l.Quantity.Mul(l.UnitCost)
}

// ProductCostChange records every purchase cost overwrite made by a landed
// cost application, since the overwrite itself keeps no history.
type ProductCostChange struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"organization_id"`
	ProductID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	LandedCostHeaderID uuid.UUID       `gorm:"type:uuid;not null;index" json:"landed_cost_header_id"`
	PreviousCost       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"previous_cost"`
	NewCost            decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"new_cost"`
	ChangedBy          *uuid.UUID      `gorm:"type:uuid" json:"changed_by"`
	CreatedAt          time.Time       `json:"created_at"`
}

func (c *ProductCostChange) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
