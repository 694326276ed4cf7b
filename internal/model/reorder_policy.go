package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PolicyType selects which threshold fields of a ReorderPolicy are authoritative.
type PolicyType string

const (
	PolicyMinMax        PolicyType = "min_max"
	PolicyReorderPoint  PolicyType = "reorder_point"
	PolicyFixedQuantity PolicyType = "fixed_quantity"
	PolicyEOQ           PolicyType = "economic_order_quantity"
)

// PolicyTypes lists every declared policy type.
var PolicyTypes = []PolicyType{PolicyMinMax, PolicyReorderPoint, PolicyFixedQuantity, PolicyEOQ}

// Valid reports whether t is one of the declared policy types.
func (t PolicyType) Valid() bool {
	for _, pt := range PolicyTypes {
		if t == pt {
			return true
		}
	}
	return false
}

// ReorderPolicy is the replenishment rule for one product. Fields that the
// policy type does not use are stored but ignored.
type ReorderPolicy struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index:idx_policies_org_product" json:"organization_id"`
	ProductID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_policies_org_product" json:"product_id"`
	Product        *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	PolicyType     PolicyType `gorm:"type:varchar(40);not null" json:"policy_type"`

	MinQuantity     decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0" json:"min_quantity"`
	MaxQuantity     decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0" json:"max_quantity"`
	ReorderPoint    decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"reorder_point"`
	ReorderQuantity decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0" json:"reorder_quantity"`
	SafetyStock     decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0" json:"safety_stock"`
	LeadTimeDays    int                 `gorm:"not null;default:0" json:"lead_time_days"`

	// EOQ inputs
	AnnualDemand       decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"annual_demand"`
	HoldingCostPercent decimal.NullDecimal `gorm:"type:decimal(10,4)" json:"holding_cost_percent"`
	OrderingCost       decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"ordering_cost"`

	PreferredSupplierID *uuid.UUID `gorm:"type:uuid;index" json:"preferred_supplier_id"`
	PreferredSupplier   *Partner   `gorm:"foreignKey:PreferredSupplierID" json:"preferred_supplier,omitempty"`
	AutoReorder         bool       `json:"auto_reorder"`
	IsActive            bool       `gorm:"index" json:"is_active"`
	CreatedBy           *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (p *ReorderPolicy) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
