package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LandedCostStatus values
type LandedCostStatus string

const (
	LandedCostDraft      LandedCostStatus = "draft"
	LandedCostCalculated LandedCostStatus = "calculated"
	LandedCostApplied    LandedCostStatus = "applied"
)

// CostType classifies an indirect acquisition cost.
type CostType string

const (
	CostFreight     CostType = "freight"
	CostInsurance   CostType = "insurance"
	CostCustomsDuty CostType = "customs_duty"
	CostHandling    CostType = "handling"
	CostOther       CostType = "other"
)

// Valid reports whether t is a declared cost type.
func (t CostType) Valid() bool {
	switch t {
	case CostFreight, CostInsurance, CostCustomsDuty, CostHandling, CostOther:
		return true
	}
	return false
}

// AllocationMethod is the basis used to spread a cost line over the shipment.
type AllocationMethod string

const (
	AllocateByValue    AllocationMethod = "by_value"
	AllocateByQuantity AllocationMethod = "by_quantity"
	AllocateByWeight   AllocationMethod = "by_weight"
	AllocateByVolume   AllocationMethod = "by_volume"
	AllocateManual     AllocationMethod = "manual"
)

// Valid reports whether m is a declared allocation method.
func (m AllocationMethod) Valid() bool {
	switch m {
	case AllocateByValue, AllocateByQuantity, AllocateByWeight, AllocateByVolume, AllocateManual:
		return true
	}
	return false
}

// LandedCostHeader groups the indirect costs of one purchase shipment.
type LandedCostHeader struct {
	ID                uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID    uuid.UUID              `gorm:"type:uuid;not null;index" json:"organization_id"`
	PurchaseOrderID   uuid.UUID              `gorm:"type:uuid;not null;index" json:"purchase_order_id"`
	PurchaseOrder     *Order                 `gorm:"foreignKey:PurchaseOrderID" json:"-"`
	ShipmentReference string                 `gorm:"type:varchar(100)" json:"shipment_reference"`
	ShipmentDate      *time.Time             `json:"shipment_date"`
	MerchandiseValue  decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0" json:"merchandise_value"`
	TotalLandedCosts  decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0" json:"total_landed_costs"`
	TotalValue        decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0" json:"total_value"`
	Status            LandedCostStatus       `gorm:"type:varchar(20);not null;index" json:"status"`
	CalculatedAt      *time.Time             `json:"calculated_at"`
	AppliedBy         *uuid.UUID             `gorm:"type:uuid" json:"applied_by"`
	AppliedAt         *time.Time             `json:"applied_at"`
	CreatedBy         *uuid.UUID             `gorm:"type:uuid" json:"created_by"`
	Lines             []LandedCostLine       `gorm:"foreignKey:HeaderID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
	Allocations       []LandedCostAllocation `gorm:"foreignKey:HeaderID;constraint:OnDelete:CASCADE" json:"allocations,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

func (h *LandedCostHeader) BeforeCreate(*gorm.DB) error {
	assignID(&h.ID)
	return nil
}

// LandedCostLine is one indirect cost item of a header.
type LandedCostLine struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	HeaderID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"header_id"`
	CostType         CostType         `gorm:"type:varchar(30);not null" json:"cost_type"`
	Description      string           `gorm:"type:text" json:"description"`
	Amount           decimal.Decimal  `gorm:"type:decimal(18,4);not null" json:"amount"`
	AllocationMethod AllocationMethod `gorm:"type:varchar(20);not null" json:"allocation_method"`
	SupplierID       *uuid.UUID       `gorm:"type:uuid" json:"supplier_id"`
	InvoiceReference string           `gorm:"type:varchar(100)" json:"invoice_reference"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (l *LandedCostLine) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}

// LandedCostAllocation is the share of one cost line carried by one purchase
// line. The set is rebuilt from scratch on every calculation.
type LandedCostAllocation struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	HeaderID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"header_id"`
	CostLineID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"cost_line_id"`
	PurchaseLineID   uuid.UUID       `gorm:"type:uuid;not null" json:"purchase_line_id"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	OriginalUnitCost decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"original_unit_cost"`
	AllocationRatio  decimal.Decimal `gorm:"type:decimal(12,8);not null" json:"allocation_ratio"`
	AllocatedAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"allocated_amount"`
	AllocatedPerUnit decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"allocated_per_unit"`
	NewUnitCost      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"new_unit_cost"`
	CreatedAt        time.Time       `json:"created_at"`
}

func (a *LandedCostAllocation) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}
