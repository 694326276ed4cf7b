package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MRPRunStatus values
type MRPRunStatus string

const (
	MRPStatusPending   MRPRunStatus = "pending"
	MRPStatusRunning   MRPRunStatus = "running"
	MRPStatusCompleted MRPRunStatus = "completed"
	MRPStatusFailed    MRPRunStatus = "failed"
)

// MRPRun is the header of one planning execution.
type MRPRun struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"organization_id"`
	RunCode           string           `gorm:"type:varchar(50);not null;uniqueIndex" json:"run_code"`
	RunAt             time.Time        `gorm:"not null;index" json:"run_at"`
	RequestedBy       *uuid.UUID       `gorm:"type:uuid" json:"requested_by"`
	HorizonDays       int              `gorm:"not null" json:"horizon_days"`
	Status            MRPRunStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalRequirements int              `gorm:"not null;default:0" json:"total_requirements"`
	ShortageCount     int              `gorm:"not null;default:0" json:"shortage_count"`
	StartedAt         time.Time        `json:"started_at"`
	EndedAt           *time.Time       `json:"ended_at"`
	DurationSeconds   float64          `gorm:"type:decimal(12,3);default:0" json:"duration_seconds"`
	ErrorMessage      string           `gorm:"type:text" json:"error_message"`
	Filters           datatypes.JSON   `json:"filters"` // run parameters snapshot
	Requirements      []MRPRequirement `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func (r *MRPRun) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}

// RequirementSource says where a requirement's demand came from.
type RequirementSource string

const (
	SourceSalesOrder      RequirementSource = "sales_order"
	SourceProductionOrder RequirementSource = "production_order"
	SourceSafetyStock     RequirementSource = "safety_stock"
)

// SuggestedAction is the planner's recommendation for a requirement.
type SuggestedAction string

const (
	ActionPurchase SuggestedAction = "purchase"
	ActionProduce  SuggestedAction = "produce"
	ActionNone     SuggestedAction = "none"
)

// MRPRequirement is one netted demand line of a run. Rows are written once
// and never updated.
type MRPRequirement struct {
	ID                     uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	RunID                  uuid.UUID         `gorm:"type:uuid;not null;index" json:"run_id"`
	OrganizationID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"organization_id"`
	ProductID              uuid.UUID         `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductCode            string            `gorm:"type:varchar(100)" json:"product_code"`
	ProductName            string            `gorm:"type:varchar(255)" json:"product_name"`
	RequiredQuantity       decimal.Decimal   `gorm:"type:decimal(18,4);not null" json:"required_quantity"`
	RequiredDate           time.Time         `gorm:"not null" json:"required_date"`
	OnHandQuantity         decimal.Decimal   `gorm:"type:decimal(18,4);not null" json:"on_hand_quantity"`
	AllocatedQuantity      decimal.Decimal   `gorm:"type:decimal(18,4);not null" json:"allocated_quantity"`
	AvailableQuantity      decimal.Decimal   `gorm:"type:decimal(18,4);not null" json:"available_quantity"`
	ShortageQuantity       decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0" json:"shortage_quantity"`
	Source                 RequirementSource `gorm:"type:varchar(30);not null" json:"source"`
	SourceOrderID          *uuid.UUID        `gorm:"type:uuid" json:"source_order_id"`
	SourceLineID           *uuid.UUID        `gorm:"type:uuid" json:"source_line_id"`
	SuggestedAction        SuggestedAction   `gorm:"type:varchar(20);not null;index" json:"suggested_action"`
	SuggestedOrderQuantity decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0" json:"suggested_order_quantity"`
	SuggestedOrderDate     *time.Time        `json:"suggested_order_date"`
	CreatedAt              time.Time         `json:"created_at"`
}

func (r *MRPRequirement) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
