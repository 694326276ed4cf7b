package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionCreateReorderPolicy     = "CREATE_REORDER_POLICY"
	ActionDeactivateReorderPolicy = "DEACTIVATE_REORDER_POLICY"
	ActionRunMRP                  = "RUN_MRP"
	ActionCreateLandedCost        = "CREATE_LANDED_COST"
	ActionAddLandedCostLine       = "ADD_LANDED_COST_LINE"
	ActionRemoveLandedCostLine    = "REMOVE_LANDED_COST_LINE"
	ActionCalculateLandedCost     = "CALCULATE_LANDED_COST"
	ActionApplyLandedCost         = "APPLY_LANDED_COST"
)

// AuditLog tracks Who, What, and When for planning and costing changes
type AuditLog struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	ActorID        *uuid.UUID     `gorm:"type:uuid;index" json:"actor_id"` // nil for scheduled jobs
	Action         string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID       string         `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName     string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details        datatypes.JSON `json:"details"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}
