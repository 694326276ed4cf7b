package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PartnerType enum constants
const (
	PartnerTypeCustomer = "CUSTOMER"
	PartnerTypeSupplier = "SUPPLIER"
	PartnerTypeBoth     = "BOTH"
)

// Partner is a customer or supplier. The engine only reads suppliers, as the
// preferred source of a reorder policy or the issuer of a landed cost line.
type Partner struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	Type           string         `gorm:"type:varchar(20);not null;index" json:"type"` // CUSTOMER, SUPPLIER, BOTH
	TaxCode        string         `gorm:"type:varchar(50)" json:"tax_code"`
	ContactPerson  string         `gorm:"type:varchar(255)" json:"contact_person"`
	Email          string         `gorm:"type:varchar(255)" json:"email"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Partner) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// IsSupplier reports whether the partner can be purchased from.
func (p Partner) IsSupplier() bool {
	return p.Type == PartnerTypeSupplier || p.Type == PartnerTypeBoth
}
