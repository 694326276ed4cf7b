// Package inventory defines the single read port through which the planner,
// the reorder evaluator, and the landed-cost allocator see stock and cost.
package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot is a point-in-time view of one product's stock and cost.
type Snapshot struct {
	ProductID    uuid.UUID       `json:"product_id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	OnHand       decimal.Decimal `json:"on_hand"`
	Allocated    decimal.Decimal `json:"allocated"`
	PurchaseCost decimal.Decimal `json:"purchase_cost"`
}

// Available is on-hand stock not yet promised to an order.
func (s Snapshot) Available() decimal.Decimal {
	return s.OnHand.Sub(s.Allocated)
}

// Reader returns snapshots. Implementations return an error matching
// apperr.ErrNotFound when the product does not exist in the organization.
type Reader interface {
	Snapshot(ctx context.Context, orgID, productID uuid.UUID) (Snapshot, error)
}
