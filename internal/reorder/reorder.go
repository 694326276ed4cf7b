// Package reorder decides whether a product is due for replenishment under its
// reorder policy and how much to order. It never places orders itself.
package reorder

import (
	"fmt"

	"supplychain/internal/apperr"
	"supplychain/internal/eoq"
	"supplychain/internal/inventory"
	"supplychain/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Suggestion is a due reorder. AutoReorder is passed through for the consumer
// that decides whether to raise a requisition.
type Suggestion struct {
	ProductID           uuid.UUID        `json:"product_id"`
	ProductCode         string           `json:"product_code"`
	ProductName         string           `json:"product_name"`
	CurrentStock        decimal.Decimal  `json:"current_stock"`
	PolicyID            uuid.UUID        `json:"policy_id"`
	PolicyType          model.PolicyType `json:"policy_type"`
	SuggestedQuantity   decimal.Decimal  `json:"suggested_quantity"`
	PreferredSupplierID *uuid.UUID       `json:"preferred_supplier_id"`
	LeadTimeDays        int              `json:"lead_time_days"`
	Reason              string           `json:"reason"`
	AutoReorder         bool             `json:"auto_reorder"`
	EOQ                 *eoq.Result      `json:"eoq,omitempty"`
}

// Evaluate applies policy to the product's current stock. It returns nil, nil
// when no reorder is due. unitCost is only consulted by the EOQ policy.
func Evaluate(policy model.ReorderPolicy, stock inventory.Snapshot, unitCost decimal.Decimal) (*Suggestion, error) {
	current := stock.OnHand

	switch policy.PolicyType {
	case model.PolicyReorderPoint:
		point := policy.ReorderPoint.Decimal
		if !policy.ReorderPoint.Valid || current.GreaterThan(point) {
			return nil, nil
		}
		s := newSuggestion(policy, stock, policy.ReorderQuantity)
		s.Reason = fmt.Sprintf("stock %s is at or below reorder point %s", current, point)
		return s, nil

	case model.PolicyMinMax:
		if !current.LessThan(policy.MinQuantity) {
			return nil, nil
		}
		s := newSuggestion(policy, stock, policy.MaxQuantity.Sub(current))
		s.Reason = fmt.Sprintf("stock %s is below minimum %s; refill to maximum %s", current, policy.MinQuantity, policy.MaxQuantity)
		return s, nil

	case model.PolicyEOQ:
		return evaluateEOQ(policy, stock, unitCost)

	case model.PolicyFixedQuantity:
		return nil, apperr.Wrap(apperr.ErrNotSupported, "policy type %s is not yet supported", policy.PolicyType)

	default:
		return nil, apperr.Wrap(apperr.ErrNotSupported, "unknown policy type %q", policy.PolicyType)
	}
}

func evaluateEOQ(policy model.ReorderPolicy, stock inventory.Snapshot, unitCost decimal.Decimal) (*Suggestion, error) {
	if !policy.AnnualDemand.Valid || !policy.OrderingCost.Valid || !policy.HoldingCostPercent.Valid {
		return nil, apperr.Wrap(apperr.ErrInvalidParameter, "economic_order_quantity policy requires annual_demand, ordering_cost and holding_cost_percent")
	}
	if !unitCost.IsPositive() {
		return nil, apperr.Wrap(apperr.ErrInvalidParameter, "economic_order_quantity policy requires a positive unit cost, got %s", unitCost)
	}

	threshold, label := policy.SafetyStock, "safety stock"
	if policy.ReorderPoint.Valid {
		threshold, label = policy.ReorderPoint.Decimal, "reorder point"
	}
	if stock.OnHand.GreaterThan(threshold) {
		return nil, nil
	}

	res, err := eoq.Compute(eoq.Params{
		AnnualDemand:       policy.AnnualDemand.Decimal,
		OrderingCost:       policy.OrderingCost.Decimal,
		HoldingCostPercent: policy.HoldingCostPercent.Decimal,
		UnitCost:           unitCost,
	})
	if err != nil {
		return nil, err
	}

	s := newSuggestion(policy, stock, res.EOQ)
	s.EOQ = &res
	s.Reason = fmt.Sprintf("stock %s is at or below %s %s; order economic quantity %s", stock.OnHand, label, threshold, res.EOQ.Round(2))
	return s, nil
}

func newSuggestion(policy model.ReorderPolicy, stock inventory.Snapshot, qty decimal.Decimal) *Suggestion {
	return &Suggestion{
		ProductID:           stock.ProductID,
		ProductCode:         stock.Code,
		ProductName:         stock.Name,
		CurrentStock:        stock.OnHand,
		PolicyID:            policy.ID,
		PolicyType:          policy.PolicyType,
		SuggestedQuantity:   qty,
		PreferredSupplierID: policy.PreferredSupplierID,
		LeadTimeDays:        policy.LeadTimeDays,
		AutoReorder:         policy.AutoReorder,
	}
}
