// Package eoq computes the Economic Order Quantity and its annual cost breakdown.
package eoq

import (
	"math"

	"supplychain/internal/apperr"

	"github.com/shopspring/decimal"
)

var (
	hundred     = decimal.NewFromInt(100)
	two         = decimal.NewFromInt(2)
	daysPerYear = decimal.NewFromInt(365)
)

// Params are the demand and cost inputs of the EOQ model.
type Params struct {
	AnnualDemand       decimal.Decimal
	OrderingCost       decimal.Decimal
	HoldingCostPercent decimal.Decimal
	UnitCost           decimal.Decimal
}

// HoldingCostPerUnit is the yearly cost of carrying one unit.
func (p Params) HoldingCostPerUnit() decimal.Decimal {
	return p.UnitCost.Mul(p.HoldingCostPercent).Div(hundred)
}

// Result is the EOQ breakdown. EOQ keeps full precision; every other figure is
// rounded to 2 decimal places.
type Result struct {
	EOQ                decimal.Decimal `json:"eoq"`
	HoldingCostPerUnit decimal.Decimal `json:"holding_cost_per_unit"`
	OrdersPerYear      decimal.Decimal `json:"orders_per_year"`
	DaysBetweenOrders  decimal.Decimal `json:"days_between_orders"`
	AnnualOrderingCost decimal.Decimal `json:"annual_ordering_cost"`
	AnnualHoldingCost  decimal.Decimal `json:"annual_holding_cost"`
	TotalAnnualCost    decimal.Decimal `json:"total_annual_cost"`
}

// Compute returns the EOQ for p, or ErrInvalidParameter when the holding cost
// per unit is not positive or demand/ordering cost is negative.
func Compute(p Params) (Result, error) {
	if err := validate(p); err != nil {
		return Result{}, err
	}

	h := p.HoldingCostPerUnit()
	q := sqrt(two.Mul(p.AnnualDemand).Mul(p.OrderingCost).Div(h))

	ordersPerYear := decimal.Zero
	if !q.IsZero() {
		ordersPerYear = p.AnnualDemand.Div(q)
	}
	daysBetween := decimal.Zero
	if !ordersPerYear.IsZero() {
		daysBetween = daysPerYear.Div(ordersPerYear)
	}

	orderingCost := ordersPerYear.Mul(p.OrderingCost)
	holdingCost := q.Div(two).Mul(h)

	return Result{
		EOQ:                q,
		HoldingCostPerUnit: h.Round(2),
		OrdersPerYear:      ordersPerYear.Round(2),
		DaysBetweenOrders:  daysBetween.Round(2),
		AnnualOrderingCost: orderingCost.Round(2),
		AnnualHoldingCost:  holdingCost.Round(2),
		TotalAnnualCost:    orderingCost.Add(holdingCost).Round(2),
	}, nil
}

// TotalAnnualCost evaluates ordering plus holding cost when ordering quantity
// units at a time. The value is not rounded.
func TotalAnnualCost(p Params, quantity decimal.Decimal) (decimal.Decimal, error) {
	if err := validate(p); err != nil {
		return decimal.Zero, err
	}
	if !quantity.IsPositive() {
		return decimal.Zero, apperr.Wrap(apperr.ErrInvalidParameter, "order quantity must be positive, got %s", quantity)
	}
	ordering := p.AnnualDemand.Div(quantity).Mul(p.OrderingCost)
	holding := quantity.Div(two).Mul(p.HoldingCostPerUnit())
	return ordering.Add(holding), nil
}

func validate(p Params) error {
	if h := p.HoldingCostPerUnit(); !h.IsPositive() {
		return apperr.Wrap(apperr.ErrInvalidParameter, "holding cost per unit must be positive, got %s", h)
	}
	if p.AnnualDemand.IsNegative() {
		return apperr.Wrap(apperr.ErrInvalidParameter, "annual demand cannot be negative, got %s", p.AnnualDemand)
	}
	if p.OrderingCost.IsNegative() {
		return apperr.Wrap(apperr.ErrInvalidParameter, "ordering cost cannot be negative, got %s", p.OrderingCost)
	}
	return nil
}

// sqrt seeds from float64 and refines with two Newton steps in decimal.
func sqrt(v decimal.Decimal) decimal.Decimal {
	if !v.IsPositive() {
		return decimal.Zero
	}
	x := decimal.NewFromFloat(math.Sqrt(v.InexactFloat64()))
	if x.IsZero() {
		return decimal.Zero
	}
	for i := 0; i < 2; i++ {
		x = x.Add(v.Div(x)).Div(two)
	}
	return x
}
