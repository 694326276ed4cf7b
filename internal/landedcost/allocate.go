// Package landedcost spreads indirect acquisition costs over the purchase lines
// of a shipment and derives the resulting landed unit costs.
package landedcost

import (
	"sort"

	"supplychain/internal/apperr"
	"supplychain/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var cent = decimal.New(1, -2)

// CostLine is the part of a landed cost line the allocation needs.
type CostLine struct {
	ID     uuid.UUID
	Amount decimal.Decimal
	Method model.AllocationMethod
}

// PurchaseLine is one purchased product line of the shipment.
type PurchaseLine struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
}

// Value is quantity times unit cost.
func (l PurchaseLine) Value() decimal.Decimal {
	return l.Quantity.Mul(l.UnitCost)
}

// Allocation is the share of one cost line carried by one purchase line.
type Allocation struct {
	CostLineID       uuid.UUID
	PurchaseLineID   uuid.UUID
	ProductID        uuid.UUID
	Quantity         decimal.Decimal
	OriginalUnitCost decimal.Decimal
	Ratio            decimal.Decimal
	AllocatedAmount  decimal.Decimal
	AllocatedPerUnit decimal.Decimal
	NewUnitCost      decimal.Decimal
}

// Totals are the header figures of a shipment.
type Totals struct {
	MerchandiseValue decimal.Decimal
	TotalLandedCosts decimal.Decimal
	TotalValue       decimal.Decimal
}

// ComputeTotals sums merchandise value and indirect costs.
func ComputeTotals(costLines []CostLine, lines []PurchaseLine) Totals {
	merchandise := decimal.Zero
	for _, l := range lines {
		merchandise = merchandise.Add(l.Value())
	}
	costs := decimal.Zero
	for _, c := range costLines {
		costs = costs.Add(c.Amount)
	}
	return Totals{
		MerchandiseValue: merchandise,
		TotalLandedCosts: costs,
		TotalValue:       merchandise.Add(costs),
	}
}

// Allocate returns one allocation per (cost line, purchase line) pair, cost
// lines in input order. Allocated amounts are in cents and, whenever the
// allocation basis is non-zero, add up exactly to the cost line amount.
func Allocate(costLines []CostLine, lines []PurchaseLine) ([]Allocation, error) {
	if len(costLines) > 0 && len(lines) == 0 {
		return nil, apperr.Wrap(apperr.ErrInvalidParameter, "shipment has no purchase lines")
	}
	out := make([]Allocation, 0, len(costLines)*len(lines))
	for _, c := range costLines {
		if c.Amount.IsNegative() {
			return nil, apperr.Wrap(apperr.ErrInvalidParameter, "cost line %s has negative amount %s", c.ID, c.Amount)
		}
		ratios, err := Ratios(c.Method, lines)
		if err != nil {
			return nil, err
		}
		amounts := spread(c.Amount, ratios)
		for i, l := range lines {
			perUnit := decimal.Zero
			if !l.Quantity.IsZero() {
				perUnit = amounts[i].Div(l.Quantity).Round(4)
			}
			out = append(out, Allocation{
				CostLineID:       c.ID,
				PurchaseLineID:   l.ID,
				ProductID:        l.ProductID,
				Quantity:         l.Quantity,
				OriginalUnitCost: l.UnitCost,
				Ratio:            ratios[i],
				AllocatedAmount:  amounts[i],
				AllocatedPerUnit: perUnit,
				NewUnitCost:      l.UnitCost.Add(perUnit),
			})
		}
	}
	return out, nil
}

// Ratios returns each purchase line's share of the allocation basis. A zero
// basis yields all-zero ratios. Weight, volume and manual bases need data the
// product master does not carry and are reported as not supported.
func Ratios(method model.AllocationMethod, lines []PurchaseLine) ([]decimal.Decimal, error) {
	var basis func(PurchaseLine) decimal.Decimal
	switch method {
	case model.AllocateByValue:
		basis = PurchaseLine.Value
	case model.AllocateByQuantity:
		basis = func(l PurchaseLine) decimal.Decimal { return l.Quantity }
	case model.AllocateByWeight, model.AllocateByVolume, model.AllocateManual:
		return nil, apperr.Wrap(apperr.ErrNotSupported, "allocation method %s is not yet supported", method)
	default:
		return nil, apperr.Wrap(apperr.ErrNotSupported, "unknown allocation method %q", method)
	}

	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(basis(l))
	}
	ratios := make([]decimal.Decimal, len(lines))
	for i, l := range lines {
		ratios[i] = decimal.Zero
		if !total.IsZero() {
			ratios[i] = basis(l).Div(total)
		}
	}
	return ratios, nil
}

// spread splits amount by ratios into cents using the largest remainder
// method: every share is floored to a cent and the cents left over go to the
// shares with the biggest truncated fraction, earliest line first on ties.
func spread(amount decimal.Decimal, ratios []decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(ratios))
	remainders := make([]decimal.Decimal, len(ratios))
	sumRatio := decimal.Zero
	floored := decimal.Zero
	for i, r := range ratios {
		exact := amount.Mul(r)
		shares[i] = exact.Truncate(2)
		remainders[i] = exact.Sub(shares[i])
		floored = floored.Add(shares[i])
		sumRatio = sumRatio.Add(r)
	}
	if sumRatio.IsZero() {
		return shares
	}

	leftover := amount.Round(2).Sub(floored).Div(cent).IntPart()
	if leftover <= 0 {
		return shares
	}

	order := make([]int, len(ratios))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})
	for k := int64(0); k < leftover && int(k) < len(order); k++ {
		i := order[k]
		shares[i] = shares[i].Add(cent)
	}
	return shares
}

// ProductUnitCosts folds allocations into one landed unit cost per product:
// (merchandise value + allocated costs) / quantity over all lines of that
// product, rounded to 4 places.
func ProductUnitCosts(allocations []Allocation, lines []PurchaseLine) map[uuid.UUID]decimal.Decimal {
	value := make(map[uuid.UUID]decimal.Decimal)
	qty := make(map[uuid.UUID]decimal.Decimal)
	for _, l := range lines {
		value[l.ProductID] = value[l.ProductID].Add(l.Value())
		qty[l.ProductID] = qty[l.ProductID].Add(l.Quantity)
	}
	for _, a := range allocations {
		value[a.ProductID] = value[a.ProductID].Add(a.AllocatedAmount)
	}

	costs := make(map[uuid.UUID]decimal.Decimal, len(qty))
	for productID, q := range qty {
		if q.IsZero() {
			continue
		}
		costs[productID] = value[productID].Div(q).Round(4)
	}
	return costs
}
