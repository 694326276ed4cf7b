package service

import (
	"context"
	"errors"
	"testing"

	"supplychain/internal/apperr"
	"supplychain/internal/model"
	"supplychain/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type landedFixture struct {
	st     *store
	svc    LandedCostService
	hub    *fakeHub
	locker repository.Locker
	actor  Actor
	a, b   model.Product
	po     model.Order
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func purchaseLine(productID uuid.UUID, qty, unitCost string) model.OrderLine {
	return model.OrderLine{ProductID: productID, Quantity: dec(qty), UnitCost: dec(unitCost)}
}

// newLandedFixture seeds a purchase order worth 1000: 10 x 60 of A and 20 x 20 of B.
func newLandedFixture(t *testing.T) *landedFixture {
	t.Helper()
	st := newStore()
	hub := &fakeHub{}
	locker := repository.NewLocalLocker()
	svc := NewLandedCostService(fakeLanded{st}, fakeOrders{st}, fakeProducts{st}, fakePartners{st},
		fakeChanges{st}, fakeAudit{st}, fakeTx{st}, locker, hub)

	user := uuid.New()
	actor := Actor{OrganizationID: uuid.New(), UserID: &user}
	a := st.addProduct(actor.OrganizationID, "A", "0", "0", "55")
	b := st.addProduct(actor.OrganizationID, "B", "0", "0", "18")
	po := st.addOrder(actor.OrganizationID, model.OrderTypePurchase,
		purchaseLine(a.ID, "10", "60"),
		purchaseLine(b.ID, "20", "20"),
	)
	return &landedFixture{st: st, svc: svc, hub: hub, locker: locker, actor: actor, a: a, b: b, po: po}
}

func (f *landedFixture) header(t *testing.T) *model.LandedCostHeader {
	t.Helper()
	h, err := f.svc.CreateHeader(context.Background(), f.actor, CreateLandedCostRequest{
		PurchaseOrderID:   f.po.ID.String(),
		ShipmentReference: "SHIP-1",
	})
	require.NoError(t, err)
	return h
}

func (f *landedFixture) addLine(t *testing.T, headerID uuid.UUID, amount string, method model.AllocationMethod) *model.LandedCostLine {
	t.Helper()
	l, err := f.svc.AddLine(context.Background(), f.actor, headerID.String(), AddLandedCostLineRequest{
		CostType:         model.CostFreight,
		Amount:           dec(amount),
		AllocationMethod: method,
	})
	require.NoError(t, err)
	return l
}

func TestLandedCost_CalculateAndApply(t *testing.T) {
	f := newLandedFixture(t)
	ctx := context.Background()

	h := f.header(t)
	assert.Equal(t, model.LandedCostDraft, h.Status)
	assert.True(t, h.MerchandiseValue.Equal(dec("1000")))

	f.addLine(t, h.ID, "100", model.AllocateByValue)

	calc, err := f.svc.Calculate(ctx, f.actor, h.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.LandedCostCalculated, calc.Status)
	assert.NotNil(t, calc.CalculatedAt)
	assert.True(t, calc.MerchandiseValue.Equal(dec("1000")))
	assert.True(t, calc.TotalLandedCosts.Equal(dec("100")))
	assert.True(t, calc.TotalValue.Equal(dec("1100")))
	require.Len(t, calc.Allocations, 2)

	byProduct := map[uuid.UUID]model.LandedCostAllocation{}
	for _, a := range calc.Allocations {
		byProduct[a.ProductID] = a
	}
	assert.True(t, byProduct[f.a.ID].AllocatedAmount.Equal(dec("60")))
	assert.True(t, byProduct[f.b.ID].AllocatedAmount.Equal(dec("40")))
	assert.True(t, byProduct[f.a.ID].NewUnitCost.Equal(dec("66")))
	assert.True(t, byProduct[f.b.ID].NewUnitCost.Equal(dec("22")))

	// calculate does not touch the product master
	assert.True(t, f.st.products[f.a.ID].PurchaseCost.Equal(dec("55")))

	applied, err := f.svc.Apply(ctx, f.actor, h.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.LandedCostApplied, applied.Status)
	assert.Equal(t, f.actor.UserID, applied.AppliedBy)
	assert.NotNil(t, applied.AppliedAt)
	require.Len(t, applied.CostChanges, 2)

	assert.True(t, f.st.products[f.a.ID].PurchaseCost.Equal(dec("66")))
	assert.True(t, f.st.products[f.b.ID].PurchaseCost.Equal(dec("22")))
	for _, c := range applied.CostChanges {
		if c.ProductID == f.a.ID {
			assert.True(t, c.PreviousCost.Equal(dec("55")))
			assert.True(t, c.NewCost.Equal(dec("66")))
		}
	}

	assert.Equal(t, []string{
		model.ActionCreateLandedCost,
		model.ActionAddLandedCostLine,
		model.ActionCalculateLandedCost,
		model.ActionApplyLandedCost,
	}, f.st.auditActions())
	assert.Equal(t, []string{EventLandedCostApplied}, f.hub.names())
}

func TestLandedCost_ApplyRequiresCalculated(t *testing.T) {
	f := newLandedFixture(t)
	ctx := context.Background()
	h := f.header(t)
	f.addLine(t, h.ID, "100", model.AllocateByValue)

	_, err := f.svc.Apply(ctx, f.actor, h.ID.String())
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
	assert.True(t, f.st.products[f.a.ID].PurchaseCost.Equal(dec("55")))
	assert.True(t, f.st.products[f.b.ID].PurchaseCost.Equal(dec("18")))
	assert.Empty(t, f.st.changes)
	assert.Equal(t, model.LandedCostDraft, f.st.headers[h.ID].Status)

	// applying twice is rejected the same way
	_, err = f.svc.Calculate(ctx, f.actor, h.ID.String())
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, f.actor, h.ID.String())
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, f.actor, h.ID.String())
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
	assert.Len(t, f.st.changes, 2)
}

func TestLandedCost_LineChangeMakesCalculationStale(t *testing.T) {
	f := newLandedFixture(t)
	ctx := context.Background()
	h := f.header(t)
	first := f.addLine(t, h.ID, "100", model.AllocateByValue)

	_, err := f.svc.Calculate(ctx, f.actor, h.ID.String())
	require.NoError(t, err)
	require.Len(t, f.st.allocations, 2)

	f.addLine(t, h.ID, "30", model.AllocateByQuantity)
	stored := f.st.headers[h.ID]
	assert.Equal(t, model.LandedCostDraft, stored.Status)
	assert.Nil(t, stored.CalculatedAt)
	assert.Empty(t, f.st.allocations)
	assert.True(t, stored.TotalLandedCosts.Equal(dec("130")))

	_, err = f.svc.Apply(ctx, f.actor, h.ID.String())
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))

	calc, err := f.svc.Calculate(ctx, f.actor, h.ID.String())
	require.NoError(t, err)
	assert.Len(t, calc.Allocations, 4)

	require.NoError(t, f.svc.RemoveLine(ctx, f.actor, h.ID.String(), first.ID.String()))
	stored = f.st.headers[h.ID]
	assert.Equal(t, model.LandedCostDraft, stored.Status)
	assert.True(t, stored.TotalLandedCosts.Equal(dec("30")))
	assert.True(t, stored.TotalValue.Equal(dec("1030")))

	err = f.svc.RemoveLine(ctx, f.actor, h.ID.String(), uuid.NewString())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestLandedCost_AppliedHeaderIsFinal(t *testing.T) {
	f := newLandedFixture(t)
	ctx := context.Background()
	h := f.header(t)
	line := f.addLine(t, h.ID, "100", model.AllocateByValue)
	_, err := f.svc.Calculate(ctx, f.actor, h.ID.String())
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, f.actor, h.ID.String())
	require.NoError(t, err)

	_, err = f.svc.AddLine(ctx, f.actor, h.ID.String(), AddLandedCostLineRequest{
		CostType: model.CostInsurance, Amount: dec("5"), AllocationMethod: model.AllocateByValue,
	})
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))

	err = f.svc.RemoveLine(ctx, f.actor, h.ID.String(), line.ID.String())
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))

	_, err = f.svc.Calculate(ctx, f.actor, h.ID.String())
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
	assert.True(t, f.st.products[f.a.ID].PurchaseCost.Equal(dec("66")))
}

func TestLandedCost_UnsupportedMethodLeavesHeaderUntouched(t *testing.T) {
	f := newLandedFixture(t)
	ctx := context.Background()
	h := f.header(t)
	f.addLine(t, h.ID, "100", model.AllocateByValue)
	_, err := f.svc.Calculate(ctx, f.actor, h.ID.String())
	require.NoError(t, err)

	for _, m := range []model.AllocationMethod{model.AllocateByWeight, model.AllocateByVolume, model.AllocateManual} {
		t.Run(string(m), func(t *testing.T) {
			line := f.addLine(t, h.ID, "10", m)
			_, err := f.svc.Calculate(ctx, f.actor, h.ID.String())
			assert.True(t, errors.Is(err, apperr.ErrNotSupported), "got %v", err)
			assert.Equal(t, model.LandedCostDraft, f.st.headers[h.ID].Status)
			assert.Empty(t, f.st.allocations)
			require.NoError(t, f.svc.RemoveLine(ctx, f.actor, h.ID.String(), line.ID.String()))
		})
	}
}

func TestLandedCost_CalculateRejectsEmptyShipment(t *testing.T) {
	f := newLandedFixture(t)
	ctx := context.Background()
	empty := f.st.addOrder(f.actor.OrganizationID, model.OrderTypePurchase)
	h, err := f.svc.CreateHeader(ctx, f.actor, CreateLandedCostRequest{PurchaseOrderID: empty.ID.String()})
	require.NoError(t, err)
	f.addLine(t, h.ID, "100", model.AllocateByValue)

	_, err = f.svc.Calculate(ctx, f.actor, h.ID.String())
	assert.True(t, errors.Is(err, apperr.ErrInvalidParameter), "got %v", err)
	assert.Equal(t, model.LandedCostDraft, f.st.headers[h.ID].Status)
	assert.Empty(t, f.st.allocations)

	_, err = f.svc.Apply(ctx, f.actor, h.ID.String())
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
}

func TestLandedCost_MultipleCostLinesConserveAmounts(t *testing.T) {
	f := newLandedFixture(t)
	ctx := context.Background()
	h := f.header(t)
	lines := []*model.LandedCostLine{
		f.addLine(t, h.ID, "100.01", model.AllocateByValue),
		f.addLine(t, h.ID, "33.33", model.AllocateByQuantity),
	}

	calc, err := f.svc.Calculate(ctx, f.actor, h.ID.String())
	require.NoError(t, err)
	require.Len(t, calc.Allocations, 4)
	for _, l := range lines {
		sum := decimal.Zero
		for _, a := range calc.Allocations {
			if a.CostLineID == l.ID {
				sum = sum.Add(a.AllocatedAmount)
			}
		}
		assert.True(t, sum.Equal(l.Amount), "line %s: %s != %s", l.ID, sum, l.Amount)
	}

	_, err = f.svc.Apply(ctx, f.actor, h.ID.String())
	require.NoError(t, err)

	// landed value of the shipment is preserved across the product master
	a := f.st.products[f.a.ID].PurchaseCost.Mul(dec("10"))
	b := f.st.products[f.b.ID].PurchaseCost.Mul(dec("20"))
	assert.True(t, a.Add(b).Sub(dec("1133.34")).Abs().LessThan(dec("0.01")), "got %s", a.Add(b))
}

func TestLandedCost_Validation(t *testing.T) {
	f := newLandedFixture(t)
	ctx := context.Background()
	h := f.header(t)

	sales := f.st.addOrder(f.actor.OrganizationID, model.OrderTypeSales, salesLine(f.a.ID, "1", "0", nil))
	_, err := f.svc.CreateHeader(ctx, f.actor, CreateLandedCostRequest{PurchaseOrderID: sales.ID.String()})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.svc.CreateHeader(ctx, Actor{OrganizationID: uuid.New()}, CreateLandedCostRequest{PurchaseOrderID: f.po.ID.String()})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	testCases := []struct {
		name string
		req  AddLandedCostLineRequest
		kind error
	}{
		{"zero amount", AddLandedCostLineRequest{CostType: model.CostFreight, Amount: decimal.Zero, AllocationMethod: model.AllocateByValue}, apperr.ErrInvalidParameter},
		{"negative amount", AddLandedCostLineRequest{CostType: model.CostFreight, Amount: dec("-1"), AllocationMethod: model.AllocateByValue}, apperr.ErrInvalidParameter},
		{"unknown cost type", AddLandedCostLineRequest{CostType: "bribe", Amount: dec("1"), AllocationMethod: model.AllocateByValue}, apperr.ErrInvalidParameter},
		{"unknown method", AddLandedCostLineRequest{CostType: model.CostFreight, Amount: dec("1"), AllocationMethod: "by_mood"}, apperr.ErrInvalidParameter},
		{"unknown supplier", AddLandedCostLineRequest{CostType: model.CostFreight, Amount: dec("1"), AllocationMethod: model.AllocateByValue, SupplierID: uuid.NewString()}, apperr.ErrNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.AddLine(ctx, f.actor, h.ID.String(), tc.req)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
		})
	}

	_, err = f.svc.AddLine(ctx, f.actor, uuid.NewString(), AddLandedCostLineRequest{
		CostType: model.CostFreight, Amount: dec("1"), AllocationMethod: model.AllocateByValue,
	})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Empty(t, f.st.costLines)
}

func TestLandedCost_ApplyConflict(t *testing.T) {
	f := newLandedFixture(t)
	ctx := context.Background()
	h := f.header(t)
	f.addLine(t, h.ID, "100", model.AllocateByValue)
	_, err := f.svc.Calculate(ctx, f.actor, h.ID.String())
	require.NoError(t, err)

	release, err := f.locker.TryLock(ctx, "landed_cost:"+h.ID.String())
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, f.actor, h.ID.String())
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.True(t, apperr.Retryable(err))
	assert.Equal(t, model.LandedCostCalculated, f.st.headers[h.ID].Status)
	release()

	_, err = f.svc.Apply(ctx, f.actor, h.ID.String())
	require.NoError(t, err)
}

func TestLandedCost_Queries(t *testing.T) {
	f := newLandedFixture(t)
	ctx := context.Background()
	h := f.header(t)
	f.header(t)
	f.addLine(t, h.ID, "100", model.AllocateByValue)
	_, err := f.svc.Calculate(ctx, f.actor, h.ID.String())
	require.NoError(t, err)

	_, total, err := f.svc.ListHeaders(ctx, f.actor, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	_, total, err = f.svc.ListHeaders(ctx, f.actor, string(model.LandedCostCalculated), 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	detail, err := f.svc.GetHeader(ctx, f.actor, h.ID.String())
	require.NoError(t, err)
	assert.Len(t, detail.Lines, 1)
	assert.Len(t, detail.Allocations, 2)
	assert.Empty(t, detail.CostChanges)

	_, err = f.svc.GetHeader(ctx, Actor{OrganizationID: uuid.New()}, h.ID.String())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
