package eoq

import (
	"errors"
	"testing"

	"supplychain/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompute_TextbookCase(t *testing.T) {
	res, err := Compute(Params{
		AnnualDemand:       d("1000"),
		OrderingCost:       d("10"),
		HoldingCostPercent: d("20"),
		UnitCost:           d("10"),
	})
	require.NoError(t, err)

	assert.True(t, res.EOQ.Equal(d("100")), "eoq = %s", res.EOQ)
	assert.True(t, res.HoldingCostPerUnit.Equal(d("2")))
	assert.True(t, res.OrdersPerYear.Equal(d("10")))
	assert.True(t, res.DaysBetweenOrders.Equal(d("36.5")))
	assert.True(t, res.AnnualOrderingCost.Equal(d("100")))
	assert.True(t, res.AnnualHoldingCost.Equal(d("100")))
	assert.True(t, res.TotalAnnualCost.Equal(d("200")))
}

func TestCompute_FractionalEOQIsKept(t *testing.T) {
	res, err := Compute(Params{
		AnnualDemand:       d("1200"),
		OrderingCost:       d("50"),
		HoldingCostPercent: d("25"),
		UnitCost:           d("20"),
	})
	require.NoError(t, err)

	// sqrt(24000) = 154.9193338...
	assert.True(t, res.EOQ.Round(2).Equal(d("154.92")), "eoq = %s", res.EOQ)
	assert.False(t, res.EOQ.Equal(res.EOQ.Round(2)), "eoq should not be rounded")
	assert.True(t, res.TotalAnnualCost.Equal(d("774.60")), "total = %s", res.TotalAnnualCost)
}

func TestCompute_IsOptimalAgainstPerturbation(t *testing.T) {
	cases := []Params{
		{AnnualDemand: d("1000"), OrderingCost: d("10"), HoldingCostPercent: d("20"), UnitCost: d("10")},
		{AnnualDemand: d("5200"), OrderingCost: d("75"), HoldingCostPercent: d("18.5"), UnitCost: d("3.20")},
		{AnnualDemand: d("12"), OrderingCost: d("250"), HoldingCostPercent: d("30"), UnitCost: d("1500")},
		{AnnualDemand: d("365000"), OrderingCost: d("1.25"), HoldingCostPercent: d("5"), UnitCost: d("0.40")},
	}

	for _, p := range cases {
		res, err := Compute(p)
		require.NoError(t, err)
		assert.True(t, res.EOQ.IsPositive())

		atEOQ, err := TotalAnnualCost(p, res.EOQ)
		require.NoError(t, err)
		for _, factor := range []string{"0.9", "1.1"} {
			perturbed, err := TotalAnnualCost(p, res.EOQ.Mul(d(factor)))
			require.NoError(t, err)
			assert.True(t, atEOQ.LessThanOrEqual(perturbed),
				"cost at eoq %s should not exceed cost at x%s (%s)", atEOQ, factor, perturbed)
		}
	}
}

func TestCompute_InvalidParameters(t *testing.T) {
	testCases := []struct {
		name   string
		params Params
	}{
		{"zero holding percent", Params{AnnualDemand: d("100"), OrderingCost: d("5"), HoldingCostPercent: d("0"), UnitCost: d("10")}},
		{"zero unit cost", Params{AnnualDemand: d("100"), OrderingCost: d("5"), HoldingCostPercent: d("20"), UnitCost: d("0")}},
		{"negative holding percent", Params{AnnualDemand: d("100"), OrderingCost: d("5"), HoldingCostPercent: d("-1"), UnitCost: d("10")}},
		{"negative demand", Params{AnnualDemand: d("-100"), OrderingCost: d("5"), HoldingCostPercent: d("20"), UnitCost: d("10")}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Compute(tc.params)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrInvalidParameter))
			assert.Equal(t, Result{}, res)
		})
	}
}

func TestCompute_ZeroDemand(t *testing.T) {
	res, err := Compute(Params{AnnualDemand: d("0"), OrderingCost: d("10"), HoldingCostPercent: d("20"), UnitCost: d("10")})
	require.NoError(t, err)
	assert.True(t, res.EOQ.IsZero())
	assert.True(t, res.OrdersPerYear.IsZero())
	assert.True(t, res.DaysBetweenOrders.IsZero())
	assert.True(t, res.TotalAnnualCost.IsZero())
}

func TestTotalAnnualCost_RejectsNonPositiveQuantity(t *testing.T) {
	_, err := TotalAnnualCost(Params{AnnualDemand: d("10"), OrderingCost: d("1"), HoldingCostPercent: d("10"), UnitCost: d("1")}, decimal.Zero)
	assert.True(t, errors.Is(err, apperr.ErrInvalidParameter))
}
