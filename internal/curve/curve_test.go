package curve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trenches/ip-venue/internal/curve"
)

func TestLinearCurve_PriceAtSupply(t *testing.T) {
	c := curve.NewLinear(0.001, 0.01)

	assert.InDelta(t, 0.101, c.PriceAtSupply(10), 1e-12)
	assert.InDelta(t, 0.201, c.PriceAtSupply(20), 1e-12)
	assert.InDelta(t, 1.001, c.PriceAtSupply(100), 1e-12)
	assert.InDelta(t, 0.001, c.PriceAtSupply(0), 1e-12)
}

func TestLinearCurve_CostToBuy(t *testing.T) {
	c := curve.NewLinear(0.001, 0.01)

	// b*q + m*((s+q)^2 - s^2)/2 = 0.001*10 + 0.01*(400-100)/2 = 0.01 + 1.5
	assert.InDelta(t, 1.51, c.CostToBuy(10, 10), 1e-12)

	// Cost exceeds spot*qty because the price rises during the purchase
	assert.Greater(t, c.CostToBuy(10, 10), c.PriceAtSupply(10)*10)
}

func TestLinearCurve_RefundForSell(t *testing.T) {
	c := curve.NewLinear(0.001, 0.01)

	// Integral from 10 to 20 read backwards
	assert.InDelta(t, 1.51, c.RefundForSell(20, 10), 1e-12)
}

func TestLinearCurve_BuySellSymmetry(t *testing.T) {
	c := curve.NewLinear(0.001, 0.01)

	// Cost to go from s to s+q equals the refund to come back down
	cases := []struct{ s, q float64 }{
		{10, 10},
		{10, 0.5},
		{1000, 37.25},
		{0, 1},
	}
	for _, tc := range cases {
		cost := c.CostToBuy(tc.s, tc.q)
		refund := c.RefundForSell(tc.s+tc.q, tc.q)
		assert.InDelta(t, cost, refund, 1e-9, "s=%v q=%v", tc.s, tc.q)
	}
}
