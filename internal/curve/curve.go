// Package curve implements the linear bonding curve that prices every asset
// on the venue.
//
// Price formula: P(s) = basePrice + slope*s. The market cap of an asset is
// its reserve (TVL), not supply*price, because P is a marginal price.
package curve

// LinearCurve is a pure pricing function parameterized by base price and
// slope. It carries no state and is safe for concurrent use.
type LinearCurve struct {
	basePrice float64
	slope     float64
}

// NewLinear creates a linear bonding curve with the given parameters.
func NewLinear(basePrice, slope float64) LinearCurve {
	return LinearCurve{basePrice: basePrice, slope: slope}
}

// PriceAtSupply returns the spot price at supply s.
func (c LinearCurve) PriceAtSupply(s float64) float64 {
	return c.basePrice + c.slope*s
}

// CostToBuy returns the cost of buying q tokens starting from supply s.
//
// The price rises continuously during the purchase, so the cost is the exact
// integral of P from s to s+q:
//
//	b*q + m*((s+q)^2 - s^2)/2
//
// not PriceAtSupply(s)*q. The closed form keeps results reproducible; a
// numerical integral would not.
func (c LinearCurve) CostToBuy(s, q float64) float64 {
	return c.basePrice*q + c.slope*((s+q)*(s+q)-s*s)/2
}

// RefundForSell returns the refund for selling q tokens from supply s.
//
// Selling burns from the top of the supply downward: the integral of P from
// s-q to s, mirroring CostToBuy with reversed bounds. Callers must ensure
// s >= q; the curve itself does not check.
func (c LinearCurve) RefundForSell(s, q float64) float64 {
	return c.basePrice*q + c.slope*(s*s-(s-q)*(s-q))/2
}
