// Package trading provides position sizing arithmetic.
package trading

import "github.com/shopspring/decimal"

// ClampValue caps a proposed position value at limit. The second return is
// true when clamping actually reduced the value. Decimal arithmetic keeps the
// boundary comparison exact for dollar amounts that arrive as floats.
func ClampValue(proposed, limit float64) (float64, bool) {
	if proposed <= 0 || limit <= 0 {
		return 0, proposed > 0
	}
	p := decimal.NewFromFloat(proposed)
	l := decimal.NewFromFloat(limit)
	if p.LessThanOrEqual(l) {
		return proposed, false
	}
	v, _ := l.Float64()
	return v, true
}

// Headroom returns max-used floored at zero.
func Headroom(max, used float64) float64 {
	h, _ := decimal.NewFromFloat(max).Sub(decimal.NewFromFloat(used)).Float64()
	if h < 0 {
		return 0
	}
	return h
}

// Quantity converts an approved dollar value into an asset quantity at the
// given price. Returns 0 when price is not positive.
func Quantity(value, price float64) float64 {
	if price <= 0 || value <= 0 {
		return 0
	}
	q, _ := decimal.NewFromFloat(value).Div(decimal.NewFromFloat(price)).Float64()
	return q
}
