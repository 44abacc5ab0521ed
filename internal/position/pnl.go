package position

import (
	"math"

	"github.com/shopspring/decimal"
)

// Calculator computes trade value, commission and realized PnL with the
// venue's truncation precision. Truncation is toward zero, never
// rounding, to match venue fee conventions.
type Calculator struct {
	CommissionRate      float64
	ValuePrecision      int32
	CommissionPrecision int32
}

// Value is the quote-currency notional of a fill.
func (c Calculator) Value(size, price float64) float64 {
	if price <= 0 {
		return 0
	}
	v := decimal.NewFromFloat(math.Abs(size)).Mul(decimal.NewFromFloat(price))
	f, _ := v.Truncate(c.ValuePrecision).Float64()
	return f
}

// Commission estimates the fee for a fill. The venue-reported fee, when
// present and non-zero, always overrides this estimate (see Charge).
func (c Calculator) Commission(size, price float64) float64 {
	if price <= 0 {
		return 0
	}
	v := decimal.NewFromFloat(math.Abs(size)).
		Mul(decimal.NewFromFloat(c.CommissionRate)).
		Mul(decimal.NewFromFloat(price))
	f, _ := v.Truncate(c.CommissionPrecision).Float64()
	return f
}

// Charge returns the actual cost of a fill: the venue fee when the
// venue reported one, the local estimate otherwise.
func (c Calculator) Charge(size, price float64, venueFee *float64) float64 {
	if venueFee != nil && *venueFee != 0 {
		return *venueFee
	}
	return c.Commission(size, price)
}

// RealizedPnL computes profit/loss of a close. closedSize is signed by
// the direction of the position being closed: positive when reducing a
// long, negative when reducing a short. Zero/absent prices and equal
// prices yield zero.
func (c Calculator) RealizedPnL(closedSize, entryPrice, exitPrice float64) float64 {
	if entryPrice <= 0 || exitPrice <= 0 || entryPrice == exitPrice || closedSize == 0 {
		return 0
	}
	size := decimal.NewFromFloat(math.Abs(closedSize))
	entry := decimal.NewFromFloat(entryPrice)
	exit := decimal.NewFromFloat(exitPrice)
	var pnl decimal.Decimal
	if closedSize > 0 {
		pnl = size.Mul(exit.Sub(entry))
	} else {
		pnl = size.Mul(entry.Sub(exit))
	}
	f, _ := pnl.Truncate(c.ValuePrecision).Float64()
	return f
}
