// Package position maintains the per-instrument, per-side position
// ledger and the commission / realized-PnL math. The update algorithm
// reproduces exact exchange semantics for average price and
// opened/closed attribution across partial fills, full closes and
// direction reversals.
package position

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Precision holds the instrument's quantity/price quantization, in
// decimal places.
type Precision struct {
	Quantity int32
	Price    int32
}

// DefaultPrecision matches the most common USDT-perp contracts.
var DefaultPrecision = Precision{Quantity: 8, Price: 8}

// Position is one side ledger for one instrument. Size is signed: the
// sign encodes direction for symmetric accounting.
type Position struct {
	SymbolID     string
	Slot         string // "long" / "short" hedge-mode slot
	Size         float64
	AveragePrice float64
	LastUpdate   time.Time
}

// Change is the opened/closed attribution of one update. Both carry the
// same sign as the applied size delta, and opened+closed always equals
// the delta exactly (pre-rounding).
type Change struct {
	Opened float64
	Closed float64
}

// Update applies one signed executed delta at fillPrice.
// Positive delta is buy-direction, negative sell-direction.
func (p *Position) Update(sizeDelta, fillPrice float64, at time.Time, prec Precision) (Change, error) {
	if math.IsNaN(sizeDelta) || math.IsInf(sizeDelta, 0) || math.IsNaN(fillPrice) || math.IsInf(fillPrice, 0) {
		return Change{}, fmt.Errorf("position %s/%s: non-finite update (delta=%v price=%v)", p.SymbolID, p.Slot, sizeDelta, fillPrice)
	}
	if sizeDelta != 0 && fillPrice <= 0 {
		// a free fill would zero the average while size stays nonzero
		return Change{}, fmt.Errorf("position %s/%s: non-positive fill price %v", p.SymbolID, p.Slot, fillPrice)
	}

	oldSize := p.Size
	oldPrice := p.AveragePrice
	newSize := oldSize + sizeDelta

	var ch Change
	var avg float64
	switch {
	case newSize == 0:
		// fully closed
		ch = Change{Opened: 0, Closed: sizeDelta}
		avg = 0
	case oldSize == 0:
		// opening from flat
		ch = Change{Opened: sizeDelta, Closed: 0}
		avg = fillPrice
	case oldSize > 0:
		switch {
		case sizeDelta > 0:
			// adding to long
			ch = Change{Opened: sizeDelta, Closed: 0}
			avg = (oldPrice*oldSize + sizeDelta*fillPrice) / newSize
		case newSize > 0:
			// partial reduction, still long
			ch = Change{Opened: 0, Closed: sizeDelta}
			avg = oldPrice
		default:
			// reversal long -> short
			ch = Change{Opened: newSize, Closed: -oldSize}
			avg = fillPrice
		}
	default: // oldSize < 0, existing short: mirror image
		switch {
		case sizeDelta < 0:
			// adding to short
			ch = Change{Opened: sizeDelta, Closed: 0}
			avg = (oldPrice*(-oldSize) + (-sizeDelta)*fillPrice) / -newSize
		case newSize < 0:
			// partial reduction, still short
			ch = Change{Opened: 0, Closed: sizeDelta}
			avg = oldPrice
		default:
			// reversal short -> long
			ch = Change{Opened: newSize, Closed: -oldSize}
			avg = fillPrice
		}
	}

	// Quantize only after the computation so rounding error never
	// compounds mid-formula.
	p.Size = quantize(newSize, prec.Quantity)
	p.AveragePrice = quantize(avg, prec.Price)
	if p.Size == 0 {
		p.AveragePrice = 0
		p.LastUpdate = time.Time{}
	} else {
		p.LastUpdate = at
	}
	return ch, nil
}

func quantize(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
