package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testPrec = Precision{Quantity: 8, Price: 8}

func apply(t *testing.T, p *Position, delta, price float64) Change {
	t.Helper()
	ch, err := p.Update(delta, price, time.Now(), testPrec)
	assert.NoError(t, err)
	// opened+closed must always equal the applied delta
	assert.InDelta(t, delta, ch.Opened+ch.Closed, 1e-9)
	return ch
}

func TestOpenFromFlat(t *testing.T) {
	p := &Position{SymbolID: "ETH/USDT"}
	ch := apply(t, p, 1.0, 100)
	assert.Equal(t, Change{Opened: 1.0, Closed: 0}, ch)
	assert.Equal(t, 1.0, p.Size)
	assert.Equal(t, 100.0, p.AveragePrice)
	assert.False(t, p.LastUpdate.IsZero())
}

func TestAddToLongWeightsAverage(t *testing.T) {
	p := &Position{SymbolID: "ETH/USDT"}
	apply(t, p, 1.0, 100)
	ch := apply(t, p, 1.0, 110)
	assert.Equal(t, Change{Opened: 1.0, Closed: 0}, ch)
	assert.Equal(t, 2.0, p.Size)
	assert.Equal(t, 105.0, p.AveragePrice)
}

func TestPartialCloseKeepsAverage(t *testing.T) {
	p := &Position{SymbolID: "ETH/USDT"}
	apply(t, p, 2.0, 100)
	ch := apply(t, p, -0.5, 120)
	assert.Equal(t, Change{Opened: 0, Closed: -0.5}, ch)
	assert.Equal(t, 1.5, p.Size)
	// reducing never moves the entry average
	assert.Equal(t, 100.0, p.AveragePrice)
}

func TestFullCloseResetsLedger(t *testing.T) {
	p := &Position{SymbolID: "ETH/USDT"}
	apply(t, p, 1.0, 100)
	ch := apply(t, p, -1.0, 120)
	assert.Equal(t, Change{Opened: 0, Closed: -1.0}, ch)
	assert.Equal(t, 0.0, p.Size)
	assert.Equal(t, 0.0, p.AveragePrice)
	assert.True(t, p.LastUpdate.IsZero())
}

func TestReversalLongToShort(t *testing.T) {
	p := &Position{SymbolID: "ETH/USDT"}
	apply(t, p, 1.0, 100)
	ch := apply(t, p, -1.5, 110)
	assert.Equal(t, Change{Opened: -0.5, Closed: -1.0}, ch)
	assert.Equal(t, -0.5, p.Size)
	// the surviving short was opened at the reversal fill price
	assert.Equal(t, 110.0, p.AveragePrice)
}

func TestShortSideMirrors(t *testing.T) {
	p := &Position{SymbolID: "ETH/USDT"}
	ch := apply(t, p, -1.0, 100)
	assert.Equal(t, Change{Opened: -1.0, Closed: 0}, ch)
	assert.Equal(t, 100.0, p.AveragePrice)

	ch = apply(t, p, -1.0, 120)
	assert.Equal(t, Change{Opened: -1.0, Closed: 0}, ch)
	assert.Equal(t, -2.0, p.Size)
	assert.Equal(t, 110.0, p.AveragePrice)

	ch = apply(t, p, 0.5, 90)
	assert.Equal(t, Change{Opened: 0, Closed: 0.5}, ch)
	assert.Equal(t, -1.5, p.Size)
	assert.Equal(t, 110.0, p.AveragePrice)

	ch = apply(t, p, 2.5, 95)
	assert.Equal(t, Change{Opened: 1.0, Closed: 1.5}, ch)
	assert.Equal(t, 1.0, p.Size)
	assert.Equal(t, 95.0, p.AveragePrice)
}

func TestQuantizationAfterComputation(t *testing.T) {
	p := &Position{SymbolID: "ETH/USDT"}
	prec := Precision{Quantity: 3, Price: 2}
	_, err := p.Update(0.1, 100.0/3.0, time.Now(), prec)
	assert.NoError(t, err)
	assert.Equal(t, 0.1, p.Size)
	assert.Equal(t, 33.33, p.AveragePrice)

	_, err = p.Update(0.0001, 50, time.Now(), prec)
	assert.NoError(t, err)
	// quantity rounds to 3 places
	assert.Equal(t, 0.1, p.Size)
}

func TestUpdateRejectsBadInput(t *testing.T) {
	p := &Position{SymbolID: "ETH/USDT"}
	_, err := p.Update(1.0, -5, time.Now(), testPrec)
	assert.Error(t, err)

	// a zero-priced fill would leave size nonzero with average zero
	_, err = p.Update(1.0, 0, time.Now(), testPrec)
	assert.Error(t, err)
	assert.Equal(t, 0.0, p.Size)

	nan := 0.0
	nan = nan / nan
	_, err = p.Update(nan, 100, time.Now(), testPrec)
	assert.Error(t, err)
}

func TestBookOneWayModeSharesLedger(t *testing.T) {
	b := NewBook(false, testPrec)
	_, _, err := b.Apply("ETH/USDT", "long", 1.0, 100, time.Now())
	assert.NoError(t, err)
	// one-way mode keys by symbol only; slot is incidental
	got := b.Get("ETH/USDT", "short")
	assert.Equal(t, 1.0, got.Size)
}

func TestBookHedgeModeSeparatesSlots(t *testing.T) {
	b := NewBook(true, testPrec)
	_, _, err := b.Apply("ETH/USDT", "long", 1.0, 100, time.Now())
	assert.NoError(t, err)
	_, _, err = b.Apply("ETH/USDT", "short", -2.0, 100, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, 1.0, b.Get("ETH/USDT", "long").Size)
	assert.Equal(t, -2.0, b.Get("ETH/USDT", "short").Size)
}

func TestBookHedgeModeRejectsSignFlip(t *testing.T) {
	b := NewBook(true, testPrec)
	_, _, err := b.Apply("ETH/USDT", "long", 1.0, 100, time.Now())
	assert.NoError(t, err)
	// over-closing the long slot would leave a negative long
	_, _, err = b.Apply("ETH/USDT", "long", -1.5, 110, time.Now())
	assert.Error(t, err)
}

func TestBookSnapshotSkipsFlat(t *testing.T) {
	b := NewBook(false, testPrec)
	_, _, err := b.Apply("ETH/USDT", "", 1.0, 100, time.Now())
	assert.NoError(t, err)
	_, _, err = b.Apply("BTC/USDT", "", 0.5, 40000, time.Now())
	assert.NoError(t, err)
	_, _, err = b.Apply("ETH/USDT", "", -1.0, 110, time.Now())
	assert.NoError(t, err)

	snap := b.Snapshot()
	if assert.Len(t, snap, 1) {
		assert.Equal(t, "BTC/USDT", snap[0].SymbolID)
	}
}

func TestBookPerSymbolPrecision(t *testing.T) {
	b := NewBook(false, testPrec)
	b.SetPrecision("ETH/USDT", Precision{Quantity: 1, Price: 0})
	_, pos, err := b.Apply("ETH/USDT", "", 1.06, 100.4, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, 1.1, pos.Size)
	assert.Equal(t, 100.0, pos.AveragePrice)
}
