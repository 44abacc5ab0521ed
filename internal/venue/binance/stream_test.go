package binance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ordo/internal/order"
	"ordo/internal/venue"
)

func TestTranslateUserDataOrder(t *testing.T) {
	a := NewAdapter(venue.Tables{}, 0)
	p, ok := a.TranslateOrder(map[string]any{
		"s":  "ETHUSDT",
		"i":  float64(8389765528),
		"S":  "BUY",
		"o":  "LIMIT",
		"X":  "PARTIALLY_FILLED",
		"q":  "1.5",
		"z":  "0.5",
		"p":  "2000",
		"ap": "1999.5",
		"sp": "0",
		"R":  false,
	})
	assert.True(t, ok)
	assert.Equal(t, "8389765528", p["id"])
	assert.Equal(t, "ETHUSDT", p["symbol"])
	assert.Equal(t, 1.5, p["amount"])
	assert.Equal(t, 0.5, p["filled"])
	assert.Equal(t, 1.0, p["remaining"])

	snap, err := order.NewNormalizer(a).Normalize(p)
	assert.NoError(t, err)
	assert.Equal(t, order.StatusPartiallyFilled, snap.Status)
	assert.Equal(t, order.SideBuy, snap.Side)
	assert.Equal(t, order.IntentEntry, snap.Intent)
	assert.Equal(t, order.KindActive, snap.Kind)
}

func TestTranslateUserDataStopOrder(t *testing.T) {
	a := NewAdapter(venue.Tables{}, 0)
	p, ok := a.TranslateOrder(map[string]any{
		"s": "ETHUSDT", "i": float64(7), "S": "SELL", "o": "STOP_MARKET",
		"X": "NEW", "q": "2", "z": "0", "p": "0", "sp": "1950", "R": true,
	})
	assert.True(t, ok)

	snap, err := order.NewNormalizer(a).Normalize(p)
	assert.NoError(t, err)
	assert.Equal(t, order.KindConditional, snap.Kind)
	assert.Equal(t, order.StyleStopMarket, snap.Style)
	assert.Equal(t, order.IntentExit, snap.Intent)
	assert.Equal(t, 1950.0, snap.TriggerPrice)
}

func TestTranslateRejectsNonOrderFrame(t *testing.T) {
	a := NewAdapter(venue.Tables{}, 0)
	_, ok := a.TranslateOrder(map[string]any{"e": "ACCOUNT_UPDATE"})
	assert.False(t, ok)
}
