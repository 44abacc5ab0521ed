package order

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ordo/internal/pkg/convert"
)

// fakeSchema is a minimal venue with binance-flavored tables.
type fakeSchema struct {
	rules map[Category]StatusRule
}

func newFakeSchema() *fakeSchema {
	return &fakeSchema{rules: map[Category]StatusRule{
		CategoryOpened:          {Key: "venue_status", Value: "NEW"},
		CategoryPartiallyFilled: {Key: "venue_status", Value: "PARTIALLY_FILLED"},
		CategoryClosed:          {Key: "venue_status", Value: "FILLED"},
		CategoryCanceled:        {Key: "venue_status", Value: "CANCELED"},
		CategoryExpired:         {Key: "venue_status", Value: "EXPIRED"},
		CategoryRejected:        {Key: "venue_status", Value: "REJECTED"},
	}}
}

func (f *fakeSchema) Name() string { return "fakex" }

func (f *fakeSchema) ResolveSymbol(raw string) string {
	switch raw {
	case "ETHUSDT", "ETH/USDT":
		return "ETH/USDT"
	case "BTCUSDT", "BTC/USDT":
		return "BTC/USDT"
	default:
		return ""
	}
}

func (f *fakeSchema) ReduceOnly(payload map[string]any) (bool, bool) {
	if v, ok := payload["reduceOnly"]; ok {
		return convert.ToBool(v)
	}
	return false, false
}

func (f *fakeSchema) ExecStyleFor(venueType string) (ExecStyle, bool) {
	switch venueType {
	case "MARKET":
		return StyleMarket, true
	case "LIMIT":
		return StyleLimit, true
	case "STOP_MARKET":
		return StyleStopMarket, true
	default:
		return "", false
	}
}

func (f *fakeSchema) StatusRule(cat Category) (StatusRule, bool) {
	rule, ok := f.rules[cat]
	return rule, ok
}

func basePayload() map[string]any {
	return map[string]any{
		"id":         "88001",
		"symbol":     "ETHUSDT",
		"type":       "LIMIT",
		"side":       "SELL",
		"status":     "NEW",
		"price":      "2000.5",
		"amount":     "1.5",
		"filled":     "0.5",
		"remaining":  "1.0",
		"average":    "1999.9",
		"reduceOnly": true,
	}
}

func TestNormalizeCanonicalFields(t *testing.T) {
	n := NewNormalizer(newFakeSchema())
	snap, err := n.Normalize(basePayload())
	assert.NoError(t, err)

	assert.Equal(t, "88001", snap.ID)
	assert.Equal(t, "ETH/USDT", snap.SymbolID)
	assert.Equal(t, KindActive, snap.Kind)
	assert.Equal(t, StyleLimit, snap.Style)
	assert.Equal(t, IntentExit, snap.Intent)
	assert.Equal(t, SideSell, snap.Side)
	// a sell exit closes a long
	assert.Equal(t, Long, snap.PosSide)
	assert.Equal(t, StatusAccepted, snap.Status)
	assert.Equal(t, 2000.5, snap.Price)
	assert.Equal(t, 1.5, snap.Amount)
	assert.Equal(t, 0.5, snap.Filled)
	assert.Equal(t, 1.0, snap.Remaining)

	// canonical keys are merged in; originals stay untouched
	assert.Equal(t, "LIMIT", snap.Raw["execution_type_name"])
	assert.Equal(t, "ETHUSDT", snap.Raw["symbol_name"])
	assert.Equal(t, "SELL", snap.Raw["side_name"])
	assert.Equal(t, "NEW", snap.Raw["venue_status"])
	assert.Equal(t, "LIMIT", snap.Raw["type"])
	assert.Equal(t, true, snap.Raw["reduce_only"])
	assert.Equal(t, "ETH/USDT", snap.Raw["symbol_id"])
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	n := NewNormalizer(newFakeSchema())
	payload := basePayload()
	_, err := n.Normalize(payload)
	assert.NoError(t, err)
	_, hasCanonical := payload["venue_status"]
	assert.False(t, hasCanonical)
	assert.Equal(t, "2000.5", payload["price"])
}

func TestNormalizeDeterministic(t *testing.T) {
	n := NewNormalizer(newFakeSchema())
	a, err := n.Normalize(basePayload())
	assert.NoError(t, err)
	b, err := n.Normalize(basePayload())
	assert.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeTriggerAlias(t *testing.T) {
	n := NewNormalizer(newFakeSchema())
	payload := basePayload()
	payload["type"] = "STOP_MARKET"
	payload["stopPrice"] = "1950"
	snap, err := n.Normalize(payload)
	assert.NoError(t, err)
	assert.Equal(t, KindConditional, snap.Kind)
	assert.Equal(t, 1950.0, snap.TriggerPrice)
	assert.Equal(t, StyleStopMarket, snap.Style)
}

func TestNormalizeEntryLongDerivation(t *testing.T) {
	n := NewNormalizer(newFakeSchema())
	payload := basePayload()
	payload["side"] = "BUY"
	payload["reduceOnly"] = false
	snap, err := n.Normalize(payload)
	assert.NoError(t, err)
	assert.Equal(t, IntentEntry, snap.Intent)
	assert.Equal(t, Long, snap.PosSide)
}

func TestNormalizeSchemaErrors(t *testing.T) {
	n := NewNormalizer(newFakeSchema())

	cases := []struct {
		name   string
		mutate func(map[string]any)
		field  string
	}{
		{"missing id", func(p map[string]any) { delete(p, "id") }, "id"},
		{"unknown symbol", func(p map[string]any) { p["symbol"] = "DOGEUSDT" }, "symbol_name"},
		{"unknown type", func(p map[string]any) { p["type"] = "ICEBERG" }, "execution_type_name"},
		{"missing reduce only", func(p map[string]any) { delete(p, "reduceOnly") }, "reduce_only"},
		{"unknown side", func(p map[string]any) { p["side"] = "BOTH" }, "side_name"},
		{"unknown status", func(p map[string]any) { p["status"] = "HALTED" }, "venue_status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := basePayload()
			tc.mutate(payload)
			_, err := n.Normalize(payload)
			var se *SchemaError
			assert.ErrorAs(t, err, &se)
			assert.Equal(t, tc.field, se.Field)
		})
	}
}

func TestNormalizeSizeInvariant(t *testing.T) {
	n := NewNormalizer(newFakeSchema())
	payload := basePayload()
	payload["remaining"] = "0.8" // 0.5 + 0.8 != 1.5
	_, err := n.Normalize(payload)
	var ie *InvariantError
	assert.ErrorAs(t, err, &ie)
}

func TestClassifyPrecedenceFirstMatchWins(t *testing.T) {
	// rules on distinct keys so several can match the same payload
	schema := newFakeSchema()
	schema.rules[CategoryOpened] = StatusRule{Key: "is_open", Value: "true"}
	schema.rules[CategoryClosed] = StatusRule{Key: "venue_status", Value: "FILLED"}
	n := NewNormalizer(schema)

	payload := basePayload()
	payload["status"] = "FILLED"
	payload["is_open"] = "true"
	payload["filled"] = "1.5"
	payload["remaining"] = "0"
	snap, err := n.Normalize(payload)
	assert.NoError(t, err)
	// opened precedes closed
	assert.Equal(t, StatusAccepted, snap.Status)
}

func TestParseFills(t *testing.T) {
	n := NewNormalizer(newFakeSchema())
	payload := basePayload()
	payload["trades"] = []any{
		map[string]any{"id": "t1", "amount": "0.3", "price": "2000", "fee": map[string]any{"cost": "0.12"}, "timestamp": 1700000000000.0},
		map[string]any{"id": "t2", "qty": 0.2, "price": 2001.0},
		map[string]any{"id": "", "amount": "0.1", "price": "2000"}, // no id, skipped
		map[string]any{"id": "t3", "amount": "0", "price": "2000"}, // zero size, skipped
	}
	snap, err := n.Normalize(payload)
	assert.NoError(t, err)
	assert.Len(t, snap.Fills, 2)
	assert.Equal(t, "t1", snap.Fills[0].ID)
	assert.Equal(t, 0.3, snap.Fills[0].Size)
	assert.Equal(t, 0.12, snap.Fills[0].Fee)
	assert.False(t, snap.Fills[0].Time.IsZero())
	assert.Equal(t, "t2", snap.Fills[1].ID)
	assert.Equal(t, 0.2, snap.Fills[1].Size)
}

func TestNormalizeOrderFee(t *testing.T) {
	n := NewNormalizer(newFakeSchema())
	payload := basePayload()
	payload["fee"] = map[string]any{"cost": "1.25", "currency": "USDT"}
	snap, err := n.Normalize(payload)
	assert.NoError(t, err)
	if assert.NotNil(t, snap.Fee) {
		assert.Equal(t, 1.25, *snap.Fee)
	}
}
