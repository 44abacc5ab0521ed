package gate

import (
	"math"

	"ordo/internal/pkg/convert"
	"ordo/internal/pkg/maputil"
)

// TranslateOrder reshapes one futures.orders / futures.price_orders
// push frame into the pull payload shape. Gate sends orders on the wire
// exactly as the REST endpoints do (signed contract counts, no symbol
// key, no partial-fill state), so the same flattening applies.
func (a *Adapter) TranslateOrder(frame map[string]any) (map[string]any, bool) {
	if maputil.Has(frame, "initial") {
		return translateTrigger(frame)
	}
	if !maputil.Has(frame, "contract") || !maputil.Has(frame, "size") {
		return nil, false
	}

	size := maputil.Float(frame, "size")
	left := maputil.Float(frame, "left")
	amount := math.Abs(size)
	filled := amount - math.Abs(left)
	status := maputil.String(frame, "status")

	side := "buy"
	if size < 0 {
		side = "sell"
	}
	typ := "limit"
	if maputil.Float(frame, "price") == 0 {
		typ = "market"
	}
	return map[string]any{
		"id":        maputil.ID(frame, "id"),
		"symbol":    maputil.String(frame, "contract"),
		"type":      typ,
		"side":      side,
		"status":    status,
		"state":     deriveState(status, maputil.String(frame, "finish_as"), filled, amount),
		"price":     maputil.String(frame, "price"),
		"amount":    amount,
		"filled":    filled,
		"remaining": math.Abs(left),
		"average":   maputil.String(frame, "fill_price"),
		"info":      frame,
	}, true
}

func translateTrigger(frame map[string]any) (map[string]any, bool) {
	init := maputil.Nested(frame, "initial")
	if !maputil.Has(init, "contract") {
		return nil, false
	}
	size := maputil.Float(init, "size")
	amount := math.Abs(size)
	status := maputil.String(frame, "status")

	side := "buy"
	if size < 0 {
		side = "sell"
	}
	typ := "trigger_limit"
	if maputil.Float(init, "price") == 0 {
		typ = "trigger_market"
	}
	trigger := convert.ToFloat64(maputil.Nested(frame, "trigger")["price"])
	return map[string]any{
		"id":            maputil.ID(frame, "id"),
		"symbol":        maputil.String(init, "contract"),
		"type":          typ,
		"side":          side,
		"status":        status,
		"state":         deriveTriggerState(status, maputil.String(frame, "finish_as")),
		"price":         maputil.String(init, "price"),
		"amount":        amount,
		"filled":        0.0,
		"remaining":     amount,
		"trigger_price": trigger,
		"info":          frame,
	}, true
}
