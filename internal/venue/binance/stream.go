package binance

import (
	"ordo/internal/pkg/maputil"
)

// TranslateOrder reshapes the "o" object of an ORDER_TRADE_UPDATE
// user-data event into the pull payload shape. The stream spells every
// field with single-letter keys, so a cached frame would never
// normalize without this.
func (a *Adapter) TranslateOrder(frame map[string]any) (map[string]any, bool) {
	if !maputil.Has(frame, "i") || !maputil.Has(frame, "X") {
		return nil, false
	}
	amount := maputil.Float(frame, "q")
	filled := maputil.Float(frame, "z")
	payload := map[string]any{
		"id":        maputil.ID(frame, "i"),
		"symbol":    maputil.String(frame, "s"),
		"type":      maputil.String(frame, "o"),
		"side":      maputil.String(frame, "S"),
		"status":    maputil.String(frame, "X"),
		"price":     maputil.String(frame, "p"),
		"amount":    amount,
		"filled":    filled,
		"remaining": amount - filled,
		"average":   maputil.String(frame, "ap"),
		"stopPrice": maputil.String(frame, "sp"),
		"info":      frame,
	}
	if maputil.Has(frame, "R") {
		payload["reduceOnly"] = frame["R"]
	}
	if maputil.Has(frame, "cp") {
		payload["closePosition"] = frame["cp"]
	}
	return payload, true
}
