// Package gate implements the venue adapter and pull fetcher for Gate
// USDT perpetual futures.
package gate

import (
	"errors"
	"time"

	"ordo/internal/order"
	"ordo/internal/pkg/convert"
	"ordo/internal/pkg/maputil"
	"ordo/internal/pkg/symbol"
	"ordo/internal/venue"
)

const Name = "gate"

// DefaultTables classifies against the synthetic "state" field the
// fetcher derives (gate reports open/finished plus finish_as, which
// cannot distinguish a partial fill on its own).
var DefaultTables = venue.Tables{
	OrderTypes: map[order.ExecStyle]string{
		order.StyleMarket:     "market",
		order.StyleLimit:      "limit",
		order.StyleStopMarket: "trigger_market",
		order.StyleStopLimit:  "trigger_limit",
	},
	StatusRules: map[order.Category]order.StatusRule{
		order.CategoryOpened:          {Key: "state", Value: "open"},
		order.CategoryPartiallyFilled: {Key: "state", Value: "partial"},
		order.CategoryClosed:          {Key: "state", Value: "filled"},
		order.CategoryCanceled:        {Key: "state", Value: "cancelled"},
		order.CategoryExpired:         {Key: "state", Value: "expired"},
		order.CategoryRejected:        {Key: "state", Value: "failed"},
	},
}

// Error labels with special retry semantics.
var (
	fatalLabels = map[string]struct{}{
		"INVALID_PARAM":       {},
		"INVALID_PRICE":       {},
		"TRIGGER_PRICE_ERROR": {}, // trigger price outside bounds: misconfiguration
		"RISK_LIMIT_EXCEEDED": {},
	}
	benignLabels = map[string]struct{}{
		"POSITION_EMPTY": {}, // position already zero
		"ORDER_FINISHED": {}, // order too old to modify
		"ORDER_CLOSED":   {},
	}
)

type Adapter struct {
	tables    venue.Tables
	rateLimit time.Duration
}

func NewAdapter(overlay venue.Tables, rateLimit time.Duration) *Adapter {
	if rateLimit <= 0 {
		rateLimit = time.Second
	}
	return &Adapter{tables: DefaultTables.Merge(overlay), rateLimit: rateLimit}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) ResolveSymbol(raw string) string {
	return symbol.FromGate(raw)
}

// ReduceOnly is nested under the venue info sub-map on Gate payloads.
// Price-trigger orders carry it one level deeper, on the initial
// sub-order.
func (a *Adapter) ReduceOnly(payload map[string]any) (bool, bool) {
	info := maputil.Nested(payload, "info")
	for _, m := range []map[string]any{info, maputil.Nested(info, "initial")} {
		for _, key := range []string{"is_reduce_only", "reduce_only"} {
			if maputil.Has(m, key) {
				return convert.ToBool(m[key])
			}
		}
	}
	return false, false
}

func (a *Adapter) ExecStyleFor(venueType string) (order.ExecStyle, bool) {
	return a.tables.ExecStyleFor(venueType)
}

func (a *Adapter) StatusRule(cat order.Category) (order.StatusRule, bool) {
	return a.tables.StatusRule(cat)
}

func (a *Adapter) RateLimit() time.Duration { return a.rateLimit }

func (a *Adapter) Classify(err error) venue.ErrorClass {
	if err == nil || errors.Is(err, venue.ErrNotVisible) {
		return venue.ClassTransient
	}
	return venue.ClassOf(err)
}
