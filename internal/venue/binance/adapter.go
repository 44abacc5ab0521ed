// Package binance implements the venue adapter and pull fetcher for
// Binance USDT-margined futures.
package binance

import (
	"errors"
	"time"

	"ordo/internal/order"
	"ordo/internal/pkg/convert"
	"ordo/internal/pkg/maputil"
	"ordo/internal/pkg/symbol"
	"ordo/internal/venue"

	"github.com/adshao/go-binance/v2/common"
)

const Name = "binance"

// DefaultTables is the stock Binance futures mapping; config entries
// overlay it.
var DefaultTables = venue.Tables{
	OrderTypes: map[order.ExecStyle]string{
		order.StyleMarket:     "MARKET",
		order.StyleLimit:      "LIMIT",
		order.StyleStopMarket: "STOP_MARKET",
		order.StyleStopLimit:  "STOP",
	},
	StatusRules: map[order.Category]order.StatusRule{
		order.CategoryOpened:          {Key: "venue_status", Value: "NEW"},
		order.CategoryPartiallyFilled: {Key: "venue_status", Value: "PARTIALLY_FILLED"},
		order.CategoryClosed:          {Key: "venue_status", Value: "FILLED"},
		order.CategoryCanceled:        {Key: "venue_status", Value: "CANCELED"},
		order.CategoryExpired:         {Key: "venue_status", Value: "EXPIRED"},
		order.CategoryRejected:        {Key: "venue_status", Value: "REJECTED"},
	},
}

// Error codes with special retry semantics. Everything else is
// transient.
var (
	fatalCodes = map[int64]struct{}{
		-2021: {}, // order would immediately trigger: price outside trigger bounds
		-2022: {}, // reduce-only order rejected: intent misconfigured
		-4142: {}, // invalid price bounds
	}
	benignCodes = map[int64]struct{}{
		-2011: {}, // unknown order sent: target already gone
		-4046: {}, // no need to change margin type
	}
	notVisibleCodes = map[int64]struct{}{
		-2013: {}, // order does not exist (yet)
	}
)

type Adapter struct {
	tables    venue.Tables
	rateLimit time.Duration
}

func NewAdapter(overlay venue.Tables, rateLimit time.Duration) *Adapter {
	if rateLimit <= 0 {
		rateLimit = 500 * time.Millisecond
	}
	return &Adapter{tables: DefaultTables.Merge(overlay), rateLimit: rateLimit}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) ResolveSymbol(raw string) string {
	return symbol.FromBinance(raw)
}

// ReduceOnly lives top-level on Binance payloads; market close orders
// flag closePosition instead.
func (a *Adapter) ReduceOnly(payload map[string]any) (bool, bool) {
	for _, key := range []string{"reduceOnly", "reduce_only"} {
		if maputil.Has(payload, key) {
			return convert.ToBool(payload[key])
		}
	}
	if maputil.Has(payload, "closePosition") {
		return convert.ToBool(payload["closePosition"])
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
	if err == nil {
		return venue.ClassTransient
	}
	if errors.Is(err, venue.ErrNotVisible) {
		return venue.ClassTransient
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if _, ok := fatalCodes[apiErr.Code]; ok {
			return venue.ClassFatal
		}
		if _, ok := benignCodes[apiErr.Code]; ok {
			return venue.ClassBenign
		}
	}
	return venue.ClassOf(err)
}
