// Package venue abstracts a trading venue behind a small adapter
// surface: symbol resolution, order-type and status tables, reduce-only
// lookup and error classification. One implementation per venue lives
// in a sub-package; everything else in the system is venue-agnostic.
package venue

import (
	"context"
	"strings"
	"time"

	"ordo/internal/order"
)

// Adapter is the per-venue customization point. The tables are supplied
// by configuration; adapters ship sensible defaults.
type Adapter interface {
	order.VenueSchema

	// Classify sorts a venue call error into the retry taxonomy.
	Classify(err error) ErrorClass
	// RateLimit is the pause between retried venue calls.
	RateLimit() time.Duration
}

// Fetcher is the pull side of the order locator: a direct point-in-time
// order request against the venue, returning the raw payload map the
// normalizer consumes.
type Fetcher interface {
	FetchOrder(ctx context.Context, symbolID, orderID string) (map[string]any, error)
	FetchConditional(ctx context.Context, symbolID, orderID string) (map[string]any, error)
}

// Tables bundles the two per-venue mapping tables.
type Tables struct {
	// OrderTypes maps canonical execution styles to the venue's
	// order-type strings.
	OrderTypes map[order.ExecStyle]string
	// StatusRules maps the six classification categories to
	// (field key, expected value) pairs.
	StatusRules map[order.Category]order.StatusRule
}

// Merge overlays non-empty entries of other onto t.
func (t Tables) Merge(other Tables) Tables {
	out := Tables{
		OrderTypes:  make(map[order.ExecStyle]string, len(t.OrderTypes)),
		StatusRules: make(map[order.Category]order.StatusRule, len(t.StatusRules)),
	}
	for k, v := range t.OrderTypes {
		out.OrderTypes[k] = v
	}
	for k, v := range t.StatusRules {
		out.StatusRules[k] = v
	}
	for k, v := range other.OrderTypes {
		if v != "" {
			out.OrderTypes[k] = v
		}
	}
	for k, v := range other.StatusRules {
		if v.Key != "" {
			out.StatusRules[k] = v
		}
	}
	return out
}

// ExecStyleFor reverse-looks-up a venue order-type string.
func (t Tables) ExecStyleFor(venueType string) (order.ExecStyle, bool) {
	for style, name := range t.OrderTypes {
		if strings.EqualFold(name, venueType) {
			return style, true
		}
	}
	return "", false
}

// StatusRule returns the rule for one category.
func (t Tables) StatusRule(cat order.Category) (order.StatusRule, bool) {
	rule, ok := t.StatusRules[cat]
	return rule, ok
}

// Canceler is implemented by fetchers that can cancel an order.
type Canceler interface {
	CancelOrder(ctx context.Context, symbolID, orderID string, kind order.OrderingKind) error
}

// FrameTranslator is implemented by adapters whose push feed speaks a
// different shape than the pull payloads. TranslateOrder reshapes one
// websocket order frame into the same raw payload map the venue's
// fetcher would return, so cached entries normalize identically to
// pulled ones. ok=false marks a frame that carries no usable order.
type FrameTranslator interface {
	TranslateOrder(frame map[string]any) (payload map[string]any, ok bool)
}
