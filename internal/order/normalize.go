package order

import (
	"math"
	"strings"
	"time"

	"ordo/internal/logger"
	"ordo/internal/pkg/convert"
	"ordo/internal/pkg/maputil"
)

// StatusRule is one venue classification entry: the payload field to
// inspect and the value that marks the category.
type StatusRule struct {
	Key   string
	Value string
}

// VenueSchema is the slice of a venue adapter the normalizer needs.
// Implementations live in internal/venue.
type VenueSchema interface {
	Name() string
	// ResolveSymbol maps the venue symbol spelling to the internal
	// symbol id; empty means unknown.
	ResolveSymbol(raw string) string
	// ReduceOnly resolves the reduce-only flag from its venue-specific
	// location. found=false means the payload lacks the flag entirely.
	ReduceOnly(payload map[string]any) (value, found bool)
	// ExecStyleFor reverse-looks-up the venue order-type string.
	ExecStyleFor(venueType string) (ExecStyle, bool)
	// StatusRule returns the classification rule for a category.
	StatusRule(cat Category) (StatusRule, bool)
}

// Snapshot is the canonical view of one raw venue order payload.
type Snapshot struct {
	ID       string
	SymbolID string
	Kind     OrderingKind
	Style    ExecStyle
	Intent   Intent
	PosSide  PositionSide
	Side     Side
	Status   Status

	Price        float64
	Amount       float64
	Average      float64
	Filled       float64
	Remaining    float64
	TriggerPrice float64

	Fee   *float64
	Fills []Fill

	// Raw is the payload with canonical keys merged in; unrecognized
	// keys pass through untouched.
	Raw map[string]any
}

// keyRenames: ambiguous raw keys and their canonical spellings. The
// rename is non-destructive; the original key stays in place.
var keyRenames = [][2]string{
	{"type", "execution_type_name"},
	{"symbol", "symbol_name"},
	{"side", "side_name"},
	{"status", "venue_status"},
}

var numericKeys = []string{"price", "amount", "average", "filled", "remaining", "trigger_price"}

// triggerAliases are tried in order when the payload has no
// "trigger_price" key of its own.
var triggerAliases = []string{"stopPrice", "triggerPrice", "stop_price"}

// Normalizer derives canonical order fields from raw per-venue payloads.
// It is pure: no I/O, deterministic for a given payload + venue.
type Normalizer struct {
	schema VenueSchema
}

func NewNormalizer(schema VenueSchema) *Normalizer {
	return &Normalizer{schema: schema}
}

// Normalize turns a raw venue payload into a canonical Snapshot.
// Failures are always *SchemaError: a mapping gap cannot be fixed by
// retrying.
func (n *Normalizer) Normalize(payload map[string]any) (*Snapshot, error) {
	venue := n.schema.Name()
	p := maputil.Clone(payload)

	for _, r := range keyRenames {
		if maputil.Has(p, r[0]) && !maputil.Has(p, r[1]) {
			p[r[1]] = p[r[0]]
		}
	}

	id := maputil.String(p, "id")
	if id == "" {
		return nil, &SchemaError{Venue: venue, Field: "id", Got: p["id"]}
	}

	rawSymbol := maputil.String(p, "symbol_name")
	symbolID := n.schema.ResolveSymbol(rawSymbol)
	if symbolID == "" {
		return nil, &SchemaError{Venue: venue, Field: "symbol_name", Got: rawSymbol}
	}
	p["symbol_id"] = symbolID

	if !maputil.Has(p, "trigger_price") {
		for _, alias := range triggerAliases {
			if maputil.Has(p, alias) {
				p["trigger_price"] = p[alias]
				break
			}
		}
	}
	for _, key := range numericKeys {
		p[key] = convert.ToFloat64(p[key])
	}

	reduceOnly, found := n.schema.ReduceOnly(p)
	if !found {
		return nil, &SchemaError{Venue: venue, Field: "reduce_only", Got: nil}
	}
	p["reduce_only"] = reduceOnly

	snap := &Snapshot{
		ID:           id,
		SymbolID:     symbolID,
		Price:        maputil.Float(p, "price"),
		Amount:       maputil.Float(p, "amount"),
		Average:      maputil.Float(p, "average"),
		Filled:       maputil.Float(p, "filled"),
		Remaining:    maputil.Float(p, "remaining"),
		TriggerPrice: maputil.Float(p, "trigger_price"),
		Raw:          p,
	}

	snap.Kind = KindActive
	if snap.TriggerPrice > 0 {
		snap.Kind = KindConditional
	}

	styleName := maputil.String(p, "execution_type_name")
	style, ok := n.schema.ExecStyleFor(styleName)
	if !ok {
		return nil, &SchemaError{Venue: venue, Field: "execution_type_name", Got: styleName}
	}
	snap.Style = style

	snap.Intent = IntentEntry
	if reduceOnly {
		snap.Intent = IntentExit
	}

	side, ok := ParseSide(maputil.String(p, "side_name"))
	if !ok {
		return nil, &SchemaError{Venue: venue, Field: "side_name", Got: p["side_name"]}
	}
	snap.Side = side
	snap.PosSide = DerivePositionSide(side, snap.Intent)

	status, err := n.classifyStatus(p)
	if err != nil {
		return nil, err
	}
	snap.Status = status
	p["status"] = string(status)

	if fee := feeCost(p); fee != nil {
		snap.Fee = fee
	}
	snap.Fills = parseFills(p)

	if snap.Amount > 0 {
		if diff := math.Abs(snap.Filled + snap.Remaining - snap.Amount); diff > SizeTolerance {
			return nil, &InvariantError{
				OrderID: id,
				What:    "filled+remaining != requested",
				Want:    snap.Amount,
				Got:     snap.Filled + snap.Remaining,
			}
		}
	}
	return snap, nil
}

// classifyStatus tests the payload against the venue's six category
// rules in fixed precedence order; the first match wins. No match is a
// schema error, and every attempt is logged first so a mapping gap is
// diagnosable from the log alone.
func (n *Normalizer) classifyStatus(p map[string]any) (Status, error) {
	for _, cat := range CategoryPrecedence {
		rule, ok := n.schema.StatusRule(cat)
		if !ok {
			continue
		}
		if statusRuleMatches(p, rule) {
			return cat.StatusOf(), nil
		}
	}
	for _, cat := range CategoryPrecedence {
		rule, ok := n.schema.StatusRule(cat)
		if !ok {
			logger.Warnf("normalize: venue=%s category=%s has no rule configured", n.schema.Name(), cat)
			continue
		}
		logger.Warnf("normalize: venue=%s category=%s key=%s want=%q got=%q no match",
			n.schema.Name(), cat, rule.Key, rule.Value, maputil.String(p, rule.Key))
	}
	return "", &SchemaError{Venue: n.schema.Name(), Field: "venue_status", Got: p["venue_status"]}
}

func statusRuleMatches(p map[string]any, rule StatusRule) bool {
	if rule.Key == "" {
		return false
	}
	got := maputil.String(p, rule.Key)
	if got == "" {
		return false
	}
	return strings.EqualFold(got, rule.Value)
}

func feeCost(p map[string]any) *float64 {
	raw := maputil.Nested(p, "fee")
	if raw == nil {
		return nil
	}
	if !maputil.Has(raw, "cost") || raw["cost"] == nil {
		return nil
	}
	cost := convert.ToFloat64(raw["cost"])
	return &cost
}

// parseFills extracts individual trade fills when the payload carries
// them (ccxt-style "trades" list). Missing list is normal.
func parseFills(p map[string]any) []Fill {
	raw, ok := p["trades"].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	fills := make([]Fill, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		f := Fill{
			ID:    maputil.String(m, "id"),
			Size:  convert.ToFloat64(firstPresent(m, "amount", "qty", "size")),
			Price: convert.ToFloat64(m["price"]),
		}
		if fee := feeCost(m); fee != nil {
			f.Fee = *fee
		}
		if ts := convert.ToFloat64(m["timestamp"]); ts > 0 {
			f.Time = time.UnixMilli(int64(ts))
		}
		if f.ID == "" || f.Size <= 0 {
			continue
		}
		fills = append(fills, f)
	}
	return fills
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if maputil.Has(m, k) {
			return m[k]
		}
	}
	return nil
}
