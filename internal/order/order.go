// Package order holds the canonical, venue-agnostic order model and the
// logic that moves it through its lifecycle: normalization of raw venue
// payloads and the per-order state machine.
package order

import (
	"fmt"
	"strings"
	"time"
)

// SizeTolerance is the fixed decimal tolerance used when comparing
// requested size against filled+remaining.
const SizeTolerance = 1e-8

// Side 订单方向。
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide normalizes a venue side spelling ("BUY", "Sell", ...).
func ParseSide(raw string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "long":
		return SideBuy, true
	case "sell", "short":
		return SideSell, true
	default:
		return "", false
	}
}

// OrderingKind distinguishes how the venue tracks the order: by a plain
// order id or by a trigger/stop order id.
type OrderingKind string

const (
	KindActive      OrderingKind = "active"
	KindConditional OrderingKind = "conditional"
)

// ExecStyle 执行方式（venue-agnostic）。
type ExecStyle string

const (
	StyleMarket     ExecStyle = "market"
	StyleLimit      ExecStyle = "limit"
	StyleStopMarket ExecStyle = "stop_market"
	StyleStopLimit  ExecStyle = "stop_limit"
)

// Intent says whether the order opens or reduces a position.
type Intent string

const (
	IntentEntry Intent = "entry"
	IntentExit  Intent = "exit"
)

// PositionSide is the position direction the order works on.
type PositionSide string

const (
	Long  PositionSide = "long"
	Short PositionSide = "short"
)

// DerivePositionSide applies the canonical rule: an entry matches side to
// position directly, an exit inverts it (a sell exit closes a long).
func DerivePositionSide(side Side, intent Intent) PositionSide {
	if intent == IntentExit {
		if side == SideSell {
			return Long
		}
		return Short
	}
	if side == SideSell {
		return Short
	}
	return Long
}

// Status 订单状态。
type Status string

const (
	StatusSubmitted       Status = "submitted"
	StatusAccepted        Status = "accepted"
	StatusPartiallyFilled Status = "partially_filled"
	StatusCompleted       Status = "completed"
	StatusCanceled        Status = "canceled"
	StatusRejected        Status = "rejected"
	StatusExpired         Status = "expired"
)

// Terminal reports whether the status retires the order.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCanceled, StatusRejected, StatusExpired:
		return true
	default:
		return false
	}
}

// Category is one of the six venue classification buckets. Each venue
// maps every category to a (field key, expected value) pair; the
// classifier tests them in fixed precedence order.
type Category string

const (
	CategoryOpened          Category = "opened"
	CategoryPartiallyFilled Category = "partially_filled"
	CategoryClosed          Category = "closed"
	CategoryCanceled        Category = "canceled"
	CategoryExpired         Category = "expired"
	CategoryRejected        Category = "rejected"
)

// CategoryPrecedence: first match wins.
var CategoryPrecedence = []Category{
	CategoryOpened,
	CategoryPartiallyFilled,
	CategoryClosed,
	CategoryRejected,
	CategoryCanceled,
	CategoryExpired,
}

var categoryStatus = map[Category]Status{
	CategoryOpened:          StatusAccepted,
	CategoryPartiallyFilled: StatusPartiallyFilled,
	CategoryClosed:          StatusCompleted,
	CategoryCanceled:        StatusCanceled,
	CategoryExpired:         StatusExpired,
	CategoryRejected:        StatusRejected,
}

// StatusOf maps a matched category to the canonical status.
func (c Category) StatusOf() Status {
	return categoryStatus[c]
}

// Fill 单笔成交记录。
type Fill struct {
	ID    string
	Size  float64
	Price float64
	Fee   float64
	Time  time.Time
}

// Order is the canonical mutable order record. It is owned exclusively
// by the Machine wrapping it until the order is retired.
type Order struct {
	ID       string
	ClientID string
	SymbolID string
	Kind     OrderingKind
	Style    ExecStyle
	Intent   Intent
	PosSide  PositionSide
	Side     Side
	Status   Status

	RequestedSize float64
	FilledSize    float64
	RemainingSize float64

	Price        float64
	AvgFillPrice float64
	TriggerPrice float64

	Fee *float64

	// AppliedFills guards fill replay against double counting.
	AppliedFills map[string]struct{}
	// ledgerApplied is the executed size already folded into the
	// position ledger (replayed fills plus the completion residual).
	ledgerApplied float64

	CreatedAt time.Time
	UpdatedAt time.Time

	// Raw keeps the latest venue payload verbatim for audit/debug.
	Raw map[string]any
}

// New builds a freshly submitted order from a normalized snapshot.
// Submitted is the only entry state; the venue has not confirmed yet.
func New(snap *Snapshot, clientID string, now time.Time) *Order {
	o := &Order{
		ID:           snap.ID,
		ClientID:     clientID,
		SymbolID:     snap.SymbolID,
		Kind:         snap.Kind,
		Style:        snap.Style,
		Intent:       snap.Intent,
		PosSide:      snap.PosSide,
		Side:         snap.Side,
		Status:       StatusSubmitted,
		AppliedFills: make(map[string]struct{}),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	o.refresh(snap, now)
	return o
}

// refresh copies venue-reported fields onto the order. Identity fields
// are adopted when still unset, which is how journal-recovered orders
// learn their side and style on the first reconciled snapshot.
func (o *Order) refresh(snap *Snapshot, now time.Time) {
	if o.Side == "" {
		o.Side = snap.Side
		o.Style = snap.Style
		o.Intent = snap.Intent
		o.PosSide = snap.PosSide
		if o.Kind == "" {
			o.Kind = snap.Kind
		}
	}
	o.RequestedSize = snap.Amount
	o.FilledSize = snap.Filled
	o.RemainingSize = snap.Remaining
	o.Price = snap.Price
	if snap.Average > 0 {
		o.AvgFillPrice = snap.Average
	}
	o.TriggerPrice = snap.TriggerPrice
	if snap.Fee != nil {
		o.Fee = snap.Fee
	}
	o.Raw = snap.Raw
	o.UpdatedAt = now
}

// SignedDelta converts an executed size to the signed convention of the
// position ledger: buy-direction positive, sell-direction negative.
func (o *Order) SignedDelta(executed float64) float64 {
	if o.Side == SideSell {
		return -executed
	}
	return executed
}

// SchemaError marks a payload the normalizer cannot derive a required
// field from. It is fatal and never retried.
type SchemaError struct {
	Venue string
	Field string
	Got   any
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("order schema: venue=%s field=%s unmappable (got %v)", e.Venue, e.Field, e.Got)
}

// InvariantError reports a venue data inconsistency or a normalization
// bug. Always carries full context; never silently reconciled away.
type InvariantError struct {
	OrderID string
	What    string
	Want    float64
	Got     float64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("order invariant: id=%s %s want=%v got=%v", e.OrderID, e.What, e.Want, e.Got)
}
