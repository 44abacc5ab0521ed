// Package engine runs the order lifecycle reconciliation loop: once per
// external tick it refreshes every open order from the venue, drives
// the per-order state machine, folds fills into the position ledger and
// retires terminal orders.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ordo/internal/journal"
	"ordo/internal/locate"
	"ordo/internal/logger"
	"ordo/internal/notifier"
	"ordo/internal/order"
	"ordo/internal/position"
	"ordo/internal/retry"
	"ordo/internal/venue"
)

// SessionInitMu serializes account-context initialization (first
// connection, balance fetch, leverage sync) across all contexts so no
// two accounts race to establish venue sessions.
var SessionInitMu sync.Mutex

// Deps are the engine collaborators, injected explicitly.
type Deps struct {
	Adapter  venue.Adapter
	Locator  *locate.Locator
	Book     *position.Book
	Calc     position.Calculator
	Journal  *journal.Journal       // optional
	Notify   notifier.TextNotifier  // optional
	Canceler venue.Canceler         // optional
	Policy   retry.Policy
	// Resync is invoked after partial or complete fills so a risk
	// layer can refresh the authoritative venue position.
	Resync func(ctx context.Context, symbolID string)
}

// Config is the per-account engine configuration.
type Config struct {
	// Strict raises on executed-size precision mismatches instead of
	// reconciling to the venue value.
	Strict bool
}

// Engine owns the open-order set of one account context. All methods
// are safe for concurrent use, but the reconciliation loop itself runs
// on a single logical thread per context.
type Engine struct {
	deps   Deps
	strict order.Strictness
	norm   *order.Normalizer

	mu       sync.Mutex
	open     map[string]*order.Machine
	realized map[string]float64
	fees     map[string]float64
}

func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Adapter == nil {
		return nil, fmt.Errorf("engine: venue adapter is required")
	}
	if deps.Locator == nil {
		return nil, fmt.Errorf("engine: locator is required")
	}
	if deps.Book == nil {
		deps.Book = position.NewBook(false, position.DefaultPrecision)
	}
	strict := order.Lenient
	if cfg.Strict {
		strict = order.Strict
	}
	return &Engine{
		deps:     deps,
		strict:   strict,
		norm:     order.NewNormalizer(deps.Adapter),
		open:     make(map[string]*order.Machine),
		realized: make(map[string]float64),
		fees:     make(map[string]float64),
	}, nil
}

// Submit normalizes a freshly created raw venue order, wraps it and
// inserts it into the open-order set. The journal row is written before
// the order becomes visible to the loop so a crash cannot lose it.
func (e *Engine) Submit(ctx context.Context, payload map[string]any) (*order.Order, error) {
	snap, err := e.norm.Normalize(payload)
	if err != nil {
		return nil, err
	}
	o := order.New(snap, uuid.NewString(), time.Now())

	if e.deps.Journal != nil {
		if err := e.deps.Journal.Append(ctx, o.SymbolID, string(o.Kind), o.ID, snap.Raw); err != nil {
			return nil, fmt.Errorf("journal append for order %s: %w", o.ID, err)
		}
	}

	e.mu.Lock()
	e.open[o.ID] = order.NewMachine(o, e.strict)
	e.mu.Unlock()

	e.notify("📬", "Order submitted", o)
	logger.Infof("engine: submitted %s %s %s %v@%v id=%s",
		e.deps.Adapter.Name(), o.SymbolID, o.Side, o.RequestedSize, o.Price, o.ID)
	return o, nil
}

// Recover re-attaches orders that were in flight before a restart. They
// re-enter as Submitted; the first tick reconciles their real state.
func (e *Engine) Recover(ctx context.Context) (int, error) {
	if e.deps.Journal == nil {
		return 0, nil
	}
	entries, err := e.deps.Journal.ListOpen(ctx)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	restored := 0
	for _, entry := range entries {
		if _, exists := e.open[entry.OrderID]; exists {
			continue
		}
		o := &order.Order{
			ID:           entry.OrderID,
			SymbolID:     entry.Symbol,
			Kind:         order.OrderingKind(entry.OrderingKind),
			Status:       order.StatusSubmitted,
			AppliedFills: make(map[string]struct{}),
			CreatedAt:    entry.CreatedAt,
			UpdatedAt:    entry.CreatedAt,
		}
		e.open[entry.OrderID] = order.NewMachine(o, e.strict)
		restored++
	}
	if restored > 0 {
		logger.Infof("engine: re-attached %d in-flight order(s) from journal", restored)
	}
	return restored, nil
}

// Process runs one reconciliation pass over the open-order set. It is
// invoked once per external tick; venue calls block and retries sleep
// the calling goroutine.
func (e *Engine) Process(ctx context.Context) error {
	machines := e.snapshotOpen()
	var errs []error
	partialSeen := false
	for _, m := range machines {
		o := m.Order()
		payload, err := e.deps.Locator.Locate(ctx, o.SymbolID, o.ID, o.Kind)
		if errors.Is(err, locate.ErrNotFound) {
			// transient: the order may simply not be queryable yet
			logger.Debugf("engine: order %s not locatable this tick", o.ID)
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}

		snap, err := e.norm.Normalize(payload)
		if err != nil {
			// schema errors are fatal: retrying cannot fix a mapping gap
			errs = append(errs, err)
			continue
		}

		act, err := m.Apply(snap, partialSeen)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if act.PartialFlag {
			partialSeen = true
		}

		for _, fill := range act.Fills {
			if err := e.applyFill(o, fill); err != nil {
				errs = append(errs, err)
			}
		}
		if act.Resync && e.deps.Resync != nil {
			e.deps.Resync(ctx, o.SymbolID)
		}
		if act.Notify {
			e.notifyTransition(o, act)
		}
		if act.Retire {
			e.retire(ctx, o)
		}
	}
	return errors.Join(errs...)
}

// applyFill folds one executed quantity into the ledger and books the
// commission and realized PnL against the instrument.
func (e *Engine) applyFill(o *order.Order, fill order.LedgerFill) error {
	slot := string(o.PosSide)
	before := e.deps.Book.Get(o.SymbolID, slot)
	ch, pos, err := e.deps.Book.Apply(o.SymbolID, slot, fill.SizeDelta, fill.Price, time.Now())
	if err != nil {
		return fmt.Errorf("ledger update for order %s: %w", o.ID, err)
	}

	var feePtr *float64
	if fill.Fee != 0 {
		feePtr = &fill.Fee
	} else if fill.FillID == "" {
		// completion residual: the order-level fee, if any, belongs here
		feePtr = o.Fee
	}
	fee := e.deps.Calc.Charge(fill.SizeDelta, fill.Price, feePtr)

	e.mu.Lock()
	e.fees[o.SymbolID] += fee
	if ch.Closed != 0 {
		// Closed carries the delta sign; the position being reduced has
		// the opposite sign.
		pnl := e.deps.Calc.RealizedPnL(-ch.Closed, before.AveragePrice, fill.Price)
		e.realized[o.SymbolID] += pnl
	}
	e.mu.Unlock()

	logger.Infof("engine: fill %s %s delta=%v price=%v -> pos size=%v avg=%v (opened=%v closed=%v fee=%v)",
		o.SymbolID, o.ID, fill.SizeDelta, fill.Price, pos.Size, pos.AveragePrice, ch.Opened, ch.Closed, fee)
	return nil
}

// Cancel requests cancellation of an open order. The resulting status
// change flows back through the next reconciliation pass. A venue reply
// that the order is already terminal stops the retry loop silently.
func (e *Engine) Cancel(ctx context.Context, orderID string) error {
	e.mu.Lock()
	m, ok := e.open[orderID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("engine: order %s is not open", orderID)
	}
	if e.deps.Canceler == nil {
		return fmt.Errorf("engine: venue does not support cancel")
	}
	o := m.Order()
	_, err := e.deps.Policy.Do("cancel "+orderID, func() error {
		return e.deps.Canceler.CancelOrder(ctx, o.SymbolID, o.ID, o.Kind)
	})
	return err
}

// retire removes a terminal order from the open set exactly once and
// clears its journal row.
func (e *Engine) retire(ctx context.Context, o *order.Order) {
	e.mu.Lock()
	_, present := e.open[o.ID]
	delete(e.open, o.ID)
	e.mu.Unlock()
	if !present {
		return
	}
	if e.deps.Journal != nil {
		if err := e.deps.Journal.Remove(ctx, o.ID); err != nil {
			logger.Warnf("engine: journal remove for %s failed: %v", o.ID, err)
		}
	}
	logger.Infof("engine: retired order %s status=%s filled=%v avg=%v", o.ID, o.Status, o.FilledSize, o.AvgFillPrice)
}

func (e *Engine) snapshotOpen() []*order.Machine {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*order.Machine, 0, len(e.open))
	for _, m := range e.open {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Order(), out[j].Order()
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// OpenOrders returns a copy of every order still in flight.
func (e *Engine) OpenOrders() []order.Order {
	machines := e.snapshotOpen()
	out := make([]order.Order, 0, len(machines))
	for _, m := range machines {
		out = append(out, *m.Order())
	}
	return out
}

// RealizedPnL reports cumulative realized PnL and paid fees per symbol.
func (e *Engine) RealizedPnL() (pnl, fees map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pnl = make(map[string]float64, len(e.realized))
	fees = make(map[string]float64, len(e.fees))
	for k, v := range e.realized {
		pnl[k] = v
	}
	for k, v := range e.fees {
		fees[k] = v
	}
	return pnl, fees
}

func (e *Engine) notifyTransition(o *order.Order, act *order.Action) {
	icon := "ℹ️"
	title := fmt.Sprintf("Order %s", act.To)
	switch act.To {
	case order.StatusPartiallyFilled:
		icon = "⏳"
	case order.StatusCompleted:
		icon = "✅"
	case order.StatusCanceled, order.StatusExpired:
		icon = "🚫"
	case order.StatusRejected:
		icon = "❌"
	}
	e.notifyWith(icon, title, o, fmt.Sprintf("%s → %s", act.From, act.To))
}

func (e *Engine) notify(icon, title string, o *order.Order) {
	e.notifyWith(icon, title, o, "")
}

func (e *Engine) notifyWith(icon, title string, o *order.Order, footer string) {
	if e.deps.Notify == nil {
		return
	}
	msg := notifier.StructuredMessage{
		Icon:  icon,
		Title: title,
		Sections: []notifier.MessageSection{{
			Title: o.SymbolID,
			Lines: []string{
				fmt.Sprintf("venue: %s", e.deps.Adapter.Name()),
				fmt.Sprintf("id: %s", o.ID),
				fmt.Sprintf("side: %s %s (%s)", o.Side, o.Style, o.Intent),
				fmt.Sprintf("filled: %v / %v", o.FilledSize, o.RequestedSize),
			},
		}},
		Footer:    footer,
		Timestamp: time.Now(),
	}
	if err := e.deps.Notify.SendText(msg.RenderMarkdown()); err != nil {
		logger.Warnf("engine: notification failed: %v", err)
	}
}
