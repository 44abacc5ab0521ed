package order

import (
	"math"
	"time"

	"ordo/internal/logger"
)

// LedgerFill is one executed quantity the engine must fold into the
// position ledger. SizeDelta is signed: buy-direction positive.
type LedgerFill struct {
	FillID    string
	SizeDelta float64
	Price     float64
	Fee       float64
}

// Action is the outcome of feeding one normalized snapshot through the
// state machine.
type Action struct {
	From, To Status
	Changed  bool
	Notify   bool
	// Fills are applied to the ledger in order: replayed trade fills
	// first, then the completion residual if any.
	Fills       []LedgerFill
	Resync      bool
	Retire      bool
	PartialFlag bool
}

// Strictness controls the executed-size invariant on completion: in
// strict mode a mismatch between locally accumulated and venue-reported
// executed size raises; in lenient mode it logs and reconciles to the
// venue value.
type Strictness int

const (
	Lenient Strictness = iota
	Strict
)

// Machine drives a single order through its lifecycle. It owns the
// wrapped Order exclusively until retirement.
//
//	Submitted -> Accepted -> PartiallyFilled* -> Completed
//	Accepted/PartiallyFilled may instead end in Canceled/Rejected/Expired
type Machine struct {
	o      *Order
	strict Strictness
	now    func() time.Time
}

func NewMachine(o *Order, strict Strictness) *Machine {
	return &Machine{o: o, strict: strict, now: time.Now}
}

// Order exposes the wrapped order for read access.
func (m *Machine) Order() *Order { return m.o }

// statusRank orders statuses along the lifecycle so that stale,
// out-of-order venue updates can be detected and dropped.
func statusRank(s Status) int {
	switch s {
	case StatusSubmitted:
		return 0
	case StatusAccepted:
		return 1
	case StatusPartiallyFilled:
		return 2
	default:
		return 3
	}
}

// Apply consumes a freshly normalized snapshot and transitions the
// order. partialSeen suppresses the duplicate partial-fill warning when
// an earlier order in the same loop pass already partially filled.
func (m *Machine) Apply(snap *Snapshot, partialSeen bool) (*Action, error) {
	o := m.o
	if snap.ID != o.ID {
		return nil, &InvariantError{OrderID: o.ID, What: "snapshot id mismatch: " + snap.ID}
	}
	prev := o.Status
	act := &Action{From: prev, To: snap.Status}

	if prev.Terminal() {
		logger.Warnf("order %s: update after terminal status %s ignored", o.ID, prev)
		act.To = prev
		return act, nil
	}

	// Delayed or duplicated updates may arrive out of order; a payload
	// that would move the order backwards is stale.
	if statusRank(snap.Status) < statusRank(prev) {
		logger.Debugf("order %s: stale update %s -> %s dropped", o.ID, prev, snap.Status)
		act.To = prev
		return act, nil
	}

	act.Fills = m.replayFills(snap)

	switch snap.Status {
	case StatusAccepted:
		o.refresh(snap, m.now())
		o.Status = StatusAccepted
		act.Changed = prev != StatusAccepted
		act.Notify = act.Changed

	case StatusPartiallyFilled:
		progressed := snap.Filled > o.FilledSize+SizeTolerance
		o.refresh(snap, m.now())
		o.Status = StatusPartiallyFilled
		act.Changed = prev != StatusPartiallyFilled || progressed
		act.Notify = act.Changed
		act.Resync = true
		act.PartialFlag = true
		if !partialSeen && act.Changed {
			logger.Warnf("order %s: partial fill %v/%v on %s", o.ID, o.FilledSize, o.RequestedSize, o.SymbolID)
		}

	case StatusCompleted:
		o.refresh(snap, m.now())
		o.Status = StatusCompleted
		residual, err := m.completionResidual(snap)
		if err != nil {
			return nil, err
		}
		if residual != nil {
			act.Fills = append(act.Fills, *residual)
		}
		act.Changed = true
		act.Notify = true
		act.Resync = true
		act.Retire = true

	case StatusCanceled, StatusRejected, StatusExpired:
		o.refresh(snap, m.now())
		o.Status = snap.Status
		act.Changed = true
		act.Notify = true
		act.Retire = true

	default:
		return nil, &SchemaError{Field: "status", Got: snap.Status}
	}
	act.To = o.Status
	return act, nil
}

// replayFills folds any not-yet-seen trade fills into the execution
// record. Repeated polling of the same order replays nothing twice.
func (m *Machine) replayFills(snap *Snapshot) []LedgerFill {
	o := m.o
	var out []LedgerFill
	for _, f := range snap.Fills {
		if _, seen := o.AppliedFills[f.ID]; seen {
			continue
		}
		o.AppliedFills[f.ID] = struct{}{}
		o.ledgerApplied += f.Size
		out = append(out, LedgerFill{
			FillID:    f.ID,
			SizeDelta: o.SignedDelta(f.Size),
			Price:     f.Price,
			Fee:       f.Fee,
		})
	}
	return out
}

// completionResidual computes the final ledger fill for a completed
// order: the entire still-unapplied executed size, priced at the
// venue-reported fill price. It then asserts the executed-remaining
// size is exactly zero.
func (m *Machine) completionResidual(snap *Snapshot) (*LedgerFill, error) {
	o := m.o
	residual := o.RequestedSize - o.ledgerApplied
	price := snap.Average
	if price <= 0 {
		price = snap.Price
	}

	var fill *LedgerFill
	if residual > SizeTolerance {
		if price <= 0 {
			// market and trigger-market shapes can complete without any
			// reported price; a zero-priced fill would corrupt the ledger
			// average, so the trigger price is the only acceptable stand-in
			if m.strict == Strict || o.TriggerPrice <= 0 {
				return nil, &InvariantError{
					OrderID: o.ID,
					What:    "completed without a fill price",
					Want:    residual,
					Got:     price,
				}
			}
			logger.Warnf("order %s: no fill price on completion, using trigger price %v", o.ID, o.TriggerPrice)
			price = o.TriggerPrice
		}
		fill = &LedgerFill{
			SizeDelta: o.SignedDelta(residual),
			Price:     price,
		}
		o.ledgerApplied += residual
	}

	if diff := math.Abs(o.RequestedSize - o.ledgerApplied); diff > SizeTolerance {
		err := &InvariantError{
			OrderID: o.ID,
			What:    "executed-remaining size nonzero after completion",
			Want:    o.RequestedSize,
			Got:     o.ledgerApplied,
		}
		if m.strict == Strict {
			return nil, err
		}
		logger.Warnf("order %s: %v (lenient mode, reconciled to venue value)", o.ID, err)
		o.ledgerApplied = o.RequestedSize
	}
	return fill, nil
}
