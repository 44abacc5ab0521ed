package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func snapshot(status Status, amount, filled float64, fills ...Fill) *Snapshot {
	return &Snapshot{
		ID:        "88001",
		SymbolID:  "ETH/USDT",
		Kind:      KindActive,
		Style:     StyleLimit,
		Intent:    IntentEntry,
		PosSide:   Long,
		Side:      SideBuy,
		Status:    status,
		Price:     2000,
		Amount:    amount,
		Average:   2001,
		Filled:    filled,
		Remaining: amount - filled,
		Fills:     fills,
	}
}

func newTestMachine(strict Strictness) *Machine {
	o := New(snapshot(StatusAccepted, 1.0, 0), "client-1", time.Now())
	return NewMachine(o, strict)
}

func TestApplyLifecycleToCompleted(t *testing.T) {
	m := newTestMachine(Lenient)

	// the venue confirms the freshly submitted order first
	act, err := m.Apply(snapshot(StatusAccepted, 1.0, 0), false)
	assert.NoError(t, err)
	assert.Equal(t, StatusSubmitted, act.From)
	assert.Equal(t, StatusAccepted, act.To)
	assert.True(t, act.Changed)
	assert.Empty(t, act.Fills)

	act, err = m.Apply(snapshot(StatusPartiallyFilled, 1.0, 0.4, Fill{ID: "t1", Size: 0.4, Price: 2000, Fee: 0.5}), false)
	assert.NoError(t, err)
	assert.Equal(t, StatusAccepted, act.From)
	assert.Equal(t, StatusPartiallyFilled, act.To)
	assert.True(t, act.Changed)
	assert.True(t, act.Resync)
	assert.True(t, act.PartialFlag)
	assert.False(t, act.Retire)
	if assert.Len(t, act.Fills, 1) {
		assert.Equal(t, "t1", act.Fills[0].FillID)
		assert.Equal(t, 0.4, act.Fills[0].SizeDelta)
		assert.Equal(t, 0.5, act.Fills[0].Fee)
	}

	act, err = m.Apply(snapshot(StatusCompleted, 1.0, 1.0), false)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, act.To)
	assert.True(t, act.Retire)
	// the residual covers the 0.6 not seen as a trade fill, at the
	// venue average price
	if assert.Len(t, act.Fills, 1) {
		assert.Equal(t, "", act.Fills[0].FillID)
		assert.InDelta(t, 0.6, act.Fills[0].SizeDelta, SizeTolerance)
		assert.Equal(t, 2001.0, act.Fills[0].Price)
	}
}

func TestFillReplayIsIdempotent(t *testing.T) {
	m := newTestMachine(Lenient)
	snap := snapshot(StatusPartiallyFilled, 1.0, 0.4, Fill{ID: "t1", Size: 0.4, Price: 2000})

	act, err := m.Apply(snap, false)
	assert.NoError(t, err)
	assert.Len(t, act.Fills, 1)

	// polling the same state again replays nothing
	act, err = m.Apply(snapshot(StatusPartiallyFilled, 1.0, 0.4, Fill{ID: "t1", Size: 0.4, Price: 2000}), true)
	assert.NoError(t, err)
	assert.Empty(t, act.Fills)
}

func TestStaleUpdateDropped(t *testing.T) {
	m := newTestMachine(Lenient)
	_, err := m.Apply(snapshot(StatusPartiallyFilled, 1.0, 0.4, Fill{ID: "t1", Size: 0.4, Price: 2000}), false)
	assert.NoError(t, err)

	// a delayed "accepted" payload must not move the order backwards
	act, err := m.Apply(snapshot(StatusAccepted, 1.0, 0), false)
	assert.NoError(t, err)
	assert.Equal(t, StatusPartiallyFilled, act.To)
	assert.False(t, act.Changed)
	assert.Empty(t, act.Fills)
	assert.Equal(t, 0.4, m.Order().FilledSize)
}

func TestUpdateAfterTerminalIgnored(t *testing.T) {
	m := newTestMachine(Lenient)
	_, err := m.Apply(snapshot(StatusCanceled, 1.0, 0), false)
	assert.NoError(t, err)
	assert.Equal(t, StatusCanceled, m.Order().Status)

	act, err := m.Apply(snapshot(StatusCompleted, 1.0, 1.0), false)
	assert.NoError(t, err)
	assert.Equal(t, StatusCanceled, act.To)
	assert.False(t, act.Changed)
	assert.Empty(t, act.Fills)
}

func TestCancelRetiresWithoutFills(t *testing.T) {
	m := newTestMachine(Lenient)
	act, err := m.Apply(snapshot(StatusCanceled, 1.0, 0), false)
	assert.NoError(t, err)
	assert.True(t, act.Retire)
	assert.True(t, act.Notify)
	assert.Empty(t, act.Fills)
}

func TestCompletionResidualFallsBackToPrice(t *testing.T) {
	m := newTestMachine(Lenient)
	snap := snapshot(StatusCompleted, 1.0, 1.0)
	snap.Average = 0
	act, err := m.Apply(snap, false)
	assert.NoError(t, err)
	if assert.Len(t, act.Fills, 1) {
		assert.Equal(t, 2000.0, act.Fills[0].Price)
	}
}

func TestCompletionWithoutAnyPriceErrs(t *testing.T) {
	for _, strict := range []Strictness{Strict, Lenient} {
		m := newTestMachine(strict)
		snap := snapshot(StatusCompleted, 1.0, 1.0)
		snap.Average = 0
		snap.Price = 0
		_, err := m.Apply(snap, false)
		var ie *InvariantError
		assert.ErrorAs(t, err, &ie)
	}
}

func TestCompletionWithoutPriceUsesTriggerPriceLenient(t *testing.T) {
	m := newTestMachine(Lenient)
	snap := snapshot(StatusCompleted, 1.0, 1.0)
	snap.Average = 0
	snap.Price = 0
	snap.TriggerPrice = 1950
	act, err := m.Apply(snap, false)
	assert.NoError(t, err)
	if assert.Len(t, act.Fills, 1) {
		assert.Equal(t, 1950.0, act.Fills[0].Price)
	}

	// strict mode never substitutes a price
	m = newTestMachine(Strict)
	_, err = m.Apply(snap, false)
	var ie *InvariantError
	assert.ErrorAs(t, err, &ie)
}

func TestSellOrderProducesNegativeDeltas(t *testing.T) {
	o := New(snapshot(StatusAccepted, 1.0, 0), "client-1", time.Now())
	o.Side = SideSell
	m := NewMachine(o, Lenient)

	act, err := m.Apply(&Snapshot{
		ID: "88001", SymbolID: "ETH/USDT", Side: SideSell, Status: StatusCompleted,
		Price: 2000, Average: 2001, Amount: 1.0, Filled: 1.0,
	}, false)
	assert.NoError(t, err)
	if assert.Len(t, act.Fills, 1) {
		assert.Equal(t, -1.0, act.Fills[0].SizeDelta)
	}
}

func TestExecutedSizeMismatchStrict(t *testing.T) {
	m := newTestMachine(Strict)
	// trade fills sum past the requested size
	_, err := m.Apply(snapshot(StatusPartiallyFilled, 1.0, 0.4,
		Fill{ID: "t1", Size: 0.7, Price: 2000},
		Fill{ID: "t2", Size: 0.5, Price: 2000}), false)
	assert.NoError(t, err)

	_, err = m.Apply(snapshot(StatusCompleted, 1.0, 1.0), false)
	var ie *InvariantError
	assert.ErrorAs(t, err, &ie)
}

func TestExecutedSizeMismatchLenient(t *testing.T) {
	m := newTestMachine(Lenient)
	_, err := m.Apply(snapshot(StatusPartiallyFilled, 1.0, 0.4,
		Fill{ID: "t1", Size: 0.7, Price: 2000},
		Fill{ID: "t2", Size: 0.5, Price: 2000}), false)
	assert.NoError(t, err)

	act, err := m.Apply(snapshot(StatusCompleted, 1.0, 1.0), false)
	assert.NoError(t, err)
	// over-applied: no residual, reconciled to the venue value
	assert.Empty(t, act.Fills)
	assert.True(t, act.Retire)
}

func TestSnapshotIDMismatch(t *testing.T) {
	m := newTestMachine(Lenient)
	snap := snapshot(StatusAccepted, 1.0, 0)
	snap.ID = "99999"
	_, err := m.Apply(snap, false)
	var ie *InvariantError
	assert.ErrorAs(t, err, &ie)
}

func TestRecoveredOrderAdoptsIdentity(t *testing.T) {
	// journal recovery knows only id/symbol/kind; the first snapshot
	// fills in the rest
	o := &Order{
		ID: "88001", SymbolID: "ETH/USDT", Kind: KindActive,
		Status: StatusSubmitted, AppliedFills: make(map[string]struct{}),
	}
	m := NewMachine(o, Lenient)
	snap := snapshot(StatusAccepted, 1.0, 0)
	snap.Side = SideSell
	snap.Intent = IntentExit
	snap.PosSide = Long
	_, err := m.Apply(snap, false)
	assert.NoError(t, err)
	assert.Equal(t, SideSell, o.Side)
	assert.Equal(t, IntentExit, o.Intent)
	assert.Equal(t, Long, o.PosSide)
	assert.Equal(t, StyleLimit, o.Style)
}
