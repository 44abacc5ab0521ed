package position

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Book holds every side ledger of one account context. The
// reconciliation loop is the only writer; the admin surface reads
// snapshots concurrently.
type Book struct {
	mu        sync.RWMutex
	hedged    bool
	defaults  Precision
	precision map[string]Precision
	positions map[string]*Position
}

func NewBook(hedged bool, defaults Precision) *Book {
	if defaults == (Precision{}) {
		defaults = DefaultPrecision
	}
	return &Book{
		hedged:    hedged,
		defaults:  defaults,
		precision: make(map[string]Precision),
		positions: make(map[string]*Position),
	}
}

// SetPrecision configures instrument precision; unknown instruments use
// the account default.
func (b *Book) SetPrecision(symbolID string, prec Precision) {
	b.mu.Lock()
	b.precision[symbolID] = prec
	b.mu.Unlock()
}

func (b *Book) key(symbolID, slot string) string {
	if !b.hedged {
		// one-way mode keeps a single symmetric ledger per instrument
		return symbolID
	}
	return symbolID + "/" + slot
}

// Apply folds one signed executed delta into the ledger and returns the
// opened/closed attribution together with the updated position.
func (b *Book) Apply(symbolID, slot string, sizeDelta, fillPrice float64, at time.Time) (Change, Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := b.key(symbolID, slot)
	pos, ok := b.positions[key]
	if !ok {
		pos = &Position{SymbolID: symbolID, Slot: slot}
		if !b.hedged {
			pos.Slot = ""
		}
		b.positions[key] = pos
	}
	prec, ok := b.precision[symbolID]
	if !ok {
		prec = b.defaults
	}
	ch, err := pos.Update(sizeDelta, fillPrice, at, prec)
	if err != nil {
		return Change{}, Position{}, err
	}
	// In hedge mode each slot has a declared direction; a sign flip
	// means the venue and the ledger disagree about the position.
	if b.hedged && pos.Size != 0 {
		if (pos.Slot == "long" && pos.Size < 0) || (pos.Slot == "short" && pos.Size > 0) {
			return Change{}, Position{}, fmt.Errorf(
				"position %s/%s: sign %v disagrees with declared side", symbolID, slot, pos.Size)
		}
	}
	return ch, *pos, nil
}

// Get returns a copy of the position, or a zero record when flat.
func (b *Book) Get(symbolID, slot string) Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if pos, ok := b.positions[b.key(symbolID, slot)]; ok {
		return *pos
	}
	return Position{SymbolID: symbolID, Slot: slot}
}

// Snapshot lists all non-flat positions, ordered by symbol for stable
// output.
func (b *Book) Snapshot() []Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Position, 0, len(b.positions))
	for _, pos := range b.positions {
		if pos.Size == 0 {
			continue
		}
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SymbolID != out[j].SymbolID {
			return out[i].SymbolID < out[j].SymbolID
		}
		return out[i].Slot < out[j].Slot
	})
	return out
}
