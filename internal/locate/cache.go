// Package locate resolves an order id to its latest raw state,
// preferring the push-updated cache and falling back to a direct venue
// request with bounded retries.
package locate

import (
	"sync"

	"ordo/internal/pkg/maputil"
)

const defaultMaxPerKey = 200

// Cache is the push-updated store of recent raw order/position payloads.
// A separate connection-management collaborator appends to it from its
// own goroutines; readers always get defensive copies. Per-key lists
// are append-only and bounded.
type Cache struct {
	mu          sync.RWMutex
	max         int
	active      map[string][]map[string]any
	conditional map[string][]map[string]any
	positions   map[string][]map[string]any
}

func NewCache(maxPerKey int) *Cache {
	if maxPerKey <= 0 {
		maxPerKey = defaultMaxPerKey
	}
	return &Cache{
		max:         maxPerKey,
		active:      make(map[string][]map[string]any),
		conditional: make(map[string][]map[string]any),
		positions:   make(map[string][]map[string]any),
	}
}

func (c *Cache) AppendActive(symbolID string, payload map[string]any) {
	c.append(c.active, symbolID, payload)
}

func (c *Cache) AppendConditional(symbolID string, payload map[string]any) {
	c.append(c.conditional, symbolID, payload)
}

func (c *Cache) AppendPosition(symbolID string, payload map[string]any) {
	c.append(c.positions, symbolID, payload)
}

func (c *Cache) append(bucket map[string][]map[string]any, symbolID string, payload map[string]any) {
	if symbolID == "" || payload == nil {
		return
	}
	c.mu.Lock()
	list := append(bucket[symbolID], maputil.Clone(payload))
	if over := len(list) - c.max; over > 0 {
		list = list[over:]
	}
	bucket[symbolID] = list
	c.mu.Unlock()
}

// FindActive scans the active-order list newest-first for the order id.
func (c *Cache) FindActive(symbolID, orderID string) (map[string]any, bool) {
	return c.find(c.active, symbolID, orderID)
}

// FindConditional scans the conditional-order list newest-first.
func (c *Cache) FindConditional(symbolID, orderID string) (map[string]any, bool) {
	return c.find(c.conditional, symbolID, orderID)
}

func (c *Cache) find(bucket map[string][]map[string]any, symbolID, orderID string) (map[string]any, bool) {
	if orderID == "" {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := bucket[symbolID]
	for i := len(list) - 1; i >= 0; i-- {
		if maputil.String(list[i], "id") == orderID {
			return maputil.Clone(list[i]), true
		}
	}
	return nil, false
}

// LatestPosition returns the newest pushed position payload for the
// instrument, if any.
func (c *Cache) LatestPosition(symbolID string) (map[string]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := c.positions[symbolID]
	if len(list) == 0 {
		return nil, false
	}
	return maputil.Clone(list[len(list)-1]), true
}
