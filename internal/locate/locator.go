package locate

import (
	"context"
	"errors"
	"time"

	"ordo/internal/logger"
	"ordo/internal/order"
	"ordo/internal/pkg/circuit"
	"ordo/internal/pkg/maputil"
	"ordo/internal/retry"
	"ordo/internal/venue"
)

// ErrNotFound reports that neither cache nor venue can see the order
// right now. Callers must treat it as transient, never terminal.
var ErrNotFound = errors.New("locate: order not found")

const (
	defaultVisibleRetries = 30
	defaultVisibleWait    = 200 * time.Millisecond
)

// Locator resolves (symbol, order id) to the latest raw payload. The
// push cache is consulted first; a miss falls through to a direct
// point-in-time request under the retry policy.
type Locator struct {
	cache   *Cache // optional
	fetcher venue.Fetcher
	adapter venue.Adapter
	breaker *circuit.Breaker // optional
	policy  retry.Policy

	// "not yet visible" retry budget: venues confirm order creation
	// asynchronously, so a just-created id may not be queryable for a
	// few hundred milliseconds.
	visibleRetries int
	visibleWait    time.Duration
	sleep          func(time.Duration)
}

func NewLocator(cache *Cache, fetcher venue.Fetcher, adapter venue.Adapter, policy retry.Policy) *Locator {
	l := &Locator{
		cache:          cache,
		fetcher:        fetcher,
		adapter:        adapter,
		policy:         policy,
		visibleRetries: defaultVisibleRetries,
		visibleWait:    defaultVisibleWait,
		sleep:          time.Sleep,
	}
	// not-yet-visible is handled by the locator's own short-retry loop,
	// not by the generic policy
	classify := adapter.Classify
	l.policy.Classify = func(err error) venue.ErrorClass {
		if errors.Is(err, venue.ErrNotVisible) {
			return venue.ClassFatal
		}
		return classify(err)
	}
	return l
}

// WithBreaker attaches a circuit breaker around the pull path.
func (l *Locator) WithBreaker(cb *circuit.Breaker) *Locator {
	l.breaker = cb
	return l
}

// WithVisibilityBudget overrides the "not yet visible" retry budget.
func (l *Locator) WithVisibilityBudget(retries int, wait time.Duration) *Locator {
	if retries > 0 {
		l.visibleRetries = retries
	}
	if wait >= 0 {
		l.visibleWait = wait
	}
	return l
}

// Locate returns the latest raw payload for the order. A conditional
// id is searched in the conditional cache first and then in the active
// cache, because venues may reclassify a triggered conditional order as
// an active order.
func (l *Locator) Locate(ctx context.Context, symbolID, orderID string, kind order.OrderingKind) (map[string]any, error) {
	if payload, ok := l.fromCache(symbolID, orderID, kind); ok {
		return l.assertID(payload, orderID)
	}
	payload, err := l.pull(ctx, symbolID, orderID, kind)
	if err != nil {
		return nil, err
	}
	return l.assertID(payload, orderID)
}

func (l *Locator) fromCache(symbolID, orderID string, kind order.OrderingKind) (map[string]any, bool) {
	if l.cache == nil {
		return nil, false
	}
	if kind == order.KindConditional {
		if p, ok := l.cache.FindConditional(symbolID, orderID); ok {
			return p, true
		}
	}
	return l.cache.FindActive(symbolID, orderID)
}

func (l *Locator) pull(ctx context.Context, symbolID, orderID string, kind order.OrderingKind) (map[string]any, error) {
	if l.fetcher == nil {
		return nil, ErrNotFound
	}
	fetch := l.fetcher.FetchOrder
	if kind == order.KindConditional {
		fetch = l.fetcher.FetchConditional
	}

	for attempt := 0; attempt < l.visibleRetries; attempt++ {
		if l.breaker != nil && !l.breaker.Allow() {
			return nil, ErrNotFound
		}
		var payload map[string]any
		ok, err := l.policy.Do("locate "+orderID, func() error {
			p, ferr := fetch(ctx, symbolID, orderID)
			if ferr != nil {
				return ferr
			}
			payload = p
			return nil
		})
		if err == nil && ok {
			if l.breaker != nil {
				l.breaker.OnSuccess()
			}
			return payload, nil
		}
		if err == nil {
			// benign-stop: the venue says the lookup is moot
			return nil, ErrNotFound
		}
		if !errors.Is(err, venue.ErrNotVisible) {
			if l.breaker != nil {
				l.breaker.OnFailure()
			}
			return nil, err
		}
		l.sleep(l.visibleWait)
	}
	logger.Warnf("locate: order %s on %s still not visible after %d retries", orderID, symbolID, l.visibleRetries)
	return nil, ErrNotFound
}

// assertID enforces the post-condition that the returned payload is the
// requested order.
func (l *Locator) assertID(payload map[string]any, orderID string) (map[string]any, error) {
	if got := maputil.String(payload, "id"); got != orderID {
		return nil, &order.InvariantError{OrderID: orderID, What: "locator returned order " + got}
	}
	return payload, nil
}
