// Package stream consumes the venue's websocket order/position feed and
// appends the decoded payloads to the push cache. The connection
// lifecycle here is deliberately minimal: the engine only depends on
// the cache contents, never on the connection state.
package stream

import (
	"context"
	"strings"
	"time"

	"ordo/internal/locate"
	"ordo/internal/logger"
	"ordo/internal/pkg/convert"
	"ordo/internal/pkg/maputil"
	"ordo/internal/venue"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

const (
	defaultReadDeadline = 90 * time.Second
	reconnectBase       = time.Second
	reconnectMax        = 30 * time.Second
)

// Updater writes venue push frames into the cache from its own
// goroutine. Cache readers are protected by the cache's own locking.
type Updater struct {
	URL     string
	Cache   *locate.Cache
	Adapter venue.Adapter

	OnConnected    func()
	OnDisconnected func(error)

	// Subscribe frames sent right after connect.
	SubscribePayloads []string

	dialFn func(ctx context.Context, url string) (wsConn, error)
}

type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	SetReadDeadline(time.Time) error
	Close() error
}

func NewUpdater(url string, cache *locate.Cache, adapter venue.Adapter) *Updater {
	return &Updater{
		URL:     url,
		Cache:   cache,
		Adapter: adapter,
		dialFn:  dial,
	}
}

func dial(ctx context.Context, url string) (wsConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	return conn, err
}

// Run blocks until ctx is done, reconnecting with capped backoff.
func (u *Updater) Run(ctx context.Context) error {
	backoff := reconnectBase
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := u.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if u.OnDisconnected != nil {
			u.OnDisconnected(err)
		}
		logger.Warnf("stream: connection lost (%v), reconnecting in %s", err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (u *Updater) session(ctx context.Context) error {
	conn, err := u.dialFn(ctx, u.URL)
	if err != nil {
		return err
	}
	defer conn.Close()
	for _, payload := range u.SubscribePayloads {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
			return err
		}
	}
	if u.OnConnected != nil {
		u.OnConnected()
	}
	logger.Infof("stream: connected to %s", u.URL)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(defaultReadDeadline))
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		u.Ingest(frame)
	}
}

// Ingest decodes one raw frame and appends its payloads to the cache.
// Exported so tests and replay tooling can feed frames directly.
func (u *Updater) Ingest(frame []byte) {
	doc := gjson.ParseBytes(frame)
	channel := strings.ToLower(doc.Get("channel").String())
	if channel == "" {
		channel = strings.ToLower(doc.Get("e").String()) // binance user-data style
	}
	result := doc.Get("result")
	if !result.Exists() {
		result = doc.Get("o") // binance ORDER_TRADE_UPDATE carries the order under "o"
	}
	if !result.Exists() {
		return
	}

	switch {
	case strings.Contains(channel, "position"):
		u.each(result, u.ingestPosition)
	case strings.Contains(channel, "order"), channel == "order_trade_update":
		u.each(result, u.ingestOrder)
	}
}

func (u *Updater) each(result gjson.Result, fn func(map[string]any)) {
	if result.IsArray() {
		for _, item := range result.Array() {
			if m, ok := item.Value().(map[string]any); ok {
				fn(m)
			}
		}
		return
	}
	if m, ok := result.Value().(map[string]any); ok {
		fn(m)
	}
}

func (u *Updater) ingestOrder(payload map[string]any) {
	// The engine normalizes whatever the locator hands back, so cached
	// entries must arrive in the venue's pull payload shape. Adapters
	// whose push feed speaks another dialect reshape the frame here.
	if tr, ok := u.Adapter.(venue.FrameTranslator); ok {
		translated, usable := tr.TranslateOrder(payload)
		if !usable {
			logger.Debugf("stream: dropped order frame without a usable order")
			return
		}
		payload = translated
	}
	symbolID := u.resolveSymbol(payload)
	if symbolID == "" {
		return
	}
	// Venues spell the order id differently; the locator always looks
	// it up under "id".
	if maputil.Has(payload, "id") {
		payload["id"] = maputil.ID(payload, "id")
	} else {
		for _, key := range []string{"i", "order_id", "orderId"} {
			if maputil.Has(payload, key) {
				payload["id"] = maputil.ID(payload, key)
				break
			}
		}
	}
	trigger := convert.ToFloat64(firstOf(payload, "trigger_price", "stopPrice", "sp"))
	if trigger > 0 {
		u.Cache.AppendConditional(symbolID, payload)
		return
	}
	u.Cache.AppendActive(symbolID, payload)
}

func (u *Updater) ingestPosition(payload map[string]any) {
	symbolID := u.resolveSymbol(payload)
	if symbolID == "" {
		return
	}
	u.Cache.AppendPosition(symbolID, payload)
}

func (u *Updater) resolveSymbol(payload map[string]any) string {
	raw := maputil.String(payload, "symbol")
	if raw == "" {
		raw = maputil.String(payload, "contract")
	}
	if raw == "" {
		raw = maputil.String(payload, "s")
	}
	if raw == "" {
		return ""
	}
	return u.Adapter.ResolveSymbol(raw)
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if maputil.Has(m, k) {
			return m[k]
		}
	}
	return nil
}
