package gate

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"ordo/internal/order"
	"ordo/internal/venue"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const defaultBaseURL = "https://api.gateio.ws/api/v4"

// Fetcher pulls point-in-time order state over REST. Conditional
// (price-trigger) orders live on a separate endpoint with their own id
// space.
type Fetcher struct {
	http   *resty.Client
	settle string
}

func NewFetcher(baseURL, apiKey, apiSecret string, timeout time.Duration) *Fetcher {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("KEY", apiKey).
		SetHeader("SIGN", apiSecret)
	return &Fetcher{http: c, settle: "usdt"}
}

func (f *Fetcher) FetchOrder(ctx context.Context, symbolID, orderID string) (map[string]any, error) {
	body, err := f.get(ctx, fmt.Sprintf("/futures/%s/orders/%s", f.settle, orderID))
	if err != nil {
		return nil, err
	}
	return activePayload(body), nil
}

func (f *Fetcher) FetchConditional(ctx context.Context, symbolID, orderID string) (map[string]any, error) {
	body, err := f.get(ctx, fmt.Sprintf("/futures/%s/price_orders/%s", f.settle, orderID))
	if err != nil {
		return nil, err
	}
	return conditionalPayload(body), nil
}

func (f *Fetcher) CancelOrder(ctx context.Context, symbolID, orderID string, kind order.OrderingKind) error {
	path := fmt.Sprintf("/futures/%s/orders/%s", f.settle, orderID)
	if kind == order.KindConditional {
		path = fmt.Sprintf("/futures/%s/price_orders/%s", f.settle, orderID)
	}
	resp, err := f.http.R().SetContext(ctx).Delete(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return classifyBody(resp.StatusCode(), resp.Body())
	}
	return nil
}

func (f *Fetcher) get(ctx context.Context, path string) (gjson.Result, error) {
	resp, err := f.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return gjson.Result{}, err
	}
	if resp.IsError() {
		return gjson.Result{}, classifyBody(resp.StatusCode(), resp.Body())
	}
	return gjson.ParseBytes(resp.Body()), nil
}

// activePayload flattens a gate futures order into the raw shape the
// normalizer consumes. Gate sizes are signed contract counts and a
// partial fill is only visible through size/left, so a synthetic
// "state" field is derived for status classification.
func activePayload(j gjson.Result) map[string]any {
	size := j.Get("size").Float()
	left := j.Get("left").Float()
	amount := math.Abs(size)
	filled := amount - math.Abs(left)

	side := "buy"
	if size < 0 {
		side = "sell"
	}
	typ := "limit"
	if j.Get("price").Float() == 0 {
		typ = "market"
	}
	return map[string]any{
		"id":        j.Get("id").String(),
		"symbol":    j.Get("contract").String(),
		"type":      typ,
		"side":      side,
		"status":    j.Get("status").String(),
		"state":     deriveState(j.Get("status").String(), j.Get("finish_as").String(), filled, amount),
		"price":     j.Get("price").String(),
		"amount":    amount,
		"filled":    filled,
		"remaining": math.Abs(left),
		"average":   j.Get("fill_price").String(),
		"info":      infoMap(j),
	}
}

// conditionalPayload flattens a gate price-trigger order. The initial
// sub-order carries the economic fields.
func conditionalPayload(j gjson.Result) map[string]any {
	init := j.Get("initial")
	size := init.Get("size").Float()
	amount := math.Abs(size)

	side := "buy"
	if size < 0 {
		side = "sell"
	}
	typ := "trigger_limit"
	if init.Get("price").Float() == 0 {
		typ = "trigger_market"
	}
	return map[string]any{
		"id":            j.Get("id").String(),
		"symbol":        init.Get("contract").String(),
		"type":          typ,
		"side":          side,
		"status":        j.Get("status").String(),
		"state":         deriveTriggerState(j.Get("status").String(), j.Get("finish_as").String()),
		"price":         init.Get("price").String(),
		"amount":        amount,
		"filled":        0.0,
		"remaining":     amount,
		"trigger_price": j.Get("trigger.price").String(),
		"info":          infoMap(j),
	}
}

func deriveState(status, finishAs string, filled, amount float64) string {
	if status == "open" {
		if filled > 0 && filled < amount {
			return "partial"
		}
		return "open"
	}
	switch finishAs {
	case "filled":
		return "filled"
	case "cancelled", "liquidated", "reduce_out", "position_closed":
		return "cancelled"
	case "expired", "ioc", "stp":
		return "expired"
	default:
		return "failed"
	}
}

func deriveTriggerState(status, finishAs string) string {
	switch status {
	case "open", "inactive":
		return "open"
	case "invalid":
		return "failed"
	}
	switch finishAs {
	case "succeeded":
		// triggered: the venue reclassified it as an active order
		return "filled"
	case "cancelled", "manually_cancelled":
		return "cancelled"
	case "expired":
		return "expired"
	default:
		return "failed"
	}
}

func infoMap(j gjson.Result) map[string]any {
	if m, ok := j.Value().(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func classifyBody(status int, body []byte) error {
	label := gjson.GetBytes(body, "label").String()
	msg := gjson.GetBytes(body, "message").String()
	if status == http.StatusNotFound || label == "ORDER_NOT_FOUND" || label == "AUTO_ORDER_NOT_FOUND" {
		return venue.ErrNotVisible
	}
	class := venue.ClassTransient
	if _, ok := fatalLabels[label]; ok {
		class = venue.ClassFatal
	}
	if _, ok := benignLabels[label]; ok {
		class = venue.ClassBenign
	}
	if msg == "" {
		msg = "http status " + strconv.Itoa(status)
	}
	return &venue.Error{Venue: Name, Label: label, Msg: msg, Class: class}
}
