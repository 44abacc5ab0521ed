package binance

import (
	"context"
	"errors"
	"strconv"

	"ordo/internal/order"
	"ordo/internal/pkg/symbol"
	"ordo/internal/venue"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

// Fetcher is the pull-fallback client. Binance keeps conditional (stop)
// orders in the same id space as active orders, so both lookups hit the
// same endpoint.
type Fetcher struct {
	client *futures.Client
}

func NewFetcher(apiKey, apiSecret, baseURL string) *Fetcher {
	c := futures.NewClient(apiKey, apiSecret)
	if baseURL != "" {
		c.BaseURL = baseURL
	}
	return &Fetcher{client: c}
}

func (f *Fetcher) FetchOrder(ctx context.Context, symbolID, orderID string) (map[string]any, error) {
	svc := f.client.NewGetOrderService().Symbol(symbol.ToBinance(symbolID))
	if id, err := strconv.ParseInt(orderID, 10, 64); err == nil {
		svc = svc.OrderID(id)
	} else {
		svc = svc.OrigClientOrderID(orderID)
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}
	return orderToPayload(res), nil
}

func (f *Fetcher) FetchConditional(ctx context.Context, symbolID, orderID string) (map[string]any, error) {
	return f.FetchOrder(ctx, symbolID, orderID)
}

// CancelOrder cancels by venue order id.
func (f *Fetcher) CancelOrder(ctx context.Context, symbolID, orderID string, _ order.OrderingKind) error {
	svc := f.client.NewCancelOrderService().Symbol(symbol.ToBinance(symbolID))
	if id, err := strconv.ParseInt(orderID, 10, 64); err == nil {
		svc = svc.OrderID(id)
	} else {
		svc = svc.OrigClientOrderID(orderID)
	}
	_, err := svc.Do(ctx)
	return wrapErr(err)
}

// orderToPayload flattens the SDK order into the raw key/value shape the
// normalizer expects. SDK-reported strings stay strings; the normalizer
// coerces numerics itself.
func orderToPayload(o *futures.Order) map[string]any {
	remaining := ""
	if orig, err1 := strconv.ParseFloat(o.OrigQuantity, 64); err1 == nil {
		if exec, err2 := strconv.ParseFloat(o.ExecutedQuantity, 64); err2 == nil {
			remaining = strconv.FormatFloat(orig-exec, 'f', -1, 64)
		}
	}
	return map[string]any{
		"id":         strconv.FormatInt(o.OrderID, 10),
		"symbol":     o.Symbol,
		"type":       string(o.Type),
		"side":       string(o.Side),
		"status":     string(o.Status),
		"price":      o.Price,
		"amount":     o.OrigQuantity,
		"filled":     o.ExecutedQuantity,
		"remaining":  remaining,
		"average":    o.AvgPrice,
		"stopPrice":  o.StopPrice,
		"reduceOnly": o.ReduceOnly,
		"info": map[string]any{
			"clientOrderId": o.ClientOrderID,
			"positionSide":  string(o.PositionSide),
			"timeInForce":   string(o.TimeInForce),
			"origType":      string(o.OrigType),
			"closePosition": o.ClosePosition,
			"updateTime":    o.UpdateTime,
		},
	}
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if _, ok := notVisibleCodes[apiErr.Code]; ok {
			return venue.ErrNotVisible
		}
	}
	return err
}
