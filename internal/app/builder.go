package app

import (
	"fmt"
	"strings"
	"time"

	"ordo/internal/config"
	"ordo/internal/engine"
	"ordo/internal/journal"
	"ordo/internal/locate"
	"ordo/internal/logger"
	"ordo/internal/notifier"
	"ordo/internal/order"
	"ordo/internal/pkg/circuit"
	"ordo/internal/position"
	"ordo/internal/retry"
	"ordo/internal/stream"
	adminhttp "ordo/internal/transport/http"
	"ordo/internal/venue"
	"ordo/internal/venue/binance"
	"ordo/internal/venue/gate"
)

const (
	defaultGateREST   = "https://api.gateio.ws/api/v4"
	defaultBinanceWS  = "wss://fstream.binance.com/ws"
	defaultGateWS     = "wss://fx-ws.gateio.ws/v4/ws/usdt"
	fetcherTimeout    = 15 * time.Second
	breakerThreshold  = 5
	breakerOpenWindow = 30 * time.Second
)

// build 根据配置装配全部依赖（不启动）。
func build(cfg *config.Config) (*App, error) {
	active := cfg.Venues.ResolveActive()
	name := strings.ToLower(strings.TrimSpace(active.Name))

	adapter, fetcher, err := buildVenue(name, active)
	if err != nil {
		return nil, err
	}

	cache := locate.NewCache(cfg.Stream.CacheMaxPerKey)
	policy := retry.New(active.Attempts, active.RateLimit(), adapter.Classify)
	breaker := circuit.NewBreaker(name+"-locate", breakerThreshold, breakerOpenWindow)
	locator := locate.NewLocator(cache, fetcher, adapter, policy).WithBreaker(breaker)

	book := position.NewBook(active.Hedged, position.Precision{
		Quantity: active.SizePrecision,
		Price:    active.PricePrecision,
	})
	calc := position.Calculator{
		CommissionRate:      active.CommissionRate,
		ValuePrecision:      active.ValuePrecision,
		CommissionPrecision: active.CommissionPrecision,
	}

	var jnl *journal.Journal
	if cfg.Journal.Enabled {
		jnl, err = journal.Open(cfg.Journal.Path, journal.Scope{
			Venue:      name,
			MarketType: active.MarketType,
			Network:    active.Network,
		})
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
	}

	var notify notifier.TextNotifier
	if cfg.Notify.Telegram.Enabled {
		notify = notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
	}

	var canceler venue.Canceler
	if c, ok := fetcher.(venue.Canceler); ok {
		canceler = c
	}

	eng, err := engine.New(engine.Config{Strict: cfg.Engine.Strict}, engine.Deps{
		Adapter:  adapter,
		Locator:  locator,
		Book:     book,
		Calc:     calc,
		Journal:  jnl,
		Notify:   notify,
		Canceler: canceler,
		Policy:   policy,
	})
	if err != nil {
		return nil, err
	}

	var updater *stream.Updater
	if cfg.Stream.Enabled {
		wsURL := resolveWS(name, active)
		if wsURL != "" {
			updater = stream.NewUpdater(wsURL, cache, adapter)
			updater.SubscribePayloads = cfg.Stream.Subscribe
			updater.OnDisconnected = func(err error) {
				logger.Warnf("app: %s stream disconnected: %v", name, err)
			}
		}
	}

	admin, err := adminhttp.NewServer(adminhttp.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		Engine:  eng,
		Book:    book,
		Journal: jnl,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:     cfg,
		engine:  eng,
		book:    book,
		journal: jnl,
		updater: updater,
		admin:   admin,
	}, nil
}

func buildVenue(name string, active config.VenueConfig) (venue.Adapter, venue.Fetcher, error) {
	overlay := tablesFromConfig(active)
	switch name {
	case "binance":
		adapter := binance.NewAdapter(overlay, active.RateLimit())
		fetcher := binance.NewFetcher(active.APIKey, active.APISecret, resolveREST(active, ""))
		return adapter, fetcher, nil
	case "gate":
		adapter := gate.NewAdapter(overlay, active.RateLimit())
		fetcher := gate.NewFetcher(resolveREST(active, defaultGateREST), active.APIKey, active.APISecret, fetcherTimeout)
		return adapter, fetcher, nil
	default:
		return nil, nil, fmt.Errorf("unsupported venue: %s", name)
	}
}

// tablesFromConfig 把配置中的覆盖表转换为适配器叠加表。
func tablesFromConfig(v config.VenueConfig) venue.Tables {
	t := venue.Tables{
		OrderTypes:  make(map[order.ExecStyle]string, len(v.OrderTypes)),
		StatusRules: make(map[order.Category]order.StatusRule, len(v.StatusRules)),
	}
	for style, venueType := range v.OrderTypes {
		t.OrderTypes[order.ExecStyle(strings.ToLower(style))] = venueType
	}
	for cat, rule := range v.StatusRules {
		t.StatusRules[order.Category(strings.ToLower(cat))] = order.StatusRule{
			Key:   rule.Key,
			Value: rule.Value,
		}
	}
	return t
}

func resolveREST(v config.VenueConfig, fallback string) string {
	if v.Proxy.Enabled && v.Proxy.RESTURL != "" {
		return v.Proxy.RESTURL
	}
	if v.RESTBaseURL != "" {
		return v.RESTBaseURL
	}
	return fallback
}

func resolveWS(name string, v config.VenueConfig) string {
	if v.Proxy.Enabled && v.Proxy.WSURL != "" {
		return v.Proxy.WSURL
	}
	if v.WSBaseURL != "" {
		return v.WSBaseURL
	}
	switch name {
	case "binance":
		return defaultBinanceWS
	case "gate":
		return defaultGateWS
	}
	return ""
}
