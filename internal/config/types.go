package config

import (
	"strings"
	"time"
)

// Config 是 Ordo 的主配置载体。
type Config struct {
	App     AppConfig     `toml:"app"`
	Engine  EngineConfig  `toml:"engine"`
	Journal JournalConfig `toml:"journal"`
	Stream  StreamConfig  `toml:"stream"`
	Notify  NotifyConfig  `toml:"notify"`
	Venues  VenuesConfig  `toml:"venues"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// EngineConfig 控制对账循环的节奏与严格程度。
type EngineConfig struct {
	SweepInterval  string `toml:"sweep_interval"`
	SweepOffsetMS  int    `toml:"sweep_offset_ms"`
	RunImmediately bool   `toml:"run_immediately"`
	// Strict raises on executed-size precision mismatches instead of
	// adopting the venue value.
	Strict bool `toml:"strict"`
}

func (e EngineConfig) SweepOffset() time.Duration {
	return time.Duration(e.SweepOffsetMS) * time.Millisecond
}

type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type StreamConfig struct {
	Enabled        bool `toml:"enabled"`
	CacheMaxPerKey int  `toml:"cache_max_per_key"`
	// Subscribe holds raw frames sent after connect; the exact shape is
	// venue-specific and private channels usually need signed payloads.
	Subscribe []string `toml:"subscribe"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

type VenuesConfig struct {
	Active  string        `toml:"active"`
	Sources []VenueConfig `toml:"sources"`
}

// VenueConfig 描述单个交易所账户上下文。
type VenueConfig struct {
	Name       string `toml:"name"`
	Enabled    bool   `toml:"enabled"`
	MarketType string `toml:"market_type"`
	Network    string `toml:"network"`

	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`

	RESTBaseURL string      `toml:"rest_base_url"`
	WSBaseURL   string      `toml:"ws_base_url"`
	Proxy       ProxyConfig `toml:"proxy"`

	RateLimitMS int  `toml:"rate_limit_ms"`
	Attempts    int  `toml:"attempts"`
	Hedged      bool `toml:"hedged"`

	CommissionRate      float64 `toml:"commission_rate"`
	SizePrecision       int32   `toml:"size_precision"`
	PricePrecision      int32   `toml:"price_precision"`
	ValuePrecision      int32   `toml:"value_precision"`
	CommissionPrecision int32   `toml:"commission_precision"`

	// Overrides for the adapter's built-in mapping tables. Keys of
	// OrderTypes are canonical execution styles ("market", "limit",
	// "stop_market", "stop_limit"); StatusRules keys are the six
	// classification categories.
	OrderTypes  map[string]string           `toml:"order_types"`
	StatusRules map[string]StatusRuleConfig `toml:"status_rules"`
}

type StatusRuleConfig struct {
	Key   string `toml:"key"`
	Value string `toml:"value"`
}

func (v VenueConfig) RateLimit() time.Duration {
	return time.Duration(v.RateLimitMS) * time.Millisecond
}

type ProxyConfig struct {
	Enabled bool   `toml:"enabled"`
	RESTURL string `toml:"rest_url"`
	WSURL   string `toml:"ws_url"`
}

func (p *ProxyConfig) normalize() {
	if p == nil {
		return
	}
	p.RESTURL = strings.TrimSpace(p.RESTURL)
	p.WSURL = strings.TrimSpace(p.WSURL)
}

// ResolveActive returns the venue entry the engine should run against.
func (v VenuesConfig) ResolveActive() VenueConfig {
	if len(v.Sources) == 0 {
		return VenueConfig{
			Name:        "binance",
			Enabled:     true,
			MarketType:  "futures",
			Network:     "mainnet",
			RESTBaseURL: defaultBinanceREST,
		}
	}
	active := strings.ToLower(strings.TrimSpace(v.Active))
	var fallback VenueConfig
	for _, src := range v.Sources {
		if fallback.Name == "" {
			fallback = src
		}
		if !src.Enabled {
			continue
		}
		if active == "" || strings.ToLower(src.Name) == active {
			return src
		}
	}
	return fallback
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
