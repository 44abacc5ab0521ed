package config

import (
	"fmt"
	"strings"
)

// 默认值常量
const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":9992"
	defaultAppLogPath        = "/data/logs/ordo.log"
	defaultSweepInterval     = "5s"
	defaultSweepOffsetMS     = 250
	defaultJournalPath       = "/data/db/ordo_journal.db"
	defaultCacheMaxPerKey    = 200
	defaultVenueName         = "binance"
	defaultBinanceREST       = "https://fapi.binance.com"
	defaultMarketType        = "futures"
	defaultNetwork           = "mainnet"
	defaultRateLimitMS       = 200
	defaultAttempts          = 5
	defaultCommissionRate    = 0.0005
	defaultSizePrecision     = 8
	defaultPricePrecision    = 8
	defaultValuePrecision    = 8
	defaultCommissionPrec    = 8
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Engine.applyDefaults(keys)
	c.Journal.applyDefaults(keys)
	c.Stream.applyDefaults(keys)
	c.Venues.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (e *EngineConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("engine.sweep_interval", &e.SweepInterval, defaultSweepInterval),
		fieldDefault{
			key:   "engine.sweep_offset_ms",
			need:  func() bool { return e.SweepOffsetMS <= 0 },
			apply: func() { e.SweepOffsetMS = defaultSweepOffsetMS },
		},
	)
}

func (j *JournalConfig) applyDefaults(keys keySet) {
	if j == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("journal.enabled", &j.Enabled, true),
		stringFieldDefault("journal.path", &j.Path, defaultJournalPath),
	)
}

func (s *StreamConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("stream.enabled", &s.Enabled, true),
		fieldDefault{
			key:   "stream.cache_max_per_key",
			need:  func() bool { return s.CacheMaxPerKey <= 0 },
			apply: func() { s.CacheMaxPerKey = defaultCacheMaxPerKey },
		},
	)
}

func (v *VenuesConfig) applyDefaults(keys keySet) {
	if v == nil {
		return
	}
	if len(v.Sources) == 0 {
		v.Sources = []VenueConfig{{
			Name:        defaultVenueName,
			Enabled:     true,
			MarketType:  defaultMarketType,
			Network:     defaultNetwork,
			RESTBaseURL: defaultBinanceREST,
		}}
	}
	for i := range v.Sources {
		src := &v.Sources[i]
		src.Proxy.normalize()
		if strings.TrimSpace(src.Name) == "" {
			if i == 0 {
				src.Name = defaultVenueName
			} else {
				src.Name = fmt.Sprintf("venue_%d", i)
			}
		}
		if strings.TrimSpace(src.MarketType) == "" {
			src.MarketType = defaultMarketType
		}
		if strings.TrimSpace(src.Network) == "" {
			src.Network = defaultNetwork
		}
		if src.RateLimitMS <= 0 {
			src.RateLimitMS = defaultRateLimitMS
		}
		if src.Attempts <= 0 {
			src.Attempts = defaultAttempts
		}
		if src.CommissionRate <= 0 {
			src.CommissionRate = defaultCommissionRate
		}
		if src.SizePrecision <= 0 {
			src.SizePrecision = defaultSizePrecision
		}
		if src.PricePrecision <= 0 {
			src.PricePrecision = defaultPricePrecision
		}
		if src.ValuePrecision <= 0 {
			src.ValuePrecision = defaultValuePrecision
		}
		if src.CommissionPrecision <= 0 {
			src.CommissionPrecision = defaultCommissionPrec
		}
	}
	if strings.TrimSpace(v.Active) == "" {
		v.Active = firstEnabledVenue(v.Sources)
	}
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func firstEnabledVenue(sources []VenueConfig) string {
	for _, src := range sources {
		name := strings.TrimSpace(src.Name)
		if src.Enabled && name != "" {
			return name
		}
	}
	if len(sources) > 0 {
		if name := strings.TrimSpace(sources[0].Name); name != "" {
			return name
		}
	}
	return defaultVenueName
}
