package config

import (
	"fmt"
	"strings"

	"ordo/internal/scheduler"
)

var validCategories = map[string]bool{
	"opened":           true,
	"partially_filled": true,
	"closed":           true,
	"canceled":         true,
	"expired":          true,
	"rejected":         true,
}

var validStyles = map[string]bool{
	"market":      true,
	"limit":       true,
	"stop_market": true,
	"stop_limit":  true,
}

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Engine.validate(); err != nil {
		return err
	}
	if err := c.Journal.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if err := c.Venues.validate(); err != nil {
		return err
	}
	return nil
}

func (e *EngineConfig) validate() error {
	if _, ok := scheduler.ParseIntervalDuration(e.SweepInterval); !ok {
		return fmt.Errorf("engine.sweep_interval is not a valid interval: %s", e.SweepInterval)
	}
	if e.SweepOffsetMS < 0 {
		return fmt.Errorf("engine.sweep_offset_ms must be >= 0")
	}
	return nil
}

func (j *JournalConfig) validate() error {
	if j.Enabled && strings.TrimSpace(j.Path) == "" {
		return fmt.Errorf("journal enabled but journal.path is empty")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notification enabled but missing bot_token or chat_id")
		}
	}
	return nil
}

func (v *VenuesConfig) validate() error {
	if len(v.Sources) == 0 {
		return fmt.Errorf("venues.sources requires at least one venue")
	}
	activeName := strings.ToLower(strings.TrimSpace(v.Active))
	enabled := 0
	activeFound := false
	for _, src := range v.Sources {
		if !src.Enabled {
			continue
		}
		enabled++
		if err := src.validate(); err != nil {
			return err
		}
		name := strings.ToLower(strings.TrimSpace(src.Name))
		if activeName == "" || name == activeName {
			activeFound = true
		}
	}
	if enabled == 0 {
		return fmt.Errorf("venues.sources requires at least one enabled venue")
	}
	if !activeFound {
		return fmt.Errorf("enabled venues.active=%s not found", v.Active)
	}
	return nil
}

func (v *VenueConfig) validate() error {
	name := strings.ToLower(strings.TrimSpace(v.Name))
	if name != "binance" && name != "gate" {
		return fmt.Errorf("unsupported venue: %s", v.Name)
	}
	if v.Proxy.Enabled && v.Proxy.RESTURL == "" && v.Proxy.WSURL == "" {
		return fmt.Errorf("venue %s has proxy enabled but no rest_url or ws_url", v.Name)
	}
	for style := range v.OrderTypes {
		if !validStyles[strings.ToLower(style)] {
			return fmt.Errorf("venue %s order_types contains unknown style: %s", v.Name, style)
		}
	}
	for cat, rule := range v.StatusRules {
		if !validCategories[strings.ToLower(cat)] {
			return fmt.Errorf("venue %s status_rules contains unknown category: %s", v.Name, cat)
		}
		if strings.TrimSpace(rule.Key) == "" {
			return fmt.Errorf("venue %s status_rules.%s missing key", v.Name, cat)
		}
	}
	return nil
}
