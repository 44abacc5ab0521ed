// Package symbol converts between the canonical "BASE/QUOTE" form used
// across the engine and the venue-native spellings ("BTCUSDT" on
// binance, "BTC_USDT" on gate).
package symbol

import "strings"

// quotes known to terminate a concatenated pair, longest first.
var quotes = []string{"USDT", "BUSD", "USDC", "TUSD", "BTC", "ETH", "BNB"}

type Pair struct {
	Base  string
	Quote string
}

func (p Pair) Canonical() string {
	if p.Base == "" || p.Quote == "" {
		return ""
	}
	return p.Base + "/" + p.Quote
}

func (p Pair) Valid() bool {
	return p.Base != "" && p.Quote != ""
}

// Split parses any of the supported spellings. A settle suffix like
// "BTC/USDT:USDT" is dropped. Returns the zero Pair when the input is
// not recognizable.
func Split(s string) Pair {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Pair{}
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	for _, sep := range []string{"/", "_"} {
		if parts := strings.SplitN(s, sep, 2); len(parts) == 2 {
			return Pair{Base: strings.TrimSpace(parts[0]), Quote: strings.TrimSpace(parts[1])}
		}
	}
	for _, q := range quotes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return Pair{Base: s[:len(s)-len(q)], Quote: q}
		}
	}
	return Pair{}
}

// ToBinance renders "BTC/USDT" as "BTCUSDT".
func ToBinance(canonical string) string {
	s := strings.ToUpper(strings.TrimSpace(canonical))
	return strings.ReplaceAll(s, "/", "")
}

// FromBinance renders "BTCUSDT" as "BTC/USDT".
func FromBinance(raw string) string {
	return Split(raw).Canonical()
}

// ToGate renders "BTC/USDT" as "BTC_USDT".
func ToGate(canonical string) string {
	s := strings.ToUpper(strings.TrimSpace(canonical))
	if s == "" {
		return ""
	}
	return strings.ReplaceAll(s, "/", "_")
}

// FromGate renders "BTC_USDT" as "BTC/USDT".
func FromGate(raw string) string {
	return Split(raw).Canonical()
}
