package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"BTC/USDT", "BTC/USDT"},
		{"btc/usdt", "BTC/USDT"},
		{"BTC/USDT:USDT", "BTC/USDT"},
		{"BTC_USDT", "BTC/USDT"},
		{"ETHUSDT", "ETH/USDT"},
		{"SOLBTC", "SOL/BTC"},
		{"USDT", ""},
		{"", ""},
		{"garbage", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Split(tc.input).Canonical(), tc.input)
	}
}

func TestVenueSpellings(t *testing.T) {
	assert.Equal(t, "BTCUSDT", ToBinance("BTC/USDT"))
	assert.Equal(t, "BTC/USDT", FromBinance("BTCUSDT"))
	assert.Equal(t, "BTC_USDT", ToGate("BTC/USDT"))
	assert.Equal(t, "BTC/USDT", FromGate("BTC_USDT"))
	assert.Equal(t, "", ToGate(" "))
}

func TestPairValid(t *testing.T) {
	assert.True(t, Split("ETH/USDT").Valid())
	assert.False(t, Split("garbage").Valid())
}
