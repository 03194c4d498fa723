package fetch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

func TestParseTicks(t *testing.T) {
	msg := []byte(`{
		"topic": "publicTrade.BTCUSDT",
		"type": "snapshot",
		"ts": 1700000000123,
		"data": [
			{"T": 1700000000100, "s": "BTCUSDT", "S": "Buy", "v": "0.5", "p": "42000.1", "i": "a"},
			{"T": 1700000000105, "s": "BTCUSDT", "S": "Sell", "v": "1.25", "p": "41999.9", "i": "b"},
			{"T": 0, "s": "BTCUSDT", "S": "Buy", "v": "1", "p": "42000", "i": "c"}
		]
	}`)

	ticks := parseTicks(msg)

	// Ensure trade rows parse and the malformed row is dropped.
	assert.Equal(t, len(ticks), 2)
	assert.Equal(t, ticks[0].Market, "BTCUSDT")
	assert.Equal(t, ticks[0].TimeMs, int64(1700000000100))
	assert.Equal(t, ticks[0].Price, 42000.1)
	assert.Equal(t, ticks[0].Qty, 0.5)
	assert.Equal(t, ticks[1].Price, 41999.9)
	assert.Equal(t, ticks[1].Qty, 1.25)

	// Ensure non trade messages yield no ticks.
	assert.Equal(t, len(parseTicks([]byte(`{"op":"pong"}`))), 0)
	assert.Equal(t, len(parseTicks([]byte(`{"topic":"orderbook.50.BTCUSDT","data":[]}`))), 0)
}

func TestSubscribeFrames(t *testing.T) {
	// Ensure markets batch into frames of at most the batch size.
	markets := make([]string, 0, 12)
	for idx := range 12 {
		markets = append(markets, string(rune('A'+idx))+"USDT")
	}

	frames := subscribeFrames(markets)
	assert.Equal(t, len(frames), 2)

	want := `{"op":"subscribe","args":["publicTrade.KUSDT","publicTrade.LUSDT"]}`
	if diff := cmp.Diff(want, frames[1]); diff != "" {
		t.Errorf("unexpected subscribe frame (-want +got):\n%s", diff)
	}

	// Ensure no frames are produced for an empty set.
	assert.Equal(t, len(subscribeFrames(nil)), 0)
}
