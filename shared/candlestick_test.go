package shared

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestFetchDirection(t *testing.T) {
	tests := []struct {
		name   string
		candle Candlestick
		want   Direction
	}{
		{
			name: "flat candle",
			candle: Candlestick{
				Open:  5,
				Close: 5,
				High:  9,
				Low:   1,
			},
			want: Flat,
		},
		{
			name: "up candle",
			candle: Candlestick{
				Open:  5,
				Close: 15,
				High:  20,
				Low:   1,
			},
			want: Up,
		},
		{
			name: "down candle",
			candle: Candlestick{
				Open:  15,
				Close: 5,
				High:  20,
				Low:   1,
			},
			want: Down,
		},
	}

	for _, test := range tests {
		direction := test.candle.FetchDirection()
		if direction != test.want {
			t.Errorf("%s: expected direction %v, got %v", test.name, test.want, direction)
		}
	}
}

func TestApplyTick(t *testing.T) {
	first := &Tick{Market: "BTCUSDT", TimeMs: 1_700_000_000_123, Price: 100, Qty: 2}
	candle := NewCandlestick(first)

	assert.Equal(t, candle.Start, int64(1_700_000_000))
	assert.Equal(t, candle.Open, float64(100))
	assert.Equal(t, candle.Volume, float64(2))

	// Ensure high, low, close and volume track subsequent ticks.
	candle.ApplyTick(&Tick{Market: "BTCUSDT", TimeMs: 1_700_000_000_400, Price: 104, Qty: 1})
	candle.ApplyTick(&Tick{Market: "BTCUSDT", TimeMs: 1_700_000_000_700, Price: 98, Qty: 3})
	candle.ApplyTick(&Tick{Market: "BTCUSDT", TimeMs: 1_700_000_000_900, Price: 101, Qty: 0.5})

	assert.Equal(t, candle.Open, float64(100))
	assert.Equal(t, candle.High, float64(104))
	assert.Equal(t, candle.Low, float64(98))
	assert.Equal(t, candle.Close, float64(101))
	assert.Equal(t, candle.Volume, float64(6.5))
}

func TestFinalize(t *testing.T) {
	candle := &Candlestick{Open: 100, High: 104, Low: 98, Close: 103, Volume: 5}
	candle.Finalize()

	assert.Equal(t, candle.Direction, Up)
	assert.Equal(t, candle.PriceChangePct, float64(3))

	// Ensure a zero open yields a zero price change percentage.
	zeroOpen := &Candlestick{Open: 0, Close: 3}
	zeroOpen.Finalize()
	assert.Equal(t, zeroOpen.PriceChangePct, float64(0))
}

func TestTrueRange(t *testing.T) {
	candle := &Candlestick{Open: 100, High: 104, Low: 98, Close: 103}

	// Ensure the first candle's true range is its high-low range.
	assert.Equal(t, candle.TrueRange(-1), float64(6))

	// Ensure gaps against the previous close widen the true range.
	assert.Equal(t, candle.TrueRange(90), float64(14))
	assert.Equal(t, candle.TrueRange(110), float64(12))
	assert.Equal(t, candle.TrueRange(101), float64(6))
}
