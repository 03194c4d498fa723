package scan

import (
	"testing"

	"github.com/dnldd/pulse/shared"
	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

func TestHistory(t *testing.T) {
	// Ensure history sizes are validated.
	_, err := NewHistory(0)
	assert.Error(t, err)
	_, err = NewHistory(-1)
	assert.Error(t, err)

	history, err := NewHistory(3)
	assert.NoError(t, err)
	assert.Equal(t, history.Count(), 0)
	assert.Nil(t, history.Last())

	for idx := range 3 {
		history.Append(&shared.Candlestick{Start: int64(idx), Volume: float64(idx + 1)})
	}

	assert.Equal(t, history.Count(), 3)
	assert.Equal(t, history.Last().Start, int64(2))

	// Ensure appending at capacity evicts the oldest entry.
	history.Append(&shared.Candlestick{Start: 3, Volume: 4})
	assert.Equal(t, history.Count(), 3)
	assert.Equal(t, history.Last().Start, int64(3))

	volumes := history.Volumes()
	if diff := cmp.Diff([]float64{2, 3, 4}, volumes); diff != "" {
		t.Errorf("unexpected volume series (-want +got):\n%s", diff)
	}
}

func TestHistoryTrueRanges(t *testing.T) {
	history, err := NewHistory(historyCapacity(5))
	assert.NoError(t, err)

	history.Append(&shared.Candlestick{Open: 100, High: 104, Low: 98, Close: 103})
	history.Append(&shared.Candlestick{Open: 103, High: 110, Low: 102, Close: 109})
	history.Append(&shared.Candlestick{Open: 95, High: 96, Low: 94, Close: 95})

	trueRanges := history.TrueRanges()
	want := []float64{
		6,  // first candle: high-low.
		8,  // max(110-102, |110-103|, |102-103|).
		15, // max(96-94, |96-109|, |94-109|).
	}
	if diff := cmp.Diff(want, trueRanges); diff != "" {
		t.Errorf("unexpected true range series (-want +got):\n%s", diff)
	}
}

func TestHistoryCapacity(t *testing.T) {
	assert.Equal(t, historyCapacity(5), int32(115))
	assert.Equal(t, historyCapacity(0), int32(110))

	// Ensure a negative cooldown is clamped.
	assert.Equal(t, historyCapacity(-3), int32(110))
}
