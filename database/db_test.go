package database

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestGenerateTCod(t *testing.T) {
	assert.Equal(t, generateTCod("BTCUSDT", 1700000000, "candle"), "BTCUSDT-1700000000-candle")
	assert.Equal(t, generateTCod("BTCUSDT", 1700000000, "spike"), "BTCUSDT-1700000000-spike")

	// Keys are stable across replays of the same record.
	assert.Equal(t, generateTCod("ETHUSDT", 1700000123456, "burst"),
		generateTCod("ETHUSDT", 1700000123456, "burst"))
}
