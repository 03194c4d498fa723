package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

func TestParseInstruments(t *testing.T) {
	data := []byte(`{
		"retCode": 0,
		"result": {
			"category": "linear",
			"list": [
				{"symbol": "BTCUSDT", "status": "Trading", "quoteCoin": "USDT"},
				{"symbol": "ETHUSDT", "status": "Trading", "quoteCoin": "USDT"},
				{"symbol": "OLDUSDT", "status": "Closed", "quoteCoin": "USDT"},
				{"symbol": "BTCUSDC", "status": "Trading", "quoteCoin": "USDC"},
				{"symbol": "", "status": "Trading"}
			],
			"nextPageCursor": "abc"
		}
	}`)

	markets, cursor := parseInstruments(data)
	assert.Equal(t, cursor, "abc")
	if diff := cmp.Diff([]string{"BTCUSDT", "ETHUSDT"}, markets); diff != "" {
		t.Errorf("unexpected markets (-want +got):\n%s", diff)
	}
}

func TestRosterRefresh(t *testing.T) {
	// Serve two pages of instruments.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("cursor") {
		case "":
			w.Write([]byte(`{"result":{"list":[{"symbol":"BTCUSDT","status":"Trading"}],"nextPageCursor":"next"}}`))
		default:
			w.Write([]byte(`{"result":{"list":[{"symbol":"ETHUSDT","status":"Trading"}],"nextPageCursor":""}}`))
		}
	}))
	defer server.Close()

	roster := NewRoster(&RosterConfig{BaseURL: server.URL})

	added, err := roster.Refresh(context.Background())
	assert.NoError(t, err)
	if diff := cmp.Diff([]string{"BTCUSDT", "ETHUSDT"}, added); diff != "" {
		t.Errorf("unexpected additions (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"BTCUSDT", "ETHUSDT"}, roster.Markets()); diff != "" {
		t.Errorf("unexpected roster (-want +got):\n%s", diff)
	}

	// Ensure a refresh reports only additions.
	added, err = roster.Refresh(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, len(added), 0)
}
