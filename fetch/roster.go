package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// BaseRESTURL is the bybit REST endpoint.
	BaseRESTURL = "https://api.bybit.com"
	// instrumentsPath lists tradeable instruments.
	instrumentsPath = "/v5/market/instruments-info"
	// linearCategory selects linear perpetual instruments.
	linearCategory = "linear"
	// usdtSuffix filters for USDT quoted markets.
	usdtSuffix = "USDT"
)

// RosterConfig represents the configuration for the market roster.
type RosterConfig struct {
	// BaseURL is the REST endpoint.
	BaseURL string
}

// Roster tracks the set of active tradeable markets.
type Roster struct {
	cfg   *RosterConfig
	httpc http.Client

	marketsMtx sync.RWMutex
	markets    []string
}

// NewRoster initializes a new market roster.
func NewRoster(cfg *RosterConfig) *Roster {
	return &Roster{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 15},
	}
}

// parseInstruments extracts trading USDT markets and the next page cursor from the
// provided instruments response.
func parseInstruments(data []byte) ([]string, string) {
	payload := gjson.ParseBytes(data)
	rows := payload.Get("result.list").Array()

	markets := make([]string, 0, len(rows))
	for idx := range rows {
		market := rows[idx].Get("symbol").String()
		status := rows[idx].Get("status").String()
		if market == "" || !strings.EqualFold(status, "trading") {
			continue
		}
		if !strings.HasSuffix(market, usdtSuffix) {
			continue
		}

		markets = append(markets, market)
	}

	return markets, payload.Get("result.nextPageCursor").String()
}

// fetchPage fetches a single instruments page.
func (r *Roster) fetchPage(ctx context.Context, cursor string) ([]byte, error) {
	params := url.Values{}
	params.Add("category", linearCategory)
	if cursor != "" {
		params.Add("cursor", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s%s?%s", r.cfg.BaseURL, instrumentsPath, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("creating instruments request: %w", err)
	}

	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching instruments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected instruments status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading instruments response: %w", err)
	}

	return body, nil
}

// Refresh reloads the roster from the exchange, returning the markets added since the
// previous refresh.
func (r *Roster) Refresh(ctx context.Context) ([]string, error) {
	set := make(map[string]struct{})
	var cursor string
	for {
		body, err := r.fetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}

		markets, next := parseInstruments(body)
		for idx := range markets {
			set[markets[idx]] = struct{}{}
		}

		if next == "" {
			break
		}
		cursor = next
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("no tradeable markets returned")
	}

	markets := make([]string, 0, len(set))
	for market := range set {
		markets = append(markets, market)
	}
	sort.Strings(markets)

	r.marketsMtx.Lock()
	defer r.marketsMtx.Unlock()

	known := make(map[string]struct{}, len(r.markets))
	for idx := range r.markets {
		known[r.markets[idx]] = struct{}{}
	}

	added := make([]string, 0)
	for idx := range markets {
		if _, ok := known[markets[idx]]; !ok {
			added = append(added, markets[idx])
		}
	}

	r.markets = markets
	return added, nil
}

// Markets returns the current roster.
func (r *Roster) Markets() []string {
	r.marketsMtx.RLock()
	defer r.marketsMtx.RUnlock()

	markets := make([]string, len(r.markets))
	copy(markets, r.markets)
	return markets
}
