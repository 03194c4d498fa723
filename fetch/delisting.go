package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dnldd/pulse/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// announcementsPath lists exchange announcements.
	announcementsPath = "/v5/announcements/index"
	// delistingType filters delisting announcements.
	delistingType = "delistings"
	// announcementPageLimit is the page size for announcement fetches.
	announcementPageLimit = 50
)

var (
	// usdtPairRegexp matches plain USDT pair mentions in announcement titles.
	usdtPairRegexp = regexp.MustCompile(`\b([A-Z0-9]{1,15})USDT\b`)
	// usdtSlashRegexp matches slash separated USDT pair mentions.
	usdtSlashRegexp = regexp.MustCompile(`\b([A-Z0-9]{1,15})/USDT\b`)
)

// WatcherConfig represents the delisting watcher configuration.
type WatcherConfig struct {
	// BaseURL is the REST endpoint.
	BaseURL string
	// FactTTL is the lifetime of delisting facts.
	FactTTL time.Duration
	// SetDelistingFact flags the provided market as delisting.
	SetDelistingFact func(market string, ttl time.Duration)
	// Storer persists and queries delisting announcements.
	Storer shared.DelistingStorer
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Watcher polls exchange announcements for delistings and relays them as facts. It is
// the slow external producer feeding the hot per-tick decision path through the
// fact store.
type Watcher struct {
	cfg   *WatcherConfig
	httpc http.Client
}

// NewWatcher initializes a new delisting watcher.
func NewWatcher(cfg *WatcherConfig) *Watcher {
	return &Watcher{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 15},
	}
}

// parseAnnouncementMarkets extracts USDT markets named in the provided title.
func parseAnnouncementMarkets(title string) []string {
	set := make(map[string]struct{})
	for _, match := range usdtPairRegexp.FindAllStringSubmatch(title, -1) {
		set[match[1]+usdtSuffix] = struct{}{}
	}
	for _, match := range usdtSlashRegexp.FindAllStringSubmatch(title, -1) {
		set[match[1]+usdtSuffix] = struct{}{}
	}

	markets := make([]string, 0, len(set))
	for market := range set {
		markets = append(markets, market)
	}
	sort.Strings(markets)
	return markets
}

// parseAnnouncements extracts delistings from the provided announcements response.
func parseAnnouncements(data []byte) []shared.Delisting {
	rows := gjson.GetBytes(data, "result.list").Array()

	delistings := make([]shared.Delisting, 0, len(rows))
	for idx := range rows {
		title := rows[idx].Get("title").String()
		if !strings.Contains(strings.ToLower(title), "delist") {
			continue
		}

		announced := time.UnixMilli(rows[idx].Get("publishTime").Int())
		for _, market := range parseAnnouncementMarkets(title) {
			delistings = append(delistings, shared.Delisting{
				Market:    market,
				Announced: announced,
				Title:     title,
			})
		}
	}

	return delistings
}

// fetchPage fetches a single announcements page.
func (w *Watcher) fetchPage(ctx context.Context, page int) ([]byte, error) {
	params := url.Values{}
	params.Add("locale", "en-US")
	params.Add("type", delistingType)
	params.Add("limit", fmt.Sprintf("%d", announcementPageLimit))
	params.Add("page", fmt.Sprintf("%d", page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s%s?%s", w.cfg.BaseURL, announcementsPath, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("creating announcements request: %w", err)
	}

	resp, err := w.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching announcements: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected announcements status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading announcements response: %w", err)
	}

	return body, nil
}

// applyFact sets a delisting fact with the remaining lifetime of the announcement.
func (w *Watcher) applyFact(delisting *shared.Delisting) {
	remaining := w.cfg.FactTTL - time.Since(delisting.Announced)
	if remaining <= 0 {
		return
	}

	w.cfg.SetDelistingFact(delisting.Market, remaining)
}

// RunOnce polls the first announcements page, relaying new delistings as facts and
// persisting them.
func (w *Watcher) RunOnce(ctx context.Context) error {
	body, err := w.fetchPage(ctx, 1)
	if err != nil {
		return err
	}

	delistings := parseAnnouncements(body)
	for idx := range delistings {
		w.applyFact(&delistings[idx])

		err := w.cfg.Storer.PersistDelisting(ctx, &delistings[idx])
		if err != nil {
			w.cfg.Logger.Error().Msgf("persisting %s delisting: %v", delistings[idx].Market, err)
		}
	}

	if len(delistings) > 0 {
		w.cfg.Logger.Info().Msgf("%d delisting markets flagged", len(delistings))
	}

	return nil
}

// WarmUp reloads facts for delistings persisted within the fact lifetime.
func (w *Watcher) WarmUp(ctx context.Context) error {
	since := time.Now().Add(-w.cfg.FactTTL)
	delistings, err := w.cfg.Storer.FetchRecentDelistings(ctx, since)
	if err != nil {
		return fmt.Errorf("fetching recent delistings: %w", err)
	}

	for idx := range delistings {
		w.applyFact(&delistings[idx])
	}

	if len(delistings) > 0 {
		w.cfg.Logger.Info().Msgf("%d delisting facts warmed from storage", len(delistings))
	}

	return nil
}
