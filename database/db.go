package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/pulse/shared"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createCandleTableSQL = "CREATE TABLE IF NOT EXISTS candle (tcod TEXT PRIMARY KEY, market TEXT, start INTEGER, " +
		"open REAL, high REAL, low REAL, close REAL, volume REAL, direction TEXT, pricechangepct REAL, createdon INTEGER)"
	createSpikeTableSQL = "CREATE TABLE IF NOT EXISTS spike (tcod TEXT PRIMARY KEY, id TEXT, market TEXT, start INTEGER, " +
		"open REAL, high REAL, low REAL, close REAL, volume REAL, direction TEXT, pricechangepct REAL, " +
		"avgvolume20 REAL, avgvolume50 REAL, avgvolume100 REAL, " +
		"volumemultiple20 INTEGER, volumemultiple50 INTEGER, volumemultiple100 INTEGER, " +
		"avgpricechange20 REAL, avgpricechange50 REAL, avgpricechange100 REAL, " +
		"pricemultiple20 INTEGER, pricemultiple50 INTEGER, pricemultiple100 INTEGER, " +
		"atrpct20 REAL, atrpct50 REAL, atrpct100 REAL, createdon INTEGER)"
	createBurstTableSQL = "CREATE TABLE IF NOT EXISTS burst (tcod TEXT PRIMARY KEY, id TEXT, market TEXT, timems INTEGER, " +
		"price REAL, qty REAL, ticksshort INTEGER, tickslong INTEGER, rateshort REAL, ratelong REAL, rateratio REAL, " +
		"volrateshort REAL, volratelong REAL, volrateratio REAL, micromovepct REAL, windowstartprice REAL, createdon INTEGER)"
	createEarlyOrderTableSQL = "CREATE TABLE IF NOT EXISTS earlyorder (tcod TEXT PRIMARY KEY, id TEXT, market TEXT, " +
		"timems INTEGER, price REAL, qty REAL, direction TEXT, side TEXT, micromovepct REAL, quote REAL, " +
		"leverage INTEGER, createdon INTEGER)"
	createDelistingTableSQL = "CREATE TABLE IF NOT EXISTS delisting (tcod TEXT PRIMARY KEY, market TEXT, " +
		"announced INTEGER, title TEXT)"

	persistCandleSQL = "INSERT OR REPLACE INTO candle(tcod, market, start, open, high, low, close, volume, direction, " +
		"pricechangepct, createdon) VALUES(?,?,?,?,?,?,?,?,?,?,?)"
	persistSpikeSQL = "INSERT OR REPLACE INTO spike(tcod, id, market, start, open, high, low, close, volume, direction, " +
		"pricechangepct, avgvolume20, avgvolume50, avgvolume100, volumemultiple20, volumemultiple50, volumemultiple100, " +
		"avgpricechange20, avgpricechange50, avgpricechange100, pricemultiple20, pricemultiple50, pricemultiple100, " +
		"atrpct20, atrpct50, atrpct100, createdon) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)"
	persistBurstSQL = "INSERT OR REPLACE INTO burst(tcod, id, market, timems, price, qty, ticksshort, tickslong, " +
		"rateshort, ratelong, rateratio, volrateshort, volratelong, volrateratio, micromovepct, windowstartprice, " +
		"createdon) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)"
	persistEarlyOrderSQL = "INSERT OR REPLACE INTO earlyorder(tcod, id, market, timems, price, qty, direction, side, " +
		"micromovepct, quote, leverage, createdon) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)"
	persistDelistingSQL = "INSERT OR REPLACE INTO delisting(tcod, market, announced, title) VALUES(?,?,?,?)"

	findRecentDelistingsSQL = "SELECT market, announced, title FROM delisting WHERE announced >= ?"
)

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the storer interfaces.
var _ shared.CandleStorer = (*Database)(nil)
var _ shared.SignalStorer = (*Database)(nil)
var _ shared.DelistingStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createCandleTableSQL},
		{SQL: createSpikeTableSQL},
		{SQL: createBurstTableSQL},
		{SQL: createEarlyOrderTableSQL},
		{SQL: createDelistingTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// generateTCod generates deterministic row keys from the market, a timestamp
// and a record tag, so replayed records overwrite themselves instead of
// duplicating.
func generateTCod(market string, timestamp int64, tag string) string {
	return fmt.Sprintf("%s-%d-%s", market, timestamp, tag)
}

// execute runs the provided statement and surfaces statement level errors.
func (db *Database) execute(ctx context.Context, sql string, params []any) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL:              sql,
			PositionalParams: params,
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("executing statement: %d -> %s", idx, errStr)
	}

	return nil
}

// PersistCandle stores the provided candle to the database.
func (db *Database) PersistCandle(ctx context.Context, candle *shared.Candlestick) error {
	tcod := generateTCod(candle.Market, candle.Start, "candle")
	return db.execute(ctx, persistCandleSQL, []any{tcod, candle.Market, candle.Start, candle.Open,
		candle.High, candle.Low, candle.Close, candle.Volume, candle.Direction.String(),
		candle.PriceChangePct, candle.CreatedOn.Unix()})
}

// PersistSpike stores the provided volume spike to the database.
func (db *Database) PersistSpike(ctx context.Context, spike *shared.Spike) error {
	candle := spike.Candle
	metrics := candle.Metrics
	tcod := generateTCod(spike.Market, candle.Start, "spike")
	return db.execute(ctx, persistSpikeSQL, []any{tcod, spike.ID, spike.Market, candle.Start,
		candle.Open, candle.High, candle.Low, candle.Close, candle.Volume, candle.Direction.String(),
		candle.PriceChangePct, metrics.AvgVolume20, metrics.AvgVolume50, metrics.AvgVolume100,
		metrics.VolumeMultiple20, metrics.VolumeMultiple50, metrics.VolumeMultiple100,
		metrics.AvgPriceChange20, metrics.AvgPriceChange50, metrics.AvgPriceChange100,
		metrics.PriceMultiple20, metrics.PriceMultiple50, metrics.PriceMultiple100,
		metrics.ATRPct20, metrics.ATRPct50, metrics.ATRPct100, spike.CreatedOn.Unix()})
}

// PersistTickBurst stores the provided tick burst to the database.
func (db *Database) PersistTickBurst(ctx context.Context, burst *shared.TickBurst) error {
	tcod := generateTCod(burst.Market, burst.TimeMs, "burst")
	return db.execute(ctx, persistBurstSQL, []any{tcod, burst.ID, burst.Market, burst.TimeMs,
		burst.Price, burst.Qty, burst.TicksShort, burst.TicksLong, burst.RateShort, burst.RateLong,
		burst.RateRatio, burst.VolRateShort, burst.VolRateLong, burst.VolRateRatio,
		burst.MicroMovePct, burst.WindowStartPrice, burst.CreatedOn.Unix()})
}

// PersistEarlyOrder stores the provided early order to the database.
func (db *Database) PersistEarlyOrder(ctx context.Context, order *shared.EarlyOrder) error {
	tcod := generateTCod(order.Market, order.TimeMs, "earlyorder")
	return db.execute(ctx, persistEarlyOrderSQL, []any{tcod, order.ID, order.Market, order.TimeMs,
		order.Price, order.Qty, order.Direction.String(), order.Side.String(), order.MicroMovePct,
		order.Quote, order.Leverage, order.CreatedOn.Unix()})
}

// PersistDelisting stores the provided delisting announcement to the database.
func (db *Database) PersistDelisting(ctx context.Context, delisting *shared.Delisting) error {
	tcod := generateTCod(delisting.Market, delisting.Announced.UnixMilli(), "delisting")
	return db.execute(ctx, persistDelistingSQL, []any{tcod, delisting.Market,
		delisting.Announced.UnixMilli(), delisting.Title})
}

// FetchRecentDelistings fetches delistings announced at or after the provided time.
func (db *Database) FetchRecentDelistings(ctx context.Context, since time.Time) ([]shared.Delisting, error) {
	resp, err := db.client.QuerySingle(ctx, findRecentDelistingsSQL, since.UnixMilli())
	if err != nil {
		return nil, err
	}

	results := resp.GetQueryResultsAssoc()
	delistings := make([]shared.Delisting, 0)
	for idx := range results {
		for _, row := range results[idx].Rows {
			market, mok := row["market"].(string)
			title, tok := row["title"].(string)

			var announced int64
			switch v := row["announced"].(type) {
			case float64:
				announced = int64(v)
			case int64:
				announced = v
			default:
				mok = false
			}

			if !mok || !tok {
				db.cfg.Logger.Error().Msgf("unexpected delisting record: %s", spew.Sdump(row))
				continue
			}

			delistings = append(delistings, shared.Delisting{
				Market:    market,
				Announced: time.UnixMilli(announced),
				Title:     title,
			})
		}
	}

	return delistings, nil
}
