package fetch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dnldd/pulse/shared"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// BaseWebsocketURL is the bybit linear public stream endpoint.
	BaseWebsocketURL = "wss://stream.bybit.com/v5/public/linear"
	// pingInterval is the application level ping cadence expected by the exchange.
	pingInterval = time.Second * 20
	// subscribeBatchSize bounds the topics sent per subscribe frame.
	subscribeBatchSize = 10
	// minReconnectDelay and maxReconnectDelay bound the reconnect backoff.
	minReconnectDelay = time.Second
	maxReconnectDelay = time.Minute
	// tradeTopicPrefix is the public trade topic prefix.
	tradeTopicPrefix = "publicTrade."
)

// ClientConfig represents the configuration for the tick stream client.
type ClientConfig struct {
	// URL is the websocket endpoint.
	URL string
	// Markets represents the initially subscribed markets.
	Markets []string
	// SendTick relays the provided tick for processing.
	SendTick func(tick *shared.Tick)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Client streams public trades for the subscribed markets over a websocket,
// reconnecting with exponential backoff on failures.
type Client struct {
	cfg *ClientConfig

	connMtx sync.Mutex
	conn    *websocket.Conn
	markets map[string]struct{}
}

// NewClient initializes a new tick stream client.
func NewClient(cfg *ClientConfig) *Client {
	markets := make(map[string]struct{}, len(cfg.Markets))
	for idx := range cfg.Markets {
		markets[cfg.Markets[idx]] = struct{}{}
	}

	return &Client{
		cfg:     cfg,
		markets: markets,
	}
}

// parseTicks extracts ticks from the provided public trade message. Messages without
// a public trade topic yield no ticks.
func parseTicks(msg []byte) []*shared.Tick {
	payload := gjson.ParseBytes(msg)
	topic := payload.Get("topic").String()
	if !strings.HasPrefix(topic, tradeTopicPrefix) {
		return nil
	}

	market := strings.TrimPrefix(topic, tradeTopicPrefix)
	rows := payload.Get("data").Array()
	ticks := make([]*shared.Tick, 0, len(rows))
	for idx := range rows {
		tick := &shared.Tick{
			Market: market,
			TimeMs: rows[idx].Get("T").Int(),
			Price:  rows[idx].Get("p").Float(),
			Qty:    rows[idx].Get("v").Float(),
		}
		if tick.TimeMs == 0 || tick.Price == 0 {
			// Malformed trade rows are dropped.
			continue
		}

		ticks = append(ticks, tick)
	}

	return ticks
}

// subscribeFrames batches the provided markets into subscribe frames.
func subscribeFrames(markets []string) []string {
	frames := make([]string, 0, len(markets)/subscribeBatchSize+1)
	for start := 0; start < len(markets); start += subscribeBatchSize {
		end := min(start+subscribeBatchSize, len(markets))

		args := make([]string, 0, end-start)
		for _, market := range markets[start:end] {
			args = append(args, fmt.Sprintf("%q", tradeTopicPrefix+market))
		}

		frames = append(frames, fmt.Sprintf(`{"op":"subscribe","args":[%s]}`, strings.Join(args, ",")))
	}

	return frames
}

// writeFrames sends the provided frames on the active connection.
func (c *Client) writeFrames(frames []string) error {
	c.connMtx.Lock()
	defer c.connMtx.Unlock()

	if c.conn == nil {
		return fmt.Errorf("no active connection")
	}

	for idx := range frames {
		err := c.conn.WriteMessage(websocket.TextMessage, []byte(frames[idx]))
		if err != nil {
			return fmt.Errorf("writing frame: %w", err)
		}
	}

	return nil
}

// Subscribe adds the provided markets to the subscription set and subscribes them on
// the active connection, if any.
func (c *Client) Subscribe(markets []string) error {
	added := make([]string, 0, len(markets))

	c.connMtx.Lock()
	for idx := range markets {
		if _, ok := c.markets[markets[idx]]; ok {
			continue
		}
		c.markets[markets[idx]] = struct{}{}
		added = append(added, markets[idx])
	}
	c.connMtx.Unlock()

	if len(added) == 0 {
		return nil
	}

	return c.writeFrames(subscribeFrames(added))
}

// subscribedMarkets returns the current subscription set.
func (c *Client) subscribedMarkets() []string {
	c.connMtx.Lock()
	defer c.connMtx.Unlock()

	markets := make([]string, 0, len(c.markets))
	for market := range c.markets {
		markets = append(markets, market)
	}

	return markets
}

// ping keeps the connection alive with application level pings.
func (c *Client) ping(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.connMtx.Lock()
			err := conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"ping"}`))
			c.connMtx.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// stream connects, subscribes and relays ticks until the connection fails or the
// context is cancelled.
func (c *Client) stream(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", c.cfg.URL, err)
	}
	defer conn.Close()

	c.connMtx.Lock()
	c.conn = conn
	c.connMtx.Unlock()
	defer func() {
		c.connMtx.Lock()
		c.conn = nil
		c.connMtx.Unlock()
	}()

	markets := c.subscribedMarkets()
	err = c.writeFrames(subscribeFrames(markets))
	if err != nil {
		return fmt.Errorf("subscribing %d markets: %w", len(markets), err)
	}
	c.cfg.Logger.Info().Msgf("subscribed %d markets", len(markets))

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go c.ping(pingCtx, conn)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			// fallthrough
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("reading message: %w", err)
		}

		ticks := parseTicks(msg)
		for idx := range ticks {
			c.cfg.SendTick(ticks[idx])
		}
	}
}

// Run manages the lifecycle processes of the tick stream client.
func (c *Client) Run(ctx context.Context) {
	delay := minReconnectDelay
	for {
		start := time.Now()
		err := c.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		if time.Since(start) > maxReconnectDelay {
			// A connection that held for a while resets the backoff.
			delay = minReconnectDelay
		}
		if err != nil {
			c.cfg.Logger.Error().Msgf("tick stream: %v, reconnecting in %s", err, delay)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
			// fallthrough
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
