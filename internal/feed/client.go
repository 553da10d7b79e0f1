// Package feed maintains the CLOB market-data connection and fans book
// updates out to consumers.
package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/pben56681-png/israell/internal/books"
	"github.com/pben56681-png/israell/internal/market"
)

const (
	pingInterval   = 20 * time.Second
	subscribeBatch = 50
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second
)

// wsLevel is a [price, size] string pair as sent on the wire
type wsLevel [2]string

// wsMessage is a feed payload; only "book" events carry data
type wsMessage struct {
	EventType string    `json:"event_type"`
	AssetID   string    `json:"asset_id"`
	Bids      []wsLevel `json:"bids"`
	Asks      []wsLevel `json:"asks"`
	Hash      string    `json:"hash"`
	Timestamp string    `json:"timestamp"`
}

// Client owns one feed connection at a time, reconnecting with exponential
// backoff. Book updates are applied in arrival order per connection; there
// is no ordering guarantee across reconnects.
type Client struct {
	url     string
	table   *market.Table
	store   *books.Store
	tracker *market.NormalizationTracker
	bus     *Bus
}

// NewClient creates a feed client wired into the book store and tracker
func NewClient(url string, table *market.Table, store *books.Store, tracker *market.NormalizationTracker, bus *Bus) *Client {
	return &Client{
		url:     url,
		table:   table,
		store:   store,
		tracker: tracker,
		bus:     bus,
	}
}

// Run connects and processes the feed until the context is cancelled
func (c *Client) Run(ctx context.Context) {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.dial(ctx)
		if err != nil {
			log.Error().Err(err).Dur("retry_in", backoff).Msg("Feed connection failed")
		} else {
			backoff = initialBackoff
			c.session(ctx, conn)
			log.Warn().Dur("retry_in", backoff).Msg("Feed disconnected, reconnecting")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff)
	}
}

// nextBackoff doubles the delay up to the cap
func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > maxBackoff {
		next = maxBackoff
	}
	return next
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		return nil, err
	}

	log.Info().Str("url", c.url).Msg("🔌 Feed connected")
	return conn, nil
}

// session subscribes and reads until the connection dies
func (c *Client) session(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	if err := c.subscribe(conn); err != nil {
		log.Error().Err(err).Msg("Subscribe failed")
		return
	}

	// Server pings get pongs; WriteControl is safe alongside the reader.
	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	// Proactive heartbeat so the server keeps the subscription alive. The
	// same goroutine closes the connection on cancellation, which unblocks
	// ReadMessage on a quiet feed.
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("Feed read error")
			return
		}
		c.handleMessage(data)
	}
}

// subscribe sends the book-channel subscription in batches of 50 tokens
func (c *Client) subscribe(conn *websocket.Conn) error {
	tokens := c.table.TokenIDs()

	for start := 0; start < len(tokens); start += subscribeBatch {
		end := start + subscribeBatch
		if end > len(tokens) {
			end = len(tokens)
		}
		msg := map[string]interface{}{
			"type":      "subscribe",
			"asset_ids": tokens[start:end],
			"channels":  []string{"book"},
		}
		if err := conn.WriteJSON(msg); err != nil {
			return err
		}
	}

	log.Info().Int("tokens", len(tokens)).Msg("Subscribed to book channel")
	return nil
}

// handleMessage parses a feed payload. Malformed payloads are dropped; the
// loop never terminates on bad input.
func (c *Client) handleMessage(data []byte) {
	if string(data) == "[]" {
		return // heartbeat
	}

	var msgs []wsMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		var single wsMessage
		if err := json.Unmarshal(data, &single); err != nil {
			log.Error().Err(err).Str("payload", truncate(string(data), 200)).Msg("Unparseable feed message")
			return
		}
		msgs = []wsMessage{single}
	}

	for i := range msgs {
		if msgs[i].EventType == "book" {
			c.handleBook(&msgs[i])
		}
	}
}

// handleBook wholesale-replaces the token's book, updates normalization
// state and notifies the strategy loop
func (c *Client) handleBook(msg *wsMessage) {
	marketID, ok := c.table.MarketForToken(msg.AssetID)
	if !ok {
		return
	}

	c.store.Ingest(msg.AssetID, parseLevels(msg.Bids), parseLevels(msg.Asks), parseTimestamp(msg.Timestamp))

	yesToken, noToken, ok := c.table.TokensFor(marketID)
	if !ok {
		return
	}

	askYes, okYes := c.store.BestAsk(yesToken)
	askNo, okNo := c.store.BestAsk(noToken)
	if okYes && okNo {
		c.tracker.Observe(marketID, askYes.Price, askNo.Price)
	}

	c.bus.Publish(marketID)
}

func parseLevels(raw []wsLevel) []books.Level {
	out := make([]books.Level, 0, len(raw))
	for _, l := range raw {
		price, err := decimal.NewFromString(l[0])
		if err != nil {
			continue
		}
		size, err := decimal.NewFromString(l[1])
		if err != nil {
			continue
		}
		out = append(out, books.Level{Price: price, Size: size})
	}
	return out
}

// parseTimestamp accepts seconds or milliseconds since epoch
func parseTimestamp(s string) time.Time {
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ts == 0 {
		return time.Now()
	}
	if ts > 2_000_000_000 {
		return time.UnixMilli(ts)
	}
	return time.Unix(ts, 0)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
