package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pben56681-png/israell/internal/books"
	"github.com/pben56681-png/israell/internal/market"
)

func TestBackoffSchedule(t *testing.T) {
	// 1, 2, 4, 8, 16, 32, 60, 60, ...
	b := initialBackoff
	var got []time.Duration
	for i := 0; i < 8; i++ {
		got = append(got, b)
		b = nextBackoff(b)
	}

	want := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 32 * time.Second, 60 * time.Second, 60 * time.Second,
	}
	assert.Equal(t, want, got)
}

func newFeedFixture() (*Client, *books.Store, *market.NormalizationTracker, *Bus) {
	table := market.NewTable()
	table.Add(&market.Market{
		ConditionID:     "m1",
		Tokens:          []market.Token{{TokenID: "y", Outcome: "Yes"}, {TokenID: "n", Outcome: "No"}},
		Active:          true,
		AcceptingOrders: true,
	})

	store := books.NewStore()
	tracker := market.NewNormalizationTracker(decimal.NewFromFloat(0.99), 3)
	bus := NewBus()
	return NewClient("ws://unused", table, store, tracker, bus), store, tracker, bus
}

func TestHandleBookIngestsAndNotifies(t *testing.T) {
	c, store, _, bus := newFeedFixture()
	sub := bus.Subscribe(5)

	c.handleMessage([]byte(`{
		"event_type": "book",
		"asset_id": "y",
		"bids": [["0.39", "20"]],
		"asks": [["0.41", "15"], ["0.45", "5"]],
		"hash": "abc",
		"timestamp": "1700000000"
	}`))

	best, ok := store.BestAsk("y")
	require.True(t, ok)
	assert.True(t, best.Price.Equal(decimal.NewFromFloat(0.41)))
	assert.True(t, best.Size.Equal(decimal.NewFromInt(15)))

	id, _, ok := sub.Recv(context.Background())
	require.True(t, ok)
	assert.Equal(t, "m1", id)
}

func TestHandleBookArrayPayload(t *testing.T) {
	c, store, _, _ := newFeedFixture()

	c.handleMessage([]byte(`[
		{"event_type": "book", "asset_id": "y", "bids": [], "asks": [["0.50", "10"]], "hash": "h", "timestamp": "1700000000"},
		{"event_type": "book", "asset_id": "n", "bids": [], "asks": [["0.49", "10"]], "hash": "h", "timestamp": "1700000000"}
	]`))

	_, okYes := store.BestAsk("y")
	_, okNo := store.BestAsk("n")
	assert.True(t, okYes)
	assert.True(t, okNo)
}

func TestNormalizationObservedOncePerUpdateWithBothLegs(t *testing.T) {
	c, _, tracker, _ := newFeedFixture()

	book := func(asset, price string) []byte {
		return []byte(`{"event_type": "book", "asset_id": "` + asset + `", "bids": [], "asks": [["` + price + `", "100"]], "hash": "h", "timestamp": "1700000000"}`)
	}

	// First update: only YES quoted, nothing observed yet.
	c.handleMessage(book("y", "0.50"))
	_, ok := tracker.State("m1")
	assert.False(t, ok)

	// Both sides quoted at a normalized sum; three touches latch.
	c.handleMessage(book("n", "0.495"))
	c.handleMessage(book("y", "0.50"))
	c.handleMessage(book("n", "0.495"))

	st, ok := tracker.State("m1")
	require.True(t, ok)
	assert.True(t, st.IsNormalized)
}

func TestHeartbeatAndGarbageIgnored(t *testing.T) {
	c, store, _, bus := newFeedFixture()
	sub := bus.Subscribe(5)

	c.handleMessage([]byte(`[]`))
	c.handleMessage([]byte(`{not json`))
	c.handleMessage([]byte(`{"event_type": "price_change", "asset_id": "y"}`))
	c.handleMessage([]byte(`{"event_type": "book", "asset_id": "stranger", "bids": [], "asks": [["0.5", "1"]], "hash": "h", "timestamp": "0"}`))

	_, ok := store.BestAsk("y")
	assert.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, ok = sub.Recv(ctx)
	assert.False(t, ok, "no notification for ignored payloads")
}

func TestSessionUnblocksOnCancel(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Hold the connection open without sending anything.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c, _, _, _ := newFeedFixture()
	c.url = "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn, err := c.dial(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		c.session(ctx, conn)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session still blocked on a quiet connection after cancellation")
	}
}

func TestParseLevelsSkipsMalformed(t *testing.T) {
	out := parseLevels([]wsLevel{{"0.5", "10"}, {"oops", "1"}, {"0.4", "bad"}})
	require.Len(t, out, 1)
	assert.True(t, out[0].Price.Equal(decimal.NewFromFloat(0.5)))
}

func TestParseTimestampSecondsAndMillis(t *testing.T) {
	sec := parseTimestamp("1700000000")
	assert.Equal(t, int64(1700000000), sec.Unix())

	ms := parseTimestamp("1700000000000")
	assert.Equal(t, int64(1700000000), ms.Unix())

	// Garbage falls back to now.
	fallback := parseTimestamp("soon")
	assert.WithinDuration(t, time.Now(), fallback, time.Minute)
}
