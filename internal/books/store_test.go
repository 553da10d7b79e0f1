package books

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lvl(price, size float64) Level {
	return Level{Price: decimal.NewFromFloat(price), Size: decimal.NewFromFloat(size)}
}

func TestBestAskReturnsMinimum(t *testing.T) {
	s := NewStore()
	s.Ingest("tok", nil, []Level{lvl(0.55, 10), lvl(0.48, 5), lvl(0.60, 100)}, time.Now())

	best, ok := s.BestAsk("tok")
	require.True(t, ok)
	assert.True(t, best.Price.Equal(decimal.NewFromFloat(0.48)))
	assert.True(t, best.Size.Equal(decimal.NewFromFloat(5)))
}

func TestBestAskUnknownAsset(t *testing.T) {
	s := NewStore()
	_, ok := s.BestAsk("missing")
	assert.False(t, ok)
}

func TestIngestReplacesWholesale(t *testing.T) {
	s := NewStore()
	s.Ingest("tok", []Level{lvl(0.40, 2)}, []Level{lvl(0.45, 3), lvl(0.50, 9)}, time.Now())
	s.Ingest("tok", nil, []Level{lvl(0.52, 7)}, time.Now())

	best, ok := s.BestAsk("tok")
	require.True(t, ok)
	assert.True(t, best.Price.Equal(decimal.NewFromFloat(0.52)), "old levels must not survive a snapshot")

	book, ok := s.Snapshot("tok")
	require.True(t, ok)
	assert.Len(t, book.Asks, 1)
	assert.Empty(t, book.Bids)
}

func TestIngestDropsEmptyLevels(t *testing.T) {
	s := NewStore()
	s.Ingest("tok", nil, []Level{lvl(0.45, 0), lvl(0.50, 4)}, time.Now())

	best, ok := s.BestAsk("tok")
	require.True(t, ok)
	assert.True(t, best.Price.Equal(decimal.NewFromFloat(0.50)))
}

func TestHasLiquidityTopOfBookOnly(t *testing.T) {
	s := NewStore()
	// 30 shares total across levels, but only 10 at the top.
	s.Ingest("tok", nil, []Level{lvl(0.45, 10), lvl(0.46, 20)}, time.Now())

	assert.True(t, s.HasLiquidity("tok", decimal.NewFromInt(10)))
	assert.False(t, s.HasLiquidity("tok", decimal.NewFromInt(11)), "cumulative depth must not count")
	assert.False(t, s.HasLiquidity("missing", decimal.NewFromInt(1)))
}

func TestBestBidReturnsMaximum(t *testing.T) {
	s := NewStore()
	s.Ingest("tok", []Level{lvl(0.40, 1), lvl(0.44, 2)}, nil, time.Now())

	best, ok := s.BestBid("tok")
	require.True(t, ok)
	assert.True(t, best.Price.Equal(decimal.NewFromFloat(0.44)))
}
