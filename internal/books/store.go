// Package books maintains the latest order book snapshot per traded token.
//
// The CLOB feed delivers full book snapshots, not deltas, so every ingest
// replaces both sides wholesale. There is no merge logic.
package books

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Level represents a single price level in an order book
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Book is the current state of one token's order book
type Book struct {
	AssetID   string
	Bids      []Level
	Asks      []Level
	UpdatedAt time.Time
}

// Store holds the latest book per asset. Safe for concurrent readers;
// ingestion takes the write lock.
type Store struct {
	mu    sync.RWMutex
	books map[string]*Book
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		books: make(map[string]*Book),
	}
}

// Ingest replaces the entire book for an asset with a fresh snapshot.
// Bids are kept sorted descending, asks ascending; zero-size levels dropped.
func (s *Store) Ingest(assetID string, bids, asks []Level, ts time.Time) {
	book := &Book{
		AssetID:   assetID,
		Bids:      normalize(bids, false),
		Asks:      normalize(asks, true),
		UpdatedAt: ts,
	}

	s.mu.Lock()
	s.books[assetID] = book
	s.mu.Unlock()
}

// BestAsk returns the minimum-price ask level for an asset.
// Ties between equal-price levels are broken arbitrarily.
func (s *Store) BestAsk(assetID string) (Level, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.books[assetID]
	if !ok || len(book.Asks) == 0 {
		return Level{}, false
	}
	return book.Asks[0], true
}

// BestBid returns the maximum-price bid level for an asset
func (s *Store) BestBid(assetID string) (Level, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.books[assetID]
	if !ok || len(book.Bids) == 0 {
		return Level{}, false
	}
	return book.Bids[0], true
}

// HasLiquidity reports whether the single best ask can absorb the required
// size. Only top-of-book depth is checked; cumulative depth across levels is
// deliberately not modeled.
func (s *Store) HasLiquidity(assetID string, required decimal.Decimal) bool {
	best, ok := s.BestAsk(assetID)
	if !ok {
		return false
	}
	return best.Size.GreaterThanOrEqual(required)
}

// Snapshot returns a copy of the current book for an asset
func (s *Store) Snapshot(assetID string) (Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.books[assetID]
	if !ok {
		return Book{}, false
	}

	out := Book{
		AssetID:   book.AssetID,
		Bids:      make([]Level, len(book.Bids)),
		Asks:      make([]Level, len(book.Asks)),
		UpdatedAt: book.UpdatedAt,
	}
	copy(out.Bids, book.Bids)
	copy(out.Asks, book.Asks)
	return out, true
}

// normalize drops empty levels and sorts a side in place
func normalize(levels []Level, ascending bool) []Level {
	out := make([]Level, 0, len(levels))
	for _, l := range levels {
		if l.Size.GreaterThan(decimal.Zero) {
			out = append(out, l)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].Price.LessThan(out[j].Price)
		}
		return out[i].Price.GreaterThan(out[j].Price)
	})
	return out
}
