// Package book holds the in-process orderbook state for both venues. Each
// store is written by exactly one feed goroutine and read by the scanner;
// reads return copies taken under the store lock so a scan can never observe
// a partially applied update.
package book

import (
	"log/slog"
	"sync"

	"github.com/mgalloway/crossbook/internal/domain"
)

// PolyBook is the bid/ask book for one Polymarket outcome token.
type PolyBook struct {
	Bids domain.BookSide
	Asks domain.BookSide
}

// PolyLevelChange is a single level update from a price_change message.
// BestBid and BestAsk, when present, are top-of-book corrections that may
// name a price with no resting level.
type PolyLevelChange struct {
	TokenID string
	Side    string // "BUY" or "SELL"
	Price   float64
	Size    float64
	BestBid *float64
	BestAsk *float64
}

// PolyStore tracks per-token orderbooks for the Polymarket CLOB feed.
// Snapshots replace a token's book wholesale; price changes carry absolute
// sizes. Deltas arriving before the token's first snapshot are dropped: the
// book is rebuilt from scratch at the next snapshot anyway, and a partially
// populated book would quote sizes that were never true.
type PolyStore struct {
	mu     sync.RWMutex
	books  map[string]*PolyBook
	logger *slog.Logger
}

// NewPolyStore creates an empty store.
func NewPolyStore(logger *slog.Logger) *PolyStore {
	return &PolyStore{
		books:  make(map[string]*PolyBook),
		logger: logger.With(slog.String("component", "poly_store")),
	}
}

// ApplySnapshot replaces the full book for a token. Bids end up descending
// by price, asks ascending; non-finite or non-positive levels are dropped.
func (s *PolyStore) ApplySnapshot(tokenID string, bids, asks []domain.PriceLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[tokenID]
	if !ok {
		b = &PolyBook{
			Bids: domain.NewBookSide(domain.SortDesc),
			Asks: domain.NewBookSide(domain.SortAsc),
		}
		s.books[tokenID] = b
	}

	b.Bids.Replace(bids)
	b.Asks.Replace(asks)
}

// ApplyPriceChange applies one incremental level change. BUY changes hit the
// bid side, SELL changes the ask side, always with absolute sizes. When a
// best_bid/best_ask correction names a price with no resting level, a size-0
// placeholder is inserted there so the reported top of book tracks the
// venue's authoritative price even while the size lags.
func (s *PolyStore) ApplyPriceChange(change PolyLevelChange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[change.TokenID]
	if !ok {
		s.logger.Debug("dropping pre-snapshot price change",
			slog.String("token_id", change.TokenID),
		)
		return
	}

	switch change.Side {
	case "BUY":
		b.Bids.Upsert(change.Price, change.Size)
	case "SELL":
		b.Asks.Upsert(change.Price, change.Size)
	default:
		s.logger.Warn("price change with unknown side",
			slog.String("token_id", change.TokenID),
			slog.String("side", change.Side),
		)
		return
	}

	if change.BestBid != nil {
		b.Bids.ForceLevel(*change.BestBid)
	}
	if change.BestAsk != nil {
		b.Asks.ForceLevel(*change.BestAsk)
	}
}

// BestAsk returns the lowest ask for a token, false when the token has no
// book or the ask side is empty.
func (s *PolyStore) BestAsk(tokenID string) (domain.PriceLevel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[tokenID]
	if !ok {
		return domain.PriceLevel{}, false
	}
	return b.Asks.Best()
}

// BestBid returns the highest bid for a token.
func (s *PolyStore) BestBid(tokenID string) (domain.PriceLevel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[tokenID]
	if !ok {
		return domain.PriceLevel{}, false
	}
	return b.Bids.Best()
}

// Book returns an independent copy of the token's book.
func (s *PolyStore) Book(tokenID string) (PolyBook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[tokenID]
	if !ok {
		return PolyBook{}, false
	}
	return PolyBook{Bids: b.Bids.Clone(), Asks: b.Asks.Clone()}, true
}

// Tokens returns the IDs of all tokens with a book.
func (s *PolyStore) Tokens() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.books))
	for id := range s.books {
		out = append(out, id)
	}
	return out
}
