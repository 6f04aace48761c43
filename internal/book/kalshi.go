package book

import (
	"log/slog"
	"sync"

	"github.com/mgalloway/crossbook/internal/domain"
)

// KalshiBook holds the resting bids for both sides of one Kalshi market.
// The venue never publishes asks; an ask is always derived from the
// opposing side's best bid via the binary complement (prices in cents).
type KalshiBook struct {
	YesBids domain.BookSide
	NoBids  domain.BookSide
}

// KalshiStore tracks per-ticker orderbooks for the Kalshi feed. Snapshots
// carry absolute (price, size) pairs; deltas carry a signed size adjustment
// for one price level, which is the structural difference from the
// Polymarket feed and must not be conflated with it. Deltas arriving before
// the ticker's first snapshot are dropped, matching the Polymarket policy.
type KalshiStore struct {
	mu     sync.RWMutex
	books  map[string]*KalshiBook
	logger *slog.Logger
}

// NewKalshiStore creates an empty store.
func NewKalshiStore(logger *slog.Logger) *KalshiStore {
	return &KalshiStore{
		books:  make(map[string]*KalshiBook),
		logger: logger.With(slog.String("component", "kalshi_store")),
	}
}

// ApplySnapshot replaces both bid sides for a ticker, each sorted descending
// by price. A fresh snapshot fully overwrites stale state, so the store
// tolerates being resynchronized from scratch at any time.
func (s *KalshiStore) ApplySnapshot(ticker string, yes, no []domain.PriceLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[ticker]
	if !ok {
		b = &KalshiBook{
			YesBids: domain.NewBookSide(domain.SortDesc),
			NoBids:  domain.NewBookSide(domain.SortDesc),
		}
		s.books[ticker] = b
	}

	b.YesBids.Replace(yes)
	b.NoBids.Replace(no)
}

// ApplyDelta adds a signed contract-count change to the level at price on
// the given side. The new absolute size is the current size (0 when the
// level is absent) plus delta; a result of zero or less removes the level.
func (s *KalshiStore) ApplyDelta(ticker string, side domain.MarketSide, price, delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[ticker]
	if !ok {
		s.logger.Debug("dropping pre-snapshot delta",
			slog.String("ticker", ticker),
		)
		return
	}

	var target *domain.BookSide
	switch side {
	case domain.SideYes:
		target = &b.YesBids
	case domain.SideNo:
		target = &b.NoBids
	default:
		s.logger.Warn("delta with unknown side",
			slog.String("ticker", ticker),
			slog.String("side", string(side)),
		)
		return
	}

	target.Upsert(price, target.SizeAt(price)+delta)
}

// BestYesAsk derives the lowest price at which yes can be bought: 100 minus
// the best no bid, sized by that bid's resting contracts. False when the no
// side is empty.
func (s *KalshiStore) BestYesAsk(ticker string) (domain.PriceLevel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[ticker]
	if !ok {
		return domain.PriceLevel{}, false
	}
	noBid, ok := b.NoBids.Best()
	if !ok {
		return domain.PriceLevel{}, false
	}
	return domain.PriceLevel{Price: 100 - noBid.Price, Size: noBid.Size}, true
}

// BestNoAsk derives the lowest price at which no can be bought: 100 minus
// the best yes bid.
func (s *KalshiStore) BestNoAsk(ticker string) (domain.PriceLevel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[ticker]
	if !ok {
		return domain.PriceLevel{}, false
	}
	yesBid, ok := b.YesBids.Best()
	if !ok {
		return domain.PriceLevel{}, false
	}
	return domain.PriceLevel{Price: 100 - yesBid.Price, Size: yesBid.Size}, true
}

// BestAsk derives the best ask for the requested side.
func (s *KalshiStore) BestAsk(ticker string, side domain.MarketSide) (domain.PriceLevel, bool) {
	if side == domain.SideYes {
		return s.BestYesAsk(ticker)
	}
	return s.BestNoAsk(ticker)
}

// Book returns an independent copy of the ticker's book.
func (s *KalshiStore) Book(ticker string) (KalshiBook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[ticker]
	if !ok {
		return KalshiBook{}, false
	}
	return KalshiBook{YesBids: b.YesBids.Clone(), NoBids: b.NoBids.Clone()}, true
}

// Tickers returns all tickers with a book.
func (s *KalshiStore) Tickers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.books))
	for t := range s.books {
		out = append(out, t)
	}
	return out
}
