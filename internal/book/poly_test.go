package book

import (
	"io"
	"log/slog"
	"testing"

	"github.com/mgalloway/crossbook/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func float64Ptr(v float64) *float64 { return &v }

func TestPolyStoreSnapshotReplacesBook(t *testing.T) {
	s := NewPolyStore(discardLogger())

	s.ApplySnapshot("tok",
		[]domain.PriceLevel{{Price: 0.30, Size: 10}},
		[]domain.PriceLevel{{Price: 0.70, Size: 10}},
	)
	s.ApplySnapshot("tok",
		[]domain.PriceLevel{{Price: 0.41, Size: 5}, {Price: 0.39, Size: 7}},
		[]domain.PriceLevel{{Price: 0.45, Size: 3}, {Price: 0.44, Size: 2}},
	)

	b, ok := s.Book("tok")
	if !ok {
		t.Fatal("book missing after snapshot")
	}
	if b.Bids.Len() != 2 || b.Asks.Len() != 2 {
		t.Fatalf("snapshot did not replace sides: bids=%d asks=%d", b.Bids.Len(), b.Asks.Len())
	}
	if best, _ := b.Bids.Best(); best.Price != 0.41 {
		t.Fatalf("best bid = %v, want 0.41", best.Price)
	}
	if best, _ := b.Asks.Best(); best.Price != 0.44 {
		t.Fatalf("best ask = %v, want 0.44", best.Price)
	}
}

func TestPolyStoreSnapshotIsIdempotent(t *testing.T) {
	s := NewPolyStore(discardLogger())

	bids := []domain.PriceLevel{{Price: 0.40, Size: 10}, {Price: 0.38, Size: 4}}
	asks := []domain.PriceLevel{{Price: 0.44, Size: 6}}
	s.ApplySnapshot("tok", bids, asks)
	first, _ := s.Book("tok")

	s.ApplySnapshot("tok", bids, asks)
	second, _ := s.Book("tok")

	if len(first.Bids.Levels()) != len(second.Bids.Levels()) ||
		len(first.Asks.Levels()) != len(second.Asks.Levels()) {
		t.Fatal("repeated snapshot changed book shape")
	}
	for i, lvl := range first.Bids.Levels() {
		if second.Bids.Levels()[i] != lvl {
			t.Fatalf("bid level %d changed: %v vs %v", i, lvl, second.Bids.Levels()[i])
		}
	}
}

func TestPolyStorePriceChangeUpsertsAbsoluteSizes(t *testing.T) {
	s := NewPolyStore(discardLogger())
	s.ApplySnapshot("tok",
		[]domain.PriceLevel{{Price: 0.40, Size: 10}},
		[]domain.PriceLevel{{Price: 0.44, Size: 6}},
	)

	s.ApplyPriceChange(PolyLevelChange{TokenID: "tok", Side: "BUY", Price: 0.40, Size: 25})
	s.ApplyPriceChange(PolyLevelChange{TokenID: "tok", Side: "SELL", Price: 0.43, Size: 8})

	b, _ := s.Book("tok")
	if got := b.Bids.SizeAt(0.40); got != 25 {
		t.Fatalf("bid size at 0.40 = %v, want 25 (absolute, not accumulated)", got)
	}
	if best, _ := b.Asks.Best(); best.Price != 0.43 || best.Size != 8 {
		t.Fatalf("best ask = %+v, want {0.43 8}", best)
	}
}

func TestPolyStorePriceChangeZeroSizeRemovesLevel(t *testing.T) {
	s := NewPolyStore(discardLogger())
	s.ApplySnapshot("tok", nil, []domain.PriceLevel{{Price: 0.44, Size: 6}})

	s.ApplyPriceChange(PolyLevelChange{TokenID: "tok", Side: "SELL", Price: 0.44, Size: 0})

	if _, ok := s.BestAsk("tok"); ok {
		t.Fatal("level should have been removed at size 0")
	}
}

func TestPolyStoreBestAskCorrectionInsertsPlaceholder(t *testing.T) {
	s := NewPolyStore(discardLogger())
	s.ApplySnapshot("tok", nil, []domain.PriceLevel{{Price: 0.50, Size: 6}})

	// Correction names a better ask with no corresponding level.
	s.ApplyPriceChange(PolyLevelChange{
		TokenID: "tok", Side: "SELL", Price: 0.50, Size: 6,
		BestAsk: float64Ptr(0.47),
	})

	best, ok := s.BestAsk("tok")
	if !ok {
		t.Fatal("ask side empty after correction")
	}
	if best.Price != 0.47 || best.Size != 0 {
		t.Fatalf("best ask = %+v, want size-0 placeholder at 0.47", best)
	}

	// Sort invariant holds across the placeholder.
	b, _ := s.Book("tok")
	levels := b.Asks.Levels()
	for i := 0; i < len(levels)-1; i++ {
		if levels[i].Price > levels[i+1].Price {
			t.Fatalf("asks out of order: %v", levels)
		}
	}
}

func TestPolyStoreBestBidCorrectionKeepsExistingSize(t *testing.T) {
	s := NewPolyStore(discardLogger())
	s.ApplySnapshot("tok", []domain.PriceLevel{{Price: 0.40, Size: 12}}, nil)

	s.ApplyPriceChange(PolyLevelChange{
		TokenID: "tok", Side: "BUY", Price: 0.38, Size: 3,
		BestBid: float64Ptr(0.40),
	})

	best, _ := s.BestBid("tok")
	if best.Price != 0.40 || best.Size != 12 {
		t.Fatalf("best bid = %+v, correction must not clobber a real level", best)
	}
}

func TestPolyStoreDropsPreSnapshotChanges(t *testing.T) {
	s := NewPolyStore(discardLogger())

	s.ApplyPriceChange(PolyLevelChange{TokenID: "tok", Side: "BUY", Price: 0.40, Size: 5})

	if _, ok := s.Book("tok"); ok {
		t.Fatal("price change before the first snapshot must not create a book")
	}
}
