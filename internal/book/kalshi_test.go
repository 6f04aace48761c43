package book

import (
	"testing"

	"github.com/mgalloway/crossbook/internal/domain"
)

func TestKalshiStoreDeltaAccumulates(t *testing.T) {
	s := NewKalshiStore(discardLogger())
	s.ApplySnapshot("TKR", nil, nil)

	s.ApplyDelta("TKR", domain.SideYes, 42, 5)
	s.ApplyDelta("TKR", domain.SideYes, 42, -3)

	b, _ := s.Book("TKR")
	if got := b.YesBids.SizeAt(42); got != 2 {
		t.Fatalf("size at 42 = %v, want 2 after +5/-3", got)
	}

	s.ApplyDelta("TKR", domain.SideYes, 42, -2)
	b, _ = s.Book("TKR")
	if b.YesBids.SizeAt(42) != 0 || b.YesBids.Len() != 0 {
		t.Fatalf("level at 42 should be removed when size reaches 0, got %v", b.YesBids.Levels())
	}
}

func TestKalshiStoreSnapshotSortsDescending(t *testing.T) {
	s := NewKalshiStore(discardLogger())

	s.ApplySnapshot("TKR",
		[]domain.PriceLevel{{Price: 12, Size: 100}, {Price: 37, Size: 50}, {Price: 25, Size: 10}},
		[]domain.PriceLevel{{Price: 55, Size: 30}, {Price: 61, Size: 5}},
	)

	b, _ := s.Book("TKR")
	yes := b.YesBids.Levels()
	for i := 0; i < len(yes)-1; i++ {
		if yes[i].Price < yes[i+1].Price {
			t.Fatalf("yes bids not descending: %v", yes)
		}
	}
	if best, _ := b.NoBids.Best(); best.Price != 61 {
		t.Fatalf("best no bid = %v, want 61", best.Price)
	}
}

func TestKalshiStoreComplementInvariant(t *testing.T) {
	s := NewKalshiStore(discardLogger())
	s.ApplySnapshot("TKR",
		[]domain.PriceLevel{{Price: 48, Size: 20}},
		[]domain.PriceLevel{{Price: 37, Size: 50}},
	)

	yesAsk, ok := s.BestYesAsk("TKR")
	if !ok {
		t.Fatal("yes ask should be derivable from no bids")
	}
	if yesAsk.Price != 63 {
		t.Fatalf("derived yes ask = %v, want 100-37=63", yesAsk.Price)
	}
	if yesAsk.Size != 50 {
		t.Fatalf("derived yes ask size = %v, want the no bid's 50", yesAsk.Size)
	}

	noAsk, _ := s.BestNoAsk("TKR")
	if noAsk.Price != 52 || noAsk.Size != 20 {
		t.Fatalf("derived no ask = %+v, want {52 20}", noAsk)
	}
}

func TestKalshiStoreDerivedAskMissingWhenSideEmpty(t *testing.T) {
	s := NewKalshiStore(discardLogger())
	s.ApplySnapshot("TKR", []domain.PriceLevel{{Price: 48, Size: 20}}, nil)

	if _, ok := s.BestYesAsk("TKR"); ok {
		t.Fatal("yes ask must be absent when there are no no-bids")
	}
	if _, ok := s.BestNoAsk("TKR"); !ok {
		t.Fatal("no ask should still derive from the yes side")
	}
}

func TestKalshiStoreSnapshotOverwritesDeltaState(t *testing.T) {
	s := NewKalshiStore(discardLogger())
	s.ApplySnapshot("TKR", nil, nil)
	s.ApplyDelta("TKR", domain.SideNo, 30, 10)

	s.ApplySnapshot("TKR", nil, []domain.PriceLevel{{Price: 40, Size: 7}})

	b, _ := s.Book("TKR")
	if b.NoBids.SizeAt(30) != 0 {
		t.Fatal("snapshot must discard prior incremental state")
	}
	if b.NoBids.SizeAt(40) != 7 {
		t.Fatal("snapshot levels missing")
	}
}

func TestKalshiStoreDropsPreSnapshotDeltas(t *testing.T) {
	s := NewKalshiStore(discardLogger())

	s.ApplyDelta("TKR", domain.SideYes, 42, 5)

	if _, ok := s.Book("TKR"); ok {
		t.Fatal("delta before the first snapshot must not create a book")
	}
}
