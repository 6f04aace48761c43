package domain

import (
	"math"
	"testing"
)

func TestBookSideUpsertKeepsAsksAscending(t *testing.T) {
	side := NewBookSide(SortAsc)
	for _, p := range []float64{0.55, 0.40, 0.61, 0.42} {
		side.Upsert(p, 10)
	}

	levels := side.Levels()
	if len(levels) != 4 {
		t.Fatalf("expected 4 levels, got %d", len(levels))
	}
	for i := 0; i < len(levels)-1; i++ {
		if levels[i].Price > levels[i+1].Price {
			t.Fatalf("asks out of order at %d: %v", i, levels)
		}
	}
	if best, _ := side.Best(); best.Price != 0.40 {
		t.Fatalf("best ask = %v, want 0.40", best.Price)
	}
}

func TestBookSideUpsertKeepsBidsDescending(t *testing.T) {
	side := NewBookSide(SortDesc)
	for _, p := range []float64{0.30, 0.45, 0.38} {
		side.Upsert(p, 5)
	}

	levels := side.Levels()
	for i := 0; i < len(levels)-1; i++ {
		if levels[i].Price < levels[i+1].Price {
			t.Fatalf("bids out of order at %d: %v", i, levels)
		}
	}
	if best, _ := side.Best(); best.Price != 0.45 {
		t.Fatalf("best bid = %v, want 0.45", best.Price)
	}
}

func TestBookSideUpsertIsIdempotent(t *testing.T) {
	side := NewBookSide(SortAsc)
	side.Upsert(0.50, 12)
	side.Upsert(0.50, 12)

	if side.Len() != 1 {
		t.Fatalf("expected a single level, got %d", side.Len())
	}
	if got := side.SizeAt(0.50); got != 12 {
		t.Fatalf("size at 0.50 = %v, want 12", got)
	}
}

func TestBookSideUpsertZeroSizeRemoves(t *testing.T) {
	side := NewBookSide(SortDesc)
	side.Upsert(0.50, 12)
	side.Upsert(0.50, 0)

	if side.Len() != 0 {
		t.Fatalf("expected empty side, got %d levels", side.Len())
	}
	if _, ok := side.Best(); ok {
		t.Fatal("Best on an empty side should report no level")
	}
}

func TestBookSideRejectsNonFiniteInput(t *testing.T) {
	cases := []struct {
		name        string
		price, size float64
	}{
		{"nan price", math.NaN(), 10},
		{"nan size", 0.5, math.NaN()},
		{"inf price", math.Inf(1), 10},
		{"neg inf size", 0.5, math.Inf(-1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			side := NewBookSide(SortAsc)
			side.Upsert(tc.price, tc.size)
			if side.Len() != 0 {
				t.Fatalf("non-finite input was stored: %v", side.Levels())
			}
		})
	}
}

func TestBookSideReplaceFiltersAndSorts(t *testing.T) {
	side := NewBookSide(SortAsc)
	side.Upsert(0.99, 1)

	side.Replace([]PriceLevel{
		{Price: 0.60, Size: 3},
		{Price: math.NaN(), Size: 5},
		{Price: 0.40, Size: 2},
		{Price: 0.50, Size: 0},
	})

	levels := side.Levels()
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels after replace, got %v", levels)
	}
	if levels[0].Price != 0.40 || levels[1].Price != 0.60 {
		t.Fatalf("replace did not sort ascending: %v", levels)
	}
}

func TestOpportunityStringFormat(t *testing.T) {
	opp := Opportunity{
		Ticker:    "KXNFLTOTAL-26JAN04BALPIT-43",
		Side:      SideNo,
		PolyAsk:   0.40,
		KalshiAsk: 0.55,
		Edge:      0.05,
		Contracts: 50,
	}

	want := "kalshiTicker=KXNFLTOTAL-26JAN04BALPIT-43 kalshiSide=no polyAsk=0.4000 kalshiAsk=0.5500 edge=0.0500 contracts=50"
	if got := opp.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
