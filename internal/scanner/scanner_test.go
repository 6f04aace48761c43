package scanner

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/mgalloway/crossbook/internal/book"
	"github.com/mgalloway/crossbook/internal/domain"
	"github.com/mgalloway/crossbook/internal/mapper"
	"github.com/mgalloway/crossbook/internal/platform/kalshi"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func zeroFee(price float64, contracts int) float64 { return 0 }

// buildMapping runs the real slug translation so the scanner sees the same
// mapping shape production does.
func buildMapping(t *testing.T, markets []domain.Market, tickers ...string) *mapper.Mapping {
	t.Helper()
	set := make(map[string]struct{}, len(tickers))
	for _, tk := range tickers {
		set[tk] = struct{}{}
	}
	m := mapper.Build(markets, set, discardLogger())
	if m.Len() != len(markets) {
		t.Fatalf("mapping covered %d of %d markets", m.Len(), len(markets))
	}
	return m
}

func totalsMarket() domain.Market {
	return domain.Market{
		ConditionID: "0xcond",
		Slug:        "nfl-bal-pit-2026-01-04-total-43pt5",
		Tokens: domain.TokenPair{
			OutcomeA: domain.Token{ID: "token0", Outcome: "Over"},
			OutcomeB: domain.Token{ID: "token1", Outcome: "Under"},
		},
	}
}

func moneylineMarket() domain.Market {
	return domain.Market{
		ConditionID: "0xcond",
		Slug:        "nba-lal-bos-2026-02-10",
		Tokens: domain.TokenPair{
			OutcomeA: domain.Token{ID: "token0", Outcome: "Lakers"},
			OutcomeB: domain.Token{ID: "token1", Outcome: "Celtics"},
		},
	}
}

const totalsTicker = "KXNFLTOTAL-26JAN04BALPIT-43"

func newScanner(t *testing.T, market domain.Market, mapping *mapper.Mapping, minEdge float64) (*Scanner, *book.PolyStore, *book.KalshiStore) {
	t.Helper()
	polyStore := book.NewPolyStore(discardLogger())
	kalshiStore := book.NewKalshiStore(discardLogger())
	s := New(Config{
		PolyStore:   polyStore,
		KalshiStore: kalshiStore,
		Mapping:     mapping,
		Markets:     []domain.Market{market},
		Fee:         zeroFee,
		MinEdge:     minEdge,
		UnitSizeCap: 1000,
		Logger:      discardLogger(),
	})
	return s, polyStore, kalshiStore
}

func TestScanMarketSingleTicker(t *testing.T) {
	market := totalsMarket()
	mapping := buildMapping(t, []domain.Market{market}, totalsTicker)
	s, polyStore, kalshiStore := newScanner(t, market, mapping, 0.01)

	// token0 pairs against the ticker's derived no-ask. Best no-ask of 55
	// cents comes from a yes bid at 45.
	polyStore.ApplySnapshot("token0", nil, []domain.PriceLevel{{Price: 0.40, Size: 100}})
	kalshiStore.ApplySnapshot(totalsTicker,
		[]domain.PriceLevel{{Price: 45, Size: 50}}, // yes bids
		nil,                                        // no bids
	)

	opp, ok := s.ScanMarket(market)
	if !ok {
		t.Fatal("expected an opportunity")
	}
	if opp.Contracts != 50 {
		t.Fatalf("contracts = %d, want 50", opp.Contracts)
	}
	if math.Abs(opp.Edge-0.05) > 1e-9 {
		t.Fatalf("edge = %v, want 0.05", opp.Edge)
	}
	if opp.TokenID != "token0" || opp.Side != domain.SideNo || opp.Ticker != totalsTicker {
		t.Fatalf("wrong pairing: %+v", opp)
	}
	if opp.ID == "" || opp.CreatedAt.IsZero() {
		t.Fatal("opportunity must carry an ID and timestamp")
	}
}

func TestScanMarketTwoTickersPicksBestPairing(t *testing.T) {
	market := moneylineMarket()
	t0 := "KXNBAGAME-26FEB10LALBOS-LAL"
	t1 := "KXNBAGAME-26FEB10LALBOS-BOS"
	mapping := buildMapping(t, []domain.Market{market}, t0, t1)
	s, polyStore, kalshiStore := newScanner(t, market, mapping, 0.01)

	polyStore.ApplySnapshot("token0", nil, []domain.PriceLevel{{Price: 0.30, Size: 100}})
	polyStore.ApplySnapshot("token1", nil, []domain.PriceLevel{{Price: 0.70, Size: 100}})

	// token0 vs t0 no-ask: 1 - (0.30 + 0.72) = -0.02.
	// token0 vs t1 yes-ask: 1 - (0.30 + 0.65) = 0.05  <- winner.
	// token1 vs t1 no-ask: 1 - (0.70 + 0.35) = -0.05.
	// token1 vs t0 yes-ask: 1 - (0.70 + 0.28) = 0.02.
	kalshiStore.ApplySnapshot(t0,
		[]domain.PriceLevel{{Price: 28, Size: 40}}, // yes bids -> no-ask 72
		[]domain.PriceLevel{{Price: 72, Size: 40}}, // no bids -> yes-ask 28
	)
	kalshiStore.ApplySnapshot(t1,
		[]domain.PriceLevel{{Price: 65, Size: 30}}, // yes bids -> no-ask 35
		[]domain.PriceLevel{{Price: 35, Size: 30}}, // no bids -> yes-ask 65
	)

	opp, ok := s.ScanMarket(market)
	if !ok {
		t.Fatal("expected an opportunity")
	}
	if opp.TokenID != "token0" || opp.Ticker != t1 || opp.Side != domain.SideYes {
		t.Fatalf("wrong pairing selected: %+v", opp)
	}
	if math.Abs(opp.Edge-0.05) > 1e-9 {
		t.Fatalf("edge = %v, want 0.05", opp.Edge)
	}
	if opp.Contracts != 30 {
		t.Fatalf("contracts = %d, want 30", opp.Contracts)
	}
}

func TestScanMarketThresholdGating(t *testing.T) {
	market := totalsMarket()
	mapping := buildMapping(t, []domain.Market{market}, totalsTicker)

	// Edge is exactly 0.05: 1 - (0.40 + 0.55).
	setup := func(minEdge float64) (*Scanner, domain.Market) {
		s, polyStore, kalshiStore := newScanner(t, market, mapping, minEdge)
		polyStore.ApplySnapshot("token0", nil, []domain.PriceLevel{{Price: 0.40, Size: 100}})
		kalshiStore.ApplySnapshot(totalsTicker,
			[]domain.PriceLevel{{Price: 45, Size: 50}},
			nil,
		)
		return s, market
	}

	s, m := setup(0.05)
	if _, ok := s.ScanMarket(m); !ok {
		t.Fatal("edge equal to the minimum must be reported")
	}

	s, m = setup(0.0501)
	if _, ok := s.ScanMarket(m); ok {
		t.Fatal("edge below the minimum must not be reported")
	}
}

func TestScanMarketFeeReducesEdge(t *testing.T) {
	market := totalsMarket()
	mapping := buildMapping(t, []domain.Market{market}, totalsTicker)
	polyStore := book.NewPolyStore(discardLogger())
	kalshiStore := book.NewKalshiStore(discardLogger())
	s := New(Config{
		PolyStore:   polyStore,
		KalshiStore: kalshiStore,
		Mapping:     mapping,
		Markets:     []domain.Market{market},
		Fee:         kalshi.TakerFee,
		MinEdge:     0,
		UnitSizeCap: 1000,
		Logger:      discardLogger(),
	})

	polyStore.ApplySnapshot("token0", nil, []domain.PriceLevel{{Price: 0.40, Size: 100}})
	kalshiStore.ApplySnapshot(totalsTicker,
		[]domain.PriceLevel{{Price: 45, Size: 50}},
		nil,
	)

	opp, ok := s.ScanMarket(market)
	if !ok {
		t.Fatal("expected an opportunity")
	}

	// fee = ceil(0.07*50*0.55*0.45*100)/100 = 0.87; edge = 0.05 - 0.87/50.
	want := 0.05 - 0.87/50
	if math.Abs(opp.Edge-want) > 1e-9 {
		t.Fatalf("edge = %v, want %v", opp.Edge, want)
	}
}

func TestScanMarketUnitSizeCap(t *testing.T) {
	market := totalsMarket()
	mapping := buildMapping(t, []domain.Market{market}, totalsTicker)
	polyStore := book.NewPolyStore(discardLogger())
	kalshiStore := book.NewKalshiStore(discardLogger())
	s := New(Config{
		PolyStore:   polyStore,
		KalshiStore: kalshiStore,
		Mapping:     mapping,
		Markets:     []domain.Market{market},
		Fee:         zeroFee,
		MinEdge:     0,
		UnitSizeCap: 10,
		Logger:      discardLogger(),
	})

	polyStore.ApplySnapshot("token0", nil, []domain.PriceLevel{{Price: 0.40, Size: 100}})
	kalshiStore.ApplySnapshot(totalsTicker,
		[]domain.PriceLevel{{Price: 45, Size: 50}},
		nil,
	)

	opp, ok := s.ScanMarket(market)
	if !ok {
		t.Fatal("expected an opportunity")
	}
	if opp.Contracts != 10 {
		t.Fatalf("contracts = %d, want cap of 10", opp.Contracts)
	}
}

func TestScanMarketMissingLiquidity(t *testing.T) {
	market := totalsMarket()
	mapping := buildMapping(t, []domain.Market{market}, totalsTicker)
	s, polyStore, kalshiStore := newScanner(t, market, mapping, 0)

	// No books at all.
	if _, ok := s.ScanMarket(market); ok {
		t.Fatal("empty stores must yield no opportunity")
	}

	// Poly side present, kalshi side empty.
	polyStore.ApplySnapshot("token0", nil, []domain.PriceLevel{{Price: 0.40, Size: 100}})
	if _, ok := s.ScanMarket(market); ok {
		t.Fatal("missing kalshi leg must yield no opportunity")
	}

	// Kalshi book exists but only the side that doesn't back this pairing.
	kalshiStore.ApplySnapshot(totalsTicker, nil, []domain.PriceLevel{{Price: 40, Size: 10}})
	if _, ok := s.ScanMarket(market); ok {
		t.Fatal("empty opposing side must yield no opportunity")
	}
}

func TestScanRanksByEdge(t *testing.T) {
	m1 := domain.Market{
		ConditionID: "0xa",
		Slug:        "nfl-bal-pit-2026-01-04-total-43pt5",
		Tokens: domain.TokenPair{
			OutcomeA: domain.Token{ID: "a0"},
			OutcomeB: domain.Token{ID: "a1"},
		},
	}
	m2 := domain.Market{
		ConditionID: "0xb",
		Slug:        "nfl-kc-buf-2026-01-04-total-47pt5",
		Tokens: domain.TokenPair{
			OutcomeA: domain.Token{ID: "b0"},
			OutcomeB: domain.Token{ID: "b1"},
		},
	}
	t1 := "KXNFLTOTAL-26JAN04BALPIT-43"
	t2 := "KXNFLTOTAL-26JAN04KCBUF-47"
	mapping := buildMapping(t, []domain.Market{m1, m2}, t1, t2)

	polyStore := book.NewPolyStore(discardLogger())
	kalshiStore := book.NewKalshiStore(discardLogger())
	s := New(Config{
		PolyStore:   polyStore,
		KalshiStore: kalshiStore,
		Mapping:     mapping,
		Markets:     []domain.Market{m1, m2},
		Fee:         zeroFee,
		MinEdge:     0.01,
		UnitSizeCap: 1000,
		Logger:      discardLogger(),
	})

	// m1 edge 0.05, m2 edge 0.10.
	polyStore.ApplySnapshot("a0", nil, []domain.PriceLevel{{Price: 0.40, Size: 100}})
	kalshiStore.ApplySnapshot(t1, []domain.PriceLevel{{Price: 45, Size: 50}}, nil)
	polyStore.ApplySnapshot("b0", nil, []domain.PriceLevel{{Price: 0.35, Size: 100}})
	kalshiStore.ApplySnapshot(t2, []domain.PriceLevel{{Price: 45, Size: 50}}, nil)

	opps := s.Scan()
	if len(opps) != 2 {
		t.Fatalf("want 2 opportunities, got %d", len(opps))
	}
	if opps[0].ConditionID != "0xb" || opps[1].ConditionID != "0xa" {
		t.Fatalf("ranking wrong: %s before %s", opps[0].ConditionID, opps[1].ConditionID)
	}
	if opps[0].Edge < opps[1].Edge {
		t.Fatal("opportunities must be sorted best edge first")
	}
}

// sink fakes for runPass fan-out.

type fakeNotifier struct{ messages []string }

func (f *fakeNotifier) Notify(_ context.Context, msg string, _ bool) {
	f.messages = append(f.messages, msg)
}

type fakeJournal struct{ recorded []domain.Opportunity }

func (f *fakeJournal) Record(_ context.Context, opp domain.Opportunity) error {
	f.recorded = append(f.recorded, opp)
	return nil
}

func TestRunPassNotifiesAndRecords(t *testing.T) {
	market := totalsMarket()
	mapping := buildMapping(t, []domain.Market{market}, totalsTicker)
	polyStore := book.NewPolyStore(discardLogger())
	kalshiStore := book.NewKalshiStore(discardLogger())

	notifier := &fakeNotifier{}
	journal := &fakeJournal{}
	s := New(Config{
		PolyStore:   polyStore,
		KalshiStore: kalshiStore,
		Mapping:     mapping,
		Markets:     []domain.Market{market},
		Fee:         zeroFee,
		MinEdge:     0.01,
		UnitSizeCap: 1000,
		Notifier:    notifier,
		Journal:     journal,
		Logger:      discardLogger(),
	})

	polyStore.ApplySnapshot("token0", nil, []domain.PriceLevel{{Price: 0.40, Size: 100}})
	kalshiStore.ApplySnapshot(totalsTicker, []domain.PriceLevel{{Price: 45, Size: 50}}, nil)

	s.runPass(context.Background())

	if len(notifier.messages) != 1 {
		t.Fatalf("want 1 notification, got %d", len(notifier.messages))
	}
	want := "kalshiTicker=" + totalsTicker + " kalshiSide=no polyAsk=0.4000 kalshiAsk=0.5500 edge=0.0500 contracts=50"
	if notifier.messages[0] != want {
		t.Fatalf("message = %q, want %q", notifier.messages[0], want)
	}
	if len(journal.recorded) != 1 || journal.recorded[0].Ticker != totalsTicker {
		t.Fatalf("journal = %+v", journal.recorded)
	}
}
