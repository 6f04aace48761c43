package feed

import (
	"io"
	"log/slog"
	"testing"

	"github.com/mgalloway/crossbook/internal/book"
	"github.com/mgalloway/crossbook/internal/platform/kalshi"
	"github.com/mgalloway/crossbook/internal/platform/polymarket"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPolymarketFeedAppliesBook(t *testing.T) {
	store := book.NewPolyStore(discardLogger())
	f := NewPolymarketFeed("", nil, store, discardLogger())

	f.applyBook(polymarket.WSBook{
		AssetID: "token0",
		Bids:    []polymarket.WSPriceLevel{{Price: "0.48", Size: "30"}},
		Asks:    []polymarket.WSPriceLevel{{Price: "0.52", Size: "25"}},
	})

	ask, ok := store.BestAsk("token0")
	if !ok || ask.Price != 0.52 || ask.Size != 25 {
		t.Fatalf("best ask = %+v (ok=%v)", ask, ok)
	}
	bid, ok := store.BestBid("token0")
	if !ok || bid.Price != 0.48 {
		t.Fatalf("best bid = %+v (ok=%v)", bid, ok)
	}
}

func TestPolymarketFeedAppliesPriceChangeBatch(t *testing.T) {
	store := book.NewPolyStore(discardLogger())
	f := NewPolymarketFeed("", nil, store, discardLogger())

	f.applyBook(polymarket.WSBook{
		AssetID: "token0",
		Asks:    []polymarket.WSPriceLevel{{Price: "0.52", Size: "25"}},
	})

	f.applyPriceChange(polymarket.WSPriceChangeMsg{
		EventType: "price_change",
		PriceChanges: []polymarket.WSPriceChange{
			{AssetID: "token0", Price: "0.52", Size: "0", Side: "SELL"},
			{AssetID: "token0", Price: "0.55", Size: "40", Side: "SELL"},
			{AssetID: "token0", Price: "bogus", Size: "1", Side: "SELL"}, // dropped
			{AssetID: "token0", Price: "0.56", Size: "1", Side: "HOLD"}, // dropped
		},
	})

	ask, ok := store.BestAsk("token0")
	if !ok || ask.Price != 0.55 || ask.Size != 40 {
		t.Fatalf("best ask = %+v (ok=%v)", ask, ok)
	}
}

func TestKalshiFeedAppliesSnapshotAndDelta(t *testing.T) {
	store := book.NewKalshiStore(discardLogger())
	f := NewKalshiFeed("", nil, nil, store, discardLogger())

	f.applySnapshot(kalshi.WSSnapshot{
		Ticker: "KXNFLTOTAL-26JAN04BALPIT-43",
		Yes:    []kalshi.WSLevel{{45, 50}},
		No:     []kalshi.WSLevel{{40, 20}},
	})
	f.applyDelta(kalshi.WSDelta{
		Ticker: "KXNFLTOTAL-26JAN04BALPIT-43",
		Price:  45,
		Delta:  -10,
		Side:   "yes",
	})

	noAsk, ok := store.BestNoAsk("KXNFLTOTAL-26JAN04BALPIT-43")
	if !ok || noAsk.Price != 55 || noAsk.Size != 40 {
		t.Fatalf("no ask = %+v (ok=%v)", noAsk, ok)
	}

	// Unknown side tags never reach the store.
	f.applyDelta(kalshi.WSDelta{
		Ticker: "KXNFLTOTAL-26JAN04BALPIT-43",
		Price:  45,
		Delta:  100,
		Side:   "maybe",
	})
	noAsk, _ = store.BestNoAsk("KXNFLTOTAL-26JAN04BALPIT-43")
	if noAsk.Size != 40 {
		t.Fatalf("rejected delta mutated the book: %+v", noAsk)
	}
}
