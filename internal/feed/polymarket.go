// Package feed owns the long-lived streaming connections. Each feed holds
// exclusive write access to its venue's book store, applies messages in
// receipt order, and reconnects with backoff on unexpected close. A fresh
// connection's first snapshot fully overwrites whatever stale state the
// store carried across the gap.
package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/mgalloway/crossbook/internal/book"
	"github.com/mgalloway/crossbook/internal/platform/polymarket"
)

const reconnectDelay = 2 * time.Second

// PolymarketFeed streams the CLOB market channel for a set of outcome
// tokens and applies every book and price_change event to the store.
type PolymarketFeed struct {
	wsURL    string
	assetIDs []string
	store    *book.PolyStore
	logger   *slog.Logger
}

// NewPolymarketFeed creates a feed that subscribes to the given token IDs.
func NewPolymarketFeed(wsURL string, assetIDs []string, store *book.PolyStore, logger *slog.Logger) *PolymarketFeed {
	return &PolymarketFeed{
		wsURL:    wsURL,
		assetIDs: assetIDs,
		store:    store,
		logger:   logger.With(slog.String("component", "polymarket_feed")),
	}
}

// Run connects, subscribes, and processes messages until ctx is cancelled,
// reconnecting on disconnect.
func (f *PolymarketFeed) Run(ctx context.Context) error {
	if len(f.assetIDs) == 0 {
		f.logger.Info("no token IDs to subscribe, feed idle")
		<-ctx.Done()
		return ctx.Err()
	}

	for {
		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("polymarket ws disconnected, reconnecting",
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

// runConnection drives one WebSocket session to completion.
func (f *PolymarketFeed) runConnection(ctx context.Context) error {
	client := polymarket.NewWSClient(f.wsURL, f.logger)
	defer client.Close()

	client.OnBook(f.applyBook)
	client.OnPriceChange(f.applyPriceChange)

	if err := client.Connect(ctx); err != nil {
		return err
	}
	if err := client.Subscribe(ctx, f.assetIDs); err != nil {
		return err
	}
	f.logger.Info("polymarket ws subscribed", slog.Int("assets", len(f.assetIDs)))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-client.Err():
		return err
	}
}

func (f *PolymarketFeed) applyBook(b polymarket.WSBook) {
	f.store.ApplySnapshot(b.AssetID, b.BidLevels(), b.AskLevels())
}

// applyPriceChange applies each level update in the batch. Unparseable
// numerics and unknown side tags are rejected here, before they reach the
// book state machine.
func (f *PolymarketFeed) applyPriceChange(msg polymarket.WSPriceChangeMsg) {
	for i := range msg.PriceChanges {
		pc := &msg.PriceChanges[i]

		price, size, bestBid, bestAsk, ok := pc.Values()
		if !ok {
			f.logger.Warn("discarding unparseable price change",
				slog.String("asset_id", pc.AssetID),
				slog.String("price", pc.Price),
				slog.String("size", pc.Size),
			)
			continue
		}
		side, ok := pc.NormalizedSide()
		if !ok {
			f.logger.Warn("discarding price change with unknown side",
				slog.String("asset_id", pc.AssetID),
				slog.String("side", pc.Side),
			)
			continue
		}

		f.store.ApplyPriceChange(book.PolyLevelChange{
			TokenID: pc.AssetID,
			Side:    side,
			Price:   price,
			Size:    size,
			BestBid: bestBid,
			BestAsk: bestAsk,
		})
	}
}
