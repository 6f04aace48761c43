package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/mgalloway/crossbook/internal/book"
	"github.com/mgalloway/crossbook/internal/platform/kalshi"
)

// KalshiFeed streams the orderbook_delta channel for a set of tickers and
// applies every snapshot and delta to the store.
type KalshiFeed struct {
	wsURL   string
	tickers []string
	signer  kalshi.HeaderSigner
	store   *book.KalshiStore
	logger  *slog.Logger
}

// NewKalshiFeed creates a feed that subscribes to the given market tickers.
func NewKalshiFeed(wsURL string, tickers []string, signer kalshi.HeaderSigner, store *book.KalshiStore, logger *slog.Logger) *KalshiFeed {
	return &KalshiFeed{
		wsURL:   wsURL,
		tickers: tickers,
		signer:  signer,
		store:   store,
		logger:  logger.With(slog.String("component", "kalshi_feed")),
	}
}

// Run connects, subscribes, and processes messages until ctx is cancelled,
// reconnecting on disconnect.
func (f *KalshiFeed) Run(ctx context.Context) error {
	if len(f.tickers) == 0 {
		f.logger.Info("no tickers to subscribe, feed idle")
		<-ctx.Done()
		return ctx.Err()
	}

	for {
		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("kalshi ws disconnected, reconnecting",
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
func (f *KalshiFeed) runConnection(ctx context.Context) error {
	client := kalshi.NewWSClient(f.wsURL, f.signer, f.logger)
	defer client.Close()

	client.OnSnapshot(f.applySnapshot)
	client.OnDelta(f.applyDelta)

	if err := client.Connect(ctx); err != nil {
		return err
	}
	if err := client.Subscribe(ctx, f.tickers); err != nil {
		return err
	}
	f.logger.Info("kalshi ws subscribed", slog.Int("tickers", len(f.tickers)))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-client.Err():
		return err
	}
}

func (f *KalshiFeed) applySnapshot(snap kalshi.WSSnapshot) {
	f.store.ApplySnapshot(snap.Ticker, snap.YesLevels(), snap.NoLevels())
}

func (f *KalshiFeed) applyDelta(d kalshi.WSDelta) {
	side, err := d.MarketSide()
	if err != nil {
		f.logger.Warn("discarding delta with unknown side",
			slog.String("ticker", d.Ticker),
			slog.String("side", d.Side),
		)
		return
	}
	f.store.ApplyDelta(d.Ticker, side, d.Price, d.Delta)
}
