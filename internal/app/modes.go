package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mgalloway/crossbook/internal/domain"
	"github.com/mgalloway/crossbook/internal/feed"
	"github.com/mgalloway/crossbook/internal/platform/kalshi"
	"github.com/mgalloway/crossbook/internal/scanner"
)

// ScanMode runs both streaming feeds plus the periodic scanner. The feeds
// write the book stores; the scanner reads them on its own cadence and fans
// results out to whatever sinks are configured.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode",
		slog.Int("mapped_markets", deps.Mapping.Len()),
	)

	g, ctx := errgroup.WithContext(ctx)

	a.startFeeds(ctx, g, deps)

	scanCfg := scanner.Config{
		PolyStore:   deps.PolyStore,
		KalshiStore: deps.KalshiStore,
		Mapping:     deps.Mapping,
		Markets:     deps.Markets,
		Fee:         kalshi.TakerFee,
		MinEdge:     a.cfg.Scanner.MinEdge,
		UnitSizeCap: a.cfg.Scanner.UnitSizeCap,
		Logger:      a.logger,
	}
	// Assign each sink only when wired, so the scanner's nil checks see a
	// genuinely nil interface rather than a typed nil pointer.
	if deps.Notifier != nil {
		scanCfg.Notifier = deps.Notifier
	}
	if deps.OpportunityStore != nil {
		scanCfg.Journal = deps.OpportunityStore
	}
	if deps.OpportunityCache != nil {
		scanCfg.Cache = deps.OpportunityCache
	}
	if deps.ReportArchiver != nil {
		scanCfg.Archiver = deps.ReportArchiver
	}

	sc := scanner.New(scanCfg)
	g.Go(func() error {
		return sc.Run(ctx, a.cfg.Scanner.Interval.Duration)
	})

	return g.Wait()
}

// MonitorMode runs the feeds only and periodically logs the top of book for
// every mapped market. No opportunities are computed and nothing is
// persisted; this mode exists to eyeball feed health and quote sanity.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.Int("mapped_markets", deps.Mapping.Len()),
	)

	g, ctx := errgroup.WithContext(ctx)

	a.startFeeds(ctx, g, deps)

	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Scanner.Interval.Duration)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				a.logTopOfBook(ctx, deps)
			}
		}
	})

	return g.Wait()
}

// startFeeds launches both venue feeds on the errgroup. Subscription sets
// come from the mapping: only instruments with a cross-venue counterpart are
// worth streaming.
func (a *App) startFeeds(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	assetIDs := mappedAssetIDs(deps.Markets, deps.Mapping.KalshiTickers)

	polyFeed := feed.NewPolymarketFeed(a.cfg.Polymarket.WsURL, assetIDs, deps.PolyStore, a.logger)
	g.Go(func() error {
		return polyFeed.Run(ctx)
	})

	kalshiFeed := feed.NewKalshiFeed(a.cfg.Kalshi.WsURL, deps.Mapping.Tickers(), deps.KalshiClient, deps.KalshiStore, a.logger)
	g.Go(func() error {
		return kalshiFeed.Run(ctx)
	})
}

// logTopOfBook emits one line per mapped Polymarket token and one per Kalshi
// ticker with the current best quotes.
func (a *App) logTopOfBook(ctx context.Context, deps *Dependencies) {
	for _, tokenID := range deps.PolyStore.Tokens() {
		bid, hasBid := deps.PolyStore.BestBid(tokenID)
		ask, hasAsk := deps.PolyStore.BestAsk(tokenID)
		if !hasBid && !hasAsk {
			continue
		}
		a.logger.InfoContext(ctx, "polymarket top of book",
			slog.String("token_id", tokenID),
			slog.Float64("bid", bid.Price),
			slog.Float64("bid_size", bid.Size),
			slog.Float64("ask", ask.Price),
			slog.Float64("ask_size", ask.Size),
		)
	}

	for _, ticker := range deps.KalshiStore.Tickers() {
		yesAsk, hasYes := deps.KalshiStore.BestYesAsk(ticker)
		noAsk, hasNo := deps.KalshiStore.BestNoAsk(ticker)
		if !hasYes && !hasNo {
			continue
		}
		a.logger.InfoContext(ctx, "kalshi top of book",
			slog.String("ticker", ticker),
			slog.Float64("yes_ask_cents", yesAsk.Price),
			slog.Float64("yes_ask_size", yesAsk.Size),
			slog.Float64("no_ask_cents", noAsk.Price),
			slog.Float64("no_ask_size", noAsk.Size),
		)
	}
}

// mappedAssetIDs collects both outcome token IDs of every market that has a
// Kalshi counterpart.
func mappedAssetIDs(markets []domain.Market, mapped func(string) ([]string, bool)) []string {
	var ids []string
	for _, m := range markets {
		if _, ok := mapped(m.ConditionID); !ok {
			continue
		}
		ids = append(ids, m.Tokens.OutcomeA.ID, m.Tokens.OutcomeB.ID)
	}
	return ids
}
