// Package scanner finds cross-venue arbitrage. Each pass reads the latest
// applied state of both book stores through the instrument mapping and
// reports the maximum-edge synthetic riskless trade per Polymarket market.
package scanner

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mgalloway/crossbook/internal/book"
	"github.com/mgalloway/crossbook/internal/domain"
	"github.com/mgalloway/crossbook/internal/mapper"
)

// Notifier delivers an opportunity alert. Fire and forget; delivery failures
// are the implementation's problem and never propagate back to the scan.
type Notifier interface {
	Notify(ctx context.Context, message string, urgent bool)
}

// Journal persists every reported opportunity.
type Journal interface {
	Record(ctx context.Context, opp domain.Opportunity) error
}

// Cache keeps the most recent opportunity per market for fast lookup.
type Cache interface {
	SetLatest(ctx context.Context, opp domain.Opportunity) error
}

// Archiver receives the full result set of a pass for cold storage.
type Archiver interface {
	Archive(ctx context.Context, opps []domain.Opportunity) error
}

// Config carries the scanner's dependencies and tunables. Notifier, Journal,
// Cache, and Archiver are optional; a nil sink is skipped.
type Config struct {
	PolyStore   *book.PolyStore
	KalshiStore *book.KalshiStore
	Mapping     *mapper.Mapping
	Markets     []domain.Market
	Fee         domain.FeeFunc
	MinEdge     float64
	UnitSizeCap int

	Notifier Notifier
	Journal  Journal
	Cache    Cache
	Archiver Archiver

	Logger *slog.Logger
}

// Scanner evaluates all mapped markets against the current book state. It
// only reads the stores; the feeds own all writes.
type Scanner struct {
	polyStore   *book.PolyStore
	kalshiStore *book.KalshiStore
	mapping     *mapper.Mapping
	markets     map[string]domain.Market // conditionID -> market
	fee         domain.FeeFunc
	minEdge     float64
	unitSizeCap int

	notifier Notifier
	journal  Journal
	cache    Cache
	archiver Archiver

	logger *slog.Logger
}

// New creates a scanner over the given stores and mapping.
func New(cfg Config) *Scanner {
	markets := make(map[string]domain.Market, len(cfg.Markets))
	for _, m := range cfg.Markets {
		markets[m.ConditionID] = m
	}

	return &Scanner{
		polyStore:   cfg.PolyStore,
		kalshiStore: cfg.KalshiStore,
		mapping:     cfg.Mapping,
		markets:     markets,
		fee:         cfg.Fee,
		minEdge:     cfg.MinEdge,
		unitSizeCap: cfg.UnitSizeCap,
		notifier:    cfg.Notifier,
		journal:     cfg.Journal,
		cache:       cfg.Cache,
		archiver:    cfg.Archiver,
		logger:      cfg.Logger.With(slog.String("component", "scanner")),
	}
}

// pairing is one candidate (outcome token, ticker side) leg combination.
type pairing struct {
	tokenID string
	ticker  string
	side    domain.MarketSide
}

// pairings enumerates the legal leg combinations for a market given its
// mapping cardinality. One ticker (a totals market): token 0 buys the no
// side, token 1 the yes side. Two tickers (a moneyline market, one per
// team): the same logical outcome can be bought as "not the other team" on
// its ticker or directly on this team's ticker, so each token gets two
// candidates.
func pairings(market domain.Market, tickers []string) []pairing {
	t0 := market.Tokens.OutcomeA.ID
	t1 := market.Tokens.OutcomeB.ID

	switch len(tickers) {
	case 1:
		return []pairing{
			{tokenID: t0, ticker: tickers[0], side: domain.SideNo},
			{tokenID: t1, ticker: tickers[0], side: domain.SideYes},
		}
	case 2:
		return []pairing{
			{tokenID: t0, ticker: tickers[0], side: domain.SideNo},
			{tokenID: t0, ticker: tickers[1], side: domain.SideYes},
			{tokenID: t1, ticker: tickers[1], side: domain.SideNo},
			{tokenID: t1, ticker: tickers[0], side: domain.SideYes},
		}
	default:
		return nil
	}
}

// ScanMarket finds the maximum-edge pairing for one market. The bool result
// is false when no pairing clears the minimum edge; missing liquidity on
// either leg skips that pairing silently, absence of liquidity is expected
// steady state.
func (s *Scanner) ScanMarket(market domain.Market) (domain.Opportunity, bool) {
	tickers, ok := s.mapping.KalshiTickers(market.ConditionID)
	if !ok {
		return domain.Opportunity{}, false
	}

	var (
		best  domain.Opportunity
		found bool
	)

	for _, p := range pairings(market, tickers) {
		opp, ok := s.evaluate(market.ConditionID, p)
		if !ok {
			continue
		}
		// Strictly greater, so the first enumerated pairing wins ties.
		if !found || opp.Edge > best.Edge {
			best = opp
			found = true
		}
	}

	if !found || best.Edge < s.minEdge {
		return domain.Opportunity{}, false
	}

	best.ID = uuid.NewString()
	best.CreatedAt = time.Now().UTC()
	return best, true
}

// evaluate prices one pairing from the current top of both books.
func (s *Scanner) evaluate(conditionID string, p pairing) (domain.Opportunity, bool) {
	polyAsk, ok := s.polyStore.BestAsk(p.tokenID)
	if !ok {
		return domain.Opportunity{}, false
	}
	kalshiAsk, ok := s.kalshiStore.BestAsk(p.ticker, p.side)
	if !ok {
		return domain.Opportunity{}, false
	}

	contracts := minInt(int(polyAsk.Size), int(kalshiAsk.Size), s.unitSizeCap)
	if contracts <= 0 {
		return domain.Opportunity{}, false
	}

	// Kalshi quotes cents; everything downstream is in dollars.
	kalshiPrice := kalshiAsk.Price / 100
	fee := s.fee(kalshiPrice, contracts)
	costPerContract := polyAsk.Price + kalshiPrice + fee/float64(contracts)

	return domain.Opportunity{
		ConditionID: conditionID,
		TokenID:     p.tokenID,
		Ticker:      p.ticker,
		Side:        p.side,
		PolyAsk:     polyAsk.Price,
		KalshiAsk:   kalshiPrice,
		Contracts:   contracts,
		Edge:        1 - costPerContract,
	}, true
}

// Scan evaluates every mapped market and returns the opportunities ranked by
// edge, best first.
func (s *Scanner) Scan() []domain.Opportunity {
	var opps []domain.Opportunity
	for conditionID := range s.markets {
		market := s.markets[conditionID]
		if opp, ok := s.ScanMarket(market); ok {
			opps = append(opps, opp)
		}
	}

	sort.Slice(opps, func(i, j int) bool {
		return opps[i].Edge > opps[j].Edge
	})
	return opps
}

// Run performs a scan on a fixed cadence until ctx is cancelled. The cadence
// is decoupled from feed message arrival: each pass observes whatever state
// the feeds have applied so far.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) error {
	s.logger.Info("scanner started",
		slog.Duration("interval", interval),
		slog.Float64("min_edge", s.minEdge),
		slog.Int("unit_size_cap", s.unitSizeCap),
		slog.Int("markets", len(s.markets)),
	)
	defer s.logger.Info("scanner stopped")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

// runPass executes one scan and fans the results out to the configured
// sinks. Sink failures are logged and never abort the pass.
func (s *Scanner) runPass(ctx context.Context) {
	opps := s.Scan()
	if len(opps) == 0 {
		return
	}

	s.logger.Info("scan pass found opportunities", slog.Int("count", len(opps)))

	for _, opp := range opps {
		s.logger.Info("opportunity",
			slog.String("ticker", opp.Ticker),
			slog.String("side", string(opp.Side)),
			slog.Float64("edge", opp.Edge),
			slog.Int("contracts", opp.Contracts),
		)

		if s.notifier != nil {
			s.notifier.Notify(ctx, opp.String(), true)
		}
		if s.journal != nil {
			if err := s.journal.Record(ctx, opp); err != nil {
				s.logger.Warn("journal record failed",
					slog.String("id", opp.ID),
					slog.String("error", err.Error()),
				)
			}
		}
		if s.cache != nil {
			if err := s.cache.SetLatest(ctx, opp); err != nil {
				s.logger.Warn("cache update failed",
					slog.String("id", opp.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, opps); err != nil {
			s.logger.Warn("archive failed", slog.String("error", err.Error()))
		}
	}
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
