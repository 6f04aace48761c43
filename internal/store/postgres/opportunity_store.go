package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mgalloway/crossbook/internal/domain"
)

// OpportunityStore journals every reported opportunity so scan behavior can
// be reviewed after the fact.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a store backed by the given connection pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const opportunityCols = `id, condition_id, token_id, kalshi_ticker, kalshi_side,
	poly_ask, kalshi_ask, contracts, edge, created_at`

// Record inserts one opportunity.
func (s *OpportunityStore) Record(ctx context.Context, opp domain.Opportunity) error {
	const query = `
		INSERT INTO opportunities (
			id, condition_id, token_id, kalshi_ticker, kalshi_side,
			poly_ask, kalshi_ask, contracts, edge, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)`

	_, err := s.pool.Exec(ctx, query,
		opp.ID, opp.ConditionID, opp.TokenID, opp.Ticker, string(opp.Side),
		opp.PolyAsk, opp.KalshiAsk, opp.Contracts, opp.Edge, opp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// ListRecent returns the most recent opportunities, newest first.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	query := `SELECT ` + opportunityCols + ` FROM opportunities ORDER BY created_at DESC`
	args := []any{}

	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		var opp domain.Opportunity
		var side string

		if err := rows.Scan(
			&opp.ID, &opp.ConditionID, &opp.TokenID, &opp.Ticker, &side,
			&opp.PolyAsk, &opp.KalshiAsk, &opp.Contracts, &opp.Edge, &opp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opp.Side = domain.MarketSide(side)
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate opportunities: %w", err)
	}
	return opps, nil
}

// ListByMarket returns the opportunities recorded for one Polymarket market,
// newest first.
func (s *OpportunityStore) ListByMarket(ctx context.Context, conditionID string, limit int) ([]domain.Opportunity, error) {
	query := `SELECT ` + opportunityCols + ` FROM opportunities WHERE condition_id = $1 ORDER BY created_at DESC`
	args := []any{conditionID}

	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities for %s: %w", conditionID, err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		var opp domain.Opportunity
		var side string

		if err := rows.Scan(
			&opp.ID, &opp.ConditionID, &opp.TokenID, &opp.Ticker, &side,
			&opp.PolyAsk, &opp.KalshiAsk, &opp.Contracts, &opp.Edge, &opp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opp.Side = domain.MarketSide(side)
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate opportunities: %w", err)
	}
	return opps, nil
}
