package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mgalloway/crossbook/internal/domain"
)

// OpportunityCache keeps the most recent opportunity per Polymarket market
// so diagnostics can read the latest scan result without touching the book
// stores.
//
// Key schema:
//
//	opp:latest:{conditionID} - JSON-encoded opportunity, expiring after TTL
type OpportunityCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewOpportunityCache creates an OpportunityCache backed by the given Client.
// Entries expire after ttl so a market that stops producing opportunities
// goes quiet instead of serving a stale quote forever.
func NewOpportunityCache(c *Client, ttl time.Duration) *OpportunityCache {
	return &OpportunityCache{
		rdb: c.Underlying(),
		ttl: ttl,
	}
}

func latestKey(conditionID string) string { return "opp:latest:" + conditionID }

// SetLatest stores the opportunity under its market's key.
func (oc *OpportunityCache) SetLatest(ctx context.Context, opp domain.Opportunity) error {
	data, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("redis: marshal opportunity %s: %w", opp.ID, err)
	}
	if err := oc.rdb.Set(ctx, latestKey(opp.ConditionID), data, oc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set latest opportunity %s: %w", opp.ConditionID, err)
	}
	return nil
}

// GetLatest returns the most recent opportunity for a market. It returns
// domain.ErrNotFound when no entry exists or the entry has expired.
func (oc *OpportunityCache) GetLatest(ctx context.Context, conditionID string) (domain.Opportunity, error) {
	data, err := oc.rdb.Get(ctx, latestKey(conditionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Opportunity{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Opportunity{}, fmt.Errorf("redis: get latest opportunity %s: %w", conditionID, err)
	}

	var opp domain.Opportunity
	if err := json.Unmarshal(data, &opp); err != nil {
		return domain.Opportunity{}, fmt.Errorf("redis: unmarshal opportunity %s: %w", conditionID, err)
	}
	return opp, nil
}
