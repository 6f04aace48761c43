package domain

import (
	"fmt"
	"time"
)

// Opportunity is one riskless cross-venue trade found by a scan: buy one
// Polymarket outcome token at its best ask and the logically complementary
// Kalshi side at its derived best ask. The pair pays out exactly 1 per
// contract at settlement, so Edge is the guaranteed per-contract profit
// after Kalshi fees. Opportunities are computed fresh each scan and never
// carried across passes.
type Opportunity struct {
	ID          string
	ConditionID string
	TokenID     string
	Ticker      string
	Side        MarketSide
	PolyAsk     float64 // dollars, 0..1
	KalshiAsk   float64 // dollars, 0..1
	Contracts   int
	Edge        float64
	CreatedAt   time.Time
}

// String renders the opportunity in the notification wire format.
func (o Opportunity) String() string {
	return fmt.Sprintf("kalshiTicker=%s kalshiSide=%s polyAsk=%.4f kalshiAsk=%.4f edge=%.4f contracts=%d",
		o.Ticker, o.Side, o.PolyAsk, o.KalshiAsk, o.Edge, o.Contracts)
}

// FeeFunc converts a fill price (dollars, 0..1) and a contract count into a
// venue transaction fee in dollars.
type FeeFunc func(price float64, contracts int) float64
