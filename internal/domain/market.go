package domain

import "time"

// MarketSide identifies one side of a binary Kalshi market.
type MarketSide string

const (
	SideYes MarketSide = "yes"
	SideNo  MarketSide = "no"
)

// Token is one binary outcome token of a Polymarket market.
type Token struct {
	ID      string
	Outcome string
}

// TokenPair holds the two outcome tokens of a binary market in venue order.
// Polymarket and Kalshi list the two teams of a game in the same order, and
// the slug-to-ticker mapping relies on that correspondence; naming the slots
// keeps the positional assumption visible instead of buried in index math.
type TokenPair struct {
	OutcomeA Token
	OutcomeB Token
}

// Market is a Polymarket binary market as the scanner sees it.
type Market struct {
	ConditionID   string
	Slug          string
	Question      string
	Tokens        TokenPair
	GameStartTime time.Time
}
