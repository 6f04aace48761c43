package kalshi

import (
	"encoding/json"
	"fmt"

	"github.com/mgalloway/crossbook/internal/domain"
)

// --------------------------------------------------------------------------
// REST DTOs
// --------------------------------------------------------------------------

// Market represents a market as returned by the Kalshi REST API. Only the
// fields the scanner needs are decoded.
type Market struct {
	Ticker      string `json:"ticker"`
	EventTicker string `json:"event_ticker"`
	Title       string `json:"title"`
	Status      string `json:"status"`      // "active", "closed", "settled"
	MarketType  string `json:"market_type"` // "binary", "scalar"
	YesBid      int64  `json:"yes_bid"`
	YesAsk      int64  `json:"yes_ask"`
	NoBid       int64  `json:"no_bid"`
	NoAsk       int64  `json:"no_ask"`
	CloseTime   string `json:"close_time"`
}

// ErrorResponse is a Kalshi API error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// WSMessage is the envelope for Kalshi WebSocket messages. The payload in
// Msg is decoded according to Type; unknown types are ignored at the parse
// boundary rather than routed as an untyped catch-all.
type WSMessage struct {
	Type string          `json:"type"` // "orderbook_snapshot", "orderbook_delta", "subscribed", "error"
	SID  int64           `json:"sid"`
	Seq  int64           `json:"seq"`
	Msg  json.RawMessage `json:"msg"`
}

// WSLevel is a [price, size] pair as sent in snapshot messages.
type WSLevel [2]float64

// WSSnapshot is the full-book payload for one market. Both sides carry
// absolute sizes; each entry is a [price_cents, contracts] pair.
type WSSnapshot struct {
	Ticker string    `json:"market_ticker"`
	Yes    []WSLevel `json:"yes"`
	No     []WSLevel `json:"no"`
}

// WSDelta is a signed size adjustment for a single (side, price) level.
type WSDelta struct {
	Ticker string  `json:"market_ticker"`
	Price  float64 `json:"price"`
	Delta  float64 `json:"delta"`
	Side   string  `json:"side"` // "yes" or "no"
}

// WSError is the payload of an error-typed message.
type WSError struct {
	Error string `json:"error"`
}

// WSSubscribeCmd is the command sent to subscribe to WebSocket channels.
type WSSubscribeCmd struct {
	ID     int64             `json:"id"`
	Cmd    string            `json:"cmd"` // "subscribe" or "unsubscribe"
	Params WSSubscribeParams `json:"params"`
}

// WSSubscribeParams defines the subscription parameters.
type WSSubscribeParams struct {
	Channels []string `json:"channels"` // snapshots and deltas both arrive on "orderbook_delta"
	Tickers  []string `json:"market_tickers"`
}

// --------------------------------------------------------------------------
// Conversion helpers
// --------------------------------------------------------------------------

func toLevels(pairs []WSLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, domain.PriceLevel{Price: p[0], Size: p[1]})
	}
	return out
}

// YesLevels returns the snapshot's yes side as domain levels.
func (s *WSSnapshot) YesLevels() []domain.PriceLevel { return toLevels(s.Yes) }

// NoLevels returns the snapshot's no side as domain levels.
func (s *WSSnapshot) NoLevels() []domain.PriceLevel { return toLevels(s.No) }

// MarketSide maps the wire side tag to the domain side, rejecting anything
// other than "yes"/"no" before it reaches the book state machine.
func (d *WSDelta) MarketSide() (domain.MarketSide, error) {
	switch d.Side {
	case "yes":
		return domain.SideYes, nil
	case "no":
		return domain.SideNo, nil
	default:
		return "", fmt.Errorf("kalshi: unknown delta side %q", d.Side)
	}
}
