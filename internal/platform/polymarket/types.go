package polymarket

import (
	"strconv"
	"strings"
	"time"

	"github.com/mgalloway/crossbook/internal/domain"
)

// --------------------------------------------------------------------------
// CLOB REST DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the CLOB markets endpoint.
type APIMarket struct {
	ConditionID     string     `json:"condition_id"`
	QuestionID      string     `json:"question_id"`
	Question        string     `json:"question"`
	Description     string     `json:"description"`
	MarketSlug      string     `json:"market_slug"`
	Active          bool       `json:"active"`
	Closed          bool       `json:"closed"`
	Archived        bool       `json:"archived"`
	AcceptingOrders bool       `json:"accepting_orders"`
	EnableOrderBook bool       `json:"enable_order_book"`
	GameStartTime   string     `json:"game_start_time"`
	EndDateISO      string     `json:"end_date_iso"`
	Tokens          []APIToken `json:"tokens"`
}

// APIToken is one outcome token entry inside a market response.
type APIToken struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Price   float64 `json:"price"`
	Winner  bool   `json:"winner"`
}

// PaginationPayload is the envelope of the paginated markets endpoint.
// NextCursor is "LTE=" on the final page.
type PaginationPayload struct {
	Data       []APIMarket `json:"data"`
	NextCursor string      `json:"next_cursor"`
	Limit      int         `json:"limit"`
	Count      int         `json:"count"`
}

// ToDomainMarket converts an APIMarket to a domain.Market. The two outcome
// tokens keep their venue order in the TokenPair.
func (m *APIMarket) ToDomainMarket() domain.Market {
	dm := domain.Market{
		ConditionID: m.ConditionID,
		Slug:        m.MarketSlug,
		Question:    m.Question,
	}
	if len(m.Tokens) > 0 {
		dm.Tokens.OutcomeA = domain.Token{ID: m.Tokens[0].TokenID, Outcome: m.Tokens[0].Outcome}
	}
	if len(m.Tokens) > 1 {
		dm.Tokens.OutcomeB = domain.Token{ID: m.Tokens[1].TokenID, Outcome: m.Tokens[1].Outcome}
	}
	if t, err := time.Parse(time.RFC3339, m.GameStartTime); err == nil {
		dm.GameStartTime = t
	}
	return dm
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// WSEnvelope carries only the event_type discriminator; the full frame is
// re-decoded into the matching message type. Unknown event types fall into
// an explicit ignored path at the parse boundary.
type WSEnvelope struct {
	EventType string `json:"event_type"` // "book", "price_change", "last_trade_price"
}

// WSPriceLevel is a single level in the WebSocket orderbook data. Prices
// and sizes are decimal strings on the wire.
type WSPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// WSBook is a full orderbook snapshot for one token.
type WSBook struct {
	EventType string         `json:"event_type"`
	AssetID   string         `json:"asset_id"`
	Market    string         `json:"market"`
	Bids      []WSPriceLevel `json:"bids"`
	Asks      []WSPriceLevel `json:"asks"`
	Timestamp string         `json:"timestamp"`
	Hash      string         `json:"hash"`
}

// WSPriceChange is one level update inside a price_change message. The
// optional best_bid/best_ask fields carry a top-of-book correction.
type WSPriceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"` // "0" means level removed
	Side    string `json:"side"` // "BUY" or "SELL"
	Hash    string `json:"hash"`
	BestBid string `json:"best_bid,omitempty"`
	BestAsk string `json:"best_ask,omitempty"`
}

// WSPriceChangeMsg is the price_change frame: a batch of level updates for
// one market.
type WSPriceChangeMsg struct {
	EventType    string          `json:"event_type"`
	Market       string          `json:"market"`
	PriceChanges []WSPriceChange `json:"price_changes"`
	Timestamp    string          `json:"timestamp"`
}

// WSSubscribeCmd is the JSON payload sent to subscribe to the market channel.
type WSSubscribeCmd struct {
	Type     string   `json:"type"` // channel id, "market"
	AssetIDs []string `json:"assets_ids"`
}

// --------------------------------------------------------------------------
// Conversion helpers
// --------------------------------------------------------------------------

// parseWireLevels converts string price/size pairs to domain levels,
// dropping unparseable entries.
func parseWireLevels(in []WSPriceLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(in))
	for _, lvl := range in {
		p, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		s, err := strconv.ParseFloat(lvl.Size, 64)
		if err != nil {
			continue
		}
		out = append(out, domain.PriceLevel{Price: p, Size: s})
	}
	return out
}

// BidLevels returns the snapshot's bids as domain levels.
func (b *WSBook) BidLevels() []domain.PriceLevel { return parseWireLevels(b.Bids) }

// AskLevels returns the snapshot's asks as domain levels.
func (b *WSBook) AskLevels() []domain.PriceLevel { return parseWireLevels(b.Asks) }

// Values parses the change's numeric fields. The bool result is false when
// price or size is unparseable; optional corrections that fail to parse are
// returned as nil.
func (pc *WSPriceChange) Values() (price, size float64, bestBid, bestAsk *float64, ok bool) {
	price, err := strconv.ParseFloat(pc.Price, 64)
	if err != nil {
		return 0, 0, nil, nil, false
	}
	size, err = strconv.ParseFloat(pc.Size, 64)
	if err != nil {
		return 0, 0, nil, nil, false
	}
	if pc.BestBid != "" {
		if v, err := strconv.ParseFloat(pc.BestBid, 64); err == nil {
			bestBid = &v
		}
	}
	if pc.BestAsk != "" {
		if v, err := strconv.ParseFloat(pc.BestAsk, 64); err == nil {
			bestAsk = &v
		}
	}
	return price, size, bestBid, bestAsk, true
}

// NormalizedSide maps the wire side tag to "BUY"/"SELL", rejecting other
// values before they reach the book state machine.
func (pc *WSPriceChange) NormalizedSide() (string, bool) {
	switch strings.ToUpper(pc.Side) {
	case "BUY":
		return "BUY", true
	case "SELL":
		return "SELL", true
	default:
		return "", false
	}
}
