// Package mapper builds the static cross-venue instrument mapping. Each
// Polymarket game market's slug is parsed into league, teams, date, and
// market type, translated into the Kalshi ticker grammar, and probed
// against the set of known Kalshi tickers. Markets with no counterpart are
// skipped, not errors.
package mapper

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mgalloway/crossbook/internal/domain"
)

// Mapping is the bidirectional condition-ID to ticker mapping. A totals
// market maps to one combined ticker; a moneyline market maps to two
// per-team tickers in slug team order. Built once from REST metadata and
// immutable afterwards.
type Mapping struct {
	polyToKalshi map[string][]string
	kalshiToPoly map[string]string
}

// KalshiTickers returns the 1 or 2 Kalshi tickers mapped to a Polymarket
// condition ID.
func (m *Mapping) KalshiTickers(conditionID string) ([]string, bool) {
	t, ok := m.polyToKalshi[conditionID]
	return t, ok
}

// PolyCondition returns the Polymarket condition ID mapped to a Kalshi
// ticker.
func (m *Mapping) PolyCondition(ticker string) (string, bool) {
	c, ok := m.kalshiToPoly[ticker]
	return c, ok
}

// Conditions returns all mapped Polymarket condition IDs.
func (m *Mapping) Conditions() []string {
	out := make([]string, 0, len(m.polyToKalshi))
	for c := range m.polyToKalshi {
		out = append(out, c)
	}
	return out
}

// Tickers returns all mapped Kalshi tickers.
func (m *Mapping) Tickers() []string {
	out := make([]string, 0, len(m.kalshiToPoly))
	for t := range m.kalshiToPoly {
		out = append(out, t)
	}
	return out
}

// Len returns the number of mapped Polymarket markets.
func (m *Mapping) Len() int {
	return len(m.polyToKalshi)
}

// Build constructs the mapping from Polymarket markets and the set of known
// Kalshi tickers. Slugs look like "nfl-bal-pit-2026-01-04-total-43pt5" for a
// totals market or "nfl-bal-pit-2026-01-04" for a moneyline market.
func Build(markets []domain.Market, kalshiTickers map[string]struct{}, logger *slog.Logger) *Mapping {
	log := logger.With(slog.String("component", "mapper"))

	m := &Mapping{
		polyToKalshi: make(map[string][]string),
		kalshiToPoly: make(map[string]string),
	}

	for _, market := range markets {
		parts := strings.Split(market.Slug, "-")
		if len(parts) < 6 {
			log.Debug("skipping market with short slug", slog.String("slug", market.Slug))
			continue
		}

		league := parts[0]
		if league != "nfl" && league != "nba" {
			log.Debug("skipping non NFL/NBA market", slog.String("slug", market.Slug))
			continue
		}

		team1 := toKalshiTeamAbbr(parts[1])
		team2 := toKalshiTeamAbbr(parts[2])

		date, err := toKalshiDate(parts[3:6])
		if err != nil {
			log.Debug("skipping market with unparseable date",
				slog.String("slug", market.Slug),
				slog.String("error", err.Error()),
			)
			continue
		}

		if idx := indexOf(parts, "total"); idx >= 0 {
			if idx+1 >= len(parts) {
				log.Debug("skipping totals market without point total", slog.String("slug", market.Slug))
				continue
			}
			total := parts[idx+1]
			if i := strings.Index(total, "pt"); i >= 0 {
				total = total[:i]
			}

			ticker := strings.ToUpper(fmt.Sprintf("KX%sTOTAL-%s%s%s-%s", league, date, team1, team2, total))
			if _, ok := kalshiTickers[ticker]; !ok {
				continue
			}

			m.polyToKalshi[market.ConditionID] = []string{ticker}
			m.kalshiToPoly[ticker] = market.ConditionID
			log.Info("mapped totals market",
				slog.String("slug", market.Slug),
				slog.String("ticker", ticker),
			)
			continue
		}

		// Moneyline. Team order in the slug is assumed to match the ticker
		// grammar's team order.
		prefix := fmt.Sprintf("KX%sGAME-%s%s%s", league, date, team1, team2)
		tickers := []string{
			strings.ToUpper(prefix + "-" + team1),
			strings.ToUpper(prefix + "-" + team2),
		}

		allFound := true
		for _, t := range tickers {
			if _, ok := kalshiTickers[t]; !ok {
				allFound = false
				break
			}
		}
		if !allFound {
			log.Debug("no matching moneyline tickers",
				slog.String("slug", market.Slug),
				slog.String("ticker0", tickers[0]),
				slog.String("ticker1", tickers[1]),
			)
			continue
		}

		m.polyToKalshi[market.ConditionID] = tickers
		for _, t := range tickers {
			m.kalshiToPoly[t] = market.ConditionID
		}
		log.Info("mapped moneyline market",
			slog.String("slug", market.Slug),
			slog.String("ticker0", tickers[0]),
			slog.String("ticker1", tickers[1]),
		)
	}

	return m
}

// --------------------------------------------------------------------------
// Slug translation helpers
// --------------------------------------------------------------------------

var monthAbbrs = [12]string{
	"jan", "feb", "mar", "apr", "may", "jun",
	"jul", "aug", "sep", "oct", "nov", "dec",
}

// toKalshiDate translates a slug date triple ["2026","01","04"] into the
// ticker date encoding "26jan04".
func toKalshiDate(parts []string) (string, error) {
	if len(parts) != 3 {
		return "", fmt.Errorf("mapper: date needs 3 parts, got %d", len(parts))
	}

	year := parts[0]
	if len(year) != 4 {
		return "", fmt.Errorf("mapper: bad year %q", year)
	}

	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return "", fmt.Errorf("mapper: bad month %q", parts[1])
	}

	return year[2:] + monthAbbrs[month-1] + parts[2], nil
}

// toKalshiTeamAbbr translates a slug team abbreviation into the ticker
// abbreviation. The venues agree on every code except Jacksonville.
func toKalshiTeamAbbr(abbr string) string {
	switch strings.ToLower(abbr) {
	case "jax":
		return "JAC"
	default:
		return strings.ToUpper(abbr)
	}
}

func indexOf(parts []string, want string) int {
	for i, p := range parts {
		if p == want {
			return i
		}
	}
	return -1
}
