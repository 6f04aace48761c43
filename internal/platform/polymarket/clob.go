package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mgalloway/crossbook/internal/crypto"
	"github.com/mgalloway/crossbook/internal/domain"
)

// endCursor is the CLOB pagination terminator.
const endCursor = "LTE="

// ClobClient is the REST client for the Polymarket CLOB API, used here for
// market discovery. API credentials are derived once via the ClobAuth
// signature flow and attached to subsequent requests as L2 HMAC headers.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	signer     *crypto.Signer
	hmacAuth   *crypto.HMACAuth
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
// signer is the EIP-712 signer used for the credential derivation handshake.
func NewClobClient(baseURL string, signer *crypto.Signer) *ClobClient {
	return &ClobClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer: signer,
	}
}

// DeriveAPIKey performs the CLOB auth flow to obtain an HMAC API key. It
// signs a ClobAuth EIP-712 message and sends it with L1 headers
// (POLY_ADDRESS, POLY_SIGNATURE, POLY_TIMESTAMP, POLY_NONCE) to the
// derive-api-key endpoint. On success the credentials are attached to this
// client for subsequent requests.
func (c *ClobClient) DeriveAPIKey(ctx context.Context) error {
	address := c.signer.Address().Hex()
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	nonce := int64(0)

	sig, err := c.signer.SignAuthMessage(timestamp, nonce)
	if err != nil {
		return fmt.Errorf("polymarket/clob: sign auth message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/derive-api-key", nil)
	if err != nil {
		return fmt.Errorf("polymarket/clob: create auth request: %w", err)
	}
	req.Header.Set("POLY_ADDRESS", address)
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_NONCE", fmt.Sprintf("%d", nonce))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("polymarket/clob: auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("polymarket/clob: read auth response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("polymarket/clob: auth failed (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var authResp struct {
		APIKey     string `json:"apiKey"`
		Secret     string `json:"secret"`
		Passphrase string `json:"passphrase"`
	}
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return fmt.Errorf("polymarket/clob: decode auth response: %w", err)
	}

	c.hmacAuth = &crypto.HMACAuth{
		Key:        authResp.APIKey,
		Secret:     authResp.Secret,
		Passphrase: authResp.Passphrase,
	}

	return nil
}

// GetMarkets returns one page of markets plus the cursor for the next page.
func (c *ClobClient) GetMarkets(ctx context.Context, cursor string) (PaginationPayload, error) {
	path := "/markets"
	if cursor != "" {
		path += "?" + url.Values{"next_cursor": {cursor}}.Encode()
	}

	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return PaginationPayload{}, fmt.Errorf("polymarket/clob: get markets: %w", err)
	}

	var page PaginationPayload
	if err := json.Unmarshal(body, &page); err != nil {
		return PaginationPayload{}, fmt.Errorf("polymarket/clob: decode markets: %w", err)
	}

	return page, nil
}

// GetGameMarkets pages through all markets and keeps the open binary
// NFL/NBA game markets whose games have not started yet, converted to
// domain records.
func (c *ClobClient) GetGameMarkets(ctx context.Context) ([]domain.Market, error) {
	var out []domain.Market
	cursor := ""
	now := time.Now()

	for {
		page, err := c.GetMarkets(ctx, cursor)
		if err != nil {
			return nil, err
		}
		for i := range page.Data {
			if isScannableMarket(&page.Data[i], now) {
				out = append(out, page.Data[i].ToDomainMarket())
			}
		}
		if page.NextCursor == "" || page.NextCursor == endCursor {
			break
		}
		cursor = page.NextCursor
	}

	return out, nil
}

// isScannableMarket keeps open binary NFL/NBA game markets that have not
// started yet. The league probe matches the market description text the
// venue uses for game markets.
func isScannableMarket(m *APIMarket, now time.Time) bool {
	if m.Closed || m.Archived || !m.Active || !m.AcceptingOrders || !m.EnableOrderBook {
		return false
	}
	if len(m.Tokens) != 2 {
		return false
	}

	if start, err := time.Parse(time.RFC3339, m.GameStartTime); err == nil {
		if start.Before(now) {
			return false
		}
	}

	desc := strings.ToLower(m.Description)
	if !strings.Contains(desc, "in the upcoming nfl game") &&
		!strings.Contains(desc, "in the upcoming nba game") {
		return false
	}

	return strings.Contains(strings.ToLower(m.Question), "vs.")
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doRequest builds, signs (L2 HMAC when credentials exist), sends, and reads
// an HTTP request against the CLOB API.
func (c *ClobClient) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.hmacAuth != nil {
		signPath := path
		if i := strings.IndexByte(signPath, '?'); i >= 0 {
			signPath = signPath[:i]
		}
		address := c.signer.Address().Hex()
		for k, v := range c.hmacAuth.L2Headers(address, method, signPath, "") {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
