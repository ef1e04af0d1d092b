// Package polymarket contains the REST clients and wire DTOs for the
// Polymarket Gamma (discovery) and CLOB (order book, trading) APIs.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const gammaPageSize = 100

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery and metadata.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string) *GammaClient {
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// DiscoveryFilter bounds which markets ListTradableMarkets returns.
type DiscoveryFilter struct {
	MinVolume    float64
	MinLiquidity float64
	MaxMarkets   int
}

// ListTradableMarkets pages through the Gamma catalog and returns binary
// markets that are active, not closed, not archived, CLOB-tradable, and
// above the volume/liquidity thresholds.
func (g *GammaClient) ListTradableMarkets(ctx context.Context, filter DiscoveryFilter) ([]APIMarket, error) {
	max := filter.MaxMarkets
	if max <= 0 {
		max = gammaPageSize
	}

	var out []APIMarket
	for offset := 0; len(out) < max; offset += gammaPageSize {
		page, err := g.getMarketsPage(ctx, gammaPageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		for i := range page {
			m := &page[i]
			if !tradable(m, filter) {
				continue
			}
			out = append(out, *m)
			if len(out) == max {
				break
			}
		}
	}
	return out, nil
}

// tradable applies the discovery filter to one market.
func tradable(m *APIMarket, filter DiscoveryFilter) bool {
	if !bool(m.Active) || bool(m.Closed) || bool(m.Archived) || !bool(m.EnableOrderBook) {
		return false
	}
	if float64(m.Volume) < filter.MinVolume {
		return false
	}
	if float64(m.Liquidity) < filter.MinLiquidity {
		return false
	}
	_, _, ok := m.TokenIDs()
	return ok
}

func (g *GammaClient) getMarketsPage(ctx context.Context, limit, offset int) ([]APIMarket, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("active", "true")
	params.Set("closed", "false")

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get markets: %w", err)
	}

	var markets []APIMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}
	return markets, nil
}

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
