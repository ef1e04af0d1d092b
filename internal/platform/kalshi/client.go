// Package kalshi contains the REST client and wire DTOs for the Kalshi
// exchange API.
package kalshi

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is the REST client for the Kalshi exchange API. Market data
// endpoints work unauthenticated; portfolio endpoints require an API key
// and an RSA-PSS request signature.
type Client struct {
	http       *resty.Client
	apiKeyID   string
	privateKey *rsa.PrivateKey
}

// NewClient creates a Kalshi REST client.
//
// baseURL is the API root, e.g. "https://api.elections.kalshi.com/trade-api/v2".
func NewClient(baseURL, apiKeyID string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second).
			SetHeader("Accept", "application/json"),
		apiKeyID: apiKeyID,
	}
}

// SetRSAPrivateKey loads a PEM-encoded RSA private key for signed requests.
func (c *Client) SetRSAPrivateKey(pemBytes []byte) error {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return fmt.Errorf("kalshi: no PEM block found in private key")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		pkcs1Key, pkcs1Err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if pkcs1Err != nil {
			return fmt.Errorf("kalshi: parse private key: %w", err)
		}
		c.privateKey = pkcs1Key
		return nil
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("kalshi: expected RSA private key, got %T", key)
	}
	c.privateKey = rsaKey
	return nil
}

// DiscoveryFilter bounds which markets ListOpenMarkets returns.
type DiscoveryFilter struct {
	MinVolume       float64
	MinOpenInterest float64
	MaxMarkets      int
}

// ListOpenMarkets pages through the catalog and returns open markets above
// the volume and open-interest thresholds.
func (c *Client) ListOpenMarkets(ctx context.Context, filter DiscoveryFilter) ([]APIMarket, error) {
	max := filter.MaxMarkets
	if max <= 0 {
		max = 100
	}

	var out []APIMarket
	cursor := ""
	for len(out) < max {
		params := url.Values{}
		params.Set("limit", "100")
		params.Set("status", "open")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var page marketsResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParamsFromValues(params).
			SetResult(&page).
			Get("/markets")
		if err != nil {
			return nil, fmt.Errorf("kalshi: get markets: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("kalshi: get markets: status %d", resp.StatusCode())
		}

		for _, m := range page.Markets {
			if m.Status != "open" && m.Status != "active" {
				continue
			}
			if float64(m.Volume24H) < filter.MinVolume {
				continue
			}
			if float64(m.OpenInterest) < filter.MinOpenInterest {
				continue
			}
			out = append(out, m)
			if len(out) == max {
				break
			}
		}

		if page.Cursor == "" || len(page.Markets) == 0 {
			break
		}
		cursor = page.Cursor
	}
	return out, nil
}

// GetOrderbook fetches the resting book for one market ticker.
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (APIOrderbook, error) {
	var book APIOrderbook
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&book).
		Get("/markets/" + url.PathEscape(ticker) + "/orderbook")
	if err != nil {
		return APIOrderbook{}, fmt.Errorf("kalshi: get orderbook %s: %w", ticker, err)
	}
	if resp.IsError() {
		return APIOrderbook{}, fmt.Errorf("kalshi: get orderbook %s: status %d", ticker, resp.StatusCode())
	}
	return book, nil
}

// PlaceOrder submits a signed fill-or-kill order.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	if c.privateKey == nil {
		return OrderResponse{}, fmt.Errorf("kalshi: RSA private key not configured")
	}

	path := "/portfolio/orders"
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	sig, err := c.signRequest(ts, "POST", path)
	if err != nil {
		return OrderResponse{}, err
	}

	var result OrderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("KALSHI-ACCESS-KEY", c.apiKeyID).
		SetHeader("KALSHI-ACCESS-TIMESTAMP", ts).
		SetHeader("KALSHI-ACCESS-SIGNATURE", sig).
		SetBody(req).
		SetResult(&result).
		Post(path)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("kalshi: place order: %w", err)
	}
	if resp.IsError() {
		return OrderResponse{}, fmt.Errorf("kalshi: place order: status %d: %s", resp.StatusCode(), resp.String())
	}
	return result, nil
}

// signRequest builds the RSA-PSS signature over timestamp+method+path.
func (c *Client) signRequest(timestamp, method, path string) (string, error) {
	msg := timestamp + method + "/trade-api/v2" + path
	digest := sha256.Sum256([]byte(msg))

	sig, err := rsa.SignPSS(rand.Reader, c.privateKey, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return "", fmt.Errorf("kalshi: sign request: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}
