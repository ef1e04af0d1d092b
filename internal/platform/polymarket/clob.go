package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simrat12/prediction-engine/internal/crypto"
	"github.com/simrat12/prediction-engine/internal/domain"
)

// ClobClient is the REST client for the Polymarket CLOB API. The engine uses
// it to seed top-of-book state at startup and to place fill-or-kill orders
// when the live executor is selected.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	signer     *crypto.Signer
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
// signer may be nil for read-only use (seeding); order placement then fails.
func NewClobClient(baseURL string, signer *crypto.Signer) *ClobClient {
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer: signer,
	}
}

// GetBook fetches the current order book for one token.
func (c *ClobClient) GetBook(ctx context.Context, tokenID string) (APIBook, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	body, err := c.doGet(ctx, "/book?"+params.Encode())
	if err != nil {
		return APIBook{}, fmt.Errorf("polymarket/clob: get book %s: %w", tokenID, err)
	}

	var book APIBook
	if err := json.Unmarshal(body, &book); err != nil {
		return APIBook{}, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}
	if book.AssetID == "" {
		book.AssetID = tokenID
	}
	return book, nil
}

// PostFOKOrder signs and submits a fill-or-kill order for one leg. NegRisk
// markets route through the neg-risk adapter contract, which changes the
// signed domain, so the flag must match the market's metadata.
func (c *ClobClient) PostFOKOrder(ctx context.Context, leg domain.OrderLeg, negRisk bool) (APIOrderResult, error) {
	if c.signer == nil {
		return APIOrderResult{}, fmt.Errorf("polymarket/clob: %w", domain.ErrNoPrivateKey)
	}

	maker, taker := orderAmounts(leg)
	payload := crypto.OrderPayload{
		TokenID:     leg.TokenID,
		MakerAmount: maker,
		TakerAmount: taker,
		Side:        string(leg.Side),
		NegRisk:     negRisk,
	}
	sig, err := c.signer.SignOrder(payload)
	if err != nil {
		return APIOrderResult{}, fmt.Errorf("polymarket/clob: sign order: %w", err)
	}

	body := map[string]any{
		"order": map[string]any{
			"tokenID":       leg.TokenID,
			"makerAmount":   maker,
			"takerAmount":   taker,
			"side":          sideUpper(leg.Side),
			"feeRateBps":    "0",
			"nonce":         "0",
			"expiration":    "0",
			"signatureType": 0,
			"signature":     sig,
			"maker":         c.signer.Address(),
			"signer":        c.signer.Address(),
			"taker":         "0x0000000000000000000000000000000000000000",
		},
		"owner":     c.signer.Address(),
		"orderType": "FOK",
	}

	respBody, err := c.doPost(ctx, "/order", body)
	if err != nil {
		return APIOrderResult{}, fmt.Errorf("polymarket/clob: post order: %w", err)
	}

	var result APIOrderResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return APIOrderResult{}, fmt.Errorf("polymarket/clob: decode order result: %w", err)
	}
	return result, nil
}

// orderAmounts converts a leg's price/size into the integer maker/taker
// amounts of the signed payload. Both sides use 6-decimal fixed point; buys
// spend collateral (price*size) for tokens (size), sells the reverse.
// decimal arithmetic avoids float drift in the signed integers.
func orderAmounts(leg domain.OrderLeg) (maker, taker string) {
	price := decimal.NewFromFloat(leg.Price)
	size := decimal.NewFromFloat(leg.Size)
	scale := decimal.New(1, 6)

	collateral := price.Mul(size).Mul(scale).Round(0)
	tokens := size.Mul(scale).Round(0)

	if leg.Side == domain.OrderSideBuy {
		return collateral.String(), tokens.String()
	}
	return tokens.String(), collateral.String()
}

func sideUpper(s domain.OrderSide) string {
	if s == domain.OrderSideBuy {
		return "BUY"
	}
	return "SELL"
}

func (c *ClobClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *ClobClient) doPost(ctx context.Context, path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *ClobClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}
