package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether a flag is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID              string    `json:"id"`
	Question        string    `json:"question"`
	ConditionID     string    `json:"conditionId"`
	Slug            string    `json:"slug"`
	Active          flexBool  `json:"active"`
	Closed          flexBool  `json:"closed"`
	Archived        flexBool  `json:"archived"`
	EnableOrderBook flexBool  `json:"enableOrderBook"`
	NegRisk         flexBool  `json:"negRisk"`
	Volume          flexFloat `json:"volume"`
	Volume24hr      flexFloat `json:"volume24hr"`
	Liquidity       flexFloat `json:"liquidity"`
	Outcomes        string    `json:"outcomes"`     // JSON-encoded, e.g. "[\"Yes\",\"No\"]"
	ClobTokenIDs    string    `json:"clobTokenIds"` // JSON-encoded, e.g. "[\"123\",\"456\"]"
	EndDateISO      string    `json:"endDateIso"`
}

// TokenIDs decodes the JSON-encoded clobTokenIds field into the YES and NO
// token ids. The Gamma API lists the YES token first for binary markets.
func (m *APIMarket) TokenIDs() (yes, no string, ok bool) {
	var ids []string
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &ids); err != nil {
		return "", "", false
	}
	if len(ids) != 2 || ids[0] == "" || ids[1] == "" {
		return "", "", false
	}
	return ids[0], ids[1], true
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIBook is the top-of-book response from GET /book.
type APIBook struct {
	AssetID string          `json:"asset_id"`
	Market  string          `json:"market"`
	Bids    []APIPriceLevel `json:"bids"`
	Asks    []APIPriceLevel `json:"asks"`
	Hash    string          `json:"hash"`
}

// APIPriceLevel is a single price+size level; the CLOB sends decimal strings.
type APIPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BestLevels extracts the best bid and ask prices from the raw book. The
// CLOB orders bids ascending and asks descending, so the best of each side
// is the last element. Missing sides return nil.
func (b *APIBook) BestLevels() (bid, ask *float64) {
	if n := len(b.Bids); n > 0 {
		if v, err := strconv.ParseFloat(b.Bids[n-1].Price, 64); err == nil {
			bid = &v
		}
	}
	if n := len(b.Asks); n > 0 {
		if v, err := strconv.ParseFloat(b.Asks[n-1].Price, 64); err == nil {
			ask = &v
		}
	}
	return bid, ask
}

// APIOrderResult is the response from placing an order via the CLOB API.
type APIOrderResult struct {
	Success      bool   `json:"success"`
	ErrorMsg     string `json:"errorMsg,omitempty"`
	OrderID      string `json:"orderID,omitempty"`
	Status       string `json:"status,omitempty"`
	TakingAmount string `json:"takingAmount,omitempty"`
	MakingAmount string `json:"makingAmount,omitempty"`
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// WSCommand is the subscribe/unsubscribe frame sent to the market channel.
type WSCommand struct {
	Type      string   `json:"type"`
	Channel   string   `json:"channel,omitempty"`
	AssetsIDs []string `json:"assets_ids"`
}

// WSEnvelope is the minimal outer shape used to route inbound frames.
type WSEnvelope struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
}

// WSBookMessage is a full top-of-book snapshot frame.
type WSBookMessage struct {
	EventType string          `json:"event_type"`
	AssetID   string          `json:"asset_id"`
	Market    string          `json:"market"`
	Bids      []APIPriceLevel `json:"bids"`
	Asks      []APIPriceLevel `json:"asks"`
	Timestamp string          `json:"timestamp"`
}

// BestLevels mirrors APIBook.BestLevels for the WS frame shape.
func (b *WSBookMessage) BestLevels() (bid, ask *float64) {
	book := APIBook{Bids: b.Bids, Asks: b.Asks}
	return book.BestLevels()
}

// WSPriceChange is one changed level inside a price_change frame.
type WSPriceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"` // "BUY" or "SELL"
	Best    string `json:"best_price,omitempty"`
}

// WSPriceChangeMessage is an incremental price_change frame.
type WSPriceChangeMessage struct {
	EventType string          `json:"event_type"`
	AssetID   string          `json:"asset_id"`
	Market    string          `json:"market"`
	Changes   []WSPriceChange `json:"changes"`
	Timestamp string          `json:"timestamp"`
}

// WSLastTradeMessage is a last_trade_price frame.
type WSLastTradeMessage struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
	Timestamp string `json:"timestamp"`
}
