package kalshi

// --------------------------------------------------------------------------
// REST DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Kalshi REST API.
// Prices are in cents (1-99).
type APIMarket struct {
	Ticker       string `json:"ticker"`
	EventTicker  string `json:"event_ticker"`
	Title        string `json:"title"`
	Status       string `json:"status"` // "active", "closed", "settled"
	YesBid       int64  `json:"yes_bid"`
	YesAsk       int64  `json:"yes_ask"`
	NoBid        int64  `json:"no_bid"`
	NoAsk        int64  `json:"no_ask"`
	Volume       int64  `json:"volume"`
	Volume24H    int64  `json:"volume_24h"`
	OpenInterest int64  `json:"open_interest"`
	Liquidity    int64  `json:"liquidity"`
	CloseTime    string `json:"close_time"`
}

// marketsResponse is the paginated envelope of GET /markets.
type marketsResponse struct {
	Markets []APIMarket `json:"markets"`
	Cursor  string      `json:"cursor"`
}

// APIOrderbook is the response of GET /markets/{ticker}/orderbook. Kalshi
// publishes resting YES and NO bids; the YES ask is implied by the best NO
// bid (ask_yes = 100 - bid_no).
type APIOrderbook struct {
	Orderbook struct {
		Yes [][]int64 `json:"yes"` // [price_cents, quantity]
		No  [][]int64 `json:"no"`
	} `json:"orderbook"`
}

// Best returns the best YES bid/ask as probabilities in [0,1]. Missing
// sides return nil.
func (o *APIOrderbook) Best() (yesBid, yesAsk *float64) {
	if n := len(o.Orderbook.Yes); n > 0 {
		v := float64(o.Orderbook.Yes[n-1][0]) / 100
		yesBid = &v
	}
	if n := len(o.Orderbook.No); n > 0 {
		v := float64(100-o.Orderbook.No[n-1][0]) / 100
		yesAsk = &v
	}
	return yesBid, yesAsk
}

// OrderRequest is the body of POST /portfolio/orders.
type OrderRequest struct {
	Ticker      string `json:"ticker"`
	Action      string `json:"action"` // "buy" or "sell"
	Side        string `json:"side"`   // "yes" or "no"
	Count       int64  `json:"count"`
	Type        string `json:"type"`          // "limit"
	TimeInForce string `json:"time_in_force"` // "fill_or_kill"
	YesPrice    int64  `json:"yes_price,omitempty"`
	NoPrice     int64  `json:"no_price,omitempty"`
	ClientID    string `json:"client_order_id"`
}

// OrderResponse is the envelope returned after order placement.
type OrderResponse struct {
	Order struct {
		OrderID  string `json:"order_id"`
		Status   string `json:"status"` // "executed", "canceled", "resting"
		YesPrice int64  `json:"yes_price"`
		NoPrice  int64  `json:"no_price"`
		Count    int64  `json:"count"`
	} `json:"order"`
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// WSCommand is the command frame for channel subscriptions.
type WSCommand struct {
	ID     int64           `json:"id"`
	Cmd    string          `json:"cmd"` // "subscribe"
	Params WSCommandParams `json:"params"`
}

// WSCommandParams lists channels and tickers for a subscription command.
type WSCommandParams struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers"`
}

// WSEnvelope is the outer shape of every inbound frame.
type WSEnvelope struct {
	Type string `json:"type"` // "ticker", "trade", "subscribed", "error"
	SID  int64  `json:"sid"`
}

// WSTickerMessage carries a top-of-book update on the "ticker" channel.
// Prices in cents.
type WSTickerMessage struct {
	Type string `json:"type"`
	Msg  struct {
		MarketTicker string `json:"market_ticker"`
		YesBid       int64  `json:"yes_bid"`
		YesAsk       int64  `json:"yes_ask"`
		Volume       int64  `json:"volume"`
		OpenInterest int64  `json:"open_interest"`
		Ts           int64  `json:"ts"`
	} `json:"msg"`
}

// WSTradeMessage carries an executed trade on the "trade" channel.
type WSTradeMessage struct {
	Type string `json:"type"`
	Msg  struct {
		MarketTicker string `json:"market_ticker"`
		YesPrice     int64  `json:"yes_price"`
		Count        int64  `json:"count"`
		TakerSide    string `json:"taker_side"`
		Ts           int64  `json:"ts"`
	} `json:"msg"`
}
