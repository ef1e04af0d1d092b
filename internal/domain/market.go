package domain

import "time"

// MarketInfo is the static metadata for one binary market. Entries are built
// once during adapter discovery and are immutable afterwards.
type MarketInfo struct {
	MarketID   string
	Question   string
	YesTokenID string
	NoTokenID  string
	NegRisk    bool
	Volume     float64
}

// MarketMap maps market_id to its static metadata. Published read-only after
// adapter init; lookups never synchronize.
type MarketMap map[string]MarketInfo

// TokenToMarket maps an outcome token id back to its market_id.
type TokenToMarket map[string]string

// OtherToken returns the sibling outcome token of tokenID within the market,
// and false when tokenID belongs to neither outcome.
func (m MarketInfo) OtherToken(tokenID string) (string, bool) {
	switch tokenID {
	case m.YesTokenID:
		return m.NoTokenID, true
	case m.NoTokenID:
		return m.YesTokenID, true
	}
	return "", false
}

// MarketState is the mutable top-of-book state for one outcome token.
// Option-valued fields are nil until first observed. BestBid > BestAsk is
// stored as received; venues may transiently cross and strategies filter.
type MarketState struct {
	BestBid    *float64
	BestAsk    *float64
	Volume24h  *float64
	LastUpdate time.Time
}

// HasQuote reports whether both sides of the book are known.
func (s MarketState) HasQuote() bool {
	return s.BestBid != nil && s.BestAsk != nil
}

// KeyedState pairs a cache key with a value snapshot, for diagnostics.
type KeyedState struct {
	Key   MarketKey
	State MarketState
}

// Float64 returns a pointer to v, for building partial states.
func Float64(v float64) *float64 { return &v }
