package models

import (
	"fmt"
	"sort"
	"time"
)

// Market identifies one of the tracked asset classes.
type Market string

const (
	MarketCrypto Market = "crypto"
	MarketEquity Market = "equity"
	MarketFund   Market = "fund"
)

// Markets lists all tracked asset classes in refresh order.
var Markets = []Market{MarketCrypto, MarketEquity, MarketFund}

// ParseMarket maps a request string to a Market.
func ParseMarket(s string) (Market, bool) {
	switch Market(s) {
	case MarketCrypto, MarketEquity, MarketFund:
		return Market(s), true
	}
	// legacy alias used by the old stock endpoints
	if s == "stock" {
		return MarketEquity, true
	}
	return "", false
}

// AssetID uniquely identifies an asset across all markets.
type AssetID struct {
	Market Market `json:"market"`
	Symbol string `json:"symbol"`
}

func (a AssetID) String() string {
	return fmt.Sprintf("%s:%s", a.Market, a.Symbol)
}

// PricePoint is one bar of a time-ascending price series. Open/High/Low/Volume
// are zero when the upstream does not provide them (funds expose NAV only).
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open,omitempty"`
	High      float64   `json:"high,omitempty"`
	Low       float64   `json:"low,omitempty"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume,omitempty"`
}

// PriceSeries is a time-ascending sequence of PricePoints with unique timestamps.
type PriceSeries []PricePoint

// Append returns the series extended by p, keeping ascending order. A point
// carrying an already-present timestamp replaces the existing one.
func (s PriceSeries) Append(p PricePoint) PriceSeries {
	n := len(s)
	if n == 0 || p.Timestamp.After(s[n-1].Timestamp) {
		return append(s, p)
	}
	if p.Timestamp.Equal(s[n-1].Timestamp) {
		out := make(PriceSeries, n)
		copy(out, s)
		out[n-1] = p
		return out
	}
	i := sort.Search(n, func(i int) bool { return !s[i].Timestamp.Before(p.Timestamp) })
	out := make(PriceSeries, 0, n+1)
	out = append(out, s[:i]...)
	if i < n && s[i].Timestamp.Equal(p.Timestamp) {
		out = append(out, p)
		out = append(out, s[i+1:]...)
	} else {
		out = append(out, p)
		out = append(out, s[i:]...)
	}
	return out
}

// Closes extracts the close column.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Close
	}
	return out
}

// Volumes extracts the volume column.
func (s PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Volume
	}
	return out
}

// Tail returns the last n points (or the whole series when shorter).
func (s PriceSeries) Tail(n int) PriceSeries {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Quote is the normalized latest-quote record every fetcher produces,
// regardless of the upstream's own field names.
type Quote struct {
	Asset     AssetID   `json:"asset"`
	Name      string    `json:"name"`
	Rank      int       `json:"rank,omitempty"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change_24h"`
	High24h   float64   `json:"high_24h,omitempty"`
	Low24h    float64   `json:"low_24h,omitempty"`
	Volume    float64   `json:"volume,omitempty"`
	Stale     bool      `json:"stale,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// SourceHealth is the per-source freshness metadata carried by a snapshot.
type SourceHealth struct {
	LastSuccess         time.Time `json:"last_success"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Degraded            bool      `json:"degraded"`
	Stale               bool      `json:"stale"`
	AssetCount          int       `json:"asset_count"`
}

// MarketSnapshot is an immutable point-in-time aggregate of all tracked
// assets. The DataManager builds a fresh one per refresh cycle and swaps it
// atomically; readers must never mutate it.
type MarketSnapshot struct {
	Quotes      map[string]Quote        `json:"quotes"`
	Sources     map[Market]SourceHealth `json:"sources"`
	PublishedAt time.Time               `json:"published_at"`
}

// Lookup resolves an asset's latest quote from the snapshot.
func (s *MarketSnapshot) Lookup(id AssetID) (Quote, bool) {
	if s == nil || s.Quotes == nil {
		return Quote{}, false
	}
	q, ok := s.Quotes[id.String()]
	return q, ok
}

// ByMarket returns the snapshot's quotes for one market, rank-ascending.
func (s *MarketSnapshot) ByMarket(m Market) []Quote {
	if s == nil {
		return nil
	}
	out := make([]Quote, 0, len(s.Quotes))
	for _, q := range s.Quotes {
		if q.Asset.Market == m {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].Asset.Symbol < out[j].Asset.Symbol
	})
	return out
}

// Candle is one OHLCV bucket as persisted in the history store and consumed
// by predictor training.
type Candle struct {
	Bucket time.Time
	Market string
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
