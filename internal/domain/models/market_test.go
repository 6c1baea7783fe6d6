package models

import (
	"testing"
	"time"
)

func point(day int, close float64) PricePoint {
	return PricePoint{
		Timestamp: time.Date(2024, 10, day, 0, 0, 0, 0, time.UTC),
		Close:     close,
	}
}

func TestAppendKeepsOrder(t *testing.T) {
	var s PriceSeries
	s = s.Append(point(1, 10))
	s = s.Append(point(3, 30))
	s = s.Append(point(2, 20))

	if len(s) != 3 {
		t.Fatalf("len = %d, want 3", len(s))
	}
	for i := 1; i < len(s); i++ {
		if !s[i-1].Timestamp.Before(s[i].Timestamp) {
			t.Fatalf("series out of order at %d", i)
		}
	}
	if s[1].Close != 20 {
		t.Fatalf("middle close = %v, want 20", s[1].Close)
	}
}

func TestAppendReplacesDuplicateTimestamp(t *testing.T) {
	var s PriceSeries
	s = s.Append(point(1, 10))
	s = s.Append(point(1, 11))

	if len(s) != 1 {
		t.Fatalf("len = %d, want 1 after replacement", len(s))
	}
	if s[0].Close != 11 {
		t.Fatalf("close = %v, want the newer 11", s[0].Close)
	}
}

func TestTail(t *testing.T) {
	s := PriceSeries{point(1, 1), point(2, 2), point(3, 3)}
	if got := s.Tail(2); len(got) != 2 || got[0].Close != 2 {
		t.Fatalf("Tail(2) = %+v", got)
	}
	if got := s.Tail(10); len(got) != 3 {
		t.Fatalf("Tail beyond length = %d points", len(got))
	}
}

func TestParseMarket(t *testing.T) {
	if m, ok := ParseMarket("crypto"); !ok || m != MarketCrypto {
		t.Fatalf("crypto parsed to %q", m)
	}
	if m, ok := ParseMarket("stock"); !ok || m != MarketEquity {
		t.Fatalf("stock alias parsed to %q", m)
	}
	if _, ok := ParseMarket("bonds"); ok {
		t.Fatalf("bonds should not parse")
	}
}

func TestSnapshotByMarketRanks(t *testing.T) {
	snap := &MarketSnapshot{Quotes: map[string]Quote{
		"crypto:ethereum": {Asset: AssetID{Market: MarketCrypto, Symbol: "ethereum"}, Rank: 2},
		"crypto:bitcoin":  {Asset: AssetID{Market: MarketCrypto, Symbol: "bitcoin"}, Rank: 1},
		"fund:110022":     {Asset: AssetID{Market: MarketFund, Symbol: "110022"}, Rank: 1},
	}}

	got := snap.ByMarket(MarketCrypto)
	if len(got) != 2 {
		t.Fatalf("crypto quotes = %d, want 2", len(got))
	}
	if got[0].Asset.Symbol != "bitcoin" || got[1].Asset.Symbol != "ethereum" {
		t.Fatalf("rank order broken: %+v", got)
	}

	var nilSnap *MarketSnapshot
	if q := nilSnap.ByMarket(MarketCrypto); q != nil {
		t.Fatalf("nil snapshot returned quotes")
	}
	if _, ok := nilSnap.Lookup(AssetID{Market: MarketCrypto, Symbol: "bitcoin"}); ok {
		t.Fatalf("nil snapshot lookup succeeded")
	}
}
