package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TradePulse/internal/service/ratelimit"
	phttp "TradePulse/pkg/http"
	"TradePulse/pkg/logger"
)

type recordingMetrics struct {
	fetchOK     int
	fetchFail   int
	rateLimited int
}

func (m *recordingMetrics) RecordFetch(source string, ok bool) {
	if ok {
		m.fetchOK++
	} else {
		m.fetchFail++
	}
}
func (m *recordingMetrics) RecordRateLimited(string)        { m.rateLimited++ }
func (m *recordingMetrics) RecordCache(bool)                {}
func (m *recordingMetrics) RecordLastPrice(string, float64) {}
func (m *recordingMetrics) RecordRefreshDuration(float64)   {}
func (m *recordingMetrics) RecordError(string)              {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Quota{Requests: 1000, Window: time.Minute})
}

func TestCryptoFetchQuotesPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/markets" {
			http.NotFound(w, r)
			return
		}
		page := r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		switch page {
		case "1":
			fmt.Fprint(w, `[
				{"id":"bitcoin","name":"Bitcoin","current_price":60000,"market_cap_rank":1,"price_change_percentage_24h":2.5,"total_volume":1e9},
				{"id":"ethereum","name":"Ethereum","current_price":3000,"market_cap_rank":2,"price_change_percentage_24h":-1.2,"total_volume":5e8}
			]`)
		case "2":
			fmt.Fprint(w, `[
				{"id":"solana","name":"Solana","current_price":150,"market_cap_rank":3,"price_change_percentage_24h":4.1,"total_volume":2e8}
			]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	}))
	defer srv.Close()

	metrics := &recordingMetrics{}
	f := NewCryptoFetcher(CryptoConfig{BaseURL: srv.URL, PerPage: 2, TopAssets: 3},
		phttp.NewClient(), testLimiter(), testLogger(t), metrics)

	quotes, err := f.FetchQuotes(context.Background())
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}
	if len(quotes) != 3 {
		t.Fatalf("quotes = %d, want 3", len(quotes))
	}
	if quotes[0].Asset.Symbol != "bitcoin" || quotes[0].Rank != 1 {
		t.Fatalf("first quote = %+v", quotes[0])
	}
	if quotes[2].Asset.Symbol != "solana" {
		t.Fatalf("pagination lost the second page: %+v", quotes[2])
	}
	if metrics.fetchOK != 1 {
		t.Fatalf("fetch ok recorded %d times, want 1", metrics.fetchOK)
	}
}

func TestCryptoFetchQuotesPartialPageTolerated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"id":"bitcoin","name":"Bitcoin","current_price":60000,"market_cap_rank":1},
			{"id":"ethereum","name":"Ethereum","current_price":3000,"market_cap_rank":2}
		]`)
	}))
	defer srv.Close()

	f := NewCryptoFetcher(CryptoConfig{BaseURL: srv.URL, PerPage: 2, TopAssets: 5},
		phttp.NewClient(), testLimiter(), testLogger(t), &recordingMetrics{})

	quotes, err := f.FetchQuotes(context.Background())
	if err != nil {
		t.Fatalf("partial result should not error: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("quotes = %d, want the 2 from page one", len(quotes))
	}
}

func TestCryptoFetchQuotesFirstPageFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewCryptoFetcher(CryptoConfig{BaseURL: srv.URL},
		phttp.NewClient(), testLimiter(), testLogger(t), &recordingMetrics{})

	if _, err := f.FetchQuotes(context.Background()); err == nil {
		t.Fatalf("expected error when the first page fails")
	}
}

func TestCryptoFetchHistoryMergesVolumes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/bitcoin/market_chart" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"prices":[[1700000000000,50000],[1700086400000,51000]],
			"total_volumes":[[1700000000000,1e9],[1700086400000,2e9]]
		}`)
	}))
	defer srv.Close()

	f := NewCryptoFetcher(CryptoConfig{BaseURL: srv.URL},
		phttp.NewClient(), testLimiter(), testLogger(t), &recordingMetrics{})

	series, err := f.FetchHistory(context.Background(), "bitcoin", 30)
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("series = %d points, want 2", len(series))
	}
	if series[0].Close != 50000 || series[0].Volume != 1e9 {
		t.Fatalf("first point = %+v", series[0])
	}
	if !series[0].Timestamp.Before(series[1].Timestamp) {
		t.Fatalf("series not ascending")
	}
}

func TestCryptoRateLimitRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	lim := ratelimit.New(ratelimit.Quota{Requests: 1, Window: 20 * time.Millisecond})
	metrics := &recordingMetrics{}
	f := NewCryptoFetcher(CryptoConfig{BaseURL: srv.URL},
		phttp.NewClient(), lim, testLogger(t), metrics)

	ctx := context.Background()
	if _, err := f.FetchQuotes(ctx); err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}
	if _, err := f.FetchQuotes(ctx); err != nil {
		t.Fatalf("second FetchQuotes: %v", err)
	}
	if metrics.rateLimited == 0 {
		t.Fatalf("rate-limit wait not recorded")
	}
}

func TestEquityFetchQuotesBandFilterAndRank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/qt/clist/get" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"total":4,"diff":[
			{"f2":12.5,"f3":9.9,"f5":100000,"f12":"000001","f14":"PAB","f15":13.0,"f16":11.8},
			{"f2":500.0,"f3":5.0,"f5":50000,"f12":"600519","f14":"Moutai","f15":510.0,"f16":495.0},
			{"f2":"-","f3":"-","f5":"-","f12":"000002","f14":"Suspended","f15":"-","f16":"-"},
			{"f2":8.2,"f3":3.3,"f5":200000,"f12":"600000","f14":"SPDB","f15":8.5,"f16":8.0}
		]}}`)
	}))
	defer srv.Close()

	f := NewEquityFetcher(EquityConfig{BaseURL: srv.URL, PriceMin: 1, PriceMax: 300, TopAssets: 10},
		phttp.NewClient(), testLimiter(), testLogger(t), &recordingMetrics{})

	quotes, err := f.FetchQuotes(context.Background())
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}
	// 600519 is over the band, the suspended row parses to price 0
	if len(quotes) != 2 {
		t.Fatalf("quotes = %d, want 2 inside the band", len(quotes))
	}
	if quotes[0].Asset.Symbol != "000001" || quotes[0].Rank != 1 {
		t.Fatalf("top gainer = %+v, want 000001 ranked 1", quotes[0])
	}
	if quotes[1].Asset.Symbol != "600000" || quotes[1].Rank != 2 {
		t.Fatalf("second = %+v", quotes[1])
	}
}

func TestEquityFetchHistoryParsesKlines(t *testing.T) {
	var gotSecID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/qt/stock/kline/get" {
			http.NotFound(w, r)
			return
		}
		gotSecID = r.URL.Query().Get("secid")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"klines":[
			"2024-10-09,10.0,10.5,10.8,9.9,123456",
			"2024-10-10,10.5,10.2,10.6,10.1,98765",
			"garbage-line"
		]}}`)
	}))
	defer srv.Close()

	f := NewEquityFetcher(EquityConfig{BaseURL: srv.URL},
		phttp.NewClient(), testLimiter(), testLogger(t), &recordingMetrics{})

	series, err := f.FetchHistory(context.Background(), "600519", 30)
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if gotSecID != "1.600519" {
		t.Fatalf("secid = %q, want 1.600519 for a Shanghai code", gotSecID)
	}
	if len(series) != 2 {
		t.Fatalf("series = %d points, want 2 (bad line skipped)", len(series))
	}
	p := series[0]
	if p.Open != 10.0 || p.Close != 10.5 || p.High != 10.8 || p.Low != 9.9 || p.Volume != 123456 {
		t.Fatalf("first bar = %+v", p)
	}
}

func TestSecID(t *testing.T) {
	if got := secID("600519"); got != "1.600519" {
		t.Fatalf("secID(600519) = %q", got)
	}
	if got := secID("000001"); got != "0.000001" {
		t.Fatalf("secID(000001) = %q", got)
	}
}

func TestFundFetchQuotesSkipsBadCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/js/110022.js":
			fmt.Fprint(w, `jsonpgz({"fundcode":"110022","name":"E Fund Consumer","jzrq":"2024-10-09","dwjz":"3.1","gsz":"3.15","gszzl":"1.61","gztime":"2024-10-10 14:30"});`)
		case "/js/161725.js":
			http.Error(w, "not found", http.StatusNotFound)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFundFetcher(FundConfig{BaseURL: srv.URL, Codes: []string{"110022", "161725"}},
		phttp.NewClient(), testLimiter(), testLogger(t), &recordingMetrics{})

	quotes, err := f.FetchQuotes(context.Background())
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}
	if len(quotes) != 1 {
		t.Fatalf("quotes = %d, want 1 (bad code skipped)", len(quotes))
	}
	q := quotes[0]
	if q.Asset.Symbol != "110022" || q.Price != 3.15 || q.Change24h != 1.61 {
		t.Fatalf("quote = %+v", q)
	}
}

func TestFundFetchQuotesAllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	metrics := &recordingMetrics{}
	f := NewFundFetcher(FundConfig{BaseURL: srv.URL, Codes: []string{"110022", "161725"}},
		phttp.NewClient(), testLimiter(), testLogger(t), metrics)

	if _, err := f.FetchQuotes(context.Background()); err == nil {
		t.Fatalf("expected error when every code fails")
	}
	if metrics.fetchFail != 1 {
		t.Fatalf("fetch failure recorded %d times, want 1", metrics.fetchFail)
	}
}

func TestFundFetchHistoryUnsupported(t *testing.T) {
	f := NewFundFetcher(FundConfig{}, phttp.NewClient(), testLimiter(), testLogger(t), &recordingMetrics{})
	if _, err := f.FetchHistory(context.Background(), "110022", 30); err != ErrHistoryUnsupported {
		t.Fatalf("err = %v, want ErrHistoryUnsupported", err)
	}
}

func TestParseJSONP(t *testing.T) {
	est, err := parseJSONP([]byte(`jsonpgz({"fundcode":"110022","name":"Test","gsz":"1.23"});`))
	if err != nil {
		t.Fatalf("parseJSONP: %v", err)
	}
	if est.Code != "110022" || est.Estimate != "1.23" {
		t.Fatalf("estimate = %+v", est)
	}

	if _, err := parseJSONP([]byte(`not jsonp at all`)); err == nil {
		t.Fatalf("expected error on malformed payload")
	}
	if _, err := parseJSONP([]byte(`jsonpgz({});`)); err == nil {
		t.Fatalf("expected error on empty estimate")
	}
}
