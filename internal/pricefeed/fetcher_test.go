package pricefeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const tickerBody = `{
  "USD": {"15m": 50010.0, "last": 50000.0, "buy": 50000.0, "sell": 50000.0, "symbol": "$"},
  "EUR": {"15m": 45010.0, "last": 45000.5, "buy": 45000.5, "sell": 45000.5, "symbol": "€"},
  "RUB": {"15m": 4000100.0, "last": 4000000.0, "buy": 4000000.0, "sell": 4000000.0, "symbol": "RUB"}
}`

func tickerServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept=%q", r.Header.Get("Accept"))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := tickerServer(t, http.StatusOK, tickerBody)
	f := NewHTTPFetcher(srv.URL, 5000)

	table, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(table) != 3 {
		t.Fatalf("len(table)=%d, want 3", len(table))
	}
	if q := table["EUR"]; q.Symbol != "€" || q.Last != 45000.5 {
		t.Fatalf("EUR=%+v", q)
	}
	if q := table["RUB"]; q.Symbol != "" {
		t.Fatalf("RUB 符号应置空, got %q", q.Symbol)
	}

	latest, err := f.Latest(context.Background())
	if err != nil || len(latest) != 3 {
		t.Fatalf("Latest=%v,%v", latest, err)
	}
}

func TestHTTPFetcher_Unavailable(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"非200", http.StatusBadGateway, tickerBody},
		{"无效JSON", http.StatusOK, "<html>"},
		{"空价格表", http.StatusOK, "{}"},
		{"全部价格非正", http.StatusOK, `{"USD":{"last":0,"symbol":"$"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := tickerServer(t, tc.status, tc.body)
			_, err := NewHTTPFetcher(srv.URL, 5000).Fetch(context.Background())
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("err=%v, want ErrUnavailable", err)
			}
		})
	}
}

func TestHTTPFetcher_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(url, 1000).Fetch(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err=%v, want ErrUnavailable", err)
	}
}

func TestNormalize_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// 属性: 正价格条目原样保留（RUB 除外的符号不变）
	properties.Property("正价格条目保留价格与符号", prop.ForAll(
		func(code string, last float64, symbol string) bool {
			table := Normalize(TickerResponse{code: {Last: last, Symbol: symbol}})
			q, ok := table[code]
			if !ok || q.Last != last {
				return false
			}
			if code == "RUB" {
				return q.Symbol == ""
			}
			return q.Symbol == symbol
		},
		gen.OneConstOf("USD", "EUR", "JPY", "RUB", "GBP"),
		gen.Float64Range(0.01, 1e8),
		gen.AlphaString(),
	))

	// 属性: 非正价格条目丢弃
	properties.Property("非正价格条目丢弃", prop.ForAll(
		func(last float64) bool {
			table := Normalize(TickerResponse{"USD": {Last: last, Symbol: "$"}})
			return len(table) == 0
		},
		gen.Float64Range(-1e6, 0),
	))

	properties.TestingRun(t)
}

func TestNewSnapshot(t *testing.T) {
	table := Normalize(TickerResponse{
		"USD": {Last: 1, Symbol: "$"},
		"AUD": {Last: 2, Symbol: "$"},
	})
	snap := NewSnapshot(table, 42)
	if snap.Type != MessageTypePrices || snap.FetchedAtMs != 42 {
		t.Fatalf("snap=%+v", snap)
	}
	if len(snap.Currencies) != 2 || snap.Currencies[0] != "AUD" || snap.Currencies[1] != "USD" {
		t.Fatalf("Currencies=%v, want [AUD USD]", snap.Currencies)
	}
}
