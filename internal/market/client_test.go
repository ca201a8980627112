package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(serverURL string) *Client {
	return NewClient(zap.NewNop(), nil, serverURL, 5*time.Second)
}

func TestInstID(t *testing.T) {
	assert.Equal(t, "BTC-USDT", InstID("BTC", "USDT"))
	assert.Equal(t, "TON-USDT", InstID("TON", "USDT"))
}

func TestFetchTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/market/ticker", r.URL.Path)
		assert.Equal(t, "TON-USDT", r.URL.Query().Get("instId"))
		fmt.Fprint(w, `{"code":"0","msg":"","data":[{"instId":"TON-USDT","last":"1.01","askPx":"1.05","bidPx":"0.98","ts":"1700000000000"}]}`)
	}))
	defer srv.Close()

	tk, err := newTestClient(srv.URL).FetchTicker(context.Background(), "TON-USDT")
	require.NoError(t, err)
	assert.Equal(t, "TON-USDT", tk.InstID)
	assert.True(t, tk.Ask.Equal(decimal.RequireFromString("1.05")))
	assert.True(t, tk.Bid.Equal(decimal.RequireFromString("0.98")))
}

func TestFetchTickerErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"51001","msg":"Instrument ID does not exist","data":[]}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchTicker(context.Background(), "NOPE-USDT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "51001")
}

func TestFetchTickerEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"0","msg":"","data":[]}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchTicker(context.Background(), "TON-USDT")
	assert.Error(t, err)
}

func TestFetchTickerRejectsBadRates(t *testing.T) {
	cases := map[string]string{
		"non-positive ask": `{"instId":"X-USDT","askPx":"0","bidPx":"1"}`,
		"non-positive bid": `{"instId":"X-USDT","askPx":"1","bidPx":"-0.5"}`,
		"unparsable ask":   `{"instId":"X-USDT","askPx":"","bidPx":"1"}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"code":"0","msg":"","data":[%s]}`, data)
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).FetchTicker(context.Background(), "X-USDT")
			assert.Error(t, err)
		})
	}
}

func TestFetchTickerClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":"50011","msg":"rate limited"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchTicker(context.Background(), "TON-USDT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "okx returned 400")
}

func TestFetchTickerPrefersFreshStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("REST must not be hit when the stream has a fresh ticker")
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	stream := NewStream(zap.NewNop(), "ws://unused", nil, time.Second)
	stream.handleMessage([]byte(`{"arg":{"channel":"tickers","instId":"TON-USDT"},"data":[{"instId":"TON-USDT","askPx":"1.06","bidPx":"0.99"}]}`))
	client.SetStream(stream)

	tk, err := client.FetchTicker(context.Background(), "TON-USDT")
	require.NoError(t, err)
	assert.True(t, tk.Ask.Equal(decimal.RequireFromString("1.06")))
}

func TestStreamTickerExpiry(t *testing.T) {
	stream := NewStream(zap.NewNop(), "ws://unused", nil, time.Second)
	stream.handleMessage([]byte(`{"data":[{"instId":"TON-USDT","askPx":"1.06","bidPx":"0.99"}]}`))

	_, ok := stream.Ticker("TON-USDT", time.Minute)
	assert.True(t, ok)

	_, ok = stream.Ticker("TON-USDT", -time.Second)
	assert.False(t, ok, "stale entries are skipped")

	_, ok = stream.Ticker("OTHER-USDT", time.Minute)
	assert.False(t, ok)
}

func TestStreamIgnoresAcksAndBadTickers(t *testing.T) {
	stream := NewStream(zap.NewNop(), "ws://unused", nil, time.Second)

	stream.handleMessage([]byte(`{"event":"subscribe","arg":{"channel":"tickers","instId":"TON-USDT"}}`))
	stream.handleMessage([]byte(`not json`))
	stream.handleMessage([]byte(`{"data":[{"instId":"TON-USDT","askPx":"0","bidPx":"1"}]}`))

	_, ok := stream.Ticker("TON-USDT", time.Minute)
	assert.False(t, ok)
}
