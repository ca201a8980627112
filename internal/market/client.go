package market

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fory-finance/p2p-desk/internal/httpclient"
	"github.com/fory-finance/p2p-desk/internal/rate"
)

// Client fetches spot market rates from the OKX v5 public REST API.
// When a Stream is attached, fresh streamed tickers short-circuit the
// REST lookup.
type Client struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	baseURL string
	stream  *Stream
	maxAge  time.Duration
}

// NewClient constructs an OKX market data client.
func NewClient(logger *zap.Logger, rateMgr *rate.Manager, baseURL string, tickerMaxAge time.Duration) *Client {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	exec := httpclient.New(logger, rateMgr, httpClient, 2, "okx", func(status int, body []byte) error {
		return fmt.Errorf("okx returned %d: %s", status, string(body))
	})
	return &Client{
		logger:  logger,
		exec:    exec,
		baseURL: baseURL,
		maxAge:  tickerMaxAge,
	}
}

// SetStream attaches a websocket ticker stream used as a warm cache.
func (c *Client) SetStream(s *Stream) {
	c.stream = s
}

// InstID builds the OKX instrument ID for an asset quoted in the base asset,
// e.g. ("BTC", "USDT") -> "BTC-USDT".
func InstID(symbol, baseAsset string) string {
	return symbol + "-" + baseAsset
}

// FetchTicker returns the current top-of-book for instID.
// Non-positive ask or bid is reported as an error so callers can drop the symbol.
func (c *Client) FetchTicker(ctx context.Context, instID string) (*Ticker, error) {
	if c.stream != nil {
		if tk, ok := c.stream.Ticker(instID, c.maxAge); ok {
			return tk, nil
		}
	}

	u := fmt.Sprintf("%s/api/v5/market/ticker?instId=%s", c.baseURL, url.QueryEscape(instID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	var resp okxTickerResponse
	if err := c.exec.DoJSON(ctx, req, "okx", &resp); err != nil {
		return nil, err
	}

	if resp.Code != "0" || len(resp.Data) == 0 {
		c.logger.Warn("okx.ticker_rejected",
			zap.String("inst_id", instID),
			zap.String("code", resp.Code),
			zap.String("msg", resp.Msg))
		return nil, fmt.Errorf("okx ticker for %s: code=%s msg=%s", instID, resp.Code, resp.Msg)
	}

	return normalizeTicker(instID, resp.Data[0])
}

func normalizeTicker(instID string, raw okxTicker) (*Ticker, error) {
	ask, err := decimal.NewFromString(raw.AskPx)
	if err != nil {
		return nil, fmt.Errorf("okx ticker for %s: bad askPx %q: %w", instID, raw.AskPx, err)
	}
	bid, err := decimal.NewFromString(raw.BidPx)
	if err != nil {
		return nil, fmt.Errorf("okx ticker for %s: bad bidPx %q: %w", instID, raw.BidPx, err)
	}
	if !ask.IsPositive() || !bid.IsPositive() {
		return nil, fmt.Errorf("okx ticker for %s: non-positive rates ask=%s bid=%s", instID, ask, bid)
	}
	return &Ticker{InstID: instID, Ask: ask, Bid: bid}, nil
}
