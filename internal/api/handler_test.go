package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fory-finance/p2p-desk/internal/store"
	"github.com/fory-finance/p2p-desk/pkg/model"
)

type stubQuotes struct {
	snap model.Snapshot
	err  error
}

func (s *stubQuotes) FetchSnapshot(ctx context.Context) (model.Snapshot, error) {
	return s.snap, s.err
}

type stubSessions struct{ active int }

func (s *stubSessions) Active() int { return s.active }

// stubStore implements the full store.Store contract for route wiring.
type stubStore struct {
	orders    map[string]any
	healthErr error
}

func (s *stubStore) ListAssetConfigs(context.Context) ([]model.AssetConfig, error) { return nil, nil }
func (s *stubStore) RecordOrder(context.Context, model.OrderSummary) error        { return nil }
func (s *stubStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s.orders == nil {
		s.orders = make(map[string]any)
	}
	s.orders[key] = value
	return nil
}
func (s *stubStore) GetJSON(ctx context.Context, key string, dest any) error {
	v, ok := s.orders[key]
	if !ok {
		return redis.Nil
	}
	data, _ := json.Marshal(v)
	return json.Unmarshal(data, dest)
}
func (s *stubStore) HealthCheck(context.Context) error { return s.healthErr }
func (s *stubStore) Close() error                      { return nil }

func newTestApp(quotes *stubQuotes, sessions *stubSessions, st *stubStore) *fiber.App {
	app := fiber.New()
	handler := NewDeskHandler(zap.NewNop(), quotes, sessions, st)
	RegisterRoutes(app, nil, st, handler)
	return app
}

func TestQuotesHandler(t *testing.T) {
	snap := model.Snapshot{
		"TON": {
			Symbol:     "TON",
			BuyRate:    decimal.RequireFromString("1.05"),
			SellRate:   decimal.RequireFromString("0.98"),
			FeeBuyPct:  decimal.NewFromInt(1),
			FeeSellPct: decimal.NewFromInt(2),
		},
	}
	app := newTestApp(&stubQuotes{snap: snap}, &stubSessions{}, &stubStore{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/quotes", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var out struct {
		Quotes []quoteView `json:"quotes"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Quotes, 1)
	assert.Equal(t, "TON", out.Quotes[0].Symbol)
	assert.Equal(t, "1.05", out.Quotes[0].BuyRate)
	assert.Equal(t, "0.98", out.Quotes[0].SellRate)
}

func TestQuotesHandlerUnavailable(t *testing.T) {
	app := newTestApp(&stubQuotes{err: errors.New("quotes unavailable")}, &stubSessions{}, &stubStore{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/quotes", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestSessionsHandler(t *testing.T) {
	app := newTestApp(&stubQuotes{}, &stubSessions{active: 3}, &stubStore{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/sessions", nil))
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	var out map[string]int
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 3, out["active"])
}

func TestLastOrderHandler(t *testing.T) {
	st := &stubStore{}
	_ = st.SetJSON(context.Background(), store.LastOrderKey(7001), model.OrderSummary{
		UserID: 7001, Symbol: "TON", Currency: "USD",
	}, time.Hour)

	app := newTestApp(&stubQuotes{}, &stubSessions{}, st)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/orders/last/7001", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var order model.OrderSummary
	require.NoError(t, json.Unmarshal(body, &order))
	assert.Equal(t, "TON", order.Symbol)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/orders/last/999", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/orders/last/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHealthDegradedWithoutNATS(t *testing.T) {
	app := newTestApp(&stubQuotes{}, &stubSessions{}, &stubStore{})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var out struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "degraded", out.Status)
	assert.Equal(t, "disconnected", out.Checks["nats"])
	assert.Equal(t, "ok", out.Checks["store"])
}
