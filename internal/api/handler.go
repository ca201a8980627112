package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fory-finance/p2p-desk/internal/store"
	"github.com/fory-finance/p2p-desk/pkg/model"
)

// SnapshotSource provides the current pricing snapshot.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context) (model.Snapshot, error)
}

// SessionCounter reports how many order conversations are in flight.
type SessionCounter interface {
	Active() int
}

// OrderReader reads cached order snapshots.
type OrderReader interface {
	GetJSON(ctx context.Context, key string, dest any) error
}

// DeskHandler serves the read-only ops endpoints for the desk.
type DeskHandler struct {
	logger   *zap.Logger
	quotes   SnapshotSource
	sessions SessionCounter
	orders   OrderReader
}

// NewDeskHandler creates a new DeskHandler.
func NewDeskHandler(logger *zap.Logger, quotes SnapshotSource, sessions SessionCounter, orders OrderReader) *DeskHandler {
	return &DeskHandler{
		logger:   logger,
		quotes:   quotes,
		sessions: sessions,
		orders:   orders,
	}
}

type quoteView struct {
	Symbol     string `json:"symbol"`
	BuyRate    string `json:"buyRate"`
	SellRate   string `json:"sellRate"`
	FeeBuyPct  string `json:"feeBuyPct"`
	FeeSellPct string `json:"feeSellPct"`
}

// QuotesHandler returns the tradable assets with their current rates and fees.
func (h *DeskHandler) QuotesHandler(c *fiber.Ctx) error {
	snap, err := h.quotes.FetchSnapshot(c.Context())
	if err != nil {
		h.logger.Error("api.quotes.failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}

	views := make([]quoteView, 0, len(snap))
	for _, sym := range snap.Symbols() {
		entry := snap[sym]
		views = append(views, quoteView{
			Symbol:     entry.Symbol,
			BuyRate:    entry.BuyRate.String(),
			SellRate:   entry.SellRate.String(),
			FeeBuyPct:  entry.FeeBuyPct.String(),
			FeeSellPct: entry.FeeSellPct.String(),
		})
	}

	return c.JSON(fiber.Map{"quotes": views})
}

// SessionsHandler reports the number of active order conversations.
func (h *DeskHandler) SessionsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"active": h.sessions.Active()})
}

// LastOrderHandler returns the user's most recent submitted order from the
// Redis snapshot cache. Snapshots expire, so a miss is a plain 404.
func (h *DeskHandler) LastOrderHandler(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("userId")
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid userId"})
	}

	var order model.OrderSummary
	if err := h.orders.GetJSON(c.Context(), store.LastOrderKey(int64(userID)), &order); err != nil {
		if store.IsMiss(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no recent order"})
		}
		h.logger.Error("api.last_order.failed", zap.Int("user_id", userID), zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(order)
}
