package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fory-finance/p2p-desk/internal/market"
	"github.com/fory-finance/p2p-desk/internal/metrics"
	"github.com/fory-finance/p2p-desk/pkg/model"
)

// ErrUnavailable signals that no usable quotes could be assembled: the pricing
// store was unreadable or empty, or every market lookup failed. Sessions
// terminate on it rather than proceeding with partial garbage.
var ErrUnavailable = errors.New("quotes unavailable")

var hundred = decimal.NewFromInt(100)

// ConfigSource supplies the desk's per-asset fee/address configuration.
type ConfigSource interface {
	ListAssetConfigs(ctx context.Context) ([]model.AssetConfig, error)
}

// MarketSource supplies live top-of-book rates.
type MarketSource interface {
	FetchTicker(ctx context.Context, instID string) (*market.Ticker, error)
}

// Service assembles per-session quote snapshots: stored fees and addresses
// blended with live market rates, quoted against the base asset.
type Service struct {
	logger    *zap.Logger
	configs   ConfigSource
	market    MarketSource
	baseAsset string
}

// NewService constructs the quote provider.
func NewService(logger *zap.Logger, configs ConfigSource, mkt MarketSource, baseAsset string) *Service {
	return &Service{
		logger:    logger,
		configs:   configs,
		market:    mkt,
		baseAsset: baseAsset,
	}
}

// FetchSnapshot builds a fresh quote snapshot.
//
// The base asset is quoted 1:1 by definition. For every other configured
// asset a market lookup is attempted; a failed lookup drops that symbol only.
// Entries are included when both rates are strictly positive and the
// configured fees are within [0,100). An unreadable or empty store, or a
// snapshot with no entries at all, yields ErrUnavailable.
func (s *Service) FetchSnapshot(ctx context.Context) (model.Snapshot, error) {
	start := time.Now()

	configs, err := s.configs.ListAssetConfigs(ctx)
	if err != nil {
		s.logger.Error("quotes.config_read_failed", zap.Error(err))
		metrics.ObserveDuration(metrics.QuoteFetchDuration, start, "unavailable")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(configs) == 0 {
		s.logger.Warn("quotes.config_empty")
		metrics.ObserveDuration(metrics.QuoteFetchDuration, start, "unavailable")
		return nil, ErrUnavailable
	}

	snapshot := make(model.Snapshot, len(configs))
	for _, cfg := range configs {
		if !validFeePct(cfg.FeeBuyPct) || !validFeePct(cfg.FeeSellPct) {
			// A fee at or above 100% would zero out or invert a sell payout;
			// treat it as operator misconfiguration and keep the asset off the menu.
			s.logger.Warn("quotes.fee_out_of_range",
				zap.String("symbol", cfg.Symbol),
				zap.String("fee_buy_pct", cfg.FeeBuyPct.String()),
				zap.String("fee_sell_pct", cfg.FeeSellPct.String()))
			continue
		}

		entry := model.QuoteEntry{
			Symbol:            cfg.Symbol,
			FeeBuyPct:         cfg.FeeBuyPct,
			FeeSellPct:        cfg.FeeSellPct,
			SettlementAddress: cfg.Address,
		}

		if cfg.Symbol == s.baseAsset {
			entry.BuyRate = decimal.NewFromInt(1)
			entry.SellRate = decimal.NewFromInt(1)
		} else {
			tk, err := s.market.FetchTicker(ctx, market.InstID(cfg.Symbol, s.baseAsset))
			if err != nil {
				s.logger.Warn("quotes.market_lookup_failed",
					zap.String("symbol", cfg.Symbol),
					zap.Error(err))
				continue
			}
			entry.BuyRate = tk.Ask
			entry.SellRate = tk.Bid
		}

		if !entry.BuyRate.IsPositive() || !entry.SellRate.IsPositive() {
			continue
		}
		snapshot[cfg.Symbol] = entry
	}

	if len(snapshot) == 0 {
		s.logger.Warn("quotes.snapshot_empty", zap.Int("configured", len(configs)))
		metrics.ObserveDuration(metrics.QuoteFetchDuration, start, "unavailable")
		return nil, ErrUnavailable
	}

	s.logger.Info("quotes.snapshot_ready",
		zap.Int("assets", len(snapshot)),
		zap.Int("configured", len(configs)))
	metrics.ObserveDuration(metrics.QuoteFetchDuration, start, "ok")

	return snapshot, nil
}

func validFeePct(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThan(hundred)
}
