package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fory-finance/p2p-desk/pkg/model"
)

// Store defines the contract for the desk's pricing configuration and the
// order audit trail.
type Store interface {
	ListAssetConfigs(ctx context.Context) ([]model.AssetConfig, error)
	RecordOrder(ctx context.Context, order model.OrderSummary) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// HybridStore is Redis for transient JSON (latest-order snapshots, dedupe
// keys) and Postgres for the pricing table and the order audit log.
type HybridStore struct {
	redis        *redis.Client
	PG           *pgxpool.Pool
	pricingTable string
	orderTTL     time.Duration
	logger       *zap.Logger
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid creates a Redis-first, Postgres-backed store. pricingTable is the
// fully qualified fee/address table, e.g. "pricing.asset_config". orderTTL is
// the Redis lifetime of per-user latest-order snapshots.
func NewHybrid(redisAddr string, redisDB int, pgURL, pricingTable string, orderTTL time.Duration, pgPoolConfig PGPoolConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	return &HybridStore{redis: rdb, PG: pgPool, pricingTable: pricingTable, orderTTL: orderTTL, logger: logger}, nil
}

// ListAssetConfigs reads the desk's fee/address table. Rows with malformed
// fee values are skipped with a warning rather than failing the whole read.
func (s *HybridStore) ListAssetConfigs(ctx context.Context) ([]model.AssetConfig, error) {
	if s.PG == nil {
		return nil, fmt.Errorf("postgres unavailable")
	}
	q := fmt.Sprintf(`
		SELECT name, fee_fory_buy, fee_fory_sell, address
		FROM %s
		ORDER BY name;
	`, s.pricingTable)

	rows, err := s.PG.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []model.AssetConfig
	for rows.Next() {
		var (
			symbol  string
			feeBuy  float64
			feeSell float64
			address string
		)
		if err := rows.Scan(&symbol, &feeBuy, &feeSell, &address); err != nil {
			s.logger.Warn("store.pg.asset_config_scan_failed", zap.Error(err))
			continue
		}
		configs = append(configs, model.AssetConfig{
			Symbol:     symbol,
			FeeBuyPct:  decimal.NewFromFloat(feeBuy),
			FeeSellPct: decimal.NewFromFloat(feeSell),
			Address:    address,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return configs, nil
}

// LastOrderKey is the Redis key holding a user's most recent submitted order.
func LastOrderKey(userID int64) string {
	return fmt.Sprintf("order:last:%d", userID)
}

// RecordOrder inserts an immutable row into the order audit log and caches
// the order as the user's latest snapshot in Redis.
func (s *HybridStore) RecordOrder(ctx context.Context, order model.OrderSummary) error {
	if err := s.SetJSON(ctx, LastOrderKey(order.UserID), order, s.orderTTL); err != nil {
		s.logger.Warn("store.redis.cache_order_failed",
			zap.Int64("user_id", order.UserID),
			zap.Error(err))
	}

	if s.PG == nil {
		return nil
	}
	_, err := s.PG.Exec(ctx, `
		INSERT INTO desk.order_intake (
			user_id, user_name, operation, symbol,
			quantity, market_rate, fee_pct,
			currency, fx_rate, total_amount, fee_amount,
			settlement_address, submitted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, order.UserID, order.UserName, string(order.Operation), order.Symbol,
		order.Quantity.String(), order.MarketRate.String(), order.FeePct.String(),
		order.Currency, order.FXRate.String(), order.TotalAmount.String(), order.FeeAmount.String(),
		order.Address, order.SubmittedAt)
	if err != nil {
		s.logger.Error("store.pg.insert_order_failed", zap.Error(err))
	}
	return err
}

func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// IsMiss reports whether err from GetJSON is a plain cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
