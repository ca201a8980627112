package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/fory-finance/p2p-desk/internal/api"
	"github.com/fory-finance/p2p-desk/internal/flow"
	"github.com/fory-finance/p2p-desk/internal/market"
	"github.com/fory-finance/p2p-desk/internal/notify"
	"github.com/fory-finance/p2p-desk/internal/publisher"
	"github.com/fory-finance/p2p-desk/internal/quotes"
	"github.com/fory-finance/p2p-desk/internal/rate"
	internalsecrets "github.com/fory-finance/p2p-desk/internal/secrets"
	"github.com/fory-finance/p2p-desk/internal/session"
	"github.com/fory-finance/p2p-desk/internal/store"
	"github.com/fory-finance/p2p-desk/internal/telegram"
	"github.com/fory-finance/p2p-desk/pkg/config"
	"github.com/fory-finance/p2p-desk/pkg/logger"
	"github.com/fory-finance/p2p-desk/pkg/secrets"
	"github.com/fory-finance/p2p-desk/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	logg := logger.S()
	logg.Info("starting [p2p-desk]...")
	logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))

	// --- Bot token (env var, or AWS Secrets Manager when a secret is named) ---
	stopCleaner := make(chan struct{})
	token := cfg.BotToken
	if token == "" && cfg.BotTokenSecret != "" {
		awsProvider, err := secrets.NewAWSProvider(cfg.AWSRegion)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}

		tokenCache := secrets.NewCache[string](cfg.CacheTTL)
		go tokenCache.StartCleaner(cfg.CleanupFreq, stopCleaner)

		resolver := internalsecrets.NewResolver(logg.Desugar(), awsProvider, tokenCache)
		token, err = resolver.BotToken(ctx, cfg.BotTokenSecret)
		if err != nil {
			logg.Fatalw("failed to resolve bot token", "secret", cfg.BotTokenSecret, "error", err)
		}
	}
	if token == "" {
		logg.Fatal("no bot token configured (TELEGRAM_BOT_TOKEN or TELEGRAM_BOT_TOKEN_SECRET)")
	}
	logg.Infow("bot token loaded", "token", utils.MaskToken(token))

	// --- Connect to NATS ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logg.Fatalw("failed to connect to NATS", "error", err)
	}

	// --- Publisher ---
	pub, err := publisher.New(nc, cfg.OrderSubject, cfg.ServiceName)
	if err != nil {
		logg.Fatalw("failed to init publisher", "error", err)
	}

	// --- Rate limiter (shared across OKX and Telegram clients) ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: 10,
		Burst:             20,
		Cooldown:          1 * time.Second,
	})

	// --- Store (Redis + Postgres hybrid) ---
	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisDB, cfg.DatabaseURL, cfg.PricingTable, cfg.SnapshotCacheTTL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- Market data client (REST, with optional websocket warm cache) ---
	mkt := market.NewClient(logg.Desugar(), rateMgr, cfg.OKXBaseURL, cfg.TickerCacheTTL)

	var stream *market.Stream
	if cfg.MarketStream {
		configs, err := st.ListAssetConfigs(ctx)
		if err != nil {
			logg.Warnw("failed to list assets for the market stream", "error", err)
		} else {
			instIDs := make([]string, 0, len(configs))
			for _, ac := range configs {
				if ac.Symbol == cfg.BaseAsset {
					continue
				}
				instIDs = append(instIDs, market.InstID(ac.Symbol, cfg.BaseAsset))
			}
			if len(instIDs) > 0 {
				stream = market.NewStream(logg.Desugar(), cfg.OKXWSURL, instIDs, 5*time.Second)
				stream.Start()
				mkt.SetStream(stream)
				logg.Infow("market stream enabled", "instruments", instIDs)
			}
		}
	}

	// --- Quote snapshots ---
	quoteSvc := quotes.NewService(logg.Desugar(), st, mkt, cfg.BaseAsset)

	// --- Telegram transport ---
	tg := telegram.NewClient(logg.Desugar(), rateMgr, cfg.BotAPIBaseURL, token, cfg.UpdateTimeout)
	me, err := tg.GetMe(ctx)
	if err != nil {
		logg.Fatalw("failed to reach the Telegram Bot API", "error", err)
	}
	logg.Infow("bot identity confirmed", "username", me.Username, "id", me.ID)

	if cfg.OperatorChatID == 0 {
		logg.Warn("OPERATOR_CHAT_ID not configured; order confirmation will fail closed")
	}

	// --- Conversation engine ---
	sessions := session.NewManager(logg.Desugar())
	notifier := notify.NewOperatorNotifier(logg.Desugar(), tg, cfg.OperatorChatID, cfg.BaseFiat, cfg.PeggedFiat)

	engine := flow.NewEngine(
		logg.Desugar(),
		flow.Config{
			BaseFiat:           cfg.BaseFiat,
			PeggedFiat:         cfg.PeggedFiat,
			FiatBuyRate:        cfg.FiatBuyRate,
			FiatSellRate:       cfg.FiatSellRate,
			OperatorConfigured: cfg.OperatorChatID != 0,
			BotUsername:        me.Username,
		},
		sessions,
		quoteSvc,
		notifier,
		pub,
		st,
	)

	// --- Update poller ---
	poller := telegram.NewPoller(logg.Desugar(), tg, engine, cfg.UpdateTimeout, me.Username)
	go poller.Run(ctx)

	// --- Fiber HTTP server (health, metrics, ops) ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	deskHandler := api.NewDeskHandler(logg.Desugar(), quoteSvc, sessions, st)
	api.RegisterRoutes(app, nc, st, deskHandler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[p2p-desk] running",
		"nats", cfg.NATSURL,
		"env", cfg.Env,
		"base_asset", cfg.BaseAsset,
		"bot", me.Username)

	<-ctx.Done()
	logg.Info("shutting down [p2p-desk]...")

	close(stopCleaner)
	if stream != nil {
		stream.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logg.Warnw("nats.drain_failed", "error", err)
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}
