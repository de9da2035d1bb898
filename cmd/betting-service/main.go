package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/betting-ledger/internal/betting-service/auth"
	bhttp "github.com/radieske/betting-ledger/internal/betting-service/http"
	"github.com/radieske/betting-ledger/internal/betting-service/ledger"
	kpub "github.com/radieske/betting-ledger/internal/betting-service/producer"
	"github.com/radieske/betting-ledger/internal/betting-service/repo"
	"github.com/radieske/betting-ledger/internal/betting-service/wager"
	"github.com/radieske/betting-ledger/internal/shared/cache"
	"github.com/radieske/betting-ledger/internal/shared/config"
	"github.com/radieske/betting-ledger/internal/shared/db"
	"github.com/radieske/betting-ledger/internal/shared/kafka"
	"github.com/radieske/betting-ledger/internal/shared/logger"
	"github.com/radieske/betting-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	multiplier, err := decimal.NewFromString(cfg.PayoutMultiplier)
	if err != nil || !multiplier.IsPositive() {
		log.Fatal("invalid PAYOUT_MULTIPLIER", zap.String("value", cfg.PayoutMultiplier))
	}
	policy, err := wager.ParseSettlePolicy(cfg.SettlePolicy)
	if err != nil {
		log.Fatal("invalid SETTLE_POLICY", zap.Error(err))
	}

	var checks []metrics.HealthCheck

	// Store
	var store repo.Store
	switch cfg.StoreDriver {
	case "postgres":
		pg, err := db.ConnectPostgres(cfg.PostgresDSN, log)
		if err != nil {
			log.Fatal("pg", zap.Error(err))
		}
		defer pg.Close()
		if err := db.RunMigrations(ctx, pg); err != nil {
			log.Fatal("migrations", zap.Error(err))
		}
		store = repo.NewPostgres(pg)
		checks = append(checks, metrics.HealthCheck{Name: "postgres", Check: pg.PingContext})
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		store = repo.NewMemory()
	default:
		log.Fatal("unknown STORE_DRIVER", zap.String("value", cfg.StoreDriver))
	}

	// Redis (sessões)
	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()
	checks = append(checks, metrics.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}})

	// Kafka (eventos pós-commit)
	var publ kpub.Publisher = kpub.Noop{}
	if cfg.EventsEnabled {
		writer := kafka.NewWriter(cfg.KafkaBrokers)
		defer writer.Close()
		publ = kpub.NewKafkaPublisher(writer, kpub.Topics{
			BetPlaced:          cfg.TopicBetPlaced,
			BetSettled:         cfg.TopicBetSettled,
			LedgerTransactions: cfg.TopicLedgerTransactions,
		})
	} else {
		log.Info("event publishing disabled")
	}

	// deps
	authSvc, err := auth.NewService(store, auth.NewRedisSessions(rdb, cfg.SessionTTL))
	if err != nil {
		log.Fatal("auth", zap.Error(err))
	}
	ledgerSvc := ledger.NewService(store)
	engine := wager.NewEngine(store,
		wager.WithPayoutMultiplier(multiplier),
		wager.WithSettlePolicy(policy),
	)

	// HTTP público
	api := bhttp.NewServer(log, authSvc, ledgerSvc, engine, publ)
	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// metrics/health
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, checks...)

	go func() {
		log.Info("betting-service listening",
			zap.String("addr", apiSrv.Addr),
			zap.String("store", cfg.StoreDriver),
			zap.String("payout_multiplier", multiplier.String()),
			zap.String("settle_policy", string(policy)),
		)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("api shutdown", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics shutdown", zap.Error(err))
	}
}
