package main

import (
	"context"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/matka-exchange/internal/matka/settlement"
	"github.com/radieske/matka-exchange/internal/settlement-worker/consumer"
	"github.com/radieske/matka-exchange/internal/settlement-worker/ledger"
	kpub "github.com/radieske/matka-exchange/internal/settlement-worker/producer"
	"github.com/radieske/matka-exchange/internal/settlement-worker/repo"
	"github.com/radieske/matka-exchange/internal/shared/cache"
	"github.com/radieske/matka-exchange/internal/shared/config"
	"github.com/radieske/matka-exchange/internal/shared/db"
	"github.com/radieske/matka-exchange/internal/shared/kafka"
	"github.com/radieske/matka-exchange/internal/shared/logger"
	"github.com/radieske/matka-exchange/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "settlement-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres: resultados e status das apostas
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: lock por mercado+dia e notificação do book
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka: consome result_declared, publica bet_settled e DLQ
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicResultDeclared, "settlement-worker")
	defer reader.Close()

	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()

	var dlq consumer.Writer
	if cfg.TopicResultDeclaredDLQ != "" {
		dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicResultDeclaredDLQ)
		defer dlqWriter.Close()
		dlq = dlqWriter
	}

	m := metrics.NewMatka(prometheus.DefaultRegisterer)
	store := repo.NewPostgres(pg)
	svc := settlement.NewService(log,
		store,
		cache.NewLocker(rdb),
		ledger.New(cfg.LedgerURL),
		kpub.NewKafkaPublisher(settledWriter, cfg.TopicBetSettled),
		cache.NewBookNotifier(rdb, cfg.RedisPubSubChannel),
		m,
	)

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort,
		metrics.Check{Name: "postgres", Fn: store.Ping},
		metrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)
	defer metricsSrv.Close()
	log.Info("metrics/health", zap.String("port", cfg.MetricsPort))

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicResultDeclared),
		zap.String("publish", cfg.TopicBetSettled),
		zap.String("dlq", cfg.TopicResultDeclaredDLQ),
	)

	if err := consumer.New(log, reader, dlq, svc, m).Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("consumer", zap.Error(err))
	}
	log.Info("settlement-worker stopped")
}
