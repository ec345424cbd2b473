package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	mhttp "github.com/radieske/matka-exchange/internal/market-service/http"
	kpub "github.com/radieske/matka-exchange/internal/market-service/producer"
	"github.com/radieske/matka-exchange/internal/market-service/repo"
	"github.com/radieske/matka-exchange/internal/market-service/ws"
	"github.com/radieske/matka-exchange/internal/matka/admission"
	"github.com/radieske/matka-exchange/internal/matka/book"
	"github.com/radieske/matka-exchange/internal/matka/query"
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
		cfg.ServiceName = "market-service"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// market-service migrate up|down [n]|status
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg.PostgresDSN, os.Args[2:], log); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
		return
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("timezone", zap.Error(err))
	}
	visibility, err := book.ParseVisibility(cfg.BookVisibility)
	if err != nil {
		log.Fatal("book visibility", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := db.MigrateUp(cfg.PostgresDSN, log); err != nil {
			log.Fatal("migrate on start", zap.Error(err))
		}
	}

	// Postgres: mercados, apostas e resultados
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: pub/sub do book para os websockets
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writers (bet_placed e result_declared)
	betPlaced := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer betPlaced.Close()
	resultDeclared := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicResultDeclared)
	defer resultDeclared.Close()

	// deps
	m := metrics.NewMatka(prometheus.DefaultRegisterer)
	store := repo.NewPostgres(pg)

	hub := ws.NewHub(func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, log, rdb, cfg.RedisPubSubChannel, hub)

	api := mhttp.NewServer(mhttp.Deps{
		Log:        log,
		Store:      store,
		Admission:  admission.NewService(log, store, store, loc, cfg.AdmissionTimeout, m),
		Book:       book.NewService(log, store, store, loc, m),
		Query:      query.NewService(store, store, loc),
		Publisher:  kpub.NewKafkaPublisher(betPlaced, resultDeclared),
		Notifier:   cache.NewBookNotifier(rdb, cfg.RedisPubSubChannel),
		Visibility: visibility,
		Location:   loc,
		WS:         hub.HandleWS,
	})

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort,
		metrics.Check{Name: "postgres", Fn: store.Ping},
		metrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)
	log.Info("metrics/health", zap.String("port", cfg.MetricsPort))

	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = apiSrv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	log.Info("market-service listening",
		zap.String("addr", apiSrv.Addr),
		zap.String("reference_tz", loc.String()),
		zap.String("book_visibility", string(visibility)),
	)
	if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("api", zap.Error(err))
	}
	log.Info("market-service stopped")
}

func runMigrate(dsn string, args []string, log *zap.Logger) error {
	if len(args) == 0 {
		return errors.New("usage: migrate up|down [n]|status")
	}
	switch args[0] {
	case "up":
		return db.MigrateUp(dsn, log)
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
			steps = n
		}
		return db.MigrateDown(dsn, steps, log)
	case "status":
		version, dirty, err := db.MigrateStatus(dsn)
		if err != nil {
			return err
		}
		log.Info("migration status", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	}
	return fmt.Errorf("unknown migrate command %q", args[0])
}
