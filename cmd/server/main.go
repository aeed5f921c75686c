package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/rl1809/cart-service/internal/adapter/catalog"
	"github.com/rl1809/cart-service/internal/adapter/handler"
	"github.com/rl1809/cart-service/internal/adapter/storage"
	"github.com/rl1809/cart-service/internal/config"
	"github.com/rl1809/cart-service/internal/core/service"
	"github.com/rl1809/cart-service/internal/logger"
	"github.com/rl1809/cart-service/internal/port"
	"github.com/rl1809/cart-service/internal/telemetry"
)

// durableStore is a CartStore that can also be probed and migrated.
type durableStore interface {
	port.CartStore
	handler.Pinger
	EnsureSchema(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(os.Stdout, cfg.Env, cfg.LogLevel, "cart-service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Durable store
	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to connect durable store")
	}
	defer closeStore()
	log.Info().Str("driver", cfg.Store.Driver).Msg("connected to durable store")

	if cfg.Store.AutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to create schema")
		}
	}

	// Cache. The engine runs without it, so an unreachable Redis is only logged.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, serving from durable store")
	} else {
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
	}
	cache := storage.NewRedisAdapter(rdb)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(cfg.MetricsNamespace, reg)

	// Service
	opts := []service.Option{
		service.WithLogger(log.With().Str("component", "cart_service").Logger()),
		service.WithMetrics(metrics),
		service.WithCacheTTL(cfg.CacheTTL),
		service.WithEnrichmentTimeout(cfg.Catalog.Timeout),
	}
	if cfg.SerializeUserWrites {
		opts = append(opts, service.WithSerializedWrites())
	}
	carts := service.NewCartService(store, cache, catalog.NewHTTPClient(cfg.Catalog.URL, cfg.Catalog.Timeout, nil), opts...)

	// Health
	healthServer := health.NewServer()
	prober := handler.NewHealthProber(healthServer, metrics, log,
		handler.Dependency{Name: "store", Pinger: store, Required: true},
		handler.Dependency{Name: "cache", Pinger: cache},
	)

	// gRPC server
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("failed to listen")
	}

	// HTTP server
	router := mux.NewRouter()
	router.Use(handler.WithRequestID, handler.WithAccessLog(log, metrics))
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)
	handler.NewHTTPHandler(carts, prober, log).Register(router)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return prober.Run(gctx, cfg.HealthInterval)
	})

	g.Go(func() error {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown failed")
		}
		log.Info().Msg("HTTP server stopped")

		grpcServer.GracefulStop()
		log.Info().Msg("gRPC server stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("connections closed")
}

func openStore(ctx context.Context, cfg config.StoreConfig) (durableStore, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return storage.NewPostgresAdapter(pool), pool.Close, nil

	default:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return storage.NewMySQLAdapter(db), func() { db.Close() }, nil
	}
}
