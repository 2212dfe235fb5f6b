package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/cache"
	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/metrics"
	"github.com/oggyb/muzz-match/internal/relay"
	"github.com/oggyb/muzz-match/internal/server"
	"github.com/oggyb/muzz-match/internal/service/aireply"
	"github.com/oggyb/muzz-match/internal/service/chat"
	"github.com/oggyb/muzz-match/internal/service/match"
	"github.com/oggyb/muzz-match/internal/transport/ws"
)

func main() {
	// .env is optional, real env vars win
	_ = godotenv.Load()
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB (migrates)
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	appCtx := app.New(database, redisCache, log, m)

	// Live relay and chat wire into each other through interfaces
	registry := relay.NewRegistry(m.SetConnections)
	live := relay.New(registry, log, m)
	store := chat.NewStore(appCtx, nil)
	chatSvc := chat.NewService(store, live, log)
	live.SetMessenger(chatSvc)

	engine := match.NewEngine(appCtx, match.Options{
		LikeCap:        cfg.Match.LikeCap,
		CandidateLimit: cfg.Match.CandidateLimit,
	})

	var pipeline *aireply.Pipeline
	if cfg.AI.APIKey != "" {
		pipeline = aireply.NewPipeline(appCtx, aireply.NewOpenAIGenerator(cfg, log), store, chatSvc, aireply.Options{
			GenerationTimeout: cfg.AI.GenerationTimeout,
			MinDelay:          cfg.AI.MinReplyDelay,
			MaxDelay:          cfg.AI.MaxReplyDelay,
			HistoryWindow:     cfg.AI.HistoryWindow,
		})
		chatSvc.Observe(pipeline)
		log.Info("ai replies enabled", "model", cfg.AI.Model)
	} else {
		log.Warn("OPENAI_API_KEY not set, synthetic users will not reply")
	}

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	grpcServer, health := server.NewGRPCServer(log,
		match.NewRegistrar(engine),
		chat.NewRegistrar(chatSvc),
	)
	httpServer := server.NewHTTPServer(cfg, log, ws.NewHandler(live, log, cfg.HTTP.AllowedOrigins), reg,
		map[string]server.HealthCheck{
			"db": func(ctx context.Context) error {
				sqlDB, err := database.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": redisCache.Ping,
		})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		return server.StartGRPCServer(cfg, grpcServer)
	})
	g.Go(func() error {
		log.Info("starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "err", err)
		}
		registry.Close()
		grpcServer.GracefulStop()
		if pipeline != nil {
			pipeline.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
