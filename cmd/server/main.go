package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"optionscout/internal/alert"
	"optionscout/internal/bot"
	"optionscout/internal/cache"
	"optionscout/internal/config"
	"optionscout/internal/db"
	"optionscout/internal/domain"
	"optionscout/internal/handler"
	"optionscout/internal/job"
	"optionscout/internal/logger"
	"optionscout/internal/provider"
	"optionscout/internal/repository"
	"optionscout/internal/scoring"
	"optionscout/internal/service"
	"optionscout/pkg/tracing"

	_ "optionscout/docs"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	newLoggerFunc    = logger.New
	initPostgresFunc = db.Connect
	initRedisFunc    = cache.Connect
	initTracerFunc   = tracing.InitTracer
	newTransportFunc = func(timeout time.Duration) provider.Transport {
		return provider.NewHTTPTransport(timeout)
	}
	newBotFunc       = bot.New
	startBotFunc     = func(b *bot.Bot, ctx context.Context) { go b.Start(ctx) }
	startScannerFunc = func(s *job.Scanner, ctx context.Context, log *zap.Logger) {
		go func() {
			if err := s.Start(ctx); err != nil {
				log.Error("scanner exited", zap.Error(err))
			}
		}()
	}
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Optionscout API
// @version         1.0
// @description     Options income opportunity scanner with rate-limited market data access.

// @host      localhost:8080
// @BasePath  /
func main() {
	_ = loadEnvFunc()

	cfg := loadConfigFunc()

	zl, err := newLoggerFunc(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	for _, w := range cfg.Warnings {
		zl.Warn(w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, tracing.Options{Enabled: cfg.TracingEnabled, Endpoint: cfg.OTLPEndpoint})
	if err != nil {
		zl.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			zl.Warn("error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Postgres and Redis are optional; the service degrades to uncached, unpersisted.
	pool, err := initPostgresFunc(ctx, cfg.DatabaseURL, zl)
	if err != nil {
		zl.Error("postgres unavailable, alert persistence disabled", zap.Error(err))
	}
	if pool != nil {
		defer pool.Close()
	}
	redisClient, err := initRedisFunc(ctx, cfg.RedisURL, zl)
	if err != nil {
		zl.Error("redis unavailable, caching disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Every provider call goes through the single request queue.
	queue := provider.NewRequestQueue(
		newTransportFunc(cfg.Provider.RequestTimeout),
		provider.QueueConfig{
			MinInterval:      cfg.Provider.MinRequestInterval,
			RequestTimeout:   cfg.Provider.RequestTimeout,
			FailureThreshold: cfg.Provider.FailureThreshold,
			CircuitCooldown:  cfg.Provider.CircuitCooldown,
			BackoffBase:      cfg.Provider.BackoffBase,
			OutcomeRetention: cfg.Provider.OutcomeRetention,
			OutcomeLogSize:   cfg.Provider.OutcomeLogSize,
		},
		tracer, zl, provider.NewMetrics(reg),
	)
	go func() {
		if err := queue.Run(ctx); err != nil {
			zl.Error("request queue stopped", zap.Error(err))
		}
	}()

	market := provider.NewPolygonClient(queue, cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.DefaultMaxDTE, tracer, zl)
	opportunities := service.NewOpportunityService(
		tracer, market, scoring.NewEngine(), cacheKV(redisClient), queue, zl, cfg.Provider.DefaultMaxDTE,
	)

	var (
		alertStore handler.AlertStore
		store      alert.Store
		criteria   job.CriteriaLister
	)
	if repo := alertRepository(pool, tracer); repo != nil {
		alertStore, store, criteria = repo, repo, repo
	}

	var notifier alert.Notifier
	tgBot, err := newBotFunc(bot.Options{
		Token:     cfg.TelegramBotToken,
		Watchlist: cfg.Scanner.Symbols,
		MinScore:  cfg.Scanner.MinScore,
	}, opportunities, zl)
	if err != nil {
		zl.Error("telegram bot disabled", zap.Error(err))
	}
	if tgBot != nil {
		startBotFunc(tgBot, ctx)
		if cfg.TelegramChatID != 0 {
			notifier = bot.NewNotifier(tgBot.Sender(), cfg.TelegramChatID)
		}
	}

	if cfg.Scanner.Enabled {
		contractType, _ := domain.ParseContractType(cfg.Scanner.ContractType)
		scanner := job.NewScanner(tracer, opportunities, criteria, alert.NewProcessor(store, notifier, tracer, zl), job.ScannerOptions{
			Schedule:     cfg.Scanner.Schedule,
			Symbols:      cfg.Scanner.Symbols,
			ContractType: contractType,
			MinScore:     cfg.Scanner.MinScore,
		}, zl)
		startScannerFunc(scanner, ctx, zl)
	}

	h := handler.New(tracer, opportunities, alertStore, cfg.Scanner.Symbols)

	r := newRouterFunc()
	r.Use(otelgin.Middleware(tracing.ServiceName))

	h.RegisterRoutes(r, r.Group("/api", handler.APIKeyAuth(cfg.APIKey)))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	startHTTP := startHTTPServerFunc
	go func() {
		if err := startHTTP(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("listen", zap.Error(err))
		}
	}()
	zl.Info("server started", zap.String("addr", cfg.HTTPAddr))

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	zl.Info("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
		return
	}

	zl.Info("server exiting")
}

// cacheKV avoids handing a typed nil client to the service.
func cacheKV(client *redis.Client) cache.KV {
	if client == nil {
		return nil
	}
	return client
}

func alertRepository(pool *pgxpool.Pool, tracer trace.Tracer) *repository.AlertRepository {
	if pool == nil {
		return nil
	}
	return repository.NewAlertRepository(pool, tracer)
}
