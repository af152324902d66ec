package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"bookshare/database"
	"bookshare/internal/changefeed"
	"bookshare/internal/config"
	httpapi "bookshare/internal/http-api"
	"bookshare/internal/http-api/middleware"
	"bookshare/internal/http-api/service"
	"bookshare/internal/lifecycle"
	"bookshare/internal/metrics"
	"bookshare/internal/session"
	"bookshare/internal/store"
	"bookshare/internal/triggers"
)

const dispatcherWorkers = 4

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server_exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := database.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	feed, err := openFeed(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer feed.Close()

	st := store.New(db, feed, store.WithLogger(logger))
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var recorder *metrics.Recorder
	var gatherer prometheus.Gatherer
	if cfg.PrometheusEnabled {
		recorder = metrics.NewRecorder(prometheus.DefaultRegisterer)
		gatherer = prometheus.DefaultGatherer
	}

	engine := lifecycle.NewEngine(st,
		lifecycle.WithLogger(logger),
		lifecycle.WithMetrics(recorder),
		lifecycle.WithLocation(loc),
	)
	trigCfg := triggers.Config{
		LoanPeriod: cfg.LoanPeriod,
		Location:   loc,
		Logger:     logger,
		Metrics:    recorder,
	}
	dueDate := triggers.NewDueDateTrigger(st, trigCfg)
	daily := triggers.NewDailyReminders(st, trigCfg)

	// The dispatcher reconciles missed approvals itself once subscribed.
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		if err := triggers.NewDispatcher(feed, dueDate, dispatcherWorkers, logger).Run(ctx); err != nil {
			logger.Error("dispatcher_stopped", "error", err)
		}
	}()
	// Queued trigger writes finish before the feed and database close.
	defer func() {
		stop()
		<-dispatcherDone
		logger.Info("dispatcher_drained")
	}()

	if cfg.SchedulerEnabled {
		sched := &triggers.Scheduler{
			Name:     triggers.NameDaily,
			Hour:     cfg.ReminderHour,
			Minute:   cfg.ReminderMinute,
			Location: loc,
			Logger:   logger,
			Job: func(ctx context.Context) error {
				_, err := daily.Run(ctx)
				return err
			},
		}
		go sched.Run(ctx)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(httpapi.Services{
		Auth:          session.NewService(st, cfg.JWTSecret, cfg.AccessTokenTTL, logger),
		Lending:       service.NewLendingService(engine, st),
		Catalog:       service.NewCatalogService(st, logger),
		Events:        service.NewEventService(st),
		Notifications: service.NewNotificationService(st),
		Opportunities: service.NewOpportunityService(st),
		Dashboard:     service.NewDashboardService(st, feed, loc),
	}, httpapi.Options{
		Logger:   logger,
		Limiter:  middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Gatherer: gatherer,
		Health:   st.Ping,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting_http_server", "addr", srv.Addr, "tls", cfg.TLSEnabled, "env", cfg.GoEnv)
		var err error
		if cfg.TLSEnabled {
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		logger.Info("received_shutdown_signal")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server_stopped_gracefully")
	return nil
}

// openFeed uses Redis pub/sub when REDIS_URL is set so several API
// replicas see each other's writes; otherwise changes stay in-process.
func openFeed(ctx context.Context, cfg *config.Config, logger *slog.Logger) (changefeed.Feed, error) {
	if cfg.RedisURL == "" {
		logger.Info("changefeed_local")
		return changefeed.NewLocal(), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("changefeed_redis", "addr", opts.Addr)
	return changefeed.NewRedis(client, cfg.ChangefeedPrefix, logger), nil
}
