package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ticketify/internal/api"
	"ticketify/internal/clock"
	"ticketify/internal/config"
	"ticketify/internal/database"
	"ticketify/internal/directory"
	"ticketify/internal/domain"
	"ticketify/internal/earlybird"
	"ticketify/internal/events"
	"ticketify/internal/logging"
	"ticketify/internal/metrics"
	"ticketify/internal/notify"
	"ticketify/internal/repository"
	"ticketify/internal/service"
	"ticketify/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	window, err := cfg.Booking.Window()
	if err != nil {
		return err
	}

	store, backups, cleanup, err := initStore(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	notifier, err := notify.New(cfg.Notify, logging.Component(logger, "notify"))
	if err != nil {
		return err
	}

	redisClient := initRedis(cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}
	attempts, memoryAttempts := initAttemptLimiter(redisClient, logger)

	bus := events.NewEventBus()
	bus.SubscribeAll(events.AuditHandler(logging.Component(logger, "audit")))

	members := directory.NewFileDirectory(cfg.Directory.Path, logging.Component(logger, "directory"))
	deps := service.Dependencies{
		Store:     store,
		Directory: members,
		Secrets:   database.NewPasswordFile(cfg.Admin.PasswordFile),
		Notifier:  notifier,
		Events:    bus,
		Clock:     clock.NewSystem(),
		Window:    window,
		Classifier: earlybird.Classifier{
			Cap:              cfg.Booking.EarlyBirdCap,
			StandardPrice:    cfg.Booking.StandardPrice,
			StandardCategory: cfg.Booking.StandardCategory,
		},
		NotifyTimeout: cfg.Notify.Timeout,
	}
	if cfg.Backup.Enabled {
		deps.Snapshotter = backups
	}
	svc := service.NewAdmissionService(deps, logging.Component(logger, "admission"))

	httpServer := api.NewHTTPServer(cfg.API, svc, attempts, logging.Component(logger, "http"))
	registerHealthChecks(httpServer, svc, members, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, logger)
	go backups.Start(ctx)
	go memoryAttempts.StartSweeper(ctx, cfg.API.Attempts.Window)

	if cfg.Notify.Redelivery.Enabled {
		rd := worker.NewRedeliveryWorker(svc, worker.RetryPolicy{
			MaxRetries:   cfg.Notify.Redelivery.MaxRetries,
			InitialDelay: cfg.Notify.Redelivery.InitialDelay,
			MaxDelay:     cfg.Notify.Redelivery.MaxDelay,
			Jitter:       cfg.Notify.Redelivery.Jitter,
		}, cfg.Notify.Redelivery.Interval, clock.NewSystem(), logging.Component(logger, "redelivery"))
		go rd.Start(ctx)
	}

	logger.Info().
		Time("opens_at", window.Open).
		Str("store", cfg.Database.Driver).
		Str("notify", cfg.Notify.Driver).
		Msg("booking service configured")

	return serve(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

// initStore opens the configured booking store and a backup service bound
// to it.
func initStore(cfg *config.Config, logger *zerolog.Logger) (domain.BookingStore, *database.BackupService, func(), error) {
	backupLogger := logging.Component(logger, "backup")

	switch cfg.Database.Driver {
	case "file":
		fs, err := database.NewFileStore(cfg.Database.Path, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init file store: %w", err)
		}
		return fs, database.NewBackupService(nil, cfg.Database.Path, cfg.Backup, backupLogger), func() {}, nil
	default:
		db, err := database.NewDB(cfg.Database.Path, logger)
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
			return nil, nil, nil, err
		}
		return db, database.NewBackupService(db, "", cfg.Backup, backupLogger), func() { _ = db.Close() }, nil
	}
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// initAttemptLimiter also returns the in-memory counter so its expired
// entries can be swept; it serves as the fallback when redis is configured.
func initAttemptLimiter(client *redis.Client, logger *zerolog.Logger) (domain.AttemptLimiter, *repository.MemoryAttemptRepository) {
	memory := repository.NewMemoryAttemptRepository()
	if client == nil {
		return memory, memory
	}
	return repository.NewFailoverAttemptRepository(repository.NewRedisAttemptRepository(client), memory, logger), memory
}

func registerHealthChecks(srv *api.HTTPServer, svc *service.AdmissionService, members *directory.FileDirectory, notifier domain.Notifier) {
	srv.AddHealthCheck("admission_queue", func() string {
		return strconv.Itoa(svc.QueueDepth())
	})
	srv.AddHealthCheck("directory", func() string {
		n, err := members.Count()
		if err != nil {
			return "unavailable"
		}
		return fmt.Sprintf("%d members", n)
	})
	if b, ok := notifier.(*notify.BreakerNotifier); ok {
		srv.AddHealthCheck("notify_breaker", func() string {
			return b.State().String()
		})
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
