package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/placerank/internal/adapters/http/api"
	"github.com/okian/placerank/internal/adapters/http/swagger"
	"github.com/okian/placerank/internal/adapters/repository"
	service "github.com/okian/placerank/internal/app"
	"github.com/okian/placerank/internal/config"
	"github.com/okian/placerank/internal/seed"
	"github.com/okian/placerank/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString("placerank: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, store, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "store close failed", logger.Error(err))
		}
	}()
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
	}()

	if cfg.SeedFile != "" {
		if err := seedService(ctx, svc, cfg.SeedFile, log); err != nil {
			return err
		}
	}

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(svc, cfg.MaxRankingLimit),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return nil
}

// newService builds the service and its repository from configuration.
// The caller closes the returned store after stopping the service.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, repository.Store, error) {
	weights, err := cfg.Weights()
	if err != nil {
		return nil, nil, err
	}
	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info(ctx, "repository selected", logger.String("store", cfg.Store))

	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithStore(store),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.EventQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithRecommendationSize(cfg.RecommendationSize),
		service.WithSimilarSize(cfg.SimilarSize),
		service.WithRankingCacheTTL(cfg.RankingCacheTTL()),
		service.WithWeights(weights),
	)
	return svc, store, nil
}

// newStore opens the configured repository backend.
func newStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Store {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store := repository.NewRedisStore(client, repository.WithPrefix(cfg.RedisPrefix))
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		return store, nil
	default:
		return repository.NewMemoryStore(ctx), nil
	}
}

// seedService loads the roster file and feeds it into the service.
func seedService(ctx context.Context, svc *service.Service, path string, log logger.Logger) error {
	roster, err := seed.Load(path)
	if err != nil {
		return err
	}
	added, err := svc.Seed(ctx, roster.Users, roster.Places, roster.Events)
	if err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}
	log.Info(ctx, "roster seeded",
		logger.String("file", path),
		logger.Int("users", len(roster.Users)),
		logger.Int("places", len(roster.Places)),
		logger.Int("events", len(roster.Events)),
		logger.Int("added", added),
	)
	return nil
}

// newMux registers the API and documentation routes.
func newMux(svc *service.Service, maxLimit int) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(svc, maxLimit).Register(mux)
	return mux
}

// startServiceMetricsUpdater periodically refreshes the service gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats updates the gauges as a side effect.
			_ = svc.GetStats(ctx)
		}
	}
}
