// Package server assembles the HTTP control service: store, world, search
// service, router and metrics endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/config"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/engine"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/host"
	httphandler "github.com/distrubuted-game-mechanic/bruteforce/internal/http"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/service"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/store"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/store/cassandra"
	"github.com/distrubuted-game-mechanic/bruteforce/pkg/logger"
)

// OpenStore returns the configured record store and a function releasing it.
func OpenStore(cfg *config.Config, log *logger.Logger) (store.Store, func(), error) {
	switch cfg.Store {
	case config.StoreRedis:
		s, err := store.NewRedisStore(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Redis store: %w", err)
		}
		log.Info("Connected to Redis", logger.F("addr", cfg.Redis.Addr))
		return s, func() { _ = s.Close() }, nil

	case config.StoreCassandra:
		client, err := cassandra.NewClient(cfg.Cassandra, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Cassandra store: %w", err)
		}
		return cassandra.NewRepository(client, log, cfg.Cassandra.Timeout), client.Close, nil

	default:
		return store.NewMemoryStore(), func() {}, nil
	}
}

// Router mounts the API and the metrics endpoint behind the common middleware.
func Router(h *httphandler.Handler) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	router.Mount("/", h.Routes())
	router.Handle("/metrics", promhttp.Handler())

	return router
}

// Run serves until ctx is cancelled, then shuts the server and the
// simulation loop down.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	st, closeStore, err := OpenStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	world, err := engine.New(engine.DefaultConfig(cfg.World.Seed))
	if err != nil {
		return err
	}

	svc, err := service.NewSearchService(world, st, log, host.Config{
		ProgressInterval:  cfg.Search.ProgressInterval,
		CompressKeyFrames: cfg.Search.CompressKeyFrames,
	})
	if err != nil {
		return err
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan error, 1)
	go func() { loopDone <- svc.Run(loopCtx) }()

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           Router(httphandler.NewHandler(svc, log)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", logger.F("addr", server.Addr), logger.F("store", cfg.Store))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stopLoop()
			<-loopDone
			return fmt.Errorf("server failed: %w", err)
		}
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Err(err))
	}

	stopLoop()
	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Simulation loop failed", logger.Err(err))
	}

	log.Info("Server exited")
	return nil
}
