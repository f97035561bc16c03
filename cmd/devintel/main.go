// Command devintel runs the code-intelligence daemon: it builds a Symbol
// Index over the current project, observes the host assistant's tool usage
// over its Intent Capture Pipeline, and serves ranking and prediction
// queries over one local HTTP port.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/devintel/internal/config"
	"github.com/kailas-cloud/devintel/internal/db"
	"github.com/kailas-cloud/devintel/internal/db/memory"
	dbRedis "github.com/kailas-cloud/devintel/internal/db/redis"
	"github.com/kailas-cloud/devintel/internal/index"
	"github.com/kailas-cloud/devintel/internal/intent"
	logpkg "github.com/kailas-cloud/devintel/internal/logger"
	"github.com/kailas-cloud/devintel/internal/metrics"
	"github.com/kailas-cloud/devintel/internal/predict"
	"github.com/kailas-cloud/devintel/internal/project"
	"github.com/kailas-cloud/devintel/internal/rankstore"
	"github.com/kailas-cloud/devintel/internal/transport/httpapi"
	"github.com/kailas-cloud/devintel/internal/tuner"
	"github.com/kailas-cloud/devintel/internal/version"
)

// finalizeInterval is how often the background sweep resolves predictions
// that aged past their finalization window without a matching file access.
const finalizeInterval = time.Minute

// evictInterval is how often the embedded store's cache-eviction sweep runs.
const evictInterval = 5 * time.Minute

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting devintel",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_driver", cfg.Store.Driver),
	)

	store, memStore, err := newStore(cfg)
	if err != nil {
		logger.Fatal("failed to create store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	readiness := time.Duration(cfg.Store.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("store not ready", zap.Error(err))
	}

	registry, err := project.Load(cfg.Project.RegistryPath)
	if err != nil {
		logger.Fatal("failed to load project registry", zap.Error(err))
	}

	projectRoot, err := os.Getwd()
	if err != nil {
		logger.Fatal("failed to resolve working directory", zap.Error(err))
	}
	defaultProject, err := registerDefaultProject(registry, projectRoot, cfg.Project.EnableOnStart)
	if err != nil {
		logger.Fatal("failed to register default project", zap.Error(err))
	}
	logger.Info("project registered",
		zap.String("uuid", defaultProject.UUID),
		zap.String("root", defaultProject.RootPath),
		zap.Bool("enabled", defaultProject.Enabled),
	)

	idx := index.New(index.Config{SkipDirs: cfg.Index.SkipDirs}, logger)
	buildStats, err := idx.Build(ctx, defaultProject.RootPath)
	if err != nil {
		logger.Fatal("failed to build symbol index", zap.Error(err))
	}
	logger.Info("symbol index built",
		zap.Int("paths", buildStats.PathsIndexed),
		zap.Int("tokens", buildStats.TokensIndexed),
		zap.Duration("duration", buildStats.LastBuildDuration),
	)

	watcher, err := index.NewWatcher(idx, logger)
	if err != nil {
		logger.Fatal("failed to create index watcher", zap.Error(err))
	}

	rank := rankstore.New(store, cfg.FinalizeWindowDuration(), logger)
	tn := tuner.New(rank, cfg.Tuner.ArmOverflowCap, logger)
	predictor := predict.New(rank, idx, tn, store, cfg.Predict, logger)
	pipeline := intent.New(rank, predictor, logger)

	server := httpapi.New(registry, store, idx, rank, tn, predictor, pipeline, cfg, defaultProject.UUID, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)
	r.Handle("/metrics/prom", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The watcher, the finalize sweep, and the cache-eviction sweep are
	// independent background loops sharing one lifetime; an errgroup ties
	// their cancellation together the way intelligence_gatherer.go runs its
	// concurrent collectors under one errgroup.WithContext.
	eg, egCtx := errgroup.WithContext(runCtx)

	eg.Go(func() error {
		return watcher.Start(egCtx, defaultProject.RootPath)
	})

	eg.Go(func() error {
		runFinalizeLoop(egCtx, predictor, registry, defaultProject.UUID, logger)
		return nil
	})

	if memStore != nil {
		eg.Go(func() error {
			runEvictionLoop(egCtx, memStore, logger)
			return nil
		})
	}

	eg.Go(func() error {
		logger.Info("http server listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	<-runCtx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during http shutdown", zap.Error(err))
	}
	watcher.Stop()
	pipeline.Stop()

	if err := eg.Wait(); err != nil {
		logger.Error("background loop exited with error", zap.Error(err))
	}
	logger.Info("devintel stopped")
}

// newStore constructs the keyed store backing the Ranking Store, Prediction
// Engine cache, and Tuner posteriors, per the configured driver. memStore is
// non-nil only for the embedded driver, for callers that need its
// eviction-specific method.
func newStore(cfg config.Config) (db.Store, *memory.Store, error) {
	switch cfg.Store.Driver {
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Store.Addrs,
			Password: cfg.Store.Password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("redis store: %w", err)
		}
		return s, nil, nil
	default:
		s := memory.New()
		return s, s, nil
	}
}

// registerDefaultProject binds the daemon's current working directory to a
// project record, registering it on first run and reusing the existing
// record across restarts.
func registerDefaultProject(registry *project.Registry, root string, enableOnStart bool) (project.Project, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return project.Project{}, fmt.Errorf("resolve project root: %w", err)
	}

	p, err := registry.ByPath(absRoot)
	if err == nil {
		if enableOnStart && !p.Enabled {
			if err := registry.SetEnabled(p.UUID, true); err != nil {
				return project.Project{}, err
			}
			p.Enabled = true
		}
		return p, nil
	}
	if !errors.Is(err, project.ErrNotFound) {
		return project.Project{}, err
	}

	return registry.Register(absRoot, enableOnStart)
}

// runFinalizeLoop periodically resolves predictions that aged past their
// finalization window as misses, per spec.md §4.3's background sweep.
func runFinalizeLoop(ctx context.Context, predictor *predict.Engine, registry *project.Registry, defaultProjectUUID string, logger *zap.Logger) {
	ticker := time.NewTicker(finalizeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resolved, err := predictor.FinalizeStale(ctx, projectUUIDs(registry, defaultProjectUUID), time.Now())
			if err != nil {
				logger.Warn("finalize sweep failed", zap.Error(err))
				continue
			}
			if resolved > 0 {
				logger.Debug("finalize sweep resolved stale predictions", zap.Int("count", resolved))
			}
		}
	}
}

// runEvictionLoop periodically drops expired cache entries from the
// embedded store so a long-lived daemon's memory footprint stays bounded.
func runEvictionLoop(ctx context.Context, store *memory.Store, logger *zap.Logger) {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.EvictExpired(); n > 0 {
				logger.Debug("cache eviction swept expired keys", zap.Int("count", n))
			}
		}
	}
}

func projectUUIDs(registry *project.Registry, defaultProjectUUID string) []string {
	projects := registry.List()
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.UUID)
	}
	if len(ids) == 0 && defaultProjectUUID != "" {
		return []string{defaultProjectUUID}
	}
	return ids
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain
// text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered", zap.Any("panic", rvr), zap.Stack("stacktrace"))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error":   "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates
// the chi request id to the response header.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http_request",
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
