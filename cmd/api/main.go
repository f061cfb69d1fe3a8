package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-programs/internal/adapters/cache"
	"github.com/comitanigiacomo/kanso-programs/internal/adapters/catalog"
	adapterHTTP "github.com/comitanigiacomo/kanso-programs/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-programs/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-programs/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-programs/internal/config"
	"github.com/comitanigiacomo/kanso-programs/internal/core/domain"
	"github.com/comitanigiacomo/kanso-programs/internal/core/services"
	"github.com/comitanigiacomo/kanso-programs/internal/core/workers"
)

type storage struct {
	kv   domain.KeyValueStore
	ping func(ctx context.Context) error
	stop func()
}

func main() {
	startTime := time.Now()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Critical: Failed to load configuration: %v", err)
	}

	loc, _ := cfg.Location()
	clock := domain.RealClock{Location: loc}

	programs, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		log.Fatalf("Critical: Failed to load program catalog: %v", err)
	}
	log.Printf("Catalog loaded: %d programs, %d achievements.", len(programs.Programs()), len(programs.Achievements()))

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		log.Println("Connecting to redis...")
		rdb, err = cache.NewRedisClient(cache.Options{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatalf("Critical: %v", err)
		}
		defer rdb.Close()
		log.Println("Redis connected successfully.")
	}

	store, err := openStorage(cfg, rdb)
	if err != nil {
		log.Fatalf("Critical: Failed to open %s storage: %v", cfg.StorageBackend, err)
	}
	defer store.stop()

	kv := store.kv
	if cfg.CacheEnabled && cfg.StorageBackend != config.BackendRedis && cfg.StorageBackend != config.BackendMemory {
		kv = repository.NewCachedStore(kv, rdb, cfg.CacheTTL)
		log.Printf("Read-through cache enabled (ttl %s).", cfg.CacheTTL)
	}

	persistenceService := services.NewPersistenceService(kv, programs, clock)
	trackerService := services.NewTrackerService(programs, persistenceService, clock)

	for _, n := range trackerService.Start(context.Background()) {
		log.Printf("[TRACKER] %s: %s", n.Level, n.Message)
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	workers.NewRolloverWorker(trackerService, cfg.RolloverInterval).Start(workerCtx)

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		Tracker:        trackerService,
		Redis:          rdb,
		StorageName:    cfg.StorageBackend,
		StoragePing:    store.ping,
		AllowedOrigins: cfg.Origins(),
		RateLimit: middleware.RateLimit{
			Scope:  "mutating",
			Limit:  cfg.RateLimit,
			Window: cfg.RateWindow,
		},
		StartTime: startTime,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Kanso Programs running on http://localhost:%s (storage: %s)", cfg.Port, cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Critical server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Stop signal received. Shutting down...")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Forced shutdown error:", err)
	}

	log.Println("Server stopped gracefully.")
}

func openStorage(cfg config.Config, rdb *redis.Client) (storage, error) {
	noop := func() {}

	switch cfg.StorageBackend {
	case config.BackendMemory:
		return storage{kv: repository.NewMemoryStore(), stop: noop}, nil

	case config.BackendFile:
		fs, err := repository.NewFileStore(cfg.DataDir)
		if err != nil {
			return storage{}, err
		}
		ping := func(ctx context.Context) error {
			_, err := os.Stat(cfg.DataDir)
			return err
		}
		return storage{kv: fs, ping: ping, stop: noop}, nil

	case config.BackendRedis:
		ping := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		return storage{kv: repository.NewRedisStore(rdb, cfg.RedisNamespace), ping: ping, stop: noop}, nil

	case config.BackendPostgres:
		log.Printf("Connecting to database (driver %s)...", cfg.DBDriver)

		db, err := sqlx.Connect(cfg.DBDriver, cfg.DSN())
		if err != nil {
			return storage{}, err
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pg := repository.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			db.Close()
			return storage{}, err
		}

		log.Println("Database connected successfully.")
		return storage{kv: pg, ping: db.PingContext, stop: func() { db.Close() }}, nil
	}

	return storage{}, fmt.Errorf("%w: unknown STORAGE_BACKEND %q", config.ErrInvalidConfig, cfg.StorageBackend)
}
