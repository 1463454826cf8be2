package main

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"chopfinder/cache"
	"chopfinder/config"
	"chopfinder/database"
	"chopfinder/discovery"
	"chopfinder/feed"
	"chopfinder/geo"
	"chopfinder/handlers"
	"chopfinder/logging"
	"chopfinder/messaging"
	"chopfinder/restaurants"
	"chopfinder/storage"
	"chopfinder/worker"
)

const (
	shutdownTimeout = 15 * time.Second
	hookTimeout     = 5 * time.Second
)

// main wires the catalog backend, shared cache, device storage and discovery sessions
// behind the HTTP API.
func main() {
	cfg, envFound := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if !envFound {
		logger.Debug("no .env file, using environment")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hooks []shutdownHook

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to redis", "addr", cfg.RedisAddr, "err", err)
		}
		hooks = append(hooks, func(context.Context) error { return rdb.Close() })
	}

	backend, closeBackend := openSource(ctx, cfg, logger)
	if closeBackend != nil {
		hooks = append(hooks, func(context.Context) error { return closeBackend() })
	}

	var pageCache cache.Cache = cache.NewMemory()
	if rdb != nil {
		pageCache = cache.NewRedisFromClient(rdb)
	}
	source := restaurants.NewCached(backend, pageCache, cfg.StaleTime, logger)

	kv, closeKV := openStorage(cfg, rdb, logger)
	if closeKV != nil {
		hooks = append(hooks, func(context.Context) error { return closeKV() })
	}

	var locator geo.Locator = geo.NoopLocator{}
	if cfg.GeoIPPath != "" {
		g, err := geo.OpenGeoIP(cfg.GeoIPPath)
		if err != nil {
			logger.Warn("geoip database unavailable, distance sort needs explicit coordinates", "path", cfg.GeoIPPath, "err", err)
		} else {
			locator = g
			hooks = append(hooks, func(context.Context) error { return g.Close() })
		}
	}

	feedOpts := feed.Options{
		PageSize:   cfg.PageSize,
		StaleTime:  cfg.StaleTime,
		Retries:    cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	}
	sessions := discovery.NewRegistry(discovery.Options{
		Source:   source,
		Storage:  kv,
		Feed:     feedOpts,
		Debounce: cfg.Debounce,
		TTL:      cfg.SessionTTL,
		Logger:   logger,
	})
	hooks = append([]shutdownHook{func(context.Context) error { sessions.Close(); return nil }}, hooks...)
	worker.StartSessionJanitor(ctx, sessions, max(cfg.SessionTTL/2, time.Minute), logger.WithPrefix("janitor"))

	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Error("failed to connect to rabbitmq, catalog changes will not purge the cache", "err", err)
		} else {
			hooks = append(hooks, func(context.Context) error { return conn.Close() })
			listenForCatalogChanges(conn, cfg.AMQPPrefix, source, logger)
		}
	}

	mux := http.NewServeMux()
	handlers.Register(mux, handlers.Deps{
		Source:   source,
		Sessions: sessions,
		Storage:  kv,
		Locator:  locator,
		Logger:   logger,
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", handlers.DeviceHeader},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(mux),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	logger.Info("catalog ready", "mode", cfg.APIMode, "page_size", cfg.PageSize, "redis", rdb != nil)
	runServerWithShutdown(server, logger, shutdownTimeout, hookTimeout, hooks...)
}

// openSource connects the configured catalog backend.
func openSource(ctx context.Context, cfg *config.Config, logger *log.Logger) (restaurants.Source, func() error) {
	switch cfg.APIMode {
	case config.ModeFirestore:
		client, err := database.NewFirestore(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentials)
		if err != nil {
			logger.Fatal("failed to initialise firestore", "err", err)
		}
		return restaurants.NewFirestoreSource(client, cfg.FirestoreCollection, logger), client.Close
	case config.ModePostgres:
		db, err := database.Connect(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", "err", err)
		}
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatal("failed to migrate database", "err", err)
		}
		return restaurants.NewPostgresSource(db, logger), db.Close
	default:
		logger.Info("serving the bundled catalog", "latency", cfg.MockLatency)
		return restaurants.NewMockSource(nil, cfg.MockLatency), nil
	}
}

// openStorage opens the device key-value store named by STORAGE_BACKEND.
func openStorage(cfg *config.Config, rdb *redis.Client, logger *log.Logger) (storage.KV, func() error) {
	switch cfg.StorageBackend {
	case config.StorageRedis:
		return storage.NewRedisStore(rdb, "chopfinder:kv:"), nil
	case config.StorageMemory:
		logger.Warn("device storage is in memory, preferences are lost on restart")
		return storage.NewMemoryStore(), nil
	default:
		store, err := storage.OpenSQLite(cfg.StoragePath)
		if err != nil {
			logger.Fatal("failed to open storage", "path", cfg.StoragePath, "err", err)
		}
		return store, store.Close
	}
}

// listenForCatalogChanges purges cached pages whenever a seed run writes restaurants.
func listenForCatalogChanges(conn *amqp.Connection, prefix string, source *restaurants.Cached, logger *log.Logger) {
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("failed to open amqp channel", "err", err)
		return
	}
	err = messaging.ListenToTopic(ch, prefix, messaging.CatalogChanged, logger, func(change messaging.CatalogChange) error {
		logger.Info("catalog changed, purging cache", "backend", change.Backend, "count", len(change.IDs))
		return source.Purge(context.Background())
	})
	if err != nil {
		logger.Error("failed to listen for catalog changes", "err", err)
		ch.Close()
	}
}
