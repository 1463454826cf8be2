package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"

	"chopfinder/config"
	"chopfinder/database"
	"chopfinder/logging"
	"chopfinder/messaging"
	"chopfinder/restaurants"
	"chopfinder/worker"
)

var (
	seedAll = flag.Bool("all", false, "upload the full generated catalog instead of the curated restaurants")
	workers = flag.Int("workers", worker.WorkerPoolSize, "concurrent batch writers")
)

// main uploads the bundled catalog to the configured remote backend and announces the
// change so running servers drop their cached pages.
func main() {
	flag.Parse()

	cfg, _ := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var writer restaurants.Writer
	switch cfg.APIMode {
	case config.ModeFirestore:
		client, err := database.NewFirestore(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentials)
		if err != nil {
			logger.Fatal("failed to initialise firestore", "err", err)
		}
		defer client.Close()
		writer = restaurants.NewFirestoreSource(client, cfg.FirestoreCollection, logger)
	case config.ModePostgres:
		db, err := database.Connect(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", "err", err)
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatal("failed to migrate database", "err", err)
		}
		writer = restaurants.NewPostgresSource(db, logger)
	default:
		logger.Fatal("nothing to seed in mock mode, set API_MODE to firestore or postgres")
	}

	list := restaurants.Curated()
	if *seedAll {
		list = restaurants.Dataset()
	}

	seeder := worker.NewSeeder(writer, cfg.APIMode, logger)
	seeder.Workers = *workers

	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Warn("rabbitmq unavailable, servers keep cached pages until they expire", "err", err)
		} else {
			defer conn.Close()
			seeder.Notifier = &messaging.Publisher{Conn: conn, Prefix: cfg.AMQPPrefix}
		}
	}

	n, err := seeder.Run(ctx, list)
	if err != nil {
		logger.Error("seeding incomplete", "stored", n, "total", len(list), "err", err)
		os.Exit(1)
	}
	logger.Info("seeding complete", "stored", n)
}
