package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/lib/pq"
)

// Connect opens the PostgreSQL catalog database, tuned for serverless hosts that
// suspend idle compute.
func Connect(connStr string, logger *log.Logger) (*sql.DB, error) {
	if connStr == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		logger.Warn("database ping failed, proceeding carefully", "err", err)
	}

	// Holding idle connections keeps suspended compute awake.
	db.SetMaxIdleConns(0)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("connected to PostgreSQL")
	return db, nil
}

// Migrate creates the restaurants table and its indexes. seq records catalog order and
// breaks ties between equal sort keys.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS restaurants (
			seq             BIGSERIAL UNIQUE,
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			image           TEXT NOT NULL DEFAULT '',
			cuisine         TEXT[] NOT NULL DEFAULT '{}',
			delivery_min    INTEGER NOT NULL,
			delivery_max    INTEGER NOT NULL,
			rating          DOUBLE PRECISION NOT NULL,
			price_range     SMALLINT NOT NULL CHECK (price_range BETWEEN 1 AND 4),
			dietary_options TEXT[] NOT NULL DEFAULT '{}',
			is_open         BOOLEAN NOT NULL,
			latitude        DOUBLE PRECISION NOT NULL,
			longitude       DOUBLE PRECISION NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_restaurants_rating   ON restaurants(rating DESC, seq);
		CREATE INDEX IF NOT EXISTS idx_restaurants_delivery ON restaurants(delivery_min, seq);
		CREATE INDEX IF NOT EXISTS idx_restaurants_price    ON restaurants(price_range, seq);
		CREATE INDEX IF NOT EXISTS idx_restaurants_cuisine  ON restaurants USING GIN (cuisine);
		CREATE INDEX IF NOT EXISTS idx_restaurants_dietary  ON restaurants USING GIN (dietary_options);
	`)
	if err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}
