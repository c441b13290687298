package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB holds the connection pool.
type DB struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewDB creates and pings a connection pool.
func NewDB(ctx context.Context, connString string, baseLogger *zerolog.Logger) (*DB, error) {
	log := baseLogger.With().Str("component", "postgres").Logger()

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse DB connection string")
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create connection pool")
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to ping database")
		pool.Close()
		return nil, err
	}

	log.Info().Int32("max_conns", poolConfig.MaxConns).Msg("Database connection pool established")
	return &DB{pool: pool, log: log}, nil
}

// EnsureSchema creates the hub tables if they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		db.log.Error().Err(err).Msg("Failed to create schema")
		return fmt.Errorf("could not create schema: %w", err)
	}
	return nil
}

// Close gracefully closes the connection pool.
func (db *DB) Close() {
	db.log.Info().Msg("Closing database connection pool")
	db.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS hub_users (
	phone      TEXT PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS hub_groups (
	id            BIGINT PRIMARY KEY,
	group_type    TEXT    NOT NULL,
	name          TEXT    NOT NULL,
	creator_phone TEXT    NOT NULL,
	capacity      INTEGER NOT NULL,
	status        TEXT    NOT NULL,
	parent_id     BIGINT  NOT NULL DEFAULT -1
);

CREATE TABLE IF NOT EXISTS hub_memberships (
	group_id BIGINT  NOT NULL REFERENCES hub_groups (id) ON DELETE CASCADE,
	phone    TEXT    NOT NULL,
	is_admin BOOLEAN NOT NULL,
	PRIMARY KEY (group_id, phone)
);

CREATE TABLE IF NOT EXISTS hub_contacts (
	owner_phone   TEXT NOT NULL,
	contact_phone TEXT NOT NULL,
	PRIMARY KEY (owner_phone, contact_phone)
);

CREATE TABLE IF NOT EXISTS hub_posts (
	id              BIGINT PRIMARY KEY,
	group_id        BIGINT  NOT NULL REFERENCES hub_groups (id) ON DELETE CASCADE,
	poster_phone    TEXT    NOT NULL,
	reply_to_id     BIGINT  NOT NULL DEFAULT -1,
	is_announcement BOOLEAN NOT NULL,
	body            TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS hub_audit (
	group_id      BIGINT  NOT NULL REFERENCES hub_groups (id) ON DELETE CASCADE,
	seq           INTEGER NOT NULL,
	action        TEXT    NOT NULL,
	actor_phone   TEXT    NOT NULL,
	subject_phone TEXT    NOT NULL DEFAULT '',
	post_id       BIGINT  NOT NULL DEFAULT 0,
	PRIMARY KEY (group_id, seq)
);
`
