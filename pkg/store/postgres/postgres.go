// Package postgres implements the relational store backend on PostgreSQL.
//
// The schema is created on startup with CREATE TABLE IF NOT EXISTS; there is
// no external migration step. An empty database is populated with the
// canonical seed dataset so a fresh deployment comes up usable.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/guluwater/navadmin/pkg/nav"
	"github.com/guluwater/navadmin/pkg/store"
)

// Config holds the connection parameters for the relational backend.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// MaxConns bounds the pool. Zero means the default of 10.
	MaxConns       int
	ConnectTimeout time.Duration
}

// DSN renders the lib/pq connection string.
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// Store is the PostgreSQL-backed implementation of store.Store.
type Store struct {
	db *sql.DB
}

// New opens the connection pool, verifies connectivity, creates missing
// tables and installs the seed dataset when the database is empty. A nil
// seed skips seeding entirely.
func New(cfg Config, seed *store.SeedData) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(30 * time.Minute)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	if seed != nil {
		if err := s.seedIfEmpty(ctx, seed); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to seed database: %w", err)
		}
	}
	return s, nil
}

// NewWithDB wraps an existing connection without touching the schema.
// Intended for tests driving the store through sqlmock.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Backend() store.Backend { return store.BackendRelational }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return nav.TransientStore("database unreachable", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Stats exposes the connection pool statistics for gauge export.
func (s *Store) Stats() sql.DBStats { return s.db.Stats() }

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sites (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		category_id BIGINT REFERENCES categories(id) ON DELETE SET NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		click_count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sites_category ON sites (category_id)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'viewer',
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		id BIGSERIAL PRIMARY KEY,
		key TEXT NOT NULL UNIQUE,
		value TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT 'string',
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS access_logs (
		id BIGSERIAL PRIMARY KEY,
		site_id BIGINT NOT NULL,
		category_id BIGINT,
		visited_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		referer TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_access_logs_visited_at ON access_logs (visited_at)`,
	`CREATE INDEX IF NOT EXISTS idx_access_logs_site ON access_logs (site_id)`,
	`CREATE TABLE IF NOT EXISTS visit_trends (
		id BIGSERIAL PRIMARY KEY,
		date_key TEXT NOT NULL,
		hour SMALLINT,
		visit_count BIGINT NOT NULL DEFAULT 0,
		unique_visitors BIGINT NOT NULL DEFAULT 0,
		page_views BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_visit_trends_bucket ON visit_trends (date_key, COALESCE(hour, -1))`,
	`CREATE TABLE IF NOT EXISTS category_stats (
		id BIGSERIAL PRIMARY KEY,
		category_id BIGINT NOT NULL,
		date_key TEXT NOT NULL,
		click_count BIGINT NOT NULL DEFAULT 0,
		unique_visitors BIGINT NOT NULL DEFAULT 0,
		UNIQUE (category_id, date_key)
	)`,
	`CREATE TABLE IF NOT EXISTS activity_logs (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		action_type TEXT NOT NULL,
		target_type TEXT NOT NULL DEFAULT '',
		target_id BIGINT,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_logs_created ON activity_logs (created_at)`,
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// seedIfEmpty installs seed when the categories table has no rows. The check
// and the inserts run in one transaction so two racing processes cannot
// double-seed.
func (s *Store) seedIfEmpty(ctx context.Context, seed *store.SeedData) error {
	if err := seed.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	var count int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	categoryIDs := make(map[string]int64, len(seed.Categories))
	for _, c := range seed.Categories {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO categories (name, description, icon, sort_order) VALUES ($1, $2, $3, $4) RETURNING id`,
			c.Name, c.Description, c.Icon, c.SortOrder).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to seed category %q: %w", c.Name, err)
		}
		categoryIDs[c.Name] = id
	}
	for _, site := range seed.Sites {
		var categoryID interface{}
		if site.Category != "" {
			categoryID = categoryIDs[site.Category]
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sites (name, url, description, icon, category_id, sort_order) VALUES ($1, $2, $3, $4, $5, $6)`,
			site.Name, site.URL, site.Description, site.Icon, categoryID, site.SortOrder)
		if err != nil {
			return fmt.Errorf("failed to seed site %q: %w", site.Name, err)
		}
	}
	for _, u := range seed.Users {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, email, password_hash, role) VALUES ($1, $2, $3, $4) ON CONFLICT (username) DO NOTHING`,
			u.Username, u.Email, u.PasswordHash, u.Role)
		if err != nil {
			return fmt.Errorf("failed to seed user %q: %w", u.Username, err)
		}
	}
	for _, st := range seed.Settings {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value, type, description) VALUES ($1, $2, $3, $4) ON CONFLICT (key) DO NOTHING`,
			st.Key, st.Value, st.Type, st.Description)
		if err != nil {
			return fmt.Errorf("failed to seed setting %q: %w", st.Key, err)
		}
	}
	return tx.Commit()
}

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

// mapWriteError translates driver failures into the store error taxonomy.
func mapWriteError(err error, conflictMsg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return nav.Conflictf("%s", conflictMsg)
	}
	return nav.TransientStore("database write failed", err)
}
