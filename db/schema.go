// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported values for Config.DatabaseType.
const (
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// Open connects to the configured database and verifies the connection.
//
// SQLite connections are limited to a single open connection: SQLite allows
// one writer at a time and the vote/poll transactions rely on that
// serialization instead of SELECT ... FOR UPDATE.
func Open(ctx context.Context, dbType, url string) (*sqlx.DB, error) {
	driver := TypePostgres
	dsn := url
	if dbType == TypeSQLite {
		driver = TypeSQLite
		dsn = sqliteDSN(url)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == TypeSQLite {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	}

	return conn, nil
}

// sqliteDSN appends the pragmas every connection needs. Foreign keys are off
// by default in SQLite and poll deletion depends on ON DELETE CASCADE.
func sqliteDSN(url string) string {
	params := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
	if strings.Contains(url, "?") {
		return url + "&" + params
	}
	return url + "?" + params
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// The DDL sticks to the subset PostgreSQL and SQLite share: TEXT keys,
// explicit timestamps from the application, no server-side defaults for time.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		date_joined TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS voting_poll (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		due_date TIMESTAMP NOT NULL,
		has_ended BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_voting_poll_author ON voting_poll(author_id)`,

	`CREATE TABLE IF NOT EXISTS poll_option (
		id TEXT PRIMARY KEY,
		poll_id TEXT NOT NULL REFERENCES voting_poll(id) ON DELETE CASCADE,
		side TEXT NOT NULL CHECK (side IN ('A', 'B')),
		label TEXT NOT NULL,
		image_url TEXT NOT NULL,
		vote_count INTEGER NOT NULL DEFAULT 0 CHECK (vote_count >= 0),
		UNIQUE (poll_id, side)
	)`,

	`CREATE TABLE IF NOT EXISTS option_voter (
		option_id TEXT NOT NULL REFERENCES poll_option(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		voted_at TIMESTAMP NOT NULL,
		PRIMARY KEY (option_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_option_voter_user ON option_voter(user_id)`,

	`CREATE TABLE IF NOT EXISTS outstanding_token (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		jti TEXT NOT NULL UNIQUE,
		token TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS blacklisted_token (
		id TEXT PRIMARY KEY,
		token_id TEXT NOT NULL UNIQUE REFERENCES outstanding_token(id) ON DELETE CASCADE,
		blacklisted_at TIMESTAMP NOT NULL
	)`,
}
