// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Drivers

Open selects the driver from the configured database type:

	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)

  - postgres: github.com/lib/pq
  - sqlite: modernc.org/sqlite (pure Go, used for development and tests)

SQLite connections get foreign_keys, busy_timeout and WAL pragmas and the
pool is capped at one connection.

# Schema Creation

	if err := db.CreateSchema(ctx, conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - users: credentials (unique username, unique email, bcrypt hash)
  - voting_poll: public poll id, author, due date, ended flag
  - poll_option: exactly one row per side (A, B) per poll, with vote_count
  - option_voter: voter set of an option
  - outstanding_token: issued refresh tokens
  - blacklisted_token: revoked refresh tokens

# Relationships

	users 1──* voting_poll (author)
	voting_poll 1──2 poll_option
	poll_option *──* users (via option_voter)
	users 1──* outstanding_token 1──0..1 blacklisted_token

All foreign keys use ON DELETE CASCADE.
*/
package db
