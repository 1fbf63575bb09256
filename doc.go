// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Versus API server.

Versus is an "A vs B" polling service. Registered users create polls with
exactly two options and toggle votes on either side; every poll is publicly
readable with its tallies and voter names.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=versus.db JWT_SECRET=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." --jwt-secret ...

A .env file in the working directory is loaded if present.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file path or PostgreSQL connection string
  - JWT_SECRET (--jwt-secret): HS256 signing secret for session tokens

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - ACCESS_TOKEN_LIFETIME, REFRESH_TOKEN_LIFETIME: default 5m and 24h
  - COOKIE_SAMESITE, --cookie-insecure: cookie policy
  - LOG_FILE, LOG_LEVEL: rotating JSON log file and level

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (accounts, polls, voting)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers, validation, rate limiting
  - store: SQL access and the transactional vote toggle
  - auth: Passwords, identifiers, JWT sessions
  - metrics: Prometheus counters
  - models: Request/response and domain types
  - db: Connection and schema creation
  - cliparse: Configuration parsing

Responses are gzip-compressed when the client accepts it. See package
documentation for each component.
*/
package main
