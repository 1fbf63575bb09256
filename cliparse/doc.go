// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

A .env file in the working directory is loaded before flags are read.
Values already present in the environment are left alone.

# CLI Flags

	-p                 Server port (default 3318)
	-d                 Database URL
	-t                 Database type: sqlite (default) or postgres
	--jwt-secret       Token signing secret
	--access-ttl       Access token lifetime (default 5m)
	--refresh-ttl      Refresh token lifetime (default 24h)
	--cookie-samesite  lax (default), strict or none
	--cookie-insecure  Drop the Secure attribute (local HTTP only)
	--log-file         Rotating log file
	--log-level        debug, info, warn, error

# Environment Variables

	PORT, DATABASE_URL, DATABASE_TYPE, JWT_SECRET,
	ACCESS_TOKEN_LIFETIME, REFRESH_TOKEN_LIFETIME,
	COOKIE_SAMESITE, COOKIE_INSECURE, LOG_FILE, LOG_LEVEL

CLI flags take precedence over environment variables.

# Cookie Policy

Session cookie attributes live in Config.Cookies (a CookiePolicy) and are
consumed by auth.Sessions. Both cookies are http-only and carry an explicit
expiry equal to the lifetime of the token they hold.
*/
package cliparse
