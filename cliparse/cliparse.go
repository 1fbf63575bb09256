package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cookie names shared by the session manager and the handlers.
const (
	AccessCookieName  = "access_cookie"
	RefreshCookieName = "_refresh"
	CSRFCookieName    = "csrftoken"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	JWTSecret    string
	LogFile      string
	LogLevel     string
	Cookies      CookiePolicy
}

// CookiePolicy describes how session cookies are written and cleared.
type CookiePolicy struct {
	AccessName      string
	RefreshName     string
	Path            string
	Secure          bool
	HTTPOnly        bool
	SameSite        http.SameSite
	AccessLifetime  time.Duration
	RefreshLifetime time.Duration
}

// DefaultCookiePolicy returns secure, http-only, same-site lax cookies with a
// 5 minute access token and a 24 hour refresh token.
func DefaultCookiePolicy() CookiePolicy {
	return CookiePolicy{
		AccessName:      AccessCookieName,
		RefreshName:     RefreshCookieName,
		Path:            "/",
		Secure:          true,
		HTTPOnly:        true,
		SameSite:        http.SameSiteLaxMode,
		AccessLifetime:  5 * time.Minute,
		RefreshLifetime: 24 * time.Hour,
	}
}

// ParseFlags validates flags and falls back to environment variables.
// A .env file in the working directory is loaded first if present; variables
// already set in the environment are not overwritten.
func ParseFlags(args []string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{Cookies: DefaultCookiePolicy()}

	fs := flag.NewFlagSet("versus", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "JWT signing secret (prefer env)")

	var accessTTL, refreshTTL, sameSite string
	var insecure bool
	fs.StringVar(&accessTTL, "access-ttl", "", "Access token lifetime, e.g. 5m")
	fs.StringVar(&refreshTTL, "refresh-ttl", "", "Refresh token lifetime, e.g. 24h")
	fs.StringVar(&sameSite, "cookie-samesite", "", "SameSite mode for session cookies (lax, strict, none)")
	fs.BoolVar(&insecure, "cookie-insecure", false, "Send session cookies over plain HTTP (dev only)")

	fs.StringVar(&cfg.LogFile, "log-file", "", "Write logs to a rotating file instead of stdout")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	// Secrets - MUST be provided
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}

	if cfg.LogFile == "" {
		cfg.LogFile = os.Getenv("LOG_FILE")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = os.Getenv("LOG_LEVEL")
	}

	if err := parseLifetime(accessTTL, "ACCESS_TOKEN_LIFETIME", &cfg.Cookies.AccessLifetime); err != nil {
		return Config{}, err
	}
	if err := parseLifetime(refreshTTL, "REFRESH_TOKEN_LIFETIME", &cfg.Cookies.RefreshLifetime); err != nil {
		return Config{}, err
	}
	if cfg.Cookies.AccessLifetime >= cfg.Cookies.RefreshLifetime {
		return Config{}, errors.New("access token lifetime must be shorter than refresh token lifetime")
	}

	if sameSite == "" {
		sameSite = os.Getenv("COOKIE_SAMESITE")
	}
	if sameSite != "" {
		mode, err := parseSameSite(sameSite)
		if err != nil {
			return Config{}, err
		}
		cfg.Cookies.SameSite = mode
	}

	if !insecure {
		insecure, _ = strconv.ParseBool(os.Getenv("COOKIE_INSECURE"))
	}
	cfg.Cookies.Secure = !insecure

	return cfg, nil
}

func parseLifetime(flagValue, envName string, dst *time.Duration) error {
	v := flagValue
	if v == "" {
		v = os.Getenv(envName)
	}
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fmt.Errorf("invalid %s %q", envName, v)
	}
	*dst = d
	return nil
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(v) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	}
	return 0, fmt.Errorf("invalid cookie samesite mode %q", v)
}
