// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/danielhkuo/versus/cliparse"
	"github.com/danielhkuo/versus/models"
	"github.com/danielhkuo/versus/store"
)

// Refresh token validation failures. Callers answer all of them with the same
// 401; the distinction is kept for logs and metrics.
var (
	ErrTokenMissing     = errors.New("token cookie missing")
	ErrTokenUnknown     = errors.New("token not issued by this server")
	ErrTokenBlacklisted = errors.New("token blacklisted")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenInvalid     = errors.New("token invalid")
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims are carried by both access and refresh tokens.
type Claims struct {
	Type     string `json:"typ"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenPair is a freshly issued access and refresh token.
type TokenPair struct {
	Access  string
	Refresh string
}

// TokenLedger persists issued refresh tokens and their revocation.
// store.Ledger implements it.
type TokenLedger interface {
	Record(ctx context.Context, tok models.OutstandingToken) (models.OutstandingToken, error)
	Lookup(ctx context.Context, token string) (models.LedgerEntry, error)
	Blacklist(ctx context.Context, tokenID string, at time.Time) error
}

// Sessions issues, validates and revokes cookie-borne JWT sessions.
type Sessions struct {
	ledger TokenLedger
	secret []byte
	policy cliparse.CookiePolicy
	now    func() time.Time
}

func NewSessions(ledger TokenLedger, secret string, policy cliparse.CookiePolicy) *Sessions {
	return &Sessions{
		ledger: ledger,
		secret: []byte(secret),
		policy: policy,
		now:    time.Now,
	}
}

// Policy returns the cookie policy sessions are written with.
func (s *Sessions) Policy() cliparse.CookiePolicy {
	return s.policy
}

func (s *Sessions) sign(userID, username, typ string, issued time.Time, lifetime time.Duration) (string, string, error) {
	jti := uuid.NewString()
	claims := Claims{
		Type:     typ,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(lifetime)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, jti, nil
}

// Issue creates a token pair for user and records the refresh token in the
// ledger as outstanding.
func (s *Sessions) Issue(ctx context.Context, user models.User) (TokenPair, error) {
	now := s.now().UTC()

	refresh, jti, err := s.sign(user.ID, user.Username, TypeRefresh, now, s.policy.RefreshLifetime)
	if err != nil {
		return TokenPair{}, err
	}
	access, _, err := s.sign(user.ID, user.Username, TypeAccess, now, s.policy.AccessLifetime)
	if err != nil {
		return TokenPair{}, err
	}

	_, err = s.ledger.Record(ctx, models.OutstandingToken{
		UserID:    user.ID,
		JTI:       jti,
		Token:     refresh,
		CreatedAt: now,
		ExpiresAt: now.Add(s.policy.RefreshLifetime),
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}

	return TokenPair{Access: access, Refresh: refresh}, nil
}

// RefreshAccess issues a new access token for the owner of a valid refresh
// token.
func (s *Sessions) RefreshAccess(entry models.LedgerEntry) (string, error) {
	access, _, err := s.sign(entry.UserID, entry.Username, TypeAccess, s.now().UTC(), s.policy.AccessLifetime)
	return access, err
}

// Validate checks the refresh cookie of r against the ledger.
func (s *Sessions) Validate(ctx context.Context, r *http.Request) (models.LedgerEntry, error) {
	c, err := r.Cookie(s.policy.RefreshName)
	if err != nil || c.Value == "" {
		return models.LedgerEntry{}, ErrTokenMissing
	}
	return s.ValidateToken(ctx, c.Value)
}

// ValidateToken checks a refresh token against the ledger. A token is valid
// only if it was issued here, is not blacklisted and has not expired.
func (s *Sessions) ValidateToken(ctx context.Context, token string) (models.LedgerEntry, error) {
	entry, err := s.ledger.Lookup(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return models.LedgerEntry{}, ErrTokenUnknown
	}
	if err != nil {
		return models.LedgerEntry{}, fmt.Errorf("validate token: %w", err)
	}
	if entry.Blacklisted {
		return models.LedgerEntry{}, ErrTokenBlacklisted
	}
	if !s.now().Before(entry.ExpiresAt) {
		return models.LedgerEntry{}, ErrTokenExpired
	}
	return entry, nil
}

// Revoke blacklists a validated refresh token and clears both cookies.
// Revoking an already blacklisted token is a no-op.
func (s *Sessions) Revoke(ctx context.Context, w http.ResponseWriter, entry models.LedgerEntry) error {
	s.ClearCookies(w)
	if err := s.ledger.Blacklist(ctx, entry.ID, s.now().UTC()); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Identify parses the access cookie of r and returns its claims.
func (s *Sessions) Identify(r *http.Request) (*Claims, error) {
	c, err := r.Cookie(s.policy.AccessName)
	if err != nil || c.Value == "" {
		return nil, ErrTokenMissing
	}
	return s.parse(c.Value, TypeAccess)
}

func (s *Sessions) parse(token, typ string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.Type != typ || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (s *Sessions) cookie(name, value string, lifetime time.Duration, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     s.policy.Path,
		Expires:  s.now().Add(lifetime),
		MaxAge:   int(lifetime.Seconds()),
		Secure:   s.policy.Secure,
		HttpOnly: httpOnly,
		SameSite: s.policy.SameSite,
	}
}

// SetCookies writes the access and refresh cookies for pair.
func (s *Sessions) SetCookies(w http.ResponseWriter, pair TokenPair) {
	http.SetCookie(w, s.cookie(s.policy.AccessName, pair.Access, s.policy.AccessLifetime, s.policy.HTTPOnly))
	http.SetCookie(w, s.cookie(s.policy.RefreshName, pair.Refresh, s.policy.RefreshLifetime, s.policy.HTTPOnly))
}

// SetAccessCookie replaces only the access cookie.
func (s *Sessions) SetAccessCookie(w http.ResponseWriter, access string) {
	http.SetCookie(w, s.cookie(s.policy.AccessName, access, s.policy.AccessLifetime, s.policy.HTTPOnly))
}

// SetCSRFCookie writes the CSRF token cookie. It is readable by scripts.
func (s *Sessions) SetCSRFCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, s.cookie(cliparse.CSRFCookieName, token, 365*24*time.Hour, false))
}

// ClearCookies expires both session cookies on the client.
func (s *Sessions) ClearCookies(w http.ResponseWriter) {
	for _, name := range []string{s.policy.AccessName, s.policy.RefreshName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     s.policy.Path,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			Secure:   s.policy.Secure,
			HttpOnly: s.policy.HTTPOnly,
			SameSite: s.policy.SameSite,
		})
	}
}

// Reason returns a short label for a validation error, for logs and metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return "missing"
	case errors.Is(err, ErrTokenUnknown):
		return "unknown"
	case errors.Is(err, ErrTokenBlacklisted):
		return "blacklisted"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenInvalid):
		return "invalid"
	}
	return "error"
}
