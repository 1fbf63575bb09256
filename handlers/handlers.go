// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/versus/auth"
	"github.com/danielhkuo/versus/metrics"
	"github.com/danielhkuo/versus/middleware"
	"github.com/danielhkuo/versus/models"
)

// Message bodies the web client matches on.
const (
	msgAccountCreated  = "account created"
	msgLoginSuccess    = "login success"
	msgInvalidCreds    = "invalid credentials"
	msgNotAllowed      = "request not allowed"
	msgLogout          = "user logout"
	msgTokenRefreshed  = "token refreshed"
	msgPollExpired     = "poll expired"
	msgPollUpdated     = "poll updated"
	msgPollNotFound    = "poll not found"
	msgOptionNotFound  = "poll option not found"
	msgNotAuthor       = "only the author can modify this poll"
	msgInvalidJSON     = "Invalid JSON"
	msgInternal        = "Database error"
	msgEmailRegistered = "user with this email already exists."
)

// UserStore is the credential store used by registration and login.
type UserStore interface {
	auth.UserFinder
	Create(ctx context.Context, email, passwordHash string, nextUsername func() (string, error)) (models.User, error)
}

// PollStore is the poll aggregate store.
type PollStore interface {
	Create(ctx context.Context, authorID string, a, b models.NewOption, nextID func() (string, error)) (string, error)
	Poll(ctx context.Context, pollID string) (models.Poll, error)
	Get(ctx context.Context, pollID string) (models.PollDetail, error)
	ListByAuthor(ctx context.Context, authorID string) ([]models.PollDetail, error)
	SetEnded(ctx context.Context, pollID string, ended bool) error
	Delete(ctx context.Context, pollID string) error
}

// VoteStore applies vote toggles.
type VoteStore interface {
	Resolve(ctx context.Context, pollID, optionID string, side models.Side) error
	Toggle(ctx context.Context, pollID, optionID string, side models.Side, userID string) (models.VoteOutcome, error)
}

// requireSession validates the refresh cookie. On failure it writes the
// response and returns false. clear also expires the session cookies.
func requireSession(w http.ResponseWriter, r *http.Request, sessions *auth.Sessions, clear bool) (models.LedgerEntry, bool) {
	entry, err := sessions.Validate(r.Context(), r)
	if err == nil {
		return entry, true
	}

	reason := auth.Reason(err)
	if reason == "error" {
		slog.Error("failed to validate session", "path", r.URL.Path, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, msgInternal)
		return models.LedgerEntry{}, false
	}

	metrics.TokenRejections.WithLabelValues(reason).Inc()
	slog.Info("session rejected", "path", r.URL.Path, "reason", reason)
	if clear {
		sessions.ClearCookies(w)
	}
	middleware.ErrorResponse(w, http.StatusUnauthorized, msgNotAllowed)
	return models.LedgerEntry{}, false
}
