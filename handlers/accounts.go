// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/versus/auth"
	"github.com/danielhkuo/versus/cliparse"
	"github.com/danielhkuo/versus/metrics"
	"github.com/danielhkuo/versus/middleware"
	"github.com/danielhkuo/versus/models"
	"github.com/danielhkuo/versus/store"
)

type AuthHandler struct {
	users    UserStore
	sessions *auth.Sessions
	cfg      cliparse.Config
}

func NewAuthHandler(db *sqlx.DB, cfg cliparse.Config) *AuthHandler {
	return &AuthHandler{
		users:    store.NewUsers(db),
		sessions: auth.NewSessions(store.NewLedger(db), cfg.JWTSecret, cfg.Cookies),
		cfg:      cfg,
	}
}

// issueSession issues a token pair, sets both cookies and writes message.
func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, user models.User, status int, message string) {
	pair, err := h.sessions.Issue(r.Context(), user)
	if err != nil {
		slog.Error("failed to issue session", "user_id", user.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, msgInternal)
		return
	}

	h.sessions.SetCookies(w, pair)
	middleware.MessageResponse(w, status, message)
}

// Register handles POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	req.Email = auth.NormalizeEmail(req.Email)

	if fields := middleware.Validate(req); fields != nil {
		middleware.ValidationErrorResponse(w, fields)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		middleware.ValidationErrorResponse(w, map[string]string{
			"password": fmt.Sprintf("Ensure this field has at least %d characters.", auth.MinPasswordLength),
		})
		return
	}
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	user, err := h.users.Create(r.Context(), req.Email, hash, auth.GenerateUsername)
	if errors.Is(err, store.ErrEmailTaken) {
		middleware.ValidationErrorResponse(w, map[string]string{"email": msgEmailRegistered})
		return
	}
	if err != nil {
		slog.Error("failed to create user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	metrics.AuthEvents.WithLabelValues("register").Inc()

	h.issueSession(w, r, user, http.StatusCreated, msgAccountCreated)
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	user, err := auth.Authenticate(r.Context(), h.users, req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		metrics.AuthEvents.WithLabelValues("login_failed").Inc()
		middleware.ErrorResponse(w, http.StatusUnauthorized, msgInvalidCreds)
		return
	}
	if err != nil {
		slog.Error("failed to authenticate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, msgInternal)
		return
	}

	metrics.AuthEvents.WithLabelValues("login").Inc()
	h.issueSession(w, r, user, http.StatusOK, msgLoginSuccess)
}

// IsAuth handles GET /isauth
// Always 200. Reports whether the refresh cookie is a valid session and hands
// out the CSRF token, reusing the one the client already holds.
func (h *AuthHandler) IsAuth(w http.ResponseWriter, r *http.Request) {
	csrf := ""
	if c, err := r.Cookie(cliparse.CSRFCookieName); err == nil && c.Value != "" {
		csrf = c.Value
	} else {
		csrf, err = auth.GenerateSecret()
		if err != nil {
			slog.Error("failed to generate csrf token", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to generate token")
			return
		}
	}
	h.sessions.SetCSRFCookie(w, csrf)

	status := models.AuthStatus{CSRF: csrf}
	entry, err := h.sessions.Validate(r.Context(), r)
	switch {
	case err == nil:
		status.IsAuthenticated = true
		status.Username = &entry.Username
	case auth.Reason(err) == "error":
		slog.Error("failed to validate session", "error", err)
	}

	middleware.JSONResponse(w, http.StatusOK, models.AuthStatusResponse{Message: status})
}

// Logout handles POST /logout
// Blacklists the refresh token. Cookies are cleared even when the token is
// rejected.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	entry, ok := requireSession(w, r, h.sessions, true)
	if !ok {
		return
	}

	if err := h.sessions.Revoke(r.Context(), w, entry); err != nil {
		slog.Error("failed to revoke token", "token_id", entry.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, msgInternal)
		return
	}

	slog.Info("user logged out", "user_id", entry.UserID)
	metrics.AuthEvents.WithLabelValues("logout").Inc()

	middleware.MessageResponse(w, http.StatusOK, msgLogout)
}

// Refresh handles POST /token/refresh
// Issues a new access cookie for a valid refresh cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	entry, ok := requireSession(w, r, h.sessions, false)
	if !ok {
		return
	}

	access, err := h.sessions.RefreshAccess(entry)
	if err != nil {
		slog.Error("failed to refresh access token", "user_id", entry.UserID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to refresh token")
		return
	}

	h.sessions.SetAccessCookie(w, access)
	metrics.AuthEvents.WithLabelValues("refresh").Inc()

	middleware.MessageResponse(w, http.StatusOK, msgTokenRefreshed)
}
