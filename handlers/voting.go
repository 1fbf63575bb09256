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

type VotingHandler struct {
	votes    VoteStore
	sessions *auth.Sessions
	cfg      cliparse.Config
}

func NewVotingHandler(db *sqlx.DB, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{
		votes:    store.NewVotes(db),
		sessions: auth.NewSessions(store.NewLedger(db), cfg.JWTSecret, cfg.Cookies),
		cfg:      cfg,
	}
}

// VoteA handles POST /vote/vote_a/{poll_id}/{option_id}
func (h *VotingHandler) VoteA(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.SideA)
}

// VoteB handles POST /vote/vote_b/{poll_id}/{option_id}
func (h *VotingHandler) VoteB(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.SideB)
}

// toggle flips the caller's vote on one side of a poll: 201 when the vote was
// added, 200 when it was removed.
//
// Order of checks: the option must exist (404), the refresh cookie must be
// valid (401), and the access cookie must name the same user (401).
func (h *VotingHandler) toggle(w http.ResponseWriter, r *http.Request, side models.Side) {
	pollID := r.PathValue("poll_id")
	optionID := r.PathValue("option_id")

	err := h.votes.Resolve(r.Context(), pollID, optionID, side)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, msgOptionNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to resolve poll option", "poll_id", pollID, "option_id", optionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, msgInternal)
		return
	}

	entry, ok := requireSession(w, r, h.sessions, false)
	if !ok {
		return
	}
	claims, err := h.sessions.Identify(r)
	if err != nil {
		metrics.TokenRejections.WithLabelValues(auth.Reason(err)).Inc()
		slog.Info("vote rejected", "poll_id", pollID, "reason", auth.Reason(err))
		middleware.ErrorResponse(w, http.StatusUnauthorized, msgNotAllowed)
		return
	}
	if entry.UserID != claims.Subject {
		metrics.TokenRejections.WithLabelValues("mismatch").Inc()
		slog.Warn("access and refresh tokens belong to different users", "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusUnauthorized, msgNotAllowed)
		return
	}

	outcome, err := h.votes.Toggle(r.Context(), pollID, optionID, side, entry.UserID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, msgOptionNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to toggle vote", "poll_id", pollID, "option_id", optionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, msgInternal)
		return
	}

	metrics.VoteToggles.WithLabelValues(string(side), outcome.String()).Inc()
	slog.Info("vote toggled", "poll_id", pollID, "side", side, "outcome", outcome.String(), "user_id", entry.UserID)

	status := http.StatusCreated
	if outcome == models.Unvoted {
		status = http.StatusOK
	}
	middleware.MessageResponse(w, status, fmt.Sprintf("poll - %s %s", side, outcome))
}
