// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
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

type PollHandler struct {
	polls    PollStore
	sessions *auth.Sessions
	cfg      cliparse.Config
}

func NewPollHandler(db *sqlx.DB, cfg cliparse.Config) *PollHandler {
	return &PollHandler{
		polls:    store.NewPolls(db),
		sessions: auth.NewSessions(store.NewLedger(db), cfg.JWTSecret, cfg.Cookies),
		cfg:      cfg,
	}
}

// ListPolls handles GET /poll_list
// Returns the polls owned by the holder of the refresh cookie.
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	entry, ok := requireSession(w, r, h.sessions, false)
	if !ok {
		return
	}

	details, err := h.polls.ListByAuthor(r.Context(), entry.UserID)
	if err != nil {
		slog.Error("failed to list polls", "user_id", entry.UserID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, msgInternal)
		return
	}

	resp := models.PollListResponse{Polls: make([]models.PollResult, 0, len(details))}
	for _, d := range details {
		resp.Polls = append(resp.Polls, models.NewPollResult(d))
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// CreatePoll handles POST /poll_list
// Both options are validated before anything is written; the poll and its
// options are then inserted in one transaction.
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	entry, ok := requireSession(w, r, h.sessions, false)
	if !ok {
		return
	}

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	a, b := req.Options()
	fields := map[string]string{}
	for k, v := range middleware.Validate(a) {
		fields[k] = v
	}
	for k, v := range middleware.Validate(b) {
		fields[k] = v
	}
	if len(fields) > 0 {
		middleware.ValidationErrorResponse(w, fields)
		return
	}

	pollID, err := h.polls.Create(r.Context(), entry.UserID,
		models.NewOption{Label: a.Label, ImageURL: a.ImageURL},
		models.NewOption{Label: b.Label, ImageURL: b.ImageURL},
		auth.GeneratePollID,
	)
	if err != nil {
		slog.Error("failed to create poll", "user_id", entry.UserID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	slog.Info("poll created", "poll_id", pollID, "author", entry.Username)
	metrics.PollsCreated.Inc()

	middleware.MessageResponse(w, http.StatusCreated, pollID)
}

// GetPoll handles GET /poll/{id}
// Public: tallies and voter sets of both options, read from one snapshot.
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	detail, err := h.polls.Get(r.Context(), pollID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, msgPollNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to get poll", "poll_id", pollID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, msgInternal)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollResultResponse{Message: models.NewPollResult(detail)})
}

// authorize loads the poll, validates the session and checks authorship,
// in that order. On failure it writes the response and returns false.
func (h *PollHandler) authorize(w http.ResponseWriter, r *http.Request, pollID string) bool {
	poll, err := h.polls.Poll(r.Context(), pollID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, msgPollNotFound)
		return false
	}
	if err != nil {
		slog.Error("failed to get poll", "poll_id", pollID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, msgInternal)
		return false
	}

	entry, ok := requireSession(w, r, h.sessions, false)
	if !ok {
		return false
	}

	if poll.AuthorID != entry.UserID {
		slog.Warn("non-author poll mutation rejected", "poll_id", pollID, "user_id", entry.UserID)
		middleware.ErrorResponse(w, http.StatusForbidden, msgNotAuthor)
		return false
	}
	return true
}

// UpdatePoll handles PUT /poll/{id}
// Only the ended flag can change.
func (h *PollHandler) UpdatePoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if !h.authorize(w, r, pollID) {
		return
	}

	var req models.UpdatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	ended, ok := req.Ended()
	if !ok {
		middleware.ValidationErrorResponse(w, map[string]string{"poll_has_ended": "This field is required."})
		return
	}

	err := h.polls.SetEnded(r.Context(), pollID, ended)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, msgPollNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to update poll", "poll_id", pollID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, msgInternal)
		return
	}

	slog.Info("poll updated", "poll_id", pollID, "has_ended", ended)

	msg := msgPollUpdated
	if ended {
		msg = msgPollExpired
	}
	middleware.MessageResponse(w, http.StatusOK, msg)
}

// DeletePoll handles DELETE /poll/{id}
func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if !h.authorize(w, r, pollID) {
		return
	}

	err := h.polls.Delete(r.Context(), pollID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, msgPollNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to delete poll", "poll_id", pollID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, msgInternal)
		return
	}

	slog.Info("poll deleted", "poll_id", pollID)
	w.WriteHeader(http.StatusNoContent)
}
