// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/time/rate"

	"github.com/danielhkuo/versus/cliparse"
	"github.com/danielhkuo/versus/handlers"
	"github.com/danielhkuo/versus/metrics"
	"github.com/danielhkuo/versus/middleware"
)

// Credential endpoints allow a burst of 10 attempts per client, refilled at
// one per second.
const (
	credentialBurst = 10
	credentialIdle  = 10 * time.Minute
)

var credentialRate = rate.Every(time.Second)

func NewRouter(db *sqlx.DB, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	pollHandler := handlers.NewPollHandler(db, cfg)
	votingHandler := handlers.NewVotingHandler(db, cfg)

	limiter := middleware.NewRateLimiter(credentialRate, credentialBurst, credentialIdle)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	// Accounts and sessions
	mux.HandleFunc("POST /register", middleware.WithLogging(limiter.Limit(authHandler.Register)))
	mux.HandleFunc("POST /login", middleware.WithLogging(limiter.Limit(authHandler.Login)))
	mux.HandleFunc("GET /isauth", middleware.WithLogging(authHandler.IsAuth))
	mux.HandleFunc("POST /logout", middleware.WithLogging(authHandler.Logout))
	mux.HandleFunc("POST /token/refresh", middleware.WithLogging(authHandler.Refresh))

	// Polls
	mux.HandleFunc("GET /poll_list", middleware.WithLogging(pollHandler.ListPolls))
	mux.HandleFunc("POST /poll_list", middleware.WithLogging(pollHandler.CreatePoll))
	mux.HandleFunc("GET /poll/{id}", middleware.WithLogging(pollHandler.GetPoll))
	mux.HandleFunc("PUT /poll/{id}", middleware.WithLogging(pollHandler.UpdatePoll))
	mux.HandleFunc("DELETE /poll/{id}", middleware.WithLogging(pollHandler.DeletePoll))

	// Voting
	mux.HandleFunc("POST /vote/vote_a/{poll_id}/{option_id}", middleware.WithLogging(votingHandler.VoteA))
	mux.HandleFunc("POST /vote/vote_b/{poll_id}/{option_id}", middleware.WithLogging(votingHandler.VoteB))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("versus API v1"))
	})

	return mux
}
