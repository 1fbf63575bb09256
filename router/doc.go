// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Versus API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg)

# Endpoints

Operational:

	GET /health  - Liveness check
	GET /metrics - Prometheus metrics

Accounts (register and login are rate limited per client IP):

	POST /register      - Create account
	POST /login         - Log in, sets session cookies
	GET  /isauth        - Session status
	POST /logout        - Revoke refresh token, clear cookies
	POST /token/refresh - New access cookie

Polls:

	GET    /poll_list - Caller's polls
	POST   /poll_list - Create poll
	GET    /poll/{id} - Poll with tallies and voters
	PUT    /poll/{id} - End poll (author)
	DELETE /poll/{id} - Delete poll (author)

Voting:

	POST /vote/vote_a/{poll_id}/{option_id} - Toggle vote on side A
	POST /vote/vote_b/{poll_id}/{option_id} - Toggle vote on side B

# Handler Initialization

The router creates handler instances with dependency injection:

	authHandler := handlers.NewAuthHandler(db, cfg)
	pollHandler := handlers.NewPollHandler(db, cfg)
	votingHandler := handlers.NewVotingHandler(db, cfg)

All handlers receive the database connection and configuration.
*/
package router
