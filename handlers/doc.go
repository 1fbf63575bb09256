// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Versus API.

# Handler Types

Each handler is a struct holding its stores and the session manager:

  - AuthHandler: registration, login, session status, logout, token refresh
  - PollHandler: poll creation, listing, reads, ending and deletion
  - VotingHandler: vote toggling on either side of a poll

Handlers are created via constructor functions that accept the database and
Config:

	pollHandler := handlers.NewPollHandler(db, cfg)

# Sessions

Login and registration set two cookies, access_cookie and _refresh. Every
state-changing request re-validates the refresh cookie against the token
ledger; a missing, unknown, blacklisted or expired token is answered with
401 "request not allowed" whatever the cause.

	POST /register      → Register (201 "account created")
	POST /login         → Login (200 "login success", 401 "invalid credentials")
	GET  /isauth        → IsAuth
	POST /logout        → Logout (blacklists the refresh token, clears cookies)
	POST /token/refresh → Refresh (new access cookie)

# Polls

	GET    /poll_list → ListPolls (caller's polls)
	POST   /poll_list → CreatePoll (201, message is the new poll id)
	GET    /poll/{id} → GetPoll (public)
	PUT    /poll/{id} → UpdatePoll (author only, ended flag)
	DELETE /poll/{id} → DeletePoll (author only, 204)

Author-only routes answer 404, then 401, then 403, in that order.

# Voting

	POST /vote/vote_a/{poll_id}/{option_id} → VoteA
	POST /vote/vote_b/{poll_id}/{option_id} → VoteB

Each call toggles the caller's membership in the option's voter set: 201
"poll - A voted" when added, 200 "poll - A unvoted" when removed. The counter
and the voter set change in one transaction.
*/
package handlers
