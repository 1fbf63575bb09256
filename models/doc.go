// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

  - RegisterRequest: email, password (8-72 characters)
  - LoginRequest: email, password
  - CreatePollRequest: voting_a_poll / voting_b_poll or flat poll_A, image_A, poll_B, image_B
  - UpdatePollRequest: poll_has_ended (or poll_expired)

Validation rules are expressed as validate struct tags and checked by
middleware.Validate.

# Response Types

Each endpoint has its own fixed projection; nothing is filtered at runtime:

  - MessageResponse: {"message": "..."}
  - AuthStatusResponse: csrf, IsAuthenticated, username
  - PollResultResponse / PollListResponse: PollResult with poll_a and poll_b
  - ErrorResponse / ValidationErrorResponse

# Domain Types

  - User, Poll, Option, Voter, PollDetail
  - OutstandingToken, LedgerEntry

# Constants

	SideA, SideB       option sides
	Voted, Unvoted     vote toggle outcomes
*/
package models
