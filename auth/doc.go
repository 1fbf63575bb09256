// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides credentials, identifiers and the cookie session
lifecycle.

# Identifiers

Poll ids are 7 random lowercase alphanumeric characters:

	id, err := auth.GeneratePollID()

Usernames are synthesized at registration, never chosen by the client:

	name, err := auth.GenerateUsername() // e.g. "jollyotter42"

Both are drawn from crypto/rand. Uniqueness is enforced by the database; the
store calls the generator again on collision.

# Passwords

	hash, err := auth.HashPassword(pw) // ErrPasswordTooShort below 8 chars
	user, err := auth.Authenticate(ctx, users, email, pw)

The length minimum counts characters, not bytes. Passwords are digested with
SHA-256 before bcrypt, so bcrypt's 72 byte input limit never applies.

Authenticate returns ErrInvalidCredentials for an unknown email and for a
wrong password alike, and spends one bcrypt comparison in both cases.

# Sessions

A session is an HS256 access token (short lived) and a refresh token, both
carried in http-only cookies. Every refresh token is recorded in the token
ledger when issued. Its lifecycle is:

	issued ──logout──▶ blacklisted

Validate accepts a refresh cookie only if the ledger knows the token, it is
not blacklisted and it has not expired:

	entry, err := sessions.Validate(ctx, r)
	// ErrTokenMissing, ErrTokenUnknown, ErrTokenBlacklisted, ErrTokenExpired

Callers map every failure to the same 401 response. Reason(err) gives the
cause for logs and metrics.
*/
package auth
