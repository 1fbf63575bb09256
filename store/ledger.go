// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/versus/models"
)

// Ledger records issued refresh tokens and the blacklist of revoked ones.
type Ledger struct {
	db *sqlx.DB
}

func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

// Record stores a newly issued refresh token. An empty ID is filled in.
func (l *Ledger) Record(ctx context.Context, tok models.OutstandingToken) (models.OutstandingToken, error) {
	if tok.ID == "" {
		tok.ID = uuid.NewString()
	}

	_, err := l.db.ExecContext(ctx, l.db.Rebind(`
		INSERT INTO outstanding_token (id, user_id, jti, token, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), tok.ID, tok.UserID, tok.JTI, tok.Token, tok.CreatedAt, tok.ExpiresAt)
	if err != nil {
		return models.OutstandingToken{}, fmt.Errorf("record token: %w", err)
	}
	return tok, nil
}

// Lookup finds an outstanding token by its encoded value and then checks the
// blacklist for it. Returns ErrNotFound if the token was never issued.
func (l *Ledger) Lookup(ctx context.Context, token string) (models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := l.db.GetContext(ctx, &entry, l.db.Rebind(`
		SELECT o.id, o.user_id, o.jti, o.token, o.created_at, o.expires_at, u.username
		FROM outstanding_token o
		JOIN users u ON u.id = o.user_id
		WHERE o.token = ?
	`), token)
	if errors.Is(err, sql.ErrNoRows) {
		return models.LedgerEntry{}, ErrNotFound
	}
	if err != nil {
		return models.LedgerEntry{}, fmt.Errorf("lookup token: %w", err)
	}

	var blacklisted int
	err = l.db.GetContext(ctx, &blacklisted, l.db.Rebind(`
		SELECT COUNT(*) FROM blacklisted_token WHERE token_id = ?
	`), entry.ID)
	if err != nil {
		return models.LedgerEntry{}, fmt.Errorf("check blacklist: %w", err)
	}
	entry.Blacklisted = blacklisted > 0

	return entry, nil
}

// Blacklist revokes an outstanding token. Revoking twice is a no-op.
func (l *Ledger) Blacklist(ctx context.Context, tokenID string, at time.Time) error {
	_, err := l.db.ExecContext(ctx, l.db.Rebind(`
		INSERT INTO blacklisted_token (id, token_id, blacklisted_at)
		VALUES (?, ?, ?)
		ON CONFLICT (token_id) DO NOTHING
	`), uuid.NewString(), tokenID, at)
	if err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}
