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

// usernameAttempts bounds retries when a synthesized username collides.
const usernameAttempts = 8

// Users is the credential store.
type Users struct {
	db *sqlx.DB
}

func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

// Create inserts a user with a server-chosen username. nextUsername is called
// again whenever the previous candidate is already taken. A duplicate email
// returns ErrEmailTaken.
func (s *Users) Create(ctx context.Context, email, passwordHash string, nextUsername func() (string, error)) (models.User, error) {
	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		DateJoined:   time.Now().UTC(),
	}

	for attempt := 0; attempt < usernameAttempts; attempt++ {
		username, err := nextUsername()
		if err != nil {
			return models.User{}, fmt.Errorf("create user: %w", err)
		}
		user.Username = username

		_, err = s.db.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO users (id, username, email, password_hash, date_joined)
			VALUES (?, ?, ?, ?, ?)
		`), user.ID, user.Username, user.Email, user.PasswordHash, user.DateJoined)

		switch {
		case err == nil:
			return user, nil
		case violates(err, "email"):
			return models.User{}, ErrEmailTaken
		case violates(err, "username"):
			continue
		default:
			return models.User{}, fmt.Errorf("create user: %w", err)
		}
	}

	return models.User{}, fmt.Errorf("create user: %w", ErrIDExhausted)
}

// GetByEmail looks up the unique user with the given email.
func (s *Users) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(`
		SELECT id, username, email, password_hash, date_joined
		FROM users
		WHERE email = ?
	`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// GetByID looks up a user by primary key.
func (s *Users) GetByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(`
		SELECT id, username, email, password_hash, date_joined
		FROM users
		WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
