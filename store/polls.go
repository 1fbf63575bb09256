// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/versus/models"
)

// pollIDAttempts bounds retries when a random poll id is already taken.
const pollIDAttempts = 8

// Polls is the poll aggregate store: a poll and its two options are created,
// read and deleted together.
type Polls struct {
	db *sqlx.DB
}

func NewPolls(db *sqlx.DB) *Polls {
	return &Polls{db: db}
}

// OptionID derives an option id from its poll id and side.
func OptionID(pollID string, side models.Side) string {
	return pollID + string(side)
}

// DueDate is the default end date of a poll created at now: one calendar
// month later, at midnight UTC.
func DueDate(now time.Time) time.Time {
	d := now.UTC().AddDate(0, 1, 0)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// Create inserts a poll and both of its options in one transaction and
// returns the public poll id. nextID is called again when a candidate id is
// already in use.
func (s *Polls) Create(ctx context.Context, authorID string, a, b models.NewOption, nextID func() (string, error)) (string, error) {
	now := time.Now().UTC()

	for attempt := 0; attempt < pollIDAttempts; attempt++ {
		pollID, err := nextID()
		if err != nil {
			return "", fmt.Errorf("create poll: %w", err)
		}

		err = withTx(ctx, s.db, nil, func(tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO voting_poll (id, author_id, due_date, has_ended, created_at)
				VALUES (?, ?, ?, ?, ?)
			`), pollID, authorID, DueDate(now), false, now)
			if err != nil {
				return err
			}

			for _, opt := range []struct {
				side models.Side
				data models.NewOption
			}{{models.SideA, a}, {models.SideB, b}} {
				_, err := tx.ExecContext(ctx, tx.Rebind(`
					INSERT INTO poll_option (id, poll_id, side, label, image_url, vote_count)
					VALUES (?, ?, ?, ?, ?, 0)
				`), OptionID(pollID, opt.side), pollID, opt.side, opt.data.Label, opt.data.ImageURL)
				if err != nil {
					return err
				}
			}
			return nil
		})

		if err == nil {
			return pollID, nil
		}
		if _, dup := uniqueViolation(err); dup {
			continue
		}
		return "", fmt.Errorf("create poll: %w", err)
	}

	return "", fmt.Errorf("create poll: %w", ErrIDExhausted)
}

// Poll returns the poll row without its options.
func (s *Polls) Poll(ctx context.Context, pollID string) (models.Poll, error) {
	var poll models.Poll
	err := s.db.GetContext(ctx, &poll, s.db.Rebind(`
		SELECT id, author_id, due_date, has_ended, created_at
		FROM voting_poll
		WHERE id = ?
	`), pollID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Poll{}, ErrNotFound
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("get poll: %w", err)
	}
	return poll, nil
}

// Get returns a poll with both options, their tallies and voter sets, read
// from a single snapshot.
func (s *Polls) Get(ctx context.Context, pollID string) (models.PollDetail, error) {
	var detail models.PollDetail
	err := withTx(ctx, s.db, snapshotOptions(s.db), func(tx *sqlx.Tx) error {
		var poll models.Poll
		err := tx.GetContext(ctx, &poll, tx.Rebind(`
			SELECT id, author_id, due_date, has_ended, created_at
			FROM voting_poll
			WHERE id = ?
		`), pollID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get poll: %w", err)
		}

		details, err := loadDetails(ctx, tx, []models.Poll{poll})
		if err != nil {
			return err
		}
		detail = details[0]
		return nil
	})
	if err != nil {
		return models.PollDetail{}, err
	}
	return detail, nil
}

// ListByAuthor returns the polls owned by authorID, newest first.
func (s *Polls) ListByAuthor(ctx context.Context, authorID string) ([]models.PollDetail, error) {
	var details []models.PollDetail
	err := withTx(ctx, s.db, snapshotOptions(s.db), func(tx *sqlx.Tx) error {
		var polls []models.Poll
		err := tx.SelectContext(ctx, &polls, tx.Rebind(`
			SELECT id, author_id, due_date, has_ended, created_at
			FROM voting_poll
			WHERE author_id = ?
			ORDER BY created_at DESC, id
		`), authorID)
		if err != nil {
			return fmt.Errorf("list polls: %w", err)
		}

		details, err = loadDetails(ctx, tx, polls)
		return err
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

// SetEnded updates the ended flag of a poll.
func (s *Polls) SetEnded(ctx context.Context, pollID string, ended bool) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE voting_poll SET has_ended = ? WHERE id = ?
	`), ended, pollID)
	if err != nil {
		return fmt.Errorf("update poll: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a poll, its options and every voter association.
func (s *Polls) Delete(ctx context.Context, pollID string) error {
	return withTx(ctx, s.db, nil, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			DELETE FROM option_voter
			WHERE option_id IN (SELECT id FROM poll_option WHERE poll_id = ?)
		`), pollID)
		if err != nil {
			return fmt.Errorf("delete voters: %w", err)
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM poll_option WHERE poll_id = ?`), pollID); err != nil {
			return fmt.Errorf("delete options: %w", err)
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM voting_poll WHERE id = ?`), pollID)
		if err != nil {
			return fmt.Errorf("delete poll: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

type voterRow struct {
	OptionID string `db:"option_id"`
	models.Voter
}

// loadDetails attaches options and voter sets to polls, preserving order.
func loadDetails(ctx context.Context, tx *sqlx.Tx, polls []models.Poll) ([]models.PollDetail, error) {
	details := make([]models.PollDetail, 0, len(polls))
	if len(polls) == 0 {
		return details, nil
	}

	pollIDs := make([]string, len(polls))
	for i, p := range polls {
		pollIDs[i] = p.ID
	}

	query, args, err := sqlx.In(`
		SELECT id, poll_id, side, label, image_url, vote_count
		FROM poll_option
		WHERE poll_id IN (?)
	`, pollIDs)
	if err != nil {
		return nil, fmt.Errorf("build option query: %w", err)
	}
	var options []models.Option
	if err := tx.SelectContext(ctx, &options, tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}

	optionIDs := make([]string, len(options))
	for i, o := range options {
		optionIDs[i] = o.ID
	}

	voters := map[string][]models.Voter{}
	if len(optionIDs) > 0 {
		query, args, err = sqlx.In(`
			SELECT ov.option_id, u.id, u.username
			FROM option_voter ov
			JOIN users u ON u.id = ov.user_id
			WHERE ov.option_id IN (?)
			ORDER BY ov.voted_at, u.username
		`, optionIDs)
		if err != nil {
			return nil, fmt.Errorf("build voter query: %w", err)
		}
		var rows []voterRow
		if err := tx.SelectContext(ctx, &rows, tx.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("query voters: %w", err)
		}
		for _, r := range rows {
			voters[r.OptionID] = append(voters[r.OptionID], r.Voter)
		}
	}

	byPoll := map[string]map[models.Side]models.Option{}
	for _, o := range options {
		o.Voters = voters[o.ID]
		if byPoll[o.PollID] == nil {
			byPoll[o.PollID] = map[models.Side]models.Option{}
		}
		byPoll[o.PollID][o.Side] = o
	}

	for _, p := range polls {
		a, okA := byPoll[p.ID][models.SideA]
		b, okB := byPoll[p.ID][models.SideB]
		if !okA || !okB {
			return nil, fmt.Errorf("poll %s is missing an option", p.ID)
		}
		details = append(details, models.PollDetail{Poll: p, A: a, B: b})
	}

	return details, nil
}
