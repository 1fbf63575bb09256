// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/versus/models"
)

// toggleAttempts bounds retries after losing an insert race to a concurrent
// toggle by the same voter.
const toggleAttempts = 3

var (
	errToggleRace = errors.New("concurrent toggle on the same voter")

	// ErrCountDrift means a voter row existed while the counter was already
	// zero. The transaction is rolled back and nothing changes.
	ErrCountDrift = errors.New("vote count out of sync with voter set")
)

// Votes applies vote toggles. Every toggle changes the voter set and the
// counter in the same transaction, so vote_count always equals the number
// of voter rows for an option.
type Votes struct {
	db *sqlx.DB
}

func NewVotes(db *sqlx.DB) *Votes {
	return &Votes{db: db}
}

// Resolve checks that the poll exists and that optionID is its option for
// the given side.
func (v *Votes) Resolve(ctx context.Context, pollID, optionID string, side models.Side) error {
	var polls int
	err := v.db.GetContext(ctx, &polls, v.db.Rebind(`SELECT COUNT(*) FROM voting_poll WHERE id = ?`), pollID)
	if err != nil {
		return fmt.Errorf("resolve poll: %w", err)
	}
	if polls == 0 {
		return fmt.Errorf("poll %s: %w", pollID, ErrNotFound)
	}

	var options int
	err = v.db.GetContext(ctx, &options, v.db.Rebind(`
		SELECT COUNT(*) FROM poll_option WHERE id = ? AND poll_id = ? AND side = ?
	`), optionID, pollID, side)
	if err != nil {
		return fmt.Errorf("resolve option: %w", err)
	}
	if options == 0 {
		return fmt.Errorf("option %s: %w", optionID, ErrNotFound)
	}
	return nil
}

// Toggle adds userID to the option's voter set if absent, or removes it if
// present, adjusting vote_count by exactly one in the same transaction.
// Membership is always read from option_voter, never from a cached flag.
func (v *Votes) Toggle(ctx context.Context, pollID, optionID string, side models.Side, userID string) (models.VoteOutcome, error) {
	for attempt := 0; attempt < toggleAttempts; attempt++ {
		outcome, err := v.toggleOnce(ctx, pollID, optionID, side, userID)
		if errors.Is(err, errToggleRace) {
			continue
		}
		return outcome, err
	}
	return 0, fmt.Errorf("toggle vote: %w", errToggleRace)
}

func (v *Votes) toggleOnce(ctx context.Context, pollID, optionID string, side models.Side, userID string) (models.VoteOutcome, error) {
	var outcome models.VoteOutcome

	err := withTx(ctx, v.db, nil, func(tx *sqlx.Tx) error {
		var exists int
		err := tx.GetContext(ctx, &exists, tx.Rebind(`
			SELECT COUNT(*) FROM poll_option WHERE id = ? AND poll_id = ? AND side = ?
		`), optionID, pollID, side)
		if err != nil {
			return fmt.Errorf("resolve option: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("option %s: %w", optionID, ErrNotFound)
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(`
			DELETE FROM option_voter WHERE option_id = ? AND user_id = ?
		`), optionID, userID)
		if err != nil {
			return fmt.Errorf("remove voter: %w", err)
		}
		removed, err := rowsAffected(res)
		if err != nil {
			return err
		}

		if removed == 1 {
			res, err = tx.ExecContext(ctx, tx.Rebind(`
				UPDATE poll_option SET vote_count = vote_count - 1
				WHERE id = ? AND vote_count > 0
			`), optionID)
			if err != nil {
				return fmt.Errorf("decrement vote count: %w", err)
			}
			n, err := rowsAffected(res)
			if err != nil {
				return err
			}
			if n != 1 {
				return ErrCountDrift
			}
			outcome = models.Unvoted
			return nil
		}

		res, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO option_voter (option_id, user_id, voted_at)
			VALUES (?, ?, ?)
			ON CONFLICT (option_id, user_id) DO NOTHING
		`), optionID, userID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("add voter: %w", err)
		}
		added, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if added == 0 {
			return errToggleRace
		}

		res, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE poll_option SET vote_count = vote_count + 1 WHERE id = ?
		`), optionID)
		if err != nil {
			return fmt.Errorf("increment vote count: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("option %s: %w", optionID, ErrNotFound)
		}
		outcome = models.Voted
		return nil
	})
	if err != nil {
		return 0, err
	}

	return outcome, nil
}

// Tally returns the stored counter and the size of the voter set of an
// option.
func (v *Votes) Tally(ctx context.Context, optionID string) (count, voters int, err error) {
	err = withTx(ctx, v.db, snapshotOptions(v.db), func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT vote_count FROM poll_option WHERE id = ?`), optionID); err != nil {
			return fmt.Errorf("read vote count: %w", err)
		}
		if err := tx.GetContext(ctx, &voters, tx.Rebind(`SELECT COUNT(*) FROM option_voter WHERE option_id = ?`), optionID); err != nil {
			return fmt.Errorf("count voters: %w", err)
		}
		return nil
	})
	return count, voters, err
}
