// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/versus/auth"
	"github.com/danielhkuo/versus/models"
	"github.com/danielhkuo/versus/store"
	"github.com/danielhkuo/versus/testutil"
)

func TestUsersCreate(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	users := store.NewUsers(conn)
	ctx := context.Background()

	u, err := users.Create(ctx, "a@x.com", "hash-a", auth.GenerateUsername)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.NotEmpty(t, u.Username)

	got, err := users.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash-a", got.PasswordHash)

	byID, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, byID.Username)

	_, err = users.Create(ctx, "a@x.com", "hash-b", auth.GenerateUsername)
	assert.ErrorIs(t, err, store.ErrEmailTaken)

	_, err = users.GetByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsersCreateRetriesUsernameCollision(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	users := store.NewUsers(conn)
	ctx := context.Background()

	fixed := func() (string, error) { return "samename", nil }
	_, err := users.Create(ctx, "a@x.com", "h", fixed)
	require.NoError(t, err)

	candidates := []string{"samename", "samename", "othername"}
	calls := 0
	next := func() (string, error) {
		name := candidates[calls]
		calls++
		return name, nil
	}

	u, err := users.Create(ctx, "b@x.com", "h", next)
	require.NoError(t, err)
	assert.Equal(t, "othername", u.Username)
	assert.Equal(t, 3, calls)

	// a generator that never yields a free name gives up
	_, err = users.Create(ctx, "c@x.com", "h", fixed)
	assert.ErrorIs(t, err, store.ErrIDExhausted)
}

func TestUsernamesUnique(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	users := store.NewUsers(conn)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		u, err := users.Create(ctx, fmt.Sprintf("user%d@x.com", i), "h", auth.GenerateUsername)
		require.NoError(t, err)
		assert.False(t, seen[u.Username], "duplicate username %s", u.Username)
		seen[u.Username] = true
	}
}

func TestLedger(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, conn, "a@x.com", "password1")
	ledger := store.NewLedger(conn)
	ctx := context.Background()

	now := time.Now().UTC()
	tok, err := ledger.Record(ctx, models.OutstandingToken{
		UserID:    user.ID,
		JTI:       "jti-1",
		Token:     "refresh-token-1",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tok.ID)

	entry, err := ledger.Lookup(ctx, "refresh-token-1")
	require.NoError(t, err)
	assert.Equal(t, tok.ID, entry.ID)
	assert.Equal(t, user.Username, entry.Username)
	assert.False(t, entry.Blacklisted)
	assert.WithinDuration(t, now.Add(time.Hour), entry.ExpiresAt, time.Second)

	require.NoError(t, ledger.Blacklist(ctx, tok.ID, now))
	require.NoError(t, ledger.Blacklist(ctx, tok.ID, now.Add(time.Minute)))

	entry, err = ledger.Lookup(ctx, "refresh-token-1")
	require.NoError(t, err)
	assert.True(t, entry.Blacklisted)

	_, err = ledger.Lookup(ctx, "never-issued")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPollsCreateAndGet(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	author := testutil.CreateTestUser(t, conn, "a@x.com", "password1")
	polls := store.NewPolls(conn)
	ctx := context.Background()

	id, err := polls.Create(ctx, author.ID,
		models.NewOption{Label: "Cats", ImageURL: "https://img/cats.png"},
		models.NewOption{Label: "Dogs", ImageURL: "https://img/dogs.png"},
		auth.GeneratePollID,
	)
	require.NoError(t, err)
	assert.Len(t, id, auth.PollIDLength)

	d, err := polls.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, author.ID, d.Poll.AuthorID)
	assert.False(t, d.Poll.HasEnded)
	assert.Equal(t, id+"A", d.A.ID)
	assert.Equal(t, id+"B", d.B.ID)
	assert.Equal(t, "Cats", d.A.Label)
	assert.Equal(t, "Dogs", d.B.Label)
	assert.Zero(t, d.A.VoteCount)
	assert.Zero(t, d.B.VoteCount)
	assert.Empty(t, d.A.Voters)
	assert.True(t, store.DueDate(d.Poll.CreatedAt).Equal(d.Poll.DueDate), "due date %v", d.Poll.DueDate)

	_, err = polls.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPollsCreateRetriesIDCollision(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	author := testutil.CreateTestUser(t, conn, "a@x.com", "password1")
	polls := store.NewPolls(conn)
	ctx := context.Background()

	a := models.NewOption{Label: "A", ImageURL: "https://img/a.png"}
	b := models.NewOption{Label: "B", ImageURL: "https://img/b.png"}

	_, err := polls.Create(ctx, author.ID, a, b, func() (string, error) { return "aaaaaaa", nil })
	require.NoError(t, err)

	ids := []string{"aaaaaaa", "bbbbbbb"}
	calls := 0
	id, err := polls.Create(ctx, author.ID, a, b, func() (string, error) {
		next := ids[calls]
		calls++
		return next, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "bbbbbbb", id)

	// the failed attempt left nothing behind
	details, err := polls.ListByAuthor(ctx, author.ID)
	require.NoError(t, err)
	assert.Len(t, details, 2)
}

func TestPollsListByAuthor(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	alice := testutil.CreateTestUser(t, conn, "alice@x.com", "password1")
	bob := testutil.CreateTestUser(t, conn, "bob@x.com", "password1")
	polls := store.NewPolls(conn)
	ctx := context.Background()

	testutil.CreateTestPoll(t, conn, alice.ID, "Tea", "Coffee")
	testutil.CreateTestPoll(t, conn, alice.ID, "Beach", "Mountains")
	bobPoll := testutil.CreateTestPoll(t, conn, bob.ID, "Left", "Right")

	list, err := polls.ListByAuthor(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, d := range list {
		assert.Equal(t, alice.ID, d.Poll.AuthorID)
		assert.NotEqual(t, bobPoll, d.Poll.ID)
	}

	list, err = polls.ListByAuthor(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPollsSetEndedAndDelete(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	author := testutil.CreateTestUser(t, conn, "a@x.com", "password1")
	voter := testutil.CreateTestUser(t, conn, "v@x.com", "password1")
	polls := store.NewPolls(conn)
	votes := store.NewVotes(conn)
	ctx := context.Background()

	id := testutil.CreateTestPoll(t, conn, author.ID, "Cats", "Dogs")

	require.NoError(t, polls.SetEnded(ctx, id, true))
	p, err := polls.Poll(ctx, id)
	require.NoError(t, err)
	assert.True(t, p.HasEnded)

	assert.ErrorIs(t, polls.SetEnded(ctx, "missing", true), store.ErrNotFound)

	_, err = votes.Toggle(ctx, id, store.OptionID(id, models.SideA), models.SideA, voter.ID)
	require.NoError(t, err)

	require.NoError(t, polls.Delete(ctx, id))
	_, err = polls.Get(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)

	var remaining int
	require.NoError(t, conn.Get(&remaining, `SELECT COUNT(*) FROM option_voter`))
	assert.Zero(t, remaining)
	require.NoError(t, conn.Get(&remaining, `SELECT COUNT(*) FROM poll_option`))
	assert.Zero(t, remaining)

	assert.ErrorIs(t, polls.Delete(ctx, id), store.ErrNotFound)
}

func TestVotesResolve(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	author := testutil.CreateTestUser(t, conn, "a@x.com", "password1")
	votes := store.NewVotes(conn)
	ctx := context.Background()

	id := testutil.CreateTestPoll(t, conn, author.ID, "Cats", "Dogs")

	tests := []struct {
		name     string
		pollID   string
		optionID string
		side     models.Side
		wantErr  error
	}{
		{"side A", id, id + "A", models.SideA, nil},
		{"side B", id, id + "B", models.SideB, nil},
		{"unknown poll", "nopoll1", "nopoll1A", models.SideA, store.ErrNotFound},
		{"option of other side", id, id + "B", models.SideA, store.ErrNotFound},
		{"unknown option", id, id + "C", models.SideA, store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := votes.Resolve(ctx, tt.pollID, tt.optionID, tt.side)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVotesToggleAlternates(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	author := testutil.CreateTestUser(t, conn, "a@x.com", "password1")
	votes := store.NewVotes(conn)
	polls := store.NewPolls(conn)
	ctx := context.Background()

	id := testutil.CreateTestPoll(t, conn, author.ID, "Cats", "Dogs")
	optA := store.OptionID(id, models.SideA)

	for i := 0; i < 5; i++ {
		outcome, err := votes.Toggle(ctx, id, optA, models.SideA, author.ID)
		require.NoError(t, err)

		want := models.Voted
		if i%2 == 1 {
			want = models.Unvoted
		}
		assert.Equal(t, want, outcome, "toggle %d", i)

		count, voters, err := votes.Tally(ctx, optA)
		require.NoError(t, err)
		assert.Equal(t, voters, count)
		assert.Equal(t, 1-i%2, count)
	}

	d, err := polls.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, d.A.Voters, 1)
	assert.Equal(t, author.Username, d.A.Voters[0].Username)
	assert.Zero(t, d.B.VoteCount)
}

func TestVotesBothSidesIndependent(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, conn, "a@x.com", "password1")
	votes := store.NewVotes(conn)
	polls := store.NewPolls(conn)
	ctx := context.Background()

	id := testutil.CreateTestPoll(t, conn, user.ID, "Cats", "Dogs")

	_, err := votes.Toggle(ctx, id, id+"A", models.SideA, user.ID)
	require.NoError(t, err)
	_, err = votes.Toggle(ctx, id, id+"B", models.SideB, user.ID)
	require.NoError(t, err)

	d, err := polls.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, d.A.VoteCount)
	assert.Equal(t, 1, d.B.VoteCount)
}

func TestVotesToggleUnknownOption(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, conn, "a@x.com", "password1")
	votes := store.NewVotes(conn)
	ctx := context.Background()

	id := testutil.CreateTestPoll(t, conn, user.ID, "Cats", "Dogs")

	_, err := votes.Toggle(ctx, id, id+"X", models.SideA, user.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	var voters int
	require.NoError(t, conn.Get(&voters, `SELECT COUNT(*) FROM option_voter`))
	assert.Zero(t, voters)
}

func TestVotesConcurrentToggles(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	author := testutil.CreateTestUser(t, conn, "a@x.com", "password1")
	votes := store.NewVotes(conn)
	ctx := context.Background()

	id := testutil.CreateTestPoll(t, conn, author.ID, "Cats", "Dogs")
	optA := store.OptionID(id, models.SideA)

	const numUsers = 8
	const togglesPerUser = 5
	users := make([]models.User, numUsers)
	for i := range users {
		users[i] = testutil.CreateTestUser(t, conn, fmt.Sprintf("u%d@x.com", i), "password1")
	}

	var wg sync.WaitGroup
	var failures atomic.Int32
	for _, u := range users {
		for j := 0; j < togglesPerUser; j++ {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				if _, err := votes.Toggle(ctx, id, optA, models.SideA, userID); err != nil {
					failures.Add(1)
					t.Logf("toggle failed: %v", err)
				}
			}(u.ID)
		}
	}
	wg.Wait()

	require.Zero(t, failures.Load())

	count, voters, err := votes.Tally(ctx, optA)
	require.NoError(t, err)
	assert.Equal(t, voters, count)
	// an odd number of toggles per user leaves every user voted
	assert.Equal(t, numUsers, count)
}

func TestVotesCountDriftRollsBack(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, conn, "a@x.com", "password1")
	votes := store.NewVotes(conn)
	ctx := context.Background()

	id := testutil.CreateTestPoll(t, conn, user.ID, "Cats", "Dogs")
	optA := id + "A"

	_, err := votes.Toggle(ctx, id, optA, models.SideA, user.ID)
	require.NoError(t, err)

	// corrupt the counter behind the store's back
	_, err = conn.Exec(`UPDATE poll_option SET vote_count = 0 WHERE id = ?`, optA)
	require.NoError(t, err)

	_, err = votes.Toggle(ctx, id, optA, models.SideA, user.ID)
	require.True(t, errors.Is(err, store.ErrCountDrift))

	// the voter row is still there
	_, voters, err := votes.Tally(ctx, optA)
	require.NoError(t, err)
	assert.Equal(t, 1, voters)
}
