// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/versus/models"
	"github.com/danielhkuo/versus/testutil"
)

// TestFullVotingWorkflow walks one user through the whole API:
// 1. Register
// 2. Log in
// 3. Create a Cats vs Dogs poll
// 4. Read it back with zero votes
// 5. Vote A, then vote A again to retract
// 6. End the poll, then delete it
func TestFullVotingWorkflow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	accounts := NewAuthHandler(db, cfg)
	polls := NewPollHandler(db, cfg)
	voting := NewVotingHandler(db, cfg)

	// Step 1: Register
	w := httptest.NewRecorder()
	accounts.Register(w, testutil.MakeRequest("POST", "/register",
		models.RegisterRequest{Email: "a@x.com", Password: "password1"}))
	require.Equal(t, http.StatusCreated, w.Code, "Step 1 - register: %s", w.Body.String())

	// Step 2: Log in
	w = httptest.NewRecorder()
	accounts.Login(w, testutil.MakeRequest("POST", "/login",
		models.LoginRequest{Email: "a@x.com", Password: "password1"}))
	require.Equal(t, http.StatusOK, w.Code, "Step 2 - login: %s", w.Body.String())
	cookies := liveCookies(w)
	require.Len(t, cookies, 2)

	w = httptest.NewRecorder()
	accounts.IsAuth(w, testutil.MakeRequest("GET", "/isauth", nil, cookies...))
	var status models.AuthStatusResponse
	testutil.AssertJSON(t, w, &status)
	require.True(t, status.Message.IsAuthenticated)
	username := *status.Message.Username

	// Step 3: Create poll
	w = httptest.NewRecorder()
	polls.CreatePoll(w, testutil.MakeRequest("POST", "/poll_list",
		nestedPoll("Cats", "https://img.example.com/url1", "Dogs", "https://img.example.com/url2"), cookies...))
	require.Equal(t, http.StatusCreated, w.Code, "Step 3 - create poll: %s", w.Body.String())
	var created models.MessageResponse
	testutil.AssertJSON(t, w, &created)
	pollID := created.Message
	t.Logf("Step 3 - Created poll: %s", pollID)

	getPoll := func() models.PollResult {
		t.Helper()
		req := testutil.MakeRequest("GET", "/poll/"+pollID, nil)
		req.SetPathValue("id", pollID)
		w := httptest.NewRecorder()
		polls.GetPoll(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		var resp models.PollResultResponse
		testutil.AssertJSON(t, w, &resp)
		return resp.Message
	}

	// Step 4: Zero votes
	result := getPoll()
	assert.Equal(t, 0, result.PollA.Votes)
	assert.Equal(t, 0, result.PollB.Votes)

	// Step 5: Vote A
	w = httptest.NewRecorder()
	voting.VoteA(w, voteRequest("a", pollID, result.PollA.OptionID, cookies))
	require.Equal(t, http.StatusCreated, w.Code, "Step 5 - vote: %s", w.Body.String())

	result = getPoll()
	assert.Equal(t, 1, result.PollA.Votes)
	require.Len(t, result.PollA.Voters, 1)
	assert.Equal(t, username, result.PollA.Voters[0].Username)

	w = httptest.NewRecorder()
	voting.VoteA(w, voteRequest("a", pollID, result.PollA.OptionID, cookies))
	require.Equal(t, http.StatusOK, w.Code, "Step 5 - unvote: %s", w.Body.String())

	result = getPoll()
	assert.Equal(t, 0, result.PollA.Votes)
	assert.Empty(t, result.PollA.Voters)

	// Step 6: End and delete
	req := testutil.MakeRequest("PUT", "/poll/"+pollID, map[string]bool{"poll_expired": true}, cookies...)
	req.SetPathValue("id", pollID)
	w = httptest.NewRecorder()
	polls.UpdatePoll(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.MessageResponse
	testutil.AssertJSON(t, w, &updated)
	assert.Equal(t, "poll expired", updated.Message)
	assert.True(t, getPoll().HasEnded)

	req = testutil.MakeRequest("DELETE", "/poll/"+pollID, nil, cookies...)
	req.SetPathValue("id", pollID)
	w = httptest.NewRecorder()
	polls.DeletePoll(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = testutil.MakeRequest("GET", "/poll/"+pollID, nil)
	req.SetPathValue("id", pollID)
	w = httptest.NewRecorder()
	polls.GetPoll(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}
