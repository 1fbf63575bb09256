// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/versus/models"
	"github.com/danielhkuo/versus/testutil"
)

func TestHealthEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	expected := "versus API v1"
	if w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}

	// Unknown paths are not swallowed by the root handler
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", w.Code)
	}
}

func TestRouteExistence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg)

	// 400, 401 and 404 are all valid handler responses here
	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/"},
		{"GET", "/metrics"},

		{"POST", "/register"},
		{"POST", "/login"},
		{"GET", "/isauth"},
		{"POST", "/logout"},
		{"POST", "/token/refresh"},

		{"GET", "/poll_list"},
		{"POST", "/poll_list"},
		{"GET", "/poll/abc1234"},
		{"PUT", "/poll/abc1234"},
		{"DELETE", "/poll/abc1234"},

		{"POST", "/vote/vote_a/abc1234/abc1234A"},
		{"POST", "/vote/vote_b/abc1234/abc1234B"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}"))
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code == http.StatusMethodNotAllowed {
				t.Errorf("Route %s %s returned 405, expected route handler to exist", tc.method, tc.path)
			}
		})
	}
}

func TestSpecificMethodRouting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	mux := NewRouter(db, cfg)

	testCases := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"POST to health endpoint", "POST", "/health", http.StatusMethodNotAllowed},
		{"GET to vote endpoint", "GET", "/vote/vote_a/abc1234/abc1234A", http.StatusMethodNotAllowed},
		{"POST to poll detail", "POST", "/poll/abc1234", http.StatusMethodNotAllowed},
		{"DELETE poll list", "DELETE", "/poll_list", http.StatusMethodNotAllowed},
		{"unknown poll", "GET", "/poll/abc1234", http.StatusNotFound},
		{"anonymous poll list", "GET", "/poll_list", http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != tc.expectedStatus {
				t.Errorf("Expected %d for %s %s, got %d", tc.expectedStatus, tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestPathParameterExtraction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	user := testutil.CreateTestUser(t, db, "a@x.com", "password1")
	pollID := testutil.CreateTestPoll(t, db, user.ID, "Cats", "Dogs")
	cookies := testutil.LoginCookies(t, db, cfg, user)

	mux := NewRouter(db, cfg)

	t.Run("poll id", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, testutil.MakeRequest("GET", "/poll/"+pollID, nil))
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.PollResultResponse
		testutil.AssertJSON(t, w, &resp)
		assert.Equal(t, pollID, resp.Message.PollID)
	})

	t.Run("vote ids", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, testutil.MakeRequest("POST", "/vote/vote_a/"+pollID+"/"+pollID+"A", nil, cookies...))
		testutil.AssertStatus(t, w, http.StatusCreated)
	})
}

func TestCredentialRateLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mux := NewRouter(db, testutil.GetTestConfig())

	limited := 0
	for i := 0; i < credentialBurst+5; i++ {
		req := testutil.MakeRequest("POST", "/login", models.LoginRequest{Email: "nobody@x.com", Password: "password1"})
		req.RemoteAddr = "198.51.100.7:4000"
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		switch w.Code {
		case http.StatusTooManyRequests:
			limited++
		case http.StatusUnauthorized:
		default:
			t.Fatalf("unexpected status %d", w.Code)
		}
	}

	require.GreaterOrEqual(t, limited, 4)
}
