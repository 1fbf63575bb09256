// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/danielhkuo/versus/auth"
	"github.com/danielhkuo/versus/cliparse"
	"github.com/danielhkuo/versus/db"
	"github.com/danielhkuo/versus/models"
	"github.com/danielhkuo/versus/store"
)

func init() {
	auth.SetHashCost(bcrypt.MinCost)
}

// SetupTestDB creates a fresh SQLite database file with the full schema.
// The file lives in the test's temp dir and is removed with it.
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "versus.db")
	conn, err := db.Open(context.Background(), db.TypeSQLite, path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(context.Background(), conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  "versus-test.db",
		DatabaseType: db.TypeSQLite,
		JWTSecret:    "test-jwt-secret",
		LogLevel:     "debug",
		Cookies:      cliparse.DefaultCookiePolicy(),
	}
}

// NewSessions returns a session manager backed by the test database.
func NewSessions(conn *sqlx.DB, cfg cliparse.Config) *auth.Sessions {
	return auth.NewSessions(store.NewLedger(conn), cfg.JWTSecret, cfg.Cookies)
}

// CreateTestUser registers a user directly in the store
func CreateTestUser(t *testing.T, conn *sqlx.DB, email, password string) models.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user, err := store.NewUsers(conn).Create(context.Background(), auth.NormalizeEmail(email), hash, auth.GenerateUsername)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// CreateTestPoll creates a poll owned by authorID and returns its id
func CreateTestPoll(t *testing.T, conn *sqlx.DB, authorID, labelA, labelB string) string {
	t.Helper()

	pollID, err := store.NewPolls(conn).Create(context.Background(), authorID,
		models.NewOption{Label: labelA, ImageURL: "https://img.example.com/a.png"},
		models.NewOption{Label: labelB, ImageURL: "https://img.example.com/b.png"},
		auth.GeneratePollID,
	)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}
	return pollID
}

// LoginCookies issues a session for user and returns the cookies a browser
// would send back.
func LoginCookies(t *testing.T, conn *sqlx.DB, cfg cliparse.Config, user models.User) []*http.Cookie {
	t.Helper()

	sessions := NewSessions(conn, cfg)
	pair, err := sessions.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("Failed to issue session: %v", err)
	}

	w := httptest.NewRecorder()
	sessions.SetCookies(w, pair)
	return w.Result().Cookies()
}

// ResponseCookies returns the cookies set by a response, keyed by name
func ResponseCookies(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	cookies := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		cookies[c.Name] = c
	}
	return cookies
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, cookies ...*http.Cookie) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for _, c := range cookies {
		req.AddCookie(c)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
