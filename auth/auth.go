// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/danielhkuo/versus/models"
	"github.com/danielhkuo/versus/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooShort   = errors.New("password too short")
)

const (
	// PollIDLength is the length of a public poll id.
	PollIDLength = 7
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8
	// MaxUsernameLength bounds synthesized usernames.
	MaxUsernameLength = 15

	pollIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Password hashing cost. Tests lower it through SetHashCost.
var hashCost = bcrypt.DefaultCost

// dummyHash is compared against when an email is unknown so both failure
// paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("versus-dummy-password"), bcrypt.MinCost)

var (
	adjectives = []string{
		"brave", "calm", "eager", "fancy", "gentle", "happy", "jolly", "kind",
		"lively", "merry", "nice", "proud", "quick", "silly", "witty", "zany",
	}
	nouns = []string{
		"otter", "panda", "tiger", "koala", "eagle", "whale", "lemur", "raven",
		"bison", "gecko", "moose", "heron", "llama", "sloth", "shark", "finch",
	}
)

// randomIndex returns a uniform random integer in [0, n).
func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// GeneratePollID creates a random lowercase alphanumeric poll id of
// PollIDLength characters.
func GeneratePollID() (string, error) {
	b := make([]byte, PollIDLength)
	for i := range b {
		idx, err := randomIndex(len(pollIDAlphabet))
		if err != nil {
			return "", fmt.Errorf("failed to generate poll id: %w", err)
		}
		b[i] = pollIDAlphabet[idx]
	}
	return string(b), nil
}

// GenerateUsername synthesizes a lowercase adjective+noun+digits username of
// at most MaxUsernameLength characters. Uniqueness is enforced by the store,
// which calls this again on collision.
func GenerateUsername() (string, error) {
	ai, err := randomIndex(len(adjectives))
	if err != nil {
		return "", fmt.Errorf("failed to generate username: %w", err)
	}
	ni, err := randomIndex(len(nouns))
	if err != nil {
		return "", fmt.Errorf("failed to generate username: %w", err)
	}
	n, err := randomIndex(1000)
	if err != nil {
		return "", fmt.Errorf("failed to generate username: %w", err)
	}

	name := fmt.Sprintf("%s%s%d", adjectives[ai], nouns[ni], n)
	if len(name) > MaxUsernameLength {
		name = name[:MaxUsernameLength]
	}
	return strings.ToLower(name), nil
}

// GenerateSecret creates a random URL-safe token, used for CSRF tokens.
func GenerateSecret() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// prehash digests the password to a fixed 44 bytes. bcrypt reads at most 72
// bytes, so longer passwords would otherwise be rejected or truncated.
func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

// HashPassword enforces the minimum length in characters and returns a
// bcrypt hash. Passwords have no maximum length.
func HashPassword(password string) (string, error) {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword(prehash(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), prehash(password)) == nil
}

// SetHashCost changes the bcrypt cost and returns the previous one.
func SetHashCost(cost int) int {
	prev := hashCost
	hashCost = cost
	return prev
}

// UserFinder looks up users by email. store.Users implements it.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

// Authenticate returns the user for a matching email and password. An unknown
// email and a wrong password both return ErrInvalidCredentials; any other
// lookup failure is returned wrapped.
func Authenticate(ctx context.Context, users UserFinder, email, password string) (models.User, error) {
	user, err := users.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		bcrypt.CompareHashAndPassword(dummyHash, prehash(password))
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("authenticate: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}
