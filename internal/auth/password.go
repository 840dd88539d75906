package auth

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._@-]{3,64}$`)

const (
	minPasswordLen = 5
	maxPasswordLen = 72 // bcrypt input limit
)

var (
	ErrInvalidUsername = errors.New("Username must be 3-64 characters of letters, digits, '.', '_', '@' or '-'")
	ErrPasswordShort   = errors.New("Password must be at least 5 characters")
	ErrPasswordLong    = errors.New("Password must be at most 72 bytes")
)

// ValidateCredentials applies the account rules shared by registration, the
// create-user command and user import. It returns the trimmed username.
func ValidateCredentials(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return username, ErrInvalidUsername
	}
	if len(password) < minPasswordLen {
		return username, ErrPasswordShort
	}
	if len(password) > maxPasswordLen {
		return username, ErrPasswordLong
	}
	return username, nil
}

// ValidateUsername checks only the username, for accounts imported with an
// existing hash.
func ValidateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return username, ErrInvalidUsername
	}
	return username, nil
}

// IsBcryptHash reports whether hash is a well-formed bcrypt hash that
// CheckPassword can verify against.
func IsBcryptHash(hash string) bool {
	_, err := bcrypt.Cost([]byte(hash))
	return err == nil
}

// dummyHash is compared against when the username is unknown so that a failed
// login costs the same whether or not the user exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("facility-checklist-dummy"), bcrypt.DefaultCost)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func burnCompare(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
