package session

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"bookshare/internal/models"
)

// bcrypt ignores input past 72 bytes, so longer passwords are refused.
const (
	minPasswordLength = 6
	maxPasswordLength = 72
)

// dummyHash is compared against when no account matches the email so a
// miss costs as much as a wrong password.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("no-such-account"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("session: dummy hash: %v", err))
	}
	return h
})

// checkPasswordPolicy reports ErrInvalidAccount for passwords an account
// cannot be registered with.
func checkPasswordPolicy(password string) error {
	switch {
	case len(password) < minPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidAccount, minPasswordLength)
	case len(password) > maxPasswordLength:
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidAccount, maxPasswordLength)
	}
	return nil
}

// hashPassword applies the policy and returns the bcrypt hash stored on the
// account.
func hashPassword(password string) (string, error) {
	if err := checkPasswordPolicy(password); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// matchPassword returns ErrInvalidCredentials unless password matches the
// account's stored hash. A nil user is checked against dummyHash and never
// matches.
func matchPassword(user *models.User, password string) error {
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return ErrInvalidCredentials
	}
	err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrInvalidCredentials
	default:
		return fmt.Errorf("%w: unreadable hash for %s: %v", ErrInvalidCredentials, user.ID, err)
	}
}
