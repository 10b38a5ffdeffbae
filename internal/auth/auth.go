// Package auth verifies and rotates user credentials held by a
// sheets.CredentialStore and issues optional session tokens.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"findash/internal/core"
	"findash/internal/sheets"
)

// Seed account created alongside an empty credential table.
const (
	DefaultUser     = "admin"
	DefaultPassword = "admin123"
	DefaultEmail    = "admin@example.com"
)

// ResetSentinel is accepted in place of the old password when the service is
// built with AllowResetSentinel. It lets anyone who knows a username take over
// the account and must stay disabled outside recovery scenarios.
const ResetSentinel = "FORCE_ADMIN"

// ErrAccountMismatch is returned when a reset names an unknown user or gives
// the wrong old password.
var ErrAccountMismatch = errors.New("account not found or incorrect old password")

// MaxPasswordLen is the longest password bcrypt can hash.
const MaxPasswordLen = 72

var ErrPasswordTooLong = fmt.Errorf("password longer than %d bytes", MaxPasswordLen)

type Options struct {
	Tokens             *TokenIssuer
	AllowResetSentinel bool
	// Cost is the bcrypt cost for new hashes; zero means bcrypt.DefaultCost.
	Cost int
}

type Service struct {
	store         sheets.CredentialStore
	tokens        *TokenIssuer
	allowSentinel bool
	cost          int
}

func NewService(store sheets.CredentialStore, opts Options) *Service {
	cost := opts.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		store:         store,
		tokens:        opts.Tokens,
		allowSentinel: opts.AllowResetSentinel,
		cost:          cost,
	}
}

// Login checks the password and returns a signed token when a TokenIssuer is
// configured, otherwise "".
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", fmt.Errorf("%w: username and password", core.ErrMissingField)
	}
	stored, err := s.store.Credential(ctx, username)
	if errors.Is(err, core.ErrUserNotFound) {
		return "", core.ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	if !Matches(stored, password) {
		slog.WarnContext(ctx, "Login rejected", "username", username)
		return "", core.ErrInvalidCredentials
	}
	if s.tokens == nil {
		return "", nil
	}
	return s.tokens.Issue(username)
}

// ResetPassword stores a bcrypt hash of newPassword when oldPassword matches
// the stored secret, or when oldPassword is ResetSentinel and the sentinel is
// enabled.
func (s *Service) ResetPassword(ctx context.Context, username, oldPassword, newPassword string) error {
	username = strings.TrimSpace(username)
	if username == "" || oldPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: username, oldPassword and newPassword", core.ErrMissingField)
	}
	if len(newPassword) > MaxPasswordLen {
		return ErrPasswordTooLong
	}
	stored, err := s.store.Credential(ctx, username)
	if errors.Is(err, core.ErrUserNotFound) {
		return ErrAccountMismatch
	}
	if err != nil {
		return fmt.Errorf("read credential: %w", err)
	}

	switch {
	case s.allowSentinel && oldPassword == ResetSentinel:
		slog.WarnContext(ctx, "Password reset via sentinel", "username", username)
	case Matches(stored, oldPassword):
	default:
		return ErrAccountMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.SetCredential(ctx, username, string(hash)); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

// VerifyToken returns the username a token was issued for.
func (s *Service) VerifyToken(token string) (string, error) {
	if s.tokens == nil {
		return "", ErrTokensDisabled
	}
	return s.tokens.Verify(token)
}

// TokensEnabled reports whether Login issues tokens.
func (s *Service) TokensEnabled() bool {
	return s.tokens != nil
}

// HashPassword returns a bcrypt hash at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Matches compares a password against a stored secret. Secrets that look like
// bcrypt hashes are verified as such; anything else is a legacy plaintext cell
// and is compared in constant time.
func Matches(stored, password string) bool {
	if IsHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

// IsHash reports whether s has a bcrypt prefix.
func IsHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
