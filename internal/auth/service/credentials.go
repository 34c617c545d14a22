package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reeutil/reeutil/internal/auth/domain"
	"github.com/reeutil/reeutil/internal/auth/store"
	"github.com/reeutil/reeutil/pkg/cryptox"
)

const (
	// LockoutThreshold is the number of consecutive failed attempts after
	// which a customer account is blocked.
	LockoutThreshold = 3

	// PasswordMaxAge is the customer password expiry policy.
	PasswordMaxAge = 60 * 24 * time.Hour
)

var ErrPasswordReused = errors.New("new password matches a recent password")

// CredentialService wraps the principal store with the credential policy:
// slow-hash verification, password history, lockout counting and expiry.
// Employees share the hash primitives but none of the customer policy:
// history, expiry and lockout apply to customers only.
type CredentialService struct {
	Store store.Store
}

// VerifyPassword compares a candidate against a stored hash.
func (s *CredentialService) VerifyPassword(candidate, storedHash string) error {
	return cryptox.VerifyPassword(candidate, storedHash)
}

// UpdateCustomerPassword enforces the history policy before storing a new
// hash. The history holds the most recent hashes, newest first and capped at
// domain.PasswordHistorySize, with the current hash always at the head. The
// reuse check short-circuits on the first match.
func (s *CredentialService) UpdateCustomerPassword(ctx context.Context, c domain.Customer, newPlaintext string) error {
	for _, oldHash := range c.PasswordHistory {
		if err := cryptox.VerifyPassword(newPlaintext, oldHash); err == nil {
			return ErrPasswordReused
		} else if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			return fmt.Errorf("compare against history: %w", err)
		}
	}

	newHash, err := cryptox.HashPassword(newPlaintext)
	if err != nil {
		return err
	}

	history := append([]string{newHash}, c.PasswordHistory...)
	if len(history) > domain.PasswordHistorySize {
		history = history[:domain.PasswordHistorySize]
	}

	return s.Store.Customers().UpdatePassword(ctx, c.ID, newHash, history, time.Now().UTC())
}

// RecordFailedAttempt bumps the counter and blocks the account at the
// threshold, returning the updated record so callers can see both effects.
func (s *CredentialService) RecordFailedAttempt(ctx context.Context, customerID string) (domain.Customer, error) {
	return s.Store.Customers().RecordFailedAttempt(ctx, customerID, LockoutThreshold, time.Now().UTC())
}

// ResetAttempts zeroes the failure counter without touching anything else.
func (s *CredentialService) ResetAttempts(ctx context.Context, customerID string) error {
	return s.Store.Customers().ResetFailedAttempts(ctx, customerID)
}

// IsPasswordExpired reports whether the password is older than the expiry
// policy, measured from the later of password-changed-at and created-at.
func (s *CredentialService) IsPasswordExpired(c domain.Customer, now time.Time) bool {
	reference := c.CreatedAt
	if c.PasswordChangedAt != nil && c.PasswordChangedAt.After(reference) {
		reference = *c.PasswordChangedAt
	}
	return now.Sub(reference) > PasswordMaxAge
}
