package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/reeutil/reeutil/internal/auth/mailer"
	"github.com/reeutil/reeutil/internal/auth/store"
	"github.com/reeutil/reeutil/pkg/cryptox"
	"github.com/reeutil/reeutil/pkg/slogx"
)

// PasswordService handles the self-service reset flow (forgot -> code ->
// reset) and the authenticated password change. Both end in
// CredentialService.UpdateCustomerPassword, so history and expiry bookkeeping
// is identical no matter how the change was initiated.
type PasswordService struct {
	Store        store.Store
	Credentials  *CredentialService
	Verification *VerificationService
	Mailer       mailer.Sender
}

// Forgot issues a reset code for the given email. An unknown email succeeds
// silently so the endpoint cannot be used to probe which addresses hold
// accounts. Only customers participate; employee passwords are provisioned by
// an administrator.
func (s *PasswordService) Forgot(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)

	customer, err := s.Store.Customers().GetByEmail(ctx, EmailKey(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("%w: customer lookup: %v", ErrDependency, err)
	}

	code, err := s.Verification.Issue(ctx, customer.Email)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDependency, err)
	}

	if err := s.Mailer.SendVerificationCode(ctx, customer.Email, code); err != nil {
		// A code the customer never received is unusable; drop it so a
		// retried request issues a fresh one cleanly.
		s.Verification.Drop(customer.Email)
		log.Error("reset code dispatch failed", "customer_id", customer.ID, "err", err)
		return fmt.Errorf("%w: send reset code: %v", ErrDependency, err)
	}

	log.Info("password reset code issued", "customer_id", customer.ID)
	return nil
}

// Reset completes the forgot flow: it consumes the emailed code and installs
// the new password under the usual history rules. The code is single use on
// success but survives a mismatch, so a typo does not force a new email.
func (s *PasswordService) Reset(ctx context.Context, email, code, newPassword string) error {
	if err := s.Verification.Consume(ctx, email, code); err != nil {
		return err
	}

	customer, err := s.Store.Customers().GetByEmail(ctx, EmailKey(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCodeNotFound
		}
		return fmt.Errorf("%w: customer lookup: %v", ErrDependency, err)
	}

	if err := s.Credentials.UpdateCustomerPassword(ctx, customer, newPassword); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password reset completed", "customer_id", customer.ID)
	return nil
}

// Change is the authenticated variant: the caller proves knowledge of the
// current password instead of an emailed code.
func (s *PasswordService) Change(ctx context.Context, customerID, currentPassword, newPassword string) error {
	customer, err := s.Store.Customers().GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("%w: customer lookup: %v", ErrDependency, err)
	}

	if err := s.Credentials.VerifyPassword(currentPassword, customer.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("%w: verify current password: %v", ErrDependency, err)
	}

	if err := s.Credentials.UpdateCustomerPassword(ctx, customer, newPassword); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password changed", "customer_id", customer.ID)
	return nil
}

// ChangeEmployeePassword rotates an employee password. Employees carry no
// password history, so only the hash is replaced.
func (s *PasswordService) ChangeEmployeePassword(ctx context.Context, employeeID, currentPassword, newPassword string) error {
	employee, err := s.Store.Employees().GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("%w: employee lookup: %v", ErrDependency, err)
	}

	if err := s.Credentials.VerifyPassword(currentPassword, employee.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("%w: verify current password: %v", ErrDependency, err)
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: hash password: %v", ErrDependency, err)
	}
	if err := s.Store.Employees().UpdatePassword(ctx, employee.ID, hash); err != nil {
		return fmt.Errorf("%w: store employee password: %v", ErrDependency, err)
	}

	slogx.FromContext(ctx).Info("employee password changed", "employee_id", employee.ID)
	return nil
}
