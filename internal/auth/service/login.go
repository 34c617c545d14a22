package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reeutil/reeutil/internal/auth/domain"
	"github.com/reeutil/reeutil/internal/auth/mailer"
	"github.com/reeutil/reeutil/internal/auth/store"
	"github.com/reeutil/reeutil/pkg/cryptox"
	"github.com/reeutil/reeutil/pkg/jwtx"
	"github.com/reeutil/reeutil/pkg/slogx"
)

// DefaultPendingLoginTTL bounds how long a primary-authenticated login may
// wait for its second factor.
const DefaultPendingLoginTTL = 10 * time.Minute

var (
	ErrCaptchaRequired = errors.New("captcha id and response are required")

	// ErrInvalidCredentials covers unknown email and wrong password alike so
	// the response cannot be used to enumerate accounts across either
	// principal variant.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrPasswordExpired = errors.New("password expired")

	ErrLoginSessionNotFound = errors.New("pending login not found or expired")

	ErrLoginCodeMismatch = errors.New("incorrect login verification code")

	// ErrDependency marks infrastructure failures (mail dispatch, store
	// outage) that map to a 500 at the boundary.
	ErrDependency = errors.New("dependency failure")
)

// AccountBlockedError is returned for blocked principals. BlockedAt is set
// for customers, whose lockout timestamp is surfaced to the caller; employee
// blocks carry no timestamp.
type AccountBlockedError struct {
	BlockedAt *time.Time
}

func (e *AccountBlockedError) Error() string { return "account is blocked" }

// AttemptsRemainingError is a failed customer password attempt that has not
// yet tripped the lockout. Remaining counts down to the blocking attempt.
type AttemptsRemainingError struct {
	Remaining int
}

func (e *AttemptsRemainingError) Error() string {
	return fmt.Sprintf("invalid email or password (%d attempts remaining)", e.Remaining)
}

// LoginResult is the outcome of a login or confirmation call. State is the
// machine state the flow ended in: AwaitingSecondFactor for customers who
// still owe a code, SessionIssued when a token was minted.
type LoginResult struct {
	State domain.LoginState

	RequiresVerification bool
	Email                string

	SessionToken string
	Principal    *domain.Principal
}

// LoginRequest carries the credentials plus the captcha proof for a login
// attempt.
type LoginRequest struct {
	Email           string
	Password        string
	CaptchaID       string
	CaptchaResponse string
}

// LoginService drives the authentication state machine:
//
//	AwaitingCredentials -> CaptchaValidated -> PrimaryAuthenticated
//	    -> AwaitingSecondFactor -> SessionIssued
//
// with Rejected exits at every step. Employees short-circuit from
// PrimaryAuthenticated straight to SessionIssued; only customers go through
// the emailed second factor.
type LoginService struct {
	Store       store.Store
	Credentials *CredentialService
	Captcha     *CaptchaService
	Pending     store.KV[domain.PendingLogin]
	Mailer      mailer.Sender
	Tokens      *jwtx.Codec
	PendingTTL  time.Duration
}

// Login runs the flow up to either a minted session (employees) or an
// outstanding second factor (customers).
func (s *LoginService) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	log := slogx.FromContext(ctx)

	// AwaitingCredentials -> CaptchaValidated
	if strings.TrimSpace(req.CaptchaID) == "" || strings.TrimSpace(req.CaptchaResponse) == "" {
		return rejectedResult(), ErrCaptchaRequired
	}
	if err := s.Captcha.Validate(ctx, req.CaptchaID, req.CaptchaResponse); err != nil {
		log.Warn("captcha validation failed", "err", err)
		return rejectedResult(), err
	}

	email := EmailKey(req.Email)

	// CaptchaValidated -> PrimaryAuthenticated. Employees take precedence:
	// when the same email exists in both tables, only the employee's
	// password is ever checked.
	employee, err := s.Store.Employees().GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.loginEmployee(ctx, employee, req.Password)
	case !errors.Is(err, store.ErrNotFound):
		return rejectedResult(), fmt.Errorf("%w: employee lookup: %v", ErrDependency, err)
	}

	customer, err := s.Store.Customers().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Same message as a wrong password; do not reveal which.
			return rejectedResult(), ErrInvalidCredentials
		}
		return rejectedResult(), fmt.Errorf("%w: customer lookup: %v", ErrDependency, err)
	}

	return s.loginCustomer(ctx, customer, req.Password)
}

func (s *LoginService) loginEmployee(ctx context.Context, e domain.Employee, password string) (LoginResult, error) {
	log := slogx.FromContext(ctx)

	if e.Blocked {
		return rejectedResult(), &AccountBlockedError{}
	}

	if err := s.Credentials.VerifyPassword(password, e.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			// No lockout counter for employees in this flow.
			return rejectedResult(), ErrInvalidCredentials
		}
		return rejectedResult(), fmt.Errorf("%w: verify employee password: %v", ErrDependency, err)
	}

	// Employees skip the second factor entirely.
	principal := domain.NewEmployeePrincipal(&e)
	token, err := s.mintToken(principal)
	if err != nil {
		return rejectedResult(), err
	}

	log.Info("employee login", "employee_id", e.ID)
	return LoginResult{
		State:        domain.StateSessionIssued,
		SessionToken: token,
		Principal:    &principal,
	}, nil
}

func (s *LoginService) loginCustomer(ctx context.Context, c domain.Customer, password string) (LoginResult, error) {
	log := slogx.FromContext(ctx)

	if c.Blocked {
		return rejectedResult(), &AccountBlockedError{BlockedAt: c.BlockedAt}
	}

	if err := s.Credentials.VerifyPassword(password, c.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			return rejectedResult(), fmt.Errorf("%w: verify customer password: %v", ErrDependency, err)
		}

		updated, recErr := s.Credentials.RecordFailedAttempt(ctx, c.ID)
		if recErr != nil {
			return rejectedResult(), fmt.Errorf("%w: record failed attempt: %v", ErrDependency, recErr)
		}
		if updated.Blocked {
			log.Warn("customer locked out", "customer_id", c.ID)
			return rejectedResult(), &AccountBlockedError{BlockedAt: updated.BlockedAt}
		}
		return rejectedResult(), &AttemptsRemainingError{Remaining: LockoutThreshold - updated.FailedAttempts}
	}

	// Successful primary auth clears any accumulated failures.
	if c.FailedAttempts > 0 {
		if err := s.Credentials.ResetAttempts(ctx, c.ID); err != nil {
			return rejectedResult(), fmt.Errorf("%w: reset attempts: %v", ErrDependency, err)
		}
	}

	// Password expiry preempts the second factor.
	if s.Credentials.IsPasswordExpired(c, time.Now().UTC()) {
		return rejectedResult(), ErrPasswordExpired
	}

	// PrimaryAuthenticated -> AwaitingSecondFactor
	code, err := GenerateCode()
	if err != nil {
		return rejectedResult(), fmt.Errorf("%w: %v", ErrDependency, err)
	}

	now := time.Now()
	ttl := s.PendingTTL
	if ttl <= 0 {
		ttl = DefaultPendingLoginTTL
	}

	key := EmailKey(c.Email)
	s.Pending.Sweep(now)
	s.Pending.Put(key, domain.PendingLogin{
		PrincipalID: c.ID,
		Kind:        domain.KindCustomer,
		Code:        code,
		State:       domain.StateAwaitingSecondFactor,
		ExpiresAt:   now.Add(ttl),
	}, now.Add(ttl))

	if err := s.Mailer.SendVerificationCode(ctx, c.Email, code); err != nil {
		// The second factor must never be half issued: a code the customer
		// never received would dead-end the flow until expiry.
		s.Pending.Delete(key)
		log.Error("verification code dispatch failed", "customer_id", c.ID, "err", err)
		return rejectedResult(), fmt.Errorf("%w: send verification code: %v", ErrDependency, err)
	}

	log.Info("customer primary auth ok, second factor issued", "customer_id", c.ID)
	return LoginResult{
		State:                domain.StateAwaitingSecondFactor,
		RequiresVerification: true,
		Email:                c.Email,
	}, nil
}

// Confirm completes AwaitingSecondFactor -> SessionIssued. A code mismatch
// keeps the pending record so the caller can retry until it expires; there is
// no attempt counter on this step.
func (s *LoginService) Confirm(ctx context.Context, email, code string) (LoginResult, error) {
	log := slogx.FromContext(ctx)

	s.Pending.Sweep(time.Now())

	key := EmailKey(email)
	pending, ok := s.Pending.Get(key)
	if !ok {
		return rejectedResult(), ErrLoginSessionNotFound
	}
	if pending.State != domain.StateAwaitingSecondFactor {
		// A record in any other state cannot be confirmed.
		return rejectedResult(), ErrLoginSessionNotFound
	}

	if pending.Code != strings.TrimSpace(code) {
		return rejectedResult(), ErrLoginCodeMismatch
	}

	s.Pending.Delete(key)

	principal, err := s.resolvePrincipal(ctx, pending.Kind, pending.PrincipalID)
	if err != nil {
		return rejectedResult(), err
	}

	token, err := s.mintToken(principal)
	if err != nil {
		return rejectedResult(), err
	}

	log.Info("second factor confirmed, session issued", "principal_id", principal.ID())
	return LoginResult{
		State:        domain.StateSessionIssued,
		SessionToken: token,
		Principal:    &principal,
	}, nil
}

func (s *LoginService) resolvePrincipal(ctx context.Context, kind domain.Kind, id string) (domain.Principal, error) {
	switch kind {
	case domain.KindEmployee:
		e, err := s.Store.Employees().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Principal{}, ErrLoginSessionNotFound
			}
			return domain.Principal{}, fmt.Errorf("%w: employee lookup: %v", ErrDependency, err)
		}
		return domain.NewEmployeePrincipal(&e), nil
	default:
		c, err := s.Store.Customers().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Principal{}, ErrLoginSessionNotFound
			}
			return domain.Principal{}, fmt.Errorf("%w: customer lookup: %v", ErrDependency, err)
		}
		return domain.NewCustomerPrincipal(&c), nil
	}
}

func (s *LoginService) mintToken(p domain.Principal) (string, error) {
	token, err := s.Tokens.Sign(
		p.ID(), string(p.Kind), p.RoleSignal(), p.Email(), p.DisplayName(),
		time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: mint session token: %v", ErrDependency, err)
	}
	return token, nil
}

func rejectedResult() LoginResult {
	return LoginResult{State: domain.StateRejected}
}
