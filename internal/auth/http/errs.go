package http

import (
	"errors"

	"github.com/reeutil/reeutil/internal/auth/domain"
	"github.com/reeutil/reeutil/internal/auth/service"
	"github.com/reeutil/reeutil/pkg/authapi"
)

// mapServiceError translates service-layer errors into the wire taxonomy.
// Anything unrecognized becomes a generic dependency failure so internal
// details never leak to clients.
func mapServiceError(err error) *authapi.Error {
	var blocked *service.AccountBlockedError
	if errors.As(err, &blocked) {
		return authapi.NewAccountBlocked(blocked.BlockedAt)
	}

	var remaining *service.AttemptsRemainingError
	if errors.As(err, &remaining) {
		return authapi.NewInvalidCredentials(remaining.Remaining)
	}

	switch {
	case errors.Is(err, service.ErrCaptchaRequired):
		return authapi.NewValidation("captchaId and captchaResponse are required")
	case errors.Is(err, service.ErrCaptchaNotFound),
		errors.Is(err, service.ErrCaptchaMismatch):
		return authapi.ErrInvalidCaptcha
	case errors.Is(err, service.ErrInvalidCredentials):
		return authapi.ErrInvalidCredentials
	case errors.Is(err, service.ErrPasswordExpired):
		return authapi.ErrPasswordExpired
	case errors.Is(err, service.ErrLoginSessionNotFound):
		return authapi.ErrSessionNotFound
	case errors.Is(err, service.ErrLoginCodeMismatch):
		return authapi.ErrCodeMismatch
	case errors.Is(err, service.ErrCodeNotFound):
		return authapi.ErrCodeNotFound
	case errors.Is(err, service.ErrCodeMismatch):
		return authapi.ErrCodeMismatch
	case errors.Is(err, service.ErrPasswordReused):
		return authapi.ErrPasswordReused
	case errors.Is(err, service.ErrEmailTaken):
		return authapi.ErrDuplicate
	case errors.Is(err, service.ErrRoleNotFound):
		return authapi.NewValidation("roleId does not reference a known role")
	case errors.Is(err, service.ErrPrincipalGone):
		return authapi.ErrUnauthorized
	default:
		return authapi.ErrDependencyFailure
	}
}

// toWirePrincipal flattens the tagged union into its wire form.
func toWirePrincipal(p domain.Principal) authapi.Principal {
	out := authapi.Principal{
		ID:    p.ID(),
		Kind:  string(p.Kind),
		Email: p.Email(),
		Role:  p.RoleSignal(),
	}
	switch p.Kind {
	case domain.KindEmployee:
		out.FirstName = p.Employee.FirstName
		out.LastName = p.Employee.LastName
		out.Permissions = p.Employee.Permissions
	default:
		out.FirstName = p.Customer.FirstName
		out.LastName = p.Customer.LastName
	}
	return out
}
