package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/reeutil/reeutil/internal/auth/domain"
	"github.com/reeutil/reeutil/internal/auth/service"
	"github.com/reeutil/reeutil/pkg/authapi"
	"github.com/reeutil/reeutil/pkg/httpx"
	"github.com/reeutil/reeutil/pkg/slogx"
)

// MinPasswordLength applies to every password accepted over the wire.
const MinPasswordLength = 8

// PasswordHandler drives the password reset and change endpoints.
type PasswordHandler struct {
	PasswordService *service.PasswordService
}

// HandleForgot handles POST /v1/auth/password/forgot. The response is 202
// regardless of whether the email is known.
func (h *PasswordHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authapi.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authapi.NewValidation("invalid JSON body").WriteError(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		authapi.NewValidation("email is required").WriteError(w)
		return
	}

	if err := h.PasswordService.Forgot(ctx, req.Email); err != nil {
		slogx.FromContext(ctx).Error("forgot password failed", "err", err)
		mapServiceError(err).WriteError(w)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusAccepted)
}

// HandleReset handles POST /v1/auth/password/reset, completing the forgot
// flow with the emailed code.
func (h *PasswordHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authapi.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authapi.NewValidation("invalid JSON body").WriteError(w)
		return
	}

	if apiErr := validateNewPassword(req.NewPassword, req.ConfirmPassword); apiErr != nil {
		apiErr.WriteError(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Code) == "" {
		authapi.NewValidation("email and code are required").WriteError(w)
		return
	}

	if err := h.PasswordService.Reset(ctx, req.Email, req.Code, req.NewPassword); err != nil {
		apiErr := mapServiceError(err)
		if apiErr.Code == authapi.CodeDependencyFailure {
			slogx.FromContext(ctx).Error("password reset failed", "err", err)
		}
		apiErr.WriteError(w)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleChange handles POST /v1/auth/password/change for the authenticated
// principal. The current password must be supplied even with a valid session.
func (h *PasswordHandler) HandleChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := principalFrom(ctx)
	if !ok {
		authapi.ErrUnauthorized.WriteError(w)
		return
	}

	var req authapi.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authapi.NewValidation("invalid JSON body").WriteError(w)
		return
	}

	if apiErr := validateNewPassword(req.NewPassword, req.ConfirmPassword); apiErr != nil {
		apiErr.WriteError(w)
		return
	}
	if req.CurrentPassword == "" {
		authapi.NewValidation("currentPassword is required").WriteError(w)
		return
	}

	var err error
	if principal.Kind == domain.KindEmployee {
		err = h.PasswordService.ChangeEmployeePassword(ctx, principal.ID(), req.CurrentPassword, req.NewPassword)
	} else {
		err = h.PasswordService.Change(ctx, principal.ID(), req.CurrentPassword, req.NewPassword)
	}
	if err != nil {
		apiErr := mapServiceError(err)
		if apiErr.Code == authapi.CodeDependencyFailure {
			slogx.FromContext(ctx).Error("password change failed", "err", err)
		}
		apiErr.WriteError(w)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

func validateNewPassword(newPassword, confirm string) *authapi.Error {
	if len(newPassword) < MinPasswordLength {
		return authapi.NewValidation("newPassword must be at least 8 characters")
	}
	if newPassword != confirm {
		return authapi.NewValidation("newPassword and confirmPassword do not match")
	}
	return nil
}
