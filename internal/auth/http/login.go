package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/reeutil/reeutil/internal/auth/service"
	"github.com/reeutil/reeutil/pkg/authapi"
	"github.com/reeutil/reeutil/pkg/httpx"
	"github.com/reeutil/reeutil/pkg/slogx"
)

// LoginHandler drives the login flow endpoints.
type LoginHandler struct {
	LoginService *service.LoginService
}

// HandleLogin handles POST /v1/auth/login. Customers receive a pending
// second factor; employees receive a session directly.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authapi.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authapi.NewValidation("invalid JSON body").WriteError(w)
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		authapi.NewValidation("email and password are required").WriteError(w)
		return
	}

	res, err := h.LoginService.Login(ctx, service.LoginRequest{
		Email:           req.Email,
		Password:        req.Password,
		CaptchaID:       req.CaptchaID,
		CaptchaResponse: req.CaptchaResponse,
	})
	if err != nil {
		apiErr := mapServiceError(err)
		if apiErr.Code == authapi.CodeDependencyFailure {
			log.Error("login failed", "err", err)
		}
		apiErr.WriteError(w)
		return
	}

	if res.RequiresVerification {
		httpx.WriteJSON(w, http.StatusOK, authapi.LoginResponse{
			RequiresVerification: true,
			Email:                res.Email,
		})
		return
	}

	principal := toWirePrincipal(*res.Principal)
	httpx.WriteJSON(w, http.StatusOK, authapi.LoginResponse{
		SessionToken: res.SessionToken,
		Principal:    &principal,
	})
}

// HandleConfirm handles POST /v1/auth/login/confirm, completing a customer
// login with the emailed code.
func (h *LoginHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authapi.ConfirmLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authapi.NewValidation("invalid JSON body").WriteError(w)
		return
	}

	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Code) == "" {
		authapi.NewValidation("email and code are required").WriteError(w)
		return
	}

	res, err := h.LoginService.Confirm(ctx, req.Email, req.Code)
	if err != nil {
		apiErr := mapServiceError(err)
		if apiErr.Code == authapi.CodeDependencyFailure {
			slogx.FromContext(ctx).Error("login confirmation failed", "err", err)
		}
		apiErr.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authapi.SessionResponse{
		SessionToken: res.SessionToken,
		Principal:    toWirePrincipal(*res.Principal),
	})
}
