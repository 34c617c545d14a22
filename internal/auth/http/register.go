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

// RegisterHandler handles customer self-registration.
type RegisterHandler struct {
	AccountService *service.AccountService
}

// HandleRegister handles POST /v1/auth/register.
func (h *RegisterHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authapi.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authapi.NewValidation("invalid JSON body").WriteError(w)
		return
	}

	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		authapi.NewValidation("firstName and lastName are required").WriteError(w)
		return
	}
	if !strings.Contains(req.Email, "@") {
		authapi.NewValidation("email is not valid").WriteError(w)
		return
	}
	if len(req.Password) < MinPasswordLength {
		authapi.NewValidation("password must be at least 8 characters").WriteError(w)
		return
	}

	customer, err := h.AccountService.RegisterCustomer(ctx, service.RegisterCustomerParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		apiErr := mapServiceError(err)
		if apiErr.Code == authapi.CodeDependencyFailure {
			slogx.FromContext(ctx).Error("registration failed", "err", err)
		}
		apiErr.WriteError(w)
		return
	}

	principal := toWirePrincipal(domain.NewCustomerPrincipal(&customer))
	httpx.WriteJSON(w, http.StatusCreated, principal)
}
