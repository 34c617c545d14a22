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

// AdminHandler covers the staff-only account administration endpoints.
type AdminHandler struct {
	AccountService *service.AccountService
}

// HandleCreateEmployee handles POST /v1/admin/employees. When no password is
// supplied one is generated and returned exactly once for out-of-band
// delivery.
func (h *AdminHandler) HandleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authapi.CreateEmployeeRequest
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
	if strings.TrimSpace(req.RoleID) == "" && strings.TrimSpace(req.Role) == "" {
		authapi.NewValidation("roleId or role is required").WriteError(w)
		return
	}
	if req.Password != "" && len(req.Password) < MinPasswordLength {
		authapi.NewValidation("password must be at least 8 characters").WriteError(w)
		return
	}

	employee, generated, err := h.AccountService.CreateEmployee(ctx, service.CreateEmployeeParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		RoleID:    strings.TrimSpace(req.RoleID),
		RoleName:  strings.TrimSpace(req.Role),
	})
	if err != nil {
		apiErr := mapServiceError(err)
		if apiErr.Code == authapi.CodeDependencyFailure {
			log.Error("employee creation failed", "err", err)
		}
		apiErr.WriteError(w)
		return
	}

	if len(req.Permissions) > 0 {
		if err := h.AccountService.UpdateEmployeePermissions(ctx, employee.ID, req.Permissions); err != nil {
			log.Error("setting initial permissions failed", "employee_id", employee.ID, "err", err)
			mapServiceError(err).WriteError(w)
			return
		}
		employee.Permissions = req.Permissions
	}

	httpx.WriteJSON(w, http.StatusCreated, authapi.CreateEmployeeResponse{
		Principal:       toWirePrincipal(domain.NewEmployeePrincipal(&employee)),
		InitialPassword: generated,
	})
}

// HandleListRoles handles GET /v1/admin/roles.
func (h *AdminHandler) HandleListRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roles, err := h.AccountService.ListRoles(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("listing roles failed", "err", err)
		mapServiceError(err).WriteError(w)
		return
	}

	resp := authapi.ListRolesResponse{Roles: make([]authapi.Role, 0, len(roles))}
	for _, role := range roles {
		resp.Roles = append(resp.Roles, authapi.Role{
			ID:          role.ID,
			Name:        role.Name,
			Permissions: role.Permissions,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleUnblockCustomer handles POST /v1/admin/customers/{id}/unblock.
func (h *AdminHandler) HandleUnblockCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := r.PathValue("id")
	if id == "" {
		authapi.NewValidation("customer id is required").WriteError(w)
		return
	}

	if err := h.AccountService.UnblockCustomer(ctx, id); err != nil {
		if apiErr := mapServiceError(err); apiErr.Code == authapi.CodeDependencyFailure {
			slogx.FromContext(ctx).Error("unblock failed", "customer_id", id, "err", err)
			apiErr.WriteError(w)
		} else {
			// An unknown id is a validation problem for the admin, not a 401.
			authapi.NewValidation("customer not found").WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdatePermissions handles PUT /v1/admin/employees/{id}/permissions.
func (h *AdminHandler) HandleUpdatePermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := r.PathValue("id")
	if id == "" {
		authapi.NewValidation("employee id is required").WriteError(w)
		return
	}

	var req authapi.UpdatePermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authapi.NewValidation("invalid JSON body").WriteError(w)
		return
	}

	if err := h.AccountService.UpdateEmployeePermissions(ctx, id, req.Permissions); err != nil {
		if apiErr := mapServiceError(err); apiErr.Code == authapi.CodeDependencyFailure {
			slogx.FromContext(ctx).Error("permission update failed", "employee_id", id, "err", err)
			apiErr.WriteError(w)
		} else {
			authapi.NewValidation("employee not found").WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
