package authapi

import "time"

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	CaptchaID       string `json:"captchaId"`
	CaptchaResponse string `json:"captchaResponse"`
}

// LoginResponse is returned from POST /v1/auth/login. Exactly one of the two
// shapes is populated: a pending second factor, or a completed session
// (employees skip the second factor).
type LoginResponse struct {
	RequiresVerification bool   `json:"requiresVerification"`
	Email                string `json:"email,omitempty"`

	SessionToken string     `json:"sessionToken,omitempty"`
	Principal    *Principal `json:"principal,omitempty"`
}

// ConfirmLoginRequest is the body of POST /v1/auth/login/confirm.
type ConfirmLoginRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// SessionResponse is returned once a session token has been minted.
type SessionResponse struct {
	SessionToken string    `json:"sessionToken"`
	Principal    Principal `json:"principal"`
}

// Principal is the wire form of an authenticated actor. Kind discriminates
// the two variants; employees always report the "admin" role signal.
type Principal struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"` // "customer" | "employee"
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`

	// Permissions carries employee permission overrides; empty for customers.
	Permissions []string `json:"permissions,omitempty"`
}

// CaptchaResponse is returned from GET /v1/auth/captcha. Image is a base64
// PNG data URL.
type CaptchaResponse struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

// RegisterRequest is the body of POST /v1/auth/register.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// ForgotPasswordRequest is the body of POST /v1/auth/password/forgot.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /v1/auth/password/reset.
type ResetPasswordRequest struct {
	Email           string `json:"email"`
	Code            string `json:"code"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ChangePasswordRequest is the body of POST /v1/auth/password/change.
type ChangePasswordRequest struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// CreateEmployeeRequest is the body of POST /v1/admin/employees.
type CreateEmployeeRequest struct {
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Email       string   `json:"email"`
	Password    string   `json:"password,omitempty"` // generated when empty
	RoleID      string   `json:"roleId,omitempty"`
	Role        string   `json:"role,omitempty"` // role name, used when roleId is empty
	Permissions []string `json:"permissions,omitempty"`
}

// CreateEmployeeResponse echoes the provisioned employee. InitialPassword is
// only set when the service generated one.
type CreateEmployeeResponse struct {
	Principal       Principal `json:"principal"`
	InitialPassword string    `json:"initialPassword,omitempty"`
}

// UpdatePermissionsRequest is the body of PUT /v1/admin/employees/{id}/permissions.
type UpdatePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// Role is a provisionable employee role.
type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions,omitempty"`
}

// ListRolesResponse is returned from GET /v1/admin/roles.
type ListRolesResponse struct {
	Roles []Role `json:"roles"`
}

// HealthResponse is returned from the livez/readyz endpoints.
type HealthResponse struct {
	Status  string    `json:"status"`
	Version string    `json:"version"`
	Uptime  string    `json:"uptime"`
	Time    time.Time `json:"time"`
}
