package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reeutil/reeutil/internal/auth/domain"
	"github.com/reeutil/reeutil/internal/auth/store"
	"github.com/reeutil/reeutil/pkg/cryptox"
	"github.com/reeutil/reeutil/pkg/idx"
	"github.com/reeutil/reeutil/pkg/slogx"
)

// DefaultCustomerRole is assigned to self-registered customers.
const DefaultCustomerRole = "customer"

var (
	ErrEmailTaken   = errors.New("email is already registered")
	ErrRoleNotFound = errors.New("role not found")

	// ErrPrincipalGone means a session references a record that no longer
	// exists. The session must be treated as invalid.
	ErrPrincipalGone = errors.New("principal no longer exists")
)

// AccountService covers account provisioning and administration: customer
// self-registration, employee provisioning, unblocking and permission
// management, plus the principal re-resolution the request gate relies on.
type AccountService struct {
	Store store.Store
}

// RegisterCustomerParams are the self-registration inputs.
type RegisterCustomerParams struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// RegisterCustomer creates a customer account. The initial hash seeds the
// password history so the starting password cannot be immediately reused, and
// the changed-at stamp starts the expiry clock.
func (s *AccountService) RegisterCustomer(ctx context.Context, p RegisterCustomerParams) (domain.Customer, error) {
	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("%w: hash password: %v", ErrDependency, err)
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:                idx.New().String(),
		FirstName:         strings.TrimSpace(p.FirstName),
		LastName:          strings.TrimSpace(p.LastName),
		Email:             EmailKey(p.Email),
		PasswordHash:      hash,
		Role:              DefaultCustomerRole,
		PasswordHistory:   []string{hash},
		PasswordChangedAt: &now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.Store.Customers().Create(ctx, customer); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Customer{}, ErrEmailTaken
		}
		return domain.Customer{}, fmt.Errorf("%w: create customer: %v", ErrDependency, err)
	}

	slogx.FromContext(ctx).Info("customer registered", "customer_id", customer.ID)
	return customer, nil
}

// CreateEmployeeParams are the admin-side employee provisioning inputs.
// Password may be empty, in which case one is generated and returned for
// out-of-band delivery.
type CreateEmployeeParams struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	RoleID    string
	RoleName  string // resolved through the role store when RoleID is empty
}

// CreateEmployee provisions a staff account under an existing role. The role
// may be given by id or by name. Returns the created record and, when the
// password was generated, its plaintext.
func (s *AccountService) CreateEmployee(ctx context.Context, p CreateEmployeeParams) (domain.Employee, string, error) {
	roleID := p.RoleID
	if roleID == "" {
		role, err := s.Store.Roles().GetByName(ctx, p.RoleName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Employee{}, "", ErrRoleNotFound
			}
			return domain.Employee{}, "", fmt.Errorf("%w: role lookup: %v", ErrDependency, err)
		}
		roleID = role.ID
	} else if _, err := s.Store.Roles().GetByID(ctx, roleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Employee{}, "", ErrRoleNotFound
		}
		return domain.Employee{}, "", fmt.Errorf("%w: role lookup: %v", ErrDependency, err)
	}

	password := p.Password
	generated := ""
	if password == "" {
		pw, err := cryptox.GeneratePassword()
		if err != nil {
			return domain.Employee{}, "", fmt.Errorf("%w: generate password: %v", ErrDependency, err)
		}
		password = pw
		generated = pw
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.Employee{}, "", fmt.Errorf("%w: hash password: %v", ErrDependency, err)
	}

	now := time.Now().UTC()
	employee := domain.Employee{
		ID:           idx.New().String(),
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		Email:        EmailKey(p.Email),
		PasswordHash: hash,
		RoleID:       roleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Employees().Create(ctx, employee); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Employee{}, "", ErrEmailTaken
		}
		return domain.Employee{}, "", fmt.Errorf("%w: create employee: %v", ErrDependency, err)
	}

	slogx.FromContext(ctx).Info("employee created", "employee_id", employee.ID, "role_id", employee.RoleID)
	return employee, generated, nil
}

// ListRoles returns every role an employee can be provisioned under.
func (s *AccountService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.Store.Roles().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list roles: %v", ErrDependency, err)
	}
	return roles, nil
}

// UnblockCustomer clears a lockout: blocked flag, timestamp and the failure
// counter all reset together.
func (s *AccountService) UnblockCustomer(ctx context.Context, customerID string) error {
	if err := s.Store.Customers().Unblock(ctx, customerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPrincipalGone
		}
		return fmt.Errorf("%w: unblock customer: %v", ErrDependency, err)
	}
	slogx.FromContext(ctx).Info("customer unblocked", "customer_id", customerID)
	return nil
}

// UpdateEmployeePermissions replaces an employee's permission overrides.
func (s *AccountService) UpdateEmployeePermissions(ctx context.Context, employeeID string, permissions []string) error {
	if err := s.Store.Employees().UpdatePermissions(ctx, employeeID, permissions); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPrincipalGone
		}
		return fmt.Errorf("%w: update permissions: %v", ErrDependency, err)
	}
	slogx.FromContext(ctx).Info("employee permissions updated", "employee_id", employeeID)
	return nil
}

// GetPrincipal re-resolves a principal from its durable record. The gate
// calls this on every authenticated request so that deleted accounts lose
// access immediately, not at token expiry.
func (s *AccountService) GetPrincipal(ctx context.Context, kind domain.Kind, id string) (domain.Principal, error) {
	switch kind {
	case domain.KindEmployee:
		e, err := s.Store.Employees().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Principal{}, ErrPrincipalGone
			}
			return domain.Principal{}, fmt.Errorf("%w: employee lookup: %v", ErrDependency, err)
		}
		return domain.NewEmployeePrincipal(&e), nil
	case domain.KindCustomer:
		c, err := s.Store.Customers().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Principal{}, ErrPrincipalGone
			}
			return domain.Principal{}, fmt.Errorf("%w: customer lookup: %v", ErrDependency, err)
		}
		return domain.NewCustomerPrincipal(&c), nil
	default:
		return domain.Principal{}, ErrPrincipalGone
	}
}
