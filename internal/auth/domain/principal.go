package domain

import "time"

// Kind discriminates the two principal variants. It is set once at
// authentication time and carried everywhere downstream; nothing infers the
// variant from field presence.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindEmployee Kind = "employee"
)

// PasswordHistorySize is how many prior password hashes a customer keeps.
const PasswordHistorySize = 3

// Customer is the shopper-facing account variant. Customers are subject to
// lockout, password history and password expiry.
type Customer struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string // unique, matched case-insensitively
	PasswordHash string // bcrypt encoded
	Role         string // literal role name checked at the gate

	// PasswordHistory holds the most recent prior hashes, newest first,
	// capped at PasswordHistorySize.
	PasswordHistory   []string
	PasswordChangedAt *time.Time

	FailedAttempts int
	Blocked        bool
	BlockedAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Employee is the staff account variant. Employees reference a Role entity,
// may carry per-employee permission overrides, and are treated as
// administrators at the access gate.
type Employee struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string // unique among employees, matched case-insensitively
	PasswordHash string
	RoleID       string
	Permissions  []string // per-employee overrides on top of the role

	FailedAttempts int
	Blocked        bool
	BlockedAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role is the employee role entity referenced by Employee.RoleID.
type Role struct {
	ID          string
	Name        string
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Principal is the tagged union of the two account variants. Exactly one of
// Customer/Employee is non-nil, matching Kind.
type Principal struct {
	Kind     Kind
	Customer *Customer
	Employee *Employee
}

// NewCustomerPrincipal wraps a customer record in the tagged union.
func NewCustomerPrincipal(c *Customer) Principal {
	return Principal{Kind: KindCustomer, Customer: c}
}

// NewEmployeePrincipal wraps an employee record in the tagged union.
func NewEmployeePrincipal(e *Employee) Principal {
	return Principal{Kind: KindEmployee, Employee: e}
}

// ID returns the underlying record id.
func (p Principal) ID() string {
	if p.Kind == KindEmployee {
		return p.Employee.ID
	}
	return p.Customer.ID
}

// Email returns the underlying record email.
func (p Principal) Email() string {
	if p.Kind == KindEmployee {
		return p.Employee.Email
	}
	return p.Customer.Email
}

// DisplayName joins the name parts.
func (p Principal) DisplayName() string {
	if p.Kind == KindEmployee {
		return p.Employee.FirstName + " " + p.Employee.LastName
	}
	return p.Customer.FirstName + " " + p.Customer.LastName
}

// RoleSignal is the coarse-grained role carried in session tokens. Employees
// always report "admin"; customers report their literal role.
func (p Principal) RoleSignal() string {
	if p.Kind == KindEmployee {
		return "admin"
	}
	return p.Customer.Role
}
