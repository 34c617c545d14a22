package store

import (
	"context"
	"errors"
	"time"

	"github.com/reeutil/reeutil/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface for durable principal records.
// Concrete drivers (sqlite today) implement this; it exposes sub-repositories
// to keep concerns tidy and testable. The ephemeral captcha/code/pending-login
// state lives behind the KV interface instead, since it has no durability
// requirement.
type Store interface {
	Customers() Customers
	Employees() Employees
	Roles() Roles

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Customers interface {
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (domain.Customer, error)

	GetByID(ctx context.Context, id string) (domain.Customer, error)

	// Create inserts a new customer (id provided by app via ULID). Returns
	// ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, c domain.Customer) error

	// UpdatePassword writes the new hash, the trimmed history and the
	// changed-at stamp in one update. History policy is the caller's job.
	UpdatePassword(ctx context.Context, id, newHash string, history []string, changedAt time.Time) error

	// RecordFailedAttempt increments the failure counter and, when the new
	// count reaches threshold, sets blocked and blocked-at in the same
	// statement. Returns the updated record.
	RecordFailedAttempt(ctx context.Context, id string, threshold int, now time.Time) (domain.Customer, error)

	// ResetFailedAttempts zeroes the counter without touching anything else.
	ResetFailedAttempts(ctx context.Context, id string) error

	// Unblock clears the blocked flag, blocked-at and the failure counter.
	Unblock(ctx context.Context, id string) error
}

type Employees interface {
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (domain.Employee, error)

	GetByID(ctx context.Context, id string) (domain.Employee, error)

	// Create inserts a new employee. Returns ErrAlreadyExists when the email
	// is taken among employees. Uniqueness across the customer table is NOT
	// enforced; the login precedence rule depends on that.
	Create(ctx context.Context, e domain.Employee) error

	// UpdatePassword sets the hash. Employees carry no password history.
	UpdatePassword(ctx context.Context, id, newHash string) error

	// UpdatePermissions replaces the per-employee permission overrides.
	UpdatePermissions(ctx context.Context, id string, permissions []string) error
}

type Roles interface {
	GetByID(ctx context.Context, id string) (domain.Role, error)
	GetByName(ctx context.Context, name string) (domain.Role, error)
	Create(ctx context.Context, r domain.Role) error
	ListAll(ctx context.Context) ([]domain.Role, error)
}

// KV is the injected abstraction over the ephemeral single-process maps
// (captcha challenges, verification codes, pending logins). A deployment that
// needs shared state across instances can swap in an external driver without
// touching the orchestration logic. Implementations must make each operation
// atomic; Take in particular exists so single-use consumption cannot race.
type KV[V any] interface {
	// Put stores or overwrites the value for key with the given expiry.
	Put(key string, v V, expiresAt time.Time)

	// Get returns the live value for key. Expired entries are treated as
	// absent (and may be removed as a side effect).
	Get(key string) (V, bool)

	// Take atomically removes and returns the live value for key.
	Take(key string) (V, bool)

	// Delete removes key if present.
	Delete(key string)

	// Sweep removes every entry whose expiry is at or before now and reports
	// how many were dropped. Callers run it opportunistically around their
	// own operations.
	Sweep(now time.Time) int
}
