package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/reeutil/reeutil/internal/auth/domain"
	"github.com/reeutil/reeutil/internal/auth/store"
	"github.com/reeutil/reeutil/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedCustomer(t *testing.T, st *Store, email string) domain.Customer {
	t.Helper()
	now := time.Now().UTC()
	c := domain.Customer{
		ID:              idx.New().String(),
		FirstName:       "Casey",
		LastName:        "Shopper",
		Email:           email,
		PasswordHash:    "hash",
		Role:            "customer",
		PasswordHistory: []string{"hash"},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, st.Customers().Create(context.Background(), c))
	return c
}

func TestCustomersEmailLookupIsCaseInsensitive(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seeded := seedCustomer(t, st, "casey@example.com")

	got, err := st.Customers().GetByEmail(ctx, "CASEY@Example.COM")
	require.NoError(t, err)
	require.Equal(t, seeded.ID, got.ID)

	t.Run("duplicate differs only in case", func(t *testing.T) {
		dup := seeded
		dup.ID = idx.New().String()
		dup.Email = "Casey@Example.com"
		err := st.Customers().Create(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := st.Customers().GetByEmail(ctx, "ghost@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestSameEmailAllowedAcrossVariants(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedCustomer(t, st, "dual@example.com")

	now := time.Now().UTC()
	role := domain.Role{ID: idx.New().String(), Name: "support", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.Roles().Create(ctx, role))

	err := st.Employees().Create(ctx, domain.Employee{
		ID:           idx.New().String(),
		FirstName:    "Erin",
		LastName:     "Staff",
		Email:        "dual@example.com",
		PasswordHash: "hash",
		RoleID:       role.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
}

func TestCreatePersistsCallerTimestamps(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	stale := time.Now().UTC().Add(-90 * 24 * time.Hour).Truncate(time.Second)

	c := domain.Customer{
		ID:              idx.New().String(),
		FirstName:       "Casey",
		LastName:        "Shopper",
		Email:           "old@example.com",
		PasswordHash:    "hash",
		Role:            "customer",
		PasswordHistory: []string{"hash"},
		CreatedAt:       stale,
		UpdatedAt:       stale,
	}
	require.NoError(t, st.Customers().Create(ctx, c))

	got, err := st.Customers().GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, got.CreatedAt.Equal(stale))
	require.True(t, got.UpdatedAt.Equal(stale))

	t.Run("employee", func(t *testing.T) {
		role := domain.Role{ID: idx.New().String(), Name: "support", CreatedAt: stale, UpdatedAt: stale}
		require.NoError(t, st.Roles().Create(ctx, role))

		gotRole, err := st.Roles().GetByName(ctx, "support")
		require.NoError(t, err)
		require.True(t, gotRole.CreatedAt.Equal(stale))

		emp := domain.Employee{
			ID:           idx.New().String(),
			FirstName:    "Erin",
			LastName:     "Staff",
			Email:        "erin-old@example.com",
			PasswordHash: "hash",
			RoleID:       role.ID,
			CreatedAt:    stale,
			UpdatedAt:    stale,
		}
		require.NoError(t, st.Employees().Create(ctx, emp))

		gotEmp, err := st.Employees().GetByID(ctx, emp.ID)
		require.NoError(t, err)
		require.True(t, gotEmp.CreatedAt.Equal(stale))
		require.True(t, gotEmp.UpdatedAt.Equal(stale))
	})
}

func TestRecordFailedAttemptLockout(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := seedCustomer(t, st, "casey@example.com")

	now := time.Now().UTC().Truncate(time.Second)

	got, err := st.Customers().RecordFailedAttempt(ctx, c.ID, 3, now)
	require.NoError(t, err)
	require.Equal(t, 1, got.FailedAttempts)
	require.False(t, got.Blocked)

	got, err = st.Customers().RecordFailedAttempt(ctx, c.ID, 3, now)
	require.NoError(t, err)
	require.Equal(t, 2, got.FailedAttempts)
	require.False(t, got.Blocked)

	got, err = st.Customers().RecordFailedAttempt(ctx, c.ID, 3, now)
	require.NoError(t, err)
	require.Equal(t, 3, got.FailedAttempts)
	require.True(t, got.Blocked)
	require.NotNil(t, got.BlockedAt)
	require.True(t, got.BlockedAt.Equal(now))

	t.Run("blocked-at does not move on further failures", func(t *testing.T) {
		later := now.Add(time.Hour)
		got, err := st.Customers().RecordFailedAttempt(ctx, c.ID, 3, later)
		require.NoError(t, err)
		require.Equal(t, 4, got.FailedAttempts)
		require.True(t, got.BlockedAt.Equal(now))
	})

	t.Run("unblock resets all lockout state", func(t *testing.T) {
		require.NoError(t, st.Customers().Unblock(ctx, c.ID))
		got, err := st.Customers().GetByID(ctx, c.ID)
		require.NoError(t, err)
		require.False(t, got.Blocked)
		require.Nil(t, got.BlockedAt)
		require.Zero(t, got.FailedAttempts)
	})
}

func TestUpdatePasswordPersistsHistory(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := seedCustomer(t, st, "casey@example.com")

	changedAt := time.Now().UTC().Truncate(time.Second)
	history := []string{"hash-3", "hash-2", "hash-1"}
	require.NoError(t, st.Customers().UpdatePassword(ctx, c.ID, "hash-3", history, changedAt))

	got, err := st.Customers().GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "hash-3", got.PasswordHash)
	require.Equal(t, history, got.PasswordHistory)
	require.NotNil(t, got.PasswordChangedAt)
	require.True(t, got.PasswordChangedAt.Equal(changedAt))
}

func TestStoreReturnsNotFoundOnMissingIDs(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.ErrorIs(t, st.Customers().ResetFailedAttempts(ctx, "missing"), store.ErrNotFound)
	require.ErrorIs(t, st.Customers().Unblock(ctx, "missing"), store.ErrNotFound)
	require.ErrorIs(t, st.Employees().UpdatePassword(ctx, "missing", "hash"), store.ErrNotFound)
	require.ErrorIs(t, st.Employees().UpdatePermissions(ctx, "missing", nil), store.ErrNotFound)

	_, err := st.Roles().GetByName(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEmployeePermissionsRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	role := domain.Role{ID: idx.New().String(), Name: "ops", Permissions: []string{"orders:read"}, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.Roles().Create(ctx, role))

	emp := domain.Employee{
		ID:           idx.New().String(),
		FirstName:    "Erin",
		LastName:     "Staff",
		Email:        "erin@example.com",
		PasswordHash: "hash",
		RoleID:       role.ID,
		Permissions:  []string{"orders:read", "orders:write"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Employees().Create(ctx, emp))

	got, err := st.Employees().GetByEmail(ctx, "ERIN@example.com")
	require.NoError(t, err)
	require.Equal(t, emp.Permissions, got.Permissions)

	require.NoError(t, st.Employees().UpdatePermissions(ctx, emp.ID, []string{"refunds:approve"}))
	got, err = st.Employees().GetByID(ctx, emp.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"refunds:approve"}, got.Permissions)
}
