package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/reeutil/reeutil/internal/auth/domain"
)

type customersRepo struct {
	db *sql.DB
}

const customerColumns = `id, first_name, last_name, email, password_hash, role,
	password_history, password_changed_at, failed_attempts, blocked, blocked_at,
	created_at, updated_at`

func (r *customersRepo) GetByEmail(ctx context.Context, email string) (domain.Customer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE email = ?`, email)
	return scanCustomer(row)
}

func (r *customersRepo) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	return scanCustomer(row)
}

func (r *customersRepo) Create(ctx context.Context, c domain.Customer) error {
	history, err := encodeHistory(c.PasswordHistory)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO customers (id, first_name, last_name, email, password_hash, role,
			password_history, password_changed_at, failed_attempts, blocked, blocked_at,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.FirstName, c.LastName, c.Email, c.PasswordHash, c.Role,
		history, mapOptionalTime(c.PasswordChangedAt), c.FailedAttempts,
		c.Blocked, mapOptionalTime(c.BlockedAt), c.CreatedAt, c.UpdatedAt)
	return mapConstraint(err)
}

func (r *customersRepo) UpdatePassword(ctx context.Context, id, newHash string, history []string, changedAt time.Time) error {
	encoded, err := encodeHistory(history)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE customers
		 SET password_hash = ?, password_history = ?, password_changed_at = ?, updated_at = ?
		 WHERE id = ?`,
		newHash, encoded, changedAt, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *customersRepo) RecordFailedAttempt(ctx context.Context, id string, threshold int, now time.Time) (domain.Customer, error) {
	// Counter increment and lockout flip happen in one statement so two
	// concurrent failures cannot observe a half-applied state.
	row := r.db.QueryRowContext(ctx,
		`UPDATE customers
		 SET failed_attempts = failed_attempts + 1,
		     blocked = CASE WHEN failed_attempts + 1 >= ? THEN 1 ELSE blocked END,
		     blocked_at = CASE WHEN failed_attempts + 1 >= ? AND blocked_at IS NULL THEN ? ELSE blocked_at END,
		     updated_at = ?
		 WHERE id = ?
		 RETURNING `+customerColumns,
		threshold, threshold, now, time.Now().UTC(), id)
	return scanCustomer(row)
}

func (r *customersRepo) ResetFailedAttempts(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE customers SET failed_attempts = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *customersRepo) Unblock(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE customers
		 SET blocked = 0, blocked_at = NULL, failed_attempts = 0, updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var (
		c          domain.Customer
		historyRaw string
		changedAt  sql.NullTime
		blockedAt  sql.NullTime
	)

	err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.PasswordHash, &c.Role,
		&historyRaw, &changedAt, &c.FailedAttempts, &c.Blocked, &blockedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Customer{}, mapNotFound(err)
	}

	c.PasswordHistory, err = decodeHistory(historyRaw)
	if err != nil {
		return domain.Customer{}, err
	}
	c.PasswordChangedAt = mapNullTimePtr(changedAt)
	c.BlockedAt = mapNullTimePtr(blockedAt)

	return c, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
