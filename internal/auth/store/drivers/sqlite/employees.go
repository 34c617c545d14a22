package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/reeutil/reeutil/internal/auth/domain"
)

type employeesRepo struct {
	db *sql.DB
}

const employeeColumns = `id, first_name, last_name, email, password_hash, role_id,
	permissions, failed_attempts, blocked, blocked_at, created_at, updated_at`

func (r *employeesRepo) GetByEmail(ctx context.Context, email string) (domain.Employee, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE email = ?`, email)
	return scanEmployee(row)
}

func (r *employeesRepo) GetByID(ctx context.Context, id string) (domain.Employee, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	return scanEmployee(row)
}

func (r *employeesRepo) Create(ctx context.Context, e domain.Employee) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO employees (id, first_name, last_name, email, password_hash, role_id,
			permissions, failed_attempts, blocked, blocked_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.FirstName, e.LastName, e.Email, e.PasswordHash, e.RoleID,
		joinPermissions(e.Permissions), e.FailedAttempts, e.Blocked,
		mapOptionalTime(e.BlockedAt), e.CreatedAt, e.UpdatedAt)
	return mapConstraint(err)
}

func (r *employeesRepo) UpdatePassword(ctx context.Context, id, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE employees SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *employeesRepo) UpdatePermissions(ctx context.Context, id string, permissions []string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE employees SET permissions = ?, updated_at = ? WHERE id = ?`,
		joinPermissions(permissions), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func scanEmployee(row rowScanner) (domain.Employee, error) {
	var (
		e         domain.Employee
		permsRaw  string
		blockedAt sql.NullTime
	)

	err := row.Scan(
		&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.PasswordHash, &e.RoleID,
		&permsRaw, &e.FailedAttempts, &e.Blocked, &blockedAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return domain.Employee{}, mapNotFound(err)
	}

	e.Permissions = splitPermissions(permsRaw)
	e.BlockedAt = mapNullTimePtr(blockedAt)

	return e, nil
}
