package sqlite

import (
	"context"
	"database/sql"

	"github.com/reeutil/reeutil/internal/auth/domain"
)

type rolesRepo struct {
	db *sql.DB
}

const roleColumns = `id, name, permissions, created_at, updated_at`

func (r *rolesRepo) GetByID(ctx context.Context, id string) (domain.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = ?`, id)
	return scanRole(row)
}

func (r *rolesRepo) GetByName(ctx context.Context, name string) (domain.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE name = ?`, name)
	return scanRole(row)
}

func (r *rolesRepo) Create(ctx context.Context, role domain.Role) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (id, name, permissions, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		role.ID, role.Name, joinPermissions(role.Permissions), role.CreatedAt, role.UpdatedAt)
	return mapConstraint(err)
}

func (r *rolesRepo) ListAll(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roleColumns+` FROM roles ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func scanRole(row rowScanner) (domain.Role, error) {
	var (
		role     domain.Role
		permsRaw string
	)

	err := row.Scan(&role.ID, &role.Name, &permsRaw, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}

	role.Permissions = splitPermissions(permsRaw)
	return role, nil
}
