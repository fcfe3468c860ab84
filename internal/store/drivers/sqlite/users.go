package sqlite

import (
	"context"
	"database/sql"

	"github.com/quokkahq/tokenforge/internal/domain"
)

type usersRepo struct {
	db dbtx
}

func (r *usersRepo) GetByLogin(ctx context.Context, login string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, login, password_hash, active, created_at, updated_at
		FROM users
		WHERE login = ? AND active = 1`,
		login,
	)
	return r.scanUserWithRoles(ctx, row)
}

func (r *usersRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, login, password_hash, active, created_at, updated_at
		FROM users
		WHERE id = ?`,
		id,
	)
	return r.scanUserWithRoles(ctx, row)
}

func (r *usersRepo) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, login, password_hash, active, created_at, updated_at
		FROM users
		ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		err := rows.Scan(
			&u.ID, &u.Name, &u.Email, &u.Login, &u.PasswordHash,
			&u.Active, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range users {
		roles, err := r.rolesForUser(ctx, users[i].ID)
		if err != nil {
			return nil, err
		}
		users[i].Roles = roles
	}
	return users, nil
}

func (r *usersRepo) Create(ctx context.Context, u domain.User) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (name, email, login, password_hash, active)
		VALUES (?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.Login, u.PasswordHash, u.Active,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *usersRepo) CreateRole(ctx context.Context, role domain.Role) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO roles (name, description)
		VALUES (?, ?)`,
		role.Name, role.Description,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *usersRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_roles (user_id, role_id)
		VALUES (?, ?)`,
		userID, roleID,
	)
	return err
}

func (r *usersRepo) SetActive(ctx context.Context, userID int64, active bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, userID,
	)
	return err
}

func (r *usersRepo) scanUserWithRoles(ctx context.Context, row *sql.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Login, &u.PasswordHash,
		&u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	roles, err := r.rolesForUser(ctx, u.ID)
	if err != nil {
		return domain.User{}, err
	}
	u.Roles = roles
	return u, nil
}

func (r *usersRepo) rolesForUser(ctx context.Context, userID int64) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.description, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ?
		ORDER BY r.id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
