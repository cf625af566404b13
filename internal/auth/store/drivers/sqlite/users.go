package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
)

type usersRepo struct {
	q dbtx

	// db is set outside a transaction so CreateUser can open its own.
	db *sql.DB
}

const userColumns = `id, username, email, password_hash, enabled, created_at, updated_at`

func (r *usersRepo) FindByUsernameOrEmail(ctx context.Context, identifier string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE username = ? OR email = ?
		 ORDER BY username = ? DESC
		 LIMIT 1`,
		identifier, domain.NormalizeEmail(identifier), identifier)
	return r.scanUser(ctx, row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return r.scanUser(ctx, row)
}

func (r *usersRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username)
}

func (r *usersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, domain.NormalizeEmail(email))
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	found, err := r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users)`)
	return !found, err
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	if len(u.Roles) == 0 {
		return fmt.Errorf("sqlite: user %q has no roles", u.Username)
	}

	if r.db == nil {
		return insertUser(ctx, r.q, u)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertUser(ctx, tx, u); err != nil {
		return err
	}
	return tx.Commit()
}

func insertUser(ctx context.Context, q dbtx, u domain.User) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Enabled,
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt))
	if err != nil {
		return mapConstraint(err)
	}

	for _, role := range u.Roles {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role) VALUES (?, ?)`, u.ID, string(role)); err != nil {
			return mapConstraint(err)
		}
	}
	return nil
}

func (r *usersRepo) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func (r *usersRepo) scanUser(ctx context.Context, row *sql.Row) (domain.User, error) {
	var u domain.User
	var created, updated int64
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Enabled, &created, &updated); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)

	roles, err := r.loadRoles(ctx, u.ID)
	if err != nil {
		return domain.User{}, err
	}
	u.Roles = roles
	return u, nil
}

func (r *usersRepo) loadRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return domain.ParseRoles(names), nil
}
