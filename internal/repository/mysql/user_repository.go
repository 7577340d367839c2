package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// UserRepo persists user accounts and their roles.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts the account and its roles in one transaction and sets
// u.ID.  A taken username yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.UserAccount) error {
	var id int64
	err := database.WithTx(ctx, r.DB, nil, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO users (username, password_hash, enabled) VALUES (?,?,?)",
			u.Username, u.PasswordHash, u.Enabled)
		if err != nil {
			return translate(err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		for _, role := range u.Roles {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO user_roles (user_id, role) VALUES (?,?)", id, string(role)); err != nil {
				return translate(err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.UserAccount, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	return r.get(ctx,
		"SELECT id, username, password_hash, enabled, created_at FROM users WHERE username=? LIMIT 1",
		username)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.UserAccount, error) {
	return r.get(ctx,
		"SELECT id, username, password_hash, enabled, created_at FROM users WHERE id=? LIMIT 1",
		id)
}

func (r *UserRepo) get(ctx context.Context, q string, arg any) (*model.UserAccount, error) {
	var u model.UserAccount
	err := r.DB.QueryRowContext(ctx, q, arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Enabled, &u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	roles, err := r.roles(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

func (r *UserRepo) roles(ctx context.Context, userID uint64) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT role FROM user_roles WHERE user_id=? ORDER BY role DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Role
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		// Rows with unknown role names are skipped, never granted.
		if role, ok := model.ParseRole(name); ok {
			out = append(out, role)
		}
	}
	return out, rows.Err()
}
