package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"clinic-records/internal/domain/access"
	"clinic-records/internal/domain/users"

	"github.com/jmoiron/sqlx"
)

type UsersRepo struct {
	db *sqlx.DB
}

func NewUsersRepo(db *sqlx.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

type userRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	UsernameKey  string `db:"username_key"`
	Name         string `db:"name"`
	Role         string `db:"role"`
	PasswordHash string `db:"password_hash"`
	Email        string `db:"email"`
	Active       bool   `db:"active"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

const userColumns = `id, username, username_key, name, role, password_hash, email, active, created_at, updated_at`

func (r *UsersRepo) Create(ctx context.Context, u users.User) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :username, :username_key, :name, :role, :password_hash, :email, :active, :created_at, :updated_at)
	`, toUserRow(u))
	if isUniqueViolation(err) {
		return users.ErrUsernameTaken
	}
	return err
}

func (r *UsersRepo) Update(ctx context.Context, u users.User) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE users SET
			username = :username, username_key = :username_key, name = :name, role = :role,
			password_hash = :password_hash, email = :email, active = :active,
			updated_at = :updated_at
		WHERE id = :id
	`, toUserRow(u))
	if isUniqueViolation(err) {
		return users.ErrUsernameTaken
	}
	if err != nil {
		return err
	}
	return expectAffected(res, users.ErrNotFound)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username_key = ?`, usernameKey(username))
}

func (r *UsersRepo) getOne(ctx context.Context, query string, arg string) (users.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return users.User{}, users.ErrNotFound
	}
	if err != nil {
		return users.User{}, err
	}
	return fromUserRow(row)
}

func (r *UsersRepo) List(ctx context.Context) ([]users.User, error) {
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY username_key`); err != nil {
		return nil, err
	}

	out := make([]users.User, 0, len(rows))
	for _, row := range rows {
		u, err := fromUserRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return expectAffected(res, users.ErrNotFound)
}

func (r *UsersRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, err
	}
	return n, nil
}

func usernameKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toUserRow(u users.User) userRow {
	return userRow{
		ID:           u.ID,
		Username:     u.Username,
		UsernameKey:  usernameKey(u.Username),
		Name:         u.Name,
		Role:         string(u.Role),
		PasswordHash: u.PasswordHash,
		Email:        u.Email,
		Active:       u.Active,
		CreatedAt:    formatTS(u.CreatedAt),
		UpdatedAt:    formatTS(u.UpdatedAt),
	}
}

func fromUserRow(row userRow) (users.User, error) {
	u := users.User{
		ID:           row.ID,
		Username:     row.Username,
		Name:         row.Name,
		Role:         access.Role(row.Role),
		PasswordHash: row.PasswordHash,
		Email:        row.Email,
		Active:       row.Active,
	}

	var err error
	if u.CreatedAt, err = parseTS(row.CreatedAt); err != nil {
		return users.User{}, err
	}
	if u.UpdatedAt, err = parseTS(row.UpdatedAt); err != nil {
		return users.User{}, err
	}
	return u, nil
}
