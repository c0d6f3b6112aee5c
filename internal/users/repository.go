package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrotrade/agrotrade/internal/platform/db"
	"github.com/agrotrade/agrotrade/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectColumns = `id, email, full_name, COALESCE(phone, ''), role, COALESCE(company_name, ''),
	COALESCE(avatar_url, ''), provider, is_active, created_at, updated_at`

var sortColumns = map[string]string{
	"created_at": "created_at",
	"full_name":  "full_name",
	"email":      "email",
	"role":       "role",
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Phone, &role, &u.CompanyName,
		&u.AvatarURL, &u.Provider, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	u.Role = shared.Role(role)
	return u, err
}

// List returns a filtered page of users and the total match count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	var where db.Where
	if filter.Role != "" {
		where.Add("role = ?", filter.Role)
	}
	if filter.IsActive != nil {
		where.Add("is_active = ?", *filter.IsActive)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		where.Add("(full_name ILIKE ? OR email ILIKE ? OR company_name ILIKE ?)", like, like, like)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `SELECT ` + selectColumns + ` FROM users` + where.SQL() +
		db.OrderBy(sortColumns, filter.Sort, filter.Dir, "created_at") + `, id DESC`
	query += " LIMIT " + where.Next(filter.Limit) + " OFFSET " + where.Next((filter.Page-1)*filter.Limit)

	rows, err := r.pool.Query(ctx, query, where.Args()...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Get fetches a single user.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return u, err
}

// UpdateProfile applies the non-nil profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, id int64, in ProfileInput) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `UPDATE users SET
			full_name = COALESCE($2, full_name),
			phone = COALESCE($3, phone),
			company_name = COALESCE($4, company_name),
			avatar_url = COALESCE($5, avatar_url),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+selectColumns, id, in.FullName, in.Phone, in.CompanyName, in.AvatarURL))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return u, err
}

// SetActive toggles the activation flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetRole changes the role of a user.
func (r *Repository) SetRole(ctx context.Context, id int64, role shared.Role) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, string(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Create inserts a password-based account.
func (r *Repository) Create(ctx context.Context, in StaffInput, hash string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `INSERT INTO users (email, password_hash, full_name, phone, role, provider, is_active)
		VALUES (lower($1), $2, $3, NULLIF($4, ''), $5, 'password', TRUE)
		RETURNING `+selectColumns, strings.TrimSpace(in.Email), hash, in.FullName, in.Phone, in.Role))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, fmt.Errorf("%w: email already registered", shared.ErrConflict)
		}
		return User{}, err
	}
	return u, nil
}

// ListEmployees returns active staff ordered by name.
func (r *Repository) ListEmployees(ctx context.Context, roles ...shared.Role) ([]Employee, error) {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	rows, err := r.pool.Query(ctx, `SELECT id, full_name, email, role FROM users
		WHERE is_active AND role = ANY($1) ORDER BY full_name`, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Employee
	for rows.Next() {
		var e Employee
		var role string
		if err := rows.Scan(&e.ID, &e.FullName, &e.Email, &role); err != nil {
			return nil, err
		}
		e.Role = shared.Role(role)
		out = append(out, e)
	}
	return out, rows.Err()
}
