package queries

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

// Repository persists queries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const queryColumns = `q.id, q.type, q.user_id, u.full_name, u.email, q.product_id, COALESCE(p.sku, ''),
	q.product_name, COALESCE(q.grade, ''), q.quantity_kg, q.target_price, COALESCE(q.location, ''),
	COALESCE(q.message, ''), q.status, q.assigned_to, COALESCE(a.full_name, ''), COALESCE(q.response, ''),
	q.created_at, q.updated_at`

const queryFrom = ` FROM queries q
	JOIN users u ON u.id = q.user_id
	LEFT JOIN users a ON a.id = q.assigned_to
	LEFT JOIN products p ON p.id = q.product_id`

var sortColumns = map[string]string{
	"created_at":   "q.created_at",
	"updated_at":   "q.updated_at",
	"quantity":     "q.quantity_kg",
	"status":       "q.status",
	"product_name": "q.product_name",
}

func scanQuery(row pgx.Row) (Query, error) {
	var q Query
	var typ, status string
	err := row.Scan(&q.ID, &typ, &q.UserID, &q.UserName, &q.UserEmail, &q.ProductID, &q.ProductSKU,
		&q.ProductName, &q.Grade, &q.QuantityKg, &q.TargetPrice, &q.Location,
		&q.Message, &status, &q.AssignedTo, &q.AssignedName, &q.Response,
		&q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Query{}, shared.ErrNotFound
	}
	q.Type = Type(typ)
	q.Status = Status(status)
	return q, err
}

// List returns a filtered page of queries and the total match count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Query, int, error) {
	var where db.Where
	if filter.Type != "" {
		where.Add("q.type = ?", strings.ToUpper(filter.Type))
	}
	if filter.Status != "" {
		where.Add("q.status = ?", strings.ToUpper(filter.Status))
	}
	if filter.UserID != nil {
		where.Add("q.user_id = ?", *filter.UserID)
	}
	if filter.AssignedTo != nil {
		where.Add("q.assigned_to = ?", *filter.AssignedTo)
	}
	if filter.Unassigned {
		where.Add("q.assigned_to IS NULL")
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		where.Add("(q.product_name ILIKE ? OR q.message ILIKE ? OR u.full_name ILIKE ?)", like, like, like)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+queryFrom+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count queries: %w", err)
	}
	query := `SELECT ` + queryColumns + queryFrom + where.SQL() +
		db.OrderBy(sortColumns, filter.Sort, filter.Dir, "created_at") + `, q.id DESC`
	if filter.Limit > 0 {
		query += " LIMIT " + where.Next(filter.Limit) + " OFFSET " + where.Next((filter.Page-1)*filter.Limit)
	}
	rows, err := r.pool.Query(ctx, query, where.Args()...)
	if err != nil {
		return nil, 0, fmt.Errorf("list queries: %w", err)
	}
	defer rows.Close()
	var out []Query
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, q)
	}
	return out, total, rows.Err()
}

// Get loads a single query.
func (r *Repository) Get(ctx context.Context, id int64) (Query, error) {
	return scanQuery(r.pool.QueryRow(ctx, `SELECT `+queryColumns+queryFrom+` WHERE q.id = $1`, id))
}

// Create inserts a query in PENDING state.
func (r *Repository) Create(ctx context.Context, q Query) (Query, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO queries
			(type, user_id, product_id, product_name, grade, quantity_kg, target_price, location, message, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10)
		RETURNING id`,
		string(q.Type), q.UserID, q.ProductID, q.ProductName, q.Grade, q.QuantityKg, q.TargetPrice,
		q.Location, q.Message, string(q.Status)).Scan(&id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Query{}, fmt.Errorf("%w: referenced product or user does not exist", shared.ErrValidation)
		}
		return Query{}, err
	}
	return r.Get(ctx, id)
}

// Assign sets the assignee and status when the query is still in from.
func (r *Repository) Assign(ctx context.Context, id, employeeID int64, from, to Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE queries SET assigned_to = $2, status = $4, updated_at = NOW()
		WHERE id = $1 AND status = $3`, id, employeeID, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: query changed concurrently", shared.ErrConflict)
	}
	return nil
}

// UpdateStatus moves the query from one status to another, guarding against concurrent changes.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to Status, response string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE queries SET status = $3, response = COALESCE(NULLIF($4, ''), response), updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, string(from), string(to), response)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: query changed concurrently", shared.ErrConflict)
	}
	return nil
}

// Delete removes a query.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM queries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ProductRef loads the catalogue name and grade of a product.
func (r *Repository) ProductRef(ctx context.Context, productID int64) (ProductRef, error) {
	var ref ProductRef
	err := r.pool.QueryRow(ctx, `SELECT name, grade FROM products WHERE id = $1`, productID).Scan(&ref.Name, &ref.Grade)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductRef{}, shared.ErrNotFound
	}
	return ref, err
}

// StaffRole returns the role and active flag of a user.
func (r *Repository) StaffRole(ctx context.Context, userID int64) (shared.Role, bool, error) {
	var role string
	var active bool
	err := r.pool.QueryRow(ctx, `SELECT role, is_active FROM users WHERE id = $1`, userID).Scan(&role, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, shared.ErrNotFound
	}
	return shared.Role(role), active, err
}
