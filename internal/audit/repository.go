package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrotrade/agrotrade/internal/platform/db"
)

const entryColumns = `a.id, a.occurred_at, a.actor_id, COALESCE(u.email, ''), a.action, a.entity, a.entity_id, a.meta`

const entryFrom = ` FROM audit_logs a LEFT JOIN users u ON u.id = a.actor_id`

// Repository reads audit_logs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Window returns at most limit entries starting at offset, newest first.
func (r *Repository) Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error) {
	where := buildWhere(filters)
	query := `SELECT ` + entryColumns + entryFrom + where.SQL() +
		` ORDER BY a.occurred_at DESC, a.id DESC LIMIT ` + where.Next(limit) + ` OFFSET ` + where.Next(offset)
	return r.query(ctx, query, where.Args())
}

// All returns every entry matching filters, newest first.
func (r *Repository) All(ctx context.Context, filters TimelineFilters) ([]Entry, error) {
	where := buildWhere(filters)
	query := `SELECT ` + entryColumns + entryFrom + where.SQL() + ` ORDER BY a.occurred_at DESC, a.id DESC`
	return r.query(ctx, query, where.Args())
}

func (r *Repository) query(ctx context.Context, query string, args []any) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	var meta []byte
	if err := row.Scan(&e.ID, &e.At, &e.ActorID, &e.ActorEmail, &e.Action, &e.Entity, &e.EntityID, &meta); err != nil {
		return Entry{}, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Meta); err != nil {
			return Entry{}, fmt.Errorf("audit: decode meta: %w", err)
		}
	}
	return e, nil
}

func buildWhere(f TimelineFilters) *db.Where {
	where := &db.Where{}
	if !f.From.IsZero() {
		where.Add("a.occurred_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		where.Add("a.occurred_at < ?", f.To.AddDate(0, 0, 1))
	}
	if f.ActorID != nil {
		where.Add("a.actor_id = ?", *f.ActorID)
	}
	if f.Entity != "" {
		where.Add("a.entity = ?", f.Entity)
	}
	if f.EntityID != "" {
		where.Add("a.entity_id = ?", f.EntityID)
	}
	if f.Action != "" {
		where.Add("a.action = ?", f.Action)
	}
	return where
}
