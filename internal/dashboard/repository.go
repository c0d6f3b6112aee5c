package dashboard

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrotrade/agrotrade/internal/platform/db"
)

// Store loads dashboard aggregates.
type Store interface {
	UsersByRole(ctx context.Context) (Counts, error)
	ActiveProducts(ctx context.Context, sellerID int64) (int, error)
	LowStockProducts(ctx context.Context, sellerID int64, thresholdKg float64) (int, error)
	OrdersByStatus(ctx context.Context, scope Scope) (Counts, error)
	QueriesByStatus(ctx context.Context, scope Scope) (Counts, error)
	UnassignedPending(ctx context.Context) (int, error)
	DeliveredTotal(ctx context.Context, scope Scope) (float64, error)
	RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error)
}

// Repository implements Store on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) counts(ctx context.Context, query string, args ...any) (Counts, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := Counts{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

// UsersByRole counts active users per role.
func (r *Repository) UsersByRole(ctx context.Context) (Counts, error) {
	return r.counts(ctx, `SELECT role, COUNT(*) FROM users WHERE is_active GROUP BY role`)
}

// ActiveProducts counts active listings, optionally for one seller.
func (r *Repository) ActiveProducts(ctx context.Context, sellerID int64) (int, error) {
	var where db.Where
	where.Add("is_active")
	if sellerID > 0 {
		where.Add("seller_id = ?", sellerID)
	}
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where.SQL(), where.Args()...).Scan(&n)
	return n, err
}

// LowStockProducts counts a seller's active listings below the threshold.
func (r *Repository) LowStockProducts(ctx context.Context, sellerID int64, thresholdKg float64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products
		WHERE is_active AND seller_id = $1 AND stock_kg < $2`, sellerID, thresholdKg).Scan(&n)
	return n, err
}

func orderWhere(scope Scope) db.Where {
	var where db.Where
	if scope.BuyerID > 0 {
		where.Add("buyer_id = ?", scope.BuyerID)
	}
	if scope.SellerID > 0 {
		where.Add("seller_id = ?", scope.SellerID)
	}
	return where
}

// OrdersByStatus counts orders per status within scope.
func (r *Repository) OrdersByStatus(ctx context.Context, scope Scope) (Counts, error) {
	where := orderWhere(scope)
	return r.counts(ctx, `SELECT status, COUNT(*) FROM orders`+where.SQL()+` GROUP BY status`, where.Args()...)
}

// QueriesByStatus counts queries per status within scope.
func (r *Repository) QueriesByStatus(ctx context.Context, scope Scope) (Counts, error) {
	var where db.Where
	if scope.UserID > 0 {
		where.Add("user_id = ?", scope.UserID)
	}
	if scope.AssignedTo > 0 {
		where.Add("assigned_to = ?", scope.AssignedTo)
	}
	return r.counts(ctx, `SELECT status, COUNT(*) FROM queries`+where.SQL()+` GROUP BY status`, where.Args()...)
}

// UnassignedPending counts pending queries nobody has picked up.
func (r *Repository) UnassignedPending(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM queries WHERE status = 'PENDING' AND assigned_to IS NULL`).Scan(&n)
	return n, err
}

// DeliveredTotal sums the value of delivered orders within scope.
func (r *Repository) DeliveredTotal(ctx context.Context, scope Scope) (float64, error) {
	where := orderWhere(scope)
	where.Add("status = 'DELIVERED'")
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0)::float8 FROM orders`+where.SQL(), where.Args()...).Scan(&total)
	return total, err
}

// RecentOrders returns the newest orders.
func (r *Repository) RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT o.id, o.order_number, b.full_name, p.name, o.total_amount, o.currency, o.status, o.created_at
		FROM orders o
		JOIN users b ON b.id = o.buyer_id
		JOIN products p ON p.id = o.product_id
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RecentOrder
	for rows.Next() {
		var o RecentOrder
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.BuyerName, &o.ProductName, &o.TotalAmount, &o.Currency, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
