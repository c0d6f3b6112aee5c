package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrotrade/agrotrade/internal/platform/db"
	"github.com/agrotrade/agrotrade/internal/shared"
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	LockProduct(ctx context.Context, productID int64) (ProductSnapshot, error)
	AdjustStock(ctx context.Context, productID int64, deltaKg float64) error
	NextOrderNumber(ctx context.Context, day time.Time) (string, error)
	Insert(ctx context.Context, o Order) (int64, error)
	GetForUpdate(ctx context.Context, id int64) (Order, error)
	SetStatus(ctx context.Context, id int64, status Status) error
}

type txRepo struct {
	tx pgx.Tx
}

const orderColumns = `o.id, o.order_number, o.buyer_id, b.full_name, o.seller_id, s.full_name,
	o.product_id, p.name, p.sku, o.quantity_kg, o.unit_price, o.total_amount, o.currency, o.status,
	o.shipping_address, COALESCE(o.notes, ''), o.created_at, o.updated_at`

const orderFrom = ` FROM orders o
	JOIN users b ON b.id = o.buyer_id
	JOIN users s ON s.id = o.seller_id
	JOIN products p ON p.id = o.product_id`

var sortColumns = map[string]string{
	"created_at": "o.created_at",
	"total":      "o.total_amount",
	"quantity":   "o.quantity_kg",
	"status":     "o.status",
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status string
	err := row.Scan(&o.ID, &o.OrderNumber, &o.BuyerID, &o.BuyerName, &o.SellerID, &o.SellerName,
		&o.ProductID, &o.ProductName, &o.ProductSKU, &o.QuantityKg, &o.UnitPrice, &o.TotalAmount,
		&o.Currency, &status, &o.ShippingAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, shared.ErrNotFound
	}
	o.Status = Status(status)
	return o, err
}

// List returns a filtered page of orders and the total match count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	var where db.Where
	if filter.Status != "" {
		where.Add("o.status = ?", filter.Status)
	}
	if filter.BuyerID != nil {
		where.Add("o.buyer_id = ?", *filter.BuyerID)
	}
	if filter.SellerID != nil {
		where.Add("o.seller_id = ?", *filter.SellerID)
	}
	if filter.ProductID != nil {
		where.Add("o.product_id = ?", *filter.ProductID)
	}
	if filter.DateFrom != nil {
		where.Add("o.created_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where.Add("o.created_at < ?", filter.DateTo.AddDate(0, 0, 1))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+orderFrom+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	query := `SELECT ` + orderColumns + orderFrom + where.SQL() +
		db.OrderBy(sortColumns, filter.Sort, filter.Dir, "created_at") + `, o.id DESC`
	if filter.Limit > 0 {
		query += " LIMIT " + where.Next(filter.Limit) + " OFFSET " + where.Next((filter.Page-1)*filter.Limit)
	}
	rows, err := r.pool.Query(ctx, query, where.Args()...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// Get loads a single order.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+orderFrom+` WHERE o.id = $1`, id))
}

// Delete removes an order and reports how many rows were affected.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Exists reports whether an order row is present.
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) LockProduct(ctx context.Context, productID int64) (ProductSnapshot, error) {
	var p ProductSnapshot
	err := t.tx.QueryRow(ctx, `SELECT id, seller_id, price_per_kg, currency, stock_kg, min_order_kg, is_active
		FROM products WHERE id = $1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.SellerID, &p.PricePerKg, &p.Currency, &p.StockKg, &p.MinOrderKg, &p.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductSnapshot{}, shared.ErrNotFound
	}
	return p, err
}

func (t *txRepo) AdjustStock(ctx context.Context, productID int64, deltaKg float64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE products SET stock_kg = stock_kg + $2, updated_at = NOW()
		WHERE id = $1 AND stock_kg + $2 >= 0`, productID, deltaKg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: insufficient stock", shared.ErrValidation)
	}
	return nil
}

func (t *txRepo) NextOrderNumber(ctx context.Context, day time.Time) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return FormatOrderNumber(day, seq), nil
}

func (t *txRepo) Insert(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO orders
			(order_number, buyer_id, seller_id, product_id, quantity_kg, unit_price, total_amount,
			 currency, status, shipping_address, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''))
		RETURNING id`,
		o.OrderNumber, o.BuyerID, o.SellerID, o.ProductID, o.QuantityKg, o.UnitPrice, o.TotalAmount,
		o.Currency, string(o.Status), o.ShippingAddress, o.Notes).Scan(&id)
	if err != nil && db.IsUniqueViolation(err) {
		return 0, fmt.Errorf("%w: order number %s already used", shared.ErrConflict, o.OrderNumber)
	}
	return id, err
}

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	return scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderColumns+orderFrom+` WHERE o.id = $1 FOR UPDATE OF o`, id))
}

func (t *txRepo) SetStatus(ctx context.Context, id int64, status Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	return err
}
