package products

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

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Product, error)
	Update(ctx context.Context, p Product) error
	InsertPriceHistory(ctx context.Context, point PricePoint) error
}

type txRepo struct {
	tx pgx.Tx
}

const productColumns = `p.id, p.sku, p.seller_id, u.full_name, COALESCE(c.company_name, u.company_name, ''),
	p.name, p.category, p.grade, COALESCE(p.description, ''), p.price_per_kg, p.currency, p.stock_kg,
	p.min_order_kg, COALESCE(p.location, ''), COALESCE(p.origin, ''), p.images, p.is_active,
	p.created_at, p.updated_at`

const productFrom = ` FROM products p
	JOIN users u ON u.id = p.seller_id
	LEFT JOIN company_details c ON c.user_id = p.seller_id`

var sortColumns = map[string]string{
	"created_at": "p.created_at",
	"price":      "p.price_per_kg",
	"name":       "p.name",
	"stock":      "p.stock_kg",
	"grade":      "p.grade",
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var category string
	err := row.Scan(&p.ID, &p.SKU, &p.SellerID, &p.SellerName, &p.SellerCompany,
		&p.Name, &category, &p.Grade, &p.Description, &p.PricePerKg, &p.Currency, &p.StockKg,
		&p.MinOrderKg, &p.Location, &p.Origin, &p.ImageKeys, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	p.Category = Category(category)
	return p, err
}

func buildWhere(filter ListFilter) db.Where {
	var where db.Where
	if filter.Category != "" {
		where.Add("p.category = ?", strings.ToUpper(filter.Category))
	}
	if filter.Grade != "" {
		where.Add("p.grade = ?", filter.Grade)
	}
	if filter.SellerID != nil {
		where.Add("p.seller_id = ?", *filter.SellerID)
	}
	if filter.Location != "" {
		where.Add("p.location ILIKE ?", "%"+filter.Location+"%")
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		where.Add("(p.name ILIKE ? OR p.sku ILIKE ? OR p.description ILIKE ? OR p.origin ILIKE ?)", like, like, like, like)
	}
	if filter.MinPrice != nil {
		where.Add("p.price_per_kg >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where.Add("p.price_per_kg <= ?", *filter.MaxPrice)
	}
	if filter.InStock != nil {
		if *filter.InStock {
			where.Add("p.stock_kg > 0")
		} else {
			where.Add("p.stock_kg <= 0")
		}
	}
	if filter.IsActive != nil {
		where.Add("p.is_active = ?", *filter.IsActive)
	}
	if filter.ViewerID != nil {
		where.Add("(p.is_active OR p.seller_id = ?)", *filter.ViewerID)
	}
	return where
}

// List returns a filtered page of products and the total match count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	where := buildWhere(filter)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+productFrom+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	query := `SELECT ` + productColumns + productFrom + where.SQL() +
		db.OrderBy(sortColumns, filter.Sort, filter.Dir, "created_at") + `, p.id DESC`
	if filter.Limit > 0 {
		query += " LIMIT " + where.Next(filter.Limit) + " OFFSET " + where.Next((filter.Page-1)*filter.Limit)
	}
	rows, err := r.pool.Query(ctx, query, where.Args()...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// Get loads a single product.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+productFrom+` WHERE p.id = $1`, id))
}

// Create inserts a product and returns it with joined seller fields.
func (r *Repository) Create(ctx context.Context, p Product) (Product, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO products
			(sku, seller_id, name, category, grade, description, price_per_kg, currency, stock_kg,
			 min_order_kg, location, origin, images, is_active)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, NULLIF($11, ''), NULLIF($12, ''), $13, $14)
		RETURNING id`,
		p.SKU, p.SellerID, p.Name, string(p.Category), p.Grade, p.Description, p.PricePerKg, p.Currency,
		p.StockKg, p.MinOrderKg, p.Location, p.Origin, nonNil(p.ImageKeys), p.IsActive).Scan(&id)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return Product{}, fmt.Errorf("%w: sku %s already exists", shared.ErrConflict, p.SKU)
		case db.IsForeignKeyViolation(err):
			return Product{}, fmt.Errorf("%w: seller %d does not exist", shared.ErrValidation, p.SellerID)
		}
		return Product{}, err
	}
	return r.Get(ctx, id)
}

// Delete removes a product. Products referenced by orders cannot be deleted.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: product has orders, deactivate it instead", shared.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// PriceHistory lists price changes newest first.
func (r *Repository) PriceHistory(ctx context.Context, id int64) ([]PricePoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, old_price, new_price, COALESCE(changed_by, 0), changed_at
		FROM product_price_history WHERE product_id = $1 ORDER BY changed_at DESC, id DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PricePoint
	for rows.Next() {
		var pp PricePoint
		if err := rows.Scan(&pp.ProductID, &pp.OldPrice, &pp.NewPrice, &pp.ChangedBy, &pp.ChangedAt); err != nil {
			return nil, err
		}
		out = append(out, pp)
	}
	return out, rows.Err()
}

// Grades returns the distinct grades, optionally for one category.
func (r *Repository) Grades(ctx context.Context, category string) ([]string, error) {
	var where db.Where
	where.Add("is_active")
	if category != "" {
		where.Add("category = ?", strings.ToUpper(category))
	}
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT grade FROM products`+where.SQL()+` ORDER BY grade`, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// AppendImage adds an image key to the product.
func (r *Repository) AppendImage(ctx context.Context, id int64, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET images = array_append(images, $2), updated_at = NOW() WHERE id = $1`, id, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RemoveImage drops an image key from the product.
func (r *Repository) RemoveImage(ctx context.Context, id int64, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET images = array_remove(images, $2), updated_at = NOW()
		WHERE id = $1 AND $2 = ANY(images)`, id, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (Product, error) {
	return scanProduct(t.tx.QueryRow(ctx, `SELECT `+productColumns+productFrom+` WHERE p.id = $1 FOR UPDATE OF p`, id))
}

func (t *txRepo) Update(ctx context.Context, p Product) error {
	_, err := t.tx.Exec(ctx, `UPDATE products SET
			name = $2, category = $3, grade = $4, description = NULLIF($5, ''), price_per_kg = $6,
			currency = $7, stock_kg = $8, min_order_kg = $9, location = NULLIF($10, ''),
			origin = NULLIF($11, ''), is_active = $12, updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.Name, string(p.Category), p.Grade, p.Description, p.PricePerKg, p.Currency,
		p.StockKg, p.MinOrderKg, p.Location, p.Origin, p.IsActive)
	return err
}

func (t *txRepo) InsertPriceHistory(ctx context.Context, point PricePoint) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO product_price_history (product_id, old_price, new_price, changed_by)
		VALUES ($1, $2, $3, NULLIF($4, 0))`, point.ProductID, point.OldPrice, point.NewPrice, point.ChangedBy)
	return err
}

func nonNil(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}
