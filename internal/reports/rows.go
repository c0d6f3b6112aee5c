package reports

import (
	"strconv"
	"time"

	"github.com/agrotrade/agrotrade/internal/orders"
	"github.com/agrotrade/agrotrade/internal/products"
	"github.com/agrotrade/agrotrade/internal/queries"
)

const timestampLayout = "2006-01-02 15:04"

// OrderRow is one line of the orders export.
type OrderRow struct {
	OrderNumber string  `csv:"order_number"`
	CreatedAt   string  `csv:"created_at"`
	Status      string  `csv:"status"`
	Buyer       string  `csv:"buyer"`
	Seller      string  `csv:"seller"`
	Product     string  `csv:"product"`
	SKU         string  `csv:"sku"`
	QuantityKg  float64 `csv:"quantity_kg"`
	UnitPrice   float64 `csv:"unit_price"`
	TotalAmount float64 `csv:"total_amount"`
	Currency    string  `csv:"currency"`
}

// ProductRow is one line of the products export.
type ProductRow struct {
	SKU        string  `csv:"sku"`
	Name       string  `csv:"name"`
	Category   string  `csv:"category"`
	Grade      string  `csv:"grade"`
	Seller     string  `csv:"seller"`
	Company    string  `csv:"company"`
	PricePerKg float64 `csv:"price_per_kg"`
	Currency   string  `csv:"currency"`
	StockKg    float64 `csv:"stock_kg"`
	MinOrderKg float64 `csv:"min_order_kg"`
	Location   string  `csv:"location"`
	Origin     string  `csv:"origin"`
	Active     bool    `csv:"active"`
}

// QueryRow is one line of the queries export.
type QueryRow struct {
	ID          int64   `csv:"id"`
	CreatedAt   string  `csv:"created_at"`
	Type        string  `csv:"type"`
	Status      string  `csv:"status"`
	Customer    string  `csv:"customer"`
	Email       string  `csv:"email"`
	Product     string  `csv:"product"`
	Grade       string  `csv:"grade"`
	QuantityKg  float64 `csv:"quantity_kg"`
	TargetPrice string  `csv:"target_price"`
	Location    string  `csv:"location"`
	AssignedTo  string  `csv:"assigned_to"`
}

func orderRows(in []orders.Order) []OrderRow {
	out := make([]OrderRow, 0, len(in))
	for _, o := range in {
		out = append(out, OrderRow{
			OrderNumber: o.OrderNumber,
			CreatedAt:   stamp(o.CreatedAt),
			Status:      string(o.Status),
			Buyer:       o.BuyerName,
			Seller:      o.SellerName,
			Product:     o.ProductName,
			SKU:         o.ProductSKU,
			QuantityKg:  o.QuantityKg,
			UnitPrice:   o.UnitPrice,
			TotalAmount: o.TotalAmount,
			Currency:    o.Currency,
		})
	}
	return out
}

func productRows(in []products.Product) []ProductRow {
	out := make([]ProductRow, 0, len(in))
	for _, p := range in {
		out = append(out, ProductRow{
			SKU:        p.SKU,
			Name:       p.Name,
			Category:   string(p.Category),
			Grade:      p.Grade,
			Seller:     p.SellerName,
			Company:    p.SellerCompany,
			PricePerKg: p.PricePerKg,
			Currency:   p.Currency,
			StockKg:    p.StockKg,
			MinOrderKg: p.MinOrderKg,
			Location:   p.Location,
			Origin:     p.Origin,
			Active:     p.IsActive,
		})
	}
	return out
}

func queryRows(in []queries.Query) []QueryRow {
	out := make([]QueryRow, 0, len(in))
	for _, q := range in {
		row := QueryRow{
			ID:         q.ID,
			CreatedAt:  stamp(q.CreatedAt),
			Type:       string(q.Type),
			Status:     string(q.Status),
			Customer:   q.UserName,
			Email:      q.UserEmail,
			Product:    q.ProductName,
			Grade:      q.Grade,
			QuantityKg: q.QuantityKg,
			Location:   q.Location,
			AssignedTo: q.AssignedName,
		}
		if q.TargetPrice != nil {
			row.TargetPrice = strconv.FormatFloat(*q.TargetPrice, 'f', 2, 64)
		}
		out = append(out, row)
	}
	return out
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}
