package dashboard

import (
	"time"

	"github.com/agrotrade/agrotrade/internal/shared"
)

// Counts maps a status or role to the number of rows in it.
type Counts map[string]int

// RecentOrder is a compact order row for the admin overview.
type RecentOrder struct {
	ID          int64     `json:"id"`
	OrderNumber string    `json:"order_number"`
	BuyerName   string    `json:"buyer_name"`
	ProductName string    `json:"product_name"`
	TotalAmount float64   `json:"total_amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summary holds the aggregates shown on a role's dashboard. Sections not
// relevant to the role are omitted.
type Summary struct {
	Role              shared.Role   `json:"role"`
	GeneratedAt       time.Time     `json:"generated_at"`
	UsersByRole       Counts        `json:"users_by_role,omitempty"`
	ActiveProducts    *int          `json:"active_products,omitempty"`
	LowStockProducts  *int          `json:"low_stock_products,omitempty"`
	OrdersByStatus    Counts        `json:"orders_by_status,omitempty"`
	QueriesByStatus   Counts        `json:"queries_by_status,omitempty"`
	UnassignedPending *int          `json:"unassigned_pending,omitempty"`
	Revenue           *float64      `json:"revenue,omitempty"`
	TotalSpend        *float64      `json:"total_spend,omitempty"`
	RecentOrders      []RecentOrder `json:"recent_orders,omitempty"`
}

// Scope restricts an aggregate to one participant. Zero fields are unrestricted.
type Scope struct {
	BuyerID    int64
	SellerID   int64
	UserID     int64
	AssignedTo int64
}
