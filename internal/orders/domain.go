package orders

import "time"

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

// CanTransition reports whether an order may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Statuses lists every order status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}
}

// Order is a purchase of a product. Name fields are joined from related rows.
type Order struct {
	ID              int64     `json:"id"`
	OrderNumber     string    `json:"order_number"`
	BuyerID         int64     `json:"buyer_id"`
	BuyerName       string    `json:"buyer_name"`
	SellerID        int64     `json:"seller_id"`
	SellerName      string    `json:"seller_name"`
	ProductID       int64     `json:"product_id"`
	ProductName     string    `json:"product_name"`
	ProductSKU      string    `json:"product_sku"`
	QuantityKg      float64   `json:"quantity_kg"`
	UnitPrice       float64   `json:"unit_price"`
	TotalAmount     float64   `json:"total_amount"`
	Currency        string    `json:"currency"`
	Status          Status    `json:"status"`
	ShippingAddress string    `json:"shipping_address"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ProductSnapshot is the locked product state used while placing an order.
type ProductSnapshot struct {
	ID         int64
	SellerID   int64
	PricePerKg float64
	Currency   string
	StockKg    float64
	MinOrderKg float64
	IsActive   bool
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status    string
	BuyerID   *int64
	SellerID  *int64
	ProductID *int64
	DateFrom  *time.Time
	DateTo    *time.Time
	Sort      string
	Dir       string
	Page      int
	Limit     int
}

// PlaceInput carries a new order.
type PlaceInput struct {
	ProductID       int64   `json:"product_id" validate:"required,gt=0"`
	QuantityKg      float64 `json:"quantity_kg" validate:"gt=0"`
	ShippingAddress string  `json:"shipping_address" validate:"required,max=500"`
	Notes           string  `json:"notes" validate:"omitempty,max=2000"`
}

// StatusInput moves an order through its lifecycle.
type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=PENDING PROCESSING SHIPPED DELIVERED CANCELLED"`
}
