package products

import "time"

// Category groups commodities in the catalogue.
type Category string

const (
	CategoryCashew Category = "CASHEW"
	CategorySpice  Category = "SPICE"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryCashew || c == CategorySpice
}

// Image is a stored product photo.
type Image struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Product is a seller listing. SellerName and SellerCompany are joined from the seller.
type Product struct {
	ID            int64     `json:"id"`
	SKU           string    `json:"sku"`
	SellerID      int64     `json:"seller_id"`
	SellerName    string    `json:"seller_name"`
	SellerCompany string    `json:"seller_company,omitempty"`
	Name          string    `json:"name"`
	Category      Category  `json:"category"`
	Grade         string    `json:"grade"`
	Description   string    `json:"description,omitempty"`
	PricePerKg    float64   `json:"price_per_kg"`
	Currency      string    `json:"currency"`
	StockKg       float64   `json:"stock_kg"`
	MinOrderKg    float64   `json:"min_order_kg"`
	Location      string    `json:"location,omitempty"`
	Origin        string    `json:"origin,omitempty"`
	ImageKeys     []string  `json:"-"`
	Images        []Image   `json:"images"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PricePoint is one entry of a product's price history.
type PricePoint struct {
	ProductID int64     `json:"product_id"`
	OldPrice  float64   `json:"old_price"`
	NewPrice  float64   `json:"new_price"`
	ChangedBy int64     `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

// ListFilter narrows catalogue listings.
type ListFilter struct {
	Category string
	Grade    string
	SellerID *int64
	Location string
	Search   string
	MinPrice *float64
	MaxPrice *float64
	InStock  *bool
	IsActive *bool
	// ViewerID restricts results to active listings or listings owned by the viewer.
	ViewerID *int64
	Sort     string
	Dir      string
	Page     int
	Limit    int
}

// CreateInput carries a new listing.
type CreateInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Category    string  `json:"category" validate:"required,oneof=CASHEW SPICE"`
	Grade       string  `json:"grade" validate:"required,max=40"`
	Description string  `json:"description" validate:"omitempty,max=4000"`
	PricePerKg  float64 `json:"price_per_kg" validate:"gt=0"`
	Currency    string  `json:"currency" validate:"omitempty,len=3"`
	StockKg     float64 `json:"stock_kg" validate:"gte=0"`
	MinOrderKg  float64 `json:"min_order_kg" validate:"gte=0"`
	Location    string  `json:"location" validate:"omitempty,max=120"`
	Origin      string  `json:"origin" validate:"omitempty,max=120"`
	IsActive    *bool   `json:"is_active"`
	// SellerID lets admins list on behalf of a seller.
	SellerID *int64 `json:"seller_id"`
}

// UpdateInput carries a partial listing update. Nil fields are left untouched.
type UpdateInput struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Category    *string  `json:"category" validate:"omitempty,oneof=CASHEW SPICE"`
	Grade       *string  `json:"grade" validate:"omitempty,min=1,max=40"`
	Description *string  `json:"description" validate:"omitempty,max=4000"`
	PricePerKg  *float64 `json:"price_per_kg" validate:"omitempty,gt=0"`
	Currency    *string  `json:"currency" validate:"omitempty,len=3"`
	StockKg     *float64 `json:"stock_kg" validate:"omitempty,gte=0"`
	MinOrderKg  *float64 `json:"min_order_kg" validate:"omitempty,gte=0"`
	Location    *string  `json:"location" validate:"omitempty,max=120"`
	Origin      *string  `json:"origin" validate:"omitempty,max=120"`
	IsActive    *bool    `json:"is_active"`
}
