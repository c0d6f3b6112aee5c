package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrade/agrotrade/internal/orders"
)

func TestRenderOrderHTMLGroupsAmounts(t *testing.T) {
	o := orders.Order{
		OrderNumber:     "ORD-20240309-000001",
		Status:          orders.StatusPending,
		BuyerName:       "Asha <Buyer>",
		ProductName:     "Cashew W240",
		QuantityKg:      1500,
		UnitPrice:       8.25,
		TotalAmount:     12375,
		Currency:        "USD",
		ShippingAddress: "Dock 4, Kochi",
		CreatedAt:       time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC),
	}
	html, err := RenderOrderHTML(o, time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, html, "1,500.00 kg")
	assert.Contains(t, html, "12,375.00 USD")
	assert.Contains(t, html, "09 Mar 2024 10:30 UTC")
	assert.Contains(t, html, "Asha &lt;Buyer&gt;")
	assert.NotContains(t, html, "Notes:")
}
