package reports

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/agrotrade/agrotrade/internal/orders"
)

// PDFRenderer converts an HTML document into PDF bytes.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

var confirmationTemplate = template.Must(template.New("order").Funcs(template.FuncMap{
	"money": func(v float64) string { return message.NewPrinter(language.English).Sprintf("%.2f", v) },
	"kg":    func(v float64) string { return message.NewPrinter(language.English).Sprintf("%.2f kg", v) },
	"date":  func(t time.Time) string { return t.UTC().Format("02 Jan 2006 15:04 MST") },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Order {{.Order.OrderNumber}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; color: #222; margin: 32px; }
h1 { font-size: 22px; margin-bottom: 4px; }
.muted { color: #777; font-size: 12px; }
table { width: 100%; border-collapse: collapse; margin-top: 24px; }
th, td { border-bottom: 1px solid #ddd; padding: 8px; text-align: left; font-size: 13px; }
th { background: #f4f4f4; }
.right { text-align: right; }
.total td { font-weight: bold; }
</style>
</head>
<body>
<h1>Order Confirmation</h1>
<div class="muted">{{.Order.OrderNumber}} &middot; {{date .Order.CreatedAt}} &middot; {{.Order.Status}}</div>
<table>
<tr><th>Buyer</th><td>{{.Order.BuyerName}}</td><th>Seller</th><td>{{.Order.SellerName}}</td></tr>
<tr><th>Ship to</th><td colspan="3">{{.Order.ShippingAddress}}</td></tr>
</table>
<table>
<thead><tr><th>SKU</th><th>Product</th><th class="right">Quantity</th><th class="right">Unit price</th><th class="right">Amount</th></tr></thead>
<tbody>
<tr>
<td>{{.Order.ProductSKU}}</td>
<td>{{.Order.ProductName}}</td>
<td class="right">{{kg .Order.QuantityKg}}</td>
<td class="right">{{money .Order.UnitPrice}} {{.Order.Currency}}</td>
<td class="right">{{money .Order.TotalAmount}} {{.Order.Currency}}</td>
</tr>
<tr class="total"><td colspan="4" class="right">Total</td><td class="right">{{money .Order.TotalAmount}} {{.Order.Currency}}</td></tr>
</tbody>
</table>
{{if .Order.Notes}}<p class="muted">Notes: {{.Order.Notes}}</p>{{end}}
<p class="muted">Generated {{date .GeneratedAt}}</p>
</body>
</html>`))

// RenderOrderHTML builds the confirmation document for an order.
func RenderOrderHTML(o orders.Order, generatedAt time.Time) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Order       orders.Order
		GeneratedAt time.Time
	}{Order: o, GeneratedAt: generatedAt}
	if err := confirmationTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render order template: %w", err)
	}
	return buf.String(), nil
}
