package commerce

import "github.com/shopspring/decimal"

// RemoteCart is the commerce backend's cart payload for one authenticated user.
// Aggregates are server-issued; the cart layer recomputes its own from the
// normalized items and treats these as informational.
type RemoteCart struct {
	ID         string           `json:"id"`
	TotalItems int              `json:"total_items"`
	Subtotal   decimal.Decimal  `json:"subtotal"`
	Items      []RemoteLineItem `json:"items"`
}

// RemoteLineItem is one raw cart line as the backend returns it. Variant and
// the nested product may be absent when backend data integrity slips; the
// normalizer is responsible for filtering those out.
type RemoteLineItem struct {
	ID       string         `json:"id"`
	Quantity int            `json:"quantity"`
	Variant  *VariantDetail `json:"variant"`
}

// VariantDetail is the raw variant payload, shared between cart lines and the
// read-only variant lookup endpoint.
type VariantDetail struct {
	ID       string         `json:"id"`
	SKU      string         `json:"sku"`
	Color    *NamedValue    `json:"color"`
	Size     *NamedValue    `json:"size"`
	StockQty *int           `json:"stock_qty"`
	Image    string         `json:"image"`
	Product  *ProductDetail `json:"product"`
}

// ProductDetail carries display and pricing data for a variant's product.
type ProductDetail struct {
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	BasePrice       decimal.Decimal `json:"base_price"`
	DiscountPercent float64         `json:"discount_percent"`
	Images          []ProductImage  `json:"images"`
}

type ProductImage struct {
	URL string `json:"url"`
}

type NamedValue struct {
	Name string `json:"name"`
}

// GuestItem is the minimal line shape sent with a merge request.
type GuestItem struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}
