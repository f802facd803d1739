package cart

import "github.com/shopspring/decimal"

// Item is the canonical line-item representation every cart realization is
// normalized into. Exactly one Item exists per variant in any cart.
type Item struct {
	ID                  string           `json:"id"`
	VariantID           string           `json:"variant_id"`
	SKU                 string           `json:"sku"`
	ColorName           string           `json:"color_name"`
	SizeName            string           `json:"size_name"`
	Quantity            int              `json:"quantity"`
	UnitPrice           decimal.Decimal  `json:"unit_price"`
	DiscountedUnitPrice *decimal.Decimal `json:"discounted_unit_price,omitempty"`
	MaxQuantity         int              `json:"max_quantity"`
	ImageURL            string           `json:"image_url"`
	ProductName         string           `json:"product_name"`
	ProductSlug         string           `json:"product_slug"`
}

// EffectiveUnitPrice prefers the discounted price when present.
func (i Item) EffectiveUnitPrice() decimal.Decimal {
	if i.DiscountedUnitPrice != nil {
		return *i.DiscountedUnitPrice
	}
	return i.UnitPrice
}

// TotalItems sums quantities across the list.
func TotalItems(items []Item) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// TotalAmount sums effective price times quantity across the list.
func TotalAmount(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.EffectiveUnitPrice().Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func findByVariant(items []Item, variantID string) int {
	for i := range items {
		if items[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

func removeByVariant(items []Item, variantID string) []Item {
	idx := findByVariant(items, variantID)
	if idx < 0 {
		return items
	}
	return append(items[:idx], items[idx+1:]...)
}

func clampQuantity(qty, ceiling int) int {
	if ceiling > 0 && qty > ceiling {
		return ceiling
	}
	return qty
}
