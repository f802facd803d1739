package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/velmora/unicart/pkg/commerce"
	"github.com/velmora/unicart/pkg/logger"
)

// PlaceholderImagePath is the last link of the image fallback chain.
const PlaceholderImagePath = "/images/product-placeholder.png"

// defaultStockCeiling bounds quantity steppers when the backend omits stock.
// Large but finite on purpose.
const defaultStockCeiling = 10000

var errMalformedLine = errors.New("line item missing variant or product payload")

// Normalizer converts raw backend payloads into canonical Items, filling safe
// defaults for the display fields backend responses populate inconsistently.
type Normalizer struct {
	stockCeiling int
	logg         *logger.Logger
}

// NewNormalizer builds a normalizer with the configured stock ceiling sentinel.
func NewNormalizer(stockCeiling int, logg *logger.Logger) *Normalizer {
	if stockCeiling <= 0 {
		stockCeiling = defaultStockCeiling
	}
	return &Normalizer{stockCeiling: stockCeiling, logg: logg}
}

// LocalLineID derives the synthetic line identity for a locally stored variant.
// Deterministic so repeated adds to the same variant collapse into one line.
func LocalLineID(variantID string) string {
	return "local-" + variantID
}

// FromRemoteLine converts one raw remote line. Lines whose nested variant or
// product payload is absent are rejected, never rendered with garbage data.
func (n *Normalizer) FromRemoteLine(raw commerce.RemoteLineItem) (Item, error) {
	if raw.Variant == nil || raw.Variant.Product == nil {
		return Item{}, fmt.Errorf("line %q: %w", raw.ID, errMalformedLine)
	}
	item := n.fromVariant(raw.Variant, raw.Quantity)
	item.ID = raw.ID
	return item, nil
}

// FromVariant builds the local-construction path Item from a variant lookup.
func (n *Normalizer) FromVariant(detail *commerce.VariantDetail, quantity int) (Item, error) {
	if detail == nil || detail.Product == nil {
		return Item{}, errMalformedLine
	}
	item := n.fromVariant(detail, quantity)
	item.ID = LocalLineID(detail.ID)
	return item, nil
}

// NormalizeRemote converts a raw remote list, silently filtering malformed
// lines. Drops are logged in one entry since they indicate a backend
// data-integrity issue, not a user-facing error.
func (n *Normalizer) NormalizeRemote(ctx context.Context, raw []commerce.RemoteLineItem) []Item {
	items := make([]Item, 0, len(raw))
	var dropped error
	for _, line := range raw {
		item, err := n.FromRemoteLine(line)
		if err != nil {
			dropped = multierr.Append(dropped, err)
			continue
		}
		items = append(items, item)
	}
	if dropped != nil && n.logg != nil {
		ctx = n.logg.WithField(ctx, "dropped", len(multierr.Errors(dropped)))
		n.logg.Error(ctx, "cart.normalize.malformed_lines", dropped)
	}
	return items
}

func (n *Normalizer) fromVariant(detail *commerce.VariantDetail, quantity int) Item {
	product := detail.Product

	item := Item{
		VariantID:   detail.ID,
		SKU:         detail.SKU,
		Quantity:    quantity,
		UnitPrice:   product.BasePrice,
		MaxQuantity: n.stockCeilingFor(detail),
		ImageURL:    resolveImage(detail),
		ProductName: product.Name,
		ProductSlug: product.Slug,
	}
	if detail.Color != nil {
		item.ColorName = detail.Color.Name
	}
	if detail.Size != nil {
		item.SizeName = detail.Size.Name
	}

	// The discounted price is always recomputed from the base price and the
	// discount percent; a separately cached discounted field is never trusted.
	if product.DiscountPercent > 0 {
		discounted := product.BasePrice.
			Mul(decimal.NewFromFloat(100 - product.DiscountPercent)).
			Div(decimal.NewFromInt(100))
		item.DiscountedUnitPrice = &discounted
	}

	return item
}

func (n *Normalizer) stockCeilingFor(detail *commerce.VariantDetail) int {
	if detail.StockQty == nil || *detail.StockQty <= 0 {
		return n.stockCeiling
	}
	return *detail.StockQty
}

func resolveImage(detail *commerce.VariantDetail) string {
	if detail.Image != "" {
		return detail.Image
	}
	if len(detail.Product.Images) > 0 && detail.Product.Images[0].URL != "" {
		return detail.Product.Images[0].URL
	}
	return PlaceholderImagePath
}
