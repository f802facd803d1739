package cart

import (
	"context"

	"github.com/velmora/unicart/pkg/commerce"
	"github.com/velmora/unicart/pkg/enums"
)

// Gateway is the remote cart surface of the commerce backend. All calls need
// an authenticated session credential in the context; a missing or expired
// credential fails with the unauthorized code, distinct from transport errors,
// so the reconciler can fall back to guest semantics.
type Gateway interface {
	FetchCart(ctx context.Context) (*commerce.RemoteCart, error)
	AddItem(ctx context.Context, variantID string, quantity int) (*commerce.RemoteLineItem, error)
	UpdateQuantity(ctx context.Context, lineID string, quantity int) (*commerce.RemoteLineItem, error)
	RemoveByVariant(ctx context.Context, variantID string) error
	Clear(ctx context.Context) error
	MergeGuestItems(ctx context.Context, policy enums.MergePolicy, items []commerce.GuestItem) (*commerce.RemoteCart, error)
}

// VariantLoader is the read-only catalog lookup the local store uses to
// resolve metadata for variants it only knows by identifier.
type VariantLoader interface {
	GetVariant(ctx context.Context, variantID string) (*commerce.VariantDetail, error)
}
