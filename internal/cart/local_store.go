package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgerrors "github.com/velmora/unicart/pkg/errors"
	"github.com/velmora/unicart/pkg/logger"
)

// LocalStore is the durable guest cart for one device. It is the single
// source of truth while no authenticated session exists and is only ever sent
// to the backend through an explicit merge.
type LocalStore struct {
	storage  Storage
	variants VariantLoader
	norm     *Normalizer
	logg     *logger.Logger
	deviceID string
	ttl      time.Duration
}

// NewLocalStore binds a guest cart to a device identifier.
func NewLocalStore(storage Storage, variants VariantLoader, norm *Normalizer, logg *logger.Logger, deviceID string, ttl time.Duration) (*LocalStore, error) {
	if storage == nil {
		return nil, errors.New("storage is required")
	}
	if variants == nil {
		return nil, errors.New("variant loader is required")
	}
	if norm == nil {
		return nil, errors.New("normalizer is required")
	}
	if deviceID == "" {
		return nil, errors.New("device id is required")
	}
	return &LocalStore{
		storage:  storage,
		variants: variants,
		norm:     norm,
		logg:     logg,
		deviceID: deviceID,
		ttl:      ttl,
	}, nil
}

// Load reads the persisted cart. Absent or corrupt content yields an empty
// cart, never an error; a guest cart that cannot be parsed is worthless anyway.
func (s *LocalStore) Load(ctx context.Context) []Item {
	payload, err := s.storage.Read(ctx, s.deviceID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && s.logg != nil {
			s.logg.Error(ctx, "cart.local.read_failed", err)
		}
		return []Item{}
	}

	var items []Item
	if err := json.Unmarshal(payload, &items); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "cart.local.corrupt_payload", err)
		}
		return []Item{}
	}

	// Lines with non-positive quantity must not exist in the store.
	clean := items[:0]
	for _, item := range items {
		if item.Quantity > 0 {
			clean = append(clean, item)
		}
	}
	return clean
}

// Save persists the full list, overwriting prior content.
func (s *LocalStore) Save(ctx context.Context, items []Item) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode guest cart")
	}
	if err := s.storage.Write(ctx, s.deviceID, payload, s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist guest cart")
	}
	return nil
}

// Upsert increases an existing line's quantity by delta, or constructs a new
// line after resolving variant metadata. A failed lookup surfaces without
// partially mutating the store.
func (s *LocalStore) Upsert(ctx context.Context, variantID string, delta int) error {
	if delta <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	items := s.Load(ctx)
	if idx := findByVariant(items, variantID); idx >= 0 {
		items[idx].Quantity = clampQuantity(items[idx].Quantity+delta, items[idx].MaxQuantity)
		return s.Save(ctx, items)
	}

	detail, err := s.variants.GetVariant(ctx, variantID)
	if err != nil {
		return err
	}
	item, err := s.norm.FromVariant(detail, 0)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "variant payload incomplete")
	}
	item.Quantity = clampQuantity(delta, item.MaxQuantity)

	return s.Save(ctx, append(items, item))
}

// SetQuantity replaces a line's quantity, clamped to the stock ceiling.
// Zero or negative removes the line.
func (s *LocalStore) SetQuantity(ctx context.Context, variantID string, quantity int) error {
	items := s.Load(ctx)
	if quantity <= 0 {
		return s.Save(ctx, removeByVariant(items, variantID))
	}
	idx := findByVariant(items, variantID)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "variant not in cart")
	}
	items[idx].Quantity = clampQuantity(quantity, items[idx].MaxQuantity)
	return s.Save(ctx, items)
}

// Remove drops the line for the variant, regardless of prior state.
func (s *LocalStore) Remove(ctx context.Context, variantID string) error {
	return s.Save(ctx, removeByVariant(s.Load(ctx), variantID))
}

// Clear destroys the guest cart.
func (s *LocalStore) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, s.deviceID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear guest cart")
	}
	return nil
}
