package cart

import (
	"context"
	"testing"
	"time"

	"github.com/velmora/unicart/pkg/commerce"
	pkgerrors "github.com/velmora/unicart/pkg/errors"
)

type fakeVariantLoader struct {
	catalog map[string]*commerce.VariantDetail
	err     error
	calls   int
}

func (f *fakeVariantLoader) GetVariant(_ context.Context, variantID string) (*commerce.VariantDetail, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	detail, ok := f.catalog[variantID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	return detail, nil
}

func newTestLocalStore(t *testing.T, loader *fakeVariantLoader) (*LocalStore, *MemoryStorage) {
	t.Helper()
	storage := NewMemoryStorage()
	store, err := NewLocalStore(storage, loader, NewNormalizer(0, nil), nil, "device-1", time.Hour)
	if err != nil {
		t.Fatalf("construct local store: %v", err)
	}
	return store, storage
}

func TestUpsertCreatesThenMergesLine(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	loader := &fakeVariantLoader{catalog: map[string]*commerce.VariantDetail{"v1": variantFixture("v1")}}
	store, _ := newTestLocalStore(t, loader)

	if err := store.Upsert(ctx, "v1", 2); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := store.Upsert(ctx, "v1", 3); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	items := store.Load(ctx)
	if len(items) != 1 {
		t.Fatalf("expected one line per variant, got %d", len(items))
	}
	if items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", items[0].Quantity)
	}
	if loader.calls != 1 {
		t.Fatalf("expected one variant lookup, got %d", loader.calls)
	}
}

func TestUpsertClampsToStockCeiling(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	detail := variantFixture("v1")
	detail.StockQty = intPtr(4)
	loader := &fakeVariantLoader{catalog: map[string]*commerce.VariantDetail{"v1": detail}}
	store, _ := newTestLocalStore(t, loader)

	if err := store.Upsert(ctx, "v1", 3); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := store.Upsert(ctx, "v1", 3); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	items := store.Load(ctx)
	if items[0].Quantity != 4 {
		t.Fatalf("expected quantity clamped to 4, got %d", items[0].Quantity)
	}
}

func TestUpsertRejectsNonPositiveDelta(t *testing.T) {
	t.Parallel()

	loader := &fakeVariantLoader{}
	store, _ := newTestLocalStore(t, loader)

	err := store.Upsert(context.Background(), "v1", 0)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpsertFailedLookupLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	loader := &fakeVariantLoader{catalog: map[string]*commerce.VariantDetail{"v1": variantFixture("v1")}}
	store, _ := newTestLocalStore(t, loader)

	if err := store.Upsert(ctx, "v1", 1); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}

	if err := store.Upsert(ctx, "missing", 1); err == nil {
		t.Fatalf("expected lookup failure")
	}

	items := store.Load(ctx)
	if len(items) != 1 || items[0].VariantID != "v1" {
		t.Fatalf("store mutated by failed upsert: %+v", items)
	}
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	loader := &fakeVariantLoader{catalog: map[string]*commerce.VariantDetail{"v1": variantFixture("v1")}}
	store, _ := newTestLocalStore(t, loader)

	if err := store.Upsert(ctx, "v1", 2); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}
	if err := store.SetQuantity(ctx, "v1", 0); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if items := store.Load(ctx); len(items) != 0 {
		t.Fatalf("expected empty cart, got %+v", items)
	}
}

func TestSetQuantityUnknownVariant(t *testing.T) {
	t.Parallel()

	loader := &fakeVariantLoader{}
	store, _ := newTestLocalStore(t, loader)

	err := store.SetQuantity(context.Background(), "v9", 2)
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLoadToleratesCorruptPayload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	loader := &fakeVariantLoader{}
	store, storage := newTestLocalStore(t, loader)

	if err := storage.Write(ctx, "device-1", []byte("{not json"), 0); err != nil {
		t.Fatalf("seed corrupt payload: %v", err)
	}
	if items := store.Load(ctx); len(items) != 0 {
		t.Fatalf("expected empty cart for corrupt payload, got %+v", items)
	}
}

func TestLoadDropsNonPositiveQuantities(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	loader := &fakeVariantLoader{}
	store, storage := newTestLocalStore(t, loader)

	payload := []byte(`[{"variant_id":"v1","quantity":2},{"variant_id":"v2","quantity":0},{"variant_id":"v3","quantity":-1}]`)
	if err := storage.Write(ctx, "device-1", payload, 0); err != nil {
		t.Fatalf("seed payload: %v", err)
	}

	items := store.Load(ctx)
	if len(items) != 1 || items[0].VariantID != "v1" {
		t.Fatalf("expected only positive-quantity lines, got %+v", items)
	}
}

func TestClearDestroysCart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	loader := &fakeVariantLoader{catalog: map[string]*commerce.VariantDetail{"v1": variantFixture("v1")}}
	store, _ := newTestLocalStore(t, loader)

	if err := store.Upsert(ctx, "v1", 1); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if items := store.Load(ctx); len(items) != 0 {
		t.Fatalf("expected empty cart after clear, got %+v", items)
	}
}
