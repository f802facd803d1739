package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/velmora/unicart/api/controllers"
	"github.com/velmora/unicart/api/routes"
	"github.com/velmora/unicart/internal/cart"
	"github.com/velmora/unicart/pkg/auth"
	"github.com/velmora/unicart/pkg/commerce"
	"github.com/velmora/unicart/pkg/config"
	"github.com/velmora/unicart/pkg/enums"
	pkgerrors "github.com/velmora/unicart/pkg/errors"
	"github.com/velmora/unicart/pkg/logger"
)

// stubGateway is just enough commerce backend for HTTP-level tests.
type stubGateway struct {
	mu      sync.Mutex
	catalog map[string]*commerce.VariantDetail
	lines   []commerce.RemoteLineItem
}

func (s *stubGateway) FetchCart(context.Context) (*commerce.RemoteCart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]commerce.RemoteLineItem, len(s.lines))
	copy(items, s.lines)
	return &commerce.RemoteCart{ID: "cart-1", Items: items}, nil
}

func (s *stubGateway) AddItem(_ context.Context, variantID string, quantity int) (*commerce.RemoteLineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	detail, ok := s.catalog[variantID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	line := commerce.RemoteLineItem{ID: "r-" + variantID, Quantity: quantity, Variant: detail}
	s.lines = append(s.lines, line)
	return &line, nil
}

func (s *stubGateway) UpdateQuantity(_ context.Context, lineID string, quantity int) (*commerce.RemoteLineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ID == lineID {
			s.lines[i].Quantity = quantity
			line := s.lines[i]
			return &line, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "line not found")
}

func (s *stubGateway) RemoveByVariant(_ context.Context, variantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].Variant != nil && s.lines[i].Variant.ID == variantID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *stubGateway) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	return nil
}

func (s *stubGateway) MergeGuestItems(_ context.Context, _ enums.MergePolicy, items []commerce.GuestItem) (*commerce.RemoteCart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, guest := range items {
		if detail, ok := s.catalog[guest.VariantID]; ok {
			s.lines = append(s.lines, commerce.RemoteLineItem{
				ID:       "r-" + guest.VariantID,
				Quantity: guest.Quantity,
				Variant:  detail,
			})
		}
	}
	items2 := make([]commerce.RemoteLineItem, len(s.lines))
	copy(items2, s.lines)
	return &commerce.RemoteCart{ID: "cart-1", Items: items2}, nil
}

func (s *stubGateway) GetVariant(_ context.Context, variantID string) (*commerce.VariantDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	detail, ok := s.catalog[variantID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	return detail, nil
}

func testVariant(id string) *commerce.VariantDetail {
	stock := 50
	return &commerce.VariantDetail{
		ID:       id,
		SKU:      "SKU-" + id,
		StockQty: &stock,
		Product: &commerce.ProductDetail{
			Name: "Canvas Tote",
			Slug: "canvas-tote",
		},
	}
}

func newTestServer(t *testing.T, gw *stubGateway) *httptest.Server {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "cart-test"})
	registry, err := cart.NewRegistry(cart.RegistryParams{
		Storage:     cart.NewMemoryStorage(),
		Gateway:     gw,
		Variants:    gw,
		Logger:      logg,
		MergePolicy: enums.MergePolicySum,
		GuestTTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("construct registry: %v", err)
	}

	cartController, err := controllers.NewCartController(registry, logg)
	if err != nil {
		t.Fatalf("construct controller: %v", err)
	}

	handler := routes.New(routes.Deps{
		Config: &config.Config{JWT: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "unicart-test",
			ExpirationMinutes: 15,
		}},
		Logger: logg,
		Cart:   cartController,
		Health: controllers.NewHealthController(logg, nil),
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

type cartViewPayload struct {
	Data struct {
		Items []struct {
			VariantID string `json:"variant_id"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
		TotalItems    int    `json:"total_items"`
		PanelOpen     bool   `json:"panel_open"`
		Authenticated bool   `json:"authenticated"`
		Error         string `json:"error"`
	} `json:"data"`
}

func doJSON(t *testing.T, server *httptest.Server, method, path string, body any, headers map[string]string) (*http.Response, cartViewPayload) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var view cartViewPayload
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, view
}

func guestHeaders(device string) map[string]string {
	return map[string]string{"X-Device-Id": device}
}

func TestGuestCartLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{catalog: map[string]*commerce.VariantDetail{"v1": testVariant("v1")}}
	server := newTestServer(t, gw)
	headers := guestHeaders("device-http-1")

	resp, view := doJSON(t, server, http.MethodGet, "/api/v1/cart", nil, headers)
	if resp.StatusCode != http.StatusOK || len(view.Data.Items) != 0 {
		t.Fatalf("expected empty cart, got %d %+v", resp.StatusCode, view.Data)
	}

	resp, view = doJSON(t, server, http.MethodPost, "/api/v1/cart/items",
		map[string]any{"variant_id": "v1", "quantity": 2}, headers)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if view.Data.TotalItems != 2 {
		t.Fatalf("expected 2 items, got %d", view.Data.TotalItems)
	}

	resp, view = doJSON(t, server, http.MethodPatch, "/api/v1/cart/items/v1",
		map[string]any{"quantity": 5}, headers)
	if resp.StatusCode != http.StatusOK || view.Data.TotalItems != 5 {
		t.Fatalf("expected quantity 5, got %d %+v", resp.StatusCode, view.Data)
	}

	resp, view = doJSON(t, server, http.MethodDelete, "/api/v1/cart/items/v1", nil, headers)
	if resp.StatusCode != http.StatusOK || len(view.Data.Items) != 0 {
		t.Fatalf("expected removed line, got %d %+v", resp.StatusCode, view.Data)
	}
}

func TestGuestCartsAreIsolatedPerDevice(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{catalog: map[string]*commerce.VariantDetail{"v1": testVariant("v1")}}
	server := newTestServer(t, gw)

	if resp, _ := doJSON(t, server, http.MethodPost, "/api/v1/cart/items",
		map[string]any{"variant_id": "v1", "quantity": 2}, guestHeaders("device-a")); resp.StatusCode != http.StatusCreated {
		t.Fatalf("seed add failed: %d", resp.StatusCode)
	}

	_, view := doJSON(t, server, http.MethodGet, "/api/v1/cart", nil, guestHeaders("device-b"))
	if len(view.Data.Items) != 0 {
		t.Fatalf("device-b sees device-a's cart: %+v", view.Data.Items)
	}
}

func TestAddItemValidation(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{catalog: map[string]*commerce.VariantDetail{}}
	server := newTestServer(t, gw)

	resp, _ := doJSON(t, server, http.MethodPost, "/api/v1/cart/items",
		map[string]any{"quantity": 2}, guestHeaders("device-1"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing variant id, got %d", resp.StatusCode)
	}
}

func TestMissingDeviceIDRejected(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{catalog: map[string]*commerce.VariantDetail{}}
	server := newTestServer(t, gw)

	resp, _ := doJSON(t, server, http.MethodGet, "/api/v1/cart", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing device id, got %d", resp.StatusCode)
	}
}

func TestPanelToggleOverHTTP(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{catalog: map[string]*commerce.VariantDetail{}}
	server := newTestServer(t, gw)
	headers := guestHeaders("device-panel")

	_, view := doJSON(t, server, http.MethodPost, "/api/v1/cart/panel/open", nil, headers)
	if !view.Data.PanelOpen {
		t.Fatalf("expected panel open")
	}
	_, view = doJSON(t, server, http.MethodPost, "/api/v1/cart/panel/close", nil, headers)
	if view.Data.PanelOpen {
		t.Fatalf("expected panel closed")
	}
}

func TestLoginMergesGuestCartOverHTTP(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{catalog: map[string]*commerce.VariantDetail{"v1": testVariant("v1")}}
	server := newTestServer(t, gw)

	guest := guestHeaders("device-login")
	if resp, _ := doJSON(t, server, http.MethodPost, "/api/v1/cart/items",
		map[string]any{"variant_id": "v1", "quantity": 3}, guest); resp.StatusCode != http.StatusCreated {
		t.Fatalf("guest add failed")
	}

	token, err := auth.MintAccessToken(config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "unicart-test",
		ExpirationMinutes: 15,
	}, time.Now(), auth.AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	authed := map[string]string{
		"X-Device-Id":   "device-login",
		"Authorization": "Bearer " + token,
	}
	resp, view := doJSON(t, server, http.MethodGet, "/api/v1/cart", nil, authed)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authed get failed: %d", resp.StatusCode)
	}
	if !view.Data.Authenticated {
		t.Fatalf("expected authenticated view")
	}
	if view.Data.TotalItems != 3 {
		t.Fatalf("expected merged quantity 3, got %d", view.Data.TotalItems)
	}

	// The guest cart was consumed; logging out leaves the carried-over copy.
	_, view = doJSON(t, server, http.MethodGet, "/api/v1/cart", nil, guest)
	if view.Data.Authenticated {
		t.Fatalf("expected guest view after dropping the token")
	}
	if view.Data.TotalItems != 3 {
		t.Fatalf("expected carried-over quantity 3, got %d", view.Data.TotalItems)
	}
}
