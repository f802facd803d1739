package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/velmora/unicart/pkg/auth"
	"github.com/velmora/unicart/pkg/config"
	"github.com/velmora/unicart/pkg/enums"
	pkgerrors "github.com/velmora/unicart/pkg/errors"
	"github.com/velmora/unicart/pkg/logger"
)

var errBaseURLRequired = errors.New("commerce base url is required")

// Client is the typed HTTP client for the commerce backend's cart and catalog
// surface. Cart calls require an authenticated session in the context; the
// variant lookup is public.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

// NewClient validates the configuration and builds the commerce client.
func NewClient(cfg config.CommerceConfig, logg *logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parsing commerce base url: %w", err)
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		logger:     logg,
	}, nil
}

// FetchCart returns the authenticated user's cart.
func (c *Client) FetchCart(ctx context.Context) (*RemoteCart, error) {
	var cart RemoteCart
	if err := c.doAuthed(ctx, http.MethodGet, "/api/v1/cart", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddItem adds a variant to the authenticated cart and returns the stored line.
func (c *Client) AddItem(ctx context.Context, variantID string, quantity int) (*RemoteLineItem, error) {
	body := map[string]any{"variant_id": variantID, "quantity": quantity}
	var line RemoteLineItem
	if err := c.doAuthed(ctx, http.MethodPost, "/api/v1/cart/items", body, &line); err != nil {
		return nil, err
	}
	return &line, nil
}

// UpdateQuantity sets the quantity on an existing cart line.
func (c *Client) UpdateQuantity(ctx context.Context, lineID string, quantity int) (*RemoteLineItem, error) {
	body := map[string]any{"quantity": quantity}
	var line RemoteLineItem
	path := "/api/v1/cart/items/" + url.PathEscape(lineID)
	if err := c.doAuthed(ctx, http.MethodPatch, path, body, &line); err != nil {
		return nil, err
	}
	return &line, nil
}

// RemoveByVariant deletes the cart line holding the given variant.
func (c *Client) RemoveByVariant(ctx context.Context, variantID string) error {
	path := "/api/v1/cart/items/by-variant/" + url.PathEscape(variantID)
	return c.doAuthed(ctx, http.MethodDelete, path, nil, nil)
}

// Clear empties the authenticated cart.
func (c *Client) Clear(ctx context.Context) error {
	return c.doAuthed(ctx, http.MethodDelete, "/api/v1/cart", nil, nil)
}

// MergeGuestItems pushes guest lines into the authenticated cart. The policy
// tells the backend how to combine quantities for variants present on both sides.
func (c *Client) MergeGuestItems(ctx context.Context, policy enums.MergePolicy, items []GuestItem) (*RemoteCart, error) {
	body := map[string]any{"policy": policy.String(), "items": items}
	var cart RemoteCart
	if err := c.doAuthed(ctx, http.MethodPost, "/api/v1/cart/merge", body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetVariant resolves display metadata for a variant via the read-only catalog API.
func (c *Client) GetVariant(ctx context.Context, variantID string) (*VariantDetail, error) {
	var detail VariantDetail
	path := "/api/v1/variants/" + url.PathEscape(variantID)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) doAuthed(ctx context.Context, method, path string, body, out any) error {
	sess := auth.SessionFromContext(ctx)
	if !sess.Authenticated || sess.Token == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "no active session credential")
	}
	return c.do(ctx, method, path, sess.Token, body, out)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commerce request failed")
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return c.mapStatus(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode commerce response")
	}
	return nil
}

func (c *Client) mapStatus(resp *http.Response) error {
	message := backendMessage(resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, orDefault(message, "session credential rejected"))
	case http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, orDefault(message, "resource not found"))
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return pkgerrors.New(pkgerrors.CodeStockConflict, orDefault(message, "requested quantity exceeds available stock"))
	case http.StatusBadRequest:
		return pkgerrors.New(pkgerrors.CodeValidation, orDefault(message, "commerce backend rejected the request"))
	}
	return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("commerce backend returned status %d", resp.StatusCode))
}

func backendMessage(body io.Reader) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 64<<10)).Decode(&envelope); err != nil {
		return ""
	}
	return strings.TrimSpace(envelope.Error.Message)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
