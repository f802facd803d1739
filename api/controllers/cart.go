package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/velmora/unicart/api/responses"
	"github.com/velmora/unicart/api/validators"
	"github.com/velmora/unicart/internal/cart"
	"github.com/velmora/unicart/pkg/auth"
	pkgerrors "github.com/velmora/unicart/pkg/errors"
	"github.com/velmora/unicart/pkg/logger"
)

type CartController struct {
	registry *cart.Registry
	logg     *logger.Logger
}

func NewCartController(registry *cart.Registry, logg *logger.Logger) (*CartController, error) {
	if registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart registry is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	return &CartController{registry: registry, logg: logg}, nil
}

type addItemRequest struct {
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

// reconciler resolves the per-device reconciler and feeds it the current auth
// flag so login/logout transitions run before the handler's own operation.
func (c *CartController) reconciler(r *http.Request) (*cart.Reconciler, error) {
	ctx := r.Context()
	sess := auth.SessionFromContext(ctx)
	rec, err := c.registry.For(sess.DeviceID)
	if err != nil {
		return nil, err
	}
	if err := rec.Observe(ctx, sess.Authenticated); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := c.reconciler(r)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, rec.View(ctx))
}

func (c *CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addItemRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	rec, err := c.reconciler(r)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	if err := rec.AddToCart(ctx, req.VariantID, req.Quantity); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, rec.View(ctx))
}

func (c *CartController) SetQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	variantID := strings.TrimSpace(chi.URLParam(r, "variantId"))
	if variantID == "" {
		responses.WriteError(ctx, c.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required"))
		return
	}

	var req setQuantityRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	rec, err := c.reconciler(r)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	if err := rec.UpdateItemQuantity(ctx, variantID, req.Quantity); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, rec.View(ctx))
}

func (c *CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	variantID := strings.TrimSpace(chi.URLParam(r, "variantId"))
	if variantID == "" {
		responses.WriteError(ctx, c.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required"))
		return
	}

	rec, err := c.reconciler(r)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	if err := rec.RemoveItem(ctx, variantID); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, rec.View(ctx))
}

func (c *CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, err := c.reconciler(r)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	if err := rec.ClearCart(ctx); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, rec.View(ctx))
}

func (c *CartController) OpenPanel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, err := c.reconciler(r)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	rec.OpenPanel()
	responses.WriteSuccess(w, rec.View(ctx))
}

func (c *CartController) ClosePanel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, err := c.reconciler(r)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	rec.ClosePanel()
	responses.WriteSuccess(w, rec.View(ctx))
}
