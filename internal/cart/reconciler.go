package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/velmora/unicart/pkg/commerce"
	"github.com/velmora/unicart/pkg/enums"
	pkgerrors "github.com/velmora/unicart/pkg/errors"
	"github.com/velmora/unicart/pkg/logger"
	"github.com/velmora/unicart/pkg/metrics"
)

// CartView is the read model handed to UI consumers. Aggregates are computed
// fresh from the active item list on every read, never cached on their own.
type CartView struct {
	Items         []Item          `json:"items"`
	TotalItems    int             `json:"total_items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PanelOpen     bool            `json:"panel_open"`
	Authenticated bool            `json:"authenticated"`
	Error         string          `json:"error,omitempty"`
}

// Reconciler owns the decision of which backing store is authoritative for one
// device session and migrates cart contents across the login/logout edges.
// The active store is a pure function of the last observed auth flag; the
// merge and the logout snapshot fire only on the flag's edge transitions.
type Reconciler struct {
	mu      sync.Mutex
	local   *LocalStore
	gateway Gateway
	norm    *Normalizer
	logg    *logger.Logger
	metrics *metrics.CartMetrics
	policy  enums.MergePolicy

	authed    bool
	snapshot  []Item
	hasRemote bool
	panelOpen bool
	lastErr   error

	flights map[string]*variantFlight
	wg      sync.WaitGroup
}

// variantFlight tracks the single in-flight quantity confirmation per variant.
// Overlapping updates coalesce into pending so only the final quantity is sent.
// gen is bumped by any other mutation touching the variant; a confirmation
// dispatched under an older generation is superseded and its response dropped.
type variantFlight struct {
	active  bool
	pending *int
	gen     uint64
}

func newReconciler(local *LocalStore, gateway Gateway, norm *Normalizer, logg *logger.Logger, m *metrics.CartMetrics, policy enums.MergePolicy) *Reconciler {
	return &Reconciler{
		local:   local,
		gateway: gateway,
		norm:    norm,
		logg:    logg,
		metrics: m,
		policy:  policy,
		flights: map[string]*variantFlight{},
	}
}

// Observe feeds the externally owned auth flag into the state machine. It must
// be called before mutations for the same request so the merge completes, or
// definitively fails, before any remote mutation is dispatched. Repeated
// observations of the same flag never re-trigger merge or snapshot logic.
func (r *Reconciler) Observe(ctx context.Context, authenticated bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case authenticated && !r.authed:
		r.authed = true
		return r.loginLocked(ctx)
	case !authenticated && r.authed:
		r.authed = false
		r.logoutLocked(ctx)
		return nil
	}

	if r.authed && !r.hasRemote {
		r.refreshSnapshotLocked(ctx)
	}
	return nil
}

// loginLocked runs the one-time guest merge. On failure the local cart stays
// intact and the error surfaces; retry is the caller's responsibility.
func (r *Reconciler) loginLocked(ctx context.Context) error {
	guestItems := r.local.Load(ctx)
	if len(guestItems) == 0 {
		r.refreshSnapshotLocked(ctx)
		return nil
	}

	payload := make([]commerce.GuestItem, 0, len(guestItems))
	for _, item := range guestItems {
		payload = append(payload, commerce.GuestItem{VariantID: item.VariantID, Quantity: item.Quantity})
	}

	merged, err := r.gateway.MergeGuestItems(ctx, r.policy, payload)
	r.metrics.IncMerge(err)
	if err != nil {
		r.refreshSnapshotLocked(ctx)
		mergeErr := pkgerrors.Wrap(pkgerrors.CodeMergeFailed, err, "guest cart merge failed")
		r.lastErr = mergeErr
		return mergeErr
	}

	if err := r.local.Clear(ctx); err != nil && r.logg != nil {
		// The merge is confirmed; a failed clear only risks a redundant merge later.
		r.logg.Error(ctx, "cart.merge.clear_local_failed", err)
	}
	r.setSnapshotLocked(ctx, merged)
	return nil
}

// logoutLocked copies the cached remote items into the local store as a
// best-effort carry-over. The remote cart itself is untouched.
func (r *Reconciler) logoutLocked(ctx context.Context) {
	if r.hasRemote && len(r.snapshot) > 0 {
		carryOver := make([]Item, len(r.snapshot))
		copy(carryOver, r.snapshot)
		for i := range carryOver {
			carryOver[i].ID = LocalLineID(carryOver[i].VariantID)
		}
		if err := r.local.Save(ctx, carryOver); err != nil && r.logg != nil {
			r.logg.Error(ctx, "cart.logout.snapshot_failed", err)
		}
	}
	r.snapshot = nil
	r.hasRemote = false
	for variantID := range r.flights {
		r.supersedeFlightLocked(variantID)
	}
}

// AddToCart routes an add to the active store and refreshes the snapshot.
func (r *Reconciler) AddToCart(ctx context.Context, variantID string, quantity int) error {
	if quantity <= 0 {
		quantity = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	defer func() { r.metrics.IncMutation("add", err) }()

	if !r.authed {
		err = r.local.Upsert(ctx, variantID, quantity)
		r.recordErrLocked(err)
		return err
	}

	if _, err = r.gateway.AddItem(ctx, variantID, quantity); err != nil {
		r.recordErrLocked(err)
		return err
	}
	r.supersedeFlightLocked(variantID)
	r.refreshSnapshotLocked(ctx)
	return nil
}

// UpdateItemQuantity sets a line's quantity. Authenticated updates apply
// optimistically to the cached snapshot and confirm in the background; a
// failed confirmation forces a resync against the authoritative remote cart.
func (r *Reconciler) UpdateItemQuantity(ctx context.Context, variantID string, quantity int) error {
	if quantity <= 0 {
		return r.RemoveItem(ctx, variantID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	defer func() { r.metrics.IncMutation("update", err) }()

	if !r.authed {
		err = r.local.SetQuantity(ctx, variantID, quantity)
		r.recordErrLocked(err)
		return err
	}

	idx := findByVariant(r.snapshot, variantID)
	if idx < 0 {
		err = pkgerrors.New(pkgerrors.CodeNotFound, "variant not in cart")
		r.recordErrLocked(err)
		return err
	}

	quantity = clampQuantity(quantity, r.snapshot[idx].MaxQuantity)
	r.snapshot[idx].Quantity = quantity
	lineID := r.snapshot[idx].ID

	flight, ok := r.flights[variantID]
	if !ok {
		flight = &variantFlight{}
		r.flights[variantID] = flight
	}
	if flight.active {
		// Fold into the in-flight confirmation; the final quantity wins.
		pending := quantity
		flight.pending = &pending
		return nil
	}
	flight.active = true

	confirmCtx := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go r.confirmQuantity(confirmCtx, variantID, lineID, quantity, flight.gen)
	return nil
}

// confirmQuantity drains the per-variant update flight: each confirmation
// sends the latest requested quantity, and responses for superseded requests
// are never applied.
func (r *Reconciler) confirmQuantity(ctx context.Context, variantID, lineID string, quantity int, gen uint64) {
	defer r.wg.Done()

	for {
		line, err := r.gateway.UpdateQuantity(ctx, lineID, quantity)

		r.mu.Lock()
		flight := r.flights[variantID]

		if !r.authed {
			// Logged out while in flight; the snapshot is gone and the
			// response is stale by definition.
			flight.active = false
			flight.pending = nil
			r.mu.Unlock()
			return
		}

		stale := flight.gen != gen

		if err != nil && !stale {
			flight.active = false
			flight.pending = nil
			r.metrics.IncRollback()
			r.lastErr = err
			r.refreshSnapshotLocked(ctx)
			r.mu.Unlock()
			return
		}

		if flight.pending != nil {
			quantity = *flight.pending
			flight.pending = nil
			gen = flight.gen
			idx := findByVariant(r.snapshot, variantID)
			if idx < 0 {
				// Variant left the cart since the pending update was queued.
				flight.active = false
				r.mu.Unlock()
				return
			}
			lineID = r.snapshot[idx].ID
			r.mu.Unlock()
			continue
		}

		flight.active = false
		if !stale {
			r.applyConfirmedLocked(ctx, variantID, line)
		}
		r.mu.Unlock()
		return
	}
}

func (r *Reconciler) applyConfirmedLocked(ctx context.Context, variantID string, line *commerce.RemoteLineItem) {
	idx := findByVariant(r.snapshot, variantID)
	if idx < 0 || line == nil {
		return
	}
	item, err := r.norm.FromRemoteLine(*line)
	if err != nil {
		if r.logg != nil {
			r.logg.Error(ctx, "cart.update.confirmation_malformed", err)
		}
		return
	}
	if item.Quantity <= 0 {
		r.snapshot = removeByVariant(r.snapshot, variantID)
		return
	}
	r.snapshot[idx] = item
}

// RemoveItem drops a line from the active store.
func (r *Reconciler) RemoveItem(ctx context.Context, variantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	defer func() { r.metrics.IncMutation("remove", err) }()

	if !r.authed {
		err = r.local.Remove(ctx, variantID)
		r.recordErrLocked(err)
		return err
	}

	r.supersedeFlightLocked(variantID)
	if err = r.gateway.RemoveByVariant(ctx, variantID); err != nil {
		r.recordErrLocked(err)
		return err
	}
	r.refreshSnapshotLocked(ctx)
	return nil
}

// ClearCart empties the active store.
func (r *Reconciler) ClearCart(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	defer func() { r.metrics.IncMutation("clear", err) }()

	if !r.authed {
		err = r.local.Clear(ctx)
		r.recordErrLocked(err)
		return err
	}

	for variantID := range r.flights {
		r.supersedeFlightLocked(variantID)
	}
	if err = r.gateway.Clear(ctx); err != nil {
		r.recordErrLocked(err)
		return err
	}
	r.snapshot = []Item{}
	r.hasRemote = true
	return nil
}

// OpenPanel marks the slide-over cart panel visible.
func (r *Reconciler) OpenPanel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panelOpen = true
}

// ClosePanel marks the slide-over cart panel hidden.
func (r *Reconciler) ClosePanel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panelOpen = false
}

// View returns the unified read model. The pending error field is consumed by
// the read, matching a transient notification that shows once.
func (r *Reconciler) View(ctx context.Context) CartView {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []Item
	if r.authed {
		if !r.hasRemote {
			r.refreshSnapshotLocked(ctx)
		}
		items = make([]Item, len(r.snapshot))
		copy(items, r.snapshot)
	} else {
		items = r.local.Load(ctx)
	}

	view := CartView{
		Items:         items,
		TotalItems:    TotalItems(items),
		TotalAmount:   TotalAmount(items),
		PanelOpen:     r.panelOpen,
		Authenticated: r.authed,
	}
	if r.lastErr != nil {
		view.Error = publicMessage(r.lastErr)
		r.lastErr = nil
	}
	return view
}

// Flush waits for in-flight background confirmations. Used by tests and by
// graceful shutdown.
func (r *Reconciler) Flush() {
	r.wg.Wait()
}

func (r *Reconciler) refreshSnapshotLocked(ctx context.Context) {
	remote, err := r.gateway.FetchCart(ctx)
	if err != nil {
		if r.logg != nil {
			r.logg.Error(ctx, "cart.snapshot.refresh_failed", err)
		}
		r.snapshot = nil
		r.hasRemote = false
		return
	}
	r.setSnapshotLocked(ctx, remote)
}

func (r *Reconciler) setSnapshotLocked(ctx context.Context, remote *commerce.RemoteCart) {
	if remote == nil {
		r.snapshot = []Item{}
		r.hasRemote = true
		return
	}
	r.snapshot = r.norm.NormalizeRemote(ctx, remote.Items)
	r.hasRemote = true
}

// supersedeFlightLocked invalidates any in-flight confirmation for the variant
// after a newer mutation touched it. The response of the superseded request
// must not be applied over state the newer mutation already refreshed.
func (r *Reconciler) supersedeFlightLocked(variantID string) {
	flight, ok := r.flights[variantID]
	if !ok {
		return
	}
	flight.gen++
	flight.pending = nil
}

func (r *Reconciler) recordErrLocked(err error) {
	if err != nil {
		r.lastErr = err
	}
}

func publicMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		if typed.Message() != "" {
			return typed.Message()
		}
		return pkgerrors.MetadataFor(typed.Code()).PublicMessage
	}
	return "cart operation failed"
}
