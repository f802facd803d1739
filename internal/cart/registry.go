package cart

import (
	"errors"
	"sync"
	"time"

	"github.com/velmora/unicart/pkg/enums"
	"github.com/velmora/unicart/pkg/logger"
	"github.com/velmora/unicart/pkg/metrics"
)

// RegistryParams groups the shared dependencies every reconciler is built from.
type RegistryParams struct {
	Storage     Storage
	Gateway     Gateway
	Variants    VariantLoader
	Logger      *logger.Logger
	Metrics     *metrics.CartMetrics
	MergePolicy enums.MergePolicy
	StockCeil   int
	GuestTTL    time.Duration
}

// Registry keeps one reconciler per device. The browser original held a single
// cart context per tab; here the per-device entry carries the same transient
// state (auth baseline, cached snapshot, panel flag) between requests.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	params  RegistryParams
	norm    *Normalizer
}

type registryEntry struct {
	rec      *Reconciler
	lastSeen time.Time
}

// NewRegistry validates dependencies and builds the registry.
func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if params.Variants == nil {
		return nil, errors.New("variant loader is required")
	}
	if !params.MergePolicy.IsValid() {
		return nil, errors.New("merge policy is required")
	}
	return &Registry{
		entries: map[string]*registryEntry{},
		params:  params,
		norm:    NewNormalizer(params.StockCeil, params.Logger),
	}, nil
}

// For returns the device's reconciler, creating it on first use.
func (reg *Registry) For(deviceID string) (*Reconciler, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if entry, ok := reg.entries[deviceID]; ok {
		entry.lastSeen = time.Now()
		return entry.rec, nil
	}

	local, err := NewLocalStore(reg.params.Storage, reg.params.Variants, reg.norm, reg.params.Logger, deviceID, reg.params.GuestTTL)
	if err != nil {
		return nil, err
	}
	rec := newReconciler(local, reg.params.Gateway, reg.norm, reg.params.Logger, reg.params.Metrics, reg.params.MergePolicy)
	reg.entries[deviceID] = &registryEntry{rec: rec, lastSeen: time.Now()}
	return rec, nil
}

// Sweep evicts reconcilers idle for longer than maxIdle and reports how many
// were dropped. Guest carts survive eviction in durable storage; an evicted
// authenticated entry re-baselines on its next request, which at worst replays
// a merge of an already-empty local cart.
func (reg *Registry) Sweep(maxIdle time.Duration) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	evicted := 0
	for deviceID, entry := range reg.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(reg.entries, deviceID)
			evicted++
		}
	}
	return evicted
}

// Len reports how many device sessions are live.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.entries)
}
