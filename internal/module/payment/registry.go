package payment

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Operations is the domain-independent surface of an Engine, used by the
// shared HTTP handler and the gateway callback.
type Operations interface {
	Name() string
	Policy() Policy
	Snapshot(ctx context.Context, id uuid.UUID) (*Snapshot, error)
	SnapshotByHandle(ctx context.Context, pollURL string) (*Snapshot, error)
	Initiate(ctx context.Context, id uuid.UUID, phone string) (*Initiation, error)
	Reconcile(ctx context.Context, id uuid.UUID, pollURL string) (*Reconciliation, error)
	ReconcileByHandle(ctx context.Context, pollURL string) (*Reconciliation, error)
	ApplyGatewayStatus(ctx context.Context, pollURL, token string) (*Reconciliation, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status, pollURL string) (*Snapshot, error)
}

// Registry holds the engine of every purchase domain by name.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Operations
}

// NewRegistry creates a new engine registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Operations)}
}

// Register adds ops under its name, replacing any previous entry.
func (r *Registry) Register(ops Operations) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[ops.Name()] = ops
}

// Get returns the engine registered for domain.
func (r *Registry) Get(domain string) (Operations, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ops, ok := r.engines[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDomainNotFound, domain)
	}
	return ops, nil
}

// List returns all registered domain names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
