// Package tenant provides tenant metadata and lifecycle management for the
// multi-tenant graph.
//
// A tenant is the top-level isolation boundary: every stored record belongs
// to exactly one tenant, and the TenantID travels on every store operation.
// This package manages the metadata AROUND that boundary — names, status,
// isolation model — not the enforcement, which lives in pkg/storage.
package tenant

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ProdFact/telamentis/pkg/graph"
)

// IsolationModel describes how a backend physically separates tenants.
type IsolationModel string

const (
	// IsolationProperty — shared database with property-based row-level
	// scoping. The default, and what both built-in stores implement.
	IsolationProperty IsolationModel = "property"
	// IsolationDatabase — dedicated database per tenant.
	IsolationDatabase IsolationModel = "database"
	// IsolationLabel — shared database with label namespacing.
	IsolationLabel IsolationModel = "label"
)

// ParseIsolationModel converts a string to an IsolationModel.
func ParseIsolationModel(s string) (IsolationModel, error) {
	switch strings.ToLower(s) {
	case "property":
		return IsolationProperty, nil
	case "database":
		return IsolationDatabase, nil
	case "label":
		return IsolationLabel, nil
	default:
		return "", fmt.Errorf("unknown isolation model %q", s)
	}
}

// Status is a tenant's lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusCreating  Status = "creating"
	StatusDeleting  Status = "deleting"
	StatusDeleted   Status = "deleted"
)

// Info is the metadata record for one tenant.
type Info struct {
	ID             graph.TenantID `json:"id"`
	Name           string         `json:"name,omitempty"`
	Description    string         `json:"description,omitempty"`
	IsolationModel IsolationModel `json:"isolation_model"`
	Status         Status         `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// NewInfo creates a tenant record in the Creating state with the default
// isolation model.
func NewInfo(id graph.TenantID) Info {
	now := time.Now().UTC()
	return Info{
		ID:             id,
		IsolationModel: IsolationProperty,
		Status:         StatusCreating,
		CreatedAt:      now,
		UpdatedAt:      now,
		Metadata:       map[string]any{},
	}
}

// Activate transitions the tenant to Active.
func (i Info) Activate() Info {
	i.Status = StatusActive
	i.UpdatedAt = time.Now().UTC()
	return i
}

// Manager is the capability interface for tenant lifecycle operations.
type Manager interface {
	Create(ctx context.Context, info Info) error
	Get(ctx context.Context, id graph.TenantID) (*Info, error)
	List(ctx context.Context) ([]Info, error)
	Update(ctx context.Context, info Info) error
	Delete(ctx context.Context, id graph.TenantID) error
	Exists(ctx context.Context, id graph.TenantID) (bool, error)
}

// MemoryManager is the in-memory Manager used by the reference deployment.
type MemoryManager struct {
	mu      sync.RWMutex
	tenants map[graph.TenantID]Info
}

// NewMemoryManager creates an empty tenant registry.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{tenants: map[graph.TenantID]Info{}}
}

// Create registers a tenant. A duplicate id is a constraint violation.
func (m *MemoryManager) Create(ctx context.Context, info Info) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tenants[info.ID]; exists {
		return graph.ConstraintViolationf("tenant %s already exists", info.ID)
	}
	m.tenants[info.ID] = info
	return nil
}

// Get returns a tenant's metadata, or nil when unknown.
func (m *MemoryManager) Get(ctx context.Context, id graph.TenantID) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.tenants[id]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

// List returns all tenants ordered by id.
func (m *MemoryManager) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]Info, 0, len(m.tenants))
	for _, info := range m.tenants {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// Update overwrites a tenant's metadata.
func (m *MemoryManager) Update(ctx context.Context, info Info) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tenants[info.ID]; !exists {
		return graph.NodeNotFoundf("tenant %s not found", info.ID)
	}
	info.UpdatedAt = time.Now().UTC()
	m.tenants[info.ID] = info
	return nil
}

// Delete removes a tenant's metadata record. Graph data owned by the tenant
// is the store's concern, not the registry's.
func (m *MemoryManager) Delete(ctx context.Context, id graph.TenantID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tenants[id]; !exists {
		return graph.NodeNotFoundf("tenant %s not found", id)
	}
	delete(m.tenants, id)
	return nil
}

// Exists reports whether the tenant is registered.
func (m *MemoryManager) Exists(ctx context.Context, id graph.TenantID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tenants[id]
	return ok, nil
}
