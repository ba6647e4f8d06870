package storage

import (
	"context"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ProdFact/telamentis/pkg/graph"
)

// MemoryConfig tunes the in-memory reference store.
type MemoryConfig struct {
	// MaxNodes caps the total node count across all tenants. 0 = unlimited.
	MaxNodes int
	// MaxEdges caps the total edge count across all tenants. 0 = unlimited.
	MaxEdges int
	// Logger receives query warnings and debug events. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// DefaultMemoryConfig returns the capacity policy used when no explicit
// configuration is supplied.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		MaxNodes: 100_000,
		MaxEdges: 500_000,
	}
}

// storedNode is the primary record for a node: the value plus its owner.
type storedNode struct {
	id        uuid.UUID
	node      graph.Node
	tenant    graph.TenantID
	createdAt time.Time
}

// storedEdge is the primary record for an edge version.
type storedEdge struct {
	id     uuid.UUID
	edge   graph.TimeEdge
	tenant graph.TenantID
}

type aliasKey struct {
	tenant graph.TenantID
	alias  string
}

type labelKey struct {
	tenant graph.TenantID
	label  string
}

// MemoryStore is the thread-safe in-memory reference implementation of
// GraphStore.
//
// State is two primary maps (nodes and edges by system id) plus six derived
// indices, all maintained in lock-step under a single RWMutex:
//
//	nodesByTenant  tenant            -> node ids
//	edgesByTenant  tenant            -> edge ids
//	nodesByAlias   (tenant, alias)   -> node id (unique)
//	nodesByLabel   (tenant, label)   -> node ids
//	edgesFrom      node id           -> edge ids
//	edgesTo        node id           -> edge ids
//
// The single coarse lock is what makes multi-index maintenance atomic: a
// writer mutates every affected index before releasing, so readers always
// observe a consistent snapshot. The lock is released before any method
// returns — it is never held across a suspension point that escapes the
// store.
//
// Use Cases:
//   - Unit testing (no disk I/O, fast cleanup)
//   - Development and prototyping
//   - Small datasets that fit entirely in RAM
//
// Performance Characteristics:
//   - Node lookup by id or alias: O(1)
//   - FindNodes by label: O(k log k) over matching ids (sorted for
//     deterministic limit truncation)
//   - FindRelationships from/to a node: O(degree log degree)
//   - Memory: all data lost on process exit (volatile by design)
//
// ELI12:
//
// Imagine a library with one big logbook (the primary maps) and six card
// catalogs (the indices). Every time a book is added or removed, the
// librarian locks the door, updates the logbook AND all six catalogs, then
// unlocks. Visitors never see a catalog card pointing at a book that isn't
// on the shelf — because nobody gets in while the librarian is mid-update.
type MemoryStore struct {
	mu     sync.RWMutex
	config MemoryConfig
	logger *slog.Logger

	nodes map[uuid.UUID]*storedNode
	edges map[uuid.UUID]*storedEdge

	nodesByTenant map[graph.TenantID]map[uuid.UUID]struct{}
	edgesByTenant map[graph.TenantID]map[uuid.UUID]struct{}
	nodesByAlias  map[aliasKey]uuid.UUID
	nodesByLabel  map[labelKey]map[uuid.UUID]struct{}
	edgesFrom     map[uuid.UUID]map[uuid.UUID]struct{}
	edgesTo       map[uuid.UUID]map[uuid.UUID]struct{}

	closed bool
}

// NewMemoryStore creates a reference store with the default capacity policy.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithConfig(DefaultMemoryConfig())
}

// NewMemoryStoreWithConfig creates a reference store with an explicit
// capacity policy.
func NewMemoryStoreWithConfig(config MemoryConfig) *MemoryStore {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		config:        config,
		logger:        logger,
		nodes:         make(map[uuid.UUID]*storedNode),
		edges:         make(map[uuid.UUID]*storedEdge),
		nodesByTenant: make(map[graph.TenantID]map[uuid.UUID]struct{}),
		edgesByTenant: make(map[graph.TenantID]map[uuid.UUID]struct{}),
		nodesByAlias:  make(map[aliasKey]uuid.UUID),
		nodesByLabel:  make(map[labelKey]map[uuid.UUID]struct{}),
		edgesFrom:     make(map[uuid.UUID]map[uuid.UUID]struct{}),
		edgesTo:       make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// UpsertNode implements GraphStore.
//
// Alias semantics: when the node carries an alias already indexed under this
// tenant, the stored node's label and properties are overwritten in place
// (alias and tenant are immutable) and the existing id is returned. A label
// change moves the id between label-index buckets. Without an alias every
// call inserts a fresh node.
func (m *MemoryStore) UpsertNode(ctx context.Context, tenant graph.TenantID, node graph.Node) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return uuid.Nil, graph.Databasef("store closed")
	}

	if node.Alias != "" {
		if existingID, ok := m.nodesByAlias[aliasKey{tenant, node.Alias}]; ok {
			stored, ok := m.nodes[existingID]
			if !ok {
				return uuid.Nil, graph.Databasef("inconsistent alias index for %q", node.Alias)
			}
			// Label change moves the id between label buckets.
			if stored.node.Label != node.Label {
				m.removeFromLabelIndex(tenant, stored.node.Label, existingID)
				m.addToLabelIndex(tenant, node.Label, existingID)
			}
			stored.node.Label = node.Label
			stored.node.Props = deepCopyProps(node.Props)
			return existingID, nil
		}
	}

	if m.config.MaxNodes > 0 && len(m.nodes) >= m.config.MaxNodes {
		return uuid.Nil, graph.ConstraintViolationf("maximum node limit (%d) reached", m.config.MaxNodes)
	}

	id := uuid.New()
	m.insertNodeLocked(id, node, tenant)
	return id, nil
}

func (m *MemoryStore) insertNodeLocked(id uuid.UUID, node graph.Node, tenant graph.TenantID) {
	node.Props = deepCopyProps(node.Props)
	m.nodes[id] = &storedNode{id: id, node: node, tenant: tenant, createdAt: time.Now().UTC()}

	if m.nodesByTenant[tenant] == nil {
		m.nodesByTenant[tenant] = make(map[uuid.UUID]struct{})
	}
	m.nodesByTenant[tenant][id] = struct{}{}

	if node.Alias != "" {
		m.nodesByAlias[aliasKey{tenant, node.Alias}] = id
	}
	m.addToLabelIndex(tenant, node.Label, id)
}

func (m *MemoryStore) addToLabelIndex(tenant graph.TenantID, label string, id uuid.UUID) {
	key := labelKey{tenant, label}
	if m.nodesByLabel[key] == nil {
		m.nodesByLabel[key] = make(map[uuid.UUID]struct{})
	}
	m.nodesByLabel[key][id] = struct{}{}
}

func (m *MemoryStore) removeFromLabelIndex(tenant graph.TenantID, label string, id uuid.UUID) {
	key := labelKey{tenant, label}
	if bucket := m.nodesByLabel[key]; bucket != nil {
		delete(bucket, id)
		if len(bucket) == 0 {
			delete(m.nodesByLabel, key)
		}
	}
}

// UpsertEdge implements GraphStore.
//
// Edges are append-only. Superseding: when a current version (TxEnd unset)
// of an edge with the same (from, to, kind) exists in this tenant, its
// transaction interval is closed at "now" before the new version is
// inserted with TxStart = now. Query paths only observe current versions.
func (m *MemoryStore) UpsertEdge(ctx context.Context, tenant graph.TenantID, edge graph.TimeEdge) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	if edge.ValidTo != nil && edge.ValidTo.Before(edge.ValidFrom) {
		return uuid.Nil, graph.ConstraintViolationf("valid_from %s after valid_to %s",
			edge.ValidFrom.Format(time.RFC3339), edge.ValidTo.Format(time.RFC3339))
	}
	if edge.TxEnd != nil && !edge.TxStart.IsZero() && edge.TxEnd.Before(edge.TxStart) {
		return uuid.Nil, graph.ConstraintViolationf("transaction_start after transaction_end")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return uuid.Nil, graph.Databasef("store closed")
	}

	if m.config.MaxEdges > 0 && len(m.edges) >= m.config.MaxEdges {
		return uuid.Nil, graph.ConstraintViolationf("maximum edge limit (%d) reached", m.config.MaxEdges)
	}

	from, ok := m.nodes[edge.FromID]
	if !ok || from.tenant != tenant {
		return uuid.Nil, graph.NodeNotFoundf("from node %s not found in tenant %s", edge.FromID, tenant)
	}
	to, ok := m.nodes[edge.ToID]
	if !ok || to.tenant != tenant {
		return uuid.Nil, graph.NodeNotFoundf("to node %s not found in tenant %s", edge.ToID, tenant)
	}

	now := time.Now().UTC()
	if edge.TxStart.IsZero() {
		edge.TxStart = now
	}

	// Close the prior current version of this relationship, if any.
	for edgeID := range m.edgesFrom[edge.FromID] {
		prior := m.edges[edgeID]
		if prior == nil || prior.tenant != tenant {
			continue
		}
		if prior.edge.ToID == edge.ToID && prior.edge.Kind == edge.Kind && prior.edge.IsCurrentVersion() {
			end := now
			prior.edge.TxEnd = &end
		}
	}

	id := uuid.New()
	edge.Props = deepCopyProps(edge.Props)
	m.edges[id] = &storedEdge{id: id, edge: edge, tenant: tenant}

	if m.edgesByTenant[tenant] == nil {
		m.edgesByTenant[tenant] = make(map[uuid.UUID]struct{})
	}
	m.edgesByTenant[tenant][id] = struct{}{}

	if m.edgesFrom[edge.FromID] == nil {
		m.edgesFrom[edge.FromID] = make(map[uuid.UUID]struct{})
	}
	m.edgesFrom[edge.FromID][id] = struct{}{}

	if m.edgesTo[edge.ToID] == nil {
		m.edgesTo[edge.ToID] = make(map[uuid.UUID]struct{})
	}
	m.edgesTo[edge.ToID][id] = struct{}{}

	return id, nil
}

// GetNode implements GraphStore. Cross-tenant lookups read as absent.
func (m *MemoryStore) GetNode(ctx context.Context, tenant graph.TenantID, id uuid.UUID) (*graph.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, graph.Databasef("store closed")
	}

	stored, ok := m.nodes[id]
	if !ok || stored.tenant != tenant {
		return nil, nil
	}
	node := copyNode(stored.node)
	return &node, nil
}

// GetNodeByAlias implements GraphStore.
func (m *MemoryStore) GetNodeByAlias(ctx context.Context, tenant graph.TenantID, alias string) (uuid.UUID, *graph.Node, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return uuid.Nil, nil, graph.Databasef("store closed")
	}

	id, ok := m.nodesByAlias[aliasKey{tenant, alias}]
	if !ok {
		return uuid.Nil, nil, nil
	}
	stored, ok := m.nodes[id]
	if !ok {
		return uuid.Nil, nil, graph.Databasef("inconsistent alias index for %q", alias)
	}
	node := copyNode(stored.node)
	return id, &node, nil
}

// DeleteNode implements GraphStore.
//
// Deletion is physical and cascades: the union of incident edge ids from the
// adjacency indices is collected first, each such edge is removed through the
// edge-delete routine (which cleans the opposite side's bucket), and finally
// the node is stripped from the tenant set, alias index and label bucket.
func (m *MemoryStore) DeleteNode(ctx context.Context, tenant graph.TenantID, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, graph.Databasef("store closed")
	}

	stored, ok := m.nodes[id]
	if !ok || stored.tenant != tenant {
		return false, nil
	}

	incident := make(map[uuid.UUID]struct{})
	for edgeID := range m.edgesFrom[id] {
		incident[edgeID] = struct{}{}
	}
	for edgeID := range m.edgesTo[id] {
		incident[edgeID] = struct{}{}
	}
	for edgeID := range incident {
		m.removeEdgeLocked(edgeID, tenant)
	}
	delete(m.edgesFrom, id)
	delete(m.edgesTo, id)

	if set := m.nodesByTenant[tenant]; set != nil {
		delete(set, id)
	}
	if stored.node.Alias != "" {
		delete(m.nodesByAlias, aliasKey{tenant, stored.node.Alias})
	}
	m.removeFromLabelIndex(tenant, stored.node.Label, id)
	delete(m.nodes, id)

	return true, nil
}

// DeleteEdge implements GraphStore.
func (m *MemoryStore) DeleteEdge(ctx context.Context, tenant graph.TenantID, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, graph.Databasef("store closed")
	}

	stored, ok := m.edges[id]
	if !ok || stored.tenant != tenant {
		return false, nil
	}
	return m.removeEdgeLocked(id, tenant), nil
}

func (m *MemoryStore) removeEdgeLocked(id uuid.UUID, tenant graph.TenantID) bool {
	stored, ok := m.edges[id]
	if !ok {
		return false
	}
	delete(m.edges, id)

	if set := m.edgesByTenant[tenant]; set != nil {
		delete(set, id)
	}
	if set := m.edgesFrom[stored.edge.FromID]; set != nil {
		delete(set, id)
	}
	if set := m.edgesTo[stored.edge.ToID]; set != nil {
		delete(set, id)
	}
	return true
}

// GetNodeHistory implements GraphStore. The reference store keeps no
// historical node versions, so the current node comes back as a singleton
// (or an empty slice when absent).
func (m *MemoryStore) GetNodeHistory(ctx context.Context, tenant graph.TenantID, id uuid.UUID) ([]graph.Node, error) {
	node, err := m.GetNode(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return []graph.Node{}, nil
	}
	return []graph.Node{*node}, nil
}

// HealthCheck implements GraphStore.
func (m *MemoryStore) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return graph.Databasef("store closed")
	}
	return nil
}

// Stats returns the total node and edge counts across all tenants.
func (m *MemoryStore) Stats() (nodes, edges int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes), len(m.edges)
}

// Clear drops all data and indices.
func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = make(map[uuid.UUID]*storedNode)
	m.edges = make(map[uuid.UUID]*storedEdge)
	m.nodesByTenant = make(map[graph.TenantID]map[uuid.UUID]struct{})
	m.edgesByTenant = make(map[graph.TenantID]map[uuid.UUID]struct{})
	m.nodesByAlias = make(map[aliasKey]uuid.UUID)
	m.nodesByLabel = make(map[labelKey]map[uuid.UUID]struct{})
	m.edgesFrom = make(map[uuid.UUID]map[uuid.UUID]struct{})
	m.edgesTo = make(map[uuid.UUID]map[uuid.UUID]struct{})
}

// Close implements GraphStore. Subsequent operations fail.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// ----------------------------------------------------------------------------
// Copy helpers
// ----------------------------------------------------------------------------

func copyNode(n graph.Node) graph.Node {
	n.Props = deepCopyProps(n.Props)
	return n
}

// deepCopyProps clones a JSON-shaped property tree so stored records can
// never be mutated through a reference the caller kept.
func deepCopyProps(props map[string]any) map[string]any {
	if props == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return deepCopyProps(tv)
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}

// propsMatch reports whether candidate's properties are a superset of filter
// (deep equality on every filter key).
func propsMatch(candidate, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := candidate[key]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// sortedIDs returns the ids of a set in byte order. Query results iterate
// sorted ids so that limit truncation is deterministic.
func sortedIDs(set map[uuid.UUID]struct{}) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return ids
}
