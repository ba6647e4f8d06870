// Package storage provides the GraphStore contract and its implementations
// for TelaMentis.
//
// The storage layer is storage-abstracted by design: the core compiles only
// against the GraphStore interface, and concrete backends are supplied at
// wiring time. Two backends live here:
//   - MemoryStore: the in-memory reference implementation with full
//     multi-index maintenance and tenant isolation
//   - BadgerStore: persistent disk storage on BadgerDB with the same six
//     indices expressed as key prefixes
//
// Design Principles:
//   - Tenant isolation enforced on every read path, not just indices
//   - Append-only bitemporal edges (supersede, never mutate)
//   - Testability through dependency injection
//   - Thread-safe implementations
//
// Example Usage:
//
//	store := storage.NewMemoryStore()
//	defer store.Close()
//
//	tenant := graph.TenantID("team-a")
//
//	aliceID, _ := store.UpsertNode(ctx, tenant,
//		graph.NewNode("Person").WithAlias("alice"))
//	acmeID, _ := store.UpsertNode(ctx, tenant,
//		graph.NewNode("Company").WithAlias("acme"))
//
//	edge := graph.NewTimeEdge(aliceID, acmeID, "WORKS_FOR", hireDate, nil)
//	store.UpsertEdge(ctx, tenant, edge)
//
//	paths, _ := store.Query(ctx, tenant, graph.FindRelationships{
//		FromID: &aliceID,
//		Types:  []string{"WORKS_FOR"},
//	})
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/ProdFact/telamentis/pkg/graph"
)

// GraphStore is the contract every storage backend must satisfy.
//
// Every operation is parameterized by a tenant and fails with a typed error
// from pkg/graph. Implementations MUST:
//   - be safe for concurrent use from multiple goroutines
//   - mask cross-tenant records: a correct system id presented under the
//     wrong tenant reads as absent, never as an error that reveals existence
//   - keep every derived index consistent with the primary records within a
//     single operation (atomic from the outside)
//   - release internal locks before returning (no lock is ever held across a
//     call boundary)
type GraphStore interface {
	// UpsertNode creates a node or, when the node carries an alias already
	// indexed for this tenant, overwrites that node's label and properties
	// in place and returns its existing system id.
	UpsertNode(ctx context.Context, tenant graph.TenantID, node graph.Node) (uuid.UUID, error)

	// UpsertEdge appends a new edge version. It rejects edges whose
	// endpoints do not exist in the same tenant, stamps TxStart with "now"
	// when unset, and closes the prior current version of a matching
	// (from, to, kind) edge before inserting.
	UpsertEdge(ctx context.Context, tenant graph.TenantID, edge graph.TimeEdge) (uuid.UUID, error)

	// Query executes one variant of the closed query algebra.
	Query(ctx context.Context, tenant graph.TenantID, q graph.Query) ([]graph.Path, error)

	// GetNode returns the node iff its tenant matches; otherwise nil.
	GetNode(ctx context.Context, tenant graph.TenantID, id uuid.UUID) (*graph.Node, error)

	// GetNodeByAlias resolves a node through the per-tenant alias index.
	GetNodeByAlias(ctx context.Context, tenant graph.TenantID, alias string) (uuid.UUID, *graph.Node, error)

	// DeleteNode removes a node and cascades to every incident edge.
	// Returns false when the node is absent or owned by another tenant.
	DeleteNode(ctx context.Context, tenant graph.TenantID, id uuid.UUID) (bool, error)

	// DeleteEdge removes an edge from the primary map and every index.
	// Returns false when the edge is absent or owned by another tenant.
	DeleteEdge(ctx context.Context, tenant graph.TenantID, id uuid.UUID) (bool, error)

	// GetNodeHistory returns the recorded versions of a node. Backends
	// without node versioning return the current node as a singleton.
	GetNodeHistory(ctx context.Context, tenant graph.TenantID, id uuid.UUID) ([]graph.Node, error)

	// HealthCheck probes backend liveness.
	HealthCheck(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
