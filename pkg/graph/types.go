// Package graph defines the value model for TelaMentis: tenants, nodes,
// bitemporal edges, the closed query algebra, and path results.
//
// Everything in this package is a plain value. The types carry no storage or
// transport behavior — storage backends live in pkg/storage and wire adapters
// in pkg/server. Keeping the value model dependency-free means every backend
// and every presentation adapter compiles against the same vocabulary.
//
// Bitemporal Model:
//
// Every edge carries two independent time axes:
//   - Valid time:       [ValidFrom, ValidTo)   — when the fact is true in the
//     modeled world ("Alice WORKS_FOR Acme from 2023 to 2025")
//   - Transaction time: [TxStart, TxEnd)       — when this version of the fact
//     was recorded in the store
//
// Both intervals are half-open: the start instant is included, the end instant
// is excluded, and a nil end means "unbounded above". The current version of
// an edge always has TxEnd == nil.
//
// Example Usage:
//
//	tenant := graph.TenantID("acme-prod")
//
//	alice := graph.NewNode("Person").
//		WithAlias("alice").
//		WithProperty("name", "Alice Johnson")
//
//	edge := graph.NewTimeEdge(aliceID, acmeID, "WORKS_FOR",
//		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
//		map[string]any{"role": "engineer"},
//	).WithValidTo(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
//
//	query := graph.FindRelationships{
//		FromID:  &aliceID,
//		Types:   []string{"WORKS_FOR"},
//		ValidAt: &someInstant,
//	}
//
// ELI12:
//
// Think of a TimeEdge like a sticker in a scrapbook that records a friendship:
//   - Valid time is WHEN the friendship actually existed ("we were friends
//     from 3rd grade until 5th grade")
//   - Transaction time is WHEN you glued the sticker into the book ("I wrote
//     this down last Tuesday")
//
// The two are independent! You can record today (transaction time = now) a
// friendship that ended years ago (valid time = the past). That's what makes
// the graph bitemporal: it remembers both what was true and what it believed.
package graph

import (
	"time"

	"github.com/google/uuid"
)

// TenantID is the opaque isolation key of the multi-tenant graph.
//
// Two records with identical content but different tenants are distinct;
// every stored record and every secondary-index key carries a TenantID.
// Comparison is by value. TenantID is a trust-boundary marker, not an
// identity system — authentication is the surrounding deployment's concern.
type TenantID string

// String returns the raw tenant identifier.
func (t TenantID) String() string { return string(t) }

// Node is an entity in the knowledge graph.
//
// A node has a type tag (Label, e.g. "Person"), an optional user-supplied
// Alias, and a free-form property bag. The system id is NOT part of the value:
// it is assigned by the store on first insert and returned from UpsertNode.
//
// Alias is the per-tenant idempotency key: upserting a second node with the
// same (tenant, alias) mutates the first one in place and returns its existing
// id instead of minting a new record. An empty Alias means "no alias" — every
// such upsert creates a fresh node.
type Node struct {
	// Alias is the optional user-defined identifier, unique within a tenant.
	Alias string `json:"id_alias,omitempty"`
	// Label is the type tag of the node (e.g. "Person", "Organization").
	Label string `json:"label"`
	// Props is the free-form property bag (JSON-shaped tree).
	Props map[string]any `json:"props"`
}

// NewNode creates a node with the given label and an empty property bag.
func NewNode(label string) Node {
	return Node{Label: label, Props: map[string]any{}}
}

// WithAlias sets the per-tenant idempotency alias.
func (n Node) WithAlias(alias string) Node {
	n.Alias = alias
	return n
}

// WithProps replaces the property bag.
func (n Node) WithProps(props map[string]any) Node {
	n.Props = props
	return n
}

// WithProperty sets a single property, allocating the bag if needed.
func (n Node) WithProperty(key string, value any) Node {
	if n.Props == nil {
		n.Props = map[string]any{}
	}
	n.Props[key] = value
	return n
}

// TimeEdge is a directed, typed, bitemporal relationship between two nodes.
//
// FromID and ToID are system ids of existing nodes in the same tenant — the
// store enforces this on insert. Edges are append-only: superseding an edge
// means closing the prior version's transaction interval and inserting a new
// version, never mutating a stored record.
//
// Invariants (checked by the store on insert):
//   - ValidFrom <= ValidTo when ValidTo is set
//   - TxStart <= TxEnd when TxEnd is set
//   - both endpoints belong to the same tenant as the edge
type TimeEdge struct {
	// FromID is the system id of the source node.
	FromID uuid.UUID `json:"from_node_id"`
	// ToID is the system id of the target node.
	ToID uuid.UUID `json:"to_node_id"`
	// Kind is the relationship type tag (e.g. "WORKS_FOR", "KNOWS").
	Kind string `json:"kind"`
	// ValidFrom is when the relationship became true in the modeled world.
	ValidFrom time.Time `json:"valid_from"`
	// ValidTo is when the relationship ceased to be true. Nil = still valid.
	ValidTo *time.Time `json:"valid_to,omitempty"`
	// TxStart is when this version was recorded in the store. The store
	// stamps it with "now" when left zero.
	TxStart time.Time `json:"transaction_start_time"`
	// TxEnd is when this version was superseded. Nil = current version.
	TxEnd *time.Time `json:"transaction_end_time,omitempty"`
	// Props is the relationship property bag.
	Props map[string]any `json:"props"`
}

// NewTimeEdge creates an edge valid from validFrom with an open valid-time
// end and an unset transaction interval (the store stamps TxStart on insert).
func NewTimeEdge(from, to uuid.UUID, kind string, validFrom time.Time, props map[string]any) TimeEdge {
	if props == nil {
		props = map[string]any{}
	}
	return TimeEdge{
		FromID:    from,
		ToID:      to,
		Kind:      kind,
		ValidFrom: validFrom,
		Props:     props,
	}
}

// WithValidTo closes the valid-time interval at validTo (exclusive).
func (e TimeEdge) WithValidTo(validTo time.Time) TimeEdge {
	e.ValidTo = &validTo
	return e
}

// WithTxStart overrides the transaction start time. Usually the store stamps
// this automatically; overriding is only useful for replaying history.
func (e TimeEdge) WithTxStart(t time.Time) TimeEdge {
	e.TxStart = t
	return e
}

// WithTxEnd marks this version as superseded at t.
func (e TimeEdge) WithTxEnd(t time.Time) TimeEdge {
	e.TxEnd = &t
	return e
}

// WasValidAt reports whether the edge was true in the modeled world at
// instant t: ValidFrom <= t < ValidTo, treating a nil ValidTo as +infinity.
func (e TimeEdge) WasValidAt(t time.Time) bool {
	if t.Before(e.ValidFrom) {
		return false
	}
	return e.ValidTo == nil || t.Before(*e.ValidTo)
}

// ExistedAtTxTime reports whether this version was present in the store at
// instant t: TxStart <= t < TxEnd, treating a nil TxEnd as +infinity.
func (e TimeEdge) ExistedAtTxTime(t time.Time) bool {
	if t.Before(e.TxStart) {
		return false
	}
	return e.TxEnd == nil || t.Before(*e.TxEnd)
}

// IsCurrentVersion reports whether this is the live version of the edge
// (its transaction interval is still open).
func (e TimeEdge) IsCurrentVersion() bool { return e.TxEnd == nil }

// IsCurrentlyValid reports whether the edge is true in the modeled world
// right now (ValidTo is nil or in the future).
func (e TimeEdge) IsCurrentlyValid() bool {
	return e.ValidTo == nil || e.ValidTo.After(time.Now().UTC())
}
