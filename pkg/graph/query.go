package graph

import (
	"time"

	"github.com/google/uuid"
)

// Query is the closed query algebra every storage backend must implement.
//
// The algebra is deliberately narrow — FindNodes, FindRelationships, AsOf and
// Raw — so that every backend can implement every variant. Raw is the escape
// hatch for backends with a native query language; the in-memory reference
// store refuses it, and portable callers must avoid it.
//
// Query is a sealed sum: only the four variants in this package satisfy it.
// Backends dispatch with a type switch:
//
//	switch q := query.(type) {
//	case graph.FindNodes:
//		// label/property scan
//	case graph.FindRelationships:
//		// adjacency scan with temporal filter
//	case graph.AsOf:
//		// rewrite and recurse
//	case graph.Raw:
//		// backend-native, or reject
//	}
type Query interface {
	queryVariant()
}

// FindNodes selects nodes by label and property equality.
//
// Candidates come from the label index (union over Labels) or the whole
// tenant partition when Labels is empty. A candidate matches when its
// property bag is a superset of Properties (equality on every key).
// Limit of 0 means unlimited.
type FindNodes struct {
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
	Limit      int            `json:"limit,omitempty"`
}

// FindRelationships selects edges by endpoints, kind and valid-time instant.
//
// When FromID is set, candidates come from the outgoing-adjacency index;
// otherwise from the incoming index via ToID; otherwise the whole tenant
// partition. Types empty means any kind. ValidAt, when set, keeps only edges
// whose valid-time interval contains the instant (half-open semantics).
// Limit of 0 means unlimited.
type FindRelationships struct {
	FromID  *uuid.UUID `json:"from_node_id,omitempty"`
	ToID    *uuid.UUID `json:"to_node_id,omitempty"`
	Types   []string   `json:"relationship_types"`
	ValidAt *time.Time `json:"valid_at,omitempty"`
	Limit   int        `json:"limit,omitempty"`
}

// AsOf rewrites a base query to observe the graph at a past instant.
//
// For a FindRelationships base the rewrite substitutes ValidAt with
// Timestamp. For any other base the rewrite is undefined: backends return an
// empty result and record a warning rather than guessing.
type AsOf struct {
	Base      Query     `json:"base_query"`
	Timestamp time.Time `json:"as_of_time"`
}

// Raw is an opaque backend-native query (e.g. Cypher for a Neo4j-backed
// adapter). The reference in-memory store rejects it with ErrQueryFailed.
type Raw struct {
	Query  string         `json:"query"`
	Params map[string]any `json:"params"`
}

func (FindNodes) queryVariant()         {}
func (FindRelationships) queryVariant() {}
func (AsOf) queryVariant()              {}
func (Raw) queryVariant()               {}

// RewriteAsOf applies the as-of substitution to a base query.
//
// It returns the rewritten query and true when the base is a
// FindRelationships (ValidAt replaced by ts). For every other variant it
// returns the base unchanged and false — callers must then return an empty
// result with a warning.
func RewriteAsOf(base Query, ts time.Time) (Query, bool) {
	if fr, ok := base.(FindRelationships); ok {
		fr.ValidAt = &ts
		return fr, true
	}
	return base, false
}

// Path is a query result fragment: an ordered sequence of nodes plus the
// relationships connecting them. A single-node match has one node and no
// relationships; a relationship match has two nodes and one relationship.
type Path struct {
	Nodes         []PathNode         `json:"nodes"`
	Relationships []PathRelationship `json:"relationships"`
}

// PathNode is a node as it appears in a query result.
type PathNode struct {
	ID         uuid.UUID      `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// PathRelationship is an edge as it appears in a query result. Temporal
// bounds travel in Properties under the valid_from/valid_to keys.
type PathRelationship struct {
	ID         uuid.UUID      `json:"id"`
	Type       string         `json:"rel_type"`
	StartID    uuid.UUID      `json:"start_node_id"`
	EndID      uuid.UUID      `json:"end_node_id"`
	Properties map[string]any `json:"properties"`
}

// Mutation is the sealed sum of write operations a source adapter may stream
// into the graph.
type Mutation interface {
	mutationVariant()
}

// UpsertNode creates or updates a node.
type UpsertNode struct {
	Node Node `json:"node"`
}

// UpsertEdge appends a new edge version.
type UpsertEdge struct {
	Edge TimeEdge `json:"edge"`
}

// DeleteNode removes a node and cascades to its incident edges.
type DeleteNode struct {
	ID uuid.UUID `json:"id"`
}

// DeleteEdge removes an edge.
type DeleteEdge struct {
	ID uuid.UUID `json:"id"`
}

func (UpsertNode) mutationVariant() {}
func (UpsertEdge) mutationVariant() {}
func (DeleteNode) mutationVariant() {}
func (DeleteEdge) mutationVariant() {}
