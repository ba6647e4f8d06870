package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ProdFact/telamentis/pkg/graph"
)

// Query implements GraphStore for the in-memory reference store.
//
// Dispatch over the closed algebra:
//   - FindNodes: candidates from the label index (union over labels) or the
//     tenant set, filtered by property superset match
//   - FindRelationships: candidates from the outgoing index (preferred),
//     the incoming index, or the tenant set; filtered sequentially by
//     tenant, endpoints, kind and valid-time instant
//   - AsOf: rewritten onto a FindRelationships base; other bases yield an
//     empty result with a recorded warning
//   - Raw: rejected — the reference store has no native query language
//
// Results iterate candidate ids in byte order, so limit truncation is
// deterministic. Callers must not rely on any richer ordering.
func (m *MemoryStore) Query(ctx context.Context, tenant graph.TenantID, q graph.Query) ([]graph.Path, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, graph.Databasef("store closed")
	}

	switch query := q.(type) {
	case graph.FindNodes:
		return m.findNodesLocked(tenant, query), nil

	case graph.FindRelationships:
		return m.findRelationshipsLocked(tenant, query), nil

	case graph.AsOf:
		rewritten, ok := graph.RewriteAsOf(query.Base, query.Timestamp)
		if !ok {
			m.logger.Warn("as-of rewrite undefined for base query variant, returning empty result",
				"tenant", tenant, "as_of", query.Timestamp)
			return []graph.Path{}, nil
		}
		return m.findRelationshipsLocked(tenant, rewritten.(graph.FindRelationships)), nil

	case graph.Raw:
		return nil, graph.QueryFailedf("raw queries not supported by the in-memory store")

	default:
		return nil, graph.QueryFailedf("unknown query variant %T", q)
	}
}

func (m *MemoryStore) findNodesLocked(tenant graph.TenantID, q graph.FindNodes) []graph.Path {
	var candidates map[uuid.UUID]struct{}
	if len(q.Labels) == 0 {
		candidates = m.nodesByTenant[tenant]
	} else {
		candidates = make(map[uuid.UUID]struct{})
		for _, label := range q.Labels {
			for id := range m.nodesByLabel[labelKey{tenant, label}] {
				candidates[id] = struct{}{}
			}
		}
	}

	paths := []graph.Path{}
	for _, id := range sortedIDs(candidates) {
		stored, ok := m.nodes[id]
		if !ok || stored.tenant != tenant {
			continue
		}
		if !propsMatch(stored.node.Props, q.Properties) {
			continue
		}
		paths = append(paths, graph.Path{
			Nodes: []graph.PathNode{pathNode(stored)},
		})
		if q.Limit > 0 && len(paths) >= q.Limit {
			break
		}
	}
	return paths
}

func (m *MemoryStore) findRelationshipsLocked(tenant graph.TenantID, q graph.FindRelationships) []graph.Path {
	var candidates map[uuid.UUID]struct{}
	switch {
	case q.FromID != nil:
		candidates = m.edgesFrom[*q.FromID]
	case q.ToID != nil:
		candidates = m.edgesTo[*q.ToID]
	default:
		candidates = m.edgesByTenant[tenant]
	}

	paths := []graph.Path{}
	for _, id := range sortedIDs(candidates) {
		stored, ok := m.edges[id]
		if !ok || stored.tenant != tenant {
			continue
		}
		edge := stored.edge

		// Superseded versions are invisible to the query surface.
		if !edge.IsCurrentVersion() {
			continue
		}
		if q.FromID != nil && edge.FromID != *q.FromID {
			continue
		}
		if q.ToID != nil && edge.ToID != *q.ToID {
			continue
		}
		if len(q.Types) > 0 && !containsString(q.Types, edge.Kind) {
			continue
		}
		if q.ValidAt != nil && !edge.WasValidAt(*q.ValidAt) {
			continue
		}

		start, okStart := m.nodes[edge.FromID]
		end, okEnd := m.nodes[edge.ToID]
		if !okStart || !okEnd {
			continue
		}

		paths = append(paths, graph.Path{
			Nodes:         []graph.PathNode{pathNode(start), pathNode(end)},
			Relationships: []graph.PathRelationship{pathRelationship(stored)},
		})
		if q.Limit > 0 && len(paths) >= q.Limit {
			break
		}
	}
	return paths
}

func pathNode(stored *storedNode) graph.PathNode {
	return graph.PathNode{
		ID:         stored.id,
		Labels:     []string{stored.node.Label},
		Properties: deepCopyProps(stored.node.Props),
	}
}

// pathRelationship projects an edge version into a result row. The temporal
// bounds ride along in the property bag, RFC 3339 in UTC.
func pathRelationship(stored *storedEdge) graph.PathRelationship {
	props := deepCopyProps(stored.edge.Props)
	props["valid_from"] = stored.edge.ValidFrom.UTC().Format(time.RFC3339Nano)
	if stored.edge.ValidTo != nil {
		props["valid_to"] = stored.edge.ValidTo.UTC().Format(time.RFC3339Nano)
	}
	return graph.PathRelationship{
		ID:         stored.id,
		Type:       stored.edge.Kind,
		StartID:    stored.edge.FromID,
		EndID:      stored.edge.ToID,
		Properties: props,
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
