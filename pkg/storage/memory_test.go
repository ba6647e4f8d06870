package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProdFact/telamentis/pkg/graph"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func TestUpsertNodeAliasIdempotence(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	id1, err := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("alice"))
	require.NoError(t, err)

	id2, err := store.UpsertNode(ctx, tenant,
		graph.NewNode("Person").WithAlias("alice").WithProperty("age", 30))
	require.NoError(t, err)

	// Same alias, same id, second call's props win.
	assert.Equal(t, id1, id2)

	node, err := store.GetNode(ctx, tenant, id1)
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, 30, node.Props["age"])
	assert.Equal(t, "alice", node.Alias)
}

func TestUpsertNodeWithoutAliasAlwaysInserts(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	id1, err := store.UpsertNode(ctx, tenant, graph.NewNode("Person"))
	require.NoError(t, err)
	id2, err := store.UpsertNode(ctx, tenant, graph.NewNode("Person"))
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
}

func TestAliasOverwriteMovesLabelBucket(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	id, err := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("acme"))
	require.NoError(t, err)

	_, err = store.UpsertNode(ctx, tenant, graph.NewNode("Organization").WithAlias("acme"))
	require.NoError(t, err)

	// The id must have moved from the Person bucket to the Organization one.
	people, err := store.Query(ctx, tenant, graph.FindNodes{Labels: []string{"Person"}})
	require.NoError(t, err)
	assert.Empty(t, people)

	orgs, err := store.Query(ctx, tenant, graph.FindNodes{Labels: []string{"Organization"}})
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, id, orgs[0].Nodes[0].ID)
}

func TestTenantIsolation(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	tenantA := graph.TenantID("tenant_a")
	tenantB := graph.TenantID("tenant_b")

	idA, err := store.UpsertNode(ctx, tenantA, graph.NewNode("Person").WithAlias("alice"))
	require.NoError(t, err)
	idB, err := store.UpsertNode(ctx, tenantB, graph.NewNode("Person").WithAlias("alice"))
	require.NoError(t, err)

	// Identical content, different tenants: distinct records.
	assert.NotEqual(t, idA, idB)

	// Each tenant sees only its own node, even with a correct system id.
	nodeA, err := store.GetNode(ctx, tenantA, idA)
	require.NoError(t, err)
	assert.NotNil(t, nodeA)

	masked, err := store.GetNode(ctx, tenantA, idB)
	require.NoError(t, err)
	assert.Nil(t, masked)

	masked, err = store.GetNode(ctx, tenantB, idA)
	require.NoError(t, err)
	assert.Nil(t, masked)

	// Alias lookups are tenant-scoped the same way.
	hitID, hit, err := store.GetNodeByAlias(ctx, tenantA, "alice")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, idA, hitID)
}

func TestUpsertEdgeEndpointValidation(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	tenantA := graph.TenantID("tenant_a")
	tenantB := graph.TenantID("tenant_b")

	aliceID, err := store.UpsertNode(ctx, tenantA, graph.NewNode("Person").WithAlias("alice"))
	require.NoError(t, err)
	bobID, err := store.UpsertNode(ctx, tenantB, graph.NewNode("Person").WithAlias("bob"))
	require.NoError(t, err)

	// Missing endpoint.
	_, err = store.UpsertEdge(ctx, tenantA,
		graph.NewTimeEdge(aliceID, uuid.New(), "KNOWS", time.Now().UTC(), nil))
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)

	// Endpoint in another tenant is indistinguishable from absent.
	_, err = store.UpsertEdge(ctx, tenantA,
		graph.NewTimeEdge(aliceID, bobID, "KNOWS", time.Now().UTC(), nil))
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestUpsertEdgeInvalidInterval(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	aliceID, err := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("alice"))
	require.NoError(t, err)
	acmeID, err := store.UpsertNode(ctx, tenant, graph.NewNode("Company").WithAlias("acme"))
	require.NoError(t, err)

	edge := graph.NewTimeEdge(aliceID, acmeID, "WORKS_FOR",
		mustTime(t, "2025-01-01T00:00:00Z"), nil).
		WithValidTo(mustTime(t, "2023-01-01T00:00:00Z"))

	_, err = store.UpsertEdge(ctx, tenant, edge)
	assert.ErrorIs(t, err, graph.ErrConstraintViolation)
}

func TestUpsertEdgeStampsTransactionStart(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	aliceID, _ := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("alice"))
	acmeID, _ := store.UpsertNode(ctx, tenant, graph.NewNode("Company").WithAlias("acme"))

	before := time.Now().UTC()
	edgeID, err := store.UpsertEdge(ctx, tenant,
		graph.NewTimeEdge(aliceID, acmeID, "WORKS_FOR", before, nil))
	require.NoError(t, err)

	stored := store.edges[edgeID]
	require.NotNil(t, stored)
	assert.False(t, stored.edge.TxStart.IsZero())
	assert.False(t, stored.edge.TxStart.Before(before))

	paths, err := store.Query(ctx, tenant, graph.FindRelationships{FromID: &aliceID})
	require.NoError(t, err)
	require.Len(t, paths, 1)
}

func TestEdgeSupersedeOnUpsert(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	aliceID, _ := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("alice"))
	acmeID, _ := store.UpsertNode(ctx, tenant, graph.NewNode("Company").WithAlias("acme"))

	validFrom := mustTime(t, "2023-01-01T00:00:00Z")
	firstID, err := store.UpsertEdge(ctx, tenant,
		graph.NewTimeEdge(aliceID, acmeID, "WORKS_FOR", validFrom, map[string]any{"role": "engineer"}))
	require.NoError(t, err)

	secondID, err := store.UpsertEdge(ctx, tenant,
		graph.NewTimeEdge(aliceID, acmeID, "WORKS_FOR", validFrom, map[string]any{"role": "manager"}))
	require.NoError(t, err)
	assert.NotEqual(t, firstID, secondID, "edges are append-only")

	// Only the current version surfaces in queries.
	paths, err := store.Query(ctx, tenant, graph.FindRelationships{
		FromID: &aliceID,
		Types:  []string{"WORKS_FOR"},
	})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, secondID, paths[0].Relationships[0].ID)
	assert.Equal(t, "manager", paths[0].Relationships[0].Properties["role"])
}

func TestDeleteNodeCascades(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	aliceID, _ := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("alice"))
	acmeID, _ := store.UpsertNode(ctx, tenant, graph.NewNode("Company").WithAlias("acme"))
	bobID, _ := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("bob"))

	_, err := store.UpsertEdge(ctx, tenant,
		graph.NewTimeEdge(aliceID, acmeID, "WORKS_FOR", time.Now().UTC(), nil))
	require.NoError(t, err)
	_, err = store.UpsertEdge(ctx, tenant,
		graph.NewTimeEdge(bobID, aliceID, "KNOWS", time.Now().UTC(), nil))
	require.NoError(t, err)

	deleted, err := store.DeleteNode(ctx, tenant, aliceID)
	require.NoError(t, err)
	assert.True(t, deleted)

	// The node is gone.
	node, err := store.GetNode(ctx, tenant, aliceID)
	require.NoError(t, err)
	assert.Nil(t, node)

	// No incident edge appears in any subsequent query (either direction).
	paths, err := store.Query(ctx, tenant, graph.FindRelationships{FromID: &aliceID})
	require.NoError(t, err)
	assert.Empty(t, paths)

	paths, err = store.Query(ctx, tenant, graph.FindRelationships{ToID: &aliceID})
	require.NoError(t, err)
	assert.Empty(t, paths)

	paths, err = store.Query(ctx, tenant, graph.FindRelationships{})
	require.NoError(t, err)
	assert.Empty(t, paths)

	// Alias index cleaned too: re-upserting alice creates a fresh node.
	newID, err := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("alice"))
	require.NoError(t, err)
	assert.NotEqual(t, aliceID, newID)

	// Cross-tenant and absent deletes report false.
	deleted, err = store.DeleteNode(ctx, graph.TenantID("other"), acmeID)
	require.NoError(t, err)
	assert.False(t, deleted)
	deleted, err = store.DeleteNode(ctx, tenant, uuid.New())
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteEdge(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	aliceID, _ := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("alice"))
	bobID, _ := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("bob"))

	edgeID, err := store.UpsertEdge(ctx, tenant,
		graph.NewTimeEdge(aliceID, bobID, "KNOWS", time.Now().UTC(), nil))
	require.NoError(t, err)

	deleted, err := store.DeleteEdge(ctx, graph.TenantID("other"), edgeID)
	require.NoError(t, err)
	assert.False(t, deleted, "cross-tenant delete must not succeed")

	deleted, err = store.DeleteEdge(ctx, tenant, edgeID)
	require.NoError(t, err)
	assert.True(t, deleted)

	paths, err := store.Query(ctx, tenant, graph.FindRelationships{FromID: &aliceID})
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestTemporalPredicate(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	aliceID, _ := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("alice"))
	acmeID, _ := store.UpsertNode(ctx, tenant, graph.NewNode("Company").WithAlias("acme"))

	edge := graph.NewTimeEdge(aliceID, acmeID, "WORKS_FOR",
		mustTime(t, "2023-01-01T00:00:00Z"), nil).
		WithValidTo(mustTime(t, "2025-01-01T00:00:00Z"))
	_, err := store.UpsertEdge(ctx, tenant, edge)
	require.NoError(t, err)

	query := func(at string) []graph.Path {
		ts := mustTime(t, at)
		paths, err := store.Query(ctx, tenant, graph.FindRelationships{
			FromID:  &aliceID,
			Types:   []string{"WORKS_FOR"},
			ValidAt: &ts,
		})
		require.NoError(t, err)
		return paths
	}

	assert.Len(t, query("2024-06-01T00:00:00Z"), 1, "inside the interval")
	assert.Len(t, query("2022-01-01T00:00:00Z"), 0, "before valid_from")
	assert.Len(t, query("2025-01-01T00:00:00Z"), 0, "valid_to is exclusive (half-open)")
	assert.Len(t, query("2023-01-01T00:00:00Z"), 1, "valid_from is inclusive")
}

func TestAsOfRewrite(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	aliceID, _ := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("alice"))
	acmeID, _ := store.UpsertNode(ctx, tenant, graph.NewNode("Company").WithAlias("acme"))

	edge := graph.NewTimeEdge(aliceID, acmeID, "WORKS_FOR",
		mustTime(t, "2023-01-01T00:00:00Z"), nil).
		WithValidTo(mustTime(t, "2025-01-01T00:00:00Z"))
	_, err := store.UpsertEdge(ctx, tenant, edge)
	require.NoError(t, err)

	at := mustTime(t, "2024-06-01T00:00:00Z")

	// AsOf over a FindRelationships base equals the direct valid_at query,
	// even when the base carried a different valid_at.
	stale := mustTime(t, "1999-01-01T00:00:00Z")
	asOf, err := store.Query(ctx, tenant, graph.AsOf{
		Base:      graph.FindRelationships{FromID: &aliceID, ValidAt: &stale},
		Timestamp: at,
	})
	require.NoError(t, err)

	direct, err := store.Query(ctx, tenant, graph.FindRelationships{FromID: &aliceID, ValidAt: &at})
	require.NoError(t, err)

	require.Len(t, asOf, 1)
	assert.Equal(t, direct, asOf)

	// AsOf over a non-relationship base: empty result, no error.
	empty, err := store.Query(ctx, tenant, graph.AsOf{
		Base:      graph.FindNodes{Labels: []string{"Person"}},
		Timestamp: at,
	})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFindNodesPropertyFilterAndLimit(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	for _, alias := range []string{"a", "b", "c"} {
		_, err := store.UpsertNode(ctx, tenant,
			graph.NewNode("Person").WithAlias(alias).WithProperty("team", "core"))
		require.NoError(t, err)
	}
	_, err := store.UpsertNode(ctx, tenant,
		graph.NewNode("Person").WithAlias("d").WithProperty("team", "infra"))
	require.NoError(t, err)

	paths, err := store.Query(ctx, tenant, graph.FindNodes{
		Labels:     []string{"Person"},
		Properties: map[string]any{"team": "core"},
	})
	require.NoError(t, err)
	assert.Len(t, paths, 3)

	// Filter keys missing from a node exclude it.
	paths, err = store.Query(ctx, tenant, graph.FindNodes{
		Properties: map[string]any{"missing": true},
	})
	require.NoError(t, err)
	assert.Empty(t, paths)

	// Limit truncates deterministically: two equal queries agree.
	first, err := store.Query(ctx, tenant, graph.FindNodes{Labels: []string{"Person"}, Limit: 2})
	require.NoError(t, err)
	second, err := store.Query(ctx, tenant, graph.FindNodes{Labels: []string{"Person"}, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestRawQueryRejected(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	_, err := store.Query(context.Background(), graph.TenantID("t1"),
		graph.Raw{Query: "MATCH (n) RETURN n"})
	assert.ErrorIs(t, err, graph.ErrQueryFailed)
}

func TestCapacityCaps(t *testing.T) {
	store := NewMemoryStoreWithConfig(MemoryConfig{MaxNodes: 2, MaxEdges: 1})
	defer store.Close()
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	id1, err := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("a"))
	require.NoError(t, err)
	id2, err := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("b"))
	require.NoError(t, err)

	_, err = store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("c"))
	assert.ErrorIs(t, err, graph.ErrConstraintViolation)

	// Alias overwrite of an existing node is not an insert and still works.
	_, err = store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("a").WithProperty("x", 1))
	assert.NoError(t, err)

	_, err = store.UpsertEdge(ctx, tenant, graph.NewTimeEdge(id1, id2, "KNOWS", time.Now().UTC(), nil))
	require.NoError(t, err)
	_, err = store.UpsertEdge(ctx, tenant, graph.NewTimeEdge(id2, id1, "KNOWS", time.Now().UTC(), nil))
	assert.ErrorIs(t, err, graph.ErrConstraintViolation)
}

func TestGetNodeHistorySingleton(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	id, err := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("alice"))
	require.NoError(t, err)

	history, err := store.GetNodeHistory(ctx, tenant, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "alice", history[0].Alias)

	history, err = store.GetNodeHistory(ctx, tenant, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDeepCopyPreventsExternalMutation(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	props := map[string]any{"tags": []any{"x"}}
	id, err := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("alice").WithProps(props))
	require.NoError(t, err)

	// Mutating the caller's map after the upsert changes nothing stored.
	props["tags"] = []any{"hacked"}

	node, err := store.GetNode(ctx, tenant, id)
	require.NoError(t, err)
	assert.Equal(t, []any{"x"}, node.Props["tags"])

	// Mutating a returned node changes nothing stored either.
	node.Props["injected"] = true
	again, err := store.GetNode(ctx, tenant, id)
	require.NoError(t, err)
	_, present := again.Props["injected"]
	assert.False(t, present)
}

func TestClosedStoreFails(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	require.NoError(t, store.Close())

	_, err := store.UpsertNode(ctx, tenant, graph.NewNode("Person"))
	assert.ErrorIs(t, err, graph.ErrDatabase)
	assert.Error(t, store.HealthCheck(ctx))
}

func TestCancelledContext(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	tenant := graph.TenantID("t1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.UpsertNode(ctx, tenant, graph.NewNode("Person"))
	assert.True(t, errors.Is(err, context.Canceled))
}
