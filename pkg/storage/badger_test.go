package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProdFact/telamentis/pkg/graph"
)

// newTestBadger exercises the persistent code path without disk I/O.
func newTestBadger(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStoreInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBadgerAliasIdempotence(t *testing.T) {
	store := newTestBadger(t)
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	id1, err := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("alice"))
	require.NoError(t, err)
	id2, err := store.UpsertNode(ctx, tenant,
		graph.NewNode("Person").WithAlias("alice").WithProperty("age", 30))
	require.NoError(t, err)

	assert.Equal(t, id1, id2)

	node, err := store.GetNode(ctx, tenant, id1)
	require.NoError(t, err)
	require.NotNil(t, node)
	// JSON round-trips numbers as float64.
	assert.EqualValues(t, 30, node.Props["age"])
}

func TestBadgerTenantIsolation(t *testing.T) {
	store := newTestBadger(t)
	ctx := context.Background()

	idA, err := store.UpsertNode(ctx, "tenant_a", graph.NewNode("Person").WithAlias("alice"))
	require.NoError(t, err)
	idB, err := store.UpsertNode(ctx, "tenant_b", graph.NewNode("Person").WithAlias("alice"))
	require.NoError(t, err)
	assert.NotEqual(t, idA, idB)

	masked, err := store.GetNode(ctx, "tenant_b", idA)
	require.NoError(t, err)
	assert.Nil(t, masked)

	_, hit, err := store.GetNodeByAlias(ctx, "tenant_a", "alice")
	require.NoError(t, err)
	require.NotNil(t, hit)
}

func TestBadgerEdgeLifecycle(t *testing.T) {
	store := newTestBadger(t)
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	aliceID, err := store.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("alice"))
	require.NoError(t, err)
	acmeID, err := store.UpsertNode(ctx, tenant, graph.NewNode("Company").WithAlias("acme"))
	require.NoError(t, err)

	validFrom := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	validTo := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err = store.UpsertEdge(ctx, tenant,
		graph.NewTimeEdge(aliceID, acmeID, "WORKS_FOR", validFrom, nil).WithValidTo(validTo))
	require.NoError(t, err)

	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	paths, err := store.Query(ctx, tenant, graph.FindRelationships{
		FromID:  &aliceID,
		Types:   []string{"WORKS_FOR"},
		ValidAt: &at,
	})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "WORKS_FOR", paths[0].Relationships[0].Type)

	outside := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	paths, err = store.Query(ctx, tenant, graph.FindRelationships{
		FromID:  &aliceID,
		ValidAt: &outside,
	})
	require.NoError(t, err)
	assert.Empty(t, paths, "half-open end excludes the boundary instant")

	// Supersede: a second upsert of the same (from, to, kind) hides the first.
	secondID, err := store.UpsertEdge(ctx, tenant,
		graph.NewTimeEdge(aliceID, acmeID, "WORKS_FOR", validFrom, map[string]any{"role": "manager"}))
	require.NoError(t, err)

	paths, err = store.Query(ctx, tenant, graph.FindRelationships{FromID: &aliceID})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, secondID, paths[0].Relationships[0].ID)

	// Cascade delete.
	deleted, err := store.DeleteNode(ctx, tenant, aliceID)
	require.NoError(t, err)
	assert.True(t, deleted)

	paths, err = store.Query(ctx, tenant, graph.FindRelationships{})
	require.NoError(t, err)
	assert.Empty(t, paths)

	node, err := store.GetNode(ctx, tenant, aliceID)
	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestBadgerRawRejected(t *testing.T) {
	store := newTestBadger(t)

	_, err := store.Query(context.Background(), "t1", graph.Raw{Query: "MATCH (n) RETURN n"})
	assert.ErrorIs(t, err, graph.ErrQueryFailed)
}

func TestBadgerHealthCheck(t *testing.T) {
	store := newTestBadger(t)
	assert.NoError(t, store.HealthCheck(context.Background()))
}
