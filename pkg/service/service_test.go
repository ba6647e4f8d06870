package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProdFact/telamentis/pkg/graph"
	"github.com/ProdFact/telamentis/pkg/llm"
	"github.com/ProdFact/telamentis/pkg/pipeline"
	"github.com/ProdFact/telamentis/pkg/storage"
)

// fakeConnector returns a canned envelope without touching a network.
type fakeConnector struct {
	envelope *llm.ExtractionEnvelope
	err      error
	calls    int
}

func (f *fakeConnector) Extract(_ context.Context, _ graph.TenantID, _ llm.ExtractionContext) (*llm.ExtractionEnvelope, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.envelope, nil
}

func (f *fakeConnector) Complete(_ context.Context, _ graph.TenantID, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return nil, llm.ErrInternal
}

func newTestService(t *testing.T, opts Options) (*Service, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	return New(store, opts), store
}

func TestServiceUpsertAndQueryThroughPipeline(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	aliceID, err := svc.UpsertNode(ctx, tenant, graph.NewNode("Person").WithAlias("alice"))
	require.NoError(t, err)
	acmeID, err := svc.UpsertNode(ctx, tenant, graph.NewNode("Company").WithAlias("acme"))
	require.NoError(t, err)

	_, err = svc.UpsertEdge(ctx, tenant,
		graph.NewTimeEdge(aliceID, acmeID, "WORKS_FOR", time.Now().UTC(), nil))
	require.NoError(t, err)

	paths, err := svc.Query(ctx, tenant, graph.FindRelationships{FromID: &aliceID})
	require.NoError(t, err)
	require.Len(t, paths, 1)

	node, err := svc.GetNode(ctx, tenant, aliceID)
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "alice", node.Alias)

	hitID, hit, err := svc.GetNodeByAlias(ctx, tenant, "acme")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, acmeID, hitID)

	deleted, err := svc.DeleteNode(ctx, tenant, aliceID)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestServicePipelineHaltBlocksOperation(t *testing.T) {
	runner := pipeline.NewRunner()
	require.NoError(t, runner.Register(pipeline.StagePre,
		pipeline.NewTenantValidationPlugin(), pipeline.DefaultPluginConfig()))

	svc, store := newTestService(t, Options{Runner: runner})
	ctx := context.Background()

	// Empty tenant on a graph path: the tenant gate halts before the store
	// sees anything.
	_, err := svc.UpsertNode(ctx, "", graph.NewNode("Person").WithAlias("alice"))
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrTenantRequired)

	nodes, edges := store.Stats()
	assert.Zero(t, nodes)
	assert.Zero(t, edges)
}

func TestExtractKnowledge(t *testing.T) {
	fake := &fakeConnector{envelope: &llm.ExtractionEnvelope{
		Nodes: []llm.ExtractionNode{{IDAlias: "alice", Label: "Person", Props: map[string]any{}}},
	}}
	svc, _ := newTestService(t, Options{Connector: fake})

	envelope, err := svc.ExtractKnowledge(context.Background(), "t1", llm.ExtractionContext{
		Messages: []llm.Message{{Role: "user", Content: "Alice exists."}},
	})
	require.NoError(t, err)
	require.Len(t, envelope.Nodes, 1)
	assert.Equal(t, 1, fake.calls)
}

func TestExtractKnowledgeWithoutConnector(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	_, err := svc.ExtractKnowledge(context.Background(), "t1", llm.ExtractionContext{})
	assert.ErrorIs(t, err, llm.ErrConfig)
}

func TestExtractKnowledgeConnectorError(t *testing.T) {
	sentinel := errors.New("provider down")
	svc, _ := newTestService(t, Options{Connector: &fakeConnector{err: sentinel}})

	_, err := svc.ExtractKnowledge(context.Background(), "t1", llm.ExtractionContext{})
	assert.ErrorIs(t, err, sentinel, "connector errors surface unchanged")
}

func TestIngestEnvelope(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	tenant := graph.TenantID("t1")

	validFrom := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	envelope := llm.ExtractionEnvelope{
		Nodes: []llm.ExtractionNode{
			{IDAlias: "alice", Label: "Person", Props: map[string]any{"name": "Alice"}},
			{IDAlias: "acme", Label: "Organization", Props: map[string]any{"name": "Acme"}},
		},
		Relations: []llm.ExtractionRelation{
			{FromIDAlias: "alice", ToIDAlias: "acme", TypeLabel: "WORKS_FOR",
				Props: map[string]any{}, ValidFrom: &validFrom},
		},
	}

	result, err := svc.IngestEnvelope(ctx, tenant, envelope)
	require.NoError(t, err)
	require.Len(t, result.NodeIDs, 2)
	require.Len(t, result.EdgeIDs, 1)

	// Aliases resolved to system ids, nodes reachable by alias.
	aliceID := result.NodeIDs["alice"]
	node, err := svc.GetNode(ctx, tenant, aliceID)
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "Alice", node.Props["name"])

	// The relation landed with its valid-time bound.
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	paths, err := svc.Query(ctx, tenant, graph.FindRelationships{
		FromID:  &aliceID,
		Types:   []string{"WORKS_FOR"},
		ValidAt: &at,
	})
	require.NoError(t, err)
	require.Len(t, paths, 1)

	// Re-ingesting converges on the same nodes (alias idempotency).
	again, err := svc.IngestEnvelope(ctx, tenant, envelope)
	require.NoError(t, err)
	assert.Equal(t, result.NodeIDs, again.NodeIDs)
}

func TestIngestEnvelopeRejectsInvalid(t *testing.T) {
	svc, store := newTestService(t, Options{})

	envelope := llm.ExtractionEnvelope{
		Nodes: []llm.ExtractionNode{{IDAlias: "a", Label: "Person"}},
		Relations: []llm.ExtractionRelation{
			{FromIDAlias: "a", ToIDAlias: "ghost", TypeLabel: "KNOWS"},
		},
	}

	_, err := svc.IngestEnvelope(context.Background(), "t1", envelope)
	assert.ErrorIs(t, err, llm.ErrSchemaValidation)

	// Nothing was written.
	nodes, edges := store.Stats()
	assert.Zero(t, nodes)
	assert.Zero(t, edges)
}

func TestServiceHealthCheck(t *testing.T) {
	svc, store := newTestService(t, Options{})
	assert.NoError(t, svc.HealthCheck(context.Background()))

	store.Close()
	assert.Error(t, svc.HealthCheck(context.Background()))
}
