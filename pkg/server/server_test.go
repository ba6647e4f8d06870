package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProdFact/telamentis/pkg/pipeline"
	"github.com/ProdFact/telamentis/pkg/service"
	"github.com/ProdFact/telamentis/pkg/storage"
	"github.com/ProdFact/telamentis/pkg/tenant"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := storage.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	runner := pipeline.NewRunner()
	require.NoError(t, runner.Register(pipeline.StagePre,
		pipeline.NewTenantValidationPlugin(), pipeline.DefaultPluginConfig()))

	svc := service.New(store, service.Options{Runner: runner})
	return New(svc, tenant.NewMemoryManager(), Config{Addr: ":0"})
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv.Handler(), "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestNodeRoundTripOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	// Upsert.
	rec := doJSON(t, handler, "POST", "/v1/graph/acme/nodes", map[string]any{
		"id_alias": "alice",
		"label":    "Person",
		"props":    map[string]any{"name": "Alice"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created idResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Same alias returns the same id.
	rec = doJSON(t, handler, "POST", "/v1/graph/acme/nodes", map[string]any{
		"id_alias": "alice",
		"label":    "Person",
		"props":    map[string]any{"age": 30},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var again idResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.Equal(t, created.ID, again.ID)

	// Read back by id.
	rec = doJSON(t, handler, "GET", "/v1/graph/acme/nodes/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"age":30`)

	// Read back by alias.
	rec = doJSON(t, handler, "GET", "/v1/graph/acme/alias/alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Cross-tenant reads mask existence.
	rec = doJSON(t, handler, "GET", "/v1/graph/other/nodes/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Missing label rejected.
	rec = doJSON(t, handler, "POST", "/v1/graph/acme/nodes", map[string]any{"props": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEdgeAndQueryOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	upsertNode := func(alias, label string) string {
		rec := doJSON(t, handler, "POST", "/v1/graph/acme/nodes", map[string]any{
			"id_alias": alias, "label": label, "props": map[string]any{},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp idResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.ID
	}

	aliceID := upsertNode("alice", "Person")
	acmeID := upsertNode("acme", "Company")

	rec := doJSON(t, handler, "POST", "/v1/graph/acme/edges", map[string]any{
		"from_node_id": aliceID,
		"to_node_id":   acmeID,
		"kind":         "WORKS_FOR",
		"valid_from":   "2023-01-01T00:00:00Z",
		"valid_to":     "2025-01-01T00:00:00Z",
		"props":        map[string]any{},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Edge to a missing endpoint → 404.
	rec = doJSON(t, handler, "POST", "/v1/graph/acme/edges", map[string]any{
		"from_node_id": aliceID,
		"to_node_id":   "00000000-0000-0000-0000-000000000001",
		"kind":         "KNOWS",
		"valid_from":   "2023-01-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Inverted interval → 409.
	rec = doJSON(t, handler, "POST", "/v1/graph/acme/edges", map[string]any{
		"from_node_id": aliceID,
		"to_node_id":   acmeID,
		"kind":         "WORKS_FOR",
		"valid_from":   "2025-01-01T00:00:00Z",
		"valid_to":     "2023-01-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	queryAt := func(at string) int {
		rec := doJSON(t, handler, "POST", "/v1/graph/acme/query", map[string]any{
			"type":         "find_relationships",
			"from_node_id": aliceID,
			"valid_at":     at,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.Count
	}

	assert.Equal(t, 1, queryAt("2024-06-01T00:00:00Z"))
	assert.Equal(t, 0, queryAt("2022-01-01T00:00:00Z"))
	assert.Equal(t, 0, queryAt("2025-01-01T00:00:00Z"), "half-open end")

	// Raw queries are refused by the reference store → 400.
	rec = doJSON(t, handler, "POST", "/v1/graph/acme/query", map[string]any{
		"type":  "raw",
		"query": "MATCH (n) RETURN n",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Cascade over HTTP.
	rec = doJSON(t, handler, "DELETE", "/v1/graph/acme/nodes/"+aliceID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, queryAt("2024-06-01T00:00:00Z"))
}

func TestIngestOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	rec := doJSON(t, handler, "POST", "/v1/llm/acme/ingest", map[string]any{
		"nodes": []map[string]any{
			{"id_alias": "alice", "label": "Person", "props": map[string]any{}},
			{"id_alias": "acme", "label": "Organization", "props": map[string]any{}},
		},
		"relations": []map[string]any{
			{"from_id_alias": "alice", "to_id_alias": "acme", "type_label": "WORKS_FOR", "props": map[string]any{}},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		NodeIDs map[string]string `json:"node_ids"`
		EdgeIDs []string          `json:"edge_ids"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.NodeIDs, 2)
	assert.Len(t, result.EdgeIDs, 1)

	// An envelope with a duplicate alias is rejected with 422.
	rec = doJSON(t, handler, "POST", "/v1/llm/acme/ingest", map[string]any{
		"nodes": []map[string]any{
			{"id_alias": "a", "label": "Person", "props": map[string]any{}},
			{"id_alias": "a", "label": "Person", "props": map[string]any{}},
		},
		"relations": []map[string]any{},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestExtractWithoutConnector(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv.Handler(), "POST", "/v1/llm/acme/extract", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hello"}},
	})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestTenantEndpoints(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	rec := doJSON(t, handler, "POST", "/v1/tenants", map[string]any{
		"id": "acme", "name": "Acme Corp", "isolation_model": "property",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Duplicate → 409.
	rec = doJSON(t, handler, "POST", "/v1/tenants", map[string]any{"id": "acme"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, handler, "GET", "/v1/tenants", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acme Corp")

	rec = doJSON(t, handler, "GET", "/v1/tenants/acme", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, "GET", "/v1/tenants/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, handler, "DELETE", "/v1/tenants/acme", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestErrorBodyShape(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv.Handler(), "GET", "/v1/graph/acme/nodes/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
}
