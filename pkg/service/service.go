// Package service wires the TelaMentis core together: the storage backend,
// the LLM connector, and the request pipeline.
//
// Service is the capability set presentation adapters compile against —
// upserts, queries, extraction, health — with every request flowing through
// the staged plugin pipeline. Adapters translate wire encodings to value
// types and back; they never touch the store or the connector directly.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ProdFact/telamentis/pkg/graph"
	"github.com/ProdFact/telamentis/pkg/llm"
	"github.com/ProdFact/telamentis/pkg/pipeline"
	"github.com/ProdFact/telamentis/pkg/storage"
)

// GraphService is the core interface presentation adapters depend on.
type GraphService interface {
	UpsertNode(ctx context.Context, tenant graph.TenantID, node graph.Node) (uuid.UUID, error)
	UpsertEdge(ctx context.Context, tenant graph.TenantID, edge graph.TimeEdge) (uuid.UUID, error)
	Query(ctx context.Context, tenant graph.TenantID, q graph.Query) ([]graph.Path, error)
	GetNode(ctx context.Context, tenant graph.TenantID, id uuid.UUID) (*graph.Node, error)
	GetNodeByAlias(ctx context.Context, tenant graph.TenantID, alias string) (uuid.UUID, *graph.Node, error)
	DeleteNode(ctx context.Context, tenant graph.TenantID, id uuid.UUID) (bool, error)
	DeleteEdge(ctx context.Context, tenant graph.TenantID, id uuid.UUID) (bool, error)
	ExtractKnowledge(ctx context.Context, tenant graph.TenantID, ec llm.ExtractionContext) (*llm.ExtractionEnvelope, error)
	IngestEnvelope(ctx context.Context, tenant graph.TenantID, envelope llm.ExtractionEnvelope) (*IngestResult, error)
	HealthCheck(ctx context.Context) error
}

// IngestResult reports what an envelope ingestion created.
type IngestResult struct {
	// NodeIDs maps each envelope-local alias to its resolved system id.
	NodeIDs map[string]uuid.UUID `json:"node_ids"`
	// EdgeIDs lists the created edge versions in relation order.
	EdgeIDs []uuid.UUID `json:"edge_ids"`
}

// Service is the concrete GraphService implementation.
type Service struct {
	store     storage.GraphStore
	connector llm.Connector
	runner    *pipeline.Runner
	logger    *slog.Logger
}

// Options configures optional collaborators.
type Options struct {
	// Connector handles extraction. Nil disables the llm surface.
	Connector llm.Connector
	// Runner wraps operations with pipeline plugins. Nil means a bare
	// runner with no plugins.
	Runner *pipeline.Runner
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// New creates a Service over a storage backend.
func New(store storage.GraphStore, opts Options) *Service {
	runner := opts.Runner
	if runner == nil {
		runner = pipeline.NewRunner()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		connector: opts.Connector,
		runner:    runner,
		logger:    logger,
	}
}

// run threads one operation through the pipeline and unpacks the result.
func (s *Service) run(ctx context.Context, tenant graph.TenantID, method, path string, input any,
	op func(context.Context, *pipeline.RequestContext) error) (*pipeline.RequestContext, error) {

	rc := pipeline.NewRequestContext(method, path)
	rc.Tenant = tenant
	rc.OperationInput = input

	rc, err := s.runner.Run(ctx, rc, op)
	if err != nil {
		return nil, err
	}
	if rc.Err != nil {
		return nil, rc.Err
	}
	return rc, nil
}

// UpsertNode implements GraphService.
func (s *Service) UpsertNode(ctx context.Context, tenant graph.TenantID, node graph.Node) (uuid.UUID, error) {
	rc, err := s.run(ctx, tenant, "POST", fmt.Sprintf("/graph/%s/nodes", tenant), node,
		func(ctx context.Context, rc *pipeline.RequestContext) error {
			id, err := s.store.UpsertNode(ctx, tenant, node)
			if err != nil {
				return err
			}
			rc.OperationOutput = id
			return nil
		})
	if err != nil {
		return uuid.Nil, err
	}
	id, _ := rc.OperationOutput.(uuid.UUID)
	return id, nil
}

// UpsertEdge implements GraphService.
func (s *Service) UpsertEdge(ctx context.Context, tenant graph.TenantID, edge graph.TimeEdge) (uuid.UUID, error) {
	rc, err := s.run(ctx, tenant, "POST", fmt.Sprintf("/graph/%s/edges", tenant), edge,
		func(ctx context.Context, rc *pipeline.RequestContext) error {
			id, err := s.store.UpsertEdge(ctx, tenant, edge)
			if err != nil {
				return err
			}
			rc.OperationOutput = id
			return nil
		})
	if err != nil {
		return uuid.Nil, err
	}
	id, _ := rc.OperationOutput.(uuid.UUID)
	return id, nil
}

// Query implements GraphService.
func (s *Service) Query(ctx context.Context, tenant graph.TenantID, q graph.Query) ([]graph.Path, error) {
	rc, err := s.run(ctx, tenant, "POST", fmt.Sprintf("/graph/%s/query", tenant), q,
		func(ctx context.Context, rc *pipeline.RequestContext) error {
			paths, err := s.store.Query(ctx, tenant, q)
			if err != nil {
				return err
			}
			rc.OperationOutput = paths
			return nil
		})
	if err != nil {
		return nil, err
	}
	paths, _ := rc.OperationOutput.([]graph.Path)
	return paths, nil
}

// GetNode implements GraphService.
func (s *Service) GetNode(ctx context.Context, tenant graph.TenantID, id uuid.UUID) (*graph.Node, error) {
	rc, err := s.run(ctx, tenant, "GET", fmt.Sprintf("/graph/%s/nodes/%s", tenant, id), id,
		func(ctx context.Context, rc *pipeline.RequestContext) error {
			node, err := s.store.GetNode(ctx, tenant, id)
			if err != nil {
				return err
			}
			rc.OperationOutput = node
			return nil
		})
	if err != nil {
		return nil, err
	}
	node, _ := rc.OperationOutput.(*graph.Node)
	return node, nil
}

// GetNodeByAlias implements GraphService.
func (s *Service) GetNodeByAlias(ctx context.Context, tenant graph.TenantID, alias string) (uuid.UUID, *graph.Node, error) {
	type aliasHit struct {
		id   uuid.UUID
		node *graph.Node
	}
	rc, err := s.run(ctx, tenant, "GET", fmt.Sprintf("/graph/%s/nodes/alias/%s", tenant, alias), alias,
		func(ctx context.Context, rc *pipeline.RequestContext) error {
			id, node, err := s.store.GetNodeByAlias(ctx, tenant, alias)
			if err != nil {
				return err
			}
			rc.OperationOutput = aliasHit{id: id, node: node}
			return nil
		})
	if err != nil {
		return uuid.Nil, nil, err
	}
	hit, _ := rc.OperationOutput.(aliasHit)
	return hit.id, hit.node, nil
}

// DeleteNode implements GraphService.
func (s *Service) DeleteNode(ctx context.Context, tenant graph.TenantID, id uuid.UUID) (bool, error) {
	rc, err := s.run(ctx, tenant, "DELETE", fmt.Sprintf("/graph/%s/nodes/%s", tenant, id), id,
		func(ctx context.Context, rc *pipeline.RequestContext) error {
			deleted, err := s.store.DeleteNode(ctx, tenant, id)
			if err != nil {
				return err
			}
			rc.OperationOutput = deleted
			return nil
		})
	if err != nil {
		return false, err
	}
	deleted, _ := rc.OperationOutput.(bool)
	return deleted, nil
}

// DeleteEdge implements GraphService.
func (s *Service) DeleteEdge(ctx context.Context, tenant graph.TenantID, id uuid.UUID) (bool, error) {
	rc, err := s.run(ctx, tenant, "DELETE", fmt.Sprintf("/graph/%s/edges/%s", tenant, id), id,
		func(ctx context.Context, rc *pipeline.RequestContext) error {
			deleted, err := s.store.DeleteEdge(ctx, tenant, id)
			if err != nil {
				return err
			}
			rc.OperationOutput = deleted
			return nil
		})
	if err != nil {
		return false, err
	}
	deleted, _ := rc.OperationOutput.(bool)
	return deleted, nil
}

// ExtractKnowledge implements GraphService. The connector validates the
// envelope structurally before it reaches the caller.
func (s *Service) ExtractKnowledge(ctx context.Context, tenant graph.TenantID, ec llm.ExtractionContext) (*llm.ExtractionEnvelope, error) {
	if s.connector == nil {
		return nil, fmt.Errorf("%w: no llm connector configured", llm.ErrConfig)
	}
	rc, err := s.run(ctx, tenant, "POST", fmt.Sprintf("/llm/%s/extract", tenant), ec,
		func(ctx context.Context, rc *pipeline.RequestContext) error {
			envelope, err := s.connector.Extract(ctx, tenant, ec)
			if err != nil {
				return err
			}
			rc.OperationOutput = envelope
			return nil
		})
	if err != nil {
		return nil, err
	}
	envelope, _ := rc.OperationOutput.(*llm.ExtractionEnvelope)
	return envelope, nil
}

// IngestEnvelope resolves envelope-local aliases to system ids and writes
// the candidates into the graph.
//
// Each node is upserted with its envelope alias as the tenant-level
// idempotency key, so re-ingesting the same envelope converges on the same
// nodes. Relations then use the returned ids; a relation without an explicit
// ValidFrom becomes valid at ingestion time.
func (s *Service) IngestEnvelope(ctx context.Context, tenant graph.TenantID, envelope llm.ExtractionEnvelope) (*IngestResult, error) {
	if err := llm.ValidateEnvelope(&envelope); err != nil {
		return nil, err
	}

	rc, err := s.run(ctx, tenant, "POST", fmt.Sprintf("/llm/%s/ingest", tenant), envelope,
		func(ctx context.Context, rc *pipeline.RequestContext) error {
			result := &IngestResult{NodeIDs: make(map[string]uuid.UUID, len(envelope.Nodes))}

			for _, candidate := range envelope.Nodes {
				node := graph.Node{
					Alias: candidate.IDAlias,
					Label: candidate.Label,
					Props: candidate.Props,
				}
				id, err := s.store.UpsertNode(ctx, tenant, node)
				if err != nil {
					return fmt.Errorf("ingesting node %q: %w", candidate.IDAlias, err)
				}
				result.NodeIDs[candidate.IDAlias] = id
			}

			now := time.Now().UTC()
			for _, rel := range envelope.Relations {
				validFrom := now
				if rel.ValidFrom != nil {
					validFrom = *rel.ValidFrom
				}
				edge := graph.NewTimeEdge(
					result.NodeIDs[rel.FromIDAlias],
					result.NodeIDs[rel.ToIDAlias],
					rel.TypeLabel,
					validFrom,
					rel.Props,
				)
				if rel.ValidTo != nil {
					edge = edge.WithValidTo(*rel.ValidTo)
				}
				id, err := s.store.UpsertEdge(ctx, tenant, edge)
				if err != nil {
					return fmt.Errorf("ingesting relation %s -[%s]-> %s: %w",
						rel.FromIDAlias, rel.TypeLabel, rel.ToIDAlias, err)
				}
				result.EdgeIDs = append(result.EdgeIDs, id)
			}

			rc.OperationOutput = result
			return nil
		})
	if err != nil {
		return nil, err
	}
	result, _ := rc.OperationOutput.(*IngestResult)
	return result, nil
}

// GetNodeHistory proxies the store's history surface.
func (s *Service) GetNodeHistory(ctx context.Context, tenant graph.TenantID, id uuid.UUID) ([]graph.Node, error) {
	rc, err := s.run(ctx, tenant, "GET", fmt.Sprintf("/graph/%s/nodes/%s/history", tenant, id), id,
		func(ctx context.Context, rc *pipeline.RequestContext) error {
			history, err := s.store.GetNodeHistory(ctx, tenant, id)
			if err != nil {
				return err
			}
			rc.OperationOutput = history
			return nil
		})
	if err != nil {
		return nil, err
	}
	history, _ := rc.OperationOutput.([]graph.Node)
	return history, nil
}

// HealthCheck implements GraphService.
func (s *Service) HealthCheck(ctx context.Context) error {
	_, err := s.run(ctx, "", "GET", "/health", nil,
		func(ctx context.Context, rc *pipeline.RequestContext) error {
			return s.store.HealthCheck(ctx)
		})
	return err
}

// Shutdown tears down the pipeline's plugins.
func (s *Service) Shutdown() error {
	return s.runner.Shutdown()
}
