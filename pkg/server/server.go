// Package server provides the HTTP REST presentation adapter for TelaMentis.
//
// The adapter is a thin translation layer: it decodes JSON requests into the
// value types of pkg/graph and pkg/llm, calls the core service, and encodes
// results and error categories back onto the wire. It holds no business
// logic — tenant isolation, validation and temporal semantics all live in
// the core and are exercised identically by every transport.
//
// Endpoints:
//
//	GET    /health                           liveness probe
//	POST   /v1/graph/{tenant}/nodes          upsert node
//	GET    /v1/graph/{tenant}/nodes/{id}     get node by system id
//	DELETE /v1/graph/{tenant}/nodes/{id}     delete node (cascades)
//	GET    /v1/graph/{tenant}/nodes/{id}/history
//	GET    /v1/graph/{tenant}/alias/{alias}  get node by alias
//	POST   /v1/graph/{tenant}/edges          upsert edge
//	DELETE /v1/graph/{tenant}/edges/{id}     delete edge
//	POST   /v1/graph/{tenant}/query          run a query envelope
//	POST   /v1/llm/{tenant}/extract          run extraction
//	POST   /v1/llm/{tenant}/ingest           ingest an envelope
//	POST   /v1/tenants                       create tenant
//	GET    /v1/tenants                       list tenants
//	GET    /v1/tenants/{id}                  get tenant
//	DELETE /v1/tenants/{id}                  delete tenant
//
// Error categories map to HTTP statuses; the short public message is the
// category, internal context stays in the server log.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ProdFact/telamentis/pkg/graph"
	"github.com/ProdFact/telamentis/pkg/llm"
	"github.com/ProdFact/telamentis/pkg/service"
	"github.com/ProdFact/telamentis/pkg/tenant"
)

// Config tunes the HTTP adapter.
type Config struct {
	// Addr is the listen address (e.g. ":8787").
	Addr string
	// MaxBodyBytes caps request bodies. 0 = 10MB.
	MaxBodyBytes int64
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the HTTP presentation adapter.
type Server struct {
	svc     *service.Service
	tenants tenant.Manager
	logger  *slog.Logger
	http    *http.Server
	maxBody int64
}

// New creates a server over the core service and tenant registry.
func New(svc *service.Service, tenants tenant.Manager, config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := config.MaxBodyBytes
	if maxBody == 0 {
		maxBody = 10 << 20
	}

	s := &Server{
		svc:     svc,
		tenants: tenants,
		logger:  logger,
		maxBody: maxBody,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /v1/graph/{tenant}/nodes", s.handleUpsertNode)
	mux.HandleFunc("GET /v1/graph/{tenant}/nodes/{id}", s.handleGetNode)
	mux.HandleFunc("DELETE /v1/graph/{tenant}/nodes/{id}", s.handleDeleteNode)
	mux.HandleFunc("GET /v1/graph/{tenant}/nodes/{id}/history", s.handleNodeHistory)
	mux.HandleFunc("GET /v1/graph/{tenant}/alias/{alias}", s.handleGetNodeByAlias)
	mux.HandleFunc("POST /v1/graph/{tenant}/edges", s.handleUpsertEdge)
	mux.HandleFunc("DELETE /v1/graph/{tenant}/edges/{id}", s.handleDeleteEdge)
	mux.HandleFunc("POST /v1/graph/{tenant}/query", s.handleQuery)

	mux.HandleFunc("POST /v1/llm/{tenant}/extract", s.handleExtract)
	mux.HandleFunc("POST /v1/llm/{tenant}/ingest", s.handleIngest)

	mux.HandleFunc("POST /v1/tenants", s.handleCreateTenant)
	mux.HandleFunc("GET /v1/tenants", s.handleListTenants)
	mux.HandleFunc("GET /v1/tenants/{id}", s.handleGetTenant)
	mux.HandleFunc("DELETE /v1/tenants/{id}", s.handleDeleteTenant)

	s.http = &http.Server{
		Addr:              config.Addr,
		Handler:           s.recover(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// recover turns handler panics into 500s instead of dropped connections.
func (s *Server) recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic", "panic", rec, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		next.ServeHTTP(w, r)
	})
}

// ----------------------------------------------------------------------------
// Handlers
// ----------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.HealthCheck(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type upsertNodeRequest struct {
	Alias string         `json:"id_alias,omitempty"`
	Label string         `json:"label"`
	Props map[string]any `json:"props"`
}

type idResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleUpsertNode(w http.ResponseWriter, r *http.Request) {
	tenantID := graph.TenantID(r.PathValue("tenant"))

	var req upsertNodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}

	id, err := s.svc.UpsertNode(r.Context(), tenantID, graph.Node{
		Alias: req.Alias,
		Label: req.Label,
		Props: req.Props,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: id.String()})
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	tenantID := graph.TenantID(r.PathValue("tenant"))
	id, ok := s.parseID(w, r.PathValue("id"))
	if !ok {
		return
	}

	node, err := s.svc.GetNode(r.Context(), tenantID, id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if node == nil {
		writeError(w, http.StatusNotFound, "node not found")
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleGetNodeByAlias(w http.ResponseWriter, r *http.Request) {
	tenantID := graph.TenantID(r.PathValue("tenant"))
	alias := r.PathValue("alias")

	id, node, err := s.svc.GetNodeByAlias(r.Context(), tenantID, alias)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if node == nil {
		writeError(w, http.StatusNotFound, "node not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id.String(), "node": node})
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	tenantID := graph.TenantID(r.PathValue("tenant"))
	id, ok := s.parseID(w, r.PathValue("id"))
	if !ok {
		return
	}

	deleted, err := s.svc.DeleteNode(r.Context(), tenantID, id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) handleNodeHistory(w http.ResponseWriter, r *http.Request) {
	tenantID := graph.TenantID(r.PathValue("tenant"))
	id, ok := s.parseID(w, r.PathValue("id"))
	if !ok {
		return
	}

	history, err := s.svc.GetNodeHistory(r.Context(), tenantID, id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": history})
}

type upsertEdgeRequest struct {
	FromID    string         `json:"from_node_id"`
	ToID      string         `json:"to_node_id"`
	Kind      string         `json:"kind"`
	ValidFrom time.Time      `json:"valid_from"`
	ValidTo   *time.Time     `json:"valid_to,omitempty"`
	Props     map[string]any `json:"props"`
}

func (s *Server) handleUpsertEdge(w http.ResponseWriter, r *http.Request) {
	tenantID := graph.TenantID(r.PathValue("tenant"))

	var req upsertEdgeRequest
	if !s.decode(w, r, &req) {
		return
	}
	fromID, err := uuid.Parse(req.FromID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from_node_id")
		return
	}
	toID, err := uuid.Parse(req.ToID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to_node_id")
		return
	}
	if req.Kind == "" {
		writeError(w, http.StatusBadRequest, "kind is required")
		return
	}

	edge := graph.NewTimeEdge(fromID, toID, req.Kind, req.ValidFrom.UTC(), req.Props)
	if req.ValidTo != nil {
		edge = edge.WithValidTo(req.ValidTo.UTC())
	}

	id, err := s.svc.UpsertEdge(r.Context(), tenantID, edge)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: id.String()})
}

func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	tenantID := graph.TenantID(r.PathValue("tenant"))
	id, ok := s.parseID(w, r.PathValue("id"))
	if !ok {
		return
	}

	deleted, err := s.svc.DeleteEdge(r.Context(), tenantID, id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	tenantID := graph.TenantID(r.PathValue("tenant"))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return
	}
	query, err := DecodeQuery(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	paths, err := s.svc.Query(r.Context(), tenantID, query)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paths": paths, "count": len(paths)})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	tenantID := graph.TenantID(r.PathValue("tenant"))

	var ec llm.ExtractionContext
	if !s.decode(w, r, &ec) {
		return
	}

	envelope, err := s.svc.ExtractKnowledge(r.Context(), tenantID, ec)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	tenantID := graph.TenantID(r.PathValue("tenant"))

	var envelope llm.ExtractionEnvelope
	if !s.decode(w, r, &envelope) {
		return
	}

	result, err := s.svc.IngestEnvelope(r.Context(), tenantID, envelope)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type createTenantRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name,omitempty"`
	Description    string `json:"description,omitempty"`
	IsolationModel string `json:"isolation_model,omitempty"`
}

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	info := tenant.NewInfo(graph.TenantID(req.ID))
	info.Name = req.Name
	info.Description = req.Description
	if req.IsolationModel != "" {
		model, err := tenant.ParseIsolationModel(req.IsolationModel)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		info.IsolationModel = model
	}
	info = info.Activate()

	if err := s.tenants.Create(r.Context(), info); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	infos, err := s.tenants.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenants": infos})
}

func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	info, err := s.tenants.Get(r.Context(), graph.TenantID(r.PathValue("id")))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if info == nil {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	if err := s.tenants.Delete(r.Context(), graph.TenantID(r.PathValue("id"))); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// ----------------------------------------------------------------------------
// Encoding helpers
// ----------------------------------------------------------------------------

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decoding request: %v", err))
		return false
	}
	return true
}

func (s *Server) parseID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps a core error category to an HTTP status. The wire
// carries the short category message only; internal detail goes to the log.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, graph.ErrTenantRequired):
		status = http.StatusBadRequest
	case errors.Is(err, graph.ErrNodeNotFound), errors.Is(err, graph.ErrEdgeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, graph.ErrConstraintViolation):
		status = http.StatusConflict
	case errors.Is(err, graph.ErrQueryFailed):
		status = http.StatusBadRequest
	case errors.Is(err, graph.ErrTenantIsolation):
		status = http.StatusForbidden
	case errors.Is(err, graph.ErrTimeout), errors.Is(err, llm.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, llm.ErrSchemaValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, llm.ErrConfig):
		status = http.StatusNotImplemented
	case errors.Is(err, llm.ErrAPI), errors.Is(err, llm.ErrNetwork):
		status = http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		status = http.StatusRequestTimeout
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	} else {
		s.logger.Warn("request rejected", "status", status, "err", err)
	}
	writeError(w, status, publicMessage(err))
}

// publicMessage trims the error to its category prefix: internal context is
// logged, not exposed.
func publicMessage(err error) string {
	for _, sentinel := range []error{
		graph.ErrTenantRequired, graph.ErrNodeNotFound, graph.ErrEdgeNotFound,
		graph.ErrConstraintViolation, graph.ErrQueryFailed, graph.ErrTenantIsolation,
		graph.ErrTimeout, graph.ErrDatabase, graph.ErrConnectionFailed,
		graph.ErrTransactionFailed,
		llm.ErrSchemaValidation, llm.ErrConfig, llm.ErrAPI, llm.ErrNetwork,
		llm.ErrTimeout, llm.ErrResponseParse, llm.ErrBudgetExceeded,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
