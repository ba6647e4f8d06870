package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ProdFact/telamentis/pkg/graph"
)

// RequestLoggingPlugin logs every request entering the pipeline. Registered
// in the pre-operation stage by default.
type RequestLoggingPlugin struct {
	logger *slog.Logger
}

// NewRequestLoggingPlugin creates the built-in request logger.
func NewRequestLoggingPlugin(logger *slog.Logger) *RequestLoggingPlugin {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestLoggingPlugin{logger: logger}
}

func (p *RequestLoggingPlugin) Name() string { return "RequestLogging" }

func (p *RequestLoggingPlugin) Init(_ PluginConfig) error {
	p.logger.Debug("initialized plugin", "plugin", p.Name())
	return nil
}

func (p *RequestLoggingPlugin) Call(_ context.Context, rc *RequestContext) Outcome {
	p.logger.Info("request",
		"request_id", rc.RequestID,
		"method", rc.Method,
		"path", rc.Path,
		"tenant", rc.Tenant)
	return Continue()
}

func (p *RequestLoggingPlugin) Teardown() error { return nil }

// TenantValidationPlugin halts requests to tenant-scoped paths that carry no
// tenant. It runs in the pre-operation stage, so the core operation never
// executes for a tenantless graph or llm request.
type TenantValidationPlugin struct {
	logger *slog.Logger
	// requiredPrefixes are path fragments that demand a tenant.
	requiredPrefixes []string
}

// NewTenantValidationPlugin creates the built-in tenant gate covering graph
// and llm operations.
func NewTenantValidationPlugin() *TenantValidationPlugin {
	return &TenantValidationPlugin{
		logger:           slog.Default(),
		requiredPrefixes: []string{"/graph/", "/llm/"},
	}
}

func (p *TenantValidationPlugin) Name() string { return "TenantValidation" }

func (p *TenantValidationPlugin) Init(_ PluginConfig) error { return nil }

func (p *TenantValidationPlugin) Call(_ context.Context, rc *RequestContext) Outcome {
	required := false
	for _, fragment := range p.requiredPrefixes {
		if strings.Contains(rc.Path, fragment) {
			required = true
			break
		}
	}
	if required && rc.Tenant == "" {
		p.logger.Warn("request requires tenant but none provided",
			"request_id", rc.RequestID, "path", rc.Path)
		return HaltWithError(graph.ErrTenantRequired)
	}
	return Continue()
}

func (p *TenantValidationPlugin) Teardown() error { return nil }

// AuditTrailPlugin stamps the context with audit attributes after the
// operation completes. Registered in the post-operation stage; a halted
// request therefore produces no audit stamp.
type AuditTrailPlugin struct {
	logger *slog.Logger
}

// NewAuditTrailPlugin creates the built-in audit stamper.
func NewAuditTrailPlugin(logger *slog.Logger) *AuditTrailPlugin {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditTrailPlugin{logger: logger}
}

func (p *AuditTrailPlugin) Name() string { return "AuditTrail" }

func (p *AuditTrailPlugin) Init(_ PluginConfig) error { return nil }

func (p *AuditTrailPlugin) Call(_ context.Context, rc *RequestContext) Outcome {
	p.logger.Info("audit",
		"request_id", rc.RequestID,
		"method", rc.Method,
		"path", rc.Path,
		"tenant", rc.Tenant,
		"elapsed", rc.Elapsed())

	rc.SetAttribute("audit_timestamp", time.Now().UTC().Format(time.RFC3339Nano))
	rc.SetAttribute("audit_logged", true)
	return Continue()
}

func (p *AuditTrailPlugin) Teardown() error { return nil }
