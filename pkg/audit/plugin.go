package audit

import (
	"context"
	"strings"

	"github.com/ProdFact/telamentis/pkg/pipeline"
)

// Plugin records every completed request in the JSONL audit trail. It runs
// in the post-operation stage, so halted requests leave no trail entry —
// the pipeline's own log captures those.
type Plugin struct {
	logger *Logger
}

// NewPlugin wraps an audit logger as a pipeline plugin.
func NewPlugin(logger *Logger) *Plugin {
	return &Plugin{logger: logger}
}

func (p *Plugin) Name() string { return "AuditLog" }

func (p *Plugin) Init(_ pipeline.PluginConfig) error { return nil }

func (p *Plugin) Call(_ context.Context, rc *pipeline.RequestContext) pipeline.Outcome {
	event := Event{
		Type:       eventTypeFor(rc.Method, rc.Path),
		Tenant:     rc.Tenant.String(),
		RequestID:  rc.RequestID.String(),
		Method:     rc.Method,
		Path:       rc.Path,
		DurationMS: rc.Elapsed().Milliseconds(),
	}
	if rc.Err != nil {
		event.Error = rc.Err.Error()
	}
	// An unwritable audit log must not fail the request.
	_ = p.logger.Log(event)
	return pipeline.Continue()
}

func (p *Plugin) Teardown() error { return p.logger.Close() }

func eventTypeFor(method, path string) EventType {
	switch {
	case strings.Contains(path, "/llm/") && strings.HasSuffix(path, "/ingest"):
		return EventLLMIngest
	case strings.Contains(path, "/llm/"):
		return EventLLMExtract
	case strings.Contains(path, "/tenants"):
		return EventTenantAdmin
	case strings.Contains(path, "/graph/") && method == "DELETE":
		return EventGraphDelete
	case strings.Contains(path, "/graph/") && method == "GET":
		return EventGraphRead
	case strings.Contains(path, "/graph/"):
		return EventGraphWrite
	default:
		return EventHealth
	}
}
