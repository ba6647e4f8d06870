package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/ProdFact/telamentis/pkg/graph"
)

// RequestContext is the mutable state shared by every plugin handling one
// request.
//
// The runner creates one context per request with a fresh RequestID and
// threads it through all three stages. Plugins communicate with each other
// through the Attributes bag and with the caller through OperationOutput and
// Err. The runner itself never mutates the context beyond what plugins do.
type RequestContext struct {
	// RequestID is fresh per request.
	RequestID uuid.UUID
	// Tenant is optional; routing sets it before the pre-operation stage.
	Tenant graph.TenantID
	// Method and Path identify the operation being performed.
	Method string
	Path   string
	// Headers carries transport metadata (normalized lowercase keys).
	Headers map[string]string
	// RawRequest is the undecoded request body, when the adapter keeps one.
	RawRequest any
	// OperationInput is the decoded core-operation input.
	OperationInput any
	// OperationOutput is the core-operation result, set by the operation
	// stage and visible to post-operation plugins.
	OperationOutput any
	// Attributes is the inter-plugin communication bag.
	Attributes map[string]any
	// StartTime is when the request entered the pipeline.
	StartTime time.Time
	// Err is set by HaltWithError and surfaced to the caller unwrapped.
	Err error
}

// NewRequestContext creates a context for one request.
func NewRequestContext(method, path string) *RequestContext {
	return &RequestContext{
		RequestID:  uuid.New(),
		Method:     method,
		Path:       path,
		Headers:    map[string]string{},
		Attributes: map[string]any{},
		StartTime:  time.Now().UTC(),
	}
}

// Elapsed returns the time spent in the pipeline so far.
func (c *RequestContext) Elapsed() time.Duration {
	return time.Since(c.StartTime)
}

// SetAttribute records a value in the inter-plugin bag.
func (c *RequestContext) SetAttribute(key string, value any) {
	if c.Attributes == nil {
		c.Attributes = map[string]any{}
	}
	c.Attributes[key] = value
}

// GetAttribute reads a value from the inter-plugin bag.
func (c *RequestContext) GetAttribute(key string) (any, bool) {
	v, ok := c.Attributes[key]
	return v, ok
}
